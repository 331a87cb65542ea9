package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/openclaw/qrgen/api"
	"github.com/openclaw/qrgen/config"
	"github.com/openclaw/qrgen/encoder"
	"github.com/openclaw/qrgen/notify"
	"github.com/openclaw/qrgen/pngio"
	"github.com/openclaw/qrgen/render"
	"github.com/openclaw/qrgen/scanner"
	"github.com/openclaw/qrgen/store"
	"github.com/openclaw/qrgen/studio"
)

var version = "v0.1.0"

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "qrgen",
		Short:         "Generate QR code images from text",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to config file")

	// --- generate command ----------------------------------------------------
	var genOpts generateOptions
	generateCmd := &cobra.Command{
		Use:   "generate [text]",
		Short: "Encode text and write the QR code as PNG",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := inputText(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return runGenerate(cmd.Context(), configPath, text, genOpts, cmd.OutOrStdout())
		},
	}
	generateCmd.Flags().StringVarP(&genOpts.out, "out", "o", "-", "Output file (- writes PNG to stdout)")
	generateCmd.Flags().BoolVarP(&genOpts.transparent, "transparent", "t", false, "Make the background transparent")
	generateCmd.Flags().IntVarP(&genOpts.scale, "scale", "s", 0, "Pixels per module (default from config)")
	generateCmd.Flags().StringVarP(&genOpts.level, "level", "l", "", "Error correction level L, M, Q or H (default from config)")
	generateCmd.Flags().BoolVar(&genOpts.verify, "verify", false, "Scan the written file and compare with the input")
	root.AddCommand(generateCmd)

	// --- preview command -----------------------------------------------------
	var inverse bool
	previewCmd := &cobra.Command{
		Use:   "preview [text]",
		Short: "Print the QR code to the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := inputText(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return runPreview(configPath, text, inverse, cmd.OutOrStdout())
		},
	}
	previewCmd.Flags().BoolVar(&inverse, "inverse", false, "Draw for light text on a dark terminal")
	root.AddCommand(previewCmd)

	// --- console command -----------------------------------------------------
	var consoleInverse bool
	consoleCmd := &cobra.Command{
		Use:   "console",
		Short: "Interactive generator: type text, toggle transparency, save",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(cmd.Context(), configPath, consoleInverse, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	consoleCmd.Flags().BoolVar(&consoleInverse, "inverse", false, "Draw for light text on a dark terminal")
	root.AddCommand(consoleCmd)

	// --- scan command --------------------------------------------------------
	root.AddCommand(&cobra.Command{
		Use:   "scan [file]",
		Short: "Decode the QR code in a PNG file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := scanner.ScanFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	})

	// --- serve command -------------------------------------------------------
	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP generator service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	})

	// --- history command -----------------------------------------------------
	var (
		historySearch string
		historyLimit  int
	)
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List or search previously generated codes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(configPath, historySearch, historyLimit, cmd.OutOrStdout())
		},
	}
	historyCmd.Flags().StringVarP(&historySearch, "search", "q", "", "Full-text search query")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of entries")
	root.AddCommand(historyCmd)

	// --- version command -----------------------------------------------------
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "qrgen %s\n", version)
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app is the set of components every command shares.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	gen     *studio.Generator
	history *store.HistoryStore // nil when history is disabled
	webhook *notify.WebhookSender
}

// loadApp loads config and builds the generator. With withHistory set, the
// history store is opened as well (if enabled in config).
func loadApp(configPath string, level string, scale int, withHistory bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if level != "" {
		cfg.ErrorLevel = level
	}
	if scale != 0 {
		cfg.Scale = scale
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log := newLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	slog.SetDefault(log)

	lvl, _ := cfg.Level()
	fg, bg, _ := cfg.Colors()
	gen, err := studio.NewGenerator(studio.Options{
		Level:      lvl,
		Scale:      cfg.Scale,
		Foreground: fg,
		Background: bg,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("create generator: %w", err)
	}

	a := &app{
		cfg:     cfg,
		log:     log,
		gen:     gen,
		webhook: notify.NewWebhookSender(cfg.WebhookURL, log),
	}

	if withHistory && cfg.HistoryEnabled {
		if err := cfg.EnsureDataDir(); err != nil {
			return nil, fmt.Errorf("ensure data dir: %w", err)
		}
		a.history, err = store.NewHistoryStore(cfg.HistoryPath())
		if err != nil {
			return nil, fmt.Errorf("open history store: %w", err)
		}
	}
	return a, nil
}

func (a *app) Close() {
	if a.history != nil {
		a.history.Close()
	}
}

// saved records a persisted code in the history and notifies the webhook.
func (a *app) saved(ctx context.Context, path, source string, res *studio.Result, size int) {
	if a.history != nil {
		rec := &store.Record{
			Text:        res.Text(),
			Level:       res.Matrix.Level().String(),
			Version:     res.Matrix.Version(),
			Scale:       res.Scale,
			Transparent: res.Transparent,
			Width:       res.Width(),
			Height:      res.Height(),
			PNGSize:     size,
			Source:      source,
			Path:        path,
		}
		if err := a.history.Save(rec); err != nil {
			a.log.Error("failed to record history", "error", err)
		}
	}

	if !a.webhook.Enabled() || path == "" {
		return
	}
	err := a.webhook.Send(ctx, &notify.SavedEvent{
		Path:        path,
		Text:        res.Text(),
		Level:       res.Matrix.Level().String(),
		Version:     res.Matrix.Version(),
		Transparent: res.Transparent,
		Width:       res.Width(),
		Height:      res.Height(),
		Bytes:       size,
		Timestamp:   time.Now().Unix(),
	})
	if err != nil {
		a.log.Error("webhook delivery failed", "path", path, "error", err)
	}
}

func newLogger(level, format string, w io.Writer) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: logLevel}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// inputText joins the arguments, or reads stdin when there are none.
func inputText(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

type generateOptions struct {
	out         string
	transparent bool
	scale       int
	level       string
	verify      bool
}

// runGenerate writes one code. Empty text does nothing.
func runGenerate(ctx context.Context, configPath, text string, opts generateOptions, stdout io.Writer) error {
	if text == "" {
		return nil
	}
	if opts.verify && opts.out == "-" {
		return errors.New("--verify needs --out")
	}

	a, err := loadApp(configPath, opts.level, opts.scale, true)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.gen.Generate(text, opts.transparent)
	if err != nil {
		if errors.Is(err, encoder.ErrTooLong) {
			return fmt.Errorf("text too long to encode at level %s (%d bytes)", a.gen.Level(), len(text))
		}
		return err
	}

	data, err := res.PNG()
	if err != nil {
		return fmt.Errorf("encode png: %w", err)
	}

	if opts.out == "-" {
		if _, err := stdout.Write(data); err != nil {
			return fmt.Errorf("write stdout: %w", err)
		}
		a.saved(ctx, "", "cli", res, len(data))
		return nil
	}

	if err := pngio.WriteFile(opts.out, data); err != nil {
		return err
	}
	a.log.Info("qr code saved", "path", opts.out, "version", res.Matrix.Version(),
		"width", res.Width(), "transparent", res.Transparent)
	a.saved(ctx, opts.out, "cli", res, len(data))

	if opts.verify {
		got, err := scanner.ScanFile(opts.out)
		if err != nil {
			return fmt.Errorf("verify %s: %w", opts.out, err)
		}
		if got != text {
			return fmt.Errorf("verify %s: decoded %q, want %q", opts.out, got, text)
		}
		a.log.Info("qr code verified", "path", opts.out)
	}
	return nil
}

func runPreview(configPath, text string, inverse bool, stdout io.Writer) error {
	if text == "" {
		return nil
	}
	a, err := loadApp(configPath, "", 0, false)
	if err != nil {
		return err
	}

	res, err := a.gen.Generate(text, false)
	if err != nil {
		return err
	}
	fmt.Fprint(stdout, render.Text(res.Matrix, inverse))
	return nil
}

func runConsole(ctx context.Context, configPath string, inverse bool, stdin io.Reader, stdout io.Writer) error {
	a, err := loadApp(configPath, "", 0, true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session := studio.NewSession(a.gen)
	session.OnSave(func(path string, res *studio.Result) {
		size := 0
		if fi, err := os.Stat(path); err == nil {
			size = int(fi.Size())
		}
		a.saved(ctx, path, "console", res, size)
	})

	return studio.NewConsole(session, stdin, stdout, inverse).Run(ctx)
}

// runServe is the service entrypoint that wires all components together.
func runServe(configPath string) error {
	// 1. Load config, logger, generator and history
	a, err := loadApp(configPath, "", 0, true)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg, log := a.cfg, a.log

	log.Info("starting qrgen", "version", version, "port", cfg.Port, "data_dir", cfg.DataDir,
		"level", a.gen.Level().String(), "scale", a.gen.Scale(), "history", a.history != nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Start history pruning
	if a.history != nil && cfg.HistoryRetention.Duration > 0 {
		store.StartPruneLoop(ctx, a.history, cfg.PruneInterval.Duration, cfg.HistoryRetention.Duration, log)
	}

	// 3. Start HTTP server
	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
		Handler: api.NewRouter(&api.Server{
			Generator:    a.gen,
			Store:        a.history,
			Log:          log,
			Version:      version,
			MaxTextBytes: cfg.MaxTextBytes,
		}),
		ReadTimeout:  cfg.ReadTimeout.Duration,
		WriteTimeout: cfg.WriteTimeout.Duration,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	log.Info("generator is running", "url", fmt.Sprintf("http://localhost:%d/", cfg.Port))

	// 4. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	log.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	log.Info("goodbye")
	return nil
}

func runHistory(configPath, search string, limit int, stdout io.Writer) error {
	a, err := loadApp(configPath, "", 0, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.history == nil {
		return errors.New("history is disabled in config")
	}

	var recs []store.Record
	if search != "" {
		recs, err = a.history.Search(search, limit)
	} else {
		recs, err = a.history.List(limit, 0)
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tSOURCE\tLEVEL\tVERSION\tSIZE\tTEXT")
	for _, r := range recs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%dx%d\t%s\n",
			r.ID, time.Unix(r.CreatedAt, 0).Local().Format(time.DateTime), r.Source, r.Level, r.Version,
			r.Width, r.Height, truncate(r.Text, 48))
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
