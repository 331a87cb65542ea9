package studio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/openclaw/qrgen/encoder"
	"github.com/openclaw/qrgen/render"
)

const consoleHelp = `Type text and press enter to generate a QR code.
Commands:
  :transparent on|off   toggle the transparent background
  :save PATH            write the shown code as PNG
  :clear                clear text and code
  :show                 print the shown code again
  :help                 show this help
  :quit                 leave
`

// Console drives a Session from line-oriented input, printing codes as
// terminal text.
type Console struct {
	session *Session
	in      io.Reader
	out     io.Writer
	inverse bool
}

// NewConsole returns a console reading commands from in and writing to out.
// With inverse set, codes are drawn for light-on-dark terminals.
func NewConsole(s *Session, in io.Reader, out io.Writer, inverse bool) *Console {
	return &Console{session: s, in: in, out: out, inverse: inverse}
}

// Run processes input until EOF, :quit, or ctx is cancelled. Cancellation
// returns nil even while a read is still pending.
func (c *Console) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(c.in)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()

	fmt.Fprint(c.out, consoleHelp)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if ctx.Err() != nil {
				return nil
			}
			if !ok {
				if err := <-errc; err != nil {
					return fmt.Errorf("read input: %w", err)
				}
				return nil
			}
			if quit := c.handle(line); quit {
				return nil
			}
		}
	}
}

func (c *Console) handle(line string) (quit bool) {
	if !strings.HasPrefix(line, ":") {
		c.session.SetText(line)
		res, err := c.session.Generate()
		c.show(res, err)
		return false
	}

	cmd, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "quit", "q", "exit":
		return true
	case "help", "h":
		fmt.Fprint(c.out, consoleHelp)
	case "clear":
		c.session.Clear()
		fmt.Fprintln(c.out, "cleared")
	case "show":
		c.show(c.session.Current(), nil)
	case "transparent", "t":
		on, ok := parseSwitch(arg)
		if !ok {
			fmt.Fprintln(c.out, "usage: :transparent on|off")
			return false
		}
		res, err := c.session.SetTransparent(on)
		if errors.Is(err, ErrNotGenerated) {
			fmt.Fprintln(c.out, "generate a code first")
			return false
		}
		c.show(res, err)
	case "save", "s":
		if arg == "" {
			fmt.Fprintln(c.out, "usage: :save PATH")
			return false
		}
		if err := c.session.Save(arg); err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
			return false
		}
		fmt.Fprintf(c.out, "saved %s\n", arg)
	default:
		fmt.Fprintf(c.out, "unknown command %q, try :help\n", cmd)
	}
	return false
}

func (c *Console) show(res *Result, err error) {
	switch {
	case errors.Is(err, encoder.ErrTooLong):
		fmt.Fprintln(c.out, "error: text too long to encode")
	case err != nil:
		fmt.Fprintf(c.out, "error: %v\n", err)
	case res == nil:
		// Empty input: nothing to show.
	default:
		fmt.Fprint(c.out, render.Text(res.Matrix, c.inverse))
		fmt.Fprintf(c.out, "version %d, level %s, %dx%d px, transparent=%v\n",
			res.Matrix.Version(), res.Matrix.Level(), res.Width(), res.Height(), res.Transparent)
	}
}

func parseSwitch(s string) (on, ok bool) {
	switch strings.ToLower(s) {
	case "on", "true", "1", "yes":
		return true, true
	case "off", "false", "0", "no":
		return false, true
	}
	return false, false
}
