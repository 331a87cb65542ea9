package studio_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/qrgen/studio"
)

func runConsole(t *testing.T, input string) (string, *studio.Session) {
	t.Helper()
	s := studio.NewSession(newGenerator(t))
	var out bytes.Buffer
	c := studio.NewConsole(s, strings.NewReader(input), &out, false)
	require.NoError(t, c.Run(context.Background()))
	return out.String(), s
}

func TestConsoleGenerateAndSave(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "c.png")
	out, s := runConsole(t, "HELLO\n:transparent on\n:save "+path+"\n:quit\nignored\n")

	assert.Contains(t, out, "version 1, level H, 145x145 px, transparent=false")
	assert.Contains(t, out, "transparent=true")
	assert.Contains(t, out, "saved "+path)
	assert.Equal(t, "HELLO", s.Text())

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestConsoleTransparentBeforeGenerate(t *testing.T) {
	t.Parallel()

	out, _ := runConsole(t, ":transparent on\n")
	assert.Contains(t, out, "generate a code first")
}

func TestConsoleTooLong(t *testing.T) {
	t.Parallel()

	out, s := runConsole(t, strings.Repeat("y", 3000)+"\n")
	assert.Contains(t, out, "error: text too long to encode")
	assert.Nil(t, s.Current())
}

func TestConsoleCommands(t *testing.T) {
	t.Parallel()

	out, s := runConsole(t, "abc\n:clear\n:save\n:transparent maybe\n:bogus\n\n")
	assert.Contains(t, out, "cleared")
	assert.Contains(t, out, "usage: :save PATH")
	assert.Contains(t, out, "usage: :transparent on|off")
	assert.Contains(t, out, `unknown command "bogus"`)
	assert.Nil(t, s.Current())
}

func TestConsoleSaveWithoutCode(t *testing.T) {
	t.Parallel()

	out, _ := runConsole(t, ":save "+filepath.Join(t.TempDir(), "x.png")+"\n")
	assert.Contains(t, out, "error: nothing to save")
}

func TestConsoleStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := studio.NewSession(newGenerator(t))
	c := studio.NewConsole(s, strings.NewReader("HELLO\n"), &bytes.Buffer{}, false)
	assert.NoError(t, c.Run(ctx))
	assert.Nil(t, s.Current())
}

func TestConsoleStopsOnCancelWhileWaitingForInput(t *testing.T) {
	t.Parallel()

	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	s := studio.NewSession(newGenerator(t))
	c := studio.NewConsole(s, pr, &bytes.Buffer{}, false)

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
