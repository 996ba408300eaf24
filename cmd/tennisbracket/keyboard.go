package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/abrezinsky/tennisbracket/internal/logger"
)

// levelLogger is the part of *logger.SlogLogger the shortcuts change
type levelLogger interface {
	GetLevel() slog.Level
	SetLevel(slog.Level)
	EnableHTTPLogging()
	DisableHTTPLogging()
	IsHTTPLoggingEnabled() bool
}

type runner interface {
	RefreshNow() error
	SessionCount() int
}

// console maps single key presses to server actions
type console struct {
	log  levelLogger
	app  runner
	quit func()
	out  io.Writer
}

func (c *console) writer() io.Writer {
	if c.out == nil {
		return os.Stdout
	}
	return c.out
}

// listen reads keys from in until ctx ends or a quit key is pressed.
// The terminal is switched to unbuffered input while listening.
func (c *console) listen(ctx context.Context, in *os.File) {
	restore, err := cbreak(int(in.Fd()))
	if err != nil {
		return
	}
	defer restore()

	keys := make(chan byte)
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := in.Read(buf)
			if err != nil {
				close(keys)
				return
			}
			if n == 1 {
				keys <- buf[0]
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case key, ok := <-keys:
			if !ok {
				return
			}
			if c.handleKey(key) {
				return
			}
		}
	}
}

// handleKey performs the action bound to key and reports whether the
// server is shutting down.
func (c *console) handleKey(key byte) bool {
	w := c.writer()
	switch key {
	case 'h', 'H':
		if c.log.IsHTTPLoggingEnabled() {
			c.log.DisableHTTPLogging()
			fmt.Fprintf(w, "%sHTTP logging disabled%s\n", yellow, reset)
		} else {
			c.log.EnableHTTPLogging()
			fmt.Fprintf(w, "%sHTTP logging enabled%s\n", green, reset)
		}
	case 'l', 'L':
		next := nextLevel(c.log.GetLevel())
		c.log.SetLevel(next)
		fmt.Fprintf(w, "%sLog level: %s%s%s\n", green, yellow, levelName(next), reset)
	case 'r', 'R':
		fmt.Fprintf(w, "%sRefreshing open sessions...%s\n", cyan, reset)
		if err := c.app.RefreshNow(); err != nil {
			fmt.Fprintf(w, "%sRefresh failed: %v%s\n", red, err, reset)
		}
	case 's', 'S':
		fmt.Fprintf(w, "%sOpen sessions: %s%d%s\n", green, yellow, c.app.SessionCount(), reset)
	case 'q', 'Q', 0x03:
		fmt.Fprintf(w, "%sShutting down server...%s\n", yellow, reset)
		c.quit()
		return true
	case '?':
		printKeyboardHelp()
	}
	return false
}

// nextLevel cycles debug -> info -> warn -> error -> debug
func nextLevel(current slog.Level) slog.Level {
	switch {
	case current < slog.LevelInfo:
		return slog.LevelInfo
	case current < slog.LevelWarn:
		return slog.LevelWarn
	case current < slog.LevelError:
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

func levelName(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return "debug"
	case slog.LevelWarn:
		return "warn"
	case slog.LevelError:
		return "error"
	default:
		return "info"
	}
}

var _ levelLogger = (*logger.SlogLogger)(nil)
