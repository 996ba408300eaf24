package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/abrezinsky/tennisbracket/internal/app"
	"github.com/abrezinsky/tennisbracket/internal/config"
	"github.com/abrezinsky/tennisbracket/internal/logger"
)

// ANSI escape codes
const (
	reset  = "\033[0m"
	yellow = "\033[33m"
	red    = "\033[31m"
	green  = "\033[32m"
	cyan   = "\033[36m"
	bold   = "\033[1m"
)

var (
	version = "dev"
)

func showLogo() {
	const width = 44
	border := strings.Repeat("═", width)
	lines := []string{
		"",
		"   T E N N I S   B R A C K E T",
		"",
		"   ──┐                         ",
		"     ├──┐      draws, results  ",
		"   ──┘  ├──    and predictions ",
		"   ──┐  │                      ",
		"     ├──┘                      ",
		"   ──┘                         ",
		"",
	}

	fmt.Printf("\n  %s╔%s╗%s\n", cyan, border, reset)
	for _, line := range lines {
		pad := width - len([]rune(line))
		if pad < 0 {
			pad = 0
		}
		fmt.Printf("  %s║%s%s%s%s║%s\n", cyan, yellow, line, strings.Repeat(" ", pad), cyan, reset)
	}
	fmt.Printf("  %s╚%s╝%s\n\n", cyan, border, reset)
}

// printKeyboardHelp displays all available keyboard shortcuts
func printKeyboardHelp() {
	fmt.Printf("\n%s%s  Keyboard shortcuts:%s\n", bold, green, reset)
	fmt.Printf("    %sh%s      - Toggle HTTP request logging\n", cyan, reset)
	fmt.Printf("    %sl%s      - Cycle log level (debug → info → warn → error)\n", cyan, reset)
	fmt.Printf("    %sr%s      - Refresh results for all open sessions now\n", cyan, reset)
	fmt.Printf("    %ss%s      - Show open session count\n", cyan, reset)
	fmt.Printf("    %sq%s      - Quit server\n", cyan, reset)
	fmt.Printf("    %s?%s      - Show this help\n\n", cyan, reset)
}

func usage() {
	fmt.Fprintf(os.Stderr, `TennisBracket - tournament draws, live results and predictions

Usage:
  tennisbracket [options]

Every option can also be set through the environment or a .env file
(PORT, DB_PATH, LOG_LEVEL, LOG_FORMAT, SOURCE_URL, REFRESH_INTERVAL,
CACHE_TTL, CORS_ORIGINS, PUBLIC_URL, NO_KEYBOARD, S3_BUCKET, S3_REGION,
S3_ENDPOINT, S3_ACCESS_KEY_ID, S3_SECRET_ACCESS_KEY).

Options:
  -port int          HTTP server port (default 8080)
  -db string         SQLite database path (default "brackets.db")
  -loglevel string   Log level: debug, info, warn, error (default "info")
  -logformat string  Log format: text, json (default "text")
  -source string     Draw source base URL
  -refresh duration  Result refresh interval, 0 disables (default 5m)
  -cachettl duration How long fetched pages are reused (default 2m)
  -cors string       Comma separated allowed CORS origins (default "*")
  -public-url string Base URL used in share links
  -s3-bucket string  S3 bucket for bracket archives
  -nokeyboard        Disable keyboard shortcuts
  -version           Show version and exit

Examples:
  tennisbracket                            # Run on port 8080 with brackets.db
  tennisbracket -port 9000 -refresh 1m     # Faster result polling
  tennisbracket -logformat json -nokeyboard

`)
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		usage()
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%sconfiguration error:%s %v\n", red, reset, err)
		return 2
	}

	if cfg.ShowVersion {
		fmt.Printf("tennisbracket %s\n", version)
		return 0
	}

	interactive := !cfg.NoKeyboard && term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		showLogo()
	}

	appLog := logger.NewWithWriter(os.Stderr, logger.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	a, err := app.New(cfg, appLog)
	if err != nil {
		appLog.Error("Failed to initialize application", "error", err)
		return 1
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if interactive {
		printKeyboardHelp()
	}
	listening := make(chan struct{})
	go func() {
		defer close(listening)
		if interactive {
			c := &console{log: appLog, app: a, quit: stop}
			c.listen(ctx, os.Stdin)
		}
	}()

	err = a.Run(ctx, cfg.Addr())
	stop()
	<-listening
	if err != nil {
		appLog.Error("Server stopped", "error", err)
		return 1
	}
	return 0
}
