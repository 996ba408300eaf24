// Package config reads server settings from flags, the environment and an
// optional .env file. Flags win over the process environment, which wins
// over the file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/abrezinsky/tennisbracket/internal/logger"
	"github.com/abrezinsky/tennisbracket/internal/storage"
	"github.com/abrezinsky/tennisbracket/pkg/tennisabstract"
)

// Config holds everything needed to start the server
type Config struct {
	Port            int
	DBPath          string
	LogLevel        string
	LogFormat       logger.Format
	SourceURL       string
	RefreshInterval time.Duration
	CacheTTL        time.Duration
	CORSOrigins     []string
	PublicURL       string
	Archive         storage.S3Config
	NoKeyboard      bool
	ShowVersion     bool
}

// Addr is the listen address for the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// ArchiveEnabled reports whether saved brackets are copied to object storage
func (c *Config) ArchiveEnabled() bool {
	return c.Archive.Bucket != ""
}

// Load reads the configuration. args are the command line arguments without
// the program name. The .env file named by ENV_FILE (default ".env") is read
// if it exists.
func Load(args []string) (*Config, error) {
	env := map[string]string{}
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if fileEnv, err := godotenv.Read(path); err == nil {
		env = fileEnv
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return load(args, env, os.Stderr)
}

func load(args []string, env map[string]string, output io.Writer) (*Config, error) {
	e := envReader{env: env}
	cfg := &Config{}

	fs := flag.NewFlagSet("tennisbracket", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {}
	fs.IntVar(&cfg.Port, "port", e.int("PORT", 8080), "HTTP server port")
	fs.StringVar(&cfg.DBPath, "db", e.str("DB_PATH", "brackets.db"), "SQLite database path")
	fs.StringVar(&cfg.LogLevel, "loglevel", e.str("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	logFormat := fs.String("logformat", e.str("LOG_FORMAT", "text"), "Log format (text, json)")
	fs.StringVar(&cfg.SourceURL, "source", e.str("SOURCE_URL", tennisabstract.DefaultBaseURL), "Draw source base URL")
	fs.DurationVar(&cfg.RefreshInterval, "refresh", e.duration("REFRESH_INTERVAL", 5*time.Minute), "Result refresh interval (0 disables)")
	fs.DurationVar(&cfg.CacheTTL, "cachettl", e.duration("CACHE_TTL", 2*time.Minute), "How long fetched pages are reused")
	cors := fs.String("cors", e.str("CORS_ORIGINS", "*"), "Comma separated allowed CORS origins")
	fs.StringVar(&cfg.PublicURL, "public-url", e.str("PUBLIC_URL", ""), "Base URL used in share links")
	fs.BoolVar(&cfg.NoKeyboard, "nokeyboard", e.bool("NO_KEYBOARD", false), "Disable keyboard shortcuts")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version and exit")

	cfg.Archive = storage.S3Config{
		Bucket:          e.str("S3_BUCKET", ""),
		Region:          e.str("S3_REGION", ""),
		Endpoint:        e.str("S3_ENDPOINT", ""),
		AccessKeyID:     e.str("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: e.str("S3_SECRET_ACCESS_KEY", ""),
	}
	fs.StringVar(&cfg.Archive.Bucket, "s3-bucket", cfg.Archive.Bucket, "S3 bucket for bracket archives (empty disables)")

	if err := e.err(); err != nil {
		return nil, err
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	cfg.LogFormat = logger.ParseFormat(*logFormat)
	cfg.CORSOrigins = splitList(*cors)
	cfg.PublicURL = strings.TrimSuffix(strings.TrimSpace(cfg.PublicURL), "/")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range 1-65535", c.Port)
	}
	if c.DBPath == "" {
		return errors.New("database path is required")
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("refresh interval %s must not be negative", c.RefreshInterval)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache ttl %s must not be negative", c.CacheTTL)
	}
	if c.PublicURL != "" && !strings.HasPrefix(c.PublicURL, "http://") && !strings.HasPrefix(c.PublicURL, "https://") {
		return fmt.Errorf("public url %q must start with http:// or https://", c.PublicURL)
	}
	if (c.Archive.AccessKeyID == "") != (c.Archive.SecretAccessKey == "") {
		return errors.New("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY must be set together")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// envReader reads typed values and remembers the first malformed one
type envReader struct {
	env   map[string]string
	first error
}

func (e *envReader) str(key, def string) string {
	if v, ok := e.env[key]; ok && v != "" {
		return v
	}
	return def
}

func (e *envReader) int(key string, def int) int {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v)
		return def
	}
	return n
}

func (e *envReader) bool(key string, def bool) bool {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, v)
		return def
	}
	return b
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v)
		return def
	}
	return d
}

func (e *envReader) fail(key, value string) {
	if e.first == nil {
		e.first = fmt.Errorf("invalid %s %q", key, value)
	}
}

func (e *envReader) err() error {
	return e.first
}
