// ABOUTME: Layered player configuration
// ABOUTME: Defaults, optional .env files, then SOUNDDRIFT_* environment variables
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/SoundDrift/sounddrift-go/pkg/audio/output"
	"github.com/SoundDrift/sounddrift-go/pkg/source"
	"github.com/joho/godotenv"
)

// Environment variable names
const (
	EnvServer          = "SOUNDDRIFT_SERVER"
	EnvPort            = "SOUNDDRIFT_PORT"
	EnvBackend         = "SOUNDDRIFT_BACKEND"
	EnvLogLevel        = "SOUNDDRIFT_LOG_LEVEL"
	EnvLogFile         = "SOUNDDRIFT_LOG_FILE"
	EnvDialTimeout     = "SOUNDDRIFT_DIAL_TIMEOUT"
	EnvDiscover        = "SOUNDDRIFT_DISCOVER"
	EnvDiscoverTimeout = "SOUNDDRIFT_DISCOVER_TIMEOUT"
	EnvTUI             = "SOUNDDRIFT_TUI"
)

// DefaultEnvFile is read from the working directory when present
const DefaultEnvFile = ".env"

// Config holds player configuration
type Config struct {
	Server          string
	Port            int
	Backend         string
	LogLevel        string
	LogFile         string
	DialTimeout     time.Duration
	Discover        bool
	DiscoverTimeout time.Duration
	TUI             bool
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Port:            source.DefaultPort,
		Backend:         output.DefaultBackend,
		LogLevel:        "info",
		DiscoverTimeout: 10 * time.Second,
	}
}

// Load builds the configuration from defaults, the given .env files and the
// process environment, in increasing order of precedence. Missing files are
// skipped. With no files given, DefaultEnvFile is tried.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{DefaultEnvFile}
	}

	fileVals := map[string]string{}
	for _, file := range files {
		vals, err := godotenv.Read(file)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Config{}, fmt.Errorf("failed to read %s: %w", file, err)
		}
		for k, v := range vals {
			fileVals[k] = v
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileVals[key]
		return v, ok
	}

	cfg := Default()
	var errs []error

	if v, ok := lookup(EnvServer); ok {
		cfg.Server = v
	}
	if v, ok := lookup(EnvPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil || !validPort(port) {
			errs = append(errs, fmt.Errorf("%s: invalid port %q", EnvPort, v))
		} else {
			cfg.Port = port
		}
	}
	if v, ok := lookup(EnvBackend); ok && v != "" {
		cfg.Backend = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookup(EnvLogFile); ok {
		cfg.LogFile = v
	}
	if v, ok := lookup(EnvDialTimeout); ok {
		d, err := time.ParseDuration(v)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", EnvDialTimeout, err))
		case d < 0:
			errs = append(errs, fmt.Errorf("%s: negative timeout %q", EnvDialTimeout, v))
		default:
			cfg.DialTimeout = d
		}
	}
	if v, ok := lookup(EnvDiscover); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvDiscover, err))
		} else {
			cfg.Discover = b
		}
	}
	if v, ok := lookup(EnvDiscoverTimeout); ok {
		d, err := time.ParseDuration(v)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", EnvDiscoverTimeout, err))
		case d <= 0:
			errs = append(errs, fmt.Errorf("%s: timeout must be positive, got %q", EnvDiscoverTimeout, v))
		default:
			cfg.DiscoverTimeout = d
		}
	}
	if v, ok := lookup(EnvTUI); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvTUI, err))
		} else {
			cfg.TUI = b
		}
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values that both flags and the environment can set
func (c Config) Validate() error {
	var errs []error
	if !validPort(c.Port) {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Port))
	}
	if c.DialTimeout < 0 {
		errs = append(errs, fmt.Errorf("negative dial timeout %s", c.DialTimeout))
	}
	if c.DiscoverTimeout <= 0 {
		errs = append(errs, fmt.Errorf("discover timeout must be positive, got %s", c.DiscoverTimeout))
	}
	return errors.Join(errs...)
}

func validPort(port int) bool {
	return port >= 1 && port <= 65535
}
