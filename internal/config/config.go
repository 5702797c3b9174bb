// Package config resolves process settings from the environment, optionally
// seeded from a .env file. Command-line flags take their defaults from here.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read by FromEnv.
const (
	EnvEngine    = "UIVERIFY_ENGINE"
	EnvAppDir    = "UIVERIFY_APP_DIR"
	EnvOut       = "UIVERIFY_OUT"
	EnvBaseURL   = "UIVERIFY_BASE_URL"
	EnvHeadless  = "UIVERIFY_HEADLESS"
	EnvParallel  = "UIVERIFY_PARALLEL"
	EnvTimeout   = "UIVERIFY_TIMEOUT"
	EnvLogLevel  = "UIVERIFY_LOG_LEVEL"
	EnvLogFormat = "UIVERIFY_LOG_FORMAT"
)

// DefaultEnvFile is loaded when no --env-file is given. Its absence is not
// an error.
const DefaultEnvFile = ".env"

// Config holds process-wide settings.
type Config struct {
	Engine    string        // chromedp, playwright or static
	AppDir    string        // directory holding the app's index.html
	OutDir    string        // where artifacts and report.json go
	BaseURL   string        // overrides the base_url scenario variable when set
	Headless  bool
	Parallel  int
	Timeout   time.Duration // per browser operation
	LogLevel  string
	LogFormat string
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Engine:    "chromedp",
		AppDir:    ".",
		OutDir:    "verification",
		Headless:  true,
		Parallel:  1,
		Timeout:   30 * time.Second,
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// LoadEnvFile adds the variables in path to the environment without
// overriding ones already set. An empty path means DefaultEnvFile, which
// may be missing; an explicit path must exist.
func LoadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}
	err := godotenv.Load(path)
	if err != nil && !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// FromEnv overlays the variables visible through lookup onto Default.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	c := Default()
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str(EnvEngine, &c.Engine)
	str(EnvAppDir, &c.AppDir)
	str(EnvOut, &c.OutDir)
	str(EnvBaseURL, &c.BaseURL)
	str(EnvLogLevel, &c.LogLevel)
	str(EnvLogFormat, &c.LogFormat)

	var errs []error
	if v, ok := lookup(EnvHeadless); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s=%q: want true or false", EnvHeadless, v))
		} else {
			c.Headless = b
		}
	}
	if v, ok := lookup(EnvParallel); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs = append(errs, fmt.Errorf("%s=%q: want a positive integer", EnvParallel, v))
		} else {
			c.Parallel = n
		}
	}
	if v, ok := lookup(EnvTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("%s=%q: want a positive duration", EnvTimeout, v))
		} else {
			c.Timeout = d
		}
	}
	return c, errors.Join(errs...)
}

// Load reads envFile (see LoadEnvFile) and then the process environment.
func Load(envFile string) (Config, error) {
	if err := LoadEnvFile(envFile); err != nil {
		return Default(), err
	}
	return FromEnv(os.LookupEnv)
}
