// Package config loads benchplot settings from defaults, an optional config
// file, BENCHPLOT_* environment variables and command line flags, in that
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/weiihann/benchplot/fonts"
	"github.com/weiihann/benchplot/harness"
)

const (
	// AppName names the config file and the config directory.
	AppName = "benchplot"
	// EnvPrefix prefixes environment overrides, e.g. BENCHPLOT_WIDTH.
	EnvPrefix = "BENCHPLOT"
	// DefaultOutput is the image path relative to the project root.
	DefaultOutput = "assets/benchmarks-plot.png"
	// MaxWidth bounds the rendered image width.
	MaxWidth = 16384
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Fonts configures font discovery and the family assigned to each generic
// class.
type Fonts struct {
	System    bool     `mapstructure:"system"`
	Dirs      []string `mapstructure:"dirs"`
	Serif     string   `mapstructure:"serif"`
	SansSerif string   `mapstructure:"sans_serif"`
	Cursive   string   `mapstructure:"cursive"`
	Fantasy   string   `mapstructure:"fantasy"`
	Monospace string   `mapstructure:"monospace"`
}

// Config holds every setting of a benchplot run.
type Config struct {
	// Output is the PNG path. Empty means DefaultOutput under the project
	// root.
	Output        string        `mapstructure:"output"`
	Width         int           `mapstructure:"width"`
	Title         string        `mapstructure:"title"`
	Warmup        uint          `mapstructure:"warmup"`
	Runs          int           `mapstructure:"runs"`
	MinRuns       int           `mapstructure:"min_runs"`
	MaxRuns       int           `mapstructure:"max_runs"`
	MinTime       time.Duration `mapstructure:"min_time"`
	IgnoreFailure bool          `mapstructure:"ignore_failure"`
	ShowOutput    bool          `mapstructure:"show_output"`
	Progress      bool          `mapstructure:"progress"`
	Fonts         Fonts         `mapstructure:"fonts"`
}

// Default returns the built-in configuration.
func Default() Config {
	preferred := fonts.DefaultPreferred()

	return Config{
		Width:    1600,
		Title:    "Program Run Comparison",
		MinRuns:  harness.DefaultMinRuns,
		MinTime:  harness.DefaultMinBenchmarkingTime,
		Progress: true,
		Fonts: Fonts{
			System:    true,
			Dirs:      []string{},
			Serif:     preferred[fonts.Serif],
			SansSerif: preferred[fonts.SansSerif],
			Cursive:   preferred[fonts.Cursive],
			Fantasy:   preferred[fonts.Fantasy],
			Monospace: preferred[fonts.Monospace],
		},
	}
}

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// ConfigFile, when set, is read exclusively and must exist.
	ConfigFile string
	// Dir is searched for benchplot.{yaml,toml,json}. Empty means the
	// working directory.
	Dir string
	// Flags are bound by key: Bindings maps a config key to a flag name.
	Flags    *pflag.FlagSet
	Bindings map[string]string
}

// Load resolves the configuration and returns it with the path of the
// config file that was read, if any.
func Load(opts LoadOptions) (*Config, string, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("output", def.Output)
	v.SetDefault("width", def.Width)
	v.SetDefault("title", def.Title)
	v.SetDefault("warmup", def.Warmup)
	v.SetDefault("runs", def.Runs)
	v.SetDefault("min_runs", def.MinRuns)
	v.SetDefault("max_runs", def.MaxRuns)
	v.SetDefault("min_time", def.MinTime)
	v.SetDefault("ignore_failure", def.IgnoreFailure)
	v.SetDefault("show_output", def.ShowOutput)
	v.SetDefault("progress", def.Progress)
	v.SetDefault("fonts.system", def.Fonts.System)
	v.SetDefault("fonts.dirs", def.Fonts.Dirs)
	v.SetDefault("fonts.serif", def.Fonts.Serif)
	v.SetDefault("fonts.sans_serif", def.Fonts.SansSerif)
	v.SetDefault("fonts.cursive", def.Fonts.Cursive)
	v.SetDefault("fonts.fantasy", def.Fonts.Fantasy)
	v.SetDefault("fonts.monospace", def.Fonts.Monospace)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		dir := opts.Dir
		if dir == "" {
			dir = "."
		}

		v.SetConfigName(AppName)
		v.AddConfigPath(dir)

		if cfgDir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(cfgDir, AppName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, "", fmt.Errorf("read config: %w", err)
		}
	}

	if opts.Flags != nil {
		for key, name := range opts.Bindings {
			flag := opts.Flags.Lookup(name)
			if flag == nil {
				continue
			}

			if err := v.BindPFlag(key, flag); err != nil {
				return nil, "", fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return &cfg, v.ConfigFileUsed(), nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Width > MaxWidth:
		return fmt.Errorf("%w: width must be in 1..%d, got %d", ErrInvalid, MaxWidth, c.Width)
	case c.Runs < 0:
		return fmt.Errorf("%w: runs must not be negative, got %d", ErrInvalid, c.Runs)
	case c.MinRuns < 0:
		return fmt.Errorf("%w: min_runs must not be negative, got %d", ErrInvalid, c.MinRuns)
	case c.MaxRuns < 0:
		return fmt.Errorf("%w: max_runs must not be negative, got %d", ErrInvalid, c.MaxRuns)
	case c.MaxRuns > 0 && c.MinRuns > c.MaxRuns:
		return fmt.Errorf("%w: min_runs %d exceeds max_runs %d", ErrInvalid, c.MinRuns, c.MaxRuns)
	case c.MinTime < 0:
		return fmt.Errorf("%w: min_time must not be negative, got %s", ErrInvalid, c.MinTime)
	}

	return nil
}

// HarnessOptions converts the run settings for the scheduler.
func (c *Config) HarnessOptions(prepare []string, cleanup string) harness.Options {
	return harness.Options{
		WarmupCount:         c.Warmup,
		PreparationCommand:  prepare,
		CleanupCommand:      cleanup,
		Runs:                c.Runs,
		MinRuns:             c.MinRuns,
		MaxRuns:             c.MaxRuns,
		MinBenchmarkingTime: c.MinTime,
		IgnoreFailure:       c.IgnoreFailure,
	}
}

// FontConfig converts the font settings for the resolver.
func (c *Config) FontConfig() fonts.Config {
	preferred := make(map[fonts.Class]string)

	for class, family := range map[fonts.Class]string{
		fonts.Serif:     c.Fonts.Serif,
		fonts.SansSerif: c.Fonts.SansSerif,
		fonts.Cursive:   c.Fonts.Cursive,
		fonts.Fantasy:   c.Fonts.Fantasy,
		fonts.Monospace: c.Fonts.Monospace,
	} {
		if family != "" {
			preferred[class] = family
		}
	}

	return fonts.Config{
		System:    c.Fonts.System,
		Dirs:      c.Fonts.Dirs,
		Preferred: preferred,
	}
}

// OutputPath returns the configured output, or DefaultOutput under the
// project root containing dir.
func (c *Config) OutputPath(dir string) string {
	if c.Output != "" {
		return c.Output
	}

	return filepath.Join(ProjectRoot(dir), filepath.FromSlash(DefaultOutput))
}

// ProjectRoot returns the nearest ancestor of dir, dir included, that
// contains go.mod or .git. It falls back to dir.
func ProjectRoot(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}

	for cur := abs; ; {
		for _, marker := range []string{"go.mod", ".git"} {
			if _, err := os.Stat(filepath.Join(cur, marker)); err == nil {
				return cur
			}
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return abs
		}

		cur = parent
	}
}
