package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/weiihann/benchplot/fonts"
)

func isolate(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("HOME", filepath.Join(dir, "home"))

	return dir
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, used, err := Load(LoadOptions{Dir: dir})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if used != "" {
		t.Errorf("config file used = %q, want none", used)
	}

	want := Default()

	if cfg.Width != want.Width {
		t.Errorf("width = %d, want %d", cfg.Width, want.Width)
	}
	if cfg.Title != "Program Run Comparison" {
		t.Errorf("title = %q, want Program Run Comparison", cfg.Title)
	}
	if cfg.MinRuns != 10 {
		t.Errorf("min_runs = %d, want 10", cfg.MinRuns)
	}
	if cfg.MinTime != 3*time.Second {
		t.Errorf("min_time = %s, want 3s", cfg.MinTime)
	}
	if cfg.Fonts.Fantasy != "Impact" {
		t.Errorf("fonts.fantasy = %q, want Impact", cfg.Fonts.Fantasy)
	}
	if !cfg.Progress {
		t.Error("expected progress to be enabled by default")
	}
}

func TestLoadFile(t *testing.T) {
	dir := isolate(t)

	content := "width: 800\ntitle: Nightly\nmin_time: 500ms\nfonts:\n  system: false\n  monospace: Fira Code\n"
	if err := os.WriteFile(filepath.Join(dir, "benchplot.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, used, err := Load(LoadOptions{Dir: dir})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if filepath.Base(used) != "benchplot.yaml" {
		t.Errorf("config file used = %q, want benchplot.yaml", used)
	}
	if cfg.Width != 800 {
		t.Errorf("width = %d, want 800", cfg.Width)
	}
	if cfg.Title != "Nightly" {
		t.Errorf("title = %q, want Nightly", cfg.Title)
	}
	if cfg.MinTime != 500*time.Millisecond {
		t.Errorf("min_time = %s, want 500ms", cfg.MinTime)
	}
	if cfg.Fonts.System {
		t.Error("expected fonts.system false from file")
	}
	if cfg.Fonts.Monospace != "Fira Code" {
		t.Errorf("fonts.monospace = %q, want Fira Code", cfg.Fonts.Monospace)
	}
	if cfg.Fonts.Serif != "Times New Roman" {
		t.Errorf("fonts.serif = %q, want default", cfg.Fonts.Serif)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := isolate(t)

	if err := os.WriteFile(filepath.Join(dir, "benchplot.yaml"), []byte("width: 800\nruns: 4\nwarmup: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("BENCHPLOT_WIDTH", "1024")
	t.Setenv("BENCHPLOT_RUNS", "6")
	t.Setenv("BENCHPLOT_FONTS_SYSTEM", "false")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("width", 1600, "")
	flags.Int("runs", 0, "")
	flags.Uint("warmup", 0, "")

	if err := flags.Parse([]string{"--runs", "9"}); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := Load(LoadOptions{
		Dir:      dir,
		Flags:    flags,
		Bindings: map[string]string{"width": "width", "runs": "runs", "warmup": "warmup", "title": "missing"},
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Width != 1024 {
		t.Errorf("width = %d, want 1024 from environment", cfg.Width)
	}
	if cfg.Runs != 9 {
		t.Errorf("runs = %d, want 9 from flag", cfg.Runs)
	}
	if cfg.Warmup != 1 {
		t.Errorf("warmup = %d, want 1 from file", cfg.Warmup)
	}
	if cfg.Fonts.System {
		t.Error("expected fonts.system false from environment")
	}
}

func TestLoadExplicitFile(t *testing.T) {
	dir := isolate(t)

	path := filepath.Join(dir, "custom.json")
	if err := os.WriteFile(path, []byte(`{"output": "out/plot.png", "ignore_failure": true}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, used, err := Load(LoadOptions{ConfigFile: path})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if used != path {
		t.Errorf("config file used = %q, want %q", used, path)
	}
	if cfg.Output != "out/plot.png" {
		t.Errorf("output = %q, want out/plot.png", cfg.Output)
	}
	if !cfg.IgnoreFailure {
		t.Error("expected ignore_failure true")
	}

	if _, _, err := Load(LoadOptions{ConfigFile: filepath.Join(dir, "missing.yaml")}); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestLoadInvalid(t *testing.T) {
	dir := isolate(t)

	t.Setenv("BENCHPLOT_WIDTH", "0")

	if _, _, err := Load(LoadOptions{Dir: dir}); !errors.Is(err, ErrInvalid) {
		t.Errorf("error = %v, want ErrInvalid", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{name: "defaults", mutate: func(*Config) {}, valid: true},
		{name: "zero width", mutate: func(c *Config) { c.Width = 0 }},
		{name: "huge width", mutate: func(c *Config) { c.Width = MaxWidth + 1 }},
		{name: "negative runs", mutate: func(c *Config) { c.Runs = -1 }},
		{name: "min over max", mutate: func(c *Config) { c.MinRuns, c.MaxRuns = 5, 3 }},
		{name: "max unset", mutate: func(c *Config) { c.MinRuns, c.MaxRuns = 50, 0 }, valid: true},
		{name: "negative min time", mutate: func(c *Config) { c.MinTime = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.valid && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestHarnessOptions(t *testing.T) {
	cfg := Default()
	cfg.Warmup = 2
	cfg.MaxRuns = 20
	cfg.IgnoreFailure = true

	opts := cfg.HarnessOptions([]string{"make clean"}, "rm -rf build")

	if opts.WarmupCount != 2 || opts.MaxRuns != 20 || !opts.IgnoreFailure {
		t.Errorf("options = %+v", opts)
	}
	if opts.MinBenchmarkingTime != 3*time.Second {
		t.Errorf("min benchmarking time = %s, want 3s", opts.MinBenchmarkingTime)
	}
	if len(opts.PreparationCommand) != 1 || opts.CleanupCommand != "rm -rf build" {
		t.Errorf("hooks = %v, %q", opts.PreparationCommand, opts.CleanupCommand)
	}
}

func TestFontConfig(t *testing.T) {
	cfg := Default()
	cfg.Fonts.Cursive = ""
	cfg.Fonts.Dirs = []string{"/opt/fonts"}

	fc := cfg.FontConfig()

	if fc.Preferred[fonts.Serif] != "Times New Roman" {
		t.Errorf("serif = %q, want Times New Roman", fc.Preferred[fonts.Serif])
	}
	if _, ok := fc.Preferred[fonts.Cursive]; ok {
		t.Error("empty family should not be assigned")
	}
	if len(fc.Dirs) != 1 || fc.Dirs[0] != "/opt/fonts" {
		t.Errorf("dirs = %v", fc.Dirs)
	}
}

func TestProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")

	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(root, "go.mod"), []byte("module x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := ProjectRoot(nested); got != root {
		t.Errorf("ProjectRoot = %q, want %q", got, root)
	}

	cfg := Default()
	want := filepath.Join(root, "assets", "benchmarks-plot.png")

	if got := cfg.OutputPath(nested); got != want {
		t.Errorf("OutputPath = %q, want %q", got, want)
	}

	cfg.Output = "custom.png"
	if got := cfg.OutputPath(nested); got != "custom.png" {
		t.Errorf("OutputPath = %q, want custom.png", got)
	}
}
