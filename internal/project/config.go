// Package project loads arm64gen.toml, the per-directory configuration of
// the tool.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"arm64gen/internal/backend/arm64"
)

// FileName is the configuration file looked up from the working directory
// upwards.
const FileName = "arm64gen.toml"

// Config mirrors arm64gen.toml.
type Config struct {
	Target TargetConfig `toml:"target"`
	Output OutputConfig `toml:"output"`
	Build  BuildConfig  `toml:"build"`
}

type TargetConfig struct {
	System string `toml:"system"`
	Debug  bool   `toml:"debug"`
	DLCode bool   `toml:"dlcode"`
	CFI    bool   `toml:"cfi"`
}

type OutputConfig struct {
	Dir   string `toml:"dir"`
	Cache bool   `toml:"cache"`
}

type BuildConfig struct {
	Jobs int `toml:"jobs"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Target: TargetConfig{System: "linux", CFI: true},
		Output: OutputConfig{Dir: "build", Cache: true},
	}
}

// Manifest is a loaded configuration file.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Find walks up from startDir looking for arm64gen.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// Load finds and parses the configuration for startDir. Without a file it
// returns the defaults and ok=false.
func Load(startDir string) (m *Manifest, ok bool, err error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return &Manifest{Config: Default()}, false, nil
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, true, err
	}
	return &Manifest{Path: path, Root: filepath.Dir(path), Config: cfg}, true, nil
}

// UnknownKeysError lists keys of the file that no setting reads.
type UnknownKeysError struct {
	Path string
	Keys []string
}

func (e *UnknownKeysError) Error() string {
	return fmt.Sprintf("%s: unknown keys: %s", e.Path, strings.Join(e.Keys, ", "))
}

// LoadFile parses one configuration file on top of the defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		slices.Sort(keys)
		return Config{}, &UnknownKeysError{Path: path, Keys: keys}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values the TOML decoder cannot.
func (c Config) Validate() error {
	if _, err := arm64.ParseSystem(c.Target.System); err != nil {
		return fmt.Errorf("[target].system: %w", err)
	}
	if c.Build.Jobs < 0 {
		return fmt.Errorf("[build].jobs must not be negative, got %d", c.Build.Jobs)
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		return fmt.Errorf("[output].dir must not be empty")
	}
	return nil
}

// EmitOptions converts the target section to emitter options.
func (c Config) EmitOptions() (arm64.Options, error) {
	sys, err := arm64.ParseSystem(c.Target.System)
	if err != nil {
		return arm64.Options{}, err
	}
	return arm64.Options{
		System: sys,
		Debug:  c.Target.Debug,
		DLCode: c.Target.DLCode,
		CFI:    c.Target.CFI,
	}, nil
}

// Jobs returns the worker count, GOMAXPROCS when unset.
func (c Config) Jobs() int {
	if c.Build.Jobs > 0 {
		return c.Build.Jobs
	}
	return runtime.GOMAXPROCS(0)
}

// OutputDir resolves the output directory against the manifest root, or the
// working directory when there is no manifest.
func (m *Manifest) OutputDir() string {
	dir := filepath.FromSlash(m.Config.Output.Dir)
	if filepath.IsAbs(dir) || m.Root == "" {
		return dir
	}
	return filepath.Join(m.Root, dir)
}
