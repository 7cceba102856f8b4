// Package config loads deskpilot's runtime configuration: defaults, then an
// optional config.toml, then DESKPILOT_* environment overrides. Tunable
// policy (poll intervals, TTLs, breaker calibration, the diff epsilon) all
// lives here so tests and deployments can adjust it without touching the
// stores.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const configFileName = "config.toml"

// Config is the full runtime configuration. Durations are stored as
// millisecond integers so the TOML form stays plain; use the accessor
// methods for time.Duration values.
type Config struct {
	LogLevel string `toml:"log_level" json:"log_level"`

	PollIntervalMs int `toml:"poll_interval_ms" json:"poll_interval_ms"`
	PollFloorMs    int `toml:"poll_floor_ms" json:"poll_floor_ms"`

	ElementTTLMs    int `toml:"element_ttl_ms" json:"element_ttl_ms"`
	SweepIntervalMs int `toml:"sweep_interval_ms" json:"sweep_interval_ms"`

	BreakerThreshold    int `toml:"breaker_threshold" json:"breaker_threshold"`
	BreakerWindowMs     int `toml:"breaker_window_ms" json:"breaker_window_ms"`
	SuppressionWindowMs int `toml:"suppression_window_ms" json:"suppression_window_ms"`

	DiffEpsilon float64 `toml:"diff_epsilon" json:"diff_epsilon"`

	MacroStorePath string `toml:"macro_store_path" json:"macro_store_path"`
}

// Default returns the built-in configuration with an empty macro store path;
// Store.LoadOrInit fills that in relative to its directory.
func Default() Config {
	return Config{
		LogLevel:            "info",
		PollIntervalMs:      1000,
		PollFloorMs:         100,
		ElementTTLMs:        30_000,
		SweepIntervalMs:     30_000,
		BreakerThreshold:    10,
		BreakerWindowMs:     1000,
		SuppressionWindowMs: 500,
		DiffEpsilon:         1.0,
	}
}

// PollInterval is the default observation poll interval.
func (c Config) PollInterval() time.Duration { return time.Duration(c.PollIntervalMs) * time.Millisecond }

// PollFloor is the minimum poll interval any observation may request.
func (c Config) PollFloor() time.Duration { return time.Duration(c.PollFloorMs) * time.Millisecond }

// ElementTTL is the element handle lifetime.
func (c Config) ElementTTL() time.Duration { return time.Duration(c.ElementTTLMs) * time.Millisecond }

// SweepInterval is how often the serve loop sweeps expired element handles.
func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMs) * time.Millisecond
}

// BreakerWindow is the circuit-breaker counting window.
func (c Config) BreakerWindow() time.Duration {
	return time.Duration(c.BreakerWindowMs) * time.Millisecond
}

// SuppressionWindow is the self-activation suppression window.
func (c Config) SuppressionWindow() time.Duration {
	return time.Duration(c.SuppressionWindowMs) * time.Millisecond
}

// DefaultDir returns ~/.config/deskpilot, or the DESKPILOT_CONFIG_DIR
// override.
func DefaultDir() (string, error) {
	if override := strings.TrimSpace(os.Getenv("DESKPILOT_CONFIG_DIR")); override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "deskpilot"), nil
}

// Store reads and writes the config file in one directory.
type Store struct {
	dir string
}

// NewStore builds a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// LoadOrInit reads config.toml from the store directory, writing a default
// one first if none exists. Environment overrides are applied after the
// file, so DESKPILOT_* variables always win.
func (s *Store) LoadOrInit() (Config, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Config{}, fmt.Errorf("create config dir: %w", err)
	}

	path := filepath.Join(s.dir, configFileName)
	cfg := Default()
	if b, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, err
	} else {
		if err := writeTOMLAtomically(path, s.normalize(Default())); err != nil {
			return Config{}, err
		}
	}

	cfg = applyEnv(cfg)
	return s.normalize(cfg), nil
}

// Save writes cfg to the store directory atomically.
func (s *Store) Save(cfg Config) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return writeTOMLAtomically(filepath.Join(s.dir, configFileName), s.normalize(cfg))
}

// Load returns the effective configuration without touching disk: defaults
// plus environment overrides. Callers with no config directory (tests, the
// observe CLI command) use this.
func Load() Config {
	cfg := applyEnv(Default())
	return (&Store{}).normalize(cfg)
}

func (s *Store) normalize(cfg Config) Config {
	def := Default()
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = def.LogLevel
	}
	if cfg.PollIntervalMs <= 0 {
		cfg.PollIntervalMs = def.PollIntervalMs
	}
	if cfg.PollFloorMs <= 0 {
		cfg.PollFloorMs = def.PollFloorMs
	}
	if cfg.PollIntervalMs < cfg.PollFloorMs {
		cfg.PollIntervalMs = cfg.PollFloorMs
	}
	if cfg.ElementTTLMs <= 0 {
		cfg.ElementTTLMs = def.ElementTTLMs
	}
	if cfg.SweepIntervalMs <= 0 {
		cfg.SweepIntervalMs = def.SweepIntervalMs
	}
	if cfg.BreakerThreshold <= 0 {
		cfg.BreakerThreshold = def.BreakerThreshold
	}
	if cfg.BreakerWindowMs <= 0 {
		cfg.BreakerWindowMs = def.BreakerWindowMs
	}
	if cfg.SuppressionWindowMs <= 0 {
		cfg.SuppressionWindowMs = def.SuppressionWindowMs
	}
	if cfg.DiffEpsilon <= 0 {
		cfg.DiffEpsilon = def.DiffEpsilon
	}
	if strings.TrimSpace(cfg.MacroStorePath) == "" && s.dir != "" {
		cfg.MacroStorePath = filepath.Join(s.dir, "macros.json")
	}
	return cfg
}

func applyEnv(cfg Config) Config {
	if v := os.Getenv("DESKPILOT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	cfg.PollIntervalMs = envInt("DESKPILOT_POLL_INTERVAL_MS", cfg.PollIntervalMs)
	cfg.PollFloorMs = envInt("DESKPILOT_POLL_FLOOR_MS", cfg.PollFloorMs)
	cfg.ElementTTLMs = envInt("DESKPILOT_ELEMENT_TTL_MS", cfg.ElementTTLMs)
	cfg.SweepIntervalMs = envInt("DESKPILOT_SWEEP_INTERVAL_MS", cfg.SweepIntervalMs)
	cfg.BreakerThreshold = envInt("DESKPILOT_BREAKER_THRESHOLD", cfg.BreakerThreshold)
	cfg.BreakerWindowMs = envInt("DESKPILOT_BREAKER_WINDOW_MS", cfg.BreakerWindowMs)
	cfg.SuppressionWindowMs = envInt("DESKPILOT_SUPPRESSION_WINDOW_MS", cfg.SuppressionWindowMs)
	if v := os.Getenv("DESKPILOT_DIFF_EPSILON"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.DiffEpsilon = f
		}
	}
	if v := os.Getenv("DESKPILOT_MACRO_STORE"); v != "" {
		cfg.MacroStorePath = v
	}
	return cfg
}

func envInt(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func writeTOMLAtomically(path string, v any) error {
	b, err := toml.Marshal(v)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
