package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/danmuck/binstruct/internal/wire"
)

const DefaultCacheSize = 64

type EngineConfig struct {
	DefaultEndian string    `toml:"default_endian"`
	Trailing      string    `toml:"trailing"`
	CacheSize     int       `toml:"cache_size"`
	Schemas       []string  `toml:"schemas"`
	Log           LogConfig `toml:"log"`
}

type LogConfig struct {
	Level     string `toml:"level"`
	Timestamp bool   `toml:"timestamp"`
	NoColor   bool   `toml:"no_color"`
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		DefaultEndian: "little",
		Trailing:      "error",
		CacheSize:     DefaultCacheSize,
		Log:           LogConfig{Level: "info"},
	}
}

func LoadEngineConfig(path string) (EngineConfig, error) {
	cfg := DefaultEngineConfig()
	if err := loadToml(path, &cfg); err != nil {
		return EngineConfig{}, err
	}
	if strings.TrimSpace(cfg.DefaultEndian) == "" {
		cfg.DefaultEndian = "little"
	}
	if strings.TrimSpace(cfg.Trailing) == "" {
		cfg.Trailing = "error"
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
	if err := ValidateEngineConfig(cfg); err != nil {
		return EngineConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateEngineConfig(cfg EngineConfig) error {
	e, err := wire.ParseEndian(cfg.DefaultEndian)
	if err != nil {
		return fmt.Errorf("engine config default_endian invalid: %w", err)
	}
	if e == wire.EndianUnset {
		return fmt.Errorf("engine config missing default_endian")
	}
	if _, err := wire.ParseTrailingPolicy(cfg.Trailing); err != nil {
		return fmt.Errorf("engine config trailing invalid: %w", err)
	}
	if cfg.CacheSize < 0 {
		return fmt.Errorf("engine config cache_size must not be negative")
	}
	if _, err := cfg.Log.Settings(); err != nil {
		return fmt.Errorf("engine config log invalid: %w", err)
	}
	for i, path := range cfg.Schemas {
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("schemas[%d] is empty", i)
		}
	}
	return nil
}

// TrailingPolicy is the policy the CLI applies to schemas that do not set
// their own.
func (cfg EngineConfig) TrailingPolicy() wire.TrailingPolicy {
	p, _ := wire.ParseTrailingPolicy(cfg.Trailing)
	return p
}
