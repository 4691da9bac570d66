package config

import (
	"fmt"

	logs "github.com/danmuck/binstruct/internal/logging"
	"github.com/danmuck/binstruct/internal/wire"
)

// Settings converts the [log] table into a logging configuration.
func (l LogConfig) Settings() (logs.Config, error) {
	level, ok := logs.ParseLevel(l.Level)
	if !ok {
		return logs.Config{}, fmt.Errorf("unknown log level %q", l.Level)
	}
	return logs.Config{Level: level, Timestamp: l.Timestamp, NoColor: l.NoColor}, nil
}

// Apply installs the process-wide defaults for byte order, trailing data,
// and logging.
func (cfg EngineConfig) Apply() error {
	e, err := wire.ParseEndian(cfg.DefaultEndian)
	if err != nil {
		return err
	}
	settings, err := cfg.Log.Settings()
	if err != nil {
		return err
	}
	wire.SetDefaultEndian(e)
	wire.SetDefaultTrailingPolicy(cfg.TrailingPolicy())
	logs.Apply(settings)
	return nil
}
