package main

import (
	"github.com/spf13/cobra"

	"github.com/danmuck/binstruct/internal/config"
	logs "github.com/danmuck/binstruct/internal/logging"
	"github.com/danmuck/binstruct/internal/observability"
	"github.com/danmuck/binstruct/internal/schemafile"
)

// app is the state shared by every subcommand once the root has loaded
// configuration.
type app struct {
	configPath string
	logLevel   string

	cfg    config.EngineConfig
	loader *schemafile.Loader
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "binstruct",
		Short:         "Parse, check, and re-encode binary data with declarative schemas",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "engine config file (TOML)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newCheckCmd(a),
		newParseCmd(a),
		newRoundtripCmd(a),
		newMessageCmd(a),
		newInitConfigCmd(),
	)
	return root
}

func (a *app) setup() error {
	cfg := config.DefaultEngineConfig()
	if a.configPath != "" {
		loaded, err := config.LoadEngineConfig(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Apply(); err != nil {
		return err
	}
	observability.RegisterMetrics()

	loader, err := schemafile.NewLoader(cfg.CacheSize)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.loader = loader
	logs.Debugf("binstruct config=%q endian=%s trailing=%s cache=%d", a.configPath, cfg.DefaultEndian, cfg.Trailing, cfg.CacheSize)
	return nil
}
