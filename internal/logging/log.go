package logging

import (
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var current atomic.Pointer[zerolog.Logger]

func init() {
	l := zerolog.New(os.Stderr).Level(zerolog.InfoLevel)
	current.Store(&l)
}

func install(cfg Config) {
	var out io.Writer = os.Stderr
	if !cfg.Bypass {
		cw := zerolog.ConsoleWriter{Out: os.Stderr, NoColor: cfg.NoColor, TimeFormat: time.RFC3339}
		if !cfg.Timestamp {
			cw.PartsExclude = []string{zerolog.TimestampFieldName}
		}
		out = cw
	}
	ctx := zerolog.New(out).With().Str("app", "binstruct")
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	l := ctx.Logger().Level(cfg.Level)
	current.Store(&l)
}

// Logger returns the installed logger for callers that want structured fields.
func Logger() *zerolog.Logger {
	return current.Load()
}

func Tracef(format string, args ...any) { current.Load().Trace().Msgf(format, args...) }
func Debugf(format string, args ...any) { current.Load().Debug().Msgf(format, args...) }
func Infof(format string, args ...any)  { current.Load().Info().Msgf(format, args...) }
func Warnf(format string, args ...any)  { current.Load().Warn().Msgf(format, args...) }
func Errf(format string, args ...any)   { current.Load().Error().Msgf(format, args...) }
