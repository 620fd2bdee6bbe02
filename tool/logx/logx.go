package logx

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

var (
	mu   sync.RWMutex
	root = newConsole(os.Stdout)
)

func newConsole(out io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = consoleTimeFormat
	zerolog.ErrorFieldName = "err"
	cw := zerolog.ConsoleWriter{Out: out, TimeFormat: consoleTimeFormat}
	return zerolog.New(cw).With().Timestamp().Logger()
}

// Init sets the output and the global level. Empty level keeps info.
func Init(level string, out io.Writer) {
	if out == nil {
		out = os.Stdout
	}
	mu.Lock()
	root = newConsole(out)
	mu.Unlock()
	SetLevel(level)
}

// SetLevel changes the level for every logger derived from this package,
// including ones created before the call.
func SetLevel(level string) {
	zerolog.SetGlobalLevel(ParseLevel(level, zerolog.InfoLevel))
}

func ParseLevel(level string, def zerolog.Level) zerolog.Level {
	s := strings.ToLower(strings.TrimSpace(level))
	if s == "" {
		return def
	}
	if s == "warning" {
		s = "warn"
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return def
	}
	return lvl
}

// With returns a component logger.
func With(comp string) zerolog.Logger {
	mu.RLock()
	l := root
	mu.RUnlock()
	return l.With().Str("comp", comp).Logger()
}

func Nop() zerolog.Logger { return zerolog.Nop() }
