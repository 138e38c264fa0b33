package blog

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"log/syslog"
	"os"
)

// Config defines the config for logging to syslog and stdout. The level
// meanings follow syslog:
//
//	-1: suppress all output
//	0: default, which is 6
//	3: log errors
//	4: log warnings and above
//	6: log info and above
//	7: log debug and above
type Config struct {
	// When zero, the console receives info and above. Set to -1 to disable.
	StdoutLevel int `yaml:"stdoutLevel" validate:"min=-1,max=7"`
	// When zero, syslog receives info and above. Set to -1 to disable
	// syslog entirely, which is the right choice outside of production.
	SyslogLevel int `yaml:"syslogLevel" validate:"min=-1,max=7"`
	// TextFormat causes logs to be output via slog's TextHandler instead of
	// the default JSONHandler.
	TextFormat bool `yaml:"textFormat"`
}

// configToSlogLevel maps the integers used in our log config (which come
// from syslog levels) to the values used by slog.
func configToSlogLevel(l int) slog.Level {
	switch l {
	case 1, 2, 3:
		return slog.LevelError
	case 4, 5:
		return slog.LevelWarn
	case 7:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

func newHandler(w io.Writer, level int, text bool) slog.Handler {
	opts := &slog.HandlerOptions{Level: configToSlogLevel(level)}
	w = newChecksumWriter(w)
	if text {
		return newAuditHandler(slog.NewTextHandler, w, opts)
	}
	return newAuditHandler(slog.NewJSONHandler, w, opts)
}

// New returns a slog.Logger which writes log messages to the console and
// syslog as configured. Console output goes to stderr, because stdout
// carries findings.
func New(conf Config, tag string) (*slog.Logger, error) {
	var console, sys slog.Handler
	if conf.StdoutLevel >= 0 {
		console = newHandler(os.Stderr, conf.StdoutLevel, conf.TextFormat)
	}

	if conf.SyslogLevel >= 0 {
		syslogger, err := syslog.Dial("", "", syslog.LOG_INFO|syslog.LOG_LOCAL0, tag)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to syslog: %w", err)
		}
		sys = newHandler(syslogger, conf.SyslogLevel, conf.TextFormat)
	}

	switch {
	case console != nil && sys != nil:
		return slog.New(&teeHandler{console: console, syslog: sys}), nil
	case console != nil:
		return slog.New(console), nil
	case sys != nil:
		return slog.New(sys), nil
	}
	return nil, errors.New("either StdoutLevel or SyslogLevel must be non-negative")
}
