// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init sets the global log level and output format.
// Format is "json" or "console"; anything else picks console on a terminal and json otherwise.
func Init(level, format string) {
	log.Logger = zerolog.New(writer(format, os.Stderr)).With().Timestamp().Logger()

	if l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level))); err == nil && level != "" {
		zerolog.SetGlobalLevel(l)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		if level != "" {
			log.Warn().Msgf("logger: unknown log level %q; using info", level)
		}
	}

	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)
}

// writer returns the output writer for the given format.
func writer(format string, out *os.File) io.Writer {
	switch format {
	case "json":
		return out
	case "console":
		return consoleWriter(out)
	}
	if isTerminal(out) {
		return consoleWriter(out)
	}
	return out
}

func consoleWriter(out *os.File) io.Writer {
	console := isTerminal(out)

	// full timestamps when not on a terminal
	tformat := time.RFC3339
	if console {
		tformat = time.TimeOnly
	}

	return zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    !console,
		TimeFormat: tformat,
	}
}

func isTerminal(f *os.File) bool {
	info, _ := f.Stat()
	return info != nil && (info.Mode()&os.ModeCharDevice) != 0
}
