package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Options control the global logger
type Options struct {
	Level  string // trace | debug | info | warn | error
	Format string // console | json
	File   string // optional rotated log file
	MaxAge int    // days to keep rotated files
}

// Setup configures the global zerolog logger. The returned closer flushes
// the log file, if any.
func Setup(opts Options) (io.Closer, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		return nil, fmt.Errorf("invalid log level '%s'", opts.Level)
	}

	var out io.Writer
	switch strings.ToLower(opts.Format) {
	case "console", "":
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	case "json":
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
		out = os.Stderr
	default:
		return nil, fmt.Errorf("invalid log format '%s'", opts.Format)
	}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		file := &lumberjack.Logger{
			Filename: opts.File,
			MaxAge:   opts.MaxAge,
			MaxSize:  100,
			Compress: true,
		}
		// the file always gets JSON
		out = zerolog.MultiLevelWriter(out, file)
		closer = file
	}

	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
