package logger

import (
	"io"
	"os"
	"runtime"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

var Log = Logger{zerolog.New(os.Stderr).With().Timestamp().Logger()}

// Logger wraps zerolog.Logger so that query scoped fields travel with the
// instance instead of being repeated at every call site.
type Logger struct {
	zerolog.Logger
}

// enable pretty printing for interactive terminals and json for production.
func init() {
	// for tty terminal enable pretty logs
	if isatty.IsTerminal(os.Stdout.Fd()) && runtime.GOOS != "windows" {
		Log = Logger{Log.Output(zerolog.ConsoleWriter{Out: os.Stderr})}
	} else {
		// UNIX Time is faster and smaller than most timestamps
		// If you set zerolog.TimeFieldFormat to an empty string,
		// logs will write with UNIX time.
		zerolog.TimeFieldFormat = ""
	}
	// by default only log error
	SetLogLevel(zerolog.WarnLevel)
}

// WithContext returns a logger carrying queryId and cursorId fields.
// Empty ids are omitted.
func WithContext(queryId string, cursorId string) *Logger {
	ctx := Log.With()
	if queryId != "" {
		ctx = ctx.Str("queryId", queryId)
	}
	if cursorId != "" {
		ctx = ctx.Str("cursorId", cursorId)
	}

	l := Logger{ctx.Logger()}
	return &l
}

func SetLogLevel(l zerolog.Level) {
	Log = Logger{Log.Level(l)}
}

func SetLogOutput(w io.Writer) {
	Log = Logger{Log.Output(w)}
}
