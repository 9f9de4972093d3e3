// Package log configures the global zerolog logger and provides terminal
// progress feedback for the CLI.
package log

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/secrets"
)

// Options configures Setup
type Options struct {
	Level   string
	Out     io.Writer
	JSON    bool // structured output instead of the console writer
	Secrets []string
}

// Setup installs the global logger. Every line passes through a redactor
// so API keys and DSNs never reach the output.
func Setup(opts Options) error {
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	redactor := secrets.NewRedactor()
	for _, s := range opts.Secrets {
		redactor.AddSecret(s)
	}
	out := &redactWriter{w: opts.Out, redactor: redactor}

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(level)
	if opts.JSON {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen})
	}
	return nil
}

type redactWriter struct {
	w        io.Writer
	redactor *secrets.Redactor
}

// Write reports the input length so callers never see a short write
func (r *redactWriter) Write(p []byte) (int, error) {
	if _, err := io.WriteString(r.w, r.redactor.RedactString(string(p))); err != nil {
		return 0, err
	}
	return len(p), nil
}
