package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the slog handler.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat accepts "text" or "json" in any case. ok is false for anything else.
func ParseFormat(s string) (f Format, ok bool) {
	switch f = Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON:
		return f, true
	}
	return "", false
}

// ParseLevel converts debug, info, warn or error to a slog.Level.
// Unknown values mean info.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

type settings struct {
	level      slog.Level
	format     Format
	out        io.Writer
	attrs      []slog.Attr
	extractors []ContextExtractor
}

// Option adjusts the logger built by New.
type Option func(*settings)

func WithLevel(l slog.Level) Option {
	return func(s *settings) { s.level = l }
}

// WithFormat picks the output format. It panics on an unknown format, which is
// a start-up misconfiguration.
func WithFormat(f Format) Option {
	parsed, ok := ParseFormat(string(f))
	if !ok {
		panic("logger: unknown format " + string(f))
	}
	return func(s *settings) { s.format = parsed }
}

// WithOutput redirects records to w. A nil w keeps stderr.
func WithOutput(w io.Writer) Option {
	return func(s *settings) {
		if w != nil {
			s.out = w
		}
	}
}

// WithAttr attaches attrs to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(s *settings) { s.attrs = append(s.attrs, attrs...) }
}

// WithContextExtractors adds attributes read from the context of each record.
// Nil extractors are ignored.
func WithContextExtractors(extractors ...ContextExtractor) Option {
	return func(s *settings) {
		for _, ex := range extractors {
			if ex != nil {
				s.extractors = append(s.extractors, ex)
			}
		}
	}
}

// WithEnvironment applies per-environment presets. Production and staging log
// JSON at info; anything else is development, which logs text at debug.
// env and the service name, when given, are attached to every record.
func WithEnvironment(env, service string) Option {
	return func(s *settings) {
		switch strings.ToLower(env) {
		case "production", "prod", "staging", "stage":
			s.level, s.format = slog.LevelInfo, FormatJSON
		default:
			env = "development"
			s.level, s.format = slog.LevelDebug, FormatText
		}
		if service != "" {
			s.attrs = append(s.attrs, slog.String("service", service))
		}
		s.attrs = append(s.attrs, slog.String("env", env))
	}
}

// New builds a logger writing text at info level to stderr unless options say otherwise.
func New(opts ...Option) *slog.Logger {
	s := &settings{level: slog.LevelInfo, format: FormatText, out: os.Stderr}
	for _, opt := range opts {
		opt(s)
	}

	hopts := &slog.HandlerOptions{Level: s.level}
	var h slog.Handler = slog.NewTextHandler(s.out, hopts)
	if s.format == FormatJSON {
		h = slog.NewJSONHandler(s.out, hopts)
	}
	if len(s.attrs) > 0 {
		h = h.WithAttrs(s.attrs)
	}
	return slog.New(withContext(h, s.extractors))
}

// Discard returns a logger that drops every record. Library packages use it
// until a logger is supplied.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
