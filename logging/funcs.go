package logging

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Funcs bundles the four logging capabilities a caller may plug in instead of
// the default zerolog logger. Every capability is required.
type Funcs struct {
	Info  func(args ...any)
	Error func(args ...any)
	Debug func(args ...any)
	Warn  func(args ...any)
}

// MissingLoggerMethodError reports every capability absent from a Funcs
// value handed to NewFuncsWriter.
type MissingLoggerMethodError struct {
	Missing []string
}

func (e *MissingLoggerMethodError) Error() string {
	return fmt.Sprintf("logging: custom logger is missing required methods: %s", strings.Join(e.Missing, ", "))
}

// Validate returns a MissingLoggerMethodError naming every nil capability,
// or nil when the set is complete.
func (f Funcs) Validate() error {
	var missing []string
	if f.Info == nil {
		missing = append(missing, "info")
	}
	if f.Error == nil {
		missing = append(missing, "error")
	}
	if f.Debug == nil {
		missing = append(missing, "debug")
	}
	if f.Warn == nil {
		missing = append(missing, "warn")
	}
	if len(missing) > 0 {
		return &MissingLoggerMethodError{Missing: missing}
	}
	return nil
}

// NewFuncsLogger validates the capability set and wraps it into a zerolog
// logger whose output is dispatched level by level onto the supplied
// functions. The resulting logger replaces the default for every component
// it is handed to; it never touches process-global state.
func NewFuncsLogger(f Funcs) (zerolog.Logger, error) {
	if err := f.Validate(); err != nil {
		return zerolog.Logger{}, err
	}
	logger := zerolog.New(funcsWriter{funcs: f})
	return logger, nil
}

type funcsWriter struct {
	funcs Funcs
}

func (w funcsWriter) Write(p []byte) (int, error) {
	w.funcs.Info(strings.TrimSpace(string(p)))
	return len(p), nil
}

// WriteLevel routes each entry to the matching capability.
func (w funcsWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	entry := strings.TrimSpace(string(p))
	switch level {
	case zerolog.DebugLevel, zerolog.TraceLevel:
		w.funcs.Debug(entry)
	case zerolog.WarnLevel:
		w.funcs.Warn(entry)
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		w.funcs.Error(entry)
	default:
		w.funcs.Info(entry)
	}
	return len(p), nil
}
