package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is a small value wrapper around slog that carries the package, file
// and function it was created for. Copies are cheap, so derive a new one per
// call site with Function.
type Logger struct {
	base     *slog.Logger
	pkg      string
	file     string
	function string
}

// Setup replaces the default slog handler. Format is "json" or "text".
func Setup(level, format string, w io.Writer) {
	if w == nil {
		w = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func New(pkg string) Logger {
	return Logger{pkg: pkg}
}

func (l Logger) File(file string) Logger {
	l.file = file
	return l
}

func (l Logger) Function(function string) Logger {
	l.function = function
	return l
}

func (l Logger) logger() *slog.Logger {
	base := l.base
	if base == nil {
		base = slog.Default()
	}

	attrs := make([]any, 0, 6)
	if l.pkg != "" {
		attrs = append(attrs, "package", l.pkg)
	}
	if l.file != "" {
		attrs = append(attrs, "file", l.file)
	}
	if l.function != "" {
		attrs = append(attrs, "function", l.function)
	}

	return base.With(attrs...)
}

func (l Logger) Debug(msg string, args ...any) {
	l.logger().Debug(msg, args...)
}

func (l Logger) Info(msg string, args ...any) {
	l.logger().Info(msg, args...)
}

func (l Logger) Warn(msg string, args ...any) {
	l.logger().Warn(msg, args...)
}

// Er logs err without returning it.
func (l Logger) Er(msg string, err error, args ...any) {
	l.logger().Error(msg, append([]any{"error", err}, args...)...)
}

// ErMsg logs msg at error level without returning anything.
func (l Logger) ErMsg(msg string, args ...any) {
	l.logger().Error(msg, args...)
}

// Err logs err and returns it wrapped with msg.
func (l Logger) Err(msg string, err error, args ...any) error {
	l.Er(msg, err, args...)
	return fmt.Errorf("%s: %w", msg, err)
}

// Error logs msg with args and returns it as a new error.
func (l Logger) Error(msg string, args ...any) error {
	l.logger().Error(msg, args...)
	return errors.New(msg)
}

func (l Logger) ErrMsg(msg string) error {
	l.logger().Error(msg)
	return errors.New(msg)
}

// Slog exposes the underlying logger for libraries that accept *slog.Logger.
func (l Logger) Slog() *slog.Logger {
	return l.logger()
}
