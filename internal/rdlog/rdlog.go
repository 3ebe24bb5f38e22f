// Package rdlog is the structured logging backbone shared by every other
// package. It wraps stdlib log/slog with a small extra set of levels
// (NOTICE, CRITICAL, ALERT, EMERGENCY) and an object-tagged Debugf/Logf/
// Errorf family, matching the convention used throughout the teacher
// codebase of passing the emitting component as the first argument.
package rdlog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Extra levels layered around the stdlib Debug/Info/Warn/Error levels.
const (
	LevelNotice    = slog.Level(2)
	LevelCritical  = slog.Level(9)
	LevelAlert     = slog.Level(10)
	LevelEmergency = slog.Level(11)
)

var levelNames = map[slog.Level]string{
	slog.LevelDebug: "DEBUG",
	slog.LevelInfo:  "INFO",
	LevelNotice:     "NOTICE",
	slog.LevelWarn:  "WARNING",
	slog.LevelError: "ERROR",
	LevelCritical:   "CRITICAL",
	LevelAlert:      "ALERT",
	LevelEmergency:  "EMERGENCY",
}

func levelName(l slog.Level) string {
	return LevelName(l)
}

// LevelName renders l using the same names logf/replaceLevelAttr use,
// exported so logpipe can label a captured record the same way this
// package would have logged it itself.
func LevelName(l slog.Level) string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return l.String()
}

// replaceLevelAttr renders our extra levels with their own names instead
// of falling back to slog's "INFO+9" style formatting.
func replaceLevelAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if lv, ok := a.Value.Any().(slog.Level); ok {
			a.Value = slog.StringValue(levelName(lv))
		}
	}
	return a
}

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
	Level:       slog.LevelDebug,
	ReplaceAttr: replaceLevelAttr,
}))

// SetHandler replaces the package-level handler, e.g. to redirect output
// during tests or to install logpipe's internal-mode capture handler.
func SetHandler(h slog.Handler) {
	logger = slog.New(h)
}

// Handler returns the currently installed handler so callers (logpipe) can
// wrap it instead of replacing it outright.
func Handler() slog.Handler {
	return logger.Handler()
}

func tag(object any) string {
	if object == nil {
		return ""
	}
	if s, ok := object.(string); ok {
		return s
	}
	if s, ok := object.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", object)
}

func logf(level slog.Level, object any, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l := logger
	if t := tag(object); t != "" {
		msg = t + ": " + msg
		l = l.With(slog.String("logger", t))
	}
	l.Log(context.Background(), level, msg)
}

// Debugf logs at DEBUG level, prefixed with a string form of object.
func Debugf(object any, format string, args ...any) { logf(slog.LevelDebug, object, format, args...) }

// Logf logs at INFO level. Matches the teacher's fs.Logf naming.
func Logf(object any, format string, args ...any) { logf(slog.LevelInfo, object, format, args...) }

// Infof is an alias of Logf kept for readability at call sites.
func Infof(object any, format string, args ...any) { logf(slog.LevelInfo, object, format, args...) }

// Noticef logs at NOTICE level.
func Noticef(object any, format string, args ...any) { logf(LevelNotice, object, format, args...) }

// Errorf logs at ERROR level.
func Errorf(object any, format string, args ...any) { logf(slog.LevelError, object, format, args...) }

// Criticalf logs at CRITICAL level, for conditions that abort an endpoint.
func Criticalf(object any, format string, args ...any) {
	logf(LevelCritical, object, format, args...)
}
