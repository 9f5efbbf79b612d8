// Copyright (c) 2026 The verse developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"log/slog"
	"sync/atomic"
)

var root atomic.Value

func init() {
	root.Store(&logger{slog.New(DiscardHandler())})
}

// SetDefault sets the default global logger.
func SetDefault(l Logger) {
	root.Store(l)
	if lg, ok := l.(*logger); ok {
		slog.SetDefault(lg.inner)
	}
}

// Root returns the root logger.
func Root() Logger {
	return root.Load().(Logger)
}

// WithContext returns a logger carrying the given context attributes.
// Typical use is a package-level logger:
//
//	var logger = log.WithContext("pkg", "distro")
func WithContext(ctx ...any) Logger {
	return Root().With(ctx...)
}

// The following functions bypass the exported logger methods (logger.Debug,
// etc.) to keep the call depth the same for all paths.

// Trace logs a message at the trace level with context key/value pairs.
func Trace(msg string, ctx ...any) {
	Root().(*logger).write(LevelTrace, msg, ctx...)
}

// Debug logs a message at the debug level with context key/value pairs.
func Debug(msg string, ctx ...any) {
	Root().(*logger).write(LevelDebug, msg, ctx...)
}

// Info logs a message at the info level with context key/value pairs.
func Info(msg string, ctx ...any) {
	Root().(*logger).write(LevelInfo, msg, ctx...)
}

// Warn logs a message at the warn level with context key/value pairs.
func Warn(msg string, ctx ...any) {
	Root().(*logger).write(LevelWarn, msg, ctx...)
}

// Error logs a message at the error level with context key/value pairs.
func Error(msg string, ctx ...any) {
	Root().(*logger).write(LevelError, msg, ctx...)
}

// Crit logs a message at the crit level with context key/value pairs
// and exits.
func Crit(msg string, ctx ...any) {
	Root().(*logger).Crit(msg, ctx...)
}
