// Package debuglog provides a lazily-initialized stderr logger gated by
// an environment variable, in the style of the teacher's capture/debug.go.
package debuglog

import (
	"log"
	"os"
	"strings"
	"sync"
)

const (
	envDebug = "SCREENREC_DEBUG"
)

var (
	enabledOnce sync.Once
	enabledFlag bool

	loggerOnce sync.Once
	logger     *log.Logger
)

// Enabled reports whether verbose debug tracing was requested via
// SCREENREC_DEBUG=1.
func Enabled() bool {
	enabledOnce.Do(func() {
		enabledFlag = strings.TrimSpace(os.Getenv(envDebug)) == "1"
	})
	return enabledFlag
}

// Debugf logs a trace line to stderr, a no-op unless Enabled.
func Debugf(format string, args ...any) {
	if !Enabled() {
		return
	}
	loggerOnce.Do(func() {
		logger = log.New(os.Stderr, "screenrec ", log.LstdFlags|log.Lmicroseconds)
	})
	logger.Printf(format, args...)
}

// Warnf always prints to stderr, independent of the debug flag. This
// backs the warning-class errors in spec §7 (frame skip, oversized NAL,
// unsupported fourcc/modifier) which are part of the documented error
// channel contract, not optional tracing.
func Warnf(format string, args ...any) {
	w := log.New(os.Stderr, "screenrec: warning: ", 0)
	w.Printf(format, args...)
}
