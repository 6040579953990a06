// Package logx is the component-tagged structured logger shared by every
// HAL package. It wraps log/slog and defaults to warnings only, so a
// firmware image stays quiet unless a level is raised at boot.
package logx

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

// Component identifies a subsystem for log filtering.
type Component string

const (
	ComponentHAL    Component = "hal"
	ComponentOwn    Component = "periph"
	ComponentClock  Component = "clock"
	ComponentGPIO   Component = "gpio"
	ComponentTimer  Component = "timer"
	ComponentUART   Component = "uart"
	ComponentI2C    Component = "i2c"
	ComponentFlash  Component = "flc"
	ComponentBoard  Component = "board"
	ComponentRandom Component = "trng"
)

var (
	level = new(slog.LevelVar)

	mu      sync.RWMutex
	current *slog.Logger
)

func init() {
	level.Set(slog.LevelWarn)
	current = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// SetLevel sets the minimum level for all HAL logging.
func SetLevel(l slog.Level) { level.Set(l) }

// Level returns the current minimum level.
func Level() slog.Level { return level.Level() }

// SetLogger replaces the logger. A nil logger restores the stderr default.
func SetLogger(l *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	current = l
}

// New returns a text logger on w that honours the shared level.
func New(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

func Debug(c Component, msg string, args ...any) {
	logger().Debug(msg, append([]any{"component", string(c)}, args...)...)
}

func Info(c Component, msg string, args ...any) {
	logger().Info(msg, append([]any{"component", string(c)}, args...)...)
}

func Warn(c Component, msg string, args ...any) {
	logger().Warn(msg, append([]any{"component", string(c)}, args...)...)
}

func Error(c Component, msg string, args ...any) {
	logger().Error(msg, append([]any{"component", string(c)}, args...)...)
}
