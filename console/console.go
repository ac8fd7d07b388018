// Package console is the program-wide console of a skill: five output
// channels whose implementations can be swapped at run time. The native
// implementations write through log/slog.
package console

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Channel identifies one of the five console outputs.
type Channel int

const (
	Log Channel = iota
	Error
	Warn
	Info
	Debug

	numChannels
)

// Channels lists every channel in declaration order.
var Channels = [...]Channel{Log, Error, Warn, Info, Debug}

func (c Channel) String() string {
	switch c {
	case Log:
		return "log"
	case Error:
		return "error"
	case Warn:
		return "warn"
	case Info:
		return "info"
	case Debug:
		return "debug"
	}
	return fmt.Sprintf("channel(%d)", int(c))
}

// Func is the implementation of a channel.
type Func func(args ...any)

// Console dispatches each channel to its current implementation.
type Console struct {
	mu     sync.RWMutex
	fns    [numChannels]Func
	logger *slog.Logger
}

// New creates a console whose native channels write to logger.
// A nil logger resolves slog.Default() on every call.
func New(logger *slog.Logger) *Console {
	c := &Console{logger: logger}
	for _, ch := range Channels {
		c.fns[ch] = c.native(ch)
	}
	return c
}

// Default is the process-wide console.
var Default = New(nil)

// Func returns the current implementation of ch.
func (c *Console) Func(ch Channel) Func {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fns[ch]
}

// Swap installs fn for ch and returns the implementation it replaced.
// A nil fn restores the native implementation.
func (c *Console) Swap(ch Channel, fn Func) Func {
	if fn == nil {
		fn = c.native(ch)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.fns[ch]
	c.fns[ch] = fn
	return prev
}

func (c *Console) Log(args ...any) { c.Func(Log)(args...) }
func (c *Console) Error(args ...any) { c.Func(Error)(args...) }
func (c *Console) Warn(args ...any) { c.Func(Warn)(args...) }
func (c *Console) Info(args ...any) { c.Func(Info)(args...) }
func (c *Console) Debug(args ...any) { c.Func(Debug)(args...) }

func (c *Console) native(ch Channel) Func {
	level := slog.LevelInfo
	switch ch {
	case Error:
		level = slog.LevelError
	case Warn:
		level = slog.LevelWarn
	case Debug:
		level = slog.LevelDebug
	}
	return func(args ...any) {
		logger := c.logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Log(context.Background(), level, Sprint(args...), "channel", ch.String())
	}
}

// Sprint joins args with single spaces, the way console output reads.
func Sprint(args ...any) string {
	return strings.TrimSuffix(fmt.Sprintln(args...), "\n")
}

