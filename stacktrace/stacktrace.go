// Package stacktrace turns goroutine stacks and error stacks into the
// ordered, trimmed frame strings stored on log records.
package stacktrace

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// maxDepth bounds the number of frames captured per call.
const maxDepth = 64

// stackTracer is implemented by errors created with github.com/pkg/errors.
type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// Capture returns the frames of the calling goroutine, innermost first.
// The frame of Capture itself is never included; skip drops that many
// additional frames above it (skip=0 starts at the caller of Capture).
func Capture(skip int) []string {
	if skip < 0 {
		skip = 0
	}
	pcs := make([]uintptr, maxDepth)
	// +2: runtime.Callers and Capture.
	n := runtime.Callers(skip+2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	out := make([]string, 0, n)
	for {
		f, more := frames.Next()
		if f.Function != "" && !strings.HasPrefix(f.Function, "runtime.") {
			out = append(out, format(f.Function, f.File, f.Line))
		}
		if !more {
			break
		}
	}
	return out
}

// FromError returns the stack recorded on err (or on any error it wraps)
// by github.com/pkg/errors. Plain errors carry no stack: nil is returned.
func FromError(err error) []string {
	var st stackTracer
	if err == nil || !errors.As(err, &st) {
		return nil
	}
	trace := st.StackTrace()
	out := make([]string, 0, len(trace))
	for _, f := range trace {
		line := strings.TrimSpace(fmt.Sprintf("%n (%s:%d)", f, f, f))
		if line == "" || strings.HasPrefix(line, "unknown") {
			continue
		}
		out = append(out, line)
	}
	return out
}

func format(function, file string, line int) string {
	short := function
	if i := strings.LastIndex(short, "/"); i >= 0 {
		short = short[i+1:]
	}
	return strings.TrimSpace(fmt.Sprintf("%s (%s:%d)", short, file, line))
}
