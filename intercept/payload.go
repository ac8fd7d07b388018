package intercept

import (
	"fmt"
	"reflect"

	"github.com/hazyhaar/skilllog/stacktrace"
)

// payload is what a console call carries, decided once at the call
// boundary: an error value, or a plain message sequence.
type payload interface {
	message() []any
	trace(skip int) []string
}

type errorValue struct {
	err error
}

// message is the error's description alone. A panicking Error method is
// rendered the way fmt renders it, as the native console would print it.
func (p errorValue) message() (msg []any) {
	defer func() {
		if recover() != nil {
			msg = []any{fmt.Sprint(p.err)}
		}
	}()
	return []any{p.err.Error()}
}

// trace prefers the stack recorded on the error; errors without one fall
// back to the call site.
func (p errorValue) trace(skip int) []string {
	if frames := stacktrace.FromError(p.err); len(frames) > 0 {
		return frames
	}
	return stacktrace.Capture(skip + 1)
}

type messageSequence []any

func (p messageSequence) message() []any {
	out := make([]any, len(p))
	copy(out, p)
	return out
}

func (p messageSequence) trace(skip int) []string { return stacktrace.Capture(skip + 1) }

// classify inspects the arguments of an error-channel call. Other channels
// always carry a message sequence.
func classify(args []any) payload {
	if len(args) > 0 {
		if err, ok := args[0].(error); ok && !isNil(err) {
			return errorValue{err: err}
		}
	}
	return messageSequence(args)
}

// isNil reports whether err is nil or a typed nil, such as a nil *MyErr
// stored in the error interface.
func isNil(err error) bool {
	if err == nil {
		return true
	}
	v := reflect.ValueOf(err)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}
