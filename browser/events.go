package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/skilllog/console"
	"github.com/hazyhaar/skilllog/intercept"
)

// eventBuffer holds page console events between the CDP event loop and fn.
const eventBuffer = 256

// WatchConsole streams the page's console calls and uncaught exceptions to
// fn until ctx is cancelled. fn runs on its own goroutine, one message at
// a time in page order, so it may call back into the page.
func (t *Tab) WatchConsole(ctx context.Context, fn func(intercept.Message)) error {
	p := t.Page.Context(ctx)
	if err := (proto.RuntimeEnable{}).Call(p); err != nil {
		return fmt.Errorf("browser: runtime enable: %w", err)
	}

	ch := make(chan intercept.Message, eventBuffer)
	push := func(msg intercept.Message) {
		select {
		case ch <- msg:
		case <-ctx.Done():
		}
	}

	wait := p.EachEvent(
		func(e *proto.RuntimeConsoleAPICalled) { push(consoleMessage(e)) },
		func(e *proto.RuntimeExceptionThrown) { push(exceptionMessage(e)) },
	)
	go func() {
		wait()
		close(ch)
	}()
	go func() {
		for msg := range ch {
			fn(msg)
		}
		t.logger.Debug("browser: console watch stopped")
	}()
	return nil
}

// consoleChannel maps a CDP console call type to a console channel.
func consoleChannel(typ proto.RuntimeConsoleAPICalledType) console.Channel {
	switch string(typ) {
	case "error", "assert":
		return console.Error
	case "warning":
		return console.Warn
	case "info":
		return console.Info
	case "debug":
		return console.Debug
	}
	return console.Log
}

func consoleMessage(e *proto.RuntimeConsoleAPICalled) intercept.Message {
	args := make([]any, 0, len(e.Args))
	for _, a := range e.Args {
		args = append(args, remoteValue(a))
	}
	return intercept.Message{
		Channel:   consoleChannel(e.Type),
		Args:      args,
		Trace:     stackFrames(e.StackTrace),
		Timestamp: epochMillis(float64(e.Timestamp)),
	}
}

func exceptionMessage(e *proto.RuntimeExceptionThrown) intercept.Message {
	d := e.ExceptionDetails
	if d == nil {
		return intercept.Message{Channel: console.Error, Args: []any{"Uncaught"}, Trace: []string{}}
	}

	text := d.Text
	if d.Exception != nil && d.Exception.Description != "" {
		first, _, _ := strings.Cut(d.Exception.Description, "\n")
		text = strings.TrimSpace(text + " " + first)
	}

	trace := stackFrames(d.StackTrace)
	if len(trace) == 0 && d.URL != "" {
		trace = []string{frame("", d.URL, d.LineNumber, d.ColumnNumber)}
	}
	return intercept.Message{
		Channel:   console.Error,
		Args:      []any{text},
		Trace:     trace,
		Timestamp: epochMillis(float64(e.Timestamp)),
	}
}

// remoteValue turns a CDP remote object into a plain Go value: primitives
// by value, unserializable numbers by name, objects by their preview or
// description.
func remoteValue(o *proto.RuntimeRemoteObject) any {
	if o == nil {
		return nil
	}
	if o.UnserializableValue != "" {
		return string(o.UnserializableValue)
	}
	switch string(o.Type) {
	case "undefined":
		return nil
	case "object":
		if string(o.Subtype) == "null" {
			return nil
		}
		if o.Preview != nil && string(o.Subtype) != "error" {
			return previewValue(o.Preview)
		}
		return o.Description
	case "function", "symbol":
		return o.Description
	}
	if !o.Value.Nil() {
		return o.Value.Val()
	}
	return o.Description
}

func previewValue(p *proto.RuntimeObjectPreview) any {
	if string(p.Subtype) == "array" {
		out := make([]any, 0, len(p.Properties))
		for _, prop := range p.Properties {
			out = append(out, prop.Value)
		}
		return out
	}
	out := make(map[string]any, len(p.Properties))
	for _, prop := range p.Properties {
		out[prop.Name] = prop.Value
	}
	return out
}

func stackFrames(st *proto.RuntimeStackTrace) []string {
	if st == nil {
		return []string{}
	}
	out := make([]string, 0, len(st.CallFrames))
	for _, f := range st.CallFrames {
		out = append(out, frame(f.FunctionName, f.URL, f.LineNumber, f.ColumnNumber))
	}
	return out
}

// frame formats a page frame like a Go one. CDP positions are zero-based.
func frame(function, url string, line, col int) string {
	if function == "" {
		function = "<anonymous>"
	}
	return fmt.Sprintf("%s (%s:%d:%d)", function, url, line+1, col+1)
}

func epochMillis(ms float64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(ms))
}
