package exception

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

const maxFrames = 32

// Frame is a single call site. Argument values are never captured.
type Frame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

func (f Frame) String() string {
	return fmt.Sprintf("%s (%s:%d)", f.Function, f.File, f.Line)
}

// stackError attaches call frames to an error.
type stackError struct {
	err    error
	frames []Frame
}

func (e *stackError) Error() string   { return e.err.Error() }
func (e *stackError) Unwrap() error   { return e.err }
func (e *stackError) Frames() []Frame { return e.frames }

// WithStack attaches the caller's stack unless err already carries one.
func WithStack(err error) error {
	if err == nil || StackTrace(err) != nil {
		return err
	}
	return &stackError{err: err, frames: callers(3)}
}

// StackTrace returns the frames attached to err or any error it wraps.
func StackTrace(err error) []Frame {
	var st interface{ Frames() []Frame }
	if errors.As(err, &st) {
		return st.Frames()
	}
	return nil
}

// PanicError is a recovered panic.
type PanicError struct {
	value  any
	frames []Frame
}

// Recovered wraps a value returned by recover. The stack starts at the
// panic site.
func Recovered(p any) error {
	if pe, ok := p.(*PanicError); ok {
		return pe
	}
	return &PanicError{value: p, frames: panicFrames()}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// Value returns the original panic value.
func (e *PanicError) Value() any { return e.value }

// Frames returns the stack at the panic site.
func (e *PanicError) Frames() []Frame { return e.frames }

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.value.(error); ok {
		return err
	}
	return nil
}

func callers(skip int) []Frame {
	pcs := make([]uintptr, maxFrames)
	n := runtime.Callers(skip, pcs)
	return toFrames(pcs[:n])
}

// panicFrames drops the frames of the deferred recover handler and the
// runtime panic machinery.
func panicFrames() []Frame {
	frames := callers(3)
	for i, f := range frames {
		if f.Function == "runtime.gopanic" || strings.HasPrefix(f.Function, "runtime.panic") {
			rest := frames[i+1:]
			for len(rest) > 0 && strings.HasPrefix(rest[0].Function, "runtime.") {
				rest = rest[1:]
			}
			return rest
		}
	}
	return frames
}

func toFrames(pcs []uintptr) []Frame {
	if len(pcs) == 0 {
		return nil
	}
	it := runtime.CallersFrames(pcs)
	out := make([]Frame, 0, len(pcs))
	for {
		f, more := it.Next()
		out = append(out, Frame{Function: f.Function, File: f.File, Line: f.Line})
		if !more {
			break
		}
	}
	return out
}
