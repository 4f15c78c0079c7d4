// Package trace renders failure diagnostics to text so they can cross a
// process boundary. Raw stack data is only meaningful inside the process
// that produced it, so everything here is formatted at the capture site
// and shipped as plain text.
package trace

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

const maxFrames = 64

// Render formats the calling goroutine's stack, skipping skip frames on
// top of Render itself. Frames inside the Go runtime are elided.
func Render(skip int) string {
	pcs := make([]uintptr, maxFrames)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return ""
	}

	frames := runtime.CallersFrames(pcs[:n])
	var b strings.Builder
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !strings.HasPrefix(frame.Function, "runtime.") {
			fmt.Fprintf(&b, "  %s\n    %s:%d\n", frame.Function, shortenPath(frame.File), frame.Line)
		}
		if !more {
			break
		}
	}
	return b.String()
}

// RenderPanic formats a recovered panic value together with the stack
// captured at the recover site (typically debug.Stack output).
func RenderPanic(value any, stack []byte) string {
	var b strings.Builder
	fmt.Fprintf(&b, "panic: %v\n", value)
	if len(stack) > 0 {
		b.Write(stack)
		if stack[len(stack)-1] != '\n' {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// FormatError renders an error and its wrapped chain, one cause per
// line, outermost first.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "error: %s\n", err.Error())
	for unwrapped := errors.Unwrap(err); unwrapped != nil; unwrapped = errors.Unwrap(unwrapped) {
		fmt.Fprintf(&b, "  caused by: %s\n", unwrapped.Error())
	}
	return b.String()
}

// FuncName reports the fully qualified name of the function at the given
// program counter entry, or "unknown" when it cannot be resolved.
func FuncName(pc uintptr) string {
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknown"
	}
	return fn.Name()
}

func shortenPath(path string) string {
	dir := filepath.Dir(path)
	return filepath.Join(filepath.Base(dir), filepath.Base(path))
}
