package trace

import (
	"errors"
	"fmt"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderFromHelper() string {
	return Render(0)
}

func TestRenderNamesCaller(t *testing.T) {
	out := renderFromHelper()
	require.NotEmpty(t, out)
	assert.Contains(t, out, "renderFromHelper")
	assert.Contains(t, out, "TestRenderNamesCaller")
	assert.NotContains(t, out, "runtime.Callers")
}

func TestRenderSkipsFrames(t *testing.T) {
	out := Render(1)
	assert.NotContains(t, out, "TestRenderSkipsFrames")
}

func TestRenderPanic(t *testing.T) {
	var out string
	func() {
		defer func() {
			if v := recover(); v != nil {
				out = RenderPanic(v, debug.Stack())
			}
		}()
		panic("boom")
	}()

	require.NotEmpty(t, out)
	assert.Contains(t, out, "panic: boom")
	assert.Contains(t, out, "TestRenderPanic")
}

func TestFormatErrorChain(t *testing.T) {
	root := errors.New("bad input")
	wrapped := fmt.Errorf("validate request: %w", root)

	out := FormatError(wrapped)
	assert.Contains(t, out, "error: validate request: bad input")
	assert.Contains(t, out, "caused by: bad input")
}

func TestFormatErrorNil(t *testing.T) {
	assert.Empty(t, FormatError(nil))
}
