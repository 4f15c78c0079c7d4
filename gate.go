package splitexec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"runtime/debug"
	"strings"

	"github.com/Paintersrp/splitexec/internal/trace"
	"github.com/Paintersrp/splitexec/internal/wire"
)

// Environment markers identifying a process as a region child. The
// token pairs the child with the exact Separator entry that spawned it.
const (
	regionEnv = "SPLITEXEC_REGION"
	tokenEnv  = "SPLITEXEC_TOKEN"
)

// Kinds synthesized by the gate itself, as opposed to kinds derived
// from the failing error's type.
const (
	kindPanic     = "panic"
	kindHandshake = "splitexec.Handshake"
	kindUnknown   = "splitexec.UnknownRegion"
	kindForwarded = "splitexec.Forwarded"
)

// Main is the execution gate. Call it first thing in main (and in
// TestMain for test binaries that enter regions). In an ordinary
// process it returns immediately. In a process spawned as a region
// child it runs the region's child continuation, reports the outcome
// upstream, and exits without returning — the caller's code after Main
// is therefore parent-only.
func Main() {
	name := os.Getenv(regionEnv)
	if name == "" {
		return
	}
	runChild(name, os.Getenv(tokenEnv))
}

// runChild is the child continuation: handshake, child setup, body,
// one report, exit. It recovers every failure locally and re-expresses
// it as data; nothing propagates past the process boundary as a panic.
func runChild(name, token string) {
	pair := wire.ChildPair()

	finish := func(failure *wire.Failure) {
		report := &wire.Report{}
		if failure == nil {
			report.Clean = true
		} else {
			report.Failure = failure
		}
		if err := pair.Up.Send(&wire.Frame{Report: report}); err != nil && !wire.IsPeerGone(err) {
			// Reporting is the child's whole purpose, but with the peer
			// gone there is nobody left to tell.
			fmt.Fprintf(os.Stderr, "splitexec: send report: %v\n", err)
		}
		pair.Up.Close()
		os.Exit(0)
	}

	first, err := pair.Down.Receive()
	if err != nil {
		finish(&wire.Failure{Kind: kindHandshake, Message: fmt.Sprintf("receive handshake: %v", err)})
	}
	if first.Forward != nil {
		// The parent failed before the region got underway; bail out
		// without running anything.
		finish(&wire.Failure{Kind: kindForwarded, Message: first.Forward.Message})
	}
	if first.Hello == nil || first.Hello.Token != token {
		finish(&wire.Failure{Kind: kindHandshake, Message: "handshake token mismatch"})
	}

	region, ok := lookup(name)
	if !ok {
		finish(&wire.Failure{
			Kind:    kindUnknown,
			Message: fmt.Sprintf("region %q is not registered in this binary", name),
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watchControl(pair.Down, cancel)

	payload := first.Hello.Payload
	if region.ChildSetup != nil {
		if failure := capture(name, funcName(region.ChildSetup), func() error {
			return region.ChildSetup(ctx, payload)
		}); failure != nil {
			finish(failure)
		}
	}

	finish(capture(name, funcName(region.Body), func() error {
		return region.Body(ctx, payload)
	}))
}

// watchControl cancels the region context when the parent forwards a
// failure. A closed control pipe just means the parent is done talking.
func watchControl(down *wire.Endpoint, cancel context.CancelFunc) {
	for {
		frame, err := down.Receive()
		if err != nil {
			return
		}
		if frame.Forward != nil {
			cancel()
			return
		}
	}
}

// capture invokes fn and converts an error return or a panic into a
// transportable failure, rendering the diagnostic trace here, at the
// capture site, because raw stack data cannot cross the process
// boundary.
func capture(regionName, fnName string, fn func() error) (failure *wire.Failure) {
	defer func() {
		if v := recover(); v != nil {
			failure = &wire.Failure{
				Kind:    kindPanic,
				Message: fmt.Sprint(v),
				Trace:   childHeader(regionName, fnName) + trace.RenderPanic(v, debug.Stack()),
			}
		}
	}()

	err := fn()
	if err == nil {
		return nil
	}

	failure = &wire.Failure{
		Kind:    errorKind(err),
		Message: err.Error(),
		Trace:   childHeader(regionName, fnName) + trace.FormatError(err) + trace.Render(1),
	}
	var exitable interface{ ExitStatus() int }
	if errors.As(err, &exitable) {
		failure.Status = exitable.ExitStatus()
	}
	return failure
}

func childHeader(regionName, fnName string) string {
	return fmt.Sprintf("region %q (%s) in child pid %d:\n", regionName, fnName, os.Getpid())
}

func errorKind(err error) string {
	var child *ChildError
	if errors.As(err, &child) && child.Kind != "" {
		return child.Kind
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
}

func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return "unknown"
	}
	return trace.FuncName(v.Pointer())
}
