package splitexec

import (
	"context"
	"fmt"
	"sync"
)

// Region describes one fork-separated block and the hooks its
// collaborator supplies around it. Body and ChildSetup execute in the
// child; the remaining hooks execute in the parent. Only Body is
// required. A nil ExceptionCleanup delegates to Cleanup.
type Region struct {
	// Body is the scoped block. It runs exactly once, in the child,
	// after ChildSetup succeeds. The payload is the opaque value given
	// to the Separator via WithPayload. The context is cancelled if the
	// parent forwards a failure mid-flight.
	Body func(ctx context.Context, payload []byte) error

	// ChildSetup runs in the child before Body. If it fails, the
	// failure is transported to the parent and Body never runs.
	ChildSetup func(ctx context.Context, payload []byte) error

	// ParentSetup runs in the parent right after the child is spawned.
	// A failure is forwarded to the child and then returned to the
	// caller once the child has been reaped.
	ParentSetup func(ctx context.Context) error

	// Cleanup runs in the parent exactly once, strictly after the child
	// has been reaped, on the success path and (by default) the failure
	// path.
	Cleanup func(ctx context.Context) error

	// ExceptionCleanup replaces Cleanup on the failure path when set.
	ExceptionCleanup func(ctx context.Context) error
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Region)
)

// Register binds a named region. It must be called before Main, so that
// both the parent and its re-executed children share the same table;
// init-time registration is the usual place. Register panics on a
// duplicate name or a region without a Body, mirroring handler
// registration in net/http.
func Register(name string, region Region) {
	if name == "" {
		panic("splitexec: Register with empty region name")
	}
	if region.Body == nil {
		panic(fmt.Sprintf("splitexec: region %q has no Body", name))
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("splitexec: region %q registered twice", name))
	}
	registry[name] = region
}

func lookup(name string) (Region, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	region, ok := registry[name]
	return region, ok
}
