// Package backend defines the contract every language backend implements,
// plus the function-interface singleton backends use to wire their
// produced functions into the dispatch-table shim.
package backend

import (
	"context"

	"github.com/polyrt/ffi/ferr"
	"github.com/polyrt/ffi/function"
	"github.com/polyrt/ffi/handle"
	"github.com/polyrt/ffi/scope"
	"github.com/polyrt/ffi/value"
)

// Host is the narrow view of the owning loader instance a backend needs
// during Initialize, e.g. to read configuration the host applied before
// handing control to the backend.
type Host interface {
	Tag() string
}

// Backend is the nine-operation contract of §4.6. Every method returns
// ferr.NotSupported for an operation the backend deliberately does not
// implement, rather than silently succeeding.
type Backend interface {
	// Initialize prepares backend-private state. data is passed to every
	// subsequent method.
	Initialize(host Host) (data any, err error)

	// ExecutionPath adds path to the backend's search path.
	ExecutionPath(ctx context.Context, data any, path string) error

	// LoadFromFile attempts to resolve and load each of paths, per the
	// file-style pipeline in §4.7. A handle with zero resolved paths is
	// never returned.
	LoadFromFile(ctx context.Context, data any, paths []string) (*handle.Handle, error)

	// LoadFromMemory loads a named in-memory buffer. Backends that do not
	// support this return ferr.NotSupported.
	LoadFromMemory(ctx context.Context, data any, name string, buf []byte) (*handle.Handle, error)

	// LoadFromPackage loads a packaged module at path.
	LoadFromPackage(ctx context.Context, data any, path string) (*handle.Handle, error)

	// Clear releases backend-private state attached to h.
	Clear(ctx context.Context, data any, h *handle.Handle) error

	// Discover walks h and publishes the functions/values it finds into
	// root via root.Define.
	Discover(ctx context.Context, data any, h *handle.Handle, root *scope.Scope) error

	// Destroy releases data itself, once, at loader-instance teardown.
	Destroy(ctx context.Context, data any) error

	// FunctionInterface returns the dispatch table singleton used by every
	// Function this backend produces during Discover.
	FunctionInterface() *function.DispatchTable
}

// MetadataProvider is an optional capability: a backend may additionally
// expose metadata describing itself as a map value.
type MetadataProvider interface {
	Metadata(ctx context.Context, data any) (*value.Value, error)
}

// Unsupported is a convenience for backend methods that deliberately do
// not implement an operation.
func Unsupported(op string) error {
	return ferr.Newf(ferr.NotSupported, "operation %q is not supported by this backend", op)
}

// Factory builds a fresh Backend instance for a tag at registration time.
type Factory func() Backend
