package vkres

import (
	"golang.org/x/exp/slog"
)

// Handle is the ownership unit embedded by every resource. It records the
// owning Context and gives the resource a shortcut to the device.
//
// Destroy is the only teardown entry point of a resource. Each Destroy first
// calls release, which clears the owner reference, then releases the resource's
// own native objects, then destroys the children it owns. A second Destroy
// finds no owner and does nothing.
type Handle struct {
	owner *Context
	kind  string
}

func newHandle(owner *Context, kind string) (Handle, error) {
	if owner == nil || owner.destroyed {
		return Handle{}, ErrNoContext
	}
	return Handle{owner: owner, kind: kind}, nil
}

// Owner returns the owning context, nil once the resource has been destroyed.
func (h *Handle) Owner() *Context {
	return h.owner
}

// Driver is the device-access shortcut.
func (h *Handle) Driver() Driver {
	if h.owner == nil {
		return nil
	}
	return h.owner.driver
}

// Destroyed reports whether Destroy has already run.
func (h *Handle) Destroyed() bool {
	return h.owner == nil
}

// release is the shared finalize step of every Destroy. It returns the context
// the native objects must be released through, or false if the handle has
// already been released.
func (h *Handle) release() (*Context, bool) {
	owner := h.owner
	if owner == nil {
		slog.Default().Warn("destroy called on a released handle", slog.String("resource", h.kind))
		return nil, false
	}
	h.owner = nil
	return owner, true
}
