package vkres

import (
	"fmt"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

var (
	// ErrResourceAllocation is returned when no memory or image can back a resource,
	// most commonly when no memory type matches a request.
	ErrResourceAllocation = errors.New("resource allocation failure")

	// ErrUnsupportedFormat is returned for a component size, vector width and scalar
	// kind combination with no matching vk.Format.
	ErrUnsupportedFormat = errors.New("unsupported format")

	ErrOutOfRange      = errors.New("range out of bounds")
	ErrNotReadable     = errors.New("buffer was not created readable")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrSwapchainState  = errors.New("swapchain is in the wrong state")
	ErrForeignResource = errors.New("resource belongs to a different context")

	// ErrNoContext is returned when a resource is created without an owning context,
	// or used after it has been destroyed.
	ErrNoContext = errors.New("no owning context")

	// ErrWorkInFlight marks a failed blocking submit whose work could not be
	// drained from the queue. Objects the work references are left alive.
	ErrWorkInFlight = errors.New("submitted work still in flight")
)

// APIError is returned by a Driver when a native call returns anything other
// than vk.Success.
type APIError struct {
	Call   string
	Result vk.Result
}

func (e *APIError) Error() string {
	if err := vk.Error(e.Result); err != nil {
		return fmt.Sprintf("%s: %s", e.Call, err.Error())
	}
	return fmt.Sprintf("%s: result %d", e.Call, int32(e.Result))
}

// Check converts a native result into an error. vk.Success yields nil, every
// other result yields an *APIError naming the call.
func Check(call string, res vk.Result) error {
	if res == vk.Success {
		return nil
	}
	return errors.WithStackDepth(&APIError{Call: call, Result: res}, 1)
}

// ResultOf returns the native result carried by err, if any.
func ResultOf(err error) (vk.Result, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Result, true
	}
	return vk.Success, false
}
