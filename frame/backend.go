package frame

import (
	"github.com/pkg/errors"
)

var (
	// ErrOutOfDate means the surface no longer matches the chain and the
	// chain must be rebuilt before it can be used again.
	ErrOutOfDate = errors.New("surface out of date")
	// ErrSuboptimal means the operation succeeded but the chain should be
	// rebuilt.
	ErrSuboptimal = errors.New("surface suboptimal")
	// ErrTimeout is returned when a fence or acquire wait expires.
	ErrTimeout = errors.New("wait timed out")
	// ErrClosed is returned when the window closes while a rebuild is
	// waiting for a drawable area.
	ErrClosed = errors.New("window closed")
)

// IsStale reports whether err asks for a chain rebuild.
func IsStale(err error) bool {
	switch errors.Cause(err) {
	case ErrOutOfDate, ErrSuboptimal:
		return true
	}
	return false
}

type Fence interface {
	// Wait blocks until the fence is signaled or timeout nanoseconds pass.
	Wait(timeout uint64) error
	Reset() error
	Destroy()
}

type Semaphore interface {
	Destroy()
}

// SyncFactory creates the per-slot primitives.
type SyncFactory interface {
	NewSemaphore() (Semaphore, error)
	NewFence(signaled bool) (Fence, error)
}

// Swapchain is a built chain of presentable images.
type Swapchain interface {
	ImageCount() int
	Acquire(timeout uint64, signal Semaphore) (uint32, error)
	Present(image uint32, wait Semaphore) error
}

// Target owns everything that has one instance per chain image, plus the
// chain itself. Build creates it all for the given drawable size and
// Teardown releases it again in reverse order.
type Target interface {
	Build(width, height int) (Swapchain, error)
	Teardown()
	Update(image uint32) error
	Submit(image uint32, wait, signal Semaphore, done Fence) error
}

type Device interface {
	WaitIdle() error
}

type Window interface {
	FramebufferSize() (int, int)
	// Resized reports and clears the latched resize notification.
	Resized() bool
	WaitEvents()
	PollEvents()
	ShouldClose() bool
}
