package frame

import (
	"github.com/pkg/errors"
)

type SlotState int

const (
	SlotIdle SlotState = iota
	SlotBusy
)

func (s SlotState) String() string {
	switch s {
	case SlotIdle:
		return "Idle"
	case SlotBusy:
		return "Busy"
	default:
		panic("unreachable")
	}
}

// Slot is one in-flight frame worth of synchronization primitives.
type Slot struct {
	ImageAvailable Semaphore
	RenderFinished Semaphore
	InFlight       Fence

	State SlotState
}

func newSlot(sync SyncFactory) (Slot, error) {
	s := Slot{}

	var err error
	if s.ImageAvailable, err = sync.NewSemaphore(); err != nil {
		return s, errors.Wrap(err, "image available semaphore")
	}
	if s.RenderFinished, err = sync.NewSemaphore(); err != nil {
		s.destroy()
		return s, errors.Wrap(err, "render finished semaphore")
	}
	// Signaled so the first wait on a fresh slot returns immediately.
	if s.InFlight, err = sync.NewFence(true); err != nil {
		s.destroy()
		return s, errors.Wrap(err, "in flight fence")
	}

	return s, nil
}

func (s *Slot) destroy() {
	if s.InFlight != nil {
		s.InFlight.Destroy()
		s.InFlight = nil
	}
	if s.RenderFinished != nil {
		s.RenderFinished.Destroy()
		s.RenderFinished = nil
	}
	if s.ImageAvailable != nil {
		s.ImageAvailable.Destroy()
		s.ImageAvailable = nil
	}
}

// imageOwners maps a chain image index to the fence of the slot that last
// submitted work against it.
type imageOwners []Fence

func (o imageOwners) owner(image uint32) Fence {
	if int(image) >= len(o) {
		return nil
	}
	return o[image]
}

func (o imageOwners) claim(image uint32, fence Fence) {
	o[image] = fence
}

// reset drops every owner and sizes the map for count images.
func (o *imageOwners) reset(count int) {
	*o = make(imageOwners, count)
}
