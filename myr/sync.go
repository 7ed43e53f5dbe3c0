package myr

import (
	"github.com/pkg/errors"

	"github.com/perlw/vkmodel/frame"
	"github.com/perlw/vkmodel/pompeii"
)

// frameError translates the backend's recoverable results into the
// engine's sentinels, keeping the call site in the message.
func frameError(err error) error {
	switch errors.Cause(err) {
	case nil:
		return nil
	case pompeii.ErrOutOfDate:
		return frame.ErrOutOfDate
	case pompeii.ErrSuboptimal:
		return frame.ErrSuboptimal
	case pompeii.ErrTimeout:
		return errors.Wrap(frame.ErrTimeout, err.Error())
	}
	return err
}

type fence struct {
	*pompeii.Fence
}

func (f fence) Wait(timeout uint64) error {
	return frameError(f.Fence.Wait(timeout))
}

type syncFactory struct {
	device *pompeii.Device
}

func (s syncFactory) NewSemaphore() (frame.Semaphore, error) {
	sem, err := pompeii.NewSemaphore(s.device)
	if err != nil {
		return nil, err
	}
	return sem, nil
}

func (s syncFactory) NewFence(signaled bool) (frame.Fence, error) {
	f, err := pompeii.NewFence(s.device, signaled)
	if err != nil {
		return nil, err
	}
	return fence{f}, nil
}

func semaphoreOf(s frame.Semaphore) (*pompeii.Semaphore, error) {
	sem, ok := s.(*pompeii.Semaphore)
	if !ok {
		return nil, errors.Errorf("foreign semaphore %T", s)
	}
	return sem, nil
}

func fenceOf(f frame.Fence) (*pompeii.Fence, error) {
	fen, ok := f.(fence)
	if !ok {
		return nil, errors.Errorf("foreign fence %T", f)
	}
	return fen.Fence, nil
}

// chain presents through the device's present queue.
type chain struct {
	swapchain *pompeii.Swapchain
	present   *pompeii.Queue
}

func (c chain) ImageCount() int {
	return c.swapchain.ImageCount()
}

func (c chain) Acquire(timeout uint64, signal frame.Semaphore) (uint32, error) {
	sem, err := semaphoreOf(signal)
	if err != nil {
		return 0, err
	}
	image, err := c.swapchain.Acquire(timeout, sem)
	return image, frameError(err)
}

func (c chain) Present(image uint32, wait frame.Semaphore) error {
	sem, err := semaphoreOf(wait)
	if err != nil {
		return err
	}
	return frameError(c.present.Present(c.swapchain, image, sem))
}
