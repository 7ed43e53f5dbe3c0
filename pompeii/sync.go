package pompeii

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

type Fence struct {
	logicalDevice vk.Device
	fence         vk.Fence
}

func NewFence(d *Device, signaled bool) (*Fence, error) {
	f := Fence{
		logicalDevice: d.Handle(),
	}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	if result := vk.CreateFence(d.Handle(), &fenceCreateInfo, nil, &f.fence); result != vk.Success {
		return nil, errors.Wrap(vk.Error(result), "create fence")
	}

	return &f, nil
}

// Wait blocks until the fence is signaled. timeout is in nanoseconds and
// expiry returns ErrTimeout.
func (f *Fence) Wait(timeout uint64) error {
	result := vk.WaitForFences(f.logicalDevice, 1, []vk.Fence{f.fence}, vk.True, timeout)
	switch result {
	case vk.Success:
		return nil
	case vk.Timeout:
		return ErrTimeout
	default:
		return errors.Wrap(vk.Error(result), "wait for fence")
	}
}

func (f *Fence) Reset() error {
	if result := vk.ResetFences(f.logicalDevice, 1, []vk.Fence{f.fence}); result != vk.Success {
		return errors.Wrap(vk.Error(result), "reset fence")
	}
	return nil
}

func (f *Fence) Destroy() {
	if f.fence != vk.Fence(vk.NullHandle) {
		vk.DestroyFence(f.logicalDevice, f.fence, nil)
		f.fence = vk.Fence(vk.NullHandle)
	}
}

func (f *Fence) Handle() vk.Fence {
	return f.fence
}

type Semaphore struct {
	logicalDevice vk.Device
	semaphore     vk.Semaphore
}

func NewSemaphore(d *Device) (*Semaphore, error) {
	s := Semaphore{
		logicalDevice: d.Handle(),
	}

	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	if result := vk.CreateSemaphore(d.Handle(), &semaphoreCreateInfo, nil, &s.semaphore); result != vk.Success {
		return nil, errors.Wrap(vk.Error(result), "create semaphore")
	}

	return &s, nil
}

func (s *Semaphore) Destroy() {
	if s.semaphore != vk.NullSemaphore {
		vk.DestroySemaphore(s.logicalDevice, s.semaphore, nil)
		s.semaphore = vk.NullSemaphore
	}
}

func (s *Semaphore) Handle() vk.Semaphore {
	return s.semaphore
}
