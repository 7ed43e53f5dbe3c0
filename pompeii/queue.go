package pompeii

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

type Queue struct {
	Family int

	queue vk.Queue
}

func newQueue(d *Device, family int) *Queue {
	q := Queue{
		Family: family,
	}
	vk.GetDeviceQueue(d.Handle(), uint32(family), 0, &q.queue)
	return &q
}

// SubmitInfo describes one batch. WaitStages pairs with Wait.
type SubmitInfo struct {
	Wait       []*Semaphore
	WaitStages []vk.PipelineStageFlags
	Commands   []*CommandBuffer
	Signal     []*Semaphore
}

// Submit queues one batch; fence may be nil.
func (q *Queue) Submit(info SubmitInfo, fence *Fence) error {
	if len(info.Wait) != len(info.WaitStages) {
		return errors.Errorf("%d wait semaphores with %d stages", len(info.Wait), len(info.WaitStages))
	}

	wait := make([]vk.Semaphore, len(info.Wait))
	for t, s := range info.Wait {
		wait[t] = s.Handle()
	}
	signal := make([]vk.Semaphore, len(info.Signal))
	for t, s := range info.Signal {
		signal[t] = s.Handle()
	}
	commands := make([]vk.CommandBuffer, len(info.Commands))
	for t, c := range info.Commands {
		commands[t] = c.Handle()
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(wait)),
		PWaitSemaphores:      wait,
		PWaitDstStageMask:    info.WaitStages,
		CommandBufferCount:   uint32(len(commands)),
		PCommandBuffers:      commands,
		SignalSemaphoreCount: uint32(len(signal)),
		PSignalSemaphores:    signal,
	}

	vkFence := vk.Fence(vk.NullHandle)
	if fence != nil {
		vkFence = fence.Handle()
	}
	if result := vk.QueueSubmit(q.queue, 1, []vk.SubmitInfo{submitInfo}, vkFence); result != vk.Success {
		return errors.Wrap(vk.Error(result), "queue submit")
	}
	return nil
}

// Present shows image of swapchain once wait is signaled. Staleness is
// reported as ErrOutOfDate or ErrSuboptimal.
func (q *Queue) Present(swapchain *Swapchain, image uint32, wait *Semaphore) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait.Handle()},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{swapchain.Handle()},
		PImageIndices:      []uint32{image},
	}
	return resultError(vk.QueuePresent(q.queue, &presentInfo), "queue present")
}

func (q *Queue) WaitIdle() error {
	if result := vk.QueueWaitIdle(q.queue); result != vk.Success {
		return errors.Wrap(vk.Error(result), "queue wait idle")
	}
	return nil
}

func (q *Queue) Handle() vk.Queue {
	return q.queue
}
