package pompeii

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

type CommandPool struct {
	logicalDevice vk.Device
	pool          vk.CommandPool
}

func NewCommandPool(d *Device, family int) (*CommandPool, error) {
	p := CommandPool{
		logicalDevice: d.Handle(),
	}

	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(family),
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	if result := vk.CreateCommandPool(d.Handle(), &poolInfo, nil, &p.pool); result != vk.Success {
		return nil, errors.Wrap(vk.Error(result), "create command pool")
	}

	return &p, nil
}

func (p *CommandPool) Destroy() {
	if p.pool != vk.CommandPool(vk.NullHandle) {
		vk.DestroyCommandPool(p.logicalDevice, p.pool, nil)
		p.pool = vk.CommandPool(vk.NullHandle)
	}
}

// CommandBuffers is a batch allocated from one pool. The pool reference
// only routes the free call; the pool owns the buffers.
type CommandBuffers struct {
	pool    *CommandPool
	buffers []vk.CommandBuffer

	Buffers []*CommandBuffer
}

func (p *CommandPool) Allocate(count int) (*CommandBuffers, error) {
	if count < 1 {
		return nil, errors.Errorf("cannot allocate %d command buffers", count)
	}

	c := CommandBuffers{
		pool:    p,
		buffers: make([]vk.CommandBuffer, count),
	}
	allocInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        p.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(count),
	}
	if result := vk.AllocateCommandBuffers(p.logicalDevice, &allocInfo, c.buffers); result != vk.Success {
		return nil, errors.Wrap(vk.Error(result), "allocate command buffers")
	}

	c.Buffers = make([]*CommandBuffer, count)
	for t, buffer := range c.buffers {
		c.Buffers[t] = &CommandBuffer{buffer: buffer}
	}

	return &c, nil
}

func (c *CommandBuffers) Len() int {
	return len(c.Buffers)
}

// Destroy returns the buffers to their pool.
func (c *CommandBuffers) Destroy() {
	if len(c.buffers) == 0 {
		return
	}
	vk.FreeCommandBuffers(c.pool.logicalDevice, c.pool.pool, uint32(len(c.buffers)), c.buffers)
	c.buffers = nil
	c.Buffers = nil
}

// OneShot records a single use command buffer with record, submits it to
// queue and blocks until the queue is idle.
func (p *CommandPool) OneShot(queue *Queue, record func(cb *CommandBuffer) error) error {
	buffers, err := p.Allocate(1)
	if err != nil {
		return errors.Wrap(err, "one shot")
	}
	defer buffers.Destroy()

	cb := buffers.Buffers[0]
	if err := cb.Begin(vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)); err != nil {
		return err
	}
	if err := record(cb); err != nil {
		return errors.Wrap(err, "one shot record")
	}
	if err := cb.End(); err != nil {
		return err
	}

	if err := queue.Submit(SubmitInfo{Commands: []*CommandBuffer{cb}}, nil); err != nil {
		return errors.Wrap(err, "one shot")
	}
	return queue.WaitIdle()
}

type CommandBuffer struct {
	buffer vk.CommandBuffer
}

func (c *CommandBuffer) Begin(flags vk.CommandBufferUsageFlags) error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: flags,
	}
	if result := vk.BeginCommandBuffer(c.buffer, &beginInfo); result != vk.Success {
		return errors.Wrap(vk.Error(result), "begin command buffer")
	}
	return nil
}

func (c *CommandBuffer) End() error {
	if result := vk.EndCommandBuffer(c.buffer); result != vk.Success {
		return errors.Wrap(vk.Error(result), "end command buffer")
	}
	return nil
}

func (c *CommandBuffer) BeginRenderPass(renderPass *RenderPass, framebuffer *Framebuffer, extent vk.Extent2D, clearValues []vk.ClearValue) {
	renderPassInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  renderPass.Handle(),
		Framebuffer: framebuffer.Handle(),
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(c.buffer, &renderPassInfo, vk.SubpassContentsInline)
}

func (c *CommandBuffer) EndRenderPass() {
	vk.CmdEndRenderPass(c.buffer)
}

func (c *CommandBuffer) BindPipeline(pipeline *Pipeline) {
	vk.CmdBindPipeline(c.buffer, vk.PipelineBindPointGraphics, pipeline.Handle())
}

func (c *CommandBuffer) BindVertexBuffer(buffer *Buffer) {
	vk.CmdBindVertexBuffers(c.buffer, 0, 1, []vk.Buffer{buffer.Handle()}, []vk.DeviceSize{0})
}

func (c *CommandBuffer) BindIndexBuffer(buffer *Buffer) {
	vk.CmdBindIndexBuffer(c.buffer, buffer.Handle(), 0, vk.IndexTypeUint32)
}

func (c *CommandBuffer) BindDescriptorSet(layout *PipelineLayout, set *DescriptorSet) {
	vk.CmdBindDescriptorSets(c.buffer, vk.PipelineBindPointGraphics, layout.Handle(), 0, 1, []vk.DescriptorSet{set.Handle()}, 0, nil)
}

func (c *CommandBuffer) DrawIndexed(indexCount uint32) {
	vk.CmdDrawIndexed(c.buffer, indexCount, 1, 0, 0, 0)
}

func (c *CommandBuffer) CopyBuffer(src, dst *Buffer, size vk.DeviceSize) {
	vk.CmdCopyBuffer(c.buffer, src.Handle(), dst.Handle(), 1, []vk.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: size},
	})
}

func (c *CommandBuffer) CopyBufferToImage(src *Buffer, dst *Image) {
	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageOffset: vk.Offset3D{X: 0, Y: 0, Z: 0},
		ImageExtent: vk.Extent3D{Width: dst.Width, Height: dst.Height, Depth: 1},
	}
	vk.CmdCopyBufferToImage(c.buffer, src.Handle(), dst.Handle(), vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
}

func (c *CommandBuffer) imageBarrier(srcStage, dstStage vk.PipelineStageFlags, barrier vk.ImageMemoryBarrier) {
	barrier.SType = vk.StructureTypeImageMemoryBarrier
	barrier.SrcQueueFamilyIndex = vk.QueueFamilyIgnored
	barrier.DstQueueFamilyIndex = vk.QueueFamilyIgnored
	vk.CmdPipelineBarrier(c.buffer, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

func (c *CommandBuffer) Handle() vk.CommandBuffer {
	return c.buffer
}
