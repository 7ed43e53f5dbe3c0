package pompeii

import (
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

const HostVisible = vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit

type Buffer struct {
	logicalDevice vk.Device
	buffer        vk.Buffer
	memory        vk.DeviceMemory

	Size vk.DeviceSize
}

func NewBuffer(d *Device, size vk.DeviceSize, usage vk.BufferUsageFlagBits, properties vk.MemoryPropertyFlagBits) (*Buffer, error) {
	b := Buffer{
		logicalDevice: d.Handle(),
		buffer:        vk.Buffer(vk.NullHandle),
		memory:        vk.DeviceMemory(vk.NullHandle),
		Size:          size,
	}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}
	if result := vk.CreateBuffer(d.Handle(), &bufferInfo, nil, &b.buffer); result != vk.Success {
		return nil, errors.Wrap(vk.Error(result), "create buffer")
	}

	var memReq vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.Handle(), b.buffer, &memReq)
	memReq.Deref()

	memoryType, err := d.GPU().FindMemoryType(memReq.MemoryTypeBits, properties)
	if err != nil {
		b.Destroy()
		return nil, errors.Wrap(err, "buffer memory")
	}
	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReq.Size,
		MemoryTypeIndex: memoryType,
	}
	if result := vk.AllocateMemory(d.Handle(), &allocInfo, nil, &b.memory); result != vk.Success {
		b.Destroy()
		return nil, errors.Wrap(vk.Error(result), "allocate buffer memory")
	}
	if result := vk.BindBufferMemory(d.Handle(), b.buffer, b.memory, 0); result != vk.Success {
		b.Destroy()
		return nil, errors.Wrap(vk.Error(result), "bind buffer memory")
	}

	return &b, nil
}

// Write maps the buffer, copies data to its start and unmaps it again. The
// buffer must be host visible.
func (b *Buffer) Write(data []byte) error {
	if vk.DeviceSize(len(data)) > b.Size {
		return errors.Errorf("write of %d bytes into buffer of %d", len(data), b.Size)
	}
	if len(data) == 0 {
		return nil
	}

	var mapped unsafe.Pointer
	if result := vk.MapMemory(b.logicalDevice, b.memory, 0, vk.DeviceSize(len(data)), 0, &mapped); result != vk.Success {
		return errors.Wrap(vk.Error(result), "map buffer memory")
	}
	copy(bytesOf(mapped, len(data)), data)
	vk.UnmapMemory(b.logicalDevice, b.memory)

	return nil
}

func (b *Buffer) Destroy() {
	if b.buffer != vk.Buffer(vk.NullHandle) {
		vk.DestroyBuffer(b.logicalDevice, b.buffer, nil)
		b.buffer = vk.Buffer(vk.NullHandle)
	}
	if b.memory != vk.DeviceMemory(vk.NullHandle) {
		vk.FreeMemory(b.logicalDevice, b.memory, nil)
		b.memory = vk.DeviceMemory(vk.NullHandle)
	}
}

func (b *Buffer) Handle() vk.Buffer {
	return b.buffer
}

// NewDeviceLocalBuffer uploads data through a staging buffer into a new
// device local buffer with the given usage.
func NewDeviceLocalBuffer(d *Device, pool *CommandPool, data []byte, usage vk.BufferUsageFlagBits) (*Buffer, error) {
	size := vk.DeviceSize(len(data))
	staging, err := NewBuffer(d, size, vk.BufferUsageTransferSrcBit, HostVisible)
	if err != nil {
		return nil, errors.Wrap(err, "staging buffer")
	}
	defer staging.Destroy()
	if err := staging.Write(data); err != nil {
		return nil, err
	}

	b, err := NewBuffer(d, size, usage|vk.BufferUsageTransferDstBit, vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		return nil, err
	}
	err = pool.OneShot(d.GraphicsQueue, func(cb *CommandBuffer) error {
		cb.CopyBuffer(staging, b, size)
		return nil
	})
	if err != nil {
		b.Destroy()
		return nil, errors.Wrap(err, "copy staging buffer")
	}

	return b, nil
}
