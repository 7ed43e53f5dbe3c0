package pompeii

import (
	"math"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

type ImageConfig struct {
	Width, Height uint32
	MipLevels     uint32
	Samples       vk.SampleCountFlagBits
	Format        vk.Format
	Usage         vk.ImageUsageFlagBits
	Properties    vk.MemoryPropertyFlagBits
}

type Image struct {
	Width     uint32
	Height    uint32
	MipLevels uint32
	Format    vk.Format

	logicalDevice vk.Device
	image         vk.Image
	memory        vk.DeviceMemory
}

func NewImage(d *Device, config ImageConfig) (*Image, error) {
	if config.MipLevels == 0 {
		config.MipLevels = 1
	}
	if config.Samples == 0 {
		config.Samples = vk.SampleCount1Bit
	}

	i := Image{
		Width:         config.Width,
		Height:        config.Height,
		MipLevels:     config.MipLevels,
		Format:        config.Format,
		logicalDevice: d.Handle(),
		image:         vk.Image(vk.NullHandle),
		memory:        vk.DeviceMemory(vk.NullHandle),
	}

	createInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  config.Width,
			Height: config.Height,
			Depth:  1,
		},
		MipLevels:     config.MipLevels,
		ArrayLayers:   1,
		Format:        config.Format,
		Tiling:        vk.ImageTilingOptimal,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         vk.ImageUsageFlags(config.Usage),
		Samples:       config.Samples,
		SharingMode:   vk.SharingModeExclusive,
	}
	if result := vk.CreateImage(d.Handle(), &createInfo, nil, &i.image); result != vk.Success {
		return nil, errors.Wrap(vk.Error(result), "create image")
	}

	var memReq vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.Handle(), i.image, &memReq)
	memReq.Deref()

	memoryType, err := d.GPU().FindMemoryType(memReq.MemoryTypeBits, config.Properties)
	if err != nil {
		i.Destroy()
		return nil, errors.Wrap(err, "image memory")
	}
	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReq.Size,
		MemoryTypeIndex: memoryType,
	}
	if result := vk.AllocateMemory(d.Handle(), &allocInfo, nil, &i.memory); result != vk.Success {
		i.Destroy()
		return nil, errors.Wrap(vk.Error(result), "allocate image memory")
	}
	if result := vk.BindImageMemory(d.Handle(), i.image, i.memory, 0); result != vk.Success {
		i.Destroy()
		return nil, errors.Wrap(vk.Error(result), "bind image memory")
	}

	return &i, nil
}

func (i *Image) Destroy() {
	if i.image != vk.Image(vk.NullHandle) {
		vk.DestroyImage(i.logicalDevice, i.image, nil)
		i.image = vk.Image(vk.NullHandle)
	}
	if i.memory != vk.DeviceMemory(vk.NullHandle) {
		vk.FreeMemory(i.logicalDevice, i.memory, nil)
		i.memory = vk.DeviceMemory(vk.NullHandle)
	}
}

func (i *Image) Handle() vk.Image {
	return i.image
}

// MipLevels is the length of a full mip chain down to 1x1.
func MipLevels(width, height uint32) uint32 {
	max := width
	if height > max {
		max = height
	}
	if max == 0 {
		return 1
	}
	return uint32(math.Floor(math.Log2(float64(max)))) + 1
}

func aspectFor(format vk.Format, layout vk.ImageLayout) vk.ImageAspectFlags {
	if layout != vk.ImageLayoutDepthStencilAttachmentOptimal {
		return vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}
	aspect := vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	if HasStencilComponent(format) {
		aspect |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	}
	return aspect
}

type transition struct {
	srcAccess vk.AccessFlags
	dstAccess vk.AccessFlags
	srcStage  vk.PipelineStageFlags
	dstStage  vk.PipelineStageFlags
}

func layoutTransition(oldLayout, newLayout vk.ImageLayout) (transition, error) {
	switch {
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutTransferDstOptimal:
		return transition{
			srcAccess: 0,
			dstAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
			srcStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			dstStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		}, nil
	case oldLayout == vk.ImageLayoutTransferDstOptimal && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		return transition{
			srcAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
			dstAccess: vk.AccessFlags(vk.AccessShaderReadBit),
			srcStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			dstStage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		}, nil
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutDepthStencilAttachmentOptimal:
		return transition{
			srcAccess: 0,
			dstAccess: vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit),
			srcStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			dstStage:  vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit),
		}, nil
	}
	return transition{}, errors.Errorf("unsupported layout transition %d -> %d", oldLayout, newLayout)
}

// TransitionImage records a barrier moving every mip level of image from
// oldLayout to newLayout.
func (c *CommandBuffer) TransitionImage(image *Image, oldLayout, newLayout vk.ImageLayout) error {
	t, err := layoutTransition(oldLayout, newLayout)
	if err != nil {
		return err
	}
	c.imageBarrier(t.srcStage, t.dstStage, vk.ImageMemoryBarrier{
		OldLayout:     oldLayout,
		NewLayout:     newLayout,
		SrcAccessMask: t.srcAccess,
		DstAccessMask: t.dstAccess,
		Image:         image.Handle(),
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspectFor(image.Format, newLayout),
			BaseMipLevel:   0,
			LevelCount:     image.MipLevels,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	})
	return nil
}

func halve(v int32) int32 {
	if v > 1 {
		return v / 2
	}
	return 1
}

// GenerateMipmaps fills levels 1..n of image by successive linear blits
// from level 0 and leaves every level shader readable. Every level must
// be in transfer destination layout.
func (c *CommandBuffer) GenerateMipmaps(image *Image) {
	barrier := vk.ImageMemoryBarrier{
		Image: image.Handle(),
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseArrayLayer: 0,
			LayerCount:     1,
			LevelCount:     1,
		},
	}

	width, height := int32(image.Width), int32(image.Height)
	for level := uint32(1); level < image.MipLevels; level++ {
		barrier.SubresourceRange.BaseMipLevel = level - 1
		barrier.OldLayout = vk.ImageLayoutTransferDstOptimal
		barrier.NewLayout = vk.ImageLayoutTransferSrcOptimal
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessTransferReadBit)
		c.imageBarrier(vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit), barrier)

		blit := vk.ImageBlit{
			SrcSubresource: vk.ImageSubresourceLayers{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				MipLevel:       level - 1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			SrcOffsets: [2]vk.Offset3D{{X: 0, Y: 0, Z: 0}, {X: width, Y: height, Z: 1}},
			DstSubresource: vk.ImageSubresourceLayers{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				MipLevel:       level,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			DstOffsets: [2]vk.Offset3D{{X: 0, Y: 0, Z: 0}, {X: halve(width), Y: halve(height), Z: 1}},
		}
		vk.CmdBlitImage(c.buffer,
			image.Handle(), vk.ImageLayoutTransferSrcOptimal,
			image.Handle(), vk.ImageLayoutTransferDstOptimal,
			1, []vk.ImageBlit{blit}, vk.FilterLinear)

		barrier.OldLayout = vk.ImageLayoutTransferSrcOptimal
		barrier.NewLayout = vk.ImageLayoutShaderReadOnlyOptimal
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferReadBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
		c.imageBarrier(vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), barrier)

		width, height = halve(width), halve(height)
	}

	barrier.SubresourceRange.BaseMipLevel = image.MipLevels - 1
	barrier.OldLayout = vk.ImageLayoutTransferDstOptimal
	barrier.NewLayout = vk.ImageLayoutShaderReadOnlyOptimal
	barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
	barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
	c.imageBarrier(vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), barrier)
}

type ImageView struct {
	logicalDevice vk.Device
	view          vk.ImageView
}

func NewImageView(d *Device, image vk.Image, format vk.Format, aspect vk.ImageAspectFlags, mipLevels uint32) (*ImageView, error) {
	v := ImageView{
		logicalDevice: d.Handle(),
	}

	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     mipLevels,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	if result := vk.CreateImageView(d.Handle(), &viewInfo, nil, &v.view); result != vk.Success {
		return nil, errors.Wrap(vk.Error(result), "create image view")
	}

	return &v, nil
}

func (v *ImageView) Destroy() {
	if v.view != vk.ImageView(vk.NullHandle) {
		vk.DestroyImageView(v.logicalDevice, v.view, nil)
		v.view = vk.ImageView(vk.NullHandle)
	}
}

func (v *ImageView) Handle() vk.ImageView {
	return v.view
}

type Sampler struct {
	logicalDevice vk.Device
	sampler       vk.Sampler
}

// NewSampler creates a repeating trilinear sampler covering mipLevels with
// the given anisotropy. Anisotropy below 1 disables it.
func NewSampler(d *Device, maxAnisotropy float32, mipLevels uint32) (*Sampler, error) {
	s := Sampler{
		logicalDevice: d.Handle(),
	}

	samplerInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		MipLodBias:              0,
		MinLod:                  0,
		MaxLod:                  float32(mipLevels),
	}
	if maxAnisotropy >= 1 {
		samplerInfo.AnisotropyEnable = vk.True
		samplerInfo.MaxAnisotropy = maxAnisotropy
	}
	if result := vk.CreateSampler(d.Handle(), &samplerInfo, nil, &s.sampler); result != vk.Success {
		return nil, errors.Wrap(vk.Error(result), "create sampler")
	}

	return &s, nil
}

func (s *Sampler) Destroy() {
	if s.sampler != vk.Sampler(vk.NullHandle) {
		vk.DestroySampler(s.logicalDevice, s.sampler, nil)
		s.sampler = vk.Sampler(vk.NullHandle)
	}
}

func (s *Sampler) Handle() vk.Sampler {
	return s.sampler
}
