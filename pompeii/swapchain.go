package pompeii

import (
	"math"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

type SwapchainSupport struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

func (s SwapchainSupport) Adequate() bool {
	return len(s.Formats) > 0 && len(s.PresentModes) > 0
}

func QuerySwapchainSupport(g *GPU, surface Surface) (SwapchainSupport, error) {
	var s SwapchainSupport

	if result := vk.GetPhysicalDeviceSurfaceCapabilities(g.Handle(), surface.Handle(), &s.Capabilities); result != vk.Success {
		return s, errors.Wrap(vk.Error(result), "get surface capabilities")
	}
	s.Capabilities.Deref()
	s.Capabilities.CurrentExtent.Deref()
	s.Capabilities.MinImageExtent.Deref()
	s.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if result := vk.GetPhysicalDeviceSurfaceFormats(g.Handle(), surface.Handle(), &formatCount, nil); result != vk.Success {
		return s, errors.Wrap(vk.Error(result), "count surface formats")
	}
	if formatCount > 0 {
		s.Formats = make([]vk.SurfaceFormat, formatCount)
		if result := vk.GetPhysicalDeviceSurfaceFormats(g.Handle(), surface.Handle(), &formatCount, s.Formats); result != vk.Success {
			return s, errors.Wrap(vk.Error(result), "get surface formats")
		}
		for t := range s.Formats {
			s.Formats[t].Deref()
		}
	}

	var modeCount uint32
	if result := vk.GetPhysicalDeviceSurfacePresentModes(g.Handle(), surface.Handle(), &modeCount, nil); result != vk.Success {
		return s, errors.Wrap(vk.Error(result), "count present modes")
	}
	if modeCount > 0 {
		s.PresentModes = make([]vk.PresentMode, modeCount)
		if result := vk.GetPhysicalDeviceSurfacePresentModes(g.Handle(), surface.Handle(), &modeCount, s.PresentModes); result != vk.Success {
			return s, errors.Wrap(vk.Error(result), "get present modes")
		}
	}

	return s, nil
}

// ChooseSurfaceFormat prefers 8 bit sRGB BGRA and falls back to the first
// format offered.
func ChooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Srgb && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	return formats[0]
}

// ChoosePresentMode prefers mailbox. FIFO is always available.
func ChoosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, m := range modes {
		if m == vk.PresentModeMailbox {
			return m
		}
	}
	return vk.PresentModeFifo
}

// ChooseExtent uses the surface's extent unless the surface leaves it to
// the application, in which case the window size is clamped to the limits.
func ChooseExtent(caps vk.SurfaceCapabilities, width, height int) vk.Extent2D {
	if caps.CurrentExtent.Width != math.MaxUint32 {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  clamp(uint32(width), caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(uint32(height), caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// ChooseImageCount asks for one image above the minimum. A maximum of zero
// means unbounded.
func ChooseImageCount(caps vk.SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

func clamp(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type Swapchain struct {
	Format vk.Format
	Extent vk.Extent2D
	Images []vk.Image
	Views  []*ImageView

	logicalDevice vk.Device
	swapchain     vk.Swapchain
}

// NewSwapchain builds a chain for surface sized to the drawable area,
// with one view per image.
func NewSwapchain(d *Device, surface Surface, width, height int) (*Swapchain, error) {
	support, err := QuerySwapchainSupport(d.GPU(), surface)
	if err != nil {
		return nil, err
	}
	if !support.Adequate() {
		return nil, errors.New("surface has no formats or present modes")
	}

	format := ChooseSurfaceFormat(support.Formats)
	s := Swapchain{
		Format:        format.Format,
		Extent:        ChooseExtent(support.Capabilities, width, height),
		logicalDevice: d.Handle(),
		swapchain:     vk.NullSwapchain,
	}

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface.Handle(),
		MinImageCount:    ChooseImageCount(support.Capabilities),
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      s.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      ChoosePresentMode(support.PresentModes),
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}
	if d.GraphicsIndex != d.PresentIndex {
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{uint32(d.GraphicsIndex), uint32(d.PresentIndex)}
	}
	if result := vk.CreateSwapchain(d.Handle(), &createInfo, nil, &s.swapchain); result != vk.Success {
		return nil, errors.Wrap(vk.Error(result), "create swapchain")
	}

	var count uint32
	if result := vk.GetSwapchainImages(d.Handle(), s.swapchain, &count, nil); result != vk.Success {
		s.Destroy()
		return nil, errors.Wrap(vk.Error(result), "count swapchain images")
	}
	s.Images = make([]vk.Image, count)
	if result := vk.GetSwapchainImages(d.Handle(), s.swapchain, &count, s.Images); result != vk.Success {
		s.Destroy()
		return nil, errors.Wrap(vk.Error(result), "get swapchain images")
	}

	for _, image := range s.Images {
		view, err := NewImageView(d, image, s.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit), 1)
		if err != nil {
			s.Destroy()
			return nil, errors.Wrap(err, "swapchain image view")
		}
		s.Views = append(s.Views, view)
	}

	return &s, nil
}

func (s *Swapchain) ImageCount() int {
	return len(s.Images)
}

// Acquire fetches the next presentable image, signaling sem when it can be
// rendered to. A suboptimal chain still returns a valid index along with
// ErrSuboptimal.
func (s *Swapchain) Acquire(timeout uint64, sem *Semaphore) (uint32, error) {
	var index uint32
	result := vk.AcquireNextImage(s.logicalDevice, s.swapchain, timeout, sem.Handle(), vk.Fence(vk.NullHandle), &index)
	return index, resultError(result, "acquire next image")
}

func (s *Swapchain) Destroy() {
	for _, view := range s.Views {
		view.Destroy()
	}
	s.Views = nil
	if s.swapchain != vk.NullSwapchain {
		vk.DestroySwapchain(s.logicalDevice, s.swapchain, nil)
		s.swapchain = vk.NullSwapchain
	}
	s.Images = nil
}

func (s *Swapchain) Handle() vk.Swapchain {
	return s.swapchain
}
