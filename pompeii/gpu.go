package pompeii

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

type GPUType uint32

const (
	GPUTypeOther      GPUType = GPUType(vk.PhysicalDeviceTypeOther)
	GPUTypeIntegrated         = GPUType(vk.PhysicalDeviceTypeIntegratedGpu)
	GPUTypeDiscrete           = GPUType(vk.PhysicalDeviceTypeDiscreteGpu)
	GPUTypeVirtual            = GPUType(vk.PhysicalDeviceTypeVirtualGpu)
	GPUTypeCPU                = GPUType(vk.PhysicalDeviceTypeCpu)
)

func (g GPUType) String() string {
	switch g {
	case GPUTypeOther:
		return "Other"
	case GPUTypeIntegrated:
		return "Integrated"
	case GPUTypeDiscrete:
		return "Discrete"
	case GPUTypeVirtual:
		return "Virtual"
	case GPUTypeCPU:
		return "CPU"
	default:
		panic("unreachable")
	}
}

type QueueFamily struct {
	Index    int
	Graphics bool
	Compute  bool
	Transfer bool

	physicalDevice vk.PhysicalDevice
}

func (q *QueueFamily) SurfacePresentSupport(surface Surface) bool {
	var presentSupport vk.Bool32
	vk.GetPhysicalDeviceSurfaceSupport(q.physicalDevice, uint32(q.Index), surface.Handle(), &presentSupport)
	return (presentSupport > 0)
}

type GPU struct {
	Name string
	Type GPUType

	physicalDevice vk.PhysicalDevice
	props          vk.PhysicalDeviceProperties
	memProps       vk.PhysicalDeviceMemoryProperties
	features       vk.PhysicalDeviceFeatures
}

func newGPU(physicalDevice vk.PhysicalDevice) GPU {
	g := GPU{
		physicalDevice: physicalDevice,
	}

	vk.GetPhysicalDeviceProperties(g.physicalDevice, &g.props)
	g.props.Deref()
	g.props.Limits.Deref()
	g.props.SparseProperties.Deref()

	vk.GetPhysicalDeviceMemoryProperties(g.physicalDevice, &g.memProps)
	g.memProps.Deref()

	vk.GetPhysicalDeviceFeatures(g.physicalDevice, &g.features)
	g.features.Deref()

	g.Name = vk.ToString(g.props.DeviceName[:])
	g.Type = GPUType(g.props.DeviceType)

	return g
}

func (g *GPU) Debug() string {
	buffer := bytes.Buffer{}

	buffer.WriteString(fmt.Sprintln("Device Name:", g.Name))
	buffer.WriteString(fmt.Sprintln("Device Type:", g.Type))
	buffer.WriteString("## Backend\n")
	buffer.WriteString(fmt.Sprintf("Vulkan v%d.%d.%d\n",
		(g.props.ApiVersion>>22)&0x3ff,
		(g.props.ApiVersion>>12)&0x3ff,
		g.props.ApiVersion&0xfff,
	))
	buffer.WriteString(fmt.Sprintf("Driver v%d.%d.%d\n",
		(g.props.DriverVersion>>22)&0x3ff,
		(g.props.DriverVersion>>12)&0x3ff,
		g.props.DriverVersion&0xfff,
	))
	buffer.WriteString(fmt.Sprintln("Max Image Dimension:", g.props.Limits.MaxImageDimension2D))
	buffer.WriteString(fmt.Sprintln("Max Viewports:", g.props.Limits.MaxViewports))
	buffer.WriteString(fmt.Sprintln("Max Viewport Dimensions:", g.props.Limits.MaxViewportDimensions[0], g.props.Limits.MaxViewportDimensions[1]))
	buffer.WriteString(fmt.Sprintln("Max Sampler Anisotropy:", g.props.Limits.MaxSamplerAnisotropy))

	return buffer.String()
}

func (g *GPU) QueueFamilies() ([]QueueFamily, error) {
	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(g.physicalDevice, &queueFamilyCount, nil)
	if queueFamilyCount == 0 {
		return nil, errors.New("no queue families")
	}

	families := []QueueFamily{}

	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(g.physicalDevice, &queueFamilyCount, queueFamilies)
	for i, family := range queueFamilies {
		family.Deref()

		families = append(families, QueueFamily{
			Index:          i,
			Graphics:       (family.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0),
			Compute:        (family.QueueFlags&vk.QueueFlags(vk.QueueComputeBit) != 0),
			Transfer:       (family.QueueFlags&vk.QueueFlags(vk.QueueTransferBit) != 0),
			physicalDevice: g.physicalDevice,
		})
	}

	return families, nil
}

// PickQueueFamilies returns a graphics family and a family able to present
// to surface, preferring one family that does both.
func (g *GPU) PickQueueFamilies(surface Surface) (graphics, present int, err error) {
	families, err := g.QueueFamilies()
	if err != nil {
		return -1, -1, err
	}
	graphics, present = -1, -1
	for t := range families {
		family := &families[t]
		supported := family.SurfacePresentSupport(surface)
		if family.Graphics && supported {
			return family.Index, family.Index, nil
		}
		if family.Graphics && graphics < 0 {
			graphics = family.Index
		}
		if supported && present < 0 {
			present = family.Index
		}
	}
	if graphics < 0 || present < 0 {
		return graphics, present, errors.New("incomplete queue families")
	}
	return graphics, present, nil
}

func (g *GPU) Extensions() ([]string, error) {
	var count uint32
	if result := vk.EnumerateDeviceExtensionProperties(g.physicalDevice, "", &count, nil); result != vk.Success {
		return nil, errors.Wrap(vk.Error(result), "could not count device extensions")
	}
	extensions := make([]vk.ExtensionProperties, count)
	if result := vk.EnumerateDeviceExtensionProperties(g.physicalDevice, "", &count, extensions); result != vk.Success {
		return nil, errors.Wrap(vk.Error(result), "could not get device extensions")
	}

	names := make([]string, count)
	for t, ext := range extensions {
		ext.Deref()
		names[t] = vk.ToString(ext.ExtensionName[:])
	}
	return names, nil
}

func (g *GPU) SupportsExtensions(names []string) bool {
	available, err := g.Extensions()
	if err != nil {
		return false
	}
	for _, name := range names {
		if !inStringSlice(available, name) {
			return false
		}
	}
	return true
}

type gpuTraits struct {
	discrete          bool
	maxImageDimension uint32
	anisotropy        bool
	queuesComplete    bool
	extensions        bool
	swapchainAdequate bool
}

// rateGPU scores a device; zero means unusable.
func rateGPU(t gpuTraits) int {
	if !t.anisotropy || !t.queuesComplete || !t.extensions || !t.swapchainAdequate {
		return 0
	}
	score := 0
	if t.discrete {
		score += 1000
	}
	score += int(t.maxImageDimension)
	return score
}

// Rate scores the GPU for rendering to surface with the given device
// extensions. Zero means the GPU cannot be used.
func (g *GPU) Rate(surface Surface, extensions []string) int {
	traits := gpuTraits{
		discrete:          g.Type == GPUTypeDiscrete,
		maxImageDimension: g.props.Limits.MaxImageDimension2D,
		anisotropy:        g.features.SamplerAnisotropy == vk.True,
		extensions:        g.SupportsExtensions(extensions),
	}
	if _, _, err := g.PickQueueFamilies(surface); err == nil {
		traits.queuesComplete = true
	}
	if traits.extensions {
		support, err := QuerySwapchainSupport(g, surface)
		traits.swapchainAdequate = err == nil && support.Adequate()
	}
	return rateGPU(traits)
}

func (g *GPU) SampleRateShading() bool {
	return g.features.SampleRateShading == vk.True
}

func (g *GPU) MaxSamplerAnisotropy() float32 {
	return g.props.Limits.MaxSamplerAnisotropy
}

// MaxUsableSampleCount returns the highest sample count supported by both
// color and depth framebuffers, capped at limit.
func (g *GPU) MaxUsableSampleCount(limit vk.SampleCountFlagBits) vk.SampleCountFlagBits {
	counts := g.props.Limits.FramebufferColorSampleCounts & g.props.Limits.FramebufferDepthSampleCounts
	return highestSampleCount(counts, limit)
}

var sampleCounts = []vk.SampleCountFlagBits{
	vk.SampleCount64Bit,
	vk.SampleCount32Bit,
	vk.SampleCount16Bit,
	vk.SampleCount8Bit,
	vk.SampleCount4Bit,
	vk.SampleCount2Bit,
}

func highestSampleCount(counts vk.SampleCountFlags, limit vk.SampleCountFlagBits) vk.SampleCountFlagBits {
	for _, count := range sampleCounts {
		if count > limit {
			continue
		}
		if counts&vk.SampleCountFlags(count) != 0 {
			return count
		}
	}
	return vk.SampleCount1Bit
}

func (g *GPU) FindSupportedFormat(candidates []vk.Format, tiling vk.ImageTiling, features vk.FormatFeatureFlags) (vk.Format, error) {
	for _, format := range candidates {
		var props vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(g.physicalDevice, format, &props)
		props.Deref()
		if tiling == vk.ImageTilingLinear && props.LinearTilingFeatures&features == features {
			return format, nil
		}
		if tiling == vk.ImageTilingOptimal && props.OptimalTilingFeatures&features == features {
			return format, nil
		}
	}
	return vk.FormatUndefined, errors.New("failed to find supported format")
}

var depthFormats = []vk.Format{
	vk.FormatD32Sfloat,
	vk.FormatD32SfloatS8Uint,
	vk.FormatD24UnormS8Uint,
}

func (g *GPU) DepthFormat() (vk.Format, error) {
	return g.FindSupportedFormat(depthFormats, vk.ImageTilingOptimal, vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit))
}

func HasStencilComponent(format vk.Format) bool {
	return format == vk.FormatD32SfloatS8Uint || format == vk.FormatD24UnormS8Uint
}

// SupportsLinearBlit reports whether format can be blitted with linear
// filtering in optimal tiling, which mipmap generation needs.
func (g *GPU) SupportsLinearBlit(format vk.Format) bool {
	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(g.physicalDevice, format, &props)
	props.Deref()
	return props.OptimalTilingFeatures&vk.FormatFeatureFlags(vk.FormatFeatureSampledImageFilterLinearBit) != 0
}

func (g *GPU) FindMemoryType(filter uint32, properties vk.MemoryPropertyFlagBits) (uint32, error) {
	flags := make([]vk.MemoryPropertyFlags, g.memProps.MemoryTypeCount)
	for t := range flags {
		memoryType := g.memProps.MemoryTypes[t]
		memoryType.Deref()
		flags[t] = memoryType.PropertyFlags
	}
	index, ok := pickMemoryType(flags, filter, vk.MemoryPropertyFlags(properties))
	if !ok {
		return 0, errors.New("failed to find suitable memory type")
	}
	return index, nil
}

func pickMemoryType(types []vk.MemoryPropertyFlags, filter uint32, want vk.MemoryPropertyFlags) (uint32, bool) {
	for t, flags := range types {
		if filter&(1<<uint(t)) != 0 && flags&want == want {
			return uint32(t), true
		}
	}
	return 0, false
}

func (g *GPU) Handle() vk.PhysicalDevice {
	return g.physicalDevice
}
