package pompeii

import (
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/perlw/vkmodel/logger"
)

const debugReportExtension = "VK_EXT_debug_report"

type Instance struct {
	log logger.Logger

	instance vk.Instance
	dbg      vk.DebugReportCallback

	Layers     []string
	Extensions []string
}

// NewInstance enables the requested layers and extensions that are
// available. required extensions fail creation when missing, optional
// ones are skipped with a warning.
func NewInstance(log logger.Logger, appName, engineName string, layers, required, optional []string) (*Instance, error) {
	i := Instance{
		log: log,
		dbg: vk.NullDebugReportCallback,
	}

	if len(layers) > 0 {
		available, err := getAvailableInstanceLayers()
		if err != nil {
			return nil, errors.Wrap(err, "could not get layers")
		}
		for _, name := range layers {
			if inStringSlice(available, name) {
				i.Layers = append(i.Layers, name)
			} else {
				i.log.Warn("missing layer %s", name)
			}
		}
	}

	available, err := getAvailableInstanceExtensions()
	if err != nil {
		return nil, errors.Wrap(err, "could not get instance extensions")
	}
	for _, name := range required {
		if !inStringSlice(available, name) {
			return nil, errors.Errorf("missing required instance extension %s", name)
		}
		i.Extensions = append(i.Extensions, name)
	}
	debug := false
	for _, name := range optional {
		if inStringSlice(available, name) {
			if name == debugReportExtension {
				debug = true
			}
			i.Extensions = append(i.Extensions, name)
		} else {
			i.log.Warn("missing extension %s", name)
		}
	}

	activeLayers := vkStrings(i.Layers)
	activeExtensions := vkStrings(i.Extensions)
	instanceInfo := vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			PApplicationName:   vkString(appName),
			ApplicationVersion: vk.MakeVersion(1, 0, 0),
			PEngineName:        vkString(engineName),
			EngineVersion:      vk.MakeVersion(0, 1, 0),
			ApiVersion:         vk.MakeVersion(1, 0, 0),
		},
		EnabledLayerCount:       uint32(len(activeLayers)),
		PpEnabledLayerNames:     activeLayers,
		EnabledExtensionCount:   uint32(len(activeExtensions)),
		PpEnabledExtensionNames: activeExtensions,
	}

	if result := vk.CreateInstance(&instanceInfo, nil, &i.instance); result != vk.Success {
		return nil, errors.Wrap(vk.Error(result), "could not create instance")
	}

	if err := vk.InitInstance(i.instance); err != nil {
		vk.DestroyInstance(i.instance, nil)
		return nil, errors.Wrap(err, "could not init instance")
	}

	i.log.Log("instance created; layers: %v exts: %v", i.Layers, i.Extensions)

	if debug {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: i.debugReport,
		}
		if result := vk.CreateDebugReportCallback(i.instance, &debugCreateInfo, nil, &i.dbg); result != vk.Success {
			vk.DestroyInstance(i.instance, nil)
			return nil, errors.Wrap(vk.Error(result), "creating debug report")
		}
	}

	return &i, nil
}

func (i *Instance) Destroy() {
	if i.dbg != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(i.instance, i.dbg, nil)
		i.dbg = vk.NullDebugReportCallback
	}
	if i.instance != nil {
		vk.DestroyInstance(i.instance, nil)
		i.instance = nil
	}
}

func (i *Instance) debugReport(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		i.log.Err(nil, "[VK %d] %s on layer %s", messageCode, pMessage, pLayerPrefix)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0,
		flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		i.log.Warn("[VK %d] %s on layer %s", messageCode, pMessage, pLayerPrefix)
	default:
		i.log.Trace("[VK %d] %s on layer %s", messageCode, pMessage, pLayerPrefix)
	}
	return vk.Bool32(vk.False)
}

func (i *Instance) EnumerateGPUs() ([]GPU, error) {
	var gpuCount uint32
	if result := vk.EnumeratePhysicalDevices(i.instance, &gpuCount, nil); result != vk.Success {
		return nil, errors.Wrap(vk.Error(result), "could not count gpus")
	}
	if gpuCount == 0 {
		return nil, errors.New("no valid gpus")
	}
	vkGPUs := make([]vk.PhysicalDevice, gpuCount)
	if result := vk.EnumeratePhysicalDevices(i.instance, &gpuCount, vkGPUs); result != vk.Success {
		return nil, errors.Wrap(vk.Error(result), "could not enumerate gpus")
	}

	gpus := make([]GPU, gpuCount)
	for t, gpu := range vkGPUs {
		gpus[t] = newGPU(gpu)
	}

	return gpus, nil
}

func (i *Instance) Handle() vk.Instance {
	return i.instance
}
