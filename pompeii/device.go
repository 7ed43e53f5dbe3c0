package pompeii

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

type DeviceFeatures struct {
	SamplerAnisotropy bool
	SampleRateShading bool
}

type Device struct {
	GraphicsIndex int
	PresentIndex  int

	GraphicsQueue *Queue
	PresentQueue  *Queue

	gpu           *GPU
	logicalDevice vk.Device
}

func NewDevice(g *GPU, graphicsFamilyIndex, presentFamilyIndex int, extensions []string, features DeviceFeatures) (*Device, error) {
	d := Device{
		GraphicsIndex: graphicsFamilyIndex,
		PresentIndex:  presentFamilyIndex,
		gpu:           g,
	}

	queuePriorities := []float32{1.0}
	queueInfos := []vk.DeviceQueueCreateInfo{
		{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: uint32(graphicsFamilyIndex),
			QueueCount:       uint32(len(queuePriorities)),
			PQueuePriorities: queuePriorities,
		},
	}
	if presentFamilyIndex != graphicsFamilyIndex {
		queueInfos = append(queueInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: uint32(presentFamilyIndex),
			QueueCount:       uint32(len(queuePriorities)),
			PQueuePriorities: queuePriorities,
		})
	}

	enabled := vk.PhysicalDeviceFeatures{}
	if features.SamplerAnisotropy {
		enabled.SamplerAnisotropy = vk.True
	}
	if features.SampleRateShading {
		enabled.SampleRateShading = vk.True
	}

	deviceExtensions := vkStrings(extensions)
	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{enabled},
		EnabledLayerCount:       0,
		PpEnabledLayerNames:     nil,
		EnabledExtensionCount:   uint32(len(deviceExtensions)),
		PpEnabledExtensionNames: deviceExtensions,
	}
	if result := vk.CreateDevice(g.Handle(), &deviceCreateInfo, nil, &d.logicalDevice); result != vk.Success {
		return nil, errors.Wrap(vk.Error(result), "create device")
	}

	d.GraphicsQueue = newQueue(&d, graphicsFamilyIndex)
	d.PresentQueue = newQueue(&d, presentFamilyIndex)

	return &d, nil
}

func (d *Device) Destroy() {
	if d.logicalDevice == nil {
		return
	}
	d.WaitIdle()
	vk.DestroyDevice(d.logicalDevice, nil)
	d.logicalDevice = nil
}

func (d *Device) WaitIdle() error {
	if result := vk.DeviceWaitIdle(d.logicalDevice); result != vk.Success {
		return errors.Wrap(vk.Error(result), "device wait idle")
	}
	return nil
}

func (d *Device) GPU() *GPU {
	return d.gpu
}

func (d *Device) Handle() vk.Device {
	return d.logicalDevice
}
