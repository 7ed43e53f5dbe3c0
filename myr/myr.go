package myr

import (
	"os"

	"github.com/pkg/errors"
	"github.com/vulkan-go/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"

	"github.com/perlw/vkmodel/asset"
	"github.com/perlw/vkmodel/frame"
	"github.com/perlw/vkmodel/logger"
	"github.com/perlw/vkmodel/pompeii"
)

const engineName = "MYR"

// Myr owns the window, the device and everything that outlives a
// swapchain: the loaded model and texture, shaders and layouts.
type Myr struct {
	log logger.Logger
	cfg Config

	arena pompeii.Arena

	window   *Window
	instance *pompeii.Instance
	gpu      *pompeii.GPU
	surface  pompeii.Surface
	device   *pompeii.Device
	pool     *pompeii.CommandPool

	depthFormat      vk.Format
	samples          vk.SampleCountFlagBits
	minSampleShading float32

	texture     *pompeii.Image
	textureView *pompeii.ImageView
	sampler     *pompeii.Sampler

	vertices   *pompeii.Buffer
	indices    *pompeii.Buffer
	indexCount uint32

	vertexShader   *pompeii.ShaderModule
	fragmentShader *pompeii.ShaderModule
	setLayout      *pompeii.DescriptorSetLayout
	pipelineLayout *pompeii.PipelineLayout

	scene *scene
}

func New(cfg Config, log logger.Logger) (*Myr, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	m := Myr{
		log: log,
		cfg: cfg,
	}
	if err := m.setup(); err != nil {
		m.Destroy()
		return nil, err
	}
	m.scene = newScene(&m)
	return &m, nil
}

func (m *Myr) setup() error {
	if err := glfw.Init(); err != nil {
		return errors.Wrap(err, "init glfw")
	}
	m.arena.Track(pompeii.DestroyFunc(glfw.Terminate))
	if !glfw.VulkanSupported() {
		return errors.New("vulkan not supported by window system")
	}

	var err error
	m.window, err = newWindow(m.cfg.AppName, m.cfg.Width, m.cfg.Height)
	if err != nil {
		return err
	}
	m.arena.Track(m.window)

	if err := pompeii.Init(glfw.GetVulkanGetInstanceProcAddress()); err != nil {
		return err
	}

	m.instance, err = pompeii.NewInstance(m.log, m.cfg.AppName, engineName,
		m.cfg.Layers(), m.window.window.GetRequiredInstanceExtensions(), m.cfg.InstanceExtensions)
	if err != nil {
		return err
	}
	m.arena.Track(m.instance)

	surface, err := pompeii.NewWindowSurface(m.instance, m.window.window)
	if err != nil {
		return err
	}
	m.surface = surface
	m.arena.Track(surface)

	if err := m.pickGPU(); err != nil {
		return err
	}
	if err := m.createDevice(); err != nil {
		return err
	}
	if err := m.loadTexture(); err != nil {
		return errors.Wrap(err, "load texture")
	}
	if err := m.loadModel(); err != nil {
		return errors.Wrap(err, "load model")
	}
	return m.createLayouts()
}

func (m *Myr) pickGPU() error {
	gpus, err := m.instance.EnumerateGPUs()
	if err != nil {
		return err
	}

	best := 0
	for t := range gpus {
		score := gpus[t].Rate(m.surface, m.cfg.DeviceExtensions)
		m.log.Log("GPU %d: %s, score %d", t, gpus[t].Name, score)
		m.log.Trace("%s", gpus[t].Debug())
		if score > best {
			best = score
			m.gpu = &gpus[t]
		}
	}
	if m.gpu == nil {
		return errors.New("no suitable gpu")
	}
	m.log.Log("picked %s", m.gpu.Name)
	return nil
}

func (m *Myr) createDevice() error {
	graphics, present, err := m.gpu.PickQueueFamilies(m.surface)
	if err != nil {
		return err
	}

	features := pompeii.DeviceFeatures{
		SamplerAnisotropy: true,
		SampleRateShading: m.gpu.SampleRateShading() && m.cfg.MinSampleShading > 0,
	}
	m.device, err = pompeii.NewDevice(m.gpu, graphics, present, m.cfg.DeviceExtensions, features)
	if err != nil {
		return err
	}
	m.arena.Track(m.device)
	if features.SampleRateShading {
		m.minSampleShading = m.cfg.MinSampleShading
	}

	m.pool, err = pompeii.NewCommandPool(m.device, graphics)
	if err != nil {
		return err
	}
	m.arena.Track(m.pool)

	m.depthFormat, err = m.gpu.DepthFormat()
	if err != nil {
		return errors.Wrap(err, "depth format")
	}
	m.samples = m.gpu.MaxUsableSampleCount(m.cfg.MaxSamples)
	m.log.Log("queues %d/%d, depth format %d, %d samples", graphics, present, m.depthFormat, m.samples)
	return nil
}

const textureFormat = vk.FormatR8g8b8a8Srgb

func (m *Myr) loadTexture() error {
	tex, err := asset.LoadTexture(m.cfg.TexturePath)
	if err != nil {
		return err
	}
	if !m.gpu.SupportsLinearBlit(textureFormat) {
		return errors.New("texture format does not support linear blitting")
	}

	staging, err := pompeii.NewBuffer(m.device, vk.DeviceSize(tex.Size()), vk.BufferUsageTransferSrcBit, pompeii.HostVisible)
	if err != nil {
		return err
	}
	defer staging.Destroy()
	if err := staging.Write(tex.Pixels); err != nil {
		return err
	}

	width, height := uint32(tex.Width), uint32(tex.Height)
	m.texture, err = pompeii.NewImage(m.device, pompeii.ImageConfig{
		Width:      width,
		Height:     height,
		MipLevels:  pompeii.MipLevels(width, height),
		Format:     textureFormat,
		Usage:      vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit,
		Properties: vk.MemoryPropertyDeviceLocalBit,
	})
	if err != nil {
		return err
	}
	m.arena.Track(m.texture)

	err = m.pool.OneShot(m.device.GraphicsQueue, func(cb *pompeii.CommandBuffer) error {
		if err := cb.TransitionImage(m.texture, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
			return err
		}
		cb.CopyBufferToImage(staging, m.texture)
		cb.GenerateMipmaps(m.texture)
		return nil
	})
	if err != nil {
		return err
	}

	m.textureView, err = pompeii.NewImageView(m.device, m.texture.Handle(), textureFormat,
		vk.ImageAspectFlags(vk.ImageAspectColorBit), m.texture.MipLevels)
	if err != nil {
		return err
	}
	m.arena.Track(m.textureView)

	m.sampler, err = pompeii.NewSampler(m.device, m.gpu.MaxSamplerAnisotropy(), m.texture.MipLevels)
	if err != nil {
		return err
	}
	m.arena.Track(m.sampler)

	m.log.Log("texture %dx%d, %d mip levels", width, height, m.texture.MipLevels)
	return nil
}

func (m *Myr) loadModel() error {
	vertices, indices, err := asset.LoadOBJ(m.cfg.ModelPath)
	if err != nil {
		return err
	}

	m.vertices, err = pompeii.NewDeviceLocalBuffer(m.device, m.pool, vertexBytes(vertices), vk.BufferUsageVertexBufferBit)
	if err != nil {
		return errors.Wrap(err, "vertex buffer")
	}
	m.arena.Track(m.vertices)

	m.indices, err = pompeii.NewDeviceLocalBuffer(m.device, m.pool, indexBytes(indices), vk.BufferUsageIndexBufferBit)
	if err != nil {
		return errors.Wrap(err, "index buffer")
	}
	m.arena.Track(m.indices)
	m.indexCount = uint32(len(indices))

	m.log.Log("model %d vertices, %d indices", len(vertices), len(indices))
	return nil
}

func (m *Myr) loadShader(path string) (*pompeii.ShaderModule, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read shader")
	}
	shader, err := pompeii.NewShaderModule(m.device, code)
	if err != nil {
		return nil, errors.Wrapf(err, "shader %s", path)
	}
	m.arena.Track(shader)
	return shader, nil
}

func (m *Myr) createLayouts() error {
	var err error
	if m.vertexShader, err = m.loadShader(m.cfg.VertexPath); err != nil {
		return err
	}
	if m.fragmentShader, err = m.loadShader(m.cfg.FragmentPath); err != nil {
		return err
	}

	m.setLayout, err = pompeii.NewDescriptorSetLayout(m.device,
		pompeii.DescriptorBinding{Binding: 0, Type: vk.DescriptorTypeUniformBuffer, Stages: vk.ShaderStageVertexBit},
		pompeii.DescriptorBinding{Binding: 1, Type: vk.DescriptorTypeCombinedImageSampler, Stages: vk.ShaderStageFragmentBit},
	)
	if err != nil {
		return err
	}
	m.arena.Track(m.setLayout)

	m.pipelineLayout, err = pompeii.NewPipelineLayout(m.device, m.setLayout)
	if err != nil {
		return err
	}
	m.arena.Track(m.pipelineLayout)
	return nil
}

// Destroy releases the scene's leftovers and everything created by New,
// newest first. The device is idled before it goes.
func (m *Myr) Destroy() {
	if m.scene != nil {
		m.scene.Teardown()
	}
	m.arena.Release()
}

func (m *Myr) Window() frame.Window {
	return m.window
}

func (m *Myr) Device() frame.Device {
	return m.device
}

func (m *Myr) Sync() frame.SyncFactory {
	return syncFactory{device: m.device}
}

// Target is the per chain scene the frame engine builds and draws.
func (m *Myr) Target() frame.Target {
	return m.scene
}

func (m *Myr) GPUName() string {
	return m.gpu.Name
}
