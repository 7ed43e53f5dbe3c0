package myr

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/perlw/vkmodel/frame"
)

// Config is read once at startup and never changed.
type Config struct {
	AppName string
	Width   int
	Height  int

	ModelPath    string
	TexturePath  string
	VertexPath   string
	FragmentPath string

	FramesInFlight int
	// FenceTimeout in nanoseconds, 0 waits forever.
	FenceTimeout uint64

	Validation       bool
	ValidationLayers []string
	// InstanceExtensions are enabled on top of what the window needs.
	InstanceExtensions []string
	DeviceExtensions   []string

	// MaxSamples caps the multisample count; 1 disables MSAA.
	MaxSamples vk.SampleCountFlagBits
	// MinSampleShading is used when the GPU supports sample shading.
	MinSampleShading float32

	HUD     bool
	LogFile string
	Debug   bool
}

func DefaultConfig() Config {
	return Config{
		AppName: "vkmodel",
		Width:   800,
		Height:  600,

		ModelPath:    "data/model.obj",
		TexturePath:  "data/texture.png",
		VertexPath:   "shaders/vert.spv",
		FragmentPath: "shaders/frag.spv",

		FramesInFlight: frame.DefaultFramesInFlight,
		FenceTimeout:   frame.NoTimeout,

		Validation:         true,
		ValidationLayers:   []string{"VK_LAYER_KHRONOS_validation"},
		InstanceExtensions: []string{"VK_EXT_debug_report"},
		DeviceExtensions:   []string{"VK_KHR_swapchain"},

		MaxSamples:       vk.SampleCount64Bit,
		MinSampleShading: 0.2,

		LogFile: "vkmodel.log",
	}
}

func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return errors.Errorf("invalid window size %dx%d", c.Width, c.Height)
	}
	if c.FramesInFlight < 1 {
		return errors.Errorf("frames in flight must be at least 1, got %d", c.FramesInFlight)
	}
	for name, path := range map[string]string{
		"model":           c.ModelPath,
		"texture":         c.TexturePath,
		"vertex shader":   c.VertexPath,
		"fragment shader": c.FragmentPath,
	} {
		if path == "" {
			return errors.Errorf("missing %s path", name)
		}
	}
	if c.MaxSamples == 0 || c.MaxSamples&(c.MaxSamples-1) != 0 {
		return errors.Errorf("sample cap %d is not a power of two", c.MaxSamples)
	}
	if c.MinSampleShading < 0 || c.MinSampleShading > 1 {
		return errors.Errorf("sample shading %f outside [0, 1]", c.MinSampleShading)
	}
	if c.HUD && c.LogFile == "" {
		return errors.New("hud needs a log file")
	}
	return nil
}

// Layers returns the instance layers to request.
func (c Config) Layers() []string {
	if !c.Validation {
		return nil
	}
	return c.ValidationLayers
}

// FrameConfig is the part of c the frame engine uses.
func (c Config) FrameConfig() frame.Config {
	return frame.Config{
		FramesInFlight: c.FramesInFlight,
		FenceTimeout:   c.FenceTimeout,
	}
}
