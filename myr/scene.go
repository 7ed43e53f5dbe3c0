package myr

import (
	"time"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/perlw/vkmodel/frame"
	"github.com/perlw/vkmodel/pompeii"
)

// scene is everything that exists once per swapchain image, rebuilt as a
// unit whenever the chain changes.
type scene struct {
	m     *Myr
	start time.Time

	arena     pompeii.Arena
	swapchain *pompeii.Swapchain
	uniforms  []*pompeii.Buffer
	commands  *pompeii.CommandBuffers
}

func newScene(m *Myr) *scene {
	return &scene{
		m:     m,
		start: time.Now(),
	}
}

func (s *scene) Build(width, height int) (frame.Swapchain, error) {
	if err := s.build(width, height); err != nil {
		s.Teardown()
		return nil, err
	}
	return chain{
		swapchain: s.swapchain,
		present:   s.m.device.PresentQueue,
	}, nil
}

func (s *scene) build(width, height int) error {
	m := s.m
	d := m.device

	swapchain, err := pompeii.NewSwapchain(d, m.surface, width, height)
	if err != nil {
		return errors.Wrap(err, "create swapchain")
	}
	s.arena.Track(swapchain)
	s.swapchain = swapchain
	extent := swapchain.Extent
	count := swapchain.ImageCount()
	m.log.Trace("swapchain %dx%d, %d images, format %d", extent.Width, extent.Height, count, swapchain.Format)

	renderPass, err := pompeii.NewRenderPass(d, swapchain.Format, m.depthFormat, m.samples)
	if err != nil {
		return err
	}
	s.arena.Track(renderPass)

	pipeline, err := pompeii.NewGraphicsPipeline(d, pompeii.PipelineConfig{
		Vertex:           m.vertexShader,
		Fragment:         m.fragmentShader,
		Binding:          vertexBinding(),
		Attributes:       vertexAttributes(),
		Extent:           extent,
		Samples:          m.samples,
		MinSampleShading: m.minSampleShading,
		Layout:           m.pipelineLayout,
		RenderPass:       renderPass,
	})
	if err != nil {
		return err
	}
	s.arena.Track(pipeline)

	var colorView *pompeii.ImageView
	if m.samples != vk.SampleCount1Bit {
		colorView, err = s.attachment(swapchain.Format, vk.ImageUsageTransientAttachmentBit|vk.ImageUsageColorAttachmentBit,
			vk.ImageAspectFlags(vk.ImageAspectColorBit), extent)
		if err != nil {
			return errors.Wrap(err, "color target")
		}
	}

	depthView, err := s.attachment(m.depthFormat, vk.ImageUsageDepthStencilAttachmentBit,
		vk.ImageAspectFlags(vk.ImageAspectDepthBit), extent)
	if err != nil {
		return errors.Wrap(err, "depth target")
	}

	framebuffers := make([]*pompeii.Framebuffer, count)
	for t, view := range swapchain.Views {
		views := []*pompeii.ImageView{view, depthView}
		if colorView != nil {
			views = []*pompeii.ImageView{colorView, depthView, view}
		}
		framebuffers[t], err = pompeii.NewFramebuffer(d, renderPass, views, extent)
		if err != nil {
			return errors.Wrapf(err, "framebuffer %d", t)
		}
		s.arena.Track(framebuffers[t])
	}

	s.uniforms = make([]*pompeii.Buffer, count)
	for t := range s.uniforms {
		s.uniforms[t], err = pompeii.NewBuffer(d, vk.DeviceSize(uniformsSize), vk.BufferUsageUniformBufferBit, pompeii.HostVisible)
		if err != nil {
			return errors.Wrapf(err, "uniform buffer %d", t)
		}
		s.arena.Track(s.uniforms[t])
	}

	descriptorPool, err := pompeii.NewDescriptorPool(d, m.setLayout, count)
	if err != nil {
		return err
	}
	s.arena.Track(descriptorPool)
	sets, err := descriptorPool.Allocate(m.setLayout, count)
	if err != nil {
		return err
	}
	for t, set := range sets {
		set.WriteUniform(0, s.uniforms[t])
		set.WriteSampledImage(1, m.textureView, m.sampler)
	}

	s.commands, err = m.pool.Allocate(count)
	if err != nil {
		return err
	}
	s.arena.Track(s.commands)

	clearValues := make([]vk.ClearValue, 2)
	clearValues[0].SetColor([]float32{0, 0, 0, 1})
	clearValues[1].SetDepthStencil(1, 0)
	for t, cb := range s.commands.Buffers {
		if err := cb.Begin(0); err != nil {
			return errors.Wrapf(err, "record image %d", t)
		}
		cb.BeginRenderPass(renderPass, framebuffers[t], extent, clearValues)
		cb.BindPipeline(pipeline)
		cb.BindVertexBuffer(m.vertices)
		cb.BindIndexBuffer(m.indices)
		cb.BindDescriptorSet(m.pipelineLayout, sets[t])
		cb.DrawIndexed(m.indexCount)
		cb.EndRenderPass()
		if err := cb.End(); err != nil {
			return errors.Wrapf(err, "record image %d", t)
		}
	}

	return nil
}

// attachment creates a device local render target with a view and moves
// depth targets into their attachment layout up front.
func (s *scene) attachment(format vk.Format, usage vk.ImageUsageFlagBits, aspect vk.ImageAspectFlags, extent vk.Extent2D) (*pompeii.ImageView, error) {
	d := s.m.device

	image, err := pompeii.NewImage(d, pompeii.ImageConfig{
		Width:      extent.Width,
		Height:     extent.Height,
		Samples:    s.m.samples,
		Format:     format,
		Usage:      usage,
		Properties: vk.MemoryPropertyDeviceLocalBit,
	})
	if err != nil {
		return nil, err
	}
	s.arena.Track(image)

	view, err := pompeii.NewImageView(d, image.Handle(), format, aspect, 1)
	if err != nil {
		return nil, err
	}
	s.arena.Track(view)

	if usage&vk.ImageUsageDepthStencilAttachmentBit != 0 {
		err := s.m.pool.OneShot(d.GraphicsQueue, func(cb *pompeii.CommandBuffer) error {
			return cb.TransitionImage(image, vk.ImageLayoutUndefined, vk.ImageLayoutDepthStencilAttachmentOptimal)
		})
		if err != nil {
			return nil, errors.Wrap(err, "prime depth")
		}
	}
	return view, nil
}

func (s *scene) Teardown() {
	s.arena.Release()
	s.swapchain = nil
	s.uniforms = nil
	s.commands = nil
}

func (s *scene) Update(image uint32) error {
	if int(image) >= len(s.uniforms) {
		return errors.Errorf("no uniform buffer for image %d", image)
	}
	extent := s.swapchain.Extent
	u := spin(float32(time.Since(s.start).Seconds()), float32(extent.Width)/float32(extent.Height))
	return s.uniforms[image].Write(u.bytes())
}

func (s *scene) Submit(image uint32, wait, signal frame.Semaphore, done frame.Fence) error {
	if int(image) >= s.commands.Len() {
		return errors.Errorf("no command buffer for image %d", image)
	}
	waitSem, err := semaphoreOf(wait)
	if err != nil {
		return err
	}
	signalSem, err := semaphoreOf(signal)
	if err != nil {
		return err
	}
	doneFence, err := fenceOf(done)
	if err != nil {
		return err
	}

	return s.m.device.GraphicsQueue.Submit(pompeii.SubmitInfo{
		Wait:       []*pompeii.Semaphore{waitSem},
		WaitStages: []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		Commands:   []*pompeii.CommandBuffer{s.commands.Buffers[image]},
		Signal:     []*pompeii.Semaphore{signalSem},
	}, doneFence)
}
