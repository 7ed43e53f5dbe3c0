package pompeii

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

type RenderPass struct {
	Samples vk.SampleCountFlagBits

	logicalDevice vk.Device
	renderPass    vk.RenderPass
}

// NewRenderPass creates a single subpass pass with color and depth. With
// more than one sample the color attachment is multisampled and resolved
// into the presented image.
func NewRenderPass(d *Device, colorFormat, depthFormat vk.Format, samples vk.SampleCountFlagBits) (*RenderPass, error) {
	r := RenderPass{
		Samples:       samples,
		logicalDevice: d.Handle(),
	}
	multisampled := samples != vk.SampleCount1Bit

	colorAttachment := vk.AttachmentDescription{
		Format:         colorFormat,
		Samples:        samples,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}
	if multisampled {
		colorAttachment.FinalLayout = vk.ImageLayoutColorAttachmentOptimal
	}
	depthAttachment := vk.AttachmentDescription{
		Format:         depthFormat,
		Samples:        samples,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpDontCare,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
	}
	attachments := []vk.AttachmentDescription{colorAttachment, depthAttachment}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments: []vk.AttachmentReference{
			{Attachment: 0, Layout: vk.ImageLayoutColorAttachmentOptimal},
		},
		PDepthStencilAttachment: &vk.AttachmentReference{
			Attachment: 1,
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}
	if multisampled {
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         colorFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpDontCare,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutPresentSrc,
		})
		subpass.PResolveAttachments = []vk.AttachmentReference{
			{Attachment: 2, Layout: vk.ImageLayoutColorAttachmentOptimal},
		}
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit | vk.AccessDepthStencilAttachmentWriteBit),
	}

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}
	if result := vk.CreateRenderPass(d.Handle(), &createInfo, nil, &r.renderPass); result != vk.Success {
		return nil, errors.Wrap(vk.Error(result), "create render pass")
	}

	return &r, nil
}

func (r *RenderPass) Destroy() {
	if r.renderPass != vk.RenderPass(vk.NullHandle) {
		vk.DestroyRenderPass(r.logicalDevice, r.renderPass, nil)
		r.renderPass = vk.RenderPass(vk.NullHandle)
	}
}

func (r *RenderPass) Handle() vk.RenderPass {
	return r.renderPass
}

type Framebuffer struct {
	logicalDevice vk.Device
	framebuffer   vk.Framebuffer
}

// NewFramebuffer binds views, in render pass attachment order.
func NewFramebuffer(d *Device, renderPass *RenderPass, views []*ImageView, extent vk.Extent2D) (*Framebuffer, error) {
	f := Framebuffer{
		logicalDevice: d.Handle(),
	}

	attachments := make([]vk.ImageView, len(views))
	for t, view := range views {
		attachments[t] = view.Handle()
	}
	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderPass.Handle(),
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}
	if result := vk.CreateFramebuffer(d.Handle(), &createInfo, nil, &f.framebuffer); result != vk.Success {
		return nil, errors.Wrap(vk.Error(result), "create framebuffer")
	}

	return &f, nil
}

func (f *Framebuffer) Destroy() {
	if f.framebuffer != vk.Framebuffer(vk.NullHandle) {
		vk.DestroyFramebuffer(f.logicalDevice, f.framebuffer, nil)
		f.framebuffer = vk.Framebuffer(vk.NullHandle)
	}
}

func (f *Framebuffer) Handle() vk.Framebuffer {
	return f.framebuffer
}
