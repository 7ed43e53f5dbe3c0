package pompeii

import (
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

type ShaderModule struct {
	logicalDevice vk.Device
	module        vk.ShaderModule
}

// NewShaderModule wraps SPIR-V code, whose length must be a multiple of 4.
func NewShaderModule(d *Device, code []byte) (*ShaderModule, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, errors.Errorf("invalid spir-v length %d", len(code))
	}

	s := ShaderModule{
		logicalDevice: d.Handle(),
	}
	words := (*[1 << 28]uint32)(unsafe.Pointer(&code[0]))[: len(code)/4 : len(code)/4]
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    words,
	}
	if result := vk.CreateShaderModule(d.Handle(), &createInfo, nil, &s.module); result != vk.Success {
		return nil, errors.Wrap(vk.Error(result), "create shader module")
	}

	return &s, nil
}

func (s *ShaderModule) Destroy() {
	if s.module != vk.ShaderModule(vk.NullHandle) {
		vk.DestroyShaderModule(s.logicalDevice, s.module, nil)
		s.module = vk.ShaderModule(vk.NullHandle)
	}
}

func (s *ShaderModule) Handle() vk.ShaderModule {
	return s.module
}

type PipelineLayout struct {
	logicalDevice vk.Device
	layout        vk.PipelineLayout
}

func NewPipelineLayout(d *Device, setLayouts ...*DescriptorSetLayout) (*PipelineLayout, error) {
	p := PipelineLayout{
		logicalDevice: d.Handle(),
	}

	layouts := make([]vk.DescriptorSetLayout, len(setLayouts))
	for t, layout := range setLayouts {
		layouts[t] = layout.Handle()
	}
	createInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(layouts)),
		PSetLayouts:    layouts,
	}
	if result := vk.CreatePipelineLayout(d.Handle(), &createInfo, nil, &p.layout); result != vk.Success {
		return nil, errors.Wrap(vk.Error(result), "create pipeline layout")
	}

	return &p, nil
}

func (p *PipelineLayout) Destroy() {
	if p.layout != vk.PipelineLayout(vk.NullHandle) {
		vk.DestroyPipelineLayout(p.logicalDevice, p.layout, nil)
		p.layout = vk.PipelineLayout(vk.NullHandle)
	}
}

func (p *PipelineLayout) Handle() vk.PipelineLayout {
	return p.layout
}

type PipelineConfig struct {
	Vertex   *ShaderModule
	Fragment *ShaderModule

	Binding    vk.VertexInputBindingDescription
	Attributes []vk.VertexInputAttributeDescription

	Extent  vk.Extent2D
	Samples vk.SampleCountFlagBits
	// MinSampleShading enables per sample shading when above zero.
	MinSampleShading float32

	Layout     *PipelineLayout
	RenderPass *RenderPass
}

type Pipeline struct {
	logicalDevice vk.Device
	pipeline      vk.Pipeline
}

func NewGraphicsPipeline(d *Device, config PipelineConfig) (*Pipeline, error) {
	p := Pipeline{
		logicalDevice: d.Handle(),
	}

	entry := vkString("main")
	stages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: config.Vertex.Handle(),
			PName:  entry,
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: config.Fragment.Handle(),
			PName:  entry,
		},
	}

	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{config.Binding},
		VertexAttributeDescriptionCount: uint32(len(config.Attributes)),
		PVertexAttributeDescriptions:    config.Attributes,
	}
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports: []vk.Viewport{{
			X:        0,
			Y:        0,
			Width:    float32(config.Extent.Width),
			Height:   float32(config.Extent.Height),
			MinDepth: 0,
			MaxDepth: 1,
		}},
		ScissorCount: 1,
		PScissors: []vk.Rect2D{{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: config.Extent,
		}},
	}
	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1,
		CullMode:                vk.CullModeFlags(vk.CullModeBackBit),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
	}
	multisampling := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: config.Samples,
		SampleShadingEnable:  vk.False,
	}
	if config.MinSampleShading > 0 {
		multisampling.SampleShadingEnable = vk.True
		multisampling.MinSampleShading = config.MinSampleShading
	}
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:       vk.True,
		DepthWriteEnable:      vk.True,
		DepthCompareOp:        vk.CompareOpLess,
		DepthBoundsTestEnable: vk.False,
		StencilTestEnable:     vk.False,
	}
	colorBlending := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		AttachmentCount: 1,
		PAttachments: []vk.PipelineColorBlendAttachmentState{{
			ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
			BlendEnable:    vk.False,
		}},
	}

	pipelineInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisampling,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlending,
		Layout:              config.Layout.Handle(),
		RenderPass:          config.RenderPass.Handle(),
		Subpass:             0,
	}

	pipelines := make([]vk.Pipeline, 1)
	if result := vk.CreateGraphicsPipelines(d.Handle(), vk.PipelineCache(vk.NullHandle), 1, []vk.GraphicsPipelineCreateInfo{pipelineInfo}, nil, pipelines); result != vk.Success {
		return nil, errors.Wrap(vk.Error(result), "create graphics pipeline")
	}
	p.pipeline = pipelines[0]

	return &p, nil
}

func (p *Pipeline) Destroy() {
	if p.pipeline != vk.Pipeline(vk.NullHandle) {
		vk.DestroyPipeline(p.logicalDevice, p.pipeline, nil)
		p.pipeline = vk.Pipeline(vk.NullHandle)
	}
}

func (p *Pipeline) Handle() vk.Pipeline {
	return p.pipeline
}
