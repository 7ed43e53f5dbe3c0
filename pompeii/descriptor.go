package pompeii

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

type DescriptorBinding struct {
	Binding uint32
	Type    vk.DescriptorType
	Stages  vk.ShaderStageFlagBits
}

type DescriptorSetLayout struct {
	Bindings []DescriptorBinding

	logicalDevice vk.Device
	layout        vk.DescriptorSetLayout
}

func NewDescriptorSetLayout(d *Device, bindings ...DescriptorBinding) (*DescriptorSetLayout, error) {
	l := DescriptorSetLayout{
		Bindings:      bindings,
		logicalDevice: d.Handle(),
	}

	layoutBindings := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for t, b := range bindings {
		layoutBindings[t] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  b.Type,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(b.Stages),
		}
	}
	createInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(layoutBindings)),
		PBindings:    layoutBindings,
	}
	if result := vk.CreateDescriptorSetLayout(d.Handle(), &createInfo, nil, &l.layout); result != vk.Success {
		return nil, errors.Wrap(vk.Error(result), "create descriptor set layout")
	}

	return &l, nil
}

func (l *DescriptorSetLayout) Destroy() {
	if l.layout != vk.DescriptorSetLayout(vk.NullHandle) {
		vk.DestroyDescriptorSetLayout(l.logicalDevice, l.layout, nil)
		l.layout = vk.DescriptorSetLayout(vk.NullHandle)
	}
}

func (l *DescriptorSetLayout) Handle() vk.DescriptorSetLayout {
	return l.layout
}

// poolSizes counts each descriptor type of layout sets times.
func poolSizes(bindings []DescriptorBinding, sets int) []vk.DescriptorPoolSize {
	var sizes []vk.DescriptorPoolSize
	index := map[vk.DescriptorType]int{}
	for _, b := range bindings {
		t, ok := index[b.Type]
		if !ok {
			t = len(sizes)
			index[b.Type] = t
			sizes = append(sizes, vk.DescriptorPoolSize{Type: b.Type})
		}
		sizes[t].DescriptorCount += uint32(sets)
	}
	return sizes
}

// DescriptorPool holds exactly enough room for sets instances of one
// layout.
type DescriptorPool struct {
	logicalDevice vk.Device
	pool          vk.DescriptorPool
}

func NewDescriptorPool(d *Device, layout *DescriptorSetLayout, sets int) (*DescriptorPool, error) {
	p := DescriptorPool{
		logicalDevice: d.Handle(),
	}

	sizes := poolSizes(layout.Bindings, sets)
	createInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       uint32(sets),
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}
	if result := vk.CreateDescriptorPool(d.Handle(), &createInfo, nil, &p.pool); result != vk.Success {
		return nil, errors.Wrap(vk.Error(result), "create descriptor pool")
	}

	return &p, nil
}

// Allocate returns count sets of layout. They are freed with the pool.
func (p *DescriptorPool) Allocate(layout *DescriptorSetLayout, count int) ([]*DescriptorSet, error) {
	layouts := make([]vk.DescriptorSetLayout, count)
	for t := range layouts {
		layouts[t] = layout.Handle()
	}
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     p.pool,
		DescriptorSetCount: uint32(count),
		PSetLayouts:        layouts,
	}
	handles := make([]vk.DescriptorSet, count)
	if result := vk.AllocateDescriptorSets(p.logicalDevice, &allocInfo, &handles[0]); result != vk.Success {
		return nil, errors.Wrap(vk.Error(result), "allocate descriptor sets")
	}

	sets := make([]*DescriptorSet, count)
	for t, h := range handles {
		sets[t] = &DescriptorSet{
			logicalDevice: p.logicalDevice,
			set:           h,
		}
	}
	return sets, nil
}

func (p *DescriptorPool) Destroy() {
	if p.pool != vk.DescriptorPool(vk.NullHandle) {
		vk.DestroyDescriptorPool(p.logicalDevice, p.pool, nil)
		p.pool = vk.DescriptorPool(vk.NullHandle)
	}
}

type DescriptorSet struct {
	logicalDevice vk.Device
	set           vk.DescriptorSet
}

func (s *DescriptorSet) WriteUniform(binding uint32, buffer *Buffer) {
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          s.set,
		DstBinding:      binding,
		DstArrayElement: 0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: buffer.Handle(),
			Offset: 0,
			Range:  buffer.Size,
		}},
	}
	vk.UpdateDescriptorSets(s.logicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}

func (s *DescriptorSet) WriteSampledImage(binding uint32, view *ImageView, sampler *Sampler) {
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          s.set,
		DstBinding:      binding,
		DstArrayElement: 0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		PImageInfo: []vk.DescriptorImageInfo{{
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			ImageView:   view.Handle(),
			Sampler:     sampler.Handle(),
		}},
	}
	vk.UpdateDescriptorSets(s.logicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}

func (s *DescriptorSet) Handle() vk.DescriptorSet {
	return s.set
}
