package myr

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/vulkan-go/vulkan"

	"github.com/perlw/vkmodel/asset"
)

// uniforms matches the vertex shader's binding 0 block.
type uniforms struct {
	Model mgl32.Mat4
	View  mgl32.Mat4
	Proj  mgl32.Mat4
}

const uniformsSize = int(unsafe.Sizeof(uniforms{}))

// spin turns the model a quarter turn per second around Z, seen from
// (2, 2, 2).
func spin(elapsed float32, aspect float32) uniforms {
	proj := mgl32.Perspective(mgl32.DegToRad(45), aspect, 0.1, 10)
	// Vulkan clip space has Y pointing down.
	proj[5] *= -1

	return uniforms{
		Model: mgl32.HomogRotate3D(elapsed*mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1}),
		View: mgl32.LookAtV(
			mgl32.Vec3{2, 2, 2},
			mgl32.Vec3{0, 0, 0},
			mgl32.Vec3{0, 0, 1},
		),
		Proj: proj,
	}
}

func (u *uniforms) bytes() []byte {
	return (*[1 << 30]byte)(unsafe.Pointer(u))[:uniformsSize:uniformsSize]
}

const vertexSize = int(unsafe.Sizeof(asset.Vertex{}))

func vertexBytes(vertices []asset.Vertex) []byte {
	if len(vertices) == 0 {
		return nil
	}
	n := len(vertices) * vertexSize
	return (*[1 << 30]byte)(unsafe.Pointer(&vertices[0]))[:n:n]
}

func indexBytes(indices []uint32) []byte {
	if len(indices) == 0 {
		return nil
	}
	n := len(indices) * 4
	return (*[1 << 30]byte)(unsafe.Pointer(&indices[0]))[:n:n]
}

func vertexBinding() vk.VertexInputBindingDescription {
	return vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    uint32(vertexSize),
		InputRate: vk.VertexInputRateVertex,
	}
}

func vertexAttributes() []vk.VertexInputAttributeDescription {
	var v asset.Vertex
	return []vk.VertexInputAttributeDescription{
		{
			Binding:  0,
			Location: 0,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(v.Pos)),
		},
		{
			Binding:  0,
			Location: 1,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(v.Color)),
		},
		{
			Binding:  0,
			Location: 2,
			Format:   vk.FormatR32g32Sfloat,
			Offset:   uint32(unsafe.Offsetof(v.TexCoord)),
		},
	}
}
