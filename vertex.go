package main

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
	"github.com/xlab/linmath"
)

// Vertex is a single vertex of the rendered geometry as laid out in the
// vertex buffer.
type Vertex struct {
	pos      linmath.Vec3
	color    linmath.Vec3
	texCoord linmath.Vec2
}

// GetVertexSize returns the size in bytes of a single Vertex.
func GetVertexSize() uint32 {
	return uint32(unsafe.Sizeof(Vertex{}))
}

// GetVertexBindingDescription describes the vertex buffer binding for the
// Vertex type.
func GetVertexBindingDescription() vk.VertexInputBindingDescription {
	bindingDescription := vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    GetVertexSize(),
		InputRate: vk.VertexInputRateVertex,
	}

	return bindingDescription
}

// GetVertexAttributeDescriptions describes the shader input locations for
// every Vertex field.
func GetVertexAttributeDescriptions() [3]vk.VertexInputAttributeDescription {
	attrDescr := [3]vk.VertexInputAttributeDescription{
		{
			Binding:  0,
			Location: 0,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.pos)),
		},
		{
			Binding:  0,
			Location: 1,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.color)),
		},
		{
			Binding:  0,
			Location: 2,
			Format:   vk.FormatR32g32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.texCoord)),
		},
	}

	return attrDescr
}

// UniformBufferObject is the per-frame uniform block read by the vertex
// shader. linmath.Mat4x4 is an array of vec4 columns so the struct matches
// the std140 layout of the shader block without explicit padding.
type UniformBufferObject struct {
	model linmath.Mat4x4
	proj  linmath.Mat4x4
}

// quadVertices is the textured quad drawn by the program.
func quadVertices() []Vertex {
	return []Vertex{
		{
			pos:      linmath.Vec3{-0.5, -0.5, 0},
			color:    linmath.Vec3{1, 0, 0},
			texCoord: linmath.Vec2{1, 0},
		},
		{
			pos:      linmath.Vec3{0.5, -0.5, 0},
			color:    linmath.Vec3{0, 1, 0},
			texCoord: linmath.Vec2{0, 0},
		},
		{
			pos:      linmath.Vec3{0.5, 0.5, 0},
			color:    linmath.Vec3{0, 0, 1},
			texCoord: linmath.Vec2{0, 1},
		},
		{
			pos:      linmath.Vec3{-0.5, 0.5, 0},
			color:    linmath.Vec3{1, 1, 1},
			texCoord: linmath.Vec2{1, 1},
		},
	}
}

// quadIndices returns the index list drawing the quad as two triangles.
func quadIndices() []uint16 {
	return []uint16{0, 1, 2, 2, 3, 0}
}
