// Package shader holds the three programs of the particle pipeline as WGSL
// sources, each paired with the CPU kernel the software device runs.
//
//	draw    particles as points, colored by speed through the color ramp
//	screen  full-screen copy of a trail texture at an opacity
//	update  one advection step of every particle
//
// Draw and update share the field decode. Screen and update share the quad
// vertex stage.
package shader

import (
	_ "embed"

	"github.com/gogpu/windgl/gpucore"
)

var (
	//go:embed wgsl/draw.vert.wgsl
	drawVert string

	//go:embed wgsl/draw.frag.wgsl
	drawFrag string

	//go:embed wgsl/quad.vert.wgsl
	quadVert string

	//go:embed wgsl/screen.frag.wgsl
	screenFrag string

	//go:embed wgsl/update.frag.wgsl
	updateFrag string
)

// Draw returns the particle draw program.
func Draw() gpucore.ProgramDescriptor {
	return gpucore.ProgramDescriptor{
		Label:     "draw",
		Vertex:    drawVert,
		Fragment:  drawFrag,
		Reference: newDrawKernel,
	}
}

// Screen returns the trail fade program.
func Screen() gpucore.ProgramDescriptor {
	return gpucore.ProgramDescriptor{
		Label:     "screen",
		Vertex:    quadVert,
		Fragment:  screenFrag,
		Reference: newScreenKernel,
	}
}

// Update returns the particle update program.
func Update() gpucore.ProgramDescriptor {
	return gpucore.ProgramDescriptor{
		Label:     "update",
		Vertex:    quadVert,
		Fragment:  updateFrag,
		Reference: newUpdateKernel,
	}
}

// QuadVertices is the unit square as two triangles, fed to a_pos.
var QuadVertices = []float32{0, 0, 1, 0, 0, 1, 0, 1, 1, 0, 1, 1}
