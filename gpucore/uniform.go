package gpucore

import (
	"encoding/binary"
	"math"
)

// UniformBlock is the host copy of a program's uniform buffer, laid out
// as the shader's uniform struct.
type UniformBlock struct {
	data  []byte
	dirty bool
}

// NewUniformBlock returns a zeroed block sized for p.
func NewUniformBlock(p *Program) *UniformBlock {
	return &UniformBlock{data: make([]byte, p.UniformSize()), dirty: true}
}

// SetFloat stores a scalar uniform. Slots that are not uniforms of the
// program are ignored.
func (u *UniformBlock) SetFloat(s Slot, v float32) {
	if !u.fits(s, 4) {
		return
	}
	binary.LittleEndian.PutUint32(u.data[s.Offset:], math.Float32bits(v))
	u.dirty = true
}

// SetVec2 stores a vec2 uniform.
func (u *UniformBlock) SetVec2(s Slot, x, y float32) {
	if !u.fits(s, 8) {
		return
	}
	binary.LittleEndian.PutUint32(u.data[s.Offset:], math.Float32bits(x))
	binary.LittleEndian.PutUint32(u.data[s.Offset+4:], math.Float32bits(y))
	u.dirty = true
}

// Float reads a scalar uniform.
func (u *UniformBlock) Float(s Slot) float32 {
	if !u.fits(s, 4) {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(u.data[s.Offset:]))
}

// Vec2 reads a vec2 uniform.
func (u *UniformBlock) Vec2(s Slot) (x, y float32) {
	if !u.fits(s, 8) {
		return 0, 0
	}
	x = math.Float32frombits(binary.LittleEndian.Uint32(u.data[s.Offset:]))
	y = math.Float32frombits(binary.LittleEndian.Uint32(u.data[s.Offset+4:]))
	return x, y
}

// Bytes returns the block contents. The slice aliases the block.
func (u *UniformBlock) Bytes() []byte { return u.data }

// Dirty reports whether the block changed since the last MarkClean.
func (u *UniformBlock) Dirty() bool { return u.dirty }

// MarkClean records that the contents were uploaded.
func (u *UniformBlock) MarkClean() { u.dirty = false }

func (u *UniformBlock) fits(s Slot, n int) bool {
	return u != nil && s.Kind == SlotUniform && s.Size >= n && s.Offset+n <= len(u.data)
}
