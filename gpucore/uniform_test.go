package gpucore

import "testing"

func TestUniformBlock(t *testing.T) {
	p, err := CompileProgram(ProgramDescriptor{Label: "uniforms", Vertex: testVertex, Fragment: testFragment})
	if err != nil {
		t.Fatalf("CompileProgram: %v", err)
	}
	u := NewUniformBlock(p)
	if len(u.Bytes()) != 16 {
		t.Fatalf("len(Bytes) = %d, want 16", len(u.Bytes()))
	}

	offset := p.MustSlot("u_offset")
	opacity := p.MustSlot("u_opacity")
	u.MarkClean()
	u.SetVec2(offset, 0.25, -2)
	u.SetFloat(opacity, 0.98)
	if !u.Dirty() {
		t.Error("block not dirty after set")
	}
	if x, y := u.Vec2(offset); x != 0.25 || y != -2 {
		t.Errorf("Vec2 = (%v, %v)", x, y)
	}
	if got := u.Float(opacity); got != 0.98 {
		t.Errorf("Float = %v, want 0.98", got)
	}

	// Non-uniform slots are ignored.
	before := append([]byte(nil), u.Bytes()...)
	u.SetFloat(p.MustSlot("u_screen"), 7)
	u.SetVec2(p.MustSlot("a_pos"), 1, 1)
	if string(before) != string(u.Bytes()) {
		t.Error("non-uniform slot modified the block")
	}

	var nilBlock *UniformBlock
	if got := nilBlock.Float(opacity); got != 0 {
		t.Errorf("nil block Float = %v", got)
	}
}
