package windgl

import "github.com/gogpu/windgl/gpucore"

// texturePair is a double buffer of two same-sized textures. front is read
// during a pass and back is written; swap exchanges the roles.
type texturePair struct {
	buf [2]gpucore.TextureID
	cur int
}

func (p *texturePair) front() gpucore.TextureID { return p.buf[p.cur] }

func (p *texturePair) back() gpucore.TextureID { return p.buf[1-p.cur] }

func (p *texturePair) swap() { p.cur = 1 - p.cur }

// reset installs new textures with a as the front and returns the old ones.
func (p *texturePair) reset(a, b gpucore.TextureID) [2]gpucore.TextureID {
	old := p.buf
	p.buf = [2]gpucore.TextureID{a, b}
	p.cur = 0
	return old
}
