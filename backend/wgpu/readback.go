//go:build !nogpu

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/windgl/gpucore"
)

// copyPitchAlignment is the required BytesPerRow alignment of
// texture-to-buffer copies.
const copyPitchAlignment = 256

// ReadPixels copies a texture back to host memory. It waits for all
// submitted work.
func (d *Device) ReadPixels(id gpucore.TextureID) ([]byte, error) {
	if d.closed {
		return nil, gpucore.ErrClosed
	}
	t, ok := d.textures[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", gpucore.ErrUnknownTexture, id)
	}
	return d.readback(t)
}

// ReadSurface copies the default surface back to host memory.
func (d *Device) ReadSurface() ([]byte, error) {
	if d.closed {
		return nil, gpucore.ErrClosed
	}
	return d.readback(d.surface)
}

func (d *Device) readback(t *texture) ([]byte, error) {
	w, h := uint32(t.width), uint32(t.height)
	bytesPerRow := w * 4
	alignedBytesPerRow := alignedPitch(bytesPerRow)
	size := uint64(alignedBytesPerRow) * uint64(h)

	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: t.label + "_staging",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create staging buffer: %w", err)
	}
	defer d.device.DestroyBuffer(staging)

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "readback_encoder"})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("readback"); err != nil {
		return nil, fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: t.usage,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(t.tex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: t.tex, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: t.usage,
		},
	}})
	cmd, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("wgpu: end encoding: %w", err)
	}
	if err := d.sub.submit(cmd); err != nil {
		return nil, fmt.Errorf("wgpu: %w", err)
	}
	if err := d.sub.drain(); err != nil {
		return nil, fmt.Errorf("wgpu: %w", err)
	}

	raw := make([]byte, size)
	if err := d.queue.ReadBuffer(staging, 0, raw); err != nil {
		return nil, fmt.Errorf("wgpu: readback: %w", err)
	}
	return unpadRows(raw, int(bytesPerRow), int(alignedBytesPerRow), int(h)), nil
}

// alignedPitch rounds a row pitch up to copyPitchAlignment.
func alignedPitch(bytesPerRow uint32) uint32 {
	return (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
}

// unpadRows strips per-row padding from an aligned copy.
func unpadRows(raw []byte, bytesPerRow, pitch, rows int) []byte {
	if pitch == bytesPerRow {
		return raw[:bytesPerRow*rows]
	}
	tight := make([]byte, bytesPerRow*rows)
	for row := range rows {
		copy(tight[row*bytesPerRow:(row+1)*bytesPerRow], raw[row*pitch:row*pitch+bytesPerRow])
	}
	return tight
}
