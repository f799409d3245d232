// Package windgl animates particles through a 2D vector field on the GPU.
//
// # Overview
//
// A Pipeline keeps the position of every particle in a square RGBA texture,
// two bytes per coordinate. Each tick it runs three programs:
//
//   - screen: fades the previous trail frame into a fresh one
//   - draw: plots one point per particle, colored by local speed
//   - update: advects each particle through the field and respawns a
//     random fraction of them
//
// The trail frame is then composited onto the device surface. Both the
// trail and the particle state are double buffered and swapped after use,
// so no pass ever samples the texture it renders into.
//
// # Quick Start
//
//	dev, name, err := backend.Default(backend.DeviceConfig{Width: 1024, Height: 512})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Close()
//
//	p, err := windgl.New(dev, windgl.WithParticleCount(1<<16))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer p.Close()
//
//	if err := p.SetField(field); err != nil {
//		log.Fatal(err)
//	}
//	tunables := windgl.NewTunableSet(windgl.DefaultTunables())
//	for range frames {
//		if err := p.Advance(tunables.Load()); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// # Vector Fields
//
// A VectorField is an image whose R and G channels map linearly onto the
// u (east) and v (north) velocity ranges. Package fielddata loads fields
// from a JSON metadata file next to a PNG, WebP, BMP or TIFF image.
//
// # Devices
//
// The pipeline is written against gpucore.Device. Package backend/wgpu
// renders on a WebGPU device, and package backend/software runs the same
// programs on the CPU with byte-exact readback, which the tests rely on.
//
// # Logging
//
// windgl is silent by default. Call SetLogger to route pipeline and device
// messages to a slog.Logger.
package windgl
