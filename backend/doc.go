// Package backend selects the device the particle pipeline runs on.
//
// Device packages register a factory from init():
//
//	import _ "github.com/gogpu/windgl/backend/software"
//	import _ "github.com/gogpu/windgl/backend/wgpu"
//
// Open returns a device by name; Default returns the best available one,
// preferring hardware over the software reference device:
//
//	dev, name, err := backend.Default(backend.DeviceConfig{Width: 1024, Height: 512})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Close()
//
// A factory that fails (no adapter, no driver) is skipped by Default.
package backend
