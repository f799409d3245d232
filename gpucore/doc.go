// Package gpucore provides the device abstraction shared by the windgl
// simulation pipeline and its backends.
//
// The package defines the [Device] interface, a small GL-shaped command
// surface (texture units, one framebuffer object, viewport, blend state)
// that is implemented by:
//   - backend/software (CPU reference device, used by tests and offline runs)
//   - backend/wgpu (gogpu/wgpu HAL device)
//
// # Architecture
//
//	               +------------------+
//	               |  windgl.Pipeline |
//	               +--------+---------+
//	                        |
//	                 gpucore.Device
//	                        |
//	         +--------------+--------------+
//	         |                             |
//	+--------v--------+          +--------v--------+
//	| software device |          |   wgpu device   |
//	| (Go kernels)    |          |  (hal.Device)   |
//	+-----------------+          +-----------------+
//
// # Programs
//
// [CompileProgram] compiles the WGSL vertex and fragment stages with naga,
// reflects their declarations and links the two interfaces. The result is an
// immutable [Program] whose input slots are addressed by name through a table
// built once at compile time. A program may carry a CPU reference [Kernel]
// that the software device runs in place of the compiled stages.
//
// # Resource Management
//
// Devices hand out opaque IDs ([TextureID], [BufferID], [FramebufferID]).
// The caller owns every ID it creates and must destroy it once superseded.
package gpucore
