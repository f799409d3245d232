// Package wgpu implements gpucore.Device on the gogpu/wgpu HAL.
//
// The device renders offscreen: the default surface is an RGBA8 texture
// that can be read back with ReadSurface. Each Draw and Clear is recorded
// into its own command buffer and submitted without waiting; transient
// objects are released once a fence reports their submission complete.
// Only readback blocks on the GPU.
//
// A standalone device opens the first discrete or integrated Vulkan
// adapter. NewFromProvider shares the device of a host application that
// exposes HalDevice and HalQueue.
//
// The package registers itself as backend.BackendWGPU. Build with the
// nogpu tag to leave it out.
package wgpu
