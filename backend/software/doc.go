// Package software implements gpucore.Device on the CPU.
//
// It is the reference device: every program runs through the CPU kernel
// carried by its descriptor, textures are plain RGBA8 byte slices, and
// triangles and points are rasterized at pixel centers the way a GPU
// samples them. Results match a hardware device up to float rounding.
//
// Row 0 of every texture and of the default surface is the top row, and
// clip-space +Y maps to row 0. Viewports are measured from row 0.
//
// The device also implements gpucore.Reader, which makes it the device of
// choice for tests and offline rendering.
package software
