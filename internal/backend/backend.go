// Package backend defines the device allocator and cross-device copy
// primitives the executor relies on. This package only defines the seam;
// the concrete implementations (cpu, webgpu) are swappable behind it.
package backend

import "github.com/graphrt-go/graphrt/internal/tensor"

// Backend allocates and moves device memory on behalf of the storage
// planner and the parameter loader. It never interprets tensor contents —
// kernels do that, via the opaque code module.
type Backend interface {
	// Allocate reserves a 1-D byte buffer of the given length on device.
	// The storage planner is responsible for sizing length to whatever
	// quantization it wants (float32-element granularity).
	Allocate(byteLen int, device tensor.Device) (*tensor.Buffer, error)

	// Copy moves bytes from src into dst. Both views must have equal
	// ByteSize; Copy does not resize or reinterpret. Either side may be a
	// host-resident view supplied by an external caller (set_input,
	// get_output) or a pool view owned by this executor.
	Copy(dst, src tensor.View) error

	// Free releases a buffer previously returned by Allocate. Called once
	// per pool buffer when the executor is destroyed.
	Free(buf *tensor.Buffer) error

	// Device reports which tensor.Device this backend services.
	Device() tensor.Device
}
