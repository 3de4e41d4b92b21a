// Package cpu implements the backend.Backend device primitives for the
// host's own memory — plain Go byte slices, no device transfer involved.
// It is the default backend for graphs compiled to run on the host.
package cpu

import (
	"fmt"

	"github.com/graphrt-go/graphrt/internal/tensor"
)

// Backend is the CPU device backend: a pure-Go allocate/copy/free
// implementation. It carries no elementwise math of its own — kernel
// execution is the opaque code module's job.
type Backend struct{}

// New creates a new CPU backend.
func New() *Backend {
	return &Backend{}
}

// Device returns tensor.CPU.
func (b *Backend) Device() tensor.Device {
	return tensor.CPU
}

// Allocate reserves a zeroed byte buffer of the requested length.
func (b *Backend) Allocate(byteLen int, device tensor.Device) (*tensor.Buffer, error) {
	if byteLen < 0 {
		return nil, fmt.Errorf("cpu: negative allocation size %d", byteLen)
	}
	return &tensor.Buffer{
		Data:   make([]byte, byteLen),
		Device: device,
	}, nil
}

// Copy moves bytes from src into dst. Both views must report the same
// ByteSize; a mismatch is a caller bug and is reported as an error
// rather than silently truncated.
func (b *Backend) Copy(dst, src tensor.View) error {
	dstBytes := dst.Bytes()
	srcBytes := src.Bytes()
	if len(dstBytes) != len(srcBytes) {
		return fmt.Errorf("cpu: copy size mismatch: dst=%d src=%d", len(dstBytes), len(srcBytes))
	}
	copy(dstBytes, srcBytes)
	return nil
}

// Free drops the buffer's backing array. Go's garbage collector reclaims
// the memory once every view referencing it is gone; Free exists so the
// executor has one call site to perform real deallocation against a
// backend that doesn't rely on the GC (webgpu.Backend does).
func (b *Backend) Free(buf *tensor.Buffer) error {
	if buf == nil {
		return nil
	}
	buf.Data = nil
	return nil
}
