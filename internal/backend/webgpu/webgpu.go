// Package webgpu implements the backend.Backend device primitives on top
// of go-webgpu (github.com/go-webgpu/webgpu), a zero-CGO WebGPU binding.
// This backend only needs to satisfy the tensor backend contract:
// allocate, copy, free. Kernel execution for tvm_op nodes stays with the
// opaque code module (internal/kernel), never with this package.
package webgpu

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/graphrt-go/graphrt/internal/tensor"
)

// stringView builds a wgpu.StringView over a Go string's bytes. The
// string must outlive the call into the native library (string literals
// passed at call sites satisfy this trivially).
func stringView(s string) wgpu.StringView {
	if s == "" {
		return wgpu.EmptyStringView()
	}
	return wgpu.StringView{
		Data:   uintptr(unsafe.Pointer(unsafe.StringData(s))),
		Length: uintptr(len(s)),
	}
}

// Backend services tensor.WebGPU device allocations via a single shared
// GPU device and queue (instance → adapter → device → queue), with no
// shader or compute-pipeline cache: this backend only allocates, copies,
// and frees buffers.
type Backend struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	mu      sync.Mutex
	buffers map[*tensor.Buffer]*wgpu.Buffer
}

// New requests a high-performance GPU adapter and device. Returns an
// error rather than panicking if no WebGPU-capable device is available —
// callers (the CLI's backend selection) treat backend construction
// failure as a fatal setup error, not a recoverable one.
func New() (b *Backend, err error) {
	defer func() {
		if r := recover(); r != nil {
			b, err = nil, fmt.Errorf("webgpu: native library not available: %v", r)
		}
	}()

	instance, ierr := wgpu.CreateInstance(nil)
	if ierr != nil {
		return nil, fmt.Errorf("webgpu: create instance: %w", ierr)
	}
	adapter, aerr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if aerr != nil {
		instance.Release()
		return nil, fmt.Errorf("webgpu: request adapter: %w", aerr)
	}

	device, derr := adapter.RequestDevice(nil)
	if derr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: request device: %w", derr)
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: no default queue")
	}

	return &Backend{
		instance: instance,
		adapter:  adapter,
		device:   device,
		queue:    queue,
		buffers:  make(map[*tensor.Buffer]*wgpu.Buffer),
	}, nil
}

// Device returns tensor.WebGPU.
func (b *Backend) Device() tensor.Device {
	return tensor.WebGPU
}

// Allocate reserves a GPU-resident buffer of byteLen bytes. A mirrored
// host-visible []byte of the same length backs tensor.Buffer.Data so the
// rest of the engine (view slicing, dtype reinterpretation) keeps working
// uniformly across backends; Copy is responsible for keeping the GPU
// buffer's contents and the mirror in sync.
func (b *Backend) Allocate(byteLen int, device tensor.Device) (*tensor.Buffer, error) {
	if byteLen < 0 {
		return nil, fmt.Errorf("webgpu: negative allocation size %d", byteLen)
	}
	size := byteLen
	if size == 0 {
		size = 4 // wgpu rejects zero-size buffers; keep a minimal handle.
	}
	gbuf := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: stringView("graphrt-pool-buffer"),
		Size:  uint64(size),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
	})
	if gbuf == nil {
		return nil, fmt.Errorf("webgpu: create buffer: allocation failed")
	}

	buf := &tensor.Buffer{
		Data:   make([]byte, byteLen),
		Device: device,
	}

	b.mu.Lock()
	b.buffers[buf] = gbuf
	b.mu.Unlock()
	buf.Handle = gbuf
	return buf, nil
}

// Copy moves bytes between views through their host mirrors
// (tensor.Buffer.Data). When dst is GPU-resident and came from Allocate,
// the updated mirror is then pushed to its GPU buffer with WriteBuffer.
// No ReadBuffer is issued: a GPU-resident src is read from its mirror.
func (b *Backend) Copy(dst, src tensor.View) error {
	dstBytes := dst.Bytes()
	srcBytes := src.Bytes()
	if len(dstBytes) != len(srcBytes) {
		return fmt.Errorf("webgpu: copy size mismatch: dst=%d src=%d", len(dstBytes), len(srcBytes))
	}
	copy(dstBytes, srcBytes)

	if dst.Device() == tensor.WebGPU {
		if gbuf, ok := b.gpuHandle(dstBytes); ok {
			b.queue.WriteBuffer(gbuf, 0, dstBytes)
		}
	}
	return nil
}

// gpuHandle is a best-effort lookup used only to push a freshly-copied
// mirror back to its GPU buffer; absence (e.g. in unit tests that never
// called Allocate) is not an error.
func (b *Backend) gpuHandle(mirror []byte) (*wgpu.Buffer, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for buf, gbuf := range b.buffers {
		if len(buf.Data) > 0 && len(mirror) > 0 && &buf.Data[0] == &mirror[0] {
			return gbuf, true
		}
	}
	return nil, false
}

// Free releases the GPU buffer and drops the host mirror.
func (b *Backend) Free(buf *tensor.Buffer) error {
	if buf == nil {
		return nil
	}
	b.mu.Lock()
	gbuf, ok := b.buffers[buf]
	delete(b.buffers, buf)
	b.mu.Unlock()
	if ok {
		gbuf.Release()
	}
	buf.Data = nil
	buf.Handle = nil
	return nil
}

// Close releases the device, adapter, and instance. Safe to call once,
// after every pool Buffer has already been Freed.
func (b *Backend) Close() {
	b.device.Release()
	b.adapter.Release()
	b.instance.Release()
}
