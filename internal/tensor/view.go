package tensor

import (
	"fmt"
	"unsafe"
)

// Buffer is one owned device allocation — a pool buffer in the storage
// planner's terms. Its byte length is fixed at allocation time; the
// planner quantizes every buffer to a whole number of float32 elements.
type Buffer struct {
	Data   []byte
	Device Device
	// Handle is an opaque backend-specific resource (e.g. a GPU buffer
	// object) associated with this allocation. CPU backends leave it nil.
	Handle any
}

// ByteSize returns the buffer's capacity in bytes.
func (b *Buffer) ByteSize() int {
	if b == nil {
		return 0
	}
	return len(b.Data)
}

// View is a non-owning descriptor over a slice of a pool Buffer: a
// pointer, a device, a shape, and a dtype. Views never own memory and
// are cheap to create, copy, and reshape.
type View struct {
	buf    *Buffer
	offset int
	Shape  Shape
	DType  DType
}

// NewView constructs a view over buf starting at byte offset, with the
// given shape and dtype. It does not validate that the view fits inside
// buf — callers (the storage planner) are expected to have already
// checked that via ByteSize.
func NewView(buf *Buffer, offset int, shape Shape, dtype DType) View {
	return View{buf: buf, offset: offset, Shape: shape.Clone(), DType: dtype}
}

// Device returns the device of the underlying buffer.
func (v View) Device() Device {
	if v.buf == nil {
		return CPU
	}
	return v.buf.Device
}

// ByteSize returns the number of bytes this view's shape and dtype span.
func ByteSize(shape Shape, dtype DType) int64 {
	return int64(dtype.ElemBytes()) * shape.NumElements()
}

// ByteSize returns the number of bytes this view spans.
func (v View) ByteSize() int64 {
	return ByteSize(v.Shape, v.DType)
}

// DataPtr returns the raw backing pointer for this view — the same
// pointer two views sharing a storage_id will both observe.
func (v View) DataPtr() uintptr {
	if v.buf == nil || len(v.buf.Data) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&v.buf.Data[v.offset]))
}

// Bytes returns the raw byte slice this view addresses, reslicing the
// underlying pool buffer. The slice aliases the pool buffer — writes
// through it are visible to every other view sharing the same storage_id.
func (v View) Bytes() []byte {
	size := v.ByteSize()
	if v.buf == nil || size == 0 {
		return nil
	}
	return v.buf.Data[v.offset : int64(v.offset)+size]
}

// Reshape returns a new view over the same backing bytes with a
// different shape. Used by the op binder's flatten_data rewrite — the
// rewritten view keeps pointing at the same storage.
func (v View) Reshape(shape Shape) View {
	return View{buf: v.buf, offset: v.offset, Shape: shape.Clone(), DType: v.DType}
}

// AsFloat32 reinterprets the view's bytes as a []float32. Panics if the
// dtype is not a 32-bit float.
func (v View) AsFloat32() []float32 {
	if v.DType.Code != CodeFloat || v.DType.Bits != 32 {
		panic(fmt.Sprintf("tensor: dtype %s is not float32", v.DType))
	}
	data := v.Bytes()
	if len(data) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy reinterpretation; bounds fixed by ByteSize.
	return unsafe.Slice((*float32)(unsafe.Pointer(&data[0])), len(data)/4)
}

// AsInt32 reinterprets the view's bytes as a []int32.
func (v View) AsInt32() []int32 {
	if v.DType.Code != CodeInt || v.DType.Bits != 32 {
		panic(fmt.Sprintf("tensor: dtype %s is not int32", v.DType))
	}
	data := v.Bytes()
	if len(data) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy reinterpretation; bounds fixed by ByteSize.
	return unsafe.Slice((*int32)(unsafe.Pointer(&data[0])), len(data)/4)
}

// AsUint8 returns the view's bytes directly (uint8 has no reinterpretation cost).
func (v View) AsUint8() []byte {
	return v.Bytes()
}
