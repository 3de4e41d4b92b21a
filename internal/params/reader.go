package params

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/graphrt-go/graphrt/internal/backend"
	"github.com/graphrt-go/graphrt/internal/tensor"
)

// Target resolves a parameter name to the tensor view that should receive
// its bytes, mirroring the executor's "look up names[i] against
// input_nodes" step without this package needing to know about graphs or
// node ids.
type Target func(name string) (tensor.View, bool)

// Load parses a parameter blob and copies each tensor's bytes into the
// view resolved by lookup, via be's host-to-device copy primitive. Every
// tensor must already match its target's ndim, dtype, and shape exactly;
// this function never allocates storage.
func Load(blob []byte, lookup Target, be backend.Backend) error {
	r := bytes.NewReader(blob)

	var header, reserved uint64
	if err := binary.Read(r, byteOrder, &header); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidListMagic, err)
	}
	if header != listMagic {
		return ErrInvalidListMagic
	}
	if err := binary.Read(r, byteOrder, &reserved); err != nil {
		return fmt.Errorf("params: read reserved: %w", err)
	}

	var nameCount uint64
	if err := binary.Read(r, byteOrder, &nameCount); err != nil {
		return fmt.Errorf("params: read name count: %w", err)
	}
	names := make([]string, nameCount)
	for i := range names {
		var l uint64
		if err := binary.Read(r, byteOrder, &l); err != nil {
			return fmt.Errorf("params: read name %d length: %w", i, err)
		}
		buf := make([]byte, l)
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("params: read name %d: %w", i, err)
		}
		names[i] = string(buf)
	}

	var dataCount uint64
	if err := binary.Read(r, byteOrder, &dataCount); err != nil {
		return fmt.Errorf("params: read data count: %w", err)
	}
	if dataCount != nameCount {
		return fmt.Errorf("%w: names=%d data=%d", ErrCountMismatch, nameCount, dataCount)
	}

	for i, name := range names {
		dst, ok := lookup(name)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownInput, name)
		}
		if err := loadOne(r, name, dst, be); err != nil {
			return fmt.Errorf("params: entry %d: %w", i, err)
		}
	}
	return nil
}

func loadOne(r *bytes.Reader, name string, dst tensor.View, be backend.Backend) error {
	var header, reserved uint64
	if err := binary.Read(r, byteOrder, &header); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTensorMagic, err)
	}
	if header != tensorMagic {
		return ErrInvalidTensorMagic
	}
	if err := binary.Read(r, byteOrder, &reserved); err != nil {
		return fmt.Errorf("read reserved: %w", err)
	}

	var deviceType, deviceID uint32
	if err := binary.Read(r, byteOrder, &deviceType); err != nil {
		return fmt.Errorf("read device_type: %w", err)
	}
	if err := binary.Read(r, byteOrder, &deviceID); err != nil {
		return fmt.Errorf("read device_id: %w", err)
	}

	var ndim uint32
	if err := binary.Read(r, byteOrder, &ndim); err != nil {
		return fmt.Errorf("read ndim: %w", err)
	}

	var wd wireDType
	if err := binary.Read(r, byteOrder, &wd); err != nil {
		return fmt.Errorf("read dtype: %w", err)
	}

	shape := make(tensor.Shape, ndim)
	if ndim > 0 {
		if err := binary.Read(r, byteOrder, shape); err != nil {
			return fmt.Errorf("read shape: %w", err)
		}
	}

	dt := tensor.DType{Code: tensor.TypeCode(wd.Code), Bits: wd.Bits, Lanes: wd.Lanes}
	if err := checkMatch(name, dst, dt, shape); err != nil {
		return err
	}

	var byteSize uint64
	if err := binary.Read(r, byteOrder, &byteSize); err != nil {
		return fmt.Errorf("read data_byte_size: %w", err)
	}
	want := uint64(tensor.ByteSize(shape, dt))
	if byteSize != want {
		return &MismatchError{Name: name, Detail: fmt.Sprintf("data_byte_size %d != expected %d", byteSize, want)}
	}

	data := make([]byte, byteSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return fmt.Errorf("read data: %w", err)
	}

	src := tensor.NewView(&tensor.Buffer{Data: data, Device: tensor.CPU}, 0, shape, dt)
	return be.Copy(dst, src)
}

func checkMatch(name string, dst tensor.View, dt tensor.DType, shape tensor.Shape) error {
	if len(shape) != len(dst.Shape) {
		return &MismatchError{Name: name, Detail: fmt.Sprintf("ndim %d != planned ndim %d", len(shape), len(dst.Shape))}
	}
	if dt != dst.DType {
		return &MismatchError{Name: name, Detail: fmt.Sprintf("dtype %s != planned dtype %s", dt, dst.DType)}
	}
	if !shape.Equal(dst.Shape) {
		return &MismatchError{Name: name, Detail: fmt.Sprintf("shape %s != planned shape %s", shape, dst.Shape)}
	}
	return nil
}
