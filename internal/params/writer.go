package params

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/graphrt-go/graphrt/internal/tensor"
)

// Entry is one named tensor to serialize into a parameter blob.
type Entry struct {
	Name  string
	Shape tensor.Shape
	DType tensor.DType
	Data  []byte // must equal tensor.ByteSize(Shape, DType) bytes
}

// Write serializes entries into a parameter blob, the inverse of Load.
// It exists primarily to produce fixtures for tests.
func Write(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer

	if err := binary.Write(&buf, byteOrder, listMagic); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, byteOrder, uint64(0)); err != nil { // reserved
		return nil, err
	}
	if err := binary.Write(&buf, byteOrder, uint64(len(entries))); err != nil {
		return nil, err
	}
	for _, e := range entries {
		if err := binary.Write(&buf, byteOrder, uint64(len(e.Name))); err != nil {
			return nil, err
		}
		buf.WriteString(e.Name)
	}

	if err := binary.Write(&buf, byteOrder, uint64(len(entries))); err != nil {
		return nil, err
	}

	for _, e := range entries {
		want := tensor.ByteSize(e.Shape, e.DType)
		if int64(len(e.Data)) != want {
			return nil, fmt.Errorf("params: entry %q: data is %d bytes, expected %d", e.Name, len(e.Data), want)
		}
		if err := writeOne(&buf, e); err != nil {
			return nil, fmt.Errorf("params: entry %q: %w", e.Name, err)
		}
	}

	return buf.Bytes(), nil
}

func writeOne(buf *bytes.Buffer, e Entry) error {
	if err := binary.Write(buf, byteOrder, tensorMagic); err != nil {
		return err
	}
	if err := binary.Write(buf, byteOrder, uint64(0)); err != nil { // reserved
		return err
	}
	if err := binary.Write(buf, byteOrder, uint32(0)); err != nil { // device_type
		return err
	}
	if err := binary.Write(buf, byteOrder, uint32(0)); err != nil { // device_id
		return err
	}
	if err := binary.Write(buf, byteOrder, uint32(len(e.Shape))); err != nil {
		return err
	}
	wd := wireDType{Code: uint8(e.DType.Code), Bits: e.DType.Bits, Lanes: e.DType.Lanes}
	if err := binary.Write(buf, byteOrder, wd); err != nil {
		return err
	}
	if len(e.Shape) > 0 {
		if err := binary.Write(buf, byteOrder, []int64(e.Shape)); err != nil {
			return err
		}
	}
	if err := binary.Write(buf, byteOrder, uint64(len(e.Data))); err != nil {
		return err
	}
	buf.Write(e.Data)
	return nil
}
