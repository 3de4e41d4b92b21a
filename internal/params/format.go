// Package params reads and writes the binary parameter blob loaded into
// an executor's input-entry storage before run(). The wire format has two
// magic-prefixed sections: an outer list wrapper (name table) followed by
// one tensor header per entry, each independently magic-tagged with a
// fixed magic word before the rest of the struct.
package params

import "encoding/binary"

// Magic words for the two blob sections: both are fixed 8-byte reads,
// read and validated independently of each other.
const (
	listMagic   uint64 = 0xF7E58D4F05049CB7
	tensorMagic uint64 = 0xDD5E40F096B4A13F
)

// byteOrder is fixed: the blob format has no endianness negotiation;
// every graphrt blob is little-endian.
var byteOrder = binary.LittleEndian

// wireDType mirrors tensor.DType's three fields in their wire layout:
// one byte each for code and bits, two bytes for lanes.
type wireDType struct {
	Code  uint8
	Bits  uint8
	Lanes uint16
}
