package tensor

import (
	"fmt"
	"strconv"
	"strings"
)

// TypeCode identifies the broad class of a DType (float, signed/unsigned
// integer, or boolean). It mirrors the "code" field of a DLPack-style
// dtype triple.
type TypeCode uint8

// Supported type codes.
const (
	CodeFloat TypeCode = iota
	CodeInt
	CodeUint
	CodeBool
)

func (c TypeCode) String() string {
	switch c {
	case CodeFloat:
		return "float"
	case CodeInt:
		return "int"
	case CodeUint:
		return "uint"
	case CodeBool:
		return "bool"
	default:
		return "unknown"
	}
}

// DType is the {code, bits, lanes} triple describing one scalar element
// type. Element byte size is ceil(bits*lanes / 8).
type DType struct {
	Code  TypeCode
	Bits  uint8
	Lanes uint16
}

// Common scalar dtypes, provided for convenience at call sites that don't
// need to round-trip an arbitrary tag string.
var (
	Float32 = DType{Code: CodeFloat, Bits: 32, Lanes: 1}
	Float64 = DType{Code: CodeFloat, Bits: 64, Lanes: 1}
	Int32   = DType{Code: CodeInt, Bits: 32, Lanes: 1}
	Int64   = DType{Code: CodeInt, Bits: 64, Lanes: 1}
	Uint8   = DType{Code: CodeUint, Bits: 8, Lanes: 1}
	Bool    = DType{Code: CodeBool, Bits: 8, Lanes: 1}
)

// ElemBytes returns the byte size of a single element of this dtype,
// rounding bits*lanes up to a whole byte.
func (d DType) ElemBytes() int {
	total := int(d.Bits) * int(d.Lanes)
	return (total + 7) / 8
}

// Aligned reports whether bits*lanes is an exact multiple of 8 — the
// storage planner rejects dtypes that fail this check.
func (d DType) Aligned() bool {
	return (int(d.Bits)*int(d.Lanes))%8 == 0
}

func (d DType) String() string {
	s := fmt.Sprintf("%s%d", d.Code, d.Bits)
	if d.Lanes > 1 {
		s += fmt.Sprintf("x%d", d.Lanes)
	}
	return s
}

// ParseDType decodes a textual dtype tag such as "float32", "int8", or
// "uint8x4" into a {code,bits,lanes} triple. This is the decoding step
// required for every entry's dltype tag.
func ParseDType(tag string) (DType, error) {
	base, lanesPart, hasLanes := strings.Cut(tag, "x")
	lanes := uint16(1)
	if hasLanes {
		n, err := strconv.ParseUint(lanesPart, 10, 16)
		if err != nil {
			return DType{}, fmt.Errorf("dtype %q: invalid lanes suffix: %w", tag, err)
		}
		lanes = uint16(n)
	}

	var code TypeCode
	var numPart string
	switch {
	case strings.HasPrefix(base, "float"):
		code, numPart = CodeFloat, strings.TrimPrefix(base, "float")
	case strings.HasPrefix(base, "uint"):
		code, numPart = CodeUint, strings.TrimPrefix(base, "uint")
	case strings.HasPrefix(base, "int"):
		code, numPart = CodeInt, strings.TrimPrefix(base, "int")
	case base == "bool":
		return DType{Code: CodeBool, Bits: 8, Lanes: lanes}, nil
	default:
		return DType{}, fmt.Errorf("dtype %q: unrecognized type class", tag)
	}

	bits, err := strconv.ParseUint(numPart, 10, 8)
	if err != nil {
		return DType{}, fmt.Errorf("dtype %q: invalid bit width: %w", tag, err)
	}

	return DType{Code: code, Bits: uint8(bits), Lanes: lanes}, nil
}
