package params

import (
	"errors"
	"fmt"
)

// Sentinel errors for blob-level defects.
var (
	ErrInvalidListMagic   = errors.New("params: invalid list header, not a parameter blob")
	ErrInvalidTensorMagic = errors.New("params: invalid tensor header within blob")
	ErrCountMismatch      = errors.New("params: name count does not match declared entry count")
	ErrUnknownInput       = errors.New("params: name does not match any graph input")
)

// MismatchError reports a loaded tensor whose rank, dtype, or shape
// disagrees with the storage plan's entry for the same name.
type MismatchError struct {
	Name   string
	Detail string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("params: %q: %s", e.Name, e.Detail)
}
