// Copyright 2025 graphrt Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package executor

import "fmt"

// RangeError reports an out-of-bounds integer index on the input, output,
// or node arrays.
type RangeError struct {
	Kind  string
	Index int
	Len   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("executor: %s index %d out of range [0,%d)", e.Kind, e.Index, e.Len)
}
