// Copyright 2025 graphrt Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package executor

import (
	"fmt"
	"math"

	"github.com/graphrt-go/graphrt/internal/tensor"
)

// DebugFlag selects which scans DebugRun performs after each node.
// CheckNaN and CheckInf are independent bits, combined with bitwise OR
// and tested with bitwise AND, so either can be requested alone.
type DebugFlag uint32

const (
	CheckNaN DebugFlag = 1 << iota
	CheckInf
)

// Observer is called once per node entry touched during a DebugRun, after
// that node's closure has executed, with the entry's id, dtype, shape,
// and data pointer.
type Observer func(entryID int, dtype tensor.DType, shape tensor.Shape, ptr uintptr)

// NaNInfError reports a scanned entry containing a NaN or Inf value.
type NaNInfError struct {
	EntryID int
	Kind    string // "NaN" or "Inf"
}

func (e *NaNInfError) Error() string {
	return fmt.Sprintf("executor: entry %d contains %s", e.EntryID, e.Kind)
}

// DebugRun runs every installed closure in node order, exactly like Run,
// but after each node invokes observer (if non-nil) for every entry that
// node produced, and performs the scans named in flags. A scan failure
// aborts the run immediately, same as a kernel failure in Run.
func (e *Executor) DebugRun(flags DebugFlag, observer Observer) error {
	for nid, c := range e.closures {
		if err := c.Invoke(); err != nil {
			return fmt.Errorf("executor: node %d (%s): %w", nid, e.graph.Nodes[nid].Name, err)
		}
		n := e.graph.Nodes[nid]
		for k := 0; k < n.NumOutputs(); k++ {
			eid := e.graph.EntryID(nid, k)
			view := e.plan.Entries[eid]

			if flags&CheckNaN != 0 {
				if err := scanNaN(eid, view); err != nil {
					return err
				}
			}
			if flags&CheckInf != 0 {
				if err := scanInf(eid, view); err != nil {
					return err
				}
			}
			if observer != nil {
				observer(eid, view.DType, view.Shape, view.DataPtr())
			}
		}
	}
	return nil
}

func scanNaN(entryID int, v tensor.View) error {
	if v.DType.Code != tensor.CodeFloat || v.DType.Bits != 32 {
		return nil
	}
	for _, f := range v.AsFloat32() {
		if math.IsNaN(float64(f)) {
			return &NaNInfError{EntryID: entryID, Kind: "NaN"}
		}
	}
	return nil
}

func scanInf(entryID int, v tensor.View) error {
	if v.DType.Code != tensor.CodeFloat || v.DType.Bits != 32 {
		return nil
	}
	for _, f := range v.AsFloat32() {
		if math.IsInf(float64(f), 0) {
			return &NaNInfError{EntryID: entryID, Kind: "Inf"}
		}
	}
	return nil
}
