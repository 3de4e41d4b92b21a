// Copyright 2025 graphrt Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package executor is the public facade over the graph loader, storage
// planner, and op binder: construct once, load parameters, run any number
// of times, release on close. It is a thin, documented wrapper that keeps
// the type-erasure and wiring details of its internal packages out of the
// public API.
package executor

import (
	"fmt"
	"log"
	"strings"

	"github.com/graphrt-go/graphrt/internal/backend"
	"github.com/graphrt-go/graphrt/internal/graph"
	"github.com/graphrt-go/graphrt/internal/kernel"
	"github.com/graphrt-go/graphrt/internal/params"
	"github.com/graphrt-go/graphrt/internal/storage"
	"github.com/graphrt-go/graphrt/internal/tensor"
)

// Executor is a constructed graph program: bound closures, a storage
// plan, and the backend that owns its pool buffers.
type Executor struct {
	graph    *graph.Graph
	plan     *storage.Plan
	closures []*kernel.Closure
	backend  backend.Backend
	device   tensor.Device
	deviceID int
	debug    bool

	debugBuf *tensor.View
}

// New is the executor factory: construction takes a graph document, a
// code module handle, a device, and a debug flag. It loads the graph,
// validates it, allocates the storage plan, and binds every node's
// closure against module — any failure during these steps releases
// whatever pool buffers were already allocated before returning the
// error.
func New(graphText []byte, module kernel.Module, be backend.Backend, device tensor.Device, deviceID int, debugFlag bool) (*Executor, error) {
	g, err := graph.Load(graphText)
	if err != nil {
		return nil, err
	}

	plan, err := storage.Allocate(g.Attrs, be, device)
	if err != nil {
		return nil, err
	}

	closures, err := kernel.Bind(g, plan.Entries, module)
	if err != nil {
		plan.Release(be)
		return nil, err
	}

	return &Executor{
		graph:    g,
		plan:     plan,
		closures: closures,
		backend:  be,
		device:   device,
		deviceID: deviceID,
		debug:    debugFlag,
	}, nil
}

// Close releases every pool buffer. It is safe to call on a nil *Executor.
func (e *Executor) Close() error {
	if e == nil {
		return nil
	}
	e.plan.Release(e.backend)
	return nil
}

// Run invokes every installed closure once, strictly in node order. A
// kernel failure aborts the run; there is no retry and no per-node
// isolation.
func (e *Executor) Run() error {
	for nid, c := range e.closures {
		if err := c.Invoke(); err != nil {
			return fmt.Errorf("executor: node %d (%s): %w", nid, e.graph.Nodes[nid].Name, err)
		}
	}
	return nil
}

// LoadParams parses a binary parameter blob and copies each named tensor
// into its planned input entry. Parameter loading never allocates; it
// reuses pool slices from the storage plan already built in New.
func (e *Executor) LoadParams(blob []byte) error {
	return params.Load(blob, e.inputTarget, e.backend)
}

func (e *Executor) inputTarget(name string) (tensor.View, bool) {
	idx := e.inputIndexByName(name)
	if idx < 0 {
		return tensor.View{}, false
	}
	nid := e.graph.InputNodes[idx]
	return e.plan.Entries[e.graph.EntryID(nid, 0)], true
}

// inputIndexByName scans input_nodes linearly — the lists are short
// (tens of entries), so a hash index is not warranted.
func (e *Executor) inputIndexByName(name string) int {
	for i, nid := range e.graph.InputNodes {
		if e.graph.Nodes[nid].Name == name {
			return i
		}
	}
	return -1
}

// resolveInput turns a set_input/get_input arg-0 value (string or
// integer) into an input-slot index, dispatching on its runtime type.
// The bool result is false for an unresolvable name (a lookup warning,
// not a fatal error); an out-of-range integer index is reported via err.
func (e *Executor) resolveInput(nameOrIndex any) (idx int, ok bool, err error) {
	switch v := nameOrIndex.(type) {
	case string:
		idx = e.inputIndexByName(v)
		return idx, idx >= 0, nil
	case int:
		if v < 0 || v >= len(e.graph.InputNodes) {
			return 0, false, &RangeError{Kind: "input", Index: v, Len: len(e.graph.InputNodes)}
		}
		return v, true, nil
	default:
		return 0, false, fmt.Errorf("executor: set_input/get_input arg 0 must be string or int, got %T", nameOrIndex)
	}
}

// SetInput copies src into the planned storage of the named or indexed
// input. An unresolvable name is a lookup warning: logged and ignored,
// not fatal. An out-of-range integer index is fatal.
func (e *Executor) SetInput(nameOrIndex any, src tensor.View) error {
	idx, ok, err := e.resolveInput(nameOrIndex)
	if err != nil {
		return err
	}
	if !ok {
		log.Printf("executor: set_input: unknown input %v, ignoring", nameOrIndex)
		return nil
	}
	nid := e.graph.InputNodes[idx]
	dst := e.plan.Entries[e.graph.EntryID(nid, 0)]
	return e.backend.Copy(dst, src)
}

// GetInput copies the planned storage of the named or indexed input into
// dst. Error semantics mirror SetInput.
func (e *Executor) GetInput(nameOrIndex any, dst tensor.View) error {
	idx, ok, err := e.resolveInput(nameOrIndex)
	if err != nil {
		return err
	}
	if !ok {
		log.Printf("executor: get_input: unknown input %v, ignoring", nameOrIndex)
		return nil
	}
	nid := e.graph.InputNodes[idx]
	src := e.plan.Entries[e.graph.EntryID(nid, 0)]
	return e.backend.Copy(dst, src)
}

// GetOutput copies output entry index into dst. An out-of-range index is
// fatal.
func (e *Executor) GetOutput(index int, dst tensor.View) error {
	if index < 0 || index >= len(e.graph.Outputs) {
		return &RangeError{Kind: "output", Index: index, Len: len(e.graph.Outputs)}
	}
	src := e.plan.Entries[e.graph.EntryIDOf(e.graph.Outputs[index])]
	return e.backend.Copy(dst, src)
}

// SetDebugBuffer stores view on the executor for debug use. DebugRun
// does not write into it; the executor itself only remembers the view.
func (e *Executor) SetDebugBuffer(view tensor.View) {
	e.debugBuf = &view
}

// OutputShape returns the planned shape and dtype of output entry index,
// without copying any data — useful for callers (the CLI) that need to
// allocate a destination view before calling GetOutput.
func (e *Executor) OutputShape(index int) (tensor.Shape, tensor.DType, error) {
	if index < 0 || index >= len(e.graph.Outputs) {
		return nil, tensor.DType{}, &RangeError{Kind: "output", Index: index, Len: len(e.graph.Outputs)}
	}
	v := e.plan.Entries[e.graph.EntryIDOf(e.graph.Outputs[index])]
	return v.Shape, v.DType, nil
}

// GetInputNames returns every input name, ';'-separated, in input_nodes
// order.
func (e *Executor) GetInputNames() string {
	return strings.Join(e.graph.InputNodeNames(), ";")
}

// GetOutputNames returns every output name, ';'-separated, in heads order.
func (e *Executor) GetOutputNames() string {
	return strings.Join(e.graph.OutputNames(), ";")
}
