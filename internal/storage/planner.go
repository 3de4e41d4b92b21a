// Package storage translates the compiler-supplied storage plan into a
// concrete pool of device allocations and a per-entry tensor view over
// that pool.
package storage

import (
	"fmt"

	"github.com/graphrt-go/graphrt/internal/backend"
	"github.com/graphrt-go/graphrt/internal/graph"
	"github.com/graphrt-go/graphrt/internal/parallel"
	"github.com/graphrt-go/graphrt/internal/tensor"
)

// PlanError reports a defect in the storage plan itself: a negative
// storage_id, a dtype that isn't byte-aligned, or an entry that
// overflows its assigned pool buffer.
type PlanError struct {
	Entry int
	Err   error
}

func (e *PlanError) Error() string { return fmt.Sprintf("storage: entry %d: %v", e.Entry, e.Err) }
func (e *PlanError) Unwrap() error { return e.Err }

// Plan is the outcome of running the storage planner over one graph's
// attrs: a pool of device buffers and one tensor view per entry.
type Plan struct {
	Pool    []*tensor.Buffer
	Entries []tensor.View
}

// Allocate runs the storage planner against attr, allocating pool
// buffers from be on the given device.
func Allocate(attr graph.GraphAttr, be backend.Backend, device tensor.Device) (*Plan, error) {
	n := len(attr.StorageID)
	if len(attr.DLType) != n || len(attr.Shape) != n {
		return nil, fmt.Errorf("storage: attrs arrays have mismatched lengths: storage_id=%d dltype=%d shape=%d", n, len(attr.DLType), len(attr.Shape))
	}

	dtypes := make([]tensor.DType, n)
	entryBytes := make([]int64, n)
	maxStorageID := -1

	for i := 0; i < n; i++ {
		dt, err := tensor.ParseDType(attr.DLType[i])
		if err != nil {
			return nil, &PlanError{Entry: i, Err: err}
		}
		if !dt.Aligned() {
			return nil, &PlanError{Entry: i, Err: fmt.Errorf("dtype %s has bits*lanes not a multiple of 8", dt)}
		}
		sid := attr.StorageID[i]
		if sid < 0 {
			return nil, &PlanError{Entry: i, Err: fmt.Errorf("negative storage_id %d (runtime-shape ops are unsupported)", sid)}
		}
		dtypes[i] = dt
		entryBytes[i] = tensor.ByteSize(attr.Shape[i], dt)
		if sid > maxStorageID {
			maxStorageID = sid
		}
	}

	poolBytes := make([]int64, maxStorageID+1)
	for i := 0; i < n; i++ {
		sid := attr.StorageID[i]
		if entryBytes[i] > poolBytes[sid] {
			poolBytes[sid] = entryBytes[i]
		}
	}

	pool := make([]*tensor.Buffer, len(poolBytes))
	allocErrs := make([]error, len(poolBytes))
	parallel.For(len(poolBytes), func(s int) {
		// Quantize to whole float32 elements: ceil(bytes/4) elements,
		// i.e. ceil(bytes/4)*4 bytes.
		elems := (poolBytes[s] + 3) / 4
		if elems == 0 {
			elems = 1 // zero-sized pools still get a 1-element buffer.
		}
		buf, err := be.Allocate(int(elems*4), device)
		if err != nil {
			allocErrs[s] = fmt.Errorf("allocate pool buffer %d (%d elems): %w", s, elems, err)
			return
		}
		pool[s] = buf
	}, parallel.DefaultConfig())
	for _, err := range allocErrs {
		if err != nil {
			(&Plan{Pool: pool}).Release(be)
			return nil, err
		}
	}

	entries := make([]tensor.View, n)
	for i := 0; i < n; i++ {
		sid := attr.StorageID[i]
		if entryBytes[i] > int64(pool[sid].ByteSize()) {
			(&Plan{Pool: pool}).Release(be)
			return nil, &PlanError{Entry: i, Err: fmt.Errorf("entry needs %d bytes, pool %d only holds %d", entryBytes[i], sid, pool[sid].ByteSize())}
		}
		entries[i] = tensor.NewView(pool[sid], 0, attr.Shape[i], dtypes[i])
	}

	return &Plan{Pool: pool, Entries: entries}, nil
}

// Release frees every pool buffer via be — called once when the
// executor that owns this plan is destroyed, on every exit path
// including failure during later setup.
func (p *Plan) Release(be backend.Backend) {
	if p == nil {
		return
	}
	for _, buf := range p.Pool {
		_ = be.Free(buf)
	}
}
