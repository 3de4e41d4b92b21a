// Copyright 2025 graphrt Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphrt-go/graphrt/internal/backend/cpu"
	"github.com/graphrt-go/graphrt/internal/kernel"
	"github.com/graphrt-go/graphrt/internal/params"
	"github.com/graphrt-go/graphrt/internal/tensor"
)

func floatView(vals ...float32) tensor.View {
	buf := &tensor.Buffer{Data: make([]byte, len(vals)*4), Device: tensor.CPU}
	v := tensor.NewView(buf, 0, tensor.Shape{int64(len(vals))}, tensor.Float32)
	copy(v.AsFloat32(), vals)
	return v
}

// identityGraphJSON is scenario S1: single input x[2,3], one "__nop" node,
// one output.
const identityGraphJSON = `{
  "nodes": [
    {"op": "null", "name": "x", "inputs": []},
    {"op": "tvm_op", "name": "pass0", "inputs": [[0,0,0]],
     "attrs": {"func_name": "__nop", "num_inputs": "1", "num_outputs": "1", "flatten_data": "0"}}
  ],
  "arg_nodes": [0],
  "node_row_ptr": [0, 1, 2],
  "heads": [[1, 0, 0]],
  "attrs": {
    "dltype": ["list_str", ["float32", "float32"]],
    "storage_id": ["list_int", [0, 0]],
    "shape": ["list_shape", [[2, 3], [2, 3]]]
  }
}`

func TestExecutorS1Identity(t *testing.T) {
	ex, err := New([]byte(identityGraphJSON), kernel.NewRegistry(), cpu.New(), tensor.CPU, 0, false)
	require.NoError(t, err)
	defer ex.Close()

	src := floatView(1, 2, 3, 4, 5, 6)
	require.NoError(t, ex.SetInput("x", src))
	require.NoError(t, ex.Run())

	dst := floatView(0, 0, 0, 0, 0, 0)
	require.NoError(t, ex.GetOutput(0, dst))
	assert.Equal(t, src.AsFloat32(), dst.AsFloat32())
}

// twoOpChainJSON is scenario S2: a, b, c inputs; (a+b)*c.
const twoOpChainJSON = `{
  "nodes": [
    {"op": "null", "name": "a", "inputs": []},
    {"op": "null", "name": "b", "inputs": []},
    {"op": "null", "name": "c", "inputs": []},
    {"op": "tvm_op", "name": "add0", "inputs": [[0,0,0],[1,0,0]],
     "attrs": {"func_name": "add", "num_inputs": "2", "num_outputs": "1", "flatten_data": "0"}},
    {"op": "tvm_op", "name": "mul0", "inputs": [[3,0,0],[2,0,0]],
     "attrs": {"func_name": "mul", "num_inputs": "2", "num_outputs": "1", "flatten_data": "0"}}
  ],
  "arg_nodes": [0, 1, 2],
  "node_row_ptr": [0, 1, 2, 3, 4, 5],
  "heads": [[4, 0, 0]],
  "attrs": {
    "dltype": ["list_str", ["float32", "float32", "float32", "float32", "float32"]],
    "storage_id": ["list_int", [0, 1, 2, 3, 4]],
    "shape": ["list_shape", [[4], [4], [4], [4], [4]]]
  }
}`

func TestExecutorS2TwoOpChain(t *testing.T) {
	ex, err := New([]byte(twoOpChainJSON), kernel.NewRegistry(), cpu.New(), tensor.CPU, 0, false)
	require.NoError(t, err)
	defer ex.Close()

	require.NoError(t, ex.SetInput("a", floatView(1, 2, 3, 4)))
	require.NoError(t, ex.SetInput("b", floatView(10, 10, 10, 10)))
	require.NoError(t, ex.SetInput("c", floatView(2, 2, 2, 2)))
	require.NoError(t, ex.Run())

	dst := floatView(0, 0, 0, 0)
	require.NoError(t, ex.GetOutput(0, dst))
	assert.Equal(t, []float32{22, 24, 26, 28}, dst.AsFloat32())
}

// storageAliasJSON is scenario S3: two entries with non-overlapping
// lifetimes share storage_id 0, sized 4 and 16 bytes (1 and 4 float32s).
const storageAliasJSON = `{
  "nodes": [
    {"op": "null", "name": "x", "inputs": []},
    {"op": "tvm_op", "name": "small", "inputs": [[0,0,0]],
     "attrs": {"func_name": "identity", "num_inputs": "1", "num_outputs": "1", "flatten_data": "0"}}
  ],
  "arg_nodes": [0],
  "node_row_ptr": [0, 1, 2],
  "heads": [[1, 0, 0]],
  "attrs": {
    "dltype": ["list_str", ["float32", "float32"]],
    "storage_id": ["list_int", [0, 0]],
    "shape": ["list_shape", [[4], [1]]]
  }
}`

func TestExecutorS3StorageAliasing(t *testing.T) {
	ex, err := New([]byte(storageAliasJSON), kernel.NewRegistry(), cpu.New(), tensor.CPU, 0, false)
	require.NoError(t, err)
	defer ex.Close()
	assert.GreaterOrEqual(t, ex.plan.Pool[0].ByteSize(), 16)
	assert.Equal(t, ex.plan.Entries[0].DataPtr(), ex.plan.Entries[1].DataPtr())
}

func TestExecutorS4ParamShapeMismatch(t *testing.T) {
	shapeGraphJSON := `{
	  "nodes": [{"op": "null", "name": "w", "inputs": []}],
	  "arg_nodes": [0],
	  "node_row_ptr": [0, 1],
	  "heads": [[0, 0, 0]],
	  "attrs": {
	    "dltype": ["list_str", ["float32"]],
	    "storage_id": ["list_int", [0]],
	    "shape": ["list_shape", [[3, 4]]]
	  }
	}`
	ex, err := New([]byte(shapeGraphJSON), kernel.NewRegistry(), cpu.New(), tensor.CPU, 0, false)
	require.NoError(t, err)
	defer ex.Close()

	blob, err := params.Write([]params.Entry{
		{Name: "w", Shape: tensor.Shape{3, 3}, DType: tensor.Float32, Data: make([]byte, 3*3*4)},
	})
	require.NoError(t, err)

	err = ex.LoadParams(blob)
	require.Error(t, err)
	var me *params.MismatchError
	assert.ErrorAs(t, err, &me)
}

func TestExecutorS5UnknownKernelFailsAtBind(t *testing.T) {
	badJSON := `{
	  "nodes": [
	    {"op": "null", "name": "x", "inputs": []},
	    {"op": "tvm_op", "name": "bad0", "inputs": [[0,0,0]],
	     "attrs": {"func_name": "nonexistent", "num_inputs": "1", "num_outputs": "1", "flatten_data": "0"}}
	  ],
	  "arg_nodes": [0],
	  "node_row_ptr": [0, 1, 2],
	  "heads": [[1, 0, 0]],
	  "attrs": {
	    "dltype": ["list_str", ["float32", "float32"]],
	    "storage_id": ["list_int", [0, 1]],
	    "shape": ["list_shape", [[1], [1]]]
	  }
	}`
	_, err := New([]byte(badJSON), kernel.NewRegistry(), cpu.New(), tensor.CPU, 0, false)
	require.Error(t, err)
	var re *kernel.ResolutionError
	assert.ErrorAs(t, err, &re)
}

func TestExecutorS6UnknownInputNameWarnsNoOp(t *testing.T) {
	ex, err := New([]byte(identityGraphJSON), kernel.NewRegistry(), cpu.New(), tensor.CPU, 0, false)
	require.NoError(t, err)
	defer ex.Close()

	require.NoError(t, ex.SetInput("not_a_real_name", floatView(1, 2, 3, 4, 5, 6)))
	require.NoError(t, ex.Run())

	dst := floatView(1, 1, 1, 1, 1, 1)
	require.NoError(t, ex.GetOutput(0, dst))
	assert.Equal(t, []float32{0, 0, 0, 0, 0, 0}, dst.AsFloat32())
}

func TestInvariant4RunIsIdempotent(t *testing.T) {
	ex, err := New([]byte(twoOpChainJSON), kernel.NewRegistry(), cpu.New(), tensor.CPU, 0, false)
	require.NoError(t, err)
	defer ex.Close()

	require.NoError(t, ex.SetInput("a", floatView(1, 2, 3, 4)))
	require.NoError(t, ex.SetInput("b", floatView(10, 10, 10, 10)))
	require.NoError(t, ex.SetInput("c", floatView(2, 2, 2, 2)))

	require.NoError(t, ex.Run())
	first := floatView(0, 0, 0, 0)
	require.NoError(t, ex.GetOutput(0, first))

	require.NoError(t, ex.Run())
	second := floatView(0, 0, 0, 0)
	require.NoError(t, ex.GetOutput(0, second))

	assert.Equal(t, first.AsFloat32(), second.AsFloat32())
}

func TestInvariant5SetGetInputRoundTrip(t *testing.T) {
	ex, err := New([]byte(identityGraphJSON), kernel.NewRegistry(), cpu.New(), tensor.CPU, 0, false)
	require.NoError(t, err)
	defer ex.Close()

	x := floatView(1, 2, 3, 4, 5, 6)
	require.NoError(t, ex.SetInput(0, x))

	y := floatView(0, 0, 0, 0, 0, 0)
	require.NoError(t, ex.GetInput(0, y))
	assert.Equal(t, x.AsFloat32(), y.AsFloat32())
}

func TestInvariant6ParamRoundTrip(t *testing.T) {
	ex, err := New([]byte(identityGraphJSON), kernel.NewRegistry(), cpu.New(), tensor.CPU, 0, false)
	require.NoError(t, err)
	defer ex.Close()

	data := make([]byte, 24)
	src := tensor.NewView(&tensor.Buffer{Data: data, Device: tensor.CPU}, 0, tensor.Shape{2, 3}, tensor.Float32)
	copy(src.AsFloat32(), []float32{1, 2, 3, 4, 5, 6})

	blob, err := params.Write([]params.Entry{
		{Name: "x", Shape: tensor.Shape{2, 3}, DType: tensor.Float32, Data: data},
	})
	require.NoError(t, err)
	require.NoError(t, ex.LoadParams(blob))

	y := floatView(0, 0, 0, 0, 0, 0)
	require.NoError(t, ex.GetInput("x", y))
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, y.AsFloat32())
}

func TestInvariant7NameLookupTotality(t *testing.T) {
	ex, err := New([]byte(twoOpChainJSON), kernel.NewRegistry(), cpu.New(), tensor.CPU, 0, false)
	require.NoError(t, err)
	defer ex.Close()

	for _, name := range ex.graph.InputNodeNames() {
		require.NoError(t, ex.SetInput(name, floatView(1, 1, 1, 1)))
	}
	for i := range ex.graph.OutputNames() {
		require.NoError(t, ex.GetOutput(i, floatView(0, 0, 0, 0)))
	}
}

func TestGetInputNamesAndOutputNames(t *testing.T) {
	ex, err := New([]byte(twoOpChainJSON), kernel.NewRegistry(), cpu.New(), tensor.CPU, 0, false)
	require.NoError(t, err)
	defer ex.Close()

	assert.Equal(t, "a;b;c", ex.GetInputNames())
	assert.Equal(t, "mul0", ex.GetOutputNames())
}

func TestSetInputRangeError(t *testing.T) {
	ex, err := New([]byte(identityGraphJSON), kernel.NewRegistry(), cpu.New(), tensor.CPU, 0, false)
	require.NoError(t, err)
	defer ex.Close()

	err = ex.SetInput(5, floatView(1))
	require.Error(t, err)
	var re *RangeError
	assert.ErrorAs(t, err, &re)
}

func TestGetOutputRangeError(t *testing.T) {
	ex, err := New([]byte(identityGraphJSON), kernel.NewRegistry(), cpu.New(), tensor.CPU, 0, false)
	require.NoError(t, err)
	defer ex.Close()

	err = ex.GetOutput(3, floatView(1))
	require.Error(t, err)
	var re *RangeError
	assert.ErrorAs(t, err, &re)
}

func TestInvokeDispatch(t *testing.T) {
	ex, err := New([]byte(identityGraphJSON), kernel.NewRegistry(), cpu.New(), tensor.CPU, 0, false)
	require.NoError(t, err)
	defer ex.Close()

	_, err = ex.Invoke("set_input", "x", floatView(1, 2, 3, 4, 5, 6))
	require.NoError(t, err)
	_, err = ex.Invoke("run")
	require.NoError(t, err)

	names, err := ex.Invoke("get_input_names")
	require.NoError(t, err)
	assert.Equal(t, "x", names)

	_, err = ex.Invoke("not_a_real_op")
	assert.Error(t, err)
}

func TestDebugRunCatchesNaN(t *testing.T) {
	ex, err := New([]byte(identityGraphJSON), kernel.NewRegistry(), cpu.New(), tensor.CPU, 0, true)
	require.NoError(t, err)
	defer ex.Close()

	bad := floatView(1, 2, 3, 4, 5, 6)
	bad.AsFloat32()[0] = float32(0)
	bad.AsFloat32()[0] /= bad.AsFloat32()[0] // NaN
	require.NoError(t, ex.SetInput("x", bad))

	touched := 0
	err = ex.DebugRun(CheckNaN, func(entryID int, dtype tensor.DType, shape tensor.Shape, ptr uintptr) {
		touched++
	})
	require.Error(t, err)
	var ne *NaNInfError
	assert.ErrorAs(t, err, &ne)
	assert.Equal(t, "NaN", ne.Kind)
}
