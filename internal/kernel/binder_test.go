package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphrt-go/graphrt/internal/backend/cpu"
	"github.com/graphrt-go/graphrt/internal/graph"
	"github.com/graphrt-go/graphrt/internal/storage"
	"github.com/graphrt-go/graphrt/internal/tensor"
)

const twoOpChainJSON = `{
  "nodes": [
    {"op": "null", "name": "a", "inputs": []},
    {"op": "null", "name": "b", "inputs": []},
    {"op": "tvm_op", "name": "add0", "inputs": [[0,0,0],[1,0,0]],
     "attrs": {"func_name": "add", "num_inputs": "2", "num_outputs": "1", "flatten_data": "0"}},
    {"op": "tvm_op", "name": "relu0", "inputs": [[2,0,0]],
     "attrs": {"func_name": "relu", "num_inputs": "1", "num_outputs": "1", "flatten_data": "0"}}
  ],
  "arg_nodes": [0, 1],
  "node_row_ptr": [0, 1, 2, 3, 4],
  "heads": [[3, 0, 0]],
  "attrs": {
    "dltype": ["list_str", ["float32", "float32", "float32", "float32"]],
    "storage_id": ["list_int", [0, 1, 2, 3]],
    "shape": ["list_shape", [[4], [4], [4], [4]]]
  }
}`

func buildTwoOpChain(t *testing.T) (*graph.Graph, *storage.Plan) {
	t.Helper()
	g, err := graph.Load([]byte(twoOpChainJSON))
	require.NoError(t, err)
	plan, err := storage.Allocate(g.Attrs, cpu.New(), tensor.CPU)
	require.NoError(t, err)
	return g, plan
}

func TestBindTwoOpChain(t *testing.T) {
	g, plan := buildTwoOpChain(t)
	closures, err := Bind(g, plan.Entries, NewRegistry())
	require.NoError(t, err)
	require.Len(t, closures, 4)
	assert.Nil(t, closures[0]) // input placeholders
	assert.Nil(t, closures[1])
	require.NotNil(t, closures[2])
	assert.Equal(t, "add0", closures[2].NodeName)
	require.NotNil(t, closures[3])
	assert.Equal(t, "relu0", closures[3].NodeName)
}

func TestBindRunsEndToEnd(t *testing.T) {
	g, plan := buildTwoOpChain(t)
	closures, err := Bind(g, plan.Entries, NewRegistry())
	require.NoError(t, err)

	copy(plan.Entries[0].AsFloat32(), []float32{1, 2, 3, 4})
	copy(plan.Entries[1].AsFloat32(), []float32{-10, -10, 10, 10})

	for _, c := range closures {
		require.NoError(t, c.Invoke())
	}

	out := plan.Entries[g.EntryIDOf(g.Outputs[0])].AsFloat32()
	assert.Equal(t, []float32{0, 0, 13, 14}, out)
}

func TestBindUnknownKernelFails(t *testing.T) {
	g, plan := buildTwoOpChain(t)
	_, err := Bind(g, plan.Entries, &registryWithout{base: NewRegistry(), skip: "add"})
	require.Error(t, err)
	var re *ResolutionError
	assert.ErrorAs(t, err, &re)
}

// registryWithout wraps a Module and hides one func_name, for exercising
// the op binder's resolution-failure path without a bespoke Registry.
type registryWithout struct {
	base Module
	skip string
}

func (r *registryWithout) Lookup(name string) (Invoker, bool) {
	if name == r.skip {
		return nil, false
	}
	return r.base.Lookup(name)
}

func TestBindNopClosureIsNoOp(t *testing.T) {
	nopJSON := `{
	  "nodes": [
	    {"op": "null", "name": "a", "inputs": []},
	    {"op": "tvm_op", "name": "pass0", "inputs": [[0,0,0]],
	     "attrs": {"func_name": "__nop", "num_inputs": "1", "num_outputs": "1", "flatten_data": "0"}}
	  ],
	  "arg_nodes": [0],
	  "node_row_ptr": [0, 1, 2],
	  "heads": [[1, 0, 0]],
	  "attrs": {
	    "dltype": ["list_str", ["float32", "float32"]],
	    "storage_id": ["list_int", [0, 0]],
	    "shape": ["list_shape", [[4], [4]]]
	  }
	}`
	ng, err := graph.Load([]byte(nopJSON))
	require.NoError(t, err)
	nplan, err := storage.Allocate(ng.Attrs, cpu.New(), tensor.CPU)
	require.NoError(t, err)
	closures, err := Bind(ng, nplan.Entries, NewRegistry())
	require.NoError(t, err)
	require.NoError(t, closures[1].Invoke())
}
