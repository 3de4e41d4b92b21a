package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphrt-go/graphrt/internal/tensor"
)

func validGraph() *Graph {
	return &Graph{
		Nodes: []Node{
			{OpType: OpNull, Name: "a"},
			{OpType: OpTVMOp, Name: "add0", OpParam: OpParam{FuncName: "add", NumOutputs: 1}, Inputs: []NodeEntry{{NodeID: 0, OutputIndex: 0}}},
		},
		InputNodes: []int{0},
		Outputs:    []NodeEntry{{NodeID: 1, OutputIndex: 0}},
		NodeRowPtr: []int{0, 1, 2},
		Attrs: GraphAttr{
			DLType:    []string{"float32", "float32"},
			StorageID: []int{0, 1},
			Shape:     []tensor.Shape{{4}, {4}},
		},
	}
}

func TestGraphEntryIDAndTotalEntries(t *testing.T) {
	g := validGraph()
	assert.Equal(t, 0, g.EntryID(0, 0))
	assert.Equal(t, 1, g.EntryID(1, 0))
	assert.Equal(t, 1, g.EntryIDOf(NodeEntry{NodeID: 1, OutputIndex: 0}))
	assert.Equal(t, 2, g.TotalEntries())
}

func TestGraphValidateOK(t *testing.T) {
	require.NoError(t, validGraph().Validate())
}

func TestGraphValidateRejectsMismatchedAttrLengths(t *testing.T) {
	g := validGraph()
	g.Attrs.DLType = g.Attrs.DLType[:1]
	assert.Error(t, g.Validate())
}

func TestGraphValidateRejectsBadNodeRowPtrLength(t *testing.T) {
	g := validGraph()
	g.NodeRowPtr = []int{0, 1}
	assert.Error(t, g.Validate())
}

func TestGraphValidateRejectsOutOfOrderConsumer(t *testing.T) {
	g := &Graph{
		Nodes: []Node{
			{OpType: OpTVMOp, Name: "consumer", OpParam: OpParam{FuncName: "identity", NumOutputs: 1}, Inputs: []NodeEntry{{NodeID: 1, OutputIndex: 0}}},
			{OpType: OpNull, Name: "producer"},
		},
		InputNodes: []int{1},
		Outputs:    []NodeEntry{{NodeID: 0, OutputIndex: 0}},
		NodeRowPtr: []int{0, 1, 2},
		Attrs: GraphAttr{
			DLType:    []string{"float32", "float32"},
			StorageID: []int{0, 1},
			Shape:     []tensor.Shape{{1}, {1}},
		},
	}
	assert.Error(t, g.Validate())
}

func TestInputOutputNames(t *testing.T) {
	g := validGraph()
	assert.Equal(t, []string{"a"}, g.InputNodeNames())
	assert.Equal(t, []string{"add0"}, g.OutputNames())
}
