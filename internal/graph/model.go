// Package graph holds the in-memory representation of a compiled
// tensor-program graph: nodes, node entries, the storage plan, and the
// textual loader that builds one from a compiler-emitted document.
package graph

import (
	"fmt"

	"github.com/graphrt-go/graphrt/internal/tensor"
)

// Supported op_type values. Anything else is rejected at load.
const (
	OpNull  = "null"
	OpTVMOp = "tvm_op"
)

// NodeEntry addresses one output of one node. Version defaults to zero
// when absent from the source document.
type NodeEntry struct {
	NodeID      int
	OutputIndex int
	Version     int
}

// OpParam carries the attributes a tvm_op node requires: which kernel to
// invoke and its arity.
type OpParam struct {
	FuncName    string
	NumInputs   int
	NumOutputs  int
	FlattenData bool
}

// Node is one vertex of the graph. For op_type "null" OpParam is the
// zero value and NumOutputs is implicitly 1 — null nodes are input
// placeholders, not kernel invocations.
type Node struct {
	OpType      string
	Name        string
	OpParam     OpParam
	Inputs      []NodeEntry
	ControlDeps []int
}

// NumOutputs returns how many entries this node contributes to the
// global entry numbering.
func (n Node) NumOutputs() int {
	if n.OpType == OpTVMOp {
		return n.OpParam.NumOutputs
	}
	return 1
}

// GraphAttr is the compiler-supplied storage plan: three parallel arrays
// indexed by entry id.
type GraphAttr struct {
	DLType    []string
	StorageID []int
	Shape     []tensor.Shape
}

// Graph is the full loaded program.
type Graph struct {
	Nodes      []Node
	InputNodes []int
	Outputs    []NodeEntry
	NodeRowPtr []int
	Attrs      GraphAttr
}

// EntryID computes the global entry id of node nid's output index idx —
// the sole join key between nodes and the storage plan.
func (g *Graph) EntryID(nid, idx int) int {
	return g.NodeRowPtr[nid] + idx
}

// EntryIDOf is a convenience wrapper over EntryID for a NodeEntry value.
func (g *Graph) EntryIDOf(e NodeEntry) int {
	return g.EntryID(e.NodeID, e.OutputIndex)
}

// TotalEntries returns the total number of node entries in the graph.
func (g *Graph) TotalEntries() int {
	if len(g.NodeRowPtr) == 0 {
		return 0
	}
	return g.NodeRowPtr[len(g.NodeRowPtr)-1]
}

// InputNodeNames returns the node names of every entry in InputNodes, in
// order — this is the list set_input/get_input name lookup scans.
func (g *Graph) InputNodeNames() []string {
	names := make([]string, len(g.InputNodes))
	for i, nid := range g.InputNodes {
		names[i] = g.Nodes[nid].Name
	}
	return names
}

// OutputNames returns the node names backing each head entry, in order.
func (g *Graph) OutputNames() []string {
	names := make([]string, len(g.Outputs))
	for i, e := range g.Outputs {
		names[i] = g.Nodes[e.NodeID].Name
	}
	return names
}

// Validate checks the structural invariants a loaded graph must satisfy,
// beyond what the textual loader already enforces field by field. It is
// called once, right after Load, before storage planning.
func (g *Graph) Validate() error {
	total := g.TotalEntries()
	if len(g.Attrs.StorageID) != total || len(g.Attrs.DLType) != total || len(g.Attrs.Shape) != total {
		return fmt.Errorf("graph: storage plan arrays have length %d/%d/%d, want %d entries",
			len(g.Attrs.StorageID), len(g.Attrs.DLType), len(g.Attrs.Shape), total)
	}
	if len(g.NodeRowPtr) != len(g.Nodes)+1 {
		return fmt.Errorf("graph: node_row_ptr has length %d, want %d (nodes+1)", len(g.NodeRowPtr), len(g.Nodes)+1)
	}

	seen := make([]bool, len(g.Nodes)) // producing node appears earlier than consumer
	for nid, n := range g.Nodes {
		for k := 0; k < n.NumOutputs(); k++ {
			if g.EntryID(nid, k) >= total {
				return fmt.Errorf("graph: node %d output %d maps to entry %d, out of %d total entries", nid, k, g.EntryID(nid, k), total)
			}
		}
		for _, in := range n.Inputs {
			if in.NodeID < 0 || in.NodeID >= len(g.Nodes) {
				return fmt.Errorf("graph: node %d references unknown producer node %d", nid, in.NodeID)
			}
			if !seen[in.NodeID] {
				return fmt.Errorf("graph: node %d (%s) consumes node %d before it is produced — not topologically sorted", nid, n.Name, in.NodeID)
			}
			if eid := g.EntryIDOf(in); eid >= total {
				return fmt.Errorf("graph: node %d input entry %d out of %d total entries", nid, eid, total)
			}
		}
		seen[nid] = true
	}
	return nil
}
