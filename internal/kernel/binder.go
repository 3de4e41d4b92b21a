package kernel

import (
	"fmt"

	"github.com/graphrt-go/graphrt/internal/graph"
	"github.com/graphrt-go/graphrt/internal/tensor"
)

// ResolutionError reports a tvm_op node whose func_name has no match in
// the code module.
type ResolutionError struct {
	Node     string
	FuncName string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("kernel: node %q: no kernel named %q in code module", e.Node, e.FuncName)
}

// nopFuncName is the sentinel func_name that skips kernel resolution
// entirely and installs a closure that does nothing.
const nopFuncName = "__nop"

// Bind builds one Closure per graph node, in node order. Input
// placeholder nodes (op_type "null") get a nil closure.
func Bind(g *graph.Graph, entries []tensor.View, mod Module) ([]*Closure, error) {
	closures := make([]*Closure, len(g.Nodes))

	for nid, n := range g.Nodes {
		if n.OpType == graph.OpNull {
			continue // input placeholder: slot stays empty.
		}
		if n.OpType != graph.OpTVMOp {
			return nil, fmt.Errorf("kernel: node %q has unsupported op_type %q", n.Name, n.OpType)
		}

		args := make([]tensor.View, 0, len(n.Inputs)+n.OpParam.NumOutputs)
		for _, in := range n.Inputs {
			args = append(args, entries[g.EntryIDOf(in)])
		}
		for k := 0; k < n.OpParam.NumOutputs; k++ {
			args = append(args, entries[g.EntryID(nid, k)])
		}

		c := &Closure{NodeName: n.Name, FuncName: n.OpParam.FuncName, args: args}

		if n.OpParam.FuncName == nopFuncName {
			c.nop = true
			closures[nid] = c
			continue
		}

		invoke, ok := mod.Lookup(n.OpParam.FuncName)
		if !ok {
			return nil, &ResolutionError{Node: n.Name, FuncName: n.OpParam.FuncName}
		}

		if n.OpParam.FlattenData {
			// Rewrite every arg to a rank-1 view; scratch[i] records
			// arg i's element count. The rewrite is permanent for the executor's
			// lifetime: kernels compiled with flatten_data assume rank-1
			// inputs from here on.
			c.scratch = make([]int64, len(c.args))
			for i := range c.args {
				c.scratch[i] = c.args[i].Shape.NumElements()
				c.args[i] = c.args[i].Reshape(tensor.Shape(c.scratch[i : i+1]))
			}
		}

		c.cells = make([]*tensor.View, len(c.args))
		c.codes = make([]ArgTypeCode, len(c.args))
		for i := range c.args {
			c.cells[i] = &c.args[i]
			c.codes[i] = ArgHandle
		}
		c.invoke = invoke

		closures[nid] = c
	}

	return closures, nil
}
