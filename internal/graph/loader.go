package graph

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/graphrt-go/graphrt/internal/tensor"
)

// FormatError reports a load-time structural defect in the textual graph
// description: a missing required field, an unknown key, or a
// wrongly-tagged attribute.
type FormatError struct {
	Context string
	Err     error
}

func (e *FormatError) Error() string { return fmt.Sprintf("graph: %s: %v", e.Context, e.Err) }
func (e *FormatError) Unwrap() error { return e.Err }

func formatErrorf(context, format string, args ...any) error {
	return &FormatError{Context: context, Err: fmt.Errorf(format, args...)}
}

// Top-level field bitmask. The format mixes required fields in an
// order-insensitive JSON object; an unrecognized key is rejected as soon
// as it is seen, and accumulating a bit per recognized key lets one
// comparison against requiredTopLevel catch any missing required field,
// instead of branching on every combination.
const (
	bitNodes uint8 = 1 << iota
	bitArgNodes
	bitNodeRowPtr
	bitHeads
	bitAttrs
)

const requiredTopLevel = bitNodes | bitArgNodes | bitNodeRowPtr | bitHeads | bitAttrs

// Per-node field bitmask.
const (
	bitOp uint8 = 1 << iota
	bitName
	bitInputs
)

const requiredNodeFields = bitOp | bitName | bitInputs

// tvm_op attribute bitmask.
const (
	bitFuncName uint8 = 1 << iota
	bitNumInputs
	bitNumOutputs
	bitFlattenData
)

const requiredOpAttrs = bitFuncName | bitNumInputs | bitNumOutputs | bitFlattenData

// GraphAttr block bitmask.
const (
	bitDLType uint8 = 1 << iota
	bitStorageID
	bitShape
)

const requiredGraphAttrs = bitDLType | bitStorageID | bitShape

// Load parses a textual graph description into a Graph, validating every
// required field along the way.
func Load(text []byte) (*Graph, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(text, &top); err != nil {
		return nil, &FormatError{Context: "top-level document", Err: err}
	}

	mask := uint8(0)
	for key := range top {
		switch key {
		case "nodes":
			mask |= bitNodes
		case "arg_nodes":
			mask |= bitArgNodes
		case "node_row_ptr":
			mask |= bitNodeRowPtr
		case "heads":
			mask |= bitHeads
		case "attrs":
			mask |= bitAttrs
		default:
			return nil, formatErrorf("top-level document", "unknown key %q", key)
		}
	}
	if mask != requiredTopLevel {
		return nil, formatErrorf("top-level document", "missing required field(s), have mask %#x want %#x", mask, requiredTopLevel)
	}

	var rawNodes []map[string]json.RawMessage
	if err := json.Unmarshal(top["nodes"], &rawNodes); err != nil {
		return nil, &FormatError{Context: "nodes", Err: err}
	}
	nodes := make([]Node, len(rawNodes))
	for i, rn := range rawNodes {
		n, err := decodeNode(rn)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		nodes[i] = n
	}

	var argNodes []int
	if err := json.Unmarshal(top["arg_nodes"], &argNodes); err != nil {
		return nil, &FormatError{Context: "arg_nodes", Err: err}
	}

	var nodeRowPtr []int
	if err := json.Unmarshal(top["node_row_ptr"], &nodeRowPtr); err != nil {
		return nil, &FormatError{Context: "node_row_ptr", Err: err}
	}

	var rawHeads [][]int
	if err := json.Unmarshal(top["heads"], &rawHeads); err != nil {
		return nil, &FormatError{Context: "heads", Err: err}
	}
	heads := make([]NodeEntry, len(rawHeads))
	for i, h := range rawHeads {
		e, err := decodeEntryTriple(h)
		if err != nil {
			return nil, fmt.Errorf("heads[%d]: %w", i, err)
		}
		heads[i] = e
	}

	attrs, err := decodeGraphAttr(top["attrs"])
	if err != nil {
		return nil, err
	}

	g := &Graph{
		Nodes:      nodes,
		InputNodes: argNodes,
		Outputs:    heads,
		NodeRowPtr: nodeRowPtr,
		Attrs:      attrs,
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func decodeNode(raw map[string]json.RawMessage) (Node, error) {
	var n Node
	mask := uint8(0)
	var attrRaw json.RawMessage
	haveAttr := false

	for key, val := range raw {
		switch key {
		case "op":
			mask |= bitOp
			if err := json.Unmarshal(val, &n.OpType); err != nil {
				return Node{}, &FormatError{Context: "op", Err: err}
			}
		case "name":
			mask |= bitName
			if err := json.Unmarshal(val, &n.Name); err != nil {
				return Node{}, &FormatError{Context: "name", Err: err}
			}
		case "inputs":
			mask |= bitInputs
			var rawInputs [][]int
			if err := json.Unmarshal(val, &rawInputs); err != nil {
				return Node{}, &FormatError{Context: "inputs", Err: err}
			}
			n.Inputs = make([]NodeEntry, len(rawInputs))
			for i, in := range rawInputs {
				e, err := decodeEntryTriple(in)
				if err != nil {
					return Node{}, fmt.Errorf("inputs[%d]: %w", i, err)
				}
				n.Inputs[i] = e
			}
		case "attr", "attrs":
			attrRaw, haveAttr = val, true
		case "control_deps":
			if err := json.Unmarshal(val, &n.ControlDeps); err != nil {
				return Node{}, &FormatError{Context: "control_deps", Err: err}
			}
		default:
			return Node{}, formatErrorf("node", "unknown key %q", key)
		}
	}

	if mask != requiredNodeFields {
		return Node{}, formatErrorf("node", "missing required field(s), have mask %#x want %#x", mask, requiredNodeFields)
	}

	switch n.OpType {
	case OpNull:
		// Input placeholder: no op_param to decode.
	case OpTVMOp:
		if !haveAttr {
			return Node{}, formatErrorf("node", "tvm_op %q missing attr/attrs", n.Name)
		}
		p, err := decodeOpParam(attrRaw)
		if err != nil {
			return Node{}, fmt.Errorf("node %q: %w", n.Name, err)
		}
		n.OpParam = p
	default:
		return Node{}, formatErrorf("node", "unsupported op_type %q", n.OpType)
	}
	return n, nil
}

func decodeOpParam(raw json.RawMessage) (OpParam, error) {
	var fields map[string]string
	if err := json.Unmarshal(raw, &fields); err != nil {
		return OpParam{}, &FormatError{Context: "op_param", Err: err}
	}

	mask := uint8(0)
	var p OpParam
	for key, val := range fields {
		switch key {
		case "func_name":
			mask |= bitFuncName
			p.FuncName = val
		case "num_inputs":
			mask |= bitNumInputs
			n, err := strconv.Atoi(val)
			if err != nil {
				return OpParam{}, formatErrorf("op_param.num_inputs", "not a decimal integer: %q", val)
			}
			p.NumInputs = n
		case "num_outputs":
			mask |= bitNumOutputs
			n, err := strconv.Atoi(val)
			if err != nil {
				return OpParam{}, formatErrorf("op_param.num_outputs", "not a decimal integer: %q", val)
			}
			p.NumOutputs = n
		case "flatten_data":
			mask |= bitFlattenData
			n, err := strconv.Atoi(val)
			if err != nil {
				return OpParam{}, formatErrorf("op_param.flatten_data", "not a decimal integer: %q", val)
			}
			p.FlattenData = n != 0
		}
		// Unknown op_param keys are ignored: the compiler may attach
		// extra scheduling hints that don't affect execution.
	}
	if mask != requiredOpAttrs {
		return OpParam{}, formatErrorf("op_param", "missing required field(s), have mask %#x want %#x", mask, requiredOpAttrs)
	}
	return p, nil
}

func decodeEntryTriple(t []int) (NodeEntry, error) {
	switch len(t) {
	case 2:
		return NodeEntry{NodeID: t[0], OutputIndex: t[1], Version: 0}, nil
	case 3:
		return NodeEntry{NodeID: t[0], OutputIndex: t[1], Version: t[2]}, nil
	default:
		return NodeEntry{}, fmt.Errorf("entry triple has %d elements, want 2 or 3", len(t))
	}
}

// taggedValue is the [tag, value] pair every attrs.* entry is wrapped in.
type taggedValue struct {
	Tag   string
	Value json.RawMessage
}

func (t *taggedValue) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("tagged attribute has %d elements, want 2", len(raw))
	}
	if err := json.Unmarshal(raw[0], &t.Tag); err != nil {
		return err
	}
	t.Value = raw[1]
	return nil
}

func decodeGraphAttr(raw json.RawMessage) (GraphAttr, error) {
	var fields map[string]taggedValue
	if err := json.Unmarshal(raw, &fields); err != nil {
		return GraphAttr{}, &FormatError{Context: "attrs", Err: err}
	}

	mask := uint8(0)
	var attr GraphAttr
	for key, tv := range fields {
		switch key {
		case "dltype":
			mask |= bitDLType
			if tv.Tag != "list_str" {
				return GraphAttr{}, formatErrorf("attrs.dltype", "tagged %q, want list_str", tv.Tag)
			}
			if err := json.Unmarshal(tv.Value, &attr.DLType); err != nil {
				return GraphAttr{}, &FormatError{Context: "attrs.dltype", Err: err}
			}
		case "storage_id":
			mask |= bitStorageID
			if tv.Tag != "list_int" {
				return GraphAttr{}, formatErrorf("attrs.storage_id", "tagged %q, want list_int", tv.Tag)
			}
			if err := json.Unmarshal(tv.Value, &attr.StorageID); err != nil {
				return GraphAttr{}, &FormatError{Context: "attrs.storage_id", Err: err}
			}
		case "shape":
			mask |= bitShape
			if tv.Tag != "list_shape" {
				return GraphAttr{}, formatErrorf("attrs.shape", "tagged %q, want list_shape", tv.Tag)
			}
			var raw [][]int64
			if err := json.Unmarshal(tv.Value, &raw); err != nil {
				return GraphAttr{}, &FormatError{Context: "attrs.shape", Err: err}
			}
			attr.Shape = make([]tensor.Shape, len(raw))
			for i, s := range raw {
				attr.Shape[i] = tensor.Shape(s)
			}
		default:
			// Any other attribute is skipped provided it is tagged
			// list_int or size_t; anything else is fatal.
			if tv.Tag != "list_int" && tv.Tag != "size_t" {
				return GraphAttr{}, formatErrorf("attrs", "unrecognized attribute %q tagged %q", key, tv.Tag)
			}
		}
	}
	if mask != requiredGraphAttrs {
		return GraphAttr{}, formatErrorf("attrs", "missing required field(s), have mask %#x want %#x", mask, requiredGraphAttrs)
	}
	return attr, nil
}
