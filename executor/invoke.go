// Copyright 2025 graphrt Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package executor

import (
	"fmt"

	"github.com/graphrt-go/graphrt/internal/tensor"
)

// Invoke dispatches one named operation from the invocation surface (spec
// §6 "Invocation surface"), the seam other language bindings call through
// instead of the typed Go methods. It exists alongside SetInput/Run/etc.
// rather than replacing them — Go callers use the typed methods directly.
func (e *Executor) Invoke(name string, args ...any) (any, error) {
	switch name {
	case "set_input":
		if len(args) != 2 {
			return nil, fmt.Errorf("executor: set_input takes 2 args, got %d", len(args))
		}
		src, ok := args[1].(tensor.View)
		if !ok {
			return nil, fmt.Errorf("executor: set_input arg 1 must be a tensor view, got %T", args[1])
		}
		return nil, e.SetInput(args[0], src)

	case "get_input":
		if len(args) != 2 {
			return nil, fmt.Errorf("executor: get_input takes 2 args, got %d", len(args))
		}
		dst, ok := args[1].(tensor.View)
		if !ok {
			return nil, fmt.Errorf("executor: get_input arg 1 must be a tensor view, got %T", args[1])
		}
		return nil, e.GetInput(args[0], dst)

	case "get_output":
		if len(args) != 2 {
			return nil, fmt.Errorf("executor: get_output takes 2 args, got %d", len(args))
		}
		idx, ok := args[0].(int)
		if !ok {
			return nil, fmt.Errorf("executor: get_output arg 0 must be int, got %T", args[0])
		}
		dst, ok := args[1].(tensor.View)
		if !ok {
			return nil, fmt.Errorf("executor: get_output arg 1 must be a tensor view, got %T", args[1])
		}
		return nil, e.GetOutput(idx, dst)

	case "get_input_names":
		return e.GetInputNames(), nil

	case "get_output_names":
		return e.GetOutputNames(), nil

	case "set_debug_buffer":
		if len(args) != 1 {
			return nil, fmt.Errorf("executor: set_debug_buffer takes 1 arg, got %d", len(args))
		}
		view, ok := args[0].(tensor.View)
		if !ok {
			return nil, fmt.Errorf("executor: set_debug_buffer arg 0 must be a tensor view, got %T", args[0])
		}
		e.SetDebugBuffer(view)
		return nil, nil

	case "run":
		return nil, e.Run()

	case "load_params":
		if len(args) != 1 {
			return nil, fmt.Errorf("executor: load_params takes 1 arg, got %d", len(args))
		}
		blob, ok := args[0].([]byte)
		if !ok {
			return nil, fmt.Errorf("executor: load_params arg 0 must be []byte, got %T", args[0])
		}
		return nil, e.LoadParams(blob)

	default:
		return nil, fmt.Errorf("executor: unrecognized invocation %q", name)
	}
}
