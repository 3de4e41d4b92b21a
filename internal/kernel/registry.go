package kernel

import (
	"fmt"

	"github.com/graphrt-go/graphrt/internal/tensor"
)

// Fn is an unpacked kernel body: inputs first, one output last. Registry
// wraps each Fn into the Invoker shape the op binder expects, writing
// into a caller-supplied output view instead of allocating and
// returning a fresh tensor.
type Fn func(inputs []*tensor.View, output *tensor.View) error

// Registry is the concrete, in-process Module implementation used by
// tests, the CLI default, and anywhere else an external code module
// isn't supplied.
type Registry struct {
	fns map[string]Fn
}

// NewRegistry returns a Registry pre-populated with a small set of
// elementwise float32 kernels, enough to drive basic graphs without
// pulling in a real tensor-math library — production deployments wire a
// real compiled code module instead.
func NewRegistry() *Registry {
	r := &Registry{fns: make(map[string]Fn)}
	r.Register("add", binaryOp(func(a, b float32) float32 { return a + b }))
	r.Register("sub", binaryOp(func(a, b float32) float32 { return a - b }))
	r.Register("mul", binaryOp(func(a, b float32) float32 { return a * b }))
	r.Register("div", binaryOp(func(a, b float32) float32 { return a / b }))
	r.Register("relu", unaryOp(func(x float32) float32 {
		if x < 0 {
			return 0
		}
		return x
	}))
	r.Register("identity", unaryOp(func(x float32) float32 { return x }))
	return r
}

// Register adds or replaces a named kernel.
func (r *Registry) Register(name string, fn Fn) {
	r.fns[name] = fn
}

// Lookup implements Module.
func (r *Registry) Lookup(name string) (Invoker, bool) {
	fn, ok := r.fns[name]
	if !ok {
		return nil, false
	}
	return func(args []*tensor.View, codes []ArgTypeCode) error {
		if len(args) < 2 {
			return fmt.Errorf("kernel %q: need at least 1 input and 1 output, got %d args", name, len(args))
		}
		inputs := args[:len(args)-1]
		output := args[len(args)-1]
		return fn(inputs, output)
	}, true
}

func binaryOp(f func(a, b float32) float32) Fn {
	return func(inputs []*tensor.View, output *tensor.View) error {
		if len(inputs) != 2 {
			return fmt.Errorf("binary kernel expects 2 inputs, got %d", len(inputs))
		}
		a, b, out := inputs[0].AsFloat32(), inputs[1].AsFloat32(), output.AsFloat32()
		n := len(out)
		if len(a) != n && len(a) != 1 {
			return fmt.Errorf("binary kernel: input 0 has %d elements, output has %d", len(a), n)
		}
		if len(b) != n && len(b) != 1 {
			return fmt.Errorf("binary kernel: input 1 has %d elements, output has %d", len(b), n)
		}
		for i := 0; i < n; i++ {
			av := a[i%len(a)]
			bv := b[i%len(b)]
			out[i] = f(av, bv)
		}
		return nil
	}
}

func unaryOp(f func(x float32) float32) Fn {
	return func(inputs []*tensor.View, output *tensor.View) error {
		if len(inputs) != 1 {
			return fmt.Errorf("unary kernel expects 1 input, got %d", len(inputs))
		}
		in, out := inputs[0].AsFloat32(), output.AsFloat32()
		if len(in) != len(out) {
			return fmt.Errorf("unary kernel: input has %d elements, output has %d", len(in), len(out))
		}
		for i := range out {
			out[i] = f(in[i])
		}
		return nil
	}
}
