package kernel

import "github.com/graphrt-go/graphrt/internal/tensor"

// Closure is one node's pre-packed invocation: fixed argument locations,
// resolved once at bind time and reused for every run(). It owns args,
// the value cells, the type codes, and the flatten scratch for its
// entire lifetime.
type Closure struct {
	NodeName string
	FuncName string

	args    []tensor.View
	cells   []*tensor.View
	codes   []ArgTypeCode
	scratch []int64 // non-nil only when flatten_data rewrote every arg to rank-1.

	invoke Invoker
	nop    bool
}

// Invoke runs the closure's kernel once. A nil Closure (an input
// placeholder's empty slot) is a no-op.
func (c *Closure) Invoke() error {
	if c == nil || c.nop {
		return nil
	}
	return c.invoke(c.cells, c.codes)
}
