// Package kernel resolves each graph node's kernel against an opaque
// code module and pre-packs its argument vector once at setup. The code
// module itself — the opaque collaborator that owns compiled kernel
// bodies and exposes them by name — is a pluggable external dependency;
// this package only defines the seam (Module/Invoker) plus a concrete
// in-process Registry used by tests, the CLI, and as the default when
// no external module is wired.
package kernel

import "github.com/graphrt-go/graphrt/internal/tensor"

// ArgTypeCode marks what kind of value an argument cell holds. The
// executor only ever produces array handles today; the type survives as
// an explicit per-arg tag (rather than being implied by position)
// because that's the contract the opaque dispatch boundary promises
// callers in other language bindings.
type ArgTypeCode uint8

// ArgHandle is the only type code the storage-pool-backed executor ever
// produces: every argument is a device array view.
const ArgHandle ArgTypeCode = 0

// Invoker is a pre-resolved, type-erased callable kernel: given the
// packed value cells and their type codes (one pair per argument, inputs
// followed by outputs), it performs the kernel's work in place. It must
// not retain args past the call.
type Invoker func(args []*tensor.View, codes []ArgTypeCode) error

// Module is the opaque code module capability: lookup(name) → invoker.
// Implementations map this onto whatever dynamic-dispatch primitive the
// host ecosystem offers; graphrt never looks past this interface.
type Module interface {
	Lookup(name string) (Invoker, bool)
}
