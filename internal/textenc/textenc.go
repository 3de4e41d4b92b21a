// Package textenc turns text into the int32 token-id tensors a compiled
// language-model graph expects as input, and turns a graph's output token
// ids back into text. It is CLI-only convenience — the executor core
// never imports it.
package textenc

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/graphrt-go/graphrt/internal/tensor"
)

// Encoder wraps a tiktoken-go BPE encoding.
type Encoder struct {
	enc  *tiktoken.Tiktoken
	name string
}

// New creates an Encoder for a named tiktoken encoding, e.g. "cl100k_base".
func New(encodingName string) (*Encoder, error) {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("textenc: load encoding %q: %w", encodingName, err)
	}
	return &Encoder{enc: enc, name: encodingName}, nil
}

// Encode tokenizes text and returns it as a rank-1 int32 tensor view
// ready to be handed to Executor.SetInput.
func (e *Encoder) Encode(text string) tensor.View {
	ids := e.enc.Encode(text, nil, nil)
	buf := &tensor.Buffer{Data: make([]byte, len(ids)*4), Device: tensor.CPU}
	view := tensor.NewView(buf, 0, tensor.Shape{int64(len(ids))}, tensor.Int32)
	out := view.AsInt32()
	for i, id := range ids {
		out[i] = int32(id) //nolint:gosec // G115: token ids fit in int32, vocab size < 2^31.
	}
	return view
}

// Decode turns a rank-1 int32 token-id view (typically an executor's
// output) back into text.
func (e *Encoder) Decode(view tensor.View) string {
	ids := view.AsInt32()
	intIDs := make([]int, len(ids))
	for i, id := range ids {
		intIDs[i] = int(id)
	}
	return e.enc.Decode(intIDs)
}
