// Package embedding implements C1: producing unit-length vectors of
// fixed dimension D from {text, image, instruction} inputs, per spec.md
// §4.1. Exactly one Provider backend is active per process, selected by
// configuration.
package embedding

import "context"

// Instruction strings of spec.md §4.1. Indexing and every query path
// (text and image) use DefaultIndexInstruction;
// DefaultQueryTextInstruction and DefaultQueryImageInstruction are not
// used by any query path.
const (
	DefaultIndexInstruction      = "Represent this image for retrieval."
	DefaultQueryTextInstruction  = "Represent this text for retrieval."
	DefaultQueryImageInstruction = "Represent this image for retrieval."
)

// Input is one embedding request: at least one of Text/ImagePath/
// ImageBytes must be set.
type Input struct {
	Text        string
	ImagePath   string
	ImageBytes  []byte
	Instruction string
	Normalize   bool
}

// HasContent reports whether the input carries at least one of the
// required fields, per spec.md §4.1's InvalidInput contract.
func (in Input) HasContent() bool {
	return in.Text != "" || in.ImagePath != "" || len(in.ImageBytes) > 0
}

// Provider is the C1 capability interface; Local and Remote backends both
// implement it, per spec.md §9's "runtime provider selection" strategy.
type Provider interface {
	// Embed produces a single vector, failing with InvalidInput if in has
	// no content and ProviderUnavailable if the backend cannot be reached
	// after retries.
	Embed(ctx context.Context, in Input) ([]float64, error)

	// EmbedBatch embeds every input, preserving order and length.
	EmbedBatch(ctx context.Context, inputs []Input) ([][]float64, error)

	// Dimension returns D, the fixed dimensionality of vectors this
	// provider produces.
	Dimension() int64
}
