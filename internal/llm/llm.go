package llm

import "context"

// Completer is the text-completion capability: one prompt in, free text out.
// A nil Completer anywhere in the pipeline means the capability is absent
// and the component must use its fallback behaviour.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Embedder turns text into a vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
