package driven

import "context"

// GenerateOptions holds generation parameters.
type GenerateOptions struct {
	// MaxTokens limits the response length (0 = model default).
	MaxTokens int

	// Temperature controls randomness (0 = model default).
	Temperature float64
}

// AnswerGenerator produces a natural-language answer from a query and
// assembled retrieval context. This is an optional service - when nil,
// answer generation degrades to returning retrieval results only.
//
// The generator is an opaque capability: the core never inspects how
// the answer is produced, only that context in, text out.
type AnswerGenerator interface {
	// Generate produces an answer grounded in the given context blob.
	Generate(ctx context.Context, query, grounding string, opts GenerateOptions) (string, error)

	// ModelName returns the name of the generation model being used.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
