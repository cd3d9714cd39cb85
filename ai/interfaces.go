package ai

import "context"

// Completer generates a text completion for a prompt.
// Implementations must be thread-safe for concurrent use and are expected
// to retry transient transport failures internally before giving up.
type Completer interface {
	// Complete sends the prompt to the model and returns its raw text
	// response. The text is returned uninterpreted. Returns an error
	// wrapping ErrOracle once the adapter's retry budget is exhausted.
	Complete(ctx context.Context, prompt string) (string, error)
}
