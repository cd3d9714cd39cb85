package mock

import (
	"context"
	"sync"
)

// Completer is a test double for ai.Completer.
// It allows custom behavior injection via function fields.
type Completer struct {
	// CompleteFunc is called by Complete if set.
	// If nil, Complete returns Response unchanged.
	CompleteFunc func(ctx context.Context, prompt string) (string, error)

	// Response is the canned reply used when CompleteFunc is nil.
	Response string

	mu        sync.Mutex
	callCount int
	prompts   []string
}

// NewCompleter creates a mock completer with an empty canned response.
// Note: Returns concrete type to allow test assertions.
func NewCompleter() *Completer {
	return &Completer{}
}

// Complete records the prompt and returns the injected behavior's result.
func (m *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt)
	}
	return m.Response, nil
}

// CallCount returns the number of times Complete was called.
func (m *Completer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Prompts returns every prompt Complete has received, in order.
func (m *Completer) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Reset clears the call record and custom function.
func (m *Completer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.prompts = nil
	m.CompleteFunc = nil
}
