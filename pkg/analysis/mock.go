package analysis

import (
	"context"
)

// MockProvider is a configurable mock for testing gateway behavior.
// Set the function fields to control behavior in tests.
type MockProvider struct {
	// CompleteFunc is called when Complete is invoked.
	// If nil, returns an empty result and nil error.
	CompleteFunc func(ctx context.Context, req CompletionRequest) (*CompletionResult, error)

	// ModelName is returned by Model. Defaults to "mock-model".
	ModelName string

	// Call tracking for verification
	CompleteCalls int
	LastRequest   CompletionRequest
}

// NewMockProvider creates a new mock with sensible defaults.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		ModelName: "mock-model",
	}
}

// Complete implements Provider.
func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	m.CompleteCalls++
	m.LastRequest = req
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return &CompletionResult{}, nil
}

// Model implements Provider.
func (m *MockProvider) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}

// Reset clears call tracking counters.
func (m *MockProvider) Reset() {
	m.CompleteCalls = 0
	m.LastRequest = CompletionRequest{}
}

// Ensure MockProvider implements Provider at compile time.
var _ Provider = (*MockProvider)(nil)
