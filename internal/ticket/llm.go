// internal/ticket/llm.go
package ticket

import "context"

// Provider is the interface for any text-generation backend. The pipeline uses
// it identically for classification, drafting and review; only the prompt
// differs.
type Provider interface {
	Send(ctx context.Context, req *LLMRequest) (*LLMResponse, error)
}

// ProviderFunc adapts a plain function to Provider, handy for scripted tests.
type ProviderFunc func(ctx context.Context, req *LLMRequest) (*LLMResponse, error)

// Send implements Provider.
func (f ProviderFunc) Send(ctx context.Context, req *LLMRequest) (*LLMResponse, error) {
	return f(ctx, req)
}

// LLMRequest is a single prompt with an optional sampling temperature.
type LLMRequest struct {
	MaxTokens   int
	System      string
	Prompt      string
	Temperature *float64
}

// LLMResponse is the free-text output of one generation call.
type LLMResponse struct {
	Text       string
	StopReason StopReason
	Usage      Usage
	Model      string
}

// StopReason indicates why the provider stopped generating.
type StopReason string

const (
	StopEnd       StopReason = "end_turn"
	StopMaxTokens StopReason = "max_tokens"
)

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Retriever ranks supporting documents for a ticket.
type Retriever interface {
	Retrieve(category Category, query string) RetrievalResult
}
