// ABOUTME: Completer is the reasoning collaborator: prompt plus output contract in, raw text out.
// ABOUTME: Providers (OpenAI, Venice, Anthropic, scripted) all satisfy this one interface.

package reasoning

import (
	"context"
	"errors"
	"fmt"

	"github.com/2389/polis/internal/toolset"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyResponse indicates the provider returned no text.
var ErrEmptyResponse = fmt.Errorf("%w: reasoning call returned nothing", toolset.ErrUpstreamFailure)

// ErrInvalidResponse indicates the returned text does not satisfy the contract.
var ErrInvalidResponse = fmt.Errorf("%w: response does not match output contract", toolset.ErrValidationFailed)

// ErrUnknownProvider indicates the configured provider name is not supported.
var ErrUnknownProvider = errors.New("unknown reasoning provider")

// Message is one turn of conversation sent to the provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Contract describes the JSON document the caller expects back.
type Contract struct {
	Name        string
	Description string
	Schema      map[string]any
}

// Request is one completion request.
type Request struct {
	System   string
	Messages []Message
	Model    string
	Contract *Contract
}

// Completer produces one raw completion for a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// upstreamError marks a provider failure as an upstream failure.
func upstreamError(provider string, err error) error {
	return fmt.Errorf("%w: %s api error: %w", toolset.ErrUpstreamFailure, provider, err)
}
