// Package reasoning is the boundary to the language models that drive actors
// and simulate items.
//
// Everything above this package sees a single interface:
//
//	type Completer interface {
//		Complete(ctx context.Context, req Request) (string, error)
//	}
//
// A Request carries a system prompt, the message history, a model id and an
// optional output Contract (a JSON schema). The OpenAI adapter sends the
// contract as a json_schema response format; the Anthropic adapter appends it
// to the system prompt. Venice is served by the OpenAI adapter pointed at
// VeniceBaseURL.
//
// ParseDecision turns raw text into the fixed actor Decision. Empty text is
// ErrEmptyResponse (an upstream failure); text that does not match the
// contract is ErrInvalidResponse (a validation failure).
package reasoning
