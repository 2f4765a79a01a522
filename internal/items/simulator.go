// ABOUTME: Item simulator: asks the reasoning collaborator to design items and play out interactions.
// ABOUTME: Each operation is one completion with a JSON output contract.

package items

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/2389/polis/internal/reasoning"
	"github.com/2389/polis/internal/toolset"
)

// Simulator generates templates, initial states and interaction outcomes.
type Simulator struct {
	completer reasoning.Completer
	model     string
	logger    *slog.Logger
}

// NewSimulator creates a simulator using the given model for every call.
func NewSimulator(c reasoning.Completer, model string, logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{
		completer: c,
		model:     model,
		logger:    logger.With("component", "items"),
	}
}

// CreateTemplate designs an item from a natural-language description.
func (s *Simulator) CreateTemplate(ctx context.Context, description string) (*Template, error) {
	var tmpl Template
	err := s.complete(ctx, templateSystemPrompt, templateUserPrompt(description), templateContract(), &tmpl)
	if err != nil {
		return nil, fmt.Errorf("creating item template: %w", err)
	}
	if strings.TrimSpace(tmpl.Name) == "" {
		return nil, fmt.Errorf("creating item template: %w", reasoning.ErrInvalidResponse)
	}
	s.logger.Debug("item template created", "name", tmpl.Name, "interactions", len(tmpl.Interactions))
	return &tmpl, nil
}

// InitialState produces the starting state for a new item.
func (s *Simulator) InitialState(ctx context.Context, tmpl *Template, creationPrompt string) (State, error) {
	var out struct {
		ItemState State `json:"item_state"`
	}
	err := s.complete(ctx, initialStateSystemPrompt, initialStateUserPrompt(tmpl, creationPrompt), stateContract(), &out)
	if err != nil {
		return nil, fmt.Errorf("creating item state: %w", err)
	}
	if out.ItemState == nil {
		out.ItemState = State{}
	}
	return out.ItemState, nil
}

// Interact simulates one interaction. A refused interaction comes back with
// an unchanged (or empty) state delta.
func (s *Simulator) Interact(ctx context.Context, tmpl *Template, state State, req InteractionRequest) (*Interaction, error) {
	var out Interaction
	err := s.complete(ctx, interactionSystemPrompt, interactionUserPrompt(tmpl, state, req), interactionContract(), &out)
	if err != nil {
		return nil, fmt.Errorf("simulating interaction: %w", err)
	}
	if out.UpdatedState == nil {
		out.UpdatedState = State{}
	}
	return &out, nil
}

func (s *Simulator) complete(ctx context.Context, system, user string, contract *reasoning.Contract, v any) error {
	text, err := s.completer.Complete(ctx, reasoning.Request{
		System:   system,
		Messages: []reasoning.Message{{Role: reasoning.RoleUser, Content: user}},
		Model:    s.model,
		Contract: contract,
	})
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return reasoning.ErrEmptyResponse
	}
	raw, err := reasoning.ExtractJSON(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("%w: %v", toolset.ErrValidationFailed, err)
	}
	return nil
}
