// ABOUTME: The fixed decision contract an actor's reasoning call must satisfy.
// ABOUTME: Parses {intent, rationale, toolCalls, followupInstructions} from raw model text.

package reasoning

import (
	"fmt"
	"strings"

	"github.com/2389/polis/internal/toolset"
)

// Decision is one parsed pass plan.
type Decision struct {
	Intent               string         `json:"intent"`
	Rationale            string         `json:"rationale"`
	ToolCalls            []toolset.Call `json:"toolCalls"`
	FollowupInstructions string         `json:"followupInstructions"`
}

// ToolNames lists the requested tool names in order.
func (d *Decision) ToolNames() []string {
	names := make([]string, len(d.ToolCalls))
	for i, c := range d.ToolCalls {
		names[i] = c.Name
	}
	return names
}

// DecisionContract returns the output contract for actor passes.
func DecisionContract() *Contract {
	return &Contract{
		Name:        "agent_pass",
		Description: "one observe-decide-act plan",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"intent": map[string]any{
					"type":        "string",
					"description": "What you intend to accomplish this pass",
				},
				"rationale": map[string]any{
					"type":        "string",
					"description": "Brief reasoning behind the intent",
				},
				"toolCalls": map[string]any{
					"type":        "array",
					"description": "Tools to call, executed in order",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"name":       map[string]any{"type": "string"},
							"parameters": map[string]any{"type": "object"},
						},
						"required": []string{"name", "parameters"},
					},
				},
				"followupInstructions": map[string]any{
					"type":        "string",
					"description": "Concrete instructions for your next pass",
				},
			},
			"required": []string{"intent", "rationale", "toolCalls", "followupInstructions"},
		},
	}
}

// ParseDecision decodes and validates a decision.
func ParseDecision(text string) (*Decision, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyResponse
	}

	// Pointers tell an absent key apart from an empty value.
	var raw struct {
		Intent    *string `json:"intent"`
		Rationale *string `json:"rationale"`
		ToolCalls *[]struct {
			Name       string         `json:"name"`
			Parameters map[string]any `json:"parameters"`
		} `json:"toolCalls"`
		FollowupInstructions *string `json:"followupInstructions"`
	}
	if err := Decode(text, &raw); err != nil {
		return nil, err
	}
	switch {
	case raw.Intent == nil:
		return nil, fmt.Errorf("%w: missing intent", ErrInvalidResponse)
	case raw.Rationale == nil:
		return nil, fmt.Errorf("%w: missing rationale", ErrInvalidResponse)
	case raw.ToolCalls == nil:
		return nil, fmt.Errorf("%w: missing toolCalls", ErrInvalidResponse)
	case raw.FollowupInstructions == nil:
		return nil, fmt.Errorf("%w: missing followupInstructions", ErrInvalidResponse)
	}

	calls := *raw.ToolCalls
	d := &Decision{
		Intent:               *raw.Intent,
		Rationale:            *raw.Rationale,
		FollowupInstructions: *raw.FollowupInstructions,
		ToolCalls:            make([]toolset.Call, 0, len(calls)),
	}
	for i, c := range calls {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: tool call %d has no name", ErrInvalidResponse, i)
		}
		params := c.Parameters
		if params == nil {
			params = map[string]any{}
		}
		d.ToolCalls = append(d.ToolCalls, toolset.Call{Name: name, Params: params})
	}
	return d, nil
}
