// ABOUTME: Prompts and JSON contracts for item generation and interaction simulation.

package items

import (
	"encoding/json"
	"fmt"

	"github.com/2389/polis/internal/reasoning"
)

const templateSystemPrompt = `You are a helpful assistant that generates in-world item templates for items whose behavior is simulated by a language model.

Each item has a name, a description, a list of state parameters, a core prompt, and a list of interactions that users of the item can perform.
Each interaction has a list of inputs and outputs.
Inputs and outputs have one of these types: item, sound, smell, status, feeling, text, force.
The item can be any object or device that a resident of the city can interact with.`

const initialStateSystemPrompt = "You are a helpful assistant that generates the initial state of an item."

const interactionSystemPrompt = "You are a helpful assistant that simulates an interaction with an item."

func templateUserPrompt(description string) string {
	return fmt.Sprintf("Generate an item template for the following description:\n%s", description)
}

func initialStateUserPrompt(tmpl *Template, creationPrompt string) string {
	return fmt.Sprintf(`Generate the initial state of an item for the following template:
%s

Do not include location or time in the state.

The item is created with the following prompt:
%s`, pretty(tmpl), creationPrompt)
}

func interactionUserPrompt(tmpl *Template, state State, req InteractionRequest) string {
	return fmt.Sprintf(`Your task is to simulate the interaction of an item with a user.

Rules:
  * Realistically simulate the interaction based on the request and the current state of the item.
  * Refuse to perform an interaction that is not possible with the item.
  * If the request is not possible with the current state, refuse and do not update the state.
  * Assume any generated output is handed to the user, so it does not remain in the item's state.

The item is described by the following template:
%s

The current state of the item is:
%s

The user has the following interaction request:
%s`, pretty(tmpl), pretty(state), pretty(req))
}

func pretty(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func ioSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name_and_amount": map[string]any{"type": "string", "description": "The name and amount of the input or output"},
			"type":            map[string]any{"type": "string", "enum": IOTypes},
		},
		"required": []string{"name_and_amount", "type"},
	}
}

func stringMapSchema(description string) map[string]any {
	return map[string]any{
		"type":                 "object",
		"description":          description,
		"additionalProperties": map[string]any{"type": "string"},
	}
}

func templateContract() *reasoning.Contract {
	return &reasoning.Contract{
		Name:        "item_template",
		Description: "an item template",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name":             map[string]any{"type": "string"},
				"description":      map[string]any{"type": "string"},
				"state_parameters": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"interactions": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"name":           map[string]any{"type": "string"},
							"description":    map[string]any{"type": "string"},
							"required_state": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
							"action_inputs":  map[string]any{"type": "array", "items": ioSchema()},
							"action_outputs": map[string]any{"type": "array", "items": ioSchema()},
						},
						"required": []string{"name", "description", "required_state", "action_inputs", "action_outputs"},
					},
				},
				"core_prompt": map[string]any{"type": "string"},
			},
			"required": []string{"name", "description", "state_parameters", "interactions", "core_prompt"},
		},
	}
}

func stateContract() *reasoning.Contract {
	return &reasoning.Contract{
		Name:        "item_state",
		Description: "the initial item state",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"item_state": stringMapSchema("The state of the item"),
			},
			"required": []string{"item_state"},
		},
	}
}

func interactionContract() *reasoning.Contract {
	return &reasoning.Contract{
		Name:        "item_interaction",
		Description: "the outcome of an interaction",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"updated_item_state": stringMapSchema("The updated state of the item after the interaction"),
				"outputs":            map[string]any{"type": "array", "items": ioSchema()},
				"description":        map[string]any{"type": "string"},
			},
			"required": []string{"updated_item_state", "outputs", "description"},
		},
	}
}
