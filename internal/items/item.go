// ABOUTME: Item model: an LLM-generated template plus a mutable string state map.
// ABOUTME: Interaction deltas merge key by key; reset restores the state captured at creation.

package items

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// IO types an interaction may consume or produce.
var IOTypes = []string{"item", "sound", "smell", "status", "feeling", "text", "force"}

// IO is one interaction input or output.
type IO struct {
	NameAndAmount string `json:"name_and_amount"`
	Type          string `json:"type"`
}

// InteractionDef describes one thing a user can do with an item.
type InteractionDef struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	RequiredState []string `json:"required_state"`
	ActionInputs  []IO     `json:"action_inputs"`
	ActionOutputs []IO     `json:"action_outputs"`
}

// Template is the generated definition of an item.
type Template struct {
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	StateParameters []string         `json:"state_parameters"`
	Interactions    []InteractionDef `json:"interactions"`
	CorePrompt      string           `json:"core_prompt"`
}

// Interaction looks up an interaction by name.
func (t *Template) Interaction(name string) (InteractionDef, bool) {
	for _, i := range t.Interactions {
		if i.Name == name {
			return i, true
		}
	}
	return InteractionDef{}, false
}

// State is an item's state map.
type State map[string]string

// Clone returns a copy of s.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// InteractionRequest asks the simulator to perform one interaction.
type InteractionRequest struct {
	Interaction string            `json:"interaction"`
	Inputs      map[string]string `json:"inputs"`
	Intent      string            `json:"intent"`
}

// Interaction is the simulator's answer to a request.
type Interaction struct {
	UpdatedState State  `json:"updated_item_state"`
	Outputs      []IO   `json:"outputs"`
	Description  string `json:"description"`
}

// Item is a live item instance.
type Item struct {
	template *Template

	mu      sync.Mutex
	state   State
	initial State
}

// New creates an item from a template and its initial state.
func New(template *Template, state State) *Item {
	if state == nil {
		state = State{}
	}
	return &Item{
		template: template,
		state:    state.Clone(),
		initial:  state.Clone(),
	}
}

// Template returns the item's template.
func (i *Item) Template() *Template { return i.template }

// Name returns the template name.
func (i *Item) Name() string { return i.template.Name }

// State returns a copy of the current state.
func (i *Item) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state.Clone()
}

// Merge overwrites state keys present in delta. Keys absent from delta are kept.
func (i *Item) Merge(delta State) State {
	i.mu.Lock()
	defer i.mu.Unlock()
	for k, v := range delta {
		i.state[k] = v
	}
	return i.state.Clone()
}

// Reset restores the state captured at creation.
func (i *Item) Reset() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.state = i.initial.Clone()
	return i.state.Clone()
}

// Sheet renders the item as markdown: description, interactions and state.
func (i *Item) Sheet() string {
	state := i.State()
	t := i.template

	var b strings.Builder
	fmt.Fprintf(&b, "# Item: %s\n%s\n## Interactions\n", t.Name, t.Description)
	for _, in := range t.Interactions {
		inputs := make([]string, len(in.ActionInputs))
		for j, io := range in.ActionInputs {
			inputs[j] = fmt.Sprintf("%s: %s", io.NameAndAmount, io.Type)
		}
		fmt.Fprintf(&b, "- %s (%s) - %s\n", in.Name, strings.Join(inputs, ", "), in.Description)
	}
	b.WriteString("## State\n")
	keys := make([]string, 0, len(state))
	for k := range state {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %s\n", k, state[k])
	}
	return b.String()
}
