// ABOUTME: Room items toolset: create, list, inspect, interact with, reset and remove owned items.
// ABOUTME: Simulator calls run with no room lock held; mutations re-resolve items by ID.

package polis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/2389/polis/internal/items"
	"github.com/2389/polis/internal/store"
	"github.com/2389/polis/internal/toolset"
)

var roomItemTools = []toolset.Descriptor{
	{Name: "listItems", Description: "List items in room"},
	{
		Name:        "createItem",
		Description: "Create an item in this room (you will own it)",
		Params: []toolset.Param{
			{Name: "description", Description: "Template description", Type: "string"},
			{Name: "creationPrompt", Description: "Creation prompt for initial state", Type: "string"},
		},
	},
	{
		Name:        "interact",
		Description: "Interact with an item",
		Params: []toolset.Param{
			{Name: "index", Description: "Item index", Type: "number", Default: "0"},
			{Name: "interaction", Description: "Interaction name", Type: "string"},
			{Name: "inputs", Description: "JSON of inputs", Type: "string", Default: "{}"},
		},
	},
	{
		Name:        "removeItem",
		Description: "Remove an item you own",
		Params: []toolset.Param{
			{Name: "index", Description: "Item index", Type: "number", Default: "0"},
		},
	},
	{Name: "myItems", Description: "List items you own"},
	{
		Name:        "inspectItem",
		Description: "Show an item's description, interactions and state",
		Params: []toolset.Param{
			{Name: "index", Description: "Item index", Type: "number", Default: "0"},
		},
	},
	{
		Name:        "resetItem",
		Description: "Restore an item you own to its initial state",
		Params: []toolset.Param{
			{Name: "index", Description: "Item index", Type: "number", Default: "0"},
		},
	},
}

func (r *Room) handleItems(ctx context.Context, caller toolset.Caller, call toolset.Call) (string, error) {
	if caller == nil {
		return "", toolset.Errorf(toolset.ErrValidationFailed, "agent required")
	}
	me := normalizeID(caller.ID())

	switch call.Name {
	case "listItems":
		return r.itemListing(), nil

	case "myItems":
		var lines []string
		for _, it := range r.Items() {
			if it.OwnerID == me {
				lines = append(lines, fmt.Sprintf("[%d] %s", it.Index, it.Name))
			}
		}
		if len(lines) == 0 {
			return "You own no items", nil
		}
		return strings.Join(lines, "\n"), nil

	case "createItem":
		return r.createItem(ctx, me, call.String("description"), call.String("creationPrompt"))

	case "interact":
		return r.interact(ctx, caller, call)

	case "removeItem":
		idx := call.Int("index", 0)
		entry, err := r.ownedItem(idx, me, "remove")
		if err != nil {
			return "", err
		}
		r.mu.Lock()
		pos := r.indexOfLocked(entry.id)
		if pos >= 0 {
			r.items = append(r.items[:pos], r.items[pos+1:]...)
		}
		r.mu.Unlock()
		if pos < 0 {
			return "", toolset.Errorf(toolset.ErrNotFound, "item %d not found", idx)
		}
		r.polis.record(ctx, "deleting item", func(ctx context.Context) error {
			return r.polis.store.DeleteItem(ctx, entry.id)
		})
		return fmt.Sprintf("Removed item %d", idx), nil

	case "inspectItem":
		idx := call.Int("index", 0)
		entry, ok := r.itemAt(idx)
		if !ok {
			return "", toolset.Errorf(toolset.ErrNotFound, "item %d not found", idx)
		}
		return entry.item.Sheet(), nil

	case "resetItem":
		idx := call.Int("index", 0)
		entry, err := r.ownedItem(idx, me, "reset")
		if err != nil {
			return "", err
		}
		state := entry.item.Reset()
		r.saveState(ctx, entry.id, state)
		return fmt.Sprintf("Reset item %d", idx), nil
	}
	return "Unknown tool: " + call.Name, nil
}

func (r *Room) ownedItem(idx int, actorID, verb string) (roomItem, error) {
	entry, ok := r.itemAt(idx)
	if !ok {
		return roomItem{}, toolset.Errorf(toolset.ErrNotFound, "item %d not found", idx)
	}
	if entry.ownerID != actorID {
		return roomItem{}, toolset.Errorf(toolset.ErrPermissionDenied, "only the owner can %s this item", verb)
	}
	return entry, nil
}

func (r *Room) createItem(ctx context.Context, ownerID, description, creationPrompt string) (string, error) {
	if description == "" {
		return "", toolset.Errorf(toolset.ErrValidationFailed, "description required")
	}
	sim := r.polis.sim
	if sim == nil {
		return "", toolset.Errorf(toolset.ErrUpstreamFailure, "item simulator unavailable")
	}

	tmpl, err := sim.CreateTemplate(ctx, description)
	if err != nil {
		return "", err
	}
	state, err := sim.InitialState(ctx, tmpl, creationPrompt)
	if err != nil {
		return "", err
	}

	item := items.New(tmpl, state)
	entry := r.addItem(ownerID, item)
	r.polis.logger.Info("item created", "room", r.name, "item", item.Name(), "owner", ownerID)

	r.polis.record(ctx, "saving item", func(ctx context.Context) error {
		tmplJSON, err := json.Marshal(tmpl)
		if err != nil {
			return err
		}
		stateJSON, err := json.Marshal(item.State())
		if err != nil {
			return err
		}
		now := r.polis.now()
		return r.polis.store.SaveItem(ctx, &store.ItemRecord{
			ID:        entry.id,
			Room:      r.name,
			OwnerID:   ownerID,
			Template:  tmplJSON,
			State:     stateJSON,
			CreatedAt: now,
			UpdatedAt: now,
		})
	})
	return fmt.Sprintf("Created item '%s' (owner:#%s)", item.Name(), ownerID), nil
}

func (r *Room) interact(ctx context.Context, caller toolset.Caller, call toolset.Call) (string, error) {
	idx := call.Int("index", 0)
	entry, ok := r.itemAt(idx)
	if !ok {
		return "", toolset.Errorf(toolset.ErrNotFound, "item %d not found", idx)
	}
	inputs, err := parseInputs(call)
	if err != nil {
		return "", err
	}
	sim := r.polis.sim
	if sim == nil {
		return "", toolset.Errorf(toolset.ErrUpstreamFailure, "item simulator unavailable")
	}

	who := caller.Handle()
	if who == "" {
		who = caller.ID()
	}
	name := call.String("interaction")
	req := items.InteractionRequest{
		Interaction: name,
		Inputs:      inputs,
		Intent:      fmt.Sprintf("Agent %s interacts", who),
	}

	out, err := sim.Interact(ctx, entry.item.Template(), entry.item.State(), req)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	still := r.indexOfLocked(entry.id) >= 0
	r.mu.Unlock()
	if !still {
		return "", toolset.Errorf(toolset.ErrNotFound, "item %d not found", idx)
	}
	state := entry.item.Merge(out.UpdatedState)
	r.saveState(ctx, entry.id, state)

	r.polis.record(ctx, "saving interaction", func(ctx context.Context) error {
		inputsJSON, _ := json.Marshal(inputs)
		outputsJSON, _ := json.Marshal(out.Outputs)
		stateJSON, _ := json.Marshal(state)
		return r.polis.store.SaveInteraction(ctx, &store.InteractionRecord{
			ID:          uuid.New().String(),
			ItemID:      entry.id,
			Room:        r.name,
			ActorID:     normalizeID(caller.ID()),
			Interaction: name,
			Inputs:      inputsJSON,
			Outputs:     outputsJSON,
			Description: out.Description,
			State:       stateJSON,
			Timestamp:   r.polis.now(),
		})
	})

	result := fmt.Sprintf("Interaction '%s' completed on %s", name, entry.item.Name())
	if out.Description != "" {
		result += ": " + out.Description
	}
	return result, nil
}

func (r *Room) saveState(ctx context.Context, id string, state items.State) {
	r.polis.record(ctx, "updating item state", func(ctx context.Context) error {
		b, err := json.Marshal(state)
		if err != nil {
			return err
		}
		return r.polis.store.UpdateItemState(ctx, id, b)
	})
}

// parseInputs accepts inputs as a JSON object string or an already decoded
// object. Non-string values are kept as their JSON text.
func parseInputs(call toolset.Call) (map[string]string, error) {
	raw, ok := call.Lookup("inputs")
	if !ok || raw == nil {
		return map[string]string{}, nil
	}

	var obj map[string]any
	switch v := raw.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return map[string]string{}, nil
		}
		if err := json.Unmarshal([]byte(v), &obj); err != nil {
			return nil, toolset.Errorf(toolset.ErrValidationFailed, "invalid JSON for inputs")
		}
	case map[string]any:
		obj = v
	default:
		return nil, toolset.Errorf(toolset.ErrValidationFailed, "invalid JSON for inputs")
	}

	out := make(map[string]string, len(obj))
	for k, v := range obj {
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, toolset.Errorf(toolset.ErrValidationFailed, "invalid JSON for inputs")
		}
		out[k] = string(b)
	}
	return out, nil
}
