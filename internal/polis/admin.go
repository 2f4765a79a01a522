// ABOUTME: Room admin toolset: info, invites, visibility flips, activity digest and exits.
// ABOUTME: returnToDirectory and leaveRoom are the only ways back to the directory Menu.

package polis

import (
	"context"
	"fmt"
	"strings"

	"github.com/2389/polis/internal/builtins"
	"github.com/2389/polis/internal/toolset"
)

var roomAdminTools = []toolset.Descriptor{
	{Name: "roomInfo", Description: "Get current room info"},
	{
		Name:        "invite",
		Description: "Invite an agentId to this room",
		Params: []toolset.Param{
			{Name: "agentId", Description: "Agent id to invite", Type: "string"},
		},
	},
	{Name: "makePrivate", Description: "Make this room private"},
	{Name: "makePublic", Description: "Make this room public"},
	{
		Name:        "recentActivity",
		Description: "Show recent chat and item overview",
		Params: []toolset.Param{
			{Name: "limit", Description: "Max chat messages to show", Type: "number", Default: "5"},
		},
	},
	{Name: "returnToDirectory", Description: "Return to the polis room directory"},
	{Name: "leaveRoom", Description: "Leave this room's chat and return to the directory"},
}

func (r *Room) handleAdmin(ctx context.Context, caller toolset.Caller, call toolset.Call) (string, error) {
	if caller == nil {
		return "", toolset.Errorf(toolset.ErrValidationFailed, "agent required")
	}

	switch call.Name {
	case "roomInfo":
		return fmt.Sprintf("%s | %s | items: %d | invites: %d",
			r.name, visibility(r.Private()), len(r.Items()), r.inviteCount()), nil

	case "invite":
		id := normalizeID(call.String("agentId"))
		if id == "" {
			return "", toolset.Errorf(toolset.ErrValidationFailed, "agentId required")
		}
		r.Invite(ctx, id)
		return fmt.Sprintf("Invited #%s to %s", id, r.name), nil

	case "makePrivate":
		r.setPrivate(ctx, true)
		return fmt.Sprintf("Room %s is now private", r.name), nil

	case "makePublic":
		r.setPrivate(ctx, false)
		return fmt.Sprintf("Room %s is now public", r.name), nil

	case "recentActivity":
		limit := call.Int("limit", 5)
		return fmt.Sprintf("Room: %s\nItems:\n%s\n\nRecent Chat:\n%s",
			r.name, r.itemListing(), r.recentChatText(ctx, limit, caller.ID())), nil

	case "returnToDirectory":
		caller.SetMenu(r.polis.DirectoryMenu())
		return "Returned to directory", nil

	case "leaveRoom":
		if r.chat.Present(caller.ID()) {
			if _, err := r.chat.Toolset().Call(ctx, caller, toolset.Call{Name: "leave"}); err != nil {
				return "", err
			}
		}
		caller.SetMenu(r.polis.DirectoryMenu())
		return "Left room " + r.name, nil
	}
	return "Unknown tool: " + call.Name, nil
}

func (r *Room) itemListing() string {
	list := r.Items()
	if len(list) == 0 {
		return "No items"
	}
	lines := make([]string, len(list))
	for i, it := range list {
		lines[i] = fmt.Sprintf("[%d] %s (owner:#%s)", it.Index, it.Name, it.OwnerID)
	}
	return strings.Join(lines, "\n")
}

// recentChatText reads chat from the store when one is configured, falling
// back to the in-memory log. The caller's own lines read "You".
func (r *Room) recentChatText(ctx context.Context, limit int, selfID string) string {
	if limit > RecentActivityCap {
		limit = RecentActivityCap
	}
	if limit <= 0 {
		return "No messages"
	}

	var msgs []builtins.Message
	if r.polis.store != nil {
		rows, err := r.polis.store.ListRecentChatByRoom(ctx, r.name, limit)
		if err != nil {
			r.polis.logger.Warn("reading chat failed", "room", r.name, "error", err)
			return "(chat unavailable)"
		}
		for _, m := range rows {
			msgs = append(msgs, builtins.Message{Timestamp: m.Timestamp, ActorID: m.ActorID, Handle: m.Handle, Content: m.Content})
		}
	} else {
		msgs = r.chat.Recent(limit)
	}

	if len(msgs) == 0 {
		return "No messages"
	}
	return builtins.FormatMessages(msgs, selfID)
}
