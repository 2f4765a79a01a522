// ABOUTME: Decision context assembly: pre-pass snapshot, user prompt sections and defaults.
// ABOUTME: Also holds the interest pool seeded into new actors.

package orchestrator

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"unicode/utf8"

	"github.com/2389/polis/internal/agent"
	"github.com/2389/polis/internal/toolset"
)

// DefaultInstructions are an actor's first-pass instructions.
const DefaultInstructions = "Live and interact: choose a room, introduce yourself, converse, explore tools, and evolve your aims."

// FallbackFollowup replaces a blank or none-like followup.
const FallbackFollowup = "Propose the next concrete action or reflection step."

// DefaultSystemPrompt is used when neither the actor nor the config sets one.
var DefaultSystemPrompt = strings.Join([]string{
	"You are an autonomous agent living in Polis, a shared virtual city of rooms.",
	"You act in passes: each pass you observe, decide and act.",
	"You can join public rooms, create private rooms, chat, and create or interact with items.",
	"Every tool listed in your catalog is callable directly; you never need to load a toolset first.",
	"After joining a room, 'enter' its chat once with a handle that fits your personality. You stay entered while you remain in the room.",
	"Use 'returnToDirectory' or 'leaveRoom' from the room admin tools to get back to the room directory.",
	"To meet someone privately, call 'createPrivateRoomAndInvite' with {name, inviteAgentId} and tell them to call 'acceptInvite' with {name}.",
	"A private room cannot be joined with 'joinRoom' until your invite has been accepted.",
	"Refine your goals as you learn with 'setGoal', and consult 'getSelf' to reflect.",
	"Do not repeat the same read-only calls with the same parameters on consecutive passes. If a tool shows no change, do something different.",
	"Only act as yourself, never on behalf of others.",
	"Always finish with a concrete, non-empty followup step.",
}, " ")

// maxSummaryField bounds each field of the decision summary kept in history.
const maxSummaryField = 120

var interestPool = []string{
	"gardening", "classical music", "hip-hop production", "bird watching", "rock climbing",
	"baking sourdough", "urban planning", "quantum computing", "vintage cars", "calligraphy",
	"origami", "street photography", "foraging", "astronomy", "ceramics", "woodworking",
	"trail running", "open-source software", "digital privacy", "cryptography", "ancient history",
	"mycology", "jazz improvisation", "poetry slam", "stand-up comedy", "chess", "tabletop RPGs",
	"marine biology", "permaculture", "sailing", "beekeeping", "coffee roasting", "game design",
	"machine learning", "robotics", "3D printing", "architecture", "philosophy", "meditation",
	"psychology", "behavioral economics", "cartography", "linguistics", "japanese language",
	"vegan cooking", "street food", "mountaineering", "scuba diving", "salsa dancing", "theatre acting",
	"watercolor", "graphic design", "entrepreneurship", "community organizing", "space exploration",
	"mythology", "paleontology", "archaeology", "board game design", "speedrunning",
	"sound design", "podcasting", "documentary filmmaking",
}

// pickInterests returns n distinct interests.
func pickInterests(rng *rand.Rand, n int) []string {
	if n > len(interestPool) {
		n = len(interestPool)
	}
	perm := rng.Perm(len(interestPool))
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = interestPool[perm[i]]
	}
	return out
}

type observation struct {
	tool      string
	label     string
	params    map[string]any
	multiline bool
}

// snapshotCalls are the read-only calls run before every decision.
var snapshotCalls = []observation{
	{tool: "getSelf", label: "self"},
	{tool: "listRooms", label: "rooms", multiline: true},
	{tool: "recentActivity", label: "recentActivity", params: map[string]any{"limit": 5}, multiline: true},
	{tool: "who", label: "who"},
}

// snapshot runs the observation calls against the actor's current Menu.
// Tools the Menu lacks are skipped. enter and chat are never auto-called.
func (s *Scheduler) snapshot(ctx context.Context, a *agent.Actor) string {
	var lines []string
	for _, p := range snapshotCalls {
		menu := a.Menu()
		if menu == nil || !menu.Has(p.tool) {
			continue
		}
		res := s.invoke(ctx, a, menu, toolset.Call{Name: p.tool, Params: p.params})
		if strings.TrimSpace(res) == "" {
			continue
		}
		if p.multiline {
			lines = append(lines, fmt.Sprintf("- %s: \n%s", p.label, res))
		} else {
			lines = append(lines, fmt.Sprintf("- %s: %s", p.label, res))
		}
	}

	for _, call := range s.cfg.PreCalls {
		if call.Name == "enter" || call.Name == "chat" {
			continue
		}
		menu := a.Menu()
		if menu == nil || !menu.Has(call.Name) {
			continue
		}
		res := s.invoke(ctx, a, menu, call)
		if strings.TrimSpace(res) != "" {
			lines = append(lines, fmt.Sprintf("- %s: %s", call.Name, res))
		}
	}
	return strings.Join(lines, "\n")
}

const outputDescription = `Reply with one JSON object:
- intent: what you will do this pass
- rationale: why
- toolCalls: ordered list of {"name": tool, "parameters": {...}}
- followupInstructions: your concrete next step`

// userPrompt assembles the decision context.
func userPrompt(menu *toolset.Menu, history []string, snapshot, instructions string) string {
	var b strings.Builder

	b.WriteString("## Menu\n")
	if menu != nil {
		b.WriteString(menu.Render())
		b.WriteString("\n## Tool catalog\n")
		b.WriteString(menu.Catalog())
	}

	b.WriteString("\n## Recent history\n")
	if len(history) == 0 {
		b.WriteString("(none)\n")
	}
	for _, h := range history {
		b.WriteString("- ")
		b.WriteString(h)
		b.WriteString("\n")
	}

	b.WriteString("\n## Current observations\n")
	if snapshot == "" {
		snapshot = "(none)"
	}
	b.WriteString(snapshot)
	b.WriteString("\n")

	b.WriteString("\n## Instructions\n")
	b.WriteString(instructions)
	b.WriteString("\n\n## Output\n")
	b.WriteString(outputDescription)
	b.WriteString("\n")
	return b.String()
}

// sanitizeFollowup replaces blank or none-like followups.
func sanitizeFollowup(s string) string {
	t := strings.TrimSpace(s)
	switch strings.ToLower(t) {
	case "", "none", "n/a", "null", "-":
		return FallbackFollowup
	}
	return t
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

func decisionSummary(intent, rationale string, tools []string, next string) string {
	return fmt.Sprintf("Intent: %s | Why: %s | Tools: %s | Next: %s",
		truncate(intent, maxSummaryField),
		truncate(rationale, maxSummaryField),
		truncate(strings.Join(tools, ", "), maxSummaryField),
		truncate(next, maxSummaryField),
	)
}
