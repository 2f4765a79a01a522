// ABOUTME: One observe-decide-act pass for a single actor.
// ABOUTME: Snapshot, reasoning call, ordered tool execution, then best-effort persistence.

package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2389/polis/internal/agent"
	"github.com/2389/polis/internal/reasoning"
	"github.com/2389/polis/internal/store"
	"github.com/2389/polis/internal/telemetry"
	"github.com/2389/polis/internal/toolset"
)

// Execution is the outcome of one tool call in a pass.
type Execution struct {
	Name    string         `json:"name"`
	Params  map[string]any `json:"parameters,omitempty"`
	Result  string         `json:"result"`
	Skipped bool           `json:"skipped,omitempty"`
	Post    bool           `json:"post,omitempty"`
}

// PassResult is everything one pass observed, decided and did.
type PassResult struct {
	ID           string
	ActorID      string
	Handle       string
	Timestamp    time.Time
	Decision     *reasoning.Decision
	Followup     string
	Snapshot     string
	MenuSnapshot string
	Executions   []Execution
}

// RunPass runs one pass for a. Reasoning failures abort the pass before any
// tool runs; tool failures never do.
func (s *Scheduler) RunPass(ctx context.Context, a *agent.Actor) (*PassResult, error) {
	start := time.Now()
	ctx, span := s.metrics.StartPass(ctx, a.ID())
	res, err := s.runPass(ctx, a)
	s.metrics.RecordPass(ctx, span, a.ID(), time.Since(start), err)
	return res, err
}

func (s *Scheduler) runPass(ctx context.Context, a *agent.Actor) (*PassResult, error) {
	snapshot := s.snapshot(ctx, a)

	menu := a.Menu()
	var menuSnapshot string
	if menu != nil {
		menuSnapshot = menu.Render()
	}

	instructions := a.Instructions()
	if strings.TrimSpace(instructions) == "" {
		instructions = DefaultInstructions
	}

	req := reasoning.Request{
		System: a.SystemPrompt(),
		Messages: []reasoning.Message{{
			Role:    reasoning.RoleUser,
			Content: userPrompt(menu, a.History(), snapshot, instructions),
		}},
		Model:    a.Model(),
		Contract: reasoning.DecisionContract(),
	}
	if req.System == "" {
		req.System = s.cfg.SystemPrompt
	}

	text, err := s.completer.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("reasoning: %w", err)
	}
	decision, err := reasoning.ParseDecision(text)
	if err != nil {
		return nil, fmt.Errorf("decision: %w", err)
	}

	followup := sanitizeFollowup(decision.FollowupInstructions)
	a.AppendHistory(decisionSummary(decision.Intent, decision.Rationale, decision.ToolNames(), followup))

	executions := s.execute(ctx, a, decision.ToolCalls, false)
	s.guard.Remember(a.ID(), executedCalls(executions))
	executions = append(executions, s.execute(ctx, a, s.cfg.PostCalls, true)...)

	names := make([]string, 0, len(executions))
	for _, e := range executions {
		names = append(names, e.Name)
	}
	executed := strings.Join(names, ", ")
	if executed == "" {
		executed = "(none)"
	}
	a.AppendHistory("Executed: " + executed)

	res := &PassResult{
		ID:           uuid.New().String(),
		ActorID:      a.ID(),
		Handle:       a.Handle(),
		Timestamp:    s.now().UTC(),
		Decision:     decision,
		Followup:     followup,
		Snapshot:     snapshot,
		MenuSnapshot: menuSnapshot,
		Executions:   executions,
	}
	s.persist(ctx, res)
	a.SetInstructions(followup)

	s.logger.Info("=== PASS COMPLETE ===",
		"agent_id", a.ID(),
		"handle", res.Handle,
		"intent", truncate(decision.Intent, maxSummaryField),
		"tool_calls", len(executions),
	)
	if s.hook != nil {
		s.hook(res)
	}
	return res, nil
}

// execute runs calls in order. The Menu is re-read before every call so a
// room change earlier in the pass applies to later calls.
func (s *Scheduler) execute(ctx context.Context, a *agent.Actor, calls []toolset.Call, post bool) []Execution {
	out := make([]Execution, 0, len(calls))
	for _, call := range calls {
		exec := Execution{Name: call.Name, Params: call.Params, Post: post}
		menu := a.Menu()

		switch {
		case menu == nil:
			exec.Result = "Unknown tool: " + call.Name
		case call.Name == "enter" && s.alreadyEntered(menu, a):
			exec.Result = "Skipped enter: already present as #" + a.ID()
			exec.Skipped = true
		case !post && s.guard.ShouldSkip(a.ID(), call):
			exec.Result = fmt.Sprintf("Skipped %s: repeated read-only call", call.Name)
			exec.Skipped = true
		default:
			exec.Result = s.invoke(ctx, a, menu, call)
		}

		s.metrics.RecordToolCall(ctx, call.Name, callStatus(exec))
		s.logger.Debug("tool call",
			"agent_id", a.ID(),
			"tool", call.Name,
			"skipped", exec.Skipped,
			"result", truncate(exec.Result, maxSummaryField),
		)
		out = append(out, exec)
	}
	return out
}

func (s *Scheduler) alreadyEntered(menu *toolset.Menu, a *agent.Actor) bool {
	ts := menu.Resolve("enter")
	if ts == nil {
		return false
	}
	present, ok := ts.Present(a.ID())
	return ok && present
}

// invoke dispatches one call directly, converting a panic into an error result.
func (s *Scheduler) invoke(ctx context.Context, a *agent.Actor, menu *toolset.Menu, call toolset.Call) (result string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tool call panicked", "agent_id", a.ID(), "tool", call.Name, "panic", r)
			result = fmt.Sprintf("Error: tool %s panicked: %v", call.Name, r)
		}
	}()
	return menu.CallTool(ctx, a, call)
}

func (s *Scheduler) persist(ctx context.Context, res *PassResult) {
	if s.store == nil {
		return
	}
	calls, err := json.Marshal(res.Decision.ToolCalls)
	if err != nil {
		s.logger.Warn("failed to encode tool calls", "agent_id", res.ActorID, "error", err)
		calls = []byte("[]")
	}
	execs, err := json.Marshal(res.Executions)
	if err != nil {
		s.logger.Warn("failed to encode executions", "agent_id", res.ActorID, "error", err)
		execs = []byte("[]")
	}

	rec := &store.PassRecord{
		ID:                   res.ID,
		Timestamp:            res.Timestamp,
		ActorID:              res.ActorID,
		Handle:               res.Handle,
		Intent:               res.Decision.Intent,
		Rationale:            res.Decision.Rationale,
		ToolCalls:            calls,
		FollowupInstructions: res.Followup,
		Snapshot:             res.Snapshot,
		MenuSnapshot:         res.MenuSnapshot,
		Executions:           execs,
	}
	if err := s.store.SavePass(ctx, rec); err != nil {
		s.logger.Warn("failed to persist pass", "agent_id", res.ActorID, "pass_id", res.ID, "error", err)
	}
}

func executedCalls(execs []Execution) []toolset.Call {
	var calls []toolset.Call
	for _, e := range execs {
		if !e.Skipped {
			calls = append(calls, toolset.Call{Name: e.Name, Params: e.Params})
		}
	}
	return calls
}

func callStatus(e Execution) string {
	switch {
	case e.Skipped:
		return telemetry.StatusSkipped
	case strings.HasPrefix(e.Result, "Error:"), strings.HasPrefix(e.Result, "Unknown tool:"):
		return telemetry.StatusError
	default:
		return telemetry.StatusOK
	}
}
