// ABOUTME: Room chat toolset: a participant registry plus an append-only message log.
// ABOUTME: Handles are unique per room; chat and read require entering first.

package builtins

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/2389/polis/internal/toolset"
)

const (
	// ReadCap is the hard cap on messages returned by read.
	ReadCap = 20

	// DefaultReadLimit applies when read is called without a limit.
	DefaultReadLimit = 10

	// TimeLayout renders chat timestamps.
	TimeLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Participant is one registered chat member.
type Participant struct {
	ActorID  string    `json:"actorId"`
	Handle   string    `json:"handle"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Message is one posted chat line.
type Message struct {
	Timestamp time.Time `json:"timestamp"`
	ActorID   string    `json:"actorId"`
	Handle    string    `json:"handle"`
	Content   string    `json:"content"`
}

// ChatOption configures a Chat.
type ChatOption func(*Chat)

// WithMessageHook registers a callback fired after every posted message.
// It runs outside the chat lock.
func WithMessageHook(fn func(Message)) ChatOption {
	return func(c *Chat) { c.onMessage = fn }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ChatOption {
	return func(c *Chat) { c.now = now }
}

// Chat is the private state behind one room's chat toolset.
type Chat struct {
	mu           sync.Mutex
	participants map[string]*Participant
	order        []string
	messages     []Message

	onMessage func(Message)
	now       func() time.Time
	toolset   *toolset.Toolset
}

// NewChat builds a chat registry and its toolset under the given name.
func NewChat(name string, opts ...ChatOption) *Chat {
	c := &Chat{
		participants: make(map[string]*Participant),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.toolset = toolset.MustNew(name, chatTools, c.handle, toolset.WithPresence(c.Present))
	return c
}

var chatTools = []toolset.Descriptor{
	{
		Name:        "enter",
		Description: "Enter the room chat with a handle (unique in this room)",
		Params: []toolset.Param{
			{Name: "handle", Description: "Your display handle", Type: "string"},
		},
	},
	{Name: "leave", Description: "Leave the room chat"},
	{
		Name:        "changeHandle",
		Description: "Change your chat handle (must have entered)",
		Params: []toolset.Param{
			{Name: "handle", Description: "New handle", Type: "string"},
		},
	},
	{Name: "who", Description: "List participants currently in chat"},
	{
		Name:        "chat",
		Description: "Post a message to the room chat (must have entered)",
		Params: []toolset.Param{
			{Name: "content", Description: "Message text", Type: "string"},
		},
	},
	{
		Name:        "read",
		Description: "Read the most recent chat messages (max 20)",
		Params: []toolset.Param{
			{Name: "limit", Description: "How many messages", Type: "number", Default: "10"},
		},
	},
}

// Toolset returns the chat toolset.
func (c *Chat) Toolset() *toolset.Toolset { return c.toolset }

// Present reports whether the actor is registered in this chat.
func (c *Chat) Present(actorID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.participants[normalizeID(actorID)]
	return ok
}

// Participants returns the registered participants in join order.
func (c *Chat) Participants() []Participant {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Participant, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.participants[id])
	}
	return out
}

// Recent returns up to limit newest messages in chronological order.
func (c *Chat) Recent(limit int) []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if limit <= 0 {
		return nil
	}
	start := len(c.messages) - limit
	if start < 0 {
		start = 0
	}
	return append([]Message(nil), c.messages[start:]...)
}

// Post appends a message without requiring the sender to have entered.
// Used for operator messages.
func (c *Chat) Post(actorID, handle, content string) Message {
	c.mu.Lock()
	msg := Message{Timestamp: c.now(), ActorID: actorID, Handle: handle, Content: content}
	c.messages = append(c.messages, msg)
	c.mu.Unlock()

	c.fire(msg)
	return msg
}

func (c *Chat) fire(msg Message) {
	if c.onMessage != nil {
		c.onMessage(msg)
	}
}

func (c *Chat) handle(ctx context.Context, caller toolset.Caller, call toolset.Call) (string, error) {
	if caller == nil {
		return "", toolset.Errorf(toolset.ErrValidationFailed, "agent is required")
	}
	id := normalizeID(caller.ID())

	switch call.Name {
	case "enter":
		return c.enter(id, call.String("handle"))
	case "leave":
		return c.leave(id)
	case "changeHandle":
		return c.changeHandle(caller, id, call.String("handle"))
	case "who":
		return c.who(), nil
	case "chat":
		return c.chat(id, call.String("content"))
	case "read":
		return c.read(id, call.Int("limit", DefaultReadLimit))
	}
	return "Unknown tool: " + call.Name, nil
}

// handleTakenLocked reports whether another participant already uses handle.
func (c *Chat) handleTakenLocked(id, handle string) bool {
	for otherID, p := range c.participants {
		if otherID != id && p.Handle == handle {
			return true
		}
	}
	return false
}

func (c *Chat) enter(id, handle string) (string, error) {
	if id == "" || handle == "" {
		return "", toolset.Errorf(toolset.ErrValidationFailed, "agent is required and 'handle' is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handleTakenLocked(id, handle) {
		return "", toolset.Errorf(toolset.ErrConflict, "this handle already exists, please chose another one")
	}

	action := "entered"
	if p, exists := c.participants[id]; exists {
		p.Handle = handle
		action = "updated handle in"
	} else {
		c.participants[id] = &Participant{ActorID: id, Handle: handle, JoinedAt: c.now()}
		c.order = append(c.order, id)
	}
	return fmt.Sprintf("Agent %s (#%s) %s chat", handle, id, action), nil
}

func (c *Chat) leave(id string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.participants[id]
	if !ok {
		return "", toolset.Errorf(toolset.ErrPreconditionFailed, "Agent #%s is not in chat", id)
	}
	delete(c.participants, id)
	for i, other := range c.order {
		if other == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return fmt.Sprintf("Agent %s (#%s) left chat", p.Handle, id), nil
}

func (c *Chat) changeHandle(caller toolset.Caller, id, handle string) (string, error) {
	c.mu.Lock()
	p, ok := c.participants[id]
	if !ok {
		c.mu.Unlock()
		return "", toolset.Errorf(toolset.ErrPreconditionFailed, "Agent #%s must enter before changing handle", id)
	}
	if handle == "" {
		c.mu.Unlock()
		return "", toolset.Errorf(toolset.ErrValidationFailed, "'handle' must be a non-empty string")
	}
	if c.handleTakenLocked(id, handle) {
		c.mu.Unlock()
		return "", toolset.Errorf(toolset.ErrConflict, "this handle already exists, please chose another one")
	}
	p.Handle = handle
	c.mu.Unlock()

	caller.SetHandle(handle)
	return "Handle changed to " + handle, nil
}

func (c *Chat) who() string {
	participants := c.Participants()
	if len(participants) == 0 {
		return "No agents in chat"
	}
	lines := make([]string, len(participants))
	for i, p := range participants {
		lines[i] = fmt.Sprintf("%s (#%s) since %s", p.Handle, p.ActorID, p.JoinedAt.UTC().Format(TimeLayout))
	}
	return strings.Join(lines, "\n")
}

func (c *Chat) chat(id, content string) (string, error) {
	c.mu.Lock()
	p, ok := c.participants[id]
	if !ok {
		c.mu.Unlock()
		return "", toolset.Errorf(toolset.ErrPreconditionFailed, "Agent #%s must enter before chatting", id)
	}
	if content == "" {
		c.mu.Unlock()
		return "", toolset.Errorf(toolset.ErrValidationFailed, "'content' must be a non-empty string")
	}
	msg := Message{Timestamp: c.now(), ActorID: id, Handle: p.Handle, Content: content}
	c.messages = append(c.messages, msg)
	c.mu.Unlock()

	c.fire(msg)
	return fmt.Sprintf("Message posted by %s (#%s)", msg.Handle, msg.ActorID), nil
}

func (c *Chat) read(id string, limit int) (string, error) {
	if !c.Present(id) {
		return "", toolset.Errorf(toolset.ErrPreconditionFailed, "Agent #%s must enter before reading", id)
	}
	if limit > ReadCap {
		limit = ReadCap
	}
	msgs := c.Recent(limit)
	if len(msgs) == 0 {
		return "No messages", nil
	}
	return FormatMessages(msgs, ""), nil
}

// FormatMessages renders chat lines. Messages from selfID are labelled "You"
// when selfID is non-empty.
func FormatMessages(msgs []Message, selfID string) string {
	lines := make([]string, len(msgs))
	for i, m := range msgs {
		who := fmt.Sprintf("%s (#%s)", m.Handle, m.ActorID)
		if selfID != "" && m.ActorID == normalizeID(selfID) {
			who = "You"
		}
		lines[i] = fmt.Sprintf("[%s] %s: %s", m.Timestamp.UTC().Format(TimeLayout), who, m.Content)
	}
	return strings.Join(lines, "\n")
}

func normalizeID(id string) string {
	return strings.TrimPrefix(id, "#")
}
