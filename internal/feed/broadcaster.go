// ABOUTME: In-memory fan-out of completed passes to live dashboard subscribers
// ABOUTME: Subscribers follow one actor or every actor; slow subscribers drop events

package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AllActors subscribes to passes from every actor.
const AllActors = ""

// subscriberBufferSize is the channel buffer for each subscriber.
const subscriberBufferSize = 64

// Event summarizes one completed pass.
type Event struct {
	PassID    string    `json:"pass_id"`
	ActorID   string    `json:"actor_id"`
	Handle    string    `json:"handle"`
	Timestamp time.Time `json:"timestamp"`
	Intent    string    `json:"intent"`
	Tools     []string  `json:"tools"`
	Skipped   int       `json:"skipped"`
	Followup  string    `json:"followup_instructions"`
}

// Broadcaster is a pub/sub hub keyed by actor id.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan Event // actorID -> subID -> ch
	closed      bool
	logger      *slog.Logger
}

// New creates a broadcaster. Pass nil logger for default.
func New(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subscribers: make(map[string]map[string]chan Event),
		logger:      logger.With("component", "feed"),
	}
}

// Subscribe registers for passes by actorID, or by everyone with AllActors.
// The subscription is removed when ctx is cancelled. The returned channel is
// closed on unsubscribe or Close.
func (b *Broadcaster) Subscribe(ctx context.Context, actorID string) (<-chan Event, string) {
	subID := uuid.New().String()
	ch := make(chan Event, subscriberBufferSize)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, subID
	}
	if _, ok := b.subscribers[actorID]; !ok {
		b.subscribers[actorID] = make(map[string]chan Event)
	}
	b.subscribers[actorID][subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "actor_id", actorID, "sub_id", subID)

	go func() {
		<-ctx.Done()
		b.Unsubscribe(actorID, subID)
	}()

	return ch, subID
}

// Publish delivers ev to the actor's subscribers and to AllActors
// subscribers. It never blocks.
func (b *Broadcaster) Publish(ev Event) {
	b.mu.RLock()
	keys := []string{AllActors}
	if ev.ActorID != AllActors {
		keys = append(keys, ev.ActorID)
	}
	var targets []chan Event
	for _, key := range keys {
		for _, ch := range b.subscribers[key] {
			targets = append(targets, ch)
		}
	}

	for _, ch := range targets {
		select {
		case ch <- ev:
		default:
			b.logger.Debug("dropped event for slow subscriber", "actor_id", ev.ActorID, "pass_id", ev.PassID)
		}
	}
	// Sends happen under the read lock so Unsubscribe cannot close a channel mid-send.
	b.mu.RUnlock()
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(actorID, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[actorID]
	if !ok {
		return
	}
	ch, exists := subs[subID]
	if !exists {
		return
	}
	delete(subs, subID)
	close(ch)
	if len(subs) == 0 {
		delete(b.subscribers, actorID)
	}

	b.logger.Debug("subscriber removed", "actor_id", actorID, "sub_id", subID)
}

// Subscribers counts live subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, subs := range b.subscribers {
		n += len(subs)
	}
	return n
}

// Close closes every subscriber channel. Later subscriptions get a closed channel.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for actorID, subs := range b.subscribers {
		for subID, ch := range subs {
			close(ch)
			delete(subs, subID)
		}
		delete(b.subscribers, actorID)
	}
	b.closed = true
	b.logger.Debug("feed closed")
}
