// ABOUTME: Scripted completer replays canned responses in order, cycling when exhausted.
// ABOUTME: Lets the city run offline and gives tests a deterministic reasoning collaborator.

package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Scripted replays responses round-robin.
type Scripted struct {
	mu        sync.Mutex
	responses []string
	next      int
	requests  []Request
}

// NewScripted returns a completer that replays responses in order.
func NewScripted(responses ...string) *Scripted {
	return &Scripted{responses: responses}
}

// LoadScript reads a YAML list of decisions. Each entry may be a JSON
// string or a YAML mapping; mappings are re-encoded as JSON.
func LoadScript(path string) (*Scripted, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	var entries []any
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing script: %w", err)
	}
	responses := make([]string, 0, len(entries))
	for i, e := range entries {
		if s, ok := e.(string); ok {
			responses = append(responses, s)
			continue
		}
		b, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("encoding script entry %d: %w", i, err)
		}
		responses = append(responses, string(b))
	}
	return NewScripted(responses...), nil
}

// Complete returns the next scripted response. An empty script yields
// ErrEmptyResponse.
func (s *Scripted) Complete(ctx context.Context, req Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if len(s.responses) == 0 {
		return "", ErrEmptyResponse
	}
	out := s.responses[s.next%len(s.responses)]
	s.next++
	return out, nil
}

// Requests returns every request seen so far.
func (s *Scripted) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}
