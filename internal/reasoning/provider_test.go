package reasoning

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/polis/internal/toolset"
)

func TestScriptedCycles(t *testing.T) {
	s := NewScripted("one", "two")
	ctx := context.Background()

	var got []string
	for i := 0; i < 3; i++ {
		out, err := s.Complete(ctx, Request{Model: "m"})
		require.NoError(t, err)
		got = append(got, out)
	}
	assert.Equal(t, []string{"one", "two", "one"}, got)
	assert.Len(t, s.Requests(), 3)

	_, err := NewScripted().Complete(ctx, Request{})
	assert.True(t, errors.Is(err, ErrEmptyResponse))
}

func TestLoadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.yaml")
	content := `
- intent: explore
  rationale: new here
  toolCalls:
    - name: listRooms
      parameters: {}
  followupInstructions: join a room
- '{"intent": "rest", "rationale": "tired", "toolCalls": [], "followupInstructions": ""}'
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := LoadScript(path)
	require.NoError(t, err)

	first, _ := s.Complete(context.Background(), Request{})
	d, err := ParseDecision(first)
	require.NoError(t, err)
	assert.Equal(t, "explore", d.Intent)
	assert.Equal(t, []string{"listRooms"}, d.ToolNames())

	second, _ := s.Complete(context.Background(), Request{})
	d, err = ParseDecision(second)
	require.NoError(t, err)
	assert.Equal(t, "rest", d.Intent)
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(Settings{Provider: "carrier-pigeon"}, nil)
	assert.True(t, errors.Is(err, ErrUnknownProvider))

	c, err := New(Settings{Provider: ProviderScripted}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Scripted{}, c)
}

func TestOpenAIAdapterSendsContract(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"created": 0,
			"model": "test-model",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "{\"intent\":\"hi\",\"toolCalls\":[]}"}}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 4, "total_tokens": 7}
		}`))
	}))
	defer srv.Close()

	c := NewOpenAI(OpenAIConfig{APIKey: "test", BaseURL: srv.URL, Model: "test-model"}, nil)
	out, err := c.Complete(context.Background(), Request{
		System:   "be brief",
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
		Contract: DecisionContract(),
	})
	require.NoError(t, err)

	d, err := ParseDecision(out)
	require.NoError(t, err)
	assert.Equal(t, "hi", d.Intent)

	assert.Equal(t, "test-model", body["model"])
	format, ok := body["response_format"].(map[string]any)
	require.True(t, ok, "response_format missing: %v", body)
	assert.Equal(t, "json_schema", format["type"])
}

func TestOpenAIAdapterEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "object": "chat.completion", "created": 0, "model": "m", "choices": []}`))
	}))
	defer srv.Close()

	c := NewOpenAI(OpenAIConfig{APIKey: "test", BaseURL: srv.URL}, nil)
	_, err := c.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	assert.True(t, errors.Is(err, ErrEmptyResponse))
	assert.True(t, errors.Is(err, toolset.ErrUpstreamFailure))
}

func TestAnthropicAdapterAppendsContract(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": "{\"intent\":\"wave\",\"toolCalls\":[]}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 5, "output_tokens": 6}
		}`))
	}))
	defer srv.Close()

	c := NewAnthropic(AnthropicConfig{APIKey: "test", BaseURL: srv.URL, Model: "claude-test"}, nil)
	out, err := c.Complete(context.Background(), Request{
		System:   "be brief",
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
		Contract: DecisionContract(),
	})
	require.NoError(t, err)
	assert.Contains(t, out, "wave")

	system, _ := json.Marshal(body["system"])
	assert.Contains(t, string(system), "followupInstructions")
}
