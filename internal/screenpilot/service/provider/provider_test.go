package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMappingResolvesCollisions(t *testing.T) {
	tools := []ToolSpec{
		{Group: "file.ops", Name: "read"},
		{Group: "file_ops", Name: "read"},
		{Group: "memory", Name: "set_memory"},
	}

	mapping, names := BuildMapping(tools)
	require.Len(t, names, 3)

	assert.Equal(t, "file_ops__read", names[0])
	assert.Equal(t, "file_ops__read_2", names[1])
	assert.Equal(t, "memory__set_memory", names[2])

	group, tool := mapping.Resolve("file_ops__read")
	assert.Equal(t, "file.ops", group)
	assert.Equal(t, "read", tool)

	group, tool = mapping.Resolve("file_ops__read_2")
	assert.Equal(t, "file_ops", group)
	assert.Equal(t, "read", tool)
}

func TestResolveUnknownWireName(t *testing.T) {
	mapping := ToolMapping{}

	group, tool := mapping.Resolve("browser__click")
	assert.Equal(t, "browser", group)
	assert.Equal(t, "click", tool)

	group, tool = mapping.Resolve("memory_set")
	assert.Equal(t, "memory", group)
	assert.Equal(t, "set", tool)

	group, tool = mapping.Resolve("weird")
	assert.Equal(t, UnknownGroup, group)
	assert.Equal(t, "weird", tool)
}

func TestWireNameFromLabel(t *testing.T) {
	assert.Equal(t, "memory__set_memory", WireNameFromLabel("memory.set_memory"))
	assert.Equal(t, "plain", WireNameFromLabel("plain"))
}

func TestTrimUnresolvedDropsTrailingCalls(t *testing.T) {
	history := []HistoryMessage{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "thinking", ToolCall: &ToolCall{Group: "memory", Name: "set_memory"}},
		{Role: "tool", Content: "ok", ToolCallID: "1"},
		{Role: "assistant", Content: "again", ToolCall: &ToolCall{Group: "memory", Name: "set_memory"}},
	}

	trimmed := TrimUnresolved(history)
	require.Len(t, trimmed, 3)
	assert.Equal(t, "tool", trimmed[2].Role)
}

type flakyAdapter struct {
	failures int
	calls    int
	err      error
}

func (f *flakyAdapter) Name() string { return "flaky" }

func (f *flakyAdapter) SetTools(tools []ToolSpec) {}

func (f *flakyAdapter) GenerateDecision(ctx context.Context, req *Request) (*Decision, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return &Decision{Thought: "ok"}, nil
}

func TestClientReturnsFirstSuccess(t *testing.T) {
	adapter := &flakyAdapter{}
	client := NewClient(adapter)

	decision, err := client.GenerateDecision(context.Background(), &Request{Prompt: "go"})
	require.NoError(t, err)
	assert.Equal(t, "ok", decision.Thought)
	assert.Equal(t, 1, adapter.calls)
}

func TestClientWrapsErrorWhenContextCanceled(t *testing.T) {
	adapter := &flakyAdapter{failures: 5, err: errors.New("boom")}
	client := NewClient(adapter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GenerateDecision(ctx, &Request{Prompt: "go"})
	require.Error(t, err)

	var llmErr *LLMError
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, "flaky", llmErr.Provider)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, isRateLimited(errors.New("googleapi: Error 429: RESOURCE_EXHAUSTED")))
	assert.True(t, isRateLimited(errors.New("anthropic: overloaded_error")))
	assert.False(t, isRateLimited(errors.New("connection refused")))
}
