// Package provider normalizes heterogeneous LLM tool-calling protocols
// into one internal representation. Each supported provider (Gemini,
// Claude) has an Adapter implementation in its own subpackage; the
// orchestrator only ever sees Decision values.
package provider

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ToolSpec is one entry of the tool catalog exposed to the model.
type ToolSpec struct {
	// Group is the owning virtual group or tool-server name.
	Group string `json:"group"`

	// Name is the tool name within the group.
	Name string `json:"name"`

	Description string `json:"description"`

	// InputSchema is a JSON-schema-like object description.
	InputSchema map[string]interface{} `json:"input_schema,omitempty"`
}

// Label returns the "group.tool" display label.
func (t ToolSpec) Label() string {
	return t.Group + "." + t.Name
}

// ToolCall is a normalized tool invocation parsed from a provider reply.
type ToolCall struct {
	// ID is the provider-issued call id; empty for providers that do
	// not assign ids (Gemini).
	ID string

	// Group and Name identify the target tool; Group is "unknown" when
	// the wire name could not be resolved.
	Group string
	Name  string

	Args map[string]interface{}
}

// Decision is the normalized result of one model round-trip: free text
// plus at most one tool call.
type Decision struct {
	Thought  string
	ToolCall *ToolCall
}

// Request carries the turn input handed to an adapter.
type Request struct {
	// Prompt is the current-turn context prompt.
	Prompt string

	// Images are current-turn PNG attachments.
	Images [][]byte

	// History is the provider-agnostic transcript. Adapters convert it
	// to their own wire shape, trimming any trailing unresolved tool
	// call first.
	History []HistoryMessage

	// SystemInstruction overrides the adapter's configured system
	// prompt when non-empty.
	SystemInstruction string
}

// HistoryMessage mirrors conversation.Message without importing it, so
// adapters stay free of store internals.
type HistoryMessage struct {
	Role       string
	Content    string
	ToolCall   *ToolCall
	ToolCallID string
	ToolName   string
	CreatedAt  time.Time
}

// Adapter translates the internal representation into one provider's
// wire format and back.
type Adapter interface {
	// Name returns the provider name ("gemini", "claude").
	Name() string

	// SetTools installs the tool catalog used by subsequent requests.
	// The wire-name mapping is rebuilt per request since catalogs
	// change between turns.
	SetTools(tools []ToolSpec)

	// GenerateDecision performs one model round-trip.
	GenerateDecision(ctx context.Context, req *Request) (*Decision, error)
}

// LLMError marks a provider call that failed after exhausting retries.
type LLMError struct {
	Provider string
	Err      error
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("llm call failed (provider=%s): %v", e.Provider, e.Err)
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

const (
	// wireSeparator joins group and tool in wire-safe names.
	wireSeparator = "__"

	// UnknownGroup is assigned when a returned wire name cannot be
	// resolved back to a catalog entry.
	UnknownGroup = "unknown"
)

// ToolMapping is the per-request table mapping wire-safe names back to
// their (group, tool) pair.
type ToolMapping map[string]ToolSpec

// sanitizeIdent replaces characters the providers reject in tool names.
func sanitizeIdent(s string) string {
	r := strings.NewReplacer(".", "_", "-", "_", " ", "_", "/", "_")
	return r.Replace(s)
}

// WireName derives the deterministic wire-safe name for a tool.
func WireName(group, tool string) string {
	return sanitizeIdent(group) + wireSeparator + sanitizeIdent(tool)
}

// BuildMapping computes wire names for the catalog, resolving
// collisions (two differently spelled pairs sanitizing identically) by
// suffixing a counter so no declaration is silently merged. The
// returned order matches the catalog order.
func BuildMapping(tools []ToolSpec) (ToolMapping, []string) {
	mapping := make(ToolMapping, len(tools))
	names := make([]string, 0, len(tools))

	for _, t := range tools {
		name := WireName(t.Group, t.Name)
		if _, taken := mapping[name]; taken {
			for i := 2; ; i++ {
				alt := fmt.Sprintf("%s_%d", name, i)
				if _, dup := mapping[alt]; !dup {
					name = alt
					break
				}
			}
		}
		mapping[name] = t
		names = append(names, name)
	}
	return mapping, names
}

// Resolve maps a wire name from a provider reply back to (group, tool).
// Unknown names fall back to splitting on the separator, then on the
// first underscore; if nothing parses the group defaults to "unknown".
func (m ToolMapping) Resolve(wireName string) (group, tool string) {
	if t, ok := m[wireName]; ok {
		return t.Group, t.Name
	}
	if i := strings.Index(wireName, wireSeparator); i > 0 {
		return wireName[:i], wireName[i+len(wireSeparator):]
	}
	if i := strings.Index(wireName, "_"); i > 0 {
		return wireName[:i], wireName[i+1:]
	}
	return UnknownGroup, wireName
}

// WireNameFromLabel converts a "group.tool" label (as stored on
// tool-result messages) back into the wire-safe name.
func WireNameFromLabel(label string) string {
	if i := strings.Index(label, "."); i > 0 {
		return WireName(label[:i], label[i+1:])
	}
	return sanitizeIdent(label)
}

// DescribeTool builds the provider-facing description, prefixed with
// the owning group for model-side disambiguation.
func DescribeTool(t ToolSpec) string {
	return fmt.Sprintf("[%s] %s", t.Group, t.Description)
}

// TrimUnresolved drops trailing history messages that are tool calls
// without their paired result.
func TrimUnresolved(history []HistoryMessage) []HistoryMessage {
	for len(history) > 0 {
		last := history[len(history)-1]
		if last.Role == "assistant" && last.ToolCall != nil {
			history = history[:len(history)-1]
			continue
		}
		break
	}
	return history
}
