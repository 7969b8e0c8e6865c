// Package gemini implements the provider adapter for Google Gemini via
// google.golang.org/genai native function calling.
package gemini

import (
	"context"
	"fmt"
	"sync"

	"github.com/bytedance/gg/gptr"
	"github.com/kiosk404/screenpilot/internal/screenpilot/service/provider"
	"github.com/kiosk404/screenpilot/pkg/logger"
	"google.golang.org/genai"
)

const Name = "gemini"

// Compile-time check: Adapter implements provider.Adapter.
var _ provider.Adapter = (*Adapter)(nil)

// Config holds the Gemini connection settings.
type Config struct {
	APIKey            string
	Model             string
	BaseURL           string
	SystemInstruction string
	Temperature       *float32
	MaxOutputTokens   int32
}

// Adapter talks to the Gemini API.
type Adapter struct {
	client *genai.Client
	cfg    Config

	mu    sync.Mutex
	tools []provider.ToolSpec
}

// New creates a Gemini adapter.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client for model %s: %w", cfg.Model, err)
	}

	logger.Info("[LLM] gemini adapter initialized (model=%s)", cfg.Model)
	return &Adapter{client: client, cfg: cfg}, nil
}

func (a *Adapter) Name() string {
	return Name
}

// SetTools installs the tool catalog for subsequent requests.
func (a *Adapter) SetTools(tools []provider.ToolSpec) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tools = append([]provider.ToolSpec(nil), tools...)
	logger.Debug("[LLM] gemini: %d tools set", len(tools))
}

// GenerateDecision performs one Gemini round-trip.
func (a *Adapter) GenerateDecision(ctx context.Context, req *provider.Request) (*provider.Decision, error) {
	a.mu.Lock()
	tools := append([]provider.ToolSpec(nil), a.tools...)
	a.mu.Unlock()

	mapping, declarations := buildDeclarations(tools)

	config := &genai.GenerateContentConfig{}
	if len(declarations) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: declarations}}
	}
	if sys := firstNonEmpty(req.SystemInstruction, a.cfg.SystemInstruction); sys != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: sys}},
		}
	}
	if a.cfg.Temperature != nil {
		config.Temperature = gptr.Of(*a.cfg.Temperature)
	}
	if a.cfg.MaxOutputTokens > 0 {
		config.MaxOutputTokens = a.cfg.MaxOutputTokens
	}

	history := provider.TrimUnresolved(req.History)
	contents := convertHistory(history)

	// Current turn: images first, prompt text last.
	current := &genai.Content{Role: genai.RoleUser}
	for _, img := range req.Images {
		current.Parts = append(current.Parts, genai.NewPartFromBytes(img, "image/png"))
	}
	current.Parts = append(current.Parts, genai.NewPartFromText(req.Prompt))
	contents = append(contents, current)

	resp, err := a.client.Models.GenerateContent(ctx, a.cfg.Model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini: response has no candidates")
	}

	decision := &provider.Decision{}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			decision.Thought = part.Text
		}
		if part.FunctionCall != nil && decision.ToolCall == nil {
			group, tool := mapping.Resolve(part.FunctionCall.Name)
			args := part.FunctionCall.Args
			if args == nil {
				args = map[string]interface{}{}
			}
			delete(args, provider.PlaceholderProperty)

			// Gemini does not issue call ids.
			decision.ToolCall = &provider.ToolCall{
				Group: group,
				Name:  tool,
				Args:  args,
			}
		}
	}
	return decision, nil
}

// buildDeclarations converts the catalog to Gemini function
// declarations and records the reverse mapping.
func buildDeclarations(tools []provider.ToolSpec) (provider.ToolMapping, []*genai.FunctionDeclaration) {
	mapping, names := provider.BuildMapping(tools)

	declarations := make([]*genai.FunctionDeclaration, 0, len(names))
	for _, name := range names {
		spec := mapping[name]

		schema := provider.NormalizeObjectSchema(spec.InputSchema, true)
		// Gemini rejects declarations with an empty parameter object.
		schema = provider.EnsureNonEmptyProperties(schema, true)

		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        name,
			Description: provider.DescribeTool(spec),
			Parameters:  toGenaiSchema(schema),
		})
	}
	return mapping, declarations
}

// toGenaiSchema converts a sanitized schema map into the typed genai
// schema tree.
func toGenaiSchema(schema map[string]interface{}) *genai.Schema {
	if schema == nil {
		return nil
	}

	out := &genai.Schema{}
	if t, ok := schema["type"].(string); ok {
		out.Type = genai.Type(t)
	}
	if f, ok := schema["format"].(string); ok {
		out.Format = f
	}
	if d, ok := schema["description"].(string); ok {
		out.Description = d
	}
	if n, ok := schema["nullable"].(bool); ok {
		out.Nullable = gptr.Of(n)
	}
	if enum, ok := schema["enum"].([]interface{}); ok {
		for _, e := range enum {
			if s, ok := e.(string); ok {
				out.Enum = append(out.Enum, s)
			}
		}
	}
	if props, ok := schema["properties"].(map[string]interface{}); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, sub := range props {
			if m, ok := sub.(map[string]interface{}); ok {
				out.Properties[name] = toGenaiSchema(m)
			}
		}
	}
	if req, ok := schema["required"].([]interface{}); ok {
		for _, r := range req {
			if s, ok := r.(string); ok {
				out.Required = append(out.Required, s)
			}
		}
	}
	if items, ok := schema["items"].(map[string]interface{}); ok {
		out.Items = toGenaiSchema(items)
	}
	return out
}

// convertHistory maps the internal transcript to Gemini contents:
// assistant becomes the "model" role, tool results are folded into a
// user turn as function_response parts.
func convertHistory(history []provider.HistoryMessage) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))

	for _, msg := range history {
		switch msg.Role {
		case "assistant":
			content := &genai.Content{Role: genai.RoleModel}
			if msg.Content != "" {
				content.Parts = append(content.Parts, genai.NewPartFromText(msg.Content))
			}
			if msg.ToolCall != nil {
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						Name: provider.WireName(msg.ToolCall.Group, msg.ToolCall.Name),
						Args: msg.ToolCall.Args,
					},
				})
			}
			if len(content.Parts) > 0 {
				contents = append(contents, content)
			}

		case "tool":
			contents = append(contents, &genai.Content{
				Role: genai.RoleUser,
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						Name:     provider.WireNameFromLabel(msg.ToolName),
						Response: map[string]interface{}{"result": msg.Content},
					},
				}},
			})

		default:
			if msg.Content == "" {
				continue
			}
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	return contents
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
