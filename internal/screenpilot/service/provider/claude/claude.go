// Package claude implements the provider adapter for Anthropic Claude
// via the official SDK's native tool use.
package claude

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/kiosk404/screenpilot/internal/screenpilot/service/provider"
	"github.com/kiosk404/screenpilot/pkg/logger"
	"github.com/kiosk404/screenpilot/pkg/utils/json"
)

const Name = "claude"

const defaultMaxTokens = 4096

// Compile-time check: Adapter implements provider.Adapter.
var _ provider.Adapter = (*Adapter)(nil)

// Config holds the Claude connection settings.
type Config struct {
	APIKey            string
	Model             string
	BaseURL           string
	SystemInstruction string
	MaxTokens         int64
}

// Adapter talks to the Anthropic Messages API.
type Adapter struct {
	client anthropic.Client
	cfg    Config

	mu    sync.Mutex
	tools []provider.ToolSpec
}

// New creates a Claude adapter.
func New(cfg Config) *Adapter {
	opts := []anthropicopt.RequestOption{anthropicopt.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropicopt.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}

	logger.Info("[LLM] claude adapter initialized (model=%s)", cfg.Model)
	return &Adapter{
		client: anthropic.NewClient(opts...),
		cfg:    cfg,
	}
}

func (a *Adapter) Name() string {
	return Name
}

// SetTools installs the tool catalog for subsequent requests.
func (a *Adapter) SetTools(tools []provider.ToolSpec) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tools = append([]provider.ToolSpec(nil), tools...)
	logger.Debug("[LLM] claude: %d tools set", len(tools))
}

// GenerateDecision performs one Claude round-trip.
func (a *Adapter) GenerateDecision(ctx context.Context, req *provider.Request) (*provider.Decision, error) {
	a.mu.Lock()
	tools := append([]provider.ToolSpec(nil), a.tools...)
	a.mu.Unlock()

	mapping, toolParams := buildToolParams(tools)

	history := provider.TrimUnresolved(req.History)
	turns := convertHistory(history)

	// Current turn: images first, prompt text last, folded into the
	// last user turn when the transcript already ends on one (Claude
	// requires strict role alternation).
	current := make([]anthropic.ContentBlockParamUnion, 0, len(req.Images)+1)
	for _, img := range req.Images {
		encoded := base64.StdEncoding.EncodeToString(img)
		current = append(current, anthropic.NewImageBlockBase64("image/png", encoded))
	}
	current = append(current, anthropic.NewTextBlock(req.Prompt))
	turns = appendTurn(turns, "user", current...)

	// The transcript must open with a user turn.
	if len(turns) > 0 && turns[0].role != "user" {
		turns = append([]turn{{role: "user", blocks: []anthropic.ContentBlockParamUnion{
			anthropic.NewTextBlock("(session started)"),
		}}}, turns...)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.cfg.Model),
		MaxTokens: a.cfg.MaxTokens,
		Messages:  toMessageParams(turns),
	}
	if sys := firstNonEmpty(req.SystemInstruction, a.cfg.SystemInstruction); sys != "" {
		params.System = []anthropic.TextBlockParam{{Text: sys}}
	}
	if len(toolParams) > 0 {
		params.Tools = toolParams
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("claude generate: %w", err)
	}

	decision := &provider.Decision{}
	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			decision.Thought = b.Text
		case anthropic.ToolUseBlock:
			if decision.ToolCall != nil {
				continue
			}
			group, tool := mapping.Resolve(b.Name)
			args := map[string]interface{}{}
			if len(b.Input) > 0 {
				if err := json.Unmarshal(b.Input, &args); err != nil {
					logger.Warn("[LLM] claude: undecodable tool input for %s: %v", b.Name, err)
				}
			}
			decision.ToolCall = &provider.ToolCall{
				ID:    b.ID,
				Group: group,
				Name:  tool,
				Args:  args,
			}
		}
	}
	return decision, nil
}

// buildToolParams converts the catalog to Claude tool declarations and
// records the reverse mapping.
func buildToolParams(tools []provider.ToolSpec) (provider.ToolMapping, []anthropic.ToolUnionParam) {
	mapping, names := provider.BuildMapping(tools)

	params := make([]anthropic.ToolUnionParam, 0, len(names))
	for _, name := range names {
		spec := mapping[name]

		schema := provider.NormalizeObjectSchema(spec.InputSchema, false)
		props, _ := schema["properties"].(map[string]interface{})
		if props == nil {
			props = map[string]interface{}{}
		}

		inputSchema := anthropic.ToolInputSchemaParam{Properties: props}
		if req, ok := schema["required"].([]interface{}); ok {
			for _, r := range req {
				if s, ok := r.(string); ok {
					inputSchema.Required = append(inputSchema.Required, s)
				}
			}
		}

		params = append(params, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        name,
				Description: anthropic.String(provider.DescribeTool(spec)),
				InputSchema: inputSchema,
			},
		})
	}
	return mapping, params
}

// turn is an intermediate transcript entry; consecutive same-role turns
// are merged before conversion since Claude requires alternation.
type turn struct {
	role   string
	blocks []anthropic.ContentBlockParamUnion
}

func appendTurn(turns []turn, role string, blocks ...anthropic.ContentBlockParamUnion) []turn {
	if len(blocks) == 0 {
		return turns
	}
	if n := len(turns); n > 0 && turns[n-1].role == role {
		turns[n-1].blocks = append(turns[n-1].blocks, blocks...)
		return turns
	}
	return append(turns, turn{role: role, blocks: blocks})
}

// convertHistory maps the internal transcript to Claude turns: tool
// results become tool_result blocks inside user turns, assistant tool
// calls become tool_use blocks.
func convertHistory(history []provider.HistoryMessage) []turn {
	var turns []turn

	for _, msg := range history {
		switch msg.Role {
		case "assistant":
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			if msg.ToolCall != nil {
				wireName := provider.WireName(msg.ToolCall.Group, msg.ToolCall.Name)
				args := msg.ToolCall.Args
				if args == nil {
					args = map[string]interface{}{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(msg.ToolCall.ID, args, wireName))
			}
			turns = appendTurn(turns, "assistant", blocks...)

		case "tool":
			callID := msg.ToolCallID
			if callID == "" {
				callID = "unknown"
			}
			turns = appendTurn(turns, "user", anthropic.NewToolResultBlock(callID, msg.Content, false))

		default:
			if msg.Content == "" {
				continue
			}
			turns = appendTurn(turns, "user", anthropic.NewTextBlock(msg.Content))
		}
	}
	return turns
}

func toMessageParams(turns []turn) []anthropic.MessageParam {
	msgs := make([]anthropic.MessageParam, 0, len(turns))
	for _, t := range turns {
		if t.role == "assistant" {
			msgs = append(msgs, anthropic.NewAssistantMessage(t.blocks...))
		} else {
			msgs = append(msgs, anthropic.NewUserMessage(t.blocks...))
		}
	}
	return msgs
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
