package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kiosk404/screenpilot/internal/screenpilot/pkg/errno"
	"github.com/kiosk404/screenpilot/internal/screenpilot/service/provider"
	"github.com/kiosk404/screenpilot/pkg/logger"
	"github.com/kiosk404/screenpilot/pkg/utils/json"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolServer is one live tool-server subprocess entry.
type toolServer struct {
	name       string
	scriptPath string

	// gen is the ownership token for this start attempt. Cleanup paths
	// only remove the live-map entry when the entry still carries the
	// same generation, so a slow-terminating old instance cannot delete
	// a just-started replacement under the same name.
	gen uint64

	mu        sync.Mutex
	client    client.MCPClient
	tools     []mcp.Tool
	createdAt time.Time
	lastUsed  time.Time
	usage     int

	stopCh   chan struct{}
	stopOnce sync.Once
}

func newToolServer(name, scriptPath string, gen uint64) *toolServer {
	now := time.Now()
	return &toolServer{
		name:       name,
		scriptPath: scriptPath,
		gen:        gen,
		createdAt:  now,
		lastUsed:   now,
		stopCh:     make(chan struct{}),
	}
}

// signalStop asks the lifecycle task to exit. Safe to call repeatedly.
func (s *toolServer) signalStop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *toolServer) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()
	s.usage++
}

func (s *toolServer) idle(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastUsed)
}

func (s *toolServer) session() client.MCPClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

func (s *toolServer) toolSpecs() []provider.ToolSpec {
	s.mu.Lock()
	defer s.mu.Unlock()

	specs := make([]provider.ToolSpec, 0, len(s.tools))
	for _, t := range s.tools {
		specs = append(specs, provider.ToolSpec{
			Group:       s.name,
			Name:        t.Name,
			Description: t.Description,
			InputSchema: toolSchemaMap(t),
		})
	}
	return specs
}

// toolSchemaMap converts an MCP tool input schema to the generic
// JSON-schema-like map the provider adapters consume.
func toolSchemaMap(t mcp.Tool) map[string]interface{} {
	schema := map[string]interface{}{"type": "object"}
	if t.InputSchema.Type != "" {
		schema["type"] = t.InputSchema.Type
	}
	if len(t.InputSchema.Properties) > 0 {
		schema["properties"] = t.InputSchema.Properties
	}
	if len(t.InputSchema.Required) > 0 {
		required := make([]interface{}, 0, len(t.InputSchema.Required))
		for _, r := range t.InputSchema.Required {
			required = append(required, r)
		}
		schema["required"] = required
	}
	return schema
}

// run is the lifecycle task for one server instance. It opens the
// subprocess transport, performs the protocol handshake, fetches the
// tool list, signals the waiting Start caller through ready, then
// blocks until told to stop. Any failure before the ready signal is
// propagated through ready so the caller reports the precise error
// instead of a generic timeout.
func (s *toolServer) run(cfg *Config, ready chan<- error, onExit func(*toolServer)) {
	defer onExit(s)

	args := append(append([]string(nil), cfg.RunnerArgs...), s.scriptPath)

	cli, err := client.NewStdioMCPClient(cfg.Command, cfg.Env, args...)
	if err != nil {
		ready <- fmt.Errorf("spawn subprocess: %w", err)
		return
	}
	defer func() {
		if err := cli.Close(); err != nil {
			logger.Warn("[Supervisor] server %q: close session: %v", s.name, err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.StartTimeout)
	defer cancel()

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "screenpilot",
		Version: "0.1.0",
	}
	if _, err := cli.Initialize(ctx, initReq); err != nil {
		ready <- fmt.Errorf("%w: %v", errno.ErrHandshakeFailed, err)
		return
	}

	toolsRes, err := cli.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		ready <- fmt.Errorf("list tools: %w", err)
		return
	}

	s.mu.Lock()
	s.client = cli
	s.tools = toolsRes.Tools
	s.mu.Unlock()

	ready <- nil

	logger.Info("[Supervisor] server %q connected (%d tools)", s.name, len(toolsRes.Tools))

	<-s.stopCh
	logger.Info("[Supervisor] server %q lifecycle ended", s.name)
}

// flattenResult extracts the text payload from a tool-call result: the
// first text content block when present, otherwise the JSON rendering
// of the whole result.
func flattenResult(res *mcp.CallToolResult) string {
	if res == nil {
		return ""
	}
	for _, c := range res.Content {
		if tc, ok := mcp.AsTextContent(c); ok {
			return tc.Text
		}
	}
	if out, err := json.MarshalString(res); err == nil {
		return out
	}
	return fmt.Sprintf("%v", res)
}
