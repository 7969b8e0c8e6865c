package toolkit

import (
	"context"
	"fmt"

	"github.com/kiosk404/screenpilot/internal/screenpilot/service/provider"
	"github.com/kiosk404/screenpilot/internal/screenpilot/service/supervisor"
)

// Virtual tool groups served in-process, without a subprocess.
const (
	GroupMemory  = "memory"
	GroupFactory = "factory"
	GroupCleaner = "cleaner"
)

// Router fronts the supervisor with the fixed virtual groups. Calls
// against a virtual group never reach a subprocess; everything else is
// delegated by group name.
type Router struct {
	sup     supervisor.Supervisor
	mem     *MemoryStore
	factory *factory
}

func NewRouter(sup supervisor.Supervisor, mem *MemoryStore, coreDir, workDir string, validator SourceValidator) *Router {
	return &Router{
		sup: sup,
		mem: mem,
		factory: &factory{
			coreDir:   coreDir,
			workDir:   workDir,
			sup:       sup,
			validator: validator,
		},
	}
}

func (r *Router) Memory() *MemoryStore { return r.mem }

func IsVirtualGroup(group string) bool {
	switch group {
	case GroupMemory, GroupFactory, GroupCleaner:
		return true
	}
	return false
}

// Catalog merges the virtual groups (core category) with the
// supervisor's live servers, keeping only the allowed groups. A nil
// allow list keeps everything. Filtering happens here, at catalog
// construction, so a restricted phase never even sees the tools it
// may not use.
func (r *Router) Catalog(allowed []string) supervisor.Catalog {
	var allow map[string]bool
	if allowed != nil {
		allow = make(map[string]bool, len(allowed))
		for _, g := range allowed {
			allow[g] = true
		}
	}
	keep := func(group string) bool { return allow == nil || allow[group] }

	catalog := Catalog{}
	for _, spec := range virtualSpecs {
		if keep(spec.Group) {
			catalog.Core = append(catalog.Core, spec)
		}
	}

	live := r.sup.ToolsCategorized()
	for _, spec := range live.Core {
		if keep(spec.Group) {
			catalog.Core = append(catalog.Core, spec)
		}
	}
	for _, spec := range live.User {
		if keep(spec.Group) {
			catalog.User = append(catalog.User, spec)
		}
	}
	return catalog
}

// Catalog aliases the supervisor's categorized tool list.
type Catalog = supervisor.Catalog

// Dispatch routes a tool call. Virtual groups answer in-process and
// report their failures as textual results; subprocess groups go
// through the supervisor and may return transport errors.
func (r *Router) Dispatch(ctx context.Context, group, tool string, args map[string]interface{}) (string, error) {
	switch group {
	case GroupMemory:
		return r.dispatchMemory(tool, args), nil
	case GroupFactory:
		return r.dispatchFactory(ctx, tool, args), nil
	case GroupCleaner:
		return r.dispatchCleaner(tool, args), nil
	}
	return r.sup.CallTool(ctx, group, tool, args)
}

func (r *Router) dispatchMemory(tool string, args map[string]interface{}) string {
	switch tool {
	case "set_memory":
		return r.mem.SetBatch(parseMemoryItems(args["memories"]))
	case "delete_memory":
		return r.mem.Delete(argString(args, "title"))
	}
	return fmt.Sprintf("Error: unknown tool '%s' in group '%s'.", tool, GroupMemory)
}

func (r *Router) dispatchFactory(ctx context.Context, tool string, args map[string]interface{}) string {
	switch tool {
	case "create_server":
		return r.factory.CreateServer(ctx, argString(args, "name"), argString(args, "code"))
	case "edit_server":
		return r.factory.EditServer(ctx, argString(args, "name"), argString(args, "code"))
	case "read_code":
		return r.factory.ReadCode(argString(args, "name"))
	case "list_servers":
		return r.factory.ListServers()
	case "start_server":
		return r.factory.StartServer(ctx, argString(args, "name"))
	case "stop_server":
		return r.factory.StopServer(argString(args, "name"))
	}
	return fmt.Sprintf("Error: unknown tool '%s' in group '%s'.", tool, GroupFactory)
}

func (r *Router) dispatchCleaner(tool string, args map[string]interface{}) string {
	if tool != "cleanup" {
		return fmt.Sprintf("Error: unknown tool '%s' in group '%s'.", tool, GroupCleaner)
	}
	return r.Cleanup(argStringSlice(args, "memory_titles"), argStringSlice(args, "server_names"))
}

func parseMemoryItems(raw interface{}) []MemoryItem {
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}

	items := make([]MemoryItem, 0, len(list))
	for _, el := range list {
		m, ok := el.(map[string]interface{})
		if !ok {
			continue
		}
		item := MemoryItem{
			Title:   argString(m, "title"),
			Content: argString(m, "content"),
		}
		if conf, ok := m["confidence"].(float64); ok {
			item.Confidence = int(conf)
		}
		items = append(items, item)
	}
	return items
}

func argString(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

func argStringSlice(args map[string]interface{}, key string) []string {
	list, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, el := range list {
		if s, ok := el.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

var virtualSpecs = []provider.ToolSpec{
	{
		Group:       GroupMemory,
		Name:        "set_memory",
		Description: "Add or update titled memories. Confidence is 0-100; omitted confidence means 0.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"memories": map[string]interface{}{
					"type":        "array",
					"description": "Batch of memories to upsert.",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"title":      map[string]interface{}{"type": "string"},
							"content":    map[string]interface{}{"type": "string"},
							"confidence": map[string]interface{}{"type": "integer", "description": "0-100"},
						},
						"required": []interface{}{"title", "content"},
					},
				},
			},
			"required": []interface{}{"memories"},
		},
	},
	{
		Group:       GroupMemory,
		Name:        "delete_memory",
		Description: "Delete a memory by title.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"title": map[string]interface{}{"type": "string"},
			},
			"required": []interface{}{"title"},
		},
	},
	{
		Group:       GroupFactory,
		Name:        "create_server",
		Description: "Create a new tool server script in the workspace and start it. The code is syntax-checked before it is written.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"name": map[string]interface{}{"type": "string", "description": "Server name without the .py extension."},
				"code": map[string]interface{}{"type": "string", "description": "Full Python source of the server."},
			},
			"required": []interface{}{"name", "code"},
		},
	},
	{
		Group:       GroupFactory,
		Name:        "edit_server",
		Description: "Overwrite an existing workspace server script and restart it. Fails if the script does not exist.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"name": map[string]interface{}{"type": "string"},
				"code": map[string]interface{}{"type": "string"},
			},
			"required": []interface{}{"name", "code"},
		},
	},
	{
		Group:       GroupFactory,
		Name:        "read_code",
		Description: "Read the source code of a server script, for inspection or debugging.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"name": map[string]interface{}{"type": "string"},
			},
			"required": []interface{}{"name"},
		},
	},
	{
		Group:       GroupFactory,
		Name:        "list_servers",
		Description: "List all known server scripts, core and workspace, with running markers.",
		InputSchema: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
	},
	{
		Group:       GroupFactory,
		Name:        "start_server",
		Description: "Start an existing server to add its tools to the context.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"name": map[string]interface{}{"type": "string"},
			},
			"required": []interface{}{"name"},
		},
	},
	{
		Group:       GroupFactory,
		Name:        "stop_server",
		Description: "Stop a running server without deleting its script.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"name": map[string]interface{}{"type": "string"},
			},
			"required": []interface{}{"name"},
		},
	},
	{
		Group:       GroupCleaner,
		Name:        "cleanup",
		Description: "Batch-delete memories and stop servers in one call.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"memory_titles": map[string]interface{}{
					"type":  "array",
					"items": map[string]interface{}{"type": "string"},
				},
				"server_names": map[string]interface{}{
					"type":  "array",
					"items": map[string]interface{}{"type": "string"},
				},
			},
		},
	},
}
