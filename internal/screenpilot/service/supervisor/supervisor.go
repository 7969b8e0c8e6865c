package supervisor

import (
	"context"
	"time"

	"github.com/kiosk404/screenpilot/internal/screenpilot/service/provider"
)

// Catalog is the live tool catalog, partitioned into core servers
// (scripts under CoreDir, plus virtual groups merged in by the router)
// and user servers (LLM-created scripts under WorkDir).
type Catalog struct {
	Core []provider.ToolSpec
	User []provider.ToolSpec
}

// All returns core and user tools in one list, core first.
func (c Catalog) All() []provider.ToolSpec {
	out := make([]provider.ToolSpec, 0, len(c.Core)+len(c.User))
	out = append(out, c.Core...)
	out = append(out, c.User...)
	return out
}

// Supervisor owns the set of running tool-server subprocesses.
//
// Lifecycle errors are reported as (false, message) rather than Go
// errors: a failed start is an expected outcome (LLM-generated servers
// crash often) that must stay legible to the calling LLM.
type Supervisor interface {
	// Start launches the named server and blocks until its handshake
	// completes or times out. Starting an already-live name succeeds
	// without disturbing the running instance.
	Start(ctx context.Context, name string) (bool, string)

	// Stop signals the server's lifecycle task to exit and removes the
	// entry immediately; teardown completes asynchronously. Returns
	// false if the name was not live.
	Stop(name string) bool

	// Restart stops the server when running, then starts it. Used by
	// the tool factory after (re)writing a script.
	Restart(ctx context.Context, name string) (bool, string)

	// IsActive reports whether the named server is live.
	IsActive(name string) bool

	// CallTool forwards a call over the server's session and returns
	// the flattened text result. Fails with errno.ErrServerNotActive
	// when the target is not live.
	CallTool(ctx context.Context, serverName, toolName string, args map[string]interface{}) (string, error)

	// SweepIdle stops every live server idle longer than maxIdle.
	// Returns the names stopped.
	SweepIdle(maxIdle time.Duration) []string

	// AllTools returns every live server's tools.
	AllTools() []provider.ToolSpec

	// ToolsCategorized partitions the live catalog into core and user.
	ToolsCategorized() Catalog

	// ActiveServers returns the live server names.
	ActiveServers() []string

	// ResolveScript returns the script path backing name, searching the
	// workspace first, then the core directory.
	ResolveScript(name string) (string, bool)

	// ShutdownAll stops every live server.
	ShutdownAll()
}
