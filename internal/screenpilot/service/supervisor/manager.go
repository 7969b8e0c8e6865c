package supervisor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kiosk404/screenpilot/internal/screenpilot/pkg/errno"
	"github.com/kiosk404/screenpilot/internal/screenpilot/service/provider"
	"github.com/kiosk404/screenpilot/pkg/logger"
	"github.com/kiosk404/screenpilot/pkg/utils/safego"
	"github.com/mark3labs/mcp-go/mcp"
)

// managerImpl is the default Supervisor implementation.
type managerImpl struct {
	cfg *Config

	mu      sync.Mutex
	servers map[string]*toolServer
	genSeq  uint64
}

var _ Supervisor = (*managerImpl)(nil)

func newManager(cfg *Config) *managerImpl {
	return &managerImpl{
		cfg:     cfg,
		servers: make(map[string]*toolServer),
	}
}

// ResolveScript searches the workspace first, then the core directory.
func (m *managerImpl) ResolveScript(name string) (string, bool) {
	for _, dir := range []string{m.cfg.WorkDir, m.cfg.CoreDir} {
		path := filepath.Join(dir, name+".py")
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

func (m *managerImpl) Start(ctx context.Context, name string) (bool, string) {
	scriptPath, found := m.ResolveScript(name)
	if !found {
		msg := fmt.Sprintf("%v: %s.py (searched workspace and core directories)", errno.ErrServerNotFound, name)
		logger.Warn("[Supervisor] %s", msg)
		return false, msg
	}

	m.mu.Lock()
	if _, live := m.servers[name]; live {
		m.mu.Unlock()
		return true, fmt.Sprintf("Server %s is already running.", name)
	}
	m.genSeq++
	srv := newToolServer(name, scriptPath, m.genSeq)
	m.servers[name] = srv
	m.mu.Unlock()

	logger.Info("[Supervisor] starting server %q (script=%s, gen=%d)", name, scriptPath, srv.gen)

	ready := make(chan error, 1)
	safego.Go(context.Background(), func() {
		srv.run(m.cfg, ready, m.reap)
	})

	select {
	case err := <-ready:
		if err != nil {
			srv.signalStop()
			m.removeIfOwned(srv)
			msg := fmt.Sprintf("Failed to start server %s: %v", name, err)
			logger.Warn("[Supervisor] %s", msg)
			return false, msg
		}
	case <-time.After(m.cfg.StartTimeout):
		srv.signalStop()
		m.removeIfOwned(srv)
		msg := fmt.Sprintf("Failed to start server %s: %v", name, errno.ErrHandshakeTimeout)
		logger.Warn("[Supervisor] %s", msg)
		return false, msg
	case <-ctx.Done():
		srv.signalStop()
		m.removeIfOwned(srv)
		return false, fmt.Sprintf("Failed to start server %s: %v", name, ctx.Err())
	}

	names := make([]string, 0, len(srv.toolSpecs()))
	for _, t := range srv.toolSpecs() {
		names = append(names, t.Name)
	}
	return true, fmt.Sprintf("Successfully started server %s. Tools: [%s]", name, strings.Join(names, ", "))
}

func (m *managerImpl) Stop(name string) bool {
	m.mu.Lock()
	srv, ok := m.servers[name]
	if ok {
		// Remove immediately so new calls against this name fail fast
		// while the lifecycle task tears down asynchronously.
		delete(m.servers, name)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}

	logger.Info("[Supervisor] stopping server %q (gen=%d)", name, srv.gen)
	srv.signalStop()
	return true
}

func (m *managerImpl) Restart(ctx context.Context, name string) (bool, string) {
	m.Stop(name)
	return m.Start(ctx, name)
}

func (m *managerImpl) IsActive(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.servers[name]
	return ok
}

func (m *managerImpl) CallTool(ctx context.Context, serverName, toolName string, args map[string]interface{}) (string, error) {
	m.mu.Lock()
	srv, ok := m.servers[serverName]
	m.mu.Unlock()

	if !ok {
		return "", fmt.Errorf("server %q: %w", serverName, errno.ErrServerNotActive)
	}

	session := srv.session()
	if session == nil {
		return "", fmt.Errorf("server %q has no session yet: %w", serverName, errno.ErrServerNotActive)
	}

	srv.touch()

	req := mcp.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = args

	res, err := session.CallTool(ctx, req)
	if err != nil {
		// Lazy reap: a failed transport means the subprocess crashed or
		// disconnected after its handshake. The entry is removed and
		// the error surfaces to the LLM; no automatic restart.
		logger.Warn("[Supervisor] server %q call failed, reaping: %v", serverName, err)
		srv.signalStop()
		m.removeIfOwned(srv)
		return "", fmt.Errorf("call %s.%s: %w", serverName, toolName, err)
	}

	return flattenResult(res), nil
}

func (m *managerImpl) SweepIdle(maxIdle time.Duration) []string {
	now := time.Now()

	m.mu.Lock()
	var stale []*toolServer
	for _, srv := range m.servers {
		if srv.idle(now) > maxIdle {
			stale = append(stale, srv)
		}
	}
	m.mu.Unlock()

	stopped := make([]string, 0, len(stale))
	for _, srv := range stale {
		logger.Info("[Supervisor] server %q idle for %s, stopping", srv.name, srv.idle(now).Round(time.Second))
		if m.Stop(srv.name) {
			stopped = append(stopped, srv.name)
		}
	}
	return stopped
}

func (m *managerImpl) AllTools() []provider.ToolSpec {
	return m.ToolsCategorized().All()
}

func (m *managerImpl) ToolsCategorized() Catalog {
	m.mu.Lock()
	servers := make([]*toolServer, 0, len(m.servers))
	for _, srv := range m.servers {
		servers = append(servers, srv)
	}
	m.mu.Unlock()

	sort.Slice(servers, func(i, j int) bool { return servers[i].name < servers[j].name })

	coreDir := filepath.Clean(m.cfg.CoreDir)
	catalog := Catalog{}
	for _, srv := range servers {
		isCore := strings.HasPrefix(filepath.Clean(srv.scriptPath), coreDir+string(filepath.Separator))
		if isCore {
			catalog.Core = append(catalog.Core, srv.toolSpecs()...)
		} else {
			catalog.User = append(catalog.User, srv.toolSpecs()...)
		}
	}
	return catalog
}

func (m *managerImpl) ActiveServers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.servers))
	for name := range m.servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *managerImpl) ShutdownAll() {
	for _, name := range m.ActiveServers() {
		m.Stop(name)
	}
	logger.Info("[Supervisor] all servers stopped")
}

// reap is the lifecycle task's exit hook.
func (m *managerImpl) reap(srv *toolServer) {
	m.removeIfOwned(srv)
}

// removeIfOwned deletes the live-map entry only when it still belongs
// to this instance's generation.
func (m *managerImpl) removeIfOwned(srv *toolServer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.servers[srv.name]; ok && cur.gen == srv.gen {
		delete(m.servers, srv.name)
	}
}
