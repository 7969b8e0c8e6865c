package supervisor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kiosk404/screenpilot/internal/screenpilot/pkg/errno"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager(t *testing.T) *managerImpl {
	t.Helper()

	coreDir := t.TempDir()
	workDir := t.TempDir()
	cfg := &Config{
		CoreDir:      coreDir,
		WorkDir:      workDir,
		Command:      "python3",
		StartTimeout: time.Second,
	}
	completed, err := cfg.Complete()
	require.NoError(t, err)

	return completed.New().(*managerImpl)
}

func writeScript(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name+".py")
	require.NoError(t, os.WriteFile(path, []byte("print('ok')\n"), 0o644))
	return path
}

// injectServer plants a live entry without spawning anything.
func injectServer(m *managerImpl, name, scriptPath string) *toolServer {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.genSeq++
	srv := newToolServer(name, scriptPath, m.genSeq)
	m.servers[name] = srv
	return srv
}

func TestResolveScriptPrefersWorkspace(t *testing.T) {
	m := testManager(t)

	corePath := writeScript(t, m.cfg.CoreDir, "screen")
	path, ok := m.ResolveScript("screen")
	require.True(t, ok)
	assert.Equal(t, corePath, path)

	workPath := writeScript(t, m.cfg.WorkDir, "screen")
	path, ok = m.ResolveScript("screen")
	require.True(t, ok)
	assert.Equal(t, workPath, path)

	_, ok = m.ResolveScript("missing")
	assert.False(t, ok)
}

func TestStartUnknownScript(t *testing.T) {
	m := testManager(t)

	ok, msg := m.Start(t.Context(), "ghost")
	assert.False(t, ok)
	assert.Contains(t, msg, errno.ErrServerNotFound.Error())
	assert.False(t, m.IsActive("ghost"))
}

func TestStartReportsHandshakeFailure(t *testing.T) {
	m := testManager(t)
	m.cfg.Command = "/bin/true"
	m.cfg.RunnerArgs = nil
	m.cfg.StartTimeout = 5 * time.Second
	writeScript(t, m.cfg.CoreDir, "screen")

	ok, msg := m.Start(t.Context(), "screen")
	assert.False(t, ok)
	assert.Contains(t, msg, errno.ErrHandshakeFailed.Error())
	assert.False(t, m.IsActive("screen"))
}

func TestStopRemovesEntryImmediately(t *testing.T) {
	m := testManager(t)
	injectServer(m, "screen", writeScript(t, m.cfg.CoreDir, "screen"))

	require.True(t, m.IsActive("screen"))
	assert.True(t, m.Stop("screen"))
	assert.False(t, m.IsActive("screen"))
	assert.False(t, m.Stop("screen"))
}

func TestReapIgnoresStaleGeneration(t *testing.T) {
	m := testManager(t)
	script := writeScript(t, m.cfg.CoreDir, "screen")

	old := injectServer(m, "screen", script)
	m.Stop("screen")
	fresh := injectServer(m, "screen", script)

	// The first incarnation's exit hook fires after the restart.
	m.reap(old)
	assert.True(t, m.IsActive("screen"))

	m.reap(fresh)
	assert.False(t, m.IsActive("screen"))
}

func TestSweepIdle(t *testing.T) {
	m := testManager(t)
	stale := injectServer(m, "stale", writeScript(t, m.cfg.CoreDir, "stale"))
	active := injectServer(m, "active", writeScript(t, m.cfg.CoreDir, "active"))

	stale.mu.Lock()
	stale.lastUsed = time.Now().Add(-700 * time.Second)
	stale.mu.Unlock()
	active.mu.Lock()
	active.lastUsed = time.Now().Add(-100 * time.Second)
	active.mu.Unlock()

	stopped := m.SweepIdle(600 * time.Second)
	assert.Equal(t, []string{"stale"}, stopped)
	assert.False(t, m.IsActive("stale"))
	assert.True(t, m.IsActive("active"))
}

func TestStartIsIdempotentForLiveServer(t *testing.T) {
	m := testManager(t)
	srv := injectServer(m, "screen", writeScript(t, m.cfg.CoreDir, "screen"))

	ok, msg := m.Start(t.Context(), "screen")
	assert.True(t, ok)
	assert.Contains(t, msg, "already running")

	m.mu.Lock()
	assert.Same(t, srv, m.servers["screen"])
	assert.Len(t, m.servers, 1)
	m.mu.Unlock()
}

func TestToolsCategorized(t *testing.T) {
	m := testManager(t)
	core := injectServer(m, "core_srv", writeScript(t, m.cfg.CoreDir, "core_srv"))
	user := injectServer(m, "user_srv", writeScript(t, m.cfg.WorkDir, "user_srv"))

	core.mu.Lock()
	core.tools = []mcp.Tool{{Name: "observe", Description: "Reads the screen."}}
	core.mu.Unlock()
	user.mu.Lock()
	user.tools = []mcp.Tool{{Name: "click", Description: "Clicks a point."}}
	user.mu.Unlock()

	catalog := m.ToolsCategorized()
	require.Len(t, catalog.Core, 1)
	require.Len(t, catalog.User, 1)
	assert.Equal(t, "core_srv", catalog.Core[0].Group)
	assert.Equal(t, "observe", catalog.Core[0].Name)
	assert.Equal(t, "user_srv", catalog.User[0].Group)
	assert.Len(t, catalog.All(), 2)
	assert.Len(t, m.AllTools(), 2)
}

func TestCallToolOnInactiveServer(t *testing.T) {
	m := testManager(t)

	_, err := m.CallTool(t.Context(), "ghost", "noop", nil)
	assert.ErrorIs(t, err, errno.ErrServerNotActive)
}
