package toolkit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kiosk404/screenpilot/internal/screenpilot/pkg/errno"
	"github.com/kiosk404/screenpilot/internal/screenpilot/service/provider"
	"github.com/kiosk404/screenpilot/internal/screenpilot/service/supervisor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSupervisor records lifecycle requests without spawning anything.
type fakeSupervisor struct {
	active  map[string]bool
	tools   supervisor.Catalog
	scripts map[string]string
	started []string
	stopped []string
}

func newFakeSupervisor() *fakeSupervisor {
	return &fakeSupervisor{
		active:  make(map[string]bool),
		scripts: make(map[string]string),
	}
}

func (f *fakeSupervisor) Start(_ context.Context, name string) (bool, string) {
	f.started = append(f.started, name)
	f.active[name] = true
	return true, "Successfully started server " + name + ". Tools: []"
}

func (f *fakeSupervisor) Stop(name string) bool {
	f.stopped = append(f.stopped, name)
	if !f.active[name] {
		return false
	}
	delete(f.active, name)
	return true
}

func (f *fakeSupervisor) Restart(ctx context.Context, name string) (bool, string) {
	f.Stop(name)
	return f.Start(ctx, name)
}

func (f *fakeSupervisor) IsActive(name string) bool { return f.active[name] }

func (f *fakeSupervisor) CallTool(_ context.Context, serverName, _ string, _ map[string]interface{}) (string, error) {
	if !f.active[serverName] {
		return "", errno.ErrServerNotActive
	}
	return "ok", nil
}

func (f *fakeSupervisor) SweepIdle(time.Duration) []string        { return nil }
func (f *fakeSupervisor) AllTools() []provider.ToolSpec           { return f.tools.All() }
func (f *fakeSupervisor) ToolsCategorized() supervisor.Catalog    { return f.tools }
func (f *fakeSupervisor) ActiveServers() []string                 { return nil }
func (f *fakeSupervisor) ShutdownAll()                            {}
func (f *fakeSupervisor) ResolveScript(name string) (string, bool) {
	path, ok := f.scripts[name]
	return path, ok
}

// rejectValidator fails every candidate with a fixed message.
type rejectValidator struct{}

func (rejectValidator) Validate(context.Context, string) error {
	return errors.New("syntax error: invalid syntax (line 3)")
}

func testRouter(t *testing.T, sup supervisor.Supervisor, v SourceValidator) (*Router, string) {
	t.Helper()
	workDir := t.TempDir()
	return NewRouter(sup, NewMemoryStore(), t.TempDir(), workDir, v), workDir
}

func TestSetMemoryClampsConfidence(t *testing.T) {
	mem := NewMemoryStore()

	out := mem.SetBatch([]MemoryItem{
		{Title: "Plan", Content: "Step 1", Confidence: 150},
		{Title: "Hint", Content: "Use the menu", Confidence: -5},
		{Title: "Note", Content: "no confidence given"},
	})
	assert.Contains(t, out, "Memory 'Plan' (confidence 100) added.")
	assert.Contains(t, out, "Memory 'Hint' (confidence 0) added.")
	assert.Contains(t, out, "Memory 'Note' (confidence 0) added.")

	out = mem.SetBatch([]MemoryItem{{Title: "Plan", Content: "Step 2", Confidence: 80}})
	assert.Contains(t, out, "Memory 'Plan' (confidence 80) updated.")
}

func TestDeleteMemoryAbsentTitle(t *testing.T) {
	mem := NewMemoryStore()

	out := mem.Delete("Ghost")
	assert.Equal(t, "Error: Memory with title 'Ghost' not found.", out)
}

func TestMemoryRestoreLegacyShape(t *testing.T) {
	mem := NewMemoryStore()
	mem.Restore(map[string]interface{}{
		"Old":   map[string]interface{}{"content": "legacy note", "category": "Global"},
		"New":   map[string]interface{}{"content": "fresh note", "confidence": float64(70)},
		"Plain": "bare string",
	})

	snap := mem.Snapshot()
	assert.Equal(t, MemoryEntry{Content: "legacy note", Confidence: 0}, snap["Old"])
	assert.Equal(t, MemoryEntry{Content: "fresh note", Confidence: 70}, snap["New"])
	assert.Equal(t, MemoryEntry{Content: "bare string"}, snap["Plain"])
}

func TestCleanupEmptyIsNoOp(t *testing.T) {
	r, _ := testRouter(t, newFakeSupervisor(), NewNopValidator())

	assert.Equal(t, "Nothing to clean up.", r.Cleanup(nil, nil))
}

func TestCleanupBatch(t *testing.T) {
	sup := newFakeSupervisor()
	sup.active["browser"] = true
	r, _ := testRouter(t, sup, NewNopValidator())
	r.Memory().SetBatch([]MemoryItem{{Title: "Plan", Content: "x"}})

	out := r.Cleanup([]string{"Plan", "Ghost"}, []string{"browser", "dead"})
	assert.Contains(t, out, "Memory 'Plan' deleted.")
	assert.Contains(t, out, "Error: Memory with title 'Ghost' not found.")
	assert.Contains(t, out, "Server browser stopped.")
	assert.Contains(t, out, "Server dead was not running.")
}

func TestCreateServerRejectedSourceNotWritten(t *testing.T) {
	sup := newFakeSupervisor()
	r, workDir := testRouter(t, sup, rejectValidator{})

	out, err := r.Dispatch(t.Context(), GroupFactory, "create_server", map[string]interface{}{
		"name": "broken",
		"code": "def oops(:",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "syntax error")

	_, statErr := os.Stat(filepath.Join(workDir, "broken.py"))
	assert.True(t, os.IsNotExist(statErr))
	assert.Empty(t, sup.started)
}

func TestCreateServerWritesAndRestarts(t *testing.T) {
	sup := newFakeSupervisor()
	r, workDir := testRouter(t, sup, NewNopValidator())

	out, err := r.Dispatch(t.Context(), GroupFactory, "create_server", map[string]interface{}{
		"name": "clock",
		"code": "def now():\n    return 1\n",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "written")

	data, readErr := os.ReadFile(filepath.Join(workDir, "clock.py"))
	require.NoError(t, readErr)
	assert.Contains(t, string(data), "def now()")
	assert.Equal(t, []string{"clock"}, sup.started)
	assert.Equal(t, []string{"clock"}, sup.stopped)
}

func TestEditServerRequiresExistingFile(t *testing.T) {
	r, _ := testRouter(t, newFakeSupervisor(), NewNopValidator())

	out, err := r.Dispatch(t.Context(), GroupFactory, "edit_server", map[string]interface{}{
		"name": "ghost",
		"code": "x = 1\n",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "not found in workspace")
}

func TestCreateServerRejectsPathTraversal(t *testing.T) {
	r, _ := testRouter(t, newFakeSupervisor(), NewNopValidator())

	out, err := r.Dispatch(t.Context(), GroupFactory, "create_server", map[string]interface{}{
		"name": "../evil",
		"code": "x = 1\n",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "invalid server name")
}

func TestCatalogFiltersGroups(t *testing.T) {
	sup := newFakeSupervisor()
	sup.tools = supervisor.Catalog{
		User: []provider.ToolSpec{{Group: "browser", Name: "click"}},
	}
	r, _ := testRouter(t, sup, NewNopValidator())

	full := r.Catalog(nil)
	assert.NotEmpty(t, full.Core)
	assert.Len(t, full.User, 1)

	memoryOnly := r.Catalog([]string{GroupMemory})
	assert.Empty(t, memoryOnly.User)
	for _, spec := range memoryOnly.Core {
		assert.Equal(t, GroupMemory, spec.Group)
	}
	assert.Len(t, memoryOnly.Core, 2)
}

func TestDispatchUnknownVirtualTool(t *testing.T) {
	r, _ := testRouter(t, newFakeSupervisor(), NewNopValidator())

	out, err := r.Dispatch(t.Context(), GroupMemory, "forget_everything", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "unknown tool")
}

func TestDispatchDelegatesToSupervisor(t *testing.T) {
	sup := newFakeSupervisor()
	sup.active["browser"] = true
	r, _ := testRouter(t, sup, NewNopValidator())

	out, err := r.Dispatch(t.Context(), "browser", "click", map[string]interface{}{"x": 1.0})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	_, err = r.Dispatch(t.Context(), "dead", "click", nil)
	assert.ErrorIs(t, err, errno.ErrServerNotActive)
}

func TestForbiddenPatternGate(t *testing.T) {
	v := NewPyValidator("python3")

	err := v.Validate(t.Context(), "import sys\nsys.exit(1)\n")
	assert.ErrorIs(t, err, errno.ErrValidationFailed)
	assert.Contains(t, err.Error(), "sys.exit")
}
