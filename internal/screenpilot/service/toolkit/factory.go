package toolkit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kiosk404/screenpilot/internal/screenpilot/service/supervisor"
	"github.com/kiosk404/screenpilot/pkg/logger"
)

// factory implements the tool-creation group: the LLM writes, edits
// and inspects its own tool-server scripts.
type factory struct {
	coreDir   string
	workDir   string
	sup       supervisor.Supervisor
	validator SourceValidator
}

func validServerName(name string) bool {
	if name == "" || strings.Contains(name, "..") {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

// CreateServer validates the source, writes it to the workspace and
// restarts the server so the new tools are immediately usable.
func (f *factory) CreateServer(ctx context.Context, name, code string) string {
	return f.writeAndRestart(ctx, name, code, false)
}

// EditServer is the same path as CreateServer but the script must
// already exist in the workspace. Core scripts are immutable.
func (f *factory) EditServer(ctx context.Context, name, code string) string {
	return f.writeAndRestart(ctx, name, code, true)
}

func (f *factory) writeAndRestart(ctx context.Context, name, code string, mustExist bool) string {
	if !validServerName(name) {
		return fmt.Sprintf("Error: invalid server name '%s'.", name)
	}
	if code == "" {
		return "Error: code is required."
	}

	path := filepath.Join(f.workDir, name+".py")
	if mustExist {
		if _, err := os.Stat(path); err != nil {
			return fmt.Sprintf("Error: server '%s' not found in workspace. Use create_server for new servers.", name)
		}
	}

	if err := f.validator.Validate(ctx, code); err != nil {
		logger.WarnX("Toolkit", "rejected source for %q: %v", name, err)
		return fmt.Sprintf("Error: %v", err)
	}

	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		return fmt.Sprintf("Error writing server file: %v", err)
	}
	logger.InfoX("Toolkit", "wrote server script %s", path)

	f.sup.Stop(name)
	ok, msg := f.sup.Start(ctx, name)
	if !ok {
		return fmt.Sprintf("Server file %s written, but starting it failed: %s", path, msg)
	}
	return fmt.Sprintf("Server file %s written. %s", path, msg)
}

// ReadCode returns the raw source of a server script, searching the
// workspace first, then the core directory.
func (f *factory) ReadCode(name string) string {
	if !validServerName(name) {
		return fmt.Sprintf("Error: invalid server name '%s'.", name)
	}

	path, found := f.sup.ResolveScript(name)
	if !found {
		return fmt.Sprintf("Error: Server file '%s.py' not found.", name)
	}

	code, err := os.ReadFile(path)
	if err != nil {
		return fmt.Sprintf("Error reading server file: %v", err)
	}
	return fmt.Sprintf("--- Code for %s.py ---\n%s\n---------------------------", name, code)
}

// ListServers reports every known script, core and workspace, with a
// marker for the ones currently running.
func (f *factory) ListServers() string {
	active := make(map[string]bool)
	for _, name := range f.sup.ActiveServers() {
		active[name] = true
	}

	var out []string
	out = append(out, "Core servers: "+f.formatDir(f.coreDir, active))
	out = append(out, "Workspace servers: "+f.formatDir(f.workDir, active))
	return strings.Join(out, "\n")
}

func (f *factory) formatDir(dir string, active map[string]bool) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "(none)"
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".py") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".py")
		if active[name] {
			name += " (running)"
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return "(none)"
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func (f *factory) StartServer(ctx context.Context, name string) string {
	_, msg := f.sup.Start(ctx, name)
	return msg
}

func (f *factory) StopServer(name string) string {
	if f.sup.Stop(name) {
		return fmt.Sprintf("Server %s stopped.", name)
	}
	return fmt.Sprintf("Server %s was not running.", name)
}
