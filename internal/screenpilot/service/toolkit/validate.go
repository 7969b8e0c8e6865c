package toolkit

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/kiosk404/screenpilot/internal/screenpilot/pkg/errno"
)

// SourceValidator gates generated tool-server code before it is
// written to the workspace.
type SourceValidator interface {
	Validate(ctx context.Context, code string) error
}

// Patterns that break the stdio transport or kill the runner process.
// Tool servers talk JSON-RPC over stdin/stdout, so anything reading
// stdin or exiting the interpreter takes the whole session down.
var forbiddenPatterns = []struct {
	pattern string
	reason  string
}{
	{"input(", "reads stdin, which carries the tool protocol"},
	{"sys.stdin", "reads stdin, which carries the tool protocol"},
	{"os._exit", "kills the runner process"},
	{"sys.exit", "kills the runner process"},
	{"asyncio.run(", "conflicts with the runner's own event loop"},
	{"mcp.run(", "the runner serves the tools itself"},
}

const validateTimeout = 10 * time.Second

// pyValidator compiles candidate source with the same interpreter that
// will later run it.
type pyValidator struct {
	python string
}

func NewPyValidator(python string) SourceValidator {
	return &pyValidator{python: python}
}

func (v *pyValidator) Validate(ctx context.Context, code string) error {
	for _, fp := range forbiddenPatterns {
		if strings.Contains(code, fp.pattern) {
			return fmt.Errorf("%w: forbidden pattern %q (%s)", errno.ErrValidationFailed, fp.pattern, fp.reason)
		}
	}

	tmpDir, err := os.MkdirTemp("", "screenpilot-validate-*")
	if err != nil {
		return fmt.Errorf("%w: %v", errno.ErrValidationFailed, err)
	}
	defer os.RemoveAll(tmpDir)

	tmpFile := filepath.Join(tmpDir, "candidate.py")
	if err := os.WriteFile(tmpFile, []byte(code), 0o644); err != nil {
		return fmt.Errorf("%w: %v", errno.ErrValidationFailed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, v.python, "-m", "py_compile", tmpFile)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return fmt.Errorf("%w: syntax error: %s", errno.ErrValidationFailed, detail)
	}
	return nil
}

// nopValidator accepts everything. Used in tests.
type nopValidator struct{}

func NewNopValidator() SourceValidator { return nopValidator{} }

func (nopValidator) Validate(context.Context, string) error { return nil }
