package screenshot

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Capturer grabs the primary screen as PNG bytes.
type Capturer interface {
	Capture(ctx context.Context) ([]byte, time.Time, error)
}

const captureTimeout = 10 * time.Second

// outputMarker in the command arguments is replaced with a temp file
// path; without it the capture tool is expected to write PNG to stdout.
const outputMarker = "{output}"

// commandCapturer shells out to a platform screenshot tool.
type commandCapturer struct {
	command string
	args    []string
}

// NewCommandCapturer builds a Capturer from a command line such as
// "scrot -o {output}". An empty line picks a platform default.
func NewCommandCapturer(line string) Capturer {
	if line == "" {
		line = defaultCommand()
	}
	fields := strings.Fields(line)
	return &commandCapturer{command: fields[0], args: fields[1:]}
}

func defaultCommand() string {
	switch runtime.GOOS {
	case "darwin":
		return "screencapture -x -t png " + outputMarker
	case "windows":
		return "screenshot.exe " + outputMarker
	default:
		return "scrot -o " + outputMarker
	}
}

func (c *commandCapturer) Capture(ctx context.Context) ([]byte, time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, captureTimeout)
	defer cancel()

	var outFile string
	args := make([]string, len(c.args))
	for i, a := range c.args {
		if strings.Contains(a, outputMarker) {
			if outFile == "" {
				outFile = filepath.Join(os.TempDir(), fmt.Sprintf("screenpilot-%d.png", time.Now().UnixNano()))
			}
			a = strings.ReplaceAll(a, outputMarker, outFile)
		}
		args[i] = a
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.command, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	capturedAt := time.Now()
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return nil, time.Time{}, fmt.Errorf("screenshot command %q: %s", c.command, detail)
	}

	if outFile != "" {
		defer os.Remove(outFile)
		data, err := os.ReadFile(outFile)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("read screenshot output: %w", err)
		}
		return data, capturedAt, nil
	}
	return stdout.Bytes(), capturedAt, nil
}

// Static returns a Capturer that always yields the same image. Used
// in tests and headless runs.
func Static(img []byte) Capturer {
	return staticCapturer{img: img}
}

type staticCapturer struct {
	img []byte
}

func (s staticCapturer) Capture(context.Context) ([]byte, time.Time, error) {
	return s.img, time.Now(), nil
}
