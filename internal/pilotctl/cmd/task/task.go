package task

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/kiosk404/screenpilot/pkg/utils/json"
)

var taskExample = heredoc.Doc(`
		# Hand the agent a new mission
		pilotctl task "Open the browser and check the weather in Berlin"`)

// NewCmdTask returns new initialized instance of 'task' sub command.
func NewCmdTask(out io.Writer, addr func() string) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "task TEXT",
		DisableFlagsInUseLine: true,
		Short:                 "Submit a mission to a waiting agent",
		Long:                  "Submit a mission to an agent waiting for input on the dashboard.",
		Example:               taskExample,
		Args:                  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(out, addr(), strings.Join(args, " "))
		},
	}

	return cmd
}

func run(out io.Writer, addr, text string) error {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(
		fmt.Sprintf("http://%s/api/input", addr),
		"application/json",
		bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("dashboard unreachable at %s: %w", addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("dashboard rejected input: status %d: %s", resp.StatusCode, string(body))
	}

	fmt.Fprintln(out, "Task submitted.")

	return nil
}
