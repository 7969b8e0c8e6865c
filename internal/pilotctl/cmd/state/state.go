package state

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/kiosk404/screenpilot/internal/screenpilot/service/display"
	"github.com/kiosk404/screenpilot/pkg/utils/json"
)

var stateExample = heredoc.Doc(`
		# Show what the agent is currently doing
		pilotctl state

		# Query a remote dashboard
		pilotctl state --dashboard-addr 192.168.1.20:8240`)

// NewCmdState returns new initialized instance of 'state' sub command.
func NewCmdState(out io.Writer, addr func() string) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "state",
		DisableFlagsInUseLine: true,
		Short:                 "Show the agent's live state from the dashboard",
		Long:                  "Show the agent's live state from the dashboard.",
		Example:               stateExample,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(out, addr())
		},
	}

	return cmd
}

func run(out io.Writer, addr string) error {
	st, err := fetch(addr)
	if err != nil {
		return err
	}

	table := uitable.New()
	table.MaxColWidth = 100
	table.Wrap = true

	table.AddRow("MISSION:", st.Mission)
	table.AddRow("PHASE:", st.Phase)
	table.AddRow("TURN:", fmt.Sprintf("%d", st.Turn))
	table.AddRow("THOUGHT:", st.Thought)
	if st.Error != "" {
		table.AddRow("ERROR:", st.Error)
	}
	fmt.Fprintln(out, table)

	if len(st.Memories) > 0 {
		fmt.Fprintln(out, "\nMEMORIES:")
		mem := uitable.New()
		mem.MaxColWidth = 80
		mem.Wrap = true
		mem.AddRow("  TITLE", "CONTENT")
		for title, content := range st.Memories {
			mem.AddRow("  "+title, content)
		}
		fmt.Fprintln(out, mem)
	}

	if len(st.ActiveServers) > 0 {
		fmt.Fprintln(out, "\nACTIVE SERVERS:")
		for _, name := range st.ActiveServers {
			fmt.Fprintf(out, "  - %s\n", name)
		}
	}

	if st.ToolLog != "" {
		fmt.Fprintln(out, "\nLAST TOOL RESULT:")
		fmt.Fprintf(out, "  %s\n", st.ToolLog)
	}

	return nil
}

func fetch(addr string) (*display.State, error) {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(fmt.Sprintf("http://%s/api/state", addr))
	if err != nil {
		return nil, fmt.Errorf("dashboard unreachable at %s: %w", addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dashboard returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var st display.State
	if err := json.Unmarshal(body, &st); err != nil {
		return nil, fmt.Errorf("decode state failed: %w", err)
	}

	return &st, nil
}
