package agent

import (
	"github.com/kiosk404/screenpilot/internal/screenpilot/service/toolkit"
)

// Phase is one stage of a turn. Each phase keeps its own role-scoped
// history and sees only the tool groups it is allowed to use.
type Phase struct {
	// Name doubles as the conversation role for this phase.
	Name string

	// Groups is the explicit allow list. When nil, every group is
	// allowed except the ones in Exclude.
	Groups  []string
	Exclude []string

	// MaxSteps bounds the think/act/observe loop within the phase.
	MaxSteps int

	// UseGlobal sends the shared cross-phase history instead of the
	// phase's own.
	UseGlobal bool

	// Conditional phases only run when triggered (see forge).
	Conditional bool

	Instruction string
}

// varForgeHint is the scratch variable the act phase sets when it runs
// into a capability it does not have. A pending hint triggers the
// forge phase on the next pass.
const varForgeHint = "forge_hint"

func defaultPhases() []Phase {
	return []Phase{
		{
			Name:        "observe",
			Groups:      []string{toolkit.GroupMemory},
			MaxSteps:    2,
			Instruction: "Study the screenshot. Record anything durable or newly learned as memories. Do not act on the screen in this phase.",
		},
		{
			Name:        "cleanup",
			Groups:      []string{toolkit.GroupCleaner},
			MaxSteps:    1,
			Instruction: "Review your memories and running servers. Remove stale memories and stop servers you no longer need. If everything is still useful, do nothing.",
		},
		{
			Name:        "act",
			Exclude:     []string{toolkit.GroupFactory},
			MaxSteps:    3,
			UseGlobal:   true,
			Instruction: "Make progress on the goal. Use the available tools to operate the screen. If a capability you need is missing, say so explicitly and note what the tool should do.",
		},
		{
			Name:        "forge",
			Groups:      []string{toolkit.GroupFactory},
			MaxSteps:    2,
			Conditional: true,
			Instruction: "A needed capability is missing. Create or fix a tool server that provides it, then verify it started. Keep the script small and focused.",
		},
	}
}
