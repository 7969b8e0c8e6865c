package agent

import (
	"fmt"
	"strings"

	"github.com/kiosk404/screenpilot/internal/screenpilot/service/provider"
	"github.com/kiosk404/screenpilot/internal/screenpilot/service/supervisor"
)

const systemInstruction = `You are ScreenPilot, an autonomous agent operating a computer through its screen.

You see the screen as an image each turn, think, and act through tools. Rules:
1. Call at most one tool per reply; its result comes back before your next thought.
2. Verify the effect of each action in the next screenshot before moving on.
3. New tool scripts live in the workspace and are written through the factory tools only.
4. Record durable findings as memories; they survive restarts, your chat history does not.
5. Reply with your reasoning as plain text. Do not invent tools that are not listed.`

// SystemInstruction is the persona prompt handed to provider adapters.
func SystemInstruction() string {
	return systemInstruction
}

// contextPrompt assembles the current-turn prompt. It is sent to the
// model but never stored; the history keeps only a compact stamp.
func contextPrompt(goal, phaseInstruction, toolsStr, memoryStr, timeStr string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[TIME] %s\n\n", timeStr)
	fmt.Fprintf(&b, "[GOAL]\n%s\n\n", goal)
	fmt.Fprintf(&b, "[MEMORIES]\n%s\n\n", memoryStr)
	fmt.Fprintf(&b, "[TOOLS]\n%s\n\n", toolsStr)
	fmt.Fprintf(&b, "[PHASE]\n%s\n\nNext action?", phaseInstruction)
	return b.String()
}

// historyPrompt is the compact user turn persisted in place of the full
// context prompt, so histories stay small.
func historyPrompt(timeStr string) string {
	return fmt.Sprintf("[%s] Next action?", timeStr)
}

// describeCatalog renders the core/user tool split for the prompt.
func describeCatalog(catalog supervisor.Catalog) string {
	var b strings.Builder
	b.WriteString("Core (built-in): ")
	b.WriteString(describeSpecs(catalog.Core))
	b.WriteString("\nCustom (created): ")
	b.WriteString(describeSpecs(catalog.User))
	return b.String()
}

func describeSpecs(specs []provider.ToolSpec) string {
	if len(specs) == 0 {
		return "(none)"
	}
	parts := make([]string, 0, len(specs))
	for _, spec := range specs {
		parts = append(parts, spec.Label())
	}
	return strings.Join(parts, ", ")
}
