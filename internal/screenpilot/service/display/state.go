package display

import (
	"sync"
)

// State is the dashboard-visible view of the agent, safe to hand out
// as a value. Readers must treat it as eventually consistent.
type State struct {
	Screenshot    string            `json:"screenshot"`
	Thought       string            `json:"thought"`
	Mission       string            `json:"mission"`
	Phase         string            `json:"phase"`
	Turn          int               `json:"turn"`
	Memories      map[string]string `json:"memories"`
	Tools         []string          `json:"tools"`
	ToolLog       string            `json:"tool_log"`
	ActiveServers []string          `json:"active_servers"`
	Error         string            `json:"error,omitempty"`

	WaitingForInput bool   `json:"waiting_for_input"`
	InputPrompt     string `json:"input_prompt"`
}

// Update is a partial state change. Nil fields leave the current
// value untouched; a non-nil empty Error clears the error banner.
type Update struct {
	Screenshot    *string
	Thought       *string
	Mission       *string
	Phase         *string
	Turn          *int
	Memories      map[string]string
	Tools         []string
	ToolLog       *string
	ActiveServers []string
	Error         *string
}

// Observer receives partial display updates from the orchestrator.
type Observer interface {
	Push(u Update)
}

// Nop discards every update. Used when the dashboard is disabled.
type Nop struct{}

func (Nop) Push(Update) {}

// Board is the shared mutable state behind the dashboard.
type Board struct {
	mu    sync.Mutex
	state State

	pendingInput  bool
	submittedText string
	hasSubmission bool
}

func NewBoard() *Board {
	return &Board{
		state: State{
			Thought: "Waiting for agent thought process...",
			Mission: "Waiting for instructions...",
			ToolLog: "Waiting for tool execution...",
		},
	}
}

var _ Observer = (*Board)(nil)

func (b *Board) Push(u Update) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if u.Screenshot != nil {
		b.state.Screenshot = *u.Screenshot
	}
	if u.Thought != nil {
		b.state.Thought = *u.Thought
	}
	if u.Mission != nil {
		b.state.Mission = *u.Mission
	}
	if u.Phase != nil {
		b.state.Phase = *u.Phase
	}
	if u.Turn != nil {
		b.state.Turn = *u.Turn
	}
	if u.Memories != nil {
		b.state.Memories = u.Memories
	}
	if u.Tools != nil {
		b.state.Tools = u.Tools
	}
	if u.ToolLog != nil {
		b.state.ToolLog = *u.ToolLog
	}
	if u.ActiveServers != nil {
		b.state.ActiveServers = u.ActiveServers
	}
	if u.Error != nil {
		b.state.Error = *u.Error
	}
}

// Snapshot returns a copy of the current state.
func (b *Board) Snapshot() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.state
	s.Memories = make(map[string]string, len(b.state.Memories))
	for k, v := range b.state.Memories {
		s.Memories[k] = v
	}
	s.Tools = append([]string(nil), b.state.Tools...)
	s.ActiveServers = append([]string(nil), b.state.ActiveServers...)
	s.WaitingForInput = b.pendingInput
	return s
}

// RequestInput asks the dashboard user for text input.
func (b *Board) RequestInput(prompt string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pendingInput = true
	b.state.InputPrompt = prompt
	b.hasSubmission = false
	b.submittedText = ""
}

// SubmitInput records text posted by the dashboard user.
func (b *Board) SubmitInput(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.submittedText = text
	b.hasSubmission = true
	b.pendingInput = false
}

// TakeInput consumes a submitted input, if any.
func (b *Board) TakeInput() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.hasSubmission {
		return "", false
	}
	text := b.submittedText
	b.hasSubmission = false
	b.submittedText = ""
	b.state.InputPrompt = ""
	return text, true
}
