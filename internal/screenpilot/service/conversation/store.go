package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiosk404/screenpilot/pkg/logger"
)

const (
	// historyFactor converts the configured turn budget into a message
	// budget: one turn is at most a user message plus an assistant
	// message (its tool result replaces the next user message).
	historyFactor = 2

	// maxToolResultLen bounds how much of a tool result is kept in
	// history. Full payloads live only in the current turn.
	maxToolResultLen = 500

	defaultMaxHistory = 5
)

// Store holds per-role conversation histories plus one global history
// aggregating every role's messages in temporal order.
type Store struct {
	mu         sync.Mutex
	maxHistory int

	roles  map[string]*roleHistory
	global []*Message

	// Vars is general purpose scratch storage carried across turns and
	// checkpoints.
	vars map[string]string

	turns int
}

type roleHistory struct {
	messages []*Message
}

// NewStore creates a Store. maxHistory bounds each role history in
// turns; values <= 0 fall back to the default.
func NewStore(maxHistory int) *Store {
	if maxHistory <= 0 {
		maxHistory = defaultMaxHistory
	}
	return &Store{
		maxHistory: maxHistory,
		roles:      make(map[string]*roleHistory),
		vars:       make(map[string]string),
	}
}

func (s *Store) role(name string) *roleHistory {
	h, ok := s.roles[name]
	if !ok {
		h = &roleHistory{}
		s.roles[name] = h
	}
	return h
}

// append adds msg to the role history and the global history, then
// applies oldest-first eviction. Caller holds s.mu.
func (s *Store) append(roleName string, msg *Message) {
	msg.AgentRole = roleName
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	h := s.role(roleName)
	h.messages = append(h.messages, msg)

	limit := s.maxHistory * historyFactor
	if len(h.messages) > limit {
		h.messages = h.messages[len(h.messages)-limit:]
	}

	s.global = append(s.global, msg)
}

// AddUserMessage appends a user message to the given role history.
func (s *Store) AddUserMessage(roleName, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.append(roleName, &Message{Role: RoleUser, Content: content})
}

// AddToolCall appends an assistant message carrying the model's thought
// and, when call is non-nil, the requested tool invocation. It returns
// the call id the eventual result must reference ("" when there is no
// call). A provider-issued id is kept; otherwise one is generated.
func (s *Store) AddToolCall(roleName, thought string, call *ToolCall) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := &Message{Role: RoleAssistant, Content: thought}
	callID := ""
	if call != nil {
		if call.ID == "" {
			call.ID = uuid.New().String()
		}
		callID = call.ID
		msg.ToolCall = call
	}
	s.append(roleName, msg)
	return callID
}

// AddToolResult appends the tool-result message paired with callID.
// The result text is truncated so history growth stays bounded.
func (s *Store) AddToolResult(roleName, callID, toolLabel, result string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.append(roleName, &Message{
		Role:       RoleTool,
		Content:    truncate(result, maxToolResultLen),
		ToolCallID: callID,
		ToolName:   toolLabel,
	})
}

// Materialize returns the ordered message list to send to a provider:
// the role's own history, or the global one when useGlobal is set. Any
// trailing tool call without its paired result is trimmed, since
// providers reject transcripts ending on an unresolved call. Leading
// tool results whose call was evicted are trimmed for the same reason.
func (s *Store) Materialize(roleName string, useGlobal bool) []*Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	var src []*Message
	if useGlobal {
		src = s.global
		limit := s.maxHistory * historyFactor * 4
		if len(src) > limit {
			src = src[len(src)-limit:]
		}
	} else {
		src = s.role(roleName).messages
	}

	out := make([]*Message, len(src))
	copy(out, src)

	for len(out) > 0 && out[len(out)-1].IsUnresolvedToolCall() {
		logger.Debug("[Conversation] trimming trailing unresolved tool call (role=%s)", roleName)
		out = out[:len(out)-1]
	}
	for len(out) > 0 && out[0].Role == RoleTool {
		logger.Debug("[Conversation] trimming orphaned leading tool result (role=%s)", roleName)
		out = out[1:]
	}
	return out
}

// SetVar stores a scratch variable.
func (s *Store) SetVar(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vars[key] = value
}

// GetVar reads a scratch variable.
func (s *Store) GetVar(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vars[key]
}

// Turns returns the turn counter.
func (s *Store) Turns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turns
}

// BumpTurn increments and returns the turn counter.
func (s *Store) BumpTurn() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns++
	return s.turns
}

// RoleNames returns the known role names.
func (s *Store) RoleNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.roles))
	for name := range s.roles {
		names = append(names, name)
	}
	return names
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "...(truncated)"
}
