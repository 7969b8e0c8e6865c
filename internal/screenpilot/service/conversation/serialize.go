package conversation

import (
	"github.com/kiosk404/screenpilot/pkg/utils/json"
)

// Snapshot is the serialized form of a Store. Fields are individually
// optional so older checkpoints restore with defaults instead of
// failing.
type Snapshot struct {
	MaxHistory int                   `json:"max_history,omitempty"`
	Roles      map[string][]*Message `json:"roles,omitempty"`
	Global     []*Message            `json:"global,omitempty"`
	Vars       map[string]string     `json:"variables,omitempty"`
	Turns      int                   `json:"turns,omitempty"`

	// Messages is the legacy single-history field from checkpoints
	// written before histories became role-scoped.
	Messages []legacyMessage `json:"messages,omitempty"`
}

// legacyMessage is the old flat {role, content} message shape.
type legacyMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Snapshot captures the current store state.
func (s *Store) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &Snapshot{
		MaxHistory: s.maxHistory,
		Roles:      make(map[string][]*Message, len(s.roles)),
		Global:     append([]*Message(nil), s.global...),
		Vars:       make(map[string]string, len(s.vars)),
		Turns:      s.turns,
	}
	for name, h := range s.roles {
		snap.Roles[name] = append([]*Message(nil), h.messages...)
	}
	for k, v := range s.vars {
		snap.Vars[k] = v
	}
	return snap
}

// Restore replaces the store contents with the snapshot. Missing fields
// default rather than error; the configured maxHistory wins over the
// persisted one when the persisted one is absent.
func (s *Store) Restore(snap *Snapshot) {
	if snap == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.MaxHistory > 0 {
		s.maxHistory = snap.MaxHistory
	}

	s.roles = make(map[string]*roleHistory)
	for name, msgs := range snap.Roles {
		s.roles[name] = &roleHistory{messages: append([]*Message(nil), msgs...)}
	}

	s.global = append([]*Message(nil), snap.Global...)
	s.turns = snap.Turns

	s.vars = make(map[string]string)
	for k, v := range snap.Vars {
		s.vars[k] = v
	}

	// Migrate legacy flat histories into the "act" role.
	if len(snap.Messages) > 0 && len(snap.Roles) == 0 {
		h := s.role("act")
		for _, lm := range snap.Messages {
			role := Role(lm.Role)
			switch role {
			case RoleUser, RoleAssistant, RoleTool:
			default:
				role = RoleUser
			}
			msg := &Message{Role: role, Content: lm.Content, AgentRole: "act"}
			h.messages = append(h.messages, msg)
			s.global = append(s.global, msg)
		}
	}
}

// MarshalJSON serializes the store via its snapshot.
func (s *Store) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

// UnmarshalJSON restores the store from snapshot JSON.
func (s *Store) UnmarshalJSON(data []byte) error {
	snap := &Snapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return err
	}
	s.Restore(snap)
	return nil
}
