package agent

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kiosk404/screenpilot/internal/screenpilot/pkg/errno"
	"github.com/kiosk404/screenpilot/internal/screenpilot/service/conversation"
	"github.com/kiosk404/screenpilot/internal/screenpilot/service/toolkit"
	"github.com/kiosk404/screenpilot/pkg/logger"
	"github.com/kiosk404/screenpilot/pkg/utils/json"
)

const maxCheckpointScreenshots = 3

// checkpointDoc is the on-disk checkpoint. Every field is optional so
// older documents load with defaults; the legacy keys cover documents
// written before fields were renamed.
type checkpointDoc struct {
	Goal         string                 `json:"goal,omitempty"`
	Memories     map[string]interface{} `json:"memories,omitempty"`
	Conversation *conversation.Snapshot `json:"conversation,omitempty"`
	Screenshots  []string               `json:"screenshots,omitempty"`
	SavedAt      string                 `json:"saved_at,omitempty"`

	LegacyMemories map[string]interface{} `json:"memory_manager,omitempty"`
	LegacyState    *conversation.Snapshot `json:"agent_state,omitempty"`
}

// Checkpointer persists and restores the agent's durable state.
type Checkpointer struct {
	path string
}

func NewCheckpointer(path string) *Checkpointer {
	return &Checkpointer{path: path}
}

func (c *Checkpointer) Path() string { return c.path }

func (c *Checkpointer) Exists() bool {
	_, err := os.Stat(c.path)
	return err == nil
}

// Save writes the full agent state. Screenshot history is capped to
// the most recent few to bound the document size.
func (c *Checkpointer) Save(goal string, mem *toolkit.MemoryStore, store *conversation.Store, screenshots [][]byte) error {
	doc := checkpointDoc{
		Goal:         goal,
		Memories:     make(map[string]interface{}),
		Conversation: store.Snapshot(),
		SavedAt:      time.Now().UTC().Format(time.RFC3339),
	}
	for title, entry := range mem.Snapshot() {
		doc.Memories[title] = map[string]interface{}{
			"content":    entry.Content,
			"confidence": entry.Confidence,
		}
	}

	if n := len(screenshots); n > maxCheckpointScreenshots {
		screenshots = screenshots[n-maxCheckpointScreenshots:]
	}
	for _, img := range screenshots {
		doc.Screenshots = append(doc.Screenshots, base64.StdEncoding.EncodeToString(img))
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("create checkpoint directory: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return os.Rename(tmp, c.path)
}

// Load restores state into the given memory store and conversation
// store and returns the saved goal plus any archived screenshots.
func (c *Checkpointer) Load(mem *toolkit.MemoryStore, store *conversation.Store) (string, [][]byte, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, errno.ErrCheckpointNotFound
		}
		return "", nil, fmt.Errorf("read checkpoint: %w", err)
	}

	var doc checkpointDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", nil, fmt.Errorf("parse checkpoint: %w", err)
	}

	memories := doc.Memories
	if memories == nil {
		memories = doc.LegacyMemories
	}
	if memories != nil {
		mem.Restore(memories)
	}

	snap := doc.Conversation
	if snap == nil {
		snap = doc.LegacyState
	}
	store.Restore(snap)

	var screenshots [][]byte
	for _, enc := range doc.Screenshots {
		img, err := base64.StdEncoding.DecodeString(enc)
		if err != nil {
			logger.WarnX("Checkpoint", "skipping undecodable screenshot: %v", err)
			continue
		}
		screenshots = append(screenshots, img)
	}

	return doc.Goal, screenshots, nil
}

// Clear removes the checkpoint file if present.
func (c *Checkpointer) Clear() error {
	err := os.Remove(c.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
