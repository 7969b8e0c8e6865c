package toolkit

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryEntry is a single titled note the LLM records for itself.
type MemoryEntry struct {
	Content    string `json:"content"`
	Confidence int    `json:"confidence"`
}

// MemoryStore holds the agent's working memory, keyed by title.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]MemoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]MemoryEntry)}
}

// MemoryItem is one element of a set_memory batch.
type MemoryItem struct {
	Title      string
	Content    string
	Confidence int
}

func clampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

// SetBatch upserts every item and returns a per-item result log.
func (s *MemoryStore) SetBatch(items []MemoryItem) string {
	if len(items) == 0 {
		return "Error: no memories provided."
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var lines []string
	for _, item := range items {
		if item.Title == "" {
			lines = append(lines, "Error: title is required and must be a non-empty string.")
			continue
		}
		action := "added"
		if _, ok := s.entries[item.Title]; ok {
			action = "updated"
		}
		conf := clampConfidence(item.Confidence)
		s.entries[item.Title] = MemoryEntry{Content: item.Content, Confidence: conf}
		lines = append(lines, fmt.Sprintf("Memory '%s' (confidence %d) %s.", item.Title, conf, action))
	}
	return strings.Join(lines, "\n")
}

// Delete removes a memory; an absent title yields an error string, not
// an error value.
func (s *MemoryStore) Delete(title string) string {
	if title == "" {
		return "Error: title is required and must be a non-empty string."
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[title]; !ok {
		return fmt.Sprintf("Error: Memory with title '%s' not found.", title)
	}
	delete(s.entries, title)
	return fmt.Sprintf("Memory '%s' deleted.", title)
}

// Render formats the store for prompt injection.
func (s *MemoryStore) Render() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		return "(No active memories)"
	}

	titles := make([]string, 0, len(s.entries))
	for title := range s.entries {
		titles = append(titles, title)
	}
	sort.Strings(titles)

	var b strings.Builder
	for _, title := range titles {
		e := s.entries[title]
		fmt.Fprintf(&b, "- %s (confidence %d): %s\n", title, e.Confidence, e.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *MemoryStore) Titles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	titles := make([]string, 0, len(s.entries))
	for title := range s.entries {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	return titles
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Snapshot returns a copy of the entries for checkpointing.
func (s *MemoryStore) Snapshot() map[string]MemoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]MemoryEntry, len(s.entries))
	for title, e := range s.entries {
		out[title] = e
	}
	return out
}

// Restore loads entries from a checkpoint document. Values may be the
// current {content, confidence} shape, the legacy {content, category}
// shape, or a bare string; legacy records migrate with confidence 0.
func (s *MemoryStore) Restore(raw map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]MemoryEntry, len(raw))
	for title, v := range raw {
		switch val := v.(type) {
		case string:
			s.entries[title] = MemoryEntry{Content: val}
		case map[string]interface{}:
			content, _ := val["content"].(string)
			entry := MemoryEntry{Content: content}
			if conf, ok := val["confidence"].(float64); ok {
				entry.Confidence = clampConfidence(int(conf))
			}
			s.entries[title] = entry
		}
	}
}
