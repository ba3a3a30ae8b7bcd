package conversation

import (
	"strings"
	"sync"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Entry is one accumulated transcript message, keyed by the item id it was
// streamed under.
type Entry struct {
	ItemID    string    `json:"item_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type UpsertMode int

const (
	// Append concatenates text onto the existing content in arrival order.
	Append UpsertMode = iota
	// Replace discards the accumulated content in favor of the payload.
	Replace
)

// Transcript reconstructs complete messages from partial delta events.
// Entries keep their arrival order; each item id maps to exactly one entry.
type Transcript struct {
	mu       sync.Mutex
	entries  []*Entry
	index    map[string]*Entry
	onChange func(entry Entry, isNew bool)
}

func NewTranscript(onChange func(entry Entry, isNew bool)) *Transcript {
	return &Transcript{
		index:    make(map[string]*Entry),
		onChange: onChange,
	}
}

// Upsert applies one streamed update. Empty text is a no-op. An existing
// entry has its role overwritten by the incoming role; a later event may
// correct an earlier classification.
func (t *Transcript) Upsert(itemID string, role Role, text string, mode UpsertMode) {
	if text == "" {
		return
	}

	t.mu.Lock()
	entry, exists := t.index[itemID]
	if exists {
		entry.Role = role
		if mode == Replace {
			entry.Content = text
		} else {
			entry.Content += text
		}
	} else {
		entry = &Entry{
			ItemID:    itemID,
			Role:      role,
			Content:   text,
			CreatedAt: time.Now(),
		}
		t.entries = append(t.entries, entry)
		t.index[itemID] = entry
	}
	snapshot := *entry
	cb := t.onChange
	t.mu.Unlock()

	if cb != nil {
		cb(snapshot, !exists)
	}
}

// Entries returns a copy of the transcript in arrival order.
func (t *Transcript) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Entry, len(t.entries))
	for i, e := range t.entries {
		out[i] = *e
	}
	return out
}

func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *Transcript) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = nil
	t.index = make(map[string]*Entry)
}

// Persistable returns the entries worth saving at conversation end: tool
// progress lines and empty messages are filtered out.
func (t *Transcript) Persistable() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Entry
	for _, e := range t.entries {
		if e.Role == RoleTool || strings.TrimSpace(e.Content) == "" {
			continue
		}
		out = append(out, *e)
	}
	return out
}
