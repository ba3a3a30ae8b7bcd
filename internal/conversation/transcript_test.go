package conversation

import (
	"sync"
	"testing"
)

func TestTranscriptAppendThenReplace(t *testing.T) {
	tr := NewTranscript(nil)

	tr.Upsert("m1", RoleUser, "Hel", Append)
	tr.Upsert("m1", RoleUser, "lo", Append)

	entries := tr.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Content != "Hello" {
		t.Errorf("expected Hello, got %q", entries[0].Content)
	}

	tr.Upsert("m1", RoleUser, "Hello world", Replace)
	if got := tr.Entries()[0].Content; got != "Hello world" {
		t.Errorf("replace should win, got %q", got)
	}
}

func TestTranscriptInterleavedItems(t *testing.T) {
	tr := NewTranscript(nil)

	tr.Upsert("a", RoleUser, "one ", Append)
	tr.Upsert("b", RoleAssistant, "First ", Append)
	tr.Upsert("a", RoleUser, "two ", Append)
	tr.Upsert("b", RoleAssistant, "second", Append)
	tr.Upsert("a", RoleUser, "three", Append)

	entries := tr.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ItemID != "a" || entries[0].Content != "one two three" {
		t.Errorf("unexpected entry a: %+v", entries[0])
	}
	if entries[1].ItemID != "b" || entries[1].Content != "First second" {
		t.Errorf("unexpected entry b: %+v", entries[1])
	}
}

func TestTranscriptEmptyTextNoOp(t *testing.T) {
	var calls int
	tr := NewTranscript(func(Entry, bool) { calls++ })

	tr.Upsert("m1", RoleUser, "", Append)
	tr.Upsert("m1", RoleUser, "", Replace)

	if tr.Len() != 0 {
		t.Errorf("empty text should not create entries, got %d", tr.Len())
	}
	if calls != 0 {
		t.Errorf("empty text should not signal, got %d calls", calls)
	}
}

func TestTranscriptRoleOverwrite(t *testing.T) {
	tr := NewTranscript(nil)

	tr.Upsert("m1", RoleAssistant, "hi", Append)
	tr.Upsert("m1", RoleUser, " there", Append)

	entries := tr.Entries()
	if entries[0].Role != RoleUser {
		t.Errorf("later event should correct the role, got %s", entries[0].Role)
	}
	if entries[0].Content != "hi there" {
		t.Errorf("append should concatenate, got %q", entries[0].Content)
	}
}

func TestTranscriptChangeSignal(t *testing.T) {
	type change struct {
		itemID string
		isNew  bool
	}
	var mu sync.Mutex
	var changes []change

	tr := NewTranscript(func(e Entry, isNew bool) {
		mu.Lock()
		changes = append(changes, change{e.ItemID, isNew})
		mu.Unlock()
	})

	tr.Upsert("m1", RoleUser, "a", Append)
	tr.Upsert("m1", RoleUser, "b", Append)
	tr.Upsert("m2", RoleAssistant, "c", Replace)

	want := []change{{"m1", true}, {"m1", false}, {"m2", true}}
	mu.Lock()
	defer mu.Unlock()
	if len(changes) != len(want) {
		t.Fatalf("expected %d changes, got %d", len(want), len(changes))
	}
	for i, w := range want {
		if changes[i] != w {
			t.Errorf("change %d: expected %+v, got %+v", i, w, changes[i])
		}
	}
}

func TestTranscriptPersistable(t *testing.T) {
	tr := NewTranscript(nil)

	tr.Upsert("m1", RoleUser, "hello", Append)
	tr.Upsert("tool_c1", RoleTool, `{"ok":true}`, Replace)
	tr.Upsert("m2", RoleAssistant, "   ", Append)
	tr.Upsert("m3", RoleAssistant, "hi back", Append)

	out := tr.Persistable()
	if len(out) != 2 {
		t.Fatalf("expected 2 persistable entries, got %d", len(out))
	}
	if out[0].ItemID != "m1" || out[1].ItemID != "m3" {
		t.Errorf("tool and blank entries should be filtered: %+v", out)
	}
}

func TestTranscriptReset(t *testing.T) {
	tr := NewTranscript(nil)
	tr.Upsert("m1", RoleUser, "hello", Append)

	tr.Reset()
	if tr.Len() != 0 {
		t.Errorf("expected empty transcript after reset")
	}

	// The same item id starts a fresh entry after reset.
	tr.Upsert("m1", RoleUser, "again", Append)
	if got := tr.Entries()[0].Content; got != "again" {
		t.Errorf("expected fresh content, got %q", got)
	}
}
