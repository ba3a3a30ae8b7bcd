package shared

import (
	"strings"
	"testing"
)

func TestNewID(t *testing.T) {
	id := NewID("conv_")
	if !strings.HasPrefix(id, "conv_") {
		t.Errorf("expected conv_ prefix, got %s", id)
	}
	if len(id) != len("conv_")+32 {
		t.Errorf("expected 32 hex chars after prefix, got %d", len(id)-len("conv_"))
	}

	other := NewID("conv_")
	if id == other {
		t.Error("two generated ids should not collide")
	}
}

func TestNewIDNoPrefix(t *testing.T) {
	id := NewID("")
	if len(id) != 32 {
		t.Errorf("expected 32 chars, got %d", len(id))
	}
}
