package conversation

import (
	"context"
	"testing"

	"github.com/alisoliman/realtime-api/internal/realtime"
	"github.com/alisoliman/realtime-api/internal/tools"
)

func testRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	return tools.NewRegistry(
		tools.New("get_weather", "weather lookup", func(ctx context.Context, args struct {
			Location string `json:"location"`
		}) (string, error) {
			return "{}", nil
		}),
	)
}

func TestRegistrarDeclaresToolsOnce(t *testing.T) {
	reg := newRegistrar(testRegistry(t), "alloy")

	cmds := reg.onConfirmed(true, realtime.SessionConfig{Voice: "alloy"})
	if len(cmds) != 1 {
		t.Fatalf("expected one registration command, got %d", len(cmds))
	}
	update, ok := cmds[0].(realtime.SessionUpdate)
	if !ok {
		t.Fatalf("expected SessionUpdate, got %T", cmds[0])
	}
	if len(update.Session.Tools) != 1 || update.Session.ToolChoice != "auto" {
		t.Errorf("unexpected registration patch: %+v", update.Session)
	}

	// Confirmations after the handshake must not re-register.
	if cmds := reg.onConfirmed(false, realtime.SessionConfig{Voice: "alloy"}); len(cmds) != 0 {
		t.Errorf("session.updated should not re-register, got %d commands", len(cmds))
	}
	if cmds := reg.onConfirmed(true, realtime.SessionConfig{Voice: "alloy"}); len(cmds) != 0 {
		t.Errorf("second session.created should not re-register, got %d commands", len(cmds))
	}
}

func TestRegistrarSkipsEmptyRegistry(t *testing.T) {
	reg := newRegistrar(tools.NewRegistry(), "alloy")

	cmds := reg.onConfirmed(true, realtime.SessionConfig{Voice: "alloy"})
	if len(cmds) != 0 {
		t.Errorf("empty registry should skip registration, got %d commands", len(cmds))
	}
}

func TestRegistrarNilRegistry(t *testing.T) {
	reg := newRegistrar(nil, "alloy")
	if cmds := reg.onConfirmed(true, realtime.SessionConfig{Voice: "alloy"}); len(cmds) != 0 {
		t.Errorf("nil registry should skip registration, got %d commands", len(cmds))
	}
}

func TestRegistrarVoiceCorrection(t *testing.T) {
	reg := newRegistrar(tools.NewRegistry(), "marin")

	// Mismatched confirmation triggers exactly one correction.
	cmds := reg.onConfirmed(true, realtime.SessionConfig{Voice: "alloy"})
	if len(cmds) != 1 {
		t.Fatalf("expected one voice correction, got %d", len(cmds))
	}
	update := cmds[0].(realtime.SessionUpdate)
	if update.Session.Voice != "marin" {
		t.Errorf("expected correction to marin, got %q", update.Session.Voice)
	}

	// A still-mismatched confirmation must not loop.
	if cmds := reg.onConfirmed(false, realtime.SessionConfig{Voice: "alloy"}); len(cmds) != 0 {
		t.Errorf("correction must not repeat per confirmation, got %d", len(cmds))
	}

	// The corrected confirmation is quiet.
	if cmds := reg.onConfirmed(false, realtime.SessionConfig{Voice: "marin"}); len(cmds) != 0 {
		t.Errorf("matching voice should send nothing, got %d", len(cmds))
	}

	// A later fresh mismatch is corrected again, once.
	if cmds := reg.onConfirmed(false, realtime.SessionConfig{Voice: "cedar"}); len(cmds) != 1 {
		t.Errorf("new mismatch should correct once, got %d", len(cmds))
	}
}

func TestRegistrarNoPreferredVoice(t *testing.T) {
	reg := newRegistrar(tools.NewRegistry(), "")
	if cmds := reg.onConfirmed(true, realtime.SessionConfig{Voice: "alloy"}); len(cmds) != 0 {
		t.Errorf("no preferred voice means no correction, got %d", len(cmds))
	}
}

func TestRegistrarRegistrationAndVoiceTogether(t *testing.T) {
	reg := newRegistrar(testRegistry(t), "marin")

	cmds := reg.onConfirmed(true, realtime.SessionConfig{Voice: "alloy"})
	if len(cmds) != 2 {
		t.Fatalf("expected registration and voice correction, got %d", len(cmds))
	}
}
