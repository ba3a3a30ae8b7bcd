package conversation

import (
	"github.com/alisoliman/realtime-api/internal/realtime"
	"github.com/alisoliman/realtime-api/internal/tools"
)

// registrar performs the per-connection session handshake: declaring the
// callable tools once on the first session.created confirmation, and
// reconciling the server-confirmed voice against the preferred one.
type registrar struct {
	registry       *tools.Registry
	preferredVoice string

	toolsDeclared  bool
	voiceCorrected bool
}

func newRegistrar(registry *tools.Registry, preferredVoice string) *registrar {
	return &registrar{
		registry:       registry,
		preferredVoice: preferredVoice,
	}
}

// onConfirmed reacts to a session.created (created=true) or session.updated
// confirmation and returns the commands to send, if any.
func (r *registrar) onConfirmed(created bool, cfg realtime.SessionConfig) []realtime.ClientCommand {
	var cmds []realtime.ClientCommand

	if created && !r.toolsDeclared {
		r.toolsDeclared = true
		if r.registry != nil && r.registry.Len() > 0 {
			cmds = append(cmds, realtime.SessionUpdate{Session: realtime.SessionPatch{
				Tools:      r.registry.Definitions(),
				ToolChoice: "auto",
			}})
		}
	}

	if r.preferredVoice != "" && cfg.Voice != "" {
		if cfg.Voice == r.preferredVoice {
			// Matching confirmation re-arms correction for a future mismatch.
			r.voiceCorrected = false
		} else if !r.voiceCorrected {
			r.voiceCorrected = true
			cmds = append(cmds, realtime.SessionUpdate{Session: realtime.SessionPatch{
				Voice: r.preferredVoice,
			}})
		}
	}

	return cmds
}
