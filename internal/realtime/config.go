package realtime

import "encoding/json"

// SessionConfig is the server-echoed session configuration carried by
// session.created and session.updated.
type SessionConfig struct {
	ID         string           `json:"id,omitempty"`
	Model      string           `json:"model,omitempty"`
	Voice      string           `json:"voice,omitempty"`
	Tools      []ToolDefinition `json:"tools,omitempty"`
	ToolChoice string           `json:"tool_choice,omitempty"`
}

// ToolDefinition declares one callable function to the model.
type ToolDefinition struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}
