package realtime

import "encoding/json"

// ClientCommand is one command sent to the model over the session transport.
type ClientCommand interface {
	clientCommand()
}

// SessionUpdate patches the server-side session configuration. Only the
// fields that are set serialize onto the wire.
type SessionUpdate struct {
	Session SessionPatch
}

type SessionPatch struct {
	Tools      []ToolDefinition `json:"tools,omitempty"`
	ToolChoice string           `json:"tool_choice,omitempty"`
	Voice      string           `json:"voice,omitempty"`
}

// ItemCreate inserts an item into the conversation, used to deliver tool
// results as function_call_output items.
type ItemCreate struct {
	Item OutgoingItem
}

type OutgoingItem struct {
	Type   string `json:"type"`
	CallID string `json:"call_id,omitempty"`
	Output string `json:"output,omitempty"`
}

// ResponseCreate asks the model to generate the next response, resuming
// after a tool result has been delivered.
type ResponseCreate struct{}

func (SessionUpdate) clientCommand()  {}
func (ItemCreate) clientCommand()     {}
func (ResponseCreate) clientCommand() {}

func (c SessionUpdate) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string       `json:"type"`
		Session SessionPatch `json:"session"`
	}{Type: "session.update", Session: c.Session})
}

func (c ItemCreate) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string       `json:"type"`
		Item OutgoingItem `json:"item"`
	}{Type: "conversation.item.create", Item: c.Item})
}

func (c ResponseCreate) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
	}{Type: "response.create"})
}

// FunctionCallOutput builds the item that carries a tool result back to the
// model for the given call id.
func FunctionCallOutput(callID, output string) ItemCreate {
	return ItemCreate{Item: OutgoingItem{
		Type:   "function_call_output",
		CallID: callID,
		Output: output,
	}}
}
