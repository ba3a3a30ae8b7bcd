package realtime

import (
	"encoding/json"
	"fmt"
)

// ServerEvent is one event from the model's ordered stream. The set of
// variants is closed; dispatch switches over the concrete types.
type ServerEvent interface {
	serverEvent()
}

const (
	typeSessionCreated    = "session.created"
	typeSessionUpdated    = "session.updated"
	typeSpeechStarted     = "input_audio_buffer.speech_started"
	typeSpeechStopped     = "input_audio_buffer.speech_stopped"
	typeInputCommitted    = "input_audio_buffer.committed"
	typeItemCreated       = "conversation.item.created"
	typeInputDelta        = "conversation.item.input_audio_transcription.delta"
	typeInputCompleted    = "conversation.item.input_audio_transcription.completed"
	typeTranscriptDelta   = "response.audio_transcript.delta"
	typeTranscriptDone    = "response.audio_transcript.done"
	typeFunctionArgsDelta = "response.function_call_arguments.delta"
	typeFunctionArgsDone  = "response.function_call_arguments.done"
	typeResponseCreated   = "response.created"
	typeResponseDone      = "response.done"
	typeError             = "error"
)

type SessionCreated struct {
	Session SessionConfig `json:"session"`
}

type SessionUpdated struct {
	Session SessionConfig `json:"session"`
}

type SpeechStarted struct {
	ItemID       string `json:"item_id"`
	AudioStartMs int    `json:"audio_start_ms"`
}

type SpeechStopped struct {
	ItemID     string `json:"item_id"`
	AudioEndMs int    `json:"audio_end_ms"`
}

type InputCommitted struct {
	ItemID string `json:"item_id"`
}

type ItemCreated struct {
	Item ConversationItem `json:"item"`
}

type InputTranscriptionDelta struct {
	ItemID string `json:"item_id"`
	Delta  string `json:"delta"`
}

type InputTranscriptionCompleted struct {
	ItemID     string `json:"item_id"`
	Transcript string `json:"transcript"`
}

type ResponseTranscriptDelta struct {
	ItemID string `json:"item_id"`
	Delta  string `json:"delta"`
}

type ResponseTranscriptDone struct {
	ItemID     string `json:"item_id"`
	Transcript string `json:"transcript"`
}

type FunctionCallArgumentsDelta struct {
	ItemID string `json:"item_id"`
	CallID string `json:"call_id"`
	Delta  string `json:"delta"`
}

type FunctionCallArgumentsDone struct {
	ItemID    string `json:"item_id"`
	CallID    string `json:"call_id"`
	Arguments string `json:"arguments"`
}

type ResponseCreated struct {
	ResponseID string `json:"response_id"`
}

type ResponseDone struct {
	ResponseID string `json:"response_id"`
	Status     string `json:"status"`
}

type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (SessionCreated) serverEvent()              {}
func (SessionUpdated) serverEvent()              {}
func (SpeechStarted) serverEvent()               {}
func (SpeechStopped) serverEvent()               {}
func (InputCommitted) serverEvent()              {}
func (ItemCreated) serverEvent()                 {}
func (InputTranscriptionDelta) serverEvent()     {}
func (InputTranscriptionCompleted) serverEvent() {}
func (ResponseTranscriptDelta) serverEvent()     {}
func (ResponseTranscriptDone) serverEvent()      {}
func (FunctionCallArgumentsDelta) serverEvent()  {}
func (FunctionCallArgumentsDone) serverEvent()   {}
func (ResponseCreated) serverEvent()             {}
func (ResponseDone) serverEvent()                {}
func (ErrorEvent) serverEvent()                  {}

// ConversationItem is the inner item object of conversation.item.created.
// Function-call items carry the function name and call id used to resolve
// tool invocations.
type ConversationItem struct {
	ID      string        `json:"id"`
	Type    string        `json:"type"`
	Role    string        `json:"role"`
	Name    string        `json:"name,omitempty"`
	CallID  string        `json:"call_id,omitempty"`
	Content []ItemContent `json:"content,omitempty"`
}

type ItemContent struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

// Text returns the first non-empty text or transcript fragment of the item.
func (i ConversationItem) Text() string {
	for _, c := range i.Content {
		if c.Text != "" {
			return c.Text
		}
		if c.Transcript != "" {
			return c.Transcript
		}
	}
	return ""
}

type responseDoneEnvelope struct {
	Response struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"response"`
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseServerEvent decodes one wire frame into its event variant. Frames
// with an unrecognized type decode to (nil, nil); the stream consumer skips
// them without error.
func ParseServerEvent(data []byte) (ServerEvent, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("malformed server event: %w", err)
	}

	switch probe.Type {
	case typeSessionCreated:
		var evt SessionCreated
		return evt, json.Unmarshal(data, &evt)
	case typeSessionUpdated:
		var evt SessionUpdated
		return evt, json.Unmarshal(data, &evt)
	case typeSpeechStarted:
		var evt SpeechStarted
		return evt, json.Unmarshal(data, &evt)
	case typeSpeechStopped:
		var evt SpeechStopped
		return evt, json.Unmarshal(data, &evt)
	case typeInputCommitted:
		var evt InputCommitted
		return evt, json.Unmarshal(data, &evt)
	case typeItemCreated:
		var evt ItemCreated
		return evt, json.Unmarshal(data, &evt)
	case typeInputDelta:
		var evt InputTranscriptionDelta
		return evt, json.Unmarshal(data, &evt)
	case typeInputCompleted:
		var evt InputTranscriptionCompleted
		return evt, json.Unmarshal(data, &evt)
	case typeTranscriptDelta:
		var evt ResponseTranscriptDelta
		return evt, json.Unmarshal(data, &evt)
	case typeTranscriptDone:
		var evt ResponseTranscriptDone
		return evt, json.Unmarshal(data, &evt)
	case typeFunctionArgsDelta:
		var evt FunctionCallArgumentsDelta
		return evt, json.Unmarshal(data, &evt)
	case typeFunctionArgsDone:
		var evt FunctionCallArgumentsDone
		return evt, json.Unmarshal(data, &evt)
	case typeResponseCreated:
		var env struct {
			Response struct {
				ID string `json:"id"`
			} `json:"response"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, err
		}
		return ResponseCreated{ResponseID: env.Response.ID}, nil
	case typeResponseDone:
		var env responseDoneEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, err
		}
		return ResponseDone{ResponseID: env.Response.ID, Status: env.Response.Status}, nil
	case typeError:
		var env errorEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, err
		}
		return ErrorEvent{Code: env.Error.Code, Message: env.Error.Message}, nil
	}

	return nil, nil
}
