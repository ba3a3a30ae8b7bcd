package realtime

import (
	"encoding/json"
	"testing"
)

func TestParseServerEvent(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		check func(t *testing.T, evt ServerEvent)
	}{
		{
			name: "session created",
			data: `{"type":"session.created","session":{"id":"sess_1","model":"gpt-realtime","voice":"alloy"}}`,
			check: func(t *testing.T, evt ServerEvent) {
				created, ok := evt.(SessionCreated)
				if !ok {
					t.Fatalf("expected SessionCreated, got %T", evt)
				}
				if created.Session.Voice != "alloy" {
					t.Errorf("expected voice alloy, got %q", created.Session.Voice)
				}
			},
		},
		{
			name: "speech started",
			data: `{"type":"input_audio_buffer.speech_started","item_id":"item_1","audio_start_ms":120}`,
			check: func(t *testing.T, evt ServerEvent) {
				started, ok := evt.(SpeechStarted)
				if !ok {
					t.Fatalf("expected SpeechStarted, got %T", evt)
				}
				if started.ItemID != "item_1" || started.AudioStartMs != 120 {
					t.Errorf("unexpected fields: %+v", started)
				}
			},
		},
		{
			name: "item created with function call",
			data: `{"type":"conversation.item.created","item":{"id":"item_2","type":"function_call","name":"get_weather","call_id":"call_1"}}`,
			check: func(t *testing.T, evt ServerEvent) {
				created, ok := evt.(ItemCreated)
				if !ok {
					t.Fatalf("expected ItemCreated, got %T", evt)
				}
				if created.Item.Name != "get_weather" || created.Item.CallID != "call_1" {
					t.Errorf("unexpected item: %+v", created.Item)
				}
			},
		},
		{
			name: "input transcription delta",
			data: `{"type":"conversation.item.input_audio_transcription.delta","item_id":"item_3","delta":"hel"}`,
			check: func(t *testing.T, evt ServerEvent) {
				delta, ok := evt.(InputTranscriptionDelta)
				if !ok {
					t.Fatalf("expected InputTranscriptionDelta, got %T", evt)
				}
				if delta.Delta != "hel" {
					t.Errorf("expected delta hel, got %q", delta.Delta)
				}
			},
		},
		{
			name: "response transcript done",
			data: `{"type":"response.audio_transcript.done","item_id":"item_4","transcript":"hello there"}`,
			check: func(t *testing.T, evt ServerEvent) {
				done, ok := evt.(ResponseTranscriptDone)
				if !ok {
					t.Fatalf("expected ResponseTranscriptDone, got %T", evt)
				}
				if done.Transcript != "hello there" {
					t.Errorf("unexpected transcript %q", done.Transcript)
				}
			},
		},
		{
			name: "function call arguments done",
			data: `{"type":"response.function_call_arguments.done","item_id":"item_5","call_id":"call_2","arguments":"{\"location\":\"Paris\"}"}`,
			check: func(t *testing.T, evt ServerEvent) {
				done, ok := evt.(FunctionCallArgumentsDone)
				if !ok {
					t.Fatalf("expected FunctionCallArgumentsDone, got %T", evt)
				}
				if done.Arguments != `{"location":"Paris"}` {
					t.Errorf("unexpected arguments %q", done.Arguments)
				}
			},
		},
		{
			name: "response done envelope",
			data: `{"type":"response.done","response":{"id":"resp_1","status":"completed"}}`,
			check: func(t *testing.T, evt ServerEvent) {
				done, ok := evt.(ResponseDone)
				if !ok {
					t.Fatalf("expected ResponseDone, got %T", evt)
				}
				if done.ResponseID != "resp_1" || done.Status != "completed" {
					t.Errorf("unexpected fields: %+v", done)
				}
			},
		},
		{
			name: "error envelope",
			data: `{"type":"error","error":{"code":"rate_limit","message":"slow down"}}`,
			check: func(t *testing.T, evt ServerEvent) {
				errEvt, ok := evt.(ErrorEvent)
				if !ok {
					t.Fatalf("expected ErrorEvent, got %T", evt)
				}
				if errEvt.Message != "slow down" {
					t.Errorf("unexpected message %q", errEvt.Message)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt, err := ParseServerEvent([]byte(tt.data))
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			tt.check(t, evt)
		})
	}
}

func TestParseServerEventUnknownType(t *testing.T) {
	evt, err := ParseServerEvent([]byte(`{"type":"rate_limits.updated","rate_limits":[]}`))
	if err != nil {
		t.Fatalf("unknown event type should not error: %v", err)
	}
	if evt != nil {
		t.Errorf("unknown event type should yield nil, got %T", evt)
	}
}

func TestParseServerEventMalformed(t *testing.T) {
	if _, err := ParseServerEvent([]byte(`{"type":`)); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestConversationItemText(t *testing.T) {
	item := ConversationItem{Content: []ItemContent{
		{Type: "input_audio", Transcript: "spoken words"},
	}}
	if got := item.Text(); got != "spoken words" {
		t.Errorf("expected transcript fallback, got %q", got)
	}

	item = ConversationItem{Content: []ItemContent{
		{Type: "text", Text: "typed"},
		{Type: "input_audio", Transcript: "spoken"},
	}}
	if got := item.Text(); got != "typed" {
		t.Errorf("expected first text, got %q", got)
	}

	if got := (ConversationItem{}).Text(); got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
}

func TestCommandMarshal(t *testing.T) {
	update := SessionUpdate{Session: SessionPatch{
		ToolChoice: "auto",
		Voice:      "marin",
	}}
	data, err := json.Marshal(update)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("round trip failed: %v", err)
	}
	if decoded["type"] != "session.update" {
		t.Errorf("expected type session.update, got %v", decoded["type"])
	}
	session := decoded["session"].(map[string]any)
	if session["voice"] != "marin" {
		t.Errorf("expected voice marin, got %v", session["voice"])
	}
	if _, present := session["tools"]; present {
		t.Error("empty tools should be omitted")
	}
}

func TestFunctionCallOutput(t *testing.T) {
	cmd := FunctionCallOutput("call_9", `{"ok":true}`)
	data, err := json.Marshal(cmd)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("round trip failed: %v", err)
	}
	if decoded["type"] != "conversation.item.create" {
		t.Errorf("expected conversation.item.create, got %v", decoded["type"])
	}
	item := decoded["item"].(map[string]any)
	if item["type"] != "function_call_output" || item["call_id"] != "call_9" {
		t.Errorf("unexpected item: %v", item)
	}
}

func TestResponseCreateMarshal(t *testing.T) {
	data, err := json.Marshal(ResponseCreate{})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"type":"response.create"}` {
		t.Errorf("unexpected wire form: %s", data)
	}
}
