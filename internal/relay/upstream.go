package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultInstructions = "You are a helpful assistant. Maintain a calm, even tone throughout the conversation."

// ErrMissingToken means the upstream answered 200 but no recognizable token
// field was present in the body.
var ErrMissingToken = errors.New("no ephemeral token in upstream response")

// Upstream mints ephemeral session tokens against the Azure OpenAI
// client_secrets endpoint.
type Upstream struct {
	endpoint           string
	apiKey             string
	deployment         string
	transcriptionModel string
	http               *http.Client
}

type UpstreamConfig struct {
	Endpoint           string
	APIKey             string
	Deployment         string
	TranscriptionModel string
	Timeout            time.Duration
}

func NewUpstream(cfg UpstreamConfig) *Upstream {
	if cfg.TranscriptionModel == "" {
		cfg.TranscriptionModel = "gpt-4o-mini-transcribe"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Upstream{
		endpoint:           cfg.Endpoint,
		apiKey:             cfg.APIKey,
		deployment:         cfg.Deployment,
		transcriptionModel: cfg.TranscriptionModel,
		http:               &http.Client{Timeout: cfg.Timeout},
	}
}

// CallsEndpoint is the WebRTC signaling URL clients dial with a minted token.
func (u *Upstream) CallsEndpoint() string {
	return u.endpoint + "/openai/v1/realtime/calls?webrtcfilter=on"
}

type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Body)
}

type sessionRequest struct {
	Session sessionBody `json:"session"`
}

type sessionBody struct {
	Type         string       `json:"type"`
	Model        string       `json:"model"`
	Instructions string       `json:"instructions"`
	Audio        sessionAudio `json:"audio"`
}

type sessionAudio struct {
	Input  sessionAudioInput  `json:"input"`
	Output sessionAudioOutput `json:"output"`
}

type sessionAudioInput struct {
	Transcription transcriptionConfig `json:"transcription"`
	TurnDetection turnDetection       `json:"turn_detection"`
}

type transcriptionConfig struct {
	Model    string `json:"model"`
	Language string `json:"language"`
}

type turnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms"`
	SilenceDurationMs int     `json:"silence_duration_ms"`
	CreateResponse    bool    `json:"create_response"`
}

type sessionAudioOutput struct {
	Voice string `json:"voice"`
}

// Mint requests an ephemeral token configured for the given output voice.
func (u *Upstream) Mint(ctx context.Context, voice string) (string, error) {
	payload := sessionRequest{Session: sessionBody{
		Type:         "realtime",
		Model:        u.deployment,
		Instructions: defaultInstructions,
		Audio: sessionAudio{
			Input: sessionAudioInput{
				Transcription: transcriptionConfig{
					Model:    u.transcriptionModel,
					Language: "en",
				},
				TurnDetection: turnDetection{
					Type:              "server_vad",
					Threshold:         0.5,
					PrefixPaddingMs:   300,
					SilenceDurationMs: 500,
					CreateResponse:    true,
				},
			},
			Output: sessionAudioOutput{Voice: voice},
		},
	}}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		u.endpoint+"/openai/v1/realtime/client_secrets", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("api-key", u.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("client_secrets request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &UpstreamError{Status: resp.StatusCode, Body: string(raw)}
	}

	token := extractToken(raw)
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// extractToken handles the response shapes the service has been observed to
// return, in order of preference.
func extractToken(raw []byte) string {
	var parsed struct {
		ClientSecret struct {
			Value string `json:"value"`
		} `json:"client_secret"`
		Value string `json:"value"`
		Token string `json:"token"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return ""
	}
	if parsed.ClientSecret.Value != "" {
		return parsed.ClientSecret.Value
	}
	if parsed.Value != "" {
		return parsed.Value
	}
	return parsed.Token
}
