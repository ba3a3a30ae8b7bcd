package webrtc

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alisoliman/realtime-api/internal/realtime"
	"github.com/pion/webrtc/v4"
)

const dataChannelLabel = "oai-events"

// Dialer opens WebRTC sessions against the realtime calls endpoint using an
// SDP offer/answer exchange over HTTPS.
type Dialer struct {
	http     *http.Client
	iceURLs  []string
	eventBuf int
	log      *slog.Logger
}

type DialerConfig struct {
	ICEServers  []string
	EventBuffer int
	Timeout     time.Duration
	Log         *slog.Logger
}

func NewDialer(cfg DialerConfig) *Dialer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &Dialer{
		http:     &http.Client{Timeout: cfg.Timeout},
		iceURLs:  cfg.ICEServers,
		eventBuf: cfg.EventBuffer,
		log:      log,
	}
}

func (d *Dialer) Connect(ctx context.Context, creds realtime.Credentials) (realtime.Connection, error) {
	config := webrtc.Configuration{}
	if len(d.iceURLs) > 0 {
		config.ICEServers = []webrtc.ICEServer{{URLs: d.iceURLs}}
	}

	pc, err := webrtc.NewPeerConnection(config)
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	p, err := newPeer(pc)
	if err != nil {
		_ = pc.Close()
		return nil, err
	}

	dc, err := pc.CreateDataChannel(dataChannelLabel, nil)
	if err != nil {
		_ = pc.Close()
		return nil, fmt.Errorf("create data channel: %w", err)
	}

	conn := newConn(p, dc, d.eventBuf, d.log)

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create offer: %w", err)
	}

	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("set local description: %w", err)
	}
	select {
	case <-gathered:
	case <-ctx.Done():
		_ = conn.Close()
		return nil, ctx.Err()
	}

	answerSDP, err := d.exchangeSDP(ctx, creds, pc.LocalDescription().SDP)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	answer := webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answerSDP,
	}
	if err := pc.SetRemoteDescription(answer); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("set remote description: %w", err)
	}

	d.log.Info("webrtc session dialed", "endpoint", creds.Endpoint)
	return conn, nil
}

func (d *Dialer) exchangeSDP(ctx context.Context, creds realtime.Credentials, offerSDP string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, creds.Endpoint, strings.NewReader(offerSDP))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+creds.Token)
	req.Header.Set("Content-Type", "application/sdp")

	resp, err := d.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("sdp exchange: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("sdp exchange status %d: %s", resp.StatusCode, body)
	}
	return string(body), nil
}
