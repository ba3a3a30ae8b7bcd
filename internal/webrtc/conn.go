package webrtc

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/alisoliman/realtime-api/internal/realtime"
	"github.com/alisoliman/realtime-api/internal/shared"
	"github.com/pion/webrtc/v4"
)

// Conn is a live WebRTC session with the model. Events arrive over the
// oai-events data channel; microphone opus frames go out on the local track.
type Conn struct {
	peer        *peer
	dataChannel *webrtc.DataChannel
	log         *slog.Logger

	events chan realtime.ServerEvent

	mu           sync.RWMutex
	closed       bool
	audioEnabled bool

	closeOnce sync.Once
}

func newConn(p *peer, dc *webrtc.DataChannel, bufSize int, log *slog.Logger) *Conn {
	if bufSize <= 0 {
		bufSize = 64
	}
	c := &Conn{
		peer:        p,
		dataChannel: dc,
		log:         log,
		events:      make(chan realtime.ServerEvent, bufSize),
		// The session starts hot; the mode controller rebinds the gate
		// immediately after connect.
		audioEnabled: true,
	}

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if msg.IsString {
			c.handleFrame(msg.Data)
		}
	})
	dc.OnClose(func() {
		_ = c.Close()
	})

	p.pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateDisconnected:
			c.deliver(realtime.ErrorEvent{
				Code:    "peer_connection_failed",
				Message: "peer connection lost",
			})
			_ = c.Close()
		}
	})

	return c
}

func (c *Conn) handleFrame(data []byte) {
	evt, err := realtime.ParseServerEvent(data)
	if err != nil {
		c.log.Warn("malformed server event", "error", err)
		return
	}
	if evt == nil {
		return
	}
	c.deliver(evt)
}

func (c *Conn) deliver(evt realtime.ServerEvent) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.events <- evt:
	default:
		c.log.Warn("event buffer full, dropping event")
	}
}

func (c *Conn) Events() <-chan realtime.ServerEvent {
	return c.events
}

func (c *Conn) Send(_ context.Context, cmd realtime.ClientCommand) error {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return shared.ErrNotConnected
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	return c.dataChannel.SendText(string(data))
}

func (c *Conn) SetAudioEnabled(enabled bool) {
	c.mu.Lock()
	c.audioEnabled = enabled
	c.mu.Unlock()
}

// WriteOpusFrame forwards one captured opus frame to the model. Frames are
// dropped silently while the audio gate is off.
func (c *Conn) WriteOpusFrame(opusData []byte, samples int) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return shared.ErrNotConnected
	}
	enabled := c.audioEnabled
	c.mu.RUnlock()

	if !enabled {
		return nil
	}
	return c.peer.writeOpus(opusData, samples)
}

func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		close(c.events)

		err = c.peer.Close()
	})
	return err
}
