package wsconn

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/alisoliman/realtime-api/internal/realtime"
	"github.com/alisoliman/realtime-api/internal/shared"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

// Conn is a websocket session with the model for deployments where WebRTC is
// unavailable. Audio goes up as base64 input_audio_buffer.append frames.
type Conn struct {
	ws  *websocket.Conn
	log *slog.Logger

	events chan realtime.ServerEvent
	send   chan []byte
	done   chan struct{}

	mu           sync.RWMutex
	closed       bool
	audioEnabled bool

	closeOnce sync.Once
}

func newConn(ws *websocket.Conn, bufSize int, log *slog.Logger) *Conn {
	if bufSize <= 0 {
		bufSize = 64
	}
	c := &Conn{
		ws:           ws,
		log:          log,
		events:       make(chan realtime.ServerEvent, bufSize),
		send:         make(chan []byte, 128),
		done:         make(chan struct{}),
		audioEnabled: true,
	}
	go c.readPump()
	go c.writePump()
	return c
}

func (c *Conn) Events() <-chan realtime.ServerEvent {
	return c.events
}

func (c *Conn) Send(ctx context.Context, cmd realtime.ClientCommand) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, data)
}

func (c *Conn) SetAudioEnabled(enabled bool) {
	c.mu.Lock()
	c.audioEnabled = enabled
	c.mu.Unlock()
}

// AppendAudio forwards one base64-encoded audio chunk. Chunks are dropped
// silently while the audio gate is off.
func (c *Conn) AppendAudio(ctx context.Context, audioBase64 string) error {
	c.mu.RLock()
	enabled := c.audioEnabled
	c.mu.RUnlock()
	if !enabled {
		return nil
	}

	data, err := json.Marshal(struct {
		Type  string `json:"type"`
		Audio string `json:"audio"`
	}{Type: "input_audio_buffer.append", Audio: audioBase64})
	if err != nil {
		return err
	}
	return c.enqueue(ctx, data)
}

func (c *Conn) enqueue(ctx context.Context, data []byte) error {
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return shared.ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		close(c.done)
		err = c.ws.Close()
		close(c.events)
	})
	return err
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

func (c *Conn) readPump() {
	defer func() {
		_ = c.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Error("websocket read error", "error", err)
			}
			// Deliver a terminal error before the channel closes; a locally
			// initiated Close has already marked the conn and this no-ops.
			c.deliver(realtime.ErrorEvent{
				Code:    "websocket_closed",
				Message: "websocket connection lost",
			})
			return
		}

		evt, err := realtime.ParseServerEvent(message)
		if err != nil {
			c.log.Warn("malformed server event", "error", err)
			continue
		}
		if evt == nil {
			continue
		}
		c.deliver(evt)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Error("websocket write error", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
