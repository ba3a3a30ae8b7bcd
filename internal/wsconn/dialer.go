package wsconn

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/alisoliman/realtime-api/internal/realtime"
	"github.com/gorilla/websocket"
)

// Dialer opens websocket sessions authorized by an ephemeral token.
type Dialer struct {
	eventBuf int
	log      *slog.Logger
}

type DialerConfig struct {
	EventBuffer int
	Log         *slog.Logger
}

func NewDialer(cfg DialerConfig) *Dialer {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &Dialer{eventBuf: cfg.EventBuffer, log: log}
}

func (d *Dialer) Connect(ctx context.Context, creds realtime.Credentials) (realtime.Connection, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+creds.Token)

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, creds.Endpoint, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	d.log.Info("websocket session dialed", "endpoint", creds.Endpoint)
	return newConn(ws, d.eventBuf, d.log), nil
}
