package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"zoneroute/internal/models"
)

// Subscription roles accepted by /ws
const (
	RoleAdmin  = "admin"
	RoleWorker = "worker"
)

// EventsURL converts the HTTP base URL into the /ws endpoint for a role.
func (c *Client) EventsURL(role, worker string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("api: parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	q := url.Values{}
	q.Set("role", role)
	if worker != "" {
		q.Set("worker", worker)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Subscribe opens the event stream and delivers decoded events until ctx is
// cancelled or the connection drops. The channel is closed on exit.
func (c *Client) Subscribe(ctx context.Context, role, worker string) (<-chan models.Event, error) {
	wsURL, err := c.EventsURL(role, worker)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("api: dial %s: %w", wsURL, err)
	}

	events := make(chan models.Event, 64)
	done := make(chan struct{})

	go closeOnDone(ctx, done, conn)

	go func() {
		defer close(events)
		defer close(done)
		defer conn.Close()

		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Msg("⚠️  Event stream closed")
				}
				return
			}

			// The server batches queued messages into one frame, newline separated
			for _, line := range bytes.Split(message, []byte{'\n'}) {
				if len(bytes.TrimSpace(line)) == 0 {
					continue
				}
				var ev models.Event
				if err := json.Unmarshal(line, &ev); err != nil {
					log.Warn().Err(err).Msg("⚠️  Invalid event payload")
					continue
				}
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events, nil
}

// closeOnDone unblocks the reader when ctx ends. It returns as soon as the
// reader has exited on its own.
func closeOnDone(ctx context.Context, done <-chan struct{}, conn *websocket.Conn) {
	select {
	case <-ctx.Done():
		conn.Close()
	case <-done:
	}
}
