package socket

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/driftchat/driftchat-go/internal/event"
)

// Dispatcher receives parsed event batches; connection-lifecycle events
// are synthesized here and delivered through the same path.
type Dispatcher interface {
	HandleEventsAsync(events ...event.Event)
}

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Client maintains the event socket: it dials, reads frames, parses them
// into events and feeds the dispatcher, reconnecting with exponential
// backoff when the connection drops.
type Client struct {
	url        string
	token      string
	dispatcher Dispatcher
	log        *zerolog.Logger
}

// New builds a socket client.
func New(url, token string, dispatcher Dispatcher, logger *zerolog.Logger) *Client {
	return &Client{url: url, token: token, dispatcher: dispatcher, log: logger}
}

// Run connects and reads until ctx is canceled. Every connection attempt
// emits a Connecting event; every drop emits Disconnected. The Connected
// event itself comes from the backend as the first frame.
func (c *Client) Run(ctx context.Context) error {
	backoff := initialBackoff
	for {
		c.emit(&event.Connecting{Base: base(event.TypeConnecting)})

		conn, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn().Err(err).Dur("retry_in", backoff).Msg("socket dial failed")
			c.emit(&event.Disconnected{Base: base(event.TypeDisconnected), Reason: err.Error()})
			if err := sleep(ctx, backoff); err != nil {
				return err
			}
			backoff = nextBackoff(backoff)
			continue
		}

		backoff = initialBackoff
		reason := c.readLoop(ctx, conn)
		conn.Close(websocket.StatusNormalClosure, "closing")
		c.emit(&event.Disconnected{Base: base(event.TypeDisconnected), Reason: reason})

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := sleep(ctx, backoff); err != nil {
			return err
		}
		backoff = nextBackoff(backoff)
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	conn, _, err := websocket.Dial(dialCtx, c.url, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return nil, err
	}
	// Event frames can carry whole channel snapshots.
	conn.SetReadLimit(1 << 22)
	return conn, nil
}

// readLoop reads frames until the connection fails and returns the reason.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) string {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return "shutdown"
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return "closed by server"
			}
			return err.Error()
		}

		events, err := parseFrame(data)
		if err != nil {
			c.log.Warn().Err(err).Msg("dropping unparseable frame")
			continue
		}
		if len(events) > 0 {
			c.dispatcher.HandleEventsAsync(events...)
		}
	}
}

// parseFrame decodes one socket frame: either a single event object or a
// batch (array / {"events": [...]} wrapper).
func parseFrame(data []byte) ([]event.Event, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return event.ParseBatch(trimmed)
	}
	ev, err := event.Parse(trimmed)
	if err != nil {
		return nil, err
	}
	// An object with no type field is the {"events": [...]} wrapper.
	if u, ok := ev.(*event.Unknown); ok && u.Type == "" {
		return event.ParseBatch(trimmed)
	}
	return []event.Event{ev}, nil
}

func (c *Client) emit(ev event.Event) {
	c.dispatcher.HandleEventsAsync(ev)
}

func base(t event.Type) event.Base {
	return event.Base{Type: t, CreatedAt: time.Now()}
}

func nextBackoff(cur time.Duration) time.Duration {
	next := cur * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
