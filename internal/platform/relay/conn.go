// Package relay maintains concurrent connections to a set of untrusted relay
// endpoints and multiplexes publishes and subscriptions across them. The pool
// guarantees per-subscription uniqueness of delivered records, not ordering.
package relay

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"zapboard-backend/internal/platform/nostr"
)

type subHandler struct {
	filters []nostr.Filter
	onEvent func(*nostr.Event)
	onEOSE  func(relayURL string)
}

// Conn is a single relay connection. It reconnects with exponential backoff
// after transient drops and replays its open subscriptions on reconnect; a
// relay that never connects simply stays out of fan-out and merge.
type Conn struct {
	url string
	log zerolog.Logger

	mu      sync.Mutex
	ws      *websocket.Conn
	subs    map[string]*subHandler
	pending map[string]chan *nostr.OKResult
	closed  bool

	done chan struct{}
}

func newConn(url string, connectTimeout time.Duration, log zerolog.Logger) *Conn {
	c := &Conn{
		url:     url,
		log:     log.With().Str("relay", url).Logger(),
		subs:    make(map[string]*subHandler),
		pending: make(map[string]chan *nostr.OKResult),
		done:    make(chan struct{}),
	}
	go c.run(connectTimeout)
	return c
}

// URL returns the relay endpoint this connection targets.
func (c *Conn) URL() string {
	return c.url
}

// IsConnected reports whether the websocket is currently up.
func (c *Conn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws != nil
}

func (c *Conn) run(connectTimeout time.Duration) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = time.Minute
	bo.MaxElapsedTime = 0 // keep trying until closed

	for {
		select {
		case <-c.done:
			return
		default:
		}

		dialer := websocket.Dialer{HandshakeTimeout: connectTimeout}
		ws, _, err := dialer.Dial(c.url, nil)
		if err != nil {
			wait := bo.NextBackOff()
			c.log.Debug().Err(err).Dur("retry_in", wait).Msg("Relay dial failed")
			select {
			case <-c.done:
				return
			case <-time.After(wait):
			}
			continue
		}
		bo.Reset()
		c.log.Info().Msg("Relay connected")

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			ws.Close()
			return
		}
		c.ws = ws
		// Replay open subscriptions so a reconnect is invisible to callers.
		for subID, h := range c.subs {
			if frame, err := nostr.EncodeReqFrame(subID, h.filters); err == nil {
				_ = ws.WriteMessage(websocket.TextMessage, frame)
			}
		}
		c.mu.Unlock()

		c.readLoop(ws)

		c.mu.Lock()
		if c.ws == ws {
			c.ws = nil
		}
		c.mu.Unlock()
		ws.Close()
		c.log.Warn().Msg("Relay disconnected")
	}
}

func (c *Conn) readLoop(ws *websocket.Conn) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}

		msg, err := nostr.DecodeMessage(data)
		if err != nil {
			c.log.Debug().Err(err).Msg("Dropping undecodable frame")
			continue
		}

		switch msg.Label {
		case "EVENT":
			c.mu.Lock()
			h := c.subs[msg.SubID]
			c.mu.Unlock()
			if h != nil && msg.Event != nil {
				h.onEvent(msg.Event)
			}
		case "EOSE":
			c.mu.Lock()
			h := c.subs[msg.SubID]
			c.mu.Unlock()
			if h != nil && h.onEOSE != nil {
				h.onEOSE(c.url)
			}
		case "OK":
			c.mu.Lock()
			ack := c.pending[msg.OK.EventID]
			c.mu.Unlock()
			if ack != nil {
				select {
				case ack <- msg.OK:
				default:
				}
			}
		case "NOTICE":
			c.log.Debug().Str("notice", msg.Notice).Msg("Relay notice")
		}
	}
}

func (c *Conn) writeMessage(frame []byte) bool {
	c.mu.Lock()
	ws := c.ws
	if ws != nil {
		// gorilla connections allow a single concurrent writer.
		err := ws.WriteMessage(websocket.TextMessage, frame)
		c.mu.Unlock()
		return err == nil
	}
	c.mu.Unlock()
	return false
}

// publish sends the event and waits for the relay acknowledgement.
func (c *Conn) publish(ctx context.Context, ev *nostr.Event) (bool, error) {
	frame, err := nostr.EncodeEventFrame(ev)
	if err != nil {
		return false, err
	}

	ack := make(chan *nostr.OKResult, 1)
	c.mu.Lock()
	c.pending[ev.ID] = ack
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, ev.ID)
		c.mu.Unlock()
	}()

	if !c.writeMessage(frame) {
		return false, errNotConnected
	}

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res := <-ack:
		return res.Accepted, nil
	}
}

func (c *Conn) subscribe(subID string, filters []nostr.Filter, h *subHandler) {
	h.filters = filters
	c.mu.Lock()
	c.subs[subID] = h
	c.mu.Unlock()

	if frame, err := nostr.EncodeReqFrame(subID, filters); err == nil {
		c.writeMessage(frame)
	}
}

func (c *Conn) unsubscribe(subID string) {
	c.mu.Lock()
	delete(c.subs, subID)
	c.mu.Unlock()

	if frame, err := nostr.EncodeCloseFrame(subID); err == nil {
		c.writeMessage(frame)
	}
}

func (c *Conn) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	ws := c.ws
	c.ws = nil
	c.mu.Unlock()

	if ws != nil {
		_ = ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		ws.Close()
	}
}
