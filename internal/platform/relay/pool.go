package relay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"zapboard-backend/internal/platform/nostr"
)

var (
	errNotConnected = errors.New("relay not connected")

	// ErrNoRelays means no relay accepted or served the operation.
	ErrNoRelays = errors.New("no connected relays")
	// ErrPublishRejected means every reachable relay refused the event.
	ErrPublishRejected = errors.New("all relays rejected the event")
)

// CancelFunc tears down a subscription on all relays. It is idempotent and
// guarantees no further callbacks fire after it returns.
type CancelFunc func()

// Pool multiplexes a set of relay connections.
type Pool struct {
	log            zerolog.Logger
	connectTimeout time.Duration

	mu    sync.Mutex
	conns map[string]*Conn
}

// New opens connections to the given relay URLs. Connections are established
// in the background; relays that never come up are excluded from operations
// without failing them.
func New(urls []string, connectTimeout time.Duration, log zerolog.Logger) *Pool {
	p := &Pool{
		log:            log,
		connectTimeout: connectTimeout,
		conns:          make(map[string]*Conn),
	}
	for _, url := range urls {
		p.Ensure(url)
	}
	return p
}

// Ensure adds a relay to the pool if it is not already tracked. Used for
// board-embedded relay hints.
func (p *Pool) Ensure(url string) {
	if url == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.conns[url]; ok {
		return
	}
	p.conns[url] = newConn(url, p.connectTimeout, p.log)
}

// AwaitConnected tracks the relay and blocks until its connection is up or
// the context expires. Callers that must deliver to one specific relay (a
// wallet listening only on its own endpoint) use this before publishing,
// since Publish skips relays that are still dialing.
func (p *Pool) AwaitConnected(ctx context.Context, url string) error {
	p.Ensure(url)
	p.mu.Lock()
	c := p.conns[url]
	p.mu.Unlock()
	if c == nil {
		return ErrNoRelays
	}

	ticker := time.NewTicker(25 * time.Millisecond)
	defer ticker.Stop()
	for {
		if c.IsConnected() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Connected returns how many relays are currently reachable.
func (p *Pool) Connected() int {
	n := 0
	for _, c := range p.snapshot() {
		if c.IsConnected() {
			n++
		}
	}
	return n
}

func (p *Pool) snapshot() []*Conn {
	p.mu.Lock()
	defer p.mu.Unlock()
	conns := make([]*Conn, 0, len(p.conns))
	for _, c := range p.conns {
		conns = append(conns, c)
	}
	return conns
}

// Publish fans the event out to every connected relay and succeeds as soon as
// one of them acknowledges it.
func (p *Pool) Publish(ctx context.Context, ev *nostr.Event) error {
	conns := p.snapshot()
	results := make(chan bool, len(conns))
	attempts := 0
	for _, c := range conns {
		if !c.IsConnected() {
			continue
		}
		attempts++
		go func(c *Conn) {
			ok, err := c.publish(ctx, ev)
			if err != nil {
				c.log.Debug().Err(err).Str("event_id", ev.ID).Msg("Publish attempt failed")
			}
			results <- ok && err == nil
		}(c)
	}
	if attempts == 0 {
		return ErrNoRelays
	}

	for i := 0; i < attempts; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ok := <-results:
			if ok {
				return nil
			}
		}
	}
	return ErrPublishRejected
}

// Subscribe opens a logical subscription replayed against every relay and
// merges results by event id: a record delivered by several relays yields
// exactly one callback. Delivery order across relays is not guaranteed.
func (p *Pool) Subscribe(ctx context.Context, filters []nostr.Filter, onEvent func(*nostr.Event)) (CancelFunc, error) {
	return p.subscribe(ctx, filters, onEvent, nil)
}

func (p *Pool) subscribe(ctx context.Context, filters []nostr.Filter, onEvent func(*nostr.Event), onEOSE func(string)) (CancelFunc, error) {
	conns := p.snapshot()
	if len(conns) == 0 {
		return nil, ErrNoRelays
	}

	subID := uuid.New().String()

	var (
		mu     sync.Mutex
		seen   = make(map[string]struct{})
		closed bool
	)
	handler := &subHandler{
		onEvent: func(ev *nostr.Event) {
			mu.Lock()
			defer mu.Unlock()
			if closed {
				return
			}
			// Relays are untrusted: drop anything outside the requested
			// filters instead of relying on them to honor the REQ.
			if !matchesAny(filters, ev) {
				return
			}
			if _, dup := seen[ev.ID]; dup {
				return
			}
			seen[ev.ID] = struct{}{}
			onEvent(ev)
		},
		onEOSE: func(relayURL string) {
			mu.Lock()
			defer mu.Unlock()
			if closed || onEOSE == nil {
				return
			}
			onEOSE(relayURL)
		},
	}

	for _, c := range conns {
		c.subscribe(subID, filters, handler)
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			// Taking the callback mutex here means any in-flight callback
			// finishes before cancel returns, and none fire afterwards.
			mu.Lock()
			closed = true
			mu.Unlock()
			for _, c := range p.snapshot() {
				c.unsubscribe(subID)
			}
		})
	}

	if ctx != nil && ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			cancel()
		}()
	}

	return cancel, nil
}

// Query collects the stored events matching the filters. It returns once
// every relay that was connected at call time reported end-of-stored-events,
// or when the context deadline expires, whichever comes first.
func (p *Pool) Query(ctx context.Context, filters []nostr.Filter) ([]*nostr.Event, error) {
	expected := make(map[string]bool)
	for _, c := range p.snapshot() {
		if c.IsConnected() {
			expected[c.URL()] = false
		}
	}
	if len(expected) == 0 {
		return nil, ErrNoRelays
	}

	var (
		mu     sync.Mutex
		events []*nostr.Event
	)
	done := make(chan struct{})
	var closeOnce sync.Once

	cancel, err := p.subscribe(ctx,
		filters,
		func(ev *nostr.Event) {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
		},
		func(relayURL string) {
			mu.Lock()
			defer mu.Unlock()
			if _, tracked := expected[relayURL]; !tracked {
				return
			}
			expected[relayURL] = true
			for _, eosed := range expected {
				if !eosed {
					return
				}
			}
			closeOnce.Do(func() { close(done) })
		})
	if err != nil {
		return nil, err
	}
	defer cancel()

	select {
	case <-done:
	case <-ctx.Done():
		// Bounded wait: whatever arrived by the deadline is the answer.
	}

	mu.Lock()
	defer mu.Unlock()
	return events, nil
}

func matchesAny(filters []nostr.Filter, ev *nostr.Event) bool {
	for _, f := range filters {
		if f.Matches(ev) {
			return true
		}
	}
	return false
}

// Close tears down every relay connection.
func (p *Pool) Close() {
	for _, c := range p.snapshot() {
		c.close()
	}
}
