package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/brimoraa/plpchat/internal/config"
	"github.com/brimoraa/plpchat/internal/logging"
)

var (
	ErrClosed       = errors.New("live channel closed")
	ErrUnauthorized = errors.New("live channel rejected credential")
	ErrQueueFull    = errors.New("live channel send queue full")
)

// TokenSource supplies the credential used in the handshake.
type TokenSource interface {
	Token() string
}

// Conn is the single long-lived live channel. It dials, keeps the socket
// alive, reconnects with a fixed delay up to MaxRetries consecutive failures,
// and delivers inbound envelopes plus local link events on Events.
type Conn struct {
	cfg     config.LiveConfig
	tokens  TokenSource
	dialer  *websocket.Dialer
	limiter *rate.Limiter
	log     zerolog.Logger

	events chan Envelope
	send   chan []byte

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
	closed  bool
	done    bool
}

func New(cfg config.LiveConfig, tokens TokenSource) *Conn {
	limit := rate.Inf
	if cfg.SendRate > 0 {
		limit = rate.Limit(cfg.SendRate)
	}
	burst := cfg.SendBurst
	if burst < 1 {
		burst = 1
	}

	return &Conn{
		cfg:     cfg,
		tokens:  tokens,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		limiter: rate.NewLimiter(limit, burst),
		log:     logging.Component("live"),
		events:  make(chan Envelope, 256),
		send:    make(chan []byte, 256),
	}
}

// Events delivers inbound envelopes. It is closed when the connection gives
// up or is closed.
func (c *Conn) Events() <-chan Envelope {
	return c.events
}

// Start launches the connection loop. Calling it twice is a no-op.
func (c *Conn) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil || c.closed {
		return
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.stopped = make(chan struct{})
	go c.run(ctx)
}

// Emit queues an outbound event. It does not block. Once the connection has
// given up or been closed it returns ErrClosed.
func (c *Conn) Emit(event string, data any) error {
	c.mu.Lock()
	closed := c.closed || c.done
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	env, err := NewEnvelope(event, data)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", event, err)
	}

	select {
	case c.send <- frame:
		return nil
	default:
		c.log.Warn().Str(logging.FieldEvent, event).Msg("send queue full, dropping event")
		return ErrQueueFull
	}
}

// Close tears the connection down and waits for the loop to exit.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancel, stopped := c.cancel, c.stopped
	c.mu.Unlock()

	if cancel == nil {
		close(c.events)
		return nil
	}
	cancel()
	<-stopped
	return nil
}

func (c *Conn) run(ctx context.Context) {
	defer close(c.stopped)
	defer close(c.events)
	defer func() {
		c.mu.Lock()
		c.done = true
		c.mu.Unlock()
	}()

	failures := 0
	for {
		ws, err := c.dial(ctx)
		if err == nil {
			failures = 0
			c.log.Info().Str("url", c.cfg.URL).Msg("live channel connected")
			c.deliver(ctx, Envelope{Event: EventLinkUp})
			err = c.serve(ctx, ws)
		}
		if ctx.Err() != nil {
			return
		}

		if errors.Is(err, ErrUnauthorized) {
			c.log.Warn().Err(err).Msg("live channel handshake rejected")
			c.deliverStatus(ctx, LinkStatus{Reason: err.Error(), Unauthorized: true})
			return
		}

		failures++
		retrying := c.cfg.MaxRetries == 0 || failures <= c.cfg.MaxRetries
		c.log.Warn().Err(err).Int(logging.FieldAttempt, failures).Bool("retrying", retrying).Msg("live channel down")
		c.deliverStatus(ctx, LinkStatus{Reason: errString(err), Retrying: retrying})
		if !retrying {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
}

func (c *Conn) dial(ctx context.Context) (*websocket.Conn, error) {
	token := c.tokens.Token()
	if token == "" {
		return nil, ErrUnauthorized
	}

	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid live url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	ws, resp, err := c.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to dial live channel: %w", err)
	}
	return ws, nil
}

// serve runs the read and write pumps for one socket and returns when either
// side fails or ctx is cancelled.
func (c *Conn) serve(ctx context.Context, ws *websocket.Conn) error {
	readDone := make(chan struct{})
	writeDone := make(chan struct{})

	go func() {
		defer close(writeDone)
		c.writePump(ctx, ws, readDone)
	}()

	err := c.readPump(ctx, ws)
	close(readDone)
	ws.Close()
	<-writeDone
	return err
}

func (c *Conn) readPump(ctx context.Context, ws *websocket.Conn) error {
	if c.cfg.MaxMessageSize > 0 {
		ws.SetReadLimit(c.cfg.MaxMessageSize)
	}
	if c.cfg.PongWait > 0 {
		ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		ws.SetPongHandler(func(string) error {
			ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
			return nil
		})
	}

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return fmt.Errorf("server closed live channel")
			}
			return err
		}
		if c.cfg.PongWait > 0 {
			ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			c.log.Warn().Err(err).Msg("dropping malformed frame")
			continue
		}
		c.deliver(ctx, env)
	}
}

func (c *Conn) writePump(ctx context.Context, ws *websocket.Conn, readDone <-chan struct{}) {
	interval := c.cfg.PingInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-readDone:
			return

		case <-ctx.Done():
			ws.SetWriteDeadline(time.Now().Add(c.writeWait()))
			ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			ws.Close()
			return

		case frame := <-c.send:
			if err := c.limiter.Wait(ctx); err != nil {
				return
			}
			ws.SetWriteDeadline(time.Now().Add(c.writeWait()))
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Warn().Err(err).Msg("failed to write event")
				ws.Close()
				return
			}

		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(c.writeWait()))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				ws.Close()
				return
			}
		}
	}
}

func (c *Conn) writeWait() time.Duration {
	if c.cfg.WriteWait > 0 {
		return c.cfg.WriteWait
	}
	return 10 * time.Second
}

func (c *Conn) deliver(ctx context.Context, env Envelope) {
	select {
	case c.events <- env:
	case <-ctx.Done():
	}
}

func (c *Conn) deliverStatus(ctx context.Context, st LinkStatus) {
	env, err := NewEnvelope(EventLinkDown, st)
	if err != nil {
		return
	}
	c.deliver(ctx, env)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
