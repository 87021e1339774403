package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"

	"github.com/bragerone/bragerone-go/internal/telemetry/metrics"
)

// Client configuration constants, named the way the teacher's realtime
// client names its pump timing constants.
const (
	writeWait        = 10 * time.Second
	defaultHandshake = 10 * time.Second
	probeWait        = 5 * time.Second
)

// TokenSource returns the current bearer token, re-invoked on every
// (re)connect so a refreshed token is picked up automatically.
type TokenSource func(ctx context.Context) (string, error)

// EventHandler receives a forwarded realtime event: its canonical name
// (numeric aliases already resolved) and raw JSON payload.
type EventHandler func(event string, payload json.RawMessage)

// ConnectedCallback fires after every successful (re)connect, namespace
// join included.
type ConnectedCallback func(ctx context.Context)

// Options configures a Channel.
type Options struct {
	BaseURL   string // Engine.IO/Socket.IO server base, e.g. "https://io.one.brager.pl"
	Path      string // Socket.IO path, default "/socket.io/"
	Namespace string // Namespace to join, e.g. "/ws"

	TokenSource TokenSource
	Origin      string
	Referer     string
	AppVersion  string

	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
	HandshakeTimeout time.Duration

	Logger *slog.Logger

	// HTTPClient performs the long-polling handshake GET. Overridable
	// for tests; defaults to http.DefaultClient.
	HTTPClient *http.Client
	// Dialer dials the websocket upgrade. Overridable for tests.
	Dialer *websocket.Dialer

	// Metrics receives connection/reconnect/event counters when set.
	// Nil disables instrumentation entirely; no defaulted no-op
	// collector is installed, since a counter nobody scrapes is just
	// memory overhead.
	Metrics *metrics.Collectors
}

func (o *Options) setDefaults() {
	if o.Path == "" {
		o.Path = "/socket.io/"
	}
	if o.Namespace == "" {
		o.Namespace = "/"
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = time.Second
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 10 * time.Second
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = defaultHandshake
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.HTTPClient == nil {
		o.HTTPClient = http.DefaultClient
	}
	if o.Dialer == nil {
		o.Dialer = &websocket.Dialer{HandshakeTimeout: o.HandshakeTimeout}
	}
}

// Channel is the Socket.IO-style realtime connection (component B): it
// performs the Engine.IO long-polling handshake, upgrades to the
// websocket transport, joins a single namespace, forwards named events,
// and reconnects indefinitely with capped exponential backoff on drop.
type Channel struct {
	opts Options

	mu           sync.Mutex
	conn         *websocket.Conn
	engineSID    string
	namespaceSID string
	devIDs       []string
	groupID      *int
	handler      EventHandler
	onConnected  []ConnectedCallback

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeCh   chan struct{}
}

// New builds a Channel from opts, applying documented defaults.
func New(opts Options) *Channel {
	opts.setDefaults()
	return &Channel{opts: opts, closeCh: make(chan struct{})}
}

// OnEvent registers the single dispatcher invoked for every forwarded
// event. Replaces any previously registered handler.
func (c *Channel) OnEvent(h EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

// OnConnected registers a callback fired after every successful
// (re)connect, in registration order.
func (c *Channel) OnConnected(cb ConnectedCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnected = append(c.onConnected, cb)
}

// EngineSID returns the transport-level (Engine.IO) session id.
func (c *Channel) EngineSID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engineSID
}

// NamespaceSID returns the namespace-level session id.
func (c *Channel) NamespaceSID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.namespaceSID
}

// Connected reports whether a websocket connection is currently live.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Connect performs one handshake attempt — long-polling open, websocket
// upgrade, namespace join — and, once successful, starts the background
// supervisor that reconnects indefinitely on drop. It returns an error
// only for the initial attempt; subsequent drops are retried forever in
// the background per the documented reconnection contract.
func (c *Channel) Connect(ctx context.Context) error {
	if err := c.dialOnce(ctx); err != nil {
		return err
	}
	go c.supervise(ctx)
	return nil
}

// Close disconnects the channel and stops the reconnect supervisor.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() { close(c.closeCh) })

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	_ = c.writeRaw(conn, encodeDisconnect(c.opts.Namespace))
	return conn.Close()
}

// Subscribe records the device id set and optional group id, then
// emits the four-frame subscription contract (§4.B) over the current
// connection.
func (c *Channel) Subscribe(devIDs []string, groupID *int) error {
	c.mu.Lock()
	c.devIDs = append([]string(nil), devIDs...)
	c.groupID = groupID
	c.mu.Unlock()
	return c.emitSubscribeFrames()
}

// Resubscribe re-emits the subscription frames for the previously
// recorded device id set and group id; a no-op if nothing was ever
// subscribed. Called automatically after every reconnect, and exposed
// for callers that want to force a re-subscribe without a drop.
func (c *Channel) Resubscribe() error {
	c.mu.Lock()
	empty := len(c.devIDs) == 0
	c.mu.Unlock()
	if empty {
		return nil
	}
	return c.emitSubscribeFrames()
}

func (c *Channel) emitSubscribeFrames() error {
	c.mu.Lock()
	conn := c.conn
	ns := c.opts.Namespace
	devIDs := append([]string(nil), c.devIDs...)
	groupID := c.groupID
	c.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}
	if len(devIDs) == 0 {
		return nil
	}

	for _, frame := range subscribeFrames(devIDs, groupID) {
		body, err := encodeEvent(ns, frame.Event, frame.Payload)
		if err != nil {
			return err
		}
		if err := c.writeRaw(conn, body); err != nil {
			return fmt.Errorf("realtime: subscribe emit %s: %w", frame.Event, err)
		}
	}
	return nil
}

// dialOnce runs the full handshake: long-polling open, websocket
// upgrade + probe, namespace CONNECT, and waits for the join ack.
func (c *Channel) dialOnce(ctx context.Context) error {
	token := ""
	if c.opts.TokenSource != nil {
		t, err := c.opts.TokenSource(ctx)
		if err != nil {
			return fmt.Errorf("realtime: token source: %w", err)
		}
		token = t
	}

	hsCtx, cancel := context.WithTimeout(ctx, c.opts.HandshakeTimeout)
	defer cancel()

	hs, err := c.pollOpen(hsCtx, token)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrHandshake, err)
	}

	conn, err := c.upgrade(hsCtx, token, hs.SID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrHandshake, err)
	}

	if err := c.join(hsCtx, conn); err != nil {
		conn.Close()
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.engineSID = hs.SID
	callbacks := append([]ConnectedCallback(nil), c.onConnected...)
	c.mu.Unlock()

	if c.opts.Metrics != nil {
		c.opts.Metrics.ConnectionsTotal.Inc()
	}

	go c.readPump(conn)

	for _, cb := range callbacks {
		cb(ctx)
	}
	return nil
}

// pollOpen issues the Engine.IO long-polling handshake GET and returns
// the decoded open packet.
func (c *Channel) pollOpen(ctx context.Context, token string) (handshake, error) {
	u := c.pollingURL()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return handshake{}, err
	}
	c.setHeaders(req, token)

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return handshake{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return handshake{}, err
	}
	if resp.StatusCode >= 400 {
		return handshake{}, fmt.Errorf("realtime: polling handshake status %d", resp.StatusCode)
	}

	for _, packet := range strings.Split(string(body), "\x1e") {
		if packet == "" {
			continue
		}
		if packet[0] == eioOpen {
			return parseOpenPacket([]byte(packet))
		}
	}
	return handshake{}, fmt.Errorf("realtime: no open packet in handshake response")
}

// upgrade dials the websocket transport with the handshake sid and
// performs the probe/upgrade exchange.
func (c *Channel) upgrade(ctx context.Context, token, sid string) (*websocket.Conn, error) {
	header := make(http.Header)
	c.setHeaderValues(header, token)

	conn, _, err := c.opts.Dialer.DialContext(ctx, c.websocketURL(sid), header)
	if err != nil {
		return nil, err
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(string(eioPing)+"probe")); err != nil {
		conn.Close()
		return nil, err
	}
	conn.SetReadDeadline(time.Now().Add(probeWait))
	_, data, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if string(data) != string(eioPong)+"probe" {
		conn.Close()
		return nil, fmt.Errorf("realtime: unexpected probe reply %q", data)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte{eioUpgrade}); err != nil {
		conn.Close()
		return nil, err
	}
	conn.SetReadDeadline(time.Time{})
	return conn, nil
}

// join sends the Socket.IO CONNECT packet for the configured namespace
// and blocks until the matching join ack arrives.
func (c *Channel) join(ctx context.Context, conn *websocket.Conn) error {
	if err := c.writeRaw(conn, encodeConnect(c.opts.Namespace)); err != nil {
		return err
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.opts.HandshakeTimeout)
	}
	conn.SetReadDeadline(deadline)
	defer conn.SetReadDeadline(time.Time{})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrNamespaceJoin, err)
		}
		typ, body := parseEnginePacket(data)
		if typ != eioMessage {
			continue
		}
		pkt, err := parseSocketIOPacket(body)
		if err != nil {
			continue
		}
		if pkt.Type != sioConnect || pkt.Namespace != c.opts.Namespace {
			continue
		}
		var ack struct {
			SID string `json:"sid"`
		}
		_ = json.Unmarshal(pkt.Data, &ack)
		c.mu.Lock()
		c.namespaceSID = ack.SID
		c.mu.Unlock()
		return nil
	}
}

// readPump forwards inbound events and answers server pings until the
// connection errors out, at which point it clears conn so the
// supervisor can redial.
func (c *Channel) readPump(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
			}
			c.mu.Unlock()
			return
		}
		c.handleFrame(conn, data)
	}
}

func (c *Channel) handleFrame(conn *websocket.Conn, data []byte) {
	typ, body := parseEnginePacket(data)
	switch typ {
	case eioPing:
		_ = c.writeRaw(conn, []byte{eioPong})
	case eioMessage:
		pkt, err := parseSocketIOPacket(body)
		if err != nil || pkt.Namespace != c.opts.Namespace {
			return
		}
		if pkt.Type != sioEvent {
			return
		}
		name, payload, err := decodeEventPayload(pkt.Data)
		if err != nil {
			return
		}
		name = canonicalEventName(name)
		if !forwardedEvents[name] {
			if c.opts.Metrics != nil {
				c.opts.Metrics.EventsDropped.Inc()
			}
			return
		}
		if c.opts.Metrics != nil {
			c.opts.Metrics.EventsTotal.WithLabelValues(name).Inc()
		}
		c.mu.Lock()
		handler := c.handler
		c.mu.Unlock()
		if handler != nil {
			handler(name, payload)
		}
	}
}

// supervise is the reconnect loop: once the active connection drops,
// it redials with exponential backoff (capped per Options) forever,
// re-firing on-connected callbacks and resubscribing after each
// successful reconnect.
func (c *Channel) supervise(ctx context.Context) {
	for {
		if !c.waitForDrop(ctx) {
			return
		}

		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = c.opts.InitialBackoff
		bo.MaxInterval = c.opts.MaxBackoff
		bo.MaxElapsedTime = 0 // infinite retries per the documented contract

		_, err := backoff.Retry(ctx, func() (struct{}, error) {
			if c.opts.Metrics != nil {
				c.opts.Metrics.ReconnectsTotal.Inc()
			}
			if err := c.dialOnce(ctx); err != nil {
				return struct{}{}, err
			}
			return struct{}{}, nil
		}, backoff.WithBackOff(bo))
		if err != nil {
			// ctx was cancelled; stop supervising.
			return
		}

		if err := c.Resubscribe(); err != nil {
			c.opts.Logger.Warn("realtime: resubscribe after reconnect failed", slog.String("error", err.Error()))
		}
	}
}

// waitForDrop blocks until the current connection clears (readPump
// observed an error) or the channel/context is closed. Returns false
// when supervision should stop.
func (c *Channel) waitForDrop(ctx context.Context) bool {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-c.closeCh:
			return false
		case <-ticker.C:
			c.mu.Lock()
			dropped := c.conn == nil
			c.mu.Unlock()
			if dropped {
				return true
			}
		}
	}
}

func (c *Channel) writeRaw(conn *websocket.Conn, frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, frame)
}

func (c *Channel) pollingURL() string {
	base := strings.TrimSuffix(c.opts.BaseURL, "/")
	scheme := "http"
	if strings.HasPrefix(base, "https://") {
		scheme = "https"
		base = strings.TrimPrefix(base, "https://")
	} else {
		base = strings.TrimPrefix(base, "http://")
	}
	return fmt.Sprintf("%s://%s%sEIO=4&transport=polling&t=%d", scheme, base, c.pathWithQuery(), time.Now().UnixNano())
}

func (c *Channel) websocketURL(sid string) string {
	base := strings.TrimSuffix(c.opts.BaseURL, "/")
	scheme := "ws"
	if strings.HasPrefix(base, "https://") {
		scheme = "wss"
		base = strings.TrimPrefix(base, "https://")
	} else {
		base = strings.TrimPrefix(base, "http://")
	}
	return fmt.Sprintf("%s://%s%sEIO=4&transport=websocket&sid=%s", scheme, base, c.pathWithQuery(), sid)
}

func (c *Channel) pathWithQuery() string {
	path := c.opts.Path
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return path + "?"
}

func (c *Channel) setHeaders(req *http.Request, token string) {
	c.setHeaderValues(req.Header, token)
}

func (c *Channel) setHeaderValues(h http.Header, token string) {
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	if c.opts.Origin != "" {
		h.Set("Origin", c.opts.Origin)
	}
	if c.opts.Referer != "" {
		h.Set("Referer", c.opts.Referer)
	}
	if c.opts.AppVersion != "" {
		h.Set("X-AppVersion", c.opts.AppVersion)
	}
}
