package realtime

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the single duplex channel for one identity. It dials lazily from
// its run loop, replays every registered subscription after each successful
// connect, and retries forever on a fixed delay. Transport errors are never
// fatal: callers observe connectivity through Connected/Watch and decide
// for themselves whether stale data is still worth showing.
type Conn struct {
	userID    uint64
	url       string
	delay     time.Duration
	heartbeat time.Duration

	mu        sync.Mutex
	ws        *websocket.Conn
	connected bool
	closed    bool
	subs      map[string]map[uint64]Handler
	nextLease uint64
	watchers  map[uint64]func(bool)
	nextWatch uint64

	writeMu sync.Mutex
	done    chan struct{}
}

// newConn builds a Conn and starts its run loop. The identity is sent as an
// X-User-Id handshake header so the gateway can route personal topics.
func newConn(userID uint64, url string, delay, heartbeat time.Duration) *Conn {
	c := &Conn{
		userID:    userID,
		url:       url,
		delay:     delay,
		heartbeat: heartbeat,
		subs:      map[string]map[uint64]Handler{},
		watchers:  map[uint64]func(bool){},
		done:      make(chan struct{}),
	}
	go c.run()
	return c
}

// UserID returns the identity this channel was opened for.
func (c *Conn) UserID() uint64 { return c.userID }

// Connected reports whether the underlying websocket is currently up.
func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Watch registers a connectivity observer and returns its cancel func. The
// observer fires on every transition, after subscriptions have been
// replayed, so a true notification means personal topics are live again.
func (c *Conn) Watch(fn func(connected bool)) (cancel func()) {
	c.mu.Lock()
	id := c.nextWatch
	c.nextWatch++
	c.watchers[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.watchers, id)
		c.mu.Unlock()
	}
}

// Subscribe registers a handler for a topic and returns its lease. If the
// channel is down the registration alone is the queued replay: the run loop
// re-sends subscribe frames for every registered topic on each connect, so
// nothing is lost and no caller's registration overwrites another's.
func (c *Conn) Subscribe(topic string, h Handler) *Lease {
	c.mu.Lock()
	id := c.nextLease
	c.nextLease++
	handlers, ok := c.subs[topic]
	if !ok {
		handlers = map[uint64]Handler{}
		c.subs[topic] = handlers
	}
	handlers[id] = h
	first := len(handlers) == 1
	connected := c.connected
	c.mu.Unlock()

	if connected && first {
		// Best effort: a write failure here tears the socket down and
		// the subsequent reconnect replays the registration anyway.
		if err := c.sendFrame(Frame{Type: frameSubscribe, Topic: topic}); err != nil {
			log.Printf("realtime: subscribe %s deferred to reconnect: %v", topic, err)
		}
	}
	return &Lease{conn: c, topic: topic, id: id}
}

// unsubscribe removes one lease's handler. Only when the last lease on the
// topic is gone does an unsubscribe frame go out.
func (c *Conn) unsubscribe(l *Lease) {
	c.mu.Lock()
	handlers := c.subs[l.topic]
	delete(handlers, l.id)
	last := len(handlers) == 0
	if last {
		delete(c.subs, l.topic)
	}
	connected := c.connected
	c.mu.Unlock()

	if connected && last {
		if err := c.sendFrame(Frame{Type: frameUnsubscribe, Topic: l.topic}); err != nil {
			log.Printf("realtime: unsubscribe %s not delivered: %v", l.topic, err)
		}
	}
}

// Close tears the channel down permanently. Safe to call more than once.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	ws := c.ws
	c.mu.Unlock()
	close(c.done)
	if ws != nil {
		_ = ws.Close()
	}
}

func (c *Conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// run is the reconnect loop: dial, replay, read until failure, wait the
// fixed delay, repeat. It exits only on Close.
func (c *Conn) run() {
	header := http.Header{"X-User-Id": []string{strconv.FormatUint(c.userID, 10)}}
	for {
		if c.isClosed() {
			return
		}
		c.mu.Lock()
		url := c.url
		c.mu.Unlock()
		ws, _, err := websocket.DefaultDialer.Dial(url, header)
		if err != nil {
			log.Printf("realtime: dial %s failed: %v; retrying in %s", url, err, c.delay)
			if !c.wait() {
				return
			}
			continue
		}
		if !c.attach(ws) {
			_ = ws.Close()
			return
		}
		c.replay()
		c.notify(true)
		c.readLoop(ws)
		c.detach()
		c.notify(false)
		if !c.wait() {
			return
		}
	}
}

// wait sleeps the fixed reconnect delay, returning false if the channel was
// closed in the meantime.
func (c *Conn) wait() bool {
	select {
	case <-c.done:
		return false
	case <-time.After(c.delay):
		return true
	}
}

// attach installs a freshly dialed socket, unless Close raced the dial.
func (c *Conn) attach(ws *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.ws = ws
	c.connected = true
	return true
}

func (c *Conn) detach() {
	c.mu.Lock()
	if c.ws != nil {
		_ = c.ws.Close()
		c.ws = nil
	}
	c.connected = false
	c.mu.Unlock()
}

// replay re-sends a subscribe frame for every registered topic. Called
// after each successful connect, before watchers learn the channel is up.
func (c *Conn) replay() {
	c.mu.Lock()
	topics := make([]string, 0, len(c.subs))
	for t := range c.subs {
		topics = append(topics, t)
	}
	c.mu.Unlock()
	for _, t := range topics {
		if err := c.sendFrame(Frame{Type: frameSubscribe, Topic: t}); err != nil {
			log.Printf("realtime: replay subscribe %s failed: %v", t, err)
			return
		}
	}
}

// notify fans a connectivity transition out to watchers, outside the lock.
func (c *Conn) notify(connected bool) {
	c.mu.Lock()
	fns := make([]func(bool), 0, len(c.watchers))
	for _, fn := range c.watchers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(connected)
	}
}

// readLoop pumps message frames until the socket errors. Heartbeats: pings
// go out every heartbeat period and the read deadline allows two missed
// pongs before the socket is declared dead.
func (c *Conn) readLoop(ws *websocket.Conn) {
	pongWait := 2 * c.heartbeat
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	stop := make(chan struct{})
	defer close(stop)
	go c.pingLoop(ws, stop)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if !c.isClosed() {
				log.Printf("realtime: connection lost: %v", err)
			}
			return
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			// Malformed frames are dropped with a diagnostic; they
			// must never take the subscription down.
			log.Printf("realtime: dropping malformed frame: %v", err)
			continue
		}
		if f.Type == frameMessage {
			c.dispatch(f)
		}
	}
}

func (c *Conn) pingLoop(ws *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(c.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// dispatch delivers one message frame to every handler leased on its topic.
func (c *Conn) dispatch(f Frame) {
	c.mu.Lock()
	handlers := make([]Handler, 0, len(c.subs[f.Topic]))
	for _, h := range c.subs[f.Topic] {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()
	for _, h := range handlers {
		h(f.Payload)
	}
}

// sendFrame writes one frame, serialized against concurrent writers.
func (c *Conn) sendFrame(f Frame) error {
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return websocket.ErrCloseSent
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return ws.WriteJSON(f)
}
