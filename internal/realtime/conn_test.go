package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testGateway is a minimal websocket endpoint speaking the frame protocol:
// it records subscribe/unsubscribe frames and lets tests publish messages
// and sever connections.
type testGateway struct {
	srv *httptest.Server

	mu           sync.Mutex
	conns        []*websocket.Conn
	subs         map[string]map[*websocket.Conn]struct{}
	subscribes   map[string]int
	unsubscribes map[string]int
	identities   []string
	dials        int
}

func newTestGateway(t *testing.T) *testGateway {
	t.Helper()
	g := &testGateway{
		subs:         map[string]map[*websocket.Conn]struct{}{},
		subscribes:   map[string]int{},
		unsubscribes: map[string]int{},
	}
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	g.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		g.mu.Lock()
		g.dials++
		g.conns = append(g.conns, ws)
		g.identities = append(g.identities, r.Header.Get("X-User-Id"))
		g.mu.Unlock()
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			var f Frame
			if json.Unmarshal(data, &f) != nil {
				continue
			}
			g.mu.Lock()
			switch f.Type {
			case frameSubscribe:
				g.subscribes[f.Topic]++
				set := g.subs[f.Topic]
				if set == nil {
					set = map[*websocket.Conn]struct{}{}
					g.subs[f.Topic] = set
				}
				set[ws] = struct{}{}
			case frameUnsubscribe:
				g.unsubscribes[f.Topic]++
				delete(g.subs[f.Topic], ws)
			}
			g.mu.Unlock()
		}
	}))
	t.Cleanup(g.srv.Close)
	return g
}

func (g *testGateway) wsURL() string {
	return "ws" + strings.TrimPrefix(g.srv.URL, "http")
}

func (g *testGateway) publish(topic string, payload string) {
	g.mu.Lock()
	conns := make([]*websocket.Conn, 0)
	for ws := range g.subs[topic] {
		conns = append(conns, ws)
	}
	g.mu.Unlock()
	for _, ws := range conns {
		_ = ws.WriteJSON(Frame{Type: frameMessage, Topic: topic, Payload: json.RawMessage(payload)})
	}
}

func (g *testGateway) writeRaw(data string) {
	g.mu.Lock()
	conns := append([]*websocket.Conn{}, g.conns...)
	g.mu.Unlock()
	for _, ws := range conns {
		_ = ws.WriteMessage(websocket.TextMessage, []byte(data))
	}
}

func (g *testGateway) severAll() {
	g.mu.Lock()
	conns := g.conns
	g.conns = nil
	for _, set := range g.subs {
		for ws := range set {
			delete(set, ws)
		}
	}
	g.mu.Unlock()
	for _, ws := range conns {
		_ = ws.Close()
	}
}

func (g *testGateway) counts(topic string) (sub, unsub int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.subscribes[topic], g.unsubscribes[topic]
}

func newTestManager(g *testGateway) *Manager {
	m := NewManager(strings.TrimSuffix(g.wsURL(), "/"), 20*time.Millisecond, time.Second)
	// The harness serves the socket at its root rather than /ws/queue.
	m.wsURL = g.wsURL()
	return m
}

func TestAcquireIsSingletonPerIdentity(t *testing.T) {
	g := newTestGateway(t)
	m := newTestManager(g)
	defer m.Disconnect()

	c1 := m.Acquire(1)
	c2 := m.Acquire(1)
	assert.Same(t, c1, c2, "re-entrant acquisition must return the same channel")
}

func TestAcquireForNewIdentityTearsDownOldChannel(t *testing.T) {
	g := newTestGateway(t)
	m := newTestManager(g)
	defer m.Disconnect()

	c1 := m.Acquire(1)
	require.Eventually(t, c1.Connected, time.Second, 5*time.Millisecond)

	c2 := m.Acquire(2)
	assert.NotSame(t, c1, c2)
	assert.True(t, c1.isClosed(), "previous identity's channel must be deactivated first")

	require.Eventually(t, c2.Connected, time.Second, 5*time.Millisecond)
	g.mu.Lock()
	ids := append([]string{}, g.identities...)
	g.mu.Unlock()
	assert.Contains(t, ids, "1")
	assert.Contains(t, ids, "2")
}

func TestSubscribeBeforeConnectIsReplayed(t *testing.T) {
	g := newTestGateway(t)
	m := newTestManager(g)
	defer m.Disconnect()

	conn := m.Acquire(1)
	got := make(chan string, 4)
	// Two immediate subscriptions race the dial; both must survive.
	l1 := conn.Subscribe("/topic/a", func(p json.RawMessage) { got <- "a:" + string(p) })
	l2 := conn.Subscribe("/topic/b", func(p json.RawMessage) { got <- "b:" + string(p) })
	defer l1.Release()
	defer l2.Release()

	require.Eventually(t, func() bool {
		sa, _ := g.counts("/topic/a")
		sb, _ := g.counts("/topic/b")
		return sa >= 1 && sb >= 1
	}, time.Second, 5*time.Millisecond, "both queued subscriptions must be replayed on connect")

	g.publish("/topic/a", `{"n":1}`)
	g.publish("/topic/b", `{"n":2}`)
	received := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case v := <-got:
			received[v] = true
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for published messages")
		}
	}
	assert.True(t, received[`a:{"n":1}`])
	assert.True(t, received[`b:{"n":2}`])
}

func TestLeaseReleaseIsIdempotent(t *testing.T) {
	g := newTestGateway(t)
	m := newTestManager(g)
	defer m.Disconnect()

	conn := m.Acquire(1)
	got := make(chan struct{}, 4)
	lease := conn.Subscribe("/topic/x", func(json.RawMessage) { got <- struct{}{} })
	require.Eventually(t, func() bool { s, _ := g.counts("/topic/x"); return s == 1 }, time.Second, 5*time.Millisecond)

	lease.Release()
	lease.Release()
	lease.Release()

	require.Eventually(t, func() bool { _, u := g.counts("/topic/x"); return u >= 1 }, time.Second, 5*time.Millisecond)
	_, unsubs := g.counts("/topic/x")
	assert.Equal(t, 1, unsubs, "repeated release must unsubscribe once")

	g.publish("/topic/x", `{}`)
	select {
	case <-got:
		t.Fatal("released lease must not receive messages")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestReconnectReplaysAndNotifiesWatchers(t *testing.T) {
	g := newTestGateway(t)
	m := newTestManager(g)
	defer m.Disconnect()

	conn := m.Acquire(1)
	var transitions []bool
	var tmu sync.Mutex
	cancel := conn.Watch(func(up bool) {
		tmu.Lock()
		transitions = append(transitions, up)
		tmu.Unlock()
	})
	defer cancel()

	lease := conn.Subscribe("/topic/r", func(json.RawMessage) {})
	defer lease.Release()
	require.Eventually(t, func() bool { s, _ := g.counts("/topic/r"); return s == 1 }, time.Second, 5*time.Millisecond)

	g.severAll()

	// Fixed-delay reconnect must dial again and replay the subscription.
	require.Eventually(t, func() bool { s, _ := g.counts("/topic/r"); return s >= 2 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, conn.Connected, time.Second, 5*time.Millisecond)

	tmu.Lock()
	defer tmu.Unlock()
	assert.Contains(t, transitions, false, "watchers must observe the outage")
	assert.Contains(t, transitions, true, "watchers must observe the recovery")
}

func TestMalformedFrameIsDroppedNotFatal(t *testing.T) {
	g := newTestGateway(t)
	m := newTestManager(g)
	defer m.Disconnect()

	conn := m.Acquire(1)
	got := make(chan string, 2)
	lease := conn.Subscribe("/topic/m", func(p json.RawMessage) { got <- string(p) })
	defer lease.Release()
	require.Eventually(t, func() bool { s, _ := g.counts("/topic/m"); return s == 1 }, time.Second, 5*time.Millisecond)

	g.writeRaw("{this is not json")
	g.publish("/topic/m", `{"ok":true}`)

	select {
	case v := <-got:
		assert.JSONEq(t, `{"ok":true}`, v)
	case <-time.After(time.Second):
		t.Fatal("good message after malformed frame was not delivered")
	}
}

func TestSubscribeOnFailedConnectionStillRegisters(t *testing.T) {
	g := newTestGateway(t)
	m := newTestManager(g)
	defer m.Disconnect()

	// Point the manager at a dead port first.
	live := m.wsURL
	m.wsURL = "ws://127.0.0.1:1/ws"
	conn := m.Acquire(1)
	lease := conn.Subscribe("/topic/late", func(json.RawMessage) {})
	defer lease.Release()
	assert.False(t, conn.Connected())

	// Flip the URL to the live gateway; the next reconnect attempt must
	// pick it up and replay the registration.
	conn.mu.Lock()
	conn.url = live
	conn.mu.Unlock()

	require.Eventually(t, func() bool { s, _ := g.counts("/topic/late"); return s >= 1 }, 2*time.Second, 10*time.Millisecond)
}
