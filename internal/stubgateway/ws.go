package stubgateway

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sportstix-client/internal/realtime"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// hub fans published payloads out to every socket subscribed to a topic.
type hub struct {
	mu     sync.Mutex
	topics map[string]map[*wsClient]struct{}
}

type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func newHub() *hub {
	return &hub{topics: map[string]map[*wsClient]struct{}{}}
}

func (h *hub) subscribe(c *wsClient, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.topics[topic]
	if !ok {
		set = map[*wsClient]struct{}{}
		h.topics[topic] = set
	}
	set[c] = struct{}{}
}

func (h *hub) unsubscribe(c *wsClient, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set := h.topics[topic]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.topics, topic)
		}
	}
}

func (h *hub) drop(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topic, set := range h.topics {
		delete(set, c)
		if len(set) == 0 {
			delete(h.topics, topic)
		}
	}
}

// publish sends a message frame to every subscriber of the topic.
func (h *hub) publish(topic string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	frame := realtime.Frame{Type: "message", Topic: topic, Payload: body}
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.topics[topic]))
	for c := range h.topics[topic] {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		c.writeMu.Lock()
		if err := c.conn.WriteJSON(frame); err != nil {
			log.Printf("stubgateway: push to subscriber failed: %v", err)
		}
		c.writeMu.Unlock()
	}
}

// Publish pushes a payload to every subscriber of a topic. Test hook for
// injecting out-of-band messages (stale broadcasts, malformed payloads).
func (s *Server) Publish(topic string, payload any) {
	s.hub.publish(topic, payload)
}

// SubscriberCount reports how many sockets hold a subscription to the
// topic. Test hook for asserting leases were released.
func (s *Server) SubscriberCount(topic string) int {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return len(s.hub.topics[topic])
}

// handleWS upgrades the connection and pumps subscribe/unsubscribe frames
// until the client goes away.
func (s *Server) handleWS(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	client := &wsClient{conn: conn}
	defer func() {
		s.hub.drop(client)
		_ = conn.Close()
	}()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil
		}
		var f realtime.Frame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		switch f.Type {
		case "subscribe":
			s.hub.subscribe(client, f.Topic)
		case "unsubscribe":
			s.hub.unsubscribe(client, f.Topic)
		}
	}
}
