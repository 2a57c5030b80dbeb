package realtime

import (
	"encoding/json"
	"sync"
)

// Handler receives the raw payload of one message frame on a subscribed
// topic. Handlers decode their own payloads; a decode failure is the
// handler's to log and drop, never a reason to kill the subscription.
type Handler func(payload json.RawMessage)

// Lease is one subscription registration. Every caller that subscribes must
// release exactly once; Release is idempotent so defensive double-release
// during teardown is harmless.
type Lease struct {
	conn  *Conn
	topic string
	id    uint64
	once  sync.Once
}

// Topic returns the destination this lease is bound to.
func (l *Lease) Topic() string { return l.topic }

// Release drops the handler registration. When the last lease on a topic is
// released and the channel is up, an unsubscribe frame is sent so the
// gateway stops pushing.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.conn.unsubscribe(l)
	})
}
