// bus.go
package bus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// -----------------------------------------------------------------------------
// Topics
// -----------------------------------------------------------------------------

// Topic is a sequence of tokens. Tokens are strings or integers; the string
// tokens "+" and "#" act as single-level and multi-level wildcards in
// subscription topics. Publish topics must be literal.
type Topic []any

const (
	WildcardOne = "+"
	WildcardAll = "#"
)

// T builds a Topic, validating each token.
func T(tokens ...any) Topic {
	t := make(Topic, 0, len(tokens))
	for _, tok := range tokens {
		t = append(t, checkToken(tok))
	}
	return t
}

func checkToken(tok any) any {
	switch v := tok.(type) {
	case string:
		return v
	case int:
		return v
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return v
	default:
		panic("bus: topic token must be a string or integer")
	}
}

// Len and At exist so services can address tokens without re-slicing.
func (t Topic) Len() int     { return len(t) }
func (t Topic) At(i int) any { return t[i] }

func (t Topic) Equal(o Topic) bool {
	if len(t) != len(o) {
		return false
	}
	for i := range t {
		if t[i] != o[i] {
			return false
		}
	}
	return true
}

// -----------------------------------------------------------------------------
// Message
// -----------------------------------------------------------------------------

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ReplyTo  Topic
}

// CanReply reports whether the sender asked for a reply.
func (m *Message) CanReply() bool { return len(m.ReplyTo) > 0 }

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

type Subscription struct {
	topic Topic
	ch    chan *Message
	conn  *Connection // owning connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// -----------------------------------------------------------------------------
// Trie node
// -----------------------------------------------------------------------------

type node struct {
	children map[any]*node
	subs     []*Subscription
	retained *Message
}

func (n *node) child(tok any) *node {
	if n == nil || n.children == nil {
		return nil
	}
	return n.children[tok]
}

func (n *node) ensureChild(tok any) *node {
	if n.children == nil {
		n.children = make(map[any]*node)
	}
	c, ok := n.children[tok]
	if !ok {
		c = &node{}
		n.children[tok] = c
	}
	return c
}

func (n *node) empty() bool {
	return len(n.subs) == 0 && len(n.children) == 0 && n.retained == nil
}

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

type Bus struct {
	mu     sync.RWMutex
	root   *node
	qLen   int
	nextID uint32 // reply topic counter
}

// NewBus creates a new bus with the given subscription queue length.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8 // safe default
	}
	return &Bus{
		root: &node{},
		qLen: queueLen,
	}
}

// NewMessage builds a message with a validated topic.
func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: T(topic...), Payload: payload, Retained: retained}
}

func (b *Bus) addSubscription(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	for _, tok := range sub.topic {
		n = n.ensureChild(tok)
	}
	n.subs = append(n.subs, sub)

	// Deliver retained messages matching the pattern.
	b.root.walkRetained(sub.topic, func(m *Message) {
		deliver(sub, m)
	})
}

// walkRetained visits every retained message whose literal topic matches the
// (possibly wildcarded) pattern.
func (n *node) walkRetained(pattern Topic, visit func(*Message)) {
	if n == nil {
		return
	}
	if len(pattern) == 0 {
		if n.retained != nil {
			visit(n.retained)
		}
		return
	}
	switch pattern[0] {
	case WildcardAll:
		n.walkAllRetained(visit)
	case WildcardOne:
		for _, c := range n.children {
			c.walkRetained(pattern[1:], visit)
		}
	default:
		n.child(pattern[0]).walkRetained(pattern[1:], visit)
	}
}

func (n *node) walkAllRetained(visit func(*Message)) {
	if n.retained != nil {
		visit(n.retained)
	}
	for _, c := range n.children {
		c.walkAllRetained(visit)
	}
}

// Publish delivers a message to all matching subscribers and updates the
// retained store. A nil payload on a retained publish clears the slot.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	matchSubs(b.root, msg.Topic, func(sub *Subscription) {
		deliver(sub, msg)
	})

	if !msg.Retained {
		return
	}
	n := b.root
	for _, tok := range msg.Topic {
		n = n.ensureChild(tok)
	}
	if msg.Payload == nil {
		n.retained = nil
	} else {
		n.retained = msg
	}
}

// matchSubs walks the subscription trie against a literal publish topic,
// honouring "+" and "#" pattern nodes. "a/#" matches "a" itself.
func matchSubs(n *node, topic Topic, visit func(*Subscription)) {
	if n == nil {
		return
	}
	if hash := n.child(WildcardAll); hash != nil {
		for _, s := range hash.subs {
			visit(s)
		}
	}
	if len(topic) == 0 {
		for _, s := range n.subs {
			visit(s)
		}
		return
	}
	matchSubs(n.child(topic[0]), topic[1:], visit)
	matchSubs(n.child(WildcardOne), topic[1:], visit)
}

func deliver(sub *Subscription, msg *Message) {
	select {
	case sub.ch <- msg:
	default:
		// drop oldest if queue full
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- msg:
		default:
		}
	}
}

// unsubscribe removes a subscription from the trie and prunes empty nodes.
func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	stack := make([]*node, 0, len(sub.topic))
	for _, tok := range sub.topic {
		child := n.child(tok)
		if child == nil {
			return
		}
		stack = append(stack, n)
		n = child
	}

	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}

	for i := len(sub.topic) - 1; i >= 0; i-- {
		parent := stack[i]
		key := sub.topic[i]
		if child := parent.child(key); child != nil && child.empty() {
			delete(parent.children, key)
		} else {
			break
		}
	}
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

type Connection struct {
	bus  *Bus
	mu   sync.Mutex
	subs []*Subscription
	id   string
}

// NewConnection creates a new connection bound to this bus.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(topic, payload, retained)
}

// Publish sends a message via the bus.
func (c *Connection) Publish(msg *Message) {
	c.bus.Publish(msg)
}

// Subscribe registers a subscription owned by this connection.
func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: T(topic...),
		ch:    make(chan *Message, c.bus.qLen),
		conn:  c,
	}
	c.bus.addSubscription(sub)
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscription owned by this connection.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.bus.unsubscribe(sub)
	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	close(sub.ch)
}

// Disconnect closes all subscriptions and clears them.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.unsubscribe(sub)
		close(sub.ch)
	}
}

// -----------------------------------------------------------------------------
// Request–Reply
// -----------------------------------------------------------------------------

var ErrNoReply = errors.New("bus: no reply")

// Request stamps msg with a fresh ReplyTo topic, subscribes to it, and
// publishes the request. The caller owns the returned subscription.
func (c *Connection) Request(msg *Message) *Subscription {
	id := int(atomic.AddUint32(&c.bus.nextID, 1))
	msg.ReplyTo = T("reply", c.id, id)
	sub := c.Subscribe(msg.ReplyTo)
	c.Publish(msg)
	return sub
}

// RequestWait performs Request and blocks for the first reply or ctx expiry.
func (c *Connection) RequestWait(ctx context.Context, msg *Message) (*Message, error) {
	sub := c.Request(msg)
	defer c.Unsubscribe(sub)
	select {
	case reply, ok := <-sub.ch:
		if !ok {
			return nil, ErrNoReply
		}
		return reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Reply publishes a payload to the request's ReplyTo topic.
func (c *Connection) Reply(req *Message, payload any, retained bool) {
	if !req.CanReply() {
		return
	}
	c.Publish(&Message{Topic: req.ReplyTo, Payload: payload, Retained: retained})
}
