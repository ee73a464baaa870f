// Package memory is an in-process Messaging Channel that replays scripted
// user replies against a clock. It stands in for the browser sidecar in
// tests and local dry runs.
package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/support-bot/internal/clock"
	apperrors "github.com/spec-kit/support-bot/pkg/errorutil"
)

// Reply is a scripted inbound message. It is delivered on the first poll
// strictly later than After past the bot's most recent send (or the
// previous delivery).
type Reply struct {
	Text  string
	After time.Duration
}

// Say is a reply delivered on the next poll.
func Say(text string) Reply {
	return Reply{Text: text}
}

// SayAfter is a reply the user sends only once d has passed.
func SayAfter(d time.Duration, text string) Reply {
	return Reply{Text: text, After: d}
}

type conversation struct {
	id      string
	peer    string
	inbound []string
	pending []Reply
	armed   time.Time
	sent    []string
	opened  int
	closed  int
}

// Channel implements domain.Channel in memory.
type Channel struct {
	mu      sync.Mutex
	clock   clock.Clock
	convs   map[string]*conversation
	unread  []string
	current *conversation
	log     []string

	// Fail, when set, is consulted before every operation; a non-nil
	// return is reported as a channel error for that call.
	Fail func(op string) error
}

// New creates an empty channel reading time from clk.
func New(clk clock.Clock) *Channel {
	return &Channel{clock: clk, convs: make(map[string]*conversation)}
}

// AddConversation registers a conversation. Unread conversations are
// queued for SelectFirstUnread in insertion order.
func (c *Channel) AddConversation(id, peer string, unread bool, replies ...Reply) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.convs[id] = &conversation{id: id, peer: peer, pending: replies, armed: c.clock.Now()}
	if unread {
		c.unread = append(c.unread, id)
	}
}

// Script appends replies to an existing conversation.
func (c *Channel) Script(id string, replies ...Reply) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if conv, ok := c.convs[id]; ok {
		conv.pending = append(conv.pending, replies...)
	}
}

// Sent returns the messages the bot sent to a conversation.
func (c *Channel) Sent(id string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	conv, ok := c.convs[id]
	if !ok {
		return nil
	}
	return append([]string(nil), conv.sent...)
}

// Closed returns how many times a conversation was closed.
func (c *Channel) Closed(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if conv, ok := c.convs[id]; ok {
		return conv.closed
	}
	return 0
}

// Opened returns how many times a conversation was opened, by target or
// through SelectFirstUnread.
func (c *Channel) Opened(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if conv, ok := c.convs[id]; ok {
		return conv.opened
	}
	return 0
}

// Log returns the ordered operations performed, e.g. "open support".
func (c *Channel) Log() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.log...)
}

// IsOpen reports whether any conversation is currently open.
func (c *Channel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

func (c *Channel) Send(ctx context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check("send"); err != nil {
		return err
	}
	c.current.sent = append(c.current.sent, text)
	c.current.armed = c.clock.Now()
	c.log = append(c.log, "send "+c.current.id)
	return nil
}

func (c *Channel) SendLines(ctx context.Context, lines []string) error {
	return c.Send(ctx, strings.Join(lines, "\n"))
}

func (c *Channel) InboundCount(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check("inbound count"); err != nil {
		return 0, err
	}
	c.deliver()
	return len(c.current.inbound), nil
}

func (c *Channel) LatestInbound(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check("latest inbound"); err != nil {
		return "", err
	}
	c.deliver()
	if len(c.current.inbound) == 0 {
		return "", apperrors.NewChannelError("latest inbound", errors.New("no inbound messages"))
	}
	return c.current.inbound[len(c.current.inbound)-1], nil
}

func (c *Channel) OpenConversation(ctx context.Context, target string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("open"); err != nil {
		return err
	}
	for _, conv := range c.convs {
		if conv.id == target || conv.peer == target {
			c.current = conv
			conv.opened++
			c.log = append(c.log, "open "+conv.id)
			return nil
		}
	}
	return apperrors.NewNotFound("conversation", map[string]any{"target": target})
}

func (c *Channel) CloseConversation(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check("close"); err != nil {
		return err
	}
	c.current.closed++
	c.log = append(c.log, "close "+c.current.id)
	c.current = nil
	return nil
}

func (c *Channel) PeerIdentity(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check("peer identity"); err != nil {
		return "", err
	}
	return c.current.peer, nil
}

func (c *Channel) HasUnread(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("has unread"); err != nil {
		return false, err
	}
	return len(c.unread) > 0, nil
}

func (c *Channel) SelectFirstUnread(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("select unread"); err != nil {
		return false, err
	}
	if len(c.unread) == 0 {
		return false, nil
	}
	id := c.unread[0]
	c.unread = c.unread[1:]
	conv := c.convs[id]
	conv.opened++
	conv.armed = c.clock.Now()
	c.current = conv
	c.log = append(c.log, "open "+id)
	return true, nil
}

// deliver moves at most one due scripted reply into the inbound list.
func (c *Channel) deliver() {
	conv := c.current
	if len(conv.pending) == 0 {
		return
	}
	now := c.clock.Now()
	next := conv.pending[0]
	if !now.After(conv.armed.Add(next.After)) {
		return
	}
	conv.inbound = append(conv.inbound, next.Text)
	conv.pending = conv.pending[1:]
	conv.armed = now
}

func (c *Channel) check(op string) error {
	if err := c.fail(op); err != nil {
		return err
	}
	if c.current == nil {
		return apperrors.NewChannelError(op, errors.New("no open conversation"))
	}
	return nil
}

func (c *Channel) fail(op string) error {
	if c.Fail == nil {
		return nil
	}
	if err := c.Fail(op); err != nil {
		return apperrors.NewChannelError(op, err)
	}
	return nil
}
