// Package redisbridge implements domain.Channel over Redis. A browser
// sidecar owns the chat client: it mirrors chat state into Redis and
// executes the commands the bot queues.
//
// Keys, all under a configurable prefix p:
//
//	p:unread              list of conversation ids with unread messages
//	p:chat:<id>:peer      peer identity shown in the conversation header
//	p:chat:<id>:inbound   list of inbound message texts, oldest first
//	p:directory           hash of identity -> conversation id
//	p:commands            list of JSON commands for the sidecar
package redisbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/support-bot/internal/clock"
	apperrors "github.com/spec-kit/support-bot/pkg/errorutil"
)

// Command actions understood by the sidecar.
const (
	ActionOpen  = "open"
	ActionSend  = "send"
	ActionClose = "close"
)

// Command is one instruction queued for the sidecar.
type Command struct {
	ID           string `json:"id"`
	Conversation string `json:"conversation"`
	Action       string `json:"action"`
	Text         string `json:"text,omitempty"`
	// Lines are typed as soft line breaks inside a single message.
	Lines []string  `json:"lines,omitempty"`
	At    time.Time `json:"at"`
}

// Channel is a domain.Channel backed by Redis.
type Channel struct {
	client *redis.Client
	prefix string
	clock  clock.Clock

	mu      sync.Mutex
	current string
}

// New creates a bridge using keys under prefix.
func New(client *redis.Client, prefix string, clk clock.Clock) *Channel {
	return &Channel{client: client, prefix: prefix, clock: clk}
}

func (c *Channel) key(parts ...string) string {
	k := c.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

func (c *Channel) chatKey(id, field string) string {
	return c.key("chat", id, field)
}

func (c *Channel) conversation(op string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == "" {
		return "", apperrors.NewChannelError(op, errors.New("no open conversation"))
	}
	return c.current, nil
}

func (c *Channel) setCurrent(id string) {
	c.mu.Lock()
	c.current = id
	c.mu.Unlock()
}

func (c *Channel) push(ctx context.Context, op string, cmd Command) error {
	cmd.ID = uuid.NewString()
	cmd.At = c.clock.Now().UTC()
	payload, err := json.Marshal(cmd)
	if err != nil {
		return apperrors.NewChannelError(op, fmt.Errorf("encode command: %w", err))
	}
	if err := c.client.RPush(ctx, c.key("commands"), payload).Err(); err != nil {
		return apperrors.NewChannelError(op, err)
	}
	return nil
}

func (c *Channel) Send(ctx context.Context, text string) error {
	id, err := c.conversation("send")
	if err != nil {
		return err
	}
	return c.push(ctx, "send", Command{Conversation: id, Action: ActionSend, Text: text})
}

func (c *Channel) SendLines(ctx context.Context, lines []string) error {
	id, err := c.conversation("send lines")
	if err != nil {
		return err
	}
	return c.push(ctx, "send lines", Command{Conversation: id, Action: ActionSend, Lines: lines})
}

func (c *Channel) InboundCount(ctx context.Context) (int, error) {
	id, err := c.conversation("inbound count")
	if err != nil {
		return 0, err
	}
	n, err := c.client.LLen(ctx, c.chatKey(id, "inbound")).Result()
	if err != nil {
		return 0, apperrors.NewChannelError("inbound count", err)
	}
	return int(n), nil
}

func (c *Channel) LatestInbound(ctx context.Context) (string, error) {
	id, err := c.conversation("latest inbound")
	if err != nil {
		return "", err
	}
	text, err := c.client.LIndex(ctx, c.chatKey(id, "inbound"), -1).Result()
	if errors.Is(err, redis.Nil) {
		return "", apperrors.NewChannelError("latest inbound", errors.New("no inbound messages"))
	}
	if err != nil {
		return "", apperrors.NewChannelError("latest inbound", err)
	}
	return text, nil
}

// OpenConversation resolves target through the directory, falling back
// to treating it as a conversation id.
func (c *Channel) OpenConversation(ctx context.Context, target string) error {
	id, err := c.client.HGet(ctx, c.key("directory"), target).Result()
	switch {
	case errors.Is(err, redis.Nil):
		n, err := c.client.Exists(ctx, c.chatKey(target, "peer")).Result()
		if err != nil {
			return apperrors.NewChannelError("open", err)
		}
		if n == 0 {
			return apperrors.NewNotFound("conversation", map[string]any{"target": target})
		}
		id = target
	case err != nil:
		return apperrors.NewChannelError("open", err)
	}
	if err := c.push(ctx, "open", Command{Conversation: id, Action: ActionOpen}); err != nil {
		return err
	}
	c.setCurrent(id)
	return nil
}

func (c *Channel) CloseConversation(ctx context.Context) error {
	id, err := c.conversation("close")
	if err != nil {
		return err
	}
	c.setCurrent("")
	return c.push(ctx, "close", Command{Conversation: id, Action: ActionClose})
}

func (c *Channel) PeerIdentity(ctx context.Context) (string, error) {
	id, err := c.conversation("peer identity")
	if err != nil {
		return "", err
	}
	peer, err := c.client.Get(ctx, c.chatKey(id, "peer")).Result()
	if errors.Is(err, redis.Nil) {
		return "", apperrors.NewChannelError("peer identity", errors.New("peer not published"))
	}
	if err != nil {
		return "", apperrors.NewChannelError("peer identity", err)
	}
	return peer, nil
}

func (c *Channel) HasUnread(ctx context.Context) (bool, error) {
	n, err := c.client.LLen(ctx, c.key("unread")).Result()
	if err != nil {
		return false, apperrors.NewChannelError("has unread", err)
	}
	return n > 0, nil
}

// SelectFirstUnread pops the oldest unread conversation and opens it.
func (c *Channel) SelectFirstUnread(ctx context.Context) (bool, error) {
	id, err := c.client.LPop(ctx, c.key("unread")).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewChannelError("select unread", err)
	}
	if err := c.push(ctx, "select unread", Command{Conversation: id, Action: ActionOpen}); err != nil {
		return false, err
	}
	c.setCurrent(id)
	return true, nil
}
