package domain

import "context"

// Channel is the narrow view of the chat client the bot drives. Only one
// conversation is open at a time; Send, SendLines, InboundCount,
// LatestInbound and PeerIdentity act on it.
type Channel interface {
	Send(ctx context.Context, text string) error
	// SendLines delivers lines as one message, separated by soft line breaks.
	SendLines(ctx context.Context, lines []string) error
	InboundCount(ctx context.Context) (int, error)
	LatestInbound(ctx context.Context) (string, error)
	OpenConversation(ctx context.Context, target string) error
	CloseConversation(ctx context.Context) error
	PeerIdentity(ctx context.Context) (string, error)
	HasUnread(ctx context.Context) (bool, error)
	SelectFirstUnread(ctx context.Context) (bool, error)
}
