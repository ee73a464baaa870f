package intake

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-bot/internal/clock"
	"github.com/spec-kit/support-bot/internal/domain"
)

// ReplyWaiter detects new inbound messages by watching the inbound count
// rather than message text, so a user repeating an earlier reply is still
// seen as a new reply.
type ReplyWaiter struct {
	channel  domain.Channel
	clock    clock.Clock
	interval time.Duration
	logger   *zap.Logger
}

// NewReplyWaiter builds a waiter polling every interval.
func NewReplyWaiter(ch domain.Channel, clk clock.Clock, interval time.Duration, logger *zap.Logger) *ReplyWaiter {
	if interval <= 0 {
		interval = DefaultLimits().PollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplyWaiter{channel: ch, clock: clk, interval: interval, logger: logger}
}

// WaitForReply returns the newest inbound message, trimmed, once the
// inbound count grows past its value at call time. It returns false when
// timeout elapses first or ctx is done. Channel read errors only cost the
// current tick.
func (w *ReplyWaiter) WaitForReply(ctx context.Context, timeout time.Duration) (string, bool) {
	start := w.clock.Now()
	baseline, haveBaseline := w.count(ctx)

	for {
		remaining := timeout - w.clock.Now().Sub(start)
		if remaining <= 0 {
			return "", false
		}
		if err := w.clock.Sleep(ctx, min(w.interval, remaining)); err != nil {
			return "", false
		}
		w.logger.Debug("waiting for user reply")

		n, ok := w.count(ctx)
		if !ok {
			continue
		}
		if !haveBaseline {
			baseline, haveBaseline = n, true
			continue
		}
		if n <= baseline {
			continue
		}
		text, err := w.channel.LatestInbound(ctx)
		if err != nil {
			w.logger.Warn("read latest inbound failed", zap.Error(err))
			continue
		}
		text = strings.TrimSpace(text)
		w.logger.Info("new message detected", zap.String("text", text))
		return text, true
	}
}

func (w *ReplyWaiter) count(ctx context.Context) (int, bool) {
	n, err := w.channel.InboundCount(ctx)
	if err != nil {
		w.logger.Warn("read inbound count failed", zap.Error(err))
		return 0, false
	}
	return n, true
}
