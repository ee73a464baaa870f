package worker

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-bot/internal/clock"
	"github.com/spec-kit/support-bot/internal/domain"
	"github.com/spec-kit/support-bot/internal/observability"
	apperrors "github.com/spec-kit/support-bot/pkg/errorutil"
)

// ConversationHandler runs the dialogue on the open conversation.
type ConversationHandler interface {
	HandleConversation(ctx context.Context) domain.Outcome
}

// PollerDependencies bundles collaborators for the poller.
type PollerDependencies struct {
	Channel    domain.Channel
	Handler    ConversationHandler
	Clock      clock.Clock
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	BackoffMin time.Duration
	BackoffMax time.Duration
	// Rand drives the backoff jitter; nil seeds a fresh source.
	Rand *rand.Rand
}

// Poller scans for unread conversations and hands each one, fully and in
// order, to the handler.
type Poller struct {
	channel    domain.Channel
	handler    ConversationHandler
	clock      clock.Clock
	metrics    *observability.Metrics
	logger     *zap.Logger
	backoffMin time.Duration
	backoffMax time.Duration
	rand       *rand.Rand
}

// NewPoller wires a Poller.
func NewPoller(deps PollerDependencies) *Poller {
	p := &Poller{
		channel:    deps.Channel,
		handler:    deps.Handler,
		clock:      deps.Clock,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		backoffMin: deps.BackoffMin,
		backoffMax: deps.BackoffMax,
		rand:       deps.Rand,
	}
	if p.clock == nil {
		p.clock = clock.Real()
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.backoffMin <= 0 {
		p.backoffMin = 2 * time.Second
	}
	if p.backoffMax < p.backoffMin {
		p.backoffMax = p.backoffMin
	}
	if p.rand == nil {
		p.rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return p
}

// Run polls until ctx is cancelled. Errors and idle scans are followed by
// a random backoff; a handled conversation is followed by an immediate
// rescan.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller started")
	for {
		if ctx.Err() != nil {
			p.logger.Info("poller stopped")
			return nil
		}

		handled, err := p.Poll(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				continue
			}
			p.logger.Error("poll failed", zap.Error(err))
			p.metrics.RecordError("poll", apperrors.CodeOf(err))
		case handled:
			p.logger.Info("checking for more unread messages")
			continue
		default:
			p.logger.Debug("no unread conversations, waiting before next check")
		}

		_ = p.clock.Sleep(ctx, p.backoff())
	}
}

// Poll performs one scan. It reports whether a conversation was handled.
func (p *Poller) Poll(ctx context.Context) (bool, error) {
	p.metrics.RecordPoll()

	has, err := p.channel.HasUnread(ctx)
	if err != nil {
		return false, err
	}
	if !has {
		return false, nil
	}
	selected, err := p.channel.SelectFirstUnread(ctx)
	if err != nil || !selected {
		return false, err
	}

	outcome, err := p.handle(ctx)
	if err != nil {
		return true, err
	}
	p.metrics.RecordOutcome(outcome, p.clock.Now())
	p.logger.Info("conversation finished", zap.String("outcome", string(outcome)))
	return true, nil
}

// handle isolates the poll loop from a panic inside one conversation.
func (p *Poller) handle(ctx context.Context) (outcome domain.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.NewInternalError(fmt.Errorf("conversation handler panic: %v", r))
			if closeErr := p.channel.CloseConversation(ctx); closeErr != nil {
				err = errors.Join(err, closeErr)
			}
		}
	}()
	return p.handler.HandleConversation(ctx), nil
}

func (p *Poller) backoff() time.Duration {
	span := int64(p.backoffMax - p.backoffMin)
	if span <= 0 {
		return p.backoffMin
	}
	return p.backoffMin + time.Duration(p.rand.Int64N(span+1))
}
