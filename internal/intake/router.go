// Package intake runs the support intake dialogue over a domain.Channel:
// the intent menu, the new-issue flow and the existing-issue flow.
package intake

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-bot/internal/clock"
	"github.com/spec-kit/support-bot/internal/domain"
	"github.com/spec-kit/support-bot/internal/observability"
)

const exitWord = "exit"

// TicketStore is the slice of ticket persistence the dialogue needs.
type TicketStore interface {
	CreateTicket(ctx context.Context, contact string, category domain.Category, description string) (*domain.Ticket, error)
	// OpenTicketRefs lists the contact's Ongoing tickets as "#NNN" refs
	// in ascending ticket order.
	OpenTicketRefs(ctx context.Context, contact string) ([]string, error)
}

// Notifier relays a summary to the support team.
type Notifier interface {
	Notify(ctx context.Context, summary domain.Summary) error
}

// RouterDependencies bundles collaborators for the router.
type RouterDependencies struct {
	Channel  domain.Channel
	Store    TicketStore
	Notifier Notifier
	Clock    clock.Clock
	Logger   *zap.Logger
	Script   Script
	Limits   Limits
	// Ignore lists peer identities that are closed without a reply.
	Ignore []string
}

// Router classifies a freshly opened conversation and dispatches it.
type Router struct {
	channel  domain.Channel
	store    TicketStore
	notifier Notifier
	clock    clock.Clock
	waiter   *ReplyWaiter
	script   Script
	limits   Limits
	ignore   map[string]struct{}
	logger   *zap.Logger
}

// NewRouter wires a Router. Zero Limits fields take their defaults and an
// empty Script falls back to DefaultScript.
func NewRouter(deps RouterDependencies) *Router {
	limits := deps.Limits.withDefaults()
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	script := deps.Script
	if len(script.Categories) == 0 {
		script = DefaultScript()
	}
	ignore := make(map[string]struct{}, len(deps.Ignore))
	for _, id := range deps.Ignore {
		if id = strings.TrimSpace(id); id != "" {
			ignore[id] = struct{}{}
		}
	}
	return &Router{
		channel:  deps.Channel,
		store:    deps.Store,
		notifier: deps.Notifier,
		clock:    clk,
		waiter:   NewReplyWaiter(deps.Channel, clk, limits.PollInterval, logger),
		script:   script,
		limits:   limits,
		ignore:   ignore,
		logger:   logger,
	}
}

// HandleConversation runs the dialogue on the currently open conversation
// until it reaches a terminal outcome. The conversation is closed on every
// path except OutcomeInterrupted.
func (r *Router) HandleConversation(ctx context.Context) domain.Outcome {
	intakeID := uuid.NewString()
	s := &session{Router: r}

	peer, err := r.channel.PeerIdentity(ctx)
	s.peer = strings.TrimSpace(peer)
	s.logger = observability.IntakeLogger(r.logger, intakeID, s.peer)
	if err != nil {
		s.logger.Warn("read peer identity failed", zap.Error(err))
	}

	if r.ignored(s.peer) {
		s.logger.Info("ignoring conversation")
		s.close(ctx)
		return domain.OutcomeIgnored
	}

	s.logger.Info("sending intent menu")
	s.send(ctx, r.script.IntentMenu)

	d := newDialogue(s.logger, stepAwaitIntent)
	entered := r.clock.Now()
	for {
		reply, ok := s.waiter.WaitForReply(ctx, r.limits.MenuTimeout)
		if ctx.Err() != nil {
			return s.interrupted()
		}
		if !ok {
			if r.clock.Now().Sub(entered) >= r.limits.AbandonAfter {
				return s.abandon(ctx)
			}
			continue
		}

		switch {
		case isExit(reply):
			s.logger.Info("conversation exited due to user request")
			s.finish(ctx, r.script.Cancelled)
			return domain.OutcomeCancelled
		case reply == "1":
			s.logger.Info("new issue report")
			return s.newIssue(ctx)
		case reply == "2":
			s.logger.Info("existing issue update")
			return s.existingIssue(ctx, s.contact(ctx))
		}

		d.retries++
		if d.retries < r.limits.MaxRetries {
			s.send(ctx, withAttempts(r.script.IntentRetry, r.limits.MaxRetries-d.retries))
			continue
		}
		s.logger.Info("intent retries exhausted")
		s.finish(ctx, r.script.IntentFailed)
		return domain.OutcomeRetriesExhausted
	}
}

func (r *Router) ignored(peer string) bool {
	_, ok := r.ignore[peer]
	return ok
}

// session carries per-conversation state shared by the flows.
type session struct {
	*Router
	peer   string
	logger *zap.Logger
}

// send delivers text, logging failures. Flows continue along their
// defined path whether or not the send succeeded.
func (s *session) send(ctx context.Context, text string) {
	if err := s.channel.Send(ctx, text); err != nil {
		s.logger.Warn("send failed", zap.Error(err))
	}
}

func (s *session) close(ctx context.Context) {
	if err := s.channel.CloseConversation(ctx); err != nil {
		s.logger.Warn("close conversation failed", zap.Error(err))
	}
}

// finish sends a final message and closes the conversation.
func (s *session) finish(ctx context.Context, text string) {
	s.send(ctx, text)
	s.close(ctx)
}

func (s *session) abandon(ctx context.Context) domain.Outcome {
	s.logger.Info("no reply within budget, abandoning conversation")
	s.finish(ctx, s.script.Inactive)
	return domain.OutcomeAbandoned
}

func (s *session) interrupted() domain.Outcome {
	s.logger.Info("conversation interrupted by shutdown")
	return domain.OutcomeInterrupted
}

// contact re-reads the peer identity, which may have changed display
// form since the conversation opened.
func (s *session) contact(ctx context.Context) string {
	identity, err := s.channel.PeerIdentity(ctx)
	if err != nil {
		s.logger.Warn("re-read peer identity failed", zap.Error(err))
		return s.peer
	}
	if identity = strings.TrimSpace(identity); identity != "" {
		return identity
	}
	return s.peer
}

func (s *session) notify(ctx context.Context, summary domain.Summary) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, summary); err != nil {
		s.logger.Error("notify support failed", zap.Error(err))
	}
}

func isExit(reply string) bool {
	return normalize(reply) == exitWord
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
