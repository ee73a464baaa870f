package intake

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/spec-kit/support-bot/internal/domain"
)

// existingIssue lets the contact pick one of their open tickets and asks
// the support team for an update on it. A selection must equal a listed
// ref exactly, "#" included. contact is a fresh read of the peer
// identity, not the one captured when the conversation opened.
func (s *session) existingIssue(ctx context.Context, contact string) domain.Outcome {
	s.logger = s.logger.With(zap.String("flow", "existing_issue"))
	d := newDialogue(s.logger, stepLookup)
	refs, err := s.store.OpenTicketRefs(ctx, contact)
	if err != nil {
		s.logger.Error("lookup open tickets failed", zap.Error(err))
		s.finish(ctx, s.script.LookupFailed)
		return domain.OutcomeLookupFailed
	}
	if len(refs) == 0 {
		s.logger.Info("no open tickets", zap.String("contact", contact))
		s.finish(ctx, s.script.NoOpenTickets)
		return domain.OutcomeNoOpenTickets
	}

	d.enter(stepSelectTicket)
	s.send(ctx, withTicketList(s.script.TicketList, refs))
	for {
		reply, ok := s.waiter.WaitForReply(ctx, s.limits.SelectionTimeout)
		if ctx.Err() != nil {
			return s.interrupted()
		}
		if !ok || isExit(reply) {
			s.logger.Info("ticket selection cancelled", zap.Bool("timed_out", !ok))
			s.finish(ctx, s.script.Cancelled)
			return domain.OutcomeCancelled
		}
		if slices.Contains(refs, reply) {
			s.logger.Info("update requested", zap.String("ticket", reply))
			s.send(ctx, withTicket(s.script.SelectionAccepted, reply))
			s.close(ctx)
			s.notify(ctx, domain.Summary{
				Kind:      domain.SummaryUpdateRequest,
				Contact:   contact,
				TicketRef: reply,
			})
			return domain.OutcomeUpdateRequested
		}
		d.retries++
		if d.retries >= s.limits.MaxRetries {
			s.logger.Info("ticket selection retries exhausted")
			s.finish(ctx, s.script.SelectionFailed)
			return domain.OutcomeRetriesExhausted
		}
		s.send(ctx, withAttempts(s.script.SelectionRetry, s.limits.MaxRetries-d.retries))
	}
}
