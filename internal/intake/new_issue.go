package intake

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/support-bot/internal/domain"
)

// newIssue collects a category and a description, creates the ticket and
// escalates to the support team. A ticket store failure still escalates.
func (s *session) newIssue(ctx context.Context) domain.Outcome {
	s.logger = s.logger.With(zap.String("flow", "new_issue"))
	d := newDialogue(s.logger, stepCategory)
	s.send(ctx, s.script.CategoryMenu)

	entered := s.clock.Now()
	for d.category == "" {
		reply, ok := s.waiter.WaitForReply(ctx, s.limits.MenuTimeout)
		if ctx.Err() != nil {
			return s.interrupted()
		}
		if !ok {
			if s.clock.Now().Sub(entered) >= s.limits.AbandonAfter {
				return s.abandon(ctx)
			}
			continue
		}
		if isExit(reply) {
			s.logger.Info("conversation exited due to user request")
			s.finish(ctx, s.script.Cancelled)
			return domain.OutcomeCancelled
		}
		if category, ok := s.script.Category(reply); ok {
			d.category = category
			break
		}
		d.retries++
		if d.retries >= s.limits.MaxRetries {
			s.logger.Info("category retries exhausted")
			s.finish(ctx, s.script.CategoryFailed)
			return domain.OutcomeRetriesExhausted
		}
		s.send(ctx, withAttempts(s.script.CategoryRetry, s.limits.MaxRetries-d.retries))
	}
	s.logger.Info("category selected", zap.String("category", string(d.category)))

	d.enter(stepDescription)
	s.send(ctx, s.script.DescriptionPrompt)
	description, ok := s.waiter.WaitForReply(ctx, s.limits.DescriptionTimeout)
	if ctx.Err() != nil {
		return s.interrupted()
	}
	if !ok || description == "" {
		s.send(ctx, s.script.DescriptionMissing)
		description = NoDescription
	}
	d.description = description

	d.enter(stepTicketCreate)
	contact := s.contact(ctx)
	summary := domain.Summary{
		Kind:        domain.SummaryIncident,
		Contact:     contact,
		Category:    d.category,
		Description: d.description,
	}
	outcome := domain.OutcomeTicketCreated
	ticket, err := s.store.CreateTicket(ctx, contact, d.category, d.description)
	if err != nil {
		s.logger.Error("create ticket failed", zap.Error(err))
		s.send(ctx, s.script.TicketFailed)
		outcome = domain.OutcomeTicketFailed
	} else {
		summary.TicketRef = ticket.Ref()
		s.logger.Info("ticket created", zap.String("ticket", summary.TicketRef))
		s.send(ctx, withTicket(s.script.TicketCreated, summary.TicketRef))
	}

	d.enter(stepNotify)
	s.close(ctx)
	s.notify(ctx, summary)
	return outcome
}
