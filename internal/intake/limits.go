package intake

import (
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-bot/internal/domain"
)

// Limits bounds every wait and retry in the dialogue.
type Limits struct {
	// MaxRetries is the per-step budget of invalid replies.
	MaxRetries         int
	MenuTimeout        time.Duration
	DescriptionTimeout time.Duration
	SelectionTimeout   time.Duration
	// AbandonAfter is the overall no-reply budget of a menu step.
	AbandonAfter time.Duration
	PollInterval time.Duration
}

// DefaultLimits returns the production limits.
func DefaultLimits() Limits {
	return Limits{
		MaxRetries:         3,
		MenuTimeout:        30 * time.Second,
		DescriptionTimeout: 90 * time.Second,
		SelectionTimeout:   40 * time.Second,
		AbandonAfter:       60 * time.Second,
		PollInterval:       2 * time.Second,
	}
}

// withDefaults fills unset fields from DefaultLimits. PollInterval is
// also capped at the default so a reply is seen within two seconds.
func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxRetries <= 0 {
		l.MaxRetries = d.MaxRetries
	}
	if l.MenuTimeout <= 0 {
		l.MenuTimeout = d.MenuTimeout
	}
	if l.DescriptionTimeout <= 0 {
		l.DescriptionTimeout = d.DescriptionTimeout
	}
	if l.SelectionTimeout <= 0 {
		l.SelectionTimeout = d.SelectionTimeout
	}
	if l.AbandonAfter <= 0 {
		l.AbandonAfter = d.AbandonAfter
	}
	if l.PollInterval <= 0 || l.PollInterval > d.PollInterval {
		l.PollInterval = d.PollInterval
	}
	return l
}

type step string

const (
	stepAwaitIntent  step = "await_intent"
	stepCategory     step = "category_prompt"
	stepDescription  step = "description_prompt"
	stepTicketCreate step = "ticket_create"
	stepNotify       step = "notify"
	stepLookup       step = "lookup"
	stepSelectTicket step = "select_ticket"
)

// dialogue is the state of one flow. It never outlives the flow that
// created it.
type dialogue struct {
	step        step
	retries     int
	category    domain.Category
	description string
	logger      *zap.Logger
}

func newDialogue(logger *zap.Logger, first step) *dialogue {
	d := &dialogue{logger: logger}
	d.enter(first)
	return d
}

// enter moves to s with a fresh retry budget.
func (d *dialogue) enter(s step) {
	d.step = s
	d.retries = 0
	d.logger.Debug("dialogue step", zap.String("step", string(s)))
}
