package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/spec-kit/support-bot/internal/clock"
	"github.com/spec-kit/support-bot/internal/domain"
	"github.com/spec-kit/support-bot/internal/events"
)

// SlackConfig configures the webhook mirror.
type SlackConfig struct {
	WebhookURL    string
	Timeout       time.Duration
	RetryAttempts int
}

// SlackMirror copies every escalation to a Slack incoming webhook.
type SlackMirror struct {
	webhookURL    string
	httpClient    *http.Client
	retryAttempts int
	clock         clock.Clock
	logger        *zap.Logger
}

// NewSlackMirror builds a mirror. Zero timeout or attempts take defaults.
func NewSlackMirror(cfg SlackConfig, clk clock.Clock, logger *zap.Logger) *SlackMirror {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	return &SlackMirror{
		webhookURL:    cfg.WebhookURL,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		retryAttempts: cfg.RetryAttempts,
		clock:         clk,
		logger:        logger,
	}
}

// Send posts the summary, retrying with quadratic backoff.
func (s *SlackMirror) Send(ctx context.Context, summary domain.Summary) error {
	msg := webhookMessage(summary)

	var lastErr error
	for attempt := 0; attempt < s.retryAttempts; attempt++ {
		if attempt > 0 {
			if err := s.clock.Sleep(ctx, time.Duration(attempt*attempt)*time.Second); err != nil {
				return err
			}
		}
		err := slack.PostWebhookCustomHTTPContext(ctx, s.webhookURL, s.httpClient, msg)
		if err == nil {
			return nil
		}
		lastErr = err
		s.logger.Warn("slack webhook attempt failed", zap.Int("attempt", attempt+1), zap.Error(err))
		var status slack.StatusCodeError
		if errors.As(err, &status) && status.Code >= 400 && status.Code < 500 && status.Code != http.StatusTooManyRequests {
			break
		}
	}
	return fmt.Errorf("slack webhook failed after %d attempts: %w", s.retryAttempts, lastErr)
}

// Handle adapts Send to an events.EventHandler.
func (s *SlackMirror) Handle(ctx context.Context, event events.Event) error {
	return s.Send(ctx, event.Summary)
}

func webhookMessage(summary domain.Summary) *slack.WebhookMessage {
	text := summary.Text()
	return &slack.WebhookMessage{
		Text: text,
		Blocks: &slack.Blocks{BlockSet: []slack.Block{
			slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil),
		}},
	}
}
