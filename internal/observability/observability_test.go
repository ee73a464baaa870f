package observability

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/support-bot/internal/config"
	"github.com/spec-kit/support-bot/internal/domain"
)

func TestMetricsSnapshotIsACopy(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	m := NewMetrics(start)
	m.RecordPoll()
	m.RecordOutcome(domain.OutcomeCancelled, start.Add(time.Minute))
	m.RecordError("poll", "CHANNEL_ERROR")

	snap := m.Snapshot()
	snap.Outcomes[domain.OutcomeCancelled] = 99

	again := m.Snapshot()
	if got := again.Outcomes[domain.OutcomeCancelled]; got != 1 {
		t.Fatalf("outcome count got=%d want=%d", got, 1)
	}
	if again.Polls != 1 || again.Errors["poll|CHANNEL_ERROR"] != 1 {
		t.Fatalf("unexpected snapshot: %+v", again)
	}
	if again.LastIntake == nil || !again.LastIntake.Equal(start.Add(time.Minute)) {
		t.Fatalf("last intake got=%v", again.LastIntake)
	}
}

func TestNilMetricsIgnoresRecords(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.RecordPoll()
	m.RecordOutcome(domain.OutcomeIgnored, time.Now())
	m.RecordError("poll", "INTERNAL_ERROR")
}

func TestNewLoggerLevel(t *testing.T) {
	t.Parallel()

	fallback, err := NewLogger(config.LoggerConfig{Level: "loud"}, config.AppConfig{Name: "support-bot"})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if fallback.Core().Enabled(zapcore.DebugLevel) || !fallback.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("unknown level should fall back to info")
	}

	debug, err := NewLogger(config.LoggerConfig{Level: "DEBUG"}, config.AppConfig{Name: "support-bot", Env: "production"})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if !debug.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("debug level not enabled")
	}
}

func TestIntakeLoggerFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	IntakeLogger(zap.New(core).Named("support-bot"), "abc-123", "Jane").Info("sending intent menu")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries got=%d want=%d", len(entries), 1)
	}
	if entries[0].LoggerName != "support-bot.intake" {
		t.Fatalf("logger name got=%q", entries[0].LoggerName)
	}
	fields := entries[0].ContextMap()
	if fields["intake_id"] != "abc-123" || fields["peer"] != "Jane" {
		t.Fatalf("unexpected fields: %v", fields)
	}
}
