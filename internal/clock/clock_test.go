package clock

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFakeSleepAdvancesTime(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	c := Fake(start)
	if err := c.Sleep(context.Background(), 30*time.Second); err != nil {
		t.Fatalf("sleep: %v", err)
	}
	c.Advance(5 * time.Second)
	if got := c.Now().Sub(start); got != 35*time.Second {
		t.Fatalf("elapsed mismatch: got=%s want=35s", got)
	}
	if c.Slept() != 30*time.Second {
		t.Fatalf("slept mismatch: got=%s want=30s", c.Slept())
	}
}

func TestFakeSleepHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	c := Fake(time.Unix(0, 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Sleep(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !c.Now().Equal(time.Unix(0, 0)) {
		t.Fatalf("clock moved after cancelled sleep")
	}
}

func TestRealSleepCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Real().Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
