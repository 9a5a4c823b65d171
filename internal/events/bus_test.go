package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEmitReachesAllNotifiers(t *testing.T) {
	var first, second []Event
	bus := &Bus{Notifiers: []Notifier{
		NotifierFunc(func(_ context.Context, e Event) error { first = append(first, e); return nil }),
		NotifierFunc(func(_ context.Context, e Event) error { second = append(second, e); return nil }),
	}}
	if err := bus.Emit(context.Background(), TopicOrderFinalized, "ORD-1", map[string]any{"total": 14175}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected both notifiers to fire, got %d/%d", len(first), len(second))
	}
	if first[0].Subject != "ORD-1" || first[0].Topic != TopicOrderFinalized {
		t.Fatalf("unexpected event %+v", first[0])
	}
}

func TestEmitJoinsNotifierFailures(t *testing.T) {
	boom := errors.New("boom")
	var delivered int
	bus := &Bus{Notifiers: []Notifier{
		NotifierFunc(func(context.Context, Event) error { return boom }),
		NotifierFunc(func(context.Context, Event) error { delivered++; return nil }),
	}}
	err := bus.Emit(context.Background(), TopicCouponRejected, "SAVE10", nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if delivered != 1 {
		t.Fatal("a failing notifier must not block the others")
	}
}

func TestEmitRequiresTopic(t *testing.T) {
	bus := &Bus{}
	if err := bus.Emit(context.Background(), "  ", "x", nil); err == nil {
		t.Fatal("expected error for empty topic")
	}
}

func TestEmitStampsTime(t *testing.T) {
	fixed := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	var got Event
	bus := &Bus{
		Now:       func() time.Time { return fixed },
		Notifiers: []Notifier{NotifierFunc(func(_ context.Context, e Event) error { got = e; return nil })},
	}
	if err := bus.Emit(context.Background(), TopicCouponRejected, "SAVE100", nil); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if !got.OccurredAt.Equal(fixed) {
		t.Fatalf("expected %v, got %v", fixed, got.OccurredAt)
	}
}
