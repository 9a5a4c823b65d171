// Package events provides an in-process bus that fans domain events out to
// registered notifiers such as structured logs and metrics.
package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Event is one emitted domain occurrence.
type Event struct {
	Topic      string
	Subject    string
	Payload    any
	OccurredAt time.Time
}

// Notifier reacts to emitted events.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Bus dispatches events to all configured notifiers. Notifier failures are
// joined and reported but never block the emitting operation.
type Bus struct {
	Notifiers []Notifier
	Now       func() time.Time
}

// Emit delivers the event to every notifier.
func (b *Bus) Emit(ctx context.Context, topic, subject string, payload any) error {
	if b == nil {
		return nil
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return errors.New("events: topic is required")
	}
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	ev := Event{Topic: topic, Subject: subject, Payload: payload, OccurredAt: now().UTC()}
	var joined error
	for _, n := range b.Notifiers {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			joined = errors.Join(joined, fmt.Errorf("events: notifier: %w", err))
		}
	}
	return joined
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, event Event) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, event Event) error {
	return f(ctx, event)
}
