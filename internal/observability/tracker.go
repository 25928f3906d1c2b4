// Package observability carries audit events and error capture for the
// plan service. Events are processed asynchronously and never fail the
// operation that emitted them.
package observability

import (
	"context"

	"github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
)

// Event is one audit record. HashedIP is the sha256 of the client
// address, the raw IP never enters the tracker.
type Event struct {
	Name      string
	RequestID string
	HashedIP  string
	UserID    int64
	Meta      map[string]string
}

type Tracker struct {
	events chan Event
	done   chan struct{}

	sentryEnabled bool
}

func NewTracker(sentryEnabled bool) *Tracker {
	t := &Tracker{
		events:        make(chan Event, 128),
		done:          make(chan struct{}),
		sentryEnabled: sentryEnabled,
	}
	go t.run()
	return t
}

func (t *Tracker) run() {
	defer close(t.done)
	for event := range t.events {
		log.WithFields(log.Fields{
			"event":     event.Name,
			"requestId": event.RequestID,
			"hashedIp":  event.HashedIP,
			"userId":    event.UserID,
		}).WithFields(metaFields(event.Meta)).Info("audit event")
	}
}

func metaFields(meta map[string]string) log.Fields {
	fields := make(log.Fields, len(meta))
	for k, v := range meta {
		fields[k] = v
	}
	return fields
}

// Track enqueues the event. When the buffer is full the event is
// dropped rather than blocking the request path.
func (t *Tracker) Track(_ context.Context, event Event) {
	select {
	case t.events <- event:
	default:
		log.Warnf("audit event buffer full, dropping event [%s]", event.Name)
	}
}

// CaptureError reports an unexpected infrastructure failure. The caller
// still wraps and returns the error, capture is diagnostics only.
func (t *Tracker) CaptureError(err error) {
	if err == nil {
		return
	}
	log.Errorf("captured error: %s", err)
	if t.sentryEnabled {
		sentry.CaptureException(err)
	}
}

// Close drains pending events. Used on server shutdown.
func (t *Tracker) Close() {
	close(t.events)
	<-t.done
}
