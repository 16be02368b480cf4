// Package event records campaign lifecycle events for the activity log.
package event

import (
	"context"
	"time"

	"github.com/openraise/fundraising/internal/fundraising/storage"
)

// Lifecycle event kinds.
const (
	KindCampaignCreated   = "campaign_created"
	KindPledgeRecorded    = "pledge_recorded"
	KindCampaignSucceeded = "campaign_succeeded"
	KindCampaignFailed    = "campaign_failed"
	KindCampaignRefunded  = "campaign_refunded"
)

// Emitter appends lifecycle events to an event store.
type Emitter struct {
	store storage.EventStore
	clock func() time.Time
}

// NewEmitter creates an emitter over the provided store.
func NewEmitter(store storage.EventStore) *Emitter {
	return &Emitter{store: store, clock: time.Now}
}

// NewEmitterWithClock creates an emitter with an injected clock.
func NewEmitterWithClock(store storage.EventStore, clock func() time.Time) *Emitter {
	if clock == nil {
		clock = time.Now
	}
	return &Emitter{store: store, clock: clock}
}

// Emit records one event, stamping a missing timestamp from the emitter
// clock. It is a no-op when the emitter has no store.
func (e *Emitter) Emit(ctx context.Context, evt storage.Event) error {
	if e == nil || e.store == nil {
		return nil
	}
	if evt.Timestamp.IsZero() {
		clock := e.clock
		if clock == nil {
			clock = time.Now
		}
		evt.Timestamp = clock().UTC()
	}
	return e.store.AppendEvent(ctx, evt)
}
