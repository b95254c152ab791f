package schedule

import (
	"context"
	"time"

	"salescompagent/models"
)

// CalendarGateway is the thin boundary to the shared calendar provider.
// Implemented by services/calendar. It holds no scheduling logic of its own.
type CalendarGateway interface {
	// ListBusy returns the occupied intervals inside [start, end), ordered by
	// start time.
	ListBusy(ctx context.Context, calendarID string, start, end time.Time) ([]models.BusyInterval, error)
	// CreateEvent books the slot and returns the provider's event ID.
	CreateEvent(ctx context.Context, calendarID string, slot models.Slot, attendee *models.Attendee) (string, error)
}

// CalendarLocker serializes the reverify-then-create sequence per target
// calendar. Without it two sessions racing on the same slot could both
// observe "free" and both create events.
type CalendarLocker interface {
	// Acquire blocks until the calendar lock is held or ctx expires; the
	// returned function releases it.
	Acquire(ctx context.Context, calendarID string) (func(), error)
}

// SessionSaver persists the session between the durable state change and the
// external call, so a retried step cannot double-fire a side effect.
type SessionSaver interface {
	Save(ctx context.Context, session *models.Session) error
}
