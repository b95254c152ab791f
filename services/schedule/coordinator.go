package schedule

import (
	"context"
	"fmt"
	"time"

	"salescompagent/models"
	"salescompagent/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BookingCoordinator turns a chosen slot into a single confirmed calendar
// event. Each attempt runs the protocol Requested -> Reverified ->
// Confirmed | Conflicted under the per-calendar lock.
type BookingCoordinator struct {
	Calendar   CalendarGateway
	Locks      CalendarLocker
	Sessions   SessionSaver
	Records    BookingRecorder
	Auth       *TimeAuthority
	CalendarID string
}

// BookingRecorder persists confirmed bookings for audit; implemented by the
// Mongo booking repository. Recording failures never undo a confirmed event.
type BookingRecorder interface {
	Insert(ctx context.Context, booking *models.Booking) error
}

// Book reserves the chosen slot for the session. A session may hold at most
// one non-failed booking; a second call is rejected with
// ErrBookingAlreadyExists instead of creating a duplicate event.
func (c *BookingCoordinator) Book(ctx context.Context, session *models.Session, chosen models.Slot) (*models.Booking, error) {
	logger := utils.GetLogger()

	if existing := session.ActiveBooking(); existing != nil {
		return nil, fmt.Errorf("%w: booking %s is %s", ErrBookingAlreadyExists, existing.ID, existing.Status)
	}

	start := c.Auth.In(chosen.Start)
	end := c.Auth.In(chosen.End)
	if !start.Before(end) {
		return nil, ErrInvalidWindow
	}

	booking := &models.Booking{
		ID:         uuid.New().String(),
		SessionID:  session.ID,
		Slot:       models.Slot{Start: start, End: end},
		CalendarID: c.CalendarID,
		Attendee:   session.Attendee,
		Status:     models.BookingPending,
		CreatedAt:  time.Now(),
	}

	// The pending booking must be durable before any external call: a retried
	// step then hits the ActiveBooking guard instead of double-booking.
	session.Booking = booking
	if err := c.Sessions.Save(ctx, session); err != nil {
		session.Booking = nil
		return nil, fmt.Errorf("failed to persist pending booking: %w", err)
	}

	release, err := c.Locks.Acquire(ctx, c.CalendarID)
	if err != nil {
		return nil, c.fail(ctx, session, booking, fmt.Errorf("%w: lock: %v", ErrCalendarUnavailable, err))
	}
	defer release()

	// Reverify: the busy state may have changed between slot display and user
	// confirmation.
	busy, err := c.Calendar.ListBusy(ctx, c.CalendarID, start, end)
	if err != nil {
		return nil, c.fail(ctx, session, booking, err)
	}
	for _, b := range busy {
		if c.normalized(b).Overlaps(start, end) {
			logger.Warn("slot conflicted on reverify",
				zap.String("sessionID", session.ID),
				zap.Time("slotStart", start))
			return nil, c.fail(ctx, session, booking, ErrSlotNoLongerAvailable)
		}
	}

	eventID, err := c.Calendar.CreateEvent(ctx, c.CalendarID, booking.Slot, session.Attendee)
	if err != nil {
		return nil, c.fail(ctx, session, booking, err)
	}

	booking.EventID = eventID
	booking.Status = models.BookingConfirmed
	if err := c.Sessions.Save(ctx, session); err != nil {
		// The event exists; losing the session write must not orphan it
		// silently.
		logger.Error("failed to persist confirmed booking",
			zap.String("bookingID", booking.ID),
			zap.String("eventID", eventID),
			zap.Error(err))
	}

	if c.Records != nil {
		if err := c.Records.Insert(ctx, booking); err != nil {
			logger.Error("failed to record confirmed booking",
				zap.String("bookingID", booking.ID), zap.Error(err))
		}
	}

	logger.Info("booking confirmed",
		zap.String("sessionID", session.ID),
		zap.String("bookingID", booking.ID),
		zap.String("eventID", eventID))
	return booking, nil
}

func (c *BookingCoordinator) normalized(b models.BusyInterval) models.BusyInterval {
	return models.BusyInterval{Start: c.Auth.In(b.Start), End: c.Auth.In(b.End)}
}

// fail marks the attempt failed, persists it, and passes the cause through.
func (c *BookingCoordinator) fail(ctx context.Context, session *models.Session, booking *models.Booking, cause error) error {
	booking.Status = models.BookingFailed
	if err := c.Sessions.Save(ctx, session); err != nil {
		utils.GetLogger().Error("failed to persist failed booking",
			zap.String("bookingID", booking.ID), zap.Error(err))
	}
	return cause
}
