package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"salescompagent/models"

	"github.com/hibiken/asynq"
)

const TypeReminderSend = "reminder:send"

// reminderLead is how long before the slot start the reminder fires.
const reminderLead = time.Hour

// ScheduleReminder queues a consultation reminder ahead of the booked slot.
// Bookings starting too soon for the lead time get the reminder immediately.
func (c *Client) ScheduleReminder(ctx context.Context, booking *models.Booking) error {
	payload := models.ReminderPayload{
		SessionID: booking.SessionID,
		Attendee:  booking.Attendee,
		Slot:      booking.Slot,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal reminder payload: %w", err)
	}

	fireAt := booking.Slot.Start.Add(-reminderLead)
	opts := []asynq.Option{}
	if fireAt.After(time.Now()) {
		opts = append(opts, asynq.ProcessAt(fireAt))
	}
	if _, err := c.inner.EnqueueContext(ctx, asynq.NewTask(TypeReminderSend, b), opts...); err != nil {
		return fmt.Errorf("failed to enqueue reminder task: %w", err)
	}
	return nil
}
