package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"salescompagent/models"

	"github.com/hibiken/asynq"
)

const TypeIntakeSend = "intake:send"

// SendIntakeForm queues the consultation intake form for the attendee. It is
// enqueued immediately; delivery happens in the background worker.
func (c *Client) SendIntakeForm(ctx context.Context, booking *models.Booking) error {
	payload := models.IntakePayload{
		SessionID: booking.SessionID,
		Attendee:  booking.Attendee,
		Slot:      booking.Slot,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal intake payload: %w", err)
	}
	if _, err := c.inner.EnqueueContext(ctx, asynq.NewTask(TypeIntakeSend, b)); err != nil {
		return fmt.Errorf("failed to enqueue intake task: %w", err)
	}
	return nil
}
