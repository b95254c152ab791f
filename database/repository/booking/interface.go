package bookingRepo

import (
	"context"

	"salescompagent/models"
)

// BookingRepository persists confirmed booking records.
type BookingRepository interface {
	Insert(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	GetBySessionID(ctx context.Context, sessionID string) ([]models.Booking, error)
}
