package models

import "time"

// BusyInterval is one occupied span on the shared calendar, already in the
// reference time zone by the time the availability engine sees it.
type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether the two half-open intervals [Start, End) intersect.
func (b BusyInterval) Overlaps(start, end time.Time) bool {
	return b.Start.Before(end) && start.Before(b.End)
}

// SlotRequest is the immutable input to the availability engine. Earliest and
// Latest are wall-clock times in the requester's zone.
type SlotRequest struct {
	Earliest time.Time     `json:"earliest"`
	Latest   time.Time     `json:"latest"`
	Duration time.Duration `json:"duration"`
	Timezone string        `json:"timezone"`
}

// Slot is a candidate free interval of exactly the requested duration.
// Value type, no identity.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Equal compares slots by instant, not by zone representation.
func (s Slot) Equal(other Slot) bool {
	return s.Start.Equal(other.Start) && s.End.Equal(other.End)
}

// BookingStatus transitions are one-way: Pending to Confirmed or Pending to
// Failed, never back.
type BookingStatus string

const (
	BookingPending   BookingStatus = "Pending"
	BookingConfirmed BookingStatus = "Confirmed"
	BookingFailed    BookingStatus = "Failed"
)

// Booking is the real-world calendar event resulting from a chosen slot.
type Booking struct {
	ID         string        `bson:"id" json:"id"`
	SessionID  string        `bson:"session_id" json:"sessionId"`
	Slot       Slot          `bson:"slot" json:"slot"`
	CalendarID string        `bson:"calendar_id" json:"calendarId"`
	EventID    string        `bson:"event_id,omitempty" json:"eventId,omitempty"`
	Attendee   *Attendee     `bson:"attendee,omitempty" json:"attendee,omitempty"`
	Status     BookingStatus `bson:"status" json:"status"`
	CreatedAt  time.Time     `bson:"created_at" json:"createdAt"`
}
