package schedule

import "fmt"

// ScheduleError carries a stable code alongside the human message so callers
// can branch on the condition without string matching.
type ScheduleError struct {
	Code    string
	Message string
}

func (e *ScheduleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any ScheduleError with the same code, so wrapped errors still
// compare with errors.Is against the sentinels below.
func (e *ScheduleError) Is(target error) bool {
	t, ok := target.(*ScheduleError)
	return ok && t.Code == e.Code
}

var (
	// Caller errors: fail fast, never retried.
	ErrInvalidTimezone = &ScheduleError{Code: "invalidTimezone", Message: "unknown time zone identifier"}
	ErrInvalidWindow   = &ScheduleError{Code: "invalidWindow", Message: "earliest must be before latest"}
	ErrInvalidDuration = &ScheduleError{Code: "invalidDuration", Message: "duration must be positive"}

	// Expected race/logic conditions: surfaced to the conversation as a re-prompt.
	ErrSlotNoLongerAvailable = &ScheduleError{Code: "slotNoLongerAvailable", Message: "the chosen slot was taken; availability must be recomputed"}
	ErrBookingAlreadyExists  = &ScheduleError{Code: "bookingAlreadyExists", Message: "session already holds a booking"}

	// Transient external failure: retried once at the router level.
	ErrCalendarUnavailable = &ScheduleError{Code: "calendarUnavailable", Message: "calendar provider did not respond"}
)
