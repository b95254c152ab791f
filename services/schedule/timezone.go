package schedule

import (
	"fmt"
	"time"
)

// TimeAuthority normalizes every timestamp into a single reference time zone.
// All interval comparisons in this package go through it; comparing wall-clock
// times from different zones directly is what used to make every slot look
// free.
type TimeAuthority struct {
	ref *time.Location
}

// NewTimeAuthority loads the reference zone by IANA name.
func NewTimeAuthority(refZone string) (*TimeAuthority, error) {
	loc, err := time.LoadLocation(refZone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, refZone)
	}
	return &TimeAuthority{ref: loc}, nil
}

// Reference returns the reference location.
func (ta *TimeAuthority) Reference() *time.Location {
	return ta.ref
}

// In converts an already zone-aware timestamp into the reference zone.
func (ta *TimeAuthority) In(t time.Time) time.Time {
	return t.In(ta.ref)
}

// ToReference reinterprets t's wall-clock fields in sourceZone and converts
// the result into the reference zone. This is the entry point for timestamps
// whose carried location cannot be trusted (values decoded from the wire or
// extracted by the responder).
func (ta *TimeAuthority) ToReference(t time.Time, sourceZone string) (time.Time, error) {
	loc, err := time.LoadLocation(sourceZone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimezone, sourceZone)
	}
	rebuilt := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
	return rebuilt.In(ta.ref), nil
}

// ToZone converts a reference timestamp into the target zone for display.
func (ta *TimeAuthority) ToZone(t time.Time, targetZone string) (time.Time, error) {
	loc, err := time.LoadLocation(targetZone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimezone, targetZone)
	}
	return t.In(loc), nil
}
