package schedule

import (
	"sort"
	"time"

	"salescompagent/models"
)

// AvailabilityEngine computes free slots from busy calendar intervals.
// It is a pure function over its inputs; the caller fetches busy intervals
// once and hands them in.
type AvailabilityEngine struct {
	Auth *TimeAuthority
}

// ComputeSlots normalizes everything into the reference zone, merges the busy
// intervals, and slices each remaining gap into slots of exactly the
// requested duration, greedily aligned to the gap start. The returned slots
// are ordered by start time ascending; the booking coordinator's
// offer-first-available policy relies on that ordering.
func (e *AvailabilityEngine) ComputeSlots(busy []models.BusyInterval, req models.SlotRequest) ([]models.Slot, error) {
	if req.Duration <= 0 {
		return nil, ErrInvalidDuration
	}

	earliest, err := e.Auth.ToReference(req.Earliest, req.Timezone)
	if err != nil {
		return nil, err
	}
	latest, err := e.Auth.ToReference(req.Latest, req.Timezone)
	if err != nil {
		return nil, err
	}
	if !earliest.Before(latest) {
		return nil, ErrInvalidWindow
	}

	merged := mergeBusy(busy, e.Auth, earliest, latest)

	var slots []models.Slot
	cursor := earliest
	for _, b := range merged {
		slots = appendSlots(slots, cursor, b.Start, req.Duration)
		if b.End.After(cursor) {
			cursor = b.End
		}
	}
	slots = appendSlots(slots, cursor, latest, req.Duration)

	return slots, nil
}

// mergeBusy normalizes, clips to the window, sorts by start, and coalesces
// overlapping or adjacent intervals.
func mergeBusy(busy []models.BusyInterval, auth *TimeAuthority, earliest, latest time.Time) []models.BusyInterval {
	clipped := make([]models.BusyInterval, 0, len(busy))
	for _, b := range busy {
		start := auth.In(b.Start)
		end := auth.In(b.End)
		if !end.After(earliest) || !start.Before(latest) {
			continue
		}
		if start.Before(earliest) {
			start = earliest
		}
		if end.After(latest) {
			end = latest
		}
		clipped = append(clipped, models.BusyInterval{Start: start, End: end})
	}

	sort.Slice(clipped, func(i, j int) bool {
		return clipped[i].Start.Before(clipped[j].Start)
	})

	var merged []models.BusyInterval
	for _, b := range clipped {
		if n := len(merged); n > 0 && !b.Start.After(merged[n-1].End) {
			if b.End.After(merged[n-1].End) {
				merged[n-1].End = b.End
			}
			continue
		}
		merged = append(merged, b)
	}
	return merged
}

// appendSlots fills [gapStart, gapEnd) with as many duration-sized slots as
// fit, left-aligned. A remainder shorter than the duration is discarded.
func appendSlots(slots []models.Slot, gapStart, gapEnd time.Time, duration time.Duration) []models.Slot {
	for s := gapStart; !s.Add(duration).After(gapEnd); s = s.Add(duration) {
		slots = append(slots, models.Slot{Start: s, End: s.Add(duration)})
	}
	return slots
}
