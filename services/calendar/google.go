package calendar

import (
	"context"
	"fmt"
	"sort"
	"time"

	"salescompagent/models"
	"salescompagent/services/schedule"
	"salescompagent/utils"

	"go.uber.org/zap"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const callTimeout = 10 * time.Second

// GoogleGateway implements schedule.CalendarGateway against the Google
// Calendar API.
type GoogleGateway struct {
	svc *gcal.Service
}

// NewGoogleGateway builds a gateway from ambient application credentials.
func NewGoogleGateway(ctx context.Context, opts ...option.ClientOption) (*GoogleGateway, error) {
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &GoogleGateway{svc: svc}, nil
}

func (g *GoogleGateway) ListBusy(ctx context.Context, calendarID string, start, end time.Time) ([]models.BusyInterval, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	req := &gcal.FreeBusyRequest{
		TimeMin: start.Format(time.RFC3339),
		TimeMax: end.Format(time.RFC3339),
		Items:   []*gcal.FreeBusyRequestItem{{Id: calendarID}},
	}
	resp, err := g.svc.Freebusy.Query(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: freebusy query: %v", schedule.ErrCalendarUnavailable, err)
	}

	cal, ok := resp.Calendars[calendarID]
	if !ok {
		return nil, fmt.Errorf("%w: calendar %q missing from freebusy response", schedule.ErrCalendarUnavailable, calendarID)
	}

	busy := make([]models.BusyInterval, 0, len(cal.Busy))
	for _, p := range cal.Busy {
		s, err := time.Parse(time.RFC3339, p.Start)
		if err != nil {
			return nil, fmt.Errorf("%w: bad busy start %q", schedule.ErrCalendarUnavailable, p.Start)
		}
		e, err := time.Parse(time.RFC3339, p.End)
		if err != nil {
			return nil, fmt.Errorf("%w: bad busy end %q", schedule.ErrCalendarUnavailable, p.End)
		}
		busy = append(busy, models.BusyInterval{Start: s, End: e})
	}
	sort.Slice(busy, func(i, j int) bool { return busy[i].Start.Before(busy[j].Start) })
	return busy, nil
}

func (g *GoogleGateway) CreateEvent(ctx context.Context, calendarID string, slot models.Slot, attendee *models.Attendee) (string, error) {
	logger := utils.GetLogger()
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	event := &gcal.Event{
		Summary: "Sales Comp consultation",
		Start:   &gcal.EventDateTime{DateTime: slot.Start.Format(time.RFC3339)},
		End:     &gcal.EventDateTime{DateTime: slot.End.Format(time.RFC3339)},
	}
	if attendee != nil {
		event.Attendees = []*gcal.EventAttendee{{Email: attendee.Email, DisplayName: attendee.Name}}
	}

	created, err := g.svc.Events.Insert(calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("%w: event insert: %v", schedule.ErrCalendarUnavailable, err)
	}

	logger.Info("calendar event created",
		zap.String("calendarID", calendarID), zap.String("eventID", created.Id))
	return created.Id, nil
}
