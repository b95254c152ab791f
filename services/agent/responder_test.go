package agent

import (
	"errors"
	"testing"
	"time"

	"salescompagent/models"
)

func TestParseDecisionFullPayload(t *testing.T) {
	raw := `{
		"reply": "Here are some times.",
		"next_agent": "contest",
		"create_ticket": false,
		"booking_request": {
			"earliest": "2026-09-07T09:00:00",
			"latest": "2026-09-07T17:00:00",
			"duration_minutes": 30,
			"timezone": "America/New_York"
		},
		"attendee": {"name": "Ana", "email": "ana@example.com"},
		"end_session": false
	}`

	d, err := ParseDecision(raw)
	if err != nil {
		t.Fatalf("ParseDecision: %v", err)
	}
	if d.Reply != "Here are some times." {
		t.Errorf("reply = %q", d.Reply)
	}
	if d.NextAgent != models.AgentContest {
		t.Errorf("nextAgent = %q, want contest", d.NextAgent)
	}
	if d.BookingRequest == nil {
		t.Fatal("bookingRequest is nil")
	}
	if d.BookingRequest.Duration != 30*time.Minute {
		t.Errorf("duration = %v, want 30m", d.BookingRequest.Duration)
	}
	if d.BookingRequest.Timezone != "America/New_York" {
		t.Errorf("timezone = %q", d.BookingRequest.Timezone)
	}
	if d.Attendee == nil || d.Attendee.Email != "ana@example.com" {
		t.Errorf("attendee = %+v", d.Attendee)
	}
}

func TestParseDecisionStripsCodeFences(t *testing.T) {
	raw := "```json\n{\"reply\": \"hello\"}\n```"
	d, err := ParseDecision(raw)
	if err != nil {
		t.Fatalf("ParseDecision: %v", err)
	}
	if d.Reply != "hello" {
		t.Errorf("reply = %q, want hello", d.Reply)
	}
}

func TestParseDecisionChosenSlot(t *testing.T) {
	raw := `{
		"reply": "Booking it.",
		"chosen_slot": {"start": "2026-09-07T10:00:00Z", "end": "2026-09-07T10:30:00Z"}
	}`
	d, err := ParseDecision(raw)
	if err != nil {
		t.Fatalf("ParseDecision: %v", err)
	}
	if d.ChosenSlot == nil {
		t.Fatal("chosenSlot is nil")
	}
	want := time.Date(2026, time.September, 7, 10, 0, 0, 0, time.UTC)
	if !d.ChosenSlot.Start.Equal(want) {
		t.Errorf("start = %v, want %v", d.ChosenSlot.Start, want)
	}
}

func TestParseDecisionRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":      "the user wants a refund",
		"missing reply": `{"create_ticket": true}`,
		"bad timestamp": `{"reply": "ok", "chosen_slot": {"start": "tomorrow", "end": "later"}}`,
	}
	for name, raw := range cases {
		if _, err := ParseDecision(raw); !errors.Is(err, ErrResponderUnavailable) {
			t.Errorf("%s: got %v, want ErrResponderUnavailable", name, err)
		}
	}
}
