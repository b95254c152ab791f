package models

import "time"

// TicketPayload is the session summary handed to the ticket system. The core
// only decides whether to open a ticket; formatting beyond this envelope is
// the ticket service's problem.
type TicketPayload struct {
	SessionID string    `json:"sessionId"`
	Attendee  *Attendee `json:"attendee,omitempty"`
	Summary   string    `json:"summary"`
	OpenedAt  time.Time `json:"openedAt"`
}

// ArchivePayload asks the background worker to move a terminal session from
// the live store into the archive collection.
type ArchivePayload struct {
	SessionID string `json:"sessionId"`
}

// ReminderPayload is delivered shortly before a confirmed consultation.
type ReminderPayload struct {
	SessionID string    `json:"sessionId"`
	Attendee  *Attendee `json:"attendee,omitempty"`
	Slot      Slot      `json:"slot"`
}

// IntakePayload carries what the intake service needs to email the
// consultation form to the attendee right after confirmation.
type IntakePayload struct {
	SessionID string    `json:"sessionId"`
	Attendee  *Attendee `json:"attendee"`
	Slot      Slot      `json:"slot"`
}
