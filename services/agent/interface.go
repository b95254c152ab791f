package agent

import (
	"context"

	"salescompagent/models"
)

// ResponderConfig selects the behavioral template and bounds how much
// transcript the responder sees.
type ResponderConfig struct {
	Role       models.AgentRole
	MaxHistory int
}

// Responder is the opaque language-model boundary: given a transcript and an
// agent role it returns one structured decision. Quality of understanding is
// its problem, not ours.
type Responder interface {
	Respond(ctx context.Context, transcript []models.Message, cfg ResponderConfig) (*models.Decision, error)
}

// SessionStore holds live sessions between router steps.
type SessionStore interface {
	// Get returns nil, nil when no session exists under the ID.
	Get(ctx context.Context, id string) (*models.Session, error)
	Save(ctx context.Context, session *models.Session) error
	Clear(ctx context.Context, id string) error
}

// TicketSystem is fire-and-forget from the router's perspective: the router
// only decides whether to call it.
type TicketSystem interface {
	Open(ctx context.Context, payload models.TicketPayload) error
}

// SessionArchiver moves a terminal session out of the live store in the
// background.
type SessionArchiver interface {
	ArchiveSession(ctx context.Context, sessionID string) error
}

// BookingFollowUp queues the post-confirmation side effects: a reminder
// ahead of the slot and the intake form for the attendee. Optional; nil
// just means no follow-ups.
type BookingFollowUp interface {
	ScheduleReminder(ctx context.Context, booking *models.Booking) error
	SendIntakeForm(ctx context.Context, booking *models.Booking) error
}

// AgentService is the session boundary: the only operation an embedding
// front-end needs.
type AgentService interface {
	HandleMessage(ctx context.Context, sessionID, userText string) (*models.ChatResponse, error)
}
