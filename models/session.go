package models

import "time"

// AgentRole identifies the behavioral template a Responder call is scoped to.
type AgentRole string

const (
	AgentPolicy        AgentRole = "policy"
	AgentCommission    AgentRole = "commission"
	AgentContest       AgentRole = "contest"
	AgentFeedback      AgentRole = "feedback"
	AgentPlanExplainer AgentRole = "plan_explainer"
	// AgentEnded is the synthetic terminal state; no Responder call is ever
	// scoped to it.
	AgentEnded AgentRole = "ended"
)

// ValidAgentRole reports whether r names one of the five live agents.
func ValidAgentRole(r AgentRole) bool {
	switch r {
	case AgentPolicy, AgentCommission, AgentContest, AgentFeedback, AgentPlanExplainer:
		return true
	}
	return false
}

// MessageRole is the author of a transcript entry.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Message is one immutable transcript entry. Insertion order is significant:
// the ordered transcript is what the Responder sees.
type Message struct {
	Role      MessageRole `json:"role"`
	Text      string      `json:"text"`
	Timestamp time.Time   `json:"timestamp"`
}

// Attendee is the requester identity collected by the contest flow before a
// calendar invite can be sent.
type Attendee struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Session is one continuous user interaction, possibly spanning several agent
// handoffs. It is mutated only by the agent router, one message at a time.
type Session struct {
	ID            string    `bson:"id" json:"sessionId"`
	ActiveAgent   AgentRole `bson:"active_agent" json:"activeAgent"`
	Transcript    []Message `bson:"transcript" json:"transcript"`
	TicketCreated bool      `bson:"ticket_created" json:"ticketCreated"`
	Booking       *Booking  `bson:"booking,omitempty" json:"booking,omitempty"`
	// OfferedSlots remembers the last availability listing so a confirmation
	// can only reference a slot that was actually shown; LastSlotRequest lets
	// the router recompute availability after a reverify conflict.
	OfferedSlots    []Slot       `bson:"offered_slots,omitempty" json:"offeredSlots,omitempty"`
	LastSlotRequest *SlotRequest `bson:"last_slot_request,omitempty" json:"lastSlotRequest,omitempty"`
	Attendee        *Attendee    `bson:"attendee,omitempty" json:"attendee,omitempty"`
	Terminal        bool         `bson:"terminal" json:"terminal"`
	CreatedAt       time.Time    `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time    `bson:"updated_at" json:"updatedAt"`
}

// Append adds a transcript entry stamped with now.
func (s *Session) Append(role MessageRole, text string, now time.Time) {
	s.Transcript = append(s.Transcript, Message{Role: role, Text: text, Timestamp: now})
}

// ActiveBooking returns the session's booking unless it already failed.
// A failed booking does not block a retry.
func (s *Session) ActiveBooking() *Booking {
	if s.Booking == nil || s.Booking.Status == BookingFailed {
		return nil
	}
	return s.Booking
}

// Decision is the structured output of one Responder call. It is never
// mutated; the router consumes exactly one per step.
type Decision struct {
	Reply          string       `json:"reply"`
	NextAgent      AgentRole    `json:"nextAgent,omitempty"`
	CreateTicket   bool         `json:"createTicket"`
	BookingRequest *SlotRequest `json:"bookingRequest,omitempty"`
	ChosenSlot     *Slot        `json:"chosenSlot,omitempty"`
	Attendee       *Attendee    `json:"attendee,omitempty"`
	EndSession     bool         `json:"endSession"`
}
