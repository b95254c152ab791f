package agent

import "salescompagent/models"

// TicketGate deduplicates support-ticket creation within a session. The
// decision to open a ticket used to live in prose, which is how sessions
// ended up with several tickets for one issue; now it is a boolean gate over
// explicit state.
type TicketGate struct{}

// ShouldCreate returns true at most once per session: only when the decision
// asks for a ticket and none has been created yet. The check and the flag
// flip happen in the same step, under the router's per-session lock, so a
// second decision cannot slip through.
func (TicketGate) ShouldCreate(session *models.Session, decision *models.Decision) bool {
	if !decision.CreateTicket || session.TicketCreated {
		return false
	}
	session.TicketCreated = true
	return true
}
