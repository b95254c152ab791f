package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"salescompagent/models"
	"salescompagent/services/schedule"
	"salescompagent/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	closingReply = "This conversation has ended. Start a new session if there is anything else you need."
	apologyReply = "Sorry, something went wrong on our side. Please send your message again."

	maxOfferedSlots = 8
)

// Router is the top-level state machine: it owns session state, scopes each
// Responder call to the active agent, interprets the structured decision, and
// decides when the session ends.
type Router struct {
	Store        SessionStore
	Responder    Responder
	Availability *schedule.AvailabilityEngine
	Coordinator  *schedule.BookingCoordinator
	Calendar     schedule.CalendarGateway
	Gate         TicketGate
	Tickets      TicketSystem
	Archiver     SessionArchiver
	FollowUp     BookingFollowUp
	Auth         *schedule.TimeAuthority
	CalendarID   string
	EntryAgent   models.AgentRole
	MaxHistory   int
	// ResponderTimeout bounds each Responder call; a timeout counts as a
	// responder failure.
	ResponderTimeout time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// sessionLock serializes steps per session: one message is fully resolved
// before the next is accepted.
func (r *Router) sessionLock(id string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.locks == nil {
		r.locks = make(map[string]*sync.Mutex)
	}
	lock, ok := r.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[id] = lock
	}
	return lock
}

// dropSessionLock forgets the mutex for a terminal session so the map does
// not grow forever. A goroutine still queued on the old mutex only ever sees
// a terminal session, which takes no side effects.
func (r *Router) dropSessionLock(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.locks, id)
}

// HandleMessage runs one full router step for the session. It either fully
// completes, with its side effects, or fails before any side effect.
func (r *Router) HandleMessage(ctx context.Context, sessionID, userText string) (*models.ChatResponse, error) {
	logger := utils.GetLogger()

	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	lock := r.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := r.Store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if session == nil {
		session = &models.Session{
			ID:          sessionID,
			ActiveAgent: r.EntryAgent,
			CreatedAt:   now,
		}
	}

	// Terminal is monotonic: a closing reply is all an ended session gets.
	// No Responder call, no side effects.
	if session.Terminal {
		r.dropSessionLock(sessionID)
		return &models.ChatResponse{SessionID: sessionID, Reply: closingReply, Terminal: true}, nil
	}

	session.Append(models.RoleUser, userText, now)

	decision, err := r.respondWithRetry(ctx, session)
	if err != nil {
		// Nothing was persisted, so the step can be retried safely.
		logger.Error("responder failed twice, leaving session unchanged",
			zap.String("sessionID", sessionID), zap.Error(err))
		return &models.ChatResponse{SessionID: sessionID, Reply: apologyReply, Terminal: false}, nil
	}

	replyParts := []string{decision.Reply}
	if decision.Attendee != nil {
		session.Attendee = decision.Attendee
	}

	switch {
	case decision.ChosenSlot != nil:
		replyParts = r.handleChosenSlot(ctx, session, *decision.ChosenSlot, replyParts)
	case decision.BookingRequest != nil:
		replyParts = r.handleBookingRequest(ctx, session, *decision.BookingRequest, replyParts)
	}

	if r.Gate.ShouldCreate(session, decision) {
		// The flag must be durable before the external call so a retried step
		// cannot open a second ticket.
		if err := r.Store.Save(ctx, session); err != nil {
			return nil, err
		}
		payload := models.TicketPayload{
			SessionID: session.ID,
			Attendee:  session.Attendee,
			Summary:   summarize(session),
			OpenedAt:  now,
		}
		if err := r.Tickets.Open(ctx, payload); err != nil {
			logger.Error("ticket open failed", zap.String("sessionID", session.ID), zap.Error(err))
		}
	}

	if decision.EndSession {
		session.Terminal = true
		session.ActiveAgent = models.AgentEnded
	} else if models.ValidAgentRole(decision.NextAgent) && decision.NextAgent != session.ActiveAgent {
		// Handoff: the transcript is preserved so the new agent sees the full
		// history.
		logger.Info("agent handoff",
			zap.String("sessionID", session.ID),
			zap.String("from", string(session.ActiveAgent)),
			zap.String("to", string(decision.NextAgent)))
		session.ActiveAgent = decision.NextAgent
	}

	reply := strings.Join(replyParts, "\n\n")
	session.Append(models.RoleAssistant, reply, time.Now())
	session.UpdatedAt = time.Now()
	if err := r.Store.Save(ctx, session); err != nil {
		return nil, err
	}

	if session.Terminal {
		if r.Archiver != nil {
			if err := r.Archiver.ArchiveSession(ctx, session.ID); err != nil {
				logger.Error("failed to schedule session archive",
					zap.String("sessionID", session.ID), zap.Error(err))
			}
		}
		r.dropSessionLock(session.ID)
	}

	return &models.ChatResponse{SessionID: sessionID, Reply: reply, Terminal: session.Terminal}, nil
}

// respondWithRetry invokes the Responder once, retrying a single time with
// the same transcript on failure or a malformed decision.
func (r *Router) respondWithRetry(ctx context.Context, session *models.Session) (*models.Decision, error) {
	cfg := ResponderConfig{Role: session.ActiveAgent, MaxHistory: r.MaxHistory}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		callCtx := ctx
		var cancel context.CancelFunc
		if r.ResponderTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, r.ResponderTimeout)
		}
		decision, err := r.Responder.Respond(callCtx, session.Transcript, cfg)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return decision, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrResponderUnavailable, lastErr)
}

// handleBookingRequest computes availability once and surfaces the slots.
func (r *Router) handleBookingRequest(ctx context.Context, session *models.Session, req models.SlotRequest, replyParts []string) []string {
	slots, err := r.computeSlots(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, schedule.ErrInvalidWindow), errors.Is(err, schedule.ErrInvalidDuration), errors.Is(err, schedule.ErrInvalidTimezone):
			return append(replyParts, "I couldn't work with that time window. Could you rephrase when you're available?")
		default:
			utils.GetLogger().Error("availability lookup failed",
				zap.String("sessionID", session.ID), zap.Error(err))
			return append(replyParts, "I couldn't reach the calendar just now. Please ask for available times again in a moment.")
		}
	}
	if len(slots) == 0 {
		return append(replyParts, "There are no free times in that window. Could you suggest a different range?")
	}

	if len(slots) > maxOfferedSlots {
		slots = slots[:maxOfferedSlots]
	}
	session.OfferedSlots = slots
	session.LastSlotRequest = &req
	return append(replyParts, r.formatSlots(slots, req.Timezone))
}

// handleChosenSlot books a slot previously offered in this session.
func (r *Router) handleChosenSlot(ctx context.Context, session *models.Session, chosen models.Slot, replyParts []string) []string {
	logger := utils.GetLogger()

	offered, ok := matchOffered(session.OfferedSlots, chosen)
	if !ok {
		return append(replyParts, "That time wasn't one of the offered slots. Please pick one of the times I listed.")
	}

	booking, err := r.Coordinator.Book(ctx, session, offered)
	if errors.Is(err, schedule.ErrCalendarUnavailable) {
		// Transient: one retry at the router level. The failed attempt is
		// already durable, so this cannot double-book.
		booking, err = r.Coordinator.Book(ctx, session, offered)
	}
	switch {
	case err == nil:
		session.OfferedSlots = nil
		if r.FollowUp != nil {
			if fuErr := r.FollowUp.ScheduleReminder(ctx, booking); fuErr != nil {
				logger.Error("failed to schedule reminder",
					zap.String("bookingID", booking.ID), zap.Error(fuErr))
			}
			if booking.Attendee != nil {
				if fuErr := r.FollowUp.SendIntakeForm(ctx, booking); fuErr != nil {
					logger.Error("failed to queue intake form",
						zap.String("bookingID", booking.ID), zap.Error(fuErr))
				}
			}
		}
		tz := "UTC"
		if session.LastSlotRequest != nil {
			tz = session.LastSlotRequest.Timezone
		}
		return append(replyParts, fmt.Sprintf("Your appointment is confirmed for %s.", r.formatSlot(booking.Slot, tz)))
	case errors.Is(err, schedule.ErrBookingAlreadyExists):
		return append(replyParts, "You already have a confirmed appointment for this conversation; I won't book another one.")
	case errors.Is(err, schedule.ErrSlotNoLongerAvailable):
		// Re-run availability so the user can pick again.
		if session.LastSlotRequest != nil {
			return r.handleBookingRequest(ctx, session, *session.LastSlotRequest,
				append(replyParts, "That time was just taken. Here are the updated options:"))
		}
		return append(replyParts, "That time was just taken. Please ask for available times again.")
	default:
		logger.Error("booking failed", zap.String("sessionID", session.ID), zap.Error(err))
		return append(replyParts, "I couldn't complete the booking just now. Please try again in a moment.")
	}
}

// computeSlots fetches busy intervals once (with a single retry on transient
// calendar failure) and runs the availability engine over them.
func (r *Router) computeSlots(ctx context.Context, req models.SlotRequest) ([]models.Slot, error) {
	earliest, err := r.Auth.ToReference(req.Earliest, req.Timezone)
	if err != nil {
		return nil, err
	}
	latest, err := r.Auth.ToReference(req.Latest, req.Timezone)
	if err != nil {
		return nil, err
	}
	if !earliest.Before(latest) {
		return nil, schedule.ErrInvalidWindow
	}

	busy, err := r.Calendar.ListBusy(ctx, r.CalendarID, earliest, latest)
	if errors.Is(err, schedule.ErrCalendarUnavailable) {
		busy, err = r.Calendar.ListBusy(ctx, r.CalendarID, earliest, latest)
	}
	if err != nil {
		return nil, err
	}
	return r.Availability.ComputeSlots(busy, req)
}

func (r *Router) formatSlots(slots []models.Slot, tz string) string {
	var sb strings.Builder
	sb.WriteString("Here are the available times:")
	for i, s := range slots {
		sb.WriteString(fmt.Sprintf("\n%d. %s", i+1, r.formatSlot(s, tz)))
	}
	sb.WriteString("\nPlease choose a time slot.")
	return sb.String()
}

func (r *Router) formatSlot(slot models.Slot, tz string) string {
	start, err := r.Auth.ToZone(slot.Start, tz)
	if err != nil {
		start = slot.Start
	}
	end, err := r.Auth.ToZone(slot.End, tz)
	if err != nil {
		end = slot.End
	}
	return fmt.Sprintf("%s - %s", start.Format("Mon Jan 2, 15:04"), end.Format("15:04 MST"))
}

func matchOffered(offered []models.Slot, chosen models.Slot) (models.Slot, bool) {
	for _, s := range offered {
		if s.Equal(chosen) {
			return s, true
		}
	}
	return models.Slot{}, false
}

// summarize produces the ticket body from the recent transcript.
func summarize(session *models.Session) string {
	window := session.Transcript
	if len(window) > 10 {
		window = window[len(window)-10:]
	}
	var sb strings.Builder
	for _, m := range window {
		sb.WriteString(string(m.Role))
		sb.WriteString(": ")
		sb.WriteString(m.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}
