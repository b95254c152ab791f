package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"salescompagent/models"
	"salescompagent/services/schedule"
)

// scriptedResponder returns its decisions in order; past the script it keeps
// returning the last one. A nil entry means "fail this call".
type scriptedResponder struct {
	script []*models.Decision
	calls  int
	// lastRole records the agent role the most recent call was scoped to.
	lastRole models.AgentRole
}

func (s *scriptedResponder) Respond(ctx context.Context, transcript []models.Message, cfg ResponderConfig) (*models.Decision, error) {
	s.calls++
	s.lastRole = cfg.Role
	idx := s.calls - 1
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}
	d := s.script[idx]
	if d == nil {
		return nil, errors.New("model unavailable")
	}
	return d, nil
}

// memStore is an in-memory SessionStore that deep-copies on Save, so a test
// can tell persisted state apart from in-flight mutation.
type memStore struct {
	sessions map[string]*models.Session
	saves    int
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]*models.Session)}
}

func (m *memStore) Get(ctx context.Context, id string) (*models.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	clone := *s
	return &clone, nil
}

func (m *memStore) Save(ctx context.Context, session *models.Session) error {
	m.saves++
	clone := *session
	m.sessions[session.ID] = &clone
	return nil
}

func (m *memStore) Clear(ctx context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

type fakeTickets struct {
	opened []models.TicketPayload
	// savesAtOpen records how many store saves had happened when each ticket
	// was opened, to check the flag was durable first.
	savesAtOpen []int
	store       *memStore
}

func (f *fakeTickets) Open(ctx context.Context, payload models.TicketPayload) error {
	f.opened = append(f.opened, payload)
	if f.store != nil {
		f.savesAtOpen = append(f.savesAtOpen, f.store.saves)
	}
	return nil
}

type fakeArchiver struct {
	archived []string
}

func (f *fakeArchiver) ArchiveSession(ctx context.Context, sessionID string) error {
	f.archived = append(f.archived, sessionID)
	return nil
}

type fakeFollowUp struct {
	reminders []*models.Booking
	intakes   []*models.Booking
}

func (f *fakeFollowUp) ScheduleReminder(ctx context.Context, booking *models.Booking) error {
	f.reminders = append(f.reminders, booking)
	return nil
}

func (f *fakeFollowUp) SendIntakeForm(ctx context.Context, booking *models.Booking) error {
	f.intakes = append(f.intakes, booking)
	return nil
}

type routerCalendar struct {
	busy        []models.BusyInterval
	createCalls int
}

func (c *routerCalendar) ListBusy(ctx context.Context, calendarID string, start, end time.Time) ([]models.BusyInterval, error) {
	return c.busy, nil
}

func (c *routerCalendar) CreateEvent(ctx context.Context, calendarID string, slot models.Slot, attendee *models.Attendee) (string, error) {
	c.createCalls++
	return "evt-1", nil
}

type noopLocker struct{}

func (noopLocker) Acquire(ctx context.Context, calendarID string) (func(), error) {
	return func() {}, nil
}

type routerFixture struct {
	router    *Router
	store     *memStore
	responder *scriptedResponder
	tickets   *fakeTickets
	archiver  *fakeArchiver
	calendar  *routerCalendar
	followUp  *fakeFollowUp
}

func newRouterFixture(t *testing.T, script ...*models.Decision) *routerFixture {
	t.Helper()
	auth, err := schedule.NewTimeAuthority("UTC")
	if err != nil {
		t.Fatalf("NewTimeAuthority: %v", err)
	}

	store := newMemStore()
	responder := &scriptedResponder{script: script}
	tickets := &fakeTickets{store: store}
	archiver := &fakeArchiver{}
	calendar := &routerCalendar{}
	followUp := &fakeFollowUp{}

	coordinator := &schedule.BookingCoordinator{
		Calendar:   calendar,
		Locks:      noopLocker{},
		Sessions:   store,
		Auth:       auth,
		CalendarID: "primary",
	}

	return &routerFixture{
		router: &Router{
			Store:        store,
			Responder:    responder,
			Availability: &schedule.AvailabilityEngine{Auth: auth},
			Coordinator:  coordinator,
			Calendar:     calendar,
			Tickets:      tickets,
			Archiver:     archiver,
			FollowUp:     followUp,
			Auth:         auth,
			CalendarID:   "primary",
			EntryAgent:   models.AgentPolicy,
			MaxHistory:   40,
		},
		store:     store,
		responder: responder,
		tickets:   tickets,
		archiver:  archiver,
		calendar:  calendar,
		followUp:  followUp,
	}
}

func reply(text string) *models.Decision {
	return &models.Decision{Reply: text}
}

func TestHandleMessageCreatesSessionAtEntryAgent(t *testing.T) {
	fx := newRouterFixture(t, reply("hello"))

	resp, err := fx.router.HandleMessage(context.Background(), "", "hi there")
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if resp.SessionID == "" {
		t.Fatal("no session ID assigned")
	}
	if resp.Reply != "hello" {
		t.Errorf("reply = %q", resp.Reply)
	}

	saved := fx.store.sessions[resp.SessionID]
	if saved == nil {
		t.Fatal("session not persisted")
	}
	if saved.ActiveAgent != models.AgentPolicy {
		t.Errorf("activeAgent = %q, want policy", saved.ActiveAgent)
	}
	if len(saved.Transcript) != 2 {
		t.Fatalf("transcript has %d entries, want 2", len(saved.Transcript))
	}
	if saved.Transcript[0].Role != models.RoleUser || saved.Transcript[1].Role != models.RoleAssistant {
		t.Errorf("transcript roles = %v, %v", saved.Transcript[0].Role, saved.Transcript[1].Role)
	}
}

func TestHandleMessageHandoffPreservesTranscript(t *testing.T) {
	fx := newRouterFixture(t,
		&models.Decision{Reply: "let me pass you over", NextAgent: models.AgentCommission},
		reply("your commission is computed like this"),
	)

	resp1, err := fx.router.HandleMessage(context.Background(), "", "how is my commission computed?")
	if err != nil {
		t.Fatalf("first HandleMessage: %v", err)
	}
	if fx.responder.lastRole != models.AgentPolicy {
		t.Errorf("first call scoped to %q, want policy", fx.responder.lastRole)
	}

	saved := fx.store.sessions[resp1.SessionID]
	if saved.ActiveAgent != models.AgentCommission {
		t.Fatalf("activeAgent = %q, want commission after handoff", saved.ActiveAgent)
	}

	if _, err := fx.router.HandleMessage(context.Background(), resp1.SessionID, "ok go on"); err != nil {
		t.Fatalf("second HandleMessage: %v", err)
	}
	if fx.responder.lastRole != models.AgentCommission {
		t.Errorf("second call scoped to %q, want commission", fx.responder.lastRole)
	}

	saved = fx.store.sessions[resp1.SessionID]
	if len(saved.Transcript) != 4 {
		t.Errorf("transcript has %d entries after handoff, want 4", len(saved.Transcript))
	}
}

func TestHandleMessageIgnoresInvalidNextAgent(t *testing.T) {
	fx := newRouterFixture(t, &models.Decision{Reply: "ok", NextAgent: "astrologer"})

	resp, err := fx.router.HandleMessage(context.Background(), "", "hi")
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if fx.store.sessions[resp.SessionID].ActiveAgent != models.AgentPolicy {
		t.Error("session moved to an unknown agent")
	}
}

func TestHandleMessageTerminalShortCircuits(t *testing.T) {
	// Even if a stray decision with side effects were scripted, an ended
	// session must never reach the responder.
	fx := newRouterFixture(t, &models.Decision{
		Reply:          "should never be seen",
		CreateTicket:   true,
		BookingRequest: &models.SlotRequest{},
	})
	fx.store.sessions["done"] = &models.Session{
		ID:          "done",
		ActiveAgent: models.AgentEnded,
		Terminal:    true,
	}
	savesBefore := fx.store.saves

	resp, err := fx.router.HandleMessage(context.Background(), "done", "one more thing")
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if !resp.Terminal {
		t.Error("response not marked terminal")
	}
	if fx.responder.calls != 0 {
		t.Errorf("responder called %d times on a terminal session", fx.responder.calls)
	}
	if fx.store.saves != savesBefore {
		t.Error("terminal session was mutated")
	}
	if len(fx.tickets.opened) != 0 {
		t.Error("ticket opened on a terminal session")
	}
}

func TestHandleMessageEndSessionArchives(t *testing.T) {
	fx := newRouterFixture(t,
		&models.Decision{Reply: "goodbye", EndSession: true},
	)

	resp, err := fx.router.HandleMessage(context.Background(), "", "thanks, bye")
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if !resp.Terminal {
		t.Fatal("response not terminal")
	}
	saved := fx.store.sessions[resp.SessionID]
	if !saved.Terminal || saved.ActiveAgent != models.AgentEnded {
		t.Errorf("session = terminal %v agent %q, want terminal ended", saved.Terminal, saved.ActiveAgent)
	}
	if len(fx.archiver.archived) != 1 || fx.archiver.archived[0] != resp.SessionID {
		t.Errorf("archived = %v", fx.archiver.archived)
	}
	if _, held := fx.router.locks[resp.SessionID]; held {
		t.Error("session lock retained after the session ended")
	}

	// The next message only gets the closing reply.
	resp2, err := fx.router.HandleMessage(context.Background(), resp.SessionID, "actually...")
	if err != nil {
		t.Fatalf("post-end HandleMessage: %v", err)
	}
	if !resp2.Terminal || resp2.Reply == "goodbye" {
		t.Errorf("post-end response = %+v", resp2)
	}
	if _, held := fx.router.locks[resp.SessionID]; held {
		t.Error("session lock re-leaked by the terminal short-circuit")
	}
}

func TestHandleMessageResponderFailureLeavesStateUnchanged(t *testing.T) {
	fx := newRouterFixture(t, nil) // every call fails

	resp, err := fx.router.HandleMessage(context.Background(), "s1", "hello?")
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if fx.responder.calls != 2 {
		t.Errorf("responder called %d times, want 2 (one retry)", fx.responder.calls)
	}
	if resp.Terminal {
		t.Error("apology response marked terminal")
	}
	if fx.store.saves != 0 {
		t.Error("failed step persisted state")
	}
	if _, ok := fx.store.sessions["s1"]; ok {
		t.Error("session created despite responder failure")
	}
}

func TestHandleMessageRetriesResponderOnce(t *testing.T) {
	fx := newRouterFixture(t, nil, reply("second try worked"))

	resp, err := fx.router.HandleMessage(context.Background(), "", "hello?")
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if resp.Reply != "second try worked" {
		t.Errorf("reply = %q", resp.Reply)
	}
	if fx.responder.calls != 2 {
		t.Errorf("responder called %d times, want 2", fx.responder.calls)
	}
}

func TestHandleMessageOpensTicketOnce(t *testing.T) {
	fx := newRouterFixture(t,
		&models.Decision{Reply: "I've raised this for you", CreateTicket: true},
		&models.Decision{Reply: "already raised", CreateTicket: true},
	)

	resp, err := fx.router.HandleMessage(context.Background(), "", "my commission is wrong")
	if err != nil {
		t.Fatalf("first HandleMessage: %v", err)
	}
	if len(fx.tickets.opened) != 1 {
		t.Fatalf("opened %d tickets, want 1", len(fx.tickets.opened))
	}
	// The ticket_created flag must be saved before the ticket system is hit.
	if fx.tickets.savesAtOpen[0] < 1 {
		t.Error("ticket opened before the flag was durable")
	}

	if _, err := fx.router.HandleMessage(context.Background(), resp.SessionID, "please raise it again"); err != nil {
		t.Fatalf("second HandleMessage: %v", err)
	}
	if len(fx.tickets.opened) != 1 {
		t.Errorf("opened %d tickets after repeat request, want 1", len(fx.tickets.opened))
	}
}

func TestHandleMessageOffersSlots(t *testing.T) {
	earliest := time.Date(2026, time.September, 7, 9, 0, 0, 0, time.UTC)
	fx := newRouterFixture(t, &models.Decision{
		Reply: "Let me check the calendar.",
		BookingRequest: &models.SlotRequest{
			Earliest: earliest,
			Latest:   earliest.Add(2 * time.Hour),
			Duration: 30 * time.Minute,
			Timezone: "UTC",
		},
	})
	fx.calendar.busy = []models.BusyInterval{
		{Start: earliest, End: earliest.Add(time.Hour)},
	}

	resp, err := fx.router.HandleMessage(context.Background(), "", "when can we meet?")
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if !strings.Contains(resp.Reply, "available times") {
		t.Errorf("reply does not list times: %q", resp.Reply)
	}
	for _, r := range resp.Reply {
		if r > 127 {
			t.Errorf("reply contains non-ASCII rune %q: %q", r, resp.Reply)
			break
		}
	}

	saved := fx.store.sessions[resp.SessionID]
	if len(saved.OfferedSlots) != 2 {
		t.Fatalf("offered %d slots, want 2: %v", len(saved.OfferedSlots), saved.OfferedSlots)
	}
	if !saved.OfferedSlots[0].Start.Equal(earliest.Add(time.Hour)) {
		t.Errorf("first offered slot starts at %v", saved.OfferedSlots[0].Start)
	}
	if saved.LastSlotRequest == nil {
		t.Error("slot request not remembered for later recompute")
	}
}

func TestHandleMessageRejectsUnofferedSlot(t *testing.T) {
	start := time.Date(2026, time.September, 7, 10, 0, 0, 0, time.UTC)
	fx := newRouterFixture(t, &models.Decision{
		Reply:      "Booking it.",
		ChosenSlot: &models.Slot{Start: start, End: start.Add(30 * time.Minute)},
	})
	fx.store.sessions["s1"] = &models.Session{
		ID:          "s1",
		ActiveAgent: models.AgentContest,
		OfferedSlots: []models.Slot{
			{Start: start.Add(time.Hour), End: start.Add(90 * time.Minute)},
		},
	}

	resp, err := fx.router.HandleMessage(context.Background(), "s1", "book me the 10am")
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if fx.calendar.createCalls != 0 {
		t.Errorf("CreateEvent called %d times for an unoffered slot", fx.calendar.createCalls)
	}
	if !strings.Contains(resp.Reply, "offered") {
		t.Errorf("reply = %q, want an offered-slot re-prompt", resp.Reply)
	}
}

func TestHandleMessageBooksOfferedSlot(t *testing.T) {
	start := time.Date(2026, time.September, 7, 10, 0, 0, 0, time.UTC)
	slot := models.Slot{Start: start, End: start.Add(30 * time.Minute)}
	fx := newRouterFixture(t, &models.Decision{
		Reply:      "Booking it.",
		ChosenSlot: &slot,
	})
	fx.store.sessions["s1"] = &models.Session{
		ID:           "s1",
		ActiveAgent:  models.AgentContest,
		OfferedSlots: []models.Slot{slot},
		Attendee:     &models.Attendee{Name: "Ana", Email: "ana@example.com"},
	}

	resp, err := fx.router.HandleMessage(context.Background(), "s1", "the 10am works")
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if fx.calendar.createCalls != 1 {
		t.Fatalf("CreateEvent called %d times, want 1", fx.calendar.createCalls)
	}
	if !strings.Contains(resp.Reply, "confirmed") {
		t.Errorf("reply = %q, want a confirmation", resp.Reply)
	}

	saved := fx.store.sessions["s1"]
	if saved.Booking == nil || saved.Booking.Status != models.BookingConfirmed {
		t.Fatalf("saved booking = %+v, want Confirmed", saved.Booking)
	}
	if len(saved.OfferedSlots) != 0 {
		t.Error("offered slots not cleared after booking")
	}
	if len(fx.followUp.reminders) != 1 {
		t.Errorf("scheduled %d reminders, want 1", len(fx.followUp.reminders))
	}
	if len(fx.followUp.intakes) != 1 {
		t.Errorf("queued %d intake forms, want 1", len(fx.followUp.intakes))
	}
}

func TestHandleMessageNeverBooksTwice(t *testing.T) {
	start := time.Date(2026, time.September, 7, 10, 0, 0, 0, time.UTC)
	slot := models.Slot{Start: start, End: start.Add(30 * time.Minute)}
	fx := newRouterFixture(t, &models.Decision{Reply: "Booking it.", ChosenSlot: &slot})
	fx.store.sessions["s1"] = &models.Session{
		ID:           "s1",
		ActiveAgent:  models.AgentContest,
		OfferedSlots: []models.Slot{slot},
		Booking: &models.Booking{
			ID:        "b1",
			SessionID: "s1",
			Slot:      slot,
			Status:    models.BookingConfirmed,
		},
	}

	resp, err := fx.router.HandleMessage(context.Background(), "s1", "book the 10am again")
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if fx.calendar.createCalls != 0 {
		t.Errorf("CreateEvent called %d times for a session with a booking", fx.calendar.createCalls)
	}
	if !strings.Contains(resp.Reply, "won't book another") {
		t.Errorf("reply = %q", resp.Reply)
	}
	if len(fx.followUp.reminders)+len(fx.followUp.intakes) != 0 {
		t.Error("follow-ups queued for a rejected booking")
	}
}
