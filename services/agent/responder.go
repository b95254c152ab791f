package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"salescompagent/models"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// roleInstructions are the behavioral templates the responder is scoped to.
// The wording is deliberately minimal; tuning it is outside the core.
var roleInstructions = map[models.AgentRole]string{
	models.AgentPolicy:        "You are a sales compensation policy expert. Answer questions about the minimum commission guarantee, air cover bonus, windfall activation and leave of absence policies, and name the policy you used.",
	models.AgentCommission:    "You are a sales commissions expert. Compute the user's commission from their on-target incentive and annual quota, and show the calculation.",
	models.AgentContest:       "You help users start a SPIF or sales contest. Collect their full name and email, then book a consultation with the Sales Comp team. When they ask for times, emit a booking_request; when they pick an offered time, emit chosen_slot.",
	models.AgentFeedback:      "You collect feedback about the sales compensation program. If the user reports an unresolved issue with all required details (name, email, description), set create_ticket.",
	models.AgentPlanExplainer: "You explain how the user's compensation plan works in plain language.",
}

const decisionSchema = `Respond with a single JSON object, no markdown, with fields:
  "reply": string, your message to the user (required);
  "next_agent": one of "policy","commission","contest","feedback","plan_explainer" if the topic shifted, else omit;
  "create_ticket": boolean, true only when a support ticket must be opened now;
  "booking_request": {"earliest": "YYYY-MM-DDTHH:MM:SS", "latest": "YYYY-MM-DDTHH:MM:SS", "duration_minutes": int, "timezone": IANA zone} when the user wants to see available times, else omit;
  "chosen_slot": {"start": RFC3339, "end": RFC3339} when the user picked one of the offered times, else omit;
  "attendee": {"name": string, "email": string} once the user has provided them, else omit;
  "end_session": boolean, true only when the user wants to end the conversation.`

// GeminiResponder produces structured decisions with the Gemini API.
type GeminiResponder struct {
	model *genai.GenerativeModel
}

func NewGeminiResponder(apiKey string) *GeminiResponder {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		panic(fmt.Sprintf("failed to create Gemini client: %v", err))
	}

	model := client.GenerativeModel("models/gemini-1.5-pro")
	model.ResponseMIMEType = "application/json"
	return &GeminiResponder{model: model}
}

func (g *GeminiResponder) Respond(ctx context.Context, transcript []models.Message, cfg ResponderConfig) (*models.Decision, error) {
	prompt := buildPrompt(transcript, cfg)

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponderUnavailable, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("%w: empty candidate", ErrResponderUnavailable)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			sb.WriteString(string(textPart))
		}
	}
	return ParseDecision(sb.String())
}

func buildPrompt(transcript []models.Message, cfg ResponderConfig) string {
	instructions, ok := roleInstructions[cfg.Role]
	if !ok {
		instructions = roleInstructions[models.AgentPolicy]
	}

	window := transcript
	if cfg.MaxHistory > 0 && len(window) > cfg.MaxHistory {
		window = window[len(window)-cfg.MaxHistory:]
	}

	var sb strings.Builder
	sb.WriteString(instructions)
	sb.WriteString("\n\n")
	sb.WriteString(decisionSchema)
	sb.WriteString("\n\nConversation so far:\n")
	for _, m := range window {
		sb.WriteString(string(m.Role))
		sb.WriteString(": ")
		sb.WriteString(m.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

// decisionWire is the JSON shape the model emits; timestamps arrive as
// strings and are validated here so the router only ever sees well-formed
// decisions.
type decisionWire struct {
	Reply          string `json:"reply"`
	NextAgent      string `json:"next_agent,omitempty"`
	CreateTicket   bool   `json:"create_ticket"`
	BookingRequest *struct {
		Earliest        string `json:"earliest"`
		Latest          string `json:"latest"`
		DurationMinutes int    `json:"duration_minutes"`
		Timezone        string `json:"timezone"`
	} `json:"booking_request,omitempty"`
	ChosenSlot *struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"chosen_slot,omitempty"`
	Attendee   *models.Attendee `json:"attendee,omitempty"`
	EndSession bool             `json:"end_session"`
}

// ParseDecision validates raw model output into a Decision. Anything
// malformed is reported as a responder failure so the router can retry.
func ParseDecision(raw string) (*models.Decision, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var wire decisionWire
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, fmt.Errorf("%w: malformed decision: %v", ErrResponderUnavailable, err)
	}
	if wire.Reply == "" {
		return nil, fmt.Errorf("%w: decision missing reply", ErrResponderUnavailable)
	}

	decision := &models.Decision{
		Reply:        wire.Reply,
		NextAgent:    models.AgentRole(wire.NextAgent),
		CreateTicket: wire.CreateTicket,
		Attendee:     wire.Attendee,
		EndSession:   wire.EndSession,
	}

	if wire.BookingRequest != nil {
		earliest, err := parseWireTime(wire.BookingRequest.Earliest)
		if err != nil {
			return nil, fmt.Errorf("%w: booking_request earliest: %v", ErrResponderUnavailable, err)
		}
		latest, err := parseWireTime(wire.BookingRequest.Latest)
		if err != nil {
			return nil, fmt.Errorf("%w: booking_request latest: %v", ErrResponderUnavailable, err)
		}
		decision.BookingRequest = &models.SlotRequest{
			Earliest: earliest,
			Latest:   latest,
			Duration: time.Duration(wire.BookingRequest.DurationMinutes) * time.Minute,
			Timezone: wire.BookingRequest.Timezone,
		}
	}

	if wire.ChosenSlot != nil {
		start, err := parseWireTime(wire.ChosenSlot.Start)
		if err != nil {
			return nil, fmt.Errorf("%w: chosen_slot start: %v", ErrResponderUnavailable, err)
		}
		end, err := parseWireTime(wire.ChosenSlot.End)
		if err != nil {
			return nil, fmt.Errorf("%w: chosen_slot end: %v", ErrResponderUnavailable, err)
		}
		decision.ChosenSlot = &models.Slot{Start: start, End: end}
	}

	return decision, nil
}

var wireTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

func parseWireTime(value string) (time.Time, error) {
	for _, layout := range wireTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}
