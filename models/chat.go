package models

// ChatRequest is the payload coming from the frontend into /api/chat.
type ChatRequest struct {
	SessionID string `json:"sessionId,omitempty"` // empty starts a new session
	Text      string `json:"text" binding:"required"`
}

// ChatResponse is the only thing an embedding front-end needs back.
type ChatResponse struct {
	SessionID string `json:"sessionId"`
	Reply     string `json:"reply"`
	Terminal  bool   `json:"terminal"`
}
