package agent

import "fmt"

// AgentError mirrors the schedule package's coded errors for the
// conversation side of the house.
type AgentError struct {
	Code    string
	Message string
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AgentError) Is(target error) bool {
	t, ok := target.(*AgentError)
	return ok && t.Code == e.Code
}

// ErrResponderUnavailable covers failures and timeouts of the language model
// boundary, and malformed decisions it returns.
var ErrResponderUnavailable = &AgentError{Code: "responderUnavailable", Message: "responder failed to produce a decision"}
