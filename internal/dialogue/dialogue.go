// Package dialogue talks to the conversational engine that drives each call.
package dialogue

import (
	"context"
	"fmt"
)

// ChannelIVR tags every input sent from a phone call.
const ChannelIVR = "ivr"

// Parameter keys attached to a turn.
const (
	ParamKeypress = "keypress"
	ParamURL      = "url"
	ParamPhone    = "phone"
)

// TurnInput is the caller's contribution for one exchange.
type TurnInput struct {
	Text       string
	Parameters map[string]string
	Channel    string
}

// Output is the engine's reply for one exchange.
type Output struct {
	Text       string
	Parameters map[string]string
	// SessionID is the engine session to use for the next turn. It may differ
	// from the one sent, and is always authoritative.
	SessionID string
}

// Client sends one turn to the engine. An empty sessionID asks the engine to
// allocate a new session.
type Client interface {
	SendInput(ctx context.Context, sessionID string, in TurnInput) (Output, error)
}

// EngineError reports a reply the engine produced but that cannot be used.
type EngineError struct {
	HTTPStatus int
	Status     int
	Message    string
}

func (e *EngineError) Error() string {
	if e.HTTPStatus != 0 && (e.HTTPStatus < 200 || e.HTTPStatus > 299) {
		return fmt.Sprintf("dialogue: engine returned http %d", e.HTTPStatus)
	}
	if e.Message != "" {
		return fmt.Sprintf("dialogue: engine status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("dialogue: engine status %d", e.Status)
}
