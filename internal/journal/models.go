package journal

import "time"

// Entry is an immutable, append-only record of one call turn.
//
// Invariants:
// - Entries are never updated or deleted.
// - call_sid is required.
// - Journaling is best-effort; never block a turn on journal failures.
//
// Confidence is kept here (and in logs) only; it never feeds a decision.
type Entry struct {
	ID      string `json:"id" db:"id"`
	CallSid string `json:"call_sid" db:"call_sid"`

	// EngineSessionID is the session returned by the engine for this turn.
	EngineSessionID string `json:"engine_session_id,omitempty" db:"engine_session_id"`

	InputText    string `json:"input_text" db:"input_text"`
	Confidence   string `json:"confidence,omitempty" db:"confidence"`
	Keypress     string `json:"keypress,omitempty" db:"keypress"`
	RecordingURL string `json:"recording_url,omitempty" db:"recording_url"`

	Action    string `json:"action" db:"action"`
	ReplyText string `json:"reply_text" db:"reply_text"`

	// Error is set when the engine exchange failed and a fallback was rendered.
	Error string `json:"error,omitempty" db:"error"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
