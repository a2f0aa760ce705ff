package telephony

import (
	"context"
)

// Dialer originates calls at the telephony provider.
//
// Rules:
// - No provider SDK calls outside telephony adapters.
// - Keep request/response types provider-agnostic.
type Dialer interface {
	Name() string
	PlaceCall(ctx context.Context, req PlaceCallRequest) (PlaceCallResult, error)
}

// PlaceCallRequest asks the provider to dial To and run TwiML once answered.
type PlaceCallRequest struct {
	// To is E.164.
	To string `json:"to"`

	// TwiML is the initial instruction document for the call.
	TwiML string `json:"twiml"`
}

type PlaceCallResult struct {
	// ProviderCallID is the provider's unique identifier for the new call.
	ProviderCallID string `json:"provider_call_id"`
	Status         string `json:"status,omitempty"`
}
