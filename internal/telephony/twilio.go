package telephony

import (
	"context"
	"errors"
	"fmt"

	"voice-bridge/internal/config"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// CallCreator is the slice of the Twilio REST API the dialer needs.
// *openapi.ApiService satisfies it.
type CallCreator interface {
	CreateCall(params *openapi.CreateCallParams) (*openapi.ApiV2010Call, error)
}

// TwilioDialer places outbound calls through the Twilio REST API.
type TwilioDialer struct {
	api  CallCreator
	from string
}

// NewTwilioDialer builds a dialer authenticated with the account credentials.
func NewTwilioDialer(cfg config.TwilioConfig) *TwilioDialer {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return NewTwilioDialerWithAPI(client.Api, cfg.OutboundNumber)
}

// NewTwilioDialerWithAPI is used by tests to substitute the REST API.
func NewTwilioDialerWithAPI(api CallCreator, from string) *TwilioDialer {
	return &TwilioDialer{api: api, from: from}
}

func (p *TwilioDialer) Name() string { return "twilio" }

func (p *TwilioDialer) PlaceCall(ctx context.Context, req PlaceCallRequest) (PlaceCallResult, error) {
	if p.api == nil {
		return PlaceCallResult{}, errors.New("telephony: twilio api is nil")
	}
	if req.To == "" {
		return PlaceCallResult{}, errors.New("telephony: destination required")
	}
	if req.TwiML == "" {
		return PlaceCallResult{}, errors.New("telephony: twiml required")
	}
	if err := ctx.Err(); err != nil {
		return PlaceCallResult{}, err
	}

	params := &openapi.CreateCallParams{}
	params.SetTo(req.To)
	params.SetFrom(p.from)
	params.SetTwiml(req.TwiML)

	call, err := p.api.CreateCall(params)
	if err != nil {
		return PlaceCallResult{}, fmt.Errorf("telephony: twilio create call: %w", err)
	}

	res := PlaceCallResult{}
	if call != nil {
		if call.Sid != nil {
			res.ProviderCallID = *call.Sid
		}
		if call.Status != nil {
			res.Status = *call.Status
		}
	}
	return res, nil
}
