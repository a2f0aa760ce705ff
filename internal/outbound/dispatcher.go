// Package outbound places engine-triggered calls that redirect into the turn
// endpoint once answered.
package outbound

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"voice-bridge/internal/metrics"
	"voice-bridge/internal/telephony"
	"voice-bridge/pkg/logger"
)

// Request is one dispatch. Only the digits of Destination are dialed.
// CallbackPath is the path (and raw query) the answered call is redirected to.
type Request struct {
	Destination  string
	CallbackPath string
}

// Guard limits in-flight dispatches per destination. *utils.Guard satisfies it.
type Guard interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Result is the outcome of a dispatch. It is informational only; the trigger
// request never sees it.
type Result struct {
	Outcome        string
	To             string
	ProviderCallID string
}

var (
	ErrDisabled   = errors.New("outbound: no dialer configured")
	ErrNoDigits   = errors.New("outbound: destination has no digits")
	ErrDuplicate  = errors.New("outbound: dispatch already in flight for destination")
	ErrNoRedirect = errors.New("outbound: redirect base url required")
)

// Dispatcher asks the provider to originate calls. A nil dialer disables it.
type Dispatcher struct {
	dialer telephony.Dialer
	guard  Guard
	log    *slog.Logger
}

func NewDispatcher(dialer telephony.Dialer, guard Guard, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{dialer: dialer, guard: guard, log: log}
}

// Dispatch places one call to req.Destination whose first instruction is a
// POST redirect to baseURL + req.CallbackPath. No retry.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request, baseURL string) (Result, error) {
	to := telephony.DialablePhone(req.Destination)
	res := Result{To: to}
	log := logger.FromOr(ctx, d.log).With("to", to)

	if d.dialer == nil {
		return d.done(log, res, metrics.OutboundDisabled, ErrDisabled)
	}
	if to == "" {
		return d.done(log, res, metrics.OutboundInvalid, ErrNoDigits)
	}
	if strings.TrimSpace(baseURL) == "" {
		return d.done(log, res, metrics.OutboundInvalid, ErrNoRedirect)
	}

	redirect := strings.TrimSuffix(baseURL, "/") + "/" + strings.TrimPrefix(req.CallbackPath, "/")
	doc, err := telephony.RenderRedirect(redirect)
	if err != nil {
		return d.done(log, res, metrics.OutboundInvalid, err)
	}

	if d.guard != nil {
		ok, err := d.guard.Acquire(ctx, to)
		switch {
		case err != nil:
			// Redis trouble must not block the call.
			log.Warn("outbound guard unavailable", "err", err)
		case !ok:
			return d.done(log, res, metrics.OutboundDuplicate, ErrDuplicate)
		}
	}

	placed, err := d.dialer.PlaceCall(ctx, telephony.PlaceCallRequest{To: to, TwiML: doc})
	if err != nil {
		if d.guard != nil {
			if rerr := d.guard.Release(context.WithoutCancel(ctx), to); rerr != nil {
				log.Warn("outbound guard release failed", "err", rerr)
			}
		}
		return d.done(log, res, metrics.OutboundFailed, err)
	}

	res.ProviderCallID = placed.ProviderCallID
	log.Info("outbound call placed",
		"provider", d.dialer.Name(),
		"provider_call_id", placed.ProviderCallID,
		"status", placed.Status,
		"redirect", redirect,
	)
	return d.done(log, res, metrics.OutboundPlaced, nil)
}

func (d *Dispatcher) done(log *slog.Logger, res Result, outcome string, err error) (Result, error) {
	res.Outcome = outcome
	metrics.OutboundCallsTotal.WithLabelValues(outcome).Inc()
	if err != nil {
		log.Error("outbound call not placed", "outcome", outcome, "err", err)
	}
	return res, err
}
