package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"voice-bridge/internal/ivr"
	"voice-bridge/internal/outbound"
	"voice-bridge/internal/telephony"
	"voice-bridge/pkg/logger"

	"github.com/gin-gonic/gin"
)

// TurnService runs one call turn. *ivr.Engine satisfies it.
type TurnService interface {
	HandleTurn(ctx context.Context, cb telephony.VoiceCallback, pathPhone string) (telephony.VoiceResponse, error)
}

// OutboundService places engine-triggered calls. *outbound.Dispatcher satisfies it.
type OutboundService interface {
	Dispatch(ctx context.Context, req outbound.Request, baseURL string) (outbound.Result, error)
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse input, call internal services, write TwiML.
type Handlers struct {
	Turns    TurnService
	Outbound OutboundService
	Voice    telephony.VoiceOptions

	// PublicBaseURL prefixes outbound redirect targets. Empty means
	// "http://" + the request Host.
	PublicBaseURL string
}

// --- Voice webhook ---

// HandleTurn answers a Twilio voice callback on "/" or "/:phone".
func (h Handlers) HandleTurn(c *gin.Context) {
	if h.Turns == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "turn engine not configured"})
		return
	}
	log := logger.FromGin(c)

	cb, err := telephony.ParseVoiceCallback(c.Request)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	res, err := h.Turns.HandleTurn(c.Request.Context(), cb, c.Param("phone"))
	if errors.Is(err, ivr.ErrMissingCallSid) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "CallSid required"})
		return
	}
	if err != nil {
		log.Error("turn failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "turn failed"})
		return
	}

	doc, err := telephony.RenderTwiML(res, h.Voice)
	if err != nil {
		log.Error("twiml render failed", "action", res.Action, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "render failed"})
		return
	}
	c.Data(http.StatusOK, telephony.ContentType, []byte(doc))
}

// --- Outbound trigger ---

// OutboundPath prefixes the outbound trigger. Everything after it, query
// included, is both the destination and the redirect target.
const OutboundPath = "/outbound_call"

// HandleOutbound dispatches a call to the number carried after OutboundPath,
// e.g. "/outbound_call/+1-555-0100" or "/outbound_call?phone=+15550100".
// The trigger always gets an empty 200; failures are logged by the dispatcher.
func (h Handlers) HandleOutbound(c *gin.Context) {
	suffix := strings.TrimPrefix(c.Request.URL.Path, OutboundPath)
	if q := c.Request.URL.RawQuery; q != "" {
		suffix += "?" + q
	}

	if h.Outbound != nil {
		req := outbound.Request{
			Destination:  suffix,
			CallbackPath: suffix,
		}
		_, _ = h.Outbound.Dispatch(c.Request.Context(), req, h.baseURL(c))
	}
	c.Data(http.StatusOK, telephony.ContentType, nil)
}

func (h Handlers) baseURL(c *gin.Context) string {
	if h.PublicBaseURL != "" {
		return h.PublicBaseURL
	}
	return "http://" + c.Request.Host
}
