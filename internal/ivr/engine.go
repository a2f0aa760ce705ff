package ivr

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"voice-bridge/internal/dialogue"
	"voice-bridge/internal/journal"
	"voice-bridge/internal/metrics"
	"voice-bridge/internal/session"
	"voice-bridge/internal/telephony"
	"voice-bridge/pkg/logger"
)

// DefaultFallbackMessage is spoken before hanging up when the engine fails.
const DefaultFallbackMessage = "Sorry, something went wrong. Please call again later."

// DefaultJournalTimeout bounds each journal append.
const DefaultJournalTimeout = 500 * time.Millisecond

var ErrMissingCallSid = errors.New("ivr: callback has no CallSid")

// Journal receives one entry per turn. *journal.Service satisfies it.
type Journal interface {
	Append(ctx context.Context, e journal.Entry) error
}

// StatsSource is implemented by registries that report their size.
type StatsSource interface {
	Stats() session.Stats
}

// Engine is the per-process turn orchestrator. It owns no global state; every
// collaborator is injected.
type Engine struct {
	sessions session.Registry
	client   dialogue.Client
	journal  Journal
	log      *slog.Logger
	fallback string

	journalTimeout time.Duration
}

type Option func(*Engine)

// WithJournal records every turn. Journal failures never fail the turn.
func WithJournal(j Journal) Option { return func(e *Engine) { e.journal = j } }

// WithJournalTimeout overrides DefaultJournalTimeout.
func WithJournalTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.journalTimeout = d
		}
	}
}

// WithFallbackMessage overrides DefaultFallbackMessage.
func WithFallbackMessage(msg string) Option {
	return func(e *Engine) {
		if msg != "" {
			e.fallback = msg
		}
	}
}

func NewEngine(sessions session.Registry, client dialogue.Client, log *slog.Logger, opts ...Option) *Engine {
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{
		sessions: sessions,
		client:   client,
		log:      log,
		fallback: DefaultFallbackMessage,

		journalTimeout: DefaultJournalTimeout,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// HandleTurn runs one exchange for the call in cb. pathPhone is the optional
// phone segment of the webhook path.
//
// Engine failures do not return an error: the caller hears the fallback
// message and the call ends, leaving the registry as it was.
func (e *Engine) HandleTurn(ctx context.Context, cb telephony.VoiceCallback, pathPhone string) (telephony.VoiceResponse, error) {
	if cb.CallSid == "" {
		return telephony.VoiceResponse{}, ErrMissingCallSid
	}
	log := logger.FromOr(ctx, e.log).With("call_sid", cb.CallSid)

	prior, known := e.sessions.Get(cb.CallSid)
	if !known {
		prior = session.CallSession{CallID: cb.CallSid, Phone: CapturePhone(cb, pathPhone)}
		log.Info("call started", "phone", prior.Phone, "direction", cb.Direction)
	}

	turn := Extract(cb, prior)
	if turn.Confidence != "" {
		log.Debug("speech confidence", "confidence", turn.Confidence)
	}

	start := time.Now()
	out, err := e.client.SendInput(ctx, prior.EngineSessionID, turn.Input)
	metrics.EngineRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.EngineErrorsTotal.Inc()
		log.Error("dialogue engine failed", "err", err)
		res := telephony.VoiceResponse{Action: telephony.VoiceActionHangup, Text: e.fallback}
		e.record(ctx, log, cb.CallSid, prior.EngineSessionID, turn, res, err)
		metrics.TurnsTotal.WithLabelValues(string(res.Action)).Inc()
		return res, nil
	}

	next := prior
	next.EngineSessionID = out.SessionID
	next.LastText = turn.Input.Text
	e.sessions.Put(next)
	if next.EngineSessionID != prior.EngineSessionID {
		log.Debug("engine session bound", "engine_session_id", next.EngineSessionID)
	}
	if s, ok := e.sessions.(StatsSource); ok {
		st := s.Stats()
		metrics.ObserveSessions(st.Size, st.Evictions)
	}

	action, ok := Resolve(out.Parameters)
	if !ok {
		log.Warn("unknown voice action, using default", "value", out.Parameters[ActionParam])
	}
	res := telephony.VoiceResponse{Action: action, Text: out.Text}

	e.record(ctx, log, cb.CallSid, next.EngineSessionID, turn, res, nil)
	metrics.TurnsTotal.WithLabelValues(string(res.Action)).Inc()
	return res, nil
}

func (e *Engine) record(ctx context.Context, log *slog.Logger, callSid, sessionID string, turn Turn, res telephony.VoiceResponse, turnErr error) {
	if e.journal == nil {
		return
	}
	entry := journal.Entry{
		CallSid:         callSid,
		EngineSessionID: sessionID,
		InputText:       turn.Input.Text,
		Confidence:      turn.Confidence,
		Keypress:        turn.Keypress,
		RecordingURL:    turn.Recording,
		Action:          string(res.Action),
		ReplyText:       res.Text,
	}
	if turnErr != nil {
		entry.Error = turnErr.Error()
	}
	// Detached from request cancellation; only journalTimeout applies.
	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.journalTimeout)
	defer cancel()
	if err := e.journal.Append(jctx, entry); err != nil {
		log.Warn("journal append failed", "err", err)
	}
}
