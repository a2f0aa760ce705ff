// Package ivr runs one call turn: it turns a provider callback into engine
// input, exchanges it with the dialogue engine and picks the next voice action.
package ivr

import (
	"voice-bridge/internal/dialogue"
	"voice-bridge/internal/session"
	"voice-bridge/internal/telephony"
)

// AuthenticationText is sent on turns that carry no speech before any
// utterance has been heard on the call.
const AuthenticationText = "Authentication"

// Turn is the normalized input for one exchange plus the fields kept for
// observability only.
type Turn struct {
	Input      dialogue.TurnInput
	Confidence string
	Keypress   string
	Recording  string
}

// CapturePhone picks the caller phone for the first turn of a call:
// the "phone" query param, then a phone path segment, then the Caller field.
func CapturePhone(cb telephony.VoiceCallback, pathPhone string) string {
	if p := telephony.DialablePhone(cb.PhoneParam); p != "" {
		return p
	}
	if p := telephony.DialablePhone(pathPhone); p != "" {
		return p
	}
	return cb.Caller
}

// Extract derives the engine input from a callback. prior is the call's state
// before this turn; its Phone must already be set.
func Extract(cb telephony.VoiceCallback, prior session.CallSession) Turn {
	text := prior.LastText
	if cb.HasSpeech() {
		text = cb.SpeechResult
	}
	if text == "" {
		text = AuthenticationText
	}

	params := map[string]string{dialogue.ParamPhone: prior.Phone}
	t := Turn{Confidence: cb.Confidence}
	if digits, ok := cb.Keypress(); ok {
		params[dialogue.ParamKeypress] = digits
		t.Keypress = digits
	}
	if u, ok := cb.Recording(); ok {
		params[dialogue.ParamURL] = u
		t.Recording = u
	}

	t.Input = dialogue.TurnInput{
		Text:       text,
		Parameters: params,
		Channel:    dialogue.ChannelIVR,
	}
	return t
}
