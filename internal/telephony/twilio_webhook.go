package telephony

import (
	"net/http"
	"strings"
)

// CallStatusInProgress is the only status for which a speech result counts.
const CallStatusInProgress = "in-progress"

// DigitsTimeout is what Gather posts as Digits when the caller pressed nothing.
const DigitsTimeout = "timeout"

// VoiceCallback captures the subset of voice webhook fields the bridge reads.
// Twilio sends application/x-www-form-urlencoded by default.
// Ref: https://www.twilio.com/docs/voice/twiml/gather#action
//
// Every field is optional; absence means "not present on this callback".
type VoiceCallback struct {
	CallSid    string
	AccountSid string
	From       string
	To         string
	Caller     string
	Direction  string
	CallStatus string

	SpeechResult string
	Confidence   string
	Digits       string

	RecordingSid      string
	RecordingURL      string
	RecordingDuration string

	// PhoneParam is the optional "phone" query parameter used on the first turn.
	PhoneParam string
}

// ParseVoiceCallback reads a voice webhook. Only a malformed body is an error.
func ParseVoiceCallback(r *http.Request) (VoiceCallback, error) {
	if err := r.ParseForm(); err != nil {
		return VoiceCallback{}, err
	}
	f := VoiceCallback{
		CallSid:           r.PostFormValue("CallSid"),
		AccountSid:        r.PostFormValue("AccountSid"),
		From:              normalizePhone(r.PostFormValue("From")),
		To:                normalizePhone(r.PostFormValue("To")),
		Caller:            normalizePhone(r.PostFormValue("Caller")),
		Direction:         r.PostFormValue("Direction"),
		CallStatus:        r.PostFormValue("CallStatus"),
		SpeechResult:      strings.TrimSpace(r.PostFormValue("SpeechResult")),
		Confidence:        r.PostFormValue("Confidence"),
		Digits:            strings.TrimSpace(r.PostFormValue("Digits")),
		RecordingSid:      r.PostFormValue("RecordingSid"),
		RecordingURL:      r.PostFormValue("RecordingUrl"),
		RecordingDuration: r.PostFormValue("RecordingDuration"),
		PhoneParam:        r.URL.Query().Get("phone"),
	}
	return f, nil
}

// HasSpeech reports whether this callback carries a usable speech result.
func (f VoiceCallback) HasSpeech() bool {
	return f.CallStatus == CallStatusInProgress && f.SpeechResult != ""
}

// Keypress returns the DTMF digits, excluding the timeout sentinel.
func (f VoiceCallback) Keypress() (string, bool) {
	if f.Digits == "" || f.Digits == DigitsTimeout {
		return "", false
	}
	return f.Digits, true
}

// Recording returns the recording URL when a recording identifier is present.
func (f VoiceCallback) Recording() (string, bool) {
	if f.RecordingSid == "" {
		return "", false
	}
	return f.RecordingURL, true
}

func normalizePhone(s string) string {
	s = strings.TrimSpace(s)
	// Twilio sometimes sends "anonymous" or empty; keep as-is.
	return s
}

// DialablePhone strips everything but digits and prefixes "+".
// It returns "" when no digits remain.
func DialablePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "+" + b.String()
}
