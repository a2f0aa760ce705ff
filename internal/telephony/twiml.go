package telephony

import (
	"errors"
	"strings"

	"github.com/twilio/twilio-go/twiml"
)

// ContentType is the media type Twilio expects for TwiML responses.
const ContentType = "text/xml"

// TurnPath is where every gather/record callback is sent back to.
const TurnPath = "/"

const (
	gatherTimeoutSeconds = "3"
	recordMaxLength      = "5"
)

// VoiceAction is the closed set of next steps the bridge can ask Twilio for.
type VoiceAction string

const (
	VoiceActionGather VoiceAction = "gather_default"
	VoiceActionRecord VoiceAction = "record_default"
	VoiceActionHangup VoiceAction = "hang_up"
)

// VoiceActions lists every valid action, in declaration order.
var VoiceActions = []VoiceAction{VoiceActionGather, VoiceActionRecord, VoiceActionHangup}

// VoiceOptions carries the configured speech language and synthesis voice.
type VoiceOptions struct {
	Language string
	Voice    string
}

// VoiceResponse is what the turn engine asks the adapter to render.
type VoiceResponse struct {
	Action VoiceAction
	Text   string
}

var ErrUnknownAction = errors.New("telephony: unknown voice action")

// RenderTwiML maps a VoiceResponse to TwiML.
//
//   - gather: listen for speech or digits, speaking the reply inside the Gather.
//   - record: speak, then record without trimming silence.
//   - hangup: speak, then end the call.
func RenderTwiML(res VoiceResponse, opts VoiceOptions) (string, error) {
	say := &twiml.VoiceSay{
		Message:  res.Text,
		Voice:    opts.Voice,
		Language: opts.Language,
	}

	var verbs []twiml.Element
	switch res.Action {
	case VoiceActionGather:
		verbs = append(verbs, &twiml.VoiceGather{
			Input:               "speech dtmf",
			Action:              TurnPath,
			ActionOnEmptyResult: "false",
			Language:            opts.Language,
			Timeout:             gatherTimeoutSeconds,
			SpeechTimeout:       "auto",
			InnerElements:       []twiml.Element{say},
		})
	case VoiceActionRecord:
		verbs = append(verbs, say, &twiml.VoiceRecord{
			Action:    TurnPath,
			MaxLength: recordMaxLength,
			Trim:      "do-not-trim",
		})
	case VoiceActionHangup:
		verbs = append(verbs, say, &twiml.VoiceHangup{})
	default:
		return "", ErrUnknownAction
	}
	return twiml.Voice(verbs)
}

// RenderRedirect builds the bootstrap document for an outbound call: a single
// POST redirect into the turn endpoint.
func RenderRedirect(url string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", errors.New("telephony: redirect url required")
	}
	return twiml.Voice([]twiml.Element{&twiml.VoiceRedirect{Url: url, Method: "POST"}})
}
