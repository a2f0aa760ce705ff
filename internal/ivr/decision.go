package ivr

import (
	"strings"

	"voice-bridge/internal/telephony"
)

// ActionParam is the engine output parameter that selects the next action.
const ActionParam = "twilioAction"

// defaultPathMarker is what the engine echoes when no action was chosen.
const defaultPathMarker = "/"

// Resolve maps engine output parameters to a voice action. known is false
// when the parameter carried a value outside the action set; the result is
// then the gather default.
func Resolve(params map[string]string) (action telephony.VoiceAction, known bool) {
	raw := strings.TrimSpace(params[ActionParam])
	if raw == "" || raw == defaultPathMarker {
		return telephony.VoiceActionGather, true
	}

	name := strings.TrimPrefix(raw, "/")
	for _, a := range telephony.VoiceActions {
		if string(a) == name {
			return a, true
		}
	}
	return telephony.VoiceActionGather, false
}
