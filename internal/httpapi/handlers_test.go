package httpapi

import (
	"context"
	"encoding/xml"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-bridge/internal/dialogue"
	"voice-bridge/internal/ivr"
	"voice-bridge/internal/outbound"
	"voice-bridge/internal/session"
	"voice-bridge/internal/telephony"
)

type fakeTurns struct {
	calls        int
	gotCallback  telephony.VoiceCallback
	gotPathPhone string
	res          telephony.VoiceResponse
	err          error
}

func (f *fakeTurns) HandleTurn(_ context.Context, cb telephony.VoiceCallback, pathPhone string) (telephony.VoiceResponse, error) {
	f.calls++
	f.gotCallback, f.gotPathPhone = cb, pathPhone
	return f.res, f.err
}

type fakeOutbound struct {
	got     []outbound.Request
	baseURL string
	err     error
}

func (f *fakeOutbound) Dispatch(_ context.Context, req outbound.Request, baseURL string) (outbound.Result, error) {
	f.got = append(f.got, req)
	f.baseURL = baseURL
	return outbound.Result{}, f.err
}

func newRouter(h Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/", h.HandleTurn)
	r.POST("/:phone", h.HandleTurn)
	r.POST(OutboundPath, h.HandleOutbound)
	r.POST(OutboundPath+"/*target", h.HandleOutbound)
	return r
}

func postForm(r http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type gatherDoc struct {
	Gather *struct {
		Action string `xml:"action,attr"`
		Say    string `xml:"Say"`
	} `xml:"Gather"`
	Say    string    `xml:"Say"`
	Hangup *struct{} `xml:"Hangup"`
}

func TestHandleTurn_RendersTwiML(t *testing.T) {
	turns := &fakeTurns{res: telephony.VoiceResponse{Action: telephony.VoiceActionGather, Text: "How can I help?"}}
	r := newRouter(Handlers{Turns: turns, Voice: telephony.VoiceOptions{Language: "en-US", Voice: "Polly.Joanna"}})

	w := postForm(r, "/?phone=15550100", url.Values{"CallSid": {"C1"}, "CallStatus": {"in-progress"}, "SpeechResult": {"hi"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, telephony.ContentType, w.Header().Get("Content-Type"))

	var doc gatherDoc
	require.NoError(t, xml.Unmarshal(w.Body.Bytes(), &doc))
	require.NotNil(t, doc.Gather)
	assert.Equal(t, telephony.TurnPath, doc.Gather.Action)
	assert.Equal(t, "How can I help?", doc.Gather.Say)

	assert.Equal(t, "C1", turns.gotCallback.CallSid)
	assert.Equal(t, "15550100", turns.gotCallback.PhoneParam)
	assert.Empty(t, turns.gotPathPhone)
}

func TestHandleTurn_PassesPathPhone(t *testing.T) {
	turns := &fakeTurns{res: telephony.VoiceResponse{Action: telephony.VoiceActionHangup, Text: "Bye"}}
	r := newRouter(Handlers{Turns: turns})

	w := postForm(r, "/+1-555-0100", url.Values{"CallSid": {"C1"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "+1-555-0100", turns.gotPathPhone)
}

func TestHandleTurn_MissingCallSidIsBadRequest(t *testing.T) {
	r := newRouter(Handlers{Turns: &fakeTurns{err: ivr.ErrMissingCallSid}})
	w := postForm(r, "/", url.Values{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleTurn_MalformedBodyIsBadRequest(t *testing.T) {
	r := newRouter(Handlers{Turns: &fakeTurns{}})
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("%zz"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid form"}`, w.Body.String())
}

func TestHandleTurn_UnknownActionIsServerError(t *testing.T) {
	r := newRouter(Handlers{Turns: &fakeTurns{res: telephony.VoiceResponse{Action: "transfer"}}})
	w := postForm(r, "/", url.Values{"CallSid": {"C1"}})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandleOutbound_DispatchesAndReturnsEmptyXML(t *testing.T) {
	ob := &fakeOutbound{}
	r := newRouter(Handlers{Outbound: ob})

	w := postForm(r, "/outbound_call/+1-555-0100", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, telephony.ContentType, w.Header().Get("Content-Type"))
	assert.Empty(t, w.Body.String())

	require.Len(t, ob.got, 1)
	assert.Equal(t, "/+1-555-0100", ob.got[0].Destination)
	assert.Equal(t, "/+1-555-0100", ob.got[0].CallbackPath)
	assert.Equal(t, "http://example.com", ob.baseURL)
}

func TestHandleOutbound_KeepsQueryAndUsesPublicBaseURL(t *testing.T) {
	ob := &fakeOutbound{}
	r := newRouter(Handlers{Outbound: ob, PublicBaseURL: "https://bridge.example.com"})

	w := postForm(r, "/outbound_call/15550100?phone=15550100", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/15550100?phone=15550100", ob.got[0].CallbackPath)
	assert.Equal(t, "https://bridge.example.com", ob.baseURL)
}

func TestHandleOutbound_DestinationFromQuery(t *testing.T) {
	cases := []struct {
		target string
		want   string
	}{
		{"/outbound_call?phone=+15550100", "?phone=+15550100"},
		{"/outbound_call/?phone=+15550100", "/?phone=+15550100"},
		{"/outbound_call", ""},
	}
	for _, tc := range cases {
		t.Run(tc.target, func(t *testing.T) {
			ob := &fakeOutbound{}
			turns := &fakeTurns{}
			r := newRouter(Handlers{Outbound: ob, Turns: turns})

			w := postForm(r, tc.target, nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, telephony.ContentType, w.Header().Get("Content-Type"))
			assert.Empty(t, w.Body.String())

			require.Len(t, ob.got, 1)
			assert.Equal(t, tc.want, ob.got[0].Destination)
			assert.Equal(t, tc.want, ob.got[0].CallbackPath)
			assert.Zero(t, turns.calls, "turn handler must not run")
		})
	}
}

func TestHandleOutbound_FailureStillSucceeds(t *testing.T) {
	r := newRouter(Handlers{Outbound: &fakeOutbound{err: errors.New("provider down")}})
	w := postForm(r, "/outbound_call/+15550100", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

type scriptedClient struct {
	sessions []string
}

func (s *scriptedClient) SendInput(_ context.Context, sessionID string, in dialogue.TurnInput) (dialogue.Output, error) {
	s.sessions = append(s.sessions, sessionID)
	if in.Text == "bye" {
		return dialogue.Output{Text: "Goodbye", Parameters: map[string]string{ivr.ActionParam: "/hang_up"}, SessionID: "S1"}, nil
	}
	return dialogue.Output{Text: "Hello " + in.Parameters[dialogue.ParamPhone], Parameters: map[string]string{ivr.ActionParam: "/"}, SessionID: "S1"}, nil
}

func TestCallFlow_GatherThenHangup(t *testing.T) {
	reg := session.NewMemoryRegistry(session.Options{})
	defer reg.Close()
	client := &scriptedClient{}
	r := newRouter(Handlers{Turns: ivr.NewEngine(reg, client, nil)})

	w := postForm(r, "/?phone=15550100", url.Values{"CallSid": {"C1"}, "CallStatus": {"ringing"}})
	require.Equal(t, http.StatusOK, w.Code)
	var first gatherDoc
	require.NoError(t, xml.Unmarshal(w.Body.Bytes(), &first))
	require.NotNil(t, first.Gather)
	assert.Equal(t, "Hello +15550100", first.Gather.Say)

	w = postForm(r, "/", url.Values{"CallSid": {"C1"}, "CallStatus": {"in-progress"}, "SpeechResult": {"bye"}})
	require.Equal(t, http.StatusOK, w.Code)
	var second gatherDoc
	require.NoError(t, xml.Unmarshal(w.Body.Bytes(), &second))
	assert.Nil(t, second.Gather)
	assert.NotNil(t, second.Hangup)
	assert.Equal(t, "Goodbye", second.Say)

	assert.Equal(t, []string{"", "S1"}, client.sessions)
}
