package dialogue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	sessionCookie   = "JSESSIONID"
	defaultTimeout  = 10 * time.Second
	maxResponseSize = 1 << 20
)

// TeneoClient speaks the Teneo Interaction Engine (TIE) API: a form POST per
// turn, with the session carried in the JSESSIONID cookie.
type TeneoClient struct {
	engineURL  string
	httpClient *http.Client
}

// Options configures the engine client. Zero values use defaults.
type Options struct {
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewTeneoClient creates a client for the engine at engineURL.
func NewTeneoClient(engineURL string, opts Options) (*TeneoClient, error) {
	trimmed := strings.TrimSpace(engineURL)
	u, err := url.Parse(trimmed)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("dialogue: invalid engine url %q", engineURL)
	}
	// TIE endpoints are directories; requests without the trailing slash get redirected.
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &TeneoClient{engineURL: u.String(), httpClient: hc}, nil
}

// tieResponse mirrors the JSON body returned by the engine.
type tieResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Output  struct {
		Text       string         `json:"text"`
		Emotion    string         `json:"emotion"`
		Link       string         `json:"link"`
		Parameters map[string]any `json:"parameters"`
	} `json:"output"`
	SessionID string `json:"sessionId"`
}

func (c *TeneoClient) SendInput(ctx context.Context, sessionID string, in TurnInput) (Output, error) {
	form, err := encodeInput(in)
	if err != nil {
		return Output{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.engineURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Output{}, fmt.Errorf("dialogue: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: sessionID})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Output{}, fmt.Errorf("dialogue: send input: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return Output{}, &EngineError{HTTPStatus: resp.StatusCode}
	}

	var body tieResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&body); err != nil {
		return Output{}, fmt.Errorf("dialogue: decode response: %w", err)
	}
	if body.Status != 0 {
		return Output{}, &EngineError{HTTPStatus: resp.StatusCode, Status: body.Status, Message: body.Message}
	}

	out := Output{
		Text:       body.Output.Text,
		Parameters: stringParams(body.Output.Parameters),
		SessionID:  body.SessionID,
	}
	// Some engine deployments only return the session through the cookie.
	if out.SessionID == "" {
		for _, ck := range resp.Cookies() {
			if ck.Name == sessionCookie {
				out.SessionID = ck.Value
			}
		}
	}
	if out.SessionID == "" {
		out.SessionID = sessionID
	}
	return out, nil
}

var errNoChannel = errors.New("dialogue: channel required")

func encodeInput(in TurnInput) (url.Values, error) {
	if in.Channel == "" {
		return nil, errNoChannel
	}
	params := in.Parameters
	if params == nil {
		params = map[string]string{}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("dialogue: encode parameters: %w", err)
	}

	form := url.Values{}
	form.Set("viewtype", "tieapi")
	form.Set("userinput", in.Text)
	form.Set("channel", in.Channel)
	form.Set("parameters", string(raw))
	return form, nil
}

// stringParams flattens engine output parameters; solutions may emit numbers
// or objects where the bridge only reads strings.
func stringParams(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch tv := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = tv
		case float64, bool:
			out[k] = fmt.Sprint(tv)
		default:
			raw, err := json.Marshal(tv)
			if err != nil {
				continue
			}
			out[k] = string(raw)
		}
	}
	return out
}
