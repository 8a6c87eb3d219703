package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// Default suggestion endpoints
const (
	DefaultReplyEndpoint   = "https://msghelp.onrender.com/suggest-reply"
	DefaultGeneralEndpoint = "https://msghelp.onrender.com/suggest-reply-general"
)

// CurrentMessage is the message a reply is wanted for
type CurrentMessage struct {
	Text      string `json:"text"`
	Platform  string `json:"platform"`
	Timestamp int64  `json:"timestamp"`
}

// ContextMessage is one earlier message of the conversation
type ContextMessage struct {
	Text      string    `json:"text"`
	Type      Direction `json:"type"`
	Timestamp int64     `json:"timestamp"`
}

// SuggestionRequest is the body posted to the suggestion service
type SuggestionRequest struct {
	CurrentMessage  CurrentMessage   `json:"current_message"`
	ContextMessages []ContextMessage `json:"context_messages"`
}

// Suggestion is the service's answer
type Suggestion struct {
	Suggestion string `json:"suggestion"`
	Cached     bool   `json:"cached,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
}

// NewSuggestionRequest builds a request body from the current message and its
// chronological context.
func NewSuggestionRequest(current Message, contextWindow []Message) SuggestionRequest {
	req := SuggestionRequest{
		CurrentMessage: CurrentMessage{
			Text:      current.Text,
			Platform:  current.Platform,
			Timestamp: current.Timestamp,
		},
		ContextMessages: make([]ContextMessage, 0, len(contextWindow)),
	}
	for _, m := range contextWindow {
		req.ContextMessages = append(req.ContextMessages, ContextMessage{
			Text:      m.Text,
			Type:      m.Direction,
			Timestamp: m.Timestamp,
		})
	}
	return req
}

// SuggestionClient posts suggestion requests, retrying transport failures per its policy
type SuggestionClient struct {
	httpClient *http.Client
	policy     RetryPolicy
}

// NewSuggestionClient creates a client. A nil httpClient uses a fresh default client.
func NewSuggestionClient(policy RetryPolicy, httpClient *http.Client) *SuggestionClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &SuggestionClient{httpClient: httpClient, policy: policy}
}

// Suggest posts req to endpoint. Transport failures come back as network
// SuggestionErrors after the policy's retries; non-2xx answers come back
// immediately as application SuggestionErrors.
func (c *SuggestionClient) Suggest(ctx context.Context, endpoint string, req SuggestionRequest) (Suggestion, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return Suggestion{}, errors.Wrap(err, "failed to marshal request")
	}

	var result Suggestion
	err = c.policy.Do(ctx, IsNetworkError, func(actx context.Context) error {
		s, err := c.post(actx, endpoint, jsonData)
		if err != nil {
			return err
		}
		result = s
		return nil
	})
	if err != nil {
		var se *SuggestionError
		if errors.As(err, &se) {
			return Suggestion{}, se
		}
		return Suggestion{}, &SuggestionError{Kind: SuggestionErrorNetwork, Err: err}
	}
	return result, nil
}

func (c *SuggestionClient) post(ctx context.Context, endpoint string, body []byte) (Suggestion, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Suggestion{}, &SuggestionError{Kind: SuggestionErrorApplication, Err: errors.Wrap(err, "failed to create request")}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Suggestion{}, &SuggestionError{Kind: SuggestionErrorNetwork, Err: errors.Wrap(err, "request failed")}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		return Suggestion{}, &SuggestionError{
			Kind:   SuggestionErrorApplication,
			Status: resp.StatusCode,
			Detail: errorDetail(raw),
		}
	}

	var s Suggestion
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return Suggestion{}, &SuggestionError{
			Kind:   SuggestionErrorApplication,
			Status: resp.StatusCode,
			Err:    errors.Wrap(err, "failed to parse response"),
		}
	}
	return s, nil
}

// errorDetail reads {"detail": ...} from an error body, falling back to the raw text
func errorDetail(raw []byte) string {
	var body struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Detail != nil {
		if s, ok := body.Detail.(string); ok {
			return s
		}
		if b, err := json.Marshal(body.Detail); err == nil {
			return string(b)
		}
	}
	return strings.TrimSpace(string(raw))
}
