package ask

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"
)

// Client asks the remote inference endpoint over plain HTTP:
// POST {question, userId} to the configured URL, JSON {answer} or {error}
// back. The endpoint address is deployment configuration, not logic.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient builds a client for the configured ask URL. The timeout bounds
// the whole round trip; an expired request surfaces as a connect failure.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type askRequest struct {
	Question string `json:"question"`
	UserID   string `json:"userId"`
}

type askResponse struct {
	Answer string `json:"answer"`
	Error  string `json:"error"`
}

// Ask performs one question round trip. Transport failures and malformed
// bodies come back as failure results, never as errors.
func (c *Client) Ask(ctx context.Context, question, identityID string) Result {
	payload, err := json.Marshal(askRequest{Question: question, UserID: identityID})
	if err != nil {
		log.Printf("[ask] encode request: %v", err)
		return Failure(FailGenericText)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		log.Printf("[ask] build request: %v", err)
		return Failure(FailGenericText)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[ask] request failed: %v", err)
		return Failure(FailConnectText)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[ask] read response: %v", err)
		return Failure(FailConnectText)
	}

	var parsed askResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		log.Printf("[ask] malformed response: %v", err)
		return Failure(FailGenericText)
	}

	switch {
	case parsed.Answer != "":
		return Answer(parsed.Answer)
	case parsed.Error != "":
		return Failure(errorPrefix + parsed.Error)
	default:
		return Failure(FailGenericText)
	}
}
