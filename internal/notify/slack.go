package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const slackBaseURL = "https://slack.com/api"

// SlackClient delivers direct messages through the Slack Web API.
type SlackClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewSlackClient(token string) *SlackClient {
	return &SlackClient{
		baseURL: slackBaseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SendDM opens (or reuses) a DM channel with the user and posts the
// message there.
func (c *SlackClient) SendDM(ctx context.Context, slackUserID, text string) error {
	if c.token == "" {
		return errors.New("no slack bot token configured")
	}

	var opened struct {
		Channel struct {
			ID string `json:"id"`
		} `json:"channel"`
	}
	err := c.post(ctx, "/conversations.open", map[string]any{"users": slackUserID}, &opened)
	if err != nil {
		return fmt.Errorf("opening DM with %s: %w", slackUserID, err)
	}

	err = c.post(ctx, "/chat.postMessage", map[string]any{
		"channel": opened.Channel.ID,
		"text":    text,
		"mrkdwn":  true,
	}, &struct{}{})
	if err != nil {
		return fmt.Errorf("posting message to %s: %w", slackUserID, err)
	}
	return nil
}

func (c *SlackClient) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("slack responded with status %s", resp.Status)
	}

	// Slack reports API-level failures with 200 + ok=false.
	var envelope struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	raw, err := readBody(resp)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode slack response: %w", err)
	}
	if !envelope.OK {
		return fmt.Errorf("slack error: %s", envelope.Error)
	}
	return json.Unmarshal(raw, out)
}

func readBody(resp *http.Response) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("read slack response: %w", err)
	}
	return buf.Bytes(), nil
}
