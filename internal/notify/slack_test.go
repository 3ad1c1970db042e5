package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testSlackClient(t *testing.T, handler http.Handler) *SlackClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewSlackClient("xoxb-test")
	c.baseURL = srv.URL
	return c
}

func TestSendDM(t *testing.T) {
	var posted map[string]any

	c := testSlackClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer xoxb-test" {
			t.Errorf("unexpected auth header %q", got)
		}

		switch r.URL.Path {
		case "/conversations.open":
			w.Write([]byte(`{"ok": true, "channel": {"id": "D123"}}`))
		case "/chat.postMessage":
			if err := json.NewDecoder(r.Body).Decode(&posted); err != nil {
				t.Fatalf("decoding post body: %v", err)
			}
			w.Write([]byte(`{"ok": true}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	if err := c.SendDM(context.Background(), "U111", "hello there"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if posted["channel"] != "D123" {
		t.Errorf("expected message posted to opened channel, got %v", posted["channel"])
	}
	if posted["text"] != "hello there" {
		t.Errorf("unexpected text %v", posted["text"])
	}
	if posted["mrkdwn"] != true {
		t.Error("expected mrkdwn enabled")
	}
}

func TestSendDM_SlackLevelError(t *testing.T) {
	c := testSlackClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Slack returns 200 with ok=false for API failures.
		w.Write([]byte(`{"ok": false, "error": "users_not_found"}`))
	}))

	err := c.SendDM(context.Background(), "U999", "hello")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "users_not_found") {
		t.Errorf("expected slack error code in message, got %v", err)
	}
}

func TestSendDM_HTTPError(t *testing.T) {
	c := testSlackClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))

	if err := c.SendDM(context.Background(), "U111", "hello"); err == nil {
		t.Fatal("expected an error on HTTP failure")
	}
}

func TestSendDM_MissingToken(t *testing.T) {
	c := NewSlackClient("")
	if err := c.SendDM(context.Background(), "U111", "hello"); err == nil {
		t.Fatal("expected an error without a token")
	}
}
