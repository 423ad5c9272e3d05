package anthropicprovider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/discochess/codeassist/internal/provider"
)

func newServer(t *testing.T, status int, body string, check func(*http.Request, messagesRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if check != nil {
			check(r, req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_MissingKey(t *testing.T) {
	if _, err := New(""); !errors.Is(err, provider.ErrMissingAPIKey) {
		t.Errorf("New() error = %v, want ErrMissingAPIKey", err)
	}
}

func TestProvider_GenerateResponse(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{
		"id": "msg_1",
		"model": "claude-3-sonnet-20240229",
		"content": [{"type": "text", "text": "hel"}, {"type": "text", "text": "lo"}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 7, "output_tokens": 2}
	}`, func(r *http.Request, req messagesRequest) {
		if r.Header.Get("x-api-key") != "key" || r.Header.Get("anthropic-version") != apiVersion {
			t.Errorf("headers = %v", r.Header)
		}
		if req.System != "a\n\nb" {
			t.Errorf("System = %q, want joined system messages", req.System)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != provider.RoleUser {
			t.Errorf("Messages = %+v", req.Messages)
		}
		if req.MaxTokens != DefaultMaxTokens {
			t.Errorf("MaxTokens = %d, want %d", req.MaxTokens, DefaultMaxTokens)
		}
	})

	p, err := New("key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	resp, err := p.GenerateResponse(context.Background(), []provider.Message{
		{Role: provider.RoleSystem, Content: "a"},
		{Role: provider.RoleSystem, Content: "b"},
		{Role: provider.RoleUser, Content: "hi"},
	})
	if err != nil {
		t.Fatalf("GenerateResponse() error = %v", err)
	}
	if resp.Content != "hello" || resp.FinishReason != "end_turn" {
		t.Errorf("response = %+v", resp)
	}
	if resp.TokensUsed() != 9 {
		t.Errorf("TokensUsed() = %d, want 9", resp.TokensUsed())
	}
}

func TestProvider_GenerateResponseErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantErr  error
		wantText string
	}{
		{"api error", http.StatusBadRequest, `{"type": "error", "error": {"type": "invalid_request_error", "message": "bad"}}`, nil, "invalid_request_error: bad"},
		{"empty content", http.StatusOK, `{"id": "x", "content": []}`, provider.ErrEmptyResponse, ""},
		{"malformed", http.StatusBadGateway, `<html>`, nil, "decoding response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, tt.status, tt.body, nil)
			p, _ := New("key", WithBaseURL(srv.URL))

			_, err := p.GenerateResponse(context.Background(), []provider.Message{{Role: provider.RoleUser, Content: "hi"}})

			var perr *provider.Error
			if !errors.As(err, &perr) || perr.Provider != Name {
				t.Fatalf("error = %v, want *provider.Error", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantText != "" && !strings.Contains(err.Error(), tt.wantText) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantText)
			}
		})
	}
}
