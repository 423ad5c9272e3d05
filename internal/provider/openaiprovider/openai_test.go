package openaiprovider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/discochess/codeassist/internal/provider"
)

func TestNew_MissingKey(t *testing.T) {
	if _, err := New(""); !errors.Is(err, provider.ErrMissingAPIKey) {
		t.Errorf("New() error = %v, want ErrMissingAPIKey", err)
	}
}

func TestProvider_GenerateResponse(t *testing.T) {
	var got struct {
		Model               string             `json:"model"`
		Messages            []provider.Message `json:"messages"`
		MaxCompletionTokens int                `json:"max_completion_tokens"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"model": "gpt-4-0613",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "hello"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 1, "total_tokens": 4}
		}`))
	}))
	defer srv.Close()

	p, err := New("sk-test", WithBaseURL(srv.URL), WithModel("gpt-4"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	resp, err := p.GenerateResponse(context.Background(), []provider.Message{
		{Role: provider.RoleSystem, Content: "sys"},
		{Role: provider.RoleUser, Content: "hi"},
	}, provider.WithMaxTokens(50))
	if err != nil {
		t.Fatalf("GenerateResponse() error = %v", err)
	}

	if got.Model != "gpt-4" || len(got.Messages) != 2 || got.MaxCompletionTokens != 50 {
		t.Errorf("request = %+v", got)
	}
	if resp.Content != "hello" || resp.Model != "gpt-4-0613" || resp.FinishReason != "stop" {
		t.Errorf("response = %+v", resp)
	}
	if resp.TokensUsed() != 4 {
		t.Errorf("TokensUsed() = %d, want 4", resp.TokensUsed())
	}
	if resp.Metadata["response_id"] != "chatcmpl-1" {
		t.Errorf("Metadata = %v", resp.Metadata)
	}
}

func TestProvider_GenerateResponseErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"api error", http.StatusTooManyRequests, `{"error": {"message": "slow down", "type": "rate_limit"}}`, nil},
		{"no choices", http.StatusOK, `{"id": "x", "choices": []}`, provider.ErrEmptyResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p, _ := New("sk-test", WithBaseURL(srv.URL))
			_, err := p.GenerateResponse(context.Background(), []provider.Message{{Role: provider.RoleUser, Content: "hi"}})

			var perr *provider.Error
			if !errors.As(err, &perr) || perr.Provider != Name {
				t.Fatalf("error = %v, want *provider.Error", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
