package provider

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeProvider records the last conversation and answers with reply.
type fakeProvider struct {
	reply    string
	err      error
	messages []Message
	req      Request
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) GenerateResponse(_ context.Context, messages []Message, opts ...GenerateOption) (*Response, error) {
	f.messages = messages
	f.req = BuildRequest(opts...)
	if f.err != nil {
		return nil, Wrap(f.Name(), f.err)
	}
	return &Response{Content: f.reply, Model: "fake"}, nil
}

func TestMessages(t *testing.T) {
	tests := []struct {
		name       string
		system     string
		background string
		wantRoles  []string
	}{
		{"user only", "", "", []string{RoleUser}},
		{"with system", "sys", "", []string{RoleSystem, RoleUser}},
		{"with context", "sys", "ctx", []string{RoleSystem, RoleSystem, RoleUser}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Messages("hi", tt.system, tt.background)
			if len(got) != len(tt.wantRoles) {
				t.Fatalf("Messages() len = %d, want %d", len(got), len(tt.wantRoles))
			}
			for i, role := range tt.wantRoles {
				if got[i].Role != role {
					t.Errorf("Messages()[%d].Role = %q, want %q", i, got[i].Role, role)
				}
			}
			if got[len(got)-1].Content != "hi" {
				t.Errorf("last message = %q, want hi", got[len(got)-1].Content)
			}
		})
	}
}

func TestAssistant_Prompts(t *testing.T) {
	ctx := context.Background()
	code := "func f() {}"

	tests := []struct {
		name       string
		call       func(a *Assistant) (*Response, error)
		wantSystem string
		wantUser   string
	}{
		{
			name:       "generate",
			call:       func(a *Assistant) (*Response, error) { return a.GenerateCode(ctx, "write f", "go", "") },
			wantSystem: "expert go programmer",
			wantUser:   "write f",
		},
		{
			name:       "analyze security",
			call:       func(a *Assistant) (*Response, error) { return a.AnalyzeCode(ctx, code, "go", AnalysisSecurity) },
			wantSystem: "focusing on security aspects",
			wantUser:   "security vulnerabilities",
		},
		{
			name:       "analyze unknown kind",
			call:       func(a *Assistant) (*Response, error) { return a.AnalyzeCode(ctx, code, "go", "vibes") },
			wantSystem: "focusing on general aspects",
			wantUser:   "```go\nfunc f() {}\n```",
		},
		{
			name:       "explain",
			call:       func(a *Assistant) (*Response, error) { return a.ExplainCode(ctx, code, "go") },
			wantSystem: "developer and teacher",
			wantUser:   "Please explain this go code",
		},
		{
			name:       "improve",
			call:       func(a *Assistant) (*Response, error) { return a.SuggestImprovements(ctx, code, "go") },
			wantSystem: "suggest specific improvements",
			wantUser:   "suggest improvements for this go code",
		},
		{
			name:       "fix",
			call:       func(a *Assistant) (*Response, error) { return a.FixErrors(ctx, code, "undefined: x", "go") },
			wantSystem: "debugger",
			wantUser:   "Error message: undefined: x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeProvider{reply: "ok"}
			resp, err := tt.call(NewAssistant(f))
			if err != nil || resp.Content != "ok" {
				t.Fatalf("call = %v, %v", resp, err)
			}
			if len(f.messages) < 2 {
				t.Fatalf("got %d messages, want system and user", len(f.messages))
			}
			if sys := f.messages[0].Content; !strings.Contains(sys, tt.wantSystem) {
				t.Errorf("system prompt %q does not contain %q", sys, tt.wantSystem)
			}
			if u := f.messages[len(f.messages)-1].Content; !strings.Contains(u, tt.wantUser) {
				t.Errorf("user prompt %q does not contain %q", u, tt.wantUser)
			}
		})
	}
}

func TestAssistant_GenerateCodeWithContext(t *testing.T) {
	f := &fakeProvider{reply: "ok"}
	_, err := NewAssistant(f).GenerateCode(context.Background(), "p", "go", "existing code", WithTemperature(0.7))
	if err != nil {
		t.Fatalf("GenerateCode() error = %v", err)
	}
	if len(f.messages) != 3 || f.messages[1].Content != "Context:\nexisting code" {
		t.Errorf("messages = %+v", f.messages)
	}
	if f.req.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want 0.7", f.req.Temperature)
	}
}

func TestAssistant_TestConnection(t *testing.T) {
	errDown := errors.New("down")

	tests := []struct {
		name    string
		f       *fakeProvider
		wantErr error
	}{
		{"ok", &fakeProvider{reply: "hi"}, nil},
		{"empty", &fakeProvider{}, ErrEmptyResponse},
		{"failure", &fakeProvider{err: errDown}, errDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAssistant(tt.f).TestConnection(context.Background())
			if tt.wantErr == nil && err != nil {
				t.Fatalf("TestConnection() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("TestConnection() error = %v, want %v", err, tt.wantErr)
			}
			if tt.f.req.MaxTokens != 10 {
				t.Errorf("MaxTokens = %d, want 10", tt.f.req.MaxTokens)
			}
		})
	}
}

func TestError(t *testing.T) {
	inner := errors.New("rate limited")
	err := Wrap("openai", inner)

	if err.Error() != "openai: rate limited" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, inner) {
		t.Error("errors.Is should see the wrapped error")
	}
	if Wrap("x", nil) != nil {
		t.Error("Wrap(nil) should be nil")
	}
}
