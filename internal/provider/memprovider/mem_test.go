package memprovider

import (
	"context"
	"errors"
	"testing"

	"github.com/discochess/codeassist/internal/provider"
)

func user(s string) []provider.Message {
	return []provider.Message{{Role: provider.RoleUser, Content: s}}
}

func TestProvider_Script(t *testing.T) {
	p := New("one", "two")
	ctx := context.Background()

	want := []string{"one", "two", "two"}
	for i, w := range want {
		resp, err := p.GenerateResponse(ctx, user("hi"))
		if err != nil {
			t.Fatalf("call %d: error = %v", i, err)
		}
		if resp.Content != w {
			t.Errorf("call %d: Content = %q, want %q", i, resp.Content, w)
		}
	}
	if p.CallCount() != 3 {
		t.Errorf("CallCount() = %d, want 3", p.CallCount())
	}
}

func TestProvider_Echo(t *testing.T) {
	p := New()
	resp, err := p.GenerateResponse(context.Background(), []provider.Message{
		{Role: provider.RoleSystem, Content: "be nice"},
		{Role: provider.RoleUser, Content: "hello there"},
	}, provider.WithMaxTokens(5))
	if err != nil {
		t.Fatalf("GenerateResponse() error = %v", err)
	}
	if resp.Content != "hello there" {
		t.Errorf("Content = %q, want echo", resp.Content)
	}
	if resp.TokensUsed() != 6 {
		t.Errorf("TokensUsed() = %d, want 6", resp.TokensUsed())
	}
	if got := p.LastRequest(); got.MaxTokens != 5 || got.Temperature != provider.DefaultTemperature {
		t.Errorf("LastRequest() = %+v", got)
	}
}

func TestProvider_FuncError(t *testing.T) {
	errDown := errors.New("down")
	p := NewFunc(func(context.Context, []provider.Message) (string, error) { return "", errDown })

	_, err := p.GenerateResponse(context.Background(), user("x"))
	if !errors.Is(err, errDown) {
		t.Fatalf("error = %v, want %v", err, errDown)
	}
	var perr *provider.Error
	if !errors.As(err, &perr) || perr.Provider != Name {
		t.Errorf("error = %#v, want *provider.Error from %q", err, Name)
	}
}
