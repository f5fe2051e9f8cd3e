package retry

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"medintake-be/pkg/llm"
)

// scriptedProvider returns the queued results in order, then repeats the last.
type scriptedProvider struct {
	results []scriptedResult
	calls   int
}

type scriptedResult struct {
	text string
	err  error
}

func (p *scriptedProvider) next() (string, error) {
	i := p.calls
	if i >= len(p.results) {
		i = len(p.results) - 1
	}
	p.calls++
	r := p.results[i]
	return r.text, r.err
}

func (p *scriptedProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return p.next()
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.next()
}

func TestRetriesTransientErrors(t *testing.T) {
	provider := &scriptedProvider{results: []scriptedResult{
		{err: &llm.StatusError{Code: http.StatusTooManyRequests}},
		{err: &llm.StatusError{Code: http.StatusInternalServerError}},
		{text: "recovered"},
	}}
	client := New(provider, 2, time.Millisecond, nil)

	got, err := client.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "recovered" {
		t.Errorf("got %q, want %q", got, "recovered")
	}
	if provider.calls != 3 {
		t.Errorf("calls = %d, want 3", provider.calls)
	}
}

func TestNonRetryableFailsImmediately(t *testing.T) {
	provider := &scriptedProvider{results: []scriptedResult{
		{err: &llm.StatusError{Code: http.StatusUnauthorized}},
		{text: "should never be reached"},
	}}
	client := New(provider, 2, time.Millisecond, nil)

	_, err := client.Generate(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error")
	}
	if provider.calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry budget for auth failures)", provider.calls)
	}
}

func TestBlankResponseIsRetried(t *testing.T) {
	provider := &scriptedProvider{results: []scriptedResult{
		{text: "  ​\n "},
		{text: "real content"},
	}}
	client := New(provider, 2, time.Millisecond, nil)

	got, err := client.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "real content" {
		t.Errorf("got %q, want %q", got, "real content")
	}
	if provider.calls != 2 {
		t.Errorf("calls = %d, want 2", provider.calls)
	}
}

func TestExhaustedBudgetReturnsLastError(t *testing.T) {
	provider := &scriptedProvider{results: []scriptedResult{
		{err: &llm.StatusError{Code: http.StatusServiceUnavailable}},
	}}
	client := New(provider, 2, time.Millisecond, nil)

	_, err := client.Generate(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if provider.calls != 3 {
		t.Errorf("calls = %d, want 3 (initial + 2 retries)", provider.calls)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", &llm.StatusError{Code: 429}, true},
		{"server error", &llm.StatusError{Code: 502}, true},
		{"auth failure", &llm.StatusError{Code: 401}, false},
		{"bad request", &llm.StatusError{Code: 400}, false},
		{"blank response", ErrBlankResponse, true},
		{"context canceled", context.Canceled, false},
		{"transport", errors.New("connection refused"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestContextCancelStopsBackoff(t *testing.T) {
	provider := &scriptedProvider{results: []scriptedResult{
		{err: &llm.StatusError{Code: http.StatusInternalServerError}},
	}}
	client := New(provider, 2, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := client.Generate(ctx, "prompt")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
