package featureflags

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEnabled(t *testing.T) {
	t.Setenv("FLAG_WORKFLOW_SHARING", "true")
	t.Setenv("FLAG_EXTERNAL_SECRETS", "0")

	if !Enabled("workflow-sharing") {
		t.Error("expected workflow-sharing to be enabled")
	}
	if Enabled("external-secrets") {
		t.Error("expected external-secrets to be disabled")
	}
	if Enabled("never-set") {
		t.Error("expected unset flag to be disabled")
	}
}

func TestEnvProviderHonorsContext(t *testing.T) {
	p := &EnvProvider{Known: []string{"workflow-sharing"}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.FlagsFor(ctx, "user-1"); err == nil {
		t.Error("expected error for cancelled context")
	}
}

type countingProvider struct {
	calls int
	err   error
}

func (p *countingProvider) FlagsFor(ctx context.Context, userID string) (map[string]bool, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return map[string]bool{"workflow-sharing": true}, nil
}

func TestCachedProviderMemoizes(t *testing.T) {
	inner := &countingProvider{}
	p := NewCachedProvider(inner, time.Minute)

	for i := 0; i < 3; i++ {
		flags, err := p.FlagsFor(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !flags["workflow-sharing"] {
			t.Error("expected workflow-sharing enabled")
		}
	}

	if inner.calls != 1 {
		t.Errorf("expected 1 inner lookup, got %d", inner.calls)
	}

	// a different user misses the cache
	if _, err := p.FlagsFor(context.Background(), "user-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 inner lookups, got %d", inner.calls)
	}
}

func TestCachedProviderDoesNotCacheErrors(t *testing.T) {
	inner := &countingProvider{err: errors.New("flag service down")}
	p := NewCachedProvider(inner, time.Minute)

	if _, err := p.FlagsFor(context.Background(), "user-1"); err == nil {
		t.Fatal("expected error")
	}

	inner.err = nil
	flags, err := p.FlagsFor(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !flags["workflow-sharing"] {
		t.Error("expected flags after recovery")
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 inner lookups, got %d", inner.calls)
	}
}
