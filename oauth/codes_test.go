package oauth_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lanonasis/mcp-gateway/oauth"
	storagememory "github.com/lanonasis/mcp-gateway/storage/memory"
)

func newTestCodeStore(t *testing.T) *oauth.CodeStore {
	t.Helper()
	store, err := storagememory.New(64)
	if err != nil {
		t.Fatalf("failed to build storage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return oauth.NewCodeStore(store, 0)
}

func TestGenerateCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code, err := oauth.GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode failed: %v", err)
		}
		if seen[code] {
			t.Fatalf("duplicate code generated: %q", code)
		}
		seen[code] = true
		if strings.ContainsAny(code, "+/=") {
			t.Fatalf("code %q is not URL safe", code)
		}
	}
}

func TestCodeStoreConsumeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	cs := newTestCodeStore(t)

	ac := &oauth.AuthorizationCode{
		Code:      "code-1",
		ClientID:  "client-1",
		ExpiresAt: time.Now().Add(time.Minute),
	}
	if err := cs.Store(ctx, ac); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	got, err := cs.Consume(ctx, "code-1")
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if got == nil || got.ClientID != "client-1" {
		t.Fatalf("Consume returned %+v, want stored code", got)
	}

	got, err = cs.Consume(ctx, "code-1")
	if err != nil {
		t.Fatalf("second Consume failed: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil on second consume")
	}
}

func TestCodeStoreConsumeUnknown(t *testing.T) {
	cs := newTestCodeStore(t)
	got, err := cs.Consume(context.Background(), "never-issued")
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for unknown code, got %+v", got)
	}
}

func TestCodeStoreConsumeExpired(t *testing.T) {
	ctx := context.Background()
	cs := newTestCodeStore(t)

	ac := &oauth.AuthorizationCode{
		Code:      "stale",
		ClientID:  "client-1",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	if err := cs.Store(ctx, ac); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	got, err := cs.Consume(ctx, "stale")
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil for expired code")
	}
}

func TestCodeStoreConcurrentConsumeHasOneWinner(t *testing.T) {
	ctx := context.Background()
	cs := newTestCodeStore(t)

	ac := &oauth.AuthorizationCode{
		Code:      "contested",
		ClientID:  "client-1",
		ExpiresAt: time.Now().Add(time.Minute),
	}
	if err := cs.Store(ctx, ac); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	const racers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := cs.Consume(ctx, "contested")
			if err != nil {
				t.Errorf("Consume failed: %v", err)
				return
			}
			if got != nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("got %d winners, want exactly 1", wins)
	}
}
