package memory

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	ctx := context.Background()
	b := New()
	defer b.Close()

	s1, err := b.Subscribe(ctx, "topic")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	s2, err := b.Subscribe(ctx, "topic")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := b.Publish(ctx, "topic", []byte("hello")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	for i, s := range []interface {
		Next(context.Context) ([]byte, error)
	}{s1, s2} {
		data, err := s.Next(ctx)
		if err != nil {
			t.Fatalf("subscriber %d Next failed: %v", i, err)
		}
		if string(data) != "hello" {
			t.Errorf("subscriber %d received %q, want %q", i, data, "hello")
		}
	}
}

func TestTopicsAreIsolated(t *testing.T) {
	ctx := context.Background()
	b := New()
	defer b.Close()

	s, err := b.Subscribe(ctx, "a")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := b.Publish(ctx, "b", []byte("other")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	recvCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := s.Next(recvCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
}

func TestStreamCloseEndsNext(t *testing.T) {
	ctx := context.Background()
	b := New()
	defer b.Close()

	s, err := b.Subscribe(ctx, "topic")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Next(ctx)
		done <- err
	}()

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, io.EOF) {
			t.Fatalf("expected io.EOF, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Next did not return after stream close")
	}
}

func TestBrokerCloseEndsStreams(t *testing.T) {
	ctx := context.Background()
	b := New()

	s, err := b.Subscribe(ctx, "topic")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := s.Next(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after broker close, got %v", err)
	}
	if err := b.Publish(ctx, "topic", []byte("x")); err == nil {
		t.Fatal("expected error publishing on a closed broker")
	}
	if _, err := b.Subscribe(ctx, "topic"); err == nil {
		t.Fatal("expected error subscribing on a closed broker")
	}
}

func TestPublishSkipsSlowSubscribers(t *testing.T) {
	ctx := context.Background()
	b := New()
	defer b.Close()

	slow, err := b.Subscribe(ctx, "topic")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	_ = slow

	// Fill the slow subscriber's buffer and then some; the publisher must
	// not block.
	for i := 0; i < subscriberBuffer*2; i++ {
		if err := b.Publish(ctx, "topic", []byte("x")); err != nil {
			t.Fatalf("Publish %d failed: %v", i, err)
		}
	}
}

func TestStreamCloseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	b := New()
	defer b.Close()

	s, err := b.Subscribe(ctx, "topic")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}
