package rate

import (
	"context"
	"testing"
	"time"
)

func TestTokenBucketFirstWaitIsImmediate(t *testing.T) {
	tb := NewTokenBucket(1)
	defer tb.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := tb.Wait(ctx); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}
}

func TestTokenBucketWaitHonorsCancel(t *testing.T) {
	tb := NewTokenBucket(1)
	defer tb.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	if err := tb.Wait(ctx); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}
	cancel()
	// the bucket refills at 1 rps; a canceled context must not block
	if err := tb.Wait(ctx); err == nil {
		t.Fatalf("expected cancellation error")
	}
}

func TestTokenBucketStopReturns(t *testing.T) {
	tb := NewTokenBucket(10)

	done := make(chan struct{})
	go func() {
		tb.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return; refill goroutine still running")
	}
}

func TestNoLimitNeverBlocks(t *testing.T) {
	ctx := context.Background()
	for range 3 {
		if err := (NoLimit{}).Wait(ctx); err != nil {
			t.Fatalf("wait failed: %v", err)
		}
	}
}

func TestNoLimitReportsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (NoLimit{}).Wait(ctx); err == nil {
		t.Fatalf("expected cancellation error")
	}
}
