package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestGuardSerializesSameOwnerAndService(t *testing.T) {
	guard := NewGenerationGuard(GenerationGuardParam{Log: zap.NewNop()})
	ctx := context.Background()

	var mu sync.Mutex
	var inFlight, maxInFlight int

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := guard.Acquire(ctx, "owner-1", "ai_text_writer")
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			mu.Lock()
			inFlight++
			if inFlight > maxInFlight {
				maxInFlight = inFlight
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inFlight--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	if maxInFlight != 1 {
		t.Fatalf("expected serialized access, saw %d concurrent holders", maxInFlight)
	}
}

func TestGuardAllowsDistinctKeysConcurrently(t *testing.T) {
	guard := NewGenerationGuard(GenerationGuardParam{Log: zap.NewNop()})
	ctx := context.Background()

	release1, err := guard.Acquire(ctx, "owner-1", "ai_text_writer")
	if err != nil {
		t.Fatalf("acquire owner-1: %v", err)
	}
	defer release1()

	// A different owner and a different service must not block.
	done := make(chan struct{})
	go func() {
		defer close(done)
		release2, err := guard.Acquire(ctx, "owner-2", "ai_text_writer")
		if err != nil {
			t.Errorf("acquire owner-2: %v", err)
			return
		}
		release2()

		release3, err := guard.Acquire(ctx, "owner-1", "ai_image_generator")
		if err != nil {
			t.Errorf("acquire other service: %v", err)
			return
		}
		release3()
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("distinct keys should acquire without waiting")
	}
}

func TestGuardCleansUpIdleLocks(t *testing.T) {
	guard := NewGenerationGuard(GenerationGuardParam{Log: zap.NewNop()})

	release, err := guard.Acquire(context.Background(), "owner-1", "ai_text_writer")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	release()

	guard.mu.Lock()
	remaining := len(guard.locks)
	guard.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("expected idle lock entries removed, got %d", remaining)
	}
}
