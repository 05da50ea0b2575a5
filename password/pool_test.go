package password

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestPool(t *testing.T, size int) *Pool {
	t.Helper()
	p, err := NewPool(newTestHasher(t), size)
	if err != nil {
		t.Fatalf("NewPool error: %v", err)
	}
	return p
}

func TestPoolHashAndVerify(t *testing.T) {
	p := newTestPool(t, 2)
	ctx := context.Background()

	hash, err := p.Hash(ctx, "Secret1!")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	ok, err := p.Verify(ctx, "Secret1!", hash)
	if err != nil || !ok {
		t.Fatalf("Verify failed: ok=%v err=%v", ok, err)
	}

	ok, err = p.Verify(ctx, "Wrong1!!", hash)
	if err != nil || ok {
		t.Fatalf("Verify wrong password: ok=%v err=%v", ok, err)
	}
}

func TestPoolDefaultSize(t *testing.T) {
	p := newTestPool(t, 0)
	if p.Size() < 1 {
		t.Fatalf("expected positive default size, got %d", p.Size())
	}
}

func TestPoolVerifyDummy(t *testing.T) {
	p := newTestPool(t, 1)

	if err := p.VerifyDummy(context.Background(), "Secret1!"); err != nil {
		t.Fatalf("VerifyDummy error: %v", err)
	}
}

func TestPoolHonoursCancelledContextWhileWaiting(t *testing.T) {
	p := newTestPool(t, 1)

	// Hold the only slot so the next caller has to wait.
	if err := p.sem.Acquire(context.Background(), 1); err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	defer p.sem.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Hash(ctx, "Secret1!"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := p.Verify(ctx, "Secret1!", p.dummy); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPoolConcurrentUse(t *testing.T) {
	p := newTestPool(t, 2)
	ctx := context.Background()

	hash, err := p.Hash(ctx, "Secret1!")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := p.Verify(ctx, "Secret1!", hash)
			if err != nil {
				errs <- err
				return
			}
			if !ok {
				errs <- errors.New("verification failed")
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent verify: %v", err)
	}
}

func TestNewPoolRejectsNilHasher(t *testing.T) {
	if _, err := NewPool(nil, 1); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
