package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newFastRetrier(config *Config) (*Retrier, *[]time.Duration) {
	r := New(config)
	waits := &[]time.Duration{}
	r.sleep = func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
	return r, waits
}

func TestRetrierSucceedsFirstAttempt(t *testing.T) {
	r, waits := newFastRetrier(nil)

	calls := 0
	result := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if len(*waits) != 0 {
		t.Errorf("waits = %v, want none", *waits)
	}
}

func TestRetrierRecoversAfterFailure(t *testing.T) {
	r, waits := newFastRetrier(&Config{MaxAttempts: 3, Interval: 200 * time.Millisecond})

	calls := 0
	result := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", result.Attempts)
	}

	// Linear backoff: 200ms × 1, 200ms × 2
	want := []time.Duration{200 * time.Millisecond, 400 * time.Millisecond}
	if len(*waits) != len(want) {
		t.Fatalf("waits = %v, want %v", *waits, want)
	}
	for i := range want {
		if (*waits)[i] != want[i] {
			t.Errorf("wait[%d] = %v, want %v", i, (*waits)[i], want[i])
		}
	}
}

func TestRetrierExhaustsAttempts(t *testing.T) {
	r, _ := newFastRetrier(&Config{MaxAttempts: 3, Interval: time.Millisecond})

	calls := 0
	handlerErr := errors.New("still broken")
	result := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return handlerErr
	})

	if !errors.Is(result.Err, ErrMaxRetriesExceeded) {
		t.Fatalf("err = %v, want ErrMaxRetriesExceeded", result.Err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want exactly 3", calls)
	}
	if !errors.Is(result.LastError, handlerErr) {
		t.Errorf("last error = %v, want %v", result.LastError, handlerErr)
	}
}

func TestRetrierStopsOnPermanentError(t *testing.T) {
	r, _ := newFastRetrier(nil)

	calls := 0
	cause := errors.New("bad payload")
	result := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Permanent(cause)
	})

	if calls != 1 {
		t.Errorf("calls = %d, want 1 for permanent error", calls)
	}
	if !errors.Is(result.Err, cause) {
		t.Errorf("err = %v, want %v", result.Err, cause)
	}
}

func TestRetrierHonorsContextCancellation(t *testing.T) {
	r := New(&Config{MaxAttempts: 5, Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		// Cancel while the retrier is sleeping after the first failure
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	result := r.Do(ctx, func(ctx context.Context) error {
		calls++
		return errors.New("transient")
	})

	if !errors.Is(result.Err, ErrContextCanceled) {
		t.Fatalf("err = %v, want ErrContextCanceled", result.Err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
