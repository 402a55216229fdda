package pace

import (
	"context"
	"errors"
	"testing"
	"time"
)

// go test -v --run TestSleepCancelled
func TestSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("sleep did not return on cancellation")
	}
}

// go test -v --run TestRecorder
func TestRecorder(t *testing.T) {
	var r Recorder
	_ = r.Sleep(context.Background(), 200*time.Millisecond)
	_ = r.Sleep(context.Background(), time.Second)

	if got := r.Delays(); len(got) != 2 || got[1] != time.Second {
		t.Errorf("delays = %v", got)
	}
	if r.Total() != 1200*time.Millisecond {
		t.Errorf("total = %s", r.Total())
	}
}
