package circuitbreaker

import (
	"testing"
	"time"
)

func TestTripsOpenAfterThreshold(t *testing.T) {
	cb := New(3, 1, time.Minute)

	for i := 0; i < 2; i++ {
		cb.RecordFailure()
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("expected closed before threshold")
	}

	cb.RecordFailure()
	if cb.GetState() != StateOpen {
		t.Fatalf("expected open after threshold")
	}
	if cb.AllowRequest() {
		t.Fatalf("expected requests denied while open")
	}
}

func TestHalfOpenAfterTimeout(t *testing.T) {
	cb := New(1, 1, time.Millisecond)
	cb.RecordFailure()

	time.Sleep(5 * time.Millisecond)
	if !cb.AllowRequest() {
		t.Fatalf("expected probe allowed after timeout")
	}
	if cb.GetState() != StateHalfOpen {
		t.Fatalf("expected half-open state")
	}

	cb.RecordSuccess()
	if cb.GetState() != StateClosed {
		t.Fatalf("expected closed after successful probe")
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	cb := New(1, 2, time.Millisecond)
	cb.RecordFailure()
	time.Sleep(5 * time.Millisecond)
	cb.AllowRequest()

	cb.RecordFailure()
	if cb.GetState() != StateOpen {
		t.Fatalf("expected reopen on half-open failure")
	}
}
