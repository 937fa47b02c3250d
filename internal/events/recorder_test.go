package events

import (
	"testing"
	"time"
)

func TestEmitReachesSubscribers(t *testing.T) {
	r := NewRecorder(nil)
	ch, cancel := r.Subscribe()
	defer cancel()

	r.Emit(UserInvited, map[string]any{"email": "a@b.c"})

	select {
	case ev := <-ch:
		if ev.Name != UserInvited {
			t.Fatalf("unexpected event: %s", ev.Name)
		}
		if ev.Payload["email"] != "a@b.c" {
			t.Fatalf("unexpected payload: %v", ev.Payload)
		}
	case <-time.After(time.Second):
		t.Fatalf("subscriber never received event")
	}
}

func TestEmitNeverBlocksOnSlowSubscriber(t *testing.T) {
	r := NewRecorder(nil)
	_, cancel := r.Subscribe() // never drained
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			r.Emit(EmailFailed, nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Emit blocked on a full subscriber channel")
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	r := NewRecorder(nil)
	ch, cancel := r.Subscribe()
	cancel()

	r.Emit(UserSignedUp, nil)

	select {
	case ev := <-ch:
		t.Fatalf("received event after cancel: %s", ev.Name)
	default:
	}
}
