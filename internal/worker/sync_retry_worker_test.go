package worker

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errEmpty = errors.New("queue empty")

type memSyncQueue struct {
	payloads [][]byte
}

func (q *memSyncQueue) DequeueSyncPayload(_ context.Context) ([]byte, error) {
	if len(q.payloads) == 0 {
		return nil, errEmpty
	}
	p := q.payloads[0]
	q.payloads = q.payloads[1:]
	return p, nil
}

func (q *memSyncQueue) EnqueueSyncPayload(_ context.Context, payload []byte) error {
	q.payloads = append(q.payloads, payload)
	return nil
}

func (q *memSyncQueue) SyncQueueDepth(_ context.Context) (int64, error) {
	return int64(len(q.payloads)), nil
}

type mockSyncer struct {
	failFor map[string]error
	retried []string
}

func (s *mockSyncer) RetryUpsert(_ context.Context, payload []byte) error {
	s.retried = append(s.retried, string(payload))
	if err, ok := s.failFor[string(payload)]; ok {
		return err
	}
	return nil
}

func isEmpty(err error) bool { return errors.Is(err, errEmpty) }

func TestDrainOnceReplaysQueue(t *testing.T) {
	queue := &memSyncQueue{payloads: [][]byte{[]byte("a"), []byte("b")}}
	syncer := &mockSyncer{}
	w := NewSyncRetryWorker(queue, syncer, isEmpty, nil, time.Minute)

	w.DrainOnce(context.Background())

	if len(syncer.retried) != 2 {
		t.Fatalf("expected 2 retries, got %d", len(syncer.retried))
	}
	if len(queue.payloads) != 0 {
		t.Fatalf("expected queue drained, %d left", len(queue.payloads))
	}
}

func TestDrainOnceRequeuesFailures(t *testing.T) {
	queue := &memSyncQueue{payloads: [][]byte{[]byte("bad"), []byte("good")}}
	syncer := &mockSyncer{failFor: map[string]error{"bad": errors.New("remote still down")}}
	w := NewSyncRetryWorker(queue, syncer, isEmpty, nil, time.Minute)

	w.DrainOnce(context.Background())

	// The failed payload goes back and the pass stops; "good" stays queued
	// for the next tick rather than being reordered ahead of a retry storm.
	if len(queue.payloads) != 2 {
		t.Fatalf("expected both payloads still queued, got %d", len(queue.payloads))
	}
	if len(syncer.retried) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(syncer.retried))
	}
}

func TestDrainOnceRespectsBatchLimit(t *testing.T) {
	queue := &memSyncQueue{}
	for i := 0; i < 100; i++ {
		queue.payloads = append(queue.payloads, []byte{byte(i)})
	}
	syncer := &mockSyncer{}
	w := NewSyncRetryWorker(queue, syncer, isEmpty, nil, time.Minute)

	w.DrainOnce(context.Background())

	if len(syncer.retried) != 50 {
		t.Fatalf("expected batch limit of 50, got %d", len(syncer.retried))
	}
}
