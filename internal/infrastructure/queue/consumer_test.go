package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type scheduled struct {
	msg   Message
	delay time.Duration
}

type fakeBroker struct {
	mu        sync.Mutex
	ready     []Message
	scheduled []scheduled
	dead      []Message
}

func (b *fakeBroker) Name() string { return "imports" }

func (b *fakeBroker) Pop(ctx context.Context, wait time.Duration) (Message, bool, error) {
	b.mu.Lock()
	if len(b.ready) == 0 {
		b.mu.Unlock()
		sleepWithContext(ctx, wait)
		return Message{}, false, nil
	}
	msg := b.ready[0]
	b.ready = b.ready[1:]
	b.mu.Unlock()
	return msg, true, nil
}

func (b *fakeBroker) Schedule(_ context.Context, msg Message, delay time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scheduled = append(b.scheduled, scheduled{msg: msg, delay: delay})
	return nil
}

func (b *fakeBroker) DeadLetter(_ context.Context, msg Message, _ error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dead = append(b.dead, msg)
	return nil
}

func (b *fakeBroker) Promote(context.Context, time.Time) (int, error) { return 0, nil }

func newTestConsumer(b *fakeBroker, h Handler) *Consumer {
	return NewConsumer(b, h, ConsumerConfig{
		Workers:      2,
		MaxAttempts:  3,
		Backoff:      []time.Duration{time.Minute, 5 * time.Minute, 10 * time.Minute},
		PollInterval: 10 * time.Millisecond,
	}, zerolog.Nop())
}

func TestDeliverSchedulesRetryWithBackoff(t *testing.T) {
	t.Parallel()

	b := &fakeBroker{}
	c := newTestConsumer(b, func(context.Context, Message) error { return errors.New("db down") })

	c.Deliver(context.Background(), Message{ImportID: "i", ChunkID: "c", Attempt: 1})
	c.Deliver(context.Background(), Message{ImportID: "i", ChunkID: "c", Attempt: 2})

	if len(b.scheduled) != 2 || len(b.dead) != 0 {
		t.Fatalf("unexpected routing: scheduled=%d dead=%d", len(b.scheduled), len(b.dead))
	}
	if b.scheduled[0].msg.Attempt != 2 || b.scheduled[0].delay != time.Minute {
		t.Fatalf("unexpected first retry: %+v", b.scheduled[0])
	}
	if b.scheduled[1].msg.Attempt != 3 || b.scheduled[1].delay != 5*time.Minute {
		t.Fatalf("unexpected second retry: %+v", b.scheduled[1])
	}
}

func TestDeliverDeadLettersFinalAttempt(t *testing.T) {
	t.Parallel()

	b := &fakeBroker{}
	c := newTestConsumer(b, func(context.Context, Message) error { return errors.New("still down") })

	c.Deliver(context.Background(), Message{ImportID: "i", ChunkID: "c", Attempt: 3})
	if len(b.dead) != 1 || len(b.scheduled) != 0 {
		t.Fatalf("expected dead letter only, got scheduled=%d dead=%d", len(b.scheduled), len(b.dead))
	}
}

func TestDeliverAppliesJobTimeout(t *testing.T) {
	t.Parallel()

	b := &fakeBroker{}
	c := newTestConsumer(b, func(ctx context.Context, _ Message) error {
		if _, ok := ctx.Deadline(); !ok {
			return errors.New("missing deadline")
		}
		return nil
	})

	c.Deliver(context.Background(), Message{ChunkID: "c", Attempt: 1})
	if len(b.scheduled) != 0 || len(b.dead) != 0 {
		t.Fatalf("expected success, got scheduled=%d dead=%d", len(b.scheduled), len(b.dead))
	}
}

func TestConsumerDrainsReadyJobs(t *testing.T) {
	t.Parallel()

	b := &fakeBroker{ready: []Message{
		{ChunkID: "a", Attempt: 1},
		{ChunkID: "b", Attempt: 1},
		{ChunkID: "c", Attempt: 1},
	}}

	var (
		mu   sync.Mutex
		seen = map[string]bool{}
		done = make(chan struct{})
	)
	c := newTestConsumer(b, func(_ context.Context, msg Message) error {
		mu.Lock()
		defer mu.Unlock()
		seen[msg.ChunkID] = true
		if len(seen) == 3 {
			close(done)
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	c.Start(ctx)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for jobs")
	}
	cancel()
	c.Wait()
}

func TestRetryDelayClampsToLastEntry(t *testing.T) {
	t.Parallel()

	backoff := []time.Duration{time.Second, 2 * time.Second}
	for attempt, want := range map[int]time.Duration{0: time.Second, 1: time.Second, 2: 2 * time.Second, 7: 2 * time.Second} {
		if got := retryDelay(backoff, attempt); got != want {
			t.Fatalf("attempt %d: expected %v, got %v", attempt, want, got)
		}
	}
	if got := retryDelay(nil, 1); got != 0 {
		t.Fatalf("expected no delay without backoff, got %v", got)
	}
}

func TestDecodeDefaultsAttempt(t *testing.T) {
	t.Parallel()

	msg, err := decode(`{"import_id":"i","chunk_id":"c"}`)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if msg.Attempt != 1 {
		t.Fatalf("expected attempt 1, got %d", msg.Attempt)
	}
	if _, err := decode(`{"import_id":"i"}`); err == nil {
		t.Fatal("expected error for missing chunk id")
	}
}
