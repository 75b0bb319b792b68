package cronrunner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestRunner_RunsJob(t *testing.T) {
	r := New(zaptest.NewLogger(t), context.Background())
	var calls atomic.Int32
	done := make(chan struct{}, 1)

	id, err := r.Add("* * * * * *", "tick", func(context.Context) error {
		if calls.Add(1) == 1 {
			done <- struct{}{}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	r.Start()
	defer r.Stop()

	if r.Next(id).IsZero() {
		t.Error("expected a scheduled activation")
	}
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestRunner_FailingJobKeepsSchedule(t *testing.T) {
	r := New(zaptest.NewLogger(t), context.Background())
	var calls atomic.Int32
	done := make(chan struct{}, 1)

	_, err := r.Add("* * * * * *", "flaky", func(context.Context) error {
		if calls.Add(1) == 2 {
			done <- struct{}{}
		}
		return errors.New("boom")
	})
	if err != nil {
		t.Fatal(err)
	}
	r.Start()
	defer r.Stop()

	select {
	case <-done:
	case <-time.After(4 * time.Second):
		t.Fatal("job was not rescheduled after failing")
	}
}

func TestRunner_RejectsBadSpec(t *testing.T) {
	r := New(nil, nil)
	if _, err := r.Add("every tuesday", "bad", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected parse error")
	}
}
