package queue

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func TestJobsRunAndReportErrors(t *testing.T) {
	rqm := NewRequestQueueManager(4, 2, zerolog.Nop())
	defer rqm.Shutdown()

	var ran atomic.Int32
	want := errors.New("boom")
	errc := make(chan error, 1)
	rqm.EnqueueJob(Job{Fn: func() error {
		ran.Add(1)
		return want
	}, Errc: errc})

	if err := <-errc; !errors.Is(err, want) {
		t.Fatalf("expected job error, got %v", err)
	}
	if ran.Load() != 1 {
		t.Fatalf("expected job to run once, ran %d", ran.Load())
	}
}

func TestShutdownDrainsQueue(t *testing.T) {
	rqm := NewRequestQueueManager(16, 3, zerolog.Nop())

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		rqm.EnqueueJob(Job{Fn: func() error {
			ran.Add(1)
			return nil
		}})
	}
	rqm.Shutdown()

	if ran.Load() != 10 {
		t.Fatalf("expected 10 jobs, ran %d", ran.Load())
	}
}
