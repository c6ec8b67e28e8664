package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"gridverse/internal/services"

	"github.com/google/uuid"
)

type countingJob struct {
	name     string
	interval time.Duration
	runs     atomic.Int64
	err      error
}

func (j *countingJob) Name() string            { return j.name }
func (j *countingJob) Interval() time.Duration { return j.interval }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	return j.err
}

func TestRunner_RunsOnInterval(t *testing.T) {
	runner := NewRunner()
	job := &countingJob{name: "ticker", interval: 10 * time.Millisecond}
	runner.Register(job)
	runner.Start()
	defer runner.Stop()

	deadline := time.Now().Add(time.Second)
	for job.runs.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("Expected at least 2 runs, got %d", job.runs.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRunner_FailureKeepsTicking(t *testing.T) {
	runner := NewRunner()
	job := &countingJob{name: "flaky", interval: 10 * time.Millisecond, err: errors.New("sweep failed")}
	runner.Register(job)
	runner.Start()
	defer runner.Stop()

	deadline := time.Now().Add(time.Second)
	for job.runs.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("Expected a failing job to keep running, got %d runs", job.runs.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRunner_StopHaltsJobs(t *testing.T) {
	runner := NewRunner()
	job := &countingJob{name: "ticker", interval: 5 * time.Millisecond}
	runner.Register(job)
	runner.Start()

	time.Sleep(20 * time.Millisecond)
	runner.Stop()

	after := job.runs.Load()
	time.Sleep(30 * time.Millisecond)
	if job.runs.Load() != after {
		t.Errorf("Job ran after Stop: %d -> %d", after, job.runs.Load())
	}
}

func TestRunner_RunNow(t *testing.T) {
	runner := NewRunner()
	job := &countingJob{name: "sweep", interval: time.Hour}
	runner.Register(job)

	if err := runner.RunNow("sweep"); err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}
	if job.runs.Load() != 1 {
		t.Errorf("Expected 1 run, got %d", job.runs.Load())
	}
	if err := runner.RunNow("no-such-job"); !errors.Is(err, ErrJobNotRegistered) {
		t.Errorf("Expected ErrJobNotRegistered, got %v", err)
	}
}

func TestSequencerSweep_DropsIdleEntries(t *testing.T) {
	sequencer := services.NewUpdateSequencer()
	now := time.Now()
	if !sequencer.Accept(uuid.New(), 1, now.Add(-time.Hour)) {
		t.Fatal("Expected first update to be accepted")
	}

	job := NewSequencerSweepJob(sequencer, time.Minute, 30*time.Minute)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if sequencer.Tracked() != 0 {
		t.Errorf("Expected idle entry to be swept, %d still tracked", sequencer.Tracked())
	}
}

func TestSequencerSweep_MaxIdleFloor(t *testing.T) {
	sequencer := services.NewUpdateSequencer()
	job := NewSequencerSweepJob(sequencer, time.Minute, time.Second)
	if job.maxIdle < services.UpdateWindow {
		t.Errorf("maxIdle %v must not undercut the accept window %v", job.maxIdle, services.UpdateWindow)
	}
	if job.Name() != "sequencer-sweep" {
		t.Errorf("Unexpected job name %q", job.Name())
	}
}
