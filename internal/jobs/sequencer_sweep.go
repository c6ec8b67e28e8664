package jobs

import (
	"context"
	"log"
	"time"

	"gridverse/internal/services"
)

// SequencerSweepJob bounds the update sequencer's memory. Entries are
// normally only superseded in place, so a region that saw many transient
// entities would otherwise accumulate dead entries forever. Sweeping anything
// idle for several windows cannot change an Accept decision: an entry that
// old would be accepted through the window escape regardless.
type SequencerSweepJob struct {
	sequencer *services.UpdateSequencer
	interval  time.Duration
	maxIdle   time.Duration
}

// NewSequencerSweepJob creates the sweep job.
// interval: how often to run (e.g., 5 minutes)
// maxIdle: entries idle longer than this are dropped (must exceed the accept window)
func NewSequencerSweepJob(sequencer *services.UpdateSequencer, interval, maxIdle time.Duration) *SequencerSweepJob {
	if maxIdle < services.UpdateWindow {
		maxIdle = 10 * services.UpdateWindow
	}
	return &SequencerSweepJob{
		sequencer: sequencer,
		interval:  interval,
		maxIdle:   maxIdle,
	}
}

// Name identifies the job in logs and RunNow.
func (j *SequencerSweepJob) Name() string { return "sequencer-sweep" }

// Interval is how often the sweep runs.
func (j *SequencerSweepJob) Interval() time.Duration { return j.interval }

// Run sweeps stale entries.
func (j *SequencerSweepJob) Run(ctx context.Context) error {
	removed := j.sequencer.SweepOlderThan(j.maxIdle, time.Now())
	if removed > 0 {
		log.Printf("🧹 [SEQ-SWEEP] Dropped %d stale entries (%d still tracked)",
			removed, j.sequencer.Tracked())
	}
	return nil
}
