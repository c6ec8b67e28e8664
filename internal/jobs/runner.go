package jobs

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrJobNotRegistered is returned by RunNow for an unknown job name.
var ErrJobNotRegistered = errors.New("job not registered")

// Job is one periodic maintenance task.
type Job interface {
	Name() string
	Interval() time.Duration
	Run(ctx context.Context) error
}

// runTimeout caps a single job run so a stuck job cannot block shutdown.
const runTimeout = time.Minute

// Runner drives registered jobs on their own tickers. Each job runs on a
// dedicated goroutine; a run failure is logged and the ticker keeps going.
type Runner struct {
	jobs    []Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewRunner creates an empty runner.
func NewRunner() *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{ctx: ctx, cancel: cancel}
}

// Register adds a job. Must be called before Start.
func (r *Runner) Register(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		log.Printf("⚠️ [JOBS] Ignoring registration of %q after start", job.Name())
		return
	}
	r.jobs = append(r.jobs, job)
	log.Printf("✅ [JOBS] Registered %s (every %v)", job.Name(), job.Interval())
}

// Start launches one ticker goroutine per registered job.
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return
	}
	r.started = true

	for _, job := range r.jobs {
		r.wg.Add(1)
		go r.loop(job)
	}
	log.Printf("🚀 [JOBS] Running %d background jobs", len(r.jobs))
}

func (r *Runner) loop(job Job) {
	defer r.wg.Done()

	ticker := time.NewTicker(job.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.runOnce(job)
		}
	}
}

func (r *Runner) runOnce(job Job) {
	ctx, cancel := context.WithTimeout(r.ctx, runTimeout)
	defer cancel()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		log.Printf("❌ [JOBS] %s failed: %v", job.Name(), err)
		return
	}
	log.Printf("✅ [JOBS] %s completed in %v", job.Name(), time.Since(start))
}

// RunNow executes one registered job immediately, outside its ticker.
func (r *Runner) RunNow(name string) error {
	r.mu.Lock()
	var target Job
	for _, job := range r.jobs {
		if job.Name() == name {
			target = job
			break
		}
	}
	r.mu.Unlock()

	if target == nil {
		return ErrJobNotRegistered
	}

	ctx, cancel := context.WithTimeout(r.ctx, runTimeout)
	defer cancel()
	return target.Run(ctx)
}

// Stop cancels all job contexts and waits for running jobs to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	started := r.started
	r.mu.Unlock()

	r.cancel()
	if started {
		r.wg.Wait()
		log.Println("🛑 [JOBS] Background jobs stopped")
	}
}
