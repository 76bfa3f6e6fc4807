// internal/app/system/workers/runner.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/dormhub/internal/app/system/metrics"
	"github.com/dalemusser/dormhub/internal/app/system/tasks"
	"go.uber.org/zap"
)

// Runner runs each job on its own ticker until stopped.
type Runner struct {
	jobs    []tasks.Job
	log     *zap.Logger
	metrics *metrics.Metrics
	timeout time.Duration
	stopCh  chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// NewRunner creates a runner for jobs. Each run gets its own context
// bounded by timeout.
func NewRunner(logger *zap.Logger, m *metrics.Metrics, timeout time.Duration, jobs ...tasks.Job) *Runner {
	return &Runner{
		jobs:    jobs,
		log:     logger,
		metrics: m,
		timeout: timeout,
		stopCh:  make(chan struct{}),
	}
}

// Start begins one loop per job.
func (w *Runner) Start() {
	for _, j := range w.jobs {
		w.wg.Add(1)
		go w.loop(j)
		w.log.Info("background job started",
			zap.String("job", j.Name),
			zap.Duration("interval", j.Interval))
	}
}

// Stop signals every loop to stop and waits for in-flight runs.
func (w *Runner) Stop() {
	w.once.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	w.log.Info("background jobs stopped")
}

func (w *Runner) loop(j tasks.Job) {
	defer w.wg.Done()

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.RunOnce(j)
		}
	}
}

// RunOnce executes a single job run and records its outcome.
func (w *Runner) RunOnce(j tasks.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	err := j.Run(ctx)
	w.metrics.JobRun(j.Name, err)
	if err != nil {
		w.log.Error("background job failed", zap.String("job", j.Name), zap.Error(err))
	}
}
