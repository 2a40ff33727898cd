package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job is one unit of periodic background work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type scheduledJob struct {
	job      Job
	interval time.Duration
}

// Scheduler is responsible for running background jobs.
// It implements cartridge.BackgroundWorker.
type Scheduler struct {
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.Mutex
	isRunning bool
	jobs      []scheduledJob
	tickers   []*time.Ticker
	wg        sync.WaitGroup

	// Per-job guard so a slow run is skipped instead of piling up
	processingMutex sync.Mutex
	processing      map[string]bool
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		processing: make(map[string]bool),
	}
}

// Every registers job to run at interval once the scheduler starts.
// Non-positive intervals are ignored.
func (s *Scheduler) Every(interval time.Duration, job Job) {
	if interval <= 0 {
		s.logger.Warn("Ignoring job with invalid interval", slog.String("job", job.Name()), slog.Duration("interval", interval))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, scheduledJob{job: job, interval: interval})
}

// executeJobSafely runs a job only if its previous run has finished
func (s *Scheduler) executeJobSafely(job Job) {
	name := job.Name()

	s.processingMutex.Lock()
	if s.processing[name] {
		s.logger.Debug("Skipping job execution - previous run still going", slog.String("job", name))
		s.processingMutex.Unlock()
		return
	}
	s.processing[name] = true
	s.processingMutex.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic recovered in background job",
				slog.String("job", name),
				slog.Any("panic", r))
		}

		s.processingMutex.Lock()
		s.processing[name] = false
		s.processingMutex.Unlock()
	}()

	if err := job.Run(s.ctx); err != nil {
		s.logger.Error("Error executing job", slog.String("job", name), slog.Any("error", err))
	}
}

// Start begins all registered jobs.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		s.logger.Info("Background jobs already running.")
		return nil
	}

	s.logger.Info("Starting background jobs...", slog.Int("jobs", len(s.jobs)))
	s.isRunning = true

	for _, sj := range s.jobs {
		ticker := time.NewTicker(sj.interval)
		s.tickers = append(s.tickers, ticker)

		s.wg.Add(1)
		go func(sj scheduledJob) {
			defer s.wg.Done()
			for {
				select {
				case <-ticker.C:
					s.executeJobSafely(sj.job)
				case <-s.ctx.Done():
					s.logger.Info("Job stopped", slog.String("job", sj.job.Name()))
					return
				}
			}
		}(sj)

		s.logger.Info("Scheduled job", slog.String("job", sj.job.Name()), slog.Duration("interval", sj.interval))
	}

	return nil
}

// Stop halts all background jobs and waits for their loops to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.logger.Info("Stopping background jobs...")
	for _, ticker := range s.tickers {
		ticker.Stop()
	}
	s.cancel()
	s.isRunning = false
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("Background jobs stopped")
}

// IsRunning returns whether jobs are currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// RunNow executes job once on the caller's goroutine.
func (s *Scheduler) RunNow(job Job) {
	s.executeJobSafely(job)
}
