package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/uniclinic/clinic-api/internal/models"
	"github.com/uniclinic/clinic-api/internal/service"
)

const (
	jobGenerate = "slot_generation"
	jobCleanup  = "slot_cleanup"
)

// SlotJobs is the surface the driver fires on cadence. The manual trigger
// endpoint calls the same methods, so both paths share idempotence.
type SlotJobs interface {
	Run(ctx context.Context) (*service.GenerationResult, error)
	Cleanup(ctx context.Context) (int64, error)
}

type runMetrics interface {
	ObserveSchedulerRun(job string, err error, duration time.Duration)
}

// Config sets the driver cadences as wall-clock times.
type Config struct {
	GenerateWeekday time.Weekday
	GenerateAt      string
	CleanupAt       string
	RunTimeout      time.Duration
}

// Driver is the process-wide cadence source for slot generation and
// cleanup. It is owned by main, started once at process startup and
// stopped at shutdown; it runs no user-request-triggered work. Run
// failures are logged and retried at the next cadence only, since each
// run commits atomically and re-running is idempotent.
type Driver struct {
	jobs    SlotJobs
	cfg     Config
	logger  *zap.Logger
	metrics runMetrics

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	now     func() time.Time
}

// New builds a stopped driver.
func New(jobs SlotJobs, cfg Config, metrics runMetrics, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 5 * time.Minute
	}
	if cfg.GenerateAt == "" {
		cfg.GenerateAt = "08:30"
	}
	if cfg.CleanupAt == "" {
		cfg.CleanupAt = "01:00"
	}
	return &Driver{jobs: jobs, cfg: cfg, metrics: metrics, logger: logger, now: time.Now}
}

// Start launches the cadence goroutines. Safe to call once.
func (d *Driver) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	ctx, d.cancel = context.WithCancel(ctx)
	d.started = true

	d.wg.Add(2)
	go d.loop(ctx, jobGenerate, d.nextGenerate, func(runCtx context.Context) error {
		_, err := d.jobs.Run(runCtx)
		return err
	})
	go d.loop(ctx, jobCleanup, d.nextCleanup, func(runCtx context.Context) error {
		_, err := d.jobs.Cleanup(runCtx)
		return err
	})

	d.logger.Sugar().Infow("scheduler driver started",
		"generate_day", d.cfg.GenerateWeekday.String(),
		"generate_at", d.cfg.GenerateAt,
		"cleanup_at", d.cfg.CleanupAt,
	)
}

// Stop cancels the cadence goroutines. No new firings are accepted; an
// in-flight run sees its context cancelled and rolls back cleanly, which
// is safe because every run is atomic and idempotent.
func (d *Driver) Stop() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	d.cancel()
	d.mu.Unlock()
	d.wg.Wait()
	d.logger.Sugar().Infow("scheduler driver stopped")
}

func (d *Driver) loop(ctx context.Context, job string, next func(time.Time) time.Time, run func(context.Context) error) {
	defer d.wg.Done()
	for {
		fireAt := next(d.now())
		timer := time.NewTimer(fireAt.Sub(d.now()))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		d.fire(ctx, job, run)
	}
}

func (d *Driver) fire(ctx context.Context, job string, run func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, d.cfg.RunTimeout)
	defer cancel()

	start := d.now()
	err := run(runCtx)
	elapsed := d.now().Sub(start)

	if d.metrics != nil {
		d.metrics.ObserveSchedulerRun(job, err, elapsed)
	}
	if err != nil {
		d.logger.Sugar().Errorw("scheduled run failed, will retry at next cadence", "job", job, "error", err, "duration", elapsed)
		return
	}
	d.logger.Sugar().Infow("scheduled run finished", "job", job, "duration", elapsed)
}

func (d *Driver) nextGenerate(now time.Time) time.Time {
	return NextWeekly(now, d.cfg.GenerateWeekday, d.cfg.GenerateAt)
}

func (d *Driver) nextCleanup(now time.Time) time.Time {
	return NextDaily(now, d.cfg.CleanupAt)
}

// NextDaily returns the next occurrence of the "HH:MM" wall-clock time
// strictly after now.
func NextDaily(now time.Time, at string) time.Time {
	minutes, err := models.ParseClock(at)
	if err != nil {
		minutes = 0
	}
	candidate := time.Date(now.Year(), now.Month(), now.Day(), minutes/60, minutes%60, 0, 0, now.Location())
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

// NextWeekly returns the next occurrence of the weekday at the "HH:MM"
// wall-clock time strictly after now.
func NextWeekly(now time.Time, weekday time.Weekday, at string) time.Time {
	candidate := NextDaily(now, at)
	for candidate.Weekday() != weekday {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}
