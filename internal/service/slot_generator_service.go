package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/uniclinic/clinic-api/internal/models"
	appErrors "github.com/uniclinic/clinic-api/pkg/errors"
)

type windowSource interface {
	ListActive(ctx context.Context) ([]models.AvailabilityWindow, error)
}

type slotWriter interface {
	InsertIgnoreDuplicates(ctx context.Context, exec sqlx.ExtContext, slots []models.Slot) (int64, error)
	DeleteExpiredAvailable(ctx context.Context, before time.Time) (int64, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type generationMetrics interface {
	AddSlotsGenerated(n int64)
	AddSlotsCleaned(n int64)
}

// GenerationResult summarises one generator run.
type GenerationResult struct {
	WindowsProcessed int       `json:"windows_processed"`
	WindowsSkipped   int       `json:"windows_skipped"`
	SlotsInserted    int64     `json:"slots_inserted"`
	WeekStart        time.Time `json:"week_start"`
}

// SlotGeneratorService expands active availability windows into concrete
// bookable slots for the coming week, and prunes expired unclaimed slots.
type SlotGeneratorService struct {
	windows      windowSource
	slots        slotWriter
	tx           txProvider
	metrics      generationMetrics
	logger       *zap.Logger
	slotDuration time.Duration
	now          func() time.Time
}

// NewSlotGeneratorService wires generator dependencies.
func NewSlotGeneratorService(windows windowSource, slots slotWriter, tx txProvider, metrics generationMetrics, logger *zap.Logger, slotDuration time.Duration) *SlotGeneratorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if slotDuration <= 0 {
		slotDuration = 20 * time.Minute
	}
	return &SlotGeneratorService{
		windows:      windows,
		slots:        slots,
		tx:           tx,
		metrics:      metrics,
		logger:       logger,
		slotDuration: slotDuration,
		now:          time.Now,
	}
}

// NextWeekStart returns the Monday of the week following today. When today
// is a Monday the result is seven days out, never today.
func NextWeekStart(today time.Time) time.Time {
	today = models.DateOnly(today)
	// Monday-based offset: Monday=0 ... Sunday=6.
	offset := (int(today.Weekday()) + 6) % 7
	return today.AddDate(0, 0, 7-offset)
}

// ExpandWindow tiles the window's [start, end) time range into consecutive
// fixed-length slots on the given date, discarding any trailing remainder
// shorter than the slot length. It is a pure function; persistence and
// de-duplication live with the caller.
func ExpandWindow(window models.AvailabilityWindow, date time.Time, slotLength time.Duration) ([]models.Slot, error) {
	start, err := models.ParseClock(window.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := models.ParseClock(window.EndTime)
	if err != nil {
		return nil, err
	}
	if start >= end {
		return nil, appErrors.Clone(appErrors.ErrValidation, "window start time must be before end time")
	}

	step := int(slotLength.Minutes())
	if step <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slot length must be positive")
	}

	availabilityID := window.ID
	date = models.DateOnly(date)

	var slots []models.Slot
	for cur := start; cur+step <= end; cur += step {
		slots = append(slots, models.Slot{
			DoctorID:       window.DoctorID,
			AvailabilityID: &availabilityID,
			Date:           date,
			StartTime:      models.FormatClock(cur),
			EndTime:        models.FormatClock(cur + step),
			Status:         models.SlotAvailable,
		})
	}
	return slots, nil
}

// Run generates slots for every active window over the coming
// Monday-to-Sunday week. The whole run commits atomically; re-running
// against unchanged availability inserts nothing. A malformed window is
// skipped, a persistence failure aborts the run.
func (s *SlotGeneratorService) Run(ctx context.Context) (*GenerationResult, error) {
	weekStart := NextWeekStart(s.now())
	result := &GenerationResult{WeekStart: weekStart}

	windows, err := s.windows.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active availability windows")
	}

	var candidates []models.Slot
	for _, window := range windows {
		weekday, ok := window.DayOfWeek.Weekday()
		if !ok {
			result.WindowsSkipped++
			s.logger.Sugar().Warnw("skipping window with unknown day of week", "window_id", window.ID, "day", window.DayOfWeek)
			continue
		}

		date := occurrenceInWeek(weekStart, weekday)
		slots, err := ExpandWindow(window, date, s.slotDuration)
		if err != nil {
			result.WindowsSkipped++
			s.logger.Sugar().Warnw("skipping malformed availability window", "window_id", window.ID, "error", err)
			continue
		}
		result.WindowsProcessed++
		candidates = append(candidates, slots...)
	}

	if len(candidates) > 0 {
		tx, err := s.tx.BeginTxx(ctx, nil)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin slot generation transaction")
		}

		inserted, err := s.slots.InsertIgnoreDuplicates(ctx, tx, candidates)
		if err != nil {
			_ = tx.Rollback()
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to insert generated slots")
		}
		if err := tx.Commit(); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit slot generation")
		}
		result.SlotsInserted = inserted
	}

	if s.metrics != nil {
		s.metrics.AddSlotsGenerated(result.SlotsInserted)
	}
	s.logger.Sugar().Infow("slot generation finished",
		"week_start", weekStart.Format("2006-01-02"),
		"windows", result.WindowsProcessed,
		"skipped", result.WindowsSkipped,
		"inserted", result.SlotsInserted,
	)
	return result, nil
}

// Cleanup deletes unclaimed slots dated before today. Safe to run any number
// of times.
func (s *SlotGeneratorService) Cleanup(ctx context.Context) (int64, error) {
	today := models.DateOnly(s.now())
	deleted, err := s.slots.DeleteExpiredAvailable(ctx, today)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete expired slots")
	}
	if s.metrics != nil {
		s.metrics.AddSlotsCleaned(deleted)
	}
	s.logger.Sugar().Infow("slot cleanup finished", "deleted", deleted)
	return deleted, nil
}

// occurrenceInWeek returns the date of the weekday within the
// Monday-to-Sunday week beginning at weekStart.
func occurrenceInWeek(weekStart time.Time, weekday time.Weekday) time.Time {
	offset := (int(weekday) + 6) % 7
	return weekStart.AddDate(0, 0, offset)
}
