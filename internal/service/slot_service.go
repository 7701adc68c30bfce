package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/uniclinic/clinic-api/internal/models"
	appErrors "github.com/uniclinic/clinic-api/pkg/errors"
)

type slotRepository interface {
	Create(ctx context.Context, slot *models.Slot) error
	List(ctx context.Context, filter models.SlotFilter) ([]models.Slot, int, error)
	HasOverlap(ctx context.Context, doctorID string, date time.Time, startTime, endTime string) (bool, error)
}

type availabilityReader interface {
	FindByID(ctx context.Context, id string) (*models.AvailabilityWindow, error)
}

// CreateSlotRequest describes payload for a doctor's manual slot.
type CreateSlotRequest struct {
	AvailabilityID string `json:"availability_id" validate:"required"`
	Date           string `json:"date" validate:"required"`
	StartTime      string `json:"start_time" validate:"required"`
	EndTime        string `json:"end_time" validate:"required"`
}

// SlotService handles manual slot creation and slot queries. Generated
// slots come from SlotGeneratorService; both paths observe the same
// per-doctor overlap rule.
type SlotService struct {
	slots        slotRepository
	availability availabilityReader
	validator    *validator.Validate
	logger       *zap.Logger
	now          func() time.Time
}

// NewSlotService instantiates SlotService.
func NewSlotService(slots slotRepository, availability availabilityReader, validate *validator.Validate, logger *zap.Logger) *SlotService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotService{slots: slots, availability: availability, validator: validate, logger: logger, now: time.Now}
}

// CreateManual inserts a single doctor-defined slot after the full
// validation chain: window ownership, day-of-week match, in-window time
// range and per-doctor overlap.
func (s *SlotService) CreateManual(ctx context.Context, doctorID string, req CreateSlotRequest) (*models.Slot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if date.Before(models.DateOnly(s.now())) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slot date must not be in the past")
	}
	start, end, err := validateTimeRange(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	window, err := s.availability.FindByID(ctx, req.AvailabilityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "availability window not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability window")
	}
	if window.DoctorID != doctorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "availability window belongs to another doctor")
	}
	if window.Status != models.AvailabilityActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, "availability window is not active")
	}
	if models.DayOfWeekFor(date) != window.DayOfWeek {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slot date does not match the window's day of week")
	}

	startMin, _ := models.ParseClock(start)
	endMin, _ := models.ParseClock(end)
	windowStart, err := models.ParseClock(window.StartTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored window has invalid start time")
	}
	windowEnd, err := models.ParseClock(window.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored window has invalid end time")
	}
	if startMin < windowStart || endMin > windowEnd {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slot time must fall within the availability window")
	}

	overlap, err := s.slots.HasOverlap(ctx, doctorID, date, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check slot overlap")
	}
	if overlap {
		return nil, appErrors.Clone(appErrors.ErrConflict, "slot overlaps an existing slot")
	}

	slot := &models.Slot{
		DoctorID:       doctorID,
		AvailabilityID: &window.ID,
		Date:           date,
		StartTime:      start,
		EndTime:        end,
		Status:         models.SlotAvailable,
	}
	if err := s.slots.Create(ctx, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create slot")
	}
	s.logger.Sugar().Infow("manual slot created", "slot_id", slot.ID, "doctor_id", doctorID, "date", req.Date)
	return slot, nil
}

// List returns slots with pagination metadata.
func (s *SlotService) List(ctx context.Context, filter models.SlotFilter) ([]models.Slot, *models.Pagination, error) {
	slots, total, err := s.slots.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list slots")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return slots, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// parseDate reads a calendar date in "2006-01-02" form.
func parseDate(raw string) (time.Time, error) {
	date, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date, expected YYYY-MM-DD")
	}
	return date, nil
}
