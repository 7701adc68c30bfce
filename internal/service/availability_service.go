package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/uniclinic/clinic-api/internal/models"
	appErrors "github.com/uniclinic/clinic-api/pkg/errors"
)

type availabilityRepository interface {
	Create(ctx context.Context, window *models.AvailabilityWindow) error
	FindByID(ctx context.Context, id string) (*models.AvailabilityWindow, error)
	ListByDoctor(ctx context.Context, doctorID string) ([]models.AvailabilityWindow, error)
	HasOverlap(ctx context.Context, doctorID string, day models.DayOfWeek, startTime, endTime, excludeID string) (bool, error)
	Update(ctx context.Context, window *models.AvailabilityWindow) error
	Delete(ctx context.Context, id string) error
}

// CreateAvailabilityRequest describes payload for creating a window.
type CreateAvailabilityRequest struct {
	DayOfWeek models.DayOfWeek `json:"day_of_week" validate:"required"`
	StartTime string           `json:"start_time" validate:"required"`
	EndTime   string           `json:"end_time" validate:"required"`
}

// UpdateAvailabilityRequest updates an existing window. Zero-valued fields
// are left untouched.
type UpdateAvailabilityRequest struct {
	DayOfWeek models.DayOfWeek          `json:"day_of_week"`
	StartTime string                    `json:"start_time"`
	EndTime   string                    `json:"end_time"`
	Status    models.AvailabilityStatus `json:"status"`
}

// AvailabilityService manages doctors' recurring weekly windows.
type AvailabilityService struct {
	repo      availabilityRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService instantiates AvailabilityService.
func NewAvailabilityService(repo availabilityRepository, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{repo: repo, validator: validate, logger: logger}
}

// Create inserts a window after time-range and overlap validation.
func (s *AvailabilityService) Create(ctx context.Context, doctorID string, req CreateAvailabilityRequest) (*models.AvailabilityWindow, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	start, end, err := validateTimeRange(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if !req.DayOfWeek.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown day of week")
	}

	overlap, err := s.repo.HasOverlap(ctx, doctorID, req.DayOfWeek, start, end, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check availability overlap")
	}
	if overlap {
		return nil, appErrors.Clone(appErrors.ErrConflict, "availability overlaps an existing active window")
	}

	window := &models.AvailabilityWindow{
		DoctorID:  doctorID,
		DayOfWeek: req.DayOfWeek,
		StartTime: start,
		EndTime:   end,
		Status:    models.AvailabilityActive,
	}
	if err := s.repo.Create(ctx, window); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create availability window")
	}
	s.logger.Sugar().Infow("availability window created", "window_id", window.ID, "doctor_id", doctorID, "day", window.DayOfWeek)
	return window, nil
}

// ListForDoctor returns the doctor's windows.
func (s *AvailabilityService) ListForDoctor(ctx context.Context, doctorID string) ([]models.AvailabilityWindow, error) {
	windows, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability windows")
	}
	return windows, nil
}

// Update rewrites a window owned by the doctor, re-checking overlap when the
// schedule-relevant fields change.
func (s *AvailabilityService) Update(ctx context.Context, doctorID, id string, req UpdateAvailabilityRequest) (*models.AvailabilityWindow, error) {
	window, err := s.ownedWindow(ctx, doctorID, id)
	if err != nil {
		return nil, err
	}

	rangeChanged := false
	if req.DayOfWeek != "" && req.DayOfWeek != window.DayOfWeek {
		if !req.DayOfWeek.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown day of week")
		}
		window.DayOfWeek = req.DayOfWeek
		rangeChanged = true
	}
	if req.StartTime != "" {
		window.StartTime = req.StartTime
		rangeChanged = true
	}
	if req.EndTime != "" {
		window.EndTime = req.EndTime
		rangeChanged = true
	}
	if req.Status != "" {
		if req.Status != models.AvailabilityActive && req.Status != models.AvailabilityInactive {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown availability status")
		}
		window.Status = req.Status
	}

	start, end, err := validateTimeRange(window.StartTime, window.EndTime)
	if err != nil {
		return nil, err
	}
	window.StartTime = start
	window.EndTime = end

	if rangeChanged && window.Status == models.AvailabilityActive {
		overlap, err := s.repo.HasOverlap(ctx, doctorID, window.DayOfWeek, start, end, window.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check availability overlap")
		}
		if overlap {
			return nil, appErrors.Clone(appErrors.ErrConflict, "availability overlaps an existing active window")
		}
	}

	if err := s.repo.Update(ctx, window); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "availability window not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update availability window")
	}
	return window, nil
}

// Delete removes a window owned by the doctor.
func (s *AvailabilityService) Delete(ctx context.Context, doctorID, id string) error {
	if _, err := s.ownedWindow(ctx, doctorID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "availability window not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete availability window")
	}
	return nil
}

func (s *AvailabilityService) ownedWindow(ctx context.Context, doctorID, id string) (*models.AvailabilityWindow, error) {
	window, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "availability window not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability window")
	}
	if window.DoctorID != doctorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "availability window belongs to another doctor")
	}
	return window, nil
}

// validateTimeRange parses both clock values and enforces start < end,
// returning them in canonical "HH:MM" form.
func validateTimeRange(startTime, endTime string) (string, string, error) {
	start, err := models.ParseClock(startTime)
	if err != nil {
		return "", "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start time")
	}
	end, err := models.ParseClock(endTime)
	if err != nil {
		return "", "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end time")
	}
	if start >= end {
		return "", "", appErrors.Clone(appErrors.ErrValidation, "start time must be before end time")
	}
	return models.FormatClock(start), models.FormatClock(end), nil
}
