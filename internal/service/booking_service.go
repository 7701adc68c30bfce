package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/uniclinic/clinic-api/internal/models"
	appErrors "github.com/uniclinic/clinic-api/pkg/errors"
	"github.com/uniclinic/clinic-api/pkg/lock"
)

type slotBookingRepository interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Slot, error)
	Claim(ctx context.Context, exec sqlx.ExtContext, slotID, patientID string) (bool, error)
	UpdateStatusFrom(ctx context.Context, exec sqlx.ExtContext, slotID string, to models.SlotStatus, from ...models.SlotStatus) (bool, error)
}

type visitBookingRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, visit *models.Visit) error
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Visit, error)
	List(ctx context.Context, filter models.VisitFilter) ([]models.Visit, int, error)
	CompletePending(ctx context.Context, exec sqlx.ExtContext, visitID, doctorID string) (bool, error)
	CancelPendingBySlot(ctx context.Context, exec sqlx.ExtContext, slotID string) error
	HasActiveForSlot(ctx context.Context, slotID string) (bool, error)
}

type bookingMetrics interface {
	IncClaimConflict()
}

// ClaimResult carries the outcome of a successful claim.
type ClaimResult struct {
	Slot  *models.Slot  `json:"slot"`
	Visit *models.Visit `json:"visit"`
}

// CreateVisitRequest describes payload for an ad-hoc doctor-recorded visit.
type CreateVisitRequest struct {
	PatientID string `json:"patient_id" validate:"required"`
	SlotID    string `json:"slot_id"`
	VisitDate string `json:"visit_date" validate:"required"`
}

// BookingService owns the conflict-checked slot state transitions: a patient
// claiming a slot, a doctor cancelling it, and a doctor completing the
// resulting visit. Each transition is a conditional UPDATE inside a
// transaction so that concurrent callers on the same slot resolve to exactly
// one winner.
type BookingService struct {
	slots     slotBookingRepository
	visits    visitBookingRepository
	tx        txProvider
	locker    lock.SlotLocker
	metrics   bookingMetrics
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBookingService wires booking dependencies.
func NewBookingService(slots slotBookingRepository, visits visitBookingRepository, tx txProvider, locker lock.SlotLocker, metrics bookingMetrics, validate *validator.Validate, logger *zap.Logger) *BookingService {
	if locker == nil {
		locker = lock.NoopSlotLocker{}
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		slots:     slots,
		visits:    visits,
		tx:        tx,
		locker:    locker,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Claim reserves an available slot for a patient and opens a pending visit.
// At most one concurrent caller succeeds; the rest receive a conflict. The
// per-slot lock short-circuits stampedes, the database compare-and-swap is
// the authority.
func (s *BookingService) Claim(ctx context.Context, slotID, patientID string) (*ClaimResult, error) {
	var result *ClaimResult

	err := s.locker.WithSlotLock(ctx, slotID, func(lockCtx context.Context) error {
		tx, err := s.tx.BeginTxx(lockCtx, nil)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin claim transaction")
		}

		won, err := s.slots.Claim(lockCtx, tx, slotID, patientID)
		if err != nil {
			_ = tx.Rollback()
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to claim slot")
		}
		if !won {
			_ = tx.Rollback()
			return s.claimRejection(lockCtx, slotID)
		}

		slot, err := s.slots.FindByID(lockCtx, tx, slotID)
		if err != nil {
			_ = tx.Rollback()
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load claimed slot")
		}

		visit := &models.Visit{
			PatientID: patientID,
			DoctorID:  slot.DoctorID,
			SlotID:    &slot.ID,
			VisitDate: slot.Date,
			Status:    models.VisitPending,
		}
		if err := s.visits.Create(lockCtx, tx, visit); err != nil {
			_ = tx.Rollback()
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create visit for claim")
		}

		if err := tx.Commit(); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit claim")
		}
		result = &ClaimResult{Slot: slot, Visit: visit}
		return nil
	})

	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			if s.metrics != nil {
				s.metrics.IncClaimConflict()
			}
			return nil, appErrors.Clone(appErrors.ErrConflict, "slot is currently being booked, try again")
		}
		return nil, err
	}

	s.logger.Sugar().Infow("slot claimed", "slot_id", slotID, "patient_id", patientID, "visit_id", result.Visit.ID)
	return result, nil
}

// claimRejection turns a lost compare-and-swap into NotFound or Conflict.
func (s *BookingService) claimRejection(ctx context.Context, slotID string) error {
	_, err := s.slots.FindByID(ctx, nil, slotID)
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "slot not found")
	}
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slot")
	}
	if s.metrics != nil {
		s.metrics.IncClaimConflict()
	}
	return appErrors.Clone(appErrors.ErrConflict, "slot is already claimed or not available")
}

// Cancel transitions a slot owned by the doctor to cancelled and cancels any
// pending visit linked to it. Cancelling an already cancelled or completed
// slot is a conflict, never a second success.
func (s *BookingService) Cancel(ctx context.Context, slotID, doctorID string) (*models.Slot, error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin cancel transaction")
	}

	slot, err := s.slots.FindByID(ctx, tx, slotID)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slot")
	}
	if slot.DoctorID != doctorID {
		_ = tx.Rollback()
		return nil, appErrors.Clone(appErrors.ErrForbidden, "slot belongs to another doctor")
	}

	ok, err := s.slots.UpdateStatusFrom(ctx, tx, slotID, models.SlotCancelled, models.SlotAvailable, models.SlotBooked, models.SlotPending)
	if err != nil {
		_ = tx.Rollback()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel slot")
	}
	if !ok {
		_ = tx.Rollback()
		return nil, appErrors.Clone(appErrors.ErrConflict, "slot is already cancelled or completed")
	}

	if err := s.visits.CancelPendingBySlot(ctx, tx, slotID); err != nil {
		_ = tx.Rollback()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel linked visit")
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit cancel")
	}

	slot.Status = models.SlotCancelled
	s.logger.Sugar().Infow("slot cancelled", "slot_id", slotID, "doctor_id", doctorID)
	return slot, nil
}

// Complete finalises a pending visit owned by the doctor and moves the
// linked slot to completed.
func (s *BookingService) Complete(ctx context.Context, visitID, doctorID string) (*models.Visit, error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin complete transaction")
	}

	ok, err := s.visits.CompletePending(ctx, tx, visitID, doctorID)
	if err != nil {
		_ = tx.Rollback()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete visit")
	}
	if !ok {
		_ = tx.Rollback()
		return nil, s.completeRejection(ctx, visitID, doctorID)
	}

	visit, err := s.visits.FindByID(ctx, tx, visitID)
	if err != nil {
		_ = tx.Rollback()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completed visit")
	}

	if visit.SlotID != nil {
		moved, err := s.slots.UpdateStatusFrom(ctx, tx, *visit.SlotID, models.SlotCompleted, models.SlotBooked)
		if err != nil {
			_ = tx.Rollback()
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete linked slot")
		}
		if !moved {
			s.logger.Sugar().Warnw("linked slot not in booked state at completion", "visit_id", visitID, "slot_id", *visit.SlotID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit complete")
	}

	s.logger.Sugar().Infow("visit completed", "visit_id", visitID, "doctor_id", doctorID)
	return visit, nil
}

func (s *BookingService) completeRejection(ctx context.Context, visitID, doctorID string) error {
	visit, err := s.visits.FindByID(ctx, nil, visitID)
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "visit not found")
	}
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load visit")
	}
	if visit.DoctorID != doctorID {
		return appErrors.Clone(appErrors.ErrForbidden, "visit belongs to another doctor")
	}
	return appErrors.Clone(appErrors.ErrConflict, "visit is not pending")
}

// CreateVisit records an ad-hoc encounter by a doctor, optionally linked to
// one of their slots. A linked visit must share the slot's date and the slot
// must not already carry an active visit.
func (s *BookingService) CreateVisit(ctx context.Context, doctorID string, req CreateVisitRequest) (*models.Visit, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid visit payload")
	}
	visitDate, err := parseDate(req.VisitDate)
	if err != nil {
		return nil, err
	}

	visit := &models.Visit{
		PatientID: req.PatientID,
		DoctorID:  doctorID,
		VisitDate: visitDate,
		Status:    models.VisitPending,
	}

	if req.SlotID != "" {
		slot, err := s.slots.FindByID(ctx, nil, req.SlotID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slot")
		}
		if slot.DoctorID != doctorID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "slot belongs to another doctor")
		}
		if !slot.Date.Equal(visitDate) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "visit date must match slot date")
		}
		booked, err := s.visits.HasActiveForSlot(ctx, req.SlotID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check slot visits")
		}
		if booked {
			return nil, appErrors.Clone(appErrors.ErrConflict, "slot already has an active visit")
		}
		visit.SlotID = &slot.ID
	}

	if err := s.visits.Create(ctx, nil, visit); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create visit")
	}
	return visit, nil
}

// ListVisits returns visits with pagination metadata.
func (s *BookingService) ListVisits(ctx context.Context, filter models.VisitFilter) ([]models.Visit, *models.Pagination, error) {
	visits, total, err := s.visits.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list visits")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return visits, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}
