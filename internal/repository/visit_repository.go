package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uniclinic/clinic-api/internal/models"
)

// VisitRepository persists clinic visits.
type VisitRepository struct {
	db *sqlx.DB
}

// NewVisitRepository builds repository.
func NewVisitRepository(db *sqlx.DB) *VisitRepository {
	return &VisitRepository{db: db}
}

func (r *VisitRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const visitColumns = `id, patient_id, doctor_id, slot_id, visit_date, status, created_at`

// Create inserts a visit, optionally inside a transaction.
func (r *VisitRepository) Create(ctx context.Context, exec sqlx.ExtContext, visit *models.Visit) error {
	if visit.ID == "" {
		visit.ID = uuid.NewString()
	}
	if visit.Status == "" {
		visit.Status = models.VisitPending
	}
	if visit.CreatedAt.IsZero() {
		visit.CreatedAt = time.Now().UTC()
	}

	const query = `
INSERT INTO visits (id, patient_id, doctor_id, slot_id, visit_date, status, created_at)
VALUES (:id, :patient_id, :doctor_id, :slot_id, :visit_date, :status, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, visit); err != nil {
		return fmt.Errorf("insert visit: %w", err)
	}
	return nil
}

// FindByID loads a visit by its identifier.
func (r *VisitRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Visit, error) {
	query := `SELECT ` + visitColumns + ` FROM visits WHERE id = $1`
	var visit models.Visit
	if err := sqlx.GetContext(ctx, r.exec(exec), &visit, query, id); err != nil {
		return nil, err
	}
	return &visit, nil
}

// List returns visits matching the filter with a total count.
func (r *VisitRepository) List(ctx context.Context, filter models.VisitFilter) ([]models.Visit, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if filter.DoctorID != "" {
		where += fmt.Sprintf(" AND doctor_id = $%d", idx)
		args = append(args, filter.DoctorID)
		idx++
	}
	if filter.PatientID != "" {
		where += fmt.Sprintf(" AND patient_id = $%d", idx)
		args = append(args, filter.PatientID)
		idx++
	}
	if filter.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, filter.Status)
		idx++
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}

	query := `SELECT ` + visitColumns + ` FROM visits` + where +
		fmt.Sprintf(" ORDER BY visit_date DESC, created_at DESC LIMIT %d OFFSET %d", size, (page-1)*size)

	var visits []models.Visit
	if err := r.db.SelectContext(ctx, &visits, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list visits: %w", err)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM visits` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count visits: %w", err)
	}
	return visits, total, nil
}

// CompletePending transitions a pending visit owned by the doctor to
// completed. Zero rows affected means missing, not owned, or not pending.
func (r *VisitRepository) CompletePending(ctx context.Context, exec sqlx.ExtContext, visitID, doctorID string) (bool, error) {
	const query = `UPDATE visits SET status = $3
WHERE id = $1 AND doctor_id = $2 AND status = $4`
	result, err := r.exec(exec).ExecContext(ctx, query, visitID, doctorID, models.VisitCompleted, models.VisitPending)
	if err != nil {
		return false, fmt.Errorf("complete visit: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete visit rows affected: %w", err)
	}
	return affected == 1, nil
}

// CancelPendingBySlot cancels any pending visit linked to the slot.
func (r *VisitRepository) CancelPendingBySlot(ctx context.Context, exec sqlx.ExtContext, slotID string) error {
	const query = `UPDATE visits SET status = $2 WHERE slot_id = $1 AND status = $3`
	if _, err := r.exec(exec).ExecContext(ctx, query, slotID, models.VisitCancelled, models.VisitPending); err != nil {
		return fmt.Errorf("cancel visits for slot: %w", err)
	}
	return nil
}

// HasActiveForSlot reports whether a non-cancelled visit already references
// the slot.
func (r *VisitRepository) HasActiveForSlot(ctx context.Context, slotID string) (bool, error) {
	const query = `SELECT 1 FROM visits WHERE slot_id = $1 AND status <> 'cancelled' LIMIT 1`
	var one int
	err := r.db.GetContext(ctx, &one, query, slotID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check active visit for slot: %w", err)
	}
	return true, nil
}
