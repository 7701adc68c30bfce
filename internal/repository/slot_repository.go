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

// SlotRepository persists bookable appointment slots. Every read-then-write
// mutation path takes an sqlx.ExtContext so callers can scope it to a
// transaction; the conditional UPDATEs carry the status guard that keeps
// concurrent claims safe.
type SlotRepository struct {
	db *sqlx.DB
}

// NewSlotRepository builds repository.
func NewSlotRepository(db *sqlx.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

func (r *SlotRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const slotColumns = `id, doctor_id, patient_id, availability_id, date, start_time, end_time, status, created_at`

// Create inserts a single slot.
func (r *SlotRepository) Create(ctx context.Context, slot *models.Slot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	if slot.Status == "" {
		slot.Status = models.SlotAvailable
	}
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = time.Now().UTC()
	}

	const query = `
INSERT INTO slots (id, doctor_id, patient_id, availability_id, date, start_time, end_time, status, created_at)
VALUES (:id, :doctor_id, :patient_id, :availability_id, :date, :start_time, :end_time, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("insert slot: %w", err)
	}
	return nil
}

// InsertIgnoreDuplicates bulk-inserts generated slots, skipping any row whose
// (doctor_id, date, start_time, end_time) tuple already exists. Returns the
// number of rows actually inserted.
func (r *SlotRepository) InsertIgnoreDuplicates(ctx context.Context, exec sqlx.ExtContext, slots []models.Slot) (int64, error) {
	if len(slots) == 0 {
		return 0, nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `
INSERT INTO slots (id, doctor_id, patient_id, availability_id, date, start_time, end_time, status, created_at)
VALUES (:id, :doctor_id, :patient_id, :availability_id, :date, :start_time, :end_time, :status, :created_at)
ON CONFLICT (doctor_id, date, start_time, end_time) DO NOTHING`

	var inserted int64
	for i := range slots {
		slot := &slots[i]
		if slot.ID == "" {
			slot.ID = uuid.NewString()
		}
		if slot.Status == "" {
			slot.Status = models.SlotAvailable
		}
		if slot.CreatedAt.IsZero() {
			slot.CreatedAt = now
		}
		result, err := sqlx.NamedExecContext(ctx, target, query, slot)
		if err != nil {
			return inserted, fmt.Errorf("insert generated slot: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("generated slot rows affected: %w", err)
		}
		inserted += affected
	}
	return inserted, nil
}

// FindByID loads a slot by its identifier.
func (r *SlotRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1`
	var slot models.Slot
	if err := sqlx.GetContext(ctx, r.exec(exec), &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// List returns slots matching the filter with a total count.
func (r *SlotRepository) List(ctx context.Context, filter models.SlotFilter) ([]models.Slot, int, error) {
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
	if filter.DateFrom != nil {
		where += fmt.Sprintf(" AND date >= $%d", idx)
		args = append(args, *filter.DateFrom)
		idx++
	}
	if filter.DateTo != nil {
		where += fmt.Sprintf(" AND date <= $%d", idx)
		args = append(args, *filter.DateTo)
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

	query := `SELECT ` + slotColumns + ` FROM slots` + where +
		fmt.Sprintf(" ORDER BY date ASC, start_time ASC LIMIT %d OFFSET %d", size, (page-1)*size)

	var slots []models.Slot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list slots: %w", err)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM slots` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count slots: %w", err)
	}
	return slots, total, nil
}

// HasOverlap reports whether any slot for the doctor on the date intersects
// the [startTime, endTime) range.
func (r *SlotRepository) HasOverlap(ctx context.Context, doctorID string, date time.Time, startTime, endTime string) (bool, error) {
	const query = `SELECT 1 FROM slots
WHERE doctor_id = $1 AND date = $2 AND start_time < $4 AND end_time > $3
LIMIT 1`
	var one int
	err := r.db.GetContext(ctx, &one, query, doctorID, date, startTime, endTime)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check slot overlap: %w", err)
	}
	return true, nil
}

// Claim atomically assigns a patient to an available, unclaimed slot. Zero
// rows affected means the slot was missing or not claimable; the caller
// distinguishes the two by re-reading.
func (r *SlotRepository) Claim(ctx context.Context, exec sqlx.ExtContext, slotID, patientID string) (bool, error) {
	const query = `UPDATE slots SET patient_id = $2, status = $3
WHERE id = $1 AND status = $4 AND patient_id IS NULL`
	result, err := r.exec(exec).ExecContext(ctx, query, slotID, patientID, models.SlotBooked, models.SlotAvailable)
	if err != nil {
		return false, fmt.Errorf("claim slot: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim slot rows affected: %w", err)
	}
	return affected == 1, nil
}

// UpdateStatusFrom transitions a slot to the target status only when its
// current status is one of the allowed sources.
func (r *SlotRepository) UpdateStatusFrom(ctx context.Context, exec sqlx.ExtContext, slotID string, to models.SlotStatus, from ...models.SlotStatus) (bool, error) {
	query, args, err := sqlx.In(`UPDATE slots SET status = ? WHERE id = ? AND status IN (?)`, to, slotID, from)
	if err != nil {
		return false, fmt.Errorf("build slot status update: %w", err)
	}
	target := r.exec(exec)
	result, err := target.ExecContext(ctx, target.Rebind(query), args...)
	if err != nil {
		return false, fmt.Errorf("update slot status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("slot status rows affected: %w", err)
	}
	return affected == 1, nil
}

// DeleteExpiredAvailable removes never-claimed slots dated strictly before
// the cutoff. Booked, completed and cancelled slots are kept for history.
func (r *SlotRepository) DeleteExpiredAvailable(ctx context.Context, before time.Time) (int64, error) {
	const query = `DELETE FROM slots
WHERE date < $1 AND status = $2 AND patient_id IS NULL`
	result, err := r.db.ExecContext(ctx, query, before, models.SlotAvailable)
	if err != nil {
		return 0, fmt.Errorf("delete expired slots: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired slot rows affected: %w", err)
	}
	return affected, nil
}
