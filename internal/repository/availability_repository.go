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

// AvailabilityRepository persists doctors' recurring weekly windows.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository builds repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

const availabilityColumns = `id, doctor_id, day_of_week, start_time, end_time, status, created_at`

// Create inserts a new availability window.
func (r *AvailabilityRepository) Create(ctx context.Context, window *models.AvailabilityWindow) error {
	if window.ID == "" {
		window.ID = uuid.NewString()
	}
	if window.Status == "" {
		window.Status = models.AvailabilityActive
	}
	if window.CreatedAt.IsZero() {
		window.CreatedAt = time.Now().UTC()
	}

	const query = `
INSERT INTO availability_windows (id, doctor_id, day_of_week, start_time, end_time, status, created_at)
VALUES (:id, :doctor_id, :day_of_week, :start_time, :end_time, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, window); err != nil {
		return fmt.Errorf("insert availability window: %w", err)
	}
	return nil
}

// FindByID loads a window by its identifier.
func (r *AvailabilityRepository) FindByID(ctx context.Context, id string) (*models.AvailabilityWindow, error) {
	query := `SELECT ` + availabilityColumns + ` FROM availability_windows WHERE id = $1`
	var window models.AvailabilityWindow
	if err := r.db.GetContext(ctx, &window, query, id); err != nil {
		return nil, err
	}
	return &window, nil
}

// ListByDoctor returns all windows owned by a doctor.
func (r *AvailabilityRepository) ListByDoctor(ctx context.Context, doctorID string) ([]models.AvailabilityWindow, error) {
	query := `SELECT ` + availabilityColumns + ` FROM availability_windows
WHERE doctor_id = $1 ORDER BY day_of_week ASC, start_time ASC`
	var windows []models.AvailabilityWindow
	if err := r.db.SelectContext(ctx, &windows, query, doctorID); err != nil {
		return nil, fmt.Errorf("list availability windows: %w", err)
	}
	return windows, nil
}

// ListActive returns every active window across all doctors.
func (r *AvailabilityRepository) ListActive(ctx context.Context) ([]models.AvailabilityWindow, error) {
	query := `SELECT ` + availabilityColumns + ` FROM availability_windows
WHERE status = $1 ORDER BY doctor_id ASC, day_of_week ASC, start_time ASC`
	var windows []models.AvailabilityWindow
	if err := r.db.SelectContext(ctx, &windows, query, models.AvailabilityActive); err != nil {
		return nil, fmt.Errorf("list active availability windows: %w", err)
	}
	return windows, nil
}

// HasOverlap reports whether an active window for the doctor and day
// intersects the [startTime, endTime) range. excludeID skips the window
// being updated.
func (r *AvailabilityRepository) HasOverlap(ctx context.Context, doctorID string, day models.DayOfWeek, startTime, endTime, excludeID string) (bool, error) {
	const query = `SELECT 1 FROM availability_windows
WHERE doctor_id = $1 AND day_of_week = $2 AND status = 'active'
  AND start_time < $4 AND end_time > $3
  AND ($5 = '' OR id <> $5)
LIMIT 1`
	var one int
	err := r.db.GetContext(ctx, &one, query, doctorID, day, startTime, endTime, excludeID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check availability overlap: %w", err)
	}
	return true, nil
}

// Update rewrites the mutable fields of a window.
func (r *AvailabilityRepository) Update(ctx context.Context, window *models.AvailabilityWindow) error {
	const query = `UPDATE availability_windows
SET day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time, status = :status
WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, window)
	if err != nil {
		return fmt.Errorf("update availability window: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("availability window rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a window.
func (r *AvailabilityRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM availability_windows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete availability window: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("availability window rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
