package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniclinic/clinic-api/internal/models"
)

func newSlotRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

func TestSlotRepositoryClaimWins(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE slots SET patient_id = $2, status = $3
WHERE id = $1 AND status = $4 AND patient_id IS NULL`)).
		WithArgs("slot-1", "student-1", "booked", "available").
		WillReturnResult(sqlmock.NewResult(0, 1))

	won, err := repo.Claim(context.Background(), nil, "slot-1", "student-1")
	require.NoError(t, err)
	assert.True(t, won)
}

func TestSlotRepositoryClaimAlreadyTaken(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET patient_id")).
		WithArgs("slot-1", "student-2", "booked", "available").
		WillReturnResult(sqlmock.NewResult(0, 0))

	won, err := repo.Claim(context.Background(), nil, "slot-1", "student-2")
	require.NoError(t, err)
	assert.False(t, won)
}

func TestSlotRepositoryInsertIgnoreDuplicates(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	// First row is new, second hits the uniqueness tuple and is skipped.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO slots")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO slots")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	slots := []models.Slot{
		{DoctorID: "doc-1", Date: date, StartTime: "09:00", EndTime: "09:20"},
		{DoctorID: "doc-1", Date: date, StartTime: "09:20", EndTime: "09:40"},
	}

	inserted, err := repo.InsertIgnoreDuplicates(context.Background(), nil, slots)
	require.NoError(t, err)
	assert.Equal(t, int64(1), inserted)
	assert.NotEmpty(t, slots[0].ID)
	assert.Equal(t, models.SlotAvailable, slots[0].Status)
}

func TestSlotRepositoryInsertIgnoreDuplicatesEmpty(t *testing.T) {
	db, _, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	inserted, err := repo.InsertIgnoreDuplicates(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Zero(t, inserted)
}

func TestSlotRepositoryUpdateStatusFrom(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE slots SET status = $1 WHERE id = $2 AND status IN ($3, $4)`)).
		WithArgs("cancelled", "slot-1", "available", "booked").
		WillReturnResult(sqlmock.NewResult(0, 1))

	moved, err := repo.UpdateStatusFrom(context.Background(), nil, "slot-1", models.SlotCancelled, models.SlotAvailable, models.SlotBooked)
	require.NoError(t, err)
	assert.True(t, moved)
}

func TestSlotRepositoryUpdateStatusFromGuardRejects(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET status")).
		WithArgs("completed", "slot-1", "booked").
		WillReturnResult(sqlmock.NewResult(0, 0))

	moved, err := repo.UpdateStatusFrom(context.Background(), nil, "slot-1", models.SlotCompleted, models.SlotBooked)
	require.NoError(t, err)
	assert.False(t, moved)
}

func TestSlotRepositoryDeleteExpiredAvailable(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	cutoff := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM slots
WHERE date < $1 AND status = $2 AND patient_id IS NULL`)).
		WithArgs(cutoff, "available").
		WillReturnResult(sqlmock.NewResult(0, 3))

	removed, err := repo.DeleteExpiredAvailable(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
}

func TestSlotRepositoryHasOverlap(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM slots")).
		WithArgs("doc-1", date, "09:00", "09:20").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	overlap, err := repo.HasOverlap(context.Background(), "doc-1", date, "09:00", "09:20")
	require.NoError(t, err)
	assert.True(t, overlap)
}

func TestSlotRepositoryHasOverlapNone(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM slots")).
		WithArgs("doc-1", date, "09:00", "09:20").
		WillReturnError(sql.ErrNoRows)

	overlap, err := repo.HasOverlap(context.Background(), "doc-1", date, "09:00", "09:20")
	require.NoError(t, err)
	assert.False(t, overlap)
}

func TestSlotRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).
		WithArgs("slot-99").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), nil, "slot-99")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSlotRepositoryList(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "doctor_id", "patient_id", "availability_id", "date", "start_time", "end_time", "status", "created_at"}).
		AddRow("slot-1", "doc-1", nil, "window-1", date, "09:00:00", "09:20:00", "available", time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).
		WithArgs("doc-1", "available").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM slots")).
		WithArgs("doc-1", "available").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	slots, total, err := repo.List(context.Background(), models.SlotFilter{DoctorID: "doc-1", Status: models.SlotAvailable})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, 1, total)
	assert.Nil(t, slots[0].PatientID)
}
