package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniclinic/clinic-api/internal/models"
)

func TestVisitRepositoryCreateFillsDefaults(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewVisitRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO visits")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	slotID := "slot-1"
	visit := &models.Visit{
		PatientID: "student-1",
		DoctorID:  "doc-1",
		SlotID:    &slotID,
		VisitDate: time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(context.Background(), nil, visit))
	assert.NotEmpty(t, visit.ID)
	assert.Equal(t, models.VisitPending, visit.Status)
}

func TestVisitRepositoryCompletePending(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewVisitRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE visits SET status = $3
WHERE id = $1 AND doctor_id = $2 AND status = $4`)).
		WithArgs("visit-1", "doc-1", "completed", "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))

	done, err := repo.CompletePending(context.Background(), nil, "visit-1", "doc-1")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestVisitRepositoryCompletePendingWrongDoctor(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewVisitRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE visits SET status")).
		WithArgs("visit-1", "doc-2", "completed", "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))

	done, err := repo.CompletePending(context.Background(), nil, "visit-1", "doc-2")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestVisitRepositoryCancelPendingBySlot(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewVisitRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE visits SET status = $2 WHERE slot_id = $1 AND status = $3`)).
		WithArgs("slot-1", "cancelled", "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.CancelPendingBySlot(context.Background(), nil, "slot-1"))
}

func TestVisitRepositoryHasActiveForSlot(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewVisitRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM visits")).
		WithArgs("slot-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	active, err := repo.HasActiveForSlot(context.Background(), "slot-1")
	require.NoError(t, err)
	assert.True(t, active)
}

func TestVisitRepositoryHasActiveForSlotNone(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewVisitRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM visits")).
		WithArgs("slot-9").
		WillReturnError(sql.ErrNoRows)

	active, err := repo.HasActiveForSlot(context.Background(), "slot-9")
	require.NoError(t, err)
	assert.False(t, active)
}

func TestVisitRepositoryList(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewVisitRepository(db)

	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "patient_id", "doctor_id", "slot_id", "visit_date", "status", "created_at"}).
		AddRow("visit-1", "student-1", "doc-1", "slot-1", date, "pending", time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).
		WithArgs("doc-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM visits")).
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	visits, total, err := repo.List(context.Background(), models.VisitFilter{DoctorID: "doc-1"})
	require.NoError(t, err)
	require.Len(t, visits, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, models.VisitPending, visits[0].Status)
}
