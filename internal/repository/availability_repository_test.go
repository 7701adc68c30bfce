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

func TestAvailabilityRepositoryCreateFillsDefaults(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO availability_windows")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	window := &models.AvailabilityWindow{
		DoctorID:  "doc-1",
		DayOfWeek: models.Monday,
		StartTime: "09:00",
		EndTime:   "12:00",
	}
	require.NoError(t, repo.Create(context.Background(), window))
	assert.NotEmpty(t, window.ID)
	assert.Equal(t, models.AvailabilityActive, window.Status)
	assert.False(t, window.CreatedAt.IsZero())
}

func TestAvailabilityRepositoryHasOverlap(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM availability_windows")).
		WithArgs("doc-1", "Monday", "10:00", "11:00", "").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	overlap, err := repo.HasOverlap(context.Background(), "doc-1", models.Monday, "10:00", "11:00", "")
	require.NoError(t, err)
	assert.True(t, overlap)
}

func TestAvailabilityRepositoryHasOverlapExcludesSelf(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM availability_windows")).
		WithArgs("doc-1", "Monday", "10:00", "11:00", "window-1").
		WillReturnError(sql.ErrNoRows)

	overlap, err := repo.HasOverlap(context.Background(), "doc-1", models.Monday, "10:00", "11:00", "window-1")
	require.NoError(t, err)
	assert.False(t, overlap)
}

func TestAvailabilityRepositoryListActive(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	rows := sqlmock.NewRows([]string{"id", "doctor_id", "day_of_week", "start_time", "end_time", "status", "created_at"}).
		AddRow("window-1", "doc-1", "Monday", "09:00:00", "12:00:00", "active", time.Now()).
		AddRow("window-2", "doc-2", "Tuesday", "13:00:00", "17:00:00", "active", time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).
		WithArgs("active").
		WillReturnRows(rows)

	windows, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, windows, 2)
	assert.Equal(t, models.Monday, windows[0].DayOfWeek)
}

func TestAvailabilityRepositoryUpdateMissing(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE availability_windows")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.AvailabilityWindow{ID: "window-99"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAvailabilityRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM availability_windows")).
		WithArgs("window-99").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "window-99")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
