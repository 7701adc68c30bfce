package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniclinic/clinic-api/internal/models"
	appErrors "github.com/uniclinic/clinic-api/pkg/errors"
)

type stubAvailabilityRepo struct {
	window  *models.AvailabilityWindow
	findErr error
	overlap bool
	created *models.AvailabilityWindow
	updated *models.AvailabilityWindow
	deleted string
}

func (s *stubAvailabilityRepo) Create(_ context.Context, window *models.AvailabilityWindow) error {
	window.ID = "window-new"
	s.created = window
	return nil
}

func (s *stubAvailabilityRepo) FindByID(context.Context, string) (*models.AvailabilityWindow, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.window, nil
}

func (s *stubAvailabilityRepo) ListByDoctor(context.Context, string) ([]models.AvailabilityWindow, error) {
	if s.window == nil {
		return nil, nil
	}
	return []models.AvailabilityWindow{*s.window}, nil
}

func (s *stubAvailabilityRepo) HasOverlap(context.Context, string, models.DayOfWeek, string, string, string) (bool, error) {
	return s.overlap, nil
}

func (s *stubAvailabilityRepo) Update(_ context.Context, window *models.AvailabilityWindow) error {
	s.updated = window
	return nil
}

func (s *stubAvailabilityRepo) Delete(_ context.Context, id string) error {
	s.deleted = id
	return nil
}

func activeWindow() *models.AvailabilityWindow {
	return &models.AvailabilityWindow{
		ID:        "window-1",
		DoctorID:  "doc-1",
		DayOfWeek: models.Monday,
		StartTime: "09:00",
		EndTime:   "12:00",
		Status:    models.AvailabilityActive,
	}
}

func TestAvailabilityCreate(t *testing.T) {
	repo := &stubAvailabilityRepo{}
	svc := NewAvailabilityService(repo, nil, nil)

	window, err := svc.Create(context.Background(), "doc-1", CreateAvailabilityRequest{
		DayOfWeek: models.Monday,
		StartTime: "9:00",
		EndTime:   "12:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "window-new", window.ID)
	assert.Equal(t, models.AvailabilityActive, window.Status)
	// Canonical form regardless of input spelling.
	assert.Equal(t, "09:00", window.StartTime)
}

func TestAvailabilityCreateRejectsOverlap(t *testing.T) {
	repo := &stubAvailabilityRepo{overlap: true}
	svc := NewAvailabilityService(repo, nil, nil)

	_, err := svc.Create(context.Background(), "doc-1", CreateAvailabilityRequest{
		DayOfWeek: models.Monday,
		StartTime: "09:00",
		EndTime:   "12:00",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
	assert.Nil(t, repo.created)
}

func TestAvailabilityCreateRejectsInvertedRange(t *testing.T) {
	svc := NewAvailabilityService(&stubAvailabilityRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), "doc-1", CreateAvailabilityRequest{
		DayOfWeek: models.Monday,
		StartTime: "12:00",
		EndTime:   "09:00",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAvailabilityCreateRejectsUnknownDay(t *testing.T) {
	svc := NewAvailabilityService(&stubAvailabilityRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), "doc-1", CreateAvailabilityRequest{
		DayOfWeek: "Funday",
		StartTime: "09:00",
		EndTime:   "12:00",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAvailabilityUpdateOwnership(t *testing.T) {
	repo := &stubAvailabilityRepo{window: activeWindow()}
	svc := NewAvailabilityService(repo, nil, nil)

	_, err := svc.Update(context.Background(), "doc-2", "window-1", UpdateAvailabilityRequest{EndTime: "13:00"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestAvailabilityUpdateRechecksOverlap(t *testing.T) {
	repo := &stubAvailabilityRepo{window: activeWindow(), overlap: true}
	svc := NewAvailabilityService(repo, nil, nil)

	_, err := svc.Update(context.Background(), "doc-1", "window-1", UpdateAvailabilityRequest{EndTime: "14:00"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
	assert.Nil(t, repo.updated)
}

func TestAvailabilityUpdateDeactivateSkipsOverlapCheck(t *testing.T) {
	// Overlap flag set, but deactivating without a range change must pass.
	repo := &stubAvailabilityRepo{window: activeWindow(), overlap: true}
	svc := NewAvailabilityService(repo, nil, nil)

	window, err := svc.Update(context.Background(), "doc-1", "window-1", UpdateAvailabilityRequest{Status: models.AvailabilityInactive})
	require.NoError(t, err)
	assert.Equal(t, models.AvailabilityInactive, window.Status)
}

func TestAvailabilityDeleteMissing(t *testing.T) {
	repo := &stubAvailabilityRepo{findErr: sql.ErrNoRows}
	svc := NewAvailabilityService(repo, nil, nil)

	err := svc.Delete(context.Background(), "doc-1", "window-99")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	assert.Empty(t, repo.deleted)
}

func TestAvailabilityDelete(t *testing.T) {
	repo := &stubAvailabilityRepo{window: activeWindow()}
	svc := NewAvailabilityService(repo, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "doc-1", "window-1"))
	assert.Equal(t, "window-1", repo.deleted)
}
