package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniclinic/clinic-api/internal/models"
	appErrors "github.com/uniclinic/clinic-api/pkg/errors"
)

type stubSlotRepo struct {
	created *models.Slot
	overlap bool
	slots   []models.Slot
	total   int
}

func (s *stubSlotRepo) Create(_ context.Context, slot *models.Slot) error {
	slot.ID = "slot-new"
	s.created = slot
	return nil
}

func (s *stubSlotRepo) List(context.Context, models.SlotFilter) ([]models.Slot, int, error) {
	return s.slots, s.total, nil
}

func (s *stubSlotRepo) HasOverlap(context.Context, string, time.Time, string, string) (bool, error) {
	return s.overlap, nil
}

type stubAvailabilityReader struct {
	window *models.AvailabilityWindow
	err    error
}

func (s *stubAvailabilityReader) FindByID(context.Context, string) (*models.AvailabilityWindow, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.window, nil
}

func mondayWindow() *models.AvailabilityWindow {
	return &models.AvailabilityWindow{
		ID:        "window-1",
		DoctorID:  "doc-1",
		DayOfWeek: models.Monday,
		StartTime: "09:00:00", // TIME columns scan with seconds
		EndTime:   "12:00:00",
		Status:    models.AvailabilityActive,
	}
}

func newSlotService(repo *stubSlotRepo, reader *stubAvailabilityReader) *SlotService {
	svc := NewSlotService(repo, reader, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC) }
	return svc
}

func validManualRequest() CreateSlotRequest {
	return CreateSlotRequest{
		AvailabilityID: "window-1",
		Date:           "2026-09-07", // a Monday
		StartTime:      "09:00",
		EndTime:        "09:20",
	}
}

func TestSlotCreateManual(t *testing.T) {
	repo := &stubSlotRepo{}
	svc := newSlotService(repo, &stubAvailabilityReader{window: mondayWindow()})

	slot, err := svc.CreateManual(context.Background(), "doc-1", validManualRequest())
	require.NoError(t, err)
	assert.Equal(t, "slot-new", slot.ID)
	assert.Equal(t, models.SlotAvailable, slot.Status)
	require.NotNil(t, slot.AvailabilityID)
	assert.Equal(t, "window-1", *slot.AvailabilityID)
	assert.Equal(t, time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC), slot.Date)
}

func TestSlotCreateManualPastDate(t *testing.T) {
	svc := newSlotService(&stubSlotRepo{}, &stubAvailabilityReader{window: mondayWindow()})

	req := validManualRequest()
	req.Date = "2026-08-31"
	_, err := svc.CreateManual(context.Background(), "doc-1", req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestSlotCreateManualWrongWeekday(t *testing.T) {
	svc := newSlotService(&stubSlotRepo{}, &stubAvailabilityReader{window: mondayWindow()})

	req := validManualRequest()
	req.Date = "2026-09-08" // Tuesday against a Monday window
	_, err := svc.CreateManual(context.Background(), "doc-1", req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestSlotCreateManualOutsideWindow(t *testing.T) {
	svc := newSlotService(&stubSlotRepo{}, &stubAvailabilityReader{window: mondayWindow()})

	req := validManualRequest()
	req.StartTime = "08:40"
	req.EndTime = "09:00"
	_, err := svc.CreateManual(context.Background(), "doc-1", req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestSlotCreateManualForeignWindow(t *testing.T) {
	svc := newSlotService(&stubSlotRepo{}, &stubAvailabilityReader{window: mondayWindow()})

	_, err := svc.CreateManual(context.Background(), "doc-2", validManualRequest())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestSlotCreateManualInactiveWindow(t *testing.T) {
	window := mondayWindow()
	window.Status = models.AvailabilityInactive
	svc := newSlotService(&stubSlotRepo{}, &stubAvailabilityReader{window: window})

	_, err := svc.CreateManual(context.Background(), "doc-1", validManualRequest())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestSlotCreateManualOverlap(t *testing.T) {
	repo := &stubSlotRepo{overlap: true}
	svc := newSlotService(repo, &stubAvailabilityReader{window: mondayWindow()})

	_, err := svc.CreateManual(context.Background(), "doc-1", validManualRequest())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
	assert.Nil(t, repo.created)
}

func TestSlotListDefaultsPagination(t *testing.T) {
	repo := &stubSlotRepo{slots: []models.Slot{{ID: "slot-1"}}, total: 41}
	svc := newSlotService(repo, &stubAvailabilityReader{})

	slots, pagination, err := svc.List(context.Background(), models.SlotFilter{})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 41, pagination.TotalCount)
}
