package models

import "time"

// SlotStatus is the lifecycle state of an appointment slot.
type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotBooked    SlotStatus = "booked"
	SlotCompleted SlotStatus = "completed"
	SlotCancelled SlotStatus = "cancelled"
	// SlotPending survives from historical data; it is cancellable but
	// never produced by new writes and never claimable.
	SlotPending SlotStatus = "pending"
)

// Slot is one discrete, fixed-duration bookable unit of a doctor's time.
// PatientID is nil until a patient claims the slot. AvailabilityID links
// back to the window the generator expanded, nil for manual slots.
type Slot struct {
	ID             string     `db:"id" json:"id"`
	DoctorID       string     `db:"doctor_id" json:"doctor_id"`
	PatientID      *string    `db:"patient_id" json:"patient_id,omitempty"`
	AvailabilityID *string    `db:"availability_id" json:"availability_id,omitempty"`
	Date           time.Time  `db:"date" json:"date"`
	StartTime      string     `db:"start_time" json:"start_time"`
	EndTime        string     `db:"end_time" json:"end_time"`
	Status         SlotStatus `db:"status" json:"status"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// SlotFilter describes query params for listing slots.
type SlotFilter struct {
	DoctorID  string
	PatientID string
	Status    SlotStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
}

// Claimable reports whether a slot can still be claimed by a patient.
// Only "available" qualifies; an unassigned "booked" slot is treated as
// inconsistent data, not as claimable.
func (s SlotStatus) Claimable() bool {
	return s == SlotAvailable
}

// Cancellable reports whether a slot may transition to cancelled.
func (s SlotStatus) Cancellable() bool {
	switch s {
	case SlotAvailable, SlotBooked, SlotPending:
		return true
	}
	return false
}
