package models

import "time"

// AvailabilityStatus is the lifecycle state of an availability window.
type AvailabilityStatus string

const (
	AvailabilityActive   AvailabilityStatus = "active"
	AvailabilityInactive AvailabilityStatus = "inactive"
)

// AvailabilityWindow is a doctor's recurring weekly block of bookable time.
type AvailabilityWindow struct {
	ID        string             `db:"id" json:"id"`
	DoctorID  string             `db:"doctor_id" json:"doctor_id"`
	DayOfWeek DayOfWeek          `db:"day_of_week" json:"day_of_week"`
	StartTime string             `db:"start_time" json:"start_time"`
	EndTime   string             `db:"end_time" json:"end_time"`
	Status    AvailabilityStatus `db:"status" json:"status"`
	CreatedAt time.Time          `db:"created_at" json:"created_at"`
}

// AvailabilityFilter describes query params for listing windows.
type AvailabilityFilter struct {
	DoctorID  string
	DayOfWeek DayOfWeek
	Status    AvailabilityStatus
}
