package models

import "time"

// VisitStatus is the lifecycle state of a clinic visit.
type VisitStatus string

const (
	VisitPending   VisitStatus = "pending"
	VisitCompleted VisitStatus = "completed"
	VisitCancelled VisitStatus = "cancelled"
)

// Visit is a clinical encounter, optionally linked to the slot that
// produced it. When slot-linked the visit date equals the slot date.
type Visit struct {
	ID        string      `db:"id" json:"id"`
	PatientID string      `db:"patient_id" json:"patient_id"`
	DoctorID  string      `db:"doctor_id" json:"doctor_id"`
	SlotID    *string     `db:"slot_id" json:"slot_id,omitempty"`
	VisitDate time.Time   `db:"visit_date" json:"visit_date"`
	Status    VisitStatus `db:"status" json:"status"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

// VisitFilter describes query params for listing visits.
type VisitFilter struct {
	DoctorID  string
	PatientID string
	Status    VisitStatus
	Page      int
	PageSize  int
}
