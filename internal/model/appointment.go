package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type AppointmentStatus string

const (
	AppointmentStatusPendingPayment AppointmentStatus = "pending_payment"
	AppointmentStatusUnderReview    AppointmentStatus = "under_review"
	AppointmentStatusConfirmed      AppointmentStatus = "confirmed"
	AppointmentStatusRejected       AppointmentStatus = "rejected"
	AppointmentStatusExpired        AppointmentStatus = "expired"
	AppointmentStatusAttended       AppointmentStatus = "attended"
	AppointmentStatusCancelled      AppointmentStatus = "cancelled"
	AppointmentStatusNoShow         AppointmentStatus = "no_show"
)

// AppointmentStatuses lists every known status.
var AppointmentStatuses = []AppointmentStatus{
	AppointmentStatusPendingPayment,
	AppointmentStatusUnderReview,
	AppointmentStatusConfirmed,
	AppointmentStatusRejected,
	AppointmentStatusExpired,
	AppointmentStatusAttended,
	AppointmentStatusCancelled,
	AppointmentStatusNoShow,
}

func (s AppointmentStatus) Valid() bool {
	for _, known := range AppointmentStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Appointment is a scheduled visit ("cita"). PetName is free text; PetID is only set
// when the pet was chosen from the owner's registered pets.
type Appointment struct {
	ID               string            `json:"id"`
	OwnerID          string            `json:"owner_id,omitempty"`
	PetID            string            `json:"pet_id,omitempty"`
	PetName          string            `json:"pet_name"`
	Species          string            `json:"species"`
	VeterinarianID   string            `json:"veterinarian_id,omitempty"`
	VeterinarianName string            `json:"veterinarian_name,omitempty"`
	Date             string            `json:"date"`
	Time             string            `json:"time"`
	ConsultationType string            `json:"consultation_type,omitempty"`
	Reason           string            `json:"reason"`
	Location         string            `json:"location,omitempty"`
	Price            *decimal.Decimal  `json:"price,omitempty"`
	Status           AppointmentStatus `json:"status"`
	PaymentProof     string            `json:"payment_proof,omitempty"`
	AdminNotes       string            `json:"admin_notes,omitempty"`
	CancelReason     string            `json:"cancel_reason,omitempty"`
	PreAppointmentID string            `json:"pre_appointment_id,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	StatusChangedAt  *time.Time        `json:"status_changed_at,omitempty"`
}

// ScheduledAt parses Date and Time in loc.
func (a *Appointment) ScheduledAt(loc *time.Location) (time.Time, error) {
	return ParseSchedule(a.Date, a.Time, loc)
}

type CreateAppointmentRequest struct {
	OwnerID          string           `json:"owner_id"`
	PetID            string           `json:"pet_id"`
	PetName          string           `json:"pet_name" validate:"notblank"`
	Species          string           `json:"species" validate:"notblank"`
	VeterinarianID   string           `json:"veterinarian_id"`
	Date             string           `json:"date" validate:"required,datetime=2006-01-02"`
	Time             string           `json:"time" validate:"required,datetime=15:04"`
	ConsultationType string           `json:"consultation_type"`
	Reason           string           `json:"reason" validate:"notblank"`
	Location         string           `json:"location"`
	Price            *decimal.Decimal `json:"price"`
}

type PaymentProofRequest struct {
	PaymentProof string           `json:"payment_proof" validate:"notblank"`
	Price        *decimal.Decimal `json:"price"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason"`
}

type AppointmentFilters struct {
	Status    AppointmentStatus `form:"status"`
	Search    string            `form:"q"`
	StartDate string            `form:"from"`
	EndDate   string            `form:"to"`
	Sort      string            `form:"sort"`
}
