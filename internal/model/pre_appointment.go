package model

import "time"

type PreAppointmentStatus string

const (
	PreAppointmentStatusPending  PreAppointmentStatus = "pending"
	PreAppointmentStatusAccepted PreAppointmentStatus = "accepted"
	PreAppointmentStatusRejected PreAppointmentStatus = "rejected"
)

// PreAppointment is an unvetted scheduling request ("pre-cita"), usually submitted
// without an account.
type PreAppointment struct {
	ID               string               `json:"id"`
	RequesterName    string               `json:"requester_name"`
	Email            string               `json:"email"`
	Phone            string               `json:"phone,omitempty"`
	PetName          string               `json:"pet_name"`
	Species          string               `json:"species"`
	PreferredDate    string               `json:"preferred_date"`
	PreferredTime    string               `json:"preferred_time"`
	Reason           string               `json:"reason"`
	Status           PreAppointmentStatus `json:"status"`
	VeterinarianID   string               `json:"veterinarian_id,omitempty"`
	VeterinarianName string               `json:"veterinarian_name,omitempty"`
	AdminNotes       string               `json:"admin_notes,omitempty"`
	RescheduledDate  string               `json:"rescheduled_date,omitempty"`
	RescheduledTime  string               `json:"rescheduled_time,omitempty"`
	AppointmentID    string               `json:"appointment_id,omitempty"`
	AccountID        string               `json:"account_id,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	ProcessedAt      *time.Time           `json:"processed_at,omitempty"`
}

// Slot returns the rescheduled date and time when set, the preferred ones otherwise.
func (p *PreAppointment) Slot() (date, clock string) {
	if p.RescheduledDate != "" {
		return p.RescheduledDate, p.RescheduledTime
	}
	return p.PreferredDate, p.PreferredTime
}

type SubmitPreAppointmentRequest struct {
	RequesterName string `json:"requester_name" validate:"notblank"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone"`
	PetName       string `json:"pet_name" validate:"notblank"`
	Species       string `json:"species" validate:"notblank"`
	PreferredDate string `json:"preferred_date" validate:"required,datetime=2006-01-02"`
	PreferredTime string `json:"preferred_time" validate:"required,datetime=15:04"`
	Reason        string `json:"reason" validate:"notblank"`
}
