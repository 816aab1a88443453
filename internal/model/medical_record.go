package model

import "time"

// ClinicalRecord is written when a veterinarian completes an appointment. PetName is
// the fallback reference for records created before the pet was registered.
type ClinicalRecord struct {
	ID               string       `json:"id"`
	PetID            string       `json:"pet_id,omitempty"`
	PetName          string       `json:"pet_name"`
	AppointmentID    string       `json:"appointment_id,omitempty"`
	Date             time.Time    `json:"date"`
	VeterinarianName string       `json:"veterinarian_name"`
	Motive           string       `json:"motive"`
	Diagnosis        string       `json:"diagnosis,omitempty"`
	Treatment        string       `json:"treatment,omitempty"`
	Vitals           Vitals       `json:"vitals"`
	Medications      []Medication `json:"medications,omitempty"`
	Vaccines         []Vaccine    `json:"vaccines,omitempty"`
	Exams            []Exam       `json:"exams,omitempty"`
	Services         []string     `json:"services,omitempty"`
	Attachments      []Attachment `json:"attachments,omitempty"`
	NextVisit        *time.Time   `json:"next_visit,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
}

// Vitals are all optional.
type Vitals struct {
	Weight        *float64 `json:"weight,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	BloodPressure string   `json:"blood_pressure,omitempty"`
	HeartRate     *int     `json:"heart_rate,omitempty"`
}

type Medication struct {
	Name     string `json:"name"`
	Dosage   string `json:"dosage"`
	Schedule string `json:"schedule"`
}

type Vaccine struct {
	Name    string     `json:"name"`
	Batch   string     `json:"batch,omitempty"`
	Applied time.Time  `json:"applied"`
	NextDue *time.Time `json:"next_due,omitempty"`
}

type Exam struct {
	Name   string `json:"name"`
	Result string `json:"result,omitempty"`
}

type Attachment struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Path string `json:"path"`
}

// ClinicalRecordInput is what the veterinarian fills in when attending an appointment.
type ClinicalRecordInput struct {
	Motive      string       `json:"motive" validate:"notblank"`
	Diagnosis   string       `json:"diagnosis"`
	Treatment   string       `json:"treatment"`
	Vitals      Vitals       `json:"vitals"`
	Medications []Medication `json:"medications"`
	Vaccines    []Vaccine    `json:"vaccines"`
	Exams       []Exam       `json:"exams"`
	Services    []string     `json:"services"`
	Attachments []Attachment `json:"attachments"`
	NextVisit   *time.Time   `json:"next_visit"`
}
