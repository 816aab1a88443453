package model

import (
	"time"

	"github.com/google/uuid"
)

// Kind names an entity collection. It doubles as the durable storage key suffix.
type Kind string

const (
	KindAppointment          Kind = "appointments"
	KindPet                  Kind = "pets"
	KindPerson               Kind = "people"
	KindClinicalRecord       Kind = "clinical-records"
	KindPreAppointment       Kind = "pre-appointments"
	KindNewsletterSubscriber Kind = "newsletter-subscribers"
	KindNewsletterMessage    Kind = "newsletter-messages"
)

// Kinds lists every collection in load order.
var Kinds = []Kind{
	KindPerson,
	KindPet,
	KindAppointment,
	KindClinicalRecord,
	KindPreAppointment,
	KindNewsletterSubscriber,
	KindNewsletterMessage,
}

// NewID returns a fresh entity identifier.
func NewID() string {
	return uuid.NewString()
}

// DateLayout and TimeLayout are the wire formats of scheduled dates and times.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// ParseSchedule combines a date and a time of day in loc. An empty time means midnight.
func ParseSchedule(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if clock == "" {
		return time.ParseInLocation(DateLayout, date, loc)
	}
	return time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+clock, loc)
}
