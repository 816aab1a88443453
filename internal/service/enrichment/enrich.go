package enrichment

import (
	"strings"
	"time"

	"github.com/jwalitptl/vet-portal/internal/model"
	"github.com/jwalitptl/vet-portal/internal/service/lifecycle"
)

// DefaultMediumWindowDays is how many days ahead an appointment counts as medium urgency.
const DefaultMediumWindowDays = 3

// RefKind tells whether a joined entity was found or synthesized from the appointment.
type RefKind string

const (
	RefRegistered   RefKind = "registered"
	RefUnregistered RefKind = "unregistered"
)

const unregisteredOwnerName = "Unregistered owner"

type PetRef struct {
	Kind RefKind   `json:"kind"`
	Pet  model.Pet `json:"pet"`
}

type OwnerRef struct {
	Kind   RefKind      `json:"kind"`
	Person model.Person `json:"person"`
}

// Enriched is an appointment joined to its pet, owner and clinical context.
type Enriched struct {
	Appointment     model.Appointment       `json:"appointment"`
	Pet             PetRef                  `json:"pet"`
	Owner           OwnerRef                `json:"owner"`
	LatestRecord    *model.ClinicalRecord   `json:"latest_record,omitempty"`
	EffectiveStatus model.AppointmentStatus `json:"effective_status"`
	Urgency         Level                   `json:"urgency"`
	ScheduledAt     *time.Time              `json:"scheduled_at,omitempty"`
}

// Enrich joins apt to the given collections. It never fails: anything that cannot
// be resolved becomes an unregistered placeholder.
func Enrich(apt model.Appointment, pets []model.Pet, people []model.Person, records []model.ClinicalRecord, asOf time.Time) Enriched {
	return enrich(apt, pets, people, records, asOf, DefaultMediumWindowDays)
}

// Enricher carries clinic policy for callers that join many appointments at once.
type Enricher struct {
	MediumWindowDays int
	Location         *time.Location
}

// All enriches every appointment in order.
func (e Enricher) All(apts []model.Appointment, pets []model.Pet, people []model.Person, records []model.ClinicalRecord, now time.Time) []Enriched {
	asOf := now
	if e.Location != nil {
		asOf = now.In(e.Location)
	}
	window := e.MediumWindowDays
	if window <= 0 {
		window = DefaultMediumWindowDays
	}
	out := make([]Enriched, 0, len(apts))
	for _, apt := range apts {
		out = append(out, enrich(apt, pets, people, records, asOf, window))
	}
	return out
}

func enrich(apt model.Appointment, pets []model.Pet, people []model.Person, records []model.ClinicalRecord, asOf time.Time, window int) Enriched {
	e := Enriched{
		Appointment:     apt,
		Pet:             resolvePet(&apt, pets),
		EffectiveStatus: lifecycle.EffectiveStatus(&apt, asOf),
		Urgency:         urgency(&apt, asOf, window),
	}
	e.Owner = resolveOwner(&apt, e.Pet, people)
	e.LatestRecord = latestRecord(e.Pet, records)
	if at, err := apt.ScheduledAt(asOf.Location()); err == nil {
		e.ScheduledAt = &at
	}
	return e
}

func resolvePet(apt *model.Appointment, pets []model.Pet) PetRef {
	if apt.PetID != "" {
		for _, p := range pets {
			if p.ID == apt.PetID {
				return PetRef{Kind: RefRegistered, Pet: p}
			}
		}
	}

	name := strings.TrimSpace(apt.PetName)
	if name != "" && apt.OwnerID != "" {
		for _, p := range pets {
			if p.OwnerID == apt.OwnerID && strings.TrimSpace(p.Name) == name {
				return PetRef{Kind: RefRegistered, Pet: p}
			}
		}
	}

	if name != "" && apt.OwnerID == "" {
		var match *model.Pet
		for i := range pets {
			if strings.TrimSpace(pets[i].Name) != name {
				continue
			}
			if match != nil {
				match = nil
				break
			}
			match = &pets[i]
		}
		if match != nil {
			return PetRef{Kind: RefRegistered, Pet: *match}
		}
	}

	return PetRef{
		Kind: RefUnregistered,
		Pet:  model.Pet{Name: apt.PetName, Species: apt.Species, OwnerID: apt.OwnerID},
	}
}

func resolveOwner(apt *model.Appointment, pet PetRef, people []model.Person) OwnerRef {
	ownerID := apt.OwnerID
	if pet.Kind == RefRegistered && pet.Pet.OwnerID != "" {
		ownerID = pet.Pet.OwnerID
	}
	if ownerID != "" {
		for _, p := range people {
			if p.ID == ownerID {
				p.PasswordHash = ""
				return OwnerRef{Kind: RefRegistered, Person: p}
			}
		}
	}
	return OwnerRef{
		Kind:   RefUnregistered,
		Person: model.Person{ID: ownerID, Name: unregisteredOwnerName, Role: model.RoleClient},
	}
}

func latestRecord(pet PetRef, records []model.ClinicalRecord) *model.ClinicalRecord {
	name := strings.TrimSpace(pet.Pet.Name)
	matches := func(r *model.ClinicalRecord) bool {
		if pet.Kind == RefRegistered && r.PetID != "" {
			return r.PetID == pet.Pet.ID
		}
		return r.PetID == "" && name != "" && strings.TrimSpace(r.PetName) == name
	}

	var latest *model.ClinicalRecord
	for i := range records {
		r := &records[i]
		if !matches(r) {
			continue
		}
		if latest == nil || r.Date.After(latest.Date) ||
			(r.Date.Equal(latest.Date) && r.CreatedAt.After(latest.CreatedAt)) {
			latest = r
		}
	}
	if latest == nil {
		return nil
	}
	out := *latest
	return &out
}
