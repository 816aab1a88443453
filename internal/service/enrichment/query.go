package enrichment

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jwalitptl/vet-portal/internal/model"
	"github.com/jwalitptl/vet-portal/internal/service/lifecycle"
	apperrors "github.com/jwalitptl/vet-portal/pkg/errors"
)

// Level is a triage classification.
type Level string

const (
	UrgencyLow    Level = "low"
	UrgencyMedium Level = "medium"
	UrgencyHigh   Level = "high"
)

func (l Level) rank() int {
	switch l {
	case UrgencyHigh:
		return 0
	case UrgencyMedium:
		return 1
	case UrgencyLow:
		return 2
	default:
		return 3
	}
}

// Urgency classifies apt relative to asOf, whose location is the clinic's. It is
// total: an unparseable schedule is low.
func Urgency(apt model.Appointment, asOf time.Time) Level {
	return urgency(&apt, asOf, DefaultMediumWindowDays)
}

func urgency(apt *model.Appointment, asOf time.Time, window int) Level {
	if lifecycle.IsTerminal(lifecycle.EffectiveStatus(apt, asOf)) {
		return UrgencyLow
	}
	days, ok := daysUntil(apt, asOf)
	if !ok {
		return UrgencyLow
	}
	switch {
	case days == 0:
		return UrgencyHigh
	case days >= 1 && days <= window:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

// daysUntil counts calendar days between asOf and apt's date, ignoring time of day.
func daysUntil(apt *model.Appointment, asOf time.Time) (int, bool) {
	d, err := time.ParseInLocation(model.DateLayout, apt.Date, time.UTC)
	if err != nil {
		return 0, false
	}
	y, m, day := asOf.Date()
	today := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	return int(d.Sub(today).Hours() / 24), true
}

func isToday(apt *model.Appointment, asOf time.Time) bool {
	days, ok := daysUntil(apt, asOf)
	return ok && days == 0
}

// Criteria are ANDed. Zero fields match everything. From and To are inclusive dates.
type Criteria struct {
	Status model.AppointmentStatus
	Text   string
	From   string
	To     string
}

// CriteriaFrom converts query filters, validating status and dates.
func CriteriaFrom(f model.AppointmentFilters) (Criteria, error) {
	c := Criteria{
		Status: f.Status,
		Text:   strings.TrimSpace(f.Search),
		From:   strings.TrimSpace(f.StartDate),
		To:     strings.TrimSpace(f.EndDate),
	}
	if c.Status != "" && !c.Status.Valid() {
		return Criteria{}, apperrors.Validation("status", fmt.Sprintf("status %q is not a known status", c.Status))
	}
	for field, v := range map[string]string{"from": c.From, "to": c.To} {
		if v == "" {
			continue
		}
		if _, err := time.Parse(model.DateLayout, v); err != nil {
			return Criteria{}, apperrors.Validation(field, field+" must be a date in YYYY-MM-DD format")
		}
	}
	return c, nil
}

func (c Criteria) match(e *Enriched) bool {
	if c.Status != "" && e.EffectiveStatus != c.Status {
		return false
	}
	if c.Text != "" {
		needle := strings.ToLower(c.Text)
		if !strings.Contains(strings.ToLower(e.Appointment.PetName), needle) &&
			!strings.Contains(strings.ToLower(e.Appointment.Reason), needle) {
			return false
		}
	}
	if c.From != "" || c.To != "" {
		if _, err := time.Parse(model.DateLayout, e.Appointment.Date); err != nil {
			return false
		}
		if c.From != "" && e.Appointment.Date < c.From {
			return false
		}
		if c.To != "" && e.Appointment.Date > c.To {
			return false
		}
	}
	return true
}

// Filter keeps the items matching c, in order.
func Filter(items []Enriched, c Criteria) []Enriched {
	out := make([]Enriched, 0, len(items))
	for i := range items {
		if c.match(&items[i]) {
			out = append(out, items[i])
		}
	}
	return out
}

type SortKey string

const (
	SortDateAsc  SortKey = "date_asc"
	SortDateDesc SortKey = "date_desc"
	SortUrgency  SortKey = "urgency"
	SortPetName  SortKey = "pet_name"
)

// ParseSortKey accepts the known keys. Empty means date_asc.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.TrimSpace(s)); k {
	case "":
		return SortDateAsc, nil
	case SortDateAsc, SortDateDesc, SortUrgency, SortPetName:
		return k, nil
	default:
		return "", apperrors.Validation("sort", fmt.Sprintf("sort %q is not supported", s))
	}
}

// Sort returns a stably sorted copy. Items without a parseable schedule go last for
// every date ordering. Unknown keys keep input order.
func Sort(items []Enriched, key SortKey) []Enriched {
	out := make([]Enriched, len(items))
	copy(out, items)

	byDate := func(i, j int, desc bool) bool {
		a, b := out[i].ScheduledAt, out[j].ScheduledAt
		switch {
		case a == nil || b == nil:
			return a != nil && b == nil
		case desc:
			return a.After(*b)
		default:
			return a.Before(*b)
		}
	}

	var less func(i, j int) bool
	switch key {
	case SortDateAsc:
		less = func(i, j int) bool { return byDate(i, j, false) }
	case SortDateDesc:
		less = func(i, j int) bool { return byDate(i, j, true) }
	case SortUrgency:
		less = func(i, j int) bool {
			ri, rj := out[i].Urgency.rank(), out[j].Urgency.rank()
			if ri != rj {
				return ri < rj
			}
			return byDate(i, j, false)
		}
	case SortPetName:
		less = func(i, j int) bool {
			return strings.ToLower(out[i].Appointment.PetName) < strings.ToLower(out[j].Appointment.PetName)
		}
	default:
		return out
	}
	sort.SliceStable(out, less)
	return out
}

// Stats aggregates a set of enriched appointments.
type Stats struct {
	Total     int `json:"total"`
	Today     int `json:"today"`
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Completed int `json:"completed"`
	Urgent    int `json:"urgent"`
}

// NotToday is the complement of Today.
func (s Stats) NotToday() int {
	return s.Total - s.Today
}

// ComputeStats counts in one pass. Pending covers pending_payment and under_review.
func ComputeStats(items []Enriched, asOf time.Time) Stats {
	var s Stats
	for i := range items {
		e := &items[i]
		s.Total++
		if isToday(&e.Appointment, asOf) {
			s.Today++
		}
		switch e.EffectiveStatus {
		case model.AppointmentStatusPendingPayment, model.AppointmentStatusUnderReview:
			s.Pending++
		case model.AppointmentStatusConfirmed:
			s.Confirmed++
		case model.AppointmentStatusAttended:
			s.Completed++
		case model.AppointmentStatusRejected, model.AppointmentStatusExpired,
			model.AppointmentStatusCancelled, model.AppointmentStatusNoShow:
		default:
		}
		if e.Urgency == UrgencyHigh {
			s.Urgent++
		}
	}
	return s
}

// Scope applies the role-gated read contract. Clients see appointments they own or
// that concern their pets. Veterinarians see the ones assigned to them, by id or,
// when no id was stored, by display name. Administrators see everything.
func Scope(items []Enriched, who model.Identity) []Enriched {
	keep := func(*Enriched) bool { return false }
	switch who.Role {
	case model.RoleAdministrator:
		keep = func(*Enriched) bool { return true }
	case model.RoleClient:
		keep = func(e *Enriched) bool {
			if who.PersonID == "" {
				return false
			}
			if e.Appointment.OwnerID == who.PersonID {
				return true
			}
			return e.Pet.Kind == RefRegistered && e.Pet.Pet.OwnerID == who.PersonID
		}
	case model.RoleVeterinarian:
		keep = func(e *Enriched) bool {
			if e.Appointment.VeterinarianID != "" {
				return e.Appointment.VeterinarianID == who.PersonID
			}
			name := strings.TrimSpace(who.Name)
			return name != "" && strings.EqualFold(strings.TrimSpace(e.Appointment.VeterinarianName), name)
		}
	default:
	}

	out := make([]Enriched, 0, len(items))
	for i := range items {
		if keep(&items[i]) {
			out = append(out, items[i])
		}
	}
	return out
}
