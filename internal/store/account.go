package store

import (
	"context"

	"github.com/jwalitptl/vet-portal/internal/model"
	apperrors "github.com/jwalitptl/vet-portal/pkg/errors"
)

type pendingWrite struct {
	kind model.Kind
	next interface{}
	prev interface{}
}

// DeleteAccount removes a person together with their pets, the appointments they
// own, and the clinical records of those pets or appointments. Records without a pet
// id or a removed appointment are matched by name, unless another owner has a pet
// with the same name.
func (s *Store) DeleteAccount(ctx context.Context, personID string) error {
	var changes []Change

	err := s.locked(func() error {
		if s.people.index(personID) < 0 {
			return apperrors.NotFound("person", nil)
		}

		petIDs := map[string]struct{}{}
		ownNames := map[string]struct{}{}
		otherNames := map[string]struct{}{}
		for _, p := range s.pets.items {
			if p.OwnerID == personID {
				petIDs[p.ID] = struct{}{}
				ownNames[p.Name] = struct{}{}
			} else {
				otherNames[p.Name] = struct{}{}
			}
		}

		nextPets, removedPets := s.pets.filter(func(p *model.Pet) bool {
			return p.OwnerID != personID
		})
		nextAppointments, removedAppointments := s.appointments.filter(func(a *model.Appointment) bool {
			if a.OwnerID == personID {
				return false
			}
			_, ownPet := petIDs[a.PetID]
			return a.PetID == "" || !ownPet
		})
		goneAppointments := make(map[string]struct{}, len(removedAppointments))
		for _, id := range removedAppointments {
			goneAppointments[id] = struct{}{}
		}
		nextRecords, removedRecords := s.records.filter(func(r *model.ClinicalRecord) bool {
			if _, gone := goneAppointments[r.AppointmentID]; gone && r.AppointmentID != "" {
				return false
			}
			if r.PetID != "" {
				_, ownPet := petIDs[r.PetID]
				return !ownPet
			}
			_, own := ownNames[r.PetName]
			_, shared := otherNames[r.PetName]
			return !own || shared
		})
		nextPeople, _ := s.people.filter(func(p *model.Person) bool {
			return p.ID != personID
		})

		writes := []pendingWrite{
			{kind: model.KindClinicalRecord, next: nextRecords, prev: s.records.items},
			{kind: model.KindAppointment, next: nextAppointments, prev: s.appointments.items},
			{kind: model.KindPet, next: nextPets, prev: s.pets.items},
			{kind: model.KindPerson, next: nextPeople, prev: s.people.items},
		}
		for i, w := range writes {
			if err := s.persist(ctx, w.kind, w.next); err != nil {
				s.restore(ctx, writes[:i])
				return err
			}
		}

		s.records.items = nextRecords
		s.appointments.items = nextAppointments
		s.pets.items = nextPets
		s.people.items = nextPeople

		now := s.now()
		for _, id := range removedRecords {
			changes = append(changes, Change{Kind: model.KindClinicalRecord, Op: OpDelete, ID: id, At: now})
		}
		for _, id := range removedAppointments {
			changes = append(changes, Change{Kind: model.KindAppointment, Op: OpDelete, ID: id, At: now})
		}
		for _, id := range removedPets {
			changes = append(changes, Change{Kind: model.KindPet, Op: OpDelete, ID: id, At: now})
		}
		changes = append(changes, Change{Kind: model.KindPerson, Op: OpDelete, ID: personID, At: now})
		return nil
	})

	if err != nil {
		s.record(ctx, model.KindPerson, OpDelete, personID, err)
		return err
	}
	if s.metrics != nil {
		s.metrics.StoreOperations.WithLabelValues(string(model.KindPerson), string(OpDelete), "ok").Inc()
		s.metrics.AccountDeletions.Inc()
	}
	for _, c := range changes {
		s.notify(ctx, c)
	}
	s.log.Info("account deleted", "person_id", personID, "removed", len(changes))
	return nil
}

// restore rewrites kinds that were already persisted before a later write failed.
func (s *Store) restore(ctx context.Context, written []pendingWrite) {
	for i := len(written) - 1; i >= 0; i-- {
		if err := s.persist(ctx, written[i].kind, written[i].prev); err != nil {
			s.log.Error(err, "failed to restore collection after aborted cascade", "kind", string(written[i].kind))
		}
	}
}
