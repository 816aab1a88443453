package store

import (
	"context"
	"strings"

	"github.com/jwalitptl/vet-portal/internal/model"
)

func (s *Store) AddAppointment(ctx context.Context, v model.Appointment) error {
	return addItem(ctx, s, s.appointments, v)
}

func (s *Store) UpdateAppointment(ctx context.Context, id string, mutate func(*model.Appointment) error) (model.Appointment, error) {
	return updateItem(ctx, s, s.appointments, id, mutate)
}

func (s *Store) DeleteAppointment(ctx context.Context, id string) error {
	return deleteItem(ctx, s, s.appointments, id)
}

func (s *Store) GetAppointment(id string) (model.Appointment, error) {
	return getItem(s, s.appointments, id)
}

func (s *Store) Appointments() []model.Appointment {
	return listItems(s, s.appointments)
}

func (s *Store) AddPet(ctx context.Context, v model.Pet) error {
	return addItem(ctx, s, s.pets, v)
}

func (s *Store) UpdatePet(ctx context.Context, id string, mutate func(*model.Pet) error) (model.Pet, error) {
	return updateItem(ctx, s, s.pets, id, mutate)
}

func (s *Store) DeletePet(ctx context.Context, id string) error {
	return deleteItem(ctx, s, s.pets, id)
}

func (s *Store) GetPet(id string) (model.Pet, error) {
	return getItem(s, s.pets, id)
}

func (s *Store) Pets() []model.Pet {
	return listItems(s, s.pets)
}

func (s *Store) AddPerson(ctx context.Context, v model.Person) error {
	return addItem(ctx, s, s.people, v)
}

func (s *Store) UpdatePerson(ctx context.Context, id string, mutate func(*model.Person) error) (model.Person, error) {
	return updateItem(ctx, s, s.people, id, mutate)
}

func (s *Store) DeletePerson(ctx context.Context, id string) error {
	return deleteItem(ctx, s, s.people, id)
}

func (s *Store) GetPerson(id string) (model.Person, error) {
	return getItem(s, s.people, id)
}

func (s *Store) People() []model.Person {
	return listItems(s, s.people)
}

func (s *Store) AddClinicalRecord(ctx context.Context, v model.ClinicalRecord) error {
	return addItem(ctx, s, s.records, v)
}

func (s *Store) UpdateClinicalRecord(ctx context.Context, id string, mutate func(*model.ClinicalRecord) error) (model.ClinicalRecord, error) {
	return updateItem(ctx, s, s.records, id, mutate)
}

func (s *Store) DeleteClinicalRecord(ctx context.Context, id string) error {
	return deleteItem(ctx, s, s.records, id)
}

func (s *Store) GetClinicalRecord(id string) (model.ClinicalRecord, error) {
	return getItem(s, s.records, id)
}

func (s *Store) ClinicalRecords() []model.ClinicalRecord {
	return listItems(s, s.records)
}

func (s *Store) AddPreAppointment(ctx context.Context, v model.PreAppointment) error {
	return addItem(ctx, s, s.preAppointments, v)
}

func (s *Store) UpdatePreAppointment(ctx context.Context, id string, mutate func(*model.PreAppointment) error) (model.PreAppointment, error) {
	return updateItem(ctx, s, s.preAppointments, id, mutate)
}

func (s *Store) DeletePreAppointment(ctx context.Context, id string) error {
	return deleteItem(ctx, s, s.preAppointments, id)
}

func (s *Store) GetPreAppointment(id string) (model.PreAppointment, error) {
	return getItem(s, s.preAppointments, id)
}

func (s *Store) PreAppointments() []model.PreAppointment {
	return listItems(s, s.preAppointments)
}

func (s *Store) AddNewsletterSubscriber(ctx context.Context, v model.NewsletterSubscriber) error {
	return addItem(ctx, s, s.subscribers, v)
}

func (s *Store) UpdateNewsletterSubscriber(ctx context.Context, id string, mutate func(*model.NewsletterSubscriber) error) (model.NewsletterSubscriber, error) {
	return updateItem(ctx, s, s.subscribers, id, mutate)
}

func (s *Store) DeleteNewsletterSubscriber(ctx context.Context, id string) error {
	return deleteItem(ctx, s, s.subscribers, id)
}

func (s *Store) GetNewsletterSubscriber(id string) (model.NewsletterSubscriber, error) {
	return getItem(s, s.subscribers, id)
}

func (s *Store) NewsletterSubscribers() []model.NewsletterSubscriber {
	return listItems(s, s.subscribers)
}

func (s *Store) AddNewsletterMessage(ctx context.Context, v model.NewsletterMessage) error {
	return addItem(ctx, s, s.messages, v)
}

func (s *Store) UpdateNewsletterMessage(ctx context.Context, id string, mutate func(*model.NewsletterMessage) error) (model.NewsletterMessage, error) {
	return updateItem(ctx, s, s.messages, id, mutate)
}

func (s *Store) DeleteNewsletterMessage(ctx context.Context, id string) error {
	return deleteItem(ctx, s, s.messages, id)
}

func (s *Store) GetNewsletterMessage(id string) (model.NewsletterMessage, error) {
	return getItem(s, s.messages, id)
}

func (s *Store) NewsletterMessages() []model.NewsletterMessage {
	return listItems(s, s.messages)
}

// PersonByEmail matches case-insensitively, ignoring surrounding spaces.
func (s *Store) PersonByEmail(email string) (model.Person, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.people.items {
		if strings.ToLower(strings.TrimSpace(p.Email)) == email {
			return p, true
		}
	}
	return model.Person{}, false
}

func (s *Store) PetsByOwner(ownerID string) []model.Pet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Pet, 0)
	for _, p := range s.pets.items {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out
}
