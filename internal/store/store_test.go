package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/vet-portal/internal/model"
	"github.com/jwalitptl/vet-portal/internal/repository"
	"github.com/jwalitptl/vet-portal/internal/repository/memory"
	apperrors "github.com/jwalitptl/vet-portal/pkg/errors"
)

var errBackendDown = errors.New("backend down")

// flakyKV wraps the memory KV and fails the calls it is told to.
type flakyKV struct {
	*memory.KV
	failGet    bool
	failSetFor map[string]bool
}

func newFlakyKV() *flakyKV {
	return &flakyKV{KV: memory.NewKV(), failSetFor: map[string]bool{}}
}

func (f *flakyKV) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failGet {
		return nil, errBackendDown
	}
	return f.KV.Get(ctx, key)
}

func (f *flakyKV) Set(ctx context.Context, key string, value []byte) error {
	for suffix := range f.failSetFor {
		if strings.HasSuffix(key, suffix) {
			return errBackendDown
		}
	}
	return f.KV.Set(ctx, key, value)
}

type recordingPublisher struct {
	mu      sync.Mutex
	changes []Change
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, message interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, message.(Change))
	return nil
}

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestStore(kv *flakyKV) (*Store, *recordingPublisher) {
	pub := &recordingPublisher{}
	s := New(kv, Options{Publisher: pub, Now: func() time.Time { return fixedNow }})
	return s, pub
}

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestAddWritesThroughUnderNamespacedKey(t *testing.T) {
	ctx := context.Background()
	kv := newFlakyKV()
	s, pub := newTestStore(kv)

	require.NoError(t, s.AddPet(ctx, model.Pet{ID: "pet-1", Name: "Max", Species: "dog", OwnerID: "c1"}))

	raw, err := kv.KV.Get(ctx, "vetclinic:pets")
	require.NoError(t, err)
	var stored []model.Pet
	require.NoError(t, json.Unmarshal(raw, &stored))
	require.Len(t, stored, 1)
	assert.Equal(t, "Max", stored[0].Name)

	require.Len(t, pub.changes, 1)
	assert.Equal(t, Change{Kind: model.KindPet, Op: OpAdd, ID: "pet-1", At: fixedNow}, pub.changes[0])
}

func TestAddRejectsDuplicateAndEmptyIDs(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(newFlakyKV())

	require.NoError(t, s.AddPet(ctx, model.Pet{ID: "pet-1", Name: "Max"}))
	err := s.AddPet(ctx, model.Pet{ID: "pet-1", Name: "Luna"})
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))

	err = s.AddPet(ctx, model.Pet{Name: "Luna"})
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
	assert.Len(t, s.Pets(), 1)
}

func TestUpdateAppliesMutatorAndKeepsOtherFields(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(newFlakyKV())
	require.NoError(t, s.AddAppointment(ctx, model.Appointment{
		ID: "a1", PetName: "Max", Reason: "vaccine", Status: model.AppointmentStatusPendingPayment,
	}))

	updated, err := s.UpdateAppointment(ctx, "a1", func(a *model.Appointment) error {
		a.AdminNotes = "call owner"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "call owner", updated.AdminNotes)
	assert.Equal(t, "vaccine", updated.Reason)

	got, err := s.GetAppointment("a1")
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestUpdateMutatorErrorLeavesRecordUntouched(t *testing.T) {
	ctx := context.Background()
	s, pub := newTestStore(newFlakyKV())
	require.NoError(t, s.AddAppointment(ctx, model.Appointment{ID: "a1", PetName: "Max"}))

	refused := apperrors.Validation("notes", "notes is required")
	_, err := s.UpdateAppointment(ctx, "a1", func(a *model.Appointment) error {
		a.PetName = "changed"
		return refused
	})
	assert.ErrorIs(t, err, refused)

	got, _ := s.GetAppointment("a1")
	assert.Equal(t, "Max", got.PetName)
	assert.Len(t, pub.changes, 1)

	_, err = s.UpdateAppointment(ctx, "a1", func(a *model.Appointment) error {
		a.ID = "other"
		return nil
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))

	_, err = s.UpdateAppointment(ctx, "missing", func(*model.Appointment) error { return nil })
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestWriteFailureRollsBackInMemoryChange(t *testing.T) {
	ctx := context.Background()
	kv := newFlakyKV()
	s, pub := newTestStore(kv)
	require.NoError(t, s.AddPet(ctx, model.Pet{ID: "pet-1", Name: "Max"}))

	kv.failSetFor[":pets"] = true

	err := s.AddPet(ctx, model.Pet{ID: "pet-2", Name: "Luna"})
	assert.True(t, apperrors.Is(err, apperrors.ErrStorage))
	assert.ErrorIs(t, err, errBackendDown)

	_, err = s.UpdatePet(ctx, "pet-1", func(p *model.Pet) error {
		p.Name = "Rex"
		return nil
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrStorage))

	assert.True(t, apperrors.Is(s.DeletePet(ctx, "pet-1"), apperrors.ErrStorage))

	pets := s.Pets()
	require.Len(t, pets, 1)
	assert.Equal(t, "Max", pets[0].Name)
	assert.Len(t, pub.changes, 1)
}

func TestReloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := newFlakyKV()
	s, _ := newTestStore(kv)

	birth := time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC)
	reset := time.Date(2026, 3, 9, 18, 30, 0, 0, time.UTC)
	changed := time.Date(2026, 3, 9, 12, 0, 0, 123456789, time.UTC)
	next := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
	weight := 31.5
	hr := 90

	people := []model.Person{
		{ID: "c1", Name: "Ana", Email: "ana@example.com", Role: model.RoleClient, RegisteredAt: fixedNow, PasswordResetAt: &reset},
		{ID: "vet-1", Name: "Dr. Ruiz", Email: "ruiz@example.com", Role: model.RoleVeterinarian, RegisteredAt: fixedNow},
	}
	pets := []model.Pet{
		{ID: "pet-1", Name: "Max", Species: "dog", Breed: "beagle", OwnerID: "c1", BirthDate: &birth, Weight: 12.4, CreatedAt: fixedNow},
	}
	appointments := []model.Appointment{
		{
			ID: "a1", OwnerID: "c1", PetID: "pet-1", PetName: "Max", Species: "dog",
			VeterinarianName: "Dr. Ruiz", Date: "2026-03-10", Time: "10:00", Reason: "vaccine",
			Price: price("45.5"), Status: model.AppointmentStatusUnderReview, PaymentProof: "proofs/a1.png",
			CreatedAt: fixedNow, UpdatedAt: fixedNow, StatusChangedAt: &changed,
		},
	}
	records := []model.ClinicalRecord{
		{
			ID: "r1", PetID: "pet-1", PetName: "Max", Date: fixedNow, VeterinarianName: "Dr. Ruiz",
			Motive: "checkup", Vitals: model.Vitals{Weight: &weight, HeartRate: &hr, BloodPressure: "120/80"},
			Medications: []model.Medication{{Name: "Drontal", Dosage: "1 tab", Schedule: "once"}},
			Vaccines:    []model.Vaccine{{Name: "Rabies", Applied: fixedNow, NextDue: &next}},
			NextVisit:   &next, CreatedAt: fixedNow,
		},
	}
	pre := []model.PreAppointment{
		{ID: "pre-1", RequesterName: "Luis", Email: "luis@example.com", PetName: "Kira", Species: "cat",
			PreferredDate: "2026-03-12", PreferredTime: "09:30", Reason: "cough",
			Status: model.PreAppointmentStatusPending, CreatedAt: fixedNow},
	}
	subs := []model.NewsletterSubscriber{{ID: "n1", Email: "ana@example.com", Active: true, SubscribedAt: fixedNow}}
	msgs := []model.NewsletterMessage{{ID: "m1", Subject: "Hi", Body: "News", Recipients: []string{"ana@example.com"}, SentAt: fixedNow}}

	for _, p := range people {
		require.NoError(t, s.AddPerson(ctx, p))
	}
	for _, p := range pets {
		require.NoError(t, s.AddPet(ctx, p))
	}
	for _, a := range appointments {
		require.NoError(t, s.AddAppointment(ctx, a))
	}
	for _, r := range records {
		require.NoError(t, s.AddClinicalRecord(ctx, r))
	}
	for _, p := range pre {
		require.NoError(t, s.AddPreAppointment(ctx, p))
	}
	for _, n := range subs {
		require.NoError(t, s.AddNewsletterSubscriber(ctx, n))
	}
	for _, m := range msgs {
		require.NoError(t, s.AddNewsletterMessage(ctx, m))
	}

	fresh, _ := newTestStore(kv)
	require.NoError(t, fresh.Reload(ctx))

	assert.Equal(t, people, fresh.People())
	assert.Equal(t, pets, fresh.Pets())
	assert.Equal(t, appointments, fresh.Appointments())
	assert.Equal(t, records, fresh.ClinicalRecords())
	assert.Equal(t, pre, fresh.PreAppointments())
	assert.Equal(t, subs, fresh.NewsletterSubscribers())
	assert.Equal(t, msgs, fresh.NewsletterMessages())
}

func TestReloadTreatsCorruptOrMissingKeysAsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := newFlakyKV()
	s, _ := newTestStore(kv)
	require.NoError(t, s.AddPerson(ctx, model.Person{ID: "c1", Name: "Ana", Role: model.RoleClient}))
	require.NoError(t, s.AddPet(ctx, model.Pet{ID: "pet-1", Name: "Max", OwnerID: "c1"}))

	require.NoError(t, kv.KV.Set(ctx, "vetclinic:pets", []byte("{not json")))

	require.NoError(t, s.Reload(ctx))
	assert.Empty(t, s.Pets())
	assert.Len(t, s.People(), 1)
	assert.Empty(t, s.Appointments())
}

func TestReloadBackendFailureKeepsCurrentState(t *testing.T) {
	ctx := context.Background()
	kv := newFlakyKV()
	s, _ := newTestStore(kv)
	require.NoError(t, s.AddPet(ctx, model.Pet{ID: "pet-1", Name: "Max"}))

	kv.failGet = true
	err := s.Reload(ctx)
	assert.True(t, apperrors.Is(err, apperrors.ErrStorage))
	assert.Len(t, s.Pets(), 1)
}

func seedAccount(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.AddPerson(ctx, model.Person{ID: "c1", Name: "Ana", Role: model.RoleClient}))
	require.NoError(t, s.AddPerson(ctx, model.Person{ID: "c2", Name: "Luis", Role: model.RoleClient}))
	require.NoError(t, s.AddPet(ctx, model.Pet{ID: "pet-1", Name: "Max", OwnerID: "c1"}))
	require.NoError(t, s.AddPet(ctx, model.Pet{ID: "pet-2", Name: "Luna", OwnerID: "c1"}))
	require.NoError(t, s.AddPet(ctx, model.Pet{ID: "pet-3", Name: "Kira", OwnerID: "c2"}))
	for _, id := range []string{"a1", "a2", "a3", "a4", "a5"} {
		require.NoError(t, s.AddAppointment(ctx, model.Appointment{ID: id, OwnerID: "c1", PetName: "Max"}))
	}
	require.NoError(t, s.AddAppointment(ctx, model.Appointment{ID: "b1", OwnerID: "c2", PetName: "Kira"}))
	require.NoError(t, s.AddClinicalRecord(ctx, model.ClinicalRecord{ID: "r1", PetID: "pet-1", PetName: "Max"}))
	require.NoError(t, s.AddClinicalRecord(ctx, model.ClinicalRecord{ID: "r2", PetName: "Luna"}))
	require.NoError(t, s.AddClinicalRecord(ctx, model.ClinicalRecord{ID: "r3", PetID: "pet-3", PetName: "Kira"}))
}

func TestDeleteAccountCascades(t *testing.T) {
	ctx := context.Background()
	s, pub := newTestStore(newFlakyKV())
	seedAccount(t, s)
	// an unregistered pet is reachable only through its appointment
	require.NoError(t, s.AddAppointment(ctx, model.Appointment{ID: "a6", OwnerID: "c1", PetName: "Rex"}))
	require.NoError(t, s.AddClinicalRecord(ctx, model.ClinicalRecord{ID: "r4", PetName: "Rex", AppointmentID: "a6"}))
	pub.changes = nil

	require.NoError(t, s.DeleteAccount(ctx, "c1"))

	_, err := s.GetPerson("c1")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	assert.Empty(t, s.PetsByOwner("c1"))

	pets := s.Pets()
	require.Len(t, pets, 1)
	assert.Equal(t, "pet-3", pets[0].ID)

	apts := s.Appointments()
	require.Len(t, apts, 1)
	assert.Equal(t, "b1", apts[0].ID)

	records := s.ClinicalRecords()
	require.Len(t, records, 1)
	assert.Equal(t, "r3", records[0].ID)

	// 3 records + 6 appointments + 2 pets + the person
	assert.Len(t, pub.changes, 12)

	assert.True(t, apperrors.Is(s.DeleteAccount(ctx, "c1"), apperrors.ErrNotFound))
}

func TestDeleteAccountAbortsAsAUnit(t *testing.T) {
	ctx := context.Background()
	kv := newFlakyKV()
	s, _ := newTestStore(kv)
	seedAccount(t, s)

	kv.failSetFor[":pets"] = true
	err := s.DeleteAccount(ctx, "c1")
	assert.True(t, apperrors.Is(err, apperrors.ErrStorage))

	assert.Len(t, s.Pets(), 3)
	assert.Len(t, s.Appointments(), 6)
	assert.Len(t, s.ClinicalRecords(), 3)

	// the kinds written before the failure were restored in storage
	delete(kv.failSetFor, ":pets")
	fresh, _ := newTestStore(kv)
	require.NoError(t, fresh.Reload(ctx))
	assert.Len(t, fresh.Appointments(), 6)
	assert.Len(t, fresh.ClinicalRecords(), 3)
}

func TestPreferencesDefaultsAndSave(t *testing.T) {
	ctx := context.Background()
	kv := newFlakyKV()
	s, _ := newTestStore(kv)

	prefs, err := s.Preferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultPreferences(), prefs)

	prefs.Theme = "dark"
	prefs.TwoFactorEnabled = true
	prefs.SessionTimeoutMinutes = 15
	require.NoError(t, s.SavePreferences(ctx, prefs))

	raw, err := kv.KV.Get(ctx, "vetclinic:pref:theme")
	require.NoError(t, err)
	assert.Equal(t, `"dark"`, string(raw))

	require.NoError(t, kv.KV.Set(ctx, "vetclinic:pref:locale", []byte("garbage")))
	loaded, err := s.Preferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, "dark", loaded.Theme)
	assert.True(t, loaded.TwoFactorEnabled)
	assert.Equal(t, 15, loaded.SessionTimeoutMinutes)
	assert.Equal(t, "es", loaded.Locale)

	prefs.SessionTimeoutMinutes = 0
	assert.True(t, apperrors.Is(s.SavePreferences(ctx, prefs), apperrors.ErrBadRequest))
}

func TestSavePreferencesRestoresOnFailure(t *testing.T) {
	ctx := context.Background()
	kv := newFlakyKV()
	s, _ := newTestStore(kv)

	prefs := model.DefaultPreferences()
	prefs.Theme = "dark"
	require.NoError(t, s.SavePreferences(ctx, prefs))

	next := prefs
	next.ProfileBio = "new bio"
	next.EmailNotifications = !prefs.EmailNotifications
	next.Theme = "light"
	kv.failSetFor[":pref:theme"] = true
	err := s.SavePreferences(ctx, next)
	assert.True(t, apperrors.Is(err, apperrors.ErrStorage))

	delete(kv.failSetFor, ":pref:theme")
	loaded, err := s.Preferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, prefs, loaded)
}

func TestSavePreferencesRemovesKeysItAdded(t *testing.T) {
	ctx := context.Background()
	kv := newFlakyKV()
	s, _ := newTestStore(kv)

	prefs := model.DefaultPreferences()
	prefs.ProfileBio = "hello"
	kv.failSetFor[":pref:currency"] = true
	assert.True(t, apperrors.Is(s.SavePreferences(ctx, prefs), apperrors.ErrStorage))

	_, err := kv.KV.Get(ctx, "vetclinic:pref:profile-bio")
	assert.ErrorIs(t, err, repository.ErrKeyNotFound)
}

func TestPersonByEmailIgnoresCase(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(newFlakyKV())
	require.NoError(t, s.AddPerson(ctx, model.Person{ID: "c1", Email: "Ana@Example.com"}))

	p, ok := s.PersonByEmail(" ana@example.com ")
	assert.True(t, ok)
	assert.Equal(t, "c1", p.ID)

	_, ok = s.PersonByEmail("nobody@example.com")
	assert.False(t, ok)
}
