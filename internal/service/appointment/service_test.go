package appointment

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/vet-portal/internal/model"
	"github.com/jwalitptl/vet-portal/internal/repository/memory"
	"github.com/jwalitptl/vet-portal/internal/service/enrichment"
	"github.com/jwalitptl/vet-portal/internal/service/lifecycle"
	"github.com/jwalitptl/vet-portal/internal/store"
	apperrors "github.com/jwalitptl/vet-portal/pkg/errors"
	"github.com/jwalitptl/vet-portal/pkg/validator"
)

var (
	now    = time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)
	ana    = model.Identity{PersonID: "c1", Name: "Ana", Role: model.RoleClient}
	luis   = model.Identity{PersonID: "c2", Name: "Luis", Role: model.RoleClient}
	ruiz   = model.Identity{PersonID: "vet-1", Name: "Dr. Ruiz", Role: model.RoleVeterinarian}
	soto   = model.Identity{PersonID: "vet-2", Name: "Dr. Soto", Role: model.RoleVeterinarian}
	admin  = model.Identity{PersonID: "adm", Name: "Admin", Role: model.RoleAdministrator}
	errBad = errors.New("disk full")
)

// breakableKV fails writes to keys ending in failSuffix once it is set.
type breakableKV struct {
	*memory.KV
	failSuffix string
}

func (b *breakableKV) Set(ctx context.Context, key string, value []byte) error {
	if b.failSuffix != "" && strings.HasSuffix(key, b.failSuffix) {
		return errBad
	}
	return b.KV.Set(ctx, key, value)
}

func setup(t *testing.T) (*Service, *store.Store, *breakableKV) {
	t.Helper()
	ctx := context.Background()
	kv := &breakableKV{KV: memory.NewKV()}
	st := store.New(kv, store.Options{Now: func() time.Time { return now }})

	for _, p := range []model.Person{
		{ID: "c1", Name: "Ana", Role: model.RoleClient},
		{ID: "c2", Name: "Luis", Role: model.RoleClient},
		{ID: "vet-1", Name: "Dr. Ruiz", Role: model.RoleVeterinarian},
		{ID: "vet-2", Name: "Dr. Soto", Role: model.RoleVeterinarian},
	} {
		require.NoError(t, st.AddPerson(ctx, p))
	}
	require.NoError(t, st.AddPet(ctx, model.Pet{ID: "pet-1", Name: "Max", Species: "dog", OwnerID: "c1"}))
	require.NoError(t, st.AddPet(ctx, model.Pet{ID: "pet-2", Name: "Kira", Species: "cat", OwnerID: "c2"}))

	svc := NewService(st, validator.New(), nil, nil, Options{Now: func() time.Time { return now }})
	return svc, st, kv
}

func request(t *testing.T, svc *Service, actor model.Identity, mutate func(*model.CreateAppointmentRequest)) model.Appointment {
	t.Helper()
	req := model.CreateAppointmentRequest{
		PetName: "Max", Species: "dog", Date: "2026-03-12", Time: "10:00", Reason: "vaccine",
	}
	if mutate != nil {
		mutate(&req)
	}
	apt, err := svc.Request(context.Background(), actor, req)
	require.NoError(t, err)
	return apt
}

func confirmed(t *testing.T, svc *Service, mutate func(*model.CreateAppointmentRequest)) model.Appointment {
	t.Helper()
	ctx := context.Background()
	apt := request(t, svc, ana, mutate)
	price := decimal.RequireFromString("40")
	_, err := svc.AttachPaymentProof(ctx, ana, apt.ID, "proofs/1.png", &price)
	require.NoError(t, err)
	apt, err = svc.Transition(ctx, admin, apt.ID, lifecycle.Change{To: model.AppointmentStatusConfirmed})
	require.NoError(t, err)
	return apt
}

func TestRequest(t *testing.T) {
	svc, st, _ := setup(t)
	ctx := context.Background()

	apt := request(t, svc, ana, func(r *model.CreateAppointmentRequest) {
		r.OwnerID = "c2"
		r.VeterinarianID = "vet-1"
	})
	assert.Equal(t, "c1", apt.OwnerID)
	assert.Equal(t, model.AppointmentStatusPendingPayment, apt.Status)
	assert.Equal(t, "Dr. Ruiz", apt.VeterinarianName)
	assert.Equal(t, now, apt.CreatedAt)

	stored, err := st.GetAppointment(apt.ID)
	require.NoError(t, err)
	assert.Equal(t, apt, stored)

	_, err = svc.Request(ctx, ana, model.CreateAppointmentRequest{Species: "dog", Date: "2026-03-12", Time: "10:00", Reason: "x"})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "pet_name", appErr.Field)

	_, err = svc.Request(ctx, ruiz, model.CreateAppointmentRequest{})
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))

	_, err = svc.Request(ctx, ana, model.CreateAppointmentRequest{
		PetID: "pet-2", PetName: "Kira", Species: "cat", Date: "2026-03-12", Time: "10:00", Reason: "x",
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))

	_, err = svc.Request(ctx, ana, model.CreateAppointmentRequest{
		PetName: "Max", Species: "dog", Date: "2026-03-12", Time: "10:00", Reason: "x", VeterinarianID: "c2",
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))

	adminBooked := request(t, svc, admin, func(r *model.CreateAppointmentRequest) { r.PetID = "pet-2" })
	assert.Equal(t, "c2", adminBooked.OwnerID)
	assert.Equal(t, "Kira", adminBooked.PetName)
}

func TestPaymentProofOwnership(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	apt := request(t, svc, ana, nil)
	price := decimal.RequireFromString("25")

	_, err := svc.AttachPaymentProof(ctx, luis, apt.ID, "proofs/x.png", &price)
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))

	_, err = svc.AttachPaymentProof(ctx, ana, apt.ID, "", &price)
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))

	updated, err := svc.AttachPaymentProof(ctx, ana, apt.ID, "proofs/x.png", &price)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusUnderReview, updated.Status)
	assert.Equal(t, "25", updated.Price.String())
}

func TestAttendCreatesRecordAndTransitions(t *testing.T) {
	svc, st, _ := setup(t)
	ctx := context.Background()
	apt := confirmed(t, svc, func(r *model.CreateAppointmentRequest) { r.VeterinarianID = "vet-1" })

	record, err := svc.Attend(ctx, ruiz, apt.ID, model.ClinicalRecordInput{Motive: "annual vaccine", Diagnosis: "healthy"})
	require.NoError(t, err)
	assert.Equal(t, "pet-1", record.PetID)
	assert.Equal(t, apt.ID, record.AppointmentID)
	assert.Equal(t, "Dr. Ruiz", record.VeterinarianName)

	stored, err := st.GetAppointment(apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusAttended, stored.Status)
	assert.Len(t, st.ClinicalRecords(), 1)

	_, err = svc.Cancel(ctx, ana, apt.ID, "changed my mind")
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidTransition))
}

func TestAttendGuards(t *testing.T) {
	svc, st, _ := setup(t)
	ctx := context.Background()

	pending := request(t, svc, ana, nil)
	_, err := svc.Attend(ctx, ruiz, pending.ID, model.ClinicalRecordInput{Motive: "checkup"})
	var te *lifecycle.TransitionError
	assert.ErrorAs(t, err, &te)

	assigned := confirmed(t, svc, func(r *model.CreateAppointmentRequest) { r.VeterinarianID = "vet-1" })
	_, err = svc.Attend(ctx, soto, assigned.ID, model.ClinicalRecordInput{Motive: "checkup"})
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))

	_, err = svc.Attend(ctx, ruiz, assigned.ID, model.ClinicalRecordInput{Motive: "  "})
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))

	_, err = svc.Attend(ctx, admin, assigned.ID, model.ClinicalRecordInput{Motive: "checkup"})
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))

	assert.Empty(t, st.ClinicalRecords())
}

func TestAttendRemovesRecordWhenTransitionCannotPersist(t *testing.T) {
	svc, st, kv := setup(t)
	ctx := context.Background()
	apt := confirmed(t, svc, nil)

	kv.failSuffix = ":appointments"
	_, err := svc.Attend(ctx, ruiz, apt.ID, model.ClinicalRecordInput{Motive: "checkup"})
	assert.True(t, apperrors.Is(err, apperrors.ErrStorage))

	assert.Empty(t, st.ClinicalRecords())
	stored, _ := st.GetAppointment(apt.ID)
	assert.Equal(t, model.AppointmentStatusConfirmed, stored.Status)
	assert.Empty(t, stored.VeterinarianID)
}

func TestNoShowAndCancel(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	apt := confirmed(t, svc, nil)
	_, err := svc.MarkNoShow(ctx, ana, apt.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
	updated, err := svc.MarkNoShow(ctx, ruiz, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusNoShow, updated.Status)
	assert.Equal(t, "vet-1", updated.VeterinarianID)

	other := request(t, svc, ana, nil)
	_, err = svc.Cancel(ctx, luis, other.ID, "")
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
	cancelled, err := svc.Cancel(ctx, ana, other.ID, " travelling ")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, cancelled.Status)
	assert.Equal(t, "travelling", cancelled.CancelReason)

	_, err = svc.Cancel(ctx, admin, "missing", "")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestCancelKeepsAdminNotes(t *testing.T) {
	svc, st, _ := setup(t)
	ctx := context.Background()

	apt := request(t, svc, ana, nil)
	_, err := st.UpdateAppointment(ctx, apt.ID, func(a *model.Appointment) error {
		a.AdminNotes = "bring vaccination card"
		return nil
	})
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, ana, apt.ID, "travelling")
	require.NoError(t, err)
	assert.Equal(t, "bring vaccination card", cancelled.AdminNotes)
	assert.Equal(t, "travelling", cancelled.CancelReason)
}

func TestVeterinarianAssignedByNameOnly(t *testing.T) {
	svc, st, _ := setup(t)
	ctx := context.Background()

	byName := confirmed(t, svc, nil)
	_, err := st.UpdateAppointment(ctx, byName.ID, func(a *model.Appointment) error {
		a.VeterinarianID = ""
		a.VeterinarianName = " dr. ruiz "
		return nil
	})
	require.NoError(t, err)

	_, err = svc.Get(ctx, soto, byName.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	_, err = svc.MarkNoShow(ctx, soto, byName.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
	_, err = svc.Attend(ctx, soto, byName.ID, model.ClinicalRecordInput{Motive: "checkup"})
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))

	stored, err := st.GetAppointment(byName.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, stored.Status)
	assert.Equal(t, " dr. ruiz ", stored.VeterinarianName)
	assert.Empty(t, st.ClinicalRecords())

	_, err = svc.Get(ctx, ruiz, byName.ID)
	require.NoError(t, err)
	updated, err := svc.MarkNoShow(ctx, ruiz, byName.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusNoShow, updated.Status)
	assert.Equal(t, "vet-1", updated.VeterinarianID)

	unassigned := confirmed(t, svc, nil)
	updated, err = svc.MarkNoShow(ctx, soto, unassigned.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dr. Soto", updated.VeterinarianName)
}

func TestReadsAreScoped(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	mine := request(t, svc, ana, func(r *model.CreateAppointmentRequest) {
		r.Date = "2026-03-10"
		r.Time = "16:00"
		r.VeterinarianID = "vet-1"
	})
	theirs := request(t, svc, luis, func(r *model.CreateAppointmentRequest) { r.PetName = "Kira"; r.Species = "cat" })

	got, err := svc.Get(ctx, ana, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, enrichment.RefRegistered, got.Pet.Kind)
	assert.Equal(t, enrichment.UrgencyHigh, got.Urgency)

	_, err = svc.Get(ctx, ana, theirs.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	assert.Len(t, svc.ListEnriched(ctx, admin, enrichment.Criteria{}, enrichment.SortDateAsc), 2)
	list := svc.ListEnriched(ctx, ruiz, enrichment.Criteria{}, enrichment.SortDateAsc)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].Appointment.ID)
	assert.Empty(t, svc.ListEnriched(ctx, ana, enrichment.Criteria{Text: "kira"}, enrichment.SortDateAsc))

	stats := svc.Stats(ctx, admin)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Today)
	assert.Equal(t, 2, stats.Pending)
	assert.Equal(t, 1, svc.Stats(ctx, luis).Total)
}
