package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jwalitptl/vet-portal/internal/model"
	"github.com/jwalitptl/vet-portal/internal/repository"
	apperrors "github.com/jwalitptl/vet-portal/pkg/errors"
	"github.com/jwalitptl/vet-portal/pkg/logger"
	"github.com/jwalitptl/vet-portal/pkg/messaging"
	"github.com/jwalitptl/vet-portal/pkg/metrics"
)

// DefaultPrefix namespaces every durable key.
const DefaultPrefix = "vetclinic"

// Op names a mutation in change events and metrics.
type Op string

const (
	OpAdd    Op = "add"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change is published after every successful mutation.
type Change struct {
	Kind model.Kind `json:"kind"`
	Op   Op         `json:"op"`
	ID   string     `json:"id"`
	At   time.Time  `json:"at"`
}

type Options struct {
	Prefix    string
	Logger    *logger.Logger
	Metrics   *metrics.Metrics
	Publisher messaging.Publisher
	Now       func() time.Time
}

// Store holds the authoritative collections and mirrors each one to the KV layer
// on every mutation. It is built once per process and handed to the services.
type Store struct {
	kv        repository.KV
	prefix    string
	log       *logger.Logger
	metrics   *metrics.Metrics
	publisher messaging.Publisher
	now       func() time.Time

	mu              sync.RWMutex
	appointments    *collection[model.Appointment]
	pets            *collection[model.Pet]
	people          *collection[model.Person]
	records         *collection[model.ClinicalRecord]
	preAppointments *collection[model.PreAppointment]
	subscribers     *collection[model.NewsletterSubscriber]
	messages        *collection[model.NewsletterMessage]
}

// New builds an empty store. Call Reload to hydrate it from kv.
func New(kv repository.KV, opts Options) *Store {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}

	return &Store{
		kv:        kv,
		prefix:    opts.Prefix,
		log:       opts.Logger.With("component", "store"),
		metrics:   opts.Metrics,
		publisher: opts.Publisher,
		now:       opts.Now,

		appointments: newCollection(model.KindAppointment, "appointment",
			func(a *model.Appointment) string { return a.ID }),
		pets: newCollection(model.KindPet, "pet",
			func(p *model.Pet) string { return p.ID }),
		people: newCollection(model.KindPerson, "person",
			func(p *model.Person) string { return p.ID }),
		records: newCollection(model.KindClinicalRecord, "clinical record",
			func(r *model.ClinicalRecord) string { return r.ID }),
		preAppointments: newCollection(model.KindPreAppointment, "pre-appointment",
			func(p *model.PreAppointment) string { return p.ID }),
		subscribers: newCollection(model.KindNewsletterSubscriber, "newsletter subscriber",
			func(n *model.NewsletterSubscriber) string { return n.ID }),
		messages: newCollection(model.KindNewsletterMessage, "newsletter message",
			func(n *model.NewsletterMessage) string { return n.ID }),
	}
}

// Key returns the durable key for kind.
func (s *Store) key(kind model.Kind) string {
	return s.prefix + ":" + string(kind)
}

func (s *Store) locked(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func (s *Store) persist(ctx context.Context, kind model.Kind, items interface{}) error {
	start := time.Now()
	data, err := json.Marshal(items)
	if err != nil {
		return apperrors.Internal(fmt.Errorf("encode %s: %w", kind, err))
	}
	if err := s.kv.Set(ctx, s.key(kind), data); err != nil {
		return apperrors.Storage(fmt.Errorf("write %s: %w", kind, err))
	}
	if s.metrics != nil {
		s.metrics.StoreLatency.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	}
	return nil
}

// record updates metrics and, on success, publishes the change.
func (s *Store) record(ctx context.Context, kind model.Kind, op Op, id string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		if apperrors.Is(err, apperrors.ErrStorage) {
			s.log.Error(err, "write-through failed, change discarded", "kind", string(kind), "op", string(op), "id", id)
		}
	}
	if s.metrics != nil {
		s.metrics.StoreOperations.WithLabelValues(string(kind), string(op), status).Inc()
	}
	if err != nil {
		return
	}
	s.notify(ctx, Change{Kind: kind, Op: op, ID: id, At: s.now()})
}

func (s *Store) notify(ctx context.Context, change Change) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, messaging.ChangesChannel, change); err != nil {
		s.log.Warn(err, "failed to publish change", "kind", string(change.Kind), "id", change.ID)
	}
}

// Reload replaces every collection with what the KV layer holds. A missing or
// unreadable key yields an empty collection. If the backend itself fails, nothing
// is replaced and the error is returned.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	err := s.reloadLocked(ctx)
	s.mu.Unlock()

	status := "ok"
	if err != nil {
		status = "error"
		s.log.Error(err, "reload from storage failed")
	}
	if s.metrics != nil {
		s.metrics.StoreReloads.WithLabelValues(status).Inc()
	}
	return err
}

func (s *Store) reloadLocked(ctx context.Context) error {
	loaders := []func(context.Context) (func(), error){
		func(ctx context.Context) (func(), error) { return loadItems(ctx, s, s.people) },
		func(ctx context.Context) (func(), error) { return loadItems(ctx, s, s.pets) },
		func(ctx context.Context) (func(), error) { return loadItems(ctx, s, s.appointments) },
		func(ctx context.Context) (func(), error) { return loadItems(ctx, s, s.records) },
		func(ctx context.Context) (func(), error) { return loadItems(ctx, s, s.preAppointments) },
		func(ctx context.Context) (func(), error) { return loadItems(ctx, s, s.subscribers) },
		func(ctx context.Context) (func(), error) { return loadItems(ctx, s, s.messages) },
	}

	commits := make([]func(), 0, len(loaders))
	for _, load := range loaders {
		commit, err := load(ctx)
		if err != nil {
			return apperrors.Storage(err)
		}
		commits = append(commits, commit)
	}
	for _, commit := range commits {
		commit()
	}
	return nil
}

// Snapshot is a consistent view of the collections the enrichment engine joins.
type Snapshot struct {
	Appointments []model.Appointment
	Pets         []model.Pet
	People       []model.Person
	Records      []model.ClinicalRecord
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Appointments: s.appointments.clone(),
		Pets:         s.pets.clone(),
		People:       s.people.clone(),
		Records:      s.records.clone(),
	}
}

// Ping checks the durable layer.
func (s *Store) Ping(ctx context.Context) error {
	return s.kv.Ping(ctx)
}
