package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jwalitptl/vet-portal/internal/model"
	"github.com/jwalitptl/vet-portal/internal/repository"
	apperrors "github.com/jwalitptl/vet-portal/pkg/errors"
)

// collection is the in-memory copy of one entity kind. items is replaced, never
// edited in place, so a failed write leaves the previous slice untouched.
type collection[T any] struct {
	kind  model.Kind
	label string
	id    func(*T) string
	items []T
}

func newCollection[T any](kind model.Kind, label string, id func(*T) string) *collection[T] {
	return &collection[T]{kind: kind, label: label, id: id}
}

func (c *collection[T]) index(id string) int {
	for i := range c.items {
		if c.id(&c.items[i]) == id {
			return i
		}
	}
	return -1
}

func (c *collection[T]) clone() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

func (c *collection[T]) get(id string) (T, error) {
	var zero T
	i := c.index(id)
	if i < 0 {
		return zero, apperrors.NotFound(c.label, nil)
	}
	return c.items[i], nil
}

func (c *collection[T]) filter(keep func(*T) bool) (next []T, removed []string) {
	next = make([]T, 0, len(c.items))
	for i := range c.items {
		if keep(&c.items[i]) {
			next = append(next, c.items[i])
			continue
		}
		removed = append(removed, c.id(&c.items[i]))
	}
	return next, removed
}

func addItem[T any](ctx context.Context, s *Store, c *collection[T], item T) error {
	id := c.id(&item)
	if id == "" {
		return apperrors.Validation("id", fmt.Sprintf("%s id is required", c.label))
	}

	err := s.locked(func() error {
		if c.index(id) >= 0 {
			return apperrors.Conflict(fmt.Sprintf("%s %s already exists", c.label, id), nil)
		}
		next := append(c.clone(), item)
		if err := s.persist(ctx, c.kind, next); err != nil {
			return err
		}
		c.items = next
		return nil
	})
	s.record(ctx, c.kind, OpAdd, id, err)
	return err
}

func updateItem[T any](ctx context.Context, s *Store, c *collection[T], id string, mutate func(*T) error) (T, error) {
	var updated T
	err := s.locked(func() error {
		i := c.index(id)
		if i < 0 {
			return apperrors.NotFound(c.label, nil)
		}
		item := c.items[i]
		if err := mutate(&item); err != nil {
			return err
		}
		if c.id(&item) != id {
			return apperrors.Validation("id", fmt.Sprintf("%s id cannot change", c.label))
		}
		next := c.clone()
		next[i] = item
		if err := s.persist(ctx, c.kind, next); err != nil {
			return err
		}
		c.items = next
		updated = item
		return nil
	})
	s.record(ctx, c.kind, OpUpdate, id, err)
	return updated, err
}

func deleteItem[T any](ctx context.Context, s *Store, c *collection[T], id string) error {
	err := s.locked(func() error {
		if c.index(id) < 0 {
			return apperrors.NotFound(c.label, nil)
		}
		next, _ := c.filter(func(item *T) bool { return c.id(item) != id })
		if err := s.persist(ctx, c.kind, next); err != nil {
			return err
		}
		c.items = next
		return nil
	})
	s.record(ctx, c.kind, OpDelete, id, err)
	return err
}

func listItems[T any](s *Store, c *collection[T]) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return c.clone()
}

func getItem[T any](s *Store, c *collection[T], id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return c.get(id)
}

// loadItems reads c's key. It returns the commit step separately so Reload can
// apply every kind at once after all reads succeeded.
func loadItems[T any](ctx context.Context, s *Store, c *collection[T]) (func(), error) {
	raw, err := s.kv.Get(ctx, s.key(c.kind))
	if errors.Is(err, repository.ErrKeyNotFound) {
		return func() { c.items = nil }, nil
	}
	if err != nil {
		return nil, err
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		s.log.Warn(err, "discarding unreadable collection", "kind", string(c.kind))
		return func() { c.items = nil }, nil
	}
	return func() { c.items = items }, nil
}
