package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jwalitptl/vet-portal/internal/model"
	"github.com/jwalitptl/vet-portal/internal/repository"
	apperrors "github.com/jwalitptl/vet-portal/pkg/errors"
)

type prefField struct {
	name  string
	value interface{}
}

func prefFields(p *model.Preferences) []prefField {
	return []prefField{
		{"profile-bio", &p.ProfileBio},
		{"email-notifications", &p.EmailNotifications},
		{"sms-notifications", &p.SMSNotifications},
		{"reminder-notifications", &p.ReminderNotifications},
		{"two-factor", &p.TwoFactorEnabled},
		{"session-timeout-minutes", &p.SessionTimeoutMinutes},
		{"theme", &p.Theme},
		{"locale", &p.Locale},
		{"currency", &p.Currency},
	}
}

func (s *Store) prefKey(name string) string {
	return s.prefix + ":pref:" + name
}

// Preferences reads every scalar key. Missing or unreadable keys keep their default.
func (s *Store) Preferences(ctx context.Context) (model.Preferences, error) {
	prefs := model.DefaultPreferences()
	for _, f := range prefFields(&prefs) {
		raw, err := s.kv.Get(ctx, s.prefKey(f.name))
		if errors.Is(err, repository.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return model.Preferences{}, apperrors.Storage(err)
		}
		if err := json.Unmarshal(raw, f.value); err != nil {
			s.log.Warn(err, "ignoring unreadable preference", "key", f.name)
		}
	}
	return prefs, nil
}

// SavePreferences writes every scalar key. When a write fails, the keys already
// written are put back to what they held before.
func (s *Store) SavePreferences(ctx context.Context, prefs model.Preferences) error {
	if prefs.SessionTimeoutMinutes <= 0 {
		return apperrors.Validation("session_timeout_minutes", "session_timeout_minutes must be greater than 0")
	}
	return s.locked(func() error {
		fields := prefFields(&prefs)
		previous := make([][]byte, len(fields))
		for i, f := range fields {
			raw, err := s.kv.Get(ctx, s.prefKey(f.name))
			if err != nil && !errors.Is(err, repository.ErrKeyNotFound) {
				return apperrors.Storage(err)
			}
			previous[i] = raw
		}

		for i, f := range fields {
			data, err := json.Marshal(f.value)
			if err != nil {
				return apperrors.Internal(err)
			}
			if err := s.kv.Set(ctx, s.prefKey(f.name), data); err != nil {
				s.restorePreferences(ctx, fields[:i], previous[:i])
				return apperrors.Storage(err)
			}
		}
		return nil
	})
}

func (s *Store) restorePreferences(ctx context.Context, fields []prefField, previous [][]byte) {
	for i := len(fields) - 1; i >= 0; i-- {
		key := s.prefKey(fields[i].name)
		var err error
		if previous[i] == nil {
			err = s.kv.Delete(ctx, key)
		} else {
			err = s.kv.Set(ctx, key, previous[i])
		}
		if err != nil {
			s.log.Error(err, "failed to restore preference after aborted save", "key", fields[i].name)
		}
	}
}
