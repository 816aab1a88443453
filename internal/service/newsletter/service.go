package newsletter

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/jwalitptl/vet-portal/internal/email"
	"github.com/jwalitptl/vet-portal/internal/model"
	"github.com/jwalitptl/vet-portal/internal/store"
	apperrors "github.com/jwalitptl/vet-portal/pkg/errors"
	"github.com/jwalitptl/vet-portal/pkg/logger"
	"github.com/jwalitptl/vet-portal/pkg/metrics"
	"github.com/jwalitptl/vet-portal/pkg/validator"
)

const defaultColor = "#2a7ab0"

var layout = template.Must(template.New("newsletter").Parse(`<html><body style="font-family:sans-serif">
<h1 style="color:{{.Color}}">{{.Subject}}</h1>
{{range .Paragraphs}}<p>{{.}}</p>
{{end}}</body></html>`))

type Service struct {
	store     *store.Store
	validator validator.Validator
	mailer    email.Mailer
	log       *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewService(st *store.Store, v validator.Validator, mailer email.Mailer, log *logger.Logger, m *metrics.Metrics, now func() time.Time) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{store: st, validator: v, mailer: mailer, log: log.With("service", "newsletter"), metrics: m, now: now}
}

func (s *Service) find(addr string) (model.NewsletterSubscriber, bool) {
	addr = strings.ToLower(strings.TrimSpace(addr))
	for _, sub := range s.store.NewsletterSubscribers() {
		if strings.ToLower(sub.Email) == addr {
			return sub, true
		}
	}
	return model.NewsletterSubscriber{}, false
}

// Subscribe adds an address, or reactivates it if it unsubscribed before.
func (s *Service) Subscribe(ctx context.Context, req model.SubscribeRequest) (model.NewsletterSubscriber, error) {
	if err := s.validator.Validate(req); err != nil {
		return model.NewsletterSubscriber{}, err
	}
	now := s.now().UTC()

	if existing, ok := s.find(req.Email); ok {
		if existing.Active {
			return existing, nil
		}
		return s.store.UpdateNewsletterSubscriber(ctx, existing.ID, func(sub *model.NewsletterSubscriber) error {
			sub.Active = true
			sub.SubscribedAt = now
			return nil
		})
	}

	sub := model.NewsletterSubscriber{
		ID:           model.NewID(),
		Email:        strings.TrimSpace(req.Email),
		Active:       true,
		SubscribedAt: now,
	}
	if err := s.store.AddNewsletterSubscriber(ctx, sub); err != nil {
		return model.NewsletterSubscriber{}, err
	}
	return sub, nil
}

func (s *Service) Unsubscribe(ctx context.Context, addr string) error {
	existing, ok := s.find(addr)
	if !ok {
		return apperrors.NotFound("newsletter subscriber", nil)
	}
	if !existing.Active {
		return nil
	}
	_, err := s.store.UpdateNewsletterSubscriber(ctx, existing.ID, func(sub *model.NewsletterSubscriber) error {
		sub.Active = false
		return nil
	})
	return err
}

func (s *Service) Subscribers(_ context.Context, actor model.Identity) ([]model.NewsletterSubscriber, error) {
	if actor.Role != model.RoleAdministrator {
		return nil, apperrors.Forbidden("only administrators manage the newsletter")
	}
	return s.store.NewsletterSubscribers(), nil
}

func (s *Service) Messages(_ context.Context, actor model.Identity) ([]model.NewsletterMessage, error) {
	if actor.Role != model.RoleAdministrator {
		return nil, apperrors.Forbidden("only administrators manage the newsletter")
	}
	return s.store.NewsletterMessages(), nil
}

// Send mails the active subscribers and stores the message with that recipient list.
func (s *Service) Send(ctx context.Context, actor model.Identity, req model.SendNewsletterRequest) (model.NewsletterMessage, error) {
	if actor.Role != model.RoleAdministrator {
		return model.NewsletterMessage{}, apperrors.Forbidden("only administrators send newsletters")
	}
	if err := s.validator.Validate(req); err != nil {
		return model.NewsletterMessage{}, err
	}

	var recipients []string
	for _, sub := range s.store.NewsletterSubscribers() {
		if sub.Active {
			recipients = append(recipients, sub.Email)
		}
	}
	if len(recipients) == 0 {
		return model.NewsletterMessage{}, apperrors.Validation("recipients", "there are no active subscribers")
	}

	html, err := render(req)
	if err != nil {
		return model.NewsletterMessage{}, apperrors.Internal(err)
	}
	if err := s.mailer.Send(ctx, email.Message{
		Subject:     req.Subject,
		HTMLBody:    html,
		TextBody:    req.Body,
		Recipients:  recipients,
		Attachments: req.Attachments,
	}); err != nil {
		s.count("error")
		s.log.Error(err, "newsletter dispatch failed", "recipients", len(recipients))
		return model.NewsletterMessage{}, apperrors.Internal(fmt.Errorf("send newsletter: %w", err))
	}
	s.count("ok")

	msg := model.NewsletterMessage{
		ID:          model.NewID(),
		Subject:     req.Subject,
		Body:        req.Body,
		Template:    req.Template,
		Color:       req.Color,
		Attachments: req.Attachments,
		Recipients:  recipients,
		SentAt:      s.now().UTC(),
	}
	if err := s.store.AddNewsletterMessage(ctx, msg); err != nil {
		return model.NewsletterMessage{}, err
	}
	s.log.Info("newsletter sent", "id", msg.ID, "recipients", len(recipients))
	return msg, nil
}

func (s *Service) count(status string) {
	if s.metrics != nil {
		s.metrics.NewsletterSends.WithLabelValues(status).Inc()
	}
}

func render(req model.SendNewsletterRequest) (string, error) {
	color := strings.TrimSpace(req.Color)
	if color == "" {
		color = defaultColor
	}
	var paragraphs []string
	for _, p := range strings.Split(req.Body, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	var buf bytes.Buffer
	err := layout.Execute(&buf, struct {
		Subject    string
		Color      string
		Paragraphs []string
	}{req.Subject, color, paragraphs})
	return buf.String(), err
}
