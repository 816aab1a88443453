package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/vet-portal/pkg/logger"
)

// Message is one outgoing e-mail. Recipients are sent as Bcc so subscribers do
// not see each other.
type Message struct {
	Subject     string
	HTMLBody    string
	TextBody    string
	Recipients  []string
	Attachments []string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer sends through an SMTP relay.
func NewSMTPMailer(cfg SMTPConfig) Mailer {
	return &smtpMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (m *smtpMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(msg.Recipients) == 0 {
		return nil
	}
	gm := build(m.from, msg)
	if err := m.dialer.DialAndSend(gm); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func build(from string, msg Message) *gomail.Message {
	gm := gomail.NewMessage()
	gm.SetHeader("From", from)
	gm.SetHeader("To", from)
	gm.SetHeader("Bcc", msg.Recipients...)
	gm.SetHeader("Subject", msg.Subject)
	if msg.TextBody != "" {
		gm.SetBody("text/plain", msg.TextBody)
		if msg.HTMLBody != "" {
			gm.AddAlternative("text/html", msg.HTMLBody)
		}
	} else {
		gm.SetBody("text/html", msg.HTMLBody)
	}
	for _, path := range msg.Attachments {
		gm.Attach(path)
	}
	return gm
}

type logMailer struct {
	log *logger.Logger
}

// NewLogMailer only logs what would be sent. Used when no SMTP host is configured.
func NewLogMailer(log *logger.Logger) Mailer {
	if log == nil {
		log = logger.Nop()
	}
	return &logMailer{log: log.With("component", "mailer")}
}

func (m *logMailer) Send(_ context.Context, msg Message) error {
	m.log.Info("email not sent, smtp disabled", "subject", msg.Subject, "recipients", len(msg.Recipients))
	return nil
}
