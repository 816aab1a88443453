package model

import "time"

type NewsletterSubscriber struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Active       bool      `json:"active"`
	SubscribedAt time.Time `json:"subscribed_at"`
}

// NewsletterMessage keeps a snapshot of the recipients it was sent to.
type NewsletterMessage struct {
	ID          string    `json:"id"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	Template    string    `json:"template,omitempty"`
	Color       string    `json:"color,omitempty"`
	Attachments []string  `json:"attachments,omitempty"`
	Recipients  []string  `json:"recipients"`
	SentAt      time.Time `json:"sent_at"`
}

type SubscribeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type SendNewsletterRequest struct {
	Subject     string   `json:"subject" validate:"notblank"`
	Body        string   `json:"body" validate:"notblank"`
	Template    string   `json:"template"`
	Color       string   `json:"color"`
	Attachments []string `json:"attachments"`
}
