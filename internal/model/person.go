package model

import "time"

type Role string

const (
	RoleClient        Role = "client"
	RoleVeterinarian  Role = "veterinarian"
	RoleAdministrator Role = "administrator"
)

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleVeterinarian, RoleAdministrator:
		return true
	default:
		return false
	}
}

// AccountStatus is the badge shown next to an account in admin views.
type AccountStatus string

const (
	AccountStatusNew           AccountStatus = "new"
	AccountStatusPasswordReset AccountStatus = "password_reset"
	AccountStatusActive        AccountStatus = "active"
)

// AccountBadgeWindow is how long the new and password-reset badges stay visible.
const AccountBadgeWindow = 24 * time.Hour

// Person is a client, veterinarian or administrator. Role is fixed at creation.
type Person struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone,omitempty"`
	Address         string     `json:"address,omitempty"`
	Role            Role       `json:"role"`
	Specialty       string     `json:"specialty,omitempty"`
	PasswordHash    string     `json:"password_hash,omitempty"`
	RegisteredAt    time.Time  `json:"registered_at"`
	PasswordResetAt *time.Time `json:"password_reset_at,omitempty"`
}

// AccountStatus derives the display badge. It carries no security meaning.
func (p *Person) AccountStatus(now time.Time) AccountStatus {
	if !p.RegisteredAt.IsZero() && now.Sub(p.RegisteredAt) < AccountBadgeWindow {
		return AccountStatusNew
	}
	if p.PasswordResetAt != nil && now.Sub(*p.PasswordResetAt) < AccountBadgeWindow {
		return AccountStatusPasswordReset
	}
	return AccountStatusActive
}

type UpdateProfileRequest struct {
	Name    string `json:"name" validate:"notblank"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"notblank"`
	Address string `json:"address"`
}

// Identity is the current-user record handed over by the authentication provider.
type Identity struct {
	PersonID string `json:"person_id"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
}
