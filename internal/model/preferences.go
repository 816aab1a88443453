package model

// Preferences are the scalar settings stored next to the collections.
type Preferences struct {
	ProfileBio            string `json:"profile_bio"`
	EmailNotifications    bool   `json:"email_notifications"`
	SMSNotifications      bool   `json:"sms_notifications"`
	ReminderNotifications bool   `json:"reminder_notifications"`
	TwoFactorEnabled      bool   `json:"two_factor_enabled"`
	SessionTimeoutMinutes int    `json:"session_timeout_minutes"`
	Theme                 string `json:"theme"`
	Locale                string `json:"locale"`
	Currency              string `json:"currency"`
}

// DefaultPreferences is used for keys that were never saved.
func DefaultPreferences() Preferences {
	return Preferences{
		EmailNotifications:    true,
		ReminderNotifications: true,
		SessionTimeoutMinutes: 30,
		Theme:                 "light",
		Locale:                "es",
		Currency:              "USD",
	}
}
