package profile

import (
	"context"

	"github.com/brightly-app/brightly/backend/internal/model/tab"
)

const (
	DefaultBuddyName = "Brightly"
	DefaultGender    = "Other"
	DefaultLanguage  = "english"
	DefaultName      = "User"
	DefaultTone      = "simple"
)

// Profile holds the account attributes the chat core reads.
type Profile struct {
	OwnerID              string   `json:"uid"`
	Name                 string   `json:"name"`
	Age                  int      `json:"age"`
	Gender               string   `json:"gender"`
	Email                string   `json:"email"`
	Country              string   `json:"country"`
	State                string   `json:"state"`
	City                 string   `json:"city"`
	BuddyName            string   `json:"buddyName"`
	Language             string   `json:"language"`
	TonePreference       string   `json:"tonePreference,omitempty"`
	HiddenTabs           []string `json:"hiddenTabs"`
	NotificationsEnabled bool     `json:"notificationsEnabled"`
}

// Default is the profile created for an account signing in without one.
func Default(ownerID string) Profile {
	return Profile{
		OwnerID:              ownerID,
		Name:                 DefaultName,
		Age:                  0,
		Gender:               DefaultGender,
		BuddyName:            DefaultBuddyName,
		Language:             DefaultLanguage,
		TonePreference:       DefaultTone,
		HiddenTabs:           []string{},
		NotificationsEnabled: true,
	}
}

// WithDefaults fills the attributes prompt composition cannot do without.
func (p Profile) WithDefaults() Profile {
	if p.BuddyName == "" {
		p.BuddyName = DefaultBuddyName
	}
	if p.Gender == "" {
		p.Gender = DefaultGender
	}
	if p.Language == "" {
		p.Language = DefaultLanguage
	}
	if p.TonePreference == "" {
		p.TonePreference = DefaultTone
	}
	if p.Age < 0 {
		p.Age = 0
	}
	return p
}

// Registration returns the profile stored for a newly registered account:
// gender-restricted tabs start hidden for everyone they do not target.
func Registration(p Profile) Profile {
	p = p.WithDefaults()
	p.NotificationsEnabled = true
	p.HiddenTabs = []string{}
	for _, item := range tab.Seed() {
		if item.GenderRestricted != "" && item.GenderRestricted != p.Gender {
			p.HiddenTabs = append(p.HiddenTabs, string(item.ID))
		}
	}
	return p
}

// Update carries a partial profile change; nil fields are left untouched.
type Update struct {
	Name                 *string  `json:"name" validate:"omitempty,max=80"`
	Age                  *int     `json:"age" validate:"omitempty,min=0,max=130"`
	Gender               *string  `json:"gender" validate:"omitempty,max=40"`
	Email                *string  `json:"email" validate:"omitempty,email"`
	Country              *string  `json:"country"`
	State                *string  `json:"state"`
	City                 *string  `json:"city"`
	BuddyName            *string  `json:"buddyName" validate:"omitempty,max=40"`
	Language             *string  `json:"language" validate:"omitempty,oneof=english hindi"`
	TonePreference       *string  `json:"tonePreference" validate:"omitempty,oneof=simple detailed casual"`
	HiddenTabs           []string `json:"hiddenTabs"`
	NotificationsEnabled *bool    `json:"notificationsEnabled"`
}

// Apply merges the update into the profile.
func (p Profile) Apply(u Update) Profile {
	setString(&p.Name, u.Name)
	setString(&p.Gender, u.Gender)
	setString(&p.Email, u.Email)
	setString(&p.Country, u.Country)
	setString(&p.State, u.State)
	setString(&p.City, u.City)
	setString(&p.BuddyName, u.BuddyName)
	setString(&p.Language, u.Language)
	setString(&p.TonePreference, u.TonePreference)
	if u.Age != nil {
		p.Age = *u.Age
	}
	if u.HiddenTabs != nil {
		p.HiddenTabs = append([]string{}, u.HiddenTabs...)
	}
	if u.NotificationsEnabled != nil {
		p.NotificationsEnabled = *u.NotificationsEnabled
	}
	return p
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// Store persists profiles. Absence is reported through the boolean, never as an error.
type Store interface {
	Get(ctx context.Context, ownerID string) (Profile, bool, error)
	Put(ctx context.Context, p Profile) error
}
