// Package model defines the data structures used throughout the application.
//
// The JSON field names on these structs are load-bearing: collections are
// persisted as JSON under fixed keys, and existing stored data uses exactly
// these names. Renaming a field breaks every previously saved collection.
package model

import "time"

// Plan is a subscription tier.
type Plan string

const (
	PlanFree       Plan = "Free"
	PlanPro        Plan = "Pro"
	PlanEnterprise Plan = "Enterprise"
)

// ValidPlan reports whether p is one of the known subscription tiers.
func ValidPlan(p Plan) bool {
	switch p {
	case PlanFree, PlanPro, PlanEnterprise:
		return true
	}
	return false
}

// User represents a registered account in the directory.
//
// ID is generated at creation and never changes. Email is unique across the
// directory (compared case-insensitively, stored lower-cased).
//
// Password holds the bcrypt hash of the user's password. The field keeps the
// name "password" for compatibility with existing stored collections, but it
// never contains plaintext and is stripped from API responses via Redacted.
type User struct {
	ID                   string    `json:"id"`
	Email                string    `json:"email"`
	Username             string    `json:"username"`
	Password             string    `json:"password,omitempty"`
	IsAdmin              bool      `json:"isAdmin"`
	NotificationsEnabled bool      `json:"notificationsEnabled"`
	JoinedAt             time.Time `json:"joinedAt"`
	SubscriptionPlan     Plan      `json:"subscriptionPlan"`
	SubscriptionActive   bool      `json:"subscriptionActive"`
	HasCompletedTour     bool      `json:"hasCompletedTour"`
	// PayPalSubscriptionID is set on records imported from deployments
	// with real billing. Simulated plan changes never write it, but it
	// must survive whole-collection rewrites.
	PayPalSubscriptionID string `json:"paypalSubscriptionId,omitempty"`
}

// Redacted returns a copy of the user with the password hash removed.
// Handlers must serialize this, never the raw record.
func (u *User) Redacted() *User {
	c := *u
	c.Password = ""
	return &c
}
