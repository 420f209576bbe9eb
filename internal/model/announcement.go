package model

import "time"

// Announcement is admin-authored banner content shown on the dashboard.
// The most recently created active announcement is surfaced as "featured".
type Announcement struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}
