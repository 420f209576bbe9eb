package model

import "time"

// Source records how an idea was captured.
type Source string

const (
	SourceVoice Source = "Voice"
	SourceTyped Source = "Typed"
)

// ValidSource reports whether s is a known capture source.
func ValidSource(s Source) bool {
	return s == SourceVoice || s == SourceTyped
}

// Category classifies an idea.
type Category string

const (
	CategoryNote        Category = "Note"
	CategoryTask        Category = "Task"
	CategoryInspiration Category = "Inspiration"
	CategoryMeeting     Category = "Meeting"
	CategoryProject     Category = "Project"
	CategoryQuestion    Category = "Question"

	// CategoryAll is a query sentinel, never stored on an idea.
	CategoryAll Category = "All"
)

// Categories lists the storable categories in display order.
var Categories = []Category{
	CategoryNote,
	CategoryTask,
	CategoryInspiration,
	CategoryMeeting,
	CategoryProject,
	CategoryQuestion,
}

// ValidCategory reports whether c is a storable category (CategoryAll is not).
func ValidCategory(c Category) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Idea is a captured thought owned by a single user.
//
// Tags never contain duplicates. AISummary is present only when the
// enhancement call succeeded at capture time.
type Idea struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	Source    Source    `json:"source"`
	Category  Category  `json:"category"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
	Starred   bool      `json:"starred"`
	AISummary string    `json:"aiSummary,omitempty"`
}
