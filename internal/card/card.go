// Package card defines the normalized roadmap card model shared by all
// providers and consumers. A Card is the intermediate form every tracker
// adapter converts its native issue type to and from.
package card

import (
	"time"
)

// Assignee identifies a person assigned to a card. Name is the provider's
// display name and is treated as an opaque identity key, never rendered
// directly to end users.
type Assignee struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Card is the normalized unit of roadmap content.
type Card struct {
	// ID is the provider-native identifier, stable and unique within a
	// provider instance.
	ID string `json:"id"`

	Title       string `json:"title"`
	Description string `json:"description"`

	// Labels uses the provider-native tag vocabulary, in provider order.
	Labels []string `json:"labels,omitempty"`

	// Column is the logical column name, never the provider's raw status.
	// It always names a column present in the provider's column set.
	Column string `json:"column"`

	Assignees []Assignee `json:"assignees,omitempty"`

	// URL deep-links back to the provider.
	URL       string    `json:"url,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Metadata holds provider-specific extras, e.g. the raw status name
	// under the "status" key.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// MetadataStatusKey is the Metadata key under which adapters record the
// provider's raw status name.
const MetadataStatusKey = "status"

// NativeStatus returns the provider's raw status name recorded by the
// adapter, or "" if absent.
func (c *Card) NativeStatus() string {
	if c.Metadata == nil {
		return ""
	}
	s, _ := c.Metadata[MetadataStatusKey].(string)
	return s
}

// CreateInput carries the fields accepted from the command layer when
// creating a card. Title is required; everything else is optional.
type CreateInput struct {
	Title       string
	Description string
	Column      string
	IssueType   string
	Labels      []string
	Assignees   []Assignee
}

// UpdateInput is strictly partial: only non-nil fields are changed.
// At least one field must be present.
type UpdateInput struct {
	Title       *string
	Description *string
	Column      *string
	IssueType   *string
	Labels      *[]string
	Assignees   *[]Assignee
}

// IsEmpty reports whether no field is set.
func (u UpdateInput) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Column == nil &&
		u.IssueType == nil && u.Labels == nil && u.Assignees == nil
}

// CreateCardResult is the outcome of a create operation. On failure Card
// still carries a best-effort partial reconstruction for diagnostics.
type CreateCardResult struct {
	Card    Card   `json:"card"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// UpdateCardResult is the outcome of an update operation, with the same
// failure semantics as CreateCardResult.
type UpdateCardResult struct {
	Card    Card   `json:"card"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// DateRangeFilter selects cards by a date field. A zero Start or End
// leaves that bound open; when both are zero the filter matches all cards.
type DateRangeFilter struct {
	// Field is the provider date field to filter on. Empty means
	// "last updated".
	Field string
	Start time.Time
	End   time.Time
}

// IsZero reports whether neither bound is set.
func (f DateRangeFilter) IsZero() bool {
	return f.Start.IsZero() && f.End.IsZero()
}

// Inverted reports whether the bounds can never match (start after end).
func (f DateRangeFilter) Inverted() bool {
	return !f.Start.IsZero() && !f.End.IsZero() && f.Start.After(f.End)
}
