// Package roadmap provides a plugin framework for roadmap providers and the
// sync engine that mirrors provider cards into forum discussion threads.
//
// It defines the Provider interface that all tracker integrations implement,
// a registry for selecting one at configuration time, and the Engine that
// reconciles cards against per-community thread mappings.
package roadmap

import (
	"context"

	"github.com/campfirehq/roadsync/internal/card"
)

// Provider is the capability contract every tracker backend implements.
// The external tracker is always the source of truth for card content;
// the chat platform is a read-mostly mirror plus a card-creation front end.
type Provider interface {
	// Info returns a static self-description for diagnostics and UI.
	Info() ProviderInfo

	// ValidateConfig checks that required credentials and identifiers are
	// present and well-formed. It never fails hard; missing or malformed
	// fields are logged individually and false is returned.
	ValidateConfig() bool

	// Init performs a cheap authenticated call to confirm connectivity and
	// credentials before first use. Failure is fatal to this instance.
	// Rejected credentials surface as *AuthError, distinguished from
	// generic connectivity failures.
	Init(ctx context.Context) error

	// FetchCards enumerates every discoverable card. Providers handle
	// pagination internally; pages are fetched sequentially.
	FetchCards(ctx context.Context) ([]card.Card, error)

	// FetchCardsByDateRange filters cards by a date field (default "last
	// updated"). It delegates to FetchCards when neither bound is given
	// and returns an empty result, not an error, for an inverted range.
	FetchCardsByDateRange(ctx context.Context, filter card.DateRangeFilter) ([]card.Card, error)

	// GetColumns returns the logical column set for this instance.
	GetColumns(ctx context.Context) ([]card.Column, error)

	// GetIssueTypes and GetLabels enumerate provider metadata. Both are
	// independently cacheable and degrade to built-in defaults on
	// upstream failure.
	GetIssueTypes(ctx context.Context) ([]string, error)
	GetLabels(ctx context.Context) ([]string, error)

	// GetCard returns nil, nil when the card does not exist; auth and
	// network failures propagate as errors.
	GetCard(ctx context.Context, id string) (*card.Card, error)

	// CreateCard and UpdateCard never return an error; all failures are
	// captured in the result so the command layer can render a message.
	CreateCard(ctx context.Context, input card.CreateInput) card.CreateCardResult
	UpdateCard(ctx context.Context, id string, input card.UpdateInput) card.UpdateCardResult

	// StatusMapping exposes the configured native-status to column mapping,
	// or nil when none is configured. A nil map value marks a status as
	// tracked but unmirrored, which the sync engine skips.
	StatusMapping() map[string]*string
}

// ProviderInfo describes a provider for diagnostics.
type ProviderInfo struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Capabilities []string          `json:"capabilities,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// HasCapability reports whether the provider declares the named capability.
func (pi ProviderInfo) HasCapability(name string) bool {
	for _, c := range pi.Capabilities {
		if c == name {
			return true
		}
	}
	return false
}
