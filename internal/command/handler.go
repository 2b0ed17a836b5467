// Package command implements the operations behind the user-facing card
// commands: create, edit, resync, and autocomplete lookups. It validates
// input against live provider metadata, drives the provider write, and
// then mirrors the result through the sync engine. A successful card write
// with a failed mirror is still reported as success, with a note that a
// manual resync is required.
package command

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/campfirehq/roadsync/internal/card"
	"github.com/campfirehq/roadsync/internal/roadmap"
)

// DefaultConcurrency bounds the autocomplete fan-out.
const DefaultConcurrency = 4

// Handler executes card commands for one community.
type Handler struct {
	Provider    roadmap.Provider
	Engine      *roadmap.Engine
	Store       roadmap.MappingStore
	Metadata    *MetadataCache
	CommunityID string

	// Concurrency bounds parallel provider reads in CardTitles.
	Concurrency int
}

// NewHandler wires a command handler. The metadata cache may be shared
// with other handlers for the same provider.
func NewHandler(p roadmap.Provider, e *roadmap.Engine, store roadmap.MappingStore, meta *MetadataCache, communityID string) *Handler {
	return &Handler{
		Provider:    p,
		Engine:      e,
		Store:       store,
		Metadata:    meta,
		CommunityID: communityID,
		Concurrency: DefaultConcurrency,
	}
}

// CardResponse is the outcome of a create or edit command.
type CardResponse struct {
	Card    card.Card
	Success bool
	Message string

	// UnknownLabels lists requested labels absent from the provider's
	// vocabulary. They are applied anyway; this is a warning, not an error.
	UnknownLabels []string
}

// Authorize reports whether a member holding the given roles may run card
// commands. No configured roles means no restriction.
func (h *Handler) Authorize(ctx context.Context, memberRoles []string) (bool, error) {
	allowed, err := h.Store.AuthorizedRoles(ctx, h.CommunityID)
	if err != nil {
		return false, fmt.Errorf("loading authorized roles: %w", err)
	}
	if len(allowed) == 0 {
		return true, nil
	}
	for _, role := range memberRoles {
		for _, a := range allowed {
			if role == a {
				return true, nil
			}
		}
	}
	return false, nil
}

// CreateCard validates the input, creates the card, and mirrors it.
func (h *Handler) CreateCard(ctx context.Context, in card.CreateInput) (*CardResponse, error) {
	resp := &CardResponse{}

	if strings.TrimSpace(in.Title) == "" {
		resp.Message = "title is required"
		return resp, nil
	}
	if in.Column != "" {
		if msg, err := h.validateColumn(ctx, in.Column); err != nil {
			return nil, err
		} else if msg != "" {
			resp.Message = msg
			return resp, nil
		}
	}
	unknown, err := h.unknownLabels(ctx, in.Labels)
	if err != nil {
		return nil, err
	}
	resp.UnknownLabels = unknown

	result := h.Provider.CreateCard(ctx, in)
	resp.Card = result.Card
	if !result.Success {
		resp.Message = result.Message
		return resp, nil
	}
	resp.Success = true
	resp.Message = result.Message

	if _, err := h.Engine.SyncCard(ctx, result.Card); err != nil {
		resp.Message = joinNotes(resp.Message,
			fmt.Sprintf("card %s created but the forum mirror failed (%v); run resync", result.Card.ID, err))
	}
	return resp, nil
}

// EditCard validates the partial input, applies it, and re-mirrors the card.
func (h *Handler) EditCard(ctx context.Context, cardID string, in card.UpdateInput) (*CardResponse, error) {
	resp := &CardResponse{}

	if in.IsEmpty() {
		resp.Message = "at least one field must be provided"
		return resp, nil
	}
	if in.Column != nil {
		if msg, err := h.validateColumn(ctx, *in.Column); err != nil {
			return nil, err
		} else if msg != "" {
			resp.Message = msg
			return resp, nil
		}
	}
	if in.Labels != nil {
		unknown, err := h.unknownLabels(ctx, *in.Labels)
		if err != nil {
			return nil, err
		}
		resp.UnknownLabels = unknown
	}

	result := h.Provider.UpdateCard(ctx, cardID, in)
	resp.Card = result.Card
	if !result.Success {
		resp.Message = result.Message
		return resp, nil
	}
	resp.Success = true
	resp.Message = result.Message

	if _, err := h.Engine.SyncCard(ctx, result.Card); err != nil {
		resp.Message = joinNotes(resp.Message,
			fmt.Sprintf("card %s updated but the forum mirror failed (%v); run resync", cardID, err))
	}
	return resp, nil
}

// Resync re-mirrors one card from its current provider state.
func (h *Handler) Resync(ctx context.Context, cardID string) (*CardResponse, error) {
	resp := &CardResponse{}

	c, err := h.Provider.GetCard(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("fetching card %s: %w", cardID, err)
	}
	if c == nil {
		resp.Message = fmt.Sprintf("card %s not found", cardID)
		return resp, nil
	}

	resp.Card = *c
	if _, err := h.Engine.SyncCard(ctx, *c); err != nil {
		resp.Message = fmt.Sprintf("resync of %s failed: %v", cardID, err)
		return resp, nil
	}
	resp.Success = true
	return resp, nil
}

// CardTitles fetches titles for a set of card IDs in parallel, for
// autocomplete. Cards that fail to load are dropped; the result is sorted
// by card ID and may be partial.
func (h *Handler) CardTitles(ctx context.Context, cardIDs []string) map[string]string {
	workers := h.Concurrency
	if workers < 1 {
		workers = DefaultConcurrency
	}

	var mu sync.Mutex
	titles := make(map[string]string, len(cardIDs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, id := range cardIDs {
		g.Go(func() error {
			c, err := h.Provider.GetCard(ctx, id)
			if err != nil || c == nil {
				return nil
			}
			mu.Lock()
			titles[id] = c.Title
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return titles
}

// SyncedCardChoices returns the sorted IDs of every card already mirrored
// in this community, for resync autocomplete.
func (h *Handler) SyncedCardChoices(ctx context.Context) ([]string, error) {
	lister, ok := h.Store.(interface {
		SyncedCardIDs(ctx context.Context, communityID string) ([]string, error)
	})
	if !ok {
		return nil, nil
	}
	ids, err := lister.SyncedCardIDs(ctx, h.CommunityID)
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// validateColumn returns a user-facing message when the column does not
// exist, or "" when it is valid.
func (h *Handler) validateColumn(ctx context.Context, column string) (string, error) {
	columns, err := h.Metadata.Columns(ctx)
	if err != nil {
		return "", fmt.Errorf("loading columns: %w", err)
	}
	if _, ok := card.FindColumn(columns, column); ok {
		return "", nil
	}
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return fmt.Sprintf("unknown column %q; valid columns are: %s", column, strings.Join(names, ", ")), nil
}

// unknownLabels returns the requested labels missing from the provider's
// vocabulary, case-insensitive.
func (h *Handler) unknownLabels(ctx context.Context, labels []string) ([]string, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	known, err := h.Metadata.Labels(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading labels: %w", err)
	}
	index := make(map[string]bool, len(known))
	for _, l := range known {
		index[strings.ToLower(l)] = true
	}
	var unknown []string
	for _, l := range labels {
		if !index[strings.ToLower(l)] {
			unknown = append(unknown, l)
		}
	}
	return unknown, nil
}

func joinNotes(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}
