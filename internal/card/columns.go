package card

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Column is a logical, tracker-agnostic bucket a card belongs to.
type Column struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	// Order positions the column on the roadmap, lowest first.
	Order int `json:"order" yaml:"order"`
	// Archived marks a terminal column whose mirrored thread should be
	// archived.
	Archived bool `json:"archived,omitempty" yaml:"archived,omitempty"`
	// CreateForum is false for columns that are tracked but intentionally
	// have no mirrored forum.
	CreateForum bool `json:"createForum" yaml:"create_forum"`
}

// ColumnConfig customizes the column set and the native-status mapping for
// one provider instance. When absent, DefaultColumns and heuristic status
// matching are used.
type ColumnConfig struct {
	Columns []Column `yaml:"columns"`

	// StatusMapping maps a provider's native status name to a column name.
	// A nil value means "track the issue but do not mirror it to a forum".
	StatusMapping map[string]*string `yaml:"status_mapping,omitempty"`
}

// Default column names.
const (
	ColumnBacklog    = "Backlog"
	ColumnInProgress = "In Progress"
	ColumnDone       = "Done"
)

// DefaultColumns returns the built-in three-column roadmap layout.
func DefaultColumns() []Column {
	return []Column{
		{ID: "backlog", Name: ColumnBacklog, Order: 0, CreateForum: true},
		{ID: "in-progress", Name: ColumnInProgress, Order: 1, CreateForum: true},
		{ID: "done", Name: ColumnDone, Order: 2, Archived: true, CreateForum: true},
	}
}

// DefaultColumn returns the deterministic fallback column for statuses
// with no configured mapping: the first column by order.
func DefaultColumn(columns []Column) Column {
	if len(columns) == 0 {
		cols := DefaultColumns()
		return cols[0]
	}
	def := columns[0]
	for _, c := range columns[1:] {
		if c.Order < def.Order {
			def = c
		}
	}
	return def
}

// FindColumn returns the column with the given name, matched
// case-insensitively.
func FindColumn(columns []Column, name string) (Column, bool) {
	for _, c := range columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// Validate checks that column names are unique and that every non-nil
// status mapping target names a configured column.
func (cc *ColumnConfig) Validate() error {
	if len(cc.Columns) == 0 {
		return fmt.Errorf("column config: at least one column is required")
	}

	seen := make(map[string]bool, len(cc.Columns))
	for _, c := range cc.Columns {
		key := strings.ToLower(c.Name)
		if c.Name == "" {
			return fmt.Errorf("column config: column %q has no name", c.ID)
		}
		if seen[key] {
			return fmt.Errorf("column config: duplicate column name %q", c.Name)
		}
		seen[key] = true
	}

	for status, target := range cc.StatusMapping {
		if target == nil {
			continue // tracked but unmirrored
		}
		if !seen[strings.ToLower(*target)] {
			return fmt.Errorf("column config: status %q maps to unknown column %q", status, *target)
		}
	}
	return nil
}

// ParseColumnConfig decodes a YAML column config document and validates it.
func ParseColumnConfig(data []byte) (*ColumnConfig, error) {
	var cc ColumnConfig
	if err := yaml.Unmarshal(data, &cc); err != nil {
		return nil, fmt.Errorf("parsing column config: %w", err)
	}
	if err := cc.Validate(); err != nil {
		return nil, err
	}
	return &cc, nil
}
