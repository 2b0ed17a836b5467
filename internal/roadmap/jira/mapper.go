package jira

import (
	"strings"

	"github.com/campfirehq/roadsync/internal/card"
)

// statusMapper resolves a Jira workflow status to a logical column name.
// The mapping is deterministic: every native status resolves to a column
// present in the configured column set, falling back to the default
// (first) column rather than erroring.
type statusMapper struct {
	columns []card.Column
	// mapping is the explicit native-status table; a nil value marks the
	// status as tracked but unmirrored (the returned column is still the
	// default, and the sync engine consults the mapping to skip it).
	mapping map[string]*string
}

func newStatusMapper(columns []card.Column, mapping map[string]*string) *statusMapper {
	if len(columns) == 0 {
		columns = card.DefaultColumns()
	}
	return &statusMapper{columns: columns, mapping: mapping}
}

// MapStatusToColumn applies the ordered resolution rules, first match wins:
// a literal "backlog" token in the status name, the explicit configured
// mapping, the Jira status category, keyword heuristics, and finally the
// default column.
func (m *statusMapper) MapStatusToColumn(status *Status) string {
	def := card.DefaultColumn(m.columns).Name
	if status == nil {
		return def
	}
	name := strings.ToLower(status.Name)

	// 1. Literal backlog token.
	if strings.Contains(name, "backlog") {
		if col, ok := card.FindColumn(m.columns, card.ColumnBacklog); ok {
			return col.Name
		}
		return def
	}

	// 2. Explicit configured mapping. A nil target still yields the
	// default column for the card itself.
	if m.mapping != nil {
		if target, ok := m.mapping[status.Name]; ok {
			if target == nil {
				return def
			}
			if col, ok := card.FindColumn(m.columns, *target); ok {
				return col.Name
			}
			return def
		}
	}

	// 3. Status category.
	if status.StatusCategory != nil {
		switch strings.ToLower(status.StatusCategory.Key) {
		case "new", "todo":
			return m.columnOrDefault(card.ColumnBacklog)
		case "indeterminate", "inprogress":
			return m.columnOrDefault(card.ColumnInProgress)
		case "done":
			return m.columnOrDefault(card.ColumnDone)
		}
	}

	// 4. Keyword heuristics on the status name.
	switch {
	case containsAny(name, "progress", "review", "doing", "development"):
		return m.columnOrDefault(card.ColumnInProgress)
	case containsAny(name, "done", "closed", "resolved", "complete", "cancel"):
		return m.columnOrDefault(card.ColumnDone)
	}

	// 5. Default.
	return def
}

func (m *statusMapper) columnOrDefault(name string) string {
	if col, ok := card.FindColumn(m.columns, name); ok {
		return col.Name
	}
	return card.DefaultColumn(m.columns).Name
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// columnToStatus is the inverse mapping used when transitioning issues on
// create and update. Unrecognized columns fall back to the tracker's
// initial state.
func columnToStatus(column string) string {
	switch strings.ToLower(column) {
	case strings.ToLower(card.ColumnBacklog):
		return "To Do"
	case strings.ToLower(card.ColumnInProgress):
		return "In Progress"
	case strings.ToLower(card.ColumnDone):
		return "Done"
	default:
		return "To Do"
	}
}

// matchTransition finds the available transition whose destination status
// matches the target name, by name or status category, case-insensitive
// substring in both directions.
func matchTransition(transitions []Transition, targetStatus string) (Transition, bool) {
	want := strings.ToLower(targetStatus)
	for _, t := range transitions {
		if t.To == nil {
			continue
		}
		toName := strings.ToLower(t.To.Name)
		if strings.Contains(toName, want) || strings.Contains(want, toName) {
			return t, true
		}
		if t.To.StatusCategory != nil {
			catName := strings.ToLower(t.To.StatusCategory.Name)
			if catName != "" && (strings.Contains(catName, want) || strings.Contains(want, catName)) {
				return t, true
			}
		}
	}
	return Transition{}, false
}
