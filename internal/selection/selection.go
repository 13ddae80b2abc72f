// Package selection holds the popup's four selectable fields and the rule that
// fills a field automatically when there is only one choice.
package selection

import (
	"context"
	"fmt"

	"github.com/roeyazroel/linear-task/internal/storage"
)

// Option is one selectable entry of a remote collection.
type Option struct {
	ID   string
	Name string
}

// Field identifies one of the four selection fields.
type Field int

const (
	FieldProject Field = iota
	FieldAssignee
	FieldTeam
	FieldState
)

// Fields lists every field in form order.
var Fields = []Field{FieldProject, FieldAssignee, FieldTeam, FieldState}

// Label returns the form label for the field.
func (f Field) Label() string {
	switch f {
	case FieldProject:
		return "Project"
	case FieldAssignee:
		return "Assignee"
	case FieldTeam:
		return "Team"
	case FieldState:
		return "Status"
	default:
		return "Unknown"
	}
}

// StoreKey returns the key the field's last-used value is persisted under.
func (f Field) StoreKey() string {
	switch f {
	case FieldProject:
		return storage.KeyLastProjectID
	case FieldAssignee:
		return storage.KeyLastAssigneeID
	case FieldTeam:
		return storage.KeyLastTeamID
	case FieldState:
		return storage.KeyLastStateID
	default:
		return ""
	}
}

// AutoSelect returns the ID to use for a field given the loaded options and
// the field's current value. Only a single option with an empty current value
// changes anything.
func AutoSelect(options []Option, current string) (string, bool) {
	if len(options) == 1 && current == "" {
		return options[0].ID, true
	}
	return current, false
}

// State is the current selection. Empty fields mean "not selected".
type State struct {
	ProjectID  string
	TeamID     string
	AssigneeID string
	StateID    string
}

// Get returns the value of field.
func (s *State) Get(field Field) string {
	switch field {
	case FieldProject:
		return s.ProjectID
	case FieldAssignee:
		return s.AssigneeID
	case FieldTeam:
		return s.TeamID
	case FieldState:
		return s.StateID
	default:
		return ""
	}
}

// Set assigns the value of field.
func (s *State) Set(field Field, id string) {
	switch field {
	case FieldProject:
		s.ProjectID = id
	case FieldAssignee:
		s.AssigneeID = id
	case FieldTeam:
		s.TeamID = id
	case FieldState:
		s.StateID = id
	}
}

// Apply runs AutoSelect for field and stores the result. It reports whether
// the field changed.
func (s *State) Apply(field Field, options []Option) bool {
	id, changed := AutoSelect(options, s.Get(field))
	if changed {
		s.Set(field, id)
	}
	return changed
}

// Restore loads the last-used selection. Keys that were never saved leave
// their field empty.
func Restore(ctx context.Context, store storage.Store) (State, error) {
	var state State
	for _, field := range Fields {
		value, found, err := storage.LoadString(ctx, store, field.StoreKey())
		if err != nil {
			return State{}, fmt.Errorf("restore %s: %w", field.Label(), err)
		}
		if found {
			state.Set(field, value)
		}
	}
	return state, nil
}

// Persist saves all four fields as the last-used selection.
func (s State) Persist(ctx context.Context, store storage.Store) error {
	for _, field := range Fields {
		if err := store.Save(ctx, field.StoreKey(), s.Get(field)); err != nil {
			return fmt.Errorf("persist %s: %w", field.Label(), err)
		}
	}
	return nil
}
