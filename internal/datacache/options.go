package datacache

import (
	"context"
	"fmt"

	"github.com/roeyazroel/linear-task/internal/linearapi"
	"github.com/roeyazroel/linear-task/internal/selection"
)

// Field returns the selection field filled from kind.
func (k Kind) Field() selection.Field {
	switch k {
	case KindProjects:
		return selection.FieldProject
	case KindTeams:
		return selection.FieldTeam
	case KindUsers:
		return selection.FieldAssignee
	default:
		return selection.FieldState
	}
}

// Options returns the collection for kind as display options, in API order.
func (s *Session) Options(ctx context.Context, kind Kind) ([]selection.Option, error) {
	switch kind {
	case KindProjects:
		projects, err := s.Projects(ctx)
		if err != nil {
			return nil, err
		}
		return ProjectOptions(projects), nil
	case KindTeams:
		teams, err := s.Teams(ctx)
		if err != nil {
			return nil, err
		}
		return TeamOptions(teams), nil
	case KindUsers:
		users, err := s.Users(ctx)
		if err != nil {
			return nil, err
		}
		return UserOptions(users), nil
	case KindWorkflowStates:
		states, err := s.WorkflowStates(ctx)
		if err != nil {
			return nil, err
		}
		return StateOptions(states), nil
	default:
		return nil, fmt.Errorf("unknown collection kind %d", int(kind))
	}
}

// ProjectOptions converts projects to options.
func ProjectOptions(projects []linearapi.Project) []selection.Option {
	options := make([]selection.Option, 0, len(projects))
	for _, p := range projects {
		options = append(options, selection.Option{ID: p.ID, Name: p.Name})
	}
	return options
}

// TeamOptions converts teams to options.
func TeamOptions(teams []linearapi.Team) []selection.Option {
	options := make([]selection.Option, 0, len(teams))
	for _, t := range teams {
		options = append(options, selection.Option{ID: t.ID, Name: t.Name})
	}
	return options
}

// UserOptions converts users to options, marking the API key's owner.
func UserOptions(users []linearapi.User) []selection.Option {
	options := make([]selection.Option, 0, len(users))
	for _, u := range users {
		name := u.Name
		if u.IsMe {
			name += " (me)"
		}
		options = append(options, selection.Option{ID: u.ID, Name: name})
	}
	return options
}

// StateOptions converts workflow states to options. The team key is appended
// because every team has its own "Todo", "Done", etc.
func StateOptions(states []linearapi.WorkflowState) []selection.Option {
	options := make([]selection.Option, 0, len(states))
	for _, st := range states {
		name := st.Name
		if st.TeamKey != "" {
			name = fmt.Sprintf("%s (%s)", st.Name, st.TeamKey)
		}
		options = append(options, selection.Option{ID: st.ID, Name: name})
	}
	return options
}
