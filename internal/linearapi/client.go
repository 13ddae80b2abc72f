package linearapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/roeyazroel/linear-task/internal/logger"
	"github.com/shurcooL/graphql"
)

// parseTime safely parses an RFC3339 time string, returning zero time on error.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// IssueCreateInput is a custom scalar type for Linear's IssueCreateInput.
// The Go type name must match the GraphQL type name exactly.
type IssueCreateInput map[string]interface{}

// GetGraphQLType returns the GraphQL type name for the input.
func (IssueCreateInput) GetGraphQLType() string {
	return "IssueCreateInput"
}

// MarshalJSON implements json.Marshaler for IssueCreateInput.
func (i IssueCreateInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}(i))
}

const (
	// DefaultEndpoint is the default Linear API GraphQL endpoint.
	DefaultEndpoint = "https://api.linear.app/graphql"
)

// ClientConfig contains configuration for creating a new Linear API client.
type ClientConfig struct {
	// Token is the Linear API key for authentication.
	Token string
	// Endpoint is the GraphQL API endpoint (defaults to Linear's production endpoint).
	Endpoint string
	// HTTPClient is an optional custom HTTP client (useful for testing).
	HTTPClient *http.Client
	// Timeout is the HTTP request timeout (defaults to 30s).
	Timeout time.Duration
}

// Client is a client for interacting with the Linear GraphQL API.
type Client struct {
	httpClient *http.Client
	endpoint   string
	token      string
	client     *graphql.Client
}

// Team represents a Linear team.
type Team struct {
	ID   string
	Key  string
	Name string
}

// Project represents a Linear project.
type Project struct {
	ID    string
	Name  string
	State string // planned, started, paused, completed, canceled
}

// User represents a Linear user.
type User struct {
	ID          string
	Name        string
	DisplayName string
	Email       string
	IsMe        bool
	Active      bool
}

// WorkflowState represents a workflow state. States belong to a team, so a
// workspace-wide listing repeats names such as "Todo" once per team.
type WorkflowState struct {
	ID       string
	Name     string
	Type     string // backlog, unstarted, started, completed, canceled
	Position float64
	TeamID   string
	TeamKey  string
}

// Issue represents a Linear issue as returned by issue creation.
type Issue struct {
	ID          string
	Identifier  string
	Title       string
	Description string
	State       string
	StateID     string
	Assignee    string
	AssigneeID  string
	TeamID      string
	ProjectID   string
	URL         string
	CreatedAt   time.Time
}

// CreateIssueInput contains input for creating a new issue.
type CreateIssueInput struct {
	TeamID      string
	Title       string
	Description string
	ProjectID   string
	StateID     string
	AssigneeID  string
}

// NewClient creates a new Linear API client with the provided configuration.
func NewClient(cfg ClientConfig) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	var httpClient *http.Client
	if cfg.HTTPClient != nil {
		// Use provided HTTP client but wrap its transport with auth
		httpClient = cfg.HTTPClient
		if httpClient.Transport == nil {
			httpClient.Transport = http.DefaultTransport
		}
		httpClient.Transport = &authTransport{
			Token: cfg.Token,
			Base:  httpClient.Transport,
		}
	} else {
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &authTransport{
				Token: cfg.Token,
				Base:  http.DefaultTransport,
			},
		}
	}

	client := graphql.NewClient(endpoint, httpClient)

	return &Client{
		httpClient: httpClient,
		endpoint:   endpoint,
		token:      cfg.Token,
		client:     client,
	}
}

// NewClientWithToken creates a new Linear API client with just a token (convenience method).
func NewClientWithToken(token string) *Client {
	return NewClient(ClientConfig{Token: token})
}

// authTransport adds the Authorization header to requests.
type authTransport struct {
	Token string
	Base  http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", t.Token)
	if t.Base == nil {
		return http.DefaultTransport.RoundTrip(req)
	}
	return t.Base.RoundTrip(req)
}

// Endpoint returns the GraphQL endpoint being used.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// ListTeams fetches all teams the user has access to.
func (c *Client) ListTeams(ctx context.Context) ([]Team, error) {
	var query struct {
		Teams struct {
			Nodes []struct {
				ID   graphql.String
				Key  graphql.String
				Name graphql.String
			}
		} `graphql:"teams"`
	}

	err := c.client.Query(ctx, &query, nil)
	if err != nil {
		logger.ErrorWithErr(err, "API: ListTeams failed")
		return nil, fmt.Errorf("list teams: %w", err)
	}

	teams := make([]Team, 0, len(query.Teams.Nodes))
	for _, node := range query.Teams.Nodes {
		teams = append(teams, Team{
			ID:   string(node.ID),
			Key:  string(node.Key),
			Name: string(node.Name),
		})
	}

	return teams, nil
}

// ListProjects fetches the projects of the workspace.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var query struct {
		Projects struct {
			Nodes []struct {
				ID    graphql.String
				Name  graphql.String
				State graphql.String
			}
		} `graphql:"projects"`
	}

	err := c.client.Query(ctx, &query, nil)
	if err != nil {
		logger.ErrorWithErr(err, "API: ListProjects failed")
		return nil, fmt.Errorf("list projects: %w", err)
	}

	projects := make([]Project, 0, len(query.Projects.Nodes))
	for _, node := range query.Projects.Nodes {
		projects = append(projects, Project{
			ID:    string(node.ID),
			Name:  string(node.Name),
			State: string(node.State),
		})
	}

	return projects, nil
}

// ListUsers fetches the users of the workspace.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var query struct {
		Users struct {
			Nodes []struct {
				ID          graphql.String
				Name        graphql.String
				DisplayName graphql.String
				Email       graphql.String
				IsMe        graphql.Boolean
				Active      graphql.Boolean
			}
		} `graphql:"users"`
	}

	err := c.client.Query(ctx, &query, nil)
	if err != nil {
		logger.ErrorWithErr(err, "API: ListUsers failed")
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := make([]User, 0, len(query.Users.Nodes))
	for _, node := range query.Users.Nodes {
		users = append(users, User{
			ID:          string(node.ID),
			Name:        string(node.Name),
			DisplayName: string(node.DisplayName),
			Email:       string(node.Email),
			IsMe:        bool(node.IsMe),
			Active:      bool(node.Active),
		})
	}

	return users, nil
}

// GetViewer fetches the user the API key belongs to. Settings uses it to check a key.
func (c *Client) GetViewer(ctx context.Context) (User, error) {
	var query struct {
		Viewer struct {
			ID          graphql.String
			Name        graphql.String
			DisplayName graphql.String
			Email       graphql.String
		}
	}

	err := c.client.Query(ctx, &query, nil)
	if err != nil {
		logger.ErrorWithErr(err, "API: GetViewer failed")
		return User{}, fmt.Errorf("get viewer: %w", err)
	}

	return User{
		ID:          string(query.Viewer.ID),
		Name:        string(query.Viewer.Name),
		DisplayName: string(query.Viewer.DisplayName),
		Email:       string(query.Viewer.Email),
		IsMe:        true,
		Active:      true,
	}, nil
}

// ListWorkflowStates fetches the workflow states of every team in the workspace.
func (c *Client) ListWorkflowStates(ctx context.Context) ([]WorkflowState, error) {
	var query struct {
		WorkflowStates struct {
			Nodes []struct {
				ID       graphql.String
				Name     graphql.String
				Type     graphql.String
				Position graphql.Float
				Team     struct {
					ID  graphql.String
					Key graphql.String
				}
			}
		} `graphql:"workflowStates"`
	}

	err := c.client.Query(ctx, &query, nil)
	if err != nil {
		logger.ErrorWithErr(err, "API: ListWorkflowStates failed")
		return nil, fmt.Errorf("list workflow states: %w", err)
	}

	states := make([]WorkflowState, 0, len(query.WorkflowStates.Nodes))
	for _, node := range query.WorkflowStates.Nodes {
		states = append(states, WorkflowState{
			ID:       string(node.ID),
			Name:     string(node.Name),
			Type:     string(node.Type),
			Position: float64(node.Position),
			TeamID:   string(node.Team.ID),
			TeamKey:  string(node.Team.Key),
		})
	}

	return states, nil
}

// CreateIssue creates a new issue.
func (c *Client) CreateIssue(ctx context.Context, input CreateIssueInput) (Issue, error) {
	var mutation struct {
		IssueCreate struct {
			Success graphql.Boolean
			Issue   *struct {
				ID         graphql.String
				Identifier graphql.String
				Title      graphql.String
				State      struct {
					ID   graphql.String
					Name graphql.String
				}
				Assignee *struct {
					ID   graphql.String
					Name graphql.String
				}
				CreatedAt   graphql.String
				Description *graphql.String
				Team        struct {
					ID graphql.String
				}
				Project *struct {
					ID graphql.String
				}
				URL graphql.String
			}
		} `graphql:"issueCreate(input: $input)"`
	}

	// Build input object
	issueInput := make(IssueCreateInput)
	issueInput["teamId"] = graphql.ID(input.TeamID)
	issueInput["title"] = graphql.String(input.Title)
	if input.Description != "" {
		issueInput["description"] = graphql.String(input.Description)
	}
	if input.ProjectID != "" {
		issueInput["projectId"] = graphql.ID(input.ProjectID)
	}
	if input.StateID != "" {
		issueInput["stateId"] = graphql.ID(input.StateID)
	}
	if input.AssigneeID != "" {
		issueInput["assigneeId"] = graphql.ID(input.AssigneeID)
	}

	variables := map[string]interface{}{
		"input": issueInput,
	}

	err := c.client.Mutate(ctx, &mutation, variables)
	if err != nil {
		logger.ErrorWithErr(err, "API: CreateIssue failed")
		return Issue{}, fmt.Errorf("create issue: %w", err)
	}

	if !bool(mutation.IssueCreate.Success) {
		logger.Error("API: CreateIssue operation failed (success=false)")
		return Issue{}, fmt.Errorf("create issue: operation failed")
	}

	// Linear may report success before the issue is readable; the caller
	// then gets an Issue without an identifier.
	node := mutation.IssueCreate.Issue
	if node == nil {
		logger.Warning("API: CreateIssue succeeded without returning the issue")
		return Issue{TeamID: input.TeamID, Title: input.Title}, nil
	}

	assignee := ""
	assigneeID := ""
	if node.Assignee != nil {
		assignee = string(node.Assignee.Name)
		assigneeID = string(node.Assignee.ID)
	}

	description := ""
	if node.Description != nil {
		description = string(*node.Description)
	}

	projectID := ""
	if node.Project != nil {
		projectID = string(node.Project.ID)
	}

	return Issue{
		ID:          string(node.ID),
		Identifier:  string(node.Identifier),
		Title:       string(node.Title),
		Description: description,
		State:       string(node.State.Name),
		StateID:     string(node.State.ID),
		Assignee:    assignee,
		AssigneeID:  assigneeID,
		TeamID:      string(node.Team.ID),
		ProjectID:   projectID,
		URL:         string(node.URL),
		CreatedAt:   parseTime(string(node.CreatedAt)),
	}, nil
}
