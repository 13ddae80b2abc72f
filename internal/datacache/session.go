// Package datacache owns the Linear client and the remote collections for one
// popup session.
//
// Each collection kind has one slot that moves Uninitialized -> Pending ->
// Resolved. While a fetch is pending, every caller waits on the same fetch,
// and once it resolves every later caller receives the stored result or
// error. A kind therefore costs at most one network round trip per session,
// unless a failed slot is explicitly discarded with Retry.
package datacache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/roeyazroel/linear-task/internal/linearapi"
	"github.com/roeyazroel/linear-task/internal/logger"
	"github.com/roeyazroel/linear-task/internal/storage"
)

// ErrNoCredential is returned when no Linear API key has been saved.
var ErrNoCredential = errors.New("no Linear API key found")

// Remote is the subset of the Linear API a session uses.
type Remote interface {
	ListProjects(ctx context.Context) ([]linearapi.Project, error)
	ListTeams(ctx context.Context) ([]linearapi.Team, error)
	ListUsers(ctx context.Context) ([]linearapi.User, error)
	ListWorkflowStates(ctx context.Context) ([]linearapi.WorkflowState, error)
	CreateIssue(ctx context.Context, input linearapi.CreateIssueInput) (linearapi.Issue, error)
}

// ClientFactory builds a Remote for an API key.
type ClientFactory func(apiKey string) Remote

// Kind identifies a remote collection.
type Kind int

const (
	KindProjects Kind = iota
	KindTeams
	KindUsers
	KindWorkflowStates

	kindCount
)

// Kinds lists every collection kind in display order.
var Kinds = []Kind{KindProjects, KindUsers, KindTeams, KindWorkflowStates}

// String returns the collection name used in logs and CLI arguments.
func (k Kind) String() string {
	switch k {
	case KindProjects:
		return "projects"
	case KindTeams:
		return "teams"
	case KindUsers:
		return "users"
	case KindWorkflowStates:
		return "states"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind is the inverse of Kind.String. It also accepts a few aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "projects", "project":
		return KindProjects, nil
	case "teams", "team":
		return KindTeams, nil
	case "users", "user", "assignees", "assignee":
		return KindUsers, nil
	case "states", "state", "workflow-states", "statuses", "status":
		return KindWorkflowStates, nil
	default:
		return 0, fmt.Errorf("unknown collection %q", s)
	}
}

// FetchState is the lifecycle state of a collection slot.
type FetchState int

const (
	Uninitialized FetchState = iota
	Pending
	Resolved
)

// String implements fmt.Stringer.
func (s FetchState) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// fetch is one attempt at loading a collection. done is closed once value
// and err are final.
type fetch struct {
	done  chan struct{}
	value interface{}
	err   error
}

func (f *fetch) resolved() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Session is the per-popup cache. The zero value is not usable; call NewSession.
type Session struct {
	store     storage.Store
	newClient ClientFactory

	clientMu sync.Mutex
	client   Remote

	mu    sync.Mutex
	slots [kindCount]*fetch
}

// NewSession creates a session that reads the API key from store and builds
// its client with newClient.
func NewSession(store storage.Store, newClient ClientFactory) *Session {
	return &Session{
		store:     store,
		newClient: newClient,
	}
}

// Client returns the session's Linear client, creating it from the stored API
// key on first use. A missing key is reported as ErrNoCredential and is not
// remembered: the next call reads the store again.
func (s *Session) Client(ctx context.Context) (Remote, error) {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()

	if s.client != nil {
		return s.client, nil
	}

	apiKey, found, err := storage.LoadString(ctx, s.store, storage.KeyAPIKey)
	if err != nil {
		return nil, fmt.Errorf("load API key: %w", err)
	}
	if !found || strings.TrimSpace(apiKey) == "" {
		return nil, ErrNoCredential
	}

	s.client = s.newClient(apiKey)
	logger.Debug("datacache: created Linear client")
	return s.client, nil
}

// HasCredential reports whether a non-empty API key is stored.
func (s *Session) HasCredential(ctx context.Context) (bool, error) {
	apiKey, found, err := storage.LoadString(ctx, s.store, storage.KeyAPIKey)
	if err != nil {
		return false, err
	}
	return found && strings.TrimSpace(apiKey) != "", nil
}

// State reports the lifecycle state of the slot for kind.
func (s *Session) State(kind Kind) FetchState {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.slots[kind]
	switch {
	case f == nil:
		return Uninitialized
	case f.resolved():
		return Resolved
	default:
		return Pending
	}
}

// Retry discards the slot for kind if it resolved with an error, so the next
// request starts a new fetch. It reports whether the slot was discarded.
// Pending fetches and successful results are kept.
func (s *Session) Retry(kind Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.slots[kind]
	if f == nil || !f.resolved() || f.err == nil {
		return false
	}
	s.slots[kind] = nil
	logger.Debug("datacache: discarded failed fetch kind=%s", kind)
	return true
}

// get returns the shared fetch for kind, starting it if the slot is empty.
// The fetch runs detached from ctx so that a caller giving up does not fail
// the fetch for the others.
func (s *Session) get(ctx context.Context, kind Kind, load func(context.Context, Remote) (interface{}, error)) (interface{}, error) {
	s.mu.Lock()
	f := s.slots[kind]
	s.mu.Unlock()

	if f == nil {
		client, err := s.Client(ctx)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		f = s.slots[kind]
		if f == nil {
			f = &fetch{done: make(chan struct{})}
			s.slots[kind] = f
			go s.run(context.WithoutCancel(ctx), kind, f, client, load)
		}
		s.mu.Unlock()
	}

	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Session) run(ctx context.Context, kind Kind, f *fetch, client Remote, load func(context.Context, Remote) (interface{}, error)) {
	logger.Debug("datacache: fetching kind=%s", kind)
	value, err := load(ctx, client)
	if err != nil {
		logger.ErrorWithErr(err, "datacache: fetch failed kind=%s", kind)
		f.err = fmt.Errorf("load %s: %w", kind, err)
	} else {
		f.value = value
	}
	close(f.done)
}

// collection adapts a typed list call to the untyped slot machinery.
func collection[T any](ctx context.Context, s *Session, kind Kind, list func(Remote, context.Context) ([]T, error)) ([]T, error) {
	v, err := s.get(ctx, kind, func(ctx context.Context, c Remote) (interface{}, error) {
		return list(c, ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]T), nil
}

// Projects returns the workspace projects.
func (s *Session) Projects(ctx context.Context) ([]linearapi.Project, error) {
	return collection(ctx, s, KindProjects, Remote.ListProjects)
}

// Teams returns the workspace teams.
func (s *Session) Teams(ctx context.Context) ([]linearapi.Team, error) {
	return collection(ctx, s, KindTeams, Remote.ListTeams)
}

// Users returns the workspace users.
func (s *Session) Users(ctx context.Context) ([]linearapi.User, error) {
	return collection(ctx, s, KindUsers, Remote.ListUsers)
}

// WorkflowStates returns the workflow states of all teams.
func (s *Session) WorkflowStates(ctx context.Context) ([]linearapi.WorkflowState, error) {
	return collection(ctx, s, KindWorkflowStates, Remote.ListWorkflowStates)
}

// Preload requests every collection concurrently and returns the first error.
func (s *Session) Preload(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, kind := range Kinds {
		kind := kind
		g.Go(func() error {
			_, err := s.Options(ctx, kind)
			return err
		})
	}
	return g.Wait()
}
