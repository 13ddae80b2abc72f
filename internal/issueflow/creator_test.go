package issueflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roeyazroel/linear-task/internal/datacache"
	"github.com/roeyazroel/linear-task/internal/linearapi"
	"github.com/roeyazroel/linear-task/internal/selection"
	"github.com/roeyazroel/linear-task/internal/storage"
)

type recordingNotifier struct {
	successes []string
	failures  []string
}

func (n *recordingNotifier) Success(message string) { n.successes = append(n.successes, message) }
func (n *recordingNotifier) Failure(message string) { n.failures = append(n.failures, message) }

type fakeClipboard struct {
	err    error
	copied []string
}

func (c *fakeClipboard) WriteAll(text string) error {
	if c.err != nil {
		return c.err
	}
	c.copied = append(c.copied, text)
	return nil
}

type fakeRemote struct {
	issue  linearapi.Issue
	err    error
	inputs []linearapi.CreateIssueInput
}

func (f *fakeRemote) ListProjects(context.Context) ([]linearapi.Project, error) { return nil, nil }
func (f *fakeRemote) ListTeams(context.Context) ([]linearapi.Team, error)       { return nil, nil }
func (f *fakeRemote) ListUsers(context.Context) ([]linearapi.User, error)       { return nil, nil }
func (f *fakeRemote) ListWorkflowStates(context.Context) ([]linearapi.WorkflowState, error) {
	return nil, nil
}

func (f *fakeRemote) CreateIssue(_ context.Context, input linearapi.CreateIssueInput) (linearapi.Issue, error) {
	f.inputs = append(f.inputs, input)
	return f.issue, f.err
}

type fixture struct {
	creator   *Creator
	store     *storage.MemoryStore
	remote    *fakeRemote
	notifier  *recordingNotifier
	clipboard *fakeClipboard
}

func newFixture(t *testing.T, apiKey string) *fixture {
	t.Helper()
	fx := &fixture{
		store:     storage.NewMemoryStore(),
		remote:    &fakeRemote{issue: linearapi.Issue{ID: "i1", Identifier: "ENG-42"}},
		notifier:  &recordingNotifier{},
		clipboard: &fakeClipboard{},
	}
	if apiKey != "" {
		require.NoError(t, fx.store.Save(context.Background(), storage.KeyAPIKey, apiKey))
	}
	session := datacache.NewSession(fx.store, func(string) datacache.Remote { return fx.remote })
	fx.creator = NewCreator(session, fx.store, fx.clipboard, fx.notifier, func(url, title string) string {
		return "URL: " + url
	})
	return fx
}

func fullRequest() Request {
	return Request{
		Title: "Interesting article",
		URL:   "https://example.com/post",
		Selection: selection.State{
			ProjectID:  "p1",
			TeamID:     "t1",
			AssigneeID: "u1",
			StateID:    "s1",
		},
	}
}

func TestCreate_SuccessCopiesIdentifier(t *testing.T) {
	fx := newFixture(t, "lin_api_key")
	ctx := context.Background()

	result, err := fx.creator.Create(ctx, fullRequest())
	require.NoError(t, err)

	assert.True(t, result.Copied)
	assert.Equal(t, []string{"ENG-42"}, fx.clipboard.copied)
	require.Len(t, fx.notifier.successes, 1)
	assert.Contains(t, fx.notifier.successes[0], "ENG-42")
	assert.Contains(t, fx.notifier.successes[0], "copied")
	assert.Empty(t, fx.notifier.failures)

	require.Len(t, fx.remote.inputs, 1)
	assert.Equal(t, linearapi.CreateIssueInput{
		TeamID:      "t1",
		Title:       "Interesting article",
		Description: "URL: https://example.com/post",
		ProjectID:   "p1",
		AssigneeID:  "u1",
		StateID:     "s1",
	}, fx.remote.inputs[0])

	restored, err := selection.Restore(ctx, fx.store)
	require.NoError(t, err)
	assert.Equal(t, fullRequest().Selection, restored)
}

func TestCreate_ClipboardFailureDowngradesMessage(t *testing.T) {
	fx := newFixture(t, "lin_api_key")
	fx.clipboard.err = errors.New("no display")

	result, err := fx.creator.Create(context.Background(), fullRequest())
	require.NoError(t, err)

	assert.False(t, result.Copied)
	require.Len(t, fx.notifier.successes, 1)
	assert.Contains(t, fx.notifier.successes[0], "ENG-42")
	assert.NotContains(t, fx.notifier.successes[0], "copied")
	assert.Empty(t, fx.notifier.failures)
}

func TestCreate_WithoutIdentifier(t *testing.T) {
	fx := newFixture(t, "lin_api_key")
	fx.remote.issue = linearapi.Issue{}

	result, err := fx.creator.Create(context.Background(), fullRequest())
	require.NoError(t, err)

	assert.Equal(t, "Issue created!", result.Message)
	assert.Empty(t, fx.clipboard.copied)
}

func TestCreate_FailureNotifiesOnceAndKeepsSelection(t *testing.T) {
	fx := newFixture(t, "lin_api_key")
	ctx := context.Background()
	before := selection.State{ProjectID: "old-p", TeamID: "old-t", AssigneeID: "old-u", StateID: "old-s"}
	require.NoError(t, before.Persist(ctx, fx.store))
	fx.remote.err = errors.New("server error")

	_, err := fx.creator.Create(ctx, fullRequest())
	require.Error(t, err)

	assert.Equal(t, []string{FailureMessage}, fx.notifier.failures)
	assert.Empty(t, fx.notifier.successes)
	assert.Empty(t, fx.clipboard.copied)

	after, err := selection.Restore(ctx, fx.store)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestCreate_NotReady(t *testing.T) {
	tests := []struct {
		name   string
		apiKey string
		mutate func(*Request)
	}{
		{"missing project", "lin_api_key", func(r *Request) { r.Selection.ProjectID = "" }},
		{"missing team", "lin_api_key", func(r *Request) { r.Selection.TeamID = "" }},
		{"missing api key", "", func(*Request) {}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, tt.apiKey)
			req := fullRequest()
			tt.mutate(&req)

			assert.False(t, fx.creator.Ready(context.Background(), req.Selection))
			_, err := fx.creator.Create(context.Background(), req)
			assert.ErrorIs(t, err, ErrNotReady)
			assert.Empty(t, fx.remote.inputs)
			assert.Empty(t, fx.notifier.failures)
			assert.Empty(t, fx.notifier.successes)
		})
	}
}

func TestCreate_ExplicitDescriptionWins(t *testing.T) {
	fx := newFixture(t, "lin_api_key")
	req := fullRequest()
	req.Description = "Read before Friday"

	_, err := fx.creator.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Read before Friday", fx.remote.inputs[0].Description)
}

func TestReady(t *testing.T) {
	fx := newFixture(t, "lin_api_key")
	assert.True(t, fx.creator.Ready(context.Background(), fullRequest().Selection))
}
