package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roeyazroel/linear-task/internal/selection"
)

const (
	projectsResponse = `{"data":{"projects":{"nodes":[{"id":"p1","name":"Website","state":"started"}]}}}`
	teamsResponse    = `{"data":{"teams":{"nodes":[{"id":"t1","key":"ENG","name":"Engineering"}]}}}`
	usersResponse    = `{"data":{"users":{"nodes":[
		{"id":"u1","name":"Ada","displayName":"ada","email":"ada@example.com","isMe":true,"active":true},
		{"id":"u2","name":"Grace","displayName":"grace","email":"grace@example.com","isMe":false,"active":true}]}}}`
	statesResponse = `{"data":{"workflowStates":{"nodes":[
		{"id":"s1","name":"Todo","type":"unstarted","position":1,"team":{"id":"t1","key":"ENG"}}]}}}`
	viewerResponse = `{"data":{"viewer":{"id":"u1","name":"Ada","displayName":"ada","email":"ada@example.com"}}}`
	createResponse = `{"data":{"issueCreate":{"success":true,"issue":{
		"id":"i1","identifier":"ENG-7","title":"Broken page",
		"state":{"id":"s1","name":"Todo"},"assignee":null,
		"createdAt":"2026-01-01T00:00:00Z","description":"URL: https://example.com/page",
		"team":{"id":"t1"},"project":{"id":"p1"},"url":"https://linear.app/acme/issue/ENG-7"}}}}`
)

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

// fakeLinear answers the queries linearapi sends, keyed on the query's
// top-level field.
type fakeLinear struct {
	mu       sync.Mutex
	requests []graphqlRequest
	auth     []string
}

func (f *fakeLinear) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req graphqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	f.mu.Unlock()

	var response string
	switch {
	case strings.Contains(req.Query, "issueCreate"):
		response = createResponse
	case strings.HasPrefix(req.Query, "{projects"):
		response = projectsResponse
	case strings.HasPrefix(req.Query, "{teams"):
		response = teamsResponse
	case strings.HasPrefix(req.Query, "{users"):
		response = usersResponse
	case strings.HasPrefix(req.Query, "{workflowStates"):
		response = statesResponse
	case strings.HasPrefix(req.Query, "{viewer"):
		response = viewerResponse
	default:
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(response))
}

func (f *fakeLinear) mutations() []graphqlRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []graphqlRequest
	for _, req := range f.requests {
		if strings.Contains(req.Query, "issueCreate") {
			out = append(out, req)
		}
	}
	return out
}

func (f *fakeLinear) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type recordingClipboard struct {
	copied []string
}

func (c *recordingClipboard) WriteAll(text string) error {
	c.copied = append(c.copied, text)
	return nil
}

type cliFixture struct {
	t          *testing.T
	configPath string
	linear     *fakeLinear
	clipboard  *recordingClipboard
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	linear := &fakeLinear{}
	server := httptest.NewServer(linear)
	t.Cleanup(server.Close)

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	yaml := fmt.Sprintf(`api_endpoint: %s
log_file: ""
fetch_title: false
store:
  backend: sqlite
  path: %s
`, server.URL, filepath.Join(dir, "store.db"))
	require.NoError(t, os.WriteFile(configPath, []byte(yaml), 0o600))

	return &cliFixture{t: t, configPath: configPath, linear: linear, clipboard: &recordingClipboard{}}
}

// run executes one command line with fresh options, like a new process.
func (fx *cliFixture) run(stdin string, args ...string) (string, string, error) {
	opts := &rootOptions{
		clipboard:     fx.clipboard,
		readClipboard: func() (string, error) { return "", errors.New("no clipboard in tests") },
	}
	cmd := newRootCmd(opts)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", fx.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestSettings_SetKeyAndShow(t *testing.T) {
	fx := newCLIFixture(t)

	out, _, err := fx.run("", "settings", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "not configured")

	out, _, err = fx.run("", "settings", "set-key", "lin_api_abcdef123456")
	require.NoError(t, err)
	assert.Contains(t, out, "Linear API key saved!")

	out, _, err = fx.run("", "settings", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "lin_************3456")
	assert.NotContains(t, out, "lin_api_abcdef123456")
	assert.Zero(t, fx.linear.count())
}

func TestSettings_SetKeyFromStdinWithVerify(t *testing.T) {
	fx := newCLIFixture(t)

	out, _, err := fx.run("lin_api_from_stdin\n", "settings", "set-key", "--verify")
	require.NoError(t, err)
	assert.Contains(t, out, "Authenticated as Ada")
	assert.Equal(t, []string{"lin_api_from_stdin"}, fx.linear.auth)
}

func TestSettings_SetKeyRejectsEmpty(t *testing.T) {
	fx := newCLIFixture(t)

	_, _, err := fx.run("   \n", "settings", "set-key")
	assert.Error(t, err)
}

func TestList_RequiresKey(t *testing.T) {
	fx := newCLIFixture(t)

	_, _, err := fx.run("", "list", "projects")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "settings set-key")
	assert.Zero(t, fx.linear.count())
}

func TestList_AllKinds(t *testing.T) {
	fx := newCLIFixture(t)
	_, _, err := fx.run("", "settings", "set-key", "lin_api_test")
	require.NoError(t, err)

	out, _, err := fx.run("", "list")
	require.NoError(t, err)

	for _, want := range []string{"Website", "Engineering", "Ada (me)", "Grace", "Todo (ENG)"} {
		assert.Contains(t, out, want)
	}
	// One request per collection, shared by Preload and the listing.
	assert.Equal(t, 4, fx.linear.count())
}

func TestList_RejectsUnknownKind(t *testing.T) {
	fx := newCLIFixture(t)

	_, _, err := fx.run("", "list", "labels")
	assert.Error(t, err)
}

func TestCreate_AutoSelectsAndPersists(t *testing.T) {
	fx := newCLIFixture(t)
	_, _, err := fx.run("", "settings", "set-key", "lin_api_test")
	require.NoError(t, err)

	out, _, err := fx.run("", "create", "--url", "https://example.com/page", "--title", "Broken page", "--assignee", "ada")
	require.NoError(t, err)
	assert.Contains(t, out, "Issue ENG-7 created and copied to clipboard!")
	assert.Contains(t, out, "https://linear.app/acme/issue/ENG-7")
	assert.Equal(t, []string{"ENG-7"}, fx.clipboard.copied)

	mutations := fx.linear.mutations()
	require.Len(t, mutations, 1)
	input, ok := mutations[0].Variables["input"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "t1", input["teamId"])
	assert.Equal(t, "p1", input["projectId"])
	assert.Equal(t, "u1", input["assigneeId"])
	assert.Equal(t, "s1", input["stateId"])
	assert.Equal(t, "Broken page", input["title"])
	assert.Equal(t, "URL: https://example.com/page", input["description"])
}

func TestCreate_DryRunDoesNotMutate(t *testing.T) {
	fx := newCLIFixture(t)
	_, _, err := fx.run("", "settings", "set-key", "lin_api_test")
	require.NoError(t, err)

	out, _, err := fx.run("", "create", "--dry-run", "--url", "https://example.com/page", "--title", "Broken page")
	require.NoError(t, err)

	assert.Contains(t, out, "Broken page")
	assert.Contains(t, out, "Website")
	assert.Contains(t, out, "Engineering")
	assert.Empty(t, fx.linear.mutations())
	assert.Empty(t, fx.clipboard.copied)
}

func TestCreate_UnknownProject(t *testing.T) {
	fx := newCLIFixture(t)
	_, _, err := fx.run("", "settings", "set-key", "lin_api_test")
	require.NoError(t, err)

	_, _, err = fx.run("", "create", "--url", "https://example.com/page", "--title", "x", "--project", "Mobile")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--project")
	assert.Empty(t, fx.linear.mutations())
}

func TestCreate_NeedsURL(t *testing.T) {
	fx := newCLIFixture(t)

	_, _, err := fx.run("", "create", "--title", "x")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	opts := newRootOptions()
	cmd := newRootCmd(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "linear-task dev")
}

func TestMatchOption(t *testing.T) {
	options := []selection.Option{
		{ID: "u1", Name: "Ada (me)"},
		{ID: "u2", Name: "Grace"},
		{ID: "s1", Name: "Todo (ENG)"},
		{ID: "s2", Name: "Todo (OPS)"},
	}

	tests := []struct {
		value   string
		want    string
		wantErr bool
	}{
		{value: "u2", want: "u2"},
		{value: "grace", want: "u2"},
		{value: "Ada", want: "u1"},
		{value: "ada (me)", want: "u1"},
		{value: "Todo (OPS)", want: "s2"},
		{value: "Todo", wantErr: true},
		{value: "Linus", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := matchOption(options, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "lin_****cdef", maskKey("lin_1234cdef"))
	assert.Equal(t, "*****", maskKey("short"))
	assert.Empty(t, maskKey(""))
}
