// Package issueflow creates a Linear issue from the popup form and reports the
// outcome to the user.
package issueflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/roeyazroel/linear-task/internal/datacache"
	"github.com/roeyazroel/linear-task/internal/linearapi"
	"github.com/roeyazroel/linear-task/internal/logger"
	"github.com/roeyazroel/linear-task/internal/selection"
	"github.com/roeyazroel/linear-task/internal/storage"
)

// ErrNotReady is returned when the API key, project or team is missing.
var ErrNotReady = errors.New("issue creation requires an API key, a project and a team")

// FailureMessage is the single notification shown when creation fails.
const FailureMessage = "Failed to create issue"

// Notifier shows toasts.
type Notifier interface {
	Success(message string)
	Failure(message string)
}

// Clipboard writes text to the system clipboard.
type Clipboard interface {
	WriteAll(text string) error
}

// SystemClipboard is the OS clipboard.
type SystemClipboard struct{}

// WriteAll implements Clipboard.
func (SystemClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}

// Request is the submitted form.
type Request struct {
	Title string
	// Description is sent as is. When empty, Describe(URL, Title) is used.
	Description string
	URL         string
	Selection   selection.State
}

// Result describes a successful creation.
type Result struct {
	Issue   linearapi.Issue
	Copied  bool
	Message string
}

// Creator runs the create-issue flow against a session.
type Creator struct {
	session   *datacache.Session
	store     storage.Store
	clipboard Clipboard
	notifier  Notifier
	describe  func(url, title string) string
}

// NewCreator wires a Creator. describe renders the default description.
func NewCreator(session *datacache.Session, store storage.Store, cb Clipboard, notifier Notifier, describe func(url, title string) string) *Creator {
	if cb == nil {
		cb = SystemClipboard{}
	}
	return &Creator{
		session:   session,
		store:     store,
		clipboard: cb,
		notifier:  notifier,
		describe:  describe,
	}
}

// Ready reports whether Create would do anything for sel.
func (c *Creator) Ready(ctx context.Context, sel selection.State) bool {
	if sel.ProjectID == "" || sel.TeamID == "" {
		return false
	}
	ok, err := c.session.HasCredential(ctx)
	if err != nil {
		logger.ErrorWithErr(err, "issueflow: failed to read API key")
		return false
	}
	return ok
}

func (c *Creator) description(req Request) string {
	if strings.TrimSpace(req.Description) != "" {
		return req.Description
	}
	if c.describe == nil {
		return "URL: " + req.URL
	}
	return c.describe(req.URL, req.Title)
}

// Create creates the issue described by req. When the preconditions are not
// met it returns ErrNotReady without notifying. Any other failure produces one
// failure notification and leaves the stored selection untouched. On success
// the identifier is copied to the clipboard when possible and the selection is
// saved as last used.
func (c *Creator) Create(ctx context.Context, req Request) (Result, error) {
	sel := req.Selection
	if sel.ProjectID == "" || sel.TeamID == "" {
		return Result{}, ErrNotReady
	}

	client, err := c.session.Client(ctx)
	if errors.Is(err, datacache.ErrNoCredential) {
		return Result{}, ErrNotReady
	}
	if err != nil {
		c.notifier.Failure(FailureMessage)
		return Result{}, err
	}

	issue, err := client.CreateIssue(ctx, linearapi.CreateIssueInput{
		TeamID:      sel.TeamID,
		Title:       req.Title,
		Description: c.description(req),
		ProjectID:   sel.ProjectID,
		AssigneeID:  sel.AssigneeID,
		StateID:     sel.StateID,
	})
	if err != nil {
		logger.ErrorWithErr(err, "issueflow: failed to create issue title=%s", req.Title)
		c.notifier.Failure(FailureMessage)
		return Result{}, fmt.Errorf("create issue: %w", err)
	}

	result := Result{Issue: issue}
	switch {
	case issue.Identifier == "":
		result.Message = "Issue created!"
	default:
		if err := c.clipboard.WriteAll(issue.Identifier); err != nil {
			logger.Warning("issueflow: failed to copy to clipboard issue=%s error=%v", issue.Identifier, err)
			result.Message = fmt.Sprintf("Issue %s created!", issue.Identifier)
		} else {
			result.Copied = true
			result.Message = fmt.Sprintf("Issue %s created and copied to clipboard!", issue.Identifier)
		}
	}
	logger.Info("issueflow: created issue issue=%s title=%s", issue.Identifier, req.Title)
	c.notifier.Success(result.Message)

	if err := sel.Persist(ctx, c.store); err != nil {
		logger.ErrorWithErr(err, "issueflow: failed to save last-used selection")
	}

	return result, nil
}
