package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/roeyazroel/linear-task/internal/datacache"
	"github.com/roeyazroel/linear-task/internal/issueflow"
	"github.com/roeyazroel/linear-task/internal/logger"
	"github.com/roeyazroel/linear-task/internal/selection"
)

type createOptions struct {
	url         string
	title       string
	description string
	project     string
	team        string
	assignee    string
	state       string
	dryRun      bool
	width       int
}

func newCreateCmd(opts *rootOptions) *cobra.Command {
	co := &createOptions{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an issue without the popup",
		Long: `Create an issue for a page without opening the popup.

The last-used project, team, assignee and status are restored first, then
overridden by flags. Flags accept an ID or a name. A collection with a single
entry is selected automatically.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cmd, opts, co)
		},
	}

	cmd.Flags().StringVarP(&co.url, "url", "u", "", "page URL (defaults to the clipboard)")
	cmd.Flags().StringVarP(&co.title, "title", "t", "", "issue title (defaults to the page title)")
	cmd.Flags().StringVarP(&co.description, "description", "d", "", "issue description (defaults to the description template)")
	cmd.Flags().StringVarP(&co.project, "project", "p", "", "project ID or name")
	cmd.Flags().StringVar(&co.team, "team", "", "team ID or name")
	cmd.Flags().StringVarP(&co.assignee, "assignee", "a", "", "assignee ID or name")
	cmd.Flags().StringVarP(&co.state, "state", "s", "", "workflow state ID or name")
	cmd.Flags().BoolVar(&co.dryRun, "dry-run", false, "preview the issue instead of creating it")
	cmd.Flags().IntVar(&co.width, "width", 80, "preview word-wrap width")

	return cmd
}

func runCreate(cmd *cobra.Command, opts *rootOptions, co *createOptions) error {
	ctx := cmd.Context()

	tab, err := opts.newResolver().Resolve(ctx, co.url, co.title)
	if err != nil {
		return err
	}

	store, err := opts.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	session := opts.newSession(store)

	sel, err := selection.Restore(ctx, store)
	if err != nil {
		logger.ErrorWithErr(err, "cli.create: failed to restore selection")
	}

	if err := session.Preload(ctx); err != nil {
		return friendly(err)
	}

	flags := map[selection.Field]string{
		selection.FieldProject:  co.project,
		selection.FieldTeam:     co.team,
		selection.FieldAssignee: co.assignee,
		selection.FieldState:    co.state,
	}
	labels := make(map[selection.Field]string, len(flags))
	for _, kind := range datacache.Kinds {
		field := kind.Field()
		options, err := session.Options(ctx, kind)
		if err != nil {
			return friendly(err)
		}
		if value := flags[field]; value != "" {
			id, err := matchOption(options, value)
			if err != nil {
				return fmt.Errorf("--%s: %w", flagName(field), err)
			}
			sel.Set(field, id)
		}
		sel.Apply(field, options)
		labels[field] = optionName(options, sel.Get(field))
	}

	req := issueflow.Request{
		Title:       co.title,
		Description: co.description,
		URL:         tab.URL,
		Selection:   sel,
	}
	if req.Title == "" {
		req.Title = tab.Title
	}
	if req.Title == "" {
		return errors.New("issue title is empty; pass --title")
	}
	if req.Description == "" {
		req.Description = opts.cfg.Describe(tab.URL, tab.Title)
	}

	if co.dryRun {
		return renderPreview(cmd, req, labels, co.width)
	}

	notifier := consoleNotifier{out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}
	creator := issueflow.NewCreator(session, store, opts.clipboard, notifier, opts.cfg.Describe)
	result, err := creator.Create(ctx, req)
	if errors.Is(err, issueflow.ErrNotReady) {
		return errors.New("a project and a team are required; pass --project and --team")
	}
	if err != nil {
		return err
	}
	if result.Issue.URL != "" {
		fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render(result.Issue.URL))
	}
	return nil
}

// matchOption finds an option by ID, then by case-insensitive name. A name
// shared by several options is ambiguous.
func matchOption(options []selection.Option, value string) (string, error) {
	for _, opt := range options {
		if opt.ID == value {
			return opt.ID, nil
		}
	}
	var matches []selection.Option
	for _, opt := range options {
		name := opt.Name
		if i := strings.LastIndex(name, " ("); i > 0 {
			// Decorations like "Ada (me)" or "Todo (ENG)".
			if strings.EqualFold(name[:i], value) {
				matches = append(matches, opt)
				continue
			}
		}
		if strings.EqualFold(name, value) {
			matches = append(matches, opt)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no match for %q", value)
	case 1:
		return matches[0].ID, nil
	default:
		names := make([]string, 0, len(matches))
		for _, m := range matches {
			names = append(names, fmt.Sprintf("%s (%s)", m.Name, m.ID))
		}
		return "", fmt.Errorf("%q is ambiguous: %s", value, strings.Join(names, ", "))
	}
}

func optionName(options []selection.Option, id string) string {
	if id == "" {
		return ""
	}
	for _, opt := range options {
		if opt.ID == id {
			return opt.Name
		}
	}
	return id
}

func flagName(field selection.Field) string {
	switch field {
	case selection.FieldProject:
		return "project"
	case selection.FieldTeam:
		return "team"
	case selection.FieldAssignee:
		return "assignee"
	default:
		return "state"
	}
}

func previewMarkdown(req issueflow.Request, labels map[selection.Field]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", req.Title)
	b.WriteString("| Field | Value |\n|---|---|\n")
	for _, field := range selection.Fields {
		value := labels[field]
		if value == "" {
			value = "_none_"
		}
		fmt.Fprintf(&b, "| %s | %s |\n", field.Label(), value)
	}
	b.WriteString("\n")
	b.WriteString(req.Description)
	b.WriteString("\n")
	return b.String()
}

func renderPreview(cmd *cobra.Command, req issueflow.Request, labels map[selection.Field]string, width int) error {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := renderer.Render(previewMarkdown(req, labels))
	if err != nil {
		return fmt.Errorf("render preview: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
