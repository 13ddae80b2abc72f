// Package tabinfo works out the page an issue is being filed for: its URL and
// its title. It is resolved once when the popup opens.
package tabinfo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"golang.org/x/net/html"

	"github.com/roeyazroel/linear-task/internal/logger"
)

// ErrNoURL is returned when neither the arguments nor the clipboard hold a URL.
var ErrNoURL = errors.New("no page URL given and none found on the clipboard")

// maxTitleBytes bounds how much of a page is read looking for <title>.
const maxTitleBytes = 512 * 1024

// Tab is the page being filed.
type Tab struct {
	URL   string
	Title string
}

// Resolver resolves a Tab. The zero value reads nothing from the network or
// clipboard; use NewResolver for the real thing.
type Resolver struct {
	HTTPClient    *http.Client
	ReadClipboard func() (string, error)
	FetchTitle    bool
}

// NewResolver returns a Resolver backed by the system clipboard.
func NewResolver(fetchTitle bool, timeout time.Duration) *Resolver {
	return &Resolver{
		HTTPClient:    &http.Client{Timeout: timeout},
		ReadClipboard: clipboard.ReadAll,
		FetchTitle:    fetchTitle,
	}
}

// Resolve returns the tab for rawURL and title. An empty rawURL falls back to
// the clipboard. An empty title is looked up from the page when FetchTitle is
// set; a failed lookup leaves it empty.
func (r *Resolver) Resolve(ctx context.Context, rawURL, title string) (Tab, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" && r.ReadClipboard != nil {
		text, err := r.ReadClipboard()
		if err != nil {
			logger.Debug("tabinfo: clipboard unavailable error=%v", err)
		} else if _, perr := Normalize(text); perr == nil {
			rawURL = strings.TrimSpace(text)
		}
	}
	if rawURL == "" {
		return Tab{}, ErrNoURL
	}

	normalized, err := Normalize(rawURL)
	if err != nil {
		return Tab{}, err
	}

	tab := Tab{URL: normalized, Title: strings.TrimSpace(title)}
	if tab.Title == "" && r.FetchTitle && r.HTTPClient != nil {
		fetched, err := r.fetchTitle(ctx, tab.URL)
		if err != nil {
			logger.Warning("tabinfo: failed to fetch title url=%s error=%v", tab.URL, err)
		}
		tab.Title = fetched
	}
	return tab, nil
}

// Normalize checks that s is an absolute http(s) URL and returns it trimmed.
func Normalize(s string) (string, error) {
	s = strings.TrimSpace(s)
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("parse URL %q: %w", s, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("URL %q must use http or https", s)
	}
	if u.Host == "" {
		return "", fmt.Errorf("URL %q has no host", s)
	}
	return u.String(), nil
}

func (r *Resolver) fetchTitle(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/html")

	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	return ExtractTitle(io.LimitReader(resp.Body, maxTitleBytes))
}

// ExtractTitle returns the text of the first <title> element in an HTML
// document, with whitespace collapsed.
func ExtractTitle(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	inTitle := false
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return strings.Join(strings.Fields(b.String()), " "), nil
			}
			return "", z.Err()
		case html.StartTagToken:
			name, _ := z.TagName()
			if string(name) == "title" {
				inTitle = true
			}
		case html.TextToken:
			if inTitle {
				b.Write(z.Text())
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if inTitle && string(name) == "title" {
				return strings.Join(strings.Fields(b.String()), " "), nil
			}
		}
	}
}
