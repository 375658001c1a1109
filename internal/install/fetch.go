package install

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// DefaultBaseURL is the archive host candidate URLs are built against.
const DefaultBaseURL = "https://codeload.github.com"

// DefaultFetchTimeout bounds a single archive transfer.
const DefaultFetchTimeout = 30 * time.Second

// Fetcher downloads a source archive, trying candidate URLs in order.
type Fetcher struct {
	// BaseURL is the archive host. Overridable for tests.
	BaseURL string

	// Client performs the transfers. Must carry a finite timeout.
	Client *http.Client
}

// NewFetcher creates a Fetcher against the default archive host.
func NewFetcher() *Fetcher {
	return &Fetcher{
		BaseURL: DefaultBaseURL,
		Client:  &http.Client{Timeout: DefaultFetchTimeout},
	}
}

// CandidateURLs builds the ordered download candidates for a spec. A spec
// with an explicit branch yields exactly one candidate; otherwise the
// current and legacy default branch names are tried in order, since hosts
// vary in which one a repository uses.
func (f *Fetcher) CandidateURLs(spec Spec) []string {
	branches := []string{spec.Branch}
	if spec.Branch == "" {
		branches = []string{"main", "master"}
	}

	urls := make([]string, 0, len(branches))
	for _, branch := range branches {
		urls = append(urls, fmt.Sprintf("%s/%s/%s/zip/refs/heads/%s", f.BaseURL, spec.Owner, spec.Repo, branch))
	}
	return urls
}

// Fetch downloads the archive for spec into dest. The first candidate that
// transfers fully wins; a failed candidate's partial output is discarded
// before the next attempt. When every candidate fails the result is a
// single ErrFetchFailed carrying the last underlying error.
func (f *Fetcher) Fetch(ctx context.Context, spec Spec, dest string) error {
	var lastErr error
	for _, url := range f.CandidateURLs(spec) {
		if err := f.fetchOne(ctx, url, dest); err != nil {
			lastErr = err
			_ = os.Remove(dest)
			continue
		}
		return nil
	}
	return fmt.Errorf("%w: %v", ErrFetchFailed, lastErr)
}

// fetchOne transfers a single candidate URL to dest.
func (f *Fetcher) fetchOne(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: HTTP %d", url, resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	return out.Close()
}
