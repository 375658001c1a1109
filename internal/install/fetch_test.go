package install

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeZip builds an in-memory zip archive from path -> content.
func makeZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// archiveServer serves zip archives by URL path and counts hits.
func archiveServer(t *testing.T, archives map[string][]byte) (*httptest.Server, *[]string) {
	t.Helper()
	var hits []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits = append(hits, r.URL.Path)
		body, ok := archives[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func testFetcher(srv *httptest.Server) *Fetcher {
	return &Fetcher{BaseURL: srv.URL, Client: srv.Client()}
}

func TestCandidateURLsDefaultBranches(t *testing.T) {
	f := &Fetcher{BaseURL: "https://example.test"}
	urls := f.CandidateURLs(Spec{Owner: "acme", Repo: "widgets"})

	require.Len(t, urls, 2)
	assert.Equal(t, "https://example.test/acme/widgets/zip/refs/heads/main", urls[0])
	assert.Equal(t, "https://example.test/acme/widgets/zip/refs/heads/master", urls[1])
}

func TestCandidateURLsExplicitBranch(t *testing.T) {
	f := &Fetcher{BaseURL: "https://example.test"}
	urls := f.CandidateURLs(Spec{Owner: "acme", Repo: "widgets", Branch: "dev"})

	require.Len(t, urls, 1)
	assert.Equal(t, "https://example.test/acme/widgets/zip/refs/heads/dev", urls[0])
}

func TestFetchFirstCandidateWins(t *testing.T) {
	body := makeZip(t, map[string]string{"widgets-main/plugin.toml": "[plugin]\nmain = \"init.lua\"\n"})
	srv, hits := archiveServer(t, map[string][]byte{
		"/acme/widgets/zip/refs/heads/main": body,
	})

	dest := filepath.Join(t.TempDir(), "repo.zip")
	err := testFetcher(srv).Fetch(context.Background(), Spec{Owner: "acme", Repo: "widgets"}, dest)
	require.NoError(t, err)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, body, got)
	assert.Equal(t, []string{"/acme/widgets/zip/refs/heads/main"}, *hits)
}

func TestFetchFallsBackToLegacyBranch(t *testing.T) {
	body := makeZip(t, map[string]string{"widgets-master/plugin.toml": "x"})
	srv, hits := archiveServer(t, map[string][]byte{
		"/acme/widgets/zip/refs/heads/master": body,
	})

	dest := filepath.Join(t.TempDir(), "repo.zip")
	err := testFetcher(srv).Fetch(context.Background(), Spec{Owner: "acme", Repo: "widgets"}, dest)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/acme/widgets/zip/refs/heads/main",
		"/acme/widgets/zip/refs/heads/master",
	}, *hits)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestFetchAllCandidatesFail(t *testing.T) {
	srv, hits := archiveServer(t, nil)

	dest := filepath.Join(t.TempDir(), "repo.zip")
	err := testFetcher(srv).Fetch(context.Background(), Spec{Owner: "acme", Repo: "widgets"}, dest)

	require.ErrorIs(t, err, ErrFetchFailed)
	assert.Len(t, *hits, 2, "both default-branch candidates should be tried")

	// A failed fetch leaves no partial download behind.
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetchExplicitBranchSingleAttempt(t *testing.T) {
	srv, hits := archiveServer(t, nil)

	dest := filepath.Join(t.TempDir(), "repo.zip")
	err := testFetcher(srv).Fetch(context.Background(), Spec{Owner: "acme", Repo: "widgets", Branch: "dev"}, dest)

	require.ErrorIs(t, err, ErrFetchFailed)
	assert.Equal(t, []string{"/acme/widgets/zip/refs/heads/dev"}, *hits)
}
