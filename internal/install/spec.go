// Package install downloads remote plugin archives and installs them into
// the plugins root.
package install

import (
	"fmt"
	"strings"
)

// Spec identifies a remote repository to install as a plugin.
type Spec struct {
	Owner  string
	Repo   string
	Branch string // empty means "use the host's default branch"
}

// ParseSpec parses a user-supplied string of the form owner/repo or
// owner/repo@branch.
func ParseSpec(s string) (Spec, error) {
	s = strings.TrimSpace(s)

	var branch string
	if at := strings.Index(s, "@"); at >= 0 {
		s, branch = s[:at], s[at+1:]
	}

	owner, repo, ok := strings.Cut(s, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return Spec{}, fmt.Errorf("%w: %q", ErrInvalidSpec, s)
	}

	return Spec{Owner: owner, Repo: repo, Branch: branch}, nil
}

// String returns the canonical spec form.
func (s Spec) String() string {
	if s.Branch != "" {
		return s.Owner + "/" + s.Repo + "@" + s.Branch
	}
	return s.Owner + "/" + s.Repo
}
