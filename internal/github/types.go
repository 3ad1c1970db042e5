package github

import (
	"strings"
	"time"
)

// Repo identifies a repository tracked in configuration.
type Repo struct {
	Owner string
	Name  string
}

func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// ParseRepo splits an "owner/name" string. The name is empty if the
// input has no slash.
func ParseRepo(s string) Repo {
	parts := strings.SplitN(strings.TrimSpace(s), "/", 2)
	if len(parts) != 2 {
		return Repo{Owner: parts[0]}
	}
	return Repo{Owner: parts[0], Name: parts[1]}
}

// PullRequest is a normalized snapshot of a PR as returned by the
// search or pulls endpoints. Fields only present on the pulls endpoint
// (BaseBranch, Additions, Deletions, Merged) stay zero for search
// results until a detail fetch fills them in.
type PullRequest struct {
	Owner      string
	Repo       string
	Number     int
	Author     string
	Title      string
	CreatedAt  time.Time
	Draft      bool
	BaseBranch string
	URL        string
	State      string // "open" or "closed"
	Merged     bool
	ClosedAt   time.Time
	Additions  int
	Deletions  int
}

func (pr PullRequest) RepoFullName() string {
	return pr.Owner + "/" + pr.Repo
}

// Review states as reported by the API.
const (
	ReviewApproved         = "APPROVED"
	ReviewChangesRequested = "CHANGES_REQUESTED"
	ReviewCommented        = "COMMENTED"
)

type Review struct {
	Reviewer    string
	State       string
	SubmittedAt time.Time
}

type Comment struct {
	Author    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ParseRepoURL extracts owner and repo from either a web URL
// (https://github.com/owner/repo/...) or an API URL
// (https://api.github.com/repos/owner/repo).
func ParseRepoURL(url string) (owner, repo string) {
	s := strings.TrimPrefix(url, "https://api.github.com/repos/")
	s = strings.TrimPrefix(s, "https://github.com/")
	parts := strings.Split(s, "/")
	if len(parts) >= 2 && parts[0] != "" && parts[1] != "" {
		return parts[0], parts[1]
	}
	return "", ""
}

// parseTime parses an RFC3339 timestamp, returning the zero time for
// anything unparsable. Callers treat the zero time as absent, so a
// malformed timestamp degrades to a skipped event rather than an error.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
