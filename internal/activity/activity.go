// Package activity reduces the review/comment timelines of a single PR
// to aggregate timestamps. Everything here is pure; zero-value
// timestamps (absent or unparsable on the wire) are skipped.
package activity

import (
	"strings"
	"time"

	"pr-pulse/internal/github"
)

// LastActivity returns the latest human activity across issue comments,
// review comments, and reviews. Comments count at their update time,
// falling back to creation time; reviews count at submission time.
// Returns the zero time if no event carries a usable timestamp; callers
// fall back to the PR's creation time.
func LastActivity(issueComments, reviewComments []github.Comment, reviews []github.Review) time.Time {
	var last time.Time

	consider := func(t time.Time) {
		if !t.IsZero() && t.After(last) {
			last = t
		}
	}

	for _, c := range issueComments {
		consider(commentTime(c))
	}
	for _, c := range reviewComments {
		consider(commentTime(c))
	}
	for _, r := range reviews {
		consider(r.SubmittedAt)
	}

	return last
}

func commentTime(c github.Comment) time.Time {
	if !c.UpdatedAt.IsZero() {
		return c.UpdatedAt
	}
	return c.CreatedAt
}

// FirstApproval returns the earliest APPROVED review submission, or the
// zero time if the PR has no approval. Equal timestamps tie-break
// arbitrarily; the value only measures elapsed time.
func FirstApproval(reviews []github.Review) time.Time {
	var first time.Time
	for _, r := range reviews {
		if r.State != github.ReviewApproved || r.SubmittedAt.IsZero() {
			continue
		}
		if first.IsZero() || r.SubmittedAt.Before(first) {
			first = r.SubmittedAt
		}
	}
	return first
}

// Reviewers returns the set of logins that have submitted any review,
// keyed lowercase for case-insensitive lookups.
func Reviewers(reviews []github.Review) map[string]bool {
	set := make(map[string]bool, len(reviews))
	for _, r := range reviews {
		if r.Reviewer != "" {
			set[strings.ToLower(r.Reviewer)] = true
		}
	}
	return set
}
