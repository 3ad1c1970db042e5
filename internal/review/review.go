// Package review resolves which open PRs are still waiting on a tracked
// user's review.
package review

import (
	"strings"
	"time"

	"pr-pulse/internal/github"
)

// DefaultSLAHours is the wait time after which an obligation is flagged
// as breaching the review SLA. Presentation severity only, never a
// filter.
const DefaultSLAHours = 24

// Obligation is an open PR where the user is a requested reviewer and
// has not yet submitted any review.
type Obligation struct {
	PR           github.PullRequest
	HoursWaiting int
	SLABreached  bool
}

// Resolve cross-references the per-user review-requested search results
// against the reviews already submitted on each PR. reviewsFor supplies
// the review timeline for a PR; a user drops off a PR's obligation list
// once any review of theirs appears there, matched case-insensitively.
func Resolve(requested map[string][]github.PullRequest, reviewsFor func(owner, repo string, number int) []github.Review, slaHours int, now time.Time) map[string][]Obligation {
	if slaHours <= 0 {
		slaHours = DefaultSLAHours
	}

	obligations := make(map[string][]Obligation, len(requested))
	for user, prs := range requested {
		userLower := strings.ToLower(user)

		var pending []Obligation
		for _, pr := range prs {
			if pr.State != "open" {
				continue
			}

			if hasReviewed(userLower, reviewsFor(pr.Owner, pr.Repo, pr.Number)) {
				continue
			}

			hours := int(now.Sub(pr.CreatedAt).Hours())
			pending = append(pending, Obligation{
				PR:           pr,
				HoursWaiting: hours,
				SLABreached:  hours >= slaHours,
			})
		}
		if len(pending) > 0 {
			obligations[user] = pending
		}
	}
	return obligations
}

func hasReviewed(userLower string, reviews []github.Review) bool {
	for _, r := range reviews {
		if strings.ToLower(r.Reviewer) == userLower {
			return true
		}
	}
	return false
}
