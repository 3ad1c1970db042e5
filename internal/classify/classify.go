// Package classify decides which PRs need attention. The filter stage
// runs first and can drop a PR entirely; the classification rules are
// independent and a PR may match several at once.
package classify

import (
	"strings"
	"time"

	"pr-pulse/internal/activity"
	"pr-pulse/internal/github"
)

type Reason int

const (
	ReasonInactive Reason = iota
	ReasonApprovedNotMerged
	ReasonStaleDraft
)

func (r Reason) String() string {
	switch r {
	case ReasonInactive:
		return "inactive"
	case ReasonApprovedNotMerged:
		return "approved_not_merged"
	case ReasonStaleDraft:
		return "stale_draft"
	default:
		return "unknown"
	}
}

// Finding is one attention reason with its severity: hours since last
// activity for ReasonInactive, days otherwise.
type Finding struct {
	Reason Reason
	Amount int
}

type Thresholds struct {
	InactivityHours int
	ApprovalDays    int
	DraftStaleDays  int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		InactivityHours: 24,
		ApprovalDays:    1,
		DraftStaleDays:  7,
	}
}

type Filters struct {
	ExcludeDrafts      bool
	ExcludeCherryPicks bool
}

// EnrichedPR is a PR snapshot plus the aggregates derived from its
// activity timeline. Recomputed on every fetch cycle, never persisted.
type EnrichedPR struct {
	github.PullRequest

	// LastActivityAt is the effective last human activity: the max
	// event timestamp, or the PR creation time when there are no events.
	LastActivityAt time.Time

	// FirstApprovalAt is zero when the PR has never been approved.
	FirstApprovalAt time.Time

	// ReviewerSet holds lowercased logins that submitted any review.
	ReviewerSet map[string]bool
}

// Enrich folds a PR's activity feeds into an EnrichedPR.
func Enrich(pr github.PullRequest, issueComments, reviewComments []github.Comment, reviews []github.Review) EnrichedPR {
	last := activity.LastActivity(issueComments, reviewComments, reviews)
	if last.IsZero() {
		last = pr.CreatedAt
	}
	return EnrichedPR{
		PullRequest:     pr,
		LastActivityAt:  last,
		FirstApprovalAt: activity.FirstApproval(reviews),
		ReviewerSet:     activity.Reviewers(reviews),
	}
}

var cherryPickMarkers = []string{
	"cherry-pick",
	"cherrypick",
	"cherry pick",
	"[cp]",
	"(cp)",
}

// IsCherryPick reports whether a PR looks like a cherry-pick onto a
// release branch. Substring matching is intentionally loose; titles
// that merely mention cherry-picking will match too.
func IsCherryPick(title, baseBranch string) bool {
	lower := strings.ToLower(title)
	for _, marker := range cherryPickMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return strings.HasPrefix(baseBranch, "release/")
}

// Include is the filter stage: drafts first, then cherry-picks. A PR
// dropped here is never classified, which is what keeps StaleDraft
// reachable only while ExcludeDrafts is off.
func Include(pr EnrichedPR, f Filters) bool {
	if f.ExcludeDrafts && pr.Draft {
		return false
	}
	if f.ExcludeCherryPicks && IsCherryPick(pr.Title, pr.BaseBranch) {
		return false
	}
	return true
}

// Classify evaluates every rule against a single now captured once per
// batch, so the whole run sees one consistent snapshot.
func Classify(pr EnrichedPR, th Thresholds, now time.Time) []Finding {
	var findings []Finding

	if h := hoursBetween(now, pr.LastActivityAt); h >= th.InactivityHours {
		findings = append(findings, Finding{Reason: ReasonInactive, Amount: h})
	}

	if pr.State == "open" && !pr.FirstApprovalAt.IsZero() {
		if d := daysBetween(now, pr.FirstApprovalAt); d >= th.ApprovalDays {
			findings = append(findings, Finding{Reason: ReasonApprovedNotMerged, Amount: d})
		}
	}

	if pr.Draft {
		if d := daysBetween(now, pr.CreatedAt); d >= th.DraftStaleDays {
			findings = append(findings, Finding{Reason: ReasonStaleDraft, Amount: d})
		}
	}

	return findings
}

func hoursBetween(now, t time.Time) int {
	return int(now.Sub(t).Hours())
}

func daysBetween(now, t time.Time) int {
	return int(now.Sub(t).Hours() / 24)
}
