// Package notify turns classification results into per-user messages
// and delivers them over Slack.
package notify

import (
	"fmt"
	"strings"
	"time"

	"pr-pulse/internal/classify"
	"pr-pulse/internal/review"
)

const maxTitleLen = 50

// AttentionItem pairs an enriched PR with the reasons it needs
// attention.
type AttentionItem struct {
	PR       classify.EnrichedPR
	Findings []classify.Finding
}

// Payload is everything needed to notify one user.
type Payload struct {
	User        string
	DisplayName string
	Items       []AttentionItem
	Obligations []review.Obligation
	Message     string
}

// Compose builds a user's notification payload. Returns nil when the
// user has nothing to act on; a nil payload means no message is sent.
func Compose(user, displayName string, items []AttentionItem, obligations []review.Obligation, now time.Time) *Payload {
	if len(items) == 0 && len(obligations) == 0 {
		return nil
	}
	if displayName == "" {
		displayName = user
	}

	p := &Payload{
		User:        user,
		DisplayName: displayName,
		Items:       items,
		Obligations: obligations,
	}
	p.Message = renderMessage(p, now)
	return p
}

func renderMessage(p *Payload, now time.Time) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("*PR Reminder* - %s", now.Format("Jan 2, 2006")))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("Hi %s! You have *%d* PR(s) that need attention:",
		p.DisplayName, len(p.Items)+len(p.Obligations)))

	section := func(header string, reason classify.Reason, describe func(amount int) string) {
		var entries []string
		for _, item := range p.Items {
			for _, f := range item.Findings {
				if f.Reason == reason {
					entries = append(entries, fmt.Sprintf("  • %s: \"%s\" - %s",
						prLink(item.PR.URL, item.PR.Number), truncate(item.PR.Title, maxTitleLen), describe(f.Amount)))
				}
			}
		}
		if len(entries) > 0 {
			lines = append(lines, "", header)
			lines = append(lines, entries...)
		}
	}

	section("*No Activity:*", classify.ReasonInactive, func(h int) string {
		return fmt.Sprintf("No activity for %d hours", h)
	})
	section("*Approved - Awaiting Merge:*", classify.ReasonApprovedNotMerged, func(d int) string {
		return fmt.Sprintf("Approved %d days ago", d)
	})
	section("*Stale Drafts:*", classify.ReasonStaleDraft, func(d int) string {
		return fmt.Sprintf("Draft for %d days", d)
	})

	if len(p.Obligations) > 0 {
		lines = append(lines, "", "*Awaiting Your Review:*")
		for _, o := range p.Obligations {
			lines = append(lines, fmt.Sprintf("  • %s: \"%s\" by %s - Waiting %d hours",
				prLink(o.PR.URL, o.PR.Number), truncate(o.PR.Title, maxTitleLen), o.PR.Author, o.HoursWaiting))
		}
	}

	lines = append(lines, "", "Please take a look when you can!")
	return strings.Join(lines, "\n")
}

// ComposeConsolidated renders the manager-facing aggregate: per-user PR
// counts broken down by reason. Presentation only; never sent as a DM.
func ComposeConsolidated(payloads map[string]*Payload, now time.Time) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("*Team PR Summary* - %s", now.Format("Jan 2, 2006")))

	for user, p := range payloads {
		if p == nil {
			continue
		}

		counts := make(map[classify.Reason]int)
		for _, item := range p.Items {
			for _, f := range item.Findings {
				counts[f.Reason]++
			}
		}

		var parts []string
		for _, r := range []classify.Reason{classify.ReasonInactive, classify.ReasonApprovedNotMerged, classify.ReasonStaleDraft} {
			if counts[r] > 0 {
				parts = append(parts, fmt.Sprintf("%d %s", counts[r], r))
			}
		}
		if n := len(p.Obligations); n > 0 {
			parts = append(parts, fmt.Sprintf("%d awaiting review", n))
		}
		if len(parts) > 0 {
			lines = append(lines, fmt.Sprintf("  • %s: %s", user, strings.Join(parts, ", ")))
		}
	}

	if len(lines) == 1 {
		lines = append(lines, "  Nothing needs attention.")
	}
	return strings.Join(lines, "\n")
}

func prLink(url string, number int) string {
	return fmt.Sprintf("<%s|PR #%d>", url, number)
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}
