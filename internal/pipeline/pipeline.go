// Package pipeline wires the full run together: search, concurrent
// detail fetch, enrichment, classification, review obligations,
// composition, and delivery. A single PR's failure never aborts the
// batch; every tracked user gets a per-user status.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pr-pulse/internal/classify"
	"pr-pulse/internal/config"
	"pr-pulse/internal/fetch"
	"pr-pulse/internal/github"
	"pr-pulse/internal/notify"
	"pr-pulse/internal/review"
	"pr-pulse/internal/schedule"
	"pr-pulse/internal/store"
)

// Source is everything the pipeline needs from the PR data source.
// *github.Client satisfies it; tests substitute fakes.
type Source interface {
	fetch.Source
	SearchPRs(ctx context.Context, repos []github.Repo, usernames []string, state string, daysBack int) ([]github.PullRequest, error)
	SearchReviewRequestedPRs(ctx context.Context, repos []github.Repo, usernames []string) (map[string][]github.PullRequest, error)
}

// Sender delivers one composed message. *notify.SlackClient satisfies it.
type Sender interface {
	SendDM(ctx context.Context, slackUserID, text string) error
}

type Status string

const (
	StatusSent     Status = "sent"
	StatusFailed   Status = "failed"
	StatusUnmapped Status = "no_slack_id"
	StatusNoAction Status = "no_prs"
	StatusDryRun   Status = "dry_run"
	StatusNotDue   Status = "not_due"
)

type UserResult struct {
	User    string
	Status  Status
	Payload *notify.Payload
}

type Summary struct {
	TotalPRs   int
	Sent       int
	Failed     int
	Unmapped   int
	Suppressed int
}

type Result struct {
	Users        []UserResult
	Payloads     map[string]*notify.Payload
	Consolidated string
	Summary      Summary
	Warning      string
	Skipped      bool
	SkipReason   string
}

type Options struct {
	DryRun        bool
	IncludeDrafts bool
	CheckSchedule bool
	Force         bool
}

// Run executes the whole pipeline for the configured users, gated by
// backoff state and (optionally) per-user schedules. Last-run records
// are written only after a confirmed send.
func Run(ctx context.Context, st *store.Store, cfg *config.Config, source Source, sender Sender, opts *Options) (*Result, error) {
	startTime := time.Now()

	backoff, err := LoadBackoffState(st)
	if err != nil {
		return nil, fmt.Errorf("loading backoff state: %w", err)
	}

	if backoff.ConsecutiveFailures > 0 && backoff.LastFailureTime.Valid {
		delay := backoff.GetDelay()
		elapsed := time.Since(backoff.LastFailureTime.Time)
		if elapsed < delay {
			remaining := delay - elapsed
			return &Result{
				Skipped:    true,
				SkipReason: fmt.Sprintf("in backoff, retry in %s", remaining.Round(time.Second)),
			}, nil
		}
	}

	result, runErr := run(ctx, st, cfg, source, sender, opts)

	duration := time.Since(startTime).Milliseconds()

	if runErr != nil {
		backoff.RecordFailure()
		_ = SaveBackoffState(st, backoff)
		_ = st.LogRun(0, 0, runErr.Error(), duration)
		return nil, runErr
	}

	backoff.RecordSuccess()
	_ = SaveBackoffState(st, backoff)
	if !result.Skipped {
		_ = st.LogRun(result.Summary.TotalPRs, result.Summary.Sent, result.Warning, duration)
	}

	return result, nil
}

func run(ctx context.Context, st *store.Store, cfg *config.Config, source Source, sender Sender, opts *Options) (*Result, error) {
	if opts == nil {
		opts = &Options{}
	}

	// One clock sample for the whole run keeps classification and
	// schedule evaluation on a consistent snapshot.
	now := time.Now().UTC()

	users := cfg.Usernames
	notDue := map[string]bool{}
	if opts.CheckSchedule && !opts.Force {
		due := make([]string, 0, len(users))
		for _, user := range users {
			lastRun, err := st.GetLastRun(user)
			if err != nil {
				return nil, fmt.Errorf("reading last run for %s: %w", user, err)
			}
			if schedule.IsDue(cfg.Schedules[user], lastRun, now) {
				due = append(due, user)
			} else {
				notDue[user] = true
			}
		}
		if len(due) == 0 {
			return &Result{Skipped: true, SkipReason: "no user schedules due"}, nil
		}
		users = due
	}

	payloads, totalPRs, warning, err := BuildPayloads(ctx, cfg, source, users, now, opts.IncludeDrafts)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Payloads:     payloads,
		Consolidated: notify.ComposeConsolidated(payloads, now),
		Warning:      warning,
		Summary:      Summary{TotalPRs: totalPRs},
	}

	for _, user := range cfg.Usernames {
		if notDue[user] {
			result.Users = append(result.Users, UserResult{User: user, Status: StatusNotDue})
			continue
		}

		payload := payloads[user]
		if payload == nil {
			result.Users = append(result.Users, UserResult{User: user, Status: StatusNoAction})
			result.Summary.Suppressed++
			continue
		}

		if opts.DryRun {
			result.Users = append(result.Users, UserResult{User: user, Status: StatusDryRun, Payload: payload})
			continue
		}

		slackID := cfg.Slack.Users[user]
		if slackID == "" {
			result.Users = append(result.Users, UserResult{User: user, Status: StatusUnmapped, Payload: payload})
			result.Summary.Unmapped++
			continue
		}

		if err := sender.SendDM(ctx, slackID, payload.Message); err != nil {
			result.Users = append(result.Users, UserResult{User: user, Status: StatusFailed, Payload: payload})
			result.Summary.Failed++
			continue
		}

		if err := st.SetLastRun(user, now); err != nil {
			return nil, fmt.Errorf("recording last run for %s: %w", user, err)
		}
		result.Users = append(result.Users, UserResult{User: user, Status: StatusSent, Payload: payload})
		result.Summary.Sent++
	}

	return result, nil
}

// BuildPayloads is the classification pipeline: it produces per-user
// notification payloads without any delivery side effects. Users with
// nothing to act on map to a nil payload.
func BuildPayloads(ctx context.Context, cfg *config.Config, source Source, users []string, now time.Time, includeDrafts bool) (map[string]*notify.Payload, int, string, error) {
	repos := cfg.ParsedRepos()

	openPRs, searchErr := source.SearchPRs(ctx, repos, users, "open", cfg.DaysBack)
	requested, requestedErr := source.SearchReviewRequestedPRs(ctx, repos, users)

	requestedCount := 0
	for _, prs := range requested {
		requestedCount += len(prs)
	}
	if joined := errors.Join(searchErr, requestedErr); joined != nil && len(openPRs) == 0 && requestedCount == 0 {
		return nil, 0, "", fmt.Errorf("searching PRs: %w", joined)
	}

	var warning string
	if err := errors.Join(searchErr, requestedErr); err != nil {
		warning = "partial search results: " + err.Error()
	}

	keys := make([]fetch.Key, 0, len(openPRs)+requestedCount)
	for _, pr := range openPRs {
		keys = append(keys, fetch.KeyOf(pr))
	}
	for _, prs := range requested {
		for _, pr := range prs {
			keys = append(keys, fetch.KeyOf(pr))
		}
	}

	results := fetch.New(source, cfg.DetailWorkers).FetchAll(ctx, keys)

	filters := cfg.ClassifyFilters()
	if includeDrafts {
		filters.ExcludeDrafts = false
	}
	thresholds := cfg.ClassifyThresholds()

	// Canonical user per lowercased login, so grouping survives case
	// differences between config and API responses.
	userByLogin := make(map[string]string, len(users))
	for _, u := range users {
		userByLogin[strings.ToLower(u)] = u
	}

	itemsByUser := make(map[string][]notify.AttentionItem)
	for _, pr := range openPRs {
		res := results[fetch.KeyOf(pr)]

		record := pr
		if res.Details != nil {
			record = *res.Details
		}

		enriched := classify.Enrich(record, res.IssueComments, res.ReviewComments, res.Reviews)
		if !classify.Include(enriched, filters) {
			continue
		}
		findings := classify.Classify(enriched, thresholds, now)
		if len(findings) == 0 {
			continue
		}

		user, ok := userByLogin[strings.ToLower(record.Author)]
		if !ok {
			continue
		}
		itemsByUser[user] = append(itemsByUser[user], notify.AttentionItem{PR: enriched, Findings: findings})
	}

	obligations := review.Resolve(requested, func(owner, repo string, number int) []github.Review {
		return results[fetch.Key{Owner: owner, Repo: repo, Number: number}].Reviews
	}, cfg.Thresholds.ReviewSLAHours, now)

	payloads := make(map[string]*notify.Payload, len(users))
	for _, user := range users {
		payloads[user] = notify.Compose(user, cfg.Slack.DisplayNames[user], itemsByUser[user], obligations[user], now)
	}

	return payloads, len(openPRs), warning, nil
}
