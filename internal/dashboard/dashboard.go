// Package dashboard assembles the manager-facing summaries rendered by
// the CLI table view and the JSON API.
package dashboard

import (
	"context"
	"sort"
	"time"

	"pr-pulse/internal/activity"
	"pr-pulse/internal/config"
	"pr-pulse/internal/fetch"
	"pr-pulse/internal/github"
)

// Source is the data-source surface the dashboard needs.
type Source interface {
	fetch.Source
	SearchPRs(ctx context.Context, repos []github.Repo, usernames []string, state string, daysBack int) ([]github.PullRequest, error)
	SearchMergedPRs(ctx context.Context, repos []github.Repo, usernames []string, daysBack int) ([]github.PullRequest, error)
	SearchReviewedPRs(ctx context.Context, repos []github.Repo, usernames []string, daysBack int) (map[string][]github.PullRequest, error)
}

type OpenRow struct {
	Author        string    `json:"author"`
	Repo          string    `json:"repo"`
	Number        int       `json:"number"`
	Title         string    `json:"title"`
	Draft         bool      `json:"draft"`
	SubmittedAt   time.Time `json:"submitted_at"`
	LastComment   time.Time `json:"last_comment,omitzero"`
	FirstApproval time.Time `json:"first_approval,omitzero"`
	AgeDays       int       `json:"age_days"`
	URL           string    `json:"url"`
}

type OpenView struct {
	Rows             []OpenRow `json:"rows"`
	Total            int       `json:"total"`
	Drafts           int       `json:"drafts"`
	AwaitingApproval int       `json:"awaiting_approval"`
	AvgAgeDays       float64   `json:"avg_age_days"`
}

type ClosedRow struct {
	Author     string    `json:"author"`
	Repo       string    `json:"repo"`
	Number     int       `json:"number"`
	Title      string    `json:"title"`
	Merged     bool      `json:"merged"`
	CreatedAt  time.Time `json:"created_at"`
	ClosedAt   time.Time `json:"closed_at,omitzero"`
	Additions  int       `json:"additions"`
	Deletions  int       `json:"deletions"`
	TotalLines int       `json:"total_lines"`
	URL        string    `json:"url"`
}

type ClosedView struct {
	Rows          []ClosedRow    `json:"rows"`
	Total         int            `json:"total"`
	Merged        int            `json:"merged"`
	TotalLines    int            `json:"total_lines"`
	AvgLines      float64        `json:"avg_lines"`
	LinesByAuthor map[string]int `json:"lines_by_author"`
}

type ActivityRow struct {
	User        string `json:"user"`
	MergedPRs   int    `json:"merged_prs"`
	ReviewedPRs int    `json:"reviewed_prs"`
}

// BuildOpen renders the open-PR view: per-PR submit time, last comment,
// first approval, and age, plus the headline metrics.
func BuildOpen(ctx context.Context, cfg *config.Config, source Source, users []string, now time.Time) (*OpenView, error) {
	prs, err := source.SearchPRs(ctx, cfg.ParsedRepos(), users, "open", cfg.DaysBack)
	if err != nil && len(prs) == 0 {
		return nil, err
	}

	keys := make([]fetch.Key, 0, len(prs))
	for _, pr := range prs {
		keys = append(keys, fetch.KeyOf(pr))
	}
	results := fetch.New(source, cfg.DetailWorkers).FetchAll(ctx, keys)

	view := &OpenView{Total: len(prs)}
	var ageSum int
	for _, pr := range prs {
		res := results[fetch.KeyOf(pr)]
		if res.Details != nil {
			pr = *res.Details
		}

		age := int(now.Sub(pr.CreatedAt).Hours() / 24)
		ageSum += age
		if pr.Draft {
			view.Drafts++
		}

		firstApproval := activity.FirstApproval(res.Reviews)
		if firstApproval.IsZero() {
			view.AwaitingApproval++
		}

		view.Rows = append(view.Rows, OpenRow{
			Author:        pr.Author,
			Repo:          pr.RepoFullName(),
			Number:        pr.Number,
			Title:         pr.Title,
			Draft:         pr.Draft,
			SubmittedAt:   pr.CreatedAt,
			LastComment:   activity.LastActivity(res.IssueComments, res.ReviewComments, nil),
			FirstApproval: firstApproval,
			AgeDays:       age,
			URL:           pr.URL,
		})
	}
	if view.Total > 0 {
		view.AvgAgeDays = float64(ageSum) / float64(view.Total)
	}

	return view, nil
}

// BuildClosed renders the closed-PR view with merge state and line
// counts, plus a per-author lines-changed summary.
func BuildClosed(ctx context.Context, cfg *config.Config, source Source, users []string, now time.Time) (*ClosedView, error) {
	prs, err := source.SearchPRs(ctx, cfg.ParsedRepos(), users, "closed", cfg.DaysBack)
	if err != nil && len(prs) == 0 {
		return nil, err
	}

	keys := make([]fetch.Key, 0, len(prs))
	for _, pr := range prs {
		keys = append(keys, fetch.KeyOf(pr))
	}
	results := fetch.New(source, cfg.DetailWorkers).FetchAll(ctx, keys)

	view := &ClosedView{
		Total:         len(prs),
		LinesByAuthor: make(map[string]int),
	}
	for _, pr := range prs {
		res := results[fetch.KeyOf(pr)]
		if res.Details != nil {
			pr = *res.Details
		}

		total := pr.Additions + pr.Deletions
		if pr.Merged {
			view.Merged++
		}
		view.TotalLines += total
		view.LinesByAuthor[pr.Author] += total

		view.Rows = append(view.Rows, ClosedRow{
			Author:     pr.Author,
			Repo:       pr.RepoFullName(),
			Number:     pr.Number,
			Title:      pr.Title,
			Merged:     pr.Merged,
			CreatedAt:  pr.CreatedAt,
			ClosedAt:   pr.ClosedAt,
			Additions:  pr.Additions,
			Deletions:  pr.Deletions,
			TotalLines: total,
			URL:        pr.URL,
		})
	}
	if view.Total > 0 {
		view.AvgLines = float64(view.TotalLines) / float64(view.Total)
	}

	return view, nil
}

// BuildActivity summarizes per-user merge and review throughput over
// the look-back window.
func BuildActivity(ctx context.Context, cfg *config.Config, source Source, users []string) ([]ActivityRow, error) {
	repos := cfg.ParsedRepos()

	merged, mergedErr := source.SearchMergedPRs(ctx, repos, users, cfg.DaysBack)
	reviewed, reviewedErr := source.SearchReviewedPRs(ctx, repos, users, cfg.DaysBack)
	if mergedErr != nil && reviewedErr != nil {
		return nil, mergedErr
	}

	mergedByAuthor := make(map[string]int)
	for _, pr := range merged {
		mergedByAuthor[pr.Author]++
	}

	rows := make([]ActivityRow, 0, len(users))
	for _, user := range users {
		rows = append(rows, ActivityRow{
			User:        user,
			MergedPRs:   mergedByAuthor[user],
			ReviewedPRs: len(reviewed[user]),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].MergedPRs > rows[j].MergedPRs
	})
	return rows, nil
}
