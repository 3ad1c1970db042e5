// Package fetch gathers the full activity record for many PRs in
// parallel: per-PR fan-out bounded by a worker pool, and the four
// sub-resources of each PR (metadata, reviews, issue comments, review
// comments) fetched concurrently with each other.
package fetch

import (
	"context"
	"sync"

	"pr-pulse/internal/github"
)

// DefaultWorkers bounds the per-PR detail fan-out.
const DefaultWorkers = 4

// Key identifies a PR across repositories.
type Key struct {
	Owner  string
	Repo   string
	Number int
}

func KeyOf(pr github.PullRequest) Key {
	return Key{Owner: pr.Owner, Repo: pr.Repo, Number: pr.Number}
}

// Source is the subset of the GitHub client the fetcher needs.
type Source interface {
	GetPRDetails(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error)
	GetPRReviews(ctx context.Context, owner, repo string, number int) ([]github.Review, error)
	GetPRIssueComments(ctx context.Context, owner, repo string, number int) ([]github.Comment, error)
	GetPRReviewComments(ctx context.Context, owner, repo string, number int) ([]github.Comment, error)
}

// Result holds one PR's sub-resources. A failed sub-fetch leaves its
// value empty and records the error, so callers (and tests) can tell
// "no reviews" apart from "review fetch failed" while the batch itself
// never aborts.
type Result struct {
	Details        *github.PullRequest
	Reviews        []github.Review
	IssueComments  []github.Comment
	ReviewComments []github.Comment

	DetailsErr        error
	ReviewsErr        error
	IssueCommentsErr  error
	ReviewCommentsErr error
}

// Degraded reports whether any sub-fetch failed for this PR.
func (r Result) Degraded() bool {
	return r.DetailsErr != nil || r.ReviewsErr != nil ||
		r.IssueCommentsErr != nil || r.ReviewCommentsErr != nil
}

type Fetcher struct {
	source  Source
	workers int
}

func New(source Source, workers int) *Fetcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Fetcher{source: source, workers: workers}
}

// FetchAll retrieves all four sub-resources for every key. Keys are
// deduplicated before dispatch, so no key is fetched twice. The result
// always covers every requested key; completion order is irrelevant
// since results are merged into a map.
func (f *Fetcher) FetchAll(ctx context.Context, keys []Key) map[Key]Result {
	unique := make([]Key, 0, len(keys))
	seen := make(map[Key]bool, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			unique = append(unique, k)
		}
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[Key]Result, len(unique))
	)
	sem := make(chan struct{}, f.workers)

	for _, key := range unique {
		wg.Add(1)
		go func(key Key) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res := f.fetchOne(ctx, key)

			mu.Lock()
			results[key] = res
			mu.Unlock()
		}(key)
	}
	wg.Wait()

	return results
}

func (f *Fetcher) fetchOne(ctx context.Context, key Key) Result {
	var (
		res Result
		wg  sync.WaitGroup
	)
	wg.Add(4)

	go func() {
		defer wg.Done()
		res.Details, res.DetailsErr = f.source.GetPRDetails(ctx, key.Owner, key.Repo, key.Number)
	}()
	go func() {
		defer wg.Done()
		res.Reviews, res.ReviewsErr = f.source.GetPRReviews(ctx, key.Owner, key.Repo, key.Number)
	}()
	go func() {
		defer wg.Done()
		res.IssueComments, res.IssueCommentsErr = f.source.GetPRIssueComments(ctx, key.Owner, key.Repo, key.Number)
	}()
	go func() {
		defer wg.Done()
		res.ReviewComments, res.ReviewCommentsErr = f.source.GetPRReviewComments(ctx, key.Owner, key.Repo, key.Number)
	}()

	wg.Wait()
	return res
}
