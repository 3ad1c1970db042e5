package fetch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pr-pulse/internal/github"
)

// fakeSource counts calls and can fail specific sub-resources.
type fakeSource struct {
	mu          sync.Mutex
	detailCalls map[Key]int

	failReviewsFor map[Key]bool
	reviews        map[Key][]github.Review
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		detailCalls:    make(map[Key]int),
		failReviewsFor: make(map[Key]bool),
		reviews:        make(map[Key][]github.Review),
	}
}

func (f *fakeSource) GetPRDetails(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error) {
	key := Key{Owner: owner, Repo: repo, Number: number}
	f.mu.Lock()
	f.detailCalls[key]++
	f.mu.Unlock()
	return &github.PullRequest{Owner: owner, Repo: repo, Number: number, State: "open"}, nil
}

func (f *fakeSource) GetPRReviews(ctx context.Context, owner, repo string, number int) ([]github.Review, error) {
	key := Key{Owner: owner, Repo: repo, Number: number}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReviewsFor[key] {
		return nil, errors.New("boom")
	}
	return f.reviews[key], nil
}

func (f *fakeSource) GetPRIssueComments(ctx context.Context, owner, repo string, number int) ([]github.Comment, error) {
	return nil, nil
}

func (f *fakeSource) GetPRReviewComments(ctx context.Context, owner, repo string, number int) ([]github.Comment, error) {
	return nil, nil
}

func keys(n int) []Key {
	out := make([]Key, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, Key{Owner: "acme", Repo: "widgets", Number: i})
	}
	return out
}

func TestFetchAll_CoversEveryKey(t *testing.T) {
	source := newFakeSource()
	fetcher := New(source, 3)

	results := fetcher.FetchAll(context.Background(), keys(10))

	if len(results) != 10 {
		t.Fatalf("expected 10 results, got %d", len(results))
	}
	for _, k := range keys(10) {
		res, ok := results[k]
		if !ok {
			t.Fatalf("missing result for %v", k)
		}
		if res.Details == nil {
			t.Errorf("expected details for %v", k)
		}
	}
}

func TestFetchAll_PartialFailureDoesNotAbortBatch(t *testing.T) {
	source := newFakeSource()
	failing := Key{Owner: "acme", Repo: "widgets", Number: 3}
	source.failReviewsFor[failing] = true
	for _, k := range keys(10) {
		if k != failing {
			source.reviews[k] = []github.Review{
				{Reviewer: "r", State: "APPROVED", SubmittedAt: time.Now()},
			}
		}
	}

	results := New(source, 4).FetchAll(context.Background(), keys(10))

	if len(results) != 10 {
		t.Fatalf("expected 10 results despite failure, got %d", len(results))
	}

	res := results[failing]
	if len(res.Reviews) != 0 {
		t.Errorf("expected empty reviews for failing key, got %d", len(res.Reviews))
	}
	if res.ReviewsErr == nil {
		t.Error("expected the review failure to be visible on the result")
	}
	if !res.Degraded() {
		t.Error("expected failing key to be flagged degraded")
	}

	for _, k := range keys(10) {
		if k == failing {
			continue
		}
		if results[k].Degraded() {
			t.Errorf("expected sibling %v untouched by the failure", k)
		}
		if len(results[k].Reviews) != 1 {
			t.Errorf("expected sibling %v reviews intact", k)
		}
	}
}

func TestFetchAll_DeduplicatesKeys(t *testing.T) {
	source := newFakeSource()
	key := Key{Owner: "acme", Repo: "widgets", Number: 1}

	duplicated := []Key{key, key, key}
	results := New(source, 2).FetchAll(context.Background(), duplicated)

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if calls := source.detailCalls[key]; calls != 1 {
		t.Errorf("expected 1 detail fetch, got %d", calls)
	}
}

func TestKeyOf(t *testing.T) {
	pr := github.PullRequest{Owner: "acme", Repo: "widgets", Number: 42}
	want := Key{Owner: "acme", Repo: "widgets", Number: 42}
	if got := KeyOf(pr); got != want {
		t.Errorf("expected %v, got %v", want, got)
	}
}
