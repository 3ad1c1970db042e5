package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	defaultBaseURL = "https://api.github.com"
	requestTimeout = 30 * time.Second

	// DefaultSearchWorkers bounds the per-user search fan-out.
	DefaultSearchWorkers = 10
)

// Client is a minimal HTTP client for the GitHub REST API. Search
// queries fan out per username, bounded by searchWorkers.
type Client struct {
	baseURL       string
	token         string
	searchWorkers int
	httpClient    *http.Client
}

func NewClient(token string, searchWorkers int) *Client {
	if searchWorkers <= 0 {
		searchWorkers = DefaultSearchWorkers
	}
	return &Client{
		baseURL:       defaultBaseURL,
		token:         token,
		searchWorkers: searchWorkers,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call github: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("github responded with status %s for %s", resp.Status, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode github response: %w", err)
	}
	return nil
}

// Wire shapes. The search endpoint returns issue-shaped items; the
// pulls endpoint additionally carries base branch and line counts.

type searchResponse struct {
	TotalCount int          `json:"total_count"`
	Items      []searchItem `json:"items"`
}

type searchItem struct {
	Number        int    `json:"number"`
	Title         string `json:"title"`
	State         string `json:"state"`
	Draft         bool   `json:"draft"`
	HTMLURL       string `json:"html_url"`
	RepositoryURL string `json:"repository_url"`
	CreatedAt     string `json:"created_at"`
	ClosedAt      string `json:"closed_at"`
	User          struct {
		Login string `json:"login"`
	} `json:"user"`
	PullRequest struct {
		MergedAt string `json:"merged_at"`
	} `json:"pull_request"`
}

type prDetail struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	State     string `json:"state"`
	Draft     bool   `json:"draft"`
	Merged    bool   `json:"merged"`
	HTMLURL   string `json:"html_url"`
	CreatedAt string `json:"created_at"`
	ClosedAt  string `json:"closed_at"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	User      struct {
		Login string `json:"login"`
	} `json:"user"`
	Base struct {
		Ref string `json:"ref"`
	} `json:"base"`
}

type reviewItem struct {
	State       string `json:"state"`
	SubmittedAt string `json:"submitted_at"`
	User        struct {
		Login string `json:"login"`
	} `json:"user"`
}

type commentItem struct {
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	User      struct {
		Login string `json:"login"`
	} `json:"user"`
}

func (it searchItem) toPullRequest(owner, repo string) PullRequest {
	return PullRequest{
		Owner:     owner,
		Repo:      repo,
		Number:    it.Number,
		Author:    it.User.Login,
		Title:     it.Title,
		CreatedAt: parseTime(it.CreatedAt),
		Draft:     it.Draft,
		URL:       it.HTMLURL,
		State:     it.State,
		Merged:    it.PullRequest.MergedAt != "",
		ClosedAt:  parseTime(it.ClosedAt),
	}
}

// searchPerUser runs one search query per username, bounded by
// searchWorkers. Results are filtered to the requested repository set;
// entries resolving to any other repository are skipped. Per-user
// failures leave that user's slice empty and are reported joined; the
// partial result map is always returned.
func (c *Client) searchPerUser(ctx context.Context, repos []Repo, usernames []string, query func(user string) string) (map[string][]PullRequest, error) {
	tracked := make(map[string]bool, len(repos))
	for _, r := range repos {
		tracked[strings.ToLower(r.String())] = true
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string][]PullRequest, len(usernames))
		errs    []error
	)
	sem := make(chan struct{}, c.searchWorkers)

	for _, user := range usernames {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			params := url.Values{}
			params.Set("q", query(user))
			params.Set("per_page", "100")
			params.Set("sort", "created")
			params.Set("order", "desc")

			var resp searchResponse
			err := c.get(ctx, "/search/issues", params, &resp)

			var prs []PullRequest
			if err == nil {
				for _, it := range resp.Items {
					owner, repo := ParseRepoURL(it.RepositoryURL)
					if owner == "" || !tracked[strings.ToLower(owner+"/"+repo)] {
						continue
					}
					prs = append(prs, it.toPullRequest(owner, repo))
				}
			}

			mu.Lock()
			defer mu.Unlock()
			results[user] = prs
			if err != nil {
				errs = append(errs, fmt.Errorf("search for %s: %w", user, err))
			}
		}(user)
	}
	wg.Wait()

	return results, errors.Join(errs...)
}

func flatten(byUser map[string][]PullRequest) []PullRequest {
	var all []PullRequest
	for _, prs := range byUser {
		all = append(all, prs...)
	}
	return all
}

// SearchPRs returns PRs authored by the given users in the given state,
// created within the last daysBack days, scoped to the tracked repos.
func (c *Client) SearchPRs(ctx context.Context, repos []Repo, usernames []string, state string, daysBack int) ([]PullRequest, error) {
	since := time.Now().UTC().AddDate(0, 0, -daysBack).Format("2006-01-02")
	byUser, err := c.searchPerUser(ctx, repos, usernames, func(user string) string {
		return fmt.Sprintf("is:pr author:%s state:%s created:>=%s", user, state, since)
	})
	return flatten(byUser), err
}

// SearchMergedPRs returns PRs authored by the given users merged within
// the last daysBack days.
func (c *Client) SearchMergedPRs(ctx context.Context, repos []Repo, usernames []string, daysBack int) ([]PullRequest, error) {
	since := time.Now().UTC().AddDate(0, 0, -daysBack).Format("2006-01-02")
	byUser, err := c.searchPerUser(ctx, repos, usernames, func(user string) string {
		return fmt.Sprintf("is:pr author:%s is:merged merged:>=%s", user, since)
	})
	return flatten(byUser), err
}

// SearchReviewRequestedPRs returns, per user, the open PRs where that
// user is a requested reviewer.
func (c *Client) SearchReviewRequestedPRs(ctx context.Context, repos []Repo, usernames []string) (map[string][]PullRequest, error) {
	return c.searchPerUser(ctx, repos, usernames, func(user string) string {
		return fmt.Sprintf("is:pr is:open review-requested:%s", user)
	})
}

// SearchReviewedPRs returns, per user, PRs that user has reviewed with
// activity within the last daysBack days.
func (c *Client) SearchReviewedPRs(ctx context.Context, repos []Repo, usernames []string, daysBack int) (map[string][]PullRequest, error) {
	since := time.Now().UTC().AddDate(0, 0, -daysBack).Format("2006-01-02")
	return c.searchPerUser(ctx, repos, usernames, func(user string) string {
		return fmt.Sprintf("is:pr reviewed-by:%s updated:>=%s", user, since)
	})
}

// GetPRDetails fetches the full PR record. Returns nil without error if
// the PR does not exist.
func (c *Client) GetPRDetails(ctx context.Context, owner, repo string, number int) (*PullRequest, error) {
	var d prDetail
	err := c.get(ctx, fmt.Sprintf("/repos/%s/%s/pulls/%d", owner, repo, number), nil, &d)
	if err != nil {
		if strings.Contains(err.Error(), "404") {
			return nil, nil
		}
		return nil, err
	}

	return &PullRequest{
		Owner:      owner,
		Repo:       repo,
		Number:     d.Number,
		Author:     d.User.Login,
		Title:      d.Title,
		CreatedAt:  parseTime(d.CreatedAt),
		Draft:      d.Draft,
		BaseBranch: d.Base.Ref,
		URL:        d.HTMLURL,
		State:      d.State,
		Merged:     d.Merged,
		ClosedAt:   parseTime(d.ClosedAt),
		Additions:  d.Additions,
		Deletions:  d.Deletions,
	}, nil
}

func (c *Client) GetPRReviews(ctx context.Context, owner, repo string, number int) ([]Review, error) {
	var items []reviewItem
	err := c.get(ctx, fmt.Sprintf("/repos/%s/%s/pulls/%d/reviews", owner, repo, number), nil, &items)
	if err != nil {
		return nil, err
	}

	reviews := make([]Review, 0, len(items))
	for _, it := range items {
		reviews = append(reviews, Review{
			Reviewer:    it.User.Login,
			State:       it.State,
			SubmittedAt: parseTime(it.SubmittedAt),
		})
	}
	return reviews, nil
}

func (c *Client) GetPRIssueComments(ctx context.Context, owner, repo string, number int) ([]Comment, error) {
	return c.getComments(ctx, fmt.Sprintf("/repos/%s/%s/issues/%d/comments", owner, repo, number))
}

func (c *Client) GetPRReviewComments(ctx context.Context, owner, repo string, number int) ([]Comment, error) {
	return c.getComments(ctx, fmt.Sprintf("/repos/%s/%s/pulls/%d/comments", owner, repo, number))
}

func (c *Client) getComments(ctx context.Context, path string) ([]Comment, error) {
	var items []commentItem
	if err := c.get(ctx, path, nil, &items); err != nil {
		return nil, err
	}

	comments := make([]Comment, 0, len(items))
	for _, it := range items {
		comments = append(comments, Comment{
			Author:    it.User.Login,
			CreatedAt: parseTime(it.CreatedAt),
			UpdatedAt: parseTime(it.UpdatedAt),
		})
	}
	return comments, nil
}
