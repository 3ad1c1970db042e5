// Package httpapi serves dashboard data as JSON for external UIs.
// Presentation only; it never sends notifications or mutates state.
package httpapi

import (
	"context"

	"github.com/gin-gonic/gin"

	"pr-pulse/internal/config"
	"pr-pulse/internal/fetch"
	"pr-pulse/internal/github"
	"pr-pulse/internal/store"
)

// Source combines everything the API handlers read from GitHub.
// *github.Client satisfies it.
type Source interface {
	fetch.Source
	SearchPRs(ctx context.Context, repos []github.Repo, usernames []string, state string, daysBack int) ([]github.PullRequest, error)
	SearchReviewRequestedPRs(ctx context.Context, repos []github.Repo, usernames []string) (map[string][]github.PullRequest, error)
	SearchMergedPRs(ctx context.Context, repos []github.Repo, usernames []string, daysBack int) ([]github.PullRequest, error)
	SearchReviewedPRs(ctx context.Context, repos []github.Repo, usernames []string, daysBack int) (map[string][]github.PullRequest, error)
}

type Handler struct {
	cfg    *config.Config
	source Source
	store  *store.Store
}

func NewRouter(cfg *config.Config, source Source, st *store.Store) *gin.Engine {
	h := &Handler{cfg: cfg, source: source, store: st}
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })

	r.GET("/api/dashboard", h.HandleDashboard)
	r.GET("/api/attention", h.HandleAttention)
	r.GET("/api/schedules", h.HandleSchedules)

	return r
}
