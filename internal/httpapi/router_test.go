package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pr-pulse/internal/config"
	"pr-pulse/internal/github"
	"pr-pulse/internal/store"
)

type fakeSource struct {
	openPRs   []github.PullRequest
	mergedPRs []github.PullRequest
}

func (f *fakeSource) SearchPRs(ctx context.Context, repos []github.Repo, usernames []string, state string, daysBack int) ([]github.PullRequest, error) {
	return f.openPRs, nil
}

func (f *fakeSource) SearchReviewRequestedPRs(ctx context.Context, repos []github.Repo, usernames []string) (map[string][]github.PullRequest, error) {
	return map[string][]github.PullRequest{}, nil
}

func (f *fakeSource) SearchMergedPRs(ctx context.Context, repos []github.Repo, usernames []string, daysBack int) ([]github.PullRequest, error) {
	return f.mergedPRs, nil
}

func (f *fakeSource) SearchReviewedPRs(ctx context.Context, repos []github.Repo, usernames []string, daysBack int) (map[string][]github.PullRequest, error) {
	return map[string][]github.PullRequest{}, nil
}

func (f *fakeSource) GetPRDetails(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error) {
	return nil, nil
}

func (f *fakeSource) GetPRReviews(ctx context.Context, owner, repo string, number int) ([]github.Review, error) {
	return nil, nil
}

func (f *fakeSource) GetPRIssueComments(ctx context.Context, owner, repo string, number int) ([]github.Comment, error) {
	return nil, nil
}

func (f *fakeSource) GetPRReviewComments(ctx context.Context, owner, repo string, number int) ([]github.Comment, error) {
	return nil, nil
}

func newTestRouter(t *testing.T, source *fakeSource) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := &config.Config{
		Repos:         []string{"acme/widgets"},
		Usernames:     []string{"dev1"},
		DaysBack:      90,
		DetailWorkers: 2,
		Thresholds: config.Thresholds{
			InactivityHours: 24,
			ApprovalDays:    1,
			DraftStaleDays:  7,
			ReviewSLAHours:  24,
		},
	}
	return NewRouter(cfg, source, st)
}

func doGET(t *testing.T, r *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := doGET(t, newTestRouter(t, &fakeSource{}), "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestDashboardOpen(t *testing.T) {
	source := &fakeSource{openPRs: []github.PullRequest{{
		Owner:     "acme",
		Repo:      "widgets",
		Number:    1,
		Author:    "dev1",
		Title:     "A change",
		CreatedAt: time.Now().UTC().Add(-48 * time.Hour),
		State:     "open",
	}}}

	w := doGET(t, newTestRouter(t, source), "/api/dashboard?state=open")
	require.Equal(t, http.StatusOK, w.Code)

	var view struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, 1, view.Total)
}

func TestDashboardBadState(t *testing.T) {
	w := doGET(t, newTestRouter(t, &fakeSource{}), "/api/dashboard?state=bogus")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "BAD_REQUEST")
}

func TestDashboardBadDays(t *testing.T) {
	w := doGET(t, newTestRouter(t, &fakeSource{}), "/api/dashboard?days=-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttention(t *testing.T) {
	source := &fakeSource{openPRs: []github.PullRequest{{
		Owner:     "acme",
		Repo:      "widgets",
		Number:    1,
		Author:    "dev1",
		Title:     "Needs a nudge",
		CreatedAt: time.Now().UTC().Add(-48 * time.Hour),
		State:     "open",
	}}}

	w := doGET(t, newTestRouter(t, source), "/api/attention")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		TotalPRs int `json:"total_prs"`
		Users    map[string]struct {
			Status    string `json:"status"`
			Attention int    `json:"attention"`
		} `json:"users"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.TotalPRs)
	require.Contains(t, body.Users, "dev1")
	assert.Equal(t, "needs_attention", body.Users["dev1"].Status)
	assert.Equal(t, 1, body.Users["dev1"].Attention)
}

func TestSchedules(t *testing.T) {
	w := doGET(t, newTestRouter(t, &fakeSource{}), "/api/schedules")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Schedules []struct {
			User       string `json:"user"`
			Configured bool   `json:"configured"`
			Due        bool   `json:"due"`
		} `json:"schedules"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Schedules, 1)
	assert.Equal(t, "dev1", body.Schedules[0].User)
	assert.False(t, body.Schedules[0].Configured)
	assert.False(t, body.Schedules[0].Due)
}
