package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"pr-pulse/internal/dashboard"
	"pr-pulse/internal/pipeline"
	"pr-pulse/internal/schedule"
)

func errorJSON(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// HandleDashboard returns the open, closed, or activity view. The days
// query parameter overrides the configured look-back window.
func (h *Handler) HandleDashboard(c *gin.Context) {
	cfg := *h.cfg
	if days := c.Query("days"); days != "" {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			errorJSON(c, http.StatusBadRequest, "BAD_REQUEST", "days must be a positive integer")
			return
		}
		cfg.DaysBack = n
	}

	now := time.Now().UTC()
	ctx := c.Request.Context()

	switch state := c.DefaultQuery("state", "open"); state {
	case "open":
		view, err := dashboard.BuildOpen(ctx, &cfg, h.source, cfg.Usernames, now)
		if err != nil {
			errorJSON(c, http.StatusBadGateway, "UPSTREAM", err.Error())
			return
		}
		c.JSON(http.StatusOK, view)

	case "closed":
		view, err := dashboard.BuildClosed(ctx, &cfg, h.source, cfg.Usernames, now)
		if err != nil {
			errorJSON(c, http.StatusBadGateway, "UPSTREAM", err.Error())
			return
		}
		c.JSON(http.StatusOK, view)

	case "activity":
		rows, err := dashboard.BuildActivity(ctx, &cfg, h.source, cfg.Usernames)
		if err != nil {
			errorJSON(c, http.StatusBadGateway, "UPSTREAM", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"rows": rows})

	default:
		errorJSON(c, http.StatusBadRequest, "BAD_REQUEST", "state must be open, closed, or activity")
	}
}

// HandleAttention runs the classification pipeline without delivery and
// returns the per-user payloads plus the consolidated summary.
func (h *Handler) HandleAttention(c *gin.Context) {
	now := time.Now().UTC()

	payloads, totalPRs, warning, err := pipeline.BuildPayloads(
		c.Request.Context(), h.cfg, h.source, h.cfg.Usernames, now, false)
	if err != nil {
		errorJSON(c, http.StatusBadGateway, "UPSTREAM", err.Error())
		return
	}

	users := gin.H{}
	for user, p := range payloads {
		if p == nil {
			users[user] = gin.H{"status": "no_prs"}
			continue
		}
		users[user] = gin.H{
			"status":       "needs_attention",
			"attention":    len(p.Items),
			"obligations":  len(p.Obligations),
			"display_name": p.DisplayName,
			"message":      p.Message,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"total_prs": totalPRs,
		"warning":   warning,
		"users":     users,
	})
}

// HandleSchedules reports, per user, the schedule spec outcome at the
// current instant and the last confirmed send.
func (h *Handler) HandleSchedules(c *gin.Context) {
	now := time.Now().UTC()

	rows := make([]gin.H, 0, len(h.cfg.Usernames))
	for _, user := range h.cfg.Usernames {
		lastRun, err := h.store.GetLastRun(user)
		if err != nil {
			errorJSON(c, http.StatusInternalServerError, "INTERNAL", err.Error())
			return
		}

		spec, configured := h.cfg.Schedules[user]
		row := gin.H{
			"user":       user,
			"configured": configured,
			"due":        configured && schedule.IsDue(spec, lastRun, now),
		}
		if lastRun != nil {
			row["last_run"] = lastRun.UTC().Format(time.RFC3339)
		}
		rows = append(rows, row)
	}

	c.JSON(http.StatusOK, gin.H{"schedules": rows})
}
