package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("SLACK_BOT_TOKEN", "")
	t.Setenv("PR_PULSE_REPOS", "")

	// Point at a path that does not exist so only defaults apply.
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"), nil)
	require.NoError(t, err)

	assert.Equal(t, 90, cfg.DaysBack)
	assert.Equal(t, 10, cfg.SearchWorkers)
	assert.Equal(t, 4, cfg.DetailWorkers)
	assert.Equal(t, 24, cfg.Thresholds.InactivityHours)
	assert.Equal(t, 1, cfg.Thresholds.ApprovalDays)
	assert.Equal(t, 7, cfg.Thresholds.DraftStaleDays)
	assert.Equal(t, 24, cfg.Thresholds.ReviewSLAHours)
	assert.True(t, cfg.Filters.ExcludeDrafts)
	assert.True(t, cfg.Filters.ExcludeCherryPicks)
	assert.NotEmpty(t, cfg.DBPath)
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("SLACK_BOT_TOKEN", "")
	t.Setenv("PR_PULSE_REPOS", "")

	path := writeConfig(t, `
repos = ["acme/widgets", "acme/gadgets"]
usernames = ["dev1", "dev2"]
github_token = "file-token"
days_back = 30

[thresholds]
inactivity_hours = 48
review_sla_hours = 12

[filters]
exclude_drafts = false

[slack]
bot_token = "xoxb-file"

[slack.users]
dev1 = "U123"

[slack.display_names]
dev1 = "Dev One"

[schedules.dev1]
enabled = true
frequency = "daily"
time = "09:00"
timezone = "America/New_York"
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"acme/widgets", "acme/gadgets"}, cfg.Repos)
	assert.Equal(t, []string{"dev1", "dev2"}, cfg.Usernames)
	assert.Equal(t, "file-token", cfg.GithubToken)
	assert.Equal(t, 30, cfg.DaysBack)
	assert.Equal(t, 48, cfg.Thresholds.InactivityHours)
	assert.Equal(t, 12, cfg.Thresholds.ReviewSLAHours)
	// Untouched thresholds keep their defaults.
	assert.Equal(t, 7, cfg.Thresholds.DraftStaleDays)
	assert.False(t, cfg.Filters.ExcludeDrafts)
	assert.Equal(t, "xoxb-file", cfg.Slack.BotToken)
	assert.Equal(t, "U123", cfg.Slack.Users["dev1"])
	assert.Equal(t, "Dev One", cfg.Slack.DisplayNames["dev1"])

	sched, ok := cfg.Schedules["dev1"]
	require.True(t, ok)
	assert.True(t, sched.Enabled)
	assert.Equal(t, "daily", sched.Frequency)
	assert.Equal(t, "09:00", sched.Time)
	assert.Equal(t, "America/New_York", sched.Timezone)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
github_token = "file-token"
repos = ["acme/widgets"]

[slack]
bot_token = "xoxb-file"
`)

	t.Setenv("GITHUB_TOKEN", "env-token")
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-env")
	t.Setenv("PR_PULSE_REPOS", "acme/env-repo, acme/other")

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.GithubToken)
	assert.Equal(t, "xoxb-env", cfg.Slack.BotToken)
	assert.Equal(t, []string{"acme/env-repo", "acme/other"}, cfg.Repos)
}

func TestLoadCLIReposWin(t *testing.T) {
	t.Setenv("PR_PULSE_REPOS", "acme/env-repo")
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("SLACK_BOT_TOKEN", "")

	path := writeConfig(t, `repos = ["acme/file-repo"]`)

	cfg, err := Load(path, []string{"acme/cli-repo"})
	require.NoError(t, err)
	assert.Equal(t, []string{"acme/cli-repo"}, cfg.Repos)
}

func TestParsedReposSkipsMalformed(t *testing.T) {
	cfg := &Config{Repos: []string{"acme/widgets", "nonsense", "", "acme/gadgets"}}

	repos := cfg.ParsedRepos()
	require.Len(t, repos, 2)
	assert.Equal(t, "acme", repos[0].Owner)
	assert.Equal(t, "widgets", repos[0].Name)
	assert.Equal(t, "gadgets", repos[1].Name)
}

func TestLoadBadTOML(t *testing.T) {
	path := writeConfig(t, `repos = [unterminated`)

	_, err := Load(path, nil)
	assert.Error(t, err)
}
