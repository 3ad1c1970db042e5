package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"pr-pulse/internal/classify"
	"pr-pulse/internal/github"
	"pr-pulse/internal/review"
	"pr-pulse/internal/schedule"
)

type Thresholds struct {
	InactivityHours int `toml:"inactivity_hours"`
	ApprovalDays    int `toml:"approval_days"`
	DraftStaleDays  int `toml:"draft_stale_days"`
	ReviewSLAHours  int `toml:"review_sla_hours"`
}

type Filters struct {
	ExcludeDrafts      bool `toml:"exclude_drafts"`
	ExcludeCherryPicks bool `toml:"exclude_cherry_picks"`
}

type Slack struct {
	BotToken string `toml:"bot_token"`
	// Users maps GitHub login -> Slack member ID.
	Users map[string]string `toml:"users"`
	// DisplayNames maps GitHub login -> greeting name.
	DisplayNames map[string]string `toml:"display_names"`
}

type Config struct {
	Repos         []string `toml:"repos"` // "owner/name"
	Usernames     []string `toml:"usernames"`
	GithubToken   string   `toml:"github_token"`
	DaysBack      int      `toml:"days_back"`
	DBPath        string   `toml:"db_path"`
	SearchWorkers int      `toml:"search_workers"`
	DetailWorkers int      `toml:"detail_workers"`

	Thresholds Thresholds               `toml:"thresholds"`
	Filters    Filters                  `toml:"filters"`
	Slack      Slack                    `toml:"slack"`
	Schedules  map[string]schedule.Spec `toml:"schedules"`

	ConfigPath string `toml:"-"`
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "pr-pulse", "config.toml")
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "pr-pulse", "state.db")
}

// Load reads the TOML config, then applies .env and environment
// overrides, then CLI overrides. The returned struct is the only
// configuration surface; core packages never consult the environment.
func Load(configPath string, cliRepos []string) (*Config, error) {
	_ = godotenv.Load()

	def := classify.DefaultThresholds()
	cfg := &Config{
		DaysBack:      90,
		DBPath:        defaultDBPath(),
		SearchWorkers: github.DefaultSearchWorkers,
		DetailWorkers: 4,
		Thresholds: Thresholds{
			InactivityHours: def.InactivityHours,
			ApprovalDays:    def.ApprovalDays,
			DraftStaleDays:  def.DraftStaleDays,
			ReviewSLAHours:  review.DefaultSLAHours,
		},
		Filters: Filters{
			ExcludeDrafts:      true,
			ExcludeCherryPicks: true,
		},
	}

	if configPath == "" {
		configPath = defaultConfigPath()
	}
	cfg.ConfigPath = configPath

	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		cfg.GithubToken = token
	}
	if token := os.Getenv("SLACK_BOT_TOKEN"); token != "" {
		cfg.Slack.BotToken = token
	}
	if envRepos := os.Getenv("PR_PULSE_REPOS"); envRepos != "" {
		cfg.Repos = splitAndTrim(envRepos, ",")
	}
	if len(cliRepos) > 0 {
		cfg.Repos = cliRepos
	}

	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath()
	}

	return cfg, nil
}

// ParsedRepos returns the tracked repositories, skipping malformed
// entries without an owner/name pair.
func (c *Config) ParsedRepos() []github.Repo {
	repos := make([]github.Repo, 0, len(c.Repos))
	for _, s := range c.Repos {
		r := github.ParseRepo(s)
		if r.Owner != "" && r.Name != "" {
			repos = append(repos, r)
		}
	}
	return repos
}

func (c *Config) ClassifyThresholds() classify.Thresholds {
	return classify.Thresholds{
		InactivityHours: c.Thresholds.InactivityHours,
		ApprovalDays:    c.Thresholds.ApprovalDays,
		DraftStaleDays:  c.Thresholds.DraftStaleDays,
	}
}

func (c *Config) ClassifyFilters() classify.Filters {
	return classify.Filters{
		ExcludeDrafts:      c.Filters.ExcludeDrafts,
		ExcludeCherryPicks: c.Filters.ExcludeCherryPicks,
	}
}

func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
