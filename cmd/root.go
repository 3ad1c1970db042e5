package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	repos      []string
	configPath string
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "pr-pulse",
	Short: "Track team PRs that need attention",
	Long: `pr-pulse aggregates pull-request activity across your team's
repositories, classifies PRs that need attention (inactive, approved but
unmerged, stale drafts, awaiting review), and reminds each contributor
over Slack on their own schedule.

It also renders a manager dashboard, as a terminal table or a JSON API.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&repos, "repo", nil, "Repository to track as owner/name (repeatable)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default ~/.config/pr-pulse/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")
}

func GetRepos() []string {
	return repos
}

func GetConfigPath() string {
	return configPath
}

func GetQuiet() bool {
	return quiet
}
