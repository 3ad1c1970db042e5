package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pr-pulse/internal/config"
	"pr-pulse/internal/github"
	"pr-pulse/internal/notify"
	"pr-pulse/internal/pipeline"
	"pr-pulse/internal/store"
)

var (
	dryRun        bool
	checkSchedule bool
	force         bool
	includeDrafts bool
	consolidated  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Classify PRs and send Slack reminders",
	Long: `Search the tracked repositories for the team's pull requests, classify
the ones needing attention, resolve pending review requests, and DM each
user their reminder.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compose messages without sending them")
	runCmd.Flags().BoolVar(&checkSchedule, "check-schedule", false, "Only notify users whose schedule is due now")
	runCmd.Flags().BoolVar(&force, "force", false, "Bypass the schedule gate")
	runCmd.Flags().BoolVar(&includeDrafts, "include-drafts", false, "Include draft PRs in classification")
	runCmd.Flags().BoolVar(&consolidated, "consolidated", false, "Print the consolidated team summary")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigPath(), GetRepos())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	source := github.NewClient(cfg.GithubToken, cfg.SearchWorkers)
	sender := notify.NewSlackClient(cfg.Slack.BotToken)

	opts := &pipeline.Options{
		DryRun:        dryRun,
		CheckSchedule: checkSchedule,
		Force:         force,
		IncludeDrafts: includeDrafts,
	}

	result, err := pipeline.Run(cmd.Context(), st, cfg, source, sender, opts)
	if err != nil {
		return fmt.Errorf("running pipeline: %w", err)
	}

	if result.Skipped {
		if !GetQuiet() {
			fmt.Fprintf(os.Stderr, "Skipped: %s\n", result.SkipReason)
		}
		return nil
	}

	if !GetQuiet() {
		printRunResult(result)
	}
	return nil
}

func printRunResult(result *pipeline.Result) {
	if dryRun {
		for _, u := range result.Users {
			if u.Payload == nil {
				continue
			}
			fmt.Printf("--- Message for %s ---\n%s\n\n", u.User, u.Payload.Message)
		}
	}

	fmt.Println("--- Summary ---")
	for _, u := range result.Users {
		fmt.Printf("%s: %s\n", u.User, u.Status)
	}
	fmt.Printf("Found %d PRs (%d sent, %d failed, %d unmapped)\n",
		result.Summary.TotalPRs, result.Summary.Sent, result.Summary.Failed, result.Summary.Unmapped)
	if result.Warning != "" {
		fmt.Fprintln(os.Stderr, "Warning:", result.Warning)
	}

	if consolidated {
		fmt.Println()
		fmt.Println(result.Consolidated)
	}
}
