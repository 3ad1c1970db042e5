package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"pr-pulse/internal/config"
	"pr-pulse/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show last run info and per-user send history",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigPath(), GetRepos())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	lastRun, err := st.GetLastRunLog()
	if err != nil {
		return fmt.Errorf("getting last run: %w", err)
	}

	fmt.Println("=== Last Run ===")
	if lastRun == nil {
		fmt.Println("No runs recorded yet.")
	} else {
		ago := time.Since(lastRun.RunAt).Round(time.Second)
		fmt.Printf("Time:          %s (%s ago)\n", lastRun.RunAt.Format(time.RFC3339), ago)
		fmt.Printf("PRs found:     %d\n", lastRun.PRsFound)
		fmt.Printf("Notifications: %d\n", lastRun.NotificationsSent)
		if lastRun.DurationMs.Valid {
			fmt.Printf("Duration:      %dms\n", lastRun.DurationMs.Int64)
		}
		if lastRun.ErrorMessage.Valid && lastRun.ErrorMessage.String != "" {
			fmt.Printf("Note:          %s\n", lastRun.ErrorMessage.String)
		}
	}

	fmt.Println()

	sends, err := st.AllLastRuns()
	if err != nil {
		return fmt.Errorf("getting send history: %w", err)
	}

	fmt.Println("=== Last Sends ===")
	if len(sends) == 0 {
		fmt.Println("No notifications sent yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "USER\tLAST SENT\tAGO")
	for _, user := range cfg.Usernames {
		sentAt, ok := sends[user]
		if !ok {
			fmt.Fprintf(w, "%s\tnever\t\n", user)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", user,
			sentAt.Format(time.RFC3339), formatDuration(time.Since(sentAt)))
	}
	w.Flush()

	return nil
}

func formatDuration(d time.Duration) string {
	switch hours := int(d.Hours()); {
	case hours >= 24:
		return fmt.Sprintf("%dd", hours/24)
	case hours >= 1:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
}
