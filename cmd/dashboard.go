package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"pr-pulse/internal/config"
	"pr-pulse/internal/dashboard"
	"pr-pulse/internal/github"
)

var (
	dashState string
	dashDays  int
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3B82F6"))
	draftStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	mergedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render the team PR dashboard",
	Long:  `Display open PRs, closed PRs, or per-user merge/review activity for the tracked repositories.`,
	RunE:  runDashboard,
}

func init() {
	dashboardCmd.Flags().StringVar(&dashState, "state", "open", "View to render: open, closed, or activity")
	dashboardCmd.Flags().IntVar(&dashDays, "days", 0, "Look-back window in days (default from config)")
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigPath(), GetRepos())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if dashDays > 0 {
		cfg.DaysBack = dashDays
	}

	source := github.NewClient(cfg.GithubToken, cfg.SearchWorkers)
	ctx := cmd.Context()
	now := time.Now().UTC()

	switch dashState {
	case "open":
		view, err := dashboard.BuildOpen(ctx, cfg, source, cfg.Usernames, now)
		if err != nil {
			return fmt.Errorf("building open view: %w", err)
		}
		printOpenView(view)

	case "closed":
		view, err := dashboard.BuildClosed(ctx, cfg, source, cfg.Usernames, now)
		if err != nil {
			return fmt.Errorf("building closed view: %w", err)
		}
		printClosedView(view)

	case "activity":
		rows, err := dashboard.BuildActivity(ctx, cfg, source, cfg.Usernames)
		if err != nil {
			return fmt.Errorf("building activity view: %w", err)
		}
		printActivityView(rows)

	default:
		return fmt.Errorf("unknown state %q (want open, closed, or activity)", dashState)
	}
	return nil
}

func printOpenView(view *dashboard.OpenView) {
	fmt.Println(headerStyle.Render("=== Open Pull Requests ==="))
	fmt.Printf("Total: %d  Drafts: %d  Awaiting approval: %d  Avg age: %.1f days\n\n",
		view.Total, view.Drafts, view.AwaitingApproval, view.AvgAgeDays)

	if len(view.Rows) == 0 {
		fmt.Println("No open PRs found.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "AUTHOR\tREPO\t#\tTITLE\tDRAFT\tSUBMITTED\tLAST COMMENT\tFIRST APPROVAL\tAGE")
	for _, r := range view.Rows {
		draft := ""
		if r.Draft {
			draft = draftStyle.Render("draft")
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\t%dd\n",
			r.Author, r.Repo, r.Number, truncate(r.Title, 40), draft,
			r.SubmittedAt.Format("2006-01-02 15:04"),
			formatTime(r.LastComment), formatTime(r.FirstApproval), r.AgeDays)
	}
	w.Flush()
}

func printClosedView(view *dashboard.ClosedView) {
	fmt.Println(headerStyle.Render("=== Closed Pull Requests ==="))
	fmt.Printf("Total: %d  Merged: %d  Lines changed: %d  Avg lines/PR: %.0f\n\n",
		view.Total, view.Merged, view.TotalLines, view.AvgLines)

	if len(view.Rows) == 0 {
		fmt.Println("No closed PRs found.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "AUTHOR\tREPO\t#\tTITLE\tMERGED\tCREATED\tCLOSED\t+\t-")
	for _, r := range view.Rows {
		merged := "no"
		if r.Merged {
			merged = mergedStyle.Render("yes")
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\t%d\t%d\n",
			r.Author, r.Repo, r.Number, truncate(r.Title, 40), merged,
			r.CreatedAt.Format("2006-01-02"), formatDate(r.ClosedAt),
			r.Additions, r.Deletions)
	}
	w.Flush()

	fmt.Println()
	fmt.Println(headerStyle.Render("=== Lines Changed by Author ==="))
	for author, lines := range view.LinesByAuthor {
		fmt.Printf("%-24s %d\n", author, lines)
	}
}

func printActivityView(rows []dashboard.ActivityRow) {
	fmt.Println(headerStyle.Render("=== Team Activity ==="))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "USER\tMERGED\tREVIEWED")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%d\t%d\n", r.User, r.MergedPRs, r.ReviewedPRs)
	}
	w.Flush()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return t.Format("2006-01-02 15:04")
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return t.Format("2006-01-02")
}
