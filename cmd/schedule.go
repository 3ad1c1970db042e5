package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"pr-pulse/internal/config"
	"pr-pulse/internal/schedule"
	"pr-pulse/internal/store"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Show per-user notification schedules and whether they are due",
	RunE:  runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigPath(), GetRepos())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	now := time.Now().UTC()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "USER\tFREQUENCY\tTIME\tTIMEZONE\tLAST RUN\tDUE")
	for _, user := range cfg.Usernames {
		spec, ok := cfg.Schedules[user]
		if !ok {
			fmt.Fprintf(w, "%s\t-\t\t\t\t\n", user)
			continue
		}

		lastRun, err := st.GetLastRun(user)
		if err != nil {
			return fmt.Errorf("reading last run for %s: %w", user, err)
		}

		last := "never"
		if lastRun != nil {
			last = lastRun.UTC().Format(time.RFC3339)
		}

		due := ""
		if schedule.IsDue(spec, lastRun, now) {
			due = "yes"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			user, describeFrequency(spec), spec.Time, spec.Timezone, last, due)
	}
	w.Flush()

	return nil
}

func describeFrequency(spec schedule.Spec) string {
	if !spec.Enabled {
		return spec.Frequency + " (disabled)"
	}
	switch spec.Frequency {
	case schedule.FrequencyWeekly:
		return fmt.Sprintf("weekly (%s)", strings.Join(spec.DaysOfWeek, ","))
	case schedule.FrequencyMonthly:
		return fmt.Sprintf("monthly (day %d)", spec.DayOfMonth)
	case schedule.FrequencyInterval:
		return fmt.Sprintf("every %d days", spec.IntervalDays)
	default:
		return spec.Frequency
	}
}
