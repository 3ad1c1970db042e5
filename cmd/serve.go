package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"pr-pulse/internal/config"
	"pr-pulse/internal/github"
	"pr-pulse/internal/httpapi"
	"pr-pulse/internal/store"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve dashboard data over HTTP",
	Long:  `Expose the dashboard views, attention payloads, and schedule status as a JSON API for external UIs.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
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
	router := httpapi.NewRouter(cfg, source, st)

	log.Printf("serving pr-pulse API on %s", serveAddr)
	if err := router.Run(serveAddr); err != nil {
		return fmt.Errorf("serving API: %w", err)
	}
	return nil
}
