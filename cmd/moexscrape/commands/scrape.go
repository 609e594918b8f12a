package commands

import (
	"fmt"
	"log/slog"
	"moex-scraper/internal/pipeline"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [locations...]",
	Short: "Scrapes the saved pages and writes their records to the configured storage.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig(configPath)
		if err != nil {
			return err
		}
		backend, err := cfg.Backend()
		if err != nil {
			return err
		}

		var selected []string
		if len(args) > 0 {
			selected = args
		}

		t1 := time.Now()
		report, err := pipeline.Run(cmd.Context(), pipeline.Options{
			PagesDir: cfg.PagesDir,
			Backend:  backend,
			Selected: selected,
		})
		if err != nil {
			return err
		}
		slog.Info("scraping time", "seconds", time.Since(t1).Seconds())

		t := newTable()
		t.AppendHeader(table.Row{"Location", "Records", "Error"})
		for _, p := range report.Pages {
			errText := ""
			if p.Err != nil {
				errText = p.Err.Error()
			}
			t.AppendRow(table.Row{p.Location, p.Records, errText})
		}
		t.AppendFooter(table.Row{"Written", report.Written(), ""})
		t.Render()

		failed := len(report.Failed())
		if failed > 0 {
			return fmt.Errorf("%d of %d pages failed", failed, len(report.Pages))
		}
		return nil
	},
}
