package commands

import (
	"moex-scraper/internal/moex"
	"moex-scraper/internal/storage"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show <location>",
	Short: "Prints the records stored under a location.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig(configPath)
		if err != nil {
			return err
		}
		backend, err := cfg.Backend()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		var records []moex.IndexRecord
		err = storage.WithSession(ctx, backend, func(s storage.Session) error {
			records, err = s.Read(ctx, args[0])
			return err
		})
		if err != nil {
			return err
		}

		t := newTable()
		header := table.Row{}
		for _, c := range moex.Columns {
			header = append(header, c)
		}
		t.AppendHeader(header)
		configs := []table.ColumnConfig{}
		for i := 2; i <= len(moex.Columns); i++ {
			configs = append(configs, table.ColumnConfig{Number: i, Align: text.AlignRight})
		}
		t.SetColumnConfigs(configs)

		for _, r := range records {
			t.AppendRow(table.Row{
				r.Date.Format(moex.DateLayout),
				formatNumber(r.PriceAtOpening),
				formatNumber(r.MaxPrice),
				formatNumber(r.MinPrice),
				formatNumber(r.PriceAtClosure),
				formatNumber(r.VolumeOfTrade),
				formatNumber(r.Capitalization),
			})
		}
		t.Render()
		return nil
	},
}

// avoids the exponent notation %v uses for large volumes
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
