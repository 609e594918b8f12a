package commands

import (
	"log/slog"
	"moex-scraper/internal/moex"
	"moex-scraper/lib/restyutil"

	"github.com/spf13/cobra"
)

var loadDump *string

func init() {
	loadDump = loadCmd.Flags().String("dump", "", "A directory to write every http exchange to, for debugging.")
	rootCmd.AddCommand(loadCmd)
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Downloads the archive page of every configured query into the pages directory.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig(configPath)
		if err != nil {
			return err
		}
		queries, err := cfg.ArchiveQueries()
		if err != nil {
			return err
		}

		var opts []moex.FetcherOption
		if cfg.CloudflareBypass {
			opts = append(opts, moex.WithCloudflareBypass())
		}
		if *loadDump != "" {
			output, err := restyutil.NewFilesystemOutput(*loadDump)
			if err != nil {
				return err
			}
			slog.Info("dumping http exchanges", "dir", output.Dir())
			opts = append(opts, moex.WithExchangeDump(output))
		}

		fetcher := moex.NewHTTPFetcher(cfg.BaseUrl, cfg.UserAgent, opts...)
		paths, err := moex.LoadPages(cmd.Context(), fetcher, cfg.PagesDir, queries)
		for _, p := range paths {
			slog.Info("saved page", "path", p)
		}
		return err
	},
}
