package main

import (
	"context"
	"errors"
	"log/slog"
	"moex-scraper/cmd/moexscrape/commands"
	"moex-scraper/lib/configutil"
	"moex-scraper/lib/osutil"
	"moex-scraper/lib/telemetry"
	"time"
)

func main() {
	telemetry.InitSlog(false)

	ctx, cancel := osutil.SignalContext(context.Background())
	defer cancel()

	tel, err := telemetry.SetupFromEnv(ctx, "moexscrape")
	if err == nil {
		defer func() {
			err := tel.Shutdown(context.Background())
			if err != nil {
				slog.Warn("failed to shutdown telemetry", "err", err)
			}
		}()
		telemetry.InstrumentPerfStats(ctx, time.Second*15)
	} else if !errors.Is(err, configutil.ErrNotFound) {
		slog.Warn("failed to setup telemetry", "err", err)
	}

	commands.ExecuteContext(ctx)
}
