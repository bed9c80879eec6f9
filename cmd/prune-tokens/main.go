// Command prune-tokens deletes temporary tokens that have been expired
// longer than the retention window. It is intended to run from cron or a
// similar scheduler.
package main

import (
	"fmt"
	"os"

	"github.com/daniyousefifar/temptokens/config"
	"github.com/daniyousefifar/temptokens/database"
	"github.com/daniyousefifar/temptokens/services/logging"
	"github.com/daniyousefifar/temptokens/tokens"
	"github.com/urfave/cli/v2"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "prune-tokens",
		Usage: "delete temporary tokens expired longer than the retention window",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "hours",
				Usage: "retain expired tokens for this many `HOURS` (0 = configured default)",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "optional YAML config `FILE`",
			},
		},
		Action: prune,
	}
}

func prune(c *cli.Context) error {
	cfg := &config.Config{}
	if path := c.String("config"); path != "" {
		if err := config.LoadConfigFile(cfg, path); err != nil {
			return err
		}
	} else if err := config.LoadConfig(cfg); err != nil {
		return err
	}

	logger, err := logging.NewLoggingService(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.ProvideDatabase(*cfg)
	if err != nil {
		return err
	}

	service, err := tokens.ProvideTokenService(db, cfg, logger)
	if err != nil {
		return err
	}

	hours := c.Int("hours")
	deleted, err := service.PruneExpired(c.Context, hours)
	if err != nil {
		return err
	}

	if hours <= 0 {
		hours = cfg.Tokens.PruneExpiredAfterHours
	}
	fmt.Fprintf(c.App.Writer, "Tokens expired for more than [%d hours] pruned successfully: %d deleted.\n", hours, deleted)

	return nil
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "prune-tokens: %v\n", err)
		os.Exit(1)
	}
}
