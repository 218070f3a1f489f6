package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"medj/internal/app"
	"medj/internal/config"
	"medj/internal/db"
	"medj/internal/indicators"
	"medj/internal/labs"
	"medj/internal/logging"
)

type options struct {
	update bool
	dryRun bool
	dsn    string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "import-indicators <file.csv>",
		Short: "Import lab indicators and their aliases from a CSV file",
		Long: `Reads a CSV of lab indicators (UTF-8 or Windows-1251; ';', ',', '|' or
tab separated) and upserts it into the lab_indicators tables. Existing
rows are only changed with --update; new aliases are always added.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logging.Setup(cfg.LogLevel, cfg.LogFormat)
			if opts.dsn == "" {
				opts.dsn = cfg.DatabaseURL
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			defs, err := indicators.ReadCSV(f)
			if err != nil {
				return err
			}
			if opts.dryRun {
				printDefinitions(cmd.OutOrStdout(), defs)
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			pool, err := db.ConnectPostgres(ctx, opts.dsn)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := run(ctx, cmd.OutOrStdout(), indicators.NewPostgresRepository(pool), defs, opts.update); err != nil {
				return err
			}
			// the import itself succeeded; running servers pick it up on their next refresh anyway
			if err := notifyReload(ctx, cfg.RedisURL); err != nil {
				logrus.WithError(err).Warn("⚠️ could not notify running servers")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.update, "update", false, "overwrite name, unit and bounds of existing indicators")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "parse the file and print what would be imported")
	cmd.Flags().StringVar(&opts.dsn, "database-url", "", "Postgres DSN (defaults to DATABASE_URL)")
	return cmd
}

func run(ctx context.Context, out io.Writer, repo indicators.Repository, defs []labs.IndicatorDefinition, update bool) error {
	stats, err := indicators.Import(ctx, repo, defs, update)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created %d, updated %d, skipped %d, aliases added %d\n",
		stats.Created, stats.Updated, stats.Skipped, stats.Aliases)
	return nil
}

// notifyReload tells every process watching the dictionary to rebuild its
// snapshot. Without REDIS_URL there is nobody to tell.
func notifyReload(ctx context.Context, redisURL string) error {
	rdb, err := app.NewRedis(ctx, redisURL)
	if err != nil || rdb == nil {
		return err
	}
	defer rdb.Close()

	if err := indicators.PublishInvalidation(ctx, rdb); err != nil {
		return err
	}
	logrus.WithField("channel", indicators.InvalidationChannel).Info("📣 indicator reload published")
	return nil
}

func printDefinitions(out io.Writer, defs []labs.IndicatorDefinition) {
	for _, d := range defs {
		fmt.Fprintf(out, "%s\t%s\t%s\t%v\n",
			d.Name, d.Unit, labs.FormatRange(d.RefLow, d.RefHigh), d.Aliases)
	}
	fmt.Fprintf(out, "%d indicators\n", len(defs))
}
