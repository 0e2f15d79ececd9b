package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pmackar/aireshark/internal/seed"
	"github.com/pmackar/aireshark/internal/store"
)

var migrateSeed bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}

		ctx := cmd.Context()

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}
		zap.L().Info("schema applied", zap.String("driver", cfg.Store.Driver))

		if !migrateSeed {
			return nil
		}

		catalog, err := seed.Load()
		if err != nil {
			return err
		}

		if pg, ok := st.(*store.PostgresStore); ok {
			n, err := catalog.ApplyBulk(ctx, pg.Pool())
			if err != nil {
				return eris.Wrap(err, "seed catalog")
			}
			zap.L().Info("catalog seeded", zap.Int64("rows", n))
			return nil
		}

		res, err := catalog.Apply(ctx, st)
		if err != nil {
			return eris.Wrap(err, "seed catalog")
		}
		zap.L().Info("catalog seeded",
			zap.Int("firms_created", res.FirmsCreated),
			zap.Int("platforms_created", res.PlatformsCreated),
		)
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateSeed, "seed", false, "seed the baseline firm and platform catalog after migrating")
	rootCmd.AddCommand(migrateCmd)
}
