package postgres

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	ledgerpg "breakout_bot/internal/ledger/pg"
	"breakout_bot/internal/modules/config"
	"breakout_bot/pkg/db"
)

// Module — пул postgres + стор леджера поверх него.
func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			func(ctx context.Context, cfg *config.Config) (*db.PgTxManager, error) {
				poolMaster, err := db.NewPool(ctx, db.PoolConfig{
					DSN: cfg.DB,
				})
				if err != nil {
					return nil, fmt.Errorf("failed to create poolMaster: %w", err)
				}

				err = poolMaster.Ping(ctx)
				if err != nil {
					return nil, err
				}

				return db.NewPgTxManager(poolMaster), nil
			},
			ledgerpg.New,
		),
	)
}
