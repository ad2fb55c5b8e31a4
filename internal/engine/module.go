package engine

import (
	"context"

	"go.uber.org/fx"
)

// Module — исполнение: супервизор со своим жизненным циклом.
// Останов через cancel + ожидание, чтобы движки успели пометить
// символы на сверку.
func Module() fx.Option {
	return fx.Module("engine",
		fx.Provide(NewSupervisor),
		fx.Invoke(func(lc fx.Lifecycle, s *Supervisor) {
			runCtx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						defer close(done)
						s.Run(runCtx)
					}()
					return nil
				},
				OnStop: func(ctx context.Context) error {
					cancel()
					select {
					case <-done:
						return nil
					case <-ctx.Done():
						return ctx.Err()
					}
				},
			})
		}),
	)
}
