package notify

import (
	"context"
	"log"

	"go.uber.org/fx"

	"breakout_bot/internal/modules/config"
)

// Module — нотифайер как fx-модуль: провайдер + воркер доставки.
func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(
			func(cfg *config.Config) (Sink, error) {
				if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == 0 {
					log.Printf("[NOTIFY] telegram not configured, using stdout")
					return NewStdout(), nil
				}
				return NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
			},
			NewService,
		),
		fx.Invoke(func(lc fx.Lifecycle, s *Service) {
			runCtx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go s.Run(runCtx)
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})
		}),
	)
}
