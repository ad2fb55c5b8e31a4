package main

import (
	"context"
	"log"

	"go.uber.org/fx"

	"breakout_bot/internal/engine"
	"breakout_bot/internal/modules/binance_client"
	"breakout_bot/internal/modules/binance_ws"
	"breakout_bot/internal/modules/config"
	"breakout_bot/internal/modules/health"
	"breakout_bot/internal/modules/postgres"
	"breakout_bot/internal/notify"
	"breakout_bot/pkg/logger"
	"breakout_bot/pkg/tracing"
)

const serviceName = "breakout_bot"

func main() {
	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		postgres.Module(),
		binance_client.Module(),
		binance_ws.Module(),
		notify.Module(),
		health.Module(),
		engine.Module(),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config) {
			logger.SetServiceName(serviceName)
			logger.Init(cfg.Log.File)

			tracing.SetServiceName(serviceName)
			if cfg.Jaeger.Host == "" {
				return
			}
			_, closeTracer, err := tracing.InitTracer(tracing.Config{
				Host: cfg.Jaeger.Host,
				Port: cfg.Jaeger.Port,
			})
			if err != nil {
				log.Printf("[MAIN] jaeger init: %v — tracing disabled", err)
				return
			}
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					closeTracer()
					return nil
				},
			})
		}),
	)
	app.Run()
}
