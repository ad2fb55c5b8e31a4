package binance_ws

import (
	"go.uber.org/fx"

	"breakout_bot/internal/modules/binance_ws/service"
)

// Module — маркет-дата фид. Сами стримы запускает движок:
// ему решать, когда подписываться и что делать с дырками.
func Module() fx.Option {
	return fx.Module("binance_ws",
		fx.Provide(
			service.NewClient,
		),
	)
}
