package pg

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"breakout_bot/internal/models"
	"breakout_bot/pkg/db"
)

// Store implement ledger.Store поверх postgres.
// Ордер храним колонками для выборок + полным payload-блобом (sonic),
// чтобы не гонять миграции при каждом новом поле.
type Store struct {
	tx *db.PgTxManager
}

func New(tx *db.PgTxManager) *Store {
	return &Store{tx: tx}
}

const upsertOrderSQL = `
INSERT INTO orders (client_order_id, symbol, intent, status, active, payload, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (client_order_id)
DO UPDATE SET status = $4, active = $5, payload = $6, updated_at = $7`

func (s *Store) SaveOrder(ctx context.Context, o *models.Order) (err error) {
	defer func() {
		if err != nil {
			err = errors.Wrap(err, "pg.SaveOrder")
		}
	}()

	data, err := sonic.Marshal(o)
	if err != nil {
		return err
	}
	return s.tx.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, upsertOrderSQL,
			o.ClientOrderID, o.Symbol, string(o.Intent), string(o.Status),
			!o.Status.Terminal(), data, time.Now())
		return err
	})
}

const upsertPositionSQL = `
INSERT INTO positions (symbol, payload, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (symbol) DO UPDATE SET payload = $2, updated_at = $3`

func (s *Store) SavePosition(ctx context.Context, p *models.Position) (err error) {
	defer func() {
		if err != nil {
			err = errors.Wrap(err, "pg.SavePosition")
		}
	}()

	data, err := sonic.Marshal(p)
	if err != nil {
		return err
	}
	return s.tx.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, upsertPositionSQL, p.Symbol, data, time.Now())
		return err
	})
}

func (s *Store) LoadActiveOrders(ctx context.Context, symbol string) (out []*models.Order, err error) {
	defer func() {
		if err != nil {
			err = errors.Wrap(err, "pg.LoadActiveOrders")
		}
	}()

	err = s.tx.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT payload FROM orders WHERE symbol = $1 AND active`, symbol)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var data []byte
			if err := rows.Scan(&data); err != nil {
				return err
			}
			var o models.Order
			if err := sonic.Unmarshal(data, &o); err != nil {
				return err
			}
			out = append(out, &o)
		}
		return rows.Err()
	})
	return out, err
}

func (s *Store) LoadPosition(ctx context.Context, symbol string) (p *models.Position, err error) {
	defer func() {
		if err != nil {
			err = errors.Wrap(err, "pg.LoadPosition")
		}
	}()

	err = s.tx.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var data []byte
		row := tx.QueryRow(ctx, `SELECT payload FROM positions WHERE symbol = $1`, symbol)
		if err := row.Scan(&data); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil // позиции ещё нет — это не ошибка
			}
			return err
		}
		var pos models.Position
		if err := sonic.Unmarshal(data, &pos); err != nil {
			return err
		}
		p = &pos
		return nil
	})
	return p, err
}

func (s *Store) SetNeedsReconcile(ctx context.Context, symbol string, v bool) (err error) {
	defer func() {
		if err != nil {
			err = errors.Wrap(err, "pg.SetNeedsReconcile")
		}
	}()

	return s.tx.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
INSERT INTO reconcile_flags (symbol, needs, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (symbol) DO UPDATE SET needs = $2, updated_at = $3`,
			symbol, v, time.Now())
		return err
	})
}

func (s *Store) NeedsReconcile(ctx context.Context, symbol string) (needs bool, err error) {
	defer func() {
		if err != nil {
			err = errors.Wrap(err, "pg.NeedsReconcile")
		}
	}()

	err = s.tx.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT needs FROM reconcile_flags WHERE symbol = $1`, symbol)
		if err := row.Scan(&needs); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				needs = true // про символ ничего не знаем — сверка обязательна
				return nil
			}
			return err
		}
		return nil
	})
	return needs, err
}

// SaveCandle — архив закрытых свечей (для аудита прогрева и бэкфилла).
func (s *Store) SaveCandle(ctx context.Context, c *models.Candle) (err error) {
	defer func() {
		if err != nil {
			err = errors.Wrap(err, "pg.SaveCandle")
		}
	}()

	return s.tx.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
INSERT INTO candles (symbol, timeframe, open_time, open, high, low, close, volume)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (symbol, timeframe, open_time) DO NOTHING`,
			c.Symbol, c.Timeframe, c.OpenTime, c.Open, c.High, c.Low, c.Close, c.Volume)
		return err
	})
}
