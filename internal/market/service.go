package market

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"stockkidz/internal/account"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Service owns the price catalog in Postgres. The worker binary drives
// RunPriceTick; the API reads through the remaining methods.
type Service struct {
	db   *pgxpool.Pool
	log  *slog.Logger
	mu   sync.Mutex
	rand *rand.Rand
}

func NewService(db *pgxpool.Pool, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:   db,
		log:  logger,
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Service) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS stocks (
			id                  TEXT PRIMARY KEY,
			ticker              TEXT NOT NULL UNIQUE,
			display_name        TEXT NOT NULL,
			base_price_cents    BIGINT NOT NULL,
			current_price_cents BIGINT NOT NULL,
			updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS price_ticks (
			id          BIGSERIAL PRIMARY KEY,
			stock_id    TEXT NOT NULL REFERENCES stocks(id),
			tick_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
			price_cents BIGINT NOT NULL
		);
	`)
	return err
}

// SeedCatalog inserts the fixed six stocks once; reruns are no-ops.
func (s *Service) SeedCatalog(ctx context.Context) error {
	var count int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(1) FROM stocks`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, row := range Catalog() {
		if _, err := tx.Exec(ctx, `
			INSERT INTO stocks (id, ticker, display_name, base_price_cents, current_price_cents)
			VALUES ($1, $2, $3, $4, $4)
		`, row.ID, row.Ticker, row.DisplayName, row.BasePriceCents); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *Service) ListStocks(ctx context.Context) ([]Stock, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, ticker, display_name, base_price_cents, current_price_cents
		FROM stocks
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Stock
	for rows.Next() {
		st, err := scanStock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

var ErrStockNotFound = errors.New("stock not found")

type PricePoint struct {
	TickAt time.Time `json:"tickAt"`
	Price  float64   `json:"price"`
}

type StockDetail struct {
	Stock
	Series []PricePoint `json:"series"`
}

func (s *Service) StockDetail(ctx context.Context, ticker string) (StockDetail, error) {
	var out StockDetail
	var base, current int64
	err := s.db.QueryRow(ctx, `
		SELECT id, ticker, display_name, base_price_cents, current_price_cents
		FROM stocks
		WHERE ticker = $1
	`, strings.ToUpper(strings.TrimSpace(ticker))).Scan(&out.ID, &out.Ticker, &out.DisplayName, &base, &current)
	if err != nil {
		if err == pgx.ErrNoRows {
			return out, ErrStockNotFound
		}
		return out, err
	}
	out.BasePrice = account.CentsToDollars(base)
	out.CurrentPrice = account.CentsToDollars(current)
	out.PercentChange = PercentChange(base, current)

	rows, err := s.db.Query(ctx, `
		SELECT tick_at, price_cents
		FROM price_ticks
		WHERE stock_id = $1
		ORDER BY tick_at DESC
		LIMIT 64
	`, out.ID)
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		var p PricePoint
		var cents int64
		if err := rows.Scan(&p.TickAt, &cents); err != nil {
			return out, err
		}
		p.Price = account.CentsToDollars(cents)
		out.Series = append(out.Series, p)
	}
	return out, rows.Err()
}

// Quote is one entry of the polled price feed, keyed by catalog id.
type Quote struct {
	CurrentPrice float64 `json:"currentPrice"`
	BasePrice    float64 `json:"basePrice"`
}

func (s *Service) PriceMap(ctx context.Context) (map[string]Quote, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, base_price_cents, current_price_cents
		FROM stocks
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]Quote)
	for rows.Next() {
		var id string
		var base, current int64
		if err := rows.Scan(&id, &base, &current); err != nil {
			return nil, err
		}
		out[id] = Quote{
			CurrentPrice: account.CentsToDollars(current),
			BasePrice:    account.CentsToDollars(base),
		}
	}
	return out, rows.Err()
}

// RunPriceTick perturbs every catalog price by an independent draw in
// [-5%, +5%] and records the new price in the tick history.
func (s *Service) RunPriceTick(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id, current_price_cents
		FROM stocks
		FOR UPDATE
	`)
	if err != nil {
		return err
	}
	type row struct {
		id    string
		price int64
	}
	var stocks []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.price); err != nil {
			rows.Close()
			return err
		}
		stocks = append(stocks, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, st := range stocks {
		next := NextPrice(st.price, s.nextDraw())
		if _, err := tx.Exec(ctx, `
			UPDATE stocks
			SET current_price_cents = $1, updated_at = now()
			WHERE id = $2
		`, next, st.id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO price_ticks (stock_id, tick_at, price_cents)
			VALUES ($1, now(), $2)
		`, st.id, next); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// nextDraw returns a uniform value in [-1, 1).
func (s *Service) nextDraw() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Float64()*2 - 1
}

func scanStock(rows pgx.Rows) (Stock, error) {
	var st Stock
	var base, current int64
	if err := rows.Scan(&st.ID, &st.Ticker, &st.DisplayName, &base, &current); err != nil {
		return st, err
	}
	st.BasePrice = account.CentsToDollars(base)
	st.CurrentPrice = account.CentsToDollars(current)
	st.PercentChange = PercentChange(base, current)
	return st, nil
}
