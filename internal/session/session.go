// Package session holds one player's in-memory trading state: cash, share
// counts, the live price catalog and a rolling net-worth series. Trades
// settle synchronously against local state; persistence to the backend is
// fire-and-forget, so a dead network never blocks play.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"sort"
	"sync"
	"time"

	"stockkidz/internal/account"
	"stockkidz/internal/market"

	"github.com/google/uuid"
)

// PerformanceCapacity bounds the net-worth series to the most recent samples.
const PerformanceCapacity = 12

var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrInvalidQuantity    = errors.New("quantity must be a positive whole number")
	ErrUnknownSymbol      = errors.New("unknown symbol")
	ErrOrderTooLarge      = errors.New("order too large")
)

// notionalCents multiplies price by quantity without silently wrapping.
func notionalCents(priceCents, quantity int64) (int64, error) {
	v := new(big.Int).Mul(big.NewInt(priceCents), big.NewInt(quantity))
	if !v.IsInt64() {
		return 0, ErrOrderTooLarge
	}
	return v.Int64(), nil
}

// Persister pushes the session's balance and holdings to the backend.
type Persister interface {
	PersistBalance(ctx context.Context, username string, balanceCents int64) error
	PersistPortfolio(ctx context.Context, username string, portfolio map[string]int64) error
}

// PriceSource is the polled feed the session refreshes its catalog from.
type PriceSource interface {
	FetchPrices(ctx context.Context) (map[string]market.Quote, error)
}

// Trade is the receipt for one settled buy or sell.
type Trade struct {
	ID       string    `json:"id"`
	Side     string    `json:"side"`
	Ticker   string    `json:"ticker"`
	Quantity int64     `json:"quantity"`
	Price    float64   `json:"price"`
	Total    float64   `json:"total"`
	At       time.Time `json:"at"`
}

// PerformanceSample is one point of the net-worth series, at most one per
// wall-clock minute.
type PerformanceSample struct {
	DisplayTime string    `json:"displayTime"`
	NetWorth    float64   `json:"totalNetWorth"`
	At          time.Time `json:"at"`
}

type stockState struct {
	id           string
	ticker       string
	displayName  string
	baseCents    int64
	currentCents int64
}

type Config struct {
	Username     string
	BalanceCents int64
	Holdings     map[string]int64
	Stocks       []market.Stock
	Persister    Persister
	Prices       PriceSource
	PollEvery    time.Duration
	OnRefresh    func()
	Logger       *slog.Logger
}

type Session struct {
	username  string
	persister Persister
	prices    PriceSource
	pollEvery time.Duration
	onRefresh func()
	log       *slog.Logger
	now       func() time.Time

	mu         sync.Mutex
	balance    int64
	holdings   map[string]int64
	stocks     map[string]*stockState // keyed by ticker
	byID       map[string]*stockState
	perf       []PerformanceSample
	lastMinute string
	trades     []Trade

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pollEvery := cfg.PollEvery
	if pollEvery <= 0 {
		pollEvery = 30 * time.Second
	}
	s := &Session{
		username:  cfg.Username,
		persister: cfg.Persister,
		prices:    cfg.Prices,
		pollEvery: pollEvery,
		onRefresh: cfg.OnRefresh,
		log:       logger,
		now:       time.Now,
		balance:   cfg.BalanceCents,
		holdings:  make(map[string]int64),
		stocks:    make(map[string]*stockState),
		byID:      make(map[string]*stockState),
	}
	for ticker, qty := range cfg.Holdings {
		if qty > 0 {
			s.holdings[ticker] = qty
		}
	}
	for _, st := range cfg.Stocks {
		state := &stockState{
			id:           st.ID,
			ticker:       st.Ticker,
			displayName:  st.DisplayName,
			baseCents:    account.DollarsToCents(st.BasePrice),
			currentCents: account.DollarsToCents(st.CurrentPrice),
		}
		s.stocks[st.Ticker] = state
		s.byID[st.ID] = state
	}
	return s
}

// Start launches the background price-poll loop. After each poll the
// OnRefresh callback, when set, is invoked from the loop goroutine. The loop
// stops when ctx is cancelled or Close is called; in-flight persistence is
// waited for on Close.
func (s *Session) Start(ctx context.Context) {
	if s.prices == nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.pollEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Refresh(ctx)
				if s.onRefresh != nil {
					s.onRefresh()
				}
			}
		}
	}()
}

// Close cancels the poll loop and waits for any fire-and-forget writes that
// are still in flight.
func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Refresh pulls the price feed once. A failed fetch is logged and skipped;
// the session keeps trading on stale prices.
func (s *Session) Refresh(ctx context.Context) {
	if s.prices == nil {
		return
	}
	quotes, err := s.prices.FetchPrices(ctx)
	if err != nil {
		s.log.Warn("price refresh failed", "err", err)
		return
	}
	s.ApplyQuotes(quotes)
}

// ApplyQuotes overwrites current prices from the feed, keyed by catalog id,
// then samples net worth.
func (s *Session) ApplyQuotes(quotes map[string]market.Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, q := range quotes {
		st, ok := s.byID[id]
		if !ok {
			continue
		}
		st.currentCents = account.DollarsToCents(q.CurrentPrice)
		st.baseCents = account.DollarsToCents(q.BasePrice)
	}
	s.sampleLocked()
}

// Buy settles a purchase against local state. Quantity must be positive; a
// cost above the cash balance rejects the trade with the shortfall and
// leaves state untouched.
func (s *Session) Buy(ticker string, quantity int64) (Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		return Trade{}, ErrInvalidQuantity
	}
	st, ok := s.stocks[ticker]
	if !ok {
		return Trade{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, ticker)
	}
	cost, err := notionalCents(st.currentCents, quantity)
	if err != nil {
		return Trade{}, fmt.Errorf("%w: %d shares of %s", err, quantity, st.ticker)
	}
	if cost > s.balance {
		short := cost - s.balance
		return Trade{}, fmt.Errorf("%w: need $%.2f more", ErrInsufficientFunds, account.CentsToDollars(short))
	}

	s.balance -= cost
	s.holdings[ticker] += quantity
	trade := s.recordLocked("buy", st, quantity, cost)
	s.persistAsync()
	return trade, nil
}

// Sell settles a sale against local state. Selling more than is held rejects
// the trade with the held amount and leaves state untouched.
func (s *Session) Sell(ticker string, quantity int64) (Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		return Trade{}, ErrInvalidQuantity
	}
	st, ok := s.stocks[ticker]
	if !ok {
		return Trade{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, ticker)
	}
	held := s.holdings[ticker]
	if held < quantity {
		return Trade{}, fmt.Errorf("%w: only %d held", ErrInsufficientShares, held)
	}

	proceeds, err := notionalCents(st.currentCents, quantity)
	if err != nil {
		return Trade{}, fmt.Errorf("%w: %d shares of %s", err, quantity, st.ticker)
	}
	newBalance := new(big.Int).Add(big.NewInt(s.balance), big.NewInt(proceeds))
	if !newBalance.IsInt64() {
		return Trade{}, fmt.Errorf("%w: %d shares of %s", ErrOrderTooLarge, quantity, st.ticker)
	}
	s.balance = newBalance.Int64()
	if held == quantity {
		delete(s.holdings, ticker)
	} else {
		s.holdings[ticker] = held - quantity
	}
	trade := s.recordLocked("sell", st, quantity, proceeds)
	s.persistAsync()
	return trade, nil
}

func (s *Session) recordLocked(side string, st *stockState, quantity, totalCents int64) Trade {
	trade := Trade{
		ID:       uuid.NewString(),
		Side:     side,
		Ticker:   st.ticker,
		Quantity: quantity,
		Price:    account.CentsToDollars(st.currentCents),
		Total:    account.CentsToDollars(totalCents),
		At:       s.now(),
	}
	s.trades = append(s.trades, trade)
	s.sampleLocked()
	return trade
}

// sampleLocked coalesces sub-minute updates into the last sample and evicts
// the oldest point past capacity.
func (s *Session) sampleLocked() {
	now := s.now()
	minute := now.Format("15:04")
	sample := PerformanceSample{
		DisplayTime: minute,
		NetWorth:    account.CentsToDollars(s.netWorthLocked()),
		At:          now,
	}
	if minute == s.lastMinute && len(s.perf) > 0 {
		s.perf[len(s.perf)-1] = sample
		return
	}
	s.perf = append(s.perf, sample)
	if len(s.perf) > PerformanceCapacity {
		s.perf = s.perf[len(s.perf)-PerformanceCapacity:]
	}
	s.lastMinute = minute
}

// netWorthLocked values holdings with big.Int so oversized positions clamp
// instead of wrapping negative.
func (s *Session) netWorthLocked() int64 {
	total := big.NewInt(s.balance)
	for ticker, qty := range s.holdings {
		if st, ok := s.stocks[ticker]; ok {
			total.Add(total, new(big.Int).Mul(big.NewInt(st.currentCents), big.NewInt(qty)))
		}
	}
	if !total.IsInt64() {
		return math.MaxInt64
	}
	return total.Int64()
}

func (s *Session) portfolioValueLocked() int64 {
	return s.netWorthLocked() - s.balance
}

func (s *Session) BalanceCents() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

func (s *Session) PortfolioValueCents() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.portfolioValueLocked()
}

func (s *Session) NetWorthCents() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.netWorthLocked()
}

func (s *Session) Holdings() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.holdings))
	for ticker, qty := range s.holdings {
		out[ticker] = qty
	}
	return out
}

func (s *Session) Performance() []PerformanceSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PerformanceSample, len(s.perf))
	copy(out, s.perf)
	return out
}

func (s *Session) Trades() []Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Trade, len(s.trades))
	copy(out, s.trades)
	return out
}

// Stocks returns the current catalog snapshot sorted by id.
func (s *Session) Stocks() []market.Stock {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]market.Stock, 0, len(s.stocks))
	for _, st := range s.stocks {
		out = append(out, market.Stock{
			ID:            st.id,
			Ticker:        st.ticker,
			DisplayName:   st.displayName,
			BasePrice:     account.CentsToDollars(st.baseCents),
			CurrentPrice:  account.CentsToDollars(st.currentCents),
			PercentChange: market.PercentChange(st.baseCents, st.currentCents),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// persistAsync pushes balance and holdings without blocking the trade. A
// failed push is logged and dropped; local state stays authoritative for the
// rest of the session.
func (s *Session) persistAsync() {
	if s.persister == nil {
		return
	}
	balance := s.balance
	portfolio := make(map[string]int64, len(s.holdings))
	for ticker, qty := range s.holdings {
		portfolio[ticker] = qty
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.persister.PersistBalance(ctx, s.username, balance); err != nil {
			s.log.Warn("balance sync failed, local state is fine", "err", err)
		}
		if err := s.persister.PersistPortfolio(ctx, s.username, portfolio); err != nil {
			s.log.Warn("portfolio sync failed, local state is fine", "err", err)
		}
	}()
}
