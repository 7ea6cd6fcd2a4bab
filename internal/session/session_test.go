package session

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"stockkidz/internal/account"
	"stockkidz/internal/market"
)

func testStocks() []market.Stock {
	return []market.Stock{
		{ID: "1", Ticker: "GLD", DisplayName: "Get Gold", BasePrice: 150, CurrentPrice: 150},
		{ID: "2", Ticker: "QQQ", DisplayName: "Cubes", BasePrice: 85, CurrentPrice: 85},
	}
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	return New(Config{
		Username:     "kid",
		BalanceCents: account.StarterBalanceCents,
		Stocks:       testStocks(),
	})
}

func TestBuySellScenario(t *testing.T) {
	s := newTestSession(t)

	if got := s.BalanceCents(); got != 1_000_000 {
		t.Fatalf("starting balance = %d, want 1000000", got)
	}

	trade, err := s.Buy("GLD", 10)
	if err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if trade.Total != 1500 {
		t.Fatalf("buy total = %v, want 1500", trade.Total)
	}
	if got := s.BalanceCents(); got != 850_000 {
		t.Fatalf("balance after buy = %d, want 850000", got)
	}

	if _, err := s.Sell("GLD", 15); !errors.Is(err, ErrInsufficientShares) {
		t.Fatalf("oversell error = %v, want ErrInsufficientShares", err)
	}
	if got := s.BalanceCents(); got != 850_000 {
		t.Fatalf("balance changed on rejected sell: %d", got)
	}
	if got := s.Holdings()["GLD"]; got != 10 {
		t.Fatalf("holdings changed on rejected sell: %d", got)
	}

	s.ApplyQuotes(map[string]market.Quote{
		"1": {CurrentPrice: 160, BasePrice: 150},
	})
	if _, err := s.Sell("GLD", 10); err != nil {
		t.Fatalf("sell failed: %v", err)
	}
	if got := s.BalanceCents(); got != 1_010_000 {
		t.Fatalf("final balance = %d, want 1010000", got)
	}
	if _, held := s.Holdings()["GLD"]; held {
		t.Fatalf("expected GLD position to be removed once fully sold")
	}
}

func TestNetWorthRoundTrip(t *testing.T) {
	s := newTestSession(t)
	before := s.NetWorthCents()

	if _, err := s.Buy("QQQ", 7); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if _, err := s.Sell("QQQ", 7); err != nil {
		t.Fatalf("sell failed: %v", err)
	}
	if got := s.NetWorthCents(); got != before {
		t.Fatalf("net worth after buy+sell at a fixed price = %d, want %d", got, before)
	}
}

func TestBuyRejectsBadInput(t *testing.T) {
	s := newTestSession(t)

	if _, err := s.Buy("GLD", 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("zero quantity error = %v", err)
	}
	if _, err := s.Buy("GLD", -3); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("negative quantity error = %v", err)
	}
	if _, err := s.Buy("DOGE", 1); !errors.Is(err, ErrUnknownSymbol) {
		t.Fatalf("unknown symbol error = %v", err)
	}
	if got := s.BalanceCents(); got != account.StarterBalanceCents {
		t.Fatalf("balance changed on rejected buy: %d", got)
	}
}

func TestBuyInsufficientFunds(t *testing.T) {
	s := newTestSession(t)

	// 67 shares at $150 is $10,050, fifty dollars over the starter balance.
	_, err := s.Buy("GLD", 67)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("error = %v, want ErrInsufficientFunds", err)
	}
	if got := s.BalanceCents(); got != account.StarterBalanceCents {
		t.Fatalf("balance changed on rejected buy: %d", got)
	}
	if len(s.Holdings()) != 0 {
		t.Fatalf("holdings changed on rejected buy")
	}
	if len(s.Trades()) != 0 {
		t.Fatalf("rejected buy was recorded")
	}
}

func TestOversizedOrdersCannotMintMoney(t *testing.T) {
	s := newTestSession(t)

	// 7e14 shares at $150 overflows an int64 cents product; the buy must be
	// rejected outright, not settled with a wrapped-negative cost.
	if _, err := s.Buy("GLD", 700_000_000_000_000); !errors.Is(err, ErrOrderTooLarge) {
		t.Fatalf("huge buy error = %v, want ErrOrderTooLarge", err)
	}
	if got := s.BalanceCents(); got != account.StarterBalanceCents {
		t.Fatalf("balance changed on rejected buy: %d", got)
	}
	if len(s.Holdings()) != 0 || len(s.Trades()) != 0 {
		t.Fatalf("state changed on rejected buy")
	}

	huge := New(Config{
		Username:     "kid",
		BalanceCents: account.StarterBalanceCents,
		Holdings:     map[string]int64{"GLD": math.MaxInt64 / 2},
		Stocks:       testStocks(),
	})
	if _, err := huge.Sell("GLD", math.MaxInt64/2); !errors.Is(err, ErrOrderTooLarge) {
		t.Fatalf("huge sell error = %v, want ErrOrderTooLarge", err)
	}
	if got := huge.BalanceCents(); got != account.StarterBalanceCents {
		t.Fatalf("balance changed on rejected sell: %d", got)
	}
	if got := huge.Holdings()["GLD"]; got != math.MaxInt64/2 {
		t.Fatalf("holdings changed on rejected sell: %d", got)
	}
	if got := huge.NetWorthCents(); got != math.MaxInt64 {
		t.Fatalf("oversized valuation = %d, want clamp at MaxInt64", got)
	}
}

func TestNetWorthValuation(t *testing.T) {
	s := New(Config{
		Username:     "kid",
		BalanceCents: account.StarterBalanceCents,
		Holdings:     map[string]int64{"GLD": 2, "QQQ": 4},
		Stocks:       testStocks(),
	})

	// 2 × $150 + 4 × $85 = $640 held.
	if got := s.PortfolioValueCents(); got != 64_000 {
		t.Fatalf("portfolio value = %d, want 64000", got)
	}
	if got := s.NetWorthCents(); got != 1_064_000 {
		t.Fatalf("net worth = %d, want 1064000", got)
	}

	s.ApplyQuotes(map[string]market.Quote{
		"1": {CurrentPrice: 100, BasePrice: 150},
	})
	if got := s.PortfolioValueCents(); got != 54_000 {
		t.Fatalf("portfolio value after repricing = %d, want 54000", got)
	}
}

func TestPerformanceCoalescesWithinMinute(t *testing.T) {
	s := newTestSession(t)
	clock := time.Date(2026, 3, 14, 15, 4, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	if _, err := s.Buy("GLD", 1); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	clock = clock.Add(20 * time.Second)
	if _, err := s.Buy("GLD", 1); err != nil {
		t.Fatalf("buy failed: %v", err)
	}

	perf := s.Performance()
	if len(perf) != 1 {
		t.Fatalf("expected one coalesced sample, got %d", len(perf))
	}
	if perf[0].DisplayTime != "15:04" {
		t.Fatalf("display time = %q, want 15:04", perf[0].DisplayTime)
	}
	if perf[0].NetWorth != 10_000 {
		t.Fatalf("net worth sample = %v, want 10000", perf[0].NetWorth)
	}
}

func TestPerformanceEvictsPastCapacity(t *testing.T) {
	s := newTestSession(t)
	clock := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	for i := 0; i < PerformanceCapacity+5; i++ {
		s.ApplyQuotes(map[string]market.Quote{
			"1": {CurrentPrice: 150, BasePrice: 150},
		})
		clock = clock.Add(time.Minute)
	}

	perf := s.Performance()
	if len(perf) != PerformanceCapacity {
		t.Fatalf("series length = %d, want %d", len(perf), PerformanceCapacity)
	}
	if perf[0].DisplayTime != "09:05" {
		t.Fatalf("oldest surviving sample = %q, want 09:05", perf[0].DisplayTime)
	}
	if perf[len(perf)-1].DisplayTime != "09:16" {
		t.Fatalf("newest sample = %q, want 09:16", perf[len(perf)-1].DisplayTime)
	}
}

type flakyPersister struct {
	mu       sync.Mutex
	balances []int64
	fail     bool
}

func (p *flakyPersister) PersistBalance(_ context.Context, _ string, balanceCents int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("backend down")
	}
	p.balances = append(p.balances, balanceCents)
	return nil
}

func (p *flakyPersister) PersistPortfolio(_ context.Context, _ string, _ map[string]int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("backend down")
	}
	return nil
}

func TestPersistFailureDoesNotBlockTrading(t *testing.T) {
	p := &flakyPersister{fail: true}
	s := New(Config{
		Username:     "kid",
		BalanceCents: account.StarterBalanceCents,
		Stocks:       testStocks(),
		Persister:    p,
	})

	if _, err := s.Buy("GLD", 10); err != nil {
		t.Fatalf("buy failed with dead backend: %v", err)
	}
	s.Close()
	if got := s.BalanceCents(); got != 850_000 {
		t.Fatalf("balance after buy = %d, want 850000", got)
	}
}

func TestPersistPushesBalanceAfterTrade(t *testing.T) {
	p := &flakyPersister{}
	s := New(Config{
		Username:     "kid",
		BalanceCents: account.StarterBalanceCents,
		Stocks:       testStocks(),
		Persister:    p,
	})

	if _, err := s.Buy("QQQ", 2); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	s.Close()

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.balances) != 1 || p.balances[0] != 983_000 {
		t.Fatalf("persisted balances = %v, want [983000]", p.balances)
	}
}

type staticPrices struct {
	quotes map[string]market.Quote
	err    error
}

func (p staticPrices) FetchPrices(context.Context) (map[string]market.Quote, error) {
	return p.quotes, p.err
}

func TestStartPollsAndNotifies(t *testing.T) {
	refreshed := make(chan struct{}, 1)
	s := New(Config{
		Username:     "kid",
		BalanceCents: account.StarterBalanceCents,
		Stocks:       testStocks(),
		Prices: staticPrices{quotes: map[string]market.Quote{
			"1": {CurrentPrice: 160, BasePrice: 150},
		}},
		PollEvery: 5 * time.Millisecond,
		OnRefresh: func() {
			select {
			case refreshed <- struct{}{}:
			default:
			}
		},
	})

	s.Start(context.Background())
	select {
	case <-refreshed:
	case <-time.After(5 * time.Second):
		t.Fatalf("poll loop never refreshed")
	}
	s.Close()

	if got := s.Stocks()[0].CurrentPrice; got != 160 {
		t.Fatalf("price after poll = %v, want 160", got)
	}
}

func TestRefreshIgnoresFeedErrors(t *testing.T) {
	s := New(Config{
		Username:     "kid",
		BalanceCents: account.StarterBalanceCents,
		Stocks:       testStocks(),
		Prices:       staticPrices{err: errors.New("feed down")},
	})

	s.Refresh(context.Background())
	stocks := s.Stocks()
	if stocks[0].CurrentPrice != 150 {
		t.Fatalf("price changed on failed refresh: %v", stocks[0].CurrentPrice)
	}
}
