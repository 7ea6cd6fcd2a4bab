package account

import (
	"math"
	"testing"
)

func TestValidateUsername(t *testing.T) {
	valid := []string{"abc", "kid_trader", "Sam2014"}
	for _, u := range valid {
		if err := ValidateUsername(u); err != nil {
			t.Fatalf("expected username %q to be valid: %v", u, err)
		}
	}

	invalid := []string{"ab", "", "has space", "way_too_long_username_over_24"}
	for _, u := range invalid {
		if err := ValidateUsername(u); err == nil {
			t.Fatalf("expected username %q to fail", u)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("abcd"); err != nil {
		t.Fatalf("expected 4-char password to pass: %v", err)
	}
	if err := ValidatePassword("abc"); err == nil {
		t.Fatalf("expected short password to fail")
	}
}

func TestCentsConversions(t *testing.T) {
	tests := []struct {
		dollars float64
		cents   int64
	}{
		{dollars: 10000, cents: 1_000_000},
		{dollars: 8500, cents: 850_000},
		{dollars: 150.25, cents: 15_025},
		{dollars: 0.01, cents: 1},
	}
	for _, tc := range tests {
		if got := DollarsToCents(tc.dollars); got != tc.cents {
			t.Fatalf("DollarsToCents(%v)=%d want %d", tc.dollars, got, tc.cents)
		}
		if got := CentsToDollars(tc.cents); got != tc.dollars {
			t.Fatalf("CentsToDollars(%d)=%v want %v", tc.cents, got, tc.dollars)
		}
	}
}

func TestValidateBalanceDollars(t *testing.T) {
	valid := []float64{0, 10_000, 10_000.50, MaxBalanceDollars}
	for _, v := range valid {
		if err := ValidateBalanceDollars(v); err != nil {
			t.Fatalf("expected balance %v to be valid: %v", v, err)
		}
	}

	invalid := []float64{-1, MaxBalanceDollars + 1, 1e17, math.NaN(), math.Inf(1), math.Inf(-1)}
	for _, v := range invalid {
		if err := ValidateBalanceDollars(v); err == nil {
			t.Fatalf("expected balance %v to fail", v)
		}
	}
}

func TestRankLeaderboard(t *testing.T) {
	got := RankLeaderboard([]LeaderboardEntry{
		{Username: "ana", Balance: 12_000},
		{Username: "ben", Balance: 9_500},
		{Username: "cam", Balance: 15_000},
	})
	want := []float64{15_000, 12_000, 9_500}
	for i, entry := range got {
		if entry.Balance != want[i] {
			t.Fatalf("rank %d balance = %v, want %v", i, entry.Balance, want[i])
		}
	}

	tied := RankLeaderboard([]LeaderboardEntry{
		{Username: "zoe", Balance: 10_000},
		{Username: "abe", Balance: 10_000},
	})
	if tied[0].Username != "abe" {
		t.Fatalf("tie order = %q first, want abe", tied[0].Username)
	}
}

func TestValidatePortfolio(t *testing.T) {
	if err := ValidatePortfolio(map[string]int64{"GLD": 3, "QQQ": 0}); err != nil {
		t.Fatalf("expected valid portfolio: %v", err)
	}
	if err := ValidatePortfolio(map[string]int64{"GLD": -1}); err == nil {
		t.Fatalf("expected negative quantity to fail")
	}
}
