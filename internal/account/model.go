package account

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
)

const (
	CentsPerDollar = int64(100)

	// Every new account starts with $10,000.00 of play money.
	StarterBalanceCents = int64(10_000) * CentsPerDollar

	MinUsernameLen = 3
	MinPasswordLen = 4

	// MaxBalanceDollars caps pushed balances far below where the cents
	// conversion could wrap.
	MaxBalanceDollars = float64(1_000_000_000)
)

var (
	ErrDuplicateUser      = errors.New("username already taken")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidUsername    = errors.New("username must be 3-24 letters, digits or underscores")
	ErrInvalidPassword    = errors.New("password must be at least 4 characters")
	ErrInvalidPortfolio   = errors.New("portfolio quantities must be non-negative whole numbers")
	ErrInvalidBalance     = errors.New("balance must be between 0 and 1000000000")
)

var usernameRE = regexp.MustCompile(`^[a-zA-Z0-9_]{3,24}$`)

func ValidateUsername(username string) error {
	if !usernameRE.MatchString(strings.TrimSpace(username)) {
		return ErrInvalidUsername
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < MinPasswordLen {
		return ErrInvalidPassword
	}
	return nil
}

// ValidateBalanceDollars screens client-supplied balances before they reach
// the cents conversion. NaN, infinities, negatives and absurd amounts are
// all rejected.
func ValidateBalanceDollars(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > MaxBalanceDollars {
		return ErrInvalidBalance
	}
	return nil
}

func DollarsToCents(v float64) int64 {
	return int64(math.Round(v * float64(CentsPerDollar)))
}

func CentsToDollars(v int64) float64 {
	return float64(v) / float64(CentsPerDollar)
}

type LeaderboardEntry struct {
	Username string  `json:"username"`
	Balance  float64 `json:"balance"`
}

// RankLeaderboard orders entries richest first, username ascending on ties.
func RankLeaderboard(entries []LeaderboardEntry) []LeaderboardEntry {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Balance != entries[j].Balance {
			return entries[i].Balance > entries[j].Balance
		}
		return entries[i].Username < entries[j].Username
	})
	return entries
}

// ValidatePortfolio rejects negative share counts before any write reaches
// the store.
func ValidatePortfolio(p map[string]int64) error {
	for _, qty := range p {
		if qty < 0 {
			return ErrInvalidPortfolio
		}
	}
	return nil
}
