package growth

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestProjectAnnualCompounding(t *testing.T) {
	proj, err := Project(Input{
		Principal:    d("1000"),
		AnnualRate:   d("10"),
		PeriodsPerYr: 1,
		Years:        2,
	})
	if err != nil {
		t.Fatalf("project failed: %v", err)
	}
	if len(proj.Years) != 2 {
		t.Fatalf("expected 2 year-end rows, got %d", len(proj.Years))
	}
	if !proj.Years[0].Balance.Equal(d("1100")) {
		t.Fatalf("year 1 balance = %s, want 1100", proj.Years[0].Balance)
	}
	if !proj.Final.Equal(d("1210")) {
		t.Fatalf("final balance = %s, want 1210", proj.Final)
	}
	if !proj.Years[1].Earned.Equal(d("210")) {
		t.Fatalf("earned = %s, want 210", proj.Years[1].Earned)
	}
}

func TestProjectMonthlyCompounding(t *testing.T) {
	proj, err := Project(Input{
		Principal:    d("10000"),
		AnnualRate:   d("12"),
		PeriodsPerYr: 12,
		Years:        1,
	})
	if err != nil {
		t.Fatalf("project failed: %v", err)
	}
	// 10000 × 1.01^12 = 11268.25 to the cent.
	if !proj.Final.Equal(d("11268.25")) {
		t.Fatalf("final balance = %s, want 11268.25", proj.Final)
	}
}

func TestProjectContributionsOnly(t *testing.T) {
	proj, err := Project(Input{
		Principal:    decimal.Zero,
		AnnualRate:   decimal.Zero,
		PeriodsPerYr: 12,
		Years:        1,
		Contribution: d("100"),
	})
	if err != nil {
		t.Fatalf("project failed: %v", err)
	}
	if !proj.Final.Equal(d("1200")) {
		t.Fatalf("final balance = %s, want 1200", proj.Final)
	}
	if !proj.Years[0].Earned.Equal(decimal.Zero) {
		t.Fatalf("earned = %s, want 0", proj.Years[0].Earned)
	}
}

func TestProjectRejectsBadInput(t *testing.T) {
	base := Input{Principal: d("100"), AnnualRate: d("5"), PeriodsPerYr: 12, Years: 10}

	bad := base
	bad.Principal = d("-1")
	if _, err := Project(bad); !errors.Is(err, ErrInvalidPrincipal) {
		t.Fatalf("negative principal error = %v", err)
	}

	bad = base
	bad.AnnualRate = d("-5")
	if _, err := Project(bad); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("negative rate error = %v", err)
	}

	bad = base
	bad.PeriodsPerYr = 0
	if _, err := Project(bad); !errors.Is(err, ErrInvalidPeriods) {
		t.Fatalf("zero periods error = %v", err)
	}

	bad = base
	bad.Years = 0
	if _, err := Project(bad); !errors.Is(err, ErrInvalidYears) {
		t.Fatalf("zero years error = %v", err)
	}
}
