// Package growth projects compound interest for the savings-lesson screen.
// Money math runs on decimals so a 30-year projection never drifts by a cent.
package growth

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPrincipal = errors.New("principal must not be negative")
	ErrInvalidRate      = errors.New("rate must not be negative")
	ErrInvalidPeriods   = errors.New("compounding periods per year must be positive")
	ErrInvalidYears     = errors.New("years must be positive")
)

// Input describes one projection. Rate is the annual percentage rate, e.g.
// 7 for 7%. Contribution is added at the end of every compounding period.
type Input struct {
	Principal    decimal.Decimal
	AnnualRate   decimal.Decimal
	PeriodsPerYr int
	Years        int
	Contribution decimal.Decimal
}

// YearEnd is the balance at the end of one projected year.
type YearEnd struct {
	Year        int             `json:"year"`
	Balance     decimal.Decimal `json:"balance"`
	Contributed decimal.Decimal `json:"contributed"`
	Earned      decimal.Decimal `json:"earned"`
}

// Projection is a full run, year by year.
type Projection struct {
	Input Input           `json:"input"`
	Years []YearEnd       `json:"years"`
	Final decimal.Decimal `json:"final"`
}

var hundred = decimal.NewFromInt(100)

// Project compounds the principal period by period, adding the contribution
// after each period, and reports a balance per elapsed year. Balances are
// rounded to cents only at the reporting boundary.
func Project(in Input) (Projection, error) {
	if in.Principal.IsNegative() {
		return Projection{}, ErrInvalidPrincipal
	}
	if in.AnnualRate.IsNegative() {
		return Projection{}, ErrInvalidRate
	}
	if in.PeriodsPerYr <= 0 {
		return Projection{}, ErrInvalidPeriods
	}
	if in.Years <= 0 {
		return Projection{}, ErrInvalidYears
	}
	if in.Contribution.IsNegative() {
		return Projection{}, errors.New("contribution must not be negative")
	}

	periodRate := in.AnnualRate.Div(hundred).Div(decimal.NewFromInt(int64(in.PeriodsPerYr)))
	growthFactor := decimal.NewFromInt(1).Add(periodRate)

	balance := in.Principal
	contributed := in.Principal
	out := Projection{Input: in, Years: make([]YearEnd, 0, in.Years)}
	for year := 1; year <= in.Years; year++ {
		for p := 0; p < in.PeriodsPerYr; p++ {
			balance = balance.Mul(growthFactor)
			balance = balance.Add(in.Contribution)
			contributed = contributed.Add(in.Contribution)
		}
		rounded := balance.Round(2)
		out.Years = append(out.Years, YearEnd{
			Year:        year,
			Balance:     rounded,
			Contributed: contributed.Round(2),
			Earned:      rounded.Sub(contributed.Round(2)),
		})
	}
	out.Final = out.Years[len(out.Years)-1].Balance
	return out, nil
}
