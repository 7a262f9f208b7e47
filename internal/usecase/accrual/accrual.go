// Package accrual computes interest, debt and lender gains from loan and vault records.
// Every function is pure; every monetary result is rounded with money.Round6.
//
// Malformed inputs (NaN, ±Inf, missing dates) clamp to zero or to the principal instead
// of failing, so one bad record never blanks a whole dashboard.
package accrual

import (
	"math"
	"time"

	"invoice-financer/internal/domain/loan"
	"invoice-financer/internal/domain/vault"
	"invoice-financer/pkg/money"
)

const day = 24 * time.Hour

// DaysBetween is the ceiling of b-a in whole days; 0 for zero times or a non-positive span.
func DaysBetween(a, b time.Time) int {
	if a.IsZero() || b.IsZero() {
		return 0
	}
	d := math.Ceil(float64(b.Sub(a)) / float64(day))
	if d <= 0 || math.IsNaN(d) {
		return 0
	}
	return int(d)
}

// DaysSinceFundRelease counts days from fund release up to now; 0 when funds were never released.
func DaysSinceFundRelease(releasedAt *time.Time, now time.Time) int {
	if releasedAt == nil {
		return 0
	}
	return DaysBetween(*releasedAt, now)
}

// Interest is simple daily interest: days * (monthlyRate/30) * principal.
func Interest(principal, monthlyRate float64, days int) float64 {
	i := float64(days) * (monthlyRate / 30) * principal
	if !money.Finite(i) {
		return 0
	}
	return money.Round6(i)
}

// TotalDebt is principal + interest, or the principal alone when the sum is not usable.
func TotalDebt(principal, interest float64) float64 {
	t := principal + interest
	if !money.Finite(t) || t <= 0 {
		return principal
	}
	return money.Round6(t)
}

// LoanInterest accrues max_loan from fund release to the invoice due date.
func LoanInterest(l vault.LoanWithVault) float64 {
	if l.FundReleaseAt == nil || l.InvoiceDueDate.IsZero() {
		return 0
	}
	days := DaysBetween(*l.FundReleaseAt, l.InvoiceDueDate)
	if days == 0 {
		return 0
	}
	return Interest(l.MaxLoan.InexactFloat64(), l.MonthlyInterestRate.InexactFloat64(), days)
}

// LoanTotalDebt is max_loan plus accrued interest; 0 for a non-positive or malformed max_loan.
func LoanTotalDebt(l vault.LoanWithVault) float64 {
	p := l.MaxLoan.InexactFloat64()
	if p <= 0 || !money.Finite(p) {
		return 0
	}
	return TotalDebt(p, LoanInterest(l))
}

func loanCapital(l vault.LoanWithVault) float64 {
	p := l.MaxLoan.InexactFloat64()
	if !money.Finite(p) {
		return 0
	}
	return p
}

func sumActive(loans []vault.LoanWithVault, f func(vault.LoanWithVault) float64) float64 {
	var total float64
	for _, l := range loans {
		if l.Status == loan.StatusActive {
			total += f(l)
		}
	}
	return money.Round6(total)
}

// TotalDebtOf sums LoanTotalDebt over ACTIVE loans.
func TotalDebtOf(loans []vault.LoanWithVault) float64 { return sumActive(loans, LoanTotalDebt) }

// TotalInterestOf sums LoanInterest over ACTIVE loans.
func TotalInterestOf(loans []vault.LoanWithVault) float64 { return sumActive(loans, LoanInterest) }

// TotalCapitalOf sums max_loan over ACTIVE loans.
func TotalCapitalOf(loans []vault.LoanWithVault) float64 { return sumActive(loans, loanCapital) }

// AllocatedCapital sums the invested amount of every position, redeemed or not.
func AllocatedCapital(items []vault.PortfolioItem) float64 {
	var total float64
	for _, it := range items {
		total += it.Amount.InexactFloat64()
	}
	return money.Round6(total)
}

// RealizedGains sums redeemed minus invested over REDEEMED positions.
func RealizedGains(items []vault.PortfolioItem) float64 {
	var total float64
	for _, it := range items {
		if it.LenderStatus != vault.LenderRedeemed {
			continue
		}
		g := it.RedeemedAmount.InexactFloat64() - it.Amount.InexactFloat64()
		if money.Finite(g) {
			total += g
		}
	}
	return money.Round6(total)
}

// UnrealizedGains accrues interest on positions of repaid vaults that have not been redeemed yet.
// Days are floored here, unlike DaysBetween; positions missing either date contribute nothing.
func UnrealizedGains(items []vault.PortfolioItem) float64 {
	var total float64
	for _, it := range items {
		if it.Status != vault.StatusRepaid || it.LenderStatus != vault.LenderFunded {
			continue
		}
		if it.FundReleaseAt == nil || it.MaturityDate == nil {
			continue
		}
		days := math.Floor(float64(it.MaturityDate.Sub(*it.FundReleaseAt)) / float64(day))
		if days <= 0 {
			continue
		}
		i := days * (it.MonthlyInterestRate.InexactFloat64() / 30) * it.Amount.InexactFloat64()
		if money.Finite(i) {
			total += i
		}
	}
	return money.Round6(total)
}

// Outstanding is what remains of totalDebt after repaid, never below zero.
func Outstanding(totalDebt, repaid float64) float64 {
	o := totalDebt - repaid
	if !money.Finite(o) || o <= 0 {
		return 0
	}
	return money.Round6(o)
}
