package accrual

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"invoice-financer/internal/domain/loan"
	"invoice-financer/internal/domain/vault"
	"invoice-financer/pkg/money"
)

func date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func ptr(t time.Time) *time.Time { return &t }

func TestDaysBetween(t *testing.T) {
	cases := []struct {
		name string
		a, b time.Time
		want int
	}{
		{"thirty days", date(2024, 1, 1), date(2024, 1, 31), 30},
		{"partial day rounds up", date(2024, 1, 1), date(2024, 1, 2).Add(time.Hour), 2},
		{"same instant", date(2024, 1, 1), date(2024, 1, 1), 0},
		{"reversed", date(2024, 1, 31), date(2024, 1, 1), 0},
		{"zero start", time.Time{}, date(2024, 1, 1), 0},
		{"zero end", date(2024, 1, 1), time.Time{}, 0},
	}
	for _, c := range cases {
		if got := DaysBetween(c.a, c.b); got != c.want {
			t.Fatalf("%s: DaysBetween = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestDaysSinceFundRelease(t *testing.T) {
	now := date(2024, 3, 1)
	if got := DaysSinceFundRelease(nil, now); got != 0 {
		t.Fatalf("nil release = %d", got)
	}
	if got := DaysSinceFundRelease(ptr(date(2024, 2, 1)), now); got != 29 {
		t.Fatalf("got %d, want 29", got)
	}
}

func TestInterest(t *testing.T) {
	if got := Interest(10000, 0.03, 30); got != 300 {
		t.Fatalf("Interest = %v, want 300", got)
	}
	if got := Interest(10000, 0.03, 0); got != 0 {
		t.Fatalf("zero days = %v", got)
	}
	if got := Interest(math.NaN(), 0.03, 30); got != 0 {
		t.Fatalf("NaN principal = %v", got)
	}
	if got := Interest(math.Inf(1), 0.03, 30); got != 0 {
		t.Fatalf("Inf principal = %v", got)
	}
	// property: non-negative and equal to round6 of the formula
	for _, p := range []float64{0, 1, 123.456789, 5000, 1e7} {
		for _, r := range []float64{0, 0.015, 0.03, 0.1} {
			for _, d := range []int{0, 1, 7, 30, 365} {
				got := Interest(p, r, d)
				want := money.Round6(float64(d) * (r / 30) * p)
				if got < 0 || got != want {
					t.Fatalf("Interest(%v,%v,%d) = %v, want %v", p, r, d, got, want)
				}
			}
		}
	}
}

func TestTotalDebt(t *testing.T) {
	if got := TotalDebt(10000, 300); got != 10300 {
		t.Fatalf("TotalDebt = %v", got)
	}
	if got := TotalDebt(10000, math.Inf(1)); got != 10000 {
		t.Fatalf("non-finite sum should fall back to principal, got %v", got)
	}
	if got := TotalDebt(0, 0); got != 0 {
		t.Fatalf("zero = %v", got)
	}
	for _, p := range []float64{0.5, 10, 9999.999999} {
		for _, i := range []float64{0, 0.000001, 42} {
			if got := TotalDebt(p, i); got < p {
				t.Fatalf("TotalDebt(%v,%v) = %v < principal", p, i, got)
			}
		}
	}
}

func loanWithVault(status loan.Status, maxLoan string, release *time.Time, due time.Time) vault.LoanWithVault {
	return vault.LoanWithVault{
		LoanRequest: loan.LoanRequest{
			Status:              status,
			MaxLoan:             decimal.RequireFromString(maxLoan),
			MonthlyInterestRate: decimal.RequireFromString("0.03"),
			InvoiceDueDate:      due,
		},
		FundReleaseAt: release,
	}
}

func TestLoanFigures_EndToEnd(t *testing.T) {
	l := loanWithVault(loan.StatusActive, "10000", ptr(date(2024, 1, 1)), date(2024, 1, 31))
	if got := LoanInterest(l); got != 300 {
		t.Fatalf("LoanInterest = %v", got)
	}
	if got := LoanTotalDebt(l); got != 10300 {
		t.Fatalf("LoanTotalDebt = %v", got)
	}

	unreleased := loanWithVault(loan.StatusActive, "10000", nil, date(2024, 1, 31))
	if got := LoanInterest(unreleased); got != 0 {
		t.Fatalf("unreleased interest = %v", got)
	}
	if got := LoanTotalDebt(unreleased); got != 10000 {
		t.Fatalf("unreleased debt = %v", got)
	}
	if got := LoanTotalDebt(loanWithVault(loan.StatusActive, "0", nil, time.Time{})); got != 0 {
		t.Fatalf("zero max loan debt = %v", got)
	}
}

func TestActiveTotals(t *testing.T) {
	loans := []vault.LoanWithVault{
		loanWithVault(loan.StatusActive, "10000", ptr(date(2024, 1, 1)), date(2024, 1, 31)),
		loanWithVault(loan.StatusActive, "5000", ptr(date(2024, 1, 1)), date(2024, 1, 11)),
		loanWithVault(loan.StatusPaid, "7000", ptr(date(2024, 1, 1)), date(2024, 1, 31)),
		loanWithVault(loan.StatusListed, "3000", nil, date(2024, 1, 31)),
	}
	if got := TotalInterestOf(loans); got != 350 {
		t.Fatalf("TotalInterestOf = %v, want 350", got)
	}
	if got := TotalDebtOf(loans); got != 15350 {
		t.Fatalf("TotalDebtOf = %v, want 15350", got)
	}
	if got := TotalCapitalOf(loans); got != 15000 {
		t.Fatalf("TotalCapitalOf = %v, want 15000", got)
	}
	if TotalDebtOf(nil) != 0 || TotalInterestOf(nil) != 0 || TotalCapitalOf(nil) != 0 {
		t.Fatal("empty collections must total 0")
	}
}

func item(status vault.Status, ls vault.LenderStatus, amount, redeemed string) vault.PortfolioItem {
	return vault.PortfolioItem{
		Status:              status,
		LenderStatus:        ls,
		Amount:              decimal.RequireFromString(amount),
		RedeemedAmount:      decimal.RequireFromString(redeemed),
		MonthlyInterestRate: decimal.RequireFromString("0.03"),
	}
}

func TestAllocatedCapital(t *testing.T) {
	items := []vault.PortfolioItem{
		item(vault.StatusFunding, vault.LenderFunded, "100.1", "0"),
		item(vault.StatusRepaid, vault.LenderRedeemed, "250.25", "257.7575"),
		item(vault.StatusReleased, vault.LenderFunded, "0.000001", "0"),
	}
	want := 350.350001
	if got := AllocatedCapital(items); got != want {
		t.Fatalf("AllocatedCapital = %v, want %v", got, want)
	}
	reversed := []vault.PortfolioItem{items[2], items[1], items[0]}
	if got := AllocatedCapital(reversed); got != want {
		t.Fatalf("reordered AllocatedCapital = %v, want %v", got, want)
	}
	if AllocatedCapital(nil) != 0 {
		t.Fatal("empty must be 0")
	}
}

func TestRealizedGains(t *testing.T) {
	items := []vault.PortfolioItem{
		item(vault.StatusRedeemed, vault.LenderRedeemed, "250", "257.5"),
		item(vault.StatusRepaid, vault.LenderRedeemed, "100", "103"),
		item(vault.StatusRepaid, vault.LenderFunded, "999", "0"),
	}
	if got := RealizedGains(items); got != 10.5 {
		t.Fatalf("RealizedGains = %v, want 10.5", got)
	}
	if RealizedGains(nil) != 0 {
		t.Fatal("empty must be 0")
	}
}

func TestUnrealizedGains(t *testing.T) {
	withDates := func(it vault.PortfolioItem, from, to *time.Time) vault.PortfolioItem {
		it.FundReleaseAt, it.MaturityDate = from, to
		return it
	}
	jan1, jan31 := ptr(date(2024, 1, 1)), ptr(date(2024, 1, 31))
	almost := ptr(date(2024, 1, 31).Add(23 * time.Hour))

	items := []vault.PortfolioItem{
		withDates(item(vault.StatusRepaid, vault.LenderFunded, "1000", "0"), jan1, jan31),
		// floored: 30 days and 23 hours count as 30
		withDates(item(vault.StatusRepaid, vault.LenderFunded, "1000", "0"), jan1, almost),
		// not repaid yet
		withDates(item(vault.StatusReleased, vault.LenderFunded, "1000", "0"), jan1, jan31),
		// already redeemed
		withDates(item(vault.StatusRepaid, vault.LenderRedeemed, "1000", "1030"), jan1, jan31),
		// missing dates
		withDates(item(vault.StatusRepaid, vault.LenderFunded, "1000", "0"), nil, jan31),
		// non-positive span
		withDates(item(vault.StatusRepaid, vault.LenderFunded, "1000", "0"), jan31, jan1),
	}
	if got := UnrealizedGains(items); got != 60 {
		t.Fatalf("UnrealizedGains = %v, want 60", got)
	}
	if UnrealizedGains(nil) != 0 {
		t.Fatal("empty must be 0")
	}
}

func TestOutstanding(t *testing.T) {
	if got := Outstanding(10300, 5000); got != 5300 {
		t.Fatalf("Outstanding = %v", got)
	}
	if got := Outstanding(10300, 11000); got != 0 {
		t.Fatalf("overpaid = %v", got)
	}
}
