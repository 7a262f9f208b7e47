package portfolio

import (
	"context"

	"invoice-financer/internal/domain/vault"
)

// Source is the off-chain read side used by the dashboards.
type Source interface {
	LenderPortfolio(ctx context.Context, lenderAddress string) ([]vault.PortfolioItem, error)
	BorrowerLoans(ctx context.Context, borrowerAddress string) ([]vault.LoanWithVault, error)
}

type LenderSummary struct {
	AllocatedCapital float64 `json:"allocated_capital"`
	RealizedGains    float64 `json:"realized_gains"`
	UnrealizedGains  float64 `json:"unrealized_gains"`
}

type LenderPortfolio struct {
	Items   []vault.PortfolioItem `json:"items"`
	Summary LenderSummary         `json:"summary"`
}

type LoanView struct {
	vault.LoanWithVault
	Interest             float64 `json:"interest"`
	TotalDebt            float64 `json:"total_debt"`
	DaysSinceFundRelease int     `json:"days_since_fund_release"`
}

type BorrowerTotals struct {
	TotalDebt     float64 `json:"total_debt"`
	TotalInterest float64 `json:"total_interest"`
	TotalCapital  float64 `json:"total_capital"`
}

type BorrowerDashboard struct {
	Loans  []LoanView     `json:"loans"`
	Totals BorrowerTotals `json:"totals"`
}
