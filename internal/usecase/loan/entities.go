package loan

import (
	"time"

	"github.com/shopspring/decimal"

	domainLoan "invoice-financer/internal/domain/loan"
	"invoice-financer/internal/domain/vault"
)

type CreateLoanInput struct {
	BorrowerAddress     string          `json:"borrower_address" validate:"required,ethaddr"`
	MaxLoan             decimal.Decimal `json:"max_loan" validate:"decimalgt0"`
	MonthlyInterestRate decimal.Decimal `json:"monthly_interest_rate" validate:"decimalgte0"`
	InvoiceDueDate      time.Time       `json:"invoice_due_date" validate:"required"`
}

type UpdateStatusInput struct {
	Status domainLoan.Status `json:"status" validate:"required"`
}

type LoanTotals struct {
	TotalFunded      float64 `json:"total_funded"`
	TotalRepaid      float64 `json:"total_repaid"`
	Interest         float64 `json:"interest"`
	TotalDebt        float64 `json:"total_debt"`
	OutstandingDebt  float64 `json:"outstanding_debt"`
	DaysSinceRelease int     `json:"days_since_fund_release"`
}

// LoanDetailDTO is a loan request with its vault, lenders and repayments.
type LoanDetailDTO struct {
	Loan       domainLoan.LoanRequest `json:"loan"`
	Vault      *vault.Vault           `json:"vault,omitempty"`
	Lenders    []vault.LenderPosition `json:"lenders"`
	Repayments []vault.Repayment      `json:"repayments"`
	Totals     LoanTotals             `json:"totals"`
}
