package vault

import (
	"context"

	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, v *Vault) error
	GetByAddress(ctx context.Context, address string) (*Vault, error)
	// GetByAddressForUpdate locks the vault row for the rest of the transaction.
	GetByAddressForUpdate(ctx context.Context, address string) (*Vault, error)
	GetByLoanRequestID(ctx context.Context, loanRequestID uint64) (*Vault, error)
	ListWithLoans(ctx context.Context) ([]LoanWithVault, error)
	// ListWithLoansByStatus filters on the loan request status.
	ListWithLoansByStatus(ctx context.Context, status string) ([]LoanWithVault, error)
	// ListByBorrower includes loan requests that have no vault yet.
	ListByBorrower(ctx context.Context, borrowerAddress string) ([]LoanWithVault, error)
	Save(ctx context.Context, v *Vault) error
}

type PositionRepository interface {
	Create(ctx context.Context, p *LenderPosition) error
	GetByID(ctx context.Context, vaultID, lenderID uint64) (*LenderPosition, error)
	ListByVault(ctx context.Context, vaultID uint64) ([]LenderPosition, error)
	Portfolio(ctx context.Context, lenderAddress string) ([]PortfolioItem, error)
	Save(ctx context.Context, p *LenderPosition) error
}

type RepaymentRepository interface {
	Create(ctx context.Context, r *Repayment) error
	ListByVault(ctx context.Context, vaultID uint64) ([]Repayment, error)
	TotalByVault(ctx context.Context, vaultID uint64) (decimal.Decimal, error)
}
