package vaultmock

import (
	"context"

	"github.com/shopspring/decimal"

	domain "invoice-financer/internal/domain/vault"
)

// Ensure compile-time compliance
var (
	_ domain.Repository          = (*Repo)(nil)
	_ domain.PositionRepository  = (*Positions)(nil)
	_ domain.RepaymentRepository = (*Repayments)(nil)
)

// Repo is a function-backed domain.Repository; unfilled reads return ErrNotFound or nothing.
type Repo struct {
	CreateFn                func(ctx context.Context, v *domain.Vault) error
	GetByAddressFn          func(ctx context.Context, address string) (*domain.Vault, error)
	GetByAddressForUpdateFn func(ctx context.Context, address string) (*domain.Vault, error)
	GetByLoanRequestIDFn    func(ctx context.Context, id uint64) (*domain.Vault, error)
	ListWithLoansFn         func(ctx context.Context) ([]domain.LoanWithVault, error)
	ListWithLoansByStatusFn func(ctx context.Context, status string) ([]domain.LoanWithVault, error)
	ListByBorrowerFn        func(ctx context.Context, borrower string) ([]domain.LoanWithVault, error)
	SaveFn                  func(ctx context.Context, v *domain.Vault) error
}

func (m *Repo) Create(ctx context.Context, v *domain.Vault) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, v)
	}
	return nil
}
func (m *Repo) GetByAddress(ctx context.Context, address string) (*domain.Vault, error) {
	if m.GetByAddressFn != nil {
		return m.GetByAddressFn(ctx, address)
	}
	return nil, domain.ErrNotFound
}
func (m *Repo) GetByAddressForUpdate(ctx context.Context, address string) (*domain.Vault, error) {
	if m.GetByAddressForUpdateFn != nil {
		return m.GetByAddressForUpdateFn(ctx, address)
	}
	return m.GetByAddress(ctx, address)
}
func (m *Repo) GetByLoanRequestID(ctx context.Context, id uint64) (*domain.Vault, error) {
	if m.GetByLoanRequestIDFn != nil {
		return m.GetByLoanRequestIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}
func (m *Repo) ListWithLoans(ctx context.Context) ([]domain.LoanWithVault, error) {
	if m.ListWithLoansFn != nil {
		return m.ListWithLoansFn(ctx)
	}
	return nil, nil
}
func (m *Repo) ListWithLoansByStatus(ctx context.Context, status string) ([]domain.LoanWithVault, error) {
	if m.ListWithLoansByStatusFn != nil {
		return m.ListWithLoansByStatusFn(ctx, status)
	}
	return nil, nil
}
func (m *Repo) ListByBorrower(ctx context.Context, borrower string) ([]domain.LoanWithVault, error) {
	if m.ListByBorrowerFn != nil {
		return m.ListByBorrowerFn(ctx, borrower)
	}
	return nil, nil
}
func (m *Repo) Save(ctx context.Context, v *domain.Vault) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, v)
	}
	return nil
}

type Positions struct {
	CreateFn      func(ctx context.Context, p *domain.LenderPosition) error
	GetByIDFn     func(ctx context.Context, vaultID, lenderID uint64) (*domain.LenderPosition, error)
	ListByVaultFn func(ctx context.Context, vaultID uint64) ([]domain.LenderPosition, error)
	PortfolioFn   func(ctx context.Context, lender string) ([]domain.PortfolioItem, error)
	SaveFn        func(ctx context.Context, p *domain.LenderPosition) error
}

func (m *Positions) Create(ctx context.Context, p *domain.LenderPosition) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, p)
	}
	return nil
}
func (m *Positions) GetByID(ctx context.Context, vaultID, lenderID uint64) (*domain.LenderPosition, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, vaultID, lenderID)
	}
	return nil, domain.ErrPositionNotFound
}
func (m *Positions) ListByVault(ctx context.Context, vaultID uint64) ([]domain.LenderPosition, error) {
	if m.ListByVaultFn != nil {
		return m.ListByVaultFn(ctx, vaultID)
	}
	return nil, nil
}
func (m *Positions) Portfolio(ctx context.Context, lender string) ([]domain.PortfolioItem, error) {
	if m.PortfolioFn != nil {
		return m.PortfolioFn(ctx, lender)
	}
	return nil, nil
}
func (m *Positions) Save(ctx context.Context, p *domain.LenderPosition) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, p)
	}
	return nil
}

type Repayments struct {
	CreateFn      func(ctx context.Context, r *domain.Repayment) error
	ListByVaultFn func(ctx context.Context, vaultID uint64) ([]domain.Repayment, error)
}

func (m *Repayments) Create(ctx context.Context, r *domain.Repayment) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, r)
	}
	return nil
}
func (m *Repayments) ListByVault(ctx context.Context, vaultID uint64) ([]domain.Repayment, error) {
	if m.ListByVaultFn != nil {
		return m.ListByVaultFn(ctx, vaultID)
	}
	return nil, nil
}
func (m *Repayments) TotalByVault(ctx context.Context, vaultID uint64) (decimal.Decimal, error) {
	rows, err := m.ListByVault(ctx, vaultID)
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Amount)
	}
	return total, err
}
