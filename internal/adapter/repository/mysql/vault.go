package mysql

import (
	"context"
	"errors"
	"strings"

	loanDomain "invoice-financer/internal/domain/loan"
	vaultDomain "invoice-financer/internal/domain/vault"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// vault columns joined onto loan_requests.*; COALESCE keeps loans without a vault scannable.
const loanWithVaultColumns = `loan_requests.*,
	COALESCE(vaults.vault_id, 0) AS vault_id,
	COALESCE(vaults.vault_address, '') AS vault_address,
	COALESCE(vaults.vault_name, '') AS vault_name,
	COALESCE(vaults.max_capacity, 0) AS max_capacity,
	COALESCE(vaults.current_capacity, 0) AS current_capacity,
	COALESCE(vaults.status, '') AS vault_status,
	vaults.fund_release_at AS fund_release_at`

type VaultRepository struct{ db *gorm.DB }

func NewVaultRepository(db *gorm.DB) *VaultRepository { return &VaultRepository{db: db} }

func (r *VaultRepository) Create(ctx context.Context, v *vaultDomain.Vault) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *VaultRepository) Save(ctx context.Context, v *vaultDomain.Vault) error {
	return r.db.WithContext(ctx).Save(v).Error
}

func (r *VaultRepository) GetByAddress(ctx context.Context, address string) (*vaultDomain.Vault, error) {
	return r.first(r.db.WithContext(ctx), "LOWER(vault_address) = ?", strings.ToLower(address))
}

func (r *VaultRepository) GetByAddressForUpdate(ctx context.Context, address string) (*vaultDomain.Vault, error) {
	q := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
	return r.first(q, "LOWER(vault_address) = ?", strings.ToLower(address))
}

func (r *VaultRepository) GetByLoanRequestID(ctx context.Context, loanRequestID uint64) (*vaultDomain.Vault, error) {
	return r.first(r.db.WithContext(ctx), "loan_request_id = ?", loanRequestID)
}

func (r *VaultRepository) first(q *gorm.DB, where string, arg any) (*vaultDomain.Vault, error) {
	var out vaultDomain.Vault
	res := q.Where(where, arg).First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, vaultDomain.ErrNotFound
	}
	if res.Error != nil {
		return nil, res.Error
	}
	return &out, nil
}

func (r *VaultRepository) ListWithLoans(ctx context.Context) ([]vaultDomain.LoanWithVault, error) {
	var out []vaultDomain.LoanWithVault
	res := r.db.WithContext(ctx).
		Table(loanDomain.LoanRequest{}.TableName()).
		Select(loanWithVaultColumns).
		Joins("JOIN vaults ON vaults.loan_request_id = loan_requests.id").
		Order("vaults.vault_id DESC").
		Scan(&out)
	return out, res.Error
}

func (r *VaultRepository) ListWithLoansByStatus(ctx context.Context, status string) ([]vaultDomain.LoanWithVault, error) {
	var out []vaultDomain.LoanWithVault
	res := r.db.WithContext(ctx).
		Table(loanDomain.LoanRequest{}.TableName()).
		Select(loanWithVaultColumns).
		Joins("LEFT JOIN vaults ON vaults.loan_request_id = loan_requests.id").
		Where("loan_requests.status = ?", status).
		Order("loan_requests.created_at DESC, loan_requests.id DESC").
		Scan(&out)
	return out, res.Error
}

func (r *VaultRepository) ListByBorrower(ctx context.Context, borrowerAddress string) ([]vaultDomain.LoanWithVault, error) {
	var out []vaultDomain.LoanWithVault
	res := r.db.WithContext(ctx).
		Table(loanDomain.LoanRequest{}.TableName()).
		Select(loanWithVaultColumns).
		Joins("LEFT JOIN vaults ON vaults.loan_request_id = loan_requests.id").
		Where("LOWER(loan_requests.borrower_address) = ?", strings.ToLower(borrowerAddress)).
		Order("loan_requests.created_at DESC, loan_requests.id DESC").
		Scan(&out)
	return out, res.Error
}
