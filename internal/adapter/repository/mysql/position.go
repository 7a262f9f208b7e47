package mysql

import (
	"context"
	"errors"
	"strings"

	vaultDomain "invoice-financer/internal/domain/vault"

	"gorm.io/gorm"
)

type PositionRepository struct{ db *gorm.DB }

func NewPositionRepository(db *gorm.DB) *PositionRepository { return &PositionRepository{db: db} }

func (r *PositionRepository) Create(ctx context.Context, p *vaultDomain.LenderPosition) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PositionRepository) Save(ctx context.Context, p *vaultDomain.LenderPosition) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *PositionRepository) GetByID(ctx context.Context, vaultID, lenderID uint64) (*vaultDomain.LenderPosition, error) {
	var out vaultDomain.LenderPosition
	res := r.db.WithContext(ctx).Where("vault_id = ? AND lender_id = ?", vaultID, lenderID).First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, vaultDomain.ErrPositionNotFound
	}
	if res.Error != nil {
		return nil, res.Error
	}
	return &out, nil
}

func (r *PositionRepository) ListByVault(ctx context.Context, vaultID uint64) ([]vaultDomain.LenderPosition, error) {
	var out []vaultDomain.LenderPosition
	res := r.db.WithContext(ctx).Where("vault_id = ?", vaultID).Order("lender_id ASC").Find(&out)
	return out, res.Error
}

// Portfolio joins every position of lenderAddress with its vault and loan request.
func (r *PositionRepository) Portfolio(ctx context.Context, lenderAddress string) ([]vaultDomain.PortfolioItem, error) {
	var out []vaultDomain.PortfolioItem
	res := r.db.WithContext(ctx).
		Table(vaultDomain.LenderPosition{}.TableName()).
		Select(`vault_lenders.lender_id AS lender_id,
			vault_lenders.vault_id AS vault_id,
			vaults.vault_address AS vault_address,
			vaults.vault_name AS vault_name,
			vaults.status AS status,
			vault_lenders.status AS lender_status,
			vault_lenders.amount AS amount,
			vault_lenders.shares_amount AS shares_amount,
			COALESCE(vault_lenders.redeemed_amount, 0) AS redeemed_amount,
			loan_requests.monthly_interest_rate AS monthly_interest_rate,
			vaults.fund_release_at AS fund_release_at,
			loan_requests.invoice_due_date AS maturity_date`).
		Joins("JOIN vaults ON vaults.vault_id = vault_lenders.vault_id").
		Joins("JOIN loan_requests ON loan_requests.id = vaults.loan_request_id").
		Where("LOWER(vault_lenders.lender_address) = ?", strings.ToLower(lenderAddress)).
		Order("vault_lenders.created_at DESC, vault_lenders.lender_id DESC").
		Scan(&out)
	return out, res.Error
}
