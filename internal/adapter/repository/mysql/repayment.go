package mysql

import (
	"context"

	vaultDomain "invoice-financer/internal/domain/vault"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RepaymentRepository struct{ db *gorm.DB }

func NewRepaymentRepository(db *gorm.DB) *RepaymentRepository { return &RepaymentRepository{db: db} }

func (r *RepaymentRepository) Create(ctx context.Context, rp *vaultDomain.Repayment) error {
	return r.db.WithContext(ctx).Create(rp).Error
}

func (r *RepaymentRepository) ListByVault(ctx context.Context, vaultID uint64) ([]vaultDomain.Repayment, error) {
	var out []vaultDomain.Repayment
	res := r.db.WithContext(ctx).Where("vault_id = ?", vaultID).Order("repayment_id ASC").Find(&out)
	return out, res.Error
}

// TotalByVault sums in Go so the result keeps decimal precision on every driver.
func (r *RepaymentRepository) TotalByVault(ctx context.Context, vaultID uint64) (decimal.Decimal, error) {
	rows, err := r.ListByVault(ctx, vaultID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, rp := range rows {
		total = total.Add(rp.Amount)
	}
	return total, nil
}
