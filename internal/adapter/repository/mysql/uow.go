package mysql

import (
	"context"

	vaultDomain "invoice-financer/internal/domain/vault"
	"invoice-financer/internal/domain/uow"

	"gorm.io/gorm"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

// NewRepos binds every repository to db, outside any transaction.
func NewRepos(db *gorm.DB) uow.Repos { return repos(db) }

func repos(tx *gorm.DB) uow.Repos {
	return uow.Repos{
		Loans:      &LoanRepository{db: tx},
		Vaults:     &VaultRepository{db: tx},
		Positions:  &PositionRepository{db: tx},
		Repayments: &RepaymentRepository{db: tx},
	}
}

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(repos(tx))
	})
}

func (u *GormUoW) WithinVaultTx(ctx context.Context, address string, fn func(r uow.Repos, v *vaultDomain.Vault) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := repos(tx)
		// lock the vault row up-front so concurrent deposits serialise on capacity
		v, err := r.Vaults.GetByAddressForUpdate(ctx, address)
		if err != nil {
			return err
		}
		return fn(r, v)
	})
}
