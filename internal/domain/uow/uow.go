package uow

import (
	"context"

	"invoice-financer/internal/domain/loan"
	"invoice-financer/internal/domain/vault"
)

type Repos struct {
	Loans      loan.Repository
	Vaults     vault.Repository
	Positions  vault.PositionRepository
	Repayments vault.RepaymentRepository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// convenience: lock vault first, then pass it in
	WithinVaultTx(ctx context.Context, address string, fn func(r Repos, v *vault.Vault) error) error
}
