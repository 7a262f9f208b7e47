package uowmock

import (
	"context"
	"errors"

	"invoice-financer/internal/domain/uow"
	"invoice-financer/internal/domain/vault"
)

// Ensure compile-time compliance
var _ uow.UnitOfWork = (*UoW)(nil)

var errUnimplemented = errors.New("uowmock: method not implemented")

// UoW is a function-backed mock that satisfies uow.UnitOfWork.
// Fill in the function fields you need in a test; unfilled ones return errUnimplemented.
type UoW struct {
	WithinTxFn      func(ctx context.Context, fn func(r uow.Repos) error) error
	WithinVaultTxFn func(ctx context.Context, address string, fn func(r uow.Repos, v *vault.Vault) error) error
}

// Convenience fluent setters
func New() *UoW { return &UoW{} }
func (m *UoW) WithWithinTx(fn func(context.Context, func(uow.Repos) error) error) *UoW {
	m.WithinTxFn = fn
	return m
}
func (m *UoW) WithWithinVaultTx(fn func(context.Context, string, func(uow.Repos, *vault.Vault) error) error) *UoW {
	m.WithinVaultTxFn = fn
	return m
}
func (m *UoW) Reset() { *m = UoW{} }

// Passthrough runs every transaction body directly against r, locking vaults via r.Vaults.
func Passthrough(r uow.Repos) *UoW {
	return &UoW{
		WithinTxFn: func(_ context.Context, fn func(uow.Repos) error) error { return fn(r) },
		WithinVaultTxFn: func(ctx context.Context, address string, fn func(uow.Repos, *vault.Vault) error) error {
			v, err := r.Vaults.GetByAddressForUpdate(ctx, address)
			if err != nil {
				return err
			}
			return fn(r, v)
		},
	}
}

// Methods implementing UnitOfWork
func (m *UoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	if m.WithinTxFn != nil {
		return m.WithinTxFn(ctx, fn)
	}
	return errUnimplemented
}
func (m *UoW) WithinVaultTx(ctx context.Context, address string, fn func(r uow.Repos, v *vault.Vault) error) error {
	if m.WithinVaultTxFn != nil {
		return m.WithinVaultTxFn(ctx, address, fn)
	}
	return errUnimplemented
}
