package ledgermock

import (
	"context"
	"errors"
	"sync"

	"invoice-financer/internal/domain/loan"
	"invoice-financer/internal/domain/vault"
)

var (
	_ vault.Ledger       = (*Ledger)(nil)
	_ loan.StatusUpdater = (*Loans)(nil)
)

var errUnimplemented = errors.New("ledgermock: method not implemented")

// Ledger is a function-backed vault.Ledger; it counts calls per record kind.
type Ledger struct {
	RecordDepositFn    func(ctx context.Context, vaultAddress string, rec vault.DepositRecord) error
	RecordRedemptionFn func(ctx context.Context, vaultAddress string, rec vault.RedemptionRecord) error
	RecordRepaymentFn  func(ctx context.Context, vaultAddress string, rec vault.RepaymentRecord) error

	mu    sync.Mutex
	Calls map[string]int
}

func (m *Ledger) count(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Calls == nil {
		m.Calls = map[string]int{}
	}
	m.Calls[kind]++
}

func (m *Ledger) RecordDeposit(ctx context.Context, vaultAddress string, rec vault.DepositRecord) error {
	m.count("deposit")
	if m.RecordDepositFn != nil {
		return m.RecordDepositFn(ctx, vaultAddress, rec)
	}
	return errUnimplemented
}

func (m *Ledger) RecordRedemption(ctx context.Context, vaultAddress string, rec vault.RedemptionRecord) error {
	m.count("redemption")
	if m.RecordRedemptionFn != nil {
		return m.RecordRedemptionFn(ctx, vaultAddress, rec)
	}
	return errUnimplemented
}

func (m *Ledger) RecordRepayment(ctx context.Context, vaultAddress string, rec vault.RepaymentRecord) error {
	m.count("repayment")
	if m.RecordRepaymentFn != nil {
		return m.RecordRepaymentFn(ctx, vaultAddress, rec)
	}
	return errUnimplemented
}

type Loans struct {
	UpdateStatusFn func(ctx context.Context, id uint64, status loan.Status) error
}

func (m *Loans) UpdateStatus(ctx context.Context, id uint64, status loan.Status) error {
	if m.UpdateStatusFn != nil {
		return m.UpdateStatusFn(ctx, id, status)
	}
	return errUnimplemented
}
