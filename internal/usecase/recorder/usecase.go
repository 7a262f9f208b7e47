package recorder

import (
	"context"
	"log/slog"
	"time"

	"invoice-financer/internal/domain/loan"
	"invoice-financer/internal/domain/vault"
	"invoice-financer/internal/infrastructure/metrics"
	"invoice-financer/internal/logging"
)

const recordTimeout = 15 * time.Second

// Usecase persists confirmed on-chain outcomes off-chain. Failures are logged and counted,
// never returned: the chain is authoritative once a transaction confirmed.
type Usecase struct {
	ledger  vault.Ledger
	loans   loan.StatusUpdater
	log     *slog.Logger
	metrics *metrics.FlowMetrics
}

func NewUsecase(ledger vault.Ledger, loans loan.StatusUpdater, log *slog.Logger, m *metrics.FlowMetrics) *Usecase {
	return &Usecase{ledger: ledger, loans: loans, log: logging.OrDefault(log), metrics: m}
}

// detached keeps recording alive when the caller's context was cancelled after the commit.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
}

func (u *Usecase) Deposit(ctx context.Context, vaultAddress string, rec vault.DepositRecord) bool {
	ctx, cancel := detached(ctx)
	defer cancel()
	return u.note("deposit", vaultAddress, rec.TxHash, u.ledger.RecordDeposit(ctx, vaultAddress, rec))
}

func (u *Usecase) Redemption(ctx context.Context, vaultAddress string, rec vault.RedemptionRecord) bool {
	ctx, cancel := detached(ctx)
	defer cancel()
	return u.note("redemption", vaultAddress, rec.TxHash, u.ledger.RecordRedemption(ctx, vaultAddress, rec))
}

func (u *Usecase) Repayment(ctx context.Context, vaultAddress string, rec vault.RepaymentRecord) bool {
	ctx, cancel := detached(ctx)
	defer cancel()
	return u.note("repayment", vaultAddress, rec.TxHash, u.ledger.RecordRepayment(ctx, vaultAddress, rec))
}

func (u *Usecase) LoanStatus(ctx context.Context, loanRequestID uint64, status loan.Status, txHash string) bool {
	ctx, cancel := detached(ctx)
	defer cancel()
	err := u.loans.UpdateStatus(ctx, loanRequestID, status)
	if err != nil {
		u.metrics.ObserveRecordFailure("loan_status")
		u.log.Warn("failed to update loan status; on-chain transaction already confirmed",
			"loan_request_id", loanRequestID, "status", status, "tx_hash", txHash, "err", err)
		return false
	}
	return true
}

func (u *Usecase) note(record, vaultAddress, txHash string, err error) bool {
	if err == nil {
		return true
	}
	u.metrics.ObserveRecordFailure(record)
	u.log.Warn("failed to record "+record+"; on-chain transaction already confirmed",
		"vault", vaultAddress, "tx_hash", txHash, "err", err)
	return false
}
