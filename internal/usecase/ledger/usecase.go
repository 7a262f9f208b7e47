// Package ledger is the off-chain record of vault activity. The chain stays authoritative;
// these records mirror confirmed transactions for dashboards.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"invoice-financer/internal/domain/loan"
	"invoice-financer/internal/domain/uow"
	"invoice-financer/internal/domain/vault"
	"invoice-financer/internal/logging"
)

var ErrLoanNotListable = errors.New("loan request already has a vault or is closed")

type Usecase struct {
	repos uow.Repos
	uow   uow.UnitOfWork
	log   *slog.Logger
	now   func() time.Time
}

// NewUsecase: repos serve plain reads, tx serves every write.
func NewUsecase(repos uow.Repos, tx uow.UnitOfWork, log *slog.Logger) *Usecase {
	return &Usecase{repos: repos, uow: tx, log: logging.OrDefault(log), now: time.Now}
}

func (u *Usecase) ListVaults(ctx context.Context) ([]vault.LoanWithVault, error) {
	return u.repos.Vaults.ListWithLoans(ctx)
}

func (u *Usecase) GetVault(ctx context.Context, address string) (*vault.Vault, error) {
	return u.repos.Vaults.GetByAddress(ctx, address)
}

func (u *Usecase) Portfolio(ctx context.Context, lenderAddress string) ([]vault.PortfolioItem, error) {
	return u.repos.Positions.Portfolio(ctx, lenderAddress)
}

// RegisterVault links a deployed vault to a loan request and lists the request.
func (u *Usecase) RegisterVault(ctx context.Context, in RegisterVaultInput) (*vault.Vault, error) {
	if !in.MaxCapacity.IsPositive() {
		return nil, vault.ErrInvalidAmount
	}
	var out *vault.Vault
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		l, err := r.Loans.GetByID(ctx, in.LoanRequestID)
		if err != nil {
			return err
		}
		if l.Status != loan.StatusRequested {
			return ErrLoanNotListable
		}
		v := &vault.Vault{
			LoanRequestID:   l.ID,
			Address:         in.VaultAddress,
			Name:            in.VaultName,
			MaxCapacity:     in.MaxCapacity,
			CurrentCapacity: decimal.Zero,
			Status:          vault.StatusFunding,
		}
		if err := r.Vaults.Create(ctx, v); err != nil {
			return err
		}
		if err := r.Loans.UpdateStatus(ctx, l.ID, loan.StatusListed); err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReleaseFunds marks a funded vault's capital as released to the borrower; interest accrues from here.
func (u *Usecase) ReleaseFunds(ctx context.Context, address string, in ReleaseInput) (*vault.Vault, error) {
	at := in.ReleasedAt
	if at.IsZero() {
		at = u.now()
	}
	var out *vault.Vault
	err := u.uow.WithinVaultTx(ctx, address, func(r uow.Repos, v *vault.Vault) error {
		if v.Status != vault.StatusFunded {
			return vault.ErrInvalidTransition
		}
		if err := v.Advance(vault.StatusReleased); err != nil {
			return err
		}
		at := at.UTC()
		hash := in.TxHash
		v.FundReleaseAt, v.FundReleaseTxHash = &at, &hash
		if err := r.Vaults.Save(ctx, v); err != nil {
			return err
		}
		if err := r.Loans.UpdateStatus(ctx, v.LoanRequestID, loan.StatusActive); err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RecordDeposit adds a FUNDED position and raises the vault's capacity. Reaching max capacity
// closes funding.
func (u *Usecase) RecordDeposit(ctx context.Context, address string, rec vault.DepositRecord) (*vault.LenderPosition, error) {
	if !rec.Amount.IsPositive() {
		return nil, vault.ErrInvalidAmount
	}
	shares := decimal.Zero
	if rec.SharesAmount != "" {
		s, err := decimal.NewFromString(rec.SharesAmount)
		if err != nil {
			return nil, err
		}
		shares = s
	}

	var out *vault.LenderPosition
	err := u.uow.WithinVaultTx(ctx, address, func(r uow.Repos, v *vault.Vault) error {
		if v.Status != vault.StatusFunding {
			return vault.ErrNotFunding
		}
		next := v.CurrentCapacity.Add(rec.Amount)
		if next.GreaterThan(v.MaxCapacity) {
			return vault.ErrCapacityExceeded
		}
		p := &vault.LenderPosition{
			VaultID:        v.ID,
			LenderAddress:  rec.LenderAddress,
			Amount:         rec.Amount,
			SharesAmount:   shares,
			TxHash:         rec.TxHash,
			Status:         vault.LenderFunded,
			RedeemedAmount: decimal.Zero,
		}
		if err := r.Positions.Create(ctx, p); err != nil {
			return err
		}
		v.CurrentCapacity = next
		if next.Equal(v.MaxCapacity) {
			if err := v.Advance(vault.StatusFunded); err != nil {
				return err
			}
		}
		if err := r.Vaults.Save(ctx, v); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.Info("deposit recorded", "vault", address, "lender", rec.LenderAddress, "amount", rec.Amount.String(), "tx_hash", rec.TxHash)
	return out, nil
}

// RecordRedemption closes a position. Once every position of a repaid vault is closed
// the vault becomes REDEEMED.
func (u *Usecase) RecordRedemption(ctx context.Context, address string, rec vault.RedemptionRecord) (*vault.LenderPosition, error) {
	var out *vault.LenderPosition
	err := u.uow.WithinVaultTx(ctx, address, func(r uow.Repos, v *vault.Vault) error {
		p, err := r.Positions.GetByID(ctx, v.ID, rec.LenderID)
		if err != nil {
			return err
		}
		if rec.LenderAddress != "" && !strings.EqualFold(p.LenderAddress, rec.LenderAddress) {
			return vault.ErrPositionNotFound
		}
		if p.Status == vault.LenderRedeemed {
			return vault.ErrAlreadyRedeemed
		}
		now := u.now().UTC()
		hash := rec.TxHash
		p.Status = vault.LenderRedeemed
		p.SharesAmount = decimal.Zero
		p.RedeemedAmount = rec.Amount
		p.RedemptionTxHash = &hash
		p.RedeemedAt = &now
		if err := r.Positions.Save(ctx, p); err != nil {
			return err
		}

		if v.Status == vault.StatusRepaid {
			all, err := r.Positions.ListByVault(ctx, v.ID)
			if err != nil {
				return err
			}
			if allRedeemed(all, p.ID) {
				if err := v.Advance(vault.StatusRedeemed); err != nil {
					return err
				}
				if err := r.Vaults.Save(ctx, v); err != nil {
					return err
				}
			}
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.Info("redemption recorded", "vault", address, "lender_id", rec.LenderID, "amount", rec.Amount.String(), "tx_hash", rec.TxHash)
	return out, nil
}

// allRedeemed treats justSaved as redeemed even if the listing read a stale row.
func allRedeemed(ps []vault.LenderPosition, justSaved uint64) bool {
	for _, p := range ps {
		if p.ID != justSaved && p.Status != vault.LenderRedeemed {
			return false
		}
	}
	return true
}

// RecordRepayment appends to the repayment ledger and moves a released vault to REPAID.
func (u *Usecase) RecordRepayment(ctx context.Context, address string, rec vault.RepaymentRecord) (*vault.Repayment, error) {
	if !rec.Amount.IsPositive() {
		return nil, vault.ErrInvalidAmount
	}
	var out *vault.Repayment
	err := u.uow.WithinVaultTx(ctx, address, func(r uow.Repos, v *vault.Vault) error {
		rp := &vault.Repayment{VaultID: v.ID, Amount: rec.Amount, TxHash: rec.TxHash}
		if err := r.Repayments.Create(ctx, rp); err != nil {
			return err
		}
		if v.Status == vault.StatusReleased {
			if err := v.Advance(vault.StatusRepaid); err != nil {
				return err
			}
			if err := r.Vaults.Save(ctx, v); err != nil {
				return err
			}
		}
		out = rp
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.Info("repayment recorded", "vault", address, "amount", rec.Amount.String(), "tx_hash", rec.TxHash)
	return out, nil
}
