package vault

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"invoice-financer/internal/domain/loan"
)

// DepositRecord is the off-chain copy of a confirmed vault deposit.
type DepositRecord struct {
	LenderAddress string          `json:"lenderAddress"`
	Amount        decimal.Decimal `json:"amount"`
	SharesAmount  string          `json:"sharesAmount"`
	TxHash        string          `json:"txHash"`
}

type RedemptionRecord struct {
	LenderAddress  string          `json:"lenderAddress"`
	LenderID       uint64          `json:"lenderId"`
	SharesRedeemed string          `json:"sharesRedeemed"`
	Amount         decimal.Decimal `json:"amount"`
	TxHash         string          `json:"txHash"`
}

type RepaymentRecord struct {
	Amount decimal.Decimal `json:"amount"`
	TxHash string          `json:"txHash"`
}

// Ledger persists the outcome of confirmed on-chain transactions.
type Ledger interface {
	RecordDeposit(ctx context.Context, vaultAddress string, rec DepositRecord) error
	RecordRedemption(ctx context.Context, vaultAddress string, rec RedemptionRecord) error
	RecordRepayment(ctx context.Context, vaultAddress string, rec RepaymentRecord) error
}

// LoanWithVault is a loan request joined with its vault.
type LoanWithVault struct {
	loan.LoanRequest
	VaultID         uint64          `json:"vault_id"`
	VaultAddress    string          `json:"vault_address"`
	VaultName       string          `json:"vault_name"`
	MaxCapacity     decimal.Decimal `json:"max_capacity"`
	CurrentCapacity decimal.Decimal `json:"current_capacity"`
	VaultStatus     Status          `json:"vault_status"`
	FundReleaseAt   *time.Time      `json:"vault_fund_release_at"`
}

// PortfolioItem is one lender position with the vault and loan fields needed for gains.
type PortfolioItem struct {
	LenderID            uint64          `json:"lender_id"`
	VaultID             uint64          `json:"vault_id"`
	VaultAddress        string          `json:"vault_address"`
	VaultName           string          `json:"vault_name"`
	Status              Status          `json:"status"`
	LenderStatus        LenderStatus    `json:"lender_status"`
	Amount              decimal.Decimal `json:"amount"`
	SharesAmount        decimal.Decimal `json:"shares_amount"`
	RedeemedAmount      decimal.Decimal `json:"redeemed_amount"`
	MonthlyInterestRate decimal.Decimal `json:"monthly_interest_rate"`
	FundReleaseAt       *time.Time      `json:"fund_release_at"`
	MaturityDate        *time.Time      `json:"maturity_date"`
}
