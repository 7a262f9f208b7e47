package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

type RegisterVaultInput struct {
	LoanRequestID uint64          `json:"loanRequestId" validate:"required"`
	VaultAddress  string          `json:"vaultAddress" validate:"required,ethaddr"`
	VaultName     string          `json:"vaultName" validate:"required,max=128"`
	MaxCapacity   decimal.Decimal `json:"maxCapacity" validate:"decimalgt0"`
}

type ReleaseInput struct {
	TxHash     string    `json:"txHash" validate:"required,txhash"`
	ReleasedAt time.Time `json:"releasedAt"`
}
