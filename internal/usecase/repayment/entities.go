package repayment

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

type RepayInput struct {
	VaultAddress  common.Address
	LoanRequestID uint64
	// Amount and OriginalDebt are settlement-token amounts, e.g. 10300 and 10000.
	Amount       decimal.Decimal
	OriginalDebt decimal.Decimal
}

type RepayResult struct {
	TxHash           common.Hash `json:"tx_hash"`
	Approved         bool        `json:"approved"`
	RepaymentTracked bool        `json:"repayment_tracked"`
	StatusUpdated    bool        `json:"status_updated"`
}
