package vault

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

type DepositInput struct {
	VaultAddress common.Address
	// Amount in settlement-token units, e.g. 500 for 500 USDC.
	Amount decimal.Decimal
}

type DepositResult struct {
	TxHash common.Hash `json:"tx_hash"`
	// Shares expected from previewDeposit, in 18-decimal smallest units.
	Shares       *big.Int `json:"-"`
	SharesAmount string   `json:"shares_amount"`
	Approved     bool     `json:"approved"`
	Recorded     bool     `json:"recorded"`
}

type RedeemInput struct {
	VaultAddress common.Address
	// Shares in 18-decimal smallest units.
	Shares   *big.Int
	LenderID uint64
}

type RedeemResult struct {
	TxHash         common.Hash     `json:"tx_hash"`
	RedeemedAmount decimal.Decimal `json:"redeemed_amount"`
	Recorded       bool            `json:"recorded"`
}

type PreviewInput struct {
	VaultAddress  common.Address
	DepositAmount decimal.Decimal
	// StoredShares is the off-chain shares_amount ("250.0"); empty or zero falls back to convertToShares.
	StoredShares string
}

type PreviewResult struct {
	RedeemableAmount decimal.Decimal `json:"redeemable_amount"`
	SharesToRedeem   *big.Int        `json:"-"`
}
