package approval

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type EnsureInput struct {
	Token   common.Address
	Spender common.Address
	// Amount in the token's smallest unit.
	Amount *big.Int
	// Purpose finishes the "Approval complete! Preparing ..." label, e.g. "deposit".
	Purpose string
}

type EnsureResult struct {
	// Approved is true when an approval transaction was sent.
	Approved bool
	TxHash   common.Hash
}
