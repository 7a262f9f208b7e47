package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// VaultState is the integer returned by the vault contract's state().
type VaultState uint8

const (
	VaultFunding VaultState = 0
	VaultActive  VaultState = 1
	VaultRepaid  VaultState = 2
)

func (s VaultState) String() string {
	switch s {
	case VaultFunding:
		return "FUNDING"
	case VaultActive:
		return "ACTIVE"
	case VaultRepaid:
		return "REPAID"
	}
	return "UNKNOWN"
}

// NativeCurrency describes the gas token of a chain.
type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// Params is the chain definition handed to a wallet that does not know the chain yet.
type Params struct {
	ChainID           *big.Int       `json:"-"`
	ChainName         string         `json:"chainName"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
	RPCURLs           []string       `json:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls"`
}

// Wallet is a user-held account able to select a network and sign.
// Every method may block on the user.
type Wallet interface {
	ChainID(ctx context.Context) (*big.Int, error)
	SwitchChain(ctx context.Context, chainID *big.Int) error
	AddChain(ctx context.Context, params Params) error
	Session(ctx context.Context) (Session, error)
}

// Session is a signing handle bound to the wallet's active chain.
type Session interface {
	Address() common.Address
	Token(addr common.Address) Token
	Vault(addr common.Address) Vault
	Treasury(addr common.Address) Treasury
	// WaitMined blocks until tx has one confirmation; a reverted receipt is an error.
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

type Token interface {
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
	Approve(ctx context.Context, spender common.Address, amount *big.Int) (*types.Transaction, error)
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
}

type Vault interface {
	PreviewDeposit(ctx context.Context, assets *big.Int) (*big.Int, error)
	Deposit(ctx context.Context, assets *big.Int, receiver common.Address) (*types.Transaction, error)
	PreviewRedeem(ctx context.Context, shares *big.Int) (*big.Int, error)
	Redeem(ctx context.Context, shares *big.Int, receiver, owner common.Address) (*types.Transaction, error)
	ConvertToShares(ctx context.Context, assets *big.Int) (*big.Int, error)
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
	State(ctx context.Context) (VaultState, error)
	Borrower(ctx context.Context) (common.Address, error)
}

type Treasury interface {
	Deposit(ctx context.Context, originalDebt, amount *big.Int, vault, token common.Address) (*types.Transaction, error)
}

// Reader opens read-only vault bindings without a wallet.
type Reader interface {
	Vault(addr common.Address) Vault
}
