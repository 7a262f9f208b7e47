package chain

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// EIP-1193 provider error codes.
const (
	CodeUserRejected      = 4001
	CodeUnrecognizedChain = 4902
)

var (
	ErrUserRejected = errors.New("transaction cancelled by user")
	ErrNoShares     = errors.New("you have no shares to redeem in this vault")
)

// ProviderError is an error reported by a wallet provider.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string { return fmt.Sprintf("provider error %d: %s", e.Code, e.Message) }

// ConfigurationError reports a missing required address or setting.
type ConfigurationError struct{ Field string }

func (e *ConfigurationError) Error() string { return e.Field + " not configured" }

type NetworkSwitchError struct {
	ChainID *big.Int
	Err     error
}

func (e *NetworkSwitchError) Error() string {
	return fmt.Sprintf("could not switch wallet to chain %s: %v", e.ChainID, e.Err)
}

func (e *NetworkSwitchError) Unwrap() error { return e.Err }

// ApprovalInsufficientError: allowance still short after a confirmed approval.
type ApprovalInsufficientError struct {
	Have, Want *big.Int
}

func (e *ApprovalInsufficientError) Error() string {
	return fmt.Sprintf("approval failed: insufficient allowance after transaction (have %s, need %s)", e.Have, e.Want)
}

// InsufficientAllowanceError is how the deposit flow names an approval shortfall.
type InsufficientAllowanceError = ApprovalInsufficientError

type InvalidVaultStateError struct {
	Current, Expected VaultState
}

func (e *InvalidVaultStateError) Error() string {
	return fmt.Sprintf("vault is not in %s state. Current state: %s", e.Expected, e.Current)
}

type UnauthorizedBorrowerError struct {
	Expected, Actual common.Address
}

func (e *UnauthorizedBorrowerError) Error() string {
	return fmt.Sprintf("only the borrower can repay the loan. Expected borrower: %s, but connected wallet: %s",
		e.Expected.Hex(), e.Actual.Hex())
}

type NoSharesError struct{ Vault common.Address }

func (e *NoSharesError) Error() string { return ErrNoShares.Error() }
func (e *NoSharesError) Unwrap() error { return ErrNoShares }

type InsufficientSharesError struct {
	Have, Need *big.Int
}

func (e *InsufficientSharesError) Error() string {
	return fmt.Sprintf("insufficient shares. Have %s, need %s", e.Have, e.Need)
}

// UserRejectedError wraps the wallet's rejection signal.
type UserRejectedError struct{ Err error }

func (e *UserRejectedError) Error() string { return ErrUserRejected.Error() }
func (e *UserRejectedError) Unwrap() error { return e.Err }
func (e *UserRejectedError) Is(target error) bool {
	return target == ErrUserRejected
}

type RevertedError struct{ TxHash common.Hash }

func (e *RevertedError) Error() string { return fmt.Sprintf("transaction %s reverted", e.TxHash.Hex()) }

// Classify turns a wallet rejection into UserRejectedError and leaves every other error unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var rejected *UserRejectedError
	if errors.As(err, &rejected) {
		return err
	}
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Code == CodeUserRejected {
		return &UserRejectedError{Err: err}
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "user rejected") || strings.Contains(msg, "user denied") {
		return &UserRejectedError{Err: err}
	}
	return err
}
