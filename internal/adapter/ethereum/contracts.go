package ethereum

import (
	"context"
	_ "embed"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"invoice-financer/internal/domain/chain"
)

var (
	//go:embed abi/erc20.json
	erc20JSON string
	//go:embed abi/vault.json
	vaultJSON string
	//go:embed abi/treasury.json
	treasuryJSON string

	erc20ABI    = mustABI("erc20", erc20JSON)
	vaultABI    = mustABI("vault", vaultJSON)
	treasuryABI = mustABI("treasury", treasuryJSON)
)

var (
	_ chain.Token    = (*token)(nil)
	_ chain.Vault    = (*vaultContract)(nil)
	_ chain.Treasury = (*treasury)(nil)
)

func mustABI(name, raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("ethereum: parse %s abi: %v", name, err))
	}
	return parsed
}

// signer produces transact options for one call; nil means the binding is read-only.
type signer interface {
	transactOpts(ctx context.Context, method string) (*bind.TransactOpts, error)
}

// contract is a bound contract plus the signer used for state-changing calls.
type contract struct {
	name   string
	bound  *bind.BoundContract
	signer signer
}

func newContract(name string, addr common.Address, parsed abi.ABI, caller bind.ContractCaller, tr bind.ContractTransactor, s signer) contract {
	return contract{
		name:   name,
		bound:  bind.NewBoundContract(addr, parsed, caller, tr, nil),
		signer: s,
	}
}

func (c contract) call(ctx context.Context, method string, args ...any) (any, error) {
	var out []any
	if err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("%s.%s: %w", c.name, method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s.%s: empty result", c.name, method)
	}
	return out[0], nil
}

func (c contract) callBig(ctx context.Context, method string, args ...any) (*big.Int, error) {
	v, err := c.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	return abi.ConvertType(v, new(big.Int)).(*big.Int), nil
}

func (c contract) transact(ctx context.Context, method string, args ...any) (*types.Transaction, error) {
	if c.signer == nil {
		return nil, fmt.Errorf("%s.%s: read-only binding", c.name, method)
	}
	opts, err := c.signer.transactOpts(ctx, c.name+"."+method)
	if err != nil {
		return nil, err
	}
	tx, err := c.bound.Transact(opts, method, args...)
	if err != nil {
		return nil, chain.Classify(fmt.Errorf("%s.%s: %w", c.name, method, err))
	}
	return tx, nil
}

type token struct{ contract }

func (t *token) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	return t.callBig(ctx, "allowance", owner, spender)
}

func (t *token) Approve(ctx context.Context, spender common.Address, amount *big.Int) (*types.Transaction, error) {
	return t.transact(ctx, "approve", spender, amount)
}

func (t *token) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return t.callBig(ctx, "balanceOf", account)
}

type vaultContract struct{ contract }

func (v *vaultContract) PreviewDeposit(ctx context.Context, assets *big.Int) (*big.Int, error) {
	return v.callBig(ctx, "previewDeposit", assets)
}

func (v *vaultContract) Deposit(ctx context.Context, assets *big.Int, receiver common.Address) (*types.Transaction, error) {
	return v.transact(ctx, "deposit", assets, receiver)
}

func (v *vaultContract) PreviewRedeem(ctx context.Context, shares *big.Int) (*big.Int, error) {
	return v.callBig(ctx, "previewRedeem", shares)
}

func (v *vaultContract) Redeem(ctx context.Context, shares *big.Int, receiver, owner common.Address) (*types.Transaction, error) {
	return v.transact(ctx, "redeem", shares, receiver, owner)
}

func (v *vaultContract) ConvertToShares(ctx context.Context, assets *big.Int) (*big.Int, error) {
	return v.callBig(ctx, "convertToShares", assets)
}

func (v *vaultContract) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return v.callBig(ctx, "balanceOf", account)
}

func (v *vaultContract) State(ctx context.Context) (chain.VaultState, error) {
	out, err := v.call(ctx, "state")
	if err != nil {
		return 0, err
	}
	s, ok := out.(uint8)
	if !ok {
		return 0, fmt.Errorf("vault.state: unexpected type %T", out)
	}
	return chain.VaultState(s), nil
}

func (v *vaultContract) Borrower(ctx context.Context) (common.Address, error) {
	out, err := v.call(ctx, "BORROWER")
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := out.(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("vault.BORROWER: unexpected type %T", out)
	}
	return addr, nil
}

type treasury struct{ contract }

func (t *treasury) Deposit(ctx context.Context, originalDebt, amount *big.Int, vault, tokenAddr common.Address) (*types.Transaction, error) {
	return t.transact(ctx, "deposit", originalDebt, amount, vault, tokenAddr)
}

// Reader opens read-only vault bindings against an RPC node.
type Reader struct {
	caller bind.ContractCaller
}

var _ chain.Reader = (*Reader)(nil)

func NewReader(caller bind.ContractCaller) *Reader { return &Reader{caller: caller} }

func (r *Reader) Vault(addr common.Address) chain.Vault {
	return &vaultContract{newContract("vault", addr, vaultABI, r.caller, nil, nil)}
}
