package chainmock

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"invoice-financer/internal/domain/chain"
)

// Ensure compile-time compliance
var (
	_ chain.Wallet   = (*Wallet)(nil)
	_ chain.Session  = (*Session)(nil)
	_ chain.Token    = (*Token)(nil)
	_ chain.Vault    = (*Vault)(nil)
	_ chain.Treasury = (*Treasury)(nil)
	_ chain.Reader   = (*Reader)(nil)
)

var errUnimplemented = errors.New("chainmock: method not implemented")

// Tx builds a distinguishable transaction for assertions on hashes.
func Tx(nonce uint64) *types.Transaction {
	return types.NewTx(&types.LegacyTx{Nonce: nonce, GasPrice: big.NewInt(1), Gas: 21000})
}

// Wallet is a function-backed mock; unfilled functions return errUnimplemented.
type Wallet struct {
	ChainIDFn     func(ctx context.Context) (*big.Int, error)
	SwitchChainFn func(ctx context.Context, chainID *big.Int) error
	AddChainFn    func(ctx context.Context, params chain.Params) error
	SessionFn     func(ctx context.Context) (chain.Session, error)
}

// OnChain returns a wallet already on chainID that hands out sess.
func OnChain(chainID int64, sess chain.Session) *Wallet {
	return &Wallet{
		ChainIDFn: func(context.Context) (*big.Int, error) { return big.NewInt(chainID), nil },
		SessionFn: func(context.Context) (chain.Session, error) { return sess, nil },
	}
}

func (m *Wallet) ChainID(ctx context.Context) (*big.Int, error) {
	if m.ChainIDFn != nil {
		return m.ChainIDFn(ctx)
	}
	return nil, errUnimplemented
}
func (m *Wallet) SwitchChain(ctx context.Context, chainID *big.Int) error {
	if m.SwitchChainFn != nil {
		return m.SwitchChainFn(ctx, chainID)
	}
	return errUnimplemented
}
func (m *Wallet) AddChain(ctx context.Context, params chain.Params) error {
	if m.AddChainFn != nil {
		return m.AddChainFn(ctx, params)
	}
	return errUnimplemented
}
func (m *Wallet) Session(ctx context.Context) (chain.Session, error) {
	if m.SessionFn != nil {
		return m.SessionFn(ctx)
	}
	return nil, errUnimplemented
}

// Session wires fixed contract mocks and records mined transactions.
type Session struct {
	Addr         common.Address
	TokenMock    *Token
	Vaults       map[common.Address]*Vault
	TreasuryMock *Treasury
	WaitMinedFn  func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)

	mu    sync.Mutex
	Mined []common.Hash
}

func (s *Session) Address() common.Address { return s.Addr }
func (s *Session) Token(common.Address) chain.Token { return s.TokenMock }
func (s *Session) Treasury(common.Address) chain.Treasury { return s.TreasuryMock }
func (s *Session) Vault(addr common.Address) chain.Vault {
	if v, ok := s.Vaults[addr]; ok {
		return v
	}
	return &Vault{}
}

func (s *Session) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	s.mu.Lock()
	s.Mined = append(s.Mined, tx.Hash())
	s.mu.Unlock()
	if s.WaitMinedFn != nil {
		return s.WaitMinedFn(ctx, tx)
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: tx.Hash()}, nil
}

type Token struct {
	AllowanceFn func(ctx context.Context, owner, spender common.Address) (*big.Int, error)
	ApproveFn   func(ctx context.Context, spender common.Address, amount *big.Int) (*types.Transaction, error)
	BalanceOfFn func(ctx context.Context, account common.Address) (*big.Int, error)
}

func (m *Token) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	if m.AllowanceFn != nil {
		return m.AllowanceFn(ctx, owner, spender)
	}
	return nil, errUnimplemented
}
func (m *Token) Approve(ctx context.Context, spender common.Address, amount *big.Int) (*types.Transaction, error) {
	if m.ApproveFn != nil {
		return m.ApproveFn(ctx, spender, amount)
	}
	return nil, errUnimplemented
}
func (m *Token) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	if m.BalanceOfFn != nil {
		return m.BalanceOfFn(ctx, account)
	}
	return nil, errUnimplemented
}

type Vault struct {
	PreviewDepositFn  func(ctx context.Context, assets *big.Int) (*big.Int, error)
	DepositFn         func(ctx context.Context, assets *big.Int, receiver common.Address) (*types.Transaction, error)
	PreviewRedeemFn   func(ctx context.Context, shares *big.Int) (*big.Int, error)
	RedeemFn          func(ctx context.Context, shares *big.Int, receiver, owner common.Address) (*types.Transaction, error)
	ConvertToSharesFn func(ctx context.Context, assets *big.Int) (*big.Int, error)
	BalanceOfFn       func(ctx context.Context, account common.Address) (*big.Int, error)
	StateFn           func(ctx context.Context) (chain.VaultState, error)
	BorrowerFn        func(ctx context.Context) (common.Address, error)
}

func (m *Vault) PreviewDeposit(ctx context.Context, assets *big.Int) (*big.Int, error) {
	if m.PreviewDepositFn != nil {
		return m.PreviewDepositFn(ctx, assets)
	}
	return nil, errUnimplemented
}
func (m *Vault) Deposit(ctx context.Context, assets *big.Int, receiver common.Address) (*types.Transaction, error) {
	if m.DepositFn != nil {
		return m.DepositFn(ctx, assets, receiver)
	}
	return nil, errUnimplemented
}
func (m *Vault) PreviewRedeem(ctx context.Context, shares *big.Int) (*big.Int, error) {
	if m.PreviewRedeemFn != nil {
		return m.PreviewRedeemFn(ctx, shares)
	}
	return nil, errUnimplemented
}
func (m *Vault) Redeem(ctx context.Context, shares *big.Int, receiver, owner common.Address) (*types.Transaction, error) {
	if m.RedeemFn != nil {
		return m.RedeemFn(ctx, shares, receiver, owner)
	}
	return nil, errUnimplemented
}
func (m *Vault) ConvertToShares(ctx context.Context, assets *big.Int) (*big.Int, error) {
	if m.ConvertToSharesFn != nil {
		return m.ConvertToSharesFn(ctx, assets)
	}
	return nil, errUnimplemented
}
func (m *Vault) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	if m.BalanceOfFn != nil {
		return m.BalanceOfFn(ctx, account)
	}
	return nil, errUnimplemented
}
func (m *Vault) State(ctx context.Context) (chain.VaultState, error) {
	if m.StateFn != nil {
		return m.StateFn(ctx)
	}
	return 0, errUnimplemented
}
func (m *Vault) Borrower(ctx context.Context) (common.Address, error) {
	if m.BorrowerFn != nil {
		return m.BorrowerFn(ctx)
	}
	return common.Address{}, errUnimplemented
}

type Treasury struct {
	DepositFn func(ctx context.Context, originalDebt, amount *big.Int, vault, token common.Address) (*types.Transaction, error)
}

func (m *Treasury) Deposit(ctx context.Context, originalDebt, amount *big.Int, vault, token common.Address) (*types.Transaction, error) {
	if m.DepositFn != nil {
		return m.DepositFn(ctx, originalDebt, amount, vault, token)
	}
	return nil, errUnimplemented
}

// Reader serves read-only vault mocks by address.
type Reader struct {
	Vaults map[common.Address]*Vault
}

func (r *Reader) Vault(addr common.Address) chain.Vault {
	if v, ok := r.Vaults[addr]; ok {
		return v
	}
	return &Vault{}
}
