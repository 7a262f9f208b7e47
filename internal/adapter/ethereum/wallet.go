// Package ethereum is the go-ethereum backed wallet and contract bindings for the
// settlement token, the vaults and the treasury.
package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"invoice-financer/internal/config"
	"invoice-financer/internal/domain/chain"
)

// codeInvalidParams is the JSON-RPC code a provider returns for a malformed chain definition.
const codeInvalidParams = -32602

// Backend is the subset of ethclient.Client the wallet needs.
type Backend interface {
	bind.ContractBackend
	ChainID(ctx context.Context) (*big.Int, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	Close()
}

// Dialer opens a Backend for an RPC endpoint.
type Dialer func(ctx context.Context, rpcURL string) (Backend, error)

// Dial connects to an Ethereum node over RPC.
func Dial(ctx context.Context, rpcURL string) (Backend, error) {
	trimmed := strings.TrimSpace(rpcURL)
	if trimmed == "" {
		return nil, errors.New("rpc endpoint required")
	}
	client, err := ethclient.DialContext(ctx, trimmed)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// LoadKey resolves the signing key from a raw hex key or a v3 keystore file.
// passphrase is only consulted when the keystore has no configured passphrase.
func LoadKey(cfg config.WalletConfig, passphrase func() (string, error)) (*ecdsa.PrivateKey, error) {
	if raw := strings.TrimSpace(cfg.PrivateKey); raw != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(raw, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid WALLET_PRIVATE_KEY: %w", err)
		}
		return key, nil
	}
	if cfg.KeystorePath == "" {
		return nil, &chain.ConfigurationError{Field: "WALLET_KEYSTORE or WALLET_PRIVATE_KEY"}
	}
	keyJSON, err := os.ReadFile(cfg.KeystorePath)
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}
	pass := cfg.Passphrase
	if pass == "" && passphrase != nil {
		if pass, err = passphrase(); err != nil {
			return nil, err
		}
	}
	decrypted, err := keystore.DecryptKey(keyJSON, pass)
	if err != nil {
		return nil, fmt.Errorf("decrypt keystore: %w", err)
	}
	return decrypted.PrivateKey, nil
}

type WalletOptions struct {
	Key    *ecdsa.PrivateKey
	RPCURL string
	// Dial defaults to Dial.
	Dial Dialer
	// Confirm defaults to AutoConfirm.
	Confirm Confirmer
	// PollInterval is the receipt polling period while waiting for a transaction.
	PollInterval time.Duration
}

// KeyWallet is a chain.Wallet holding a private key. It knows the networks it was
// opened on or taught with AddChain, and reports 4902 for any other chain.
type KeyWallet struct {
	key     *ecdsa.PrivateKey
	addr    common.Address
	dial    Dialer
	confirm Confirmer
	poll    time.Duration

	mu       sync.Mutex
	networks map[string]string
	backend  Backend
	chainID  *big.Int
}

var _ chain.Wallet = (*KeyWallet)(nil)

func NewKeyWallet(ctx context.Context, opts WalletOptions) (*KeyWallet, error) {
	if opts.Key == nil {
		return nil, errors.New("wallet: nil private key")
	}
	if opts.Dial == nil {
		opts.Dial = Dial
	}
	if opts.Confirm == nil {
		opts.Confirm = AutoConfirm
	}
	w := &KeyWallet{
		key:      opts.Key,
		addr:     crypto.PubkeyToAddress(opts.Key.PublicKey),
		dial:     opts.Dial,
		confirm:  opts.Confirm,
		poll:     opts.PollInterval,
		networks: map[string]string{},
	}
	backend, id, err := w.open(ctx, opts.RPCURL)
	if err != nil {
		return nil, err
	}
	w.backend, w.chainID = backend, id
	w.networks[id.String()] = opts.RPCURL
	return w, nil
}

func (w *KeyWallet) open(ctx context.Context, rpcURL string) (Backend, *big.Int, error) {
	backend, err := w.dial(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	id, err := backend.ChainID(ctx)
	if err != nil {
		backend.Close()
		return nil, nil, fmt.Errorf("read chain id: %w", err)
	}
	return backend, id, nil
}

func (w *KeyWallet) Address() common.Address { return w.addr }

func (w *KeyWallet) ChainID(context.Context) (*big.Int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return new(big.Int).Set(w.chainID), nil
}

func (w *KeyWallet) SwitchChain(ctx context.Context, chainID *big.Int) error {
	w.mu.Lock()
	if w.chainID.Cmp(chainID) == 0 {
		w.mu.Unlock()
		return nil
	}
	rpcURL, ok := w.networks[chainID.String()]
	w.mu.Unlock()
	if !ok {
		return &chain.ProviderError{Code: chain.CodeUnrecognizedChain, Message: "Unrecognized chain ID " + chainID.String()}
	}

	backend, got, err := w.open(ctx, rpcURL)
	if err != nil {
		return err
	}
	if got.Cmp(chainID) != 0 {
		backend.Close()
		return fmt.Errorf("rpc %s serves chain %s, want %s", rpcURL, got, chainID)
	}

	w.mu.Lock()
	old := w.backend
	w.backend, w.chainID = backend, got
	w.mu.Unlock()
	old.Close()
	return nil
}

func (w *KeyWallet) AddChain(_ context.Context, params chain.Params) error {
	if params.ChainID == nil || len(params.RPCURLs) == 0 || strings.TrimSpace(params.RPCURLs[0]) == "" {
		return &chain.ProviderError{Code: codeInvalidParams, Message: "chain definition needs a chain id and an rpc url"}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.networks[params.ChainID.String()] = params.RPCURLs[0]
	return nil
}

// Session binds the current network; a later SwitchChain does not affect it.
func (w *KeyWallet) Session(context.Context) (chain.Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return &session{
		key:     w.key,
		addr:    w.addr,
		chainID: new(big.Int).Set(w.chainID),
		backend: w.backend,
		confirm: w.confirm,
		poll:    w.poll,
	}, nil
}

// Reader returns read-only bindings on the wallet's current network.
func (w *KeyWallet) Reader() *Reader {
	w.mu.Lock()
	defer w.mu.Unlock()
	return NewReader(w.backend)
}

// Close releases the RPC connection.
func (w *KeyWallet) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.backend != nil {
		w.backend.Close()
	}
}

type session struct {
	key     *ecdsa.PrivateKey
	addr    common.Address
	chainID *big.Int
	backend Backend
	confirm Confirmer
	poll    time.Duration
}

var _ chain.Session = (*session)(nil)

func (s *session) Address() common.Address { return s.addr }

func (s *session) transactOpts(ctx context.Context, action string) (*bind.TransactOpts, error) {
	if err := s.confirm(ctx, action); err != nil {
		return nil, chain.Classify(err)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
	if err != nil {
		return nil, fmt.Errorf("transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

func (s *session) Token(addr common.Address) chain.Token {
	return &token{newContract("token", addr, erc20ABI, s.backend, s.backend, s)}
}

func (s *session) Vault(addr common.Address) chain.Vault {
	return &vaultContract{newContract("vault", addr, vaultABI, s.backend, s.backend, s)}
}

func (s *session) Treasury(addr common.Address) chain.Treasury {
	return &treasury{newContract("treasury", addr, treasuryABI, s.backend, s.backend, s)}
}

func (s *session) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	return waitMined(ctx, s.backend, tx, s.poll)
}
