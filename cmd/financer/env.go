package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"invoice-financer/internal/adapter/ethereum"
	"invoice-financer/internal/adapter/offchain"
	"invoice-financer/internal/config"
	"invoice-financer/internal/domain/chain"
	"invoice-financer/internal/infrastructure/metrics"
	"invoice-financer/internal/logging"
	"invoice-financer/internal/usecase/approval"
	"invoice-financer/internal/usecase/network"
	"invoice-financer/internal/usecase/portfolio"
	"invoice-financer/internal/usecase/recorder"
	"invoice-financer/internal/usecase/repayment"
	vaultuc "invoice-financer/internal/usecase/vault"
	"invoice-financer/pkg/id"
)

// services is everything a command may touch once the wallet is open.
type services struct {
	chain     config.ChainConfig
	wallet    chain.Wallet
	address   common.Address
	api       *offchain.Client
	vaults    *vaultuc.Usecase
	repay     *repayment.Usecase
	portfolio *portfolio.Usecase
	close     func()
}

type env struct {
	stdout io.Writer
	stderr io.Writer
	log    *slog.Logger
	// open builds services on first use; tests replace it.
	open func(ctx context.Context, autoConfirm bool) (*services, error)
	svc  *services
}

func newEnv(stdout, stderr io.Writer) *env {
	cfg := config.Load()
	log := logging.NewWithWriter(cfg.Logging, stderr).With("run", id.NewID32())
	e := &env{stdout: stdout, stderr: stderr, log: log}
	e.open = func(ctx context.Context, autoConfirm bool) (*services, error) {
		return openServices(ctx, cfg, log, autoConfirm)
	}
	return e
}

func (e *env) services(ctx context.Context, autoConfirm bool) (*services, error) {
	if e.svc != nil {
		return e.svc, nil
	}
	svc, err := e.open(ctx, autoConfirm)
	if err != nil {
		return nil, err
	}
	e.svc = svc
	return svc, nil
}

func (e *env) close() {
	if e.svc != nil && e.svc.close != nil {
		e.svc.close()
	}
}

func openServices(ctx context.Context, cfg *config.Config, log *slog.Logger, autoConfirm bool) (*services, error) {
	if err := cfg.ValidateClient(); err != nil {
		return nil, err
	}
	key, err := ethereum.LoadKey(cfg.Wallet, ethereum.PassphraseFromTerminal)
	if err != nil {
		return nil, err
	}
	confirm := ethereum.AutoConfirm
	if !autoConfirm {
		if confirm, err = ethereum.TerminalConfirmer(); err != nil {
			return nil, err
		}
	}
	w, err := ethereum.NewKeyWallet(ctx, ethereum.WalletOptions{
		Key:     key,
		RPCURL:  cfg.Chain.RPCURL,
		Confirm: confirm,
	})
	if err != nil {
		return nil, fmt.Errorf("open wallet: %w", err)
	}
	api, err := offchain.NewClient(offchain.Config{BaseURL: cfg.APIURL, Actor: w.Address().Hex()})
	if err != nil {
		w.Close()
		return nil, err
	}

	m := metrics.Flow()
	conn := network.NewConnector(cfg.Chain)
	appr := approval.NewUsecase(cfg.Chain.ApprovalSettle, cfg.Chain.ApprovalReady)
	rec := recorder.NewUsecase(api, api, log, m)

	return &services{
		chain:     cfg.Chain,
		wallet:    w,
		address:   w.Address(),
		api:       api,
		vaults:    vaultuc.NewUsecase(cfg.Chain, conn, appr, rec, log, m),
		repay:     repayment.NewUsecase(cfg.Chain, conn, appr, rec, log, m),
		portfolio: portfolio.NewUsecase(api, w.Reader(), log),
		close:     w.Close,
	}, nil
}
