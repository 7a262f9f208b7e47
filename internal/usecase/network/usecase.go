package network

import (
	"context"
	"errors"
	"fmt"

	"invoice-financer/internal/config"
	"invoice-financer/internal/domain/chain"
	"invoice-financer/internal/usecase/flow"
)

// Connector keeps a wallet on the configured chain and hands out signing sessions.
type Connector struct{ cfg config.ChainConfig }

func NewConnector(cfg config.ChainConfig) *Connector { return &Connector{cfg: cfg} }

// EnsureChain switches the wallet to the configured chain, registering it first when the
// wallet reports it as unknown. Other switch errors are returned unchanged.
func (c *Connector) EnsureChain(ctx context.Context, w chain.Wallet, r *flow.Reporter) error {
	want := c.cfg.ID()
	current, err := w.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("read chain id: %w", err)
	}
	if current != nil && current.Cmp(want) == 0 {
		return nil
	}

	if r != nil {
		r.Report(flow.StepNetworkCheck, "Switching to "+c.cfg.Name+"...")
	}
	err = w.SwitchChain(ctx, want)
	if err == nil {
		return nil
	}
	var pe *chain.ProviderError
	if !errors.As(err, &pe) || pe.Code != chain.CodeUnrecognizedChain {
		return err
	}

	if err := w.AddChain(ctx, c.cfg.Params()); err != nil {
		return &chain.NetworkSwitchError{ChainID: want, Err: chain.Classify(err)}
	}
	if err := w.SwitchChain(ctx, want); err != nil {
		return &chain.NetworkSwitchError{ChainID: want, Err: chain.Classify(err)}
	}
	return nil
}

// Connect ensures the chain and then opens a signing session.
func (c *Connector) Connect(ctx context.Context, w chain.Wallet, r *flow.Reporter) (chain.Session, error) {
	if err := c.EnsureChain(ctx, w, r); err != nil {
		return nil, err
	}
	return w.Session(ctx)
}
