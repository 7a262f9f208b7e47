package ethereum

import (
	"context"
	"errors"
	"fmt"
	"time"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"invoice-financer/internal/domain/chain"
)

const defaultPollInterval = 2 * time.Second

type receiptReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// waitMined polls for the receipt of tx until it is included or ctx ends.
// A receipt with a failed status is returned together with a RevertedError.
func waitMined(ctx context.Context, client receiptReader, tx *types.Transaction, every time.Duration) (*types.Receipt, error) {
	if tx == nil {
		return nil, errors.New("wait mined: nil transaction")
	}
	if every <= 0 {
		every = defaultPollInterval
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	hash := tx.Hash()
	for {
		receipt, err := client.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && receipt != nil:
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, &chain.RevertedError{TxHash: hash}
			}
			return receipt, nil
		case err != nil && !errors.Is(err, geth.NotFound):
			return nil, fmt.Errorf("fetch receipt %s: %w", hash.Hex(), err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
