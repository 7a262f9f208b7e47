package vault

import (
	"context"
	"errors"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"invoice-financer/internal/config"
	"invoice-financer/internal/domain/chain"
	domain "invoice-financer/internal/domain/vault"
	"invoice-financer/internal/infrastructure/metrics"
	"invoice-financer/internal/logging"
	"invoice-financer/internal/usecase/approval"
	"invoice-financer/internal/usecase/flow"
	"invoice-financer/internal/usecase/network"
	"invoice-financer/internal/usecase/recorder"
	"invoice-financer/pkg/money"
)

type Usecase struct {
	cfg       config.ChainConfig
	connector *network.Connector
	approvals *approval.Usecase
	recorder  *recorder.Usecase
	log       *slog.Logger
	metrics   *metrics.FlowMetrics
}

func NewUsecase(cfg config.ChainConfig, c *network.Connector, a *approval.Usecase, r *recorder.Usecase, log *slog.Logger, m *metrics.FlowMetrics) *Usecase {
	return &Usecase{cfg: cfg, connector: c, approvals: a, recorder: r, log: logging.OrDefault(log), metrics: m}
}

type depositState struct {
	in     DepositInput
	wallet chain.Wallet
	token  common.Address
	units  *big.Int
	sess   chain.Session
	vault  chain.Vault
	tx     *types.Transaction
	out    DepositResult
}

// Deposit approves the vault when needed, deposits in.Amount for the caller and returns the
// deposit transaction hash. Recording the deposit off-chain is best effort.
func (u *Usecase) Deposit(ctx context.Context, w chain.Wallet, in DepositInput, progress flow.Progress) (*DepositResult, error) {
	st := &depositState{in: in, wallet: w}
	r := flow.NewReporter(flow.KindDeposit, progress, u.log, u.metrics)
	err := flow.Run(ctx, r, st, []flow.Stage[depositState]{
		{Step: flow.StepConnecting, Label: "Connecting to wallet...", Run: u.prepareDeposit},
		{Step: flow.StepNetworkCheck, Label: "Checking network...", Run: func(ctx context.Context, st *depositState, r *flow.Reporter) error {
			sess, err := u.connector.Connect(ctx, st.wallet, r)
			if err != nil {
				return err
			}
			st.sess, st.vault = sess, sess.Vault(st.in.VaultAddress)
			return nil
		}},
		{Step: flow.StepAllowanceCheck, Label: "Checking allowance...", Run: func(ctx context.Context, st *depositState, r *flow.Reporter) error {
			res, err := u.approvals.Ensure(ctx, st.sess, approval.EnsureInput{
				Token: st.token, Spender: st.in.VaultAddress, Amount: st.units, Purpose: "deposit",
			}, r)
			if err != nil {
				return err
			}
			st.out.Approved = res.Approved
			return nil
		}},
		{Step: flow.StepComputingShares, Label: "Calculating shares...", Run: func(ctx context.Context, st *depositState, _ *flow.Reporter) error {
			shares, err := st.vault.PreviewDeposit(ctx, st.units)
			if err != nil {
				return err
			}
			st.out.Shares, st.out.SharesAmount = shares, money.FormatUnits(shares, money.ShareDecimals)
			return nil
		}},
		{Step: flow.StepDepositing, Label: "Step 2/2: Depositing into vault...", Run: func(ctx context.Context, st *depositState, _ *flow.Reporter) error {
			tx, err := st.vault.Deposit(ctx, st.units, st.sess.Address())
			st.tx = tx
			return err
		}},
		{Step: flow.StepConfirming, Label: "Step 2/2: Confirming deposit...", Run: func(ctx context.Context, st *depositState, _ *flow.Reporter) error {
			_, err := st.sess.WaitMined(ctx, st.tx)
			st.out.TxHash = st.tx.Hash()
			return err
		}},
		{Step: flow.StepRecording, Label: "Recording deposit...", Run: func(ctx context.Context, st *depositState, _ *flow.Reporter) error {
			st.out.Recorded = u.recorder.Deposit(ctx, st.in.VaultAddress.Hex(), domain.DepositRecord{
				LenderAddress: st.sess.Address().Hex(),
				Amount:        st.in.Amount,
				SharesAmount:  st.out.SharesAmount,
				TxHash:        st.out.TxHash.Hex(),
			})
			return nil
		}},
		{Step: flow.StepDone, Label: "Deposit successful!", Run: noop[depositState]},
	})
	if err != nil {
		return nil, err
	}
	return &st.out, nil
}

func (u *Usecase) prepareDeposit(_ context.Context, st *depositState, _ *flow.Reporter) error {
	if st.wallet == nil {
		return errors.New("wallet required")
	}
	if !st.in.Amount.IsPositive() {
		return errors.New("deposit amount must be greater than 0")
	}
	token, err := u.cfg.RequireToken()
	if err != nil {
		return err
	}
	units, err := money.ToUnits(st.in.Amount, money.TokenDecimals)
	if err != nil {
		return err
	}
	st.token, st.units = token, units
	return nil
}

type redeemState struct {
	in     RedeemInput
	wallet chain.Wallet
	sess   chain.Session
	vault  chain.Vault
	assets *big.Int
	tx     *types.Transaction
	out    RedeemResult
}

// Redeem burns in.Shares of a repaid vault for the caller and returns the hash and amount received.
func (u *Usecase) Redeem(ctx context.Context, w chain.Wallet, in RedeemInput, progress flow.Progress) (*RedeemResult, error) {
	st := &redeemState{in: in, wallet: w}
	r := flow.NewReporter(flow.KindRedeem, progress, u.log, u.metrics)
	err := flow.Run(ctx, r, st, []flow.Stage[redeemState]{
		{Step: flow.StepConnecting, Label: "Connecting to wallet...", Run: func(context.Context, *redeemState, *flow.Reporter) error {
			if st.wallet == nil {
				return errors.New("wallet required")
			}
			if st.in.Shares == nil || st.in.Shares.Sign() <= 0 {
				return errors.New("shares to redeem must be greater than 0")
			}
			return nil
		}},
		{Step: flow.StepNetworkCheck, Label: "Checking network...", Run: func(ctx context.Context, st *redeemState, r *flow.Reporter) error {
			sess, err := u.connector.Connect(ctx, st.wallet, r)
			if err != nil {
				return err
			}
			st.sess, st.vault = sess, sess.Vault(st.in.VaultAddress)
			return nil
		}},
		{Step: flow.StepStateValidation, Label: "Validating vault state...", Run: func(ctx context.Context, st *redeemState, _ *flow.Reporter) error {
			return requireState(ctx, st.vault, chain.VaultRepaid)
		}},
		{Step: flow.StepBalanceCheck, Label: "Checking your shares...", Run: func(ctx context.Context, st *redeemState, _ *flow.Reporter) error {
			return checkShares(ctx, st.vault, st.in.VaultAddress, st.sess.Address(), st.in.Shares)
		}},
		{Step: flow.StepPreviewing, Label: "Calculating redemption amount...", Run: func(ctx context.Context, st *redeemState, _ *flow.Reporter) error {
			assets, err := st.vault.PreviewRedeem(ctx, st.in.Shares)
			if err != nil {
				return err
			}
			st.assets = assets
			st.out.RedeemedAmount = money.FromUnits(assets, money.TokenDecimals)
			return nil
		}},
		{Step: flow.StepRedeeming, Label: "Redeeming shares...", Run: func(ctx context.Context, st *redeemState, _ *flow.Reporter) error {
			me := st.sess.Address()
			tx, err := st.vault.Redeem(ctx, st.in.Shares, me, me)
			st.tx = tx
			return err
		}},
		{Step: flow.StepConfirming, Label: "Confirming redemption...", Run: func(ctx context.Context, st *redeemState, _ *flow.Reporter) error {
			_, err := st.sess.WaitMined(ctx, st.tx)
			st.out.TxHash = st.tx.Hash()
			return err
		}},
		{Step: flow.StepRecording, Label: "Recording redemption...", Run: func(ctx context.Context, st *redeemState, _ *flow.Reporter) error {
			st.out.Recorded = u.recorder.Redemption(ctx, st.in.VaultAddress.Hex(), domain.RedemptionRecord{
				LenderAddress:  st.sess.Address().Hex(),
				LenderID:       st.in.LenderID,
				SharesRedeemed: money.FormatUnits(st.in.Shares, money.ShareDecimals),
				Amount:         st.out.RedeemedAmount,
				TxHash:         st.out.TxHash.Hex(),
			})
			return nil
		}},
		{Step: flow.StepDone, Label: "Redemption successful!", Run: noop[redeemState]},
	})
	if err != nil {
		return nil, err
	}
	return &st.out, nil
}

// PreviewRedemption estimates what redeeming a position would pay out, without sending anything.
// It fails on insufficient shares exactly like Redeem.
func (u *Usecase) PreviewRedemption(ctx context.Context, w chain.Wallet, in PreviewInput) (*PreviewResult, error) {
	sess, err := w.Session(ctx)
	if err != nil {
		return nil, chain.Classify(err)
	}
	v := sess.Vault(in.VaultAddress)

	shares, err := u.sharesFor(ctx, v, in)
	if err != nil {
		return nil, err
	}
	if shares.Sign() == 0 {
		return &PreviewResult{RedeemableAmount: decimal.Zero, SharesToRedeem: new(big.Int)}, nil
	}

	have, err := v.BalanceOf(ctx, sess.Address())
	if err != nil {
		return nil, err
	}
	if have.Cmp(shares) < 0 {
		return nil, &chain.InsufficientSharesError{Have: have, Need: shares}
	}

	assets, err := v.PreviewRedeem(ctx, shares)
	if err != nil {
		return nil, err
	}
	return &PreviewResult{RedeemableAmount: money.FromUnits(assets, money.TokenDecimals), SharesToRedeem: shares}, nil
}

func (u *Usecase) sharesFor(ctx context.Context, v chain.Vault, in PreviewInput) (*big.Int, error) {
	if in.StoredShares != "" {
		stored, err := money.ParseUnits(in.StoredShares, money.ShareDecimals)
		if err != nil {
			return nil, err
		}
		if stored.Sign() > 0 {
			return stored, nil
		}
	}
	assets, err := money.ToUnits(in.DepositAmount, money.TokenDecimals)
	if err != nil {
		return nil, err
	}
	return v.ConvertToShares(ctx, assets)
}

func requireState(ctx context.Context, v chain.Vault, want chain.VaultState) error {
	got, err := v.State(ctx)
	if err != nil {
		return err
	}
	if got != want {
		return &chain.InvalidVaultStateError{Current: got, Expected: want}
	}
	return nil
}

func checkShares(ctx context.Context, v chain.Vault, vaultAddr, owner common.Address, need *big.Int) error {
	have, err := v.BalanceOf(ctx, owner)
	if err != nil {
		return err
	}
	if have.Sign() == 0 {
		return &chain.NoSharesError{Vault: vaultAddr}
	}
	if have.Cmp(need) < 0 {
		return &chain.InsufficientSharesError{Have: have, Need: need}
	}
	return nil
}

func noop[S any](context.Context, *S, *flow.Reporter) error { return nil }
