package repayment

import (
	"context"
	"errors"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/sync/errgroup"

	"invoice-financer/internal/config"
	"invoice-financer/internal/domain/chain"
	"invoice-financer/internal/domain/loan"
	"invoice-financer/internal/domain/vault"
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

type repayState struct {
	in       RepayInput
	wallet   chain.Wallet
	token    common.Address
	treasury common.Address
	amount   *big.Int
	debt     *big.Int
	sess     chain.Session
	state    chain.VaultState
	borrower common.Address
	tx       *types.Transaction
	out      RepayResult
}

// Repay sends a borrower's repayment through the treasury and marks the loan PAID off-chain.
// Only the vault's registered borrower may repay, and only while the vault is ACTIVE.
func (u *Usecase) Repay(ctx context.Context, w chain.Wallet, in RepayInput, progress flow.Progress) (*RepayResult, error) {
	st := &repayState{in: in, wallet: w}
	r := flow.NewReporter(flow.KindRepay, progress, u.log, u.metrics)
	err := flow.Run(ctx, r, st, []flow.Stage[repayState]{
		{Step: flow.StepConnecting, Label: "Connecting to wallet...", Run: u.prepare},
		{Step: flow.StepNetworkCheck, Label: "Checking network...", Run: func(ctx context.Context, st *repayState, r *flow.Reporter) error {
			sess, err := u.connector.Connect(ctx, st.wallet, r)
			st.sess = sess
			return err
		}},
		{Step: flow.StepAllowanceCheck, Label: "Checking allowance...", Run: func(ctx context.Context, st *repayState, r *flow.Reporter) error {
			res, err := u.approvals.Ensure(ctx, st.sess, approval.EnsureInput{
				Token: st.token, Spender: st.treasury, Amount: st.amount, Purpose: "repayment",
			}, r)
			if err != nil {
				return err
			}
			st.out.Approved = res.Approved
			return nil
		}},
		{Step: flow.StepStateValidation, Label: "Validating vault state...", Run: readVault},
		{Step: flow.StepBorrowerCheck, Label: "Verifying borrower...", Run: func(_ context.Context, st *repayState, _ *flow.Reporter) error {
			// common.Address compares bytes, so checksum casing never matters.
			if st.borrower != st.sess.Address() {
				return &chain.UnauthorizedBorrowerError{Expected: st.borrower, Actual: st.sess.Address()}
			}
			return nil
		}},
		{Step: flow.StepDepositing, Label: "Step 2/2: Depositing to Treasury...", Run: func(ctx context.Context, st *repayState, _ *flow.Reporter) error {
			tx, err := st.sess.Treasury(st.treasury).Deposit(ctx, st.debt, st.amount, st.in.VaultAddress, st.token)
			st.tx = tx
			return err
		}},
		{Step: flow.StepConfirming, Label: "Step 2/2: Confirming deposit...", Run: func(ctx context.Context, st *repayState, _ *flow.Reporter) error {
			_, err := st.sess.WaitMined(ctx, st.tx)
			st.out.TxHash = st.tx.Hash()
			return err
		}},
		{Step: flow.StepRecording, Label: "Tracking repayment in vault...", Run: func(ctx context.Context, st *repayState, r *flow.Reporter) error {
			st.out.RepaymentTracked = u.recorder.Repayment(ctx, st.in.VaultAddress.Hex(), vault.RepaymentRecord{
				Amount: st.in.Amount,
				TxHash: st.out.TxHash.Hex(),
			})
			r.Report(flow.StepRecording, "Updating loan status...")
			st.out.StatusUpdated = u.recorder.LoanStatus(ctx, st.in.LoanRequestID, loan.StatusPaid, st.out.TxHash.Hex())
			return nil
		}},
		{Step: flow.StepDone, Label: "Repayment successful!", Run: func(context.Context, *repayState, *flow.Reporter) error { return nil }},
	})
	if err != nil {
		return nil, err
	}
	return &st.out, nil
}

func (u *Usecase) prepare(_ context.Context, st *repayState, _ *flow.Reporter) error {
	if st.wallet == nil {
		return errors.New("wallet required")
	}
	if !st.in.Amount.IsPositive() {
		return errors.New("repayment amount must be greater than 0")
	}
	treasury, err := u.cfg.RequireTreasury()
	if err != nil {
		return err
	}
	token, err := u.cfg.RequireToken()
	if err != nil {
		return err
	}
	if st.amount, err = money.ToUnits(st.in.Amount, money.TokenDecimals); err != nil {
		return err
	}
	if st.debt, err = money.ToUnits(st.in.OriginalDebt, money.TokenDecimals); err != nil {
		return err
	}
	st.token, st.treasury = token, treasury
	return nil
}

// readVault reads state and borrower concurrently; both must succeed before checking either.
func readVault(ctx context.Context, st *repayState, _ *flow.Reporter) error {
	v := st.sess.Vault(st.in.VaultAddress)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		st.state, err = v.State(gctx)
		return err
	})
	g.Go(func() (err error) {
		st.borrower, err = v.Borrower(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if st.state != chain.VaultActive {
		return &chain.InvalidVaultStateError{Current: st.state, Expected: chain.VaultActive}
	}
	return nil
}
