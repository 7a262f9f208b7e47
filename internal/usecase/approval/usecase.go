package approval

import (
	"context"
	"errors"
	"time"

	"invoice-financer/internal/domain/chain"
	"invoice-financer/internal/usecase/flow"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type Usecase struct {
	settle time.Duration
	ready  time.Duration
	sleep  Sleeper
}

// NewUsecase: settle is waited before re-reading the allowance, ready before returning.
func NewUsecase(settle, ready time.Duration) *Usecase {
	return &Usecase{settle: settle, ready: ready, sleep: sleepCtx}
}

// WithSleeper replaces the wait function (tests).
func (u *Usecase) WithSleeper(s Sleeper) *Usecase {
	u.sleep = s
	return u
}

// Ensure makes sure spender may move in.Amount of the session owner's tokens.
// Nothing is sent when the current allowance already suffices.
func (u *Usecase) Ensure(ctx context.Context, sess chain.Session, in EnsureInput, r *flow.Reporter) (*EnsureResult, error) {
	if in.Amount == nil || in.Amount.Sign() < 0 {
		return nil, errors.New("approval amount must be non-negative")
	}
	owner := sess.Address()
	token := sess.Token(in.Token)

	current, err := token.Allowance(ctx, owner, in.Spender)
	if err != nil {
		return nil, err
	}
	if current.Cmp(in.Amount) >= 0 {
		return &EnsureResult{}, nil
	}

	r.Report(flow.StepApproving, "Step 1/2: Approving token spending...")
	tx, err := token.Approve(ctx, in.Spender, in.Amount)
	if err != nil {
		return nil, err
	}
	r.Report(flow.StepApproving, "Step 1/2: Confirming approval...")
	if _, err := sess.WaitMined(ctx, tx); err != nil {
		return nil, err
	}
	if err := u.sleep(ctx, u.settle); err != nil {
		return nil, err
	}

	// a stale read or a silently reverted approval both show up here
	after, err := token.Allowance(ctx, owner, in.Spender)
	if err != nil {
		return nil, err
	}
	if after.Cmp(in.Amount) < 0 {
		return nil, &chain.ApprovalInsufficientError{Have: after, Want: in.Amount}
	}

	label := "Step 1/2: Approval complete!"
	if in.Purpose != "" {
		label += " Preparing " + in.Purpose + "..."
	}
	r.Report(flow.StepApproving, label)
	if err := u.sleep(ctx, u.ready); err != nil {
		return nil, err
	}
	return &EnsureResult{Approved: true, TxHash: tx.Hash()}, nil
}
