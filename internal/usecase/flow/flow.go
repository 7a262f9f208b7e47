package flow

import (
	"context"
	"errors"
	"log/slog"

	"invoice-financer/internal/domain/chain"
	"invoice-financer/internal/infrastructure/metrics"
	"invoice-financer/internal/logging"
)

// Kind is the closed set of transaction flows.
type Kind string

const (
	KindDeposit Kind = "deposit"
	KindRedeem  Kind = "redeem"
	KindRepay   Kind = "repay"
)

type Step string

const (
	StepConnecting      Step = "CONNECTING"
	StepNetworkCheck    Step = "NETWORK_CHECK"
	StepAllowanceCheck  Step = "ALLOWANCE_CHECK"
	StepApproving       Step = "APPROVING"
	StepComputingShares Step = "COMPUTING_SHARES"
	StepStateValidation Step = "STATE_VALIDATION"
	StepBalanceCheck    Step = "BALANCE_CHECK"
	StepBorrowerCheck   Step = "BORROWER_CHECK"
	StepPreviewing      Step = "PREVIEWING"
	StepDepositing      Step = "DEPOSITING"
	StepRedeeming       Step = "REDEEMING"
	StepConfirming      Step = "CONFIRMING"
	StepRecording       Step = "RECORDING"
	StepDone            Step = "DONE"
)

// Steps is the canonical order of a flow; APPROVING only appears when an approval is sent.
func (k Kind) Steps() []Step {
	switch k {
	case KindDeposit:
		return []Step{StepConnecting, StepNetworkCheck, StepAllowanceCheck, StepApproving,
			StepComputingShares, StepDepositing, StepConfirming, StepRecording, StepDone}
	case KindRedeem:
		return []Step{StepConnecting, StepNetworkCheck, StepStateValidation, StepBalanceCheck,
			StepPreviewing, StepRedeeming, StepConfirming, StepRecording, StepDone}
	case KindRepay:
		return []Step{StepConnecting, StepNetworkCheck, StepAllowanceCheck, StepApproving,
			StepStateValidation, StepBorrowerCheck, StepDepositing, StepConfirming, StepRecording, StepDone}
	}
	return nil
}

// Progress receives each step with a human-readable label.
type Progress func(step Step, label string)

// Reporter forwards progress to the caller and records it in logs and metrics.
type Reporter struct {
	kind     Kind
	progress Progress
	log      *slog.Logger
	metrics  *metrics.FlowMetrics
	current  Step
}

func NewReporter(kind Kind, progress Progress, log *slog.Logger, m *metrics.FlowMetrics) *Reporter {
	return &Reporter{kind: kind, progress: progress, log: logging.OrDefault(log), metrics: m}
}

func (r *Reporter) Kind() Kind { return r.kind }

func (r *Reporter) Report(step Step, label string) {
	r.current = step
	r.metrics.ObserveStep(string(r.kind), string(step))
	r.log.Debug("flow step", "kind", r.kind, "step", step, "label", label)
	if r.progress != nil {
		r.progress(step, label)
	}
}

// Stage is one fallible step of a flow operating on the flow's state S.
type Stage[S any] struct {
	Step  Step
	Label string
	Run   func(ctx context.Context, st *S, r *Reporter) error
}

// Run executes stages in order and stops at the first failure.
// Wallet rejections come back as *chain.UserRejectedError; other errors are returned unchanged.
// Once a CONFIRMING stage succeeds the transaction is committed: cancellation is no longer
// observed and the remaining stages always run.
func Run[S any](ctx context.Context, r *Reporter, st *S, stages []Stage[S]) error {
	committed := false
	for _, s := range stages {
		if !committed {
			if err := ctx.Err(); err != nil {
				r.finish(err)
				return err
			}
		}
		r.Report(s.Step, s.Label)
		if err := s.Run(ctx, st, r); err != nil {
			err = chain.Classify(err)
			r.finish(err)
			return err
		}
		if s.Step == StepConfirming {
			committed = true
		}
	}
	r.finish(nil)
	return nil
}

func (r *Reporter) finish(err error) {
	if err == nil {
		r.metrics.ObserveOutcome(string(r.kind), "ok")
		return
	}
	outcome := "error"
	var rejected *chain.UserRejectedError
	if errors.As(err, &rejected) {
		outcome = "rejected"
	}
	r.metrics.ObserveOutcome(string(r.kind), outcome)
	r.log.Info("flow failed", "kind", r.kind, "step", r.current, "err", err)
}
