package loan

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	domainLoan "invoice-financer/internal/domain/loan"
	"invoice-financer/internal/domain/uow"
	"invoice-financer/internal/domain/vault"
	"invoice-financer/internal/usecase/accrual"
	"invoice-financer/pkg/money"
)

var ErrInvalidInput = errors.New("invalid input")

type Usecase struct {
	repos uow.Repos
	now   func() time.Time
}

func NewUsecase(r uow.Repos) *Usecase { return &Usecase{repos: r, now: time.Now} }

func (u *Usecase) Create(ctx context.Context, in CreateLoanInput) (*domainLoan.LoanRequest, error) {
	if !common.IsHexAddress(in.BorrowerAddress) || !in.MaxLoan.IsPositive() ||
		in.MonthlyInterestRate.IsNegative() || in.InvoiceDueDate.IsZero() {
		return nil, ErrInvalidInput
	}
	l := &domainLoan.LoanRequest{
		BorrowerAddress:     common.HexToAddress(in.BorrowerAddress).Hex(),
		MaxLoan:             in.MaxLoan,
		MonthlyInterestRate: in.MonthlyInterestRate,
		InvoiceDueDate:      in.InvoiceDueDate.UTC(),
		Status:              domainLoan.StatusRequested,
	}
	if err := u.repos.Loans.Create(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (u *Usecase) Get(ctx context.Context, id uint64) (*domainLoan.LoanRequest, error) {
	return u.repos.Loans.GetByID(ctx, id)
}

// ListByStatus returns loan requests in status joined with their vault, if any.
func (u *Usecase) ListByStatus(ctx context.Context, status domainLoan.Status) ([]vault.LoanWithVault, error) {
	status = domainLoan.Status(strings.ToUpper(string(status)))
	if !status.Valid() {
		return nil, domainLoan.ErrInvalidStatus
	}
	return u.repos.Vaults.ListWithLoansByStatus(ctx, string(status))
}

func (u *Usecase) ByBorrower(ctx context.Context, borrowerAddress string) ([]vault.LoanWithVault, error) {
	if !common.IsHexAddress(borrowerAddress) {
		return nil, ErrInvalidInput
	}
	return u.repos.Vaults.ListByBorrower(ctx, borrowerAddress)
}

func (u *Usecase) UpdateStatus(ctx context.Context, id uint64, status domainLoan.Status) error {
	if !status.Valid() {
		return domainLoan.ErrInvalidStatus
	}
	return u.repos.Loans.UpdateStatus(ctx, id, status)
}

// Detail returns the loan with funded, repaid and outstanding totals.
func (u *Usecase) Detail(ctx context.Context, id uint64) (*LoanDetailDTO, error) {
	l, err := u.repos.Loans.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &LoanDetailDTO{Loan: *l, Lenders: []vault.LenderPosition{}, Repayments: []vault.Repayment{}}

	v, err := u.repos.Vaults.GetByLoanRequestID(ctx, id)
	switch {
	case errors.Is(err, vault.ErrNotFound):
		out.Totals.TotalDebt = accrual.LoanTotalDebt(vault.LoanWithVault{LoanRequest: *l})
		out.Totals.OutstandingDebt = out.Totals.TotalDebt
		return out, nil
	case err != nil:
		return nil, err
	}
	out.Vault = v

	lenders, err := u.repos.Positions.ListByVault(ctx, v.ID)
	if err != nil {
		return nil, err
	}
	repayments, err := u.repos.Repayments.ListByVault(ctx, v.ID)
	if err != nil {
		return nil, err
	}
	out.Lenders = append(out.Lenders, lenders...)
	out.Repayments = append(out.Repayments, repayments...)

	var funded, repaid float64
	for _, p := range out.Lenders {
		funded += p.Amount.InexactFloat64()
	}
	for _, r := range out.Repayments {
		repaid += r.Amount.InexactFloat64()
	}
	lv := vault.LoanWithVault{LoanRequest: *l, FundReleaseAt: v.FundReleaseAt}
	out.Totals = LoanTotals{
		TotalFunded:      money.Round6(funded),
		TotalRepaid:      money.Round6(repaid),
		Interest:         accrual.LoanInterest(lv),
		TotalDebt:        accrual.LoanTotalDebt(lv),
		DaysSinceRelease: accrual.DaysSinceFundRelease(v.FundReleaseAt, u.now()),
	}
	out.Totals.OutstandingDebt = accrual.Outstanding(out.Totals.TotalDebt, out.Totals.TotalRepaid)
	return out, nil
}
