package portfolio

import (
	"context"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"invoice-financer/internal/domain/chain"
	"invoice-financer/internal/domain/vault"
	"invoice-financer/internal/logging"
	"invoice-financer/internal/usecase/accrual"
)

const balanceReads = 8

type Usecase struct {
	source Source
	reader chain.Reader
	log    *slog.Logger
	now    func() time.Time
}

// NewUsecase: reader may be nil, in which case positions are returned as recorded off-chain.
func NewUsecase(source Source, reader chain.Reader, log *slog.Logger) *Usecase {
	return &Usecase{source: source, reader: reader, log: logging.OrDefault(log), now: time.Now}
}

// Lender returns the lender's positions with gains. Positions in repaid vaults whose on-chain
// share balance is already zero are reported as REDEEMED even if the ledger lags behind.
func (u *Usecase) Lender(ctx context.Context, lender common.Address) (*LenderPortfolio, error) {
	items, err := u.source.LenderPortfolio(ctx, lender.Hex())
	if err != nil {
		return nil, err
	}
	if u.reader != nil {
		u.reconcile(ctx, lender, items)
	}
	return &LenderPortfolio{
		Items: items,
		Summary: LenderSummary{
			AllocatedCapital: accrual.AllocatedCapital(items),
			RealizedGains:    accrual.RealizedGains(items),
			UnrealizedGains:  accrual.UnrealizedGains(items),
		},
	}, nil
}

// reconcile never fails: a position whose balance cannot be read keeps its recorded status.
func (u *Usecase) reconcile(ctx context.Context, lender common.Address, items []vault.PortfolioItem) {
	var g errgroup.Group
	g.SetLimit(balanceReads)
	for i := range items {
		it := &items[i]
		if it.Status != vault.StatusRepaid || it.LenderStatus == vault.LenderRedeemed {
			continue
		}
		if !common.IsHexAddress(it.VaultAddress) {
			continue
		}
		g.Go(func() error {
			bal, err := u.reader.Vault(common.HexToAddress(it.VaultAddress)).BalanceOf(ctx, lender)
			if err != nil {
				u.log.Debug("share balance read failed", "vault", it.VaultAddress, "err", err)
				return nil
			}
			if bal.Sign() == 0 {
				it.LenderStatus = vault.LenderRedeemed
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Borrower returns the borrower's loans with accrued figures and totals over ACTIVE loans.
func (u *Usecase) Borrower(ctx context.Context, borrower common.Address) (*BorrowerDashboard, error) {
	loans, err := u.source.BorrowerLoans(ctx, borrower.Hex())
	if err != nil {
		return nil, err
	}
	now := u.now()
	views := make([]LoanView, 0, len(loans))
	for _, l := range loans {
		views = append(views, LoanView{
			LoanWithVault:        l,
			Interest:             accrual.LoanInterest(l),
			TotalDebt:            accrual.LoanTotalDebt(l),
			DaysSinceFundRelease: accrual.DaysSinceFundRelease(l.FundReleaseAt, now),
		})
	}
	return &BorrowerDashboard{
		Loans: views,
		Totals: BorrowerTotals{
			TotalDebt:     accrual.TotalDebtOf(loans),
			TotalInterest: accrual.TotalInterestOf(loans),
			TotalCapital:  accrual.TotalCapitalOf(loans),
		},
	}, nil
}
