package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"invoice-financer/internal/domain/chain"
	"invoice-financer/internal/domain/vault"
	"invoice-financer/internal/usecase/repayment"
	vaultuc "invoice-financer/internal/usecase/vault"
	"invoice-financer/pkg/money"
)

var errPositionUnknown = errors.New("no matching position in portfolio")

func newFlagSet(e *env, name string) (*flag.FlagSet, *bool) {
	fs := flag.NewFlagSet("financer "+name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	yes := fs.Bool("yes", false, "sign without a confirmation prompt")
	return fs, yes
}

// fail prints err and returns the exit code; rejections get their own wording.
func (e *env) fail(err error) int {
	if errors.Is(err, chain.ErrUserRejected) {
		fmt.Fprintln(e.stderr, "Cancelled: transaction cancelled by user")
		return 2
	}
	fmt.Fprintf(e.stderr, "Error: %v\n", err)
	return 1
}

func parseAddress(flagName, raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("-%s must be a 0x-prefixed 40-hex address", flagName)
	}
	return common.HexToAddress(raw), nil
}

func parsePositive(flagName, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("-%s must be a decimal greater than 0", flagName)
	}
	return d, nil
}

func runDeposit(ctx context.Context, e *env, args []string) int {
	fs, yes := newFlagSet(e, "deposit")
	vaultFlag := fs.String("vault", "", "vault address")
	amountFlag := fs.String("amount", "", "amount in settlement tokens, e.g. 500")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	addr, err := parseAddress("vault", *vaultFlag)
	if err != nil {
		return e.fail(err)
	}
	amount, err := parsePositive("amount", *amountFlag)
	if err != nil {
		return e.fail(err)
	}

	svc, err := e.services(ctx, *yes)
	if err != nil {
		return e.fail(err)
	}
	res, err := svc.vaults.Deposit(ctx, svc.wallet, vaultuc.DepositInput{VaultAddress: addr, Amount: amount}, e.progress())
	if err != nil {
		return e.fail(err)
	}
	fmt.Fprintf(e.stdout, "Deposited %s into %s for %s shares\n", amount, addr.Hex(), res.SharesAmount)
	e.printTx(svc, res.TxHash, res.Recorded)
	return 0
}

// position finds the lender's portfolio entry for vault, optionally pinned to lenderID.
func position(ctx context.Context, svc *services, addr common.Address, lenderID uint64) (*vault.PortfolioItem, error) {
	items, err := svc.api.LenderPortfolio(ctx, svc.address.Hex())
	if err != nil {
		return nil, err
	}
	for i := range items {
		it := &items[i]
		if !strings.EqualFold(it.VaultAddress, addr.Hex()) || it.LenderStatus == vault.LenderRedeemed {
			continue
		}
		if lenderID == 0 || it.LenderID == lenderID {
			return it, nil
		}
	}
	return nil, errPositionUnknown
}

// previewInput builds the redemption input for a position. Explicit shares override the
// recorded amount, but without a lender id the position is still looked up so the
// redemption can be recorded against it.
func previewInput(ctx context.Context, svc *services, addr common.Address, lenderID uint64, shares string) (vaultuc.PreviewInput, uint64, error) {
	in := vaultuc.PreviewInput{VaultAddress: addr, StoredShares: shares}
	if shares != "" && lenderID != 0 {
		return in, lenderID, nil
	}
	it, err := position(ctx, svc, addr, lenderID)
	if err != nil {
		return in, 0, err
	}
	in.DepositAmount = it.Amount
	if shares == "" {
		in.StoredShares = it.SharesAmount.String()
	}
	return in, it.LenderID, nil
}

func runRedeem(ctx context.Context, e *env, args []string) int {
	fs, yes := newFlagSet(e, "redeem")
	vaultFlag := fs.String("vault", "", "vault address")
	lenderID := fs.Uint64("lender-id", 0, "off-chain lender position id (default: first open position in the vault)")
	sharesFlag := fs.String("shares", "", "shares to redeem, e.g. 250.0 (default: the recorded position)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	addr, err := parseAddress("vault", *vaultFlag)
	if err != nil {
		return e.fail(err)
	}

	svc, err := e.services(ctx, *yes)
	if err != nil {
		return e.fail(err)
	}
	in, id, err := previewInput(ctx, svc, addr, *lenderID, *sharesFlag)
	if err != nil {
		return e.fail(err)
	}
	preview, err := svc.vaults.PreviewRedemption(ctx, svc.wallet, in)
	if err != nil {
		return e.fail(err)
	}
	res, err := svc.vaults.Redeem(ctx, svc.wallet, vaultuc.RedeemInput{
		VaultAddress: addr,
		Shares:       preview.SharesToRedeem,
		LenderID:     id,
	}, e.progress())
	if err != nil {
		return e.fail(err)
	}
	fmt.Fprintf(e.stdout, "Redeemed %s shares from %s for %s\n",
		money.FormatUnits(preview.SharesToRedeem, money.ShareDecimals), addr.Hex(), res.RedeemedAmount)
	e.printTx(svc, res.TxHash, res.Recorded)
	return 0
}

func runPreview(ctx context.Context, e *env, args []string) int {
	fs, _ := newFlagSet(e, "preview")
	vaultFlag := fs.String("vault", "", "vault address")
	lenderID := fs.Uint64("lender-id", 0, "off-chain lender position id")
	sharesFlag := fs.String("shares", "", "shares to price, e.g. 250.0 (default: the recorded position)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	addr, err := parseAddress("vault", *vaultFlag)
	if err != nil {
		return e.fail(err)
	}

	// reads only; nothing is signed
	svc, err := e.services(ctx, true)
	if err != nil {
		return e.fail(err)
	}
	in, _, err := previewInput(ctx, svc, addr, *lenderID, *sharesFlag)
	if err != nil {
		return e.fail(err)
	}
	res, err := svc.vaults.PreviewRedemption(ctx, svc.wallet, in)
	if err != nil {
		return e.fail(err)
	}
	fmt.Fprintf(e.stdout, "Redeemable: %s for %s shares\n",
		res.RedeemableAmount, money.FormatUnits(res.SharesToRedeem, money.ShareDecimals))
	return 0
}

func runRepay(ctx context.Context, e *env, args []string) int {
	fs, yes := newFlagSet(e, "repay")
	vaultFlag := fs.String("vault", "", "vault address (default: the loan's vault)")
	loanID := fs.Uint64("loan-id", 0, "loan request id")
	amountFlag := fs.String("amount", "", "repayment amount (default: total debt)")
	debtFlag := fs.String("debt", "", "original debt (default: max loan)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *loanID == 0 {
		return e.fail(errors.New("-loan-id is required"))
	}

	svc, err := e.services(ctx, *yes)
	if err != nil {
		return e.fail(err)
	}
	in, err := repayInput(ctx, svc, *loanID, *vaultFlag, *amountFlag, *debtFlag)
	if err != nil {
		return e.fail(err)
	}
	res, err := svc.repay.Repay(ctx, svc.wallet, in, e.progress())
	if err != nil {
		return e.fail(err)
	}
	fmt.Fprintf(e.stdout, "Repaid %s on loan #%d\n", in.Amount, in.LoanRequestID)
	e.printTx(svc, res.TxHash, res.RepaymentTracked && res.StatusUpdated)
	return 0
}

// repayInput fills whatever the flags leave out from the borrower's dashboard.
func repayInput(ctx context.Context, svc *services, loanID uint64, vaultRaw, amountRaw, debtRaw string) (repayment.RepayInput, error) {
	in := repayment.RepayInput{LoanRequestID: loanID}
	var err error
	if vaultRaw != "" {
		if in.VaultAddress, err = parseAddress("vault", vaultRaw); err != nil {
			return in, err
		}
	}
	if amountRaw != "" {
		if in.Amount, err = parsePositive("amount", amountRaw); err != nil {
			return in, err
		}
	}
	if debtRaw != "" {
		if in.OriginalDebt, err = parsePositive("debt", debtRaw); err != nil {
			return in, err
		}
	}
	if vaultRaw != "" && amountRaw != "" && debtRaw != "" {
		return in, nil
	}

	dash, err := svc.portfolio.Borrower(ctx, svc.address)
	if err != nil {
		return in, err
	}
	for _, l := range dash.Loans {
		if l.ID != loanID {
			continue
		}
		if vaultRaw == "" {
			if l.VaultAddress == "" {
				return in, fmt.Errorf("loan #%d has no vault", loanID)
			}
			in.VaultAddress = common.HexToAddress(l.VaultAddress)
		}
		if amountRaw == "" {
			in.Amount = decimal.NewFromFloat(l.TotalDebt).Round(money.TokenDecimals)
		}
		if debtRaw == "" {
			in.OriginalDebt = l.MaxLoan
		}
		return in, nil
	}
	return in, fmt.Errorf("loan #%d not found for %s", loanID, svc.address.Hex())
}

func runPortfolio(ctx context.Context, e *env, args []string) int {
	fs, _ := newFlagSet(e, "portfolio")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	svc, err := e.services(ctx, true)
	if err != nil {
		return e.fail(err)
	}
	p, err := svc.portfolio.Lender(ctx, svc.address)
	if err != nil {
		return e.fail(err)
	}
	if *asJSON {
		return e.printJSON(p)
	}
	for _, it := range p.Items {
		fmt.Fprintf(e.stdout, "#%d  %s  %-8s %-8s amount=%s shares=%s\n",
			it.LenderID, it.VaultAddress, it.Status, it.LenderStatus, it.Amount, it.SharesAmount)
	}
	fmt.Fprintf(e.stdout, "Allocated: %.6f  Realized: %.6f  Unrealized: %.6f\n",
		p.Summary.AllocatedCapital, p.Summary.RealizedGains, p.Summary.UnrealizedGains)
	return 0
}

func runLoans(ctx context.Context, e *env, args []string) int {
	fs, _ := newFlagSet(e, "loans")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	svc, err := e.services(ctx, true)
	if err != nil {
		return e.fail(err)
	}
	d, err := svc.portfolio.Borrower(ctx, svc.address)
	if err != nil {
		return e.fail(err)
	}
	if *asJSON {
		return e.printJSON(d)
	}
	for _, l := range d.Loans {
		fmt.Fprintf(e.stdout, "#%d  %-9s max=%s interest=%.6f debt=%.6f days=%d vault=%s\n",
			l.ID, l.Status, l.MaxLoan, l.Interest, l.TotalDebt, l.DaysSinceFundRelease, l.VaultAddress)
	}
	fmt.Fprintf(e.stdout, "Active debt: %.6f  Interest: %.6f  Capital: %.6f\n",
		d.Totals.TotalDebt, d.Totals.TotalInterest, d.Totals.TotalCapital)
	return 0
}

func runBalance(ctx context.Context, e *env, args []string) int {
	fs, _ := newFlagSet(e, "balance")
	vaultFlag := fs.String("vault", "", "also show share balance in this vault")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	var vaultAddr common.Address
	if *vaultFlag != "" {
		var err error
		if vaultAddr, err = parseAddress("vault", *vaultFlag); err != nil {
			return e.fail(err)
		}
	}

	svc, err := e.services(ctx, true)
	if err != nil {
		return e.fail(err)
	}
	token, err := svc.chain.RequireToken()
	if err != nil {
		return e.fail(err)
	}
	sess, err := svc.wallet.Session(ctx)
	if err != nil {
		return e.fail(err)
	}
	bal, err := sess.Token(token).BalanceOf(ctx, svc.address)
	if err != nil {
		return e.fail(err)
	}
	fmt.Fprintf(e.stdout, "%s  tokens=%s\n", svc.address.Hex(), money.FormatUnits(bal, money.TokenDecimals))
	if *vaultFlag == "" {
		return 0
	}
	shares, err := sess.Vault(vaultAddr).BalanceOf(ctx, svc.address)
	if err != nil {
		return e.fail(err)
	}
	fmt.Fprintf(e.stdout, "%s  shares=%s\n", vaultAddr.Hex(), money.FormatUnits(shares, money.ShareDecimals))
	return 0
}

func (e *env) printTx(svc *services, hash common.Hash, recorded bool) {
	fmt.Fprintf(e.stdout, "Transaction: %s\n", svc.chain.TxURL(hash.Hex()))
	if !recorded {
		fmt.Fprintln(e.stdout, "Note: the transaction succeeded but the off-chain record was not saved")
	}
}

func (e *env) printJSON(v any) int {
	enc := json.NewEncoder(e.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return e.fail(err)
	}
	return 0
}
