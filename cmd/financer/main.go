// Command financer drives the lender and borrower flows against a vault deployment
// with a key-backed wallet, recording each confirmed transaction off-chain.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, env *env, args []string) int
}

var commands = []command{
	{"deposit", "Deposit settlement tokens into a FUNDING vault", runDeposit},
	{"redeem", "Redeem a lender position from a REPAID vault", runRedeem},
	{"preview", "Estimate what redeeming a position would pay out", runPreview},
	{"repay", "Repay an ACTIVE loan through the treasury", runRepay},
	{"portfolio", "Show the wallet's lender portfolio", runPortfolio},
	{"loans", "Show the wallet's loans as a borrower", runLoans},
	{"balance", "Show settlement token and vault share balances", runBalance},
}

func main() {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(stderr, usage())
		return 1
	}
	for _, c := range commands {
		if c.name == args[0] {
			e := newEnv(stdout, stderr)
			defer e.close()
			return c.run(ctx, e, args[1:])
		}
	}
	fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
	fmt.Fprintln(stderr, usage())
	return 1
}

func usage() string {
	s := "Usage: financer <command> [flags]\nCommands:"
	for _, c := range commands {
		s += fmt.Sprintf("\n  %-10s %s", c.name, c.summary)
	}
	return s
}
