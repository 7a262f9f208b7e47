package ethereum

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"invoice-financer/internal/domain/chain"
)

// Confirmer approves a transaction before it is signed. Returning an error aborts the call.
type Confirmer func(ctx context.Context, action string) error

// AutoConfirm signs without asking.
func AutoConfirm(context.Context, string) error { return nil }

func rejected() error {
	return &chain.ProviderError{Code: chain.CodeUserRejected, Message: "User rejected the request."}
}

// PromptConfirmer reads y/N answers from in after printing the question to out.
func PromptConfirmer(in io.Reader, out io.Writer) Confirmer {
	lines := bufio.NewReader(in)
	return func(ctx context.Context, action string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintf(out, "Sign %s? [y/N]: ", action)
		answer, err := lines.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read confirmation: %w", err)
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return nil
		}
		return rejected()
	}
}

// TerminalConfirmer prompts on stderr and requires stdin to be a terminal.
func TerminalConfirmer() (Confirmer, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, errors.New("transaction confirmation needs a terminal; pass -yes to sign without prompting")
	}
	return PromptConfirmer(os.Stdin, os.Stderr), nil
}

// PassphraseFromTerminal asks for the keystore passphrase without echo.
func PassphraseFromTerminal() (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New("keystore passphrase required; set WALLET_PASSPHRASE or run interactively")
	}
	fmt.Fprint(os.Stderr, "Enter keystore passphrase: ")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	if strings.TrimSpace(string(b)) == "" {
		return "", errors.New("keystore passphrase cannot be empty")
	}
	return string(b), nil
}
