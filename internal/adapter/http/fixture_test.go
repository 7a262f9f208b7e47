package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	domainLoan "invoice-financer/internal/domain/loan"
	"invoice-financer/internal/domain/uow"
	"invoice-financer/internal/domain/vault"
	"invoice-financer/internal/testutil/loanmock"
	"invoice-financer/internal/testutil/uowmock"
	"invoice-financer/internal/testutil/vaultmock"
	"invoice-financer/internal/usecase/ledger"
	ucLoan "invoice-financer/internal/usecase/loan"
)

const (
	borrowerAddr = "0x00000000000000000000000000000000000000b0"
	lenderAddr   = "0x00000000000000000000000000000000000000c1"
	vaultAddr    = "0x00000000000000000000000000000000000000a1"
)

var errDBDown = errors.New("db down")

func hash(c byte) string { return "0x" + strings.Repeat(string(c), 64) }

// memStore is an in-memory ledger behind the function mocks.
type memStore struct {
	loans      map[uint64]*domainLoan.LoanRequest
	vaults     []*vault.Vault
	positions  []*vault.LenderPosition
	repayments []vault.Repayment
	failLists  bool
}

func newMemStore() *memStore {
	return &memStore{loans: map[uint64]*domainLoan.LoanRequest{}}
}

func (s *memStore) vaultBy(match func(*vault.Vault) bool) (*vault.Vault, error) {
	for _, v := range s.vaults {
		if match(v) {
			cp := *v
			return &cp, nil
		}
	}
	return nil, vault.ErrNotFound
}

func (s *memStore) joined(filter func(*domainLoan.LoanRequest) bool) []vault.LoanWithVault {
	var out []vault.LoanWithVault
	for id := uint64(1); id <= uint64(len(s.loans)); id++ {
		l, ok := s.loans[id]
		if !ok || !filter(l) {
			continue
		}
		row := vault.LoanWithVault{LoanRequest: *l}
		if v, err := s.vaultBy(func(v *vault.Vault) bool { return v.LoanRequestID == id }); err == nil {
			row.VaultID, row.VaultAddress, row.VaultName = v.ID, v.Address, v.Name
			row.MaxCapacity, row.CurrentCapacity, row.VaultStatus = v.MaxCapacity, v.CurrentCapacity, v.Status
			row.FundReleaseAt = v.FundReleaseAt
		}
		out = append(out, row)
	}
	return out
}

func (s *memStore) repos() uow.Repos {
	return uow.Repos{
		Loans: &loanmock.Repo{
			CreateFn: func(_ context.Context, l *domainLoan.LoanRequest) error {
				l.ID = uint64(len(s.loans) + 1)
				cp := *l
				s.loans[l.ID] = &cp
				return nil
			},
			GetByIDFn: func(_ context.Context, id uint64) (*domainLoan.LoanRequest, error) {
				if l, ok := s.loans[id]; ok {
					cp := *l
					return &cp, nil
				}
				return nil, domainLoan.ErrNotFound
			},
			UpdateStatusFn: func(_ context.Context, id uint64, st domainLoan.Status) error {
				l, ok := s.loans[id]
				if !ok {
					return domainLoan.ErrNotFound
				}
				l.Status = st
				return nil
			},
		},
		Vaults: &vaultmock.Repo{
			CreateFn: func(_ context.Context, v *vault.Vault) error {
				v.ID = uint64(len(s.vaults) + 1)
				cp := *v
				s.vaults = append(s.vaults, &cp)
				return nil
			},
			GetByAddressFn: func(_ context.Context, addr string) (*vault.Vault, error) {
				return s.vaultBy(func(v *vault.Vault) bool { return strings.EqualFold(v.Address, addr) })
			},
			GetByLoanRequestIDFn: func(_ context.Context, id uint64) (*vault.Vault, error) {
				return s.vaultBy(func(v *vault.Vault) bool { return v.LoanRequestID == id })
			},
			SaveFn: func(_ context.Context, v *vault.Vault) error {
				cp := *v
				s.vaults[v.ID-1] = &cp
				return nil
			},
			ListWithLoansFn: func(context.Context) ([]vault.LoanWithVault, error) {
				if s.failLists {
					return nil, errDBDown
				}
				return s.joined(func(l *domainLoan.LoanRequest) bool { return true }), nil
			},
			ListWithLoansByStatusFn: func(_ context.Context, st string) ([]vault.LoanWithVault, error) {
				return s.joined(func(l *domainLoan.LoanRequest) bool { return string(l.Status) == st }), nil
			},
			ListByBorrowerFn: func(_ context.Context, b string) ([]vault.LoanWithVault, error) {
				return s.joined(func(l *domainLoan.LoanRequest) bool { return strings.EqualFold(l.BorrowerAddress, b) }), nil
			},
		},
		Positions: &vaultmock.Positions{
			CreateFn: func(_ context.Context, p *vault.LenderPosition) error {
				p.ID = uint64(len(s.positions) + 1)
				cp := *p
				s.positions = append(s.positions, &cp)
				return nil
			},
			GetByIDFn: func(_ context.Context, vaultID, lenderID uint64) (*vault.LenderPosition, error) {
				for _, p := range s.positions {
					if p.VaultID == vaultID && p.ID == lenderID {
						cp := *p
						return &cp, nil
					}
				}
				return nil, vault.ErrPositionNotFound
			},
			ListByVaultFn: func(_ context.Context, vaultID uint64) ([]vault.LenderPosition, error) {
				var out []vault.LenderPosition
				for _, p := range s.positions {
					if p.VaultID == vaultID {
						out = append(out, *p)
					}
				}
				return out, nil
			},
			PortfolioFn: func(_ context.Context, lender string) ([]vault.PortfolioItem, error) {
				var out []vault.PortfolioItem
				for _, p := range s.positions {
					if !strings.EqualFold(p.LenderAddress, lender) {
						continue
					}
					v := s.vaults[p.VaultID-1]
					out = append(out, vault.PortfolioItem{
						LenderID: p.ID, VaultID: v.ID, VaultAddress: v.Address, Status: v.Status,
						LenderStatus: p.Status, Amount: p.Amount, SharesAmount: p.SharesAmount,
					})
				}
				return out, nil
			},
			SaveFn: func(_ context.Context, p *vault.LenderPosition) error {
				cp := *p
				s.positions[p.ID-1] = &cp
				return nil
			},
		},
		Repayments: &vaultmock.Repayments{
			CreateFn: func(_ context.Context, r *vault.Repayment) error {
				r.ID = uint64(len(s.repayments) + 1)
				s.repayments = append(s.repayments, *r)
				return nil
			},
			ListByVaultFn: func(_ context.Context, vaultID uint64) ([]vault.Repayment, error) {
				var out []vault.Repayment
				for _, r := range s.repayments {
					if r.VaultID == vaultID {
						out = append(out, r)
					}
				}
				return out, nil
			},
		},
	}
}

// seedLoan adds a loan request in status and returns its id.
func (s *memStore) seedLoan(status domainLoan.Status) uint64 {
	id := uint64(len(s.loans) + 1)
	s.loans[id] = &domainLoan.LoanRequest{
		ID: id, BorrowerAddress: borrowerAddr, Status: status,
		MaxLoan: decimal.NewFromInt(1000), MonthlyInterestRate: decimal.RequireFromString("0.03"),
	}
	return id
}

// seedVault adds a vault for loanID.
func (s *memStore) seedVault(loanID uint64, status vault.Status, current, max string) {
	s.vaults = append(s.vaults, &vault.Vault{
		ID: uint64(len(s.vaults) + 1), LoanRequestID: loanID, Address: vaultAddr, Name: "Invoice #1",
		Status: status, CurrentCapacity: decimal.RequireFromString(current), MaxCapacity: decimal.RequireFromString(max),
	})
}

func newServer(s *memStore) *echo.Echo {
	r := s.repos()
	e := echo.New()
	e.Validator = NewValidator()
	Register(e, NewHandler(),
		NewVaultHandler(ledger.NewUsecase(r, uowmock.Passthrough(r), nil)),
		NewLoanHandler(ucLoan.NewUsecase(r)))
	return e
}

func mustJSON(v any) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func serve(t *testing.T, e *echo.Echo, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		rd = mustJSON(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// decodeData unwraps the {"data": ...} envelope into out.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) int {
	t.Helper()
	var env struct {
		Data  json.RawMessage `json:"data"`
		Count int             `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("bad json: %v; raw=%s", err, rec.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("bad data: %v; raw=%s", err, env.Data)
		}
	}
	return env.Count
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
		t.Fatalf("bad json: %v; raw=%s", err, rec.Body.String())
	}
	return er
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, code int) {
	t.Helper()
	if rec.Code != code {
		t.Fatalf("status = %d, want %d; body=%s", rec.Code, code, rec.Body.String())
	}
}
