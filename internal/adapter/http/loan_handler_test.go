package http

import (
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	domainLoan "invoice-financer/internal/domain/loan"
	"invoice-financer/internal/domain/vault"
	uc "invoice-financer/internal/usecase/loan"
)

func TestCreateLoan_Success(t *testing.T) {
	s := newMemStore()
	e := newServer(s)

	body := map[string]any{
		"borrower_address":      strings.ToLower("0xAbCdEf0123456789abcdef0123456789ABCDEF01"),
		"max_loan":              "10000",
		"monthly_interest_rate": "0.03",
		"invoice_due_date":      "2025-03-01T00:00:00Z",
	}
	rec := serve(t, e, stdhttp.MethodPost, "/loan-requests", body)
	wantStatus(t, rec, stdhttp.StatusCreated)

	var got domainLoan.LoanRequest
	decodeData(t, rec, &got)
	if got.ID != 1 || got.Status != domainLoan.StatusRequested {
		t.Fatalf("unexpected loan: %+v", got)
	}
	if want := common.HexToAddress(body["borrower_address"].(string)).Hex(); got.BorrowerAddress != want {
		t.Fatalf("borrower address = %s, want checksummed %s", got.BorrowerAddress, want)
	}
	if !got.MaxLoan.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("max_loan = %s", got.MaxLoan)
	}
}

func TestCreateLoan_ValidationErrors(t *testing.T) {
	e := newServer(newMemStore())

	rec := serve(t, e, stdhttp.MethodPost, "/loan-requests", map[string]any{
		"borrower_address":      "not-an-address",
		"max_loan":              "0",
		"monthly_interest_rate": "-0.01",
	})
	wantStatus(t, rec, stdhttp.StatusUnprocessableEntity)
	er := decodeError(t, rec)
	if !containsFieldMsg(er.Details, "BorrowerAddress", "address") {
		t.Fatalf("missing address detail: %+v", er.Details)
	}
	if !containsFieldMsg(er.Details, "MaxLoan", "greater than 0") {
		t.Fatalf("missing max_loan detail: %+v", er.Details)
	}
	if !containsFieldMsg(er.Details, "MonthlyInterestRate", "greater than or equal to 0") {
		t.Fatalf("missing rate detail: %+v", er.Details)
	}
	if !containsFieldMsg(er.Details, "InvoiceDueDate", "is required") {
		t.Fatalf("missing due date detail: %+v", er.Details)
	}
}

func TestCreateLoan_InvalidBody(t *testing.T) {
	e := newServer(newMemStore())
	req := httptest.NewRequest(stdhttp.MethodPost, "/loan-requests", strings.NewReader(`{"borrower_address":`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	wantStatus(t, rec, stdhttp.StatusBadRequest)
}

func TestListLoans_ByStatus(t *testing.T) {
	s := newMemStore()
	s.seedLoan(domainLoan.StatusListed)
	s.seedLoan(domainLoan.StatusActive)
	id := s.seedLoan(domainLoan.StatusListed)
	s.seedVault(id, vault.StatusFunding, "0", "1000")
	e := newServer(s)

	rec := serve(t, e, stdhttp.MethodGet, "/loan-requests?status=listed", nil)
	wantStatus(t, rec, stdhttp.StatusOK)
	var rows []vault.LoanWithVault
	if n := decodeData(t, rec, &rows); n != 2 || len(rows) != 2 {
		t.Fatalf("count = %d rows = %d", n, len(rows))
	}
	if rows[1].VaultAddress != vaultAddr || rows[1].VaultStatus != vault.StatusFunding {
		t.Fatalf("vault join missing: %+v", rows[1])
	}
	if rows[0].VaultAddress != "" {
		t.Fatalf("loan without vault has vault fields: %+v", rows[0])
	}
}

func TestListLoans_StatusRequiredAndValid(t *testing.T) {
	e := newServer(newMemStore())

	wantStatus(t, serve(t, e, stdhttp.MethodGet, "/loan-requests", nil), stdhttp.StatusBadRequest)

	rec := serve(t, e, stdhttp.MethodGet, "/loan-requests?status=bogus", nil)
	wantStatus(t, rec, stdhttp.StatusBadRequest)
	if er := decodeError(t, rec); er.Error != domainLoan.ErrInvalidStatus.Error() {
		t.Fatalf("error = %q", er.Error)
	}
}

func TestListLoans_EmptyIsArray(t *testing.T) {
	e := newServer(newMemStore())
	rec := serve(t, e, stdhttp.MethodGet, "/loan-requests?status=PAID", nil)
	wantStatus(t, rec, stdhttp.StatusOK)
	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestGetLoan_Detail(t *testing.T) {
	s := newMemStore()
	id := s.seedLoan(domainLoan.StatusListed)
	s.seedVault(id, vault.StatusFunding, "500", "1000")
	s.positions = append(s.positions, &vault.LenderPosition{
		ID: 1, VaultID: 1, LenderAddress: lenderAddr, Amount: decimal.NewFromInt(500), Status: vault.LenderFunded,
	})
	e := newServer(s)

	rec := serve(t, e, stdhttp.MethodGet, "/loan-requests/1", nil)
	wantStatus(t, rec, stdhttp.StatusOK)
	var dto uc.LoanDetailDTO
	decodeData(t, rec, &dto)
	if dto.Loan.ID != 1 || dto.Vault == nil || dto.Vault.Address != vaultAddr {
		t.Fatalf("detail = %+v", dto)
	}
	if len(dto.Lenders) != 1 || dto.Totals.TotalFunded != 500 {
		t.Fatalf("lenders = %d totals = %+v", len(dto.Lenders), dto.Totals)
	}
}

func TestGetLoan_NotFoundAndBadID(t *testing.T) {
	e := newServer(newMemStore())

	rec := serve(t, e, stdhttp.MethodGet, "/loan-requests/99", nil)
	wantStatus(t, rec, stdhttp.StatusNotFound)
	if er := decodeError(t, rec); er.Error != domainLoan.ErrNotFound.Error() {
		t.Fatalf("error = %q", er.Error)
	}

	wantStatus(t, serve(t, e, stdhttp.MethodGet, "/loan-requests/abc", nil), stdhttp.StatusBadRequest)
	wantStatus(t, serve(t, e, stdhttp.MethodGet, "/loan-requests/0", nil), stdhttp.StatusBadRequest)
}

func TestUpdateStatus(t *testing.T) {
	s := newMemStore()
	id := s.seedLoan(domainLoan.StatusActive)
	e := newServer(s)

	rec := serve(t, e, stdhttp.MethodPatch, "/loan-requests/1/status", map[string]string{"status": "paid"})
	wantStatus(t, rec, stdhttp.StatusOK)
	if s.loans[id].Status != domainLoan.StatusPaid {
		t.Fatalf("status = %s", s.loans[id].Status)
	}

	wantStatus(t, serve(t, e, stdhttp.MethodPatch, "/loan-requests/1/status", map[string]string{"status": "bogus"}),
		stdhttp.StatusBadRequest)
	wantStatus(t, serve(t, e, stdhttp.MethodPatch, "/loan-requests/1/status", map[string]string{}),
		stdhttp.StatusUnprocessableEntity)
	wantStatus(t, serve(t, e, stdhttp.MethodPatch, "/loan-requests/7/status", map[string]string{"status": "PAID"}),
		stdhttp.StatusNotFound)
}

func TestByBorrower(t *testing.T) {
	s := newMemStore()
	s.seedLoan(domainLoan.StatusActive)
	s.seedLoan(domainLoan.StatusPaid)
	e := newServer(s)

	rec := serve(t, e, stdhttp.MethodGet, "/loan-requests/borrower/0x123", nil)
	wantStatus(t, rec, stdhttp.StatusBadRequest)

	rec = serve(t, e, stdhttp.MethodGet, "/loan-requests/borrower/0x00000000000000000000000000000000000000B0", nil)
	wantStatus(t, rec, stdhttp.StatusOK)
	if n := decodeData(t, rec, nil); n != 2 {
		t.Fatalf("count = %d", n)
	}
}
