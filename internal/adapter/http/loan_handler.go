package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	domainLoan "invoice-financer/internal/domain/loan"
	"invoice-financer/internal/usecase/loan"
)

type LoanHandler struct{ uc *loan.Usecase }

func NewLoanHandler(uc *loan.Usecase) *LoanHandler { return &LoanHandler{uc: uc} }

func (h *LoanHandler) CreateLoan(c echo.Context) error {
	var req loan.CreateLoanInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return invalid(c, err)
	}
	l, err := h.uc.Create(c.Request().Context(), req)
	if err != nil {
		return fail(c, err)
	}
	return data(c, http.StatusCreated, l)
}

// GetLoan returns the loan with its vault, lenders, repayments and totals.
func (h *LoanHandler) GetLoan(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid loan request id"})
	}
	dto, err := h.uc.Detail(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return data(c, http.StatusOK, dto)
}

func (h *LoanHandler) ListLoans(c echo.Context) error {
	status := strings.TrimSpace(c.QueryParam("status"))
	if status == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing status query param"})
	}
	items, err := h.uc.ListByStatus(c.Request().Context(), domainLoan.Status(status))
	if err != nil {
		return fail(c, err)
	}
	return list(c, items)
}

func (h *LoanHandler) ByBorrower(c echo.Context) error {
	addr, ok := addressParam(c, "address")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid borrower address"})
	}
	items, err := h.uc.ByBorrower(c.Request().Context(), addr)
	if err != nil {
		return fail(c, err)
	}
	return list(c, items)
}

func (h *LoanHandler) UpdateStatus(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid loan request id"})
	}
	var req loan.UpdateStatusInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	req.Status = domainLoan.Status(strings.ToUpper(strings.TrimSpace(string(req.Status))))
	if err := c.Validate(&req); err != nil {
		return invalid(c, err)
	}
	if err := h.uc.UpdateStatus(c.Request().Context(), id, req.Status); err != nil {
		return fail(c, err)
	}
	return data(c, http.StatusOK, map[string]any{"id": id, "status": req.Status})
}
