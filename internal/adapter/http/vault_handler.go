package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"invoice-financer/internal/domain/vault"
	"invoice-financer/internal/usecase/ledger"
)

type VaultHandler struct{ uc *ledger.Usecase }

func NewVaultHandler(uc *ledger.Usecase) *VaultHandler { return &VaultHandler{uc: uc} }

type depositReq struct {
	LenderAddress string          `json:"lenderAddress" validate:"required,ethaddr"`
	Amount        decimal.Decimal `json:"amount" validate:"decimalgt0"`
	SharesAmount  string          `json:"sharesAmount" validate:"omitempty,numeric"`
	TxHash        string          `json:"txHash" validate:"required,txhash"`
}

type redemptionReq struct {
	LenderAddress  string          `json:"lenderAddress" validate:"omitempty,ethaddr"`
	LenderID       uint64          `json:"lenderId" validate:"required"`
	SharesRedeemed string          `json:"sharesRedeemed" validate:"omitempty,numeric"`
	Amount         decimal.Decimal `json:"amount" validate:"decimalgte0"`
	TxHash         string          `json:"txHash" validate:"required,txhash"`
}

type repaymentReq struct {
	Amount decimal.Decimal `json:"amount" validate:"decimalgt0"`
	TxHash string          `json:"txHash" validate:"required,txhash"`
}

func (h *VaultHandler) ListVaults(c echo.Context) error {
	items, err := h.uc.ListVaults(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return list(c, items)
}

func (h *VaultHandler) GetVault(c echo.Context) error {
	addr, ok := addressParam(c, "address")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid vault address"})
	}
	v, err := h.uc.GetVault(c.Request().Context(), addr)
	if err != nil {
		return fail(c, err)
	}
	return data(c, http.StatusOK, v)
}

func (h *VaultHandler) LenderPortfolio(c echo.Context) error {
	addr, ok := addressParam(c, "address")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid lender address"})
	}
	items, err := h.uc.Portfolio(c.Request().Context(), addr)
	if err != nil {
		return fail(c, err)
	}
	return list(c, items)
}

func (h *VaultHandler) RegisterVault(c echo.Context) error {
	var req ledger.RegisterVaultInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return invalid(c, err)
	}
	v, err := h.uc.RegisterVault(c.Request().Context(), req)
	if err != nil {
		return fail(c, err)
	}
	return data(c, http.StatusCreated, v)
}

func (h *VaultHandler) ReleaseFunds(c echo.Context) error {
	addr, ok := addressParam(c, "address")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid vault address"})
	}
	var req ledger.ReleaseInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return invalid(c, err)
	}
	v, err := h.uc.ReleaseFunds(c.Request().Context(), addr, req)
	if err != nil {
		return fail(c, err)
	}
	return data(c, http.StatusOK, v)
}

func (h *VaultHandler) RecordDeposit(c echo.Context) error {
	addr, ok := addressParam(c, "address")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid vault address"})
	}
	var req depositReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return invalid(c, err)
	}
	p, err := h.uc.RecordDeposit(c.Request().Context(), addr, vault.DepositRecord(req))
	if err != nil {
		return fail(c, err)
	}
	return data(c, http.StatusCreated, p)
}

func (h *VaultHandler) RecordRedemption(c echo.Context) error {
	addr, ok := addressParam(c, "address")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid vault address"})
	}
	var req redemptionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return invalid(c, err)
	}
	p, err := h.uc.RecordRedemption(c.Request().Context(), addr, vault.RedemptionRecord(req))
	if err != nil {
		return fail(c, err)
	}
	return data(c, http.StatusOK, p)
}

func (h *VaultHandler) RecordRepayment(c echo.Context) error {
	addr, ok := addressParam(c, "address")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid vault address"})
	}
	var req repaymentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return invalid(c, err)
	}
	rp, err := h.uc.RecordRepayment(c.Request().Context(), addr, vault.RepaymentRecord(req))
	if err != nil {
		return fail(c, err)
	}
	return data(c, http.StatusCreated, rp)
}
