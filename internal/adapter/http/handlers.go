package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handler struct{}

func NewHandler() *Handler { return &Handler{} }

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// Register mounts every route. mutating wraps the POST/PATCH routes (idempotency).
func Register(e *echo.Echo, h *Handler, vaults *VaultHandler, loans *LoanHandler, mutating ...echo.MiddlewareFunc) {
	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v := e.Group("/vaults")
	v.GET("", vaults.ListVaults)
	v.GET("/lender/:address", vaults.LenderPortfolio)
	v.GET("/:address", vaults.GetVault)
	v.POST("", vaults.RegisterVault, mutating...)
	v.PATCH("/:address/release", vaults.ReleaseFunds, mutating...)
	v.POST("/:address/deposit", vaults.RecordDeposit, mutating...)
	v.POST("/:address/redemptions", vaults.RecordRedemption, mutating...)
	v.POST("/:address/repayments", vaults.RecordRepayment, mutating...)

	l := e.Group("/loan-requests")
	l.GET("", loans.ListLoans)
	l.POST("", loans.CreateLoan, mutating...)
	l.GET("/borrower/:address", loans.ByBorrower)
	l.GET("/:id", loans.GetLoan)
	l.PATCH("/:id/status", loans.UpdateStatus, mutating...)
}
