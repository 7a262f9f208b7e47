package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	domainLoan "invoice-financer/internal/domain/loan"
	"invoice-financer/internal/domain/vault"
	"invoice-financer/internal/usecase/ledger"
	ucLoan "invoice-financer/internal/usecase/loan"
)

// ---- response envelope ----

func data(c echo.Context, code int, v any) error {
	return c.JSON(code, map[string]any{"data": v})
}

func list[T any](c echo.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	return c.JSON(http.StatusOK, map[string]any{"data": items, "count": len(items)})
}

// ---- errors ----

// statusFor maps domain errors to HTTP codes; anything unknown is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domainLoan.ErrNotFound),
		errors.Is(err, vault.ErrNotFound),
		errors.Is(err, vault.ErrPositionNotFound):
		return http.StatusNotFound
	case errors.Is(err, vault.ErrCapacityExceeded),
		errors.Is(err, vault.ErrInvalidTransition),
		errors.Is(err, vault.ErrAlreadyRedeemed),
		errors.Is(err, vault.ErrNotFunding),
		errors.Is(err, ledger.ErrLoanNotListable):
		return http.StatusConflict
	case errors.Is(err, ucLoan.ErrInvalidInput),
		errors.Is(err, domainLoan.ErrInvalidStatus),
		errors.Is(err, vault.ErrInvalidAmount):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func fail(c echo.Context, err error) error {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		c.Logger().Error(err)
		return c.JSON(code, ErrorResponse{Error: "internal error"})
	}
	return c.JSON(code, ErrorResponse{Error: err.Error()})
}

func invalid(c echo.Context, err error) error {
	return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Error:   "validation failed",
		Details: ToFieldErrors(err),
	})
}

// ---- params ----

func addressParam(c echo.Context, name string) (string, bool) {
	v := strings.TrimSpace(c.Param(name))
	return v, reEthAddr.MatchString(v)
}

func idParam(c echo.Context, name string) (uint64, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	return n, err == nil && n > 0
}
