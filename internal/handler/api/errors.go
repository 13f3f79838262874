package api

import (
	"errors"
	"net/http"

	domrepo "SmcDesk/internal/domain/repository"
	"SmcDesk/internal/services/orders"
	"SmcDesk/internal/services/smc"
	"SmcDesk/internal/usecase"
	xhttp "SmcDesk/pkg/http"
)

// toAppError maps domain errors onto HTTP statuses.
func toAppError(err error) *xhttp.AppError {
	var rej *orders.RejectError
	switch {
	case errors.As(err, &rej):
		status := http.StatusBadRequest
		if rej.Code == orders.ErrCodeDuplicateZone {
			status = http.StatusConflict
		}
		return xhttp.NewAppError(rej.Code, "setup", rej.Reason, status)
	case errors.Is(err, domrepo.ErrOrderNotFound), errors.Is(err, domrepo.ErrEntryNotFound):
		return xhttp.NotFoundError(err.Error())
	case errors.Is(err, usecase.ErrStaleCandle), errors.Is(err, orders.ErrTerminalOrder):
		return xhttp.ConflictError(err.Error())
	case errors.Is(err, usecase.ErrInvalidCandle), errors.Is(err, usecase.ErrEmptyPatch):
		return xhttp.BadRequestError(err.Error())
	case errors.Is(err, smc.ErrInsufficientCandles):
		return xhttp.UnprocessableError(err.Error())
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}
