package api

import (
	"github.com/labstack/echo/v4"

	"SmcDesk/internal/domain/models"
	"SmcDesk/internal/usecase"
	xhttp "SmcDesk/pkg/http"
	xlogger "SmcDesk/pkg/logger"
)

type SetupHistoryEchoHandler struct {
	logger  *xlogger.Logger
	history *usecase.SetupHistoryUseCase
}

func NewSetupHistoryEchoHandler(logger *xlogger.Logger, history *usecase.SetupHistoryUseCase) *SetupHistoryEchoHandler {
	return &SetupHistoryEchoHandler{logger: logger, history: history}
}

func (h *SetupHistoryEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/setup-history")
	g.GET("", h.List)
	g.POST("", h.Add)
	g.PATCH("/:id", h.UpdateStatus)
}

func (h *SetupHistoryEchoHandler) List(c echo.Context) error {
	entries, err := h.history.List(c.Request().Context())
	if err != nil {
		h.logger.Error("list setup history error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.ListResponse(c, entries, int64(len(entries)))
}

func (h *SetupHistoryEchoHandler) Add(c echo.Context) error {
	req := &models.AddSetupHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	e, err := h.history.Add(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("add setup history error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.CreatedResponse(c, e)
}

func (h *SetupHistoryEchoHandler) UpdateStatus(c echo.Context) error {
	req := &models.PatchSetupHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	e, err := h.history.UpdateStatus(c.Request().Context(), req)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, e)
}
