package api

import (
	"github.com/labstack/echo/v4"

	"SmcDesk/internal/domain/models"
	"SmcDesk/internal/usecase"
	xhttp "SmcDesk/pkg/http"
	xlogger "SmcDesk/pkg/logger"
)

type OrdersEchoHandler struct {
	logger *xlogger.Logger
	orders *usecase.VirtualOrdersUseCase
}

func NewOrdersEchoHandler(logger *xlogger.Logger, orders *usecase.VirtualOrdersUseCase) *OrdersEchoHandler {
	return &OrdersEchoHandler{logger: logger, orders: orders}
}

func (h *OrdersEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/virtual-orders")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.POST("/process", h.Process)
	g.PATCH("/:id", h.Patch)
	g.DELETE("/:id", h.Delete)
}

func (h *OrdersEchoHandler) List(c echo.Context) error {
	req := &models.ListOrdersRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	list, err := h.orders.List(c.Request().Context(), models.OrderState(req.State))
	if err != nil {
		h.logger.Error("list virtual orders error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.ListResponse(c, list, int64(len(list)))
}

func (h *OrdersEchoHandler) Create(c echo.Context) error {
	req := &models.CreateOrderRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	o, err := h.orders.Create(c.Request().Context(), req)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.CreatedResponse(c, o)
}

func (h *OrdersEchoHandler) Patch(c echo.Context) error {
	req := &models.PatchOrderRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	o, err := h.orders.Patch(c.Request().Context(), req)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, o)
}

func (h *OrdersEchoHandler) Delete(c echo.Context) error {
	req := &models.OrderIDRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.orders.Delete(c.Request().Context(), req.ID); err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.NoContentResponse(c)
}

// Process applies one closed candle posted by a client.
func (h *OrdersEchoHandler) Process(c echo.Context) error {
	req := &models.ProcessCandleRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.orders.ProcessCandle(c.Request().Context(), req.Symbol, req.Timeframe, req.ClosedCandle.Candle())
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, res)
}
