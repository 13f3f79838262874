package api

import (
	"github.com/labstack/echo/v4"

	"SmcDesk/internal/domain/models"
	"SmcDesk/internal/service/ratelimit"
	"SmcDesk/internal/usecase"
	xhttp "SmcDesk/pkg/http"
	xlogger "SmcDesk/pkg/logger"
)

// SmcEchoHandler serves analysis, candles and the parameter catalog.
type SmcEchoHandler struct {
	logger  *xlogger.Logger
	analyze *usecase.AnalyzeUseCase
	setup   *usecase.SetupParamsUseCase
	limiter *ratelimit.Limiter
}

// NewSmcEchoHandler builds the handler; a nil limiter disables rate limiting.
func NewSmcEchoHandler(logger *xlogger.Logger, analyze *usecase.AnalyzeUseCase, setup *usecase.SetupParamsUseCase, limiter *ratelimit.Limiter) *SmcEchoHandler {
	return &SmcEchoHandler{logger: logger, analyze: analyze, setup: setup, limiter: limiter}
}

func (h *SmcEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/analyze", h.Analyze, h.rateLimit)
	g.GET("/candles", h.Candles)
	g.GET("/setup", h.Setup)
	g.POST("/setup/resolve", h.Resolve)
}

func (h *SmcEchoHandler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("analyze rate limit exceeded"))
		}
		return next(c)
	}
}

func (h *SmcEchoHandler) Analyze(c echo.Context) error {
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	out, err := h.analyze.Analyze(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("analyze usecase error", xlogger.Error(err), xlogger.String("symbol", req.Symbol))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *SmcEchoHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	candles, err := h.analyze.GetCandles(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("candles usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=5")
	return xhttp.SuccessResponse(c, map[string]any{
		"symbol":    req.Symbol,
		"timeframe": req.Timeframe,
		"count":     len(candles),
		"candles":   candles,
	})
}

func (h *SmcEchoHandler) Setup(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.setup.Document())
}

func (h *SmcEchoHandler) Resolve(c echo.Context) error {
	req := &models.ResolveParamsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.setup.Resolve(req.PresetID, req.Overrides))
}
