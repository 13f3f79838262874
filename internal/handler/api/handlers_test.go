package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SmcDesk/internal/domain/models"
	domrepo "SmcDesk/internal/domain/repository"
	"SmcDesk/internal/repository"
	"SmcDesk/internal/service/ratelimit"
	"SmcDesk/internal/services/orders"
	"SmcDesk/internal/services/params"
	"SmcDesk/internal/services/smc"
	"SmcDesk/internal/usecase"
	"SmcDesk/pkg/metrics"
	xlogger "SmcDesk/pkg/logger"
)

type staticSource struct{ candles []models.Candle }

func (s staticSource) GetLatestCandles(context.Context, domrepo.CandleQuery) ([]models.Candle, error) {
	return s.candles, nil
}

func zigzag(n int) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		p := 100 + float64(i%7)*0.8
		out[i] = models.Candle{T: int64(i+1) * 900_000, O: p, H: p + 0.6, L: p - 0.6, C: p + 0.2, V: 5}
	}
	return out
}

func newTestServer(t *testing.T, limiter *ratelimit.Limiter) *echo.Echo {
	t.Helper()
	l := xlogger.NewNop()
	m := metrics.New(prometheus.NewRegistry())
	catalog := params.Default()

	analyze := usecase.NewAnalyzeUseCase(staticSource{candles: zigzag(40)}, smc.NewAnalyzer(smc.NewOutputValidator()), catalog, nil, m, l, usecase.AnalyzeConfig{TZ: "UTC", CandleSource: "test"})
	vo := usecase.NewVirtualOrdersUseCase(repository.NewMemoryOrderStore(), nil, nil, m, l, usecase.VirtualOrdersConfig{Thresholds: orders.DefaultThresholds()})
	history := usecase.NewSetupHistoryUseCase(repository.NewMemorySetupHistory(), l)

	e := echo.New()
	NewSmcEchoHandler(l, analyze, usecase.NewSetupParamsUseCase(catalog), limiter).RegisterRoutes(e)
	NewOrdersEchoHandler(l, vo).RegisterRoutes(e)
	NewSetupHistoryEchoHandler(l, history).RegisterRoutes(e)
	return e
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, e *echo.Echo, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func errorCode(t *testing.T, env envelope) string {
	t.Helper()
	var errs []struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	require.NotEmpty(t, errs)
	return errs[0].Code
}

const setupJSON = `{"id":"s1","name":"Sweep -> CHoCH -> POI","direction":"BUY","status":"wait","timeframe":"M15",
"entry":{"mode":"limit","zone":{"low":100,"high":102}},"risk":{"stopLoss":98,"rrMin":2},
"targets":[{"type":"liquidity","price":106,"label":"TP1"}],"confidence":%d,"reasons":["sweep","choch","ob"]}`

func createBody(confidence int) string {
	return `{"symbol":"BTCUSDT","timeframe":"M15","setup":` + fmt.Sprintf(setupJSON, confidence) + `}`
}

func TestVirtualOrdersAPI_Lifecycle(t *testing.T) {
	e := newTestServer(t, nil)

	rec, env := do(t, e, http.MethodPost, "/api/virtual-orders", createBody(75))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created models.VirtualOrder
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, models.OrderPlanned, created.State)

	rec, env = do(t, e, http.MethodPost, "/api/virtual-orders", createBody(75))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, orders.ErrCodeDuplicateZone, errorCode(t, env))

	rec, env = do(t, e, http.MethodPost, "/api/virtual-orders", createBody(60))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, orders.ErrCodeConfidence, errorCode(t, env))

	rec, env = do(t, e, http.MethodGet, "/api/virtual-orders?state=PLANNED", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Rows  []models.VirtualOrder `json:"rows"`
		Total int64                `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.EqualValues(t, 1, list.Total)

	rec, _ = do(t, e, http.MethodGet, "/api/virtual-orders?state=BOGUS", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	candleT := time.Now().Add(time.Minute).UnixMilli()
	process := fmt.Sprintf(`{"symbol":"BTCUSDT","timeframe":"M15","closedCandle":{"t":%d,"h":103,"l":101.5,"c":102}}`, candleT)
	rec, env = do(t, e, http.MethodPost, "/api/virtual-orders/process", process)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res usecase.ProcessResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, models.OrderOpen, res.Orders[0].State)

	rec, _ = do(t, e, http.MethodPost, "/api/virtual-orders/process", process)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = do(t, e, http.MethodPost, "/api/virtual-orders/process", `{"symbol":"BTCUSDT"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = do(t, e, http.MethodPatch, "/api/virtual-orders/"+created.ID, `{"state":"CLOSED","pnl":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var closed models.VirtualOrder
	require.NoError(t, json.Unmarshal(env.Data, &closed))
	assert.Equal(t, models.OrderClosed, closed.State)
	assert.Equal(t, models.CloseManual, *closed.CloseReason)
	assert.InDelta(t, 2.0/101*100, *closed.PnLPct, 1e-9)

	rec, _ = do(t, e, http.MethodDelete, "/api/virtual-orders/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, _ = do(t, e, http.MethodDelete, "/api/virtual-orders/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyzeAPI(t *testing.T) {
	e := newTestServer(t, nil)

	rec, env := do(t, e, http.MethodPost, "/api/analyze", `{"symbol":"BTCUSDT","timeframe":"M15"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out models.SmcOutput
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, "SMC", out.Engine.School)
	assert.Equal(t, "test", out.Context.CandleSource)

	short, _ := json.Marshal(map[string]any{"candles": zigzag(5)})
	rec, _ = do(t, e, http.MethodPost, "/api/analyze", string(short))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, _ = do(t, e, http.MethodPost, "/api/analyze", `{"timeframe":"M2"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = do(t, e, http.MethodGet, "/api/candles?symbol=ETHUSDT&limit=40", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"count":40`)
}

func TestAnalyzeAPI_RateLimited(t *testing.T) {
	e := newTestServer(t, ratelimit.New(0.001, 1))

	rec, _ := do(t, e, http.MethodPost, "/api/analyze", `{}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, e, http.MethodPost, "/api/analyze", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestSetupAPI(t *testing.T) {
	e := newTestServer(t, nil)

	rec, env := do(t, e, http.MethodGet, "/api/setup", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var doc usecase.SetupDocument
	require.NoError(t, json.Unmarshal(env.Data, &doc))
	assert.NotEmpty(t, doc.Version)
	assert.NotEmpty(t, doc.Presets)
	assert.Contains(t, doc.DefaultParams, "swingLen")

	rec, env = do(t, e, http.MethodPost, "/api/setup/resolve", `{"presetId":"btc_m15_conservative","overrides":{"swingLen":50}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var res params.Result
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.True(t, res.Valid)
	assert.EqualValues(t, 6, res.Params["swingLen"])
	assert.NotEmpty(t, res.Warnings)
}

func TestSetupHistoryAPI(t *testing.T) {
	e := newTestServer(t, nil)

	rec, env := do(t, e, http.MethodPost, "/api/setup-history", `{"symbol":"BTCUSDT","timeframe":"M15","source":"chart"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var entry models.SetupHistoryEntry
	require.NoError(t, json.Unmarshal(env.Data, &entry))
	assert.Equal(t, models.HistoryPending, entry.Status)

	rec, _ = do(t, e, http.MethodPatch, "/api/setup-history/"+entry.ID, `{"status":"pending"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = do(t, e, http.MethodPatch, "/api/setup-history/"+entry.ID, `{"status":"success"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &entry))
	assert.Equal(t, models.HistorySuccess, entry.Status)

	rec, _ = do(t, e, http.MethodPatch, "/api/setup-history/sh_missing", `{"status":"failed"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = do(t, e, http.MethodGet, "/api/setup-history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"total":1`)
}
