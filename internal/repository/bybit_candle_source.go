package repository

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"SmcDesk/internal/domain/models"
	domrepo "SmcDesk/internal/domain/repository"
	"SmcDesk/internal/service/ratelimit"
	xhttp "SmcDesk/pkg/http"
)

// BybitCandleSource fetches klines from the Bybit v5 REST API.
type BybitCandleSource struct {
	baseURL string
	client  *xhttp.Client
	limiter *ratelimit.Limiter
	breaker *gobreaker.CircuitBreaker
}

type BybitSourceOption func(*BybitCandleSource)

// WithBreaker fails fast for cooldown once failures consecutive requests
// have failed at the transport level.
func WithBreaker(failures uint32, cooldown time.Duration) BybitSourceOption {
	return func(s *BybitCandleSource) {
		if failures == 0 {
			return
		}
		s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "bybit-rest",
			Timeout: cooldown,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= failures
			},
		})
	}
}

func NewBybitCandleSource(baseURL string, client *xhttp.Client, limiter *ratelimit.Limiter, opts ...BybitSourceOption) *BybitCandleSource {
	s := &BybitCandleSource{baseURL: baseURL, client: client, limiter: limiter}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type bybitKlineResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		Symbol string     `json:"symbol"`
		List   [][]string `json:"list"`
	} `json:"result"`
}

// GetLatestCandles returns up to q.Limit candles in ascending time order.
// Bybit answers newest first.
func (s *BybitCandleSource) GetLatestCandles(ctx context.Context, q domrepo.CandleQuery) ([]models.Candle, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, "bybit"); err != nil {
			return nil, fmt.Errorf("bybit rate limit: %w", err)
		}
	}
	limit := q.Limit
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	category := q.Category
	if category == "" {
		category = "linear"
	}

	var resp bybitKlineResponse
	req := &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    s.baseURL + "/v5/market/kline",
		Headers: map[string]string{
			"Accept": "application/json",
		},
		QueryParams: map[string][]string{
			"category": {category},
			"symbol":   {q.Symbol},
			"interval": {q.Timeframe.BybitInterval()},
			"limit":    {strconv.Itoa(limit)},
		},
	}
	if err := s.send(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("bybit kline: %w", err)
	}
	if resp.RetCode != 0 {
		return nil, fmt.Errorf("bybit kline: %s (code: %d)", resp.RetMsg, resp.RetCode)
	}
	return parseBybitKlines(resp.Result.List)
}

func (s *BybitCandleSource) send(ctx context.Context, req *xhttp.RequestOptions, out *bybitKlineResponse) error {
	if s.breaker == nil {
		return s.client.SendAndParse(ctx, req, out)
	}
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.client.SendAndParse(ctx, req, out)
	})
	return err
}

// parseBybitKlines converts [start, open, high, low, close, volume, turnover]
// rows into ascending, de-duplicated candles.
func parseBybitKlines(rows [][]string) ([]models.Candle, error) {
	out := make([]models.Candle, 0, len(rows))
	seen := make(map[int64]struct{}, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("bybit kline: short row %v", row)
		}
		t, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bybit kline start %q: %w", row[0], err)
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}

		var v [5]float64
		for i := range v {
			if v[i], err = strconv.ParseFloat(row[i+1], 64); err != nil {
				return nil, fmt.Errorf("bybit kline field %q: %w", row[i+1], err)
			}
		}
		out = append(out, models.Candle{T: t, O: v[0], H: v[1], L: v[2], C: v[3], V: v[4]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].T < out[j].T })
	return out, nil
}

var _ domrepo.CandleSource = (*BybitCandleSource)(nil)
