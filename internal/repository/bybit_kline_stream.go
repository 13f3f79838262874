package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"SmcDesk/internal/domain/models"
	domrepo "SmcDesk/internal/domain/repository"
	applogger "SmcDesk/pkg/logger"
)

// BybitKlineStream implements KlineStream over the Bybit v5 public WebSocket.
type BybitKlineStream struct {
	url            string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	l              *applogger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	symbols   []string
	tf        domrepo.Timeframe
}

func NewBybitKlineStream(url string, reconnectDelay, pingInterval time.Duration, l *applogger.Logger) *BybitKlineStream {
	if l == nil {
		l = applogger.NewNop()
	}
	return &BybitKlineStream{
		url:            url,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		l:              l.With(applogger.String("component", "bybit_ws")),
	}
}

func (s *BybitKlineStream) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("bybit connect: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()
	s.l.Info("bybit ws connected", applogger.String("url", s.url))
	return nil
}

// Subscribe sends one subscribe op with a kline.{interval}.{symbol} topic per symbol.
func (s *BybitKlineStream) Subscribe(_ context.Context, symbols []string, tf domrepo.Timeframe) error {
	topics := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		topics = append(topics, klineTopic(tf, sym))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil || !s.connected {
		return fmt.Errorf("bybit ws not connected")
	}
	if err := s.conn.WriteJSON(map[string]any{"op": "subscribe", "args": topics}); err != nil {
		return fmt.Errorf("bybit subscribe: %w", err)
	}
	s.symbols, s.tf = symbols, tf
	s.l.Info("bybit ws subscribed", applogger.Strings("topics", topics))
	return nil
}

func klineTopic(tf domrepo.Timeframe, symbol string) string {
	return "kline." + tf.BybitInterval() + "." + symbol
}

type bybitKline struct {
	Start   int64  `json:"start"`
	Open    string `json:"open"`
	High    string `json:"high"`
	Low     string `json:"low"`
	Close   string `json:"close"`
	Volume  string `json:"volume"`
	Confirm bool   `json:"confirm"`
}

type bybitFrame struct {
	Op      string       `json:"op"`
	Success bool         `json:"success"`
	Topic   string       `json:"topic"`
	Data    []bybitKline `json:"data"`
}

// Read streams kline updates until ctx is done or the connection fails.
func (s *BybitKlineStream) Read(ctx context.Context) (<-chan domrepo.KlineUpdate, <-chan error) {
	updates := make(chan domrepo.KlineUpdate, 256)
	errs := make(chan error, 1)

	pingCtx, stopPing := context.WithCancel(ctx)
	go s.pingLoop(pingCtx)

	go func() {
		defer close(updates)
		defer close(errs)
		defer stopPing()
		for {
			if ctx.Err() != nil {
				return
			}
			s.mu.Lock()
			conn := s.conn
			s.mu.Unlock()
			if conn == nil {
				errs <- fmt.Errorf("bybit ws conn nil")
				return
			}
			_, b, err := conn.ReadMessage()
			if err != nil {
				errs <- fmt.Errorf("bybit read: %w", err)
				return
			}
			for _, u := range decodeKlineFrame(b) {
				select {
				case updates <- u:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return updates, errs
}

func (s *BybitKlineStream) pingLoop(ctx context.Context) {
	if s.pingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.conn != nil {
				_ = s.conn.WriteJSON(map[string]string{"op": "ping"})
			}
			s.mu.Unlock()
		}
	}
}

// decodeKlineFrame ignores op acks, pongs and malformed frames.
func decodeKlineFrame(b []byte) []domrepo.KlineUpdate {
	var f bybitFrame
	if err := json.Unmarshal(b, &f); err != nil || !strings.HasPrefix(f.Topic, "kline.") {
		return nil
	}
	parts := strings.Split(f.Topic, ".")
	if len(parts) != 3 {
		return nil
	}
	tf, ok := domrepo.TimeframeFromBybit(parts[1])
	if !ok {
		return nil
	}

	out := make([]domrepo.KlineUpdate, 0, len(f.Data))
	for _, k := range f.Data {
		c, err := k.candle()
		if err != nil {
			continue
		}
		out = append(out, domrepo.KlineUpdate{Symbol: parts[2], Timeframe: tf, Candle: c, Confirmed: k.Confirm})
	}
	return out
}

func (k bybitKline) candle() (models.Candle, error) {
	var v [5]float64
	for i, raw := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return models.Candle{}, err
		}
		v[i] = f
	}
	return models.Candle{T: k.Start, O: v[0], H: v[1], L: v[2], C: v[3], V: v[4]}, nil
}

// Reconnect closes the socket, waits reconnectDelay and restores the last subscription.
func (s *BybitKlineStream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.reconnectDelay):
	}
	if err := s.Connect(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	symbols, tf := s.symbols, s.tf
	s.mu.Unlock()
	if len(symbols) == 0 {
		return nil
	}
	return s.Subscribe(ctx, symbols, tf)
}

func (s *BybitKlineStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

func (s *BybitKlineStream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

var _ domrepo.KlineStream = (*BybitKlineStream)(nil)
