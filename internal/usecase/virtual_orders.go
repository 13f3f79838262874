package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"SmcDesk/internal/domain/models"
	domrepo "SmcDesk/internal/domain/repository"
	"SmcDesk/internal/services/orders"
	"SmcDesk/pkg/cache"
	applogger "SmcDesk/pkg/logger"
)

var (
	ErrStaleCandle   = errors.New("candle is not newer than the last processed candle")
	ErrInvalidCandle = errors.New("candle high is below its low")
	ErrEmptyPatch    = errors.New("patch must close the order or set notes")
)

type VirtualOrdersConfig struct {
	Thresholds orders.Thresholds
	LockTTL    time.Duration
}

// ProcessResult reports one closed candle applied to a partition.
type ProcessResult struct {
	Updated     int                   `json:"updated"`
	Orders      []models.VirtualOrder `json:"orders"`
	Transitions []models.Transition   `json:"transitions"`
}

type partitionState struct {
	mu          sync.Mutex
	lastCandleT int64
}

// VirtualOrdersUseCase owns the order log. Writers of one symbol+timeframe
// are serialized; a shared locker extends that across processes.
type VirtualOrdersUseCase struct {
	store     domrepo.OrderStore
	locker    cache.Service
	publisher domrepo.OrderEventPublisher
	metrics   domrepo.Metrics
	logger    *applogger.Logger
	cfg       VirtualOrdersConfig
	now       func() time.Time

	mu    sync.Mutex
	parts map[domrepo.Partition]*partitionState
}

// NewVirtualOrdersUseCase builds the use case; locker and publisher may be nil.
func NewVirtualOrdersUseCase(
	store domrepo.OrderStore,
	locker cache.Service,
	publisher domrepo.OrderEventPublisher,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	cfg VirtualOrdersConfig,
) *VirtualOrdersUseCase {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Second
	}
	return &VirtualOrdersUseCase{
		store:     store,
		locker:    locker,
		publisher: publisher,
		metrics:   metrics,
		logger:    l.With(applogger.String("component", "virtual_orders")),
		cfg:       cfg,
		now:       time.Now,
		parts:     make(map[domrepo.Partition]*partitionState),
	}
}

func (uc *VirtualOrdersUseCase) partition(p domrepo.Partition) *partitionState {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	st, ok := uc.parts[p]
	if !ok {
		st = &partitionState{}
		uc.parts[p] = st
	}
	return st
}

func (uc *VirtualOrdersUseCase) withPartition(ctx context.Context, p domrepo.Partition, fn func(st *partitionState) error) error {
	st := uc.partition(p)
	st.mu.Lock()
	defer st.mu.Unlock()
	if uc.locker == nil {
		return fn(st)
	}
	key := cache.Key("lock", "orders", p.Symbol, p.Timeframe)
	ran := false
	err := cache.WithLock(ctx, uc.locker, key, uc.cfg.LockTTL, func() error {
		ran = true
		return fn(st)
	})
	if err != nil && !ran && errors.Is(err, cache.ErrLockBackend) {
		// Shared lock store down: the partition mutex still serializes this process.
		uc.metrics.RecordStoreFallback("lock")
		uc.logger.Warn("order lock unavailable, using process lock",
			applogger.String("partition", p.String()),
			applogger.Error(err),
		)
		return fn(st)
	}
	return err
}

// List returns orders of every partition, newest first, optionally filtered by state.
func (uc *VirtualOrdersUseCase) List(ctx context.Context, state models.OrderState) ([]models.VirtualOrder, error) {
	parts, err := uc.store.Partitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list partitions: %w", err)
	}
	out := []models.VirtualOrder{}
	for _, p := range parts {
		list, err := uc.store.Load(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("load orders %s: %w", p, err)
		}
		for _, o := range list {
			if state == "" || o.State == state {
				out = append(out, o)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (uc *VirtualOrdersUseCase) thresholds(req *models.CreateOrderRequest) orders.Thresholds {
	th := uc.cfg.Thresholds
	if req.MinConfidence != nil {
		th.MinConfidence = *req.MinConfidence
	}
	if req.MinRR != nil {
		th.MinRR = *req.MinRR
	}
	if req.MinConfluenceCount != nil {
		th.MinConfluenceCount = *req.MinConfluenceCount
	}
	if req.ValidUntilCandles != nil {
		th.ValidUntilCandles = *req.ValidUntilCandles
	}
	return th
}

// Create turns a setup into a PLANNED order. Gate failures and duplicate
// zones come back as *orders.RejectError.
func (uc *VirtualOrdersUseCase) Create(ctx context.Context, req *models.CreateOrderRequest) (*models.VirtualOrder, error) {
	th := uc.thresholds(req)
	p := domrepo.Partition{Symbol: req.Symbol, Timeframe: req.Timeframe}

	var created models.VirtualOrder
	err := uc.withPartition(ctx, p, func(*partitionState) error {
		existing, err := uc.store.Load(ctx, p)
		if err != nil {
			return fmt.Errorf("load orders %s: %w", p, err)
		}
		o, err := orders.Create(existing, orders.CreateInput{
			Symbol:         req.Symbol,
			Timeframe:      req.Timeframe,
			PresetID:       req.PresetID,
			PresetVersion:  req.PresetVersion,
			ParamsResolved: req.ParamsResolved,
			EngineVersion:  req.EngineVersion,
			SnapshotID:     req.SnapshotID,
			Setup:          req.Setup,
		}, th, uc.now())
		if err != nil {
			return err
		}
		if err := uc.store.Save(ctx, p, append([]models.VirtualOrder{o}, existing...)); err != nil {
			return fmt.Errorf("save orders %s: %w", p, err)
		}
		created = o
		return nil
	})
	if err != nil {
		var rej *orders.RejectError
		if errors.As(err, &rej) {
			uc.metrics.RecordRejection(rej.Code)
			uc.logger.Info("virtual order rejected",
				applogger.String("partition", p.String()),
				applogger.String("code", rej.Code),
				applogger.String("reason", rej.Reason),
			)
		}
		return nil, err
	}

	uc.logger.Info("virtual order created",
		applogger.String("id", created.ID),
		applogger.String("partition", p.String()),
		applogger.String("side", string(created.Side)),
		applogger.String("dedupe_key", created.DedupeKey),
	)
	return &created, nil
}

func (uc *VirtualOrdersUseCase) locate(ctx context.Context, id string) (domrepo.Partition, error) {
	parts, err := uc.store.Partitions(ctx)
	if err != nil {
		return domrepo.Partition{}, fmt.Errorf("list partitions: %w", err)
	}
	for _, p := range parts {
		list, err := uc.store.Load(ctx, p)
		if err != nil {
			return domrepo.Partition{}, fmt.Errorf("load orders %s: %w", p, err)
		}
		if indexOf(list, id) >= 0 {
			return p, nil
		}
	}
	return domrepo.Partition{}, domrepo.ErrOrderNotFound
}

func indexOf(list []models.VirtualOrder, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

// Patch closes an active order by hand or replaces its notes.
func (uc *VirtualOrdersUseCase) Patch(ctx context.Context, req *models.PatchOrderRequest) (*models.VirtualOrder, error) {
	if req.State == "" && req.Notes == nil {
		return nil, ErrEmptyPatch
	}
	p, err := uc.locate(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	var (
		updated models.VirtualOrder
		trs     []models.Transition
	)
	err = uc.withPartition(ctx, p, func(st *partitionState) error {
		list, err := uc.store.Load(ctx, p)
		if err != nil {
			return fmt.Errorf("load orders %s: %w", p, err)
		}
		i := indexOf(list, req.ID)
		if i < 0 {
			return domrepo.ErrOrderNotFound
		}
		o := list[i]
		switch {
		case req.State == models.OrderClosed && o.State.Active():
			closed, tr, err := orders.CloseManually(o, orders.ManualClose{
				Reason: req.CloseReason,
				PnL:    req.PnL,
				PnLPct: req.PnLPct,
				Notes:  req.Notes,
			}, st.lastCandleT, uc.now())
			if err != nil {
				return err
			}
			o = closed
			trs = append(trs, tr)
		case req.Notes != nil:
			o.Notes = req.Notes
		default:
			return orders.ErrTerminalOrder
		}
		list[i] = o
		if err := uc.store.Save(ctx, p, list); err != nil {
			return fmt.Errorf("save orders %s: %w", p, err)
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.emit(ctx, trs)
	return &updated, nil
}

// Delete removes an order from the log regardless of its state.
func (uc *VirtualOrdersUseCase) Delete(ctx context.Context, id string) error {
	p, err := uc.locate(ctx, id)
	if err != nil {
		return err
	}
	return uc.withPartition(ctx, p, func(*partitionState) error {
		list, err := uc.store.Load(ctx, p)
		if err != nil {
			return fmt.Errorf("load orders %s: %w", p, err)
		}
		i := indexOf(list, id)
		if i < 0 {
			return domrepo.ErrOrderNotFound
		}
		list = append(list[:i], list[i+1:]...)
		if err := uc.store.Save(ctx, p, list); err != nil {
			return fmt.Errorf("save orders %s: %w", p, err)
		}
		uc.logger.Info("virtual order deleted", applogger.String("id", id), applogger.String("partition", p.String()))
		return nil
	})
}

// ProcessCandle applies one closed candle to the orders of symbol+tf.
// Candle times must strictly increase per partition.
func (uc *VirtualOrdersUseCase) ProcessCandle(ctx context.Context, symbol, tf string, c models.Candle) (*ProcessResult, error) {
	if c.H < c.L {
		return nil, ErrInvalidCandle
	}
	start := time.Now()
	p := domrepo.Partition{Symbol: symbol, Timeframe: tf}

	res := &ProcessResult{}
	err := uc.withPartition(ctx, p, func(st *partitionState) error {
		if st.lastCandleT != 0 && c.T <= st.lastCandleT {
			return fmt.Errorf("%w: %d <= %d", ErrStaleCandle, c.T, st.lastCandleT)
		}
		list, err := uc.store.Load(ctx, p)
		if err != nil {
			return fmt.Errorf("load orders %s: %w", p, err)
		}
		next, trs := orders.ProcessCandle(list, c, symbol, tf, uc.now())
		if len(trs) > 0 {
			if err := uc.store.Save(ctx, p, next); err != nil {
				return fmt.Errorf("save orders %s: %w", p, err)
			}
		}
		st.lastCandleT = c.T
		res.Updated = len(trs)
		res.Orders = next
		res.Transitions = trs
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.metrics.RecordLastClose(symbol, c.C)
	uc.metrics.RecordLatency("process_candle", time.Since(start).Seconds())
	uc.emit(ctx, res.Transitions)
	if res.Updated > 0 {
		uc.logger.Info("candle processed",
			applogger.String("partition", p.String()),
			applogger.Int64("candle_t", c.T),
			applogger.Int("updated", res.Updated),
		)
	}
	return res, nil
}

func (uc *VirtualOrdersUseCase) emit(ctx context.Context, trs []models.Transition) {
	if len(trs) == 0 {
		return
	}
	for _, t := range trs {
		uc.metrics.RecordTransition(t.From, t.To, t.Reason)
	}
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.PublishTransitions(ctx, trs); err != nil {
		uc.metrics.RecordError("order_events_publish")
		uc.logger.Warn("publish order transitions failed", applogger.Error(err), applogger.Int("count", len(trs)))
	}
}
