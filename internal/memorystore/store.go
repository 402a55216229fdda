package memorystore

import (
	"context"
	"errors"
	"sync"
	"time"

	"pricebackfill/internal/model"

	"github.com/shopspring/decimal"
)

var ErrClosed = errors.New("memory session closed")

type candleKey struct {
	unixNano int64
	price    string
}

type swapKey struct {
	txHash   string
	logIndex uint
}

func keyOfCandle(ts time.Time, price decimal.Decimal) candleKey {
	// String of a normalized decimal so 4391.50 and 4391.5 collide like numeric does.
	return candleKey{unixNano: ts.UnixNano(), price: price.String()}
}

// MemoryStore keeps committed rows for the life of the process. It backs dry
// runs and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	candles     []model.CandleTrade
	swaps       []model.SwapEvent
	candleIndex map[candleKey]struct{}
	swapIndex   map[swapKey]struct{}
	nextID      uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		candles:     make([]model.CandleTrade, 0),
		swaps:       make([]model.SwapEvent, 0),
		candleIndex: make(map[candleKey]struct{}),
		swapIndex:   make(map[swapKey]struct{}),
	}
}

// NewSession opens a unit of work over the store.
func (s *MemoryStore) NewSession() *Session {
	return &Session{store: s}
}

func (s *MemoryStore) CandleTrades() []model.CandleTrade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make([]model.CandleTrade, len(s.candles))
	copy(cp, s.candles)
	return cp
}

func (s *MemoryStore) SwapEvents() []model.SwapEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make([]model.SwapEvent, len(s.swaps))
	copy(cp, s.swaps)
	return cp
}

func (s *MemoryStore) hasCandle(k candleKey) bool {
	_, ok := s.candleIndex[k]
	return ok
}

func (s *MemoryStore) hasSwap(k swapKey) bool {
	_, ok := s.swapIndex[k]
	return ok
}

// Session buffers writes until Commit, mirroring a database transaction.
type Session struct {
	store *MemoryStore

	mu       sync.Mutex
	candles  []model.CandleTrade
	swaps    []model.SwapEvent
	pendingC map[candleKey]struct{}
	pendingS map[swapKey]struct{}
	closed   bool

	// Commits and Rollbacks count calls, for assertions on commit cadence.
	Commits   int
	Rollbacks int
}

func (s *Session) CandleTradeExists(ctx context.Context, ts time.Time, price decimal.Decimal) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	k := keyOfCandle(ts, price)
	if _, ok := s.pendingC[k]; ok {
		return true, nil
	}
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	return s.store.hasCandle(k), nil
}

func (s *Session) CreateCandleTrade(ctx context.Context, row *model.CandleTrade) (bool, error) {
	exists, err := s.CandleTradeExists(ctx, row.Timestamp, row.Price)
	if err != nil || exists {
		return false, err
	}
	s.mu.Lock()
	if s.pendingC == nil {
		s.pendingC = make(map[candleKey]struct{})
	}
	s.pendingC[keyOfCandle(row.Timestamp, row.Price)] = struct{}{}
	s.candles = append(s.candles, *row)
	s.mu.Unlock()
	return true, nil
}

func (s *Session) CountCandleTrades(ctx context.Context) (int64, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrClosed
	}
	pending := len(s.candles)
	s.mu.Unlock()

	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	return int64(pending + len(s.store.candles)), nil
}

func (s *Session) SwapEventExists(ctx context.Context, txHash string, logIndex uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	k := swapKey{txHash, logIndex}
	if _, ok := s.pendingS[k]; ok {
		return true, nil
	}
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	return s.store.hasSwap(k), nil
}

func (s *Session) CreateSwapEvent(ctx context.Context, row *model.SwapEvent) (bool, error) {
	exists, err := s.SwapEventExists(ctx, row.TransactionHash, row.LogIndex)
	if err != nil || exists {
		return false, err
	}
	s.mu.Lock()
	if s.pendingS == nil {
		s.pendingS = make(map[swapKey]struct{})
	}
	s.pendingS[swapKey{row.TransactionHash, row.LogIndex}] = struct{}{}
	s.swaps = append(s.swaps, *row)
	s.mu.Unlock()
	return true, nil
}

func (s *Session) CountSwapEvents(ctx context.Context) (int64, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrClosed
	}
	pending := len(s.swaps)
	s.mu.Unlock()

	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	return int64(pending + len(s.store.swaps)), nil
}

func (s *Session) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	s.store.mu.Lock()
	now := time.Now().UTC()
	for _, c := range s.candles {
		s.store.nextID++
		c.ID, c.RecordedAt = s.store.nextID, now
		s.store.candles = append(s.store.candles, c)
		s.store.candleIndex[keyOfCandle(c.Timestamp, c.Price)] = struct{}{}
	}
	for _, e := range s.swaps {
		s.store.nextID++
		e.ID, e.RecordedAt = s.store.nextID, now
		s.store.swaps = append(s.store.swaps, e)
		s.store.swapIndex[swapKey{e.TransactionHash, e.LogIndex}] = struct{}{}
	}
	s.store.mu.Unlock()

	s.reset()
	s.Commits++
	return nil
}

func (s *Session) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	s.Rollbacks++
	return nil
}

// Close discards uncommitted writes. Further use fails with ErrClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	s.closed = true
	return nil
}

func (s *Session) reset() {
	s.candles, s.swaps = nil, nil
	s.pendingC, s.pendingS = nil, nil
}
