package matching

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"

	apperrors "tradovate-journal/internal/errors"
	"tradovate-journal/internal/models"
	"tradovate-journal/internal/performance"
	"tradovate-journal/internal/store"
	"tradovate-journal/internal/tradingday"
)

// fakeStore is an in-memory DataStore for runner tests. Fills keep
// their ingestion order, the tiebreak for equal timestamps.
type fakeStore struct {
	fills  []*models.Fill
	trades map[string]*models.Trade

	failSave bool
	saves    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		trades: make(map[string]*models.Trade),
	}
}

func (s *fakeStore) fillByID(id string) *models.Fill {
	for _, f := range s.fills {
		if f.ID == id {
			return f
		}
	}
	return nil
}

func (s *fakeStore) SaveFills(ctx context.Context, fills []*models.Fill) (store.SaveResult, error) {
	var result store.SaveResult
	for _, f := range fills {
		if s.fillByID(f.ID) != nil {
			result.Duplicates++
			continue
		}
		clone := *f
		s.fills = append(s.fills, &clone)
		result.Inserted++
	}
	return result, nil
}

func (s *fakeStore) GetFills(ctx context.Context, filter store.FillFilter) ([]*models.Fill, error) {
	return s.loadFills(filter, false), nil
}

func (s *fakeStore) LoadUnmatchedFills(ctx context.Context, filter store.FillFilter) ([]*models.Fill, error) {
	return s.loadFills(filter, true), nil
}

func (s *fakeStore) loadFills(filter store.FillFilter, unmatchedOnly bool) []*models.Fill {
	var fills []*models.Fill
	for _, f := range s.fills {
		if unmatchedOnly && f.Matched {
			continue
		}
		if filter.Account != "" && f.Account != filter.Account {
			continue
		}
		if filter.Instrument != "" && f.Instrument != filter.Instrument {
			continue
		}
		clone := *f
		fills = append(fills, &clone)
	}
	sort.SliceStable(fills, func(i, j int) bool {
		return fills[i].FillTime.Before(fills[j].FillTime)
	})
	return fills
}

func (s *fakeStore) SaveMatchResult(ctx context.Context, trades []*models.Trade, fills []*models.Fill) error {
	s.saves++
	if s.failSave {
		return apperrors.NewPersistenceError("save match result", errors.New("disk full"))
	}
	for _, t := range trades {
		clone := *t
		s.trades[t.ID] = &clone
	}
	for _, f := range fills {
		stored := s.fillByID(f.ID)
		if stored == nil {
			return apperrors.ErrFillNotFound
		}
		stored.Matched = f.Matched
		stored.MatchedQuantity = f.MatchedQuantity
		stored.TradeID = f.TradeID
	}
	return nil
}

func (s *fakeStore) GetTrades(ctx context.Context, filter store.TradeFilter) ([]*models.Trade, error) {
	var trades []*models.Trade
	for _, t := range s.trades {
		clone := *t
		trades = append(trades, &clone)
	}
	sort.Slice(trades, func(i, j int) bool { return trades[i].ExitTime.Before(trades[j].ExitTime) })
	return trades, nil
}

func (s *fakeStore) GetTradeByID(ctx context.Context, id string) (*models.Trade, error) {
	t, ok := s.trades[id]
	if !ok {
		return nil, apperrors.ErrTradeNotFound
	}
	clone := *t
	return &clone, nil
}

func (s *fakeStore) UpdateTradeType(ctx context.Context, tradeID string, tradeType models.TradeType) error {
	t, ok := s.trades[tradeID]
	if !ok {
		return apperrors.ErrTradeNotFound
	}
	t.TradeType = tradeType
	return nil
}

func (s *fakeStore) Close() error { return nil }

func testRunner(t *testing.T, st store.DataStore, pool *performance.WorkerPool) *Runner {
	t.Helper()
	classifier, err := tradingday.NewClassifier(15, time.UTC)
	if err != nil {
		t.Fatalf("failed to create classifier: %v", err)
	}
	return NewRunner(st, classifier, pool, zerolog.Nop())
}

func seedFills(t *testing.T, st *fakeStore, fills ...*models.Fill) {
	t.Helper()
	if _, err := st.SaveFills(context.Background(), fills); err != nil {
		t.Fatalf("failed to seed fills: %v", err)
	}
}

func TestRunMatchesAndPersists(t *testing.T) {
	st := newFakeStore()
	seedFills(t, st,
		makeFill(models.SideBuy, 5, 100, at(0)),
		makeFill(models.SideSell, 5, 120, at(10)),
	)

	summary, err := testRunner(t, st, nil).Run(context.Background(), store.FillFilter{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if summary.TradesCreated != 1 {
		t.Errorf("trades created = %d, want 1", summary.TradesCreated)
	}
	if summary.Groups != 1 || summary.FillsLoaded != 2 || summary.FillsConsumed != 2 {
		t.Errorf("summary = %+v", summary)
	}

	trades, _ := st.GetTrades(context.Background(), store.TradeFilter{})
	if len(trades) != 1 {
		t.Fatalf("persisted trades = %d, want 1", len(trades))
	}
}

func TestRunIsIdempotent(t *testing.T) {
	st := newFakeStore()
	seedFills(t, st,
		makeFill(models.SideBuy, 5, 100, at(0)),
		makeFill(models.SideSell, 5, 120, at(10)),
	)

	runner := testRunner(t, st, nil)
	if _, err := runner.Run(context.Background(), store.FillFilter{}); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := runner.Run(context.Background(), store.FillFilter{})
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if second.TradesCreated != 0 {
		t.Errorf("second run created %d trades, want 0", second.TradesCreated)
	}
	trades, _ := st.GetTrades(context.Background(), store.TradeFilter{})
	if len(trades) != 1 {
		t.Errorf("total trades = %d, want 1", len(trades))
	}
}

func TestRunIncrementalFlipContinuation(t *testing.T) {
	st := newFakeStore()
	buy := makeFill(models.SideBuy, 5, 100, at(0))
	flip := makeFill(models.SideSell, 10, 120, at(10))
	seedFills(t, st, buy, flip)

	runner := testRunner(t, st, nil)
	first, err := runner.Run(context.Background(), store.FillFilter{})
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if first.TradesCreated != 1 || first.OpenPositions != 1 {
		t.Fatalf("first summary = %+v", first)
	}

	// The flip's remainder is a 5-lot short. Later the cover arrives.
	seedFills(t, st, makeFill(models.SideBuy, 5, 110, at(20)))

	second, err := runner.Run(context.Background(), store.FillFilter{})
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if second.TradesCreated != 1 {
		t.Fatalf("second run trades = %d, want 1", second.TradesCreated)
	}

	trades, _ := st.GetTrades(context.Background(), store.TradeFilter{})
	if len(trades) != 2 {
		t.Fatalf("total trades = %d, want 2", len(trades))
	}
	short := trades[1]
	if short.Direction != models.DirectionShort || short.Quantity != 5 {
		t.Errorf("second trade = %s qty %d, want SHORT qty 5", short.Direction, short.Quantity)
	}
	if short.PnL != 50 {
		t.Errorf("second trade pnl = %v, want 50", short.PnL)
	}
}

func TestRunSkipsInvalidFills(t *testing.T) {
	st := newFakeStore()
	valid := makeFill(models.SideBuy, 5, 100, at(0))
	noTime := makeFill(models.SideSell, 5, 120, time.Time{})
	canceled := makeFill(models.SideSell, 5, 120, at(10))
	canceled.Status = models.StatusCanceled
	seedFills(t, st, valid, noTime, canceled)

	summary, err := testRunner(t, st, nil).Run(context.Background(), store.FillFilter{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(summary.Skipped) != 2 {
		t.Errorf("skipped = %v, want 2 entries", summary.Skipped)
	}
	// The surviving buy has no exit, so the position stays open.
	if summary.TradesCreated != 0 || summary.OpenPositions != 1 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestRunPersistFailureCommitsNothing(t *testing.T) {
	st := newFakeStore()
	seedFills(t, st,
		makeFill(models.SideBuy, 5, 100, at(0)),
		makeFill(models.SideSell, 5, 120, at(10)),
	)
	st.failSave = true

	_, err := testRunner(t, st, nil).Run(context.Background(), store.FillFilter{})
	if err == nil {
		t.Fatal("expected persistence error")
	}
	var perr *apperrors.PersistenceError
	if !errors.As(err, &perr) {
		t.Errorf("error type = %T, want PersistenceError", err)
	}

	// A retry after the failure sees the pre-run state and succeeds.
	st.failSave = false
	summary, err := testRunner(t, st, nil).Run(context.Background(), store.FillFilter{})
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if summary.TradesCreated != 1 {
		t.Errorf("retry trades = %d, want 1", summary.TradesCreated)
	}
}

func TestRunParallelGroups(t *testing.T) {
	st := newFakeStore()
	base := at(0)
	var fills []*models.Fill
	for g := 0; g < 8; g++ {
		instrument := string(rune('A' + g))
		for i := 0; i < 4; i++ {
			side := models.SideBuy
			if i%2 == 1 {
				side = models.SideSell
			}
			f := makeFill(side, 3, 100+float64(i), base.Add(time.Duration(i)*time.Minute))
			f.Instrument = instrument
			fills = append(fills, f)
		}
	}
	seedFills(t, st, fills...)

	pool := performance.NewWorkerPool(4)
	pool.Start()
	defer pool.Stop()

	summary, err := testRunner(t, st, pool).Run(context.Background(), store.FillFilter{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if summary.Groups != 8 {
		t.Errorf("groups = %d, want 8", summary.Groups)
	}
	// Each group alternates buy/sell of equal size: two trades per group.
	if summary.TradesCreated != 16 {
		t.Errorf("trades = %d, want 16", summary.TradesCreated)
	}
	if summary.OpenPositions != 0 {
		t.Errorf("open positions = %d, want 0", summary.OpenPositions)
	}
}

func TestRunFilterLimitsScope(t *testing.T) {
	st := newFakeStore()
	esBuy := makeFill(models.SideBuy, 2, 100, at(0))
	esSell := makeFill(models.SideSell, 2, 110, at(5))
	nq := makeFill(models.SideBuy, 1, 50, at(0))
	nq.Instrument = "NQZ6"
	seedFills(t, st, esBuy, esSell, nq)

	summary, err := testRunner(t, st, nil).Run(context.Background(), store.FillFilter{Instrument: "MESZ6"})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if summary.FillsLoaded != 2 || summary.TradesCreated != 1 {
		t.Errorf("summary = %+v", summary)
	}
}
