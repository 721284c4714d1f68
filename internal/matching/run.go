package matching

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "tradovate-journal/internal/errors"
	"tradovate-journal/internal/logging"
	"tradovate-journal/internal/models"
	"tradovate-journal/internal/performance"
	"tradovate-journal/internal/store"
	"tradovate-journal/internal/tradingday"
)

// Runner executes matching runs: it loads unmatched fills, matches each
// (account, instrument) group independently, and commits all trades and
// fill updates in a single transaction.
type Runner struct {
	store      store.DataStore
	classifier *tradingday.Classifier
	pool       *performance.WorkerPool
	logger     zerolog.Logger
}

// NewRunner creates a matching runner. The pool may be nil, in which case
// groups are matched sequentially.
func NewRunner(st store.DataStore, classifier *tradingday.Classifier, pool *performance.WorkerPool, logger zerolog.Logger) *Runner {
	return &Runner{
		store:      st,
		classifier: classifier,
		pool:       pool,
		logger:     logger,
	}
}

// Summary reports the outcome of one matching run.
type Summary struct {
	Groups        int
	FillsLoaded   int
	FillsConsumed int
	TradesCreated int
	OpenPositions int
	// Skipped lists fills excluded from matching with the reason, one
	// entry per fill.
	Skipped []string
}

// Run executes one matching run over fills matching the filter. Invalid
// fills are skipped and reported in the summary; a persistence failure
// aborts the run with nothing committed.
//
// Runs are incremental: fills already consumed stay consumed, and a fill
// partially consumed by a position flip is replayed with its remaining
// quantity.
func (r *Runner) Run(ctx context.Context, filter store.FillFilter) (*Summary, error) {
	start := time.Now()

	fills, err := r.store.LoadUnmatchedFills(ctx, filter)
	if err != nil {
		return nil, apperrors.NewPersistenceError("load unmatched fills", err)
	}

	summary := &Summary{FillsLoaded: len(fills)}

	groups := make(map[models.GroupKey][]*models.Fill)
	for _, f := range fills {
		if reason := validateFill(f); reason != "" {
			summary.Skipped = append(summary.Skipped, fmt.Sprintf("%s: %s", f.ID, reason))
			logging.LogFillSkipped(r.logger, f.ID, reason)
			continue
		}
		key := f.GroupKey()
		groups[key] = append(groups[key], f)
	}
	summary.Groups = len(groups)

	// Deterministic group order for logs and collected output.
	keys := make([]models.GroupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	results := make([]GroupResult, len(keys))
	r.matchGroups(keys, groups, results)

	var (
		allTrades []*models.Trade
		allFills  []*models.Fill
	)
	for i, res := range results {
		allTrades = append(allTrades, res.Trades...)
		allFills = append(allFills, res.Consumed...)
		if res.OpenQuantity != 0 {
			summary.OpenPositions++
			r.logger.Debug().
				Str("group", keys[i].String()).
				Int("open_quantity", res.OpenQuantity).
				Msg("Position still open after matching")
		}
		for _, t := range res.Trades {
			logging.LogTradeClosed(r.logger, t.ID, t.Instrument, string(t.Direction), t.Quantity, t.PnL)
		}
	}
	summary.TradesCreated = len(allTrades)
	summary.FillsConsumed = len(allFills)

	if len(allTrades) > 0 || len(allFills) > 0 {
		if err := r.store.SaveMatchResult(ctx, allTrades, allFills); err != nil {
			return nil, err
		}
	}

	logging.LogMatchRun(r.logger, summary.Groups, summary.FillsLoaded, summary.TradesCreated, summary.OpenPositions, time.Since(start))
	return summary, nil
}

// matchGroups matches every group, in parallel when a pool is available.
// Groups share no state, so only the results slice needs coordination and
// each task writes its own index.
func (r *Runner) matchGroups(keys []models.GroupKey, groups map[models.GroupKey][]*models.Fill, results []GroupResult) {
	assembler := NewAssembler(r.classifier)

	if r.pool == nil {
		engine := NewEngine(assembler)
		for i, k := range keys {
			results[i] = engine.MatchGroup(groups[k])
		}
		return
	}

	var wg sync.WaitGroup
	for i, k := range keys {
		i, k := i, k
		wg.Add(1)
		task := func() {
			defer wg.Done()
			engine := NewEngine(assembler)
			results[i] = engine.MatchGroup(groups[k])
		}
		if !r.pool.Submit(task) {
			// Pool saturated or stopped, run inline.
			task()
		}
	}
	wg.Wait()
}

// validateFill returns a skip reason, or "" when the fill is matchable.
func validateFill(f *models.Fill) string {
	if f.FillTime.IsZero() {
		return apperrors.ErrMissingTimestamp.Error()
	}
	if _, ok := models.ParseSide(string(f.Side)); !ok {
		return apperrors.ErrUnknownSide.Error()
	}
	if f.Quantity <= 0 {
		return apperrors.ErrInvalidQuantity.Error()
	}
	if f.Status != "" && !f.IsFilled() {
		return fmt.Sprintf("status %s is not filled", f.Status)
	}
	return ""
}
