package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "tradovate-journal/internal/errors"
	"tradovate-journal/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Fills table for individual broker executions. The primary key is a
	-- content hash so re-importing the same export is a no-op.
	CREATE TABLE IF NOT EXISTS fills (
		id TEXT PRIMARY KEY,
		order_id TEXT,
		account TEXT NOT NULL,
		instrument TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		price REAL NOT NULL,
		fill_time DATETIME,
		status TEXT,
		matched INTEGER DEFAULT 0,
		matched_quantity INTEGER DEFAULT 0,
		trade_id TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_fills_group ON fills(account, instrument);
	CREATE INDEX IF NOT EXISTS idx_fills_matched ON fills(matched);
	CREATE INDEX IF NOT EXISTS idx_fills_time ON fills(fill_time);

	-- Trades table for closed round-trip positions
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		account TEXT NOT NULL,
		instrument TEXT NOT NULL,
		direction TEXT NOT NULL,
		entry_time DATETIME NOT NULL,
		exit_time DATETIME NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL NOT NULL,
		quantity INTEGER NOT NULL,
		pnl REAL NOT NULL,
		is_scaled INTEGER DEFAULT 0,
		trade_type TEXT,
		fill_ids TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_trades_exit ON trades(exit_time);
	CREATE INDEX IF NOT EXISTS idx_trades_group ON trades(account, instrument);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveFills inserts fills, skipping any whose content-derived ID is
// already present. Re-importing the same export reports every row as a
// duplicate and changes nothing.
func (s *SQLiteStore) SaveFills(ctx context.Context, fills []*models.Fill) (SaveResult, error) {
	var result SaveResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO fills (id, order_id, account, instrument, side, quantity, price, fill_time, status, matched, matched_quantity, trade_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, '')
	`)
	if err != nil {
		return result, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range fills {
		res, err := stmt.ExecContext(ctx, f.ID, f.OrderID, f.Account, f.Instrument, string(f.Side), f.Quantity, f.Price, nullableTime(f.FillTime), f.Status)
		if err != nil {
			return result, fmt.Errorf("failed to insert fill %s: %w", f.ID, err)
		}
		affected, _ := res.RowsAffected()
		if affected > 0 {
			result.Inserted++
		} else {
			result.Duplicates++
		}
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("failed to commit fills: %w", err)
	}
	return result, nil
}

// GetFills returns all fills matching the filter in chronological order.
func (s *SQLiteStore) GetFills(ctx context.Context, filter FillFilter) ([]*models.Fill, error) {
	return s.queryFills(ctx, filter, false)
}

// LoadUnmatchedFills returns fills not yet fully consumed by a trade, in
// chronological order. Partially consumed flip fills are included; their
// matched_quantity tells the engine how much remains.
func (s *SQLiteStore) LoadUnmatchedFills(ctx context.Context, filter FillFilter) ([]*models.Fill, error) {
	return s.queryFills(ctx, filter, true)
}

func (s *SQLiteStore) queryFills(ctx context.Context, filter FillFilter, unmatchedOnly bool) ([]*models.Fill, error) {
	query := "SELECT id, order_id, account, instrument, side, quantity, price, fill_time, status, matched, matched_quantity, trade_id FROM fills WHERE 1=1"
	args := []interface{}{}

	if unmatchedOnly {
		query += " AND matched = 0"
	}
	if filter.Account != "" {
		query += " AND account = ?"
		args = append(args, filter.Account)
	}
	if filter.Instrument != "" {
		query += " AND instrument = ?"
		args = append(args, filter.Instrument)
	}

	// rowid preserves ingestion order, the tiebreak for equal timestamps.
	query += " ORDER BY fill_time ASC, rowid ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query fills: %w", err)
	}
	defer rows.Close()

	var fills []*models.Fill
	for rows.Next() {
		f := &models.Fill{}
		var side string
		var fillTime sql.NullTime
		var matched int

		if err := rows.Scan(&f.ID, &f.OrderID, &f.Account, &f.Instrument, &side, &f.Quantity, &f.Price, &fillTime, &f.Status, &matched, &f.MatchedQuantity, &f.TradeID); err != nil {
			return nil, fmt.Errorf("failed to scan fill: %w", err)
		}

		f.Side = models.Side(side)
		if fillTime.Valid {
			f.FillTime = fillTime.Time
		}
		f.Matched = matched == 1
		fills = append(fills, f)
	}

	return fills, rows.Err()
}

// SaveMatchResult persists a matching run's trades and the matched-state
// updates of their fills in one transaction. On any failure nothing is
// committed, so a re-run sees the pre-run state.
func (s *SQLiteStore) SaveMatchResult(ctx context.Context, trades []*models.Trade, fills []*models.Fill) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewPersistenceError("begin match result", err)
	}
	defer tx.Rollback()

	tradeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trades (id, account, instrument, direction, entry_time, exit_time, entry_price, exit_price, quantity, pnl, is_scaled, trade_type, fill_ids)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return apperrors.NewPersistenceError("prepare trade insert", err)
	}
	defer tradeStmt.Close()

	for _, t := range trades {
		fillIDs, _ := json.Marshal(t.FillIDs)
		isScaled := 0
		if t.IsScaled {
			isScaled = 1
		}

		if _, err := tradeStmt.ExecContext(ctx, t.ID, t.Account, t.Instrument, string(t.Direction), t.EntryTime, t.ExitTime, t.EntryPrice, t.ExitPrice, t.Quantity, t.PnL, isScaled, string(t.TradeType), string(fillIDs)); err != nil {
			return apperrors.NewPersistenceError("insert trade", err)
		}
	}

	fillStmt, err := tx.PrepareContext(ctx, `
		UPDATE fills SET matched = ?, matched_quantity = ?, trade_id = ? WHERE id = ?
	`)
	if err != nil {
		return apperrors.NewPersistenceError("prepare fill update", err)
	}
	defer fillStmt.Close()

	for _, f := range fills {
		matched := 0
		if f.Matched {
			matched = 1
		}
		if _, err := fillStmt.ExecContext(ctx, matched, f.MatchedQuantity, f.TradeID, f.ID); err != nil {
			return apperrors.NewPersistenceError("update fill", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewPersistenceError("commit match result", err)
	}
	return nil
}

// GetTrades returns trades matching the filter, most recent exit first.
func (s *SQLiteStore) GetTrades(ctx context.Context, filter TradeFilter) ([]*models.Trade, error) {
	query := "SELECT id, account, instrument, direction, entry_time, exit_time, entry_price, exit_price, quantity, pnl, is_scaled, trade_type, fill_ids FROM trades WHERE 1=1"
	args := []interface{}{}

	if filter.Account != "" {
		query += " AND account = ?"
		args = append(args, filter.Account)
	}
	if filter.Instrument != "" {
		query += " AND instrument = ?"
		args = append(args, filter.Instrument)
	}
	if filter.TradeType != "" {
		query += " AND trade_type = ?"
		args = append(args, string(filter.TradeType))
	}
	if !filter.Start.IsZero() {
		query += " AND exit_time >= ?"
		args = append(args, filter.Start)
	}
	if !filter.End.IsZero() {
		query += " AND exit_time <= ?"
		args = append(args, filter.End)
	}

	query += " ORDER BY exit_time DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []*models.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}

	return trades, rows.Err()
}

// GetTradeByID returns one trade or ErrTradeNotFound.
func (s *SQLiteStore) GetTradeByID(ctx context.Context, id string) (*models.Trade, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, account, instrument, direction, entry_time, exit_time, entry_price, exit_price, quantity, pnl, is_scaled, trade_type, fill_ids
		FROM trades WHERE id = ?
	`, id)

	t, err := scanTrade(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrTradeNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateTradeType overrides a trade's type classification.
func (s *SQLiteStore) UpdateTradeType(ctx context.Context, tradeID string, tradeType models.TradeType) error {
	if !models.ValidTradeType(tradeType) {
		return apperrors.ErrInvalidTradeType
	}

	res, err := s.db.ExecContext(ctx, "UPDATE trades SET trade_type = ? WHERE id = ?", string(tradeType), tradeID)
	if err != nil {
		return fmt.Errorf("failed to update trade type: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrTradeNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(row rowScanner) (*models.Trade, error) {
	t := &models.Trade{}
	var direction, tradeType, fillIDsJSON string
	var isScaled int

	if err := row.Scan(&t.ID, &t.Account, &t.Instrument, &direction, &t.EntryTime, &t.ExitTime, &t.EntryPrice, &t.ExitPrice, &t.Quantity, &t.PnL, &isScaled, &tradeType, &fillIDsJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan trade: %w", err)
	}

	t.Direction = models.Direction(direction)
	t.TradeType = models.TradeType(tradeType)
	t.IsScaled = isScaled == 1
	json.Unmarshal([]byte(fillIDsJSON), &t.FillIDs)
	return t, nil
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
