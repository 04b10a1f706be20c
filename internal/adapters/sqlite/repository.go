package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"memeCoinBot/internal/domain"
	"memeCoinBot/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements ports.PositionRepository and ports.FillRepository
// using SQLite. Positions are keyed by symbol so that peak-price state is
// replaced atomically on every write; fills are an append-only log.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/meme_bot.db" // Default path
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// WAL mode for better concurrency
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally; the Go driver benefits from a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite database ready", map[string]interface{}{"path": dbPath})

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS positions (
		symbol TEXT PRIMARY KEY,
		buy_price REAL NOT NULL,
		quantity REAL NOT NULL,
		buy_date TIMESTAMP NOT NULL,
		trade_id TEXT NOT NULL DEFAULT '',
		current_price REAL NOT NULL DEFAULT 0,
		last_update TIMESTAMP DEFAULT NULL,
		peak_price REAL NOT NULL,
		peak_performance_pct REAL NOT NULL DEFAULT 0,
		trailing_stop_triggered INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS fills (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity REAL NOT NULL,
		price REAL NOT NULL,
		timestamp TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_fills_timestamp ON fills (timestamp);
	CREATE INDEX IF NOT EXISTS idx_fills_symbol_timestamp ON fills (symbol, timestamp);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// --- PositionRepository Implementation ---

// Save inserts or replaces the position for its symbol.
func (r *Repository) Save(ctx context.Context, pos *domain.Position) error {
	const query = `
	INSERT OR REPLACE INTO positions
		(symbol, buy_price, quantity, buy_date, trade_id, current_price, last_update,
		 peak_price, peak_performance_pct, trailing_stop_triggered)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var lastUpdate sql.NullTime
	if !pos.LastUpdate.IsZero() {
		lastUpdate = sql.NullTime{Time: pos.LastUpdate, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		pos.Symbol, pos.BuyPrice, pos.Quantity, pos.BuyDate, pos.TradeID,
		pos.CurrentPrice, lastUpdate, pos.PeakPrice, pos.PeakPerformancePct,
		boolToInt(pos.TrailingStopTriggered))
	if err != nil {
		return fmt.Errorf("failed to save position for symbol %s: %w", pos.Symbol, err)
	}
	r.logger.Debug(ctx, "Position saved", map[string]interface{}{"symbol": pos.Symbol, "peakPrice": pos.PeakPrice})
	return nil
}

// Delete removes the position for a symbol. Deleting a symbol with no stored
// position is not an error.
func (r *Repository) Delete(ctx context.Context, symbol string) error {
	const query = `DELETE FROM positions WHERE symbol = ?`
	if _, err := r.db.ExecContext(ctx, query, symbol); err != nil {
		return fmt.Errorf("failed to delete position for symbol %s: %w", symbol, err)
	}
	r.logger.Debug(ctx, "Position deleted", map[string]interface{}{"symbol": symbol})
	return nil
}

// FindBySymbol retrieves the stored position for a symbol, or nil, nil.
func (r *Repository) FindBySymbol(ctx context.Context, symbol string) (*domain.Position, error) {
	const query = `
	SELECT symbol, buy_price, quantity, buy_date, trade_id, current_price, last_update,
	       peak_price, peak_performance_pct, trailing_stop_triggered
	FROM positions
	WHERE symbol = ?`

	row := r.db.QueryRowContext(ctx, query, symbol)
	pos, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query position for symbol %s: %w", symbol, err)
	}
	return pos, nil
}

// FindAll retrieves every stored position, ordered by symbol.
func (r *Repository) FindAll(ctx context.Context) ([]*domain.Position, error) {
	const query = `
	SELECT symbol, buy_price, quantity, buy_date, trade_id, current_price, last_update,
	       peak_price, peak_performance_pct, trailing_stop_triggered
	FROM positions
	ORDER BY symbol`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query all positions: %w", err)
	}
	defer rows.Close()

	positions := make([]*domain.Position, 0)
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position during FindAll: %w", err)
		}
		positions = append(positions, pos)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating position rows: %w", err)
	}
	return positions, nil
}

// --- FillRepository Implementation ---

// Fills returns the fill-log view of the repository. Repository itself
// satisfies ports.PositionRepository; the view resolves the FindAll name
// clash between the two port interfaces.
func (r *Repository) Fills() ports.FillRepository {
	return fillView{r}
}

type fillView struct {
	*Repository
}

func (v fillView) FindAll(ctx context.Context) ([]*domain.Fill, error) {
	return v.FindAllFills(ctx)
}

// Append records a fill and returns its assigned ID.
func (r *Repository) Append(ctx context.Context, fill *domain.Fill) (int64, error) {
	const query = `
	INSERT INTO fills (symbol, side, quantity, price, timestamp)
	VALUES (?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		fill.Symbol, string(fill.Side), fill.Quantity, fill.Price, fill.Timestamp)
	if err != nil {
		return 0, fmt.Errorf("failed to insert fill for symbol %s: %w", fill.Symbol, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for fill %s: %w", fill.Symbol, err)
	}
	fill.ID = id
	r.logger.Debug(ctx, "Fill recorded", map[string]interface{}{"fillID": id, "symbol": fill.Symbol, "side": fill.Side})
	return id, nil
}

// FindByDay retrieves the fills whose timestamp falls on the given calendar
// day (in the day's location), ordered oldest first. Day bounds are computed
// in Go to avoid depending on the SQLite build's timezone handling.
func (r *Repository) FindByDay(ctx context.Context, day time.Time) ([]*domain.Fill, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	const query = `
	SELECT id, symbol, side, quantity, price, timestamp
	FROM fills
	WHERE timestamp >= ? AND timestamp < ?
	ORDER BY timestamp, id`

	rows, err := r.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query fills for day %s: %w", start.Format("2006-01-02"), err)
	}
	defer rows.Close()
	return collectFills(rows)
}

// FindAll retrieves every fill, ordered oldest first.
func (r *Repository) FindAllFills(ctx context.Context) ([]*domain.Fill, error) {
	const query = `
	SELECT id, symbol, side, quantity, price, timestamp
	FROM fills
	ORDER BY timestamp, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query all fills: %w", err)
	}
	defer rows.Close()
	return collectFills(rows)
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPosition(s scanner) (*domain.Position, error) {
	p := &domain.Position{}
	var lastUpdate sql.NullTime
	var triggered int
	err := s.Scan(
		&p.Symbol, &p.BuyPrice, &p.Quantity, &p.BuyDate, &p.TradeID,
		&p.CurrentPrice, &lastUpdate, &p.PeakPrice, &p.PeakPerformancePct, &triggered)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	if lastUpdate.Valid {
		p.LastUpdate = lastUpdate.Time
	}
	p.TrailingStopTriggered = triggered != 0
	return p, nil
}

func scanFill(s scanner) (*domain.Fill, error) {
	f := &domain.Fill{}
	var side string
	err := s.Scan(&f.ID, &f.Symbol, &side, &f.Quantity, &f.Price, &f.Timestamp)
	if err != nil {
		return nil, err
	}
	f.Side = domain.OrderSide(side)
	return f, nil
}

func collectFills(rows *sql.Rows) ([]*domain.Fill, error) {
	fills := make([]*domain.Fill, 0)
	for rows.Next() {
		f, err := scanFill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fill: %w", err)
		}
		fills = append(fills, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fill rows: %w", err)
	}
	return fills, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
