package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the long-term memory: agent notes, closed-trade outcomes and the
// account peak balance, persisted in sqlite.
type Store struct {
	db *sql.DB
}

// MemoryRecord is one persisted agent note.
type MemoryRecord struct {
	RowID     int64
	Agent     string
	Symbol    string
	Content   string
	CreatedAt string
}

// TradeRecord is the persisted outcome of one executed order.
type TradeRecord struct {
	RowID     int64
	RunID     string
	Symbol    string
	Side      string
	Volume    float64
	FillPrice float64
	Ticket    int64
	Paper     bool
	CreatedAt string
}

// Open opens or creates the database, applies the pragmas and initializes the
// schema.
func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=3000;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p, err)
		}
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS agent_memories (
    agent TEXT NOT NULL,
    symbol TEXT,
    content TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_memories_agent_created ON agent_memories(agent, created_at);

CREATE TABLE IF NOT EXISTS trades (
    run_id TEXT NOT NULL,
    symbol TEXT NOT NULL,
    side TEXT NOT NULL,
    volume REAL NOT NULL,
    fill_price REAL NOT NULL,
    ticket INTEGER NOT NULL,
    paper INTEGER NOT NULL DEFAULT 1,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_trades_symbol_created ON trades(symbol, created_at);

CREATE TABLE IF NOT EXISTS account_peaks (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    peak_balance REAL NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// SaveMemory persists one agent note.
func (s *Store) SaveMemory(ctx context.Context, agent, symbol, content string) error {
	if strings.TrimSpace(agent) == "" {
		return fmt.Errorf("agent is required")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO agent_memories (agent, symbol, content)
VALUES (?, ?, ?)
`, agent, symbol, content)
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	return nil
}

// RecentMemories returns up to limit notes for one agent, newest first.
func (s *Store) RecentMemories(ctx context.Context, agent string, limit int) ([]MemoryRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT rowid, agent, symbol, content, created_at
FROM agent_memories
WHERE agent = ?
ORDER BY rowid DESC
LIMIT ?
`, agent, limit)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	defer rows.Close()

	var recs []MemoryRecord
	for rows.Next() {
		var rec MemoryRecord
		if err := rows.Scan(&rec.RowID, &rec.Agent, &rec.Symbol, &rec.Content, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list memories rows: %w", err)
	}
	return recs, nil
}

// SaveTrade persists one executed order outcome.
func (s *Store) SaveTrade(ctx context.Context, rec TradeRecord) error {
	if strings.TrimSpace(rec.Symbol) == "" {
		return fmt.Errorf("trade symbol is required")
	}
	paper := 0
	if rec.Paper {
		paper = 1
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO trades (run_id, symbol, side, volume, fill_price, ticket, paper)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, rec.RunID, rec.Symbol, rec.Side, rec.Volume, rec.FillPrice, rec.Ticket, paper)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// RecentTrades returns up to limit trades, newest first, optionally filtered
// by symbol.
func (s *Store) RecentTrades(ctx context.Context, symbol string, limit int) ([]TradeRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT rowid, run_id, symbol, side, volume, fill_price, ticket, paper, created_at
FROM trades
WHERE (? = '' OR symbol = ?)
ORDER BY rowid DESC
LIMIT ?
`, symbol, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	defer rows.Close()

	var recs []TradeRecord
	for rows.Next() {
		var rec TradeRecord
		var paper int
		if err := rows.Scan(&rec.RowID, &rec.RunID, &rec.Symbol, &rec.Side, &rec.Volume, &rec.FillPrice, &rec.Ticket, &paper, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		rec.Paper = paper != 0
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list trades rows: %w", err)
	}
	return recs, nil
}

// PeakBalance returns the stored peak, or (0, false) when none has been
// recorded yet. The drawdown check treats a missing peak as a pass.
func (s *Store) PeakBalance(ctx context.Context) (float64, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT peak_balance FROM account_peaks WHERE id = 1`)
	var peak float64
	if err := row.Scan(&peak); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get peak balance: %w", err)
	}
	return peak, true, nil
}

// UpdatePeakBalance raises the stored peak to balance when balance exceeds it.
// Never lowers it.
func (s *Store) UpdatePeakBalance(ctx context.Context, balance float64) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO account_peaks (id, peak_balance)
VALUES (1, ?)
ON CONFLICT(id) DO UPDATE SET
    peak_balance = MAX(peak_balance, excluded.peak_balance),
    updated_at = CURRENT_TIMESTAMP
`, balance)
	if err != nil {
		return fmt.Errorf("update peak balance: %w", err)
	}
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}
