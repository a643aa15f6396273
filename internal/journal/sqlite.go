package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder appends entries to a trades table. The table is created if missing and never dropped.
type SQLiteRecorder struct {
	db *sql.DB
}

// NewSQLiteRecorder opens the database file and prepares the schema.
func NewSQLiteRecorder(path string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	// concurrent pair tasks record through one connection
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	const schema = `
		CREATE TABLE IF NOT EXISTS trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts INTEGER NOT NULL,
			symbol1 TEXT NOT NULL,
			symbol2 TEXT NOT NULL,
			action TEXT NOT NULL,
			spread REAL NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create trades: %w", err)
	}
	return &SQLiteRecorder{db: db}, nil
}

// Record inserts one row.
func (r *SQLiteRecorder) Record(e Entry) error {
	_, err := r.db.Exec(
		"INSERT INTO trades (ts, symbol1, symbol2, action, spread) VALUES (?, ?, ?, ?, ?)",
		e.Ts.Unix(), e.Symbol1, e.Symbol2, string(e.Action), e.Spread,
	)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// Entries returns every recorded row in insertion order.
func (r *SQLiteRecorder) Entries() ([]Entry, error) {
	rows, err := r.db.Query("SELECT ts, symbol1, symbol2, action, spread FROM trades ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			ts     int64
			e      Entry
			action string
		)
		if err := rows.Scan(&ts, &e.Symbol1, &e.Symbol2, &action, &e.Spread); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		e.Ts = time.Unix(ts, 0).UTC()
		e.Action = Action(action)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database.
func (r *SQLiteRecorder) Close() error { return r.db.Close() }
