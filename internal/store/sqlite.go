package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	_ "modernc.org/sqlite"

	"StockSentry/internal/model"
)

// SQLiteStore persists strategies and alert history to a SQLite
// database.
type SQLiteStore struct {
	db         *sql.DB
	mu         sync.Mutex
	historyCap int
	onChange   func()
}

// NewSQLiteStore opens (or creates) the database and runs migrations.
// onChange may be nil; it is invoked on every non-silent save.
func NewSQLiteStore(dbPath string, historyCap int, onChange func()) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboard reads don't block engine writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if historyCap <= 0 {
		historyCap = DefaultHistoryCap
	}
	s := &SQLiteStore{db: db, historyCap: historyCap, onChange: onChange}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite store opened: %s", dbPath)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS strategies (
			id       TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			type     TEXT NOT NULL,
			payload  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_strategies_pos ON strategies(position)`,

		`CREATE TABLE IF NOT EXISTS alert_history (
			id          TEXT PRIMARY KEY,
			type        TEXT NOT NULL,
			title       TEXT NOT NULL,
			description TEXT,
			timestamp   INTEGER NOT NULL,
			data        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_ts ON alert_history(timestamp)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLiteStore) LoadStrategies() ([]model.Strategy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT payload FROM strategies ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query strategies: %w", err)
	}
	defer rows.Close()

	var out []model.Strategy
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan strategy: %w", err)
		}
		st, err := model.DecodeStrategy([]byte(payload))
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// SaveStrategies replaces the whole persisted list, keeping order. The
// list is small (user-curated), so a full rewrite per save is fine.
func (s *SQLiteStore) SaveStrategies(ss []model.Strategy, silent bool) error {
	s.mu.Lock()
	err := s.saveAll(ss)
	onChange := s.onChange
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if !silent && onChange != nil {
		onChange()
	}
	return nil
}

func (s *SQLiteStore) saveAll(ss []model.Strategy) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM strategies`); err != nil {
		return fmt.Errorf("clear strategies: %w", err)
	}
	for i, st := range ss {
		payload, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("encode strategy %s: %w", st.Meta().ID, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO strategies (id, position, type, payload) VALUES (?,?,?,?)`,
			st.Meta().ID, i, st.Meta().Kind, string(payload),
		); err != nil {
			return fmt.Errorf("insert strategy %s: %w", st.Meta().ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) AppendHistory(item model.AlertHistoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var data []byte
	if item.Data != nil {
		var err error
		data, err = json.Marshal(item.Data)
		if err != nil {
			return fmt.Errorf("encode history data: %w", err)
		}
	}
	if _, err := s.db.Exec(
		`INSERT INTO alert_history (id, type, title, description, timestamp, data) VALUES (?,?,?,?,?,?)`,
		item.ID, item.Kind, item.Title, item.Description, item.Timestamp, string(data),
	); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}

	// Trim to the cap, oldest first.
	if _, err := s.db.Exec(
		`DELETE FROM alert_history WHERE id NOT IN
			(SELECT id FROM alert_history ORDER BY timestamp DESC, id LIMIT ?)`,
		s.historyCap,
	); err != nil {
		return fmt.Errorf("trim history: %w", err)
	}
	return nil
}

func (s *SQLiteStore) History(limit int) ([]model.AlertHistoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > s.historyCap {
		limit = s.historyCap
	}
	rows, err := s.db.Query(
		`SELECT id, type, title, description, timestamp, data
		 FROM alert_history ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []model.AlertHistoryItem
	for rows.Next() {
		var item model.AlertHistoryItem
		var data string
		if err := rows.Scan(&item.ID, &item.Kind, &item.Title, &item.Description, &item.Timestamp, &data); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if data != "" {
			if err := json.Unmarshal([]byte(data), &item.Data); err != nil {
				return nil, fmt.Errorf("decode history data: %w", err)
			}
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	log.Println("[INFO] closing sqlite store")
	return s.db.Close()
}
