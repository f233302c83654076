// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists completed search responses to SQLite. The pipeline
// only ever writes here; nothing in a live search path reads the store.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/sourcing-engine/pkg/types"
)

// Store manages the search history SQLite database.
type Store struct {
	db *sql.DB
}

// Summary is one row of the search history listing.
type Summary struct {
	ID          string
	RawInput    string
	Category    string
	ResultCount int
	AllFailed   bool
	GeneratedAt time.Time
}

// Open opens or creates the search history database at path, creating the
// schema if it does not exist.
func Open(cfg types.StoreConfig) (*Store, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("store db_path is required")
	}
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening store database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating store schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS searches (
			id TEXT PRIMARY KEY,
			raw_input TEXT,
			category TEXT,
			confidence REAL,
			low_confidence INTEGER,
			result_count INTEGER,
			view_more_count INTEGER,
			user_message TEXT,
			generated_at TEXT,
			response TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			search_id TEXT NOT NULL REFERENCES searches(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			title TEXT,
			canonical_url TEXT,
			source TEXT,
			price REAL,
			merchant_name TEXT,
			final_score REAL
		)`,
		`CREATE TABLE IF NOT EXISTS provider_statuses (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			search_id TEXT NOT NULL REFERENCES searches(id) ON DELETE CASCADE,
			provider_id TEXT NOT NULL,
			status TEXT NOT NULL,
			result_count INTEGER,
			latency_ms INTEGER,
			message TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_search ON results(search_id)`,
		`CREATE INDEX IF NOT EXISTS idx_statuses_search ON provider_statuses(search_id)`,
		`CREATE INDEX IF NOT EXISTS idx_searches_generated ON searches(generated_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save persists one search response under the given search ID. Saving the
// same ID again replaces the previous snapshot.
func (s *Store) Save(ctx context.Context, searchID string, resp *types.SearchResponse) error {
	if searchID == "" {
		return fmt.Errorf("search id is required")
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO searches (id, raw_input, category, confidence, low_confidence, result_count, view_more_count, user_message, generated_at, response)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			raw_input=excluded.raw_input, category=excluded.category,
			confidence=excluded.confidence, low_confidence=excluded.low_confidence,
			result_count=excluded.result_count, view_more_count=excluded.view_more_count,
			user_message=excluded.user_message, generated_at=excluded.generated_at,
			response=excluded.response`,
		searchID, resp.Intent.RawInput, resp.Intent.Category, resp.Intent.Confidence,
		resp.LowConfidence, len(resp.Results), resp.ViewMoreCount, resp.UserMessage,
		resp.GeneratedAt.UTC().Format(time.RFC3339Nano), string(payload))
	if err != nil {
		return fmt.Errorf("saving search %s: %w", searchID, err)
	}

	for _, table := range []string{"results", "provider_statuses"} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE search_id = ?`, table), searchID); err != nil {
			return fmt.Errorf("clearing %s for search %s: %w", table, searchID, err)
		}
	}

	for i, r := range resp.Results {
		var price interface{}
		if r.Price != nil {
			price = *r.Price
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO results (search_id, position, title, canonical_url, source, price, merchant_name, final_score)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			searchID, i, r.Title, r.CanonicalURL, r.Source, price, r.MerchantName, r.FinalScore)
		if err != nil {
			return fmt.Errorf("saving result %d for search %s: %w", i, searchID, err)
		}
	}

	for _, st := range resp.Statuses {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO provider_statuses (search_id, provider_id, status, result_count, latency_ms, message)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			searchID, st.ProviderID, string(st.Status), st.ResultCount, st.LatencyMS, st.Message)
		if err != nil {
			return fmt.Errorf("saving status %s for search %s: %w", st.ProviderID, searchID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing search %s: %w", searchID, err)
	}
	return nil
}

// Get loads a persisted search response by ID.
func (s *Store) Get(ctx context.Context, searchID string) (*types.SearchResponse, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT response FROM searches WHERE id = ?`, searchID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("search %s not found", searchID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading search %s: %w", searchID, err)
	}

	var resp types.SearchResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return nil, fmt.Errorf("decoding search %s: %w", searchID, err)
	}
	return &resp, nil
}

// Recent lists the most recent searches, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.raw_input, s.category, s.result_count, s.generated_at,
			(SELECT count(*) FROM provider_statuses p WHERE p.search_id = s.id AND p.status = 'ok') AS ok_count
		 FROM searches s ORDER BY s.generated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing searches: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sm Summary
		var generated string
		var okCount int
		if err := rows.Scan(&sm.ID, &sm.RawInput, &sm.Category, &sm.ResultCount, &generated, &okCount); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, generated); err == nil {
			sm.GeneratedAt = t
		}
		sm.AllFailed = okCount == 0
		out = append(out, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scanning searches: %w", err)
	}
	return out, nil
}
