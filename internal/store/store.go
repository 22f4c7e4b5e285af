// Package store persists translation requests, per-provider candidates, and
// consensus results in SQLite, and provides an exact-match translation
// memory. The consensus engine itself never touches this package; callers
// wire it around the pipeline through the Cache interface.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"

	"github.com/Garblesnarff/Translate-sub007/internal"
	"github.com/Garblesnarff/Translate-sub007/internal/consensus"
	"github.com/Garblesnarff/Translate-sub007/internal/translator"
)

// Cache is the generic lookup the translation pipeline reads and writes
// through. Implementations own their eviction and indexing strategy.
type Cache interface {
	GetCachedTranslation(ctx context.Context, sourceText, sourceLang, targetLang string) (string, bool, error)
	SaveToMemory(ctx context.Context, sourceText, sourceLang, targetLang, finalText string, confidence float64, modelsUsed string) error
}

type Store struct {
	db *sql.DB
}

var _ Cache = (*Store)(nil)

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS translation_requests (
		id TEXT PRIMARY KEY,
		source_text TEXT NOT NULL,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS candidates (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL,
		provider_id TEXT NOT NULL,
		model_id TEXT NOT NULL,
		text TEXT NOT NULL,
		confidence REAL,
		reasoning TEXT,
		tokens_used INTEGER,
		latency_ms INTEGER,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (request_id) REFERENCES translation_requests(id)
	);

	CREATE TABLE IF NOT EXISTS consensus_results (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL,
		final_text TEXT NOT NULL,
		confidence REAL NOT NULL,
		agreement_score REAL NOT NULL,
		contributing_models TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (request_id) REFERENCES translation_requests(id)
	);

	CREATE TABLE IF NOT EXISTS translation_memory (
		id TEXT PRIMARY KEY,
		source_text TEXT NOT NULL,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		final_text TEXT NOT NULL,
		confidence REAL,
		models_used TEXT,
		usage_count INTEGER DEFAULT 1,
		invalidated BOOLEAN DEFAULT FALSE,
		last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(source_text, source_lang, target_lang)
	);

	CREATE INDEX IF NOT EXISTS idx_memory_lookup ON translation_memory(source_text, source_lang, target_lang);
	CREATE INDEX IF NOT EXISTS idx_candidates_request ON candidates(request_id);
	CREATE INDEX IF NOT EXISTS idx_consensus_request ON consensus_results(request_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) SaveRequest(ctx context.Context, req internal.TranslationRequest) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO translation_requests (id, source_text, source_lang, target_lang, created_at) VALUES (?, ?, ?, ?, ?)`,
		req.ID, req.SourceText, req.SourceLang, req.TargetLang, req.Timestamp)
	return err
}

// SaveCandidate stores one provider's candidate for audit. The row id
// combines request and provider so re-saving the same fan-out is idempotent.
func (s *Store) SaveCandidate(ctx context.Context, requestID string, cand translator.Candidate) error {
	id := fmt.Sprintf("%s_%s_%s", requestID, cand.ProviderID, cand.ModelID)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO candidates (id, request_id, provider_id, model_id, text, confidence, reasoning, tokens_used, latency_ms) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, requestID, cand.ProviderID, cand.ModelID, cand.Text, cand.Confidence, cand.Reasoning, cand.TokensUsed, cand.Latency.Milliseconds())
	return err
}

// SaveConsensus stores the fused result of one request.
func (s *Store) SaveConsensus(ctx context.Context, requestID string, res *consensus.Result) error {
	id := fmt.Sprintf("%s_consensus", requestID)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO consensus_results (id, request_id, final_text, confidence, agreement_score, contributing_models) VALUES (?, ?, ?, ?, ?, ?)`,
		id, requestID, res.FinalTranslation, res.Confidence, res.AgreementScore, strings.Join(res.ContributingModels, ","))
	return err
}

func (s *Store) GetCachedTranslation(ctx context.Context, sourceText, sourceLang, targetLang string) (string, bool, error) {
	var finalText string
	var invalidated bool

	err := s.db.QueryRowContext(ctx,
		`SELECT final_text, invalidated FROM translation_memory WHERE source_text = ? AND source_lang = ? AND target_lang = ?`,
		normalizeText(sourceText), sourceLang, targetLang).Scan(&finalText, &invalidated)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	if invalidated {
		return "", false, nil
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE translation_memory SET usage_count = usage_count + 1, last_used = ? WHERE source_text = ? AND source_lang = ? AND target_lang = ?`,
		time.Now(), normalizeText(sourceText), sourceLang, targetLang)

	return finalText, true, err
}

func (s *Store) SaveToMemory(ctx context.Context, sourceText, sourceLang, targetLang, finalText string, confidence float64, modelsUsed string) error {
	id := fmt.Sprintf("mem_%d", time.Now().UnixNano())
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO translation_memory (id, source_text, source_lang, target_lang, final_text, confidence, models_used, usage_count, invalidated, last_used, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, 1, FALSE, ?, ?)`,
		id, normalizeText(sourceText), sourceLang, targetLang, finalText, confidence, modelsUsed, time.Now(), time.Now())
	return err
}

// MemoryEntry is one translation memory row as shown by the cache CLI.
type MemoryEntry struct {
	ID          string
	SourceText  string
	SourceLang  string
	TargetLang  string
	FinalText   string
	Confidence  float64
	ModelsUsed  string
	UsageCount  int
	Invalidated bool
	LastUsed    time.Time
}

func (s *Store) ListMemory(ctx context.Context) ([]MemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_text, source_lang, target_lang, final_text, COALESCE(confidence, 0), COALESCE(models_used, ''), usage_count, invalidated, last_used FROM translation_memory ORDER BY last_used DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []MemoryEntry
	for rows.Next() {
		var e MemoryEntry
		if err := rows.Scan(&e.ID, &e.SourceText, &e.SourceLang, &e.TargetLang, &e.FinalText, &e.Confidence, &e.ModelsUsed, &e.UsageCount, &e.Invalidated, &e.LastUsed); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MemoryStats summarizes the translation memory.
type MemoryStats struct {
	TotalEntries   int
	ActiveEntries  int
	InvalidEntries int
	TotalUsage     int
}

func (s *Store) Stats(ctx context.Context) (*MemoryStats, error) {
	stats := &MemoryStats{}
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN invalidated THEN 0 ELSE 1 END), 0), COALESCE(SUM(CASE WHEN invalidated THEN 1 ELSE 0 END), 0), COALESCE(SUM(usage_count), 0) FROM translation_memory`).
		Scan(&stats.TotalEntries, &stats.ActiveEntries, &stats.InvalidEntries, &stats.TotalUsage)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) DeleteMemoryEntry(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM translation_memory WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("no entry with id %s", id)
	}
	return nil
}

func (s *Store) InvalidateMemoryEntry(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE translation_memory SET invalidated = TRUE WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("no entry with id %s", id)
	}
	return nil
}

func (s *Store) ClearMemory(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM translation_memory`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) Close() error {
	return s.db.Close()
}

// normalizeText canonicalizes memory keys: NFC normalization plus collapsed
// whitespace, so visually identical source texts hit the same row.
func normalizeText(text string) string {
	return strings.Join(strings.Fields(norm.NFC.String(text)), " ")
}
