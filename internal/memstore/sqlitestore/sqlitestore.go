// Package sqlitestore is the durable Store backend (spec §4.1, C1),
// persisting episodes, facts, relational entries, and the emotional
// thread to a single SQLite file via the pure-Go modernc.org/sqlite
// driver. Table shape follows the original Python implementation's
// sqlite_store.py: one table per memory kind plus a schema_version
// marker, embeddings as little-endian float32 blobs, and list/struct
// fields JSON-encoded.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/hassan123789/cogmem/internal/cogmem"
	"github.com/hassan123789/cogmem/internal/cogmem/errs"
	"github.com/hassan123789/cogmem/internal/memstore"
)

const currentSchemaVersion = 1

const schemaDDL = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS episodic_memory (
	id TEXT PRIMARY KEY,
	summary TEXT NOT NULL,
	full_text TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	embedding BLOB,
	importance REAL NOT NULL,
	status TEXT NOT NULL,
	topics TEXT,
	entities TEXT,
	connections TEXT
);

CREATE TABLE IF NOT EXISTS semantic_memory (
	id TEXT PRIMARY KEY,
	fact TEXT NOT NULL,
	confidence REAL NOT NULL,
	first_observed TEXT NOT NULL,
	last_confirmed TEXT NOT NULL,
	status TEXT NOT NULL,
	derived_from TEXT NOT NULL,
	embedding BLOB,
	contradictions TEXT
);

CREATE TABLE IF NOT EXISTS relational_memory (
	category TEXT PRIMARY KEY,
	data TEXT NOT NULL,
	confidence REAL NOT NULL,
	evidence_count INTEGER NOT NULL,
	last_updated TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS emotional_thread (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	current_state TEXT NOT NULL,
	thread_length INTEGER NOT NULL,
	should_acknowledge INTEGER NOT NULL,
	last_update TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_episodic_status ON episodic_memory(status);
CREATE INDEX IF NOT EXISTS idx_semantic_status ON semantic_memory(status);
`

// SQLiteStore is a memstore.Store backed by a SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path and applies
// the schema, returning a ready Store.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errs.NewStorageError("open", err)
	}
	db.SetMaxOpenConns(1) // single-writer per spec §4.1; sqlite serializes anyway

	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, errs.NewStorageError("migrate", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.ensureSchemaVersion(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ensureSchemaVersion() error {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM schema_version`).Scan(&count); err != nil {
		return errs.NewStorageError("ensure_schema_version", err)
	}
	if count == 0 {
		if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, currentSchemaVersion); err != nil {
			return errs.NewStorageError("ensure_schema_version", err)
		}
	}
	return nil
}

func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&v)
	if err != nil {
		return 0, errs.NewStorageError("schema_version", err)
	}
	return v, nil
}

// --- episodes ---

func (s *SQLiteStore) AddEpisode(ctx context.Context, ep cogmem.Episode) (string, error) {
	if ep.ID == "" {
		ep.ID = uuid.NewString()
	}
	if ep.Timestamp.IsZero() {
		ep.Timestamp = time.Now()
	}

	fullText, err := json.Marshal(ep.FullText)
	if err != nil {
		return "", errs.NewStorageError("add_episode_marshal", err)
	}
	topics, _ := json.Marshal(ep.Topics)
	entities, _ := json.Marshal(ep.Entities)
	connections, _ := json.Marshal(ep.Connections)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO episodic_memory
			(id, summary, full_text, timestamp, embedding, importance, status, topics, entities, connections)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ep.ID, ep.Summary, string(fullText), ep.Timestamp.UTC().Format(time.RFC3339Nano),
		encodeVector(ep.Embedding), ep.Importance, string(ep.Status), string(topics), string(entities), string(connections),
	)
	if err != nil {
		return "", errs.NewStorageError("add_episode", err)
	}
	return ep.ID, nil
}

func (s *SQLiteStore) GetEpisode(ctx context.Context, id string) (*cogmem.Episode, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, summary, full_text, timestamp, embedding, importance, status, topics, entities, connections
		FROM episodic_memory WHERE id = ?`, id)

	ep, err := scanEpisode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewStorageError("get_episode", err)
	}
	return ep, nil
}

func (s *SQLiteStore) UpdateEpisode(ctx context.Context, id string, patch memstore.EpisodePatch) (bool, error) {
	if patch.Embedding != nil {
		if _, err := s.db.ExecContext(ctx, `UPDATE episodic_memory SET embedding = ? WHERE id = ?`,
			encodeVector(patch.Embedding.Vector), id); err != nil {
			return false, errs.NewStorageError("update_episode_embedding", err)
		}
	}
	if patch.Status != nil {
		if _, err := s.db.ExecContext(ctx, `UPDATE episodic_memory SET status = ? WHERE id = ?`,
			string(*patch.Status), id); err != nil {
			return false, errs.NewStorageError("update_episode_status", err)
		}
	}

	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM episodic_memory WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return false, errs.NewStorageError("update_episode_check", err)
	}
	return exists, nil
}

func (s *SQLiteStore) SearchEpisodesByFilter(ctx context.Context, filters cogmem.Filters, limit int) ([]cogmem.Episode, error) {
	query := `SELECT id, summary, full_text, timestamp, embedding, importance, status, topics, entities, connections FROM episodic_memory`
	var args []any
	if filters.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(filters.Status))
	}
	query += ` ORDER BY timestamp DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.NewStorageError("search_episodes_by_filter", err)
	}
	defer rows.Close()

	var out []cogmem.Episode
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			return nil, errs.NewStorageError("search_episodes_by_filter_scan", err)
		}
		out = append(out, *ep)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetUnconsolidatedEpisodes(ctx context.Context) ([]cogmem.Episode, error) {
	return s.SearchEpisodesByFilter(ctx, cogmem.WithStatus(cogmem.StatusActive), 0)
}

func (s *SQLiteStore) MarkConsolidated(ctx context.Context, ids []string) (bool, error) {
	if len(ids) == 0 {
		return true, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, errs.NewStorageError("mark_consolidated_begin", err)
	}
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE episodic_memory SET status = ? WHERE id = ?`,
			string(cogmem.StatusConsolidated), id); err != nil {
			tx.Rollback()
			return false, errs.NewStorageError("mark_consolidated", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, errs.NewStorageError("mark_consolidated_commit", err)
	}
	return true, nil
}

// --- facts ---

func (s *SQLiteStore) AddFact(ctx context.Context, f cogmem.Fact) (string, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if len(f.DerivedFrom) == 0 {
		return "", errs.NewInvariantViolation("fact-derived-from-nonempty", "fact "+f.ID+" has empty derived_from")
	}

	derivedFrom, _ := json.Marshal(f.DerivedFrom)
	contradictions, _ := json.Marshal(f.Contradictions)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO semantic_memory
			(id, fact, confidence, first_observed, last_confirmed, status, derived_from, embedding, contradictions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Fact, f.Confidence, f.FirstObserved.UTC().Format(time.RFC3339Nano),
		f.LastConfirmed.UTC().Format(time.RFC3339Nano), string(f.Status), string(derivedFrom),
		encodeVector(f.Embedding), string(contradictions),
	)
	if err != nil {
		return "", errs.NewStorageError("add_fact", err)
	}
	return f.ID, nil
}

func (s *SQLiteStore) GetFacts(ctx context.Context, filters cogmem.Filters, limit int) ([]cogmem.Fact, error) {
	query := `SELECT id, fact, confidence, first_observed, last_confirmed, status, derived_from, embedding, contradictions FROM semantic_memory`
	var clauses []string
	var args []any
	if filters.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filters.Status))
	}
	if filters.HasConfidenceGT {
		clauses = append(clauses, "confidence > ?")
		args = append(args, *filters.ConfidenceGT)
	}
	for i, c := range clauses {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += ` ORDER BY last_confirmed DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.NewStorageError("get_facts", err)
	}
	defer rows.Close()

	var out []cogmem.Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, errs.NewStorageError("get_facts_scan", err)
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// --- relational ---

func (s *SQLiteStore) UpdateRelational(ctx context.Context, category string, data map[string]any, confidence float32) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return errs.NewStorageError("update_relational_marshal", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO relational_memory (category, data, confidence, evidence_count, last_updated)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(category) DO UPDATE SET
			data = excluded.data,
			confidence = excluded.confidence,
			evidence_count = relational_memory.evidence_count + 1,
			last_updated = excluded.last_updated`,
		category, string(encoded), confidence, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return errs.NewStorageError("update_relational", err)
	}
	return nil
}

func (s *SQLiteStore) GetRelational(ctx context.Context, category string) ([]cogmem.RelationalEntry, error) {
	query := `SELECT category, data, confidence, evidence_count, last_updated FROM relational_memory`
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY category`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.NewStorageError("get_relational", err)
	}
	defer rows.Close()

	var out []cogmem.RelationalEntry
	for rows.Next() {
		var (
			cat, data, lastUpdated string
			confidence             float32
			evidence               int
		)
		if err := rows.Scan(&cat, &data, &confidence, &evidence, &lastUpdated); err != nil {
			return nil, errs.NewStorageError("get_relational_scan", err)
		}
		var parsed map[string]any
		json.Unmarshal([]byte(data), &parsed)
		ts, _ := time.Parse(time.RFC3339Nano, lastUpdated)
		out = append(out, cogmem.RelationalEntry{
			Category:      cat,
			Data:          parsed,
			Confidence:    confidence,
			EvidenceCount: evidence,
			LastUpdated:   ts,
		})
	}
	return out, rows.Err()
}

// --- emotional thread ---

func (s *SQLiteStore) UpdateEmotional(ctx context.Context, state string) error {
	current, err := s.GetEmotional(ctx)
	if err != nil {
		return err
	}
	length := 1
	if current != nil && current.CurrentState == state {
		length = current.ThreadLength + 1
	}
	shouldAcknowledge := length >= 3

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO emotional_thread (id, current_state, thread_length, should_acknowledge, last_update)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			current_state = excluded.current_state,
			thread_length = excluded.thread_length,
			should_acknowledge = excluded.should_acknowledge,
			last_update = excluded.last_update`,
		state, length, boolToInt(shouldAcknowledge), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return errs.NewStorageError("update_emotional", err)
	}
	return nil
}

func (s *SQLiteStore) GetEmotional(ctx context.Context) (*cogmem.EmotionalThread, error) {
	row := s.db.QueryRowContext(ctx, `SELECT current_state, thread_length, should_acknowledge, last_update FROM emotional_thread WHERE id = 1`)

	var (
		state, lastUpdate string
		length            int
		ack               int
	)
	err := row.Scan(&state, &length, &ack, &lastUpdate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewStorageError("get_emotional", err)
	}
	ts, _ := time.Parse(time.RFC3339Nano, lastUpdate)
	return &cogmem.EmotionalThread{
		CurrentState:      state,
		ThreadLength:      length,
		ShouldAcknowledge: ack != 0,
		LastUpdate:        ts,
	}, nil
}

// --- retriever scan path ---

func (s *SQLiteStore) RawActiveWithEmbeddings(ctx context.Context, table memstore.Table, filters cogmem.Filters) ([]memstore.ScoredRow, error) {
	switch table {
	case memstore.TableEpisodes:
		return s.rawActiveEpisodes(ctx)
	case memstore.TableFacts:
		return s.rawFactsWithEmbeddings(ctx, filters)
	default:
		return nil, fmt.Errorf("unknown table %q", table)
	}
}

func (s *SQLiteStore) rawActiveEpisodes(ctx context.Context) ([]memstore.ScoredRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, summary, full_text, timestamp, embedding, importance, status, topics, entities, connections
		FROM episodic_memory WHERE status = ? AND embedding IS NOT NULL`, string(cogmem.StatusActive))
	if err != nil {
		return nil, errs.NewStorageError("raw_active_episodes", err)
	}
	defer rows.Close()

	var out []memstore.ScoredRow
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			return nil, errs.NewStorageError("raw_active_episodes_scan", err)
		}
		out = append(out, memstore.ScoredRow{
			ID:         ep.ID,
			Text:       ep.Summary,
			Embedding:  ep.Embedding,
			Importance: ep.Importance,
			Timestamp:  ep.Timestamp,
			Episode:    ep,
		})
	}
	return out, rows.Err()
}

func (s *SQLiteStore) rawFactsWithEmbeddings(ctx context.Context, filters cogmem.Filters) ([]memstore.ScoredRow, error) {
	query := `SELECT id, fact, confidence, first_observed, last_confirmed, status, derived_from, embedding, contradictions
		FROM semantic_memory WHERE embedding IS NOT NULL`
	var args []any
	if filters.HasConfidenceGT {
		query += ` AND confidence > ?`
		args = append(args, *filters.ConfidenceGT)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.NewStorageError("raw_facts_with_embeddings", err)
	}
	defer rows.Close()

	var out []memstore.ScoredRow
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, errs.NewStorageError("raw_facts_with_embeddings_scan", err)
		}
		out = append(out, memstore.ScoredRow{
			ID:         f.ID,
			Text:       f.Fact,
			Embedding:  f.Embedding,
			Confidence: f.Confidence,
			Timestamp:  f.LastConfirmed,
			Fact:       f,
		})
	}
	return out, rows.Err()
}

// --- scanning helpers ---

type scanner interface {
	Scan(dest ...any) error
}

func scanEpisode(row scanner) (*cogmem.Episode, error) {
	var (
		id, summary, fullTextJSON, timestamp, status string
		embeddingBlob                                []byte
		importance                                   float32
		topicsJSON, entitiesJSON, connectionsJSON    sql.NullString
	)
	if err := row.Scan(&id, &summary, &fullTextJSON, &timestamp, &embeddingBlob, &importance, &status, &topicsJSON, &entitiesJSON, &connectionsJSON); err != nil {
		return nil, err
	}

	var fullText cogmem.FullText
	json.Unmarshal([]byte(fullTextJSON), &fullText)

	ts, _ := time.Parse(time.RFC3339Nano, timestamp)

	ep := &cogmem.Episode{
		ID:          id,
		Summary:     summary,
		FullText:    fullText,
		Timestamp:   ts,
		Embedding:   decodeVector(embeddingBlob),
		Importance:  importance,
		Status:      cogmem.EpisodeStatus(status),
		Topics:      decodeStringList(topicsJSON),
		Entities:    decodeStringList(entitiesJSON),
		Connections: decodeStringList(connectionsJSON),
	}
	return ep, nil
}

func scanFact(row scanner) (*cogmem.Fact, error) {
	var (
		id, fact, firstObserved, lastConfirmed, status, derivedFromJSON string
		confidence                                                      float32
		embeddingBlob                                                   []byte
		contradictionsJSON                                              sql.NullString
	)
	if err := row.Scan(&id, &fact, &confidence, &firstObserved, &lastConfirmed, &status, &derivedFromJSON, &embeddingBlob, &contradictionsJSON); err != nil {
		return nil, err
	}

	var derivedFrom []string
	json.Unmarshal([]byte(derivedFromJSON), &derivedFrom)

	firstTS, _ := time.Parse(time.RFC3339Nano, firstObserved)
	lastTS, _ := time.Parse(time.RFC3339Nano, lastConfirmed)

	return &cogmem.Fact{
		ID:             id,
		Fact:           fact,
		Confidence:     confidence,
		FirstObserved:  firstTS,
		LastConfirmed:  lastTS,
		Status:         cogmem.FactStatus(status),
		DerivedFrom:    derivedFrom,
		Embedding:      decodeVector(embeddingBlob),
		Contradictions: decodeStringList(contradictionsJSON),
	}, nil
}

func decodeStringList(ns sql.NullString) []string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	var out []string
	json.Unmarshal([]byte(ns.String), &out)
	return out
}

// encodeVector packs a float32 vector as little-endian bytes, per spec
// §4.1 ("embeddings stored as little-endian f32 blobs"). A nil/empty
// vector encodes to a nil blob.
func encodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	n := len(b) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(b[i*4:])
		out[i] = math.Float32frombits(bits)
	}
	return out
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
