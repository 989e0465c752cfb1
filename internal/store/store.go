// Package store persists answer keys and evaluations in SQLite behind a
// plain key-value contract: get by id, set by id, scan by prefix. The engine
// only ever sees opaque string ids; SQLite serializes concurrent writes to
// the same id, and a whole record is one row so a status+result update lands
// atomically.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/omrkit/omrkit/internal/model"

	_ "modernc.org/sqlite"
)

// Namespace prefixes for the two record kinds.
const (
	KeyPrefixAnswerKey  = "answer_key_"
	KeyPrefixEvaluation = "evaluation_"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		key   TEXT PRIMARY KEY,
		value BLOB NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get returns the value stored under key, or nil when the key is absent.
func (s *Store) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM records WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return value, err
}

// Set writes value under key, replacing any previous value in one statement.
func (s *Store) Set(key string, value []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO records (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	return err
}

// GetByPrefix returns all values whose key starts with prefix, ordered by key.
func (s *Store) GetByPrefix(prefix string) ([][]byte, error) {
	rows, err := s.db.Query(
		`SELECT value FROM records WHERE key LIKE ? || '%' ORDER BY key`, prefix,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var values [][]byte
	for rows.Next() {
		var v []byte
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// PutAnswerKey stores an answer key under its namespaced id.
func (s *Store) PutAnswerKey(key *model.AnswerKey) error {
	data, err := json.Marshal(key)
	if err != nil {
		return fmt.Errorf("marshal answer key %s: %w", key.ID, err)
	}
	return s.Set(KeyPrefixAnswerKey+key.ID, data)
}

// GetAnswerKey returns the answer key with the given id, or nil if absent.
func (s *Store) GetAnswerKey(id string) (*model.AnswerKey, error) {
	data, err := s.Get(KeyPrefixAnswerKey + id)
	if err != nil || data == nil {
		return nil, err
	}
	var key model.AnswerKey
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, fmt.Errorf("unmarshal answer key %s: %w", id, err)
	}
	return &key, nil
}

// ListAnswerKeys returns all stored answer keys ordered by id.
func (s *Store) ListAnswerKeys() ([]model.AnswerKey, error) {
	values, err := s.GetByPrefix(KeyPrefixAnswerKey)
	if err != nil {
		return nil, err
	}
	keys := make([]model.AnswerKey, 0, len(values))
	for _, v := range values {
		var key model.AnswerKey
		if err := json.Unmarshal(v, &key); err != nil {
			return nil, fmt.Errorf("unmarshal answer key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// PutEvaluation stores an evaluation under its namespaced id. The whole
// record is written in one statement, so status and result never diverge.
func (s *Store) PutEvaluation(ev *model.Evaluation) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal evaluation %s: %w", ev.ID, err)
	}
	return s.Set(KeyPrefixEvaluation+ev.ID, data)
}

// GetEvaluation returns the evaluation with the given id, or nil if absent.
func (s *Store) GetEvaluation(id string) (*model.Evaluation, error) {
	data, err := s.Get(KeyPrefixEvaluation + id)
	if err != nil || data == nil {
		return nil, err
	}
	var ev model.Evaluation
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("unmarshal evaluation %s: %w", id, err)
	}
	return &ev, nil
}

// ListEvaluations returns all stored evaluations ordered by id.
func (s *Store) ListEvaluations() ([]model.Evaluation, error) {
	values, err := s.GetByPrefix(KeyPrefixEvaluation)
	if err != nil {
		return nil, err
	}
	evs := make([]model.Evaluation, 0, len(values))
	for _, v := range values {
		var ev model.Evaluation
		if err := json.Unmarshal(v, &ev); err != nil {
			return nil, fmt.Errorf("unmarshal evaluation: %w", err)
		}
		evs = append(evs, ev)
	}
	return evs, nil
}
