package store

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// ErrModelNotFound is returned when a named model has no row in the
// database.
var ErrModelNotFound = errors.New("model not found")

// ModelInfo holds the metadata row for a stored model: its database ID,
// unique name, and order.
type ModelInfo struct {
	Id    int
	Name  string
	Order int
}

// Setup initializes the tables in the provided database. It should be
// called once on a new database before any other operations are
// performed. It is idempotent and safe to call on an already-initialized
// database.
func Setup(db *sql.DB) error {

	const (
		schemaVocab = `
CREATE TABLE IF NOT EXISTS markov_vocabulary (
    token_id INTEGER PRIMARY KEY,
    token_text TEXT NOT NULL UNIQUE
);
`
		schemaPrefixes = `
CREATE TABLE IF NOT EXISTS markov_prefixes (
	prefix_id INTEGER PRIMARY KEY,
	prefix_text TEXT NOT NULL UNIQUE
);
`
		schemaModels = `
CREATE TABLE IF NOT EXISTS markov_models (
    model_id INTEGER PRIMARY KEY,
    model_name TEXT NOT NULL UNIQUE,
    model_order INTEGER NOT NULL
);
`
		schemaChains = `
CREATE TABLE IF NOT EXISTS markov_chains (
    model_id INTEGER NOT NULL,
    prefix_id INTEGER NOT NULL,
    next_token_id INTEGER NOT NULL,
    frequency  INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (model_id, prefix_id, next_token_id)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaVocab); err != nil {
		return fmt.Errorf("could not create vocabulary schema: %w", err)
	}

	if _, err = tx.Exec(schemaPrefixes); err != nil {
		return fmt.Errorf("could not create prefixes schema: %w", err)
	}

	if _, err = tx.Exec(schemaModels); err != nil {
		return fmt.Errorf("could not create models schema: %w", err)
	}

	if _, err = tx.Exec(schemaChains); err != nil {
		return fmt.Errorf("could not create chains schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// Store persists Markov chain models in a SQLite database. Token and
// prefix interning tables are shared across all stored models, so
// saving many models over the same corpus costs little extra space. It
// holds prepared SQL statements for efficient database interaction.
type Store struct {
	db                    *sql.DB
	stmtGetModelInfo      *sql.Stmt
	stmtGetModels         *sql.Stmt
	stmtAddModel          *sql.Stmt
	stmtPruneModel        *sql.Stmt
	stmtModelChains       *sql.Stmt
	stmtModelPrefixes     *sql.Stmt
	stmtModelFreq         *sql.Stmt
	stmtGetChains         *sql.Stmt
	stmtGetVocabLen       *sql.Stmt
	stmtGetPrefixLen      *sql.Stmt
	stmtInsertVocab       *sql.Stmt
	stmtGetOrInsertPrefix *sql.Stmt
	stmtMergeChain        *sql.Stmt
	logger                *slog.Logger
}

// New creates a Store over a database that Setup has been run on. It
// pre-compiles all necessary SQL statements, returning an error if any
// preparation fails.
func New(db *sql.DB) (*Store, error) {
	stmtGetModelInfo, err := db.Prepare(`SELECT model_id, model_order FROM markov_models WHERE model_name = ?;`)
	if err != nil {
		return nil, err
	}

	stmtGetModels, err := db.Prepare(`SELECT model_id, model_name, model_order FROM markov_models;`)
	if err != nil {
		return nil, err
	}

	stmtAddModel, err := db.Prepare(`INSERT INTO markov_models (model_name, model_order) VALUES (?, ?);`)
	if err != nil {
		return nil, err
	}

	stmtPruneModel, err := db.Prepare(`DELETE FROM markov_chains WHERE model_id = ? AND frequency < ?;`)
	if err != nil {
		return nil, err
	}

	stmtModelChains, err := db.Prepare(`SELECT COUNT(*) FROM markov_chains WHERE model_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtModelPrefixes, err := db.Prepare(`SELECT COUNT(DISTINCT prefix_id) FROM markov_chains WHERE model_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtModelFreq, err := db.Prepare(`SELECT coalesce(SUM(frequency), 0) FROM markov_chains WHERE model_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtGetChains, err := db.Prepare(`SELECT prefix_id, next_token_id, frequency FROM markov_chains WHERE model_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtGetVocabLen, err := db.Prepare(`SELECT COUNT(*) FROM markov_vocabulary;`)
	if err != nil {
		return nil, err
	}

	stmtGetPrefixLen, err := db.Prepare(`SELECT COUNT(*) FROM markov_prefixes;`)
	if err != nil {
		return nil, err
	}

	stmtInsertVocab, err := db.Prepare(`INSERT INTO markov_vocabulary (token_text) VALUES (?) ON CONFLICT(token_text) DO UPDATE SET token_text=excluded.token_text RETURNING token_id;`)
	if err != nil {
		return nil, err
	}

	stmtGetOrInsertPrefix, err := db.Prepare(`INSERT INTO markov_prefixes (prefix_text) VALUES (?) ON CONFLICT(prefix_text) DO UPDATE SET prefix_text=excluded.prefix_text RETURNING prefix_id;`)
	if err != nil {
		return nil, err
	}

	stmtMergeChain, err := db.Prepare(`INSERT INTO markov_chains (model_id, prefix_id, next_token_id, frequency) VALUES (?, ?, ?, ?) ON CONFLICT(model_id, prefix_id, next_token_id) DO UPDATE SET frequency = frequency + excluded.frequency;`)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:                    db,
		stmtGetModelInfo:      stmtGetModelInfo,
		stmtGetModels:         stmtGetModels,
		stmtAddModel:          stmtAddModel,
		stmtPruneModel:        stmtPruneModel,
		stmtModelChains:       stmtModelChains,
		stmtModelPrefixes:     stmtModelPrefixes,
		stmtModelFreq:         stmtModelFreq,
		stmtGetChains:         stmtGetChains,
		stmtGetVocabLen:       stmtGetVocabLen,
		stmtGetPrefixLen:      stmtGetPrefixLen,
		stmtInsertVocab:       stmtInsertVocab,
		stmtGetOrInsertPrefix: stmtGetOrInsertPrefix,
		stmtMergeChain:        stmtMergeChain,
		logger:                slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Close releases all prepared SQL statements held by the Store. It does
// not close the underlying database connection.
func (s *Store) Close() {
	_ = s.stmtGetModelInfo.Close()
	_ = s.stmtGetModels.Close()
	_ = s.stmtAddModel.Close()
	_ = s.stmtPruneModel.Close()
	_ = s.stmtModelChains.Close()
	_ = s.stmtModelPrefixes.Close()
	_ = s.stmtModelFreq.Close()
	_ = s.stmtGetChains.Close()
	_ = s.stmtGetVocabLen.Close()
	_ = s.stmtGetPrefixLen.Close()
	_ = s.stmtInsertVocab.Close()
	_ = s.stmtGetOrInsertPrefix.Close()
	_ = s.stmtMergeChain.Close()
}

// SetLogger sets the logger for the Store. By default, all logs are
// discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}
