package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/garrulax/garrulax/pkg/markov"
)

// GetModelInfos retrieves metadata for all models currently in the
// database, returning them in a map keyed by model name.
func (s *Store) GetModelInfos(ctx context.Context) (map[string]ModelInfo, error) {
	rows, err := s.stmtGetModels.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	models := make(map[string]ModelInfo)
	for rows.Next() {
		var model ModelInfo
		if err = rows.Scan(&model.Id, &model.Name, &model.Order); err != nil {
			return nil, err
		}
		models[model.Name] = model
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return models, nil
}

// GetModelInfo retrieves the metadata for a single model by name. It
// returns ErrModelNotFound when no model with that name exists.
func (s *Store) GetModelInfo(ctx context.Context, name string) (ModelInfo, error) {
	var modelID, modelOrder int
	err := s.stmtGetModelInfo.QueryRowContext(ctx, name).Scan(&modelID, &modelOrder)
	if errors.Is(err, sql.ErrNoRows) {
		return ModelInfo{}, fmt.Errorf("model '%s': %w", name, ErrModelNotFound)
	}
	if err != nil {
		return ModelInfo{}, err
	}
	return ModelInfo{
		Id:    modelID,
		Name:  name,
		Order: modelOrder,
	}, nil
}

// CreateModel registers an empty model row. Training data can be merged
// into it later with SaveModel.
func (s *Store) CreateModel(ctx context.Context, name string, order int) error {
	if order < 1 {
		return fmt.Errorf("model order must be at least 1, got %d", order)
	}
	if _, err := s.stmtAddModel.ExecContext(ctx, name, order); err != nil {
		return fmt.Errorf("failed to create model '%s': %w", name, err)
	}
	return nil
}

// SaveModel merges a trained model into the database under its own
// name, creating the model row when needed. Chain frequencies are added
// to whatever is already stored, so saving two models trained on
// different corpora under one name accumulates both. Saving over an
// existing name whose stored order differs fails with
// markov.ErrOrderMismatch.
func (s *Store) SaveModel(ctx context.Context, m *markov.Model) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction for save: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var modelID, modelOrder int
	err = tx.QueryRowContext(ctx, "SELECT model_id, model_order FROM markov_models WHERE model_name = ?", m.Name()).Scan(&modelID, &modelOrder)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx, "INSERT INTO markov_models (model_name, model_order) VALUES (?, ?)", m.Name(), m.Order())
		if err != nil {
			return fmt.Errorf("failed to insert new model '%s': %w", m.Name(), err)
		}
		newID, _ := res.LastInsertId()
		modelID = int(newID)
	case err != nil:
		return fmt.Errorf("failed to query for model '%s': %w", m.Name(), err)
	default:
		if modelOrder != m.Order() {
			return fmt.Errorf("stored model '%s' has order %d, not %d: %w", m.Name(), modelOrder, m.Order(), markov.ErrOrderMismatch)
		}
	}

	stmtInsertVocab := tx.StmtContext(ctx, s.stmtInsertVocab)
	stmtGetOrInsertPrefix := tx.StmtContext(ctx, s.stmtGetOrInsertPrefix)
	stmtMergeChain := tx.StmtContext(ctx, s.stmtMergeChain)

	// token text -> database-wide vocabulary ID
	vocabIDs := make(map[string]int, m.VocabSize())
	for id := 0; id < m.VocabSize(); id++ {
		text, _ := m.TokenText(id)
		var globalID int
		if err := stmtInsertVocab.QueryRowContext(ctx, text).Scan(&globalID); err != nil {
			return fmt.Errorf("failed to get/insert vocab '%s': %w", text, err)
		}
		vocabIDs[text] = globalID
	}

	var keyBuf []byte
	chainsSaved := 0
	for stateID := 0; stateID < m.States(); stateID++ {
		tokens, ok := m.StateTokens(stateID)
		if !ok {
			return fmt.Errorf("failed to resolve state %d of model '%s'", stateID, m.Name())
		}
		keyBuf = keyBuf[:0]
		for i, text := range tokens {
			if i > 0 {
				keyBuf = append(keyBuf, ' ')
			}
			keyBuf = strconv.AppendInt(keyBuf, int64(vocabIDs[text]), 10)
		}

		var prefixID int
		if err := stmtGetOrInsertPrefix.QueryRowContext(ctx, string(keyBuf)).Scan(&prefixID); err != nil {
			return fmt.Errorf("failed to get/insert prefix '%s': %w", string(keyBuf), err)
		}

		chain, _ := m.NextTokens(stateID)
		for _, choice := range chain {
			text, _ := m.TokenText(choice.Id)
			if _, err := stmtMergeChain.ExecContext(ctx, modelID, prefixID, vocabIDs[text], choice.Freq); err != nil {
				return fmt.Errorf("failed to save chain link (%d -> %d): %w", prefixID, vocabIDs[text], err)
			}
			chainsSaved++
		}
	}

	s.logger.InfoContext(ctx, "Model saved",
		slog.String("model_name", m.Name()),
		slog.Int("model_id", modelID),
		slog.Int("states_saved", m.States()),
		slog.Int("chains_saved", chainsSaved),
	)

	return tx.Commit()
}

// LoadModel rebuilds a stored model by name. Only vocabulary and
// prefixes referenced by the model's chains are read back, so a model
// saved with no states loads with an empty vocabulary.
func (s *Store) LoadModel(ctx context.Context, name string) (*markov.Model, error) {
	info, err := s.GetModelInfo(ctx, name)
	if err != nil {
		return nil, err
	}

	rows, err := s.stmtGetChains.QueryContext(ctx, info.Id)
	if err != nil {
		return nil, fmt.Errorf("could not query chains for model '%s': %w", name, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var chains []markov.ExportedChain
	prefixIDs := make(map[int]struct{})
	tokenIDs := make(map[int]struct{})
	for rows.Next() {
		var chain markov.ExportedChain
		if err := rows.Scan(&chain.PrefixID, &chain.NextTokenID, &chain.Frequency); err != nil {
			return nil, err
		}
		chains = append(chains, chain)
		prefixIDs[chain.PrefixID] = struct{}{}
		tokenIDs[chain.NextTokenID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	prefixTexts, err := s.lookupTexts(ctx, "markov_prefixes", "prefix_id", "prefix_text", setKeys(prefixIDs))
	if err != nil {
		return nil, fmt.Errorf("could not load prefixes for model '%s': %w", name, err)
	}
	// Prefix texts are made of vocabulary IDs; pull those in too.
	for _, text := range prefixTexts {
		for _, part := range strings.Split(text, " ") {
			id, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("stored prefix '%s' is malformed: %w", text, err)
			}
			tokenIDs[id] = struct{}{}
		}
	}
	tokenTexts, err := s.lookupTexts(ctx, "markov_vocabulary", "token_id", "token_text", setKeys(tokenIDs))
	if err != nil {
		return nil, fmt.Errorf("could not load vocabulary for model '%s': %w", name, err)
	}

	vocabulary := make(map[string]int, len(tokenTexts))
	for id, text := range tokenTexts {
		vocabulary[text] = id
	}
	prefixes := make(map[string]int, len(prefixTexts))
	for id, text := range prefixTexts {
		prefixes[text] = id
	}
	if chains == nil {
		chains = []markov.ExportedChain{}
	}

	m, err := markov.BuildModel(markov.ExportedModel{
		Name:       name,
		Order:      info.Order,
		Vocabulary: vocabulary,
		Prefixes:   prefixes,
		Chains:     chains,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild model '%s': %w", name, err)
	}

	s.logger.DebugContext(ctx, "Model loaded",
		slog.String("model_name", name),
		slog.Int("model_id", info.Id),
		slog.Int("states_loaded", m.States()),
		slog.Int("chains_loaded", len(chains)),
	)
	return m, nil
}

// DeleteModel removes a model and all of its chain data. Interned
// vocabulary and prefixes stay behind for other models; VocabularyPrune
// cleans those up. The operation is performed within a transaction.
func (s *Store) DeleteModel(ctx context.Context, name string) error {
	info, err := s.GetModelInfo(ctx, name)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.ExecContext(ctx, "DELETE FROM markov_chains WHERE model_id = ?", info.Id); err != nil {
		return fmt.Errorf("failed to remove chains for model %d: %w", info.Id, err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM markov_models WHERE model_id = ?", info.Id); err != nil {
		return fmt.Errorf("failed to remove model %d: %w", info.Id, err)
	}

	s.logger.InfoContext(ctx, "Model removed",
		slog.String("model_name", info.Name),
		slog.Int("model_id", info.Id),
	)

	return tx.Commit()
}

// lookupTexts resolves interning-table IDs to their texts, batching the
// IN clauses to stay under SQLite's bound-parameter limit.
func (s *Store) lookupTexts(ctx context.Context, table, idColumn, textColumn string, ids []int) (map[int]string, error) {
	out := make(map[int]string, len(ids))

	const batchSize = 500
	for i := 0; i < len(ids); i += batchSize {
		end := i + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[i:end]

		args := make([]any, len(batch))
		for j, id := range batch {
			args[j] = id
		}
		query := fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s IN (?%s)",
			idColumn, textColumn, table, idColumn, strings.Repeat(",?", len(batch)-1))

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var id int
			var text string
			if err := rows.Scan(&id, &text); err != nil {
				_ = rows.Close()
				return nil, err
			}
			out[id] = text
		}
		_ = rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func setKeys(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
