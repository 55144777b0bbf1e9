package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// PruneModel deletes all chain links of a stored model whose frequency
// is below minFrequency. Unlike the in-memory prune, this operates on
// the database rows directly; prefixes left without links are simply
// never read back by LoadModel.
func (s *Store) PruneModel(ctx context.Context, name string, minFrequency int) error {
	if minFrequency < 1 {
		return fmt.Errorf("minimum frequency must be at least 1, got %d", minFrequency)
	}
	info, err := s.GetModelInfo(ctx, name)
	if err != nil {
		return err
	}

	res, err := s.stmtPruneModel.ExecContext(ctx, info.Id, minFrequency)
	if err != nil {
		return fmt.Errorf("could not prune model %d: %w", info.Id, err)
	}
	rowsAffected, _ := res.RowsAffected()

	s.logger.InfoContext(ctx, "Model pruned",
		slog.String("model_name", info.Name),
		slog.Int("model_id", info.Id),
		slog.Int("min_frequency", minFrequency),
		slog.Int64("chains_removed", rowsAffected),
	)
	return nil
}

// VocabularyPrune performs a database-wide cleanup, removing tokens
// whose total frequency across all models' chains is below minFrequency.
// This is a destructive operation: chain links and prefixes that rely on
// the removed tokens are deleted from every stored model.
func (s *Store) VocabularyPrune(ctx context.Context, minFrequency int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction for pruning: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	rows, err := tx.QueryContext(ctx,
		`SELECT next_token_id FROM markov_chains GROUP BY next_token_id HAVING SUM(frequency) < ?`,
		minFrequency)
	if err != nil {
		return fmt.Errorf("failed to query for rare tokens: %w", err)
	}

	var rareTokenIDs []int
	rareTokenIDSet := make(map[int]struct{})
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to scan rare token id: %w", err)
		}
		rareTokenIDs = append(rareTokenIDs, id)
		rareTokenIDSet[id] = struct{}{}
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error after iterating rare token rows: %w", err)
	}

	if len(rareTokenIDs) == 0 {
		s.logger.InfoContext(ctx, "No vocabulary to prune",
			slog.Int("min_frequency", minFrequency),
		)
		return tx.Commit()
	}

	// Find the prefixes that mention any rare token. Prefix texts are
	// checked in Go rather than with LIKE patterns against ID substrings.
	pRows, err := tx.QueryContext(ctx, `SELECT prefix_id, prefix_text FROM markov_prefixes`)
	if err != nil {
		return fmt.Errorf("failed to query all prefixes for checking: %w", err)
	}

	var affectedPrefixIDs []int
	for pRows.Next() {
		var prefixID int
		var prefixText string
		if err := pRows.Scan(&prefixID, &prefixText); err != nil {
			_ = pRows.Close()
			return fmt.Errorf("failed to scan prefix row: %w", err)
		}

		for _, idStr := range strings.Split(prefixText, " ") {
			id, _ := strconv.Atoi(idStr)
			if _, isRare := rareTokenIDSet[id]; isRare {
				affectedPrefixIDs = append(affectedPrefixIDs, prefixID)
				break
			}
		}
	}
	_ = pRows.Close()
	if err := pRows.Err(); err != nil {
		return fmt.Errorf("error after iterating prefix rows: %w", err)
	}

	// Deletions run in dependency order: chains, prefixes, vocabulary.
	if err := s.batchDelete(ctx, tx, "markov_chains", "next_token_id", rareTokenIDs); err != nil {
		return fmt.Errorf("failed to prune chains by next_token_id: %w", err)
	}
	if err := s.batchDelete(ctx, tx, "markov_chains", "prefix_id", affectedPrefixIDs); err != nil {
		return fmt.Errorf("failed to prune chains by prefix_id: %w", err)
	}
	if err := s.batchDelete(ctx, tx, "markov_prefixes", "prefix_id", affectedPrefixIDs); err != nil {
		return fmt.Errorf("failed to prune affected prefixes: %w", err)
	}
	if err := s.batchDelete(ctx, tx, "markov_vocabulary", "token_id", rareTokenIDs); err != nil {
		return fmt.Errorf("failed to prune rare tokens from vocabulary: %w", err)
	}

	s.logger.InfoContext(ctx, "Vocabulary pruned",
		slog.Int("min_frequency", minFrequency),
		slog.Int("tokens_removed", len(rareTokenIDs)),
		slog.Int("prefixes_affected", len(affectedPrefixIDs)),
	)

	return tx.Commit()
}

// batchDelete deletes rows by ID list, splitting large lists into
// batches to stay under SQLite's bound-parameter limit.
func (s *Store) batchDelete(ctx context.Context, tx *sql.Tx, table, column string, ids []int) error {
	if len(ids) == 0 {
		return nil
	}

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
		query := fmt.Sprintf("DELETE FROM %s WHERE %s IN (?%s)", table, column, strings.Repeat(",?", len(batch)-1))

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	return nil
}
