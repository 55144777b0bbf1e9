package store

import (
	"context"
)

// DBStats holds aggregated statistics for the entire database, including
// a list of all models and their individual stats.
type DBStats struct {
	Models     []ModelInfo        // all models in the database
	Stats      map[int]ModelStats // model ID -> its stats
	VocabSize  int                // unique tokens across all models
	PrefixSize int                // unique prefixes across all models
}

// ModelStats holds aggregated statistics for a single stored model.
type ModelStats struct {
	TotalChains    int // unique prefix -> next_token links
	TotalFrequency int // sum of link frequencies; the number of trained transitions
	Prefixes       int // unique prefixes the model's chains start from
}

// GetStats returns a snapshot of statistics for the entire database,
// including global counts and per-model stats.
func (s *Store) GetStats(ctx context.Context) (*DBStats, error) {
	modelInfos, err := s.GetModelInfos(ctx)
	if err != nil {
		return nil, err
	}

	var vocabLen int
	if err = s.stmtGetVocabLen.QueryRowContext(ctx).Scan(&vocabLen); err != nil {
		return nil, err
	}

	var prefixLen int
	if err = s.stmtGetPrefixLen.QueryRowContext(ctx).Scan(&prefixLen); err != nil {
		return nil, err
	}

	models := make([]ModelInfo, 0, len(modelInfos))
	modelStats := make(map[int]ModelStats)
	for _, info := range modelInfos {
		models = append(models, info)

		var totalChains, totalFrequency, prefixes int
		if err = s.stmtModelChains.QueryRowContext(ctx, info.Id).Scan(&totalChains); err != nil {
			return nil, err
		}
		if err = s.stmtModelFreq.QueryRowContext(ctx, info.Id).Scan(&totalFrequency); err != nil {
			return nil, err
		}
		if err = s.stmtModelPrefixes.QueryRowContext(ctx, info.Id).Scan(&prefixes); err != nil {
			return nil, err
		}

		modelStats[info.Id] = ModelStats{
			TotalChains:    totalChains,
			TotalFrequency: totalFrequency,
			Prefixes:       prefixes,
		}
	}

	return &DBStats{
		Models:     models,
		Stats:      modelStats,
		VocabSize:  vocabLen,
		PrefixSize: prefixLen,
	}, nil
}
