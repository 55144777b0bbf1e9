package markov

import (
	"fmt"
	"log/slog"
)

// PruneModel builds a copy of the model without transitions observed
// fewer than minFrequency times. States left with no successors are
// dropped, as are tokens no surviving state or transition references.
// IDs are recompacted, preserving relative order. The input model is
// not modified.
//
// Pruning can only shrink the reachable chain, so generated walks may
// hit dead ends sooner than on the original model.
func (g *Generator) PruneModel(m *Model, minFrequency int) (*Model, error) {
	if minFrequency < 1 {
		return nil, fmt.Errorf("minimum frequency must be at least 1, got %d", minFrequency)
	}

	keptChains := make([][]ChainToken, len(m.chains))
	keepState := make([]bool, len(m.keys))
	usedTokens := make([]bool, len(m.tokens))
	removedChains := 0
	for stateID, chain := range m.chains {
		var kept []ChainToken
		for _, choice := range chain {
			if choice.Freq >= minFrequency {
				kept = append(kept, choice)
			}
		}
		removedChains += len(chain) - len(kept)
		if len(kept) == 0 {
			continue
		}
		keepState[stateID] = true
		keptChains[stateID] = kept
		for _, choice := range kept {
			usedTokens[choice.Id] = true
		}
		ids, err := splitStateKey(m.keys[stateID])
		if err != nil {
			return nil, fmt.Errorf("failed to decode state key: %w", err)
		}
		for _, id := range ids {
			usedTokens[id] = true
		}
	}

	pruned := newModel(m.name, m.order)

	tokenRemap := make([]int, len(m.tokens))
	for id, used := range usedTokens {
		if used {
			tokenRemap[id] = pruned.internToken(m.tokens[id])
		} else {
			tokenRemap[id] = -1
		}
	}

	var counts []map[int]int
	var keyBuf []byte
	for stateID, keep := range keepState {
		if !keep {
			continue
		}
		ids, err := splitStateKey(m.keys[stateID])
		if err != nil {
			return nil, fmt.Errorf("failed to decode state key: %w", err)
		}
		for i, id := range ids {
			ids[i] = tokenRemap[id]
		}
		keyBuf = appendStateKey(keyBuf[:0], ids)
		pruned.internPrefix(string(keyBuf))

		successors := make(map[int]int, len(keptChains[stateID]))
		for _, choice := range keptChains[stateID] {
			successors[tokenRemap[choice.Id]] = choice.Freq
		}
		counts = append(counts, successors)
	}
	pruned.freeze(counts)

	g.logger.Info("Model pruned",
		slog.String("model_name", m.name),
		slog.Int("min_frequency", minFrequency),
		slog.Int("chains_removed", removedChains),
		slog.Int("states_removed", m.States()-pruned.States()),
		slog.Int("tokens_removed", m.VocabSize()-pruned.VocabSize()),
	)
	return pruned, nil
}
