package markov

// ModelStats summarizes a model's contents.
type ModelStats struct {
	Name           string
	Order          int
	States         int
	VocabSize      int
	Chains         int // distinct transitions
	TotalFrequency int // sum of all transition frequencies
	TerminalChains int // transitions whose destination window is not a state
	Starters       int // states whose first token is capitalized
}

// Stats walks the model once and reports its size and shape.
func (g *Generator) Stats(m *Model) ModelStats {
	stats := ModelStats{
		Name:      m.name,
		Order:     m.order,
		States:    m.States(),
		VocabSize: m.VocabSize(),
		Starters:  len(m.starters),
	}

	var keyBuf []byte
	next := make([]int, m.order)
	for stateID, chain := range m.chains {
		stats.Chains += len(chain)
		stats.TotalFrequency += m.totals[stateID]

		ids, err := splitStateKey(m.keys[stateID])
		if err != nil {
			continue
		}
		for _, choice := range chain {
			copy(next, ids[1:])
			next[len(next)-1] = choice.Id
			keyBuf = appendStateKey(keyBuf[:0], next)
			if _, ok := m.prefixes[string(keyBuf)]; !ok {
				stats.TerminalChains++
			}
		}
	}
	return stats
}
