package markov

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
)

// ExportedModel is the JSON document form of a model. Vocabulary maps
// token text to token ID, Prefixes maps state keys (token IDs joined by
// single spaces) to state IDs, and Chains lists every observed
// transition. IDs need not be dense or ordered in the document;
// ImportModel remaps them.
type ExportedModel struct {
	Name       string          `json:"name"`
	Order      int             `json:"order"`
	Vocabulary map[string]int  `json:"vocabulary"`
	Prefixes   map[string]int  `json:"prefixes"`
	Chains     []ExportedChain `json:"chains"`
}

// ExportedChain is one observed transition: the state it leaves, the
// token that followed, and how often that was seen.
type ExportedChain struct {
	PrefixID    int `json:"prefix_id"`
	NextTokenID int `json:"next_token_id"`
	Frequency   int `json:"frequency"`
}

// ExportModel writes the model to w as indented JSON. The output is
// deterministic: map keys are sorted by the encoder and chain entries
// follow state then token ID order, so exporting the same model twice
// yields identical bytes.
func (g *Generator) ExportModel(m *Model, w io.Writer) error {
	totalChains := 0
	for _, chain := range m.chains {
		totalChains += len(chain)
	}
	chains := make([]ExportedChain, 0, totalChains)
	for stateID, chain := range m.chains {
		for _, choice := range chain {
			chains = append(chains, ExportedChain{
				PrefixID:    stateID,
				NextTokenID: choice.Id,
				Frequency:   choice.Freq,
			})
		}
	}

	exported := ExportedModel{
		Name:       m.name,
		Order:      m.order,
		Vocabulary: m.vocab,
		Prefixes:   m.prefixes,
		Chains:     chains,
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(exported); err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}

	g.logger.Debug("Model exported",
		slog.String("model_name", m.name),
		slog.Int("states_exported", m.States()),
		slog.Int("chains_exported", totalChains),
	)
	return nil
}

// ImportModel reads a JSON model document from r and rebuilds the model.
// Token and prefix IDs are remapped to dense IDs in ascending document
// order, so an exported model re-exports byte for byte.
//
// The document is validated before use: order must be at least 1,
// vocabulary and prefix IDs must be unique, every prefix must hold
// exactly order known token IDs, every chain entry must reference a
// known prefix and token with a frequency of at least 1, no transition
// may appear twice, and every prefix must have at least one chain entry.
// Violations are reported as model consistency errors.
func (g *Generator) ImportModel(r io.Reader) (*Model, error) {
	var imported struct {
		Name       *string         `json:"name"`
		Order      *int            `json:"order"`
		Vocabulary map[string]int  `json:"vocabulary"`
		Prefixes   map[string]int  `json:"prefixes"`
		Chains     []ExportedChain `json:"chains"`
	}
	if err := json.NewDecoder(r).Decode(&imported); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	if imported.Order == nil {
		return nil, fmt.Errorf("model consistency error: missing order")
	}
	if imported.Vocabulary == nil {
		return nil, fmt.Errorf("model consistency error: missing vocabulary")
	}
	if imported.Prefixes == nil {
		return nil, fmt.Errorf("model consistency error: missing prefixes")
	}
	if imported.Chains == nil {
		return nil, fmt.Errorf("model consistency error: missing chains")
	}

	name := ""
	if imported.Name != nil {
		name = *imported.Name
	}
	m, err := BuildModel(ExportedModel{
		Name:       name,
		Order:      *imported.Order,
		Vocabulary: imported.Vocabulary,
		Prefixes:   imported.Prefixes,
		Chains:     imported.Chains,
	})
	if err != nil {
		return nil, err
	}

	g.logger.Debug("Model imported",
		slog.String("model_name", m.name),
		slog.Int("model_order", m.order),
		slog.Int("states_imported", m.States()),
		slog.Int("vocab_size", m.VocabSize()),
	)
	return m, nil
}

// BuildModel assembles a model from its exported form, applying the same
// ID remapping and consistency checks as ImportModel. It is the one
// construction path for models that do not come from Train.
func BuildModel(exported ExportedModel) (*Model, error) {
	order := exported.Order
	if order < 1 {
		return nil, fmt.Errorf("model consistency error: order must be at least 1, got %d", order)
	}

	m := newModel(exported.Name, order)

	type vocabEntry struct {
		text string
		id   int
	}
	vocabEntries := make([]vocabEntry, 0, len(exported.Vocabulary))
	for text, id := range exported.Vocabulary {
		vocabEntries = append(vocabEntries, vocabEntry{text: text, id: id})
	}
	sort.Slice(vocabEntries, func(i, j int) bool { return vocabEntries[i].id < vocabEntries[j].id })
	tokenRemap := make(map[int]int, len(vocabEntries))
	for _, entry := range vocabEntries {
		if _, ok := tokenRemap[entry.id]; ok {
			return nil, fmt.Errorf("model consistency error: vocabulary ID %d is not unique", entry.id)
		}
		tokenRemap[entry.id] = m.internToken(entry.text)
	}

	type prefixEntry struct {
		key string
		id  int
	}
	prefixEntries := make([]prefixEntry, 0, len(exported.Prefixes))
	for key, id := range exported.Prefixes {
		prefixEntries = append(prefixEntries, prefixEntry{key: key, id: id})
	}
	sort.Slice(prefixEntries, func(i, j int) bool { return prefixEntries[i].id < prefixEntries[j].id })
	prefixRemap := make(map[int]int, len(prefixEntries))
	var keyBuf []byte
	for _, entry := range prefixEntries {
		if _, ok := prefixRemap[entry.id]; ok {
			return nil, fmt.Errorf("model consistency error: prefix ID %d is not unique", entry.id)
		}
		ids, err := splitStateKey(entry.key)
		if err != nil {
			return nil, fmt.Errorf("model consistency error: invalid prefix key %q", entry.key)
		}
		if len(ids) != order {
			return nil, fmt.Errorf("model consistency error: prefix %q has %d tokens, want %d", entry.key, len(ids), order)
		}
		for i, id := range ids {
			newID, ok := tokenRemap[id]
			if !ok {
				return nil, fmt.Errorf("model consistency error: prefix %q references unknown token ID %d", entry.key, id)
			}
			ids[i] = newID
		}
		keyBuf = appendStateKey(keyBuf[:0], ids)
		key := string(keyBuf)
		if _, ok := m.prefixes[key]; ok {
			return nil, fmt.Errorf("model consistency error: duplicate prefix %q", entry.key)
		}
		prefixRemap[entry.id] = m.internPrefix(key)
	}

	counts := make([]map[int]int, len(m.keys))
	for i := range counts {
		counts[i] = make(map[int]int)
	}
	for _, chain := range exported.Chains {
		stateID, ok := prefixRemap[chain.PrefixID]
		if !ok {
			return nil, fmt.Errorf("model consistency error: chain references unknown prefix ID %d", chain.PrefixID)
		}
		tokenID, ok := tokenRemap[chain.NextTokenID]
		if !ok {
			return nil, fmt.Errorf("model consistency error: chain references unknown token ID %d", chain.NextTokenID)
		}
		if chain.Frequency < 1 {
			return nil, fmt.Errorf("model consistency error: chain frequency must be at least 1, got %d", chain.Frequency)
		}
		if _, ok := counts[stateID][tokenID]; ok {
			return nil, fmt.Errorf("model consistency error: duplicate chain entry for prefix ID %d and token ID %d",
				chain.PrefixID, chain.NextTokenID)
		}
		counts[stateID][tokenID] = chain.Frequency
	}
	for stateID, successors := range counts {
		if len(successors) == 0 {
			return nil, fmt.Errorf("model consistency error: prefix %q has no chain entries", prefixEntries[stateID].key)
		}
	}

	m.freeze(counts)
	return m, nil
}
