package markov

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// ErrNoStates is returned when generation is requested from a model
	// that holds no states, e.g. one built from a corpus shorter than its
	// order. The model itself is valid; it just cannot produce text.
	ErrNoStates = errors.New("model has no states")

	// ErrOrderMismatch is returned when a model's order disagrees with the
	// order the caller asked for.
	ErrOrderMismatch = errors.New("model order mismatch")

	// ErrUnknownToken is returned when a seed token does not appear in the
	// model's vocabulary.
	ErrUnknownToken = errors.New("token not found in model vocabulary")
)

// ChainToken represents a potential next token after a given state,
// identified by its vocabulary ID together with its observed frequency.
type ChainToken struct {
	Id   int
	Freq int
}

// Model is a trained n-gram Markov chain. Every state is a window of
// exactly Order consecutive corpus tokens, mapped to the non-empty set of
// tokens observed to follow that window, each with a frequency >= 1.
//
// Tokens and states are interned to dense integer IDs in first-observation
// order. State keys are the token IDs joined by single spaces, which makes
// equal windows compare equal no matter how they were produced. Successor
// lists are kept sorted by token ID so the weighted sampling walk visits
// them in one canonical order.
//
// A Model is immutable after Train or ImportModel returns it and is safe
// for concurrent readers.
type Model struct {
	name  string
	order int

	vocab  map[string]int // token text -> token ID
	tokens []string       // token ID -> token text

	prefixes map[string]int // state key -> state ID
	keys     []string       // state ID -> state key

	chains [][]ChainToken // state ID -> successors, ascending token ID
	totals []int          // state ID -> sum of successor frequencies

	starters []int // state IDs whose first token begins with an upper-case letter
}

// Name returns the model's name. The name is carried through
// serialization but has no effect on behavior.
func (m *Model) Name() string { return m.name }

// Order returns the number of tokens per state.
func (m *Model) Order() int { return m.order }

// States returns the number of distinct states in the model.
func (m *Model) States() int { return len(m.keys) }

// VocabSize returns the number of distinct tokens the model has seen.
func (m *Model) VocabSize() int { return len(m.tokens) }

// TokenID looks up a token string in the vocabulary and returns its ID.
func (m *Model) TokenID(text string) (int, bool) {
	id, ok := m.vocab[text]
	return id, ok
}

// TokenText looks up a token ID in the vocabulary and returns its text.
func (m *Model) TokenText(id int) (string, bool) {
	if id < 0 || id >= len(m.tokens) {
		return "", false
	}
	return m.tokens[id], true
}

// StateID resolves a tuple of tokens to its state ID. It returns false
// when the tuple has the wrong length, contains unknown tokens, or was
// never observed as a window in the corpus.
func (m *Model) StateID(tokens ...string) (int, bool) {
	if len(tokens) != m.order {
		return 0, false
	}
	ids := make([]int, len(tokens))
	for i, text := range tokens {
		id, ok := m.vocab[text]
		if !ok {
			return 0, false
		}
		ids[i] = id
	}
	id, ok := m.prefixes[string(appendStateKey(nil, ids))]
	return id, ok
}

// StateTokens returns the token tuple for a state ID.
func (m *Model) StateTokens(id int) ([]string, bool) {
	if id < 0 || id >= len(m.keys) {
		return nil, false
	}
	ids, err := splitStateKey(m.keys[id])
	if err != nil {
		return nil, false
	}
	tokens := make([]string, len(ids))
	for i, tokenID := range ids {
		tokens[i] = m.tokens[tokenID]
	}
	return tokens, true
}

// NextTokens returns all possible successors for a state ID along with
// the sum of their frequencies. An unknown state ID yields a nil slice
// and a total of 0; that is the dead-end condition, not an error. The
// returned slice is shared with the model and must not be modified.
func (m *Model) NextTokens(stateID int) ([]ChainToken, int) {
	if stateID < 0 || stateID >= len(m.chains) {
		return nil, 0
	}
	return m.chains[stateID], m.totals[stateID]
}

// newModel allocates an empty model shell for Train and ImportModel to
// populate.
func newModel(name string, order int) *Model {
	return &Model{
		name:     name,
		order:    order,
		vocab:    make(map[string]int),
		prefixes: make(map[string]int),
	}
}

// internToken returns the ID for a token, assigning the next dense ID on
// first sight.
func (m *Model) internToken(text string) int {
	if id, ok := m.vocab[text]; ok {
		return id
	}
	id := len(m.tokens)
	m.vocab[text] = id
	m.tokens = append(m.tokens, text)
	return id
}

// internPrefix returns the state ID for a key, assigning the next dense
// ID on first sight.
func (m *Model) internPrefix(key string) int {
	if id, ok := m.prefixes[key]; ok {
		return id
	}
	id := len(m.keys)
	m.prefixes[key] = id
	m.keys = append(m.keys, key)
	return id
}

// freeze turns per-state successor counts into the model's canonical
// form: chains sorted ascending by token ID, cached frequency totals,
// and the derived starter set. counts is parallel to m.keys.
func (m *Model) freeze(counts []map[int]int) {
	m.chains = make([][]ChainToken, len(counts))
	m.totals = make([]int, len(counts))
	for stateID, successors := range counts {
		chain := make([]ChainToken, 0, len(successors))
		total := 0
		for tokenID, freq := range successors {
			chain = append(chain, ChainToken{Id: tokenID, Freq: freq})
			total += freq
		}
		sort.Slice(chain, func(i, j int) bool { return chain[i].Id < chain[j].Id })
		m.chains[stateID] = chain
		m.totals[stateID] = total
	}
	m.computeStarters()
}

// computeStarters records which states begin with a capitalized token,
// for the sentence-start seed policy. Derived data; recomputed on import
// rather than serialized.
func (m *Model) computeStarters() {
	m.starters = m.starters[:0]
	for stateID, key := range m.keys {
		sep := strings.IndexByte(key, ' ')
		if sep < 0 {
			sep = len(key)
		}
		tokenID, err := strconv.Atoi(key[:sep])
		if err != nil || tokenID >= len(m.tokens) {
			continue
		}
		r, _ := utf8.DecodeRuneInString(m.tokens[tokenID])
		if unicode.IsUpper(r) {
			m.starters = append(m.starters, stateID)
		}
	}
}

// appendStateKey appends the canonical key encoding of a token ID window
// to buf: the decimal IDs joined by single spaces.
func appendStateKey(buf []byte, ids []int) []byte {
	for i, tokenID := range ids {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = strconv.AppendInt(buf, int64(tokenID), 10)
	}
	return buf
}

// splitStateKey decodes a state key back into its token IDs.
func splitStateKey(key string) ([]int, error) {
	parts := strings.Split(key, " ")
	ids := make([]int, len(parts))
	for i, part := range parts {
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}
