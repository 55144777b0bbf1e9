package markov

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
)

// DefaultMaxWords is the generation length limit used when WithMaxWords
// is not given.
const DefaultMaxWords = 100

type generateOptions struct {
	maxWords      int
	temperature   float64
	topK          int
	sentenceStart bool
	rng           *rand.Rand
}

// GenerateOption configures text generation.
type GenerateOption func(*generateOptions)

// WithMaxWords sets the total word budget for the generated text,
// counting the starting state. The budget never truncates a seed: when
// the seed alone meets or exceeds it, the output is exactly the seed.
func WithMaxWords(n int) GenerateOption {
	return func(o *generateOptions) {
		o.maxWords = n
	}
}

// WithTemperature adjusts sampling randomness. 1.0 samples successors by
// their observed frequencies, values below 1.0 favor frequent successors,
// values above 1.0 flatten the distribution, and 0 or less always picks
// the most frequent successor.
func WithTemperature(t float64) GenerateOption {
	return func(o *generateOptions) {
		o.temperature = t
	}
}

// WithTopK restricts sampling to the k most frequent successors of each
// state. 0 disables the restriction.
func WithTopK(k int) GenerateOption {
	return func(o *generateOptions) {
		o.topK = k
	}
}

// WithSentenceStart makes Generate prefer starting states whose first
// token is capitalized. Models with no such state fall back to a uniform
// pick over all states.
func WithSentenceStart(enabled bool) GenerateOption {
	return func(o *generateOptions) {
		o.sentenceStart = enabled
	}
}

// WithRand supplies the random source used for picking the starting
// state and walking the chain. Generation with the same model, options
// and source state is reproducible. When not set, each call uses a fresh
// randomly seeded source.
func WithRand(rng *rand.Rand) GenerateOption {
	return func(o *generateOptions) {
		o.rng = rng
	}
}

func buildGenerateOptions(opts []GenerateOption) *generateOptions {
	options := &generateOptions{
		maxWords:    DefaultMaxWords,
		temperature: 1.0,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.rng == nil {
		options.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return options
}

// Generate produces text from a random starting state of the model,
// walking the chain until the word budget is spent or a dead end is
// reached. It returns ErrNoStates when the model has no states.
func (g *Generator) Generate(m *Model, opts ...GenerateOption) (string, error) {
	if m.States() == 0 {
		return "", ErrNoStates
	}
	options := buildGenerateOptions(opts)

	stateID := pickStartState(m, options)
	words, ok := m.StateTokens(stateID)
	if !ok {
		return "", fmt.Errorf("failed to resolve starting state %d", stateID)
	}
	return g.generateChain(m, stateID, words, options)
}

// GenerateFrom produces text continuing from a seed phrase. The seed is
// tokenized with the generator's tokenizer, must contain at least Order
// tokens, and every seed token must be in the model's vocabulary; its
// last Order tokens form the starting state. The full seed appears at
// the start of the output even when it exceeds the word budget. A seed
// window the model never observed is a dead end, so the output is the
// seed alone.
func (g *Generator) GenerateFrom(m *Model, seed string, opts ...GenerateOption) (string, error) {
	if m.States() == 0 {
		return "", ErrNoStates
	}
	options := buildGenerateOptions(opts)

	words, err := allTokens(g.tokenizer.NewStream(strings.NewReader(seed)))
	if err != nil {
		return "", fmt.Errorf("failed to tokenize seed: %w", err)
	}
	if len(words) < m.order {
		return "", fmt.Errorf("seed must contain at least %d tokens, got %d", m.order, len(words))
	}

	ids := make([]int, len(words))
	for i, text := range words {
		id, ok := m.vocab[text]
		if !ok {
			return "", fmt.Errorf("seed token %q: %w", text, ErrUnknownToken)
		}
		ids[i] = id
	}

	stateID, ok := m.prefixes[string(appendStateKey(nil, ids[len(ids)-m.order:]))]
	if !ok {
		g.logger.Debug("Seed window not in model, returning seed unchanged",
			slog.String("model_name", m.Name()),
			slog.Int("seed_length", len(words)),
		)
		return g.joinTokens(words), nil
	}
	return g.generateChain(m, stateID, words, options)
}

// pickStartState chooses the state generation begins from.
func pickStartState(m *Model, options *generateOptions) int {
	if options.sentenceStart && len(m.starters) > 0 {
		return m.starters[options.rng.IntN(len(m.starters))]
	}
	return options.rng.IntN(m.States())
}

// generateChain walks the chain from stateID, appending sampled tokens
// to words until the budget is spent or a dead end stops the walk.
func (g *Generator) generateChain(m *Model, stateID int, words []string, options *generateOptions) (string, error) {
	ids, err := splitStateKey(m.keys[stateID])
	if err != nil {
		return "", fmt.Errorf("failed to decode state key: %w", err)
	}

	var keyBuf []byte
	for len(words) < options.maxWords {
		choices, totalFreq := m.NextTokens(stateID)
		if len(choices) == 0 {
			g.logger.Debug("Generation terminated due to dead-end",
				slog.String("model_name", m.Name()),
				slog.Int("generated_length", len(words)),
			)
			break
		}

		nextID := chooseNextToken(choices, totalFreq, options)
		words = append(words, m.tokens[nextID])

		copy(ids, ids[1:])
		ids[len(ids)-1] = nextID
		keyBuf = appendStateKey(keyBuf[:0], ids)
		var ok bool
		stateID, ok = m.prefixes[string(keyBuf)]
		if !ok {
			g.logger.Debug("Generation terminated due to dead-end",
				slog.String("model_name", m.Name()),
				slog.Int("generated_length", len(words)),
			)
			break
		}
	}

	g.logger.Debug("Generation completed",
		slog.String("model_name", m.Name()),
		slog.Int("generated_length", len(words)),
	)
	return g.joinTokens(words), nil
}

// joinTokens renders a token sequence as text using the tokenizer's
// separator rules.
func (g *Generator) joinTokens(words []string) string {
	var sb strings.Builder
	for i, word := range words {
		if i > 0 {
			sb.WriteString(g.tokenizer.Separator(words[i-1], word))
		}
		sb.WriteString(word)
	}
	return sb.String()
}

// chooseNextToken picks a successor token ID from choices. The caller
// guarantees choices is non-empty and sorted ascending by token ID, and
// totalFreq is the sum of all frequencies in it.
func chooseNextToken(choices []ChainToken, totalFreq int, options *generateOptions) int {
	if options.topK > 0 && options.topK < len(choices) {
		sorted := make([]ChainToken, len(choices))
		copy(sorted, choices)
		sort.Slice(sorted, func(i, j int) bool {
			if sorted[i].Freq != sorted[j].Freq {
				return sorted[i].Freq > sorted[j].Freq
			}
			return sorted[i].Id < sorted[j].Id
		})
		choices = sorted[:options.topK]
		totalFreq = 0
		for _, choice := range choices {
			totalFreq += choice.Freq
		}
	}

	if options.temperature <= 0 {
		best := choices[0]
		for _, choice := range choices[1:] {
			if choice.Freq > best.Freq {
				best = choice
			}
		}
		return best.Id
	}

	if options.temperature == 1.0 {
		randChoice := options.rng.IntN(totalFreq)
		for _, choice := range choices {
			randChoice -= choice.Freq
			if randChoice < 0 {
				return choice.Id
			}
		}
		return choices[len(choices)-1].Id
	}

	logProbs := make([]float64, len(choices))
	maxLogProb := math.Inf(-1)
	for i, choice := range choices {
		logProbs[i] = math.Log(float64(choice.Freq)) / options.temperature
		if logProbs[i] > maxLogProb {
			maxLogProb = logProbs[i]
		}
	}

	weights := make([]float64, len(choices))
	totalWeight := 0.0
	for i, lp := range logProbs {
		weights[i] = math.Exp(lp - maxLogProb)
		totalWeight += weights[i]
	}

	r := options.rng.Float64() * totalWeight
	for i, w := range weights {
		r -= w
		if r < 0 {
			return choices[i].Id
		}
	}
	return choices[len(choices)-1].Id
}
