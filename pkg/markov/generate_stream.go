package markov

import (
	"context"
	"fmt"
	"log/slog"
)

// GenerateStream produces text from a random starting state of the
// model, delivering it word by word on the returned channel. Every word
// after the first arrives with its separator prefixed, so concatenating
// the received strings yields exactly what Generate would have returned.
// The channel is closed when the word budget is spent, a dead end is
// reached, or ctx is canceled.
//
// It returns ErrNoStates when the model has no states.
func (g *Generator) GenerateStream(ctx context.Context, m *Model, opts ...GenerateOption) (<-chan string, error) {
	if m.States() == 0 {
		return nil, ErrNoStates
	}
	options := buildGenerateOptions(opts)

	stateID := pickStartState(m, options)
	words, ok := m.StateTokens(stateID)
	if !ok {
		return nil, fmt.Errorf("failed to resolve starting state %d", stateID)
	}

	ch := make(chan string)
	go func() {
		defer close(ch)
		g.streamChain(ctx, m, stateID, words, options, ch)
	}()
	return ch, nil
}

// streamChain walks the chain from stateID, sending each word on ch
// prefixed with its separator. It stops on budget exhaustion, dead end,
// or context cancellation.
func (g *Generator) streamChain(ctx context.Context, m *Model, stateID int, words []string, options *generateOptions, ch chan<- string) {
	ids, err := splitStateKey(m.keys[stateID])
	if err != nil {
		g.logger.Error("Failed to decode state key",
			slog.String("model_name", m.Name()),
			slog.Any("error", err),
		)
		return
	}

	send := func(chunk string) bool {
		select {
		case ch <- chunk:
			return true
		case <-ctx.Done():
			return false
		}
	}

	sent := 0
	lastWord := ""
	for _, word := range words {
		chunk := word
		if sent > 0 {
			chunk = g.tokenizer.Separator(lastWord, word) + word
		}
		if !send(chunk) {
			return
		}
		lastWord = word
		sent++
	}

	var keyBuf []byte
	for sent < options.maxWords {
		choices, totalFreq := m.NextTokens(stateID)
		if len(choices) == 0 {
			g.logger.Debug("Generation terminated due to dead-end",
				slog.String("model_name", m.Name()),
				slog.Int("generated_length", sent),
			)
			return
		}

		nextID := chooseNextToken(choices, totalFreq, options)
		word := m.tokens[nextID]
		if !send(g.tokenizer.Separator(lastWord, word) + word) {
			return
		}
		lastWord = word
		sent++

		copy(ids, ids[1:])
		ids[len(ids)-1] = nextID
		keyBuf = appendStateKey(keyBuf[:0], ids)
		var ok bool
		stateID, ok = m.prefixes[string(keyBuf)]
		if !ok {
			g.logger.Debug("Generation terminated due to dead-end",
				slog.String("model_name", m.Name()),
				slog.Int("generated_length", sent),
			)
			return
		}
	}
}
