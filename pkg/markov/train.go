package markov

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// ctxCheckInterval is how many tokens Train consumes between context
// cancellation checks.
const ctxCheckInterval = 1024

// Train builds a model of the given order from the token stream produced
// by tokenizing r. Every window of order consecutive tokens becomes a
// state, and the token following each window is recorded as a successor
// with its observation count. Repeated transitions accumulate frequency.
//
// A corpus with fewer than order+1 tokens yields a model with no states;
// that model is still valid, it just cannot generate text.
func (g *Generator) Train(ctx context.Context, name string, order int, r io.Reader) (*Model, error) {
	if order < 1 {
		return nil, fmt.Errorf("model order must be at least 1, got %d", order)
	}

	m := newModel(name, order)

	// counts is parallel to m.keys: successor token ID -> frequency.
	var counts []map[int]int

	// window holds up to order+1 token IDs: the state plus its successor.
	window := make([]int, 0, order+1)
	var keyBuf []byte
	tokenCount := 0

	stream := g.tokenizer.NewStream(r)
	for {
		text, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read token stream: %w", err)
		}

		tokenCount++
		if tokenCount%ctxCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}

		window = append(window, m.internToken(text))
		if len(window) <= order {
			continue
		}

		keyBuf = appendStateKey(keyBuf[:0], window[:order])
		stateID := m.internPrefix(string(keyBuf))
		if stateID == len(counts) {
			counts = append(counts, make(map[int]int))
		}
		counts[stateID][window[order]]++

		copy(window, window[1:])
		window = window[:order]
	}

	m.freeze(counts)

	if m.States() == 0 {
		g.logger.WarnContext(ctx, "Corpus shorter than model order, model has no states",
			slog.String("model_name", name),
			slog.Int("model_order", order),
			slog.Int("tokens_processed", tokenCount),
		)
		return m, nil
	}

	g.logger.InfoContext(ctx, "Training completed",
		slog.String("model_name", name),
		slog.Int("model_order", order),
		slog.Int("tokens_processed", tokenCount),
		slog.Int("states", m.States()),
		slog.Int("vocab_size", m.VocabSize()),
	)
	return m, nil
}
