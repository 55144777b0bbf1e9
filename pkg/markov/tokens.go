package markov

import (
	"errors"
	"io"
)

// Tokenizer splits text into tokens and knows how to join tokens back
// into text. Implementations must be safe for concurrent use; every
// NewStream call returns an independent stream.
type Tokenizer interface {
	// NewStream returns a stream of tokens read from r.
	NewStream(r io.Reader) StreamTokenizer

	// Separator returns the string to insert between two adjacent tokens
	// when rendering generated text.
	Separator(prev, next string) string
}

// StreamTokenizer yields tokens one at a time. Next returns io.EOF when
// the input is exhausted. Yielded tokens are never empty and never
// contain whitespace.
type StreamTokenizer interface {
	Next() (string, error)
}

// allTokens drains a stream into a slice.
func allTokens(stream StreamTokenizer) ([]string, error) {
	var tokens []string
	for {
		text, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return tokens, nil
			}
			return nil, err
		}
		tokens = append(tokens, text)
	}
}
