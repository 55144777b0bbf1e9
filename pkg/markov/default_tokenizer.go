package markov

import (
	"bufio"
	"io"
)

// WordTokenizer is the default implementation of the Tokenizer interface.
// It splits input on runs of whitespace and performs no other
// normalization: case is preserved and punctuation stays attached to the
// word it appears with. Tokens are joined with a single space.
type WordTokenizer struct{}

// NewWordTokenizer returns the default whitespace tokenizer.
func NewWordTokenizer() *WordTokenizer {
	return &WordTokenizer{}
}

// Separator returns a single space regardless of the surrounding tokens.
func (t *WordTokenizer) Separator(_, _ string) string {
	return " "
}

// NewStream returns a stream that yields whitespace-delimited words.
func (t *WordTokenizer) NewStream(r io.Reader) StreamTokenizer {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)
	return &wordStream{scanner: scanner}
}

// wordStream adapts a bufio.Scanner in word-splitting mode to the
// StreamTokenizer interface.
type wordStream struct {
	scanner *bufio.Scanner
}

// Next returns the next word from the stream, or io.EOF once the input is
// exhausted. Empty input yields io.EOF immediately.
func (s *wordStream) Next() (string, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.scanner.Text(), nil
}
