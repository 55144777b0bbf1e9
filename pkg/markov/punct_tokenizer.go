package markov

import (
	"bufio"
	"io"
	"regexp"
)

// PunctTokenizer splits input into words and standalone punctuation
// tokens using regular expressions, so "stop." trains as the two tokens
// "stop" and ".". This is an explicit alternative to the default
// whitespace splitting; it changes what a model's states look like, so a
// model must be generated with the same tokenizer it was trained with.
// Its behavior can be customized with functional options.
type PunctTokenizer struct {
	separator    string
	splitRegex   *regexp.Regexp
	noSpaceRegex *regexp.Regexp
}

// PunctOption is a function that configures a PunctTokenizer.
type PunctOption func(*PunctTokenizer)

// WithSeparator sets the string used for joining tokens during generation.
// Default: " "
func WithSeparator(sep string) PunctOption {
	return func(t *PunctTokenizer) {
		t.separator = sep
	}
}

// WithSplitRegex sets the regex used to extract tokens from input text.
// Default: `[\w']+|[.,!?;]`
func WithSplitRegex(splitRegex string) PunctOption {
	return func(t *PunctTokenizer) {
		t.splitRegex = regexp.MustCompile(splitRegex)
	}
}

// WithNoSpaceRegex sets the regex deciding which tokens get no separator
// placed before them when joining output. Default: `^[.,!?;]`
func WithNoSpaceRegex(noSpaceRegex string) PunctOption {
	return func(t *PunctTokenizer) {
		t.noSpaceRegex = regexp.MustCompile(noSpaceRegex)
	}
}

// NewPunctTokenizer creates a punctuation-splitting tokenizer with default
// settings, which can be overridden with one or more PunctOption functions.
func NewPunctTokenizer(opts ...PunctOption) *PunctTokenizer {
	t := &PunctTokenizer{
		separator: " ",
		// Sequences of word characters (plus apostrophes), or single
		// instances of common punctuation.
		splitRegex: regexp.MustCompile(`[\w']+|[.,!?;]`),
		// Punctuation reads as attached to the preceding word, so no
		// separator goes before it.
		noSpaceRegex: regexp.MustCompile(`^[.,!?;]`),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Separator returns the configured separator, or the empty string when
// the next token is one that attaches directly to its predecessor.
func (t *PunctTokenizer) Separator(_, next string) string {
	if t.noSpaceRegex.MatchString(next) {
		return ""
	}
	return t.separator
}

// NewStream returns a stream that yields regexp-extracted tokens.
func (t *PunctTokenizer) NewStream(r io.Reader) StreamTokenizer {
	return &punctStream{
		scanner:    bufio.NewScanner(r),
		splitRegex: t.splitRegex,
	}
}

// punctStream tokenizes line by line, buffering the matches of each line.
type punctStream struct {
	scanner    *bufio.Scanner
	buffer     []string
	splitRegex *regexp.Regexp
}

// Next returns the next token from the stream, or io.EOF once the input
// is exhausted. Any other error indicates a problem reading from the
// underlying stream.
func (s *punctStream) Next() (string, error) {
	for len(s.buffer) == 0 { // Loop until a line produces tokens
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		s.buffer = s.splitRegex.FindAllString(s.scanner.Text(), -1)
	}

	word := s.buffer[0]
	s.buffer = s.buffer[1:]
	return word, nil
}
