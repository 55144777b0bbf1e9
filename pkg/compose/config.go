package compose

// Config holds the safety limits and generation defaults for the
// composition engine.
type Config struct {
	// MaxWords is a hard upper limit on the word budget of a single
	// generation call. Template arguments above it are clamped.
	MaxWords int

	// MaxSentences caps the number of sentences a paragraph may request.
	MaxSentences int

	// MaxParagraphs caps the number of paragraphs a single template
	// function call may produce.
	MaxParagraphs int

	// Temperature is passed to every generation call. 1.0 samples with
	// the trained frequencies, lower values favor frequent tokens.
	Temperature float64

	// TopK restricts sampling to the K most frequent successors when
	// above zero.
	TopK int

	// SentenceStart prefers capitalized states when picking where a
	// generation starts.
	SentenceStart bool
}

// DefaultConfig returns a Config with safe default values.
func DefaultConfig() Config {
	return Config{
		MaxWords:      50,
		MaxSentences:  10,
		MaxParagraphs: 20,
		Temperature:   1.0,
		TopK:          0,
		SentenceStart: true,
	}
}
