package markov

import (
	"io"
	"log/slog"
)

// Generator trains Markov chain models and generates text from them. The
// zero value is not usable; construct with NewGenerator.
//
// A Generator holds no model state of its own, so one Generator may be
// shared across goroutines and used with any number of models.
type Generator struct {
	tokenizer Tokenizer
	logger    *slog.Logger
}

// NewGenerator creates a Generator that tokenizes input with the given
// tokenizer. Logging is discarded until SetLogger is called.
func NewGenerator(tokenizer Tokenizer) *Generator {
	return &Generator{
		tokenizer: tokenizer,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the logger for the Generator. By default, all logs are
// discarded.
func (g *Generator) SetLogger(logger *slog.Logger) {
	if logger != nil {
		g.logger = logger
	}
}

// Tokenizer returns the tokenizer the generator was constructed with.
func (g *Generator) Tokenizer() Tokenizer {
	return g.tokenizer
}
