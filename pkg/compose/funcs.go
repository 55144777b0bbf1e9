package compose

import (
	"log/slog"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/garrulax/garrulax/pkg/markov"
)

// word returns a single random token from a model's vocabulary.
func (m *Manager) word(modelName string) string {
	model, ok := m.model(modelName)
	if !ok {
		m.logger.Error("word: model not found", slog.String("model_name", modelName))
		return ""
	}
	if model.VocabSize() == 0 {
		return ""
	}
	text, _ := model.TokenText(m.intN(model.VocabSize()))
	return text
}

// sentence generates one sentence of at most maxWords words. The result
// is capitalized and finished with terminal punctuation. Failures are
// logged and render as an empty string so the template keeps going.
func (m *Manager) sentence(modelName string, maxWords int) string {
	model, ok := m.model(modelName)
	if !ok {
		m.logger.Error("sentence: model not found", slog.String("model_name", modelName))
		return ""
	}

	config := m.GetConfig()
	text, err := m.generate(model, m.generateOpts(config, maxWords))
	if err != nil {
		m.logger.Error("sentence: generation failed",
			slog.String("model_name", modelName),
			slog.Any("error", err),
		)
		return ""
	}
	return finishSentence(text)
}

// seeded continues generating from seed text, keeping the seed at the
// start of the result. The seed is returned untouched, so no sentence
// finishing is applied.
func (m *Manager) seeded(modelName, seed string, maxWords int) string {
	model, ok := m.model(modelName)
	if !ok {
		m.logger.Error("seeded: model not found", slog.String("model_name", modelName))
		return ""
	}

	config := m.GetConfig()
	text, err := m.generateFrom(model, seed, m.generateOpts(config, maxWords))
	if err != nil {
		m.logger.Error("seeded: generation failed",
			slog.String("model_name", modelName),
			slog.Any("error", err),
		)
		return ""
	}
	return text
}

// paragraph generates a single paragraph. The sentence count is drawn
// from [minSentences, maxSentences) and each sentence's word budget
// from [minWords, maxWords).
func (m *Manager) paragraph(modelName string, minSentences, maxSentences, minWords, maxWords int) string {
	config := m.GetConfig()
	numSentences := m.randInt(minSentences, maxSentences)
	if numSentences > config.MaxSentences {
		numSentences = config.MaxSentences
	}

	var builder strings.Builder
	for i := 0; i < numSentences; i++ {
		sentence := m.sentence(modelName, m.randInt(minWords, maxWords))
		if sentence == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteByte(' ')
		}
		builder.WriteString(sentence)
	}
	return builder.String()
}

// paragraphs generates count paragraphs separated by blank lines.
func (m *Manager) paragraphs(modelName string, count, minSentences, maxSentences, minWords, maxWords int) string {
	config := m.GetConfig()
	if count > config.MaxParagraphs {
		count = config.MaxParagraphs
	}

	var builder strings.Builder
	for i := 0; i < count; i++ {
		if i > 0 {
			builder.WriteString("\n\n")
		}
		builder.WriteString(m.paragraph(modelName, minSentences, maxSentences, minWords, maxWords))
	}
	return builder.String()
}

// generateOpts translates the engine config and a requested word budget
// into generation options. The budget is clamped to the configured cap.
func (m *Manager) generateOpts(config Config, maxWords int) []markov.GenerateOption {
	budget := min(maxWords, config.MaxWords)
	if budget < 1 {
		budget = 1
	}
	opts := []markov.GenerateOption{
		markov.WithMaxWords(budget),
		markov.WithTemperature(config.Temperature),
		markov.WithSentenceStart(config.SentenceStart),
	}
	if config.TopK > 0 {
		opts = append(opts, markov.WithTopK(config.TopK))
	}
	return opts
}

// finishSentence capitalizes the first rune and appends a period unless
// the text already ends with terminal punctuation.
func finishSentence(text string) string {
	if text == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(text)
	if unicode.IsLower(r) {
		text = string(unicode.ToUpper(r)) + text[size:]
	}
	switch text[len(text)-1] {
	case '.', '!', '?':
		return text
	}
	return text + "."
}

// choose selects a random element from a slice. Non-slice values and
// empty slices yield nil.
func (m *Manager) choose(slice any) any {
	if slice == nil {
		return nil
	}

	val := reflect.ValueOf(slice)
	if val.Kind() != reflect.Slice || val.Len() == 0 {
		return nil
	}
	return val.Index(m.intN(val.Len())).Interface()
}

// randInt returns a random integer within the range [low, high).
func (m *Manager) randInt(low, high int) int {
	if low >= high {
		return low
	}
	return m.intN(high-low) + low
}

// repeat returns a slice of integers from 0 to count-1, for range
// loops in templates.
func repeat(count int) []int {
	if count < 0 {
		return []int{}
	}
	s := make([]int, count)
	for i := range s {
		s[i] = i
	}
	return s
}

// list returns a slice containing all the arguments passed to it.
func list(args ...any) []any {
	return args
}

// add returns a + b.
func add(a, b int) int {
	return a + b
}

// sub returns a - b.
func sub(a, b int) int {
	return a - b
}

// mult returns a * b.
func mult(a, b int) int {
	return a * b
}

// div returns a / b (integer division). Returns 0 if b is 0.
func div(a, b int) int {
	if b == 0 {
		return 0
	}
	return a / b
}

// mod returns a % b. Returns 0 if b is 0.
func mod(a, b int) int {
	if b == 0 {
		return 0
	}
	return a % b
}

// inc returns i + 1.
func inc(i int) int {
	return i + 1
}

// dec returns i - 1.
func dec(i int) int {
	return i - 1
}
