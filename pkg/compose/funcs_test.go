package compose

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testVocab = []string{"one", "two", "three", "four", "five"}

func TestWordFunc(t *testing.T) {
	mgr := newTestManager(t)
	out := render(t, mgr, `{{word "test"}}`, nil)
	assert.Contains(t, testVocab, out)
}

func TestWordUnknownModel(t *testing.T) {
	mgr := newTestManager(t)
	var logBuf bytes.Buffer
	mgr.SetLogger(slog.New(slog.NewTextHandler(&logBuf, nil)))

	out := render(t, mgr, `{{word "missing"}}`, nil)
	assert.Empty(t, out)
	assert.Contains(t, logBuf.String(), "model not found")
}

func TestSentenceFunc(t *testing.T) {
	mgr := newTestManager(t)
	out := render(t, mgr, `{{sentence "test" 5}}`, nil)

	require.NotEmpty(t, out)
	first := []rune(out)[0]
	assert.True(t, unicode.IsUpper(first), "sentence should start capitalized: %q", out)
	assert.True(t, strings.HasSuffix(out, "."), "sentence should end with a period: %q", out)
	assert.LessOrEqual(t, len(strings.Fields(out)), 5)
}

func TestSentenceClampsBudget(t *testing.T) {
	mgr := newTestManager(t)
	config := DefaultConfig()
	config.MaxWords = 3
	mgr.SetConfig(config)

	out := render(t, mgr, `{{sentence "test" 50}}`, nil)
	assert.LessOrEqual(t, len(strings.Fields(out)), 3)
}

func TestSeededFunc(t *testing.T) {
	mgr := newTestManager(t)
	out := render(t, mgr, `{{seeded "test" "one two" 6}}`, nil)
	assert.True(t, strings.HasPrefix(out, "one two"), "seed should lead the output: %q", out)
	assert.LessOrEqual(t, len(strings.Fields(out)), 6)
}

func TestSeededUnknownToken(t *testing.T) {
	mgr := newTestManager(t)
	var logBuf bytes.Buffer
	mgr.SetLogger(slog.New(slog.NewTextHandler(&logBuf, nil)))

	out := render(t, mgr, `{{seeded "test" "zebra" 6}}`, nil)
	assert.Empty(t, out)
	assert.Contains(t, logBuf.String(), "generation failed")
}

func TestParagraphFunc(t *testing.T) {
	mgr := newTestManager(t)
	out := render(t, mgr, `{{paragraph "test" 2 4 3 6}}`, nil)

	require.NotEmpty(t, out)
	assert.NotContains(t, out, "\n")
	periods := strings.Count(out, ".")
	assert.GreaterOrEqual(t, periods, 2)
	assert.LessOrEqual(t, periods, 3)
}

func TestParagraphClampsSentences(t *testing.T) {
	mgr := newTestManager(t)
	config := DefaultConfig()
	config.MaxSentences = 1
	mgr.SetConfig(config)

	out := render(t, mgr, `{{paragraph "test" 5 9 3 6}}`, nil)
	assert.Equal(t, 1, strings.Count(out, "."))
}

func TestParagraphsFunc(t *testing.T) {
	mgr := newTestManager(t)
	out := render(t, mgr, `{{paragraphs "test" 3 1 2 3 5}}`, nil)
	assert.Equal(t, 2, strings.Count(out, "\n\n"))
}

func TestParagraphsClampsCount(t *testing.T) {
	mgr := newTestManager(t)
	config := DefaultConfig()
	config.MaxParagraphs = 2
	mgr.SetConfig(config)

	out := render(t, mgr, `{{paragraphs "test" 10 1 2 3 5}}`, nil)
	assert.Equal(t, 1, strings.Count(out, "\n\n"))
}

func TestParagraphsZeroCount(t *testing.T) {
	mgr := newTestManager(t)
	out := render(t, mgr, `{{paragraphs "test" 0 1 2 3 5}}`, nil)
	assert.Empty(t, out)
}

func TestRepeatAndList(t *testing.T) {
	mgr := newTestManager(t)

	assert.Equal(t, "xxx", render(t, mgr, `{{range repeat 3}}x{{end}}`, nil))
	assert.Equal(t, "", render(t, mgr, `{{range repeat -1}}x{{end}}`, nil))
	assert.Equal(t, "b", render(t, mgr, `{{index (list "a" "b") 1}}`, nil))
}

func TestChoose(t *testing.T) {
	mgr := newTestManager(t)

	assert.Equal(t, "z", render(t, mgr, `{{choose (list "z" "z" "z")}}`, nil))

	assert.Nil(t, mgr.choose(nil))
	assert.Nil(t, mgr.choose(42))
	assert.Nil(t, mgr.choose([]int{}))
}

func TestRandInt(t *testing.T) {
	mgr := newTestManager(t)

	for i := 0; i < 20; i++ {
		v := mgr.randInt(3, 6)
		assert.GreaterOrEqual(t, v, 3)
		assert.Less(t, v, 6)
	}
	assert.Equal(t, 5, mgr.randInt(5, 5))
	assert.Equal(t, 7, mgr.randInt(7, 2))
}

func TestMathFuncs(t *testing.T) {
	mgr := newTestManager(t)

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"add", `{{add 2 3}}`, "5"},
		{"sub", `{{sub 2 3}}`, "-1"},
		{"mult", `{{mult 2 3}}`, "6"},
		{"div", `{{div 7 2}}`, "3"},
		{"div zero", `{{div 7 0}}`, "0"},
		{"mod", `{{mod 7 2}}`, "1"},
		{"mod zero", `{{mod 7 0}}`, "0"},
		{"inc", `{{inc 4}}`, "5"},
		{"dec", `{{dec 4}}`, "3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, render(t, mgr, tt.template, nil))
		})
	}
}

func TestFinishSentence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hello world", "Hello world."},
		{"Already done!", "Already done!"},
		{"ends with question?", "Ends with question?"},
		{"", ""},
		{"éclair time", "Éclair time."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, finishSentence(tt.in))
	}
}
