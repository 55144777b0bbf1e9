package markov

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
)

func collectTokens(t *testing.T, tok Tokenizer, input string) []string {
	t.Helper()
	tokens, err := allTokens(tok.NewStream(strings.NewReader(input)))
	if err != nil {
		t.Fatalf("token stream failed: %v", err)
	}
	return tokens
}

func TestWordTokenizer(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"single space", "the cat sat", []string{"the", "cat", "sat"}},
		{"mixed whitespace", "the\tcat\n\n  sat ", []string{"the", "cat", "sat"}},
		{"punctuation stays attached", "Hello, world!", []string{"Hello,", "world!"}},
		{"case preserved", "The THE the", []string{"The", "THE", "the"}},
		{"empty input", "", nil},
		{"whitespace only", " \n\t ", nil},
	}

	tok := NewWordTokenizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collectTokens(t, tok, tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("tokens = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWordTokenizerEOF(t *testing.T) {
	stream := NewWordTokenizer().NewStream(strings.NewReader("one"))
	if _, err := stream.Next(); err != nil {
		t.Fatalf("first Next failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := stream.Next(); !errors.Is(err, io.EOF) {
			t.Errorf("Next after exhaustion = %v, want io.EOF", err)
		}
	}
}

func TestWordTokenizerSeparator(t *testing.T) {
	if sep := NewWordTokenizer().Separator("a", "b"); sep != " " {
		t.Errorf("Separator = %q, want %q", sep, " ")
	}
}

func TestPunctTokenizer(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"splits punctuation", "Hello, world!", []string{"Hello", ",", "world", "!"}},
		{"keeps apostrophes", "Don't stop.", []string{"Don't", "stop", "."}},
		{"multiple lines", "one.\ntwo!", []string{"one", ".", "two", "!"}},
		{"blank lines skipped", "one\n\n\ntwo", []string{"one", "two"}},
		{"empty input", "", nil},
	}

	tok := NewPunctTokenizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collectTokens(t, tok, tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("tokens = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPunctTokenizerSeparator(t *testing.T) {
	tok := NewPunctTokenizer()
	if sep := tok.Separator("Hello", ","); sep != "" {
		t.Errorf("separator before punctuation = %q, want empty", sep)
	}
	if sep := tok.Separator(",", "world"); sep != " " {
		t.Errorf("separator before word = %q, want space", sep)
	}
}

func TestPunctTokenizerJoin(t *testing.T) {
	g := NewGenerator(NewPunctTokenizer())
	got := g.joinTokens([]string{"Hello", ",", "world", "!"})
	if got != "Hello, world!" {
		t.Errorf("joined = %q, want %q", got, "Hello, world!")
	}
}

func TestPunctTokenizerOptions(t *testing.T) {
	tok := NewPunctTokenizer(
		WithSeparator("_"),
		WithSplitRegex(`[a-z]+`),
		WithNoSpaceRegex(`^z`),
	)

	got := collectTokens(t, tok, "ab1cd zed")
	want := []string{"ab", "cd", "zed"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tokens = %v, want %v", got, want)
	}

	if sep := tok.Separator("ab", "cd"); sep != "_" {
		t.Errorf("Separator = %q, want %q", sep, "_")
	}
	if sep := tok.Separator("ab", "zed"); sep != "" {
		t.Errorf("separator before no-space token = %q, want empty", sep)
	}
}
