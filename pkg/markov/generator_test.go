package markov

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

const testCorpus = "the cat sat on the mat"

// testParagraph gives generation tests enough states to walk around in.
const testParagraph = `the quick brown fox jumps over the lazy dog the quick brown cat
naps under the warm sun while the lazy dog dreams of the quick red fox
and the slow brown turtle walks past the sleeping cat in the garden`

func newTestGenerator(t testing.TB) *Generator {
	t.Helper()
	return NewGenerator(NewWordTokenizer())
}

func trainTestModel(t testing.TB, corpus string, order int) (*Generator, *Model) {
	t.Helper()
	g := newTestGenerator(t)
	m, err := g.Train(context.Background(), "test", order, strings.NewReader(corpus))
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	return g, m
}

func TestNewGenerator(t *testing.T) {
	g := NewGenerator(NewWordTokenizer())
	if g == nil {
		t.Fatal("NewGenerator returned nil")
	}
	if g.Tokenizer() == nil {
		t.Error("Tokenizer() returned nil")
	}
	if g.logger == nil {
		t.Error("default logger is nil")
	}
}

func TestSetLogger(t *testing.T) {
	g, m := trainTestModel(t, testCorpus, 2)

	var buf bytes.Buffer
	g.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	if _, err := g.Train(context.Background(), "logged", 2, strings.NewReader(testCorpus)); err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Training completed") {
		t.Errorf("expected training log output, got %q", buf.String())
	}

	buf.Reset()
	if _, err := g.Generate(m, WithMaxWords(10)); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Generation completed") {
		t.Errorf("expected generation log output, got %q", buf.String())
	}
}
