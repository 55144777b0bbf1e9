package markov

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestGenerateStreamMatchesGenerate(t *testing.T) {
	g, m := trainTestModel(t, testParagraph, 2)

	want, err := g.Generate(m, WithRand(testRand(5)), WithMaxWords(20))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	ch, err := g.GenerateStream(context.Background(), m, WithRand(testRand(5)), WithMaxWords(20))
	if err != nil {
		t.Fatalf("GenerateStream failed: %v", err)
	}
	var sb strings.Builder
	for chunk := range ch {
		sb.WriteString(chunk)
	}

	if got := sb.String(); got != want {
		t.Errorf("streamed %q, Generate returned %q", got, want)
	}
}

func TestGenerateStreamSeparators(t *testing.T) {
	g := NewGenerator(NewPunctTokenizer())
	m, err := g.Train(context.Background(), "punct", 1, strings.NewReader("stop . stop . stop"))
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	ch, err := g.GenerateStream(context.Background(), m, WithMaxWords(6))
	if err != nil {
		t.Fatalf("GenerateStream failed: %v", err)
	}
	var sb strings.Builder
	for chunk := range ch {
		sb.WriteString(chunk)
	}

	// Chunks carry the tokenizer's separators, so "." attaches directly.
	if got := sb.String(); strings.Contains(got, " .") {
		t.Errorf("streamed text has a space before punctuation: %q", got)
	}
}

func TestGenerateStreamBudget(t *testing.T) {
	g, m := trainTestModel(t, "a b c a b c a", 1)

	ch, err := g.GenerateStream(context.Background(), m, WithMaxWords(10))
	if err != nil {
		t.Fatalf("GenerateStream failed: %v", err)
	}
	count := 0
	for range ch {
		count++
	}
	if count != 10 {
		t.Errorf("stream delivered %d words, want 10", count)
	}
}

func TestGenerateStreamNoStates(t *testing.T) {
	g, m := trainTestModel(t, "", 2)

	if _, err := g.GenerateStream(context.Background(), m); !errors.Is(err, ErrNoStates) {
		t.Errorf("GenerateStream = %v, want ErrNoStates", err)
	}
}

func TestGenerateStreamCancellation(t *testing.T) {
	g, m := trainTestModel(t, "a b c a b c a", 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := g.GenerateStream(ctx, m, WithMaxWords(100000))
	if err != nil {
		t.Fatalf("GenerateStream failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, ok := <-ch; !ok {
			t.Fatal("stream closed before cancellation")
		}
	}
	cancel()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream did not close after cancellation")
		}
	}
}
