package markov

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestTrainStates(t *testing.T) {
	_, m := trainTestModel(t, testCorpus, 2)

	if got := m.States(); got != 4 {
		t.Fatalf("States() = %d, want 4", got)
	}
	wantStates := [][]string{
		{"the", "cat"},
		{"cat", "sat"},
		{"sat", "on"},
		{"on", "the"},
	}
	for _, state := range wantStates {
		if _, ok := m.StateID(state...); !ok {
			t.Errorf("state %v missing from model", state)
		}
	}

	// The final window has no successor and must not become a state.
	if _, ok := m.StateID("the", "mat"); ok {
		t.Error("final window became a state")
	}
}

func TestTrainSuccessors(t *testing.T) {
	_, m := trainTestModel(t, testCorpus, 2)

	tests := []struct {
		state []string
		want  string
	}{
		{[]string{"the", "cat"}, "sat"},
		{[]string{"cat", "sat"}, "on"},
		{[]string{"sat", "on"}, "the"},
		{[]string{"on", "the"}, "mat"},
	}
	for _, tt := range tests {
		stateID, ok := m.StateID(tt.state...)
		if !ok {
			t.Fatalf("state %v missing from model", tt.state)
		}
		chain, total := m.NextTokens(stateID)
		if len(chain) != 1 || total != 1 {
			t.Fatalf("state %v has %d successors with total %d, want 1 and 1", tt.state, len(chain), total)
		}
		text, ok := m.TokenText(chain[0].Id)
		if !ok || text != tt.want {
			t.Errorf("successor of %v = %q, want %q", tt.state, text, tt.want)
		}
	}
}

func TestTrainAccumulatesFrequency(t *testing.T) {
	_, m := trainTestModel(t, "a b a b a", 1)

	stateID, ok := m.StateID("a")
	if !ok {
		t.Fatal("state [a] missing from model")
	}
	chain, total := m.NextTokens(stateID)
	if len(chain) != 1 || total != 2 {
		t.Fatalf("state [a] has %d successors with total %d, want 1 and 2", len(chain), total)
	}
	if text, _ := m.TokenText(chain[0].Id); text != "b" {
		t.Errorf("successor of [a] = %q, want %q", text, "b")
	}
	if chain[0].Freq != 2 {
		t.Errorf("frequency of a->b = %d, want 2", chain[0].Freq)
	}
}

func TestTrainChainsSortedByTokenID(t *testing.T) {
	_, m := trainTestModel(t, "a c a b a a", 1)

	stateID, ok := m.StateID("a")
	if !ok {
		t.Fatal("state [a] missing from model")
	}
	chain, _ := m.NextTokens(stateID)
	for i := 1; i < len(chain); i++ {
		if chain[i-1].Id >= chain[i].Id {
			t.Fatalf("successors not in ascending token ID order: %v", chain)
		}
	}
}

func TestTrainShortCorpus(t *testing.T) {
	tests := []struct {
		name   string
		corpus string
		order  int
	}{
		{"empty", "", 2},
		{"fewer tokens than order", "one", 2},
		{"exactly order tokens", "one two", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, m := trainTestModel(t, tt.corpus, tt.order)
			if got := m.States(); got != 0 {
				t.Errorf("States() = %d, want 0", got)
			}
		})
	}
}

func TestTrainOrderValidation(t *testing.T) {
	g := newTestGenerator(t)
	for _, order := range []int{0, -1} {
		if _, err := g.Train(context.Background(), "test", order, strings.NewReader(testCorpus)); err == nil {
			t.Errorf("Train with order %d succeeded, want error", order)
		}
	}
}

func TestTrainModelMetadata(t *testing.T) {
	g := newTestGenerator(t)
	m, err := g.Train(context.Background(), "trigram", 3, strings.NewReader(testParagraph))
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if m.Name() != "trigram" {
		t.Errorf("Name() = %q, want %q", m.Name(), "trigram")
	}
	if m.Order() != 3 {
		t.Errorf("Order() = %d, want 3", m.Order())
	}
}

func TestTrainContextCancellation(t *testing.T) {
	g := newTestGenerator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	corpus := strings.Repeat("word ", 5000)
	if _, err := g.Train(ctx, "test", 2, strings.NewReader(corpus)); !errors.Is(err, context.Canceled) {
		t.Errorf("Train with canceled context = %v, want context.Canceled", err)
	}
}

func BenchmarkTrain(b *testing.B) {
	g := newTestGenerator(b)
	corpus := strings.Repeat(testParagraph+" ", 50)

	b.ReportAllocs()
	b.SetBytes(int64(len(corpus)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := g.Train(context.Background(), "bench", 2, strings.NewReader(corpus)); err != nil {
			b.Fatalf("Train failed: %v", err)
		}
	}
}
