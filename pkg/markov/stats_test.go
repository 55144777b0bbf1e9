package markov

import "testing"

func TestStats(t *testing.T) {
	g, m := trainTestModel(t, testCorpus, 2)

	got := g.Stats(m)
	want := ModelStats{
		Name:           "test",
		Order:          2,
		States:         4,
		VocabSize:      5,
		Chains:         4,
		TotalFrequency: 4,
		TerminalChains: 1, // only (on, the) -> mat leads out of the chain
		Starters:       0,
	}
	if got != want {
		t.Errorf("Stats = %+v, want %+v", got, want)
	}
}

func TestStatsStarters(t *testing.T) {
	g, m := trainTestModel(t, "The cat sat on The cat ran", 2)

	got := g.Stats(m)
	if got.Starters != 1 {
		t.Errorf("Starters = %d, want 1", got.Starters)
	}
	if got.Chains != 5 || got.TotalFrequency != 5 {
		t.Errorf("Chains = %d, TotalFrequency = %d, want 5 and 5", got.Chains, got.TotalFrequency)
	}
	if got.TerminalChains != 1 {
		t.Errorf("TerminalChains = %d, want 1", got.TerminalChains)
	}
}

func TestStatsEmptyModel(t *testing.T) {
	g, m := trainTestModel(t, "", 3)

	got := g.Stats(m)
	if got.States != 0 || got.Chains != 0 || got.TotalFrequency != 0 {
		t.Errorf("Stats on empty model = %+v, want zeros", got)
	}
	if got.Order != 3 {
		t.Errorf("Order = %d, want 3", got.Order)
	}
}
