package markov

import (
	"bytes"
	"strings"
	"testing"
)

func TestExportImportRoundTrip(t *testing.T) {
	g, m := trainTestModel(t, testParagraph, 2)

	var first bytes.Buffer
	if err := g.ExportModel(m, &first); err != nil {
		t.Fatalf("ExportModel failed: %v", err)
	}

	imported, err := g.ImportModel(bytes.NewReader(first.Bytes()))
	if err != nil {
		t.Fatalf("ImportModel failed: %v", err)
	}
	if imported.Name() != m.Name() || imported.Order() != m.Order() {
		t.Errorf("imported model is %q order %d, want %q order %d",
			imported.Name(), imported.Order(), m.Name(), m.Order())
	}
	if imported.States() != m.States() || imported.VocabSize() != m.VocabSize() {
		t.Errorf("imported model has %d states and %d tokens, want %d and %d",
			imported.States(), imported.VocabSize(), m.States(), m.VocabSize())
	}

	var second bytes.Buffer
	if err := g.ExportModel(imported, &second); err != nil {
		t.Fatalf("ExportModel failed: %v", err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Error("re-exported model differs from the original document")
	}

	// Identical documents must generate identically.
	want, err := g.Generate(m, WithRand(testRand(3)), WithMaxWords(20))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	got, err := g.Generate(imported, WithRand(testRand(3)), WithMaxWords(20))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got != want {
		t.Errorf("imported model generated %q, original %q", got, want)
	}
}

func TestExportDeterministic(t *testing.T) {
	g, m := trainTestModel(t, testParagraph, 2)

	var first, second bytes.Buffer
	if err := g.ExportModel(m, &first); err != nil {
		t.Fatalf("ExportModel failed: %v", err)
	}
	if err := g.ExportModel(m, &second); err != nil {
		t.Fatalf("ExportModel failed: %v", err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Error("two exports of the same model differ")
	}
}

func TestExportEmptyModel(t *testing.T) {
	g, m := trainTestModel(t, "", 2)

	var buf bytes.Buffer
	if err := g.ExportModel(m, &buf); err != nil {
		t.Fatalf("ExportModel failed: %v", err)
	}
	if strings.Contains(buf.String(), "null") {
		t.Errorf("empty model exported null fields: %s", buf.String())
	}

	imported, err := g.ImportModel(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ImportModel failed: %v", err)
	}
	if imported.States() != 0 {
		t.Errorf("States() = %d, want 0", imported.States())
	}
}

func TestImportRemapsSparseIDs(t *testing.T) {
	g := newTestGenerator(t)

	doc := `{
		"name": "sparse",
		"order": 1,
		"vocabulary": {"a": 5, "b": 9},
		"prefixes": {"5": 3, "9": 7},
		"chains": [
			{"prefix_id": 3, "next_token_id": 9, "frequency": 2},
			{"prefix_id": 7, "next_token_id": 5, "frequency": 1}
		]
	}`
	m, err := g.ImportModel(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ImportModel failed: %v", err)
	}

	if m.VocabSize() != 2 || m.States() != 2 {
		t.Fatalf("model has %d tokens and %d states, want 2 and 2", m.VocabSize(), m.States())
	}
	stateID, ok := m.StateID("a")
	if !ok {
		t.Fatal("state [a] missing after import")
	}
	chain, total := m.NextTokens(stateID)
	if len(chain) != 1 || total != 2 {
		t.Fatalf("state [a] has %d successors with total %d, want 1 and 2", len(chain), total)
	}
	if text, _ := m.TokenText(chain[0].Id); text != "b" {
		t.Errorf("successor of [a] = %q, want %q", text, "b")
	}

	// Re-exporting a remapped model yields dense ascending IDs.
	var buf bytes.Buffer
	if err := g.ExportModel(m, &buf); err != nil {
		t.Fatalf("ExportModel failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"a": 0`) {
		t.Errorf("export did not remap token IDs densely: %s", buf.String())
	}
}

func TestImportOptionalName(t *testing.T) {
	g := newTestGenerator(t)

	doc := `{"order": 1, "vocabulary": {}, "prefixes": {}, "chains": []}`
	m, err := g.ImportModel(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ImportModel failed: %v", err)
	}
	if m.Name() != "" {
		t.Errorf("Name() = %q, want empty", m.Name())
	}
}

func TestImportValidation(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			"malformed json",
			`{"order": `,
			"failed to decode",
		},
		{
			"missing order",
			`{"vocabulary": {}, "prefixes": {}, "chains": []}`,
			"missing order",
		},
		{
			"missing vocabulary",
			`{"order": 1, "prefixes": {}, "chains": []}`,
			"missing vocabulary",
		},
		{
			"missing prefixes",
			`{"order": 1, "vocabulary": {}, "chains": []}`,
			"missing prefixes",
		},
		{
			"missing chains",
			`{"order": 1, "vocabulary": {}, "prefixes": {}}`,
			"missing chains",
		},
		{
			"null chains",
			`{"order": 1, "vocabulary": {}, "prefixes": {}, "chains": null}`,
			"missing chains",
		},
		{
			"zero order",
			`{"order": 0, "vocabulary": {}, "prefixes": {}, "chains": []}`,
			"order must be at least 1",
		},
		{
			"duplicate vocabulary ID",
			`{"order": 1, "vocabulary": {"a": 0, "b": 0}, "prefixes": {}, "chains": []}`,
			"not unique",
		},
		{
			"prefix arity mismatch",
			`{"order": 2, "vocabulary": {"a": 0}, "prefixes": {"0": 0}, "chains": []}`,
			"has 1 tokens, want 2",
		},
		{
			"prefix with unknown token",
			`{"order": 1, "vocabulary": {"a": 0}, "prefixes": {"1": 0}, "chains": []}`,
			"unknown token ID 1",
		},
		{
			"invalid prefix key",
			`{"order": 1, "vocabulary": {"a": 0}, "prefixes": {"x": 0}, "chains": []}`,
			"invalid prefix key",
		},
		{
			"duplicate prefix ID",
			`{"order": 1, "vocabulary": {"a": 0, "b": 1}, "prefixes": {"0": 2, "1": 2}, "chains": []}`,
			"prefix ID 2 is not unique",
		},
		{
			"duplicate prefix tuple",
			`{"order": 1, "vocabulary": {"a": 0}, "prefixes": {"0": 0, "+0": 1}, "chains": []}`,
			"duplicate prefix",
		},
		{
			"chain with unknown prefix",
			`{"order": 1, "vocabulary": {"a": 0}, "prefixes": {"0": 0},
			  "chains": [{"prefix_id": 1, "next_token_id": 0, "frequency": 1}]}`,
			"unknown prefix ID 1",
		},
		{
			"chain with unknown token",
			`{"order": 1, "vocabulary": {"a": 0}, "prefixes": {"0": 0},
			  "chains": [{"prefix_id": 0, "next_token_id": 3, "frequency": 1}]}`,
			"unknown token ID 3",
		},
		{
			"zero frequency",
			`{"order": 1, "vocabulary": {"a": 0}, "prefixes": {"0": 0},
			  "chains": [{"prefix_id": 0, "next_token_id": 0, "frequency": 0}]}`,
			"frequency must be at least 1",
		},
		{
			"duplicate chain entry",
			`{"order": 1, "vocabulary": {"a": 0}, "prefixes": {"0": 0},
			  "chains": [{"prefix_id": 0, "next_token_id": 0, "frequency": 1},
			             {"prefix_id": 0, "next_token_id": 0, "frequency": 2}]}`,
			"duplicate chain entry",
		},
		{
			"prefix without chains",
			`{"order": 1, "vocabulary": {"a": 0, "b": 1}, "prefixes": {"0": 0, "1": 1},
			  "chains": [{"prefix_id": 0, "next_token_id": 1, "frequency": 1}]}`,
			"no chain entries",
		},
	}

	g := newTestGenerator(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.ImportModel(strings.NewReader(tt.doc))
			if err == nil {
				t.Fatal("ImportModel succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}
