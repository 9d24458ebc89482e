package extract

import (
	"testing"

	"videopins-go/internal/types"
)

func candidateNamed(name string, confidence float64, method types.ExtractionMethod) types.Candidate {
	return types.Candidate{Name: name, Confidence: confidence, Method: method}
}

func TestMergeUnionsBothPasses(t *testing.T) {
	heuristic := []types.Candidate{
		candidateNamed("Example Cafe", 0.6, types.MethodHeuristic),
	}
	generative := []types.Candidate{
		candidateNamed("Millennium Park", 0.9, types.MethodGenerative),
	}

	merged := Merge(heuristic, generative, 15)
	if len(merged) != 2 {
		t.Fatalf("expected union of 2 candidates, got %d", len(merged))
	}
	if merged[0].Name != "Millennium Park" || merged[1].Name != "Example Cafe" {
		t.Fatalf("expected confidence ranking, got %q then %q", merged[0].Name, merged[1].Name)
	}
}

func TestMergeCollapsesCaseVariants(t *testing.T) {
	start, end := int64(1000), int64(2000)
	heuristic := []types.Candidate{
		{
			Name:       "example cafe",
			Confidence: 0.5,
			Method:     types.MethodHeuristic,
			StartMs:    &start,
			EndMs:      &end,
			Evidence: types.Evidence{
				TranscriptSnippets: []types.Segment{{StartMs: 1000, EndMs: 2000, Text: "example cafe"}},
			},
		},
	}
	generative := []types.Candidate{
		{
			Name:        "Example  Cafe",
			AddressHint: "Chicago, IL",
			Confidence:  0.8,
			Method:      types.MethodGenerative,
			Evidence:    types.Evidence{Quotes: []string{"we loved Example Cafe"}},
		},
	}

	merged := Merge(heuristic, generative, 15)
	if len(merged) != 1 {
		t.Fatalf("expected collapse into 1 candidate, got %d", len(merged))
	}
	c := merged[0]
	if c.Name != "Example  Cafe" {
		t.Fatalf("higher-confidence name should win, got %q", c.Name)
	}
	if c.Confidence != 0.8 {
		t.Fatalf("confidence = %f", c.Confidence)
	}
	if c.Method != types.MethodGenerative {
		t.Fatalf("method = %q", c.Method)
	}
	if len(c.Evidence.TranscriptSnippets) != 1 || len(c.Evidence.Quotes) != 1 {
		t.Fatalf("evidence not unioned: %+v", c.Evidence)
	}
	if c.StartMs == nil || *c.StartMs != 1000 {
		t.Fatalf("first provenance window should be kept, got %v", c.StartMs)
	}
}

func TestMergeKeepsLowerConfidenceNameIntact(t *testing.T) {
	heuristic := []types.Candidate{candidateNamed("Example Cafe", 0.9, types.MethodHeuristic)}
	generative := []types.Candidate{candidateNamed("EXAMPLE CAFE", 0.3, types.MethodGenerative)}

	merged := Merge(heuristic, generative, 15)
	if len(merged) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(merged))
	}
	if merged[0].Name != "Example Cafe" || merged[0].Method != types.MethodHeuristic {
		t.Fatalf("lower-confidence duplicate must not overwrite: %+v", merged[0])
	}
	if merged[0].Confidence != 0.9 {
		t.Fatalf("confidence = %f", merged[0].Confidence)
	}
}

func TestMergeAppliesCap(t *testing.T) {
	var heuristic []types.Candidate
	for _, name := range []string{"Alpha", "Bravo", "Charlie", "Delta"} {
		heuristic = append(heuristic, candidateNamed(name, 0.5, types.MethodHeuristic))
	}
	merged := Merge(heuristic, nil, 2)
	if len(merged) != 2 {
		t.Fatalf("expected cap of 2, got %d", len(merged))
	}
	if merged[0].Name != "Alpha" || merged[1].Name != "Bravo" {
		t.Fatalf("ties must break by name: %q, %q", merged[0].Name, merged[1].Name)
	}
}

func TestMergeDropsEmptyNames(t *testing.T) {
	merged := Merge([]types.Candidate{candidateNamed("   ", 0.9, types.MethodHeuristic)}, nil, 15)
	if len(merged) != 0 {
		t.Fatalf("expected empty names dropped, got %+v", merged)
	}
}
