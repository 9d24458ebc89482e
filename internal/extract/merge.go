package extract

import (
	"sort"

	"videopins-go/internal/types"
)

// Merge unions the heuristic and generative candidate sets. Names that
// differ only by letter case or whitespace collapse into one candidate,
// keeping the higher confidence and the union of evidence. The result is
// ranked by confidence descending, ready for enrichment.
func Merge(heuristic, generative []types.Candidate, maxCandidates int) []types.Candidate {
	if maxCandidates <= 0 {
		maxCandidates = 15
	}

	merged := map[string]*types.Candidate{}
	var order []string

	absorb := func(c types.Candidate) {
		key := normalizeKey(c.Name)
		if key == "" {
			return
		}
		existing, ok := merged[key]
		if !ok {
			copied := c
			merged[key] = &copied
			order = append(order, key)
			return
		}
		if c.Confidence > existing.Confidence {
			existing.Confidence = c.Confidence
			existing.Name = c.Name
			existing.Method = c.Method
			if existing.AddressHint == "" {
				existing.AddressHint = c.AddressHint
			}
		}
		existing.Evidence.TranscriptSnippets = append(existing.Evidence.TranscriptSnippets, c.Evidence.TranscriptSnippets...)
		existing.Evidence.OCRSnippets = append(existing.Evidence.OCRSnippets, c.Evidence.OCRSnippets...)
		existing.Evidence.Quotes = append(existing.Evidence.Quotes, c.Evidence.Quotes...)
		if existing.StartMs == nil {
			existing.StartMs = c.StartMs
			existing.EndMs = c.EndMs
		}
	}

	for _, c := range heuristic {
		absorb(c)
	}
	for _, c := range generative {
		absorb(c)
	}

	out := make([]types.Candidate, 0, len(order))
	for _, key := range order {
		out = append(out, *merged[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > maxCandidates {
		out = out[:maxCandidates]
	}
	return out
}
