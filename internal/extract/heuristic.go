package extract

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"videopins-go/internal/types"
)

// placeKeywords are venue-type words that strongly suggest a searchable place.
var placeKeywords = []string{
	"cafe", "coffee", "ramen", "restaurant", "bar", "bistro", "diner", "grill", "market",
	"bakery", "pizza", "taco", "sushi", "bbq", "pub", "tavern", "tea", "noodle", "burger",
	"kitchen", "izakaya", "food", "eatery", "steak", "pho", "gelato", "dessert", "brew",
}

// genericWords are phrases that look name-like but never name a venue.
var genericWords = map[string]struct{}{
	"today": {}, "tomorrow": {}, "yesterday": {}, "subscribe": {}, "follow": {},
	"like": {}, "comment": {}, "share": {}, "welcome": {}, "hello": {}, "thanks": {},
	"thank you": {}, "video": {}, "travel": {}, "trip": {}, "food": {}, "menu": {},
}

// mentionPatterns capture the span following a locative cue phrase.
var mentionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)we(?:'re| are) at ([A-Za-z0-9&@\-'\.\s]+)`),
	regexp.MustCompile(`(?i)we(?:'re| are) in ([A-Za-z0-9&@\-'\.\s]+)`),
	regexp.MustCompile(`(?i)go to ([A-Za-z0-9&@\-'\.\s]+)`),
	regexp.MustCompile(`(?i)going to ([A-Za-z0-9&@\-'\.\s]+)`),
	regexp.MustCompile(`(?i)next stop is ([A-Za-z0-9&@\-'\.\s]+)`),
	regexp.MustCompile(`(?i)this is ([A-Za-z0-9&@\-'\.\s]+)`),
	regexp.MustCompile(`(?i)grab (?:a |some )?\w+ at ([A-Za-z0-9&@\-'\.\s]+)`),
}

var (
	nonNameChars = regexp.MustCompile(`[^A-Za-z0-9\s&@\-'\.]`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// normalizeText strips characters that never appear in venue names and
// collapses whitespace.
func normalizeText(text string) string {
	cleaned := nonNameChars.ReplaceAllString(text, " ")
	return strings.TrimSpace(whitespace.ReplaceAllString(cleaned, " "))
}

// normalizeKey is the dedupe key: lowercased, whitespace-collapsed.
func normalizeKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func hasPlaceKeyword(lowered string) bool {
	for _, keyword := range placeKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}

func isGeneric(lowered string) bool {
	_, ok := genericWords[lowered]
	return ok
}

func isTitleCase(text string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}
	for _, field := range fields {
		runes := []rune(field)
		if !unicode.IsUpper(runes[0]) && !unicode.IsDigit(runes[0]) {
			return false
		}
	}
	return true
}

func countUpper(text string) int {
	n := 0
	for _, r := range text {
		if unicode.IsUpper(r) {
			n++
		}
	}
	return n
}

// looksLikePlaceName filters OCR lines down to plausible venue names.
func looksLikePlaceName(text string) bool {
	if len(text) < 3 || len(text) > 80 {
		return false
	}
	lowered := strings.ToLower(text)
	if isGeneric(lowered) {
		return false
	}
	if hasPlaceKeyword(lowered) {
		return true
	}
	if countUpper(text) >= 2 {
		return true
	}
	return isTitleCase(text)
}

// extractPlaceMentions pulls candidate names out of one transcript segment.
func extractPlaceMentions(text string) []string {
	var mentions []string
	for _, pattern := range mentionPatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			if candidate := normalizeText(match[1]); candidate != "" {
				mentions = append(mentions, candidate)
			}
		}
	}
	return mentions
}

// scoreCandidate derives a confidence in [0.05, 0.95] from the evidence mix.
// The breakdown is kept on the candidate for audit.
func scoreCandidate(name string, evidence types.Evidence) (float64, map[string]float64) {
	score := 0.2
	breakdown := map[string]float64{"base": 0.2}
	lowered := strings.ToLower(name)
	if len(evidence.OCRSnippets) > 0 {
		score += 0.4
		breakdown["ocr"] = 0.4
	}
	if len(evidence.TranscriptSnippets) > 0 {
		score += 0.3
		breakdown["transcript"] = 0.3
	}
	if hasPlaceKeyword(lowered) {
		score += 0.1
		breakdown["keyword"] = 0.1
	}
	if isGeneric(lowered) {
		score -= 0.4
		breakdown["generic_penalty"] = -0.4
	}
	if score < 0.05 {
		score = 0.05
	}
	if score > 0.95 {
		score = 0.95
	}
	breakdown["final"] = score
	return score, breakdown
}

// Heuristic runs the deterministic extraction pass over transcript segments
// and OCR snippets. Identical input always yields identical candidates in
// identical order.
func Heuristic(segments []types.Segment, snippets []types.Snippet, locationHint string, maxCandidates int) []types.Candidate {
	if maxCandidates <= 0 {
		maxCandidates = 15
	}

	type entry struct {
		name     string
		startMs  int64
		endMs    int64
		evidence types.Evidence
	}
	entries := map[string]*entry{}
	var order []string

	add := func(key string, make func() *entry) *entry {
		e, ok := entries[key]
		if !ok {
			e = make()
			entries[key] = e
			order = append(order, key)
		}
		return e
	}

	for _, segment := range segments {
		text := normalizeText(segment.Text)
		for _, mention := range extractPlaceMentions(text) {
			segment := segment
			e := add(normalizeKey(mention), func() *entry {
				return &entry{name: mention, startMs: segment.StartMs, endMs: segment.EndMs}
			})
			e.evidence.TranscriptSnippets = append(e.evidence.TranscriptSnippets, segment)
		}
	}

	for _, snippet := range snippets {
		text := normalizeText(snippet.Text)
		if !looksLikePlaceName(text) {
			continue
		}
		snippet := snippet
		e := add(normalizeKey(text), func() *entry {
			return &entry{name: text, startMs: snippet.TimestampMs, endMs: snippet.TimestampMs}
		})
		e.evidence.OCRSnippets = append(e.evidence.OCRSnippets, snippet)
	}

	hint := strings.TrimSpace(locationHint)
	candidates := make([]types.Candidate, 0, len(order))
	for _, key := range order {
		e := entries[key]
		confidence, breakdown := scoreCandidate(e.name, e.evidence)
		e.evidence.ScoreBreakdown = breakdown
		startMs, endMs := e.startMs, e.endMs
		candidates = append(candidates, types.Candidate{
			Name:        e.name,
			AddressHint: hint,
			Confidence:  confidence,
			StartMs:     &startMs,
			EndMs:       &endMs,
			Evidence:    e.evidence,
			Method:      types.MethodHeuristic,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].Name < candidates[j].Name
	})
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	return candidates
}
