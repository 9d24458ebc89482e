package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"videopins-go/internal/logger"
	"videopins-go/internal/types"
)

// GenerativeResult carries the candidates of the best-effort model pass
// plus everything needed to explain what happened, success or not.
// Prompt and OutputRaw are persisted on the job row for observability.
type GenerativeResult struct {
	Candidates     []types.Candidate
	Prompt         string
	OutputRaw      string
	Used           bool
	FallbackReason string
}

// GenerativeExtractor calls an Ollama-style generate endpoint with a
// strict-schema prompt. Every failure mode is soft: the result records a
// fallback reason and the run continues on heuristic candidates alone.
type GenerativeExtractor struct {
	url        string
	model      string
	enabled    bool
	maxResults int
	httpClient *http.Client
}

// NewGenerativeExtractor builds the extractor. When enabled is false the
// pass is skipped entirely and the result says so.
func NewGenerativeExtractor(url, model string, enabled bool, maxResults int, timeout time.Duration) *GenerativeExtractor {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	if maxResults <= 0 {
		maxResults = 15
	}
	return &GenerativeExtractor{
		url:        url,
		model:      model,
		enabled:    enabled,
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

type rawEvidence struct {
	StartMs int64  `json:"start_ms"`
	EndMs   int64  `json:"end_ms"`
	Quote   string `json:"quote"`
}

type rawCandidate struct {
	Name        string        `json:"name"`
	AddressHint string        `json:"address_hint"`
	Category    string        `json:"category"`
	Confidence  float64       `json:"confidence"`
	Evidence    []rawEvidence `json:"evidence"`
}

type candidateEnvelope struct {
	Candidates []rawCandidate `json:"candidates"`
}

const maxPromptSegments = 120

// buildPrompt produces the strict-schema instruction block. The evidence
// itself is appended as a JSON payload.
func buildPrompt(locationHint string) string {
	hintLine := "Location hint: none"
	if locationHint != "" {
		hintLine = "Location hint: " + locationHint
	}
	return strings.Join([]string{
		"You are extracting named places (venues/landmarks/areas) from travel video evidence.",
		"Return JSON only. Do not include commentary.",
		"Output schema (JSON only):",
		`{"candidates": [{"name": string, "address_hint": string, "category": "restaurant"|"cafe"|"bar"|"bakery"|"hotel"|"attraction"|"store"|"neighborhood"|"park"|"transit"|"other", "evidence": [{"start_ms": number, "end_ms": number, "quote": string}], "confidence": number}]}`,
		"Rules:",
		"- Only include items that can be searched in a places directory.",
		"- Every candidate must include an evidence quote copied EXACTLY from the input text.",
		"- Exclude generic phrases (e.g. 'this place', 'a cafe') unless a real name appears.",
		"- Use the location hint to disambiguate.",
		"- Return max 12 candidates.",
		hintLine,
		"Input follows as JSON with keys 'transcript', 'ocr', and 'location_hint'.",
	}, "\n")
}

// segmentMatches reports whether a segment is worth showing to the model.
func segmentMatches(text string) bool {
	lowered := strings.ToLower(text)
	for _, cue := range []string{"go", "went", "visit", "recommend", "try", "tried", "ate", "eating", "stayed", "booked", "check", "see", "saw", "stop"} {
		if strings.Contains(lowered, cue) {
			return true
		}
	}
	if hasPlaceKeyword(lowered) {
		return true
	}
	for _, cue := range []string{" in ", " at ", " near ", " next to ", " on ", " by ", " around ", " inside "} {
		if strings.Contains(lowered, cue) {
			return true
		}
	}
	return countUpper(text) >= 2
}

// filterSegments trims long transcripts to the segments most likely to
// mention places, keeping two segments of context around each match.
func filterSegments(segments []types.Segment, max int) []types.Segment {
	if max <= 0 {
		max = maxPromptSegments
	}
	if len(segments) <= max {
		return segments
	}

	keep := make(map[int]struct{})
	for idx, segment := range segments {
		if !segmentMatches(segment.Text) {
			continue
		}
		for offset := -2; offset <= 2; offset++ {
			if i := idx + offset; i >= 0 && i < len(segments) {
				keep[i] = struct{}{}
			}
		}
	}

	filtered := make([]types.Segment, 0, len(keep))
	for idx := range segments {
		if _, ok := keep[idx]; ok {
			filtered = append(filtered, segments[idx])
		}
	}
	if len(filtered) > max {
		filtered = filtered[:max]
	}
	return filtered
}

// Extract runs the generative pass. The returned result never carries an
// error: unusable output is reported through FallbackReason.
func (g *GenerativeExtractor) Extract(ctx context.Context, segments []types.Segment, snippets []types.Snippet, locationHint string) GenerativeResult {
	if !g.enabled {
		return GenerativeResult{FallbackReason: "generative pass disabled"}
	}

	log := logger.Component("extract-generative")
	filtered := filterSegments(segments, maxPromptSegments)
	prompt := buildPrompt(locationHint)

	input := map[string]any{
		"transcript":    filtered,
		"ocr":           snippets,
		"location_hint": locationHint,
	}
	inputJSON, err := json.Marshal(input)
	if err != nil {
		return GenerativeResult{Prompt: prompt, Used: true, FallbackReason: fmt.Sprintf("marshal input: %v", err)}
	}
	fullPrompt := prompt + "\nInput JSON:\n" + string(inputJSON)

	outputRaw, err := g.generate(ctx, fullPrompt)
	result := GenerativeResult{Prompt: fullPrompt, OutputRaw: outputRaw, Used: true}
	if err != nil {
		result.FallbackReason = fmt.Sprintf("model call failed: %v", err)
		log.WithError(err).Warn("generative call failed, falling back to heuristic candidates")
		return result
	}

	parsed := parseCandidatePayload(outputRaw)
	if parsed == nil {
		// One repair round-trip before giving up on the output.
		repaired, repairErr := g.repair(ctx, outputRaw)
		if repairErr != nil {
			result.FallbackReason = fmt.Sprintf("output not valid JSON, repair failed: %v", repairErr)
			return result
		}
		parsed = parseCandidatePayload(repaired)
		if parsed == nil {
			result.FallbackReason = "output not valid JSON after repair"
			return result
		}
	}

	candidates := g.hydrate(parsed, locationHint)
	if len(candidates) == 0 {
		result.FallbackReason = "model returned no usable candidates"
		return result
	}

	result.Candidates = candidates
	log.WithField("candidates", len(candidates)).Info("generative extraction succeeded")
	return result
}

func (g *GenerativeExtractor) generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{Model: g.model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http %d: %s", resp.StatusCode, truncate(string(raw), 300))
	}
	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.Response, nil
}

func (g *GenerativeExtractor) repair(ctx context.Context, brokenOutput string) (string, error) {
	prompt := "Fix the following to valid JSON only. Do not add commentary.\nReturn ONLY the JSON.\nRaw output:\n" + brokenOutput
	return g.generate(ctx, prompt)
}

// parseCandidatePayload accepts either the schema envelope or a bare array.
func parseCandidatePayload(text string) []rawCandidate {
	extracted := extractFirstJSON(text)
	if extracted == "" {
		return nil
	}
	var envelope candidateEnvelope
	if err := json.Unmarshal([]byte(extracted), &envelope); err == nil && len(envelope.Candidates) > 0 {
		return envelope.Candidates
	}
	var list []rawCandidate
	if err := json.Unmarshal([]byte(extracted), &list); err == nil && len(list) > 0 {
		return list
	}
	return nil
}

// hydrate converts model output into domain candidates, dropping entries
// without a name and clamping confidence into [0,1].
func (g *GenerativeExtractor) hydrate(raw []rawCandidate, locationHint string) []types.Candidate {
	out := make([]types.Candidate, 0, len(raw))
	for _, rc := range raw {
		name := normalizeText(rc.Name)
		if name == "" {
			continue
		}
		confidence := rc.Confidence
		if confidence <= 0 {
			confidence = 0.5
		}
		if confidence > 1 {
			confidence = 1
		}
		addressHint := strings.TrimSpace(rc.AddressHint)
		if addressHint == "" {
			addressHint = strings.TrimSpace(locationHint)
		}

		candidate := types.Candidate{
			Name:        name,
			AddressHint: addressHint,
			Confidence:  confidence,
			Method:      types.MethodGenerative,
		}
		for _, ev := range rc.Evidence {
			candidate.Evidence.Quotes = append(candidate.Evidence.Quotes, ev.Quote)
			if candidate.StartMs == nil {
				start, end := ev.StartMs, ev.EndMs
				candidate.StartMs = &start
				candidate.EndMs = &end
			}
		}
		out = append(out, candidate)
		if len(out) >= g.maxResults {
			break
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
