package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"github.com/teamforge/engine/internal/llm"
	"github.com/teamforge/engine/internal/prompts"
	"github.com/teamforge/engine/internal/schemas"
)

// MaxSkills caps the merged skill list returned for one document.
const MaxSkills = 50

// Skill is one extracted skill mention with its merged confidence.
type Skill struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Evidence   string  `json:"evidence,omitempty"`
}

// extractionResponse is the wire shape of the LLM extraction endpoint.
type extractionResponse struct {
	Skills []Skill `json:"skills"`
}

// Extractor runs the chunked skill extraction pipeline against an LLM
// client.
type Extractor struct {
	client    llm.Client
	chunkSize int
}

// NewExtractor creates an extractor. chunkSize <= 0 selects the default.
func NewExtractor(client llm.Client, chunkSize int) *Extractor {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Extractor{client: client, chunkSize: chunkSize}
}

// ExtractSkills extracts a ranked skill list from a document. The document
// is split into bounded chunks and each chunk is sent to the model
// sequentially; a failing chunk is skipped, because partial results are
// strictly better than none. Mentions of the same skill across chunks keep
// the maximum confidence seen. The result is sorted by descending
// confidence (ties alphabetical, case-insensitive) and capped at MaxSkills.
func (e *Extractor) ExtractSkills(ctx context.Context, sourceType, sourceID, fullText string) ([]Skill, error) {
	if looksLikeHTML(fullText) {
		fullText = StripHTML(fullText)
	}

	chunks := SplitChunks(fullText, e.chunkSize)
	if len(chunks) == 0 {
		return nil, nil
	}

	merged := make(map[string]Skill)
	for i, chunk := range chunks {
		select {
		case <-ctx.Done():
			return rankSkills(merged), ctx.Err()
		default:
		}

		chunkID := fmt.Sprintf("%s:%d", sourceID, i+1)
		skills, err := e.extractChunk(ctx, sourceType, chunkID, chunk)
		if err != nil {
			// A single bad chunk never aborts the document.
			log.Printf("extraction: chunk %s skipped: %v", chunkID, err)
			continue
		}
		mergeSkills(merged, skills)
	}

	return rankSkills(merged), nil
}

// extractChunk sends one chunk to the extraction endpoint and parses the
// structured response.
func (e *Extractor) extractChunk(ctx context.Context, sourceType, sourceID, content string) ([]Skill, error) {
	template := prompts.MustGet("extraction.json", "extract-skills")
	prompt := prompts.Format(template, map[string]string{
		"SourceType": sourceType,
		"SourceID":   sourceID,
		"Content":    content,
	})

	jsonResp, err := e.client.GenerateJSON(ctx, prompt, llm.TierLite)
	if err != nil {
		return nil, fmt.Errorf("LLM generation failed: %w", err)
	}
	jsonResp = llm.CleanJSONBlock(jsonResp)

	if err := schemas.Validate(schemas.ExtractionResponse, []byte(jsonResp)); err != nil {
		return nil, fmt.Errorf("extraction response rejected: %w", err)
	}

	var resp extractionResponse
	if err := json.Unmarshal([]byte(jsonResp), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}
	return resp.Skills, nil
}

// mergeSkills folds chunk results into the merged map, keeping the maximum
// finite confidence per skill name. The merge is commutative, so chunk
// order never affects the outcome.
func mergeSkills(merged map[string]Skill, skills []Skill) {
	for _, s := range skills {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			continue
		}
		confidence := s.Confidence
		if math.IsNaN(confidence) || math.IsInf(confidence, 0) {
			confidence = 0
		}

		key := strings.ToLower(name)
		existing, ok := merged[key]
		if !ok || confidence > existing.Confidence {
			merged[key] = Skill{Name: name, Confidence: confidence, Evidence: s.Evidence}
		}
	}
}

// rankSkills orders merged skills by descending confidence, breaking ties
// alphabetically (case-insensitive), capped at MaxSkills.
func rankSkills(merged map[string]Skill) []Skill {
	if len(merged) == 0 {
		return nil
	}
	ranked := make([]Skill, 0, len(merged))
	for _, s := range merged {
		ranked = append(ranked, s)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Confidence != ranked[j].Confidence {
			return ranked[i].Confidence > ranked[j].Confidence
		}
		return strings.ToLower(ranked[i].Name) < strings.ToLower(ranked[j].Name)
	})
	if len(ranked) > MaxSkills {
		ranked = ranked[:MaxSkills]
	}
	return ranked
}
