package ranking

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"

	"github.com/teamforge/engine/internal/config"
	"github.com/teamforge/engine/internal/llm"
	"github.com/teamforge/engine/internal/profile"
	"github.com/teamforge/engine/internal/prompts"
	"github.com/teamforge/engine/internal/schemas"
	"github.com/teamforge/engine/internal/types"
)

// Reasons recorded on RankedResult entries. Callers and operators key off
// these strings, so they are part of the contract.
const (
	// ReasonBaselineOnly marks results produced without any rerank attempt.
	ReasonBaselineOnly = "baseline only"
	// ReasonBaselineFallback marks a candidate the reranker dropped or
	// never saw, re-inserted at its baseline score.
	ReasonBaselineFallback = "baseline fallback"
	// ReasonRerankUnavailable marks a whole ranking that fell back because
	// the rerank call failed, timed out, or returned garbage.
	ReasonRerankUnavailable = "rerank unavailable"
)

// Blend weights between the normalized baseline score and the reranker
// score when reranking succeeds.
const (
	blendBaselineWeight = 0.3
	blendRerankWeight   = 0.7
)

// normalizeDivisor maps integer baseline points onto the reranker's 0..1
// scale so blended and fallback scores are comparable.
const normalizeDivisor = 100.0

// Reranker refines a baseline ranking through the LLM. It is a pure
// enhancement layer: every failure mode degrades to the baseline order, so
// Rerank never returns an error.
type Reranker struct {
	client llm.Client
	cfg    config.Scoring
	scorer *BaselineScorer
}

// NewReranker creates a reranker. A nil client disables reranking; every
// call then returns the baseline order labeled ReasonBaselineOnly.
func NewReranker(client llm.Client, cfg config.Scoring) *Reranker {
	return &Reranker{client: client, cfg: cfg, scorer: NewBaselineScorer(cfg)}
}

// rerankRequestCandidate is the wire shape of one candidate sent to the
// rerank endpoint.
type rerankRequestCandidate struct {
	Key         string `json:"key"`
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Payload     int    `json:"payload"`  // baseline score, for the model's calibration
	Metadata    string `json:"metadata"` // needed role, open slots
}

// rerankedItem is one entry of the rerank endpoint's response.
type rerankedItem struct {
	Key           string   `json:"key"`
	FinalScore    float64  `json:"final_score"`
	Reason        string   `json:"reason"`
	MatchedSkills []string `json:"matched_skills"`
	BalanceNote   string   `json:"balance_note"`
}

// rerankResponse is the wire shape of the rerank endpoint's response.
type rerankResponse struct {
	Ranked []rerankedItem `json:"ranked"`
	Error  string         `json:"error"`
}

// Rerank ranks candidates for a query. Candidates must already be in
// baseline order (see BaselineScorer.Rank); at most RerankTopN of them are
// sent to the model. The returned slice always contains every input
// candidate exactly once, ordered by descending final score with ties kept
// in baseline order.
func (r *Reranker) Rerank(ctx context.Context, queryType, queryText string, query profile.Profile, candidates []types.Candidate, teamCtx *types.TeamContext) []types.RankedResult {
	if len(candidates) == 0 {
		return nil
	}
	if r.client == nil {
		return r.baselineResults(query, candidates, ReasonBaselineOnly)
	}

	sendCount := min(len(candidates), r.cfg.RerankTopN)
	sent := candidates[:sendCount]

	resp, err := r.call(ctx, queryType, queryText, sent, teamCtx)
	if err != nil {
		log.Printf("rerank: falling back to baseline: %v", err)
		return r.baselineResults(query, candidates, ReasonRerankUnavailable)
	}

	return r.reconcile(query, candidates, sendCount, resp)
}

// call performs one bounded rerank request and validates the response
// shape. All failures come back as errors for the caller to downgrade.
func (r *Reranker) call(ctx context.Context, queryType, queryText string, sent []types.Candidate, teamCtx *types.TeamContext) (*rerankResponse, error) {
	reqCandidates := make([]rerankRequestCandidate, len(sent))
	for i, c := range sent {
		reqCandidates[i] = rerankRequestCandidate{
			Key:         c.Key,
			ID:          c.EntityID.String(),
			Title:       c.Title,
			Description: c.Text,
			Payload:     c.BaselineScore,
			Metadata:    fmt.Sprintf("needed_role=%s open_slots=%d", c.NeededRole, c.OpenSlots),
		}
	}
	candidatesJSON, err := json.Marshal(reqCandidates)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal candidates: %w", err)
	}

	contextJSON := "{}"
	if teamCtx != nil {
		data, err := json.Marshal(teamCtx)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal team context: %w", err)
		}
		contextJSON = string(data)
	}

	template := prompts.MustGet("rerank.json", "rerank-candidates")
	prompt := prompts.Format(template, map[string]string{
		"QueryType":  queryType,
		"QueryText":  queryText,
		"Context":    contextJSON,
		"Candidates": string(candidatesJSON),
	})

	callCtx, cancel := context.WithTimeout(ctx, r.cfg.RerankTimeout())
	defer cancel()

	jsonResp, err := r.client.GenerateJSON(callCtx, prompt, llm.TierStandard)
	if err != nil {
		return nil, fmt.Errorf("LLM generation failed: %w", err)
	}
	jsonResp = llm.CleanJSONBlock(jsonResp)

	if err := schemas.Validate(schemas.RerankResponse, []byte(jsonResp)); err != nil {
		return nil, fmt.Errorf("rerank response rejected: %w", err)
	}

	var resp rerankResponse
	if err := json.Unmarshal([]byte(jsonResp), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse rerank response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("rerank endpoint reported: %s", resp.Error)
	}
	return &resp, nil
}

// reconcile joins the response back onto the request by candidate key.
// Unknown keys are discarded; request candidates absent from the response
// (including those beyond the top-N cutoff) are re-inserted at their
// baseline score.
func (r *Reranker) reconcile(query profile.Profile, candidates []types.Candidate, sendCount int, resp *rerankResponse) []types.RankedResult {
	byKey := make(map[string]int, len(candidates))
	for i, c := range candidates {
		byKey[c.Key] = i
	}

	scored := make(map[string]rerankedItem, len(resp.Ranked))
	for _, item := range resp.Ranked {
		if _, known := byKey[item.Key]; !known {
			log.Printf("rerank: discarding unknown key %q", item.Key)
			continue
		}
		scored[item.Key] = item
	}

	results := make([]types.RankedResult, 0, len(candidates))
	for i, c := range candidates {
		base := NormalizeBaseline(c.BaselineScore)
		item, wasScored := scored[c.Key]
		if !wasScored || i >= sendCount {
			results = append(results, r.baselineResult(query, c, ReasonBaselineFallback))
			continue
		}

		score := clamp01(item.FinalScore)
		matched := item.MatchedSkills
		if len(matched) == 0 {
			matched = r.scorer.MatchedSkills(query, c)
		}
		results = append(results, types.RankedResult{
			Key:           c.Key,
			EntityID:      c.EntityID,
			Title:         c.Title,
			Text:          c.Text,
			FinalScore:    blendBaselineWeight*base + blendRerankWeight*score,
			Reason:        item.Reason,
			MatchedSkills: matched,
			BalanceNote:   item.BalanceNote,
		})
	}

	// Descending final score; the stable sort keeps baseline order on ties.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].FinalScore > results[j].FinalScore
	})
	return results
}

// baselineResults maps the baseline ranking unchanged onto RankedResults.
func (r *Reranker) baselineResults(query profile.Profile, candidates []types.Candidate, reason string) []types.RankedResult {
	results := make([]types.RankedResult, len(candidates))
	for i, c := range candidates {
		results[i] = r.baselineResult(query, c, reason)
	}
	return results
}

func (r *Reranker) baselineResult(query profile.Profile, c types.Candidate, reason string) types.RankedResult {
	return types.RankedResult{
		Key:           c.Key,
		EntityID:      c.EntityID,
		Title:         c.Title,
		Text:          c.Text,
		FinalScore:    NormalizeBaseline(c.BaselineScore),
		Reason:        reason,
		MatchedSkills: r.scorer.MatchedSkills(query, c),
		BalanceNote:   reason,
	}
}

// NormalizeBaseline maps an integer baseline score onto the 0..1 scale
// shared with reranked final scores. Callers comparing thresholds against
// RankedResult.FinalScore must normalize through this.
func NormalizeBaseline(score int) float64 {
	return clamp01(float64(score) / normalizeDivisor)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
