package ranking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamforge/engine/internal/llm"
	"github.com/teamforge/engine/internal/profile"
	"github.com/teamforge/engine/internal/types"
)

// MockLLMClient implements llm.Client for testing.
type MockLLMClient struct {
	Prompts          []string
	GenerateJSONFunc func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
}

func (m *MockLLMClient) GenerateContent(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
	return "", nil
}

func (m *MockLLMClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, prompt, tier)
	}
	return `{"ranked": []}`, nil
}

func (m *MockLLMClient) GetModel(_ llm.ModelTier) string { return "mock-model" }

func (m *MockLLMClient) Close() error { return nil }

func baselineCandidates(scorer *BaselineScorer, query profile.Profile) []types.Candidate {
	return scorer.Rank(query, []types.Candidate{
		{Key: "A", EntityID: uuid.New(), Title: "Group A", Text: "go sql"},
		{Key: "B", EntityID: uuid.New(), Title: "Group B", Text: "go"},
		{Key: "C", EntityID: uuid.New(), Title: "Group C", Text: "nothing"},
	})
}

func TestRerank_NilClientIsBaselineOnly(t *testing.T) {
	query := profile.FromText("go, sql")
	scorer := NewBaselineScorer(testScoring())
	candidates := baselineCandidates(scorer, query)

	reranker := NewReranker(nil, testScoring())
	results := reranker.Rerank(context.Background(), "group", "go sql", query, candidates, nil)

	require.Len(t, results, 3)
	for i, res := range results {
		assert.Equal(t, candidates[i].Key, res.Key)
		assert.Equal(t, ReasonBaselineOnly, res.Reason)
		assert.InDelta(t, float64(candidates[i].BaselineScore)/100.0, res.FinalScore, 0.0001)
	}
}

func TestRerank_ErrorFallsBackToExactBaseline(t *testing.T) {
	tests := []struct {
		name string
		fn   func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	}{
		{
			name: "transport error",
			fn: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
				return "", errors.New("connection reset")
			},
		},
		{
			name: "malformed body",
			fn: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
				return "this is not json", nil
			},
		},
		{
			name: "schema violation",
			fn: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
				return `{"ranked": [{"final_score": 0.9}]}`, nil
			},
		},
		{
			name: "error field set",
			fn: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
				return `{"error": "model overloaded"}`, nil
			},
		},
		{
			name: "timeout",
			fn: func(ctx context.Context, _ string, _ llm.ModelTier) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := profile.FromText("go, sql")
			scorer := NewBaselineScorer(testScoring())
			candidates := baselineCandidates(scorer, query)

			cfg := testScoring()
			cfg.RerankTimeoutSeconds = 1
			reranker := NewReranker(&MockLLMClient{GenerateJSONFunc: tt.fn}, cfg)

			start := time.Now()
			results := reranker.Rerank(context.Background(), "group", "go sql", query, candidates, nil)
			assert.Less(t, time.Since(start), 5*time.Second)

			require.Len(t, results, 3)
			for i, res := range results {
				// Same order, same normalized scores, labeled unavailable.
				assert.Equal(t, candidates[i].Key, res.Key)
				assert.InDelta(t, float64(candidates[i].BaselineScore)/100.0, res.FinalScore, 0.0001)
				assert.Equal(t, ReasonRerankUnavailable, res.Reason)
			}
		})
	}
}

func TestRerank_KeyReconciliation(t *testing.T) {
	// Response scores A, invents D, and omits B and C.
	mock := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return `{"ranked": [
				{"key": "A", "final_score": 0.95, "reason": "strong skill fit", "matched_skills": ["go", "sql"]},
				{"key": "D", "final_score": 0.99, "reason": "hallucinated"}
			]}`, nil
		},
	}

	query := profile.FromText("go, sql")
	scorer := NewBaselineScorer(testScoring())
	candidates := baselineCandidates(scorer, query)

	reranker := NewReranker(mock, testScoring())
	results := reranker.Rerank(context.Background(), "group", "go sql", query, candidates, nil)

	require.Len(t, results, 3)

	byKey := make(map[string]types.RankedResult)
	for _, res := range results {
		byKey[res.Key] = res
	}
	require.NotContains(t, byKey, "D")

	assert.Equal(t, "strong skill fit", byKey["A"].Reason)
	assert.Equal(t, ReasonBaselineFallback, byKey["B"].Reason)
	assert.Equal(t, ReasonBaselineFallback, byKey["C"].Reason)

	// A was reranked at 0.95; its blend must beat the fallback scores.
	assert.Equal(t, "A", results[0].Key)
}

func TestRerank_TopNBoundsCandidateList(t *testing.T) {
	cfg := testScoring()
	cfg.RerankTopN = 2

	mock := &MockLLMClient{}
	query := profile.FromText("go, sql")
	scorer := NewBaselineScorer(cfg)
	candidates := baselineCandidates(scorer, query)

	reranker := NewReranker(mock, cfg)
	results := reranker.Rerank(context.Background(), "group", "go sql", query, candidates, nil)

	require.Len(t, results, 3)
	require.Len(t, mock.Prompts, 1)
	// Only the top two baseline candidates are in the prompt.
	assert.Contains(t, mock.Prompts[0], `"key":"A"`)
	assert.Contains(t, mock.Prompts[0], `"key":"B"`)
	assert.NotContains(t, mock.Prompts[0], `"key":"C"`)
}

func TestRerank_TeamContextInPrompt(t *testing.T) {
	mock := &MockLLMClient{}
	query := profile.FromText("go")
	scorer := NewBaselineScorer(testScoring())
	candidates := scorer.Rank(query, []types.Candidate{{Key: "A", Text: "go"}})

	teamCtx := &types.TeamContext{
		TeamName:     "Team Rocket",
		PrimaryNeed:  "backend",
		CurrentMixFe: 2,
	}

	reranker := NewReranker(mock, testScoring())
	_ = reranker.Rerank(context.Background(), "group", "go", query, candidates, teamCtx)

	require.Len(t, mock.Prompts, 1)
	assert.Contains(t, mock.Prompts[0], "Team Rocket")
}

func TestRerank_EmptyCandidates(t *testing.T) {
	reranker := NewReranker(&MockLLMClient{}, testScoring())
	results := reranker.Rerank(context.Background(), "group", "q", profile.Empty, nil, nil)
	assert.Nil(t, results)
}

func TestRerank_ScoreClamping(t *testing.T) {
	mock := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return `{"ranked": [{"key": "A", "final_score": 42.0, "reason": "overeager"}]}`, nil
		},
	}

	query := profile.FromText("go")
	scorer := NewBaselineScorer(testScoring())
	candidates := scorer.Rank(query, []types.Candidate{{Key: "A", Text: "go"}})

	reranker := NewReranker(mock, testScoring())
	results := reranker.Rerank(context.Background(), "group", "go", query, candidates, nil)

	require.Len(t, results, 1)
	assert.LessOrEqual(t, results[0].FinalScore, 1.0)
}
