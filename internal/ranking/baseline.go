// Package ranking provides the deterministic baseline scorer and the LLM
// reranker that refines its output with a mandatory fallback.
package ranking

import (
	"sort"

	"github.com/teamforge/engine/internal/config"
	"github.com/teamforge/engine/internal/profile"
	"github.com/teamforge/engine/internal/types"
)

// BaselineScorer ranks candidates against a query profile using integer
// point arithmetic only, so the ordering is reproducible across runs and
// platforms. It has no failure mode.
type BaselineScorer struct {
	cfg config.Scoring
}

// NewBaselineScorer creates a scorer with the given policy constants.
func NewBaselineScorer(cfg config.Scoring) *BaselineScorer {
	return &BaselineScorer{cfg: cfg}
}

// Rank scores every candidate against the query profile and returns them
// sorted: higher score first, equal scores by candidate key ascending.
// Insertion order is deliberately not a tie-breaker; it is not stable
// across call sites.
func (s *BaselineScorer) Rank(query profile.Profile, candidates []types.Candidate) []types.Candidate {
	ranked := make([]types.Candidate, len(candidates))
	copy(ranked, candidates)

	for i := range ranked {
		ranked[i].BaselineScore = s.Score(query, ranked[i])
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].BaselineScore != ranked[j].BaselineScore {
			return ranked[i].BaselineScore > ranked[j].BaselineScore
		}
		return ranked[i].Key < ranked[j].Key
	})

	return ranked
}

// Score computes the baseline score of one candidate: matched tags times
// the skill weight, plus a role-match bonus, plus capacity and role-balance
// adjustments.
func (s *BaselineScorer) Score(query profile.Profile, cand types.Candidate) int {
	candProfile := profile.FromText(cand.Text)

	score := len(query.FindMatches(candProfile)) * s.cfg.SkillMatchWeight

	if cand.NeededRole != profile.RoleUnknown && cand.NeededRole == query.PrimaryRole {
		score += s.cfg.RoleMatchBonus
	}

	score += cand.OpenSlots * s.cfg.CapacityWeight
	score += s.balanceAdjustment(query.PrimaryRole, cand)

	return score
}

// MatchedSkills returns the query tags found in the candidate's text, in
// the candidate's order.
func (s *BaselineScorer) MatchedSkills(query profile.Profile, cand types.Candidate) []string {
	return query.FindMatches(profile.FromText(cand.Text))
}

// balanceAdjustment rewards candidates whose group is short on the query
// role and penalizes those where it already dominates. Candidates without
// a role mix (students, topics) get no adjustment.
func (s *BaselineScorer) balanceAdjustment(role profile.Role, cand types.Candidate) int {
	total := cand.GroupFrontendCount + cand.GroupBackendCount + cand.GroupOtherCount
	if total == 0 || role == profile.RoleUnknown {
		return 0
	}

	var own int
	switch role {
	case profile.RoleFrontend:
		own = cand.GroupFrontendCount
	case profile.RoleBackend:
		own = cand.GroupBackendCount
	default:
		own = cand.GroupOtherCount
	}

	least := min(cand.GroupFrontendCount, cand.GroupBackendCount, cand.GroupOtherCount)
	most := max(cand.GroupFrontendCount, cand.GroupBackendCount, cand.GroupOtherCount)

	switch {
	case own == least && own < most:
		return s.cfg.BalancePenalty
	case own == most && own > least:
		return -s.cfg.BalancePenalty
	default:
		return 0
	}
}
