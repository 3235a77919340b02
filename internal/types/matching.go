// Package types provides type definitions for structured data shared across
// the matching engine.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"github.com/google/uuid"

	"github.com/teamforge/engine/internal/profile"
)

// Candidate is the unit ranked by the baseline scorer and the reranker.
// Key is the stable join key between a rank request and the reranked
// response; it must be unique within one ranking call because the LLM may
// drop, reorder, or partially score entries.
type Candidate struct {
	Key           string       `json:"key"`
	EntityID      uuid.UUID    `json:"entity_id"`
	Title         string       `json:"title"`
	Text          string       `json:"text"`
	BaselineScore int          `json:"baseline_score"`
	NeededRole    profile.Role `json:"needed_role"`
	// Current role mix of the group behind this candidate, when the
	// candidate is a group. Zero for student/topic candidates.
	GroupFrontendCount int `json:"group_frontend_count"`
	GroupBackendCount  int `json:"group_backend_count"`
	GroupOtherCount    int `json:"group_other_count"`
	// OpenSlots is the remaining capacity behind this candidate, when the
	// candidate is a group.
	OpenSlots int `json:"open_slots"`
}

// RankedResult is one candidate after ranking. When reranking was
// unavailable FinalScore equals the normalized baseline score and Reason
// says so.
type RankedResult struct {
	Key           string    `json:"key"`
	EntityID      uuid.UUID `json:"entity_id"`
	Title         string    `json:"title"`
	Text          string    `json:"text"`
	FinalScore    float64   `json:"final_score"`
	Reason        string    `json:"reason"`
	MatchedSkills []string  `json:"matched_skills,omitempty"`
	BalanceNote   string    `json:"balance_note,omitempty"`
}

// TeamContext is the query-side input for role-balance-aware reranking.
type TeamContext struct {
	TeamName        string   `json:"team_name"`
	PrimaryNeed     string   `json:"primary_need"`
	Skills          []string `json:"skills,omitempty"`
	CurrentMixFe    int      `json:"current_mix_fe"`
	CurrentMixBe    int      `json:"current_mix_be"`
	CurrentMixOther int      `json:"current_mix_other"`
}
