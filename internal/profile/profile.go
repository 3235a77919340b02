// Package profile provides the canonical skill profile value type and the
// normalization rules that turn free text or loosely structured JSON into it.
package profile

import (
	"encoding/json"
	"strings"
)

// Role is the coarse classification of a person or group's skill emphasis.
type Role int

// Role values, in stable enumeration order. Combine tie-breaks use this order.
const (
	RoleUnknown Role = iota
	RoleFrontend
	RoleBackend
	RoleOther
)

// String returns the lowercase role name.
func (r Role) String() string {
	switch r {
	case RoleFrontend:
		return "frontend"
	case RoleBackend:
		return "backend"
	case RoleOther:
		return "other"
	default:
		return "unknown"
	}
}

// ParseRole maps a role string to a Role. Matching is by keyword containment,
// so "front-end developer" and "Backend/API" both resolve correctly.
func ParseRole(s string) Role {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return RoleUnknown
	}
	switch {
	case containsAny(s, frontendKeywords):
		return RoleFrontend
	case containsAny(s, backendKeywords):
		return RoleBackend
	default:
		return RoleOther
	}
}

var (
	frontendKeywords = []string{"front", "ui", "ux", "react", "design"}
	backendKeywords  = []string{"back", "api", "server", "database", "python", "etl"}
)

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// Profile is an immutable skill profile: a primary role plus a normalized
// tag set. Tags are lowercase, trimmed, deduplicated, and never empty.
type Profile struct {
	PrimaryRole Role     `json:"primary_role"`
	Tags        []string `json:"tags"`
}

// Empty is the zero profile returned when nothing could be derived.
var Empty = Profile{PrimaryRole: RoleUnknown}

// IsEmpty reports whether the profile carries no information.
func (p Profile) IsEmpty() bool {
	return p.PrimaryRole == RoleUnknown && len(p.Tags) == 0
}

// HasTag reports whether the profile contains the tag (case-insensitive).
func (p Profile) HasTag(tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// FindMatches returns the case-insensitive intersection of the two tag sets.
// Order follows other's tag order; duplicates are removed.
func (p Profile) FindMatches(other Profile) []string {
	if len(p.Tags) == 0 || len(other.Tags) == 0 {
		return nil
	}
	mine := make(map[string]bool, len(p.Tags))
	for _, t := range p.Tags {
		mine[t] = true
	}
	var matches []string
	seen := make(map[string]bool)
	for _, t := range other.Tags {
		if mine[t] && !seen[t] {
			matches = append(matches, t)
			seen[t] = true
		}
	}
	return matches
}

// jsonForm mirrors the key spellings seen in stored profile documents.
// Only one spelling per concept is expected, but all are accepted.
type jsonForm struct {
	PrimaryRole  string   `json:"primary_role"`
	PrimaryRole2 string   `json:"primaryRole"`
	Primary      string   `json:"primary"`
	SkillTags    []string `json:"skill_tags"`
	SkillTags2   []string `json:"skillTags"`
	Skills       []string `json:"skills"`
	Tags         []string `json:"tags"`
	Stack        []string `json:"stack"`
}

// FromJSON builds a profile from a JSON document. Two shapes are accepted:
// an object with role/tag keys, or a bare array of tag strings. Any parse
// failure yields Empty rather than an error so that profile extraction can
// never abort a larger batch.
func FromJSON(text string) Profile {
	text = strings.TrimSpace(text)
	if text == "" {
		return Empty
	}

	if strings.HasPrefix(text, "[") {
		var tags []string
		if err := json.Unmarshal([]byte(text), &tags); err != nil {
			return Empty
		}
		return fromTags(tags, "")
	}

	var form jsonForm
	if err := json.Unmarshal([]byte(text), &form); err != nil {
		return Empty
	}

	role := firstNonEmpty(form.PrimaryRole, form.PrimaryRole2, form.Primary)
	tags := form.SkillTags
	if tags == nil {
		tags = form.SkillTags2
	}
	if tags == nil {
		tags = form.Skills
	}
	if tags == nil {
		tags = form.Tags
	}
	if tags == nil {
		tags = form.Stack
	}
	return fromTags(tags, role)
}

// FromText builds a profile from free text. The text is tokenized on common
// separators and whitespace; the role is inferred from keyword containment
// since free text carries no explicit role field.
func FromText(text string) Profile {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return Empty
	}
	p := fromTags(tokens, "")
	p.PrimaryRole = inferRole(p.Tags)
	return p
}

// Tokenize splits free text into raw skill tokens: first on the separator
// set `, ; / | \n \r \t`, then each piece on spaces.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case ',', ';', '/', '|', '\n', '\r', '\t':
			return true
		}
		return false
	})
	var tokens []string
	for _, f := range fields {
		tokens = append(tokens, strings.Fields(f)...)
	}
	return tokens
}

// Combine merges member profiles into one aggregate profile: the union of
// all tag sets, and the most frequent non-Unknown primary role. Role ties
// break by enumeration order so the result is deterministic.
func Combine(profiles []Profile) Profile {
	if len(profiles) == 0 {
		return Empty
	}

	seen := make(map[string]bool)
	var tags []string
	counts := make(map[Role]int)
	for _, p := range profiles {
		for _, t := range p.Tags {
			if !seen[t] {
				tags = append(tags, t)
				seen[t] = true
			}
		}
		if p.PrimaryRole != RoleUnknown {
			counts[p.PrimaryRole]++
		}
	}

	best := RoleUnknown
	bestCount := 0
	for _, r := range []Role{RoleFrontend, RoleBackend, RoleOther} {
		if counts[r] > bestCount {
			best = r
			bestCount = counts[r]
		}
	}

	return Profile{PrimaryRole: best, Tags: tags}
}

// FromTags builds a profile from raw tag strings, normalizing them and
// inferring the primary role from keyword containment.
func FromTags(raw []string) Profile {
	return fromTags(raw, "")
}

// fromTags normalizes raw tags and an optional explicit role string into a
// profile. When no explicit role is present the role is inferred from tags.
func fromTags(raw []string, roleText string) Profile {
	var tags []string
	seen := make(map[string]bool)
	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		tags = append(tags, t)
		seen[t] = true
	}

	role := RoleUnknown
	if strings.TrimSpace(roleText) != "" {
		role = ParseRole(roleText)
	} else if len(tags) > 0 {
		role = inferRole(tags)
	}

	if role == RoleUnknown && len(tags) == 0 {
		return Empty
	}
	return Profile{PrimaryRole: role, Tags: tags}
}

// inferRole classifies a tag set by keyword containment. The first tag that
// hits a frontend or backend keyword decides; otherwise the role is Other.
func inferRole(tags []string) Role {
	for _, t := range tags {
		if containsAny(t, frontendKeywords) {
			return RoleFrontend
		}
	}
	for _, t := range tags {
		if containsAny(t, backendKeywords) {
			return RoleBackend
		}
	}
	if len(tags) == 0 {
		return RoleUnknown
	}
	return RoleOther
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
