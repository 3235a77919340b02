package types

import (
	"github.com/google/uuid"

	"github.com/teamforge/engine/internal/profile"
)

// Student is an unplaced student as read from the student repository.
// ProfileJSON is the stored skill document (object, array, or free-text
// fallback); FreeText is profile prose from the student's introduction.
type Student struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	MajorID     uuid.UUID `json:"major_id"`
	ProfileJSON string    `json:"profile_json,omitempty"`
	FreeText    string    `json:"free_text,omitempty"`
}

// Profile derives the student's skill profile, preferring the structured
// document over free text.
func (s Student) Profile() profile.Profile {
	if p := profile.FromJSON(s.ProfileJSON); !p.IsEmpty() {
		return p
	}
	return profile.FromText(s.FreeText)
}

// GroupStatus is the lifecycle state of a group within a semester.
type GroupStatus string

// Group lifecycle states. Only forming groups accept auto-resolved members.
const (
	GroupStatusForming GroupStatus = "forming"
	GroupStatusActive  GroupStatus = "active"
	GroupStatusClosed  GroupStatus = "closed"
)

// Group is an existing project group with open capacity.
type Group struct {
	ID            uuid.UUID    `json:"id"`
	Name          string       `json:"name"`
	MajorID       uuid.UUID    `json:"major_id"`
	SemesterID    uuid.UUID    `json:"semester_id"`
	Status        GroupStatus  `json:"status"`
	Description   string       `json:"description,omitempty"`
	MaxSize       int          `json:"max_size"`
	MemberCount   int          `json:"member_count"`
	NeededRole    profile.Role `json:"needed_role"`
	TopicID       *uuid.UUID   `json:"topic_id,omitempty"`
	FrontendCount int          `json:"frontend_count"`
	BackendCount  int          `json:"backend_count"`
	OtherCount    int          `json:"other_count"`
	// Member skill documents, used to build the group's aggregate profile
	// for topic matching.
	MemberProfiles []string `json:"member_profiles,omitempty"`
}

// OpenSlots returns the remaining capacity of the group.
func (g Group) OpenSlots() int {
	if g.MaxSize <= g.MemberCount {
		return 0
	}
	return g.MaxSize - g.MemberCount
}

// CombinedProfile merges the member skill documents into one aggregate
// profile for the group.
func (g Group) CombinedProfile() profile.Profile {
	profiles := make([]profile.Profile, 0, len(g.MemberProfiles))
	for _, doc := range g.MemberProfiles {
		profiles = append(profiles, profile.FromJSON(doc))
	}
	return profile.Combine(profiles)
}

// TopicStatus is the lifecycle state of a topic.
type TopicStatus string

// Topic lifecycle states. Only open topics are assignable.
const (
	TopicStatusOpen     TopicStatus = "open"
	TopicStatusAssigned TopicStatus = "assigned"
	TopicStatusArchived TopicStatus = "archived"
)

// Topic is a project topic offered within a semester and major.
type Topic struct {
	ID          uuid.UUID   `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	MajorID     uuid.UUID   `json:"major_id"`
	SemesterID  uuid.UUID   `json:"semester_id"`
	Status      TopicStatus `json:"status"`
	// Skill tags the topic supervisor listed as relevant.
	SkillTags []string `json:"skill_tags,omitempty"`
}

// SizePolicy is the group sizing rule for a semester (and optionally a
// major). Auto-resolve never forms groups outside these bounds.
type SizePolicy struct {
	MinSize int `json:"min_size"`
	MaxSize int `json:"max_size"`
}

// Valid reports whether the policy describes a usable size range.
func (p SizePolicy) Valid() bool {
	return p.MinSize > 0 && p.MaxSize >= p.MinSize
}
