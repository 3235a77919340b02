package types

import (
	"github.com/google/uuid"

	"github.com/teamforge/engine/internal/profile"
)

// StudentAssignment records one student placed into an existing group.
type StudentAssignment struct {
	StudentID     uuid.UUID    `json:"student_id"`
	GroupID       uuid.UUID    `json:"group_id"`
	GroupName     string       `json:"group_name"`
	SuggestedRole profile.Role `json:"suggested_role"`
	Score         float64      `json:"score"`
	Reason        string       `json:"reason,omitempty"`
}

// TopicAssignment records one topic assigned to a fully staffed group.
type TopicAssignment struct {
	GroupID    uuid.UUID `json:"group_id"`
	TopicID    uuid.UUID `json:"topic_id"`
	TopicTitle string    `json:"topic_title"`
	Score      float64   `json:"score"`
}

// NewGroup records a group formed from the leftover pool of one major.
type NewGroup struct {
	GroupID uuid.UUID   `json:"group_id"`
	Name    string      `json:"name"`
	MajorID uuid.UUID   `json:"major_id"`
	Members []uuid.UUID `json:"members"`
	TopicID *uuid.UUID  `json:"topic_id,omitempty"`
}

// StudentIssue records why a specific student could not be placed.
type StudentIssue struct {
	StudentID uuid.UUID `json:"student_id"`
	Reason    string    `json:"reason"`
}

// GroupIssue records why a specific group could not be completed.
type GroupIssue struct {
	GroupID uuid.UUID `json:"group_id"`
	Reason  string    `json:"reason"`
}

// AutoResolveResult is the full report of one auto-resolve batch run. It is
// a plan: nothing in it has been persisted. Every input student appears in
// exactly one of Assignments, NewGroups members, or StudentIssues.
type AutoResolveResult struct {
	StudentsAssigned int `json:"students_assigned"`
	TopicsAssigned   int `json:"topics_assigned"`
	GroupsCreated    int `json:"groups_created"`

	Assignments      []StudentAssignment `json:"assignments"`
	TopicAssignments []TopicAssignment   `json:"topic_assignments"`
	NewGroups        []NewGroup          `json:"new_groups"`
	StudentIssues    []StudentIssue      `json:"student_issues"`
	GroupIssues      []GroupIssue        `json:"group_issues"`

	// Partial is set when the run was cancelled mid-batch and the report
	// covers only the work completed before cancellation.
	Partial bool `json:"partial,omitempty"`
}

// NewGroupMemberCount returns the number of students placed via new groups.
func (r *AutoResolveResult) NewGroupMemberCount() int {
	count := 0
	for _, g := range r.NewGroups {
		count += len(g.Members)
	}
	return count
}
