package observability

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/teamforge/engine/internal/extraction"
	"github.com/teamforge/engine/internal/profile"
	"github.com/teamforge/engine/internal/types"
)

func TestPrintRankedResults(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	results := []types.RankedResult{
		{
			Title:         "Team Alpha",
			FinalScore:    0.85,
			Reason:        "strong backend fit",
			MatchedSkills: []string{"go", "sql"},
		},
		{
			Title:      "Team Beta",
			FinalScore: 0.4,
			Reason:     "baseline only",
		},
	}

	p.PrintRankedResults("GROUP CANDIDATES", results)
	output := buf.String()

	assert.Contains(t, output, "GROUP CANDIDATES")
	assert.Contains(t, output, "Team Alpha")
	assert.Contains(t, output, "0.85")
	assert.Contains(t, output, "strong backend fit")
	assert.Contains(t, output, "go, sql")
}

func TestPrintRankedResults_Empty(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintRankedResults("GROUP CANDIDATES", nil)

	assert.Empty(t, buf.String())
}

func TestPrintExtractedSkills(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	skills := []extraction.Skill{
		{Name: "postgresql", Confidence: 0.9, Evidence: "built the reporting schema"},
		{Name: "react", Confidence: 0.6},
	}

	p.PrintExtractedSkills("stu-42", skills)
	output := buf.String()

	assert.Contains(t, output, "EXTRACTED SKILLS")
	assert.Contains(t, output, "stu-42")
	assert.Contains(t, output, "postgresql (0.90)")
	assert.Contains(t, output, "built the reporting schema")
}

func TestPrintResolveResult(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	studentID := uuid.New()
	result := &types.AutoResolveResult{
		StudentsAssigned: 1,
		GroupsCreated:    1,
		TopicsAssigned:   1,
		Assignments: []types.StudentAssignment{
			{
				StudentID:     studentID,
				GroupName:     "Team Alpha",
				SuggestedRole: profile.RoleBackend,
				Score:         0.72,
			},
		},
		NewGroups: []types.NewGroup{
			{Members: []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}},
		},
		StudentIssues: []types.StudentIssue{
			{StudentID: uuid.New(), Reason: "insufficient pool"},
		},
	}

	p.PrintResolveResult(result)
	output := buf.String()

	assert.Contains(t, output, "AUTO-RESOLVE PLAN")
	assert.Contains(t, output, "Team Alpha")
	assert.Contains(t, output, "backend")
	assert.Contains(t, output, "insufficient pool")
	assert.Contains(t, output, "(3 students)")
	assert.NotContains(t, output, "PARTIAL")
}

func TestPrintResolveResult_Partial(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintResolveResult(&types.AutoResolveResult{Partial: true})

	assert.Contains(t, buf.String(), "PARTIAL RESULT")
}

func TestPrintResolveResult_Nil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintResolveResult(nil)

	assert.Empty(t, buf.String())
}
