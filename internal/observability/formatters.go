// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/teamforge/engine/internal/extraction"
	"github.com/teamforge/engine/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintRankedResults outputs the top candidates of one ranking call with
// scores and matched skills.
func (p *Printer) PrintRankedResults(title string, results []types.RankedResult) {
	if len(results) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total candidates ranked: %d\n\n", len(results)))

	count := min(len(results), maxItemsToShow)
	for i := 0; i < count; i++ {
		res := results[i]
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, res.Title))
		sb.WriteString(fmt.Sprintf("    Score: %.2f (%s)\n", res.FinalScore, res.Reason))
		if len(res.MatchedSkills) > 0 {
			skills := strings.Join(res.MatchedSkills, ", ")
			if len(skills) > 40 {
				skills = skills[:37] + "..."
			}
			sb.WriteString(fmt.Sprintf("    Skills: %s\n", skills))
		}
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(results) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more candidates", len(results)-maxItemsToShow))
	}

	p.printBox(title, sb.String())
}

// PrintExtractedSkills outputs the skills found for one source document.
func (p *Printer) PrintExtractedSkills(sourceID string, skills []extraction.Skill) {
	if len(skills) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Source: %s\n\n", sourceID))

	count := min(len(skills), maxItemsToShow)
	for i := 0; i < count; i++ {
		skill := skills[i]
		sb.WriteString(fmt.Sprintf("• %s (%.2f)\n", skill.Name, skill.Confidence))
		if skill.Evidence != "" {
			evidence := skill.Evidence
			if len(evidence) > 45 {
				evidence = evidence[:42] + "..."
			}
			sb.WriteString(fmt.Sprintf("  %s\n", evidence))
		}
	}

	if len(skills) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more skills", len(skills)-maxItemsToShow))
	}

	p.printBox("EXTRACTED SKILLS", sb.String())
}

// PrintResolveResult outputs the summary of one auto-resolve plan.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintResolveResult(result *types.AutoResolveResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Students assigned:  %d\n", result.StudentsAssigned))
	sb.WriteString(fmt.Sprintf("New groups formed:  %d (%d students)\n",
		result.GroupsCreated, result.NewGroupMemberCount()))
	sb.WriteString(fmt.Sprintf("Topics assigned:    %d\n", result.TopicsAssigned))

	if len(result.Assignments) > 0 {
		sb.WriteString("\nAssignments:\n")
		count := min(len(result.Assignments), maxItemsToShow)
		for i := 0; i < count; i++ {
			a := result.Assignments[i]
			sb.WriteString(fmt.Sprintf("  • %s → %s (%.2f, %s)\n",
				shortID(a.StudentID.String()), a.GroupName, a.Score, a.SuggestedRole))
		}
		if len(result.Assignments) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(result.Assignments)-maxItemsToShow))
		}
	}

	issues := len(result.StudentIssues) + len(result.GroupIssues)
	if issues > 0 {
		sb.WriteString(fmt.Sprintf("\nIssues (%d):\n", issues))
		shown := 0
		for _, issue := range result.StudentIssues {
			if shown == maxItemsToShow {
				break
			}
			sb.WriteString(fmt.Sprintf("  ⚠ student %s: %s\n", shortID(issue.StudentID.String()), issue.Reason))
			shown++
		}
		for _, issue := range result.GroupIssues {
			if shown == maxItemsToShow {
				break
			}
			sb.WriteString(fmt.Sprintf("  ⚠ group %s: %s\n", shortID(issue.GroupID.String()), issue.Reason))
			shown++
		}
		if issues > shown {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", issues-shown))
		}
	}

	if result.Partial {
		sb.WriteString("\n⚠ PARTIAL RESULT (run was cancelled)\n")
	}

	p.printBox("AUTO-RESOLVE PLAN", strings.TrimSuffix(sb.String(), "\n"))
}

// shortID abbreviates a UUID for box output.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
