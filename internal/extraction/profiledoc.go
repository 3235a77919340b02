package extraction

import (
	"encoding/json"
	"fmt"

	"github.com/teamforge/engine/internal/profile"
)

// profileDoc is the stored student profile document shape.
type profileDoc struct {
	PrimaryRole string   `json:"primary_role"`
	SkillTags   []string `json:"skill_tags"`
}

// ProfileDocument renders extracted skills as a profile document ready to
// store on a student record. Tags are normalized and the primary role is
// inferred from them.
func ProfileDocument(skills []Skill) (string, error) {
	names := make([]string, 0, len(skills))
	for _, s := range skills {
		names = append(names, s.Name)
	}

	p := profile.FromTags(names)
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}

	data, err := json.Marshal(profileDoc{
		PrimaryRole: p.PrimaryRole.String(),
		SkillTags:   tags,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal profile document: %w", err)
	}
	return string(data), nil
}
