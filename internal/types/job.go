package types

import "strings"

// JobRequirement is one extracted requirement or qualification statement.
type JobRequirement struct {
	Text     string `json:"text"`
	Skill    string `json:"skill,omitempty"`
	Required bool   `json:"required"` // false means preferred / nice-to-have
}

// JobPosting is the structured form of a parsed job description.
type JobPosting struct {
	Role             string           `json:"role"`
	Company          string           `json:"company"`
	Location         string           `json:"location,omitempty"`
	Skills           []string         `json:"skills"`
	Responsibilities []string         `json:"responsibilities"`
	Requirements     []JobRequirement `json:"requirements"`
	Keywords         []string         `json:"keywords"`
	ExperienceLevel  string           `json:"experience_level,omitempty"`
	Education        string           `json:"education,omitempty"`
	RawText          string           `json:"raw_text,omitempty"`
	SourceURL        string           `json:"source_url,omitempty"`
}

// KeywordText flattens the posting into a single string suitable for embedding
// against resume bullets and capability statements.
func (j *JobPosting) KeywordText() string {
	parts := []string{j.Role}
	parts = append(parts, j.Skills...)
	parts = append(parts, j.Keywords...)
	for i, r := range j.Responsibilities {
		if i >= 5 {
			break
		}
		parts = append(parts, r)
	}
	for i, r := range j.Requirements {
		if i >= 5 {
			break
		}
		parts = append(parts, r.Text)
	}
	return strings.Join(parts, " ")
}

// RequiredCount returns how many requirements carry the required flag.
func (j *JobPosting) RequiredCount() int {
	n := 0
	for _, r := range j.Requirements {
		if r.Required {
			n++
		}
	}
	return n
}
