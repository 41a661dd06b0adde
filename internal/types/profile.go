// Package types contains the shared domain types passed between pipeline stages.
package types

// SourceKind identifies where a capability statement was derived from.
type SourceKind string

const (
	// SourceGitHub marks statements derived from code repositories
	SourceGitHub SourceKind = "github"
	// SourceScholar marks statements derived from publications
	SourceScholar SourceKind = "scholar"
	// SourceLinkedIn marks statements derived from the professional network profile
	SourceLinkedIn SourceKind = "linkedin"
)

// CapabilityStatement is a normalized sentence describing a skill or experience,
// tagged with the provenance it was derived from.
type CapabilityStatement struct {
	Text       string     `json:"text"`
	Source     SourceKind `json:"source"`
	Provenance string     `json:"provenance,omitempty"` // repository name, publication title, etc.
}

// Repository summarizes one code repository from the hosting provider.
type Repository struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Language    string   `json:"language,omitempty"`
	Stars       int      `json:"stars"`
	Forks       int      `json:"forks"`
	Topics      []string `json:"topics,omitempty"`
	KeyBullets  []string `json:"key_bullets,omitempty"` // extracted from README
	Commits     int      `json:"commits"`
}

// Publication summarizes one scholarly publication.
type Publication struct {
	Title     string `json:"title"`
	Venue     string `json:"venue,omitempty"`
	Year      string `json:"year,omitempty"`
	Citations int    `json:"citations"`
	Abstract  string `json:"abstract,omitempty"`
	URL       string `json:"url,omitempty"`
}

// Experience is one work entry scraped from the network profile.
type Experience struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Description string `json:"description,omitempty"`
}

// Profile aggregates everything ingested for a candidate. Statements are the
// deduplicated capability statements fed to the embedding store; SourceErrors
// records which sources failed (ingestion degrades rather than aborts).
type Profile struct {
	Repositories []Repository          `json:"repositories,omitempty"`
	Languages    map[string]int        `json:"languages,omitempty"`
	TotalCommits int                   `json:"total_commits"`
	Publications []Publication         `json:"publications,omitempty"`
	Citations    int                   `json:"citations"`
	HIndex       int                   `json:"h_index"`
	Experience   []Experience          `json:"experience,omitempty"`
	Statements   []CapabilityStatement `json:"statements"`
	SourceErrors map[string]string     `json:"source_errors,omitempty"`
}

// StatementTexts returns the bare statement strings in profile order.
func (p *Profile) StatementTexts() []string {
	texts := make([]string, 0, len(p.Statements))
	for _, s := range p.Statements {
		texts = append(texts, s.Text)
	}
	return texts
}

// Capabilities is the LLM-structured view of a profile.
type Capabilities struct {
	CoreSkills      []string `json:"core_skills"`
	Technologies    []string `json:"technologies"`
	Experiences     []string `json:"experiences"`
	Projects        []string `json:"projects"`
	Achievements    []string `json:"achievements"`
	DomainExpertise []string `json:"domain_expertise"`
	Education       string   `json:"education_background,omitempty"`
}

// Recommendation is one actionable suggestion from the profile/job match analysis.
type Recommendation struct {
	Action       string `json:"action"` // EMPHASIZE, ADD or REWRITE
	SkillOrTopic string `json:"skill_or_topic"`
	Evidence     string `json:"evidence"`
	Suggestion   string `json:"suggestion"`
}

// MatchAnalysis is the LLM comparison of profile capabilities against a job.
type MatchAnalysis struct {
	SkillMatches    map[string]string `json:"skill_matches"`
	MissingSkills   []string          `json:"missing_skills"`
	Strengths       []string          `json:"strengths"`
	Recommendations []Recommendation  `json:"recommendations"`
	MatchScore      float64           `json:"match_score"` // 0-100
}
