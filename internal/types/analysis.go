package types

// Decision is the per-bullet outcome of alignment analysis.
type Decision string

const (
	// DecisionKeep leaves the bullet unchanged
	DecisionKeep Decision = "KEEP"
	// DecisionRewrite flags the bullet for LLM rewriting
	DecisionRewrite Decision = "REWRITE"
	// DecisionAdd proposes a new bullet backed by profile evidence
	DecisionAdd Decision = "ADD"
	// DecisionDeEmphasize marks the bullet as low relevance to the posting
	DecisionDeEmphasize Decision = "DE_EMPHASIZE"
)

// Valid reports whether d is one of the four known decisions.
func (d Decision) Valid() bool {
	switch d {
	case DecisionKeep, DecisionRewrite, DecisionAdd, DecisionDeEmphasize:
		return true
	}
	return false
}

// ResumeBullet is one line item of resume content with its position in the
// source document. StartPos/EndPos index into the raw LaTeX content.
type ResumeBullet struct {
	Text          string `json:"text"`
	OriginalLaTeX string `json:"original_latex"`
	Section       string `json:"section"`
	Index         int    `json:"index"`
	StartPos      int    `json:"start_pos"`
	EndPos        int    `json:"end_pos"`
	IsItem        bool   `json:"is_item"` // \item vs plain text bullet
}

// MatchResult pairs a bullet or capability with a job requirement.
type MatchResult struct {
	RequirementText string  `json:"requirement_text"`
	Required        bool    `json:"required"`
	MatchedText     string  `json:"matched_text,omitempty"`
	Similarity      float64 `json:"similarity"`
	Justification   string  `json:"justification,omitempty"`
}

// BulletAnalysis is the alignment decision for a single resume bullet,
// together with the signals that produced it.
type BulletAnalysis struct {
	Bullet           ResumeBullet          `json:"bullet"`
	Decision         Decision              `json:"decision"`
	JDSimilarity     float64               `json:"jd_similarity"`
	KeywordScore     float64               `json:"keyword_score"`
	ProfileAlignment float64               `json:"profile_alignment"`
	HasEvidence      bool                  `json:"has_evidence"`
	Evidence         []CapabilityStatement `json:"evidence,omitempty"`
	Reasoning        string                `json:"reasoning"`
	RewrittenText    string                `json:"rewritten_text,omitempty"`
}

// AnalysisResult is the aggregate artifact for one run. Immutable once written.
type AnalysisResult struct {
	MatchScore      float64          `json:"match_score"` // 0-100
	Matches         []MatchResult    `json:"matches"`
	Bullets         []BulletAnalysis `json:"bullets"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
	MissingSkills   []string         `json:"missing_skills,omitempty"`
	Strengths       []string         `json:"strengths,omitempty"`
}

// DecisionCounts tallies bullets by decision, for summaries.
func (r *AnalysisResult) DecisionCounts() map[Decision]int {
	counts := make(map[Decision]int)
	for _, b := range r.Bullets {
		counts[b.Decision]++
	}
	return counts
}
