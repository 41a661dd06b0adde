package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/ats-optimizer/internal/types"
)

func TestPrintJobPosting(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintJobPosting(&types.JobPosting{
		Role:    "Backend Engineer",
		Company: "Initech",
		Skills:  []string{"Go", "Kubernetes"},
		Requirements: []types.JobRequirement{
			{Text: "5+ years of Go", Required: true},
			{Text: "Kafka experience", Required: false},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "PARSED JOB POSTING")
	assert.Contains(t, out, "Backend Engineer")
	assert.Contains(t, out, "5+ years of Go")
	assert.Contains(t, out, "(preferred)")
	assert.Contains(t, out, "Go, Kubernetes")
}

func TestPrintJobPostingNil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintJobPosting(nil)
	assert.Empty(t, buf.String())
}

func TestPrintAnalysisDecisionCounts(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintAnalysis(&types.AnalysisResult{
		MatchScore: 72.5,
		Bullets: []types.BulletAnalysis{
			{Decision: types.DecisionKeep},
			{Decision: types.DecisionKeep},
			{Decision: types.DecisionRewrite},
			{Decision: types.DecisionDeEmphasize},
		},
		MissingSkills: []string{"Kubernetes"},
	})

	out := buf.String()
	assert.Contains(t, out, "72.5")
	assert.Contains(t, out, "Keep:          2")
	assert.Contains(t, out, "Rewrite:       1")
	assert.Contains(t, out, "De-emphasize:  1")
	assert.Contains(t, out, "Kubernetes")
}

func TestPrintProfileShowsFailedSources(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintProfile(&types.Profile{
		Repositories: []types.Repository{{Name: "pipeline"}},
		SourceErrors: map[string]string{"linkedin": "fetch failed"},
	})

	out := buf.String()
	assert.Contains(t, out, "INGESTED PROFILE")
	assert.Contains(t, out, "linkedin")
}

func TestPrintBoxTruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TITLE", strings.Repeat("x", 200))

	for _, line := range strings.Split(buf.String(), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), boxWidth+2)
	}
}

func TestPrintDecisions(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintDecisions([]types.BulletAnalysis{
		{
			Bullet:       types.ResumeBullet{Text: "Built a pipeline"},
			Decision:     types.DecisionRewrite,
			JDSimilarity: 0.55,
			KeywordScore: 0.2,
			HasEvidence:  true,
		},
	})

	out := buf.String()
	assert.Contains(t, out, "[REWRITE] Built a pipeline")
	assert.Contains(t, out, "sim=0.55")
}
