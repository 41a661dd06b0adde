package align

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/ats-optimizer/internal/config"
	"github.com/jonathan/ats-optimizer/internal/embedding"
	"github.com/jonathan/ats-optimizer/internal/llm/llmtest"
	"github.com/jonathan/ats-optimizer/internal/types"
)

func defaultThresholds() config.AnalysisConfig {
	return config.AnalysisConfig{
		SimilarityThreshold: 0.6,
		RewriteThreshold:    0.4,
		KeepThreshold:       0.75,
	}
}

func newEngine(t *testing.T, statements []types.CapabilityStatement) *Engine {
	t.Helper()
	store := embedding.NewStore(&llmtest.StubClient{})
	require.NoError(t, store.Rebuild(context.Background(), statements))
	return New(store, defaultThresholds(), nil)
}

func TestDecide(t *testing.T) {
	engine := New(nil, defaultThresholds(), nil)

	tests := []struct {
		name             string
		jdSimilarity     float64
		hasEvidence      bool
		keywordScore     float64
		profileAlignment float64
		shouldEmphasize  bool
		want             types.Decision
	}{
		{"low similarity is de-emphasized", 0.2, false, 0, 0, false, types.DecisionDeEmphasize},
		{"moderate similarity with evidence is rewritten", 0.5, true, 0.3, 0, false, types.DecisionRewrite},
		{"strong all-around signal is kept", 0.9, true, 0.6, 0.8, false, types.DecisionKeep},
		{"emphasized but weak similarity is rewritten", 0.5, true, 0, 0.8, true, types.DecisionRewrite},
		{"emphasized with near-keep similarity is kept", 0.7, true, 0, 0.8, true, types.DecisionKeep},
		{"high similarity without evidence is only rewritten", 0.8, false, 0.3, 0, false, types.DecisionRewrite},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := engine.decide(tc.jdSimilarity, tc.hasEvidence, tc.keywordScore,
				tc.profileAlignment, tc.shouldEmphasize)
			assert.Equal(t, tc.want, got)
			assert.True(t, got.Valid())
		})
	}
}

func TestAnalyzeBulletExactMatch(t *testing.T) {
	statement := "Built a streaming data pipeline in Go"
	engine := newEngine(t, []types.CapabilityStatement{
		{Text: statement, Source: types.SourceGitHub, Provenance: "pipeline"},
	})
	engine.SetJob(&types.JobPosting{Role: statement})

	analysis, err := engine.AnalyzeBullet(context.Background(),
		types.ResumeBullet{Text: statement}, nil)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, analysis.JDSimilarity, 1e-5)
	assert.InDelta(t, 1.0, analysis.KeywordScore, 1e-5)
	assert.True(t, analysis.HasEvidence)
	require.NotEmpty(t, analysis.Evidence)
	assert.Equal(t, statement, analysis.Evidence[0].Text)
	assert.Equal(t, types.DecisionKeep, analysis.Decision)
	assert.NotEmpty(t, analysis.Reasoning)
}

func TestAnalyzeAllIsDeterministic(t *testing.T) {
	statements := []types.CapabilityStatement{
		{Text: "Built a streaming data pipeline in Go", Source: types.SourceGitHub},
		{Text: "Led the data platform team at Acme Corp", Source: types.SourceLinkedIn},
	}
	bullets := []types.ResumeBullet{
		{Text: "Built a streaming data pipeline in Go", Index: 0},
		{Text: "Organized the office holiday party", Index: 1},
	}
	job := &types.JobPosting{Role: "Backend Engineer", Skills: []string{"Go", "pipelines"}}

	engine := newEngine(t, statements)
	engine.SetJob(job)
	first, err := engine.AnalyzeAll(context.Background(), bullets, nil)
	require.NoError(t, err)

	second, err := engine.AnalyzeAll(context.Background(), bullets, nil)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Decision, second[i].Decision)
		assert.InDelta(t, first[i].JDSimilarity, second[i].JDSimilarity, 1e-9)
		assert.InDelta(t, first[i].KeywordScore, second[i].KeywordScore, 1e-9)
		assert.True(t, first[i].Decision.Valid())
	}
}

func TestProposeAdditions(t *testing.T) {
	evidence := "5 years Python development, 10+ repositories"
	engine := newEngine(t, []types.CapabilityStatement{
		{Text: evidence, Source: types.SourceGitHub},
	})
	engine.SetJob(&types.JobPosting{
		Role: "Backend Engineer",
		Requirements: []types.JobRequirement{
			{Text: evidence, Skill: "Python", Required: true},
		},
	})

	// No bullet covers the requirement, and the profile evidence is an
	// exact match: an ADD must be proposed with the evidence attached.
	additions, err := engine.ProposeAdditions(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, additions, 1)

	add := additions[0]
	assert.Equal(t, types.DecisionAdd, add.Decision)
	assert.True(t, add.HasEvidence)
	require.NotEmpty(t, add.Evidence)
	assert.Equal(t, evidence, add.Evidence[0].Text)
}

func TestProposeAdditionsSkipsCoveredRequirements(t *testing.T) {
	text := "5 years Python development, 10+ repositories"
	engine := newEngine(t, []types.CapabilityStatement{
		{Text: text, Source: types.SourceGitHub},
	})
	engine.SetJob(&types.JobPosting{
		Requirements: []types.JobRequirement{{Text: text, Required: true}},
	})

	bullets := []types.ResumeBullet{{Text: text}}
	additions, err := engine.ProposeAdditions(context.Background(), bullets)
	require.NoError(t, err)
	assert.Empty(t, additions)
}

func TestProposeAdditionsRequiresEvidence(t *testing.T) {
	engine := newEngine(t, nil)
	engine.SetJob(&types.JobPosting{
		Requirements: []types.JobRequirement{{Text: "Experience with Kubernetes", Required: true}},
	})

	additions, err := engine.ProposeAdditions(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, additions, "requirements without profile evidence must never be proposed")
}

func TestMatchRequirements(t *testing.T) {
	reqText := "Experience building data pipelines"
	engine := newEngine(t, []types.CapabilityStatement{
		{Text: "Built a streaming data pipeline in Go", Source: types.SourceGitHub},
	})
	engine.SetJob(&types.JobPosting{
		Requirements: []types.JobRequirement{{Text: reqText, Required: true}},
	})

	bullets := []types.ResumeBullet{{Text: reqText}}
	results, err := engine.MatchRequirements(context.Background(), bullets)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, reqText, results[0].RequirementText)
	assert.True(t, results[0].Required)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-5, "identical bullet text must be the best match")
	assert.Equal(t, reqText, results[0].MatchedText)
}

func TestMatchScoreWeighting(t *testing.T) {
	engine := New(nil, defaultThresholds(), nil)

	results := []types.MatchResult{
		{RequirementText: "required", Required: true, Similarity: 1.0},
		{RequirementText: "preferred", Required: false, Similarity: 0.5},
	}
	score := engine.MatchScore(results, nil)

	// (1.0*1.0 + 0.5*0.5) / 1.5 * 100
	assert.InDelta(t, 83.33, score, 0.01)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 100.0)
}

func TestMatchScoreFallsBackToBulletAggregate(t *testing.T) {
	engine := New(nil, defaultThresholds(), nil)

	analyses := []types.BulletAnalysis{
		{Decision: types.DecisionKeep, JDSimilarity: 0.9, KeywordScore: 0.5, HasEvidence: true},
		{Decision: types.DecisionDeEmphasize, JDSimilarity: 0.1, KeywordScore: 0.0, HasEvidence: false},
	}
	score := engine.MatchScore(nil, analyses)

	assert.Greater(t, score, 0.0)
	assert.LessOrEqual(t, score, 100.0)

	assert.Zero(t, engine.MatchScore(nil, nil))
}

func TestKeywordOverlap(t *testing.T) {
	assert.InDelta(t, 1.0, keywordOverlap("go kafka", "go kafka"), 1e-9)
	assert.InDelta(t, 0.5, keywordOverlap("built services in go", "go kafka"), 1e-9)
	assert.Zero(t, keywordOverlap("anything", ""))
	assert.Zero(t, keywordOverlap("", "go kafka"))
}

func TestProfileSignals(t *testing.T) {
	match := &types.MatchAnalysis{
		SkillMatches: map[string]string{"Kubernetes": "operated clusters"},
		Recommendations: []types.Recommendation{
			{Action: "EMPHASIZE", SkillOrTopic: "terraform"},
		},
	}

	alignment, emphasize := profileSignals("Deployed workloads on Kubernetes", match)
	assert.Equal(t, 0.8, alignment)
	assert.True(t, emphasize)

	alignment, emphasize = profileSignals("Provisioned infrastructure with Terraform", match)
	assert.Equal(t, 0.7, alignment)
	assert.True(t, emphasize)

	alignment, emphasize = profileSignals("Unrelated bullet", match)
	assert.Zero(t, alignment)
	assert.False(t, emphasize)

	alignment, emphasize = profileSignals("anything", nil)
	assert.Zero(t, alignment)
	assert.False(t, emphasize)
}
