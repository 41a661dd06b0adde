// Package align decides, per resume bullet, whether to keep, rewrite,
// de-emphasize, or add content, based on embedding similarity to the job
// posting and supporting profile evidence.
package align

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/ats-optimizer/internal/config"
	"github.com/jonathan/ats-optimizer/internal/embedding"
	"github.com/jonathan/ats-optimizer/internal/types"
)

// evidenceTopK is how many profile statements are consulted per bullet.
const evidenceTopK = 5

// maxEvidenceKept caps the evidence carried on each analysis.
const maxEvidenceKept = 3

// Engine scores resume bullets against a job posting. Decisions are pure
// functions of the similarity signals and the configured thresholds, so a
// fixed embedding store yields fixed decisions.
type Engine struct {
	store      *embedding.Store
	thresholds config.AnalysisConfig
	log        *zap.Logger

	job        *types.JobPosting
	jdKeywords string
}

// New builds an Engine with the given thresholds.
func New(store *embedding.Store, thresholds config.AnalysisConfig, log *zap.Logger) *Engine {
	return &Engine{store: store, thresholds: thresholds, log: log}
}

// SetJob fixes the posting all subsequent analyses compare against.
func (e *Engine) SetJob(job *types.JobPosting) {
	e.job = job
	e.jdKeywords = job.KeywordText()
}

// AnalyzeBullet scores one bullet and assigns its decision.
func (e *Engine) AnalyzeBullet(ctx context.Context, bullet types.ResumeBullet, match *types.MatchAnalysis) (types.BulletAnalysis, error) {
	analysis := types.BulletAnalysis{Bullet: bullet}

	jdSimilarity, err := e.store.Similarity(ctx, bullet.Text, e.jdKeywords)
	if err != nil {
		return analysis, fmt.Errorf("bullet similarity failed: %w", err)
	}
	analysis.JDSimilarity = clamp01(jdSimilarity)

	evidence, err := e.store.RelevantEvidence(ctx, bullet.Text, e.thresholds.SimilarityThreshold, evidenceTopK)
	if err != nil {
		return analysis, fmt.Errorf("evidence lookup failed: %w", err)
	}
	analysis.HasEvidence = len(evidence) > 0
	if len(evidence) > maxEvidenceKept {
		evidence = evidence[:maxEvidenceKept]
	}
	analysis.Evidence = evidence

	analysis.KeywordScore = keywordOverlap(bullet.Text, e.jdKeywords)

	profileAlignment, shouldEmphasize := profileSignals(bullet.Text, match)
	analysis.ProfileAlignment = profileAlignment

	analysis.Decision = e.decide(analysis.JDSimilarity, analysis.HasEvidence,
		analysis.KeywordScore, profileAlignment, shouldEmphasize)
	analysis.Reasoning = reasoning(analysis.JDSimilarity, analysis.HasEvidence,
		analysis.KeywordScore, profileAlignment, analysis.Decision)

	return analysis, nil
}

// AnalyzeAll scores every bullet sequentially.
func (e *Engine) AnalyzeAll(ctx context.Context, bullets []types.ResumeBullet, match *types.MatchAnalysis) ([]types.BulletAnalysis, error) {
	analyses := make([]types.BulletAnalysis, 0, len(bullets))
	for _, bullet := range bullets {
		analysis, err := e.AnalyzeBullet(ctx, bullet, match)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, analysis)
	}
	return analyses, nil
}

// ProposeAdditions finds job requirements that have strong profile evidence
// but no bullet covering them, and proposes an ADD for each. Requirements
// without evidence are never proposed.
func (e *Engine) ProposeAdditions(ctx context.Context, bullets []types.ResumeBullet) ([]types.BulletAnalysis, error) {
	if e.job == nil {
		return nil, nil
	}

	var additions []types.BulletAnalysis
	for _, req := range e.job.Requirements {
		matches, err := e.store.Query(ctx, req.Text, evidenceTopK)
		if err != nil {
			return nil, fmt.Errorf("requirement evidence lookup failed: %w", err)
		}
		if len(matches) == 0 || matches[0].Similarity < e.thresholds.KeepThreshold {
			continue
		}

		covered, err := e.requirementCovered(ctx, req, bullets)
		if err != nil {
			return nil, err
		}
		if covered {
			continue
		}

		var evidence []types.CapabilityStatement
		for i, m := range matches {
			if i >= maxEvidenceKept || m.Similarity < e.thresholds.SimilarityThreshold {
				break
			}
			evidence = append(evidence, m.Statement)
		}

		additions = append(additions, types.BulletAnalysis{
			Bullet:       types.ResumeBullet{Text: req.Text, Section: "Proposed"},
			Decision:     types.DecisionAdd,
			JDSimilarity: clamp01(matches[0].Similarity),
			HasEvidence:  true,
			Evidence:     evidence,
			Reasoning: fmt.Sprintf("Decision: ADD because requirement %q has strong profile evidence (%.2f) but no covering bullet",
				req.Text, matches[0].Similarity),
		})
	}
	return additions, nil
}

// requirementCovered reports whether any existing bullet is similar enough to
// the requirement to count as covering it.
func (e *Engine) requirementCovered(ctx context.Context, req types.JobRequirement, bullets []types.ResumeBullet) (bool, error) {
	for _, bullet := range bullets {
		sim, err := e.store.Similarity(ctx, req.Text, bullet.Text)
		if err != nil {
			return false, err
		}
		if sim >= e.thresholds.SimilarityThreshold {
			return true, nil
		}
	}
	return false, nil
}

// requiredWeight and preferredWeight scale each requirement's contribution to
// the overall match score.
const (
	requiredWeight  = 1.0
	preferredWeight = 0.5
)

// MatchRequirements pairs every job requirement with its best match among the
// resume bullets and indexed profile statements.
func (e *Engine) MatchRequirements(ctx context.Context, bullets []types.ResumeBullet) ([]types.MatchResult, error) {
	if e.job == nil {
		return nil, nil
	}

	results := make([]types.MatchResult, 0, len(e.job.Requirements))
	for _, req := range e.job.Requirements {
		result := types.MatchResult{RequirementText: req.Text, Required: req.Required}

		for _, bullet := range bullets {
			sim, err := e.store.Similarity(ctx, req.Text, bullet.Text)
			if err != nil {
				return nil, err
			}
			if sim > result.Similarity {
				result.Similarity = clamp01(sim)
				result.MatchedText = bullet.Text
				result.Justification = "matched resume bullet"
			}
		}

		matches, err := e.store.Query(ctx, req.Text, 1)
		if err != nil {
			return nil, err
		}
		if len(matches) > 0 && matches[0].Similarity > result.Similarity {
			result.Similarity = clamp01(matches[0].Similarity)
			result.MatchedText = matches[0].Statement.Text
			result.Justification = fmt.Sprintf("matched profile statement (%s)", matches[0].Statement.Source)
		}

		results = append(results, result)
	}
	return results, nil
}

// MatchScore aggregates per-requirement best-match similarity into a 0-100
// score. Required requirements weigh double the preferred ones. With no
// requirements at all, the per-bullet score aggregate is used instead.
func (e *Engine) MatchScore(results []types.MatchResult, analyses []types.BulletAnalysis) float64 {
	if len(results) == 0 {
		return bulletScore(analyses)
	}

	var total, weightSum float64
	for _, r := range results {
		weight := preferredWeight
		if r.Required {
			weight = requiredWeight
		}
		total += clamp01(r.Similarity) * weight
		weightSum += weight
	}
	if weightSum == 0 {
		return 0
	}
	return clampScore(total / weightSum * 100)
}

// bulletScore is the decision-weighted per-bullet aggregate used when the
// posting carries no explicit requirements.
func bulletScore(analyses []types.BulletAnalysis) float64 {
	if len(analyses) == 0 {
		return 0
	}

	decisionWeights := map[types.Decision]float64{
		types.DecisionKeep:        1.0,
		types.DecisionRewrite:     0.6,
		types.DecisionDeEmphasize: 0.2,
	}

	var total, weightSum float64
	for _, a := range analyses {
		weight, ok := decisionWeights[a.Decision]
		if !ok {
			weight = 0.5
		}
		score := a.JDSimilarity*0.5 + a.KeywordScore*0.3 + evidenceSignal(a.HasEvidence)*0.2
		total += score * weight
		weightSum += weight
	}
	if weightSum == 0 {
		return 0
	}
	return clampScore(total / weightSum * 100)
}

// decide assigns the bullet decision from the combined signals.
func (e *Engine) decide(jdSimilarity float64, hasEvidence bool, keywordScore, profileAlignment float64, shouldEmphasize bool) types.Decision {
	combined := jdSimilarity*0.4 +
		keywordScore*0.25 +
		evidenceSignal(hasEvidence)*0.2 +
		profileAlignment*0.15

	if shouldEmphasize && hasEvidence {
		if jdSimilarity >= e.thresholds.KeepThreshold*0.9 {
			return types.DecisionKeep
		}
		return types.DecisionRewrite
	}

	switch {
	case combined >= e.thresholds.KeepThreshold && jdSimilarity >= e.thresholds.KeepThreshold:
		return types.DecisionKeep
	case combined >= e.thresholds.RewriteThreshold:
		return types.DecisionRewrite
	default:
		return types.DecisionDeEmphasize
	}
}

// profileSignals derives the alignment score and emphasis flag from the LLM
// match analysis. Mentioning a matched skill aligns strongly; an EMPHASIZE
// recommendation aligns moderately.
func profileSignals(bulletText string, match *types.MatchAnalysis) (float64, bool) {
	if match == nil {
		return 0, false
	}

	lower := strings.ToLower(bulletText)
	alignment := 0.0
	emphasize := false

	for skill := range match.SkillMatches {
		if skill != "" && strings.Contains(lower, strings.ToLower(skill)) {
			alignment = 0.8
			emphasize = true
			break
		}
	}

	for _, rec := range match.Recommendations {
		topic := strings.ToLower(strings.TrimSpace(rec.SkillOrTopic))
		if topic == "" || !strings.Contains(lower, topic) {
			continue
		}
		if rec.Action == "EMPHASIZE" {
			emphasize = true
			if alignment < 0.7 {
				alignment = 0.7
			}
		}
	}

	return alignment, emphasize
}

// keywordOverlap is the fraction of job keywords that appear in the bullet.
func keywordOverlap(bulletText, jdKeywords string) float64 {
	if jdKeywords == "" {
		return 0
	}

	bulletWords := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(bulletText)) {
		bulletWords[w] = struct{}{}
	}

	jdWords := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(jdKeywords)) {
		jdWords[w] = struct{}{}
	}
	if len(jdWords) == 0 {
		return 0
	}

	overlap := 0
	for w := range jdWords {
		if _, ok := bulletWords[w]; ok {
			overlap++
		}
	}
	return clamp01(float64(overlap) / float64(len(jdWords)))
}

func reasoning(jdSimilarity float64, hasEvidence bool, keywordScore, profileAlignment float64, decision types.Decision) string {
	var reasons []string

	switch {
	case jdSimilarity >= 0.7:
		reasons = append(reasons, fmt.Sprintf("High JD similarity (%.2f)", jdSimilarity))
	case jdSimilarity >= 0.5:
		reasons = append(reasons, fmt.Sprintf("Moderate JD similarity (%.2f)", jdSimilarity))
	default:
		reasons = append(reasons, fmt.Sprintf("Low JD similarity (%.2f)", jdSimilarity))
	}

	if hasEvidence {
		reasons = append(reasons, "Has supporting evidence in profile")
	} else {
		reasons = append(reasons, "Limited evidence in profile")
	}
	if keywordScore >= 0.3 {
		reasons = append(reasons, fmt.Sprintf("Good keyword overlap (%.2f)", keywordScore))
	}
	if profileAlignment >= 0.7 {
		reasons = append(reasons, fmt.Sprintf("Strong profile alignment (%.2f)", profileAlignment))
	}

	return fmt.Sprintf("Decision: %s because %s", decision, strings.Join(reasons, "; "))
}

func evidenceSignal(hasEvidence bool) float64 {
	if hasEvidence {
		return 0.8
	}
	return 0.2
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
