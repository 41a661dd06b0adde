// Package rewrite generates evidence-grounded bullet rewrites and the
// supplemental application documents.
package rewrite

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/ats-optimizer/internal/llm"
	"github.com/jonathan/ats-optimizer/internal/prompts"
	"github.com/jonathan/ats-optimizer/internal/types"
)

const promptFile = "rewrite.json"

// limits on how much context is stuffed into the rewrite prompt.
const (
	maxKeywordChars  = 1000
	maxEvidenceLines = 5
	maxStrengths     = 5
)

// Engine drives the rewrite and document-generation prompts. Rewrites are
// only produced from supplied profile evidence; a REWRITE or ADD with no
// evidence is rejected rather than risked.
type Engine struct {
	client llm.Client
	log    *zap.Logger
}

// New builds an Engine.
func New(client llm.Client, log *zap.Logger) *Engine {
	return &Engine{client: client, log: log}
}

// RewriteBullet rewrites one analyzed bullet against the job keywords. The
// analysis must carry a REWRITE or ADD decision and at least one evidence
// statement; anything else is a contract violation by the caller.
func (e *Engine) RewriteBullet(ctx context.Context, analysis types.BulletAnalysis, jobKeywords string, match *types.MatchAnalysis) (string, error) {
	if analysis.Decision != types.DecisionRewrite && analysis.Decision != types.DecisionAdd {
		return "", fmt.Errorf("bullet decision %s is not rewritable", analysis.Decision)
	}
	if len(analysis.Evidence) == 0 {
		return "", fmt.Errorf("refusing to rewrite bullet without profile evidence: %q", analysis.Bullet.Text)
	}

	prompt := prompts.Format(prompts.MustGet(promptFile, "rewrite-bullet"), map[string]string{
		"BulletText":  analysis.Bullet.Text,
		"JobKeywords": truncate(jobKeywords, maxKeywordChars),
		"Evidence":    formatEvidence(analysis.Evidence),
		"Guidance":    guidance(analysis.Bullet.Text, match),
	})

	raw, err := e.client.GenerateContent(ctx, prompt, llm.TierRewrite)
	if err != nil {
		return "", err
	}

	rewritten := SanitizeLaTeX(raw)
	if rewritten == "" {
		return "", fmt.Errorf("rewrite produced empty text for bullet %q", analysis.Bullet.Text)
	}
	return rewritten, nil
}

// CoverLetter generates a cover letter for the posting.
func (e *Engine) CoverLetter(ctx context.Context, job *types.JobPosting, profile *types.Profile, matchScore float64) (string, error) {
	reqs := make([]string, 0, 5)
	for i, r := range job.Requirements {
		if i >= 5 {
			break
		}
		reqs = append(reqs, r.Text)
	}

	prompt := prompts.Format(prompts.MustGet(promptFile, "cover-letter"), map[string]string{
		"Role":              job.Role,
		"Company":           job.Company,
		"Requirements":      strings.Join(reqs, "; "),
		"ProfileHighlights": profileHighlights(profile),
		"MatchScore":        fmt.Sprintf("%.0f", matchScore),
	})

	text, err := e.client.GenerateContent(ctx, prompt, llm.TierRewrite)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// RecruiterMessage generates a short outreach message for the posting.
func (e *Engine) RecruiterMessage(ctx context.Context, job *types.JobPosting, matchScore float64) (string, error) {
	prompt := prompts.Format(prompts.MustGet(promptFile, "recruiter-message"), map[string]string{
		"Role":       job.Role,
		"Company":    job.Company,
		"MatchScore": fmt.Sprintf("%.0f", matchScore),
	})

	text, err := e.client.GenerateContent(ctx, prompt, llm.TierRewrite)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// formatEvidence renders evidence statements as a bulleted block.
func formatEvidence(evidence []types.CapabilityStatement) string {
	var lines []string
	for i, stmt := range evidence {
		if i >= maxEvidenceLines {
			break
		}
		line := "- " + stmt.Text
		if stmt.Provenance != "" {
			line += fmt.Sprintf(" (%s)", stmt.Provenance)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// guidance folds match-analysis strengths and bullet-specific recommendations
// into extra prompt context.
func guidance(bulletText string, match *types.MatchAnalysis) string {
	if match == nil {
		return ""
	}

	var b strings.Builder
	if len(match.Strengths) > 0 {
		strengths := match.Strengths
		if len(strengths) > maxStrengths {
			strengths = strengths[:maxStrengths]
		}
		fmt.Fprintf(&b, "\nPROFILE STRENGTHS TO EMPHASIZE: %s\n", strings.Join(strengths, ", "))
	}

	lower := strings.ToLower(bulletText)
	for _, rec := range match.Recommendations {
		topic := strings.ToLower(strings.TrimSpace(rec.SkillOrTopic))
		if topic == "" || !strings.Contains(lower, topic) {
			continue
		}
		fmt.Fprintf(&b, "\nRECOMMENDATION: %s\nEVIDENCE: %s\n", rec.Suggestion, rec.Evidence)
	}

	return b.String()
}

// profileHighlights produces the short profile summary used by the cover
// letter prompt.
func profileHighlights(profile *types.Profile) string {
	var parts []string
	if n := len(profile.Repositories); n > 0 {
		parts = append(parts, fmt.Sprintf("- %d public code repositories", n))
	}
	if n := len(profile.Publications); n > 0 {
		parts = append(parts, fmt.Sprintf("- %d published research papers (%d citations)", n, profile.Citations))
	}
	for i, exp := range profile.Experience {
		if i >= 3 {
			break
		}
		parts = append(parts, fmt.Sprintf("- %s at %s", exp.Title, exp.Company))
	}
	if len(parts) == 0 {
		return "Profile information available."
	}
	return strings.Join(parts, "\n")
}

var multiSpaceRe = regexp.MustCompile(`\s+`)

// SanitizeLaTeX strips LaTeX commands and unsafe characters the model may
// have emitted despite instructions.
func SanitizeLaTeX(text string) string {
	replacer := strings.NewReplacer(
		`\textbf{`, "", `\textit{`, "", `\emph{`, "",
		"{", "", "}", "",
		"&", "and",
		"%", "percent",
		"$", "", "#", "", "^", "",
		"_", " ",
	)
	text = replacer.Replace(text)
	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(text, " "))
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
