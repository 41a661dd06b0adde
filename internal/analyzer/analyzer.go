// Package analyzer turns an ingested profile into structured capabilities and
// compares them against a parsed job posting.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/ats-optimizer/internal/llm"
	"github.com/jonathan/ats-optimizer/internal/prompts"
	"github.com/jonathan/ats-optimizer/internal/types"
)

const promptFile = "analyzer.json"

// maxSummaryStatements caps how many capability statements go into the
// profile summary handed to the model.
const maxSummaryStatements = 60

// Analyzer extracts capabilities and scores profile/job fit via the LLM.
type Analyzer struct {
	client llm.Client
	log    *zap.Logger
}

// New builds an Analyzer.
func New(client llm.Client, log *zap.Logger) *Analyzer {
	return &Analyzer{client: client, log: log}
}

// Client exposes the underlying LLM client for components that share it.
func (a *Analyzer) Client() llm.Client {
	return a.client
}

// AnalyzeCapabilities asks the model to structure the profile into skill
// categories. A malformed model response degrades to a heuristic extraction
// built directly from the profile data.
func (a *Analyzer) AnalyzeCapabilities(ctx context.Context, profile *types.Profile) (*types.Capabilities, error) {
	prompt := prompts.Format(prompts.MustGet(promptFile, "analyze-capabilities"), map[string]string{
		"ProfileSummary": BuildProfileSummary(profile),
	})

	raw, err := a.client.GenerateJSON(ctx, prompt, llm.TierParsing)
	if err != nil {
		return nil, err
	}

	var caps types.Capabilities
	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(raw)), &caps); err != nil {
		if a.log != nil {
			a.log.Warn("capability response unparseable, using heuristic extraction", zap.Error(err))
		}
		return fallbackCapabilities(profile), nil
	}
	return &caps, nil
}

// MatchProfile compares structured capabilities against the job posting and
// returns skill matches, gaps and a 0-100 match score.
func (a *Analyzer) MatchProfile(ctx context.Context, caps *types.Capabilities, job *types.JobPosting) (*types.MatchAnalysis, error) {
	capsJSON, err := json.MarshalIndent(caps, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode capabilities: %w", err)
	}

	prompt := prompts.Format(prompts.MustGet(promptFile, "match-profile"), map[string]string{
		"Capabilities": string(capsJSON),
		"JobSummary":   BuildJobSummary(job),
	})

	raw, err := a.client.GenerateJSON(ctx, prompt, llm.TierParsing)
	if err != nil {
		return nil, err
	}

	var analysis types.MatchAnalysis
	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(raw)), &analysis); err != nil {
		if a.log != nil {
			a.log.Warn("match response unparseable, using keyword overlap", zap.Error(err))
		}
		return fallbackMatch(caps, job), nil
	}

	analysis.MatchScore = clampScore(analysis.MatchScore)
	return &analysis, nil
}

// BuildProfileSummary flattens the profile into the text block fed to the
// capability prompt.
func BuildProfileSummary(profile *types.Profile) string {
	var b strings.Builder

	if len(profile.Repositories) > 0 {
		b.WriteString("REPOSITORIES:\n")
		for _, repo := range profile.Repositories {
			fmt.Fprintf(&b, "- %s", repo.Name)
			if repo.Language != "" {
				fmt.Fprintf(&b, " (%s)", repo.Language)
			}
			if repo.Description != "" {
				fmt.Fprintf(&b, ": %s", repo.Description)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(profile.Experience) > 0 {
		b.WriteString("WORK EXPERIENCE:\n")
		for _, exp := range profile.Experience {
			fmt.Fprintf(&b, "- %s at %s", exp.Title, exp.Company)
			if exp.Description != "" {
				fmt.Fprintf(&b, ": %s", exp.Description)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(profile.Publications) > 0 {
		fmt.Fprintf(&b, "PUBLICATIONS (%d citations, h-index %d):\n", profile.Citations, profile.HIndex)
		for _, pub := range profile.Publications {
			fmt.Fprintf(&b, "- %s", pub.Title)
			if pub.Venue != "" {
				fmt.Fprintf(&b, ", %s", pub.Venue)
			}
			if pub.Year != "" {
				fmt.Fprintf(&b, " (%s)", pub.Year)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(profile.Statements) > 0 {
		b.WriteString("CAPABILITY STATEMENTS:\n")
		for i, stmt := range profile.Statements {
			if i >= maxSummaryStatements {
				break
			}
			fmt.Fprintf(&b, "- %s\n", stmt.Text)
		}
	}

	return strings.TrimSpace(b.String())
}

// BuildJobSummary flattens the parsed job posting for the match prompt.
func BuildJobSummary(job *types.JobPosting) string {
	var b strings.Builder

	fmt.Fprintf(&b, "ROLE: %s\n", job.Role)
	if job.Company != "" {
		fmt.Fprintf(&b, "COMPANY: %s\n", job.Company)
	}
	if job.ExperienceLevel != "" {
		fmt.Fprintf(&b, "EXPERIENCE LEVEL: %s\n", job.ExperienceLevel)
	}
	if len(job.Skills) > 0 {
		fmt.Fprintf(&b, "SKILLS: %s\n", strings.Join(job.Skills, ", "))
	}
	if len(job.Requirements) > 0 {
		b.WriteString("REQUIREMENTS:\n")
		for _, req := range job.Requirements {
			marker := "preferred"
			if req.Required {
				marker = "required"
			}
			fmt.Fprintf(&b, "- [%s] %s\n", marker, req.Text)
		}
	}
	if len(job.Responsibilities) > 0 {
		b.WriteString("RESPONSIBILITIES:\n")
		for _, resp := range job.Responsibilities {
			fmt.Fprintf(&b, "- %s\n", resp)
		}
	}
	if len(job.Keywords) > 0 {
		fmt.Fprintf(&b, "KEYWORDS: %s\n", strings.Join(job.Keywords, ", "))
	}

	return strings.TrimSpace(b.String())
}

// fallbackCapabilities builds a coarse capability structure straight from
// profile data when the model response cannot be parsed.
func fallbackCapabilities(profile *types.Profile) *types.Capabilities {
	caps := &types.Capabilities{}

	langs := make([]string, 0, len(profile.Languages))
	for lang := range profile.Languages {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	caps.Technologies = langs

	for _, repo := range profile.Repositories {
		project := repo.Name
		if repo.Description != "" {
			project += ": " + repo.Description
		}
		caps.Projects = append(caps.Projects, project)
	}

	for _, exp := range profile.Experience {
		caps.Experiences = append(caps.Experiences, fmt.Sprintf("%s at %s", exp.Title, exp.Company))
	}

	for _, pub := range profile.Publications {
		caps.Achievements = append(caps.Achievements, "Published "+pub.Title)
	}

	return caps
}

// fallbackMatch computes a keyword-overlap analysis when the model response
// cannot be parsed.
func fallbackMatch(caps *types.Capabilities, job *types.JobPosting) *types.MatchAnalysis {
	have := make(map[string]string)
	addAll := func(items []string, evidence string) {
		for _, item := range items {
			have[strings.ToLower(strings.TrimSpace(item))] = evidence
		}
	}
	addAll(caps.CoreSkills, "core skill")
	addAll(caps.Technologies, "technology")
	addAll(caps.DomainExpertise, "domain expertise")

	analysis := &types.MatchAnalysis{SkillMatches: make(map[string]string)}
	matched := 0
	for _, skill := range job.Skills {
		key := strings.ToLower(strings.TrimSpace(skill))
		if evidence, ok := have[key]; ok {
			analysis.SkillMatches[skill] = evidence
			matched++
		} else {
			analysis.MissingSkills = append(analysis.MissingSkills, skill)
		}
	}

	if len(job.Skills) > 0 {
		analysis.MatchScore = clampScore(float64(matched) / float64(len(job.Skills)) * 100)
	}
	return analysis
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
