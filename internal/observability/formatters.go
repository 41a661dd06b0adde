// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/ats-optimizer/internal/types"
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

// PrintProfile outputs a summary of the ingested candidate profile.
func (p *Printer) PrintProfile(profile *types.Profile) {
	if profile == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Repositories:  %d\n", len(profile.Repositories)))
	sb.WriteString(fmt.Sprintf("Commits:       %d\n", profile.TotalCommits))
	sb.WriteString(fmt.Sprintf("Publications:  %d (%d citations)\n", len(profile.Publications), profile.Citations))
	sb.WriteString(fmt.Sprintf("Experience:    %d entries\n", len(profile.Experience)))
	sb.WriteString(fmt.Sprintf("Statements:    %d\n", len(profile.Statements)))

	if len(profile.SourceErrors) > 0 {
		sb.WriteString("\nFailed sources:\n")
		for source := range profile.SourceErrors {
			sb.WriteString(fmt.Sprintf("  • %s\n", source))
		}
	}

	p.printBox("INGESTED PROFILE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintJobPosting outputs a human-readable summary of the parsed posting.
func (p *Printer) PrintJobPosting(job *types.JobPosting) {
	if job == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Company:  %s\n", job.Company))
	sb.WriteString(fmt.Sprintf("Role:     %s\n", job.Role))
	if job.Location != "" {
		sb.WriteString(fmt.Sprintf("Location: %s\n", job.Location))
	}
	sb.WriteString("\n")

	if len(job.Requirements) > 0 {
		sb.WriteString(fmt.Sprintf("Requirements (%d required):\n", job.RequiredCount()))
		count := min(len(job.Requirements), maxItemsToShow)
		for i := 0; i < count; i++ {
			req := job.Requirements[i]
			sb.WriteString(fmt.Sprintf("  • %s", req.Text))
			if !req.Required {
				sb.WriteString(" (preferred)")
			}
			sb.WriteString("\n")
		}
		if len(job.Requirements) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(job.Requirements)-maxItemsToShow))
		}
		sb.WriteString("\n")
	}

	if len(job.Skills) > 0 {
		skills := strings.Join(job.Skills, ", ")
		if len(skills) > boxWidth-14 {
			skills = skills[:boxWidth-17] + "..."
		}
		sb.WriteString(fmt.Sprintf("Skills: %s\n", skills))
	}

	p.printBox("PARSED JOB POSTING", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintCapabilities outputs the structured capability extraction.
func (p *Printer) PrintCapabilities(caps *types.Capabilities) {
	if caps == nil {
		return
	}

	var sb strings.Builder
	writeList := func(label string, items []string) {
		if len(items) == 0 {
			return
		}
		sb.WriteString(label + ":\n")
		count := min(len(items), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", items[i]))
		}
		if len(items) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-maxItemsToShow))
		}
	}

	writeList("Core skills", caps.CoreSkills)
	writeList("Technologies", caps.Technologies)
	writeList("Domain expertise", caps.DomainExpertise)

	p.printBox("PROFILE CAPABILITIES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintAnalysis outputs the run's aggregate analysis: score and decisions.
func (p *Printer) PrintAnalysis(result *types.AnalysisResult) {
	if result == nil {
		return
	}

	counts := result.DecisionCounts()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Match score:   %.1f / 100\n\n", result.MatchScore))
	sb.WriteString(fmt.Sprintf("Keep:          %d\n", counts[types.DecisionKeep]))
	sb.WriteString(fmt.Sprintf("Rewrite:       %d\n", counts[types.DecisionRewrite]))
	sb.WriteString(fmt.Sprintf("Add (new):     %d\n", counts[types.DecisionAdd]))
	sb.WriteString(fmt.Sprintf("De-emphasize:  %d\n", counts[types.DecisionDeEmphasize]))

	if len(result.MissingSkills) > 0 {
		missing := strings.Join(result.MissingSkills, ", ")
		if len(missing) > boxWidth-20 {
			missing = missing[:boxWidth-23] + "..."
		}
		sb.WriteString(fmt.Sprintf("\nMissing skills: %s\n", missing))
	}

	p.printBox("RESUME ANALYSIS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintDecisions outputs the per-bullet decisions with reasoning.
func (p *Printer) PrintDecisions(analyses []types.BulletAnalysis) {
	if len(analyses) == 0 {
		return
	}

	var sb strings.Builder
	count := min(len(analyses), maxItemsToShow*2)
	for i := 0; i < count; i++ {
		a := analyses[i]
		text := a.Bullet.Text
		if len(text) > boxWidth-20 {
			text = text[:boxWidth-23] + "..."
		}
		sb.WriteString(fmt.Sprintf("[%s] %s\n", a.Decision, text))
		sb.WriteString(fmt.Sprintf("    sim=%.2f kw=%.2f evidence=%v\n", a.JDSimilarity, a.KeywordScore, a.HasEvidence))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}
	if len(analyses) > count {
		sb.WriteString(fmt.Sprintf("\n... and %d more\n", len(analyses)-count))
	}

	p.printBox("BULLET DECISIONS", strings.TrimSuffix(sb.String(), "\n"))
}
