package ingest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/ats-optimizer/internal/types"
)

// maxAbstractLen caps abstract snippets carried into capability statements.
const maxAbstractLen = 200

// BuildStatements converts ingested profile data into deduplicated capability
// statements. Each statement carries the source it was derived from so later
// stages can cite evidence. Duplicate texts keep the first occurrence.
func BuildStatements(profile *types.Profile) []types.CapabilityStatement {
	var statements []types.CapabilityStatement

	for _, repo := range profile.Repositories {
		if repo.Description != "" {
			statements = append(statements, types.CapabilityStatement{
				Text:       fmt.Sprintf("Built %s: %s", repo.Name, repo.Description),
				Source:     types.SourceGitHub,
				Provenance: repo.Name,
			})
		} else if repo.Language != "" {
			statements = append(statements, types.CapabilityStatement{
				Text:       fmt.Sprintf("Developed %s in %s", repo.Name, repo.Language),
				Source:     types.SourceGitHub,
				Provenance: repo.Name,
			})
		}
		for _, bullet := range repo.KeyBullets {
			statements = append(statements, types.CapabilityStatement{
				Text:       bullet,
				Source:     types.SourceGitHub,
				Provenance: repo.Name,
			})
		}
	}

	if langs := topLanguages(profile.Languages); len(langs) > 0 {
		statements = append(statements, types.CapabilityStatement{
			Text:   "Proficient in programming languages: " + strings.Join(langs, ", "),
			Source: types.SourceGitHub,
		})
	}

	for _, exp := range profile.Experience {
		text := exp.Title
		if exp.Company != "" {
			text = fmt.Sprintf("%s at %s", exp.Title, exp.Company)
		}
		if exp.Description != "" {
			text += ": " + exp.Description
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		statements = append(statements, types.CapabilityStatement{
			Text:       text,
			Source:     types.SourceLinkedIn,
			Provenance: exp.Company,
		})
	}

	for _, pub := range profile.Publications {
		text := fmt.Sprintf("Published '%s'", pub.Title)
		if pub.Venue != "" {
			text += " in " + pub.Venue
		}
		if pub.Citations > 0 {
			text += fmt.Sprintf(" (%d citations)", pub.Citations)
		}
		statements = append(statements, types.CapabilityStatement{
			Text:       text,
			Source:     types.SourceScholar,
			Provenance: pub.Title,
		})
		if pub.Abstract != "" {
			statements = append(statements, types.CapabilityStatement{
				Text:       truncate(pub.Abstract, maxAbstractLen),
				Source:     types.SourceScholar,
				Provenance: pub.Title,
			})
		}
	}

	return dedupeStatements(statements)
}

// topLanguages returns language names ordered by byte count descending.
func topLanguages(langs map[string]int) []string {
	names := make([]string, 0, len(langs))
	for name := range langs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if langs[names[i]] != langs[names[j]] {
			return langs[names[i]] > langs[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// dedupeStatements drops statements whose exact text already appeared.
func dedupeStatements(statements []types.CapabilityStatement) []types.CapabilityStatement {
	seen := make(map[string]struct{}, len(statements))
	out := statements[:0]
	for _, s := range statements {
		key := strings.TrimSpace(s.Text)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
