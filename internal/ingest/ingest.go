// Package ingest fetches candidate profile data from external sources and
// normalizes it into capability statements. A single source failing is
// non-fatal: its contribution is empty and ingestion proceeds with whatever
// succeeded.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/ats-optimizer/internal/config"
	"github.com/jonathan/ats-optimizer/internal/types"
)

// SourceError reports a failed ingestion source. It degrades profile
// completeness but never aborts the run.
type SourceError struct {
	Source string
	Cause  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s ingestion failed: %v", e.Source, e.Cause)
}

func (e *SourceError) Unwrap() error {
	return e.Cause
}

// Ingester pulls profile data from the configured sources.
type Ingester struct {
	github   *GitHubSource
	scholar  *ScholarSource
	linkedin *LinkedInSource
	log      *zap.Logger
}

// New builds an Ingester from configuration. Sources missing credentials or
// identifiers are skipped entirely.
func New(cfg *config.Config, log *zap.Logger) *Ingester {
	ing := &Ingester{log: log}

	if cfg.GitHub.Token != "" && cfg.GitHub.Username != "" {
		ing.github = NewGitHubSource(cfg.GitHub.Token, cfg.GitHub.Username)
	}
	if cfg.Scholar.AuthorID != "" || cfg.Scholar.AuthorName != "" {
		ing.scholar = NewScholarSource(cfg.Scholar.AuthorID, cfg.Scholar.AuthorName)
	}
	if cfg.LinkedIn.ProfileURL != "" {
		ing.linkedin = NewLinkedInSource(cfg.LinkedIn.ProfileURL)
	}

	return ing
}

// IngestAll fetches every configured source sequentially and assembles the
// profile. Per-source failures are recorded in Profile.SourceErrors and
// logged; the returned profile contains whatever succeeded.
func (i *Ingester) IngestAll(ctx context.Context) *types.Profile {
	profile := &types.Profile{
		Languages:    make(map[string]int),
		SourceErrors: make(map[string]string),
	}

	if i.github != nil {
		if err := i.github.Fetch(ctx, profile); err != nil {
			i.recordFailure(profile, "github", err)
		}
	}
	if i.scholar != nil {
		if err := i.scholar.Fetch(ctx, profile); err != nil {
			i.recordFailure(profile, "scholar", err)
		}
	}
	if i.linkedin != nil {
		if err := i.linkedin.Fetch(ctx, profile); err != nil {
			i.recordFailure(profile, "linkedin", err)
		}
	}

	profile.Statements = BuildStatements(profile)
	return profile
}

func (i *Ingester) recordFailure(profile *types.Profile, source string, err error) {
	serr := &SourceError{Source: source, Cause: err}
	profile.SourceErrors[source] = serr.Error()
	if i.log != nil {
		i.log.Warn("profile source failed, continuing without it",
			zap.String("source", source),
			zap.Error(err))
	}
}
