package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/ats-optimizer/internal/align"
	"github.com/jonathan/ats-optimizer/internal/config"
	"github.com/jonathan/ats-optimizer/internal/embedding"
	"github.com/jonathan/ats-optimizer/internal/jobs"
	"github.com/jonathan/ats-optimizer/internal/llm/llmtest"
	"github.com/jonathan/ats-optimizer/internal/observability"
	"github.com/jonathan/ats-optimizer/internal/types"
)

type stubIngester struct {
	profile *types.Profile
}

func (s *stubIngester) IngestAll(context.Context) *types.Profile {
	return s.profile
}

type stubParser struct {
	job *types.JobPosting
	err error
}

func (s *stubParser) Parse(_ context.Context, source string) (*types.JobPosting, error) {
	if s.err != nil {
		return nil, s.err
	}
	job := *s.job
	job.RawText = source
	return &job, nil
}

type stubAnalyzer struct {
	caps  *types.Capabilities
	match *types.MatchAnalysis
}

func (s *stubAnalyzer) AnalyzeCapabilities(context.Context, *types.Profile) (*types.Capabilities, error) {
	return s.caps, nil
}

func (s *stubAnalyzer) MatchProfile(context.Context, *types.Capabilities, *types.JobPosting) (*types.MatchAnalysis, error) {
	return s.match, nil
}

type stubRewriter struct {
	t             *testing.T
	rewriteCalls  int
	emptyEvidence bool
}

func (s *stubRewriter) RewriteBullet(_ context.Context, analysis types.BulletAnalysis, _ string, _ *types.MatchAnalysis) (string, error) {
	s.rewriteCalls++
	if len(analysis.Evidence) == 0 {
		s.emptyEvidence = true
		s.t.Errorf("rewriter received bullet %q without evidence", analysis.Bullet.Text)
	}
	return "Rewritten: " + analysis.Bullet.Text, nil
}

func (s *stubRewriter) CoverLetter(context.Context, *types.JobPosting, *types.Profile, float64) (string, error) {
	return "cover letter text", nil
}

func (s *stubRewriter) RecruiterMessage(context.Context, *types.JobPosting, float64) (string, error) {
	return "recruiter message text", nil
}

type stubCommitter struct {
	paths []string
	err   error
}

func (s *stubCommitter) CommitFile(_ context.Context, path string, _ []byte, _ string) error {
	if s.err != nil {
		return s.err
	}
	s.paths = append(s.paths, path)
	return nil
}

const testResume = `\documentclass{article}
\begin{document}
\section{Experience}
\begin{itemize}
  \item Built a streaming data pipeline in Go
  \item Organized the office holiday party
\end{itemize}
\end{document}
`

func testProfile() *types.Profile {
	return &types.Profile{
		Repositories: []types.Repository{{Name: "pipeline", Description: "Streaming data pipeline"}},
		Statements: []types.CapabilityStatement{
			{Text: "Built a streaming data pipeline in Go", Source: types.SourceGitHub, Provenance: "pipeline"},
			{Text: "Led the data platform team at Acme Corp", Source: types.SourceLinkedIn},
		},
		SourceErrors: map[string]string{"linkedin": "fetch failed"},
	}
}

func testJob() *types.JobPosting {
	return &types.JobPosting{
		Role:    "Backend Engineer",
		Company: "Initech",
		Skills:  []string{"Go", "pipelines"},
	}
}

func newTestPipeline(t *testing.T, parser jobParser, rewriter bulletRewriter) (*Pipeline, *config.Config) {
	t.Helper()

	cfg := &config.Config{
		OutputDir: t.TempDir(),
		Analysis: config.AnalysisConfig{
			SimilarityThreshold: 0.6,
			RewriteThreshold:    0.4,
			KeepThreshold:       0.75,
		},
	}

	store := embedding.NewStore(&llmtest.StubClient{})
	p := &Pipeline{
		cfg:      cfg,
		log:      zap.NewNop(),
		ingester: &stubIngester{profile: testProfile()},
		parser:   parser,
		analyzer: &stubAnalyzer{caps: &types.Capabilities{}, match: &types.MatchAnalysis{}},
		store:    store,
		engine:   align.New(store, cfg.Analysis, nil),
		rewriter: rewriter,
		printer:  observability.NewPrinter(io.Discard),
		now:      func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) },
	}
	return p, cfg
}

func writeTestResume(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.tex")
	require.NoError(t, os.WriteFile(path, []byte(testResume), 0o644))
	return path
}

func TestRunCompletesWithDegradedProfile(t *testing.T) {
	rewriter := &stubRewriter{t: t}
	p, cfg := newTestPipeline(t, &stubParser{job: testJob()}, rewriter)

	result, err := p.Run(context.Background(), "raw job description text here", writeTestResume(t))
	require.NoError(t, err)

	// LinkedIn failed during ingestion, but the run still produced a result.
	assert.Contains(t, result.Profile.SourceErrors, "linkedin")
	require.NotNil(t, result.Analysis)
	assert.GreaterOrEqual(t, result.Analysis.MatchScore, 0.0)
	assert.LessOrEqual(t, result.Analysis.MatchScore, 100.0)
	assert.Len(t, result.Analysis.Bullets, 2)
	for _, b := range result.Analysis.Bullets {
		assert.True(t, b.Decision.Valid())
	}

	// Output directory holds the analysis and the optimized document.
	assert.Equal(t, filepath.Join(cfg.OutputDir, "20260314_093000"), result.OutputDir)
	assert.FileExists(t, filepath.Join(result.OutputDir, "analysis_results.json"))
	assert.FileExists(t, result.OptimizedTexPath)
	assert.FileExists(t, filepath.Join(result.OutputDir, "cover_letter.txt"))
	assert.FileExists(t, filepath.Join(result.OutputDir, "recruiter_message.txt"))

	assert.Equal(t, "cover letter text", result.CoverLetter)
	assert.False(t, result.Committed)
	assert.False(t, rewriter.emptyEvidence)
}

func TestRunIsDeterministicUnderStubbedEmbedder(t *testing.T) {
	first, _ := newTestPipeline(t, &stubParser{job: testJob()}, &stubRewriter{t: t})
	second, _ := newTestPipeline(t, &stubParser{job: testJob()}, &stubRewriter{t: t})
	resumePath := writeTestResume(t)

	r1, err := first.Run(context.Background(), "raw job description text here", resumePath)
	require.NoError(t, err)
	r2, err := second.Run(context.Background(), "raw job description text here", resumePath)
	require.NoError(t, err)

	require.Len(t, r2.Analysis.Bullets, len(r1.Analysis.Bullets))
	for i := range r1.Analysis.Bullets {
		assert.Equal(t, r1.Analysis.Bullets[i].Decision, r2.Analysis.Bullets[i].Decision)
	}
	assert.Equal(t, r1.Analysis.MatchScore, r2.Analysis.MatchScore)
}

func TestRunAbortsOnJobExtractionError(t *testing.T) {
	parseErr := &jobs.ExtractionError{Source: "https://jobs.example.com/1", Message: "no description text could be extracted"}
	p, cfg := newTestPipeline(t, &stubParser{err: parseErr}, &stubRewriter{t: t})

	_, err := p.Run(context.Background(), "https://jobs.example.com/1", writeTestResume(t))

	var exErr *jobs.ExtractionError
	require.ErrorAs(t, err, &exErr)

	entries, readErr := os.ReadDir(cfg.OutputDir)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "aborted run must not write output artifacts")
}

func TestRunAbortsOnMissingResume(t *testing.T) {
	p, _ := newTestPipeline(t, &stubParser{job: testJob()}, &stubRewriter{t: t})

	_, err := p.Run(context.Background(), "raw job description text here",
		filepath.Join(t.TempDir(), "missing.tex"))
	assert.Error(t, err)
}

func TestRunCommitsWhenConfigured(t *testing.T) {
	committer := &stubCommitter{}
	p, cfg := newTestPipeline(t, &stubParser{job: testJob()}, &stubRewriter{t: t})
	cfg.GitHub.ResumeFile = "main.tex"
	p.committer = committer

	result, err := p.Run(context.Background(), "raw job description text here", writeTestResume(t))
	require.NoError(t, err)

	assert.True(t, result.Committed)
	assert.Equal(t, []string{"main.tex"}, committer.paths)
}

func TestRunPushFailureKeepsLocalArtifacts(t *testing.T) {
	pushErr := errors.New("bad credentials")
	p, cfg := newTestPipeline(t, &stubParser{job: testJob()}, &stubRewriter{t: t})
	cfg.GitHub.ResumeFile = "main.tex"
	p.committer = &stubCommitter{err: pushErr}

	result, err := p.Run(context.Background(), "raw job description text here", writeTestResume(t))
	require.ErrorIs(t, err, pushErr)

	// The push failed after local artifacts were written; they stay put.
	require.NotNil(t, result)
	assert.False(t, result.Committed)
	assert.FileExists(t, filepath.Join(result.OutputDir, "analysis_results.json"))
	assert.FileExists(t, result.OptimizedTexPath)
}

func TestRunEmitsProgress(t *testing.T) {
	p, _ := newTestPipeline(t, &stubParser{job: testJob()}, &stubRewriter{t: t})

	var steps []string
	p.onProgress = func(event ProgressEvent) { steps = append(steps, event.Step) }

	_, err := p.Run(context.Background(), "raw job description text here", writeTestResume(t))
	require.NoError(t, err)

	assert.Equal(t, "ingest", steps[0])
	assert.Contains(t, steps, "job")
	assert.Contains(t, steps, "align")
	assert.Equal(t, "done", steps[len(steps)-1])
}

func TestResolveJobSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.txt")
	require.NoError(t, os.WriteFile(path, []byte("posting text from file"), 0o644))

	assert.Equal(t, "posting text from file", resolveJobSource(path))
	assert.Equal(t, "https://example.com/job", resolveJobSource("https://example.com/job"))
	assert.Equal(t, "inline posting text", resolveJobSource("inline posting text"))
}

func TestCommitMessage(t *testing.T) {
	assert.Equal(t, "Optimize resume for Backend Engineer at Initech", commitMessage(testJob()))
	assert.Equal(t, "Optimize resume for Backend Engineer",
		commitMessage(&types.JobPosting{Role: "Backend Engineer"}))
}
