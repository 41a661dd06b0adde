// Package pipeline provides the high-level orchestration for one optimizer
// run: ingest profile, parse job, analyze resume, rewrite, emit artifacts.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/ats-optimizer/internal/align"
	"github.com/jonathan/ats-optimizer/internal/analyzer"
	"github.com/jonathan/ats-optimizer/internal/config"
	"github.com/jonathan/ats-optimizer/internal/db"
	"github.com/jonathan/ats-optimizer/internal/embedding"
	"github.com/jonathan/ats-optimizer/internal/ghrepo"
	"github.com/jonathan/ats-optimizer/internal/ingest"
	"github.com/jonathan/ats-optimizer/internal/jobs"
	"github.com/jonathan/ats-optimizer/internal/llm"
	"github.com/jonathan/ats-optimizer/internal/observability"
	"github.com/jonathan/ats-optimizer/internal/resume"
	"github.com/jonathan/ats-optimizer/internal/rewrite"
	"github.com/jonathan/ats-optimizer/internal/types"
)

// ProgressEvent represents a progress update during pipeline execution.
type ProgressEvent struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs.
type ProgressCallback func(event ProgressEvent)

// Result is everything one run produced. The output directory holds the
// durable copies; Result exists for callers that render or serve them.
type Result struct {
	RunID            uuid.UUID             `json:"run_id"`
	OutputDir        string                `json:"output_dir"`
	Job              *types.JobPosting     `json:"job"`
	Profile          *types.Profile        `json:"profile"`
	Analysis         *types.AnalysisResult `json:"analysis"`
	OptimizedTexPath string                `json:"optimized_tex_path"`
	CoverLetter      string                `json:"cover_letter,omitempty"`
	RecruiterMessage string                `json:"recruiter_message,omitempty"`
	Committed        bool                  `json:"committed"`
}

// profileIngester, jobParser, capabilityAnalyzer and bulletRewriter are the
// seams the orchestrator talks through, so tests can substitute stubs.
type profileIngester interface {
	IngestAll(ctx context.Context) *types.Profile
}

type jobParser interface {
	Parse(ctx context.Context, source string) (*types.JobPosting, error)
}

type capabilityAnalyzer interface {
	AnalyzeCapabilities(ctx context.Context, profile *types.Profile) (*types.Capabilities, error)
	MatchProfile(ctx context.Context, caps *types.Capabilities, job *types.JobPosting) (*types.MatchAnalysis, error)
}

type bulletRewriter interface {
	RewriteBullet(ctx context.Context, analysis types.BulletAnalysis, jobKeywords string, match *types.MatchAnalysis) (string, error)
	CoverLetter(ctx context.Context, job *types.JobPosting, profile *types.Profile, matchScore float64) (string, error)
	RecruiterMessage(ctx context.Context, job *types.JobPosting, matchScore float64) (string, error)
}

type committer interface {
	CommitFile(ctx context.Context, path string, content []byte, message string) error
}

// Pipeline wires the run components together.
type Pipeline struct {
	cfg *config.Config
	log *zap.Logger

	ingester  profileIngester
	parser    jobParser
	analyzer  capabilityAnalyzer
	store     *embedding.Store
	engine    *align.Engine
	rewriter  bulletRewriter
	committer committer

	printer    *observability.Printer
	onProgress ProgressCallback
	now        func() time.Time
}

// Option configures optional pipeline behavior.
type Option func(*Pipeline)

// WithProgress registers a progress callback.
func WithProgress(cb ProgressCallback) Option {
	return func(p *Pipeline) { p.onProgress = cb }
}

// WithCommitter overrides the GitHub committer (nil disables committing).
func WithCommitter(c committer) Option {
	return func(p *Pipeline) { p.committer = c }
}

// New wires a pipeline from configuration and a shared LLM client.
func New(cfg *config.Config, log *zap.Logger, client llm.Client, opts ...Option) (*Pipeline, error) {
	parser, err := jobs.New(client, log, cfg.UseBrowser)
	if err != nil {
		return nil, err
	}

	store := embedding.NewStore(client)
	p := &Pipeline{
		cfg:      cfg,
		log:      log,
		ingester: ingest.New(cfg, log),
		parser:   parser,
		analyzer: analyzer.New(client, log),
		store:    store,
		engine:   align.New(store, cfg.Analysis, log),
		rewriter: rewrite.New(client, log),
		printer:  observability.NewPrinter(os.Stdout),
		now:      time.Now,
	}

	if cfg.GitHub.Token != "" && cfg.GitHub.RepoOwner != "" && cfg.GitHub.RepoName != "" {
		p.committer = ghrepo.New(cfg.GitHub.Token, cfg.GitHub.RepoOwner, cfg.GitHub.RepoName, cfg.GitHub.Branch)
	}

	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Pipeline) emit(step, message string, content any) {
	p.log.Info(message, zap.String("step", step))
	if p.onProgress != nil {
		p.onProgress(ProgressEvent{Step: step, Message: message, Content: content})
	}
}

// Run executes the full sequence for one job source and resume. Ingestion
// source failures degrade the profile; job or resume extraction failures
// abort the run.
func (p *Pipeline) Run(ctx context.Context, jobSource, resumePath string) (*Result, error) {
	result := &Result{RunID: uuid.New()}

	// Optional run history; a missing database downgrades to a warning.
	var database *db.DB
	if p.cfg.DatabaseURL != "" {
		var err error
		database, err = db.Connect(ctx, p.cfg.DatabaseURL)
		if err != nil {
			p.log.Warn("database unavailable, continuing without persistence", zap.Error(err))
		} else {
			defer database.Close()
		}
	}

	// Step 1: ingest profile sources.
	p.emit("ingest", "Ingesting profile sources", nil)
	profile := p.ingester.IngestAll(ctx)
	result.Profile = profile
	if p.cfg.Verbose {
		p.printer.PrintProfile(profile)
	}

	// Step 2: rebuild the capability index.
	p.emit("embed", fmt.Sprintf("Indexing %d capability statements", len(profile.Statements)), nil)
	if err := p.store.Rebuild(ctx, profile.Statements); err != nil {
		return nil, fmt.Errorf("embedding index rebuild failed: %w", err)
	}

	// Step 3: parse the job posting. Extraction failure is fatal.
	p.emit("job", "Parsing job posting", nil)
	job, err := p.parser.Parse(ctx, resolveJobSource(jobSource))
	if err != nil {
		return nil, err
	}
	result.Job = job
	if p.cfg.Verbose {
		p.printer.PrintJobPosting(job)
	}

	var runID uuid.UUID
	if database != nil {
		if id, dbErr := database.CreateRun(ctx, job.Company, job.Role, jobSource); dbErr == nil {
			runID = id
			result.RunID = id
			_ = database.SaveArtifact(ctx, runID, db.StepProfile, profile)
			_ = database.SaveArtifact(ctx, runID, db.StepJobPosting, job)
		} else {
			p.log.Warn("failed to record run", zap.Error(dbErr))
			database = nil
		}
	}

	// Steps 4-5: structure capabilities and match them against the job.
	p.emit("analyze", "Analyzing profile capabilities", nil)
	caps, err := p.analyzer.AnalyzeCapabilities(ctx, profile)
	if err != nil {
		return nil, p.fail(ctx, database, runID, fmt.Errorf("capability analysis failed: %w", err))
	}
	if p.cfg.Verbose {
		p.printer.PrintCapabilities(caps)
	}

	match, err := p.analyzer.MatchProfile(ctx, caps, job)
	if err != nil {
		return nil, p.fail(ctx, database, runID, fmt.Errorf("profile match failed: %w", err))
	}
	if database != nil {
		_ = database.SaveArtifact(ctx, runID, db.StepCapabilities, caps)
	}

	// Step 6: load the resume and extract bullets. Extraction failure is fatal.
	p.emit("resume", "Extracting resume bullets", nil)
	doc, err := resume.Load(resumePath)
	if err != nil {
		return nil, p.fail(ctx, database, runID, err)
	}
	bullets, err := doc.ExtractBullets(ctx, p.analyzerClient(), p.log)
	if err != nil {
		return nil, p.fail(ctx, database, runID, err)
	}

	// Step 7: align bullets against the posting.
	p.emit("align", fmt.Sprintf("Analyzing %d bullets", len(bullets)), nil)
	p.engine.SetJob(job)
	analyses, err := p.engine.AnalyzeAll(ctx, bullets, match)
	if err != nil {
		return nil, p.fail(ctx, database, runID, err)
	}
	additions, err := p.engine.ProposeAdditions(ctx, bullets)
	if err != nil {
		return nil, p.fail(ctx, database, runID, err)
	}
	matches, err := p.engine.MatchRequirements(ctx, bullets)
	if err != nil {
		return nil, p.fail(ctx, database, runID, err)
	}

	// Step 8: rewrite flagged bullets and append evidence-backed additions.
	p.emit("rewrite", "Rewriting flagged bullets", nil)
	jdKeywords := job.KeywordText()
	for i := range analyses {
		a := &analyses[i]
		if a.Decision != types.DecisionRewrite {
			continue
		}
		if len(a.Evidence) == 0 {
			// The no-invention contract: never rewrite without evidence.
			p.log.Warn("skipping rewrite, bullet has no profile evidence",
				zap.String("bullet", a.Bullet.Text))
			continue
		}
		rewritten, rwErr := p.rewriter.RewriteBullet(ctx, *a, jdKeywords, match)
		if rwErr != nil {
			return nil, p.fail(ctx, database, runID, fmt.Errorf("bullet rewrite failed: %w", rwErr))
		}
		if rwErr := doc.ReplaceBullet(a.Bullet, rewritten); rwErr != nil {
			p.log.Warn("could not apply rewrite", zap.Error(rwErr))
			continue
		}
		a.RewrittenText = rewritten
	}

	var anchor types.ResumeBullet
	if len(bullets) > 0 {
		anchor = bullets[len(bullets)-1]
	}
	for i := range additions {
		a := &additions[i]
		rewritten, rwErr := p.rewriter.RewriteBullet(ctx, *a, jdKeywords, match)
		if rwErr != nil {
			return nil, p.fail(ctx, database, runID, fmt.Errorf("addition rewrite failed: %w", rwErr))
		}
		if rwErr := doc.AppendBullet(anchor, rewritten); rwErr != nil {
			p.log.Warn("could not append bullet", zap.Error(rwErr))
			continue
		}
		a.RewrittenText = rewritten
	}
	analyses = append(analyses, additions...)

	if p.cfg.Verbose {
		p.printer.PrintDecisions(analyses)
	}

	// Step 9: assemble the analysis result.
	result.Analysis = &types.AnalysisResult{
		MatchScore:      p.engine.MatchScore(matches, analyses),
		Matches:         matches,
		Bullets:         analyses,
		Recommendations: match.Recommendations,
		MissingSkills:   match.MissingSkills,
		Strengths:       match.Strengths,
	}
	if p.cfg.Verbose {
		p.printer.PrintAnalysis(result.Analysis)
	}

	// Step 10: supplemental documents. Failures here degrade, not abort.
	if letter, dErr := p.rewriter.CoverLetter(ctx, job, profile, result.Analysis.MatchScore); dErr == nil {
		result.CoverLetter = letter
	} else {
		p.log.Warn("cover letter generation failed", zap.Error(dErr))
	}
	if msg, dErr := p.rewriter.RecruiterMessage(ctx, job, result.Analysis.MatchScore); dErr == nil {
		result.RecruiterMessage = msg
	} else {
		p.log.Warn("recruiter message generation failed", zap.Error(dErr))
	}

	// Step 11: write the output directory.
	p.emit("output", "Writing output artifacts", nil)
	if err := p.writeOutputs(doc, result); err != nil {
		return nil, p.fail(ctx, database, runID, err)
	}

	if database != nil {
		_ = database.SaveArtifact(ctx, runID, db.StepAnalysisResult, result.Analysis)
		_ = database.SaveTextArtifact(ctx, runID, db.StepResumeTex, doc.Content)
		if result.CoverLetter != "" {
			_ = database.SaveTextArtifact(ctx, runID, db.StepCoverLetter, result.CoverLetter)
		}
		if result.RecruiterMessage != "" {
			_ = database.SaveTextArtifact(ctx, runID, db.StepRecruiterNote, result.RecruiterMessage)
		}
	}

	// Step 12: optional push of the optimized resume. Push failure never
	// rolls back local artifacts.
	if p.committer != nil {
		p.emit("commit", "Committing optimized resume", nil)
		message := commitMessage(job)
		if err := p.committer.CommitFile(ctx, p.cfg.GitHub.ResumeFile, []byte(doc.Content), message); err != nil {
			return result, err
		}
		result.Committed = true
	}

	if database != nil {
		_ = database.CompleteRun(ctx, runID, db.StatusCompleted, result.Analysis.MatchScore)
	}

	p.emit("done", fmt.Sprintf("Run complete, match score %.1f", result.Analysis.MatchScore), nil)
	return result, nil
}

// fail marks the run failed in the database before propagating the error.
func (p *Pipeline) fail(ctx context.Context, database *db.DB, runID uuid.UUID, err error) error {
	if database != nil && runID != uuid.Nil {
		_ = database.CompleteRun(ctx, runID, db.StatusFailed, 0)
	}
	return err
}

// analyzerClient exposes the LLM client for resume extraction. The concrete
// analyzer always wraps the shared client; stub analyzers in tests return nil
// and extraction falls back to regex parsing.
func (p *Pipeline) analyzerClient() llm.Client {
	if a, ok := p.analyzer.(*analyzer.Analyzer); ok {
		return a.Client()
	}
	return nil
}

// writeOutputs creates a timestamped run directory with the analysis JSON,
// the optimized resume and the supplemental documents.
func (p *Pipeline) writeOutputs(doc *resume.Document, result *Result) error {
	dir := filepath.Join(p.cfg.OutputDir, p.now().Format("20060102_150405"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	result.OutputDir = dir

	analysisJSON, err := json.MarshalIndent(result.Analysis, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode analysis: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "analysis_results.json"), analysisJSON, 0o644); err != nil {
		return fmt.Errorf("failed to write analysis: %w", err)
	}

	texName := "optimized_" + filepath.Base(doc.Path)
	result.OptimizedTexPath = filepath.Join(dir, texName)
	if err := doc.Save(result.OptimizedTexPath); err != nil {
		return err
	}

	if result.CoverLetter != "" {
		if err := os.WriteFile(filepath.Join(dir, "cover_letter.txt"), []byte(result.CoverLetter), 0o644); err != nil {
			return fmt.Errorf("failed to write cover letter: %w", err)
		}
	}
	if result.RecruiterMessage != "" {
		if err := os.WriteFile(filepath.Join(dir, "recruiter_message.txt"), []byte(result.RecruiterMessage), 0o644); err != nil {
			return fmt.Errorf("failed to write recruiter message: %w", err)
		}
	}
	return nil
}

// resolveJobSource reads the source from disk when it names an existing file;
// URLs and raw text pass through to the parser unchanged.
func resolveJobSource(source string) string {
	info, err := os.Stat(source)
	if err != nil || info.IsDir() {
		return source
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return source
	}
	return string(data)
}

func commitMessage(job *types.JobPosting) string {
	if job.Company != "" {
		return fmt.Sprintf("Optimize resume for %s at %s", job.Role, job.Company)
	}
	return fmt.Sprintf("Optimize resume for %s", job.Role)
}
