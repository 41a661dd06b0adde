// Package jobs turns a job source (URL or raw text) into a structured posting.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/jonathan/ats-optimizer/internal/fetch"
	"github.com/jonathan/ats-optimizer/internal/llm"
	"github.com/jonathan/ats-optimizer/internal/prompts"
	"github.com/jonathan/ats-optimizer/internal/types"
)

const promptFile = "jobs.json"

// minDescriptionLength is the shortest text considered a real job posting.
const minDescriptionLength = 50

// ExtractionError means no usable job description could be obtained from the
// source. Unlike ingest failures this is fatal to a run.
type ExtractionError struct {
	Source  string
	Message string
	Cause   error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("job extraction from %s failed: %s: %v", e.Source, e.Message, e.Cause)
	}
	return fmt.Sprintf("job extraction from %s failed: %s", e.Source, e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// postingSchema validates the shape of the model's parse response before it
// is trusted.
const postingSchema = `{
	"type": "object",
	"required": ["role", "skills", "requirements"],
	"properties": {
		"role": {"type": "string", "minLength": 1},
		"company": {"type": "string"},
		"location": {"type": "string"},
		"skills": {"type": "array", "items": {"type": "string"}},
		"responsibilities": {"type": "array", "items": {"type": "string"}},
		"requirements": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["text"],
				"properties": {
					"text": {"type": "string"},
					"skill": {"type": "string"},
					"required": {"type": "boolean"}
				}
			}
		},
		"keywords": {"type": "array", "items": {"type": "string"}},
		"experience_level": {"type": "string"},
		"education": {"type": "string"}
	}
}`

// Parser fetches and structures job postings.
type Parser struct {
	client     llm.Client
	log        *zap.Logger
	useBrowser bool
	schema     *gojsonschema.Schema
}

// New builds a Parser. useBrowser enables the headless-browser fallback for
// pages that render their content with JavaScript.
func New(client llm.Client, log *zap.Logger, useBrowser bool) (*Parser, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(postingSchema))
	if err != nil {
		return nil, fmt.Errorf("invalid posting schema: %w", err)
	}
	return &Parser{client: client, log: log, useBrowser: useBrowser, schema: schema}, nil
}

// Parse accepts either a URL or raw posting text and returns the structured
// posting. URLs are fetched with board-specific content selectors; everything
// else is treated as the posting text itself.
func (p *Parser) Parse(ctx context.Context, source string) (*types.JobPosting, error) {
	text := strings.TrimSpace(source)
	sourceURL := ""

	if fetch.IsURL(text) {
		sourceURL = text
		extracted, err := p.fetchPosting(ctx, text)
		if err != nil {
			return nil, err
		}
		text = extracted
	}

	if len(text) < minDescriptionLength {
		return nil, &ExtractionError{
			Source:  describeSource(sourceURL),
			Message: fmt.Sprintf("description too short (%d chars)", len(text)),
		}
	}

	posting, err := p.parseText(ctx, text)
	if err != nil {
		return nil, err
	}
	posting.RawText = text
	posting.SourceURL = sourceURL
	return posting, nil
}

// fetchPosting downloads a posting page and extracts the description text,
// falling back to a headless browser render when the static HTML is too thin.
func (p *Parser) fetchPosting(ctx context.Context, urlStr string) (string, error) {
	platform := fetch.DetectPlatform(urlStr)
	selectors := fetch.PlatformSelectors(platform)

	var html string
	result, err := fetch.URL(ctx, urlStr, nil)
	if err == nil {
		html = result.HTML
	}

	text := ""
	if html != "" {
		if extracted, exErr := fetch.ExtractMainText(html, selectors); exErr == nil {
			text = extracted
		}
	}

	if fetch.ShouldUseBrowser(text) && p.useBrowser {
		if p.log != nil {
			p.log.Info("static fetch too thin, rendering with browser",
				zap.String("url", urlStr),
				zap.Int("static_chars", len(text)))
		}
		if rendered, bErr := fetch.WithBrowser(ctx, urlStr); bErr == nil {
			if extracted, exErr := fetch.ExtractMainText(rendered, selectors); exErr == nil && len(extracted) > len(text) {
				text = extracted
			}
		} else if p.log != nil {
			p.log.Warn("browser render failed", zap.Error(bErr))
		}
	}

	if strings.TrimSpace(text) == "" {
		return "", &ExtractionError{
			Source:  urlStr,
			Message: "no description text could be extracted",
			Cause:   err,
		}
	}
	return text, nil
}

// parseText runs the parse prompt and validates the response, degrading to a
// regex-based extraction when the model output is unusable.
func (p *Parser) parseText(ctx context.Context, text string) (*types.JobPosting, error) {
	prompt := prompts.Format(prompts.MustGet(promptFile, "parse-job"), map[string]string{
		"JobText": text,
	})

	raw, err := p.client.GenerateJSON(ctx, prompt, llm.TierParsing)
	if err != nil {
		return nil, err
	}

	cleaned := llm.CleanJSONBlock(raw)
	if posting, ok := p.decodePosting(cleaned); ok {
		return posting, nil
	}

	if p.log != nil {
		p.log.Warn("job parse response invalid, using heuristic extraction",
			zap.String("response", truncateForLog(cleaned)))
	}
	return fallbackParse(text), nil
}

func (p *Parser) decodePosting(cleaned string) (*types.JobPosting, bool) {
	validation, err := p.schema.Validate(gojsonschema.NewStringLoader(cleaned))
	if err != nil || !validation.Valid() {
		return nil, false
	}
	var posting types.JobPosting
	if err := json.Unmarshal([]byte(cleaned), &posting); err != nil {
		return nil, false
	}
	return &posting, true
}

var (
	requirementLineRe = regexp.MustCompile(`(?im)^\s*[-*•]\s*(.{10,200})$`)
	titleLineRe       = regexp.MustCompile(`(?im)^(?:job title|position|role)\s*[:\-]\s*(.+)$`)
)

// commonSkills is the vocabulary scanned for in heuristic parsing. It only
// matters when the model output is unusable, so breadth beats precision.
var commonSkills = []string{
	"Python", "Go", "Golang", "Java", "JavaScript", "TypeScript", "C++", "Rust",
	"SQL", "PostgreSQL", "MySQL", "Redis", "MongoDB",
	"Kubernetes", "Docker", "Terraform", "AWS", "GCP", "Azure",
	"Kafka", "Spark", "Airflow", "gRPC", "GraphQL", "React",
	"machine learning", "deep learning", "NLP", "CI/CD",
}

// fallbackParse extracts a coarse posting with regexes when the LLM response
// is unusable. Requirements default to required.
func fallbackParse(text string) *types.JobPosting {
	posting := &types.JobPosting{Role: "Not specified"}

	if m := titleLineRe.FindStringSubmatch(text); m != nil {
		posting.Role = strings.TrimSpace(m[1])
	} else {
		// First non-empty line is the best guess at a title.
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if line != "" {
				if len(line) <= 80 {
					posting.Role = line
				}
				break
			}
		}
	}

	lower := strings.ToLower(text)
	for _, skill := range commonSkills {
		if strings.Contains(lower, strings.ToLower(skill)) {
			posting.Skills = append(posting.Skills, skill)
		}
	}
	posting.Keywords = append([]string(nil), posting.Skills...)

	for _, m := range requirementLineRe.FindAllStringSubmatch(text, 20) {
		posting.Requirements = append(posting.Requirements, types.JobRequirement{
			Text:     strings.TrimSpace(m[1]),
			Required: true,
		})
	}

	return posting
}

func describeSource(sourceURL string) string {
	if sourceURL != "" {
		return sourceURL
	}
	return "raw text"
}

func truncateForLog(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
