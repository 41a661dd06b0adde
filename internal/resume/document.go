// Package resume loads a LaTeX resume, extracts its bullet points and applies
// edits back to the source document.
package resume

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/ats-optimizer/internal/llm"
	"github.com/jonathan/ats-optimizer/internal/prompts"
	"github.com/jonathan/ats-optimizer/internal/types"
)

const promptFile = "resume.json"

// ExtractionError means no bullets could be extracted from the resume.
type ExtractionError struct {
	Path    string
	Message string
	Cause   error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("resume extraction from %s failed: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("resume extraction from %s failed: %s", e.Path, e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// Document is a LaTeX resume held in memory for editing.
type Document struct {
	Path    string
	Content string
}

// Load reads the resume from disk.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read resume: %w", err)
	}
	return &Document{Path: path, Content: string(data)}, nil
}

// Save writes the current content to path.
func (d *Document) Save(path string) error {
	if err := os.WriteFile(path, []byte(d.Content), 0o644); err != nil {
		return fmt.Errorf("failed to write resume: %w", err)
	}
	return nil
}

var (
	itemRe    = regexp.MustCompile(`(?m)^[ \t]*\\item\s+(.+)$`)
	sectionRe = regexp.MustCompile(`\\section\*?\{([^}]*)\}`)
	// LaTeX commands with one braced argument, e.g. \textbf{...}.
	commandRe = regexp.MustCompile(`\\[a-zA-Z]+\*?(?:\[[^\]]*\])?\{([^{}]*)\}`)
	// Bare commands with no argument, e.g. \hfill.
	bareCommandRe = regexp.MustCompile(`\\[a-zA-Z]+\*?`)
)

// llmBullets mirrors the extract-bullets response shape.
type llmBullets struct {
	Bullets []types.ResumeBullet `json:"bullets"`
}

// ExtractBullets pulls the resume's bullet points, asking the model first and
// falling back to regex extraction when the model response is unusable. The
// returned bullets carry source positions resolved against the document.
func (d *Document) ExtractBullets(ctx context.Context, client llm.Client, log *zap.Logger) ([]types.ResumeBullet, error) {
	var bullets []types.ResumeBullet

	if client != nil {
		prompt := prompts.Format(prompts.MustGet(promptFile, "extract-bullets"), map[string]string{
			"ResumeText": d.Content,
		})
		raw, err := client.GenerateJSON(ctx, prompt, llm.TierParsing)
		if err == nil {
			var parsed llmBullets
			if jErr := json.Unmarshal([]byte(llm.CleanJSONBlock(raw)), &parsed); jErr == nil {
				bullets = d.resolvePositions(parsed.Bullets)
			} else if log != nil {
				log.Warn("bullet extraction response unparseable, using regex extraction", zap.Error(jErr))
			}
		} else if log != nil {
			log.Warn("bullet extraction call failed, using regex extraction", zap.Error(err))
		}
	}

	if len(bullets) == 0 {
		bullets = d.regexBullets()
	}
	if len(bullets) == 0 {
		return nil, &ExtractionError{Path: d.Path, Message: "no bullet points found"}
	}
	return bullets, nil
}

// resolvePositions locates each model-reported bullet in the document and
// fills in positions. Bullets whose LaTeX cannot be found are dropped; the
// regex fallback covers documents the model mangles entirely.
func (d *Document) resolvePositions(bullets []types.ResumeBullet) []types.ResumeBullet {
	var resolved []types.ResumeBullet
	searchFrom := 0
	for _, b := range bullets {
		latex := strings.TrimSpace(b.OriginalLaTeX)
		if latex == "" {
			continue
		}
		pos := strings.Index(d.Content[searchFrom:], latex)
		if pos < 0 {
			// Duplicate-safe restart from the top.
			pos = strings.Index(d.Content, latex)
			if pos < 0 {
				continue
			}
		} else {
			pos += searchFrom
		}
		b.OriginalLaTeX = latex
		b.StartPos = pos
		b.EndPos = pos + len(latex)
		b.IsItem = strings.HasPrefix(latex, `\item`)
		b.Index = len(resolved)
		if b.Text == "" {
			b.Text = CleanLaTeX(latex)
		}
		resolved = append(resolved, b)
		searchFrom = b.EndPos
	}
	return resolved
}

// regexBullets extracts \item lines directly, tracking the enclosing section.
func (d *Document) regexBullets() []types.ResumeBullet {
	sections := sectionRe.FindAllStringSubmatchIndex(d.Content, -1)
	sectionAt := func(pos int) string {
		name := "Unknown"
		for _, s := range sections {
			if s[0] > pos {
				break
			}
			name = d.Content[s[2]:s[3]]
		}
		return name
	}

	var bullets []types.ResumeBullet
	for _, m := range itemRe.FindAllStringSubmatchIndex(d.Content, -1) {
		full := strings.TrimRight(d.Content[m[0]:m[1]], " \t")
		start := m[0] + (len(d.Content[m[0]:m[1]]) - len(strings.TrimLeft(d.Content[m[0]:m[1]], " \t")))
		latex := strings.TrimSpace(full)
		text := CleanLaTeX(d.Content[m[2]:m[3]])
		if text == "" {
			continue
		}
		bullets = append(bullets, types.ResumeBullet{
			Text:          text,
			OriginalLaTeX: latex,
			Section:       sectionAt(m[0]),
			Index:         len(bullets),
			StartPos:      start,
			EndPos:        start + len(latex),
			IsItem:        true,
		})
	}
	return bullets
}

// ReplaceBullet swaps a bullet's text in place, preserving the \item marker.
// The new text is escaped for LaTeX.
func (d *Document) ReplaceBullet(bullet types.ResumeBullet, newText string) error {
	if bullet.OriginalLaTeX == "" {
		return fmt.Errorf("bullet has no source LaTeX to replace")
	}
	if !strings.Contains(d.Content, bullet.OriginalLaTeX) {
		return fmt.Errorf("bullet %d not found in document", bullet.Index)
	}

	replacement := EscapeLaTeX(newText)
	if bullet.IsItem {
		replacement = `\item ` + replacement
	}
	d.Content = strings.Replace(d.Content, bullet.OriginalLaTeX, replacement, 1)
	return nil
}

// AppendBullet adds a new \item at the end of the itemize environment that
// contains the given bullet. When no anchor is available the bullet is added
// after the last \item in the document.
func (d *Document) AppendBullet(anchor types.ResumeBullet, text string) error {
	item := `\item ` + EscapeLaTeX(text)

	target := anchor.OriginalLaTeX
	if target == "" || !strings.Contains(d.Content, target) {
		matches := itemRe.FindAllStringIndex(d.Content, -1)
		if len(matches) == 0 {
			return fmt.Errorf("no item list found to append to")
		}
		last := matches[len(matches)-1]
		target = strings.TrimSpace(d.Content[last[0]:last[1]])
	}

	d.Content = strings.Replace(d.Content, target, target+"\n"+item, 1)
	return nil
}

// RemoveBullet comments out a bullet rather than deleting it, so the change
// is reviewable in the generated document.
func (d *Document) RemoveBullet(bullet types.ResumeBullet) error {
	if !strings.Contains(d.Content, bullet.OriginalLaTeX) {
		return fmt.Errorf("bullet %d not found in document", bullet.Index)
	}
	d.Content = strings.Replace(d.Content, bullet.OriginalLaTeX, "% "+bullet.OriginalLaTeX, 1)
	return nil
}

// CleanLaTeX strips LaTeX commands from a line, keeping their argument text.
func CleanLaTeX(latex string) string {
	text := strings.TrimSpace(latex)
	text = strings.TrimPrefix(text, `\item`)

	// Unwrap nested single-argument commands.
	for i := 0; i < 5 && commandRe.MatchString(text); i++ {
		text = commandRe.ReplaceAllString(text, "$1")
	}
	text = bareCommandRe.ReplaceAllString(text, " ")

	replacer := strings.NewReplacer(
		`\&`, "&", `\%`, "%", `\$`, "$", `\#`, "#", `\_`, "_",
		"{", "", "}", "", "~", " ",
	)
	text = replacer.Replace(text)
	return strings.Join(strings.Fields(text), " ")
}

// EscapeLaTeX escapes characters that are special in LaTeX text mode.
func EscapeLaTeX(text string) string {
	replacer := strings.NewReplacer(
		`\`, `\textbackslash{}`,
		`&`, `\&`, `%`, `\%`, `$`, `\$`, `#`, `\#`, `_`, `\_`,
		`{`, `\{`, `}`, `\}`,
		`~`, `\textasciitilde{}`,
		`^`, `\textasciicircum{}`,
	)
	return replacer.Replace(text)
}
