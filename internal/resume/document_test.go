package resume

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/ats-optimizer/internal/llm/llmtest"
	"github.com/jonathan/ats-optimizer/internal/types"
)

const sampleResume = `\documentclass{article}
\begin{document}

\section{Experience}
\begin{itemize}
  \item Developed a \textbf{streaming pipeline} processing 1M events/sec
  \item Maintained CI/CD infrastructure \& release tooling
\end{itemize}

\section{Projects}
\begin{itemize}
  \item Built an open-source CLI for log analysis
\end{itemize}

\end{document}
`

func writeResume(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.tex")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAndSave(t *testing.T) {
	path := writeResume(t, sampleResume)

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, sampleResume, doc.Content)

	out := filepath.Join(t.TempDir(), "optimized.tex")
	require.NoError(t, doc.Save(out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, sampleResume, string(data))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.tex"))
	assert.Error(t, err)
}

func TestExtractBulletsRegexFallback(t *testing.T) {
	doc := &Document{Path: "main.tex", Content: sampleResume}
	stub := &llmtest.StubClient{JSONResponses: []string{"not json"}}

	bullets, err := doc.ExtractBullets(context.Background(), stub, nil)
	require.NoError(t, err)
	require.Len(t, bullets, 3)

	assert.Equal(t, "Developed a streaming pipeline processing 1M events/sec", bullets[0].Text)
	assert.Equal(t, "Experience", bullets[0].Section)
	assert.True(t, bullets[0].IsItem)
	assert.Equal(t, "Built an open-source CLI for log analysis", bullets[2].Text)
	assert.Equal(t, "Projects", bullets[2].Section)

	// Positions must point at the original LaTeX.
	for _, b := range bullets {
		assert.Equal(t, b.OriginalLaTeX, doc.Content[b.StartPos:b.EndPos])
	}
}

func TestExtractBulletsFromLLM(t *testing.T) {
	doc := &Document{Path: "main.tex", Content: sampleResume}
	response := fmt.Sprintf(`{"bullets": [
		{"text": "Developed a streaming pipeline processing 1M events/sec",
		 "original_latex": %q, "section": "Experience", "index": 0},
		{"text": "Built an open-source CLI for log analysis",
		 "original_latex": %q, "section": "Projects", "index": 1}
	]}`,
		`\item Developed a \textbf{streaming pipeline} processing 1M events/sec`,
		`\item Built an open-source CLI for log analysis`)
	stub := &llmtest.StubClient{JSONResponses: []string{response}}

	bullets, err := doc.ExtractBullets(context.Background(), stub, nil)
	require.NoError(t, err)
	require.Len(t, bullets, 2)

	for _, b := range bullets {
		assert.Equal(t, b.OriginalLaTeX, doc.Content[b.StartPos:b.EndPos])
		assert.True(t, b.IsItem)
	}
	assert.Equal(t, "Experience", bullets[0].Section)
}

func TestExtractBulletsDropsHallucinated(t *testing.T) {
	doc := &Document{Path: "main.tex", Content: sampleResume}
	response := `{"bullets": [
		{"text": "Invented something", "original_latex": "\\item Invented something", "section": "X", "index": 0}
	]}`
	stub := &llmtest.StubClient{JSONResponses: []string{response}}

	// The fabricated bullet is dropped; regex fallback still finds the real ones.
	bullets, err := doc.ExtractBullets(context.Background(), stub, nil)
	require.NoError(t, err)
	assert.Len(t, bullets, 3)
}

func TestExtractBulletsEmptyDocument(t *testing.T) {
	doc := &Document{Path: "empty.tex", Content: `\documentclass{article}\begin{document}\end{document}`}
	stub := &llmtest.StubClient{JSONResponses: []string{`{"bullets": []}`}}

	_, err := doc.ExtractBullets(context.Background(), stub, nil)
	var exErr *ExtractionError
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, "empty.tex", exErr.Path)
}

func TestReplaceBullet(t *testing.T) {
	doc := &Document{Path: "main.tex", Content: sampleResume}
	bullets, err := doc.ExtractBullets(context.Background(), nil, nil)
	require.NoError(t, err)

	err = doc.ReplaceBullet(bullets[1], "Automated release tooling covering 100% of services")
	require.NoError(t, err)

	assert.Contains(t, doc.Content, `\item Automated release tooling covering 100\% of services`)
	assert.NotContains(t, doc.Content, `Maintained CI/CD infrastructure`)
}

func TestReplaceBulletMissing(t *testing.T) {
	doc := &Document{Content: sampleResume}
	err := doc.ReplaceBullet(types.ResumeBullet{OriginalLaTeX: `\item not in document`, Index: 9}, "x")
	assert.Error(t, err)
}

func TestAppendBullet(t *testing.T) {
	doc := &Document{Path: "main.tex", Content: sampleResume}
	bullets, err := doc.ExtractBullets(context.Background(), nil, nil)
	require.NoError(t, err)

	require.NoError(t, doc.AppendBullet(bullets[0], "Deployed Kubernetes operators for stateful services"))

	assert.Contains(t, doc.Content,
		"streaming pipeline} processing 1M events/sec\n\\item Deployed Kubernetes operators for stateful services")
}

func TestAppendBulletNoAnchor(t *testing.T) {
	doc := &Document{Path: "main.tex", Content: sampleResume}

	require.NoError(t, doc.AppendBullet(types.ResumeBullet{}, "New trailing bullet"))

	assert.Contains(t, doc.Content,
		"\\item Built an open-source CLI for log analysis\n\\item New trailing bullet")
}

func TestRemoveBulletCommentsOut(t *testing.T) {
	doc := &Document{Path: "main.tex", Content: sampleResume}
	bullets, err := doc.ExtractBullets(context.Background(), nil, nil)
	require.NoError(t, err)

	require.NoError(t, doc.RemoveBullet(bullets[2]))
	assert.Contains(t, doc.Content, `% \item Built an open-source CLI for log analysis`)
}

func TestCleanLaTeX(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`\item Developed a \textbf{streaming pipeline} at scale`, "Developed a streaming pipeline at scale"},
		{`\item Shipped \emph{v2} of the \texttt{ingest} service`, "Shipped v2 of the ingest service"},
		{`\item Cut costs by 40\% \hfill 2023`, "Cut costs by 40% 2023"},
		{`Plain text, no commands`, "Plain text, no commands"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, CleanLaTeX(tc.in), "input: %s", tc.in)
	}
}

func TestEscapeLaTeX(t *testing.T) {
	assert.Equal(t, `improved throughput by 40\% \& cut costs`, EscapeLaTeX("improved throughput by 40% & cut costs"))
	assert.Equal(t, `used C\# and F\#`, EscapeLaTeX("used C# and F#"))
}
