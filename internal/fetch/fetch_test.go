package fetch

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://example.com/jobs/1"))
	assert.True(t, IsURL("http://example.com"))
	assert.False(t, IsURL("not a url"))
	assert.False(t, IsURL("/relative/path"))
	assert.False(t, IsURL("ftp://example.com"))
}

func TestURL_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body><main>Job posting</main></body></html>"))
	}))
	defer server.Close()

	result, err := URL(t.Context(), server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Contains(t, result.HTML, "Job posting")
}

func TestURL_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := URL(t.Context(), server.URL, nil)
	require.Error(t, err)

	var ferr *Error
	require.ErrorAs(t, err, &ferr)
	assert.Contains(t, ferr.Message, "404")
}

func TestURL_InvalidURL(t *testing.T) {
	_, err := URL(t.Context(), "not-a-url", nil)
	require.Error(t, err)
}

func TestExtractMainText_SelectorsAndNoise(t *testing.T) {
	html := `<html><body>
<nav>Navigation</nav>
<main><h1>Senior Engineer</h1><p>Build distributed systems</p></main>
<footer>Footer junk</footer>
</body></html>`

	text, err := ExtractMainText(html, []string{"main"})
	require.NoError(t, err)
	assert.Contains(t, text, "Senior Engineer")
	assert.Contains(t, text, "distributed systems")
	assert.NotContains(t, text, "Navigation")
	assert.NotContains(t, text, "Footer junk")
}

func TestExtractMainText_FallsBackToBody(t *testing.T) {
	html := `<html><body><div>plain content</div></body></html>`

	text, err := ExtractMainText(html, []string{".does-not-exist"})
	require.NoError(t, err)
	assert.Equal(t, "plain content", text)
}

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url      string
		expected Platform
	}{
		{"https://www.linkedin.com/jobs/view/123", PlatformLinkedIn},
		{"https://www.indeed.com/viewjob?jk=abc", PlatformIndeed},
		{"https://www.glassdoor.com/job-listing/x", PlatformGlassdoor},
		{"https://boards.greenhouse.io/acme/jobs/1", PlatformGreenhouse},
		{"https://jobs.lever.co/acme/1", PlatformLever},
		{"https://careers.example.com/1", PlatformUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, DetectPlatform(tt.url), tt.url)
	}
}

func TestPlatformSelectors_UnknownGetsGeneric(t *testing.T) {
	assert.Equal(t, GenericSelectors(), PlatformSelectors(PlatformUnknown))
	assert.NotEmpty(t, PlatformSelectors(PlatformLinkedIn))
}

func TestShouldUseBrowser(t *testing.T) {
	assert.True(t, ShouldUseBrowser("too short"))
	long := make([]byte, MinContentLength+1)
	for i := range long {
		long[i] = 'a'
	}
	assert.False(t, ShouldUseBrowser(string(long)))
}
