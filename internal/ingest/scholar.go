package ingest

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/ats-optimizer/internal/fetch"
	"github.com/jonathan/ats-optimizer/internal/types"
)

// scholarBaseURL is the citations page root; overridable in tests.
const scholarBaseURL = "https://scholar.google.com"

// maxPublications caps how many publications are ingested.
const maxPublications = 20

// ScholarSource scrapes a public scholarly profile page for publications and
// citation statistics.
type ScholarSource struct {
	authorID   string
	authorName string
	baseURL    string
}

// NewScholarSource builds a scholar source from an author ID or name. The ID
// takes precedence when both are set.
func NewScholarSource(authorID, authorName string) *ScholarSource {
	return &ScholarSource{
		authorID:   authorID,
		authorName: authorName,
		baseURL:    scholarBaseURL,
	}
}

// Fetch scrapes the profile page and fills in publications, citation count
// and h-index.
func (s *ScholarSource) Fetch(ctx context.Context, profile *types.Profile) error {
	pageURL, err := s.profileURL(ctx)
	if err != nil {
		return err
	}

	result, err := fetch.URL(ctx, pageURL, nil)
	if err != nil {
		return err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.HTML))
	if err != nil {
		return fmt.Errorf("failed to parse scholar page: %w", err)
	}

	// Citation statistics table: total citations first, h-index third.
	stats := doc.Find("td.gsc_rsb_std")
	if stats.Length() >= 3 {
		profile.Citations = atoiSafe(stats.Eq(0).Text())
		profile.HIndex = atoiSafe(stats.Eq(2).Text())
	}

	doc.Find("tr.gsc_a_tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		if i >= maxPublications {
			return false
		}
		pub := types.Publication{
			Title:     strings.TrimSpace(row.Find("a.gsc_a_at").Text()),
			Citations: atoiSafe(row.Find("a.gsc_a_ac").Text()),
			Year:      strings.TrimSpace(row.Find("span.gsc_a_h").Text()),
		}
		// Second gray line is the venue; first is the author list.
		gray := row.Find("div.gs_gray")
		if gray.Length() >= 2 {
			pub.Venue = strings.TrimSpace(gray.Eq(1).Text())
		}
		if pub.Title != "" {
			profile.Publications = append(profile.Publications, pub)
		}
		return true
	})

	if len(profile.Publications) == 0 && profile.Citations == 0 {
		return fmt.Errorf("scholar page yielded no publications or statistics")
	}

	return nil
}

// profileURL resolves the citations page for the configured author. Name
// lookup scrapes the author search results for the first profile link.
func (s *ScholarSource) profileURL(ctx context.Context) (string, error) {
	if s.authorID != "" {
		return fmt.Sprintf("%s/citations?user=%s&hl=en", s.baseURL, url.QueryEscape(s.authorID)), nil
	}
	if s.authorName == "" {
		return "", fmt.Errorf("either author ID or author name is required")
	}

	searchURL := fmt.Sprintf("%s/citations?view_op=search_authors&mauthors=%s&hl=en",
		s.baseURL, url.QueryEscape(s.authorName))
	result, err := fetch.URL(ctx, searchURL, nil)
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.HTML))
	if err != nil {
		return "", fmt.Errorf("failed to parse author search results: %w", err)
	}

	href, ok := doc.Find("h3.gs_ai_name a").First().Attr("href")
	if !ok {
		return "", fmt.Errorf("no author profile found for %q", s.authorName)
	}
	return s.baseURL + href, nil
}

func atoiSafe(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
