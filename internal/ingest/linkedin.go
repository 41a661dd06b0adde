package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/ats-optimizer/internal/fetch"
	"github.com/jonathan/ats-optimizer/internal/types"
)

// maxExperienceEntries caps how many work entries are ingested.
const maxExperienceEntries = 10

// LinkedInSource scrapes a public network profile page for experience
// entries. Profile pages behind a login wall yield nothing; that failure is
// reported and the caller continues without this source.
type LinkedInSource struct {
	profileURL string
}

// NewLinkedInSource builds a source for the given public profile URL.
func NewLinkedInSource(profileURL string) *LinkedInSource {
	return &LinkedInSource{profileURL: profileURL}
}

// Fetch scrapes experience entries from the public profile page.
func (s *LinkedInSource) Fetch(ctx context.Context, profile *types.Profile) error {
	result, err := fetch.URL(ctx, s.profileURL, nil)
	if err != nil {
		return err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.HTML))
	if err != nil {
		return fmt.Errorf("failed to parse profile page: %w", err)
	}

	// Public profile pages render experience as list items with separate
	// title/subtitle spans; a generic selector pair covers the common layout.
	doc.Find("li.experience-item, section.experience li").EachWithBreak(func(i int, item *goquery.Selection) bool {
		if i >= maxExperienceEntries {
			return false
		}
		exp := types.Experience{
			Title:       firstText(item, "h3, .experience-item__title, .profile-section-card__title"),
			Company:     firstText(item, "h4, .experience-item__subtitle, .profile-section-card__subtitle"),
			Description: firstText(item, "p.show-more-less-text__text--less, .experience-item__description"),
		}
		if exp.Title != "" || exp.Company != "" {
			profile.Experience = append(profile.Experience, exp)
		}
		return true
	})

	if len(profile.Experience) == 0 {
		return fmt.Errorf("no experience entries found on profile page (login wall or layout change)")
	}

	return nil
}

func firstText(sel *goquery.Selection, selector string) string {
	return strings.TrimSpace(sel.Find(selector).First().Text())
}
