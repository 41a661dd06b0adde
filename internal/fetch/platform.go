// Platform detection and per-board content selectors.
package fetch

import (
	"net/url"
	"strings"
)

// Platform identifies a known job board.
type Platform string

const (
	// PlatformLinkedIn is linkedin.com/jobs
	PlatformLinkedIn Platform = "linkedin"
	// PlatformIndeed is indeed.com
	PlatformIndeed Platform = "indeed"
	// PlatformGlassdoor is glassdoor.com
	PlatformGlassdoor Platform = "glassdoor"
	// PlatformGreenhouse is the Greenhouse ATS
	PlatformGreenhouse Platform = "greenhouse"
	// PlatformLever is the Lever ATS
	PlatformLever Platform = "lever"
	// PlatformUnknown is an unrecognized site; generic extraction applies
	PlatformUnknown Platform = "unknown"
)

// DetectPlatform identifies the job board from a URL host.
func DetectPlatform(urlStr string) Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return PlatformUnknown
	}
	host := strings.ToLower(parsed.Host)

	switch {
	case strings.Contains(host, "linkedin.com"):
		return PlatformLinkedIn
	case strings.Contains(host, "indeed.com"):
		return PlatformIndeed
	case strings.Contains(host, "glassdoor.com"):
		return PlatformGlassdoor
	case strings.Contains(host, "greenhouse.io"):
		return PlatformGreenhouse
	case strings.Contains(host, "lever.co"):
		return PlatformLever
	}
	return PlatformUnknown
}

// PlatformSelectors returns content selectors for a platform, most specific
// first. Unknown platforms get the generic fallback set.
func PlatformSelectors(platform Platform) []string {
	switch platform {
	case PlatformLinkedIn:
		return []string{
			"div[class*='description__text']",
			"div.show-more-less-html__markup",
			"section.jobs-description__content",
			"div[data-automation-id='jobPostingDescription']",
		}
	case PlatformIndeed:
		return []string{
			"div#jobDescriptionText",
			"div[data-testid='job-description']",
			"div.jobsearch-jobDescriptionText",
		}
	case PlatformGlassdoor:
		return []string{
			"div[data-test='jobDescriptionText']",
			"div.jobDescriptionContent",
			"div[class*='jobDescription']",
		}
	case PlatformGreenhouse:
		return []string{
			".job__description.body",
			".job__description",
			"#content",
		}
	case PlatformLever:
		return []string{
			".posting-page",
			".posting-description",
			".content",
		}
	default:
		return GenericSelectors()
	}
}
