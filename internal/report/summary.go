package report

import (
	"cmp"
	"slices"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/webxtract/internal/fetcher"
	"github.com/nao1215/webxtract/internal/model"
)

// otherLinksLabel groups external links that are not social media.
const otherLinksLabel = "Other"

// summary holds the figures shared by the text and markdown writers.
type summary struct {
	report     *model.CrawlReport
	successful []*model.PageResult
	failed     []*model.PageResult
	warnings   int
	depths     []depthCount
	external   []linkGroup
}

// depthCount is the number of successful pages at one depth.
type depthCount struct {
	depth int
	pages int
}

// linkGroup is a set of external links sharing a platform label.
type linkGroup struct {
	label string
	links []model.Link
}

func newSummary(report *model.CrawlReport) summary {
	s := summary{
		report:     report,
		successful: report.Successful(),
		failed:     report.Failed(),
	}

	byDepth := make(map[int]int)
	for _, page := range s.successful {
		byDepth[page.Depth]++
		if page.Warning != "" {
			s.warnings++
		}
	}
	for depth, pages := range byDepth {
		s.depths = append(s.depths, depthCount{depth: depth, pages: pages})
	}
	slices.SortFunc(s.depths, func(a, b depthCount) int { return cmp.Compare(a.depth, b.depth) })

	s.external = groupExternalLinks(s.successful)
	return s
}

// groupExternalLinks groups the external links of pages by social platform.
// Links are deduplicated by href. Platforms are sorted by label, with
// non-social links last.
func groupExternalLinks(pages []*model.PageResult) []linkGroup {
	caser := cases.Title(language.English)
	groups := make(map[string][]model.Link)
	seen := make(map[string]bool)

	for _, page := range pages {
		for _, link := range page.ExternalLinks {
			if seen[link.Href] {
				continue
			}
			seen[link.Href] = true

			label := otherLinksLabel
			if platform, ok := fetcher.SocialPlatform(link.Href); ok {
				label = caser.String(platform)
			}
			groups[label] = append(groups[label], link)
		}
	}

	result := make([]linkGroup, 0, len(groups))
	for label, links := range groups {
		result = append(result, linkGroup{label: label, links: links})
	}
	slices.SortFunc(result, func(a, b linkGroup) int {
		switch {
		case a.label == otherLinksLabel:
			return 1
		case b.label == otherLinksLabel:
			return -1
		default:
			return cmp.Compare(a.label, b.label)
		}
	})
	return result
}

// status describes how the crawl ended.
func status(r *model.CrawlReport) string {
	switch {
	case r.ErrorMessage != "":
		return "ERROR - " + r.ErrorMessage
	case r.Cancelled:
		return "Cancelled (partial results)"
	case r.BudgetExhausted:
		return "Complete (page budget reached)"
	case r.Drained:
		return "Complete (no links left)"
	default:
		return "Unknown"
	}
}

// truncateString truncates s to maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// pageTitle returns the page title or a dash.
func pageTitle(page *model.PageResult) string {
	if page.Title == "" {
		return "-"
	}
	return page.Title
}
