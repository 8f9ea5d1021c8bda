package fetcher

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/nao1215/webxtract/internal/model"
)

// Pruning thresholds.
const (
	// maxLinkDensity is the largest share of link text a kept block may have.
	maxLinkDensity = 0.5

	// minParagraphWords is the smallest paragraph kept by the pruning filter.
	minParagraphWords = 3
)

// errEmptyArticle is returned when readability finds no main content.
var errEmptyArticle = errors.New("readability found no article content")

// fitBlocks applies the content filter to the blocks of the cleaned page.
// cleanedHTML is the serialized cleaned document, used by readability.
func fitBlocks(filter model.ContentFilter, blocks []block, cleanedHTML string, base *url.URL) ([]block, error) {
	switch filter {
	case model.ContentFilterNone:
		return blocks, nil
	case model.ContentFilterReadability:
		article, err := readabilityBlocks(cleanedHTML, base)
		if errors.Is(err, errEmptyArticle) {
			return pruneBlocks(blocks), nil
		}
		return article, err
	case model.ContentFilterPruning, "":
		return pruneBlocks(blocks), nil
	default:
		return nil, fmt.Errorf("unknown content filter %q", filter)
	}
}

// pruneBlocks drops boilerplate blocks: link lists, link-dense paragraphs,
// fragments of a word or two, and headings left without content.
//
// Design decision: We prune on block statistics rather than on tag or
// class names because:
//  1. Class names differ on every site
//  2. Navigation that survived tag exclusion is still mostly links
//  3. The rule is cheap and predictable for the same page
func pruneBlocks(blocks []block) []block {
	kept := make([]block, 0, len(blocks))
	for _, b := range blocks {
		switch b.kind {
		case blockParagraph, blockQuote:
			if b.linkDensity() > maxLinkDensity || b.words() < minParagraphWords {
				continue
			}
		case blockList:
			if b.linkDensity() > maxLinkDensity {
				continue
			}
		case blockTable:
			if b.linkDensity() > maxLinkDensity {
				continue
			}
		case blockRule:
			if len(kept) == 0 || kept[len(kept)-1].kind == blockRule {
				continue
			}
		}
		kept = append(kept, b)
	}

	return dropEmptySections(kept)
}

// dropEmptySections removes headings that are followed only by headings of
// the same or a higher rank, and trailing rules.
func dropEmptySections(blocks []block) []block {
	out := make([]block, 0, len(blocks))
	for i, b := range blocks {
		if b.kind == blockHeading && !hasSectionContent(blocks[i+1:], b.level) {
			continue
		}
		out = append(out, b)
	}

	for len(out) > 0 && out[len(out)-1].kind == blockRule {
		out = out[:len(out)-1]
	}
	return out
}

func hasSectionContent(rest []block, level int) bool {
	for _, b := range rest {
		switch {
		case b.kind == blockHeading && b.level <= level:
			return false
		case b.kind != blockHeading && b.kind != blockRule:
			return true
		}
	}
	return false
}

// readabilityBlocks extracts the main article with go-readability and
// converts it to blocks. The article title becomes a leading heading when
// the article does not start with one.
func readabilityBlocks(cleanedHTML string, base *url.URL) ([]block, error) {
	cleanedHTML = strings.TrimSpace(cleanedHTML)
	if cleanedHTML == "" {
		return nil, errEmptyArticle
	}

	article, err := readability.FromReader(strings.NewReader(cleanedHTML), base)
	if err != nil {
		return nil, fmt.Errorf("readability extraction failed: %w", err)
	}

	content := strings.TrimSpace(article.Content)
	if content == "" {
		return nil, errEmptyArticle
	}

	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse readability output: %w", err)
	}

	blocks := convertHTML(root, base)
	if len(blocks) == 0 {
		return nil, errEmptyArticle
	}

	if title := strings.TrimSpace(article.Title); title != "" && blocks[0].kind != blockHeading {
		heading := block{kind: blockHeading, level: 1, text: title, textLen: len(title)}
		blocks = append([]block{heading}, blocks...)
	}
	return blocks, nil
}
