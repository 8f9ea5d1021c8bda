package fetcher

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/nao1215/markdown"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blockKind is the markdown construct a block renders to.
type blockKind int

const (
	blockHeading blockKind = iota
	blockParagraph
	blockList
	blockCode
	blockQuote
	blockRule
	blockTable
)

// block is one top-level markdown element of a page.
// The content filters work on blocks, before anything is rendered.
type block struct {
	kind blockKind

	// level is the heading level (1-6).
	level int

	// text is the markdown of a heading, paragraph, quote or code block.
	text string

	// lang is the code block language.
	lang string

	// ordered marks numbered lists.
	ordered bool

	// items are the markdown list items.
	items []string

	// header and rows hold table cells.
	header []string
	rows   [][]string

	// textLen is the length of the visible text.
	textLen int

	// linkLen is the length of the visible text inside links.
	linkLen int
}

// linkDensity returns the share of visible text that is link text.
func (b block) linkDensity() float64 {
	if b.textLen == 0 {
		return 0
	}
	return float64(b.linkLen) / float64(b.textLen)
}

// words returns the number of words in the block text.
func (b block) words() int {
	switch b.kind {
	case blockList:
		n := 0
		for _, item := range b.items {
			n += len(strings.Fields(item))
		}
		return n
	default:
		return len(strings.Fields(b.text))
	}
}

// inlineBuffer accumulates inline markdown for the current block.
type inlineBuffer struct {
	sb      strings.Builder
	textLen int
	linkLen int
}

func (ib *inlineBuffer) writeText(s string) {
	if s == "" {
		return
	}
	ib.sb.WriteString(s)
	ib.textLen += len(strings.TrimSpace(s))
}

func (ib *inlineBuffer) text() string {
	return strings.Join(strings.Fields(ib.sb.String()), " ")
}

func (ib *inlineBuffer) reset() {
	ib.sb.Reset()
	ib.textLen = 0
	ib.linkLen = 0
}

// converter turns an HTML tree into markdown blocks.
type converter struct {
	base    *url.URL
	blocks  []block
	pending inlineBuffer
}

// convertHTML converts the subtree rooted at n to blocks.
func convertHTML(n *html.Node, base *url.URL) []block {
	c := &converter{base: base, blocks: make([]block, 0)}
	c.walk(n)
	c.flush()
	return c.blocks
}

// containerAtoms are block elements whose children are converted in turn.
var containerAtoms = map[atom.Atom]bool{
	atom.Html: true, atom.Body: true, atom.Div: true, atom.P: true, atom.Section: true,
	atom.Article: true, atom.Main: true, atom.Header: true, atom.Footer: true, atom.Nav: true,
	atom.Aside: true, atom.Figure: true, atom.Figcaption: true, atom.Form: true, atom.Fieldset: true,
	atom.Details: true, atom.Summary: true, atom.Address: true, atom.Dl: true, atom.Dt: true,
	atom.Dd: true, atom.Center: true,
}

func (c *converter) walk(n *html.Node) {
	switch n.Type {
	case html.DocumentNode:
		c.walkChildren(n)
		return
	case html.TextNode:
		c.inline(n, &c.pending)
		return
	case html.ElementNode:
	default:
		return
	}

	switch n.DataAtom {
	case atom.Head, atom.Script, atom.Style, atom.Noscript, atom.Template:
		return
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		c.flush()
		var ib inlineBuffer
		c.inlineChildren(n, &ib)
		if text := ib.text(); text != "" {
			c.blocks = append(c.blocks, block{
				kind:    blockHeading,
				level:   int(n.Data[1] - '0'),
				text:    text,
				textLen: ib.textLen,
				linkLen: ib.linkLen,
			})
		}
	case atom.Ul, atom.Ol:
		c.flush()
		c.list(n)
	case atom.Pre:
		c.flush()
		c.code(n)
	case atom.Blockquote:
		c.flush()
		var ib inlineBuffer
		c.inlineChildren(n, &ib)
		if text := ib.text(); text != "" {
			c.blocks = append(c.blocks, block{kind: blockQuote, text: text, textLen: ib.textLen, linkLen: ib.linkLen})
		}
	case atom.Hr:
		c.flush()
		c.blocks = append(c.blocks, block{kind: blockRule})
	case atom.Table:
		c.flush()
		c.table(n)
	case atom.Br:
		c.pending.writeText(" ")
	default:
		if containerAtoms[n.DataAtom] {
			c.flush()
			c.walkChildren(n)
			c.flush()
			return
		}
		c.inline(n, &c.pending)
	}
}

func (c *converter) walkChildren(n *html.Node) {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.walk(child)
	}
}

// flush turns pending inline content into a paragraph.
func (c *converter) flush() {
	if text := c.pending.text(); text != "" {
		c.blocks = append(c.blocks, block{
			kind:    blockParagraph,
			text:    text,
			textLen: c.pending.textLen,
			linkLen: c.pending.linkLen,
		})
	}
	c.pending.reset()
}

// inline renders n as inline markdown into ib.
func (c *converter) inline(n *html.Node, ib *inlineBuffer) {
	switch n.Type {
	case html.TextNode:
		ib.writeText(collapseSpace(n.Data))
		return
	case html.ElementNode:
	default:
		return
	}

	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Img:
	case atom.Br:
		ib.writeText(" ")
	case atom.A:
		text := plainText(n)
		href := resolveURL(c.base, attr(n, "href"))
		switch {
		case text == "":
		case href == "":
			ib.writeText(text)
		default:
			ib.sb.WriteString(markdown.Link(text, href))
			ib.textLen += len(text)
			ib.linkLen += len(text)
		}
	case atom.Strong, atom.B:
		c.wrapped(n, ib, markdown.Bold)
	case atom.Em, atom.I:
		c.wrapped(n, ib, markdown.Italic)
	case atom.Code, atom.Kbd, atom.Samp:
		if text := plainText(n); text != "" {
			ib.sb.WriteString(markdown.Code(text))
			ib.textLen += len(text)
		}
	default:
		c.inlineChildren(n, ib)
	}
}

func (c *converter) inlineChildren(n *html.Node, ib *inlineBuffer) {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.inline(child, ib)
	}
}

// wrapped renders the children of n and applies an emphasis helper.
// Surrounding spaces stay outside the markers.
func (c *converter) wrapped(n *html.Node, ib *inlineBuffer, wrap func(string) string) {
	var inner inlineBuffer
	c.inlineChildren(n, &inner)
	raw := inner.sb.String()
	text := inner.text()
	if text == "" {
		ib.writeText(raw)
		return
	}
	if strings.HasPrefix(raw, " ") {
		ib.sb.WriteString(" ")
	}
	ib.sb.WriteString(wrap(text))
	if strings.HasSuffix(raw, " ") {
		ib.sb.WriteString(" ")
	}
	ib.textLen += inner.textLen
	ib.linkLen += inner.linkLen
}

// list converts a ul/ol element. Nested lists are flattened into the
// parent list after the item that contains them.
func (c *converter) list(n *html.Node) {
	b := block{kind: blockList, ordered: n.DataAtom == atom.Ol, items: make([]string, 0)}
	c.listItems(n, &b)
	if len(b.items) > 0 {
		c.blocks = append(c.blocks, b)
	}
}

func (c *converter) listItems(n *html.Node, b *block) {
	for li := n.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.DataAtom != atom.Li {
			continue
		}

		var ib inlineBuffer
		nested := make([]*html.Node, 0)
		for child := li.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == html.ElementNode && (child.DataAtom == atom.Ul || child.DataAtom == atom.Ol) {
				nested = append(nested, child)
				continue
			}
			c.inline(child, &ib)
		}

		if text := ib.text(); text != "" {
			b.items = append(b.items, text)
			b.textLen += ib.textLen
			b.linkLen += ib.linkLen
		}
		for _, sub := range nested {
			c.listItems(sub, b)
		}
	}
}

// code converts a pre element. The language is taken from a
// "language-xxx" or "lang-xxx" class on the pre or its code child.
func (c *converter) code(n *html.Node) {
	text := strings.Trim(rawText(n), "\n")
	if strings.TrimSpace(text) == "" {
		return
	}

	lang := codeLanguage(n)
	if lang == "" {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == html.ElementNode && child.DataAtom == atom.Code {
				lang = codeLanguage(child)
				break
			}
		}
	}

	c.blocks = append(c.blocks, block{kind: blockCode, text: text, lang: lang, textLen: len(text)})
}

func codeLanguage(n *html.Node) string {
	for _, class := range strings.Fields(attr(n, "class")) {
		for _, prefix := range []string{"language-", "lang-"} {
			if lang, ok := strings.CutPrefix(class, prefix); ok {
				return lang
			}
		}
	}
	return ""
}

// table converts a table element. The first row becomes the header and
// every row is padded or cut to the header width.
func (c *converter) table(n *html.Node) {
	rows := make([][]string, 0)
	b := block{kind: blockTable}

	var collect func(*html.Node)
	collect = func(node *html.Node) {
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			if child.Type != html.ElementNode {
				continue
			}
			switch child.DataAtom {
			case atom.Thead, atom.Tbody, atom.Tfoot:
				collect(child)
			case atom.Tr:
				row := make([]string, 0)
				for cell := child.FirstChild; cell != nil; cell = cell.NextSibling {
					if cell.Type != html.ElementNode || (cell.DataAtom != atom.Td && cell.DataAtom != atom.Th) {
						continue
					}
					var ib inlineBuffer
					c.inlineChildren(cell, &ib)
					row = append(row, strings.ReplaceAll(ib.text(), "|", `\|`))
					b.textLen += ib.textLen
					b.linkLen += ib.linkLen
				}
				if len(row) > 0 {
					rows = append(rows, row)
				}
			}
		}
	}
	collect(n)

	if len(rows) == 0 {
		return
	}

	b.header = rows[0]
	width := len(b.header)
	for _, row := range rows[1:] {
		fitted := make([]string, width)
		copy(fitted, row)
		b.rows = append(b.rows, fitted)
	}
	c.blocks = append(c.blocks, b)
}

// renderMarkdown renders blocks with the markdown builder.
func renderMarkdown(blocks []block) (string, error) {
	var sb strings.Builder
	md := markdown.NewMarkdown(&sb)

	for _, b := range blocks {
		switch b.kind {
		case blockHeading:
			switch b.level {
			case 1:
				md.H1(b.text)
			case 2:
				md.H2(b.text)
			case 3:
				md.H3(b.text)
			case 4:
				md.H4(b.text)
			case 5:
				md.H5(b.text)
			default:
				md.H6(b.text)
			}
		case blockParagraph:
			md.PlainText(b.text)
		case blockList:
			if b.ordered {
				md.OrderedList(b.items...)
			} else {
				md.BulletList(b.items...)
			}
		case blockCode:
			md.CodeBlocks(markdown.SyntaxHighlight(b.lang), b.text)
		case blockQuote:
			md.Blockquote(b.text)
		case blockRule:
			md.HorizontalRule()
		case blockTable:
			md.Table(markdown.TableSet{Header: b.header, Rows: b.rows})
		}
		md.PlainText("")
	}

	if err := md.Build(); err != nil {
		return "", fmt.Errorf("failed to build markdown: %w", err)
	}
	return strings.TrimSpace(sb.String()), nil
}

// plainText returns the collapsed visible text of n.
func plainText(n *html.Node) string {
	return strings.Join(strings.Fields(rawText(n)), " ")
}

// rawText returns the text content of n with whitespace preserved.
func rawText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.TextNode:
			sb.WriteString(node.Data)
			return
		case html.ElementNode:
			switch node.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			case atom.Br:
				sb.WriteString("\n")
				return
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return sb.String()
}

// collapseSpace replaces runs of whitespace with a single space, keeping a
// leading or trailing space so adjacent inline nodes stay separated.
func collapseSpace(s string) string {
	if s == "" {
		return ""
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return " "
	}

	out := strings.Join(fields, " ")
	if isSpace(s[0]) {
		out = " " + out
	}
	if isSpace(s[len(s)-1]) {
		out += " "
	}
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r' || b == '\f'
}

// attr retrieves an attribute value from an HTML node.
func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
