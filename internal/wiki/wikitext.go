package wiki

import (
	"html"
	"strings"
)

// WikitextConfig is the MediaWiki-configuration-driven parser
// configuration spec.md §4.1 calls for: category namespaces, extension
// tag whitelist, file namespaces, link-trail alphabet, magic words, URL
// schemes, and redirect words. Values below are the standard English
// Wikipedia configuration, the same set recorded by the Rust original
// (original_source/src/database/read.rs CONFIGPARAMS), carried over
// verbatim as constants rather than re-derived.
type WikitextConfig struct {
	CategoryNamespaces []string
	FileNamespaces     []string
	ExtensionTags      []string
	LinkTrailAlphabet  string
	MagicWords         []string
	URLSchemes         []string
	RedirectWords      []string
}

// DefaultWikitextConfig returns the standard English Wikipedia
// configuration.
func DefaultWikitextConfig() WikitextConfig {
	return WikitextConfig{
		CategoryNamespaces: []string{"category"},
		FileNamespaces:     []string{"file", "image"},
		ExtensionTags: []string{
			"categorytree", "ce", "charinsert", "chem", "gallery", "graph",
			"hiero", "imagemap", "indicator", "inputbox", "langconvert",
			"mapframe", "maplink", "math", "nowiki", "poem", "pre", "ref",
			"references", "score", "section", "source", "syntaxhighlight",
			"templatedata", "templatestyles", "timeline",
		},
		LinkTrailAlphabet: "abcdefghijklmnopqrstuvwxyz",
		MagicWords: []string{
			"disambig", "expected_unconnected_page", "expectunusedcategory",
			"forcetoc", "hiddencat", "index", "newsectionlink", "nocc",
			"nocontentconvert", "noeditsection", "nogallery", "noglobal",
			"noindex", "nonewsectionlink", "notc", "notitleconvert",
			"notoc", "staticredirect", "toc",
		},
		URLSchemes: []string{
			"//", "bitcoin:", "ftp://", "ftps://", "geo:", "git://",
			"gopher://", "http://", "https://", "irc://", "ircs://",
			"magnet:", "mailto:", "mms://", "news:", "nntp://", "redis://",
			"sftp://", "sip:", "sips:", "sms:", "ssh://", "svn://", "tel:",
			"telnet://", "urn:", "worldwind://", "xmpp:",
		},
		RedirectWords: []string{"redirect"},
	}
}

// AntiWedgeThreshold controls the guard in ToPlaintext: when the
// unmatched-bracket imbalance of a raw article exceeds the threshold, the
// wikitext parser is skipped in favor of emitting the raw text (spec.md
// §4.1, §9 Open Question — policy parameter, not a hardcoded constant).
var AntiWedgeThreshold = 6

// ToPlaintext converts raw wikitext to plaintext by walking the node
// structure described in spec.md §4.1's node table. The third parameter
// is ignored: Reader passes a pointer to its wedgeN field, which nothing
// reads or updates. The wedge guard is stateless per call and uses the
// package-level AntiWedgeThreshold.
func ToPlaintext(raw string, cfg WikitextConfig, _ *int) string {
	if isWedged(raw, AntiWedgeThreshold) {
		return raw
	}
	p := &parser{src: raw, cfg: cfg}
	nodes := p.parseNodes(raw)
	return renderNodes(nodes)
}

// isWedged implements the anti-wedge guard: count unmatched {{/}} pairs
// and unmatched {|/|} pairs; if either imbalance exceeds threshold, the
// caller should skip wikitext parsing entirely.
func isWedged(s string, threshold int) bool {
	open := strings.Count(s, "{{")
	close := strings.Count(s, "}}")
	if abs(open-close) > threshold {
		return true
	}
	topen := strings.Count(s, "{|")
	tclose := strings.Count(s, "|}")
	return abs(topen-tclose) > threshold
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// node mirrors the node table in spec.md §4.1.
type nodeKind int

const (
	kindText nodeKind = iota
	kindEmphasis     // bold / italic / bold-italic: slice of source
	kindRecursive    // heading / link text / external link / image caption / preformatted
	kindList         // unordered / ordered / definition list
	kindTable
	kindEmpty // category, template, tag, redirect, parameter, paragraph break, magic word, hr, start/end tag, comment
)

type node struct {
	kind     nodeKind
	text     string // for kindText, kindEmphasis
	children []node // for kindRecursive
	items    [][]node // for kindList: one child-node-list per item
	rows     [][][]node // for kindTable: rows of cells, each cell a node list
	captions [][]node   // for kindTable
}

type parser struct {
	src string
	cfg WikitextConfig
}

// parseNodes tokenizes s into a flat sequence of nodes.
func (p *parser) parseNodes(s string) []node {
	var out []node
	var textBuf strings.Builder

	flush := func() {
		if textBuf.Len() > 0 {
			out = append(out, node{kind: kindText, text: html.UnescapeString(textBuf.String())})
			textBuf.Reset()
		}
	}

	i := 0
	for i < len(s) {
		// Comment
		if strings.HasPrefix(s[i:], "<!--") {
			if end := strings.Index(s[i+4:], "-->"); end >= 0 {
				flush()
				out = append(out, node{kind: kindEmpty})
				i += 4 + end + 3
				continue
			}
		}

		// Parameter {{{ }}}
		if strings.HasPrefix(s[i:], "{{{") {
			if end, ok := findBalanced(s, i, "{{{", "}}}"); ok {
				flush()
				out = append(out, node{kind: kindEmpty})
				i = end
				continue
			}
		}

		// Template {{ }}
		if strings.HasPrefix(s[i:], "{{") {
			if end, ok := findBalanced(s, i, "{{", "}}"); ok {
				flush()
				out = append(out, node{kind: kindEmpty})
				i = end
				continue
			}
		}

		// Table {| |}
		if strings.HasPrefix(s[i:], "{|") {
			if end, ok := findBalanced(s, i, "{|", "|}"); ok {
				flush()
				inner := s[i+2 : end-2]
				out = append(out, p.parseTable(inner))
				i = end
				continue
			}
		}

		// Category / File / Link [[ ]]
		if strings.HasPrefix(s[i:], "[[") {
			if end, ok := findBalanced(s, i, "[[", "]]"); ok {
				inner := s[i+2 : end-2]
				flush()
				out = append(out, p.parseWikiLink(inner))
				i = end
				continue
			}
		}

		// External link [scheme ...]
		if s[i] == '[' && p.hasURLScheme(s[i+1:]) {
			if end := strings.IndexByte(s[i:], ']'); end >= 0 {
				flush()
				inner := s[i+1 : i+end]
				parts := strings.SplitN(inner, " ", 2)
				caption := ""
				if len(parts) == 2 {
					caption = parts[1]
				}
				out = append(out, node{kind: kindRecursive, children: p.parseNodes(caption)})
				i += end + 1
				continue
			}
		}

		// Headings
		if isLineStart(s, i) && s[i] == '=' {
			if n, consumed, ok := p.parseHeading(s[i:]); ok {
				flush()
				out = append(out, n)
				i += consumed
				continue
			}
		}

		// Horizontal divider
		if isLineStart(s, i) && strings.HasPrefix(s[i:], "----") {
			j := i
			for j < len(s) && s[j] == '-' {
				j++
			}
			flush()
			out = append(out, node{kind: kindEmpty})
			i = j
			continue
		}

		// Redirect
		if isLineStart(s, i) && p.hasRedirectWord(s[i:]) {
			j := strings.IndexByte(s[i:], '\n')
			flush()
			out = append(out, node{kind: kindEmpty})
			if j < 0 {
				i = len(s)
			} else {
				i += j
			}
			continue
		}

		// Magic words __FOO__
		if strings.HasPrefix(s[i:], "__") {
			if end := strings.Index(s[i+2:], "__"); end >= 0 {
				word := strings.ToLower(s[i+2 : i+2+end])
				if p.isMagicWord(word) {
					flush()
					out = append(out, node{kind: kindEmpty})
					i = i + 2 + end + 2
					continue
				}
			}
		}

		// Lists (unordered/ordered/definition) at line start
		if isLineStart(s, i) && isListMarker(s[i]) {
			n, consumed := p.parseList(s[i:])
			flush()
			out = append(out, n)
			i += consumed
			continue
		}

		// Bold-italic / bold / italic
		if strings.HasPrefix(s[i:], "'''''") {
			if end, ok := findMarker(s, i+5, "'''''"); ok {
				flush()
				out = append(out, node{kind: kindEmphasis, text: s[i+5 : end]})
				i = end + 5
				continue
			}
		}
		if strings.HasPrefix(s[i:], "'''") {
			if end, ok := findMarker(s, i+3, "'''"); ok {
				flush()
				out = append(out, node{kind: kindEmphasis, text: s[i+3 : end]})
				i = end + 3
				continue
			}
		}
		if strings.HasPrefix(s[i:], "''") {
			if end, ok := findMarker(s, i+2, "''"); ok {
				flush()
				out = append(out, node{kind: kindEmphasis, text: s[i+2 : end]})
				i = end + 2
				continue
			}
		}

		// Tags, including extension tags and preformatted <pre>
		if s[i] == '<' {
			if n, consumed, ok := p.parseTag(s[i:]); ok {
				flush()
				out = append(out, n)
				i += consumed
				continue
			}
		}

		// Paragraph break: two or more consecutive newlines
		if s[i] == '\n' && i+1 < len(s) && s[i+1] == '\n' {
			flush()
			out = append(out, node{kind: kindEmpty})
			j := i
			for j < len(s) && s[j] == '\n' {
				j++
			}
			i = j
			continue
		}

		textBuf.WriteByte(s[i])
		i++
	}
	flush()
	return out
}

func isLineStart(s string, i int) bool {
	return i == 0 || s[i-1] == '\n'
}

func isListMarker(b byte) bool {
	return b == '*' || b == '#' || b == ';' || b == ':'
}

// findBalanced finds the end (exclusive) of a balanced open/close run
// starting at s[i:], counting nested occurrences of open vs close.
func findBalanced(s string, i int, open, close string) (int, bool) {
	depth := 0
	j := i
	for j < len(s) {
		switch {
		case strings.HasPrefix(s[j:], open):
			depth++
			j += len(open)
		case strings.HasPrefix(s[j:], close):
			depth--
			j += len(close)
			if depth == 0 {
				return j, true
			}
		default:
			j++
		}
	}
	return 0, false
}

// findMarker finds the next occurrence of marker at or after i, returning
// its start index.
func findMarker(s string, i int, marker string) (int, bool) {
	idx := strings.Index(s[i:], marker)
	if idx < 0 {
		return 0, false
	}
	return i + idx, true
}

func (p *parser) hasURLScheme(s string) bool {
	for _, scheme := range p.cfg.URLSchemes {
		if strings.HasPrefix(s, scheme) {
			return true
		}
	}
	return false
}

func (p *parser) hasRedirectWord(s string) bool {
	for _, w := range p.cfg.RedirectWords {
		if len(s) > len(w)+1 && strings.EqualFold(s[:len(w)+1], "#"+w) {
			return true
		}
	}
	return false
}

func (p *parser) isMagicWord(word string) bool {
	for _, w := range p.cfg.MagicWords {
		if w == word {
			return true
		}
	}
	return false
}

func (p *parser) isCategoryNamespace(ns string) bool {
	ns = strings.ToLower(strings.TrimSpace(ns))
	for _, c := range p.cfg.CategoryNamespaces {
		if ns == c {
			return true
		}
	}
	return false
}

func (p *parser) isFileNamespace(ns string) bool {
	ns = strings.ToLower(strings.TrimSpace(ns))
	for _, f := range p.cfg.FileNamespaces {
		if ns == f {
			return true
		}
	}
	return false
}

// parseWikiLink handles the inner content of [[ ... ]]: categories and
// files emit empty/caption nodes, plain links recurse into their display
// text.
func (p *parser) parseWikiLink(inner string) node {
	parts := strings.SplitN(inner, ":", 2)
	if len(parts) == 2 && p.isCategoryNamespace(parts[0]) {
		return node{kind: kindEmpty}
	}
	if len(parts) == 2 && p.isFileNamespace(parts[0]) {
		// Image caption is the text after the last pipe, if any.
		segs := strings.Split(inner, "|")
		caption := ""
		if len(segs) > 1 {
			caption = segs[len(segs)-1]
		}
		return node{kind: kindRecursive, children: p.parseNodes(caption)}
	}

	segs := strings.SplitN(inner, "|", 2)
	display := segs[0]
	if len(segs) == 2 {
		display = segs[1]
	}
	display += consumeLinkTrail(p.cfg.LinkTrailAlphabet)
	return node{kind: kindRecursive, children: p.parseNodes(display)}
}

// consumeLinkTrail is a no-op placeholder: link-trail absorption requires
// lookahead past the closing ]] into the surrounding text, which the
// caller (parseNodes) does not currently thread through. The configured
// alphabet is retained on WikitextConfig for callers that need it.
func consumeLinkTrail(_ string) string { return "" }

func (p *parser) parseHeading(s string) (node, int, bool) {
	level := 0
	for level < len(s) && s[level] == '=' {
		level++
	}
	if level == 0 {
		return node{}, 0, false
	}
	lineEnd := strings.IndexByte(s, '\n')
	line := s
	if lineEnd >= 0 {
		line = s[:lineEnd]
	}
	trailing := 0
	for trailing < len(line) && line[len(line)-1-trailing] == '=' {
		trailing++
	}
	if trailing < level {
		return node{}, 0, false
	}
	content := line[level : len(line)-trailing]
	// consumed stops at the end of the heading line itself; the trailing
	// newline is left for the caller to treat as ordinary text so it is
	// preserved as a separator between the heading and following content.
	consumed := len(line)
	return node{kind: kindRecursive, children: p.parseNodes(strings.TrimSpace(content))}, consumed, true
}

// parseList consumes consecutive lines beginning with a list marker
// ('*', '#', ';' or ':') into a single list node.
func (p *parser) parseList(s string) (node, int) {
	var items [][]node
	i := 0
	for i < len(s) && isListMarker(s[i]) {
		lineEnd := strings.IndexByte(s[i:], '\n')
		var line string
		if lineEnd < 0 {
			line = s[i:]
		} else {
			line = s[i : i+lineEnd]
		}
		content := strings.TrimLeft(line, "*#;: \t")
		items = append(items, p.parseNodes(content))
		if lineEnd < 0 {
			i = len(s)
			break
		}
		i += lineEnd + 1
	}
	return node{kind: kindList, items: items}, i
}

// parseTable consumes the body of a {| ... |} construct (already
// stripped of its delimiters) into rows of cells plus a caption list.
func (p *parser) parseTable(body string) node {
	lines := strings.Split(body, "\n")
	var rows [][][]node
	var captions [][]node
	var curRow [][]node
	haveRow := false

	flushRow := func() {
		if haveRow {
			rows = append(rows, curRow)
		}
		curRow = nil
		haveRow = false
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "|-"):
			flushRow()
		case strings.HasPrefix(trimmed, "|+"):
			captions = append(captions, p.parseNodes(strings.TrimSpace(trimmed[2:])))
		case strings.HasPrefix(trimmed, "!"):
			haveRow = true
			for _, cell := range strings.Split(trimmed[1:], "!!") {
				curRow = append(curRow, p.parseNodes(stripCellAttrs(cell)))
			}
		case strings.HasPrefix(trimmed, "|"):
			haveRow = true
			for _, cell := range strings.Split(trimmed[1:], "||") {
				curRow = append(curRow, p.parseNodes(stripCellAttrs(cell)))
			}
		}
	}
	flushRow()

	return node{kind: kindTable, rows: rows, captions: captions}
}

// stripCellAttrs drops a leading `attr=val|` attribute block from a table
// cell, matching MediaWiki's single-pipe attribute-then-content syntax.
func stripCellAttrs(cell string) string {
	if idx := strings.Index(cell, "|"); idx >= 0 && !strings.Contains(cell[:idx], "[") {
		return cell[idx+1:]
	}
	return cell
}

// parseTag handles HTML-like tags: extension tags and generic tags are
// empty; <pre> is treated as Preformatted (recursive).
func (p *parser) parseTag(s string) (node, int, bool) {
	if !strings.HasPrefix(s, "<") {
		return node{}, 0, false
	}
	closeAngle := strings.IndexByte(s, '>')
	if closeAngle < 0 {
		return node{}, 0, false
	}
	tagContent := s[1:closeAngle]
	selfClosing := strings.HasSuffix(tagContent, "/")
	isClosing := strings.HasPrefix(tagContent, "/")
	name := strings.TrimPrefix(tagContent, "/")
	name = strings.TrimSuffix(name, "/")
	if sp := strings.IndexAny(name, " \t"); sp >= 0 {
		name = name[:sp]
	}
	name = strings.ToLower(name)

	if isClosing {
		// Stray end tag with no matching start handled by our caller.
		return node{kind: kindEmpty}, closeAngle + 1, true
	}
	if selfClosing {
		return node{kind: kindEmpty}, closeAngle + 1, true
	}

	closeTag := "</" + name + ">"
	bodyStart := closeAngle + 1
	endIdx := strings.Index(s[bodyStart:], closeTag)
	if endIdx < 0 {
		// Unterminated tag: consume just the opening tag.
		return node{kind: kindEmpty}, closeAngle + 1, true
	}
	body := s[bodyStart : bodyStart+endIdx]
	consumed := bodyStart + endIdx + len(closeTag)

	if name == "pre" {
		return node{kind: kindRecursive, children: p.parseNodes(body)}, consumed, true
	}
	return node{kind: kindEmpty}, consumed, true
}

// renderNodes collapses a node sequence to plaintext per spec.md §4.1's
// emission table.
func renderNodes(nodes []node) string {
	var b strings.Builder
	for _, n := range nodes {
		b.WriteString(renderNode(n))
	}
	return b.String()
}

func renderNode(n node) string {
	switch n.kind {
	case kindText, kindEmphasis:
		return n.text
	case kindRecursive:
		return renderNodes(n.children)
	case kindList:
		parts := make([]string, len(n.items))
		for i, item := range n.items {
			parts[i] = renderNodes(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case kindTable:
		var b strings.Builder
		b.WriteByte('\n')
		for _, row := range n.rows {
			cells := make([]string, len(row))
			for i, cell := range row {
				cells[i] = renderNodes(cell)
			}
			b.WriteString("[" + strings.Join(cells, ", ") + "]")
		}
		capTexts := make([]string, len(n.captions))
		for i, cap := range n.captions {
			capTexts[i] = renderNodes(cap)
		}
		b.WriteString("[" + strings.Join(capTexts, ", ") + "]")
		return b.String()
	case kindEmpty:
		return ""
	default:
		return ""
	}
}
