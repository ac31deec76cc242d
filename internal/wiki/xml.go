// Package wiki implements the dump reader (C2): it decodes a multi-stream
// bzip2 Wikipedia XML dump into a lazy sequence of namespace-0 articles
// with their wikitext bodies converted to plaintext.
package wiki

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/unsignedbyte/wikidle/internal/korelerr"
)

// Article is a parsed namespace-0 page.
//
// ID is the Wikipedia page id as it appears in the dump; it is carried
// through for diagnostics only. The counting-axis ordinal used downstream
// by the frequency builder (C3) is the 0-based order in which Next()
// yields articles, not this field (spec.md §3).
type Article struct {
	ID        int
	Namespace int
	Title     string
	Body      string // plaintext, after wikitext conversion
}

// Reader streams Article values out of a MediaWiki export XML document,
// filtering to namespace 0 and converting each page's wikitext body to
// plaintext. Construct one over a decompressed dump stream (see
// NewDumpReader for the bzip2-wrapped entry point).
type Reader struct {
	dec     *xml.Decoder
	cfg     WikitextConfig
	wedgeN  int
	rawText bool // set by tests to skip wikitext conversion
}

// NewReader wraps an already-decompressed XML byte stream.
func NewReader(r io.Reader, cfg WikitextConfig) *Reader {
	return &Reader{dec: xml.NewDecoder(r), cfg: cfg}
}

// page accumulates the four tracked fields of a single <page> element.
type page struct {
	title, ns, id, text strings.Builder
	haveTitle, haveNS, haveID, haveText bool
	writing string // which of title/ns/id/text is currently being appended to, "" if none
}

func (p *page) reset() {
	p.title.Reset()
	p.ns.Reset()
	p.id.Reset()
	p.text.Reset()
	p.haveTitle, p.haveNS, p.haveID, p.haveText = false, false, false, false
	p.writing = ""
}

func (p *page) startTag(name string) {
	switch name {
	case "title":
		if !p.haveTitle {
			p.writing = "title"
		}
	case "ns":
		if !p.haveNS {
			p.writing = "ns"
		}
	case "id":
		if !p.haveID {
			p.writing = "id"
		}
	case "text":
		if !p.haveText {
			p.writing = "text"
		}
	}
}

func (p *page) endTag(name string) {
	switch name {
	case "title":
		p.haveTitle = true
	case "ns":
		p.haveNS = true
	case "id":
		p.haveID = true
	case "text":
		p.haveText = true
	}
	if p.writing == name {
		p.writing = ""
	}
}

func (p *page) write(s string) {
	switch p.writing {
	case "title":
		p.title.WriteString(s)
	case "ns":
		p.ns.WriteString(s)
	case "id":
		p.id.WriteString(s)
	case "text":
		p.text.WriteString(s)
	}
}

// Next returns the next namespace-0 article, converting its wikitext to
// plaintext. It returns io.EOF once the document is exhausted.
//
// Malformed XML and structurally invalid pages (nested <page>, missing
// fields, non-integer ns/id) are returned as errors wrapping
// korelerr.ErrXML. After a structurally invalid page the caller may call
// Next again to continue with the next page. A malformed-XML error comes
// from the underlying xml.Decoder, which keeps it: every later call
// returns the same error and no further page is read. Next never panics
// on malformed input.
func (r *Reader) Next() (Article, error) {
	var cur page
	inPage := false

	for {
		tok, err := r.dec.Token()
		if err == io.EOF {
			if inPage {
				return Article{}, fmt.Errorf("%w: dump ended inside <page>", korelerr.ErrXML)
			}
			return Article{}, io.EOF
		}
		if err != nil {
			return Article{}, fmt.Errorf("%w: %v", korelerr.ErrXML, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "page" {
				if inPage {
					return Article{}, fmt.Errorf("%w: nested <page> element", korelerr.ErrXML)
				}
				inPage = true
				cur.reset()
				continue
			}
			if inPage {
				cur.startTag(t.Name.Local)
			}
		case xml.EndElement:
			if t.Name.Local == "page" {
				if !inPage {
					continue
				}
				article, ns, err := finishPage(&cur)
				inPage = false
				if err != nil {
					return Article{}, err
				}
				if ns != 0 {
					// Silently skip non-namespace-0 pages and keep reading.
					continue
				}
				if !r.rawText {
					article.Body = ToPlaintext(article.Body, r.cfg, &r.wedgeN)
				}
				return article, nil
			}
			if inPage {
				cur.endTag(t.Name.Local)
			}
		case xml.CharData:
			if inPage && cur.writing != "" {
				cur.write(string(t))
			}
		}
	}
}

func finishPage(p *page) (Article, int, error) {
	if !p.haveTitle || !p.haveNS || !p.haveID || !p.haveText {
		return Article{}, 0, fmt.Errorf("%w: page missing required field (title=%v ns=%v id=%v text=%v)",
			korelerr.ErrXML, p.haveTitle, p.haveNS, p.haveID, p.haveText)
	}

	ns, err := strconv.Atoi(strings.TrimSpace(p.ns.String()))
	if err != nil {
		return Article{}, 0, fmt.Errorf("%w: non-integer ns %q", korelerr.ErrXML, p.ns.String())
	}
	id, err := strconv.Atoi(strings.TrimSpace(p.id.String()))
	if err != nil {
		return Article{}, 0, fmt.Errorf("%w: non-integer id %q", korelerr.ErrXML, p.id.String())
	}

	return Article{
		ID:        id,
		Namespace: ns,
		Title:     p.title.String(),
		Body:      p.text.String(),
	}, ns, nil
}
