// Package markdown provides the structural document tree for the enrichment
// engine.
//
// Parsing is backed by goldmark. The tree does not copy block content out of
// the source text; instead every block, list item, and link carries the byte
// span of its markup within the original document. Mutations are expressed as
// planned edits (insertions and span replacements) that are collected first
// and then applied back-to-front, so earlier edits never invalidate the
// offsets of later ones.
package markdown

import (
	"bytes"
	"sort"
)

// BlockKind classifies a top-level (or item-nested) block.
type BlockKind int

const (
	// KindHeading is an ATX or setext heading.
	KindHeading BlockKind = iota
	// KindParagraph is a paragraph or loose text block.
	KindParagraph
	// KindList is a bullet or ordered list.
	KindList
	// KindOther covers code blocks, HTML blocks, blockquotes, and breaks.
	KindOther
)

// Span is a half-open byte range [Start, End) into the document source.
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes the span covers.
func (s Span) Len() int { return s.End - s.Start }

// Document is the parsed structural tree plus the source it indexes into.
// A Document is owned by a single enrichment run.
type Document struct {
	Source []byte
	Blocks []*Block
}

// Block is a block-level element. Lists carry Items; headings and
// paragraphs carry their inline links and plain text.
type Block struct {
	Kind    BlockKind
	Level   int  // heading level, 1-6
	Ordered bool // list only
	Span    Span
	Text    string // inline plain text (heading, paragraph)
	Links   []Link
	Items   []*Item // list only
}

// Item is a single list item. Links and Text cover only the item's own
// inline content; nested lists appear as Sublists with their own items.
type Item struct {
	Span     Span
	Text     string
	Links    []Link
	Sublists []*Block
}

// Link is an inline link. Span covers the whole "[text](dest)" markup;
// DestSpan covers just the destination inside the parentheses.
type Link struct {
	Text        string
	Destination string
	Span        Span
	DestSpan    Span
}

// FirstLink returns the item's first own inline link, or nil.
func (it *Item) FirstLink() *Link {
	if len(it.Links) == 0 {
		return nil
	}
	return &it.Links[0]
}

// EachLink calls fn for every link in the document, in source order,
// including links nested arbitrarily deep in list items.
func (d *Document) EachLink(fn func(*Link)) {
	for _, b := range d.Blocks {
		eachBlockLink(b, fn)
	}
}

func eachBlockLink(b *Block, fn func(*Link)) {
	for i := range b.Links {
		fn(&b.Links[i])
	}
	for _, it := range b.Items {
		for i := range it.Links {
			fn(&it.Links[i])
		}
		for _, sub := range it.Sublists {
			eachBlockLink(sub, fn)
		}
	}
}

// Edit is a planned mutation of the source text: the bytes in Span are
// replaced by Text. An insertion is an empty span.
type Edit struct {
	Span Span
	Text []byte
}

// Insert plans an insertion of text at offset at.
func Insert(at int, text string) Edit {
	return Edit{Span: Span{Start: at, End: at}, Text: []byte(text)}
}

// Replace plans a replacement of span with text.
func Replace(span Span, text []byte) Edit {
	return Edit{Span: span, Text: text}
}

// Apply applies a set of non-overlapping edits to src and returns the new
// text. Edits are applied back-to-front so offsets stay valid; src itself
// is not modified.
func Apply(src []byte, edits []Edit) []byte {
	if len(edits) == 0 {
		return src
	}
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Span.Start > sorted[j].Span.Start
	})

	out := make([]byte, len(src))
	copy(out, src)
	for _, e := range sorted {
		var buf bytes.Buffer
		buf.Write(out[:e.Span.Start])
		buf.Write(e.Text)
		buf.Write(out[e.Span.End:])
		out = buf.Bytes()
	}
	return out
}

// MatchTrailingNewline forces out to follow the trailing-newline convention
// of the original input: documents that ended with a newline keep exactly
// that, documents that did not have their trailing newline trimmed. An
// empty output is returned as is, so an untouched empty document stays
// byte-identical. This avoids whitespace-only diffs in version-controlled
// output.
func MatchTrailingNewline(out, original []byte) []byte {
	if len(out) == 0 {
		return out
	}
	wantNewline := len(original) == 0 || original[len(original)-1] == '\n'
	hasNewline := out[len(out)-1] == '\n'

	switch {
	case wantNewline && !hasNewline:
		return append(out, '\n')
	case !wantNewline && hasNewline:
		return out[:len(out)-1]
	}
	return out
}
