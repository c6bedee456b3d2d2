package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Parse builds the document tree for src. Links inside code spans and code
// blocks are never surfaced because the underlying parser does not expose
// them as link nodes.
func Parse(src []byte) *Document {
	root := goldmark.New().Parser().Parse(text.NewReader(src))

	d := &Document{Source: src}
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		d.Blocks = append(d.Blocks, buildBlock(n, src))
	}
	return d
}

func buildBlock(n gast.Node, src []byte) *Block {
	switch t := n.(type) {
	case *gast.Heading:
		return &Block{
			Kind:  KindHeading,
			Level: t.Level,
			Span:  blockSpan(n, src),
			Text:  inlineText(n, src),
			Links: collectLinks(n, src),
		}
	case *gast.Paragraph:
		return &Block{
			Kind:  KindParagraph,
			Span:  blockSpan(n, src),
			Text:  inlineText(n, src),
			Links: collectLinks(n, src),
		}
	case *gast.TextBlock:
		return &Block{
			Kind:  KindParagraph,
			Span:  blockSpan(n, src),
			Text:  inlineText(n, src),
			Links: collectLinks(n, src),
		}
	case *gast.List:
		return buildList(t, src)
	default:
		return &Block{Kind: KindOther, Span: blockSpan(n, src)}
	}
}

func buildList(list *gast.List, src []byte) *Block {
	b := &Block{
		Kind:    KindList,
		Ordered: list.IsOrdered(),
		Span:    blockSpan(list, src),
	}

	for li := list.FirstChild(); li != nil; li = li.NextSibling() {
		item := buildItem(li, src)
		if start, _, ok := segmentRange(li, src); ok {
			item.Span.Start = lineStart(src, start)
		} else {
			item.Span.Start = -1
		}
		b.Items = append(b.Items, item)
	}

	// Direct item spans tile the list span: each item runs from its first
	// line to the start of the next item (the last one to the list's end).
	for i, item := range b.Items {
		if item.Span.Start < 0 {
			if i == 0 {
				item.Span.Start = b.Span.Start
			} else {
				item.Span.Start = b.Items[i-1].Span.Start
			}
		}
	}
	for i, item := range b.Items {
		if i+1 < len(b.Items) {
			item.Span.End = b.Items[i+1].Span.Start
		} else {
			item.Span.End = b.Span.End
		}
	}
	return b
}

func buildItem(li gast.Node, src []byte) *Item {
	it := &Item{}
	for c := li.FirstChild(); c != nil; c = c.NextSibling() {
		if nested, ok := c.(*gast.List); ok {
			it.Sublists = append(it.Sublists, buildList(nested, src))
			continue
		}
		it.Links = append(it.Links, collectLinks(c, src)...)
		if t := inlineText(c, src); t != "" {
			if it.Text != "" {
				it.Text += " "
			}
			it.Text += t
		}
	}
	return it
}

// collectLinks gathers the inline links under n, in source order, without
// descending into nested lists (their items carry their own links).
func collectLinks(n gast.Node, src []byte) []Link {
	var links []Link
	_ = gast.Walk(n, func(c gast.Node, entering bool) (gast.WalkStatus, error) {
		if !entering {
			return gast.WalkContinue, nil
		}
		if _, ok := c.(*gast.List); ok && c != n {
			return gast.WalkSkipChildren, nil
		}
		link, ok := c.(*gast.Link)
		if !ok {
			return gast.WalkContinue, nil
		}
		if l, ok := linkAt(link, src); ok {
			links = append(links, l)
		}
		return gast.WalkSkipChildren, nil
	})
	return links
}

// linkAt locates the full "[text](dest)" markup of an inline link in src.
// Reference-style links and links whose markup cannot be located are
// skipped; they are never candidates for annotation.
func linkAt(link *gast.Link, src []byte) (Link, bool) {
	start, _, ok := textRange(link)
	if !ok {
		return Link{}, false
	}

	// The '[' may be separated from the first text segment by emphasis or
	// image markup ("[![alt](img)](url)" puts the text inside the image);
	// scan back within the line, skipping '![' image openers so the span
	// covers the outer link.
	open := -1
	for i := start - 1; i >= 0 && src[i] != '\n'; i-- {
		if src[i] == '[' {
			if i > 0 && src[i-1] == '!' {
				continue
			}
			open = i
			break
		}
	}
	if open < 0 {
		return Link{}, false
	}

	// Find the ']' matching the opening bracket (the text may contain
	// complete nested bracket pairs) and require an inline '('.
	closeBracket := -1
	bracketDepth := 0
	for i := open + 1; i < len(src) && src[i] != '\n'; i++ {
		switch src[i] {
		case '[':
			bracketDepth++
		case ']':
			if bracketDepth == 0 {
				closeBracket = i
			} else {
				bracketDepth--
			}
		}
		if closeBracket >= 0 {
			break
		}
	}
	if closeBracket < 0 || closeBracket+1 >= len(src) || src[closeBracket+1] != '(' {
		return Link{}, false
	}

	closeParen := -1
	depth := 1
	for i := closeBracket + 2; i < len(src); i++ {
		switch src[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 {
			closeParen = i
			break
		}
	}
	if closeParen < 0 {
		return Link{}, false
	}

	ds := closeBracket + 2
	for ds < closeParen && (src[ds] == ' ' || src[ds] == '\n') {
		ds++
	}
	de := ds
	if ds < closeParen && src[ds] == '<' {
		ds++
		de = ds
		for de < closeParen && src[de] != '>' {
			de++
		}
	} else {
		for de < closeParen && src[de] != ' ' && src[de] != '\n' {
			de++
		}
	}

	return Link{
		Text:        inlineText(link, src),
		Destination: string(link.Destination),
		Span:        Span{Start: open, End: closeParen + 1},
		DestSpan:    Span{Start: ds, End: de},
	}, true
}

// textRange returns the byte range covered by the text segments under n.
func textRange(n gast.Node) (start, stop int, ok bool) {
	start, stop = -1, -1
	_ = gast.Walk(n, func(c gast.Node, entering bool) (gast.WalkStatus, error) {
		if !entering {
			return gast.WalkContinue, nil
		}
		if t, isText := c.(*gast.Text); isText {
			if start < 0 || t.Segment.Start < start {
				start = t.Segment.Start
			}
			if t.Segment.Stop > stop {
				stop = t.Segment.Stop
			}
		}
		return gast.WalkContinue, nil
	})
	return start, stop, start >= 0
}

// inlineText extracts the plain text content of n, joining soft line breaks
// with spaces and skipping nested lists.
func inlineText(n gast.Node, src []byte) string {
	var buf bytes.Buffer
	_ = gast.Walk(n, func(c gast.Node, entering bool) (gast.WalkStatus, error) {
		if !entering {
			return gast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *gast.List:
			if c != n {
				return gast.WalkSkipChildren, nil
			}
		case *gast.Text:
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *gast.String:
			buf.Write(t.Value)
		}
		return gast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}

// segmentRange computes the byte range spanned by the source lines of n's
// subtree. Fenced code blocks are widened to include their fence lines,
// which the parser does not report as content.
func segmentRange(n gast.Node, src []byte) (start, stop int, ok bool) {
	start, stop = -1, -1
	update := func(s, e int) {
		if start < 0 || s < start {
			start = s
		}
		if e > stop {
			stop = e
		}
	}
	_ = gast.Walk(n, func(c gast.Node, entering bool) (gast.WalkStatus, error) {
		if !entering {
			return gast.WalkContinue, nil
		}
		if c.Type() != gast.TypeBlock {
			return gast.WalkContinue, nil
		}
		lines := c.Lines()
		if lines == nil || lines.Len() == 0 {
			return gast.WalkContinue, nil
		}
		s := lines.At(0).Start
		e := lines.At(lines.Len() - 1).Stop
		if _, fenced := c.(*gast.FencedCodeBlock); fenced {
			s, e = widenFence(src, s, e)
		}
		update(s, e)
		return gast.WalkContinue, nil
	})
	return start, stop, start >= 0
}

// widenFence extends a fenced code block's body range to cover the opening
// fence line and, when present, the closing one.
func widenFence(src []byte, start, stop int) (int, int) {
	bodyStart := lineStart(src, start)
	if bodyStart > 0 {
		start = lineStart(src, bodyStart-1)
	}
	next := lineEnd(src, stop-1)
	if next < len(src) {
		line := bytes.TrimSpace(src[next:lineEnd(src, next)])
		if bytes.HasPrefix(line, []byte("```")) || bytes.HasPrefix(line, []byte("~~~")) {
			stop = lineEnd(src, next)
		}
	}
	return start, stop
}

func blockSpan(n gast.Node, src []byte) Span {
	start, stop, ok := segmentRange(n, src)
	if !ok {
		return Span{}
	}
	return Span{Start: lineStart(src, start), End: lineEnd(src, stop-1)}
}

// lineStart returns the offset of the first byte of the line containing i.
func lineStart(src []byte, i int) int {
	if i > len(src) {
		i = len(src)
	}
	for i > 0 && src[i-1] != '\n' {
		i--
	}
	return i
}

// lineEnd returns the offset one past the newline of the line containing i
// (or len(src) for the last, unterminated line).
func lineEnd(src []byte, i int) int {
	if i < 0 {
		i = 0
	}
	for i < len(src) && src[i] != '\n' {
		i++
	}
	if i < len(src) {
		i++
	}
	return i
}
