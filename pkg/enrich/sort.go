package enrich

import (
	"bytes"
	"sort"
	"time"

	"starmark/pkg/github"
	"starmark/pkg/markdown"
)

// sortEdits plans reorderings for every qualifying list in the document.
// Lists are materialized bottom-up: nested lists inside an item are sorted
// first, then the item texts themselves are permuted, so nesting depth is
// unbounded and each list qualifies independently.
func (e *Engine) sortEdits(doc *markdown.Document, records map[string]*github.RepoInfo) []markdown.Edit {
	var edits []markdown.Edit
	for _, b := range doc.Blocks {
		if b.Kind != markdown.KindList {
			continue
		}
		text, changed := e.sortedListText(doc.Source, b, records)
		if changed {
			edits = append(edits, markdown.Replace(b.Span, text))
		}
	}
	return edits
}

type sortEntry struct {
	text   []byte
	info   *github.RepoInfo
	hasRef bool
	idx    int
}

// sortedListText returns the list's text with its items (and recursively
// their sublists) in sorted order, and whether anything moved. A list only
// sorts when enough of its direct items carry a resolvable reference;
// non-qualifying lists still propagate changes from nested qualifying ones.
func (e *Engine) sortedListText(src []byte, list *markdown.Block, records map[string]*github.RepoInfo) ([]byte, bool) {
	entries := make([]*sortEntry, 0, len(list.Items))
	changed := false
	qualifying := 0
	for i, it := range list.Items {
		text, c := e.itemText(src, it, records)
		if c {
			changed = true
		}
		en := &sortEntry{text: text, idx: i}
		if l := firstRef(it); l != nil {
			en.hasRef = true
			qualifying++
			en.info = records[l.Destination]
		}
		entries = append(entries, en)
	}

	if qualifying >= e.opts.MinReferences {
		sort.SliceStable(entries, func(i, j int) bool {
			a, b := entries[i], entries[j]
			if (a.info != nil) != (b.info != nil) {
				return a.info != nil
			}
			if a.info == nil {
				return false
			}
			return e.metric(a.info) > e.metric(b.info)
		})
		for i, en := range entries {
			if en.idx != i {
				changed = true
				break
			}
		}
	}

	var buf bytes.Buffer
	for i, en := range entries {
		buf.Write(en.text)
		// The document's unterminated final line may have been permuted
		// into the middle of the list.
		if i < len(entries)-1 && (len(en.text) == 0 || en.text[len(en.text)-1] != '\n') {
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes(), changed
}

// itemText returns the item's text with any nested lists already sorted.
// Sublist spans are rebased onto the item's own slice before applying.
func (e *Engine) itemText(src []byte, it *markdown.Item, records map[string]*github.RepoInfo) ([]byte, bool) {
	base := src[it.Span.Start:it.Span.End]
	if len(it.Sublists) == 0 {
		return base, false
	}
	var edits []markdown.Edit
	changed := false
	for _, sub := range it.Sublists {
		text, c := e.sortedListText(src, sub, records)
		if !c {
			continue
		}
		changed = true
		edits = append(edits, markdown.Replace(markdown.Span{
			Start: sub.Span.Start - it.Span.Start,
			End:   sub.Span.End - it.Span.Start,
		}, text))
	}
	if !changed {
		return base, false
	}
	return markdown.Apply(base, edits), true
}

// metric maps a metadata record onto the configured sort key. Missing
// values fall back to zero so such items sink below complete ones.
func (e *Engine) metric(info *github.RepoInfo) int64 {
	switch e.opts.SortBy {
	case SortByLastCommit:
		if info.PushedAt == nil {
			return time.Time{}.Unix()
		}
		return info.PushedAt.Unix()
	default:
		return int64(info.Stars)
	}
}
