package enrich

import (
	"strings"

	"starmark/pkg/export"
	"starmark/pkg/github"
	"starmark/pkg/markdown"
)

// buildExport derives the structured section tree from the parsed document.
// The first level-1 heading supplies the title; every deeper heading opens a
// candidate section whose description accumulates from the paragraphs before
// its first list. That list decides the section's fate: with enough
// reference-bearing items the section is emitted, otherwise it is dropped.
func (e *Engine) buildExport(doc *markdown.Document, records map[string]*github.RepoInfo) *export.Document {
	out := &export.Document{
		Metadata: export.Metadata{
			GeneratedAt: e.opts.Now().UTC(),
			Source:      e.opts.Source,
		},
		Sections: []export.Section{},
	}

	var pending *export.Section
	for _, b := range doc.Blocks {
		switch b.Kind {
		case markdown.KindHeading:
			if b.Level == 1 {
				if out.Metadata.Title == "" {
					out.Metadata.Title = b.Text
				}
				pending = nil
				continue
			}
			pending = &export.Section{Title: b.Text}

		case markdown.KindParagraph:
			if pending == nil || isNavigationText(b.Text) {
				continue
			}
			if pending.Description != "" {
				pending.Description += "\n"
			}
			pending.Description += b.Text

		case markdown.KindList:
			if pending == nil {
				continue
			}
			if e.countReferences(b) >= e.opts.MinReferences {
				pending.Items = e.buildItems(b, records)
				out.Sections = append(out.Sections, *pending)
			}
			pending = nil
		}
	}
	return out
}

// isNavigationText filters boilerplate paragraphs such as "back to top"
// anchors out of section descriptions.
func isNavigationText(text string) bool {
	return strings.Contains(strings.ToLower(text), "back to top")
}

// countReferences counts the list's direct items carrying a resolvable
// repository reference.
func (e *Engine) countReferences(list *markdown.Block) int {
	n := 0
	for _, it := range list.Items {
		if firstRef(it) != nil {
			n++
		}
	}
	return n
}

// firstRef returns the item's first link that resolves to a repository
// reference, or nil. Items often lead with badge or anchor links, so this
// scans past links that don't parse.
func firstRef(it *markdown.Item) *markdown.Link {
	for i := range it.Links {
		if _, ok := github.ParseRepoURL(it.Links[i].Destination); ok {
			return &it.Links[i]
		}
	}
	return nil
}

// buildItems converts list items to export items, in source order. Children
// come from nested lists regardless of whether those would qualify for
// sorting on their own.
func (e *Engine) buildItems(list *markdown.Block, records map[string]*github.RepoInfo) []export.Item {
	items := make([]export.Item, 0, len(list.Items))
	for _, it := range list.Items {
		var item export.Item
		if l := it.FirstLink(); l != nil {
			item.Title = l.Text
			item.Description = itemDescription(it.Text, l.Text)
		} else {
			item.Title = it.Text
		}
		if l := firstRef(it); l != nil {
			if info := records[l.Destination]; info != nil {
				ref, _ := github.ParseRepoURL(l.Destination)
				item.Repo = &export.RepoInfo{
					Owner:      ref.Owner,
					Name:       ref.Name,
					Stars:      info.Stars,
					Language:   info.Language,
					Archived:   info.Archived,
					LastPushed: info.PushedAt,
				}
			}
		}
		for _, sub := range it.Sublists {
			item.Children = append(item.Children, e.buildItems(sub, records)...)
		}
		items = append(items, item)
	}
	return items
}

// itemDescription strips the leading title and list-style separators from
// the item's inline text, leaving the free-form description.
func itemDescription(text, title string) string {
	rest := strings.TrimSpace(strings.TrimPrefix(text, title))
	rest = strings.TrimLeft(rest, "-–—:· ")
	return strings.TrimSpace(rest)
}
