package enrich

import (
	"bytes"
	"net/url"
	"path"
	"strings"

	"github.com/dustin/go-humanize"

	"starmark/pkg/github"
	"starmark/pkg/markdown"
)

// Annotation markers. An existing marker directly after a link means the
// link was annotated on an earlier run and is left alone.
const (
	archivedMarker = "⚠️ Archived"
	starsMarker    = "⭐"
	issuesMarker   = "🐛"
	languageMarker = "🌐"
	pushedMarker   = "📅"
	fieldSeparator = " | "
)

// FormatAnnotation renders the status badge for a metadata record. An
// archived repository gets the archived marker alone; otherwise stars and
// open issues always appear, language and last-push date only when known.
func FormatAnnotation(info *github.RepoInfo) string {
	if info.Archived {
		return archivedMarker
	}
	parts := []string{
		starsMarker + " " + humanize.Comma(int64(info.Stars)),
		issuesMarker + " " + humanize.Comma(int64(info.OpenIssues)),
	}
	if info.Language != "" {
		parts = append(parts, languageMarker+" "+info.Language)
	}
	if info.PushedAt != nil {
		parts = append(parts, pushedMarker+" "+info.PushedAt.Format("2006-01-02"))
	}
	return strings.Join(parts, fieldSeparator)
}

// annotationEdits plans one badge insertion after every link whose URL has
// a metadata record, skipping links that already carry one.
func (e *Engine) annotationEdits(doc *markdown.Document, records map[string]*github.RepoInfo) ([]markdown.Edit, int) {
	var edits []markdown.Edit
	doc.EachLink(func(l *markdown.Link) {
		info, ok := records[l.Destination]
		if !ok {
			return
		}
		if hasAnnotation(doc.Source, l.Span.End) {
			return
		}
		edits = append(edits, markdown.Insert(l.Span.End, " "+FormatAnnotation(info)))
	})
	return edits, len(edits)
}

// hasAnnotation reports whether the source text following pos already
// begins with an annotation marker, ignoring spaces and tabs.
func hasAnnotation(src []byte, pos int) bool {
	rest := src[pos:]
	for len(rest) > 0 && (rest[0] == ' ' || rest[0] == '\t') {
		rest = rest[1:]
	}
	return bytes.HasPrefix(rest, []byte(archivedMarker)) ||
		bytes.HasPrefix(rest, []byte(starsMarker))
}

// linkPrefixEdits plans destination rewrites for relative links so the
// document survives relocation into another directory. Absolute URLs and
// in-page fragment links are left alone.
func (e *Engine) linkPrefixEdits(doc *markdown.Document) []markdown.Edit {
	if e.opts.LinkPrefix == "" {
		return nil
	}
	var edits []markdown.Edit
	doc.EachLink(func(l *markdown.Link) {
		dest := l.Destination
		if dest == "" || strings.HasPrefix(dest, "#") {
			return
		}
		u, err := url.Parse(dest)
		if err != nil || u.IsAbs() || u.Host != "" {
			return
		}
		edits = append(edits, markdown.Replace(l.DestSpan, []byte(path.Join(e.opts.LinkPrefix, dest))))
	})
	return edits
}
