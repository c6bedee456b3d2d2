package enrich

import (
	"testing"
	"time"

	"starmark/pkg/github"
	"starmark/pkg/markdown"
)

func TestBuildExport(t *testing.T) {
	src := []byte(`# Awesome Data Tools

Opening words.

## Databases

Fast ones first? No: source order.

- [rocks](https://github.com/fb/rocks) - embedded store
- [bolt](https://github.com/etc/bolt) - pure Go store
  - [fork](https://github.com/alt/fork) - maintained fork

[back to top](#awesome-data-tools)

## Sparse

Only one real repository here.

- [single](https://github.com/o/single) - lonely
- [blog](https://example.com/post) - not a repo

## Queues

- [kafka](https://github.com/ap/kafka) - log
- [nats](https://github.com/na/nats) - messaging
`)
	pushed := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
	records := map[string]*github.RepoInfo{
		"https://github.com/fb/rocks": {Stars: 20000, Language: "C++", PushedAt: timePtr(pushed)},
		"https://github.com/etc/bolt": {Stars: 9000, Language: "Go"},
		"https://github.com/ap/kafka": {Stars: 30000},
		"https://github.com/na/nats":  {Stars: 15000},
	}

	e := testEngine(t, Options{Source: "README.md", Fetcher: newFakeFetcher(), Now: func() time.Time {
		return time.Date(2026, 8, 23, 9, 0, 0, 0, time.UTC)
	}})
	out := e.buildExport(markdown.Parse(src), records)

	if out.Metadata.Title != "Awesome Data Tools" {
		t.Errorf("title = %q", out.Metadata.Title)
	}
	if out.Metadata.Source != "README.md" {
		t.Errorf("source = %q", out.Metadata.Source)
	}

	if len(out.Sections) != 2 {
		t.Fatalf("sections = %d, want 2 (Sparse dropped)", len(out.Sections))
	}

	db := out.Sections[0]
	if db.Title != "Databases" {
		t.Errorf("section 0 title = %q", db.Title)
	}
	if db.Description != "Fast ones first? No: source order." {
		t.Errorf("description = %q", db.Description)
	}
	if len(db.Items) != 2 {
		t.Fatalf("database items = %d, want 2", len(db.Items))
	}
	if db.Items[0].Title != "rocks" || db.Items[1].Title != "bolt" {
		t.Errorf("item order = %q, %q; want source order", db.Items[0].Title, db.Items[1].Title)
	}
	if db.Items[0].Description != "embedded store" {
		t.Errorf("item description = %q", db.Items[0].Description)
	}

	repo := db.Items[0].Repo
	if repo == nil || repo.Owner != "fb" || repo.Name != "rocks" || repo.Stars != 20000 {
		t.Errorf("repo info = %+v", repo)
	}
	if repo.LastPushed == nil || !repo.LastPushed.Equal(pushed) {
		t.Errorf("last pushed = %v", repo.LastPushed)
	}

	children := db.Items[1].Children
	if len(children) != 1 || children[0].Title != "fork" {
		t.Errorf("children = %+v", children)
	}
	// The fork was never fetched, so it carries no repo info.
	if children[0].Repo != nil {
		t.Errorf("child repo = %+v, want nil", children[0].Repo)
	}

	if out.Sections[1].Title != "Queues" {
		t.Errorf("section 1 = %q", out.Sections[1].Title)
	}
}

func TestBuildExportSkipsBoilerplate(t *testing.T) {
	src := []byte(`# List

## Section

Real description.

[Back to top](#list)

- [a](https://github.com/o/a)
- [b](https://github.com/o/b)
`)
	e := testEngine(t, Options{Fetcher: newFakeFetcher()})
	out := e.buildExport(markdown.Parse(src), nil)

	if len(out.Sections) != 1 {
		t.Fatalf("sections = %d, want 1", len(out.Sections))
	}
	if got := out.Sections[0].Description; got != "Real description." {
		t.Errorf("description = %q, want boilerplate dropped", got)
	}
}

func TestBuildExportItemWithoutLink(t *testing.T) {
	src := []byte(`# List

## Section

- [a](https://github.com/o/a) - real
- [b](https://github.com/o/b) - real
- just plain text
`)
	e := testEngine(t, Options{Fetcher: newFakeFetcher()})
	out := e.buildExport(markdown.Parse(src), nil)

	items := out.Sections[0].Items
	if len(items) != 3 {
		t.Fatalf("items = %d, want 3", len(items))
	}
	if items[2].Title != "just plain text" || items[2].Description != "" {
		t.Errorf("linkless item = %+v", items[2])
	}
}
