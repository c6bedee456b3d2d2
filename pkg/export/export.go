// Package export defines the structured JSON representation of an enriched
// document and writes it for external consumption.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// Metadata describes the document a JSON export was derived from.
type Metadata struct {
	Title       string    `json:"title"`
	GeneratedAt time.Time `json:"generated_at"`
	Source      string    `json:"source,omitempty"`
}

// Document is the full structured export: document metadata plus the
// titled sections derived from headings and their following lists.
type Document struct {
	Metadata Metadata  `json:"metadata"`
	Sections []Section `json:"items"`
}

// Section is a titled slice of the document with its description text and
// ordered item tree. Item order always equals source document order.
type Section struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Items       []Item `json:"items"`
}

// Item is a single list entry, possibly with nested children.
type Item struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Children    []Item    `json:"items,omitempty"`
	Repo        *RepoInfo `json:"repo_info,omitempty"`
}

// RepoInfo carries the fetched repository facts attached to an item.
type RepoInfo struct {
	Owner      string     `json:"owner"`
	Name       string     `json:"name"`
	Stars      int        `json:"stars"`
	Language   string     `json:"language,omitempty"`
	Archived   bool       `json:"archived"`
	LastPushed *time.Time `json:"last_pushed,omitempty"`
}

// Write encodes a document as indented JSON and writes it to w.
func Write(doc *Document, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// Export writes a document to a JSON file at path.
// This is a convenience wrapper around [Write] for file-based output.
func Export(doc *Document, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return Write(doc, f)
}
