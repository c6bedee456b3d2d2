package github

import (
	"net/url"
	"strings"
)

// Ref identifies a repository by owner and name.
type Ref struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// String returns the "owner/name" form.
func (r Ref) String() string { return r.Owner + "/" + r.Name }

// hosts accepted when resolving a link to a repository reference.
var refHosts = map[string]bool{
	"github.com":     true,
	"www.github.com": true,
}

// ParseRepoURL resolves a hyperlink to a repository reference. It accepts
// http(s) URLs on the hosting domain whose path has at least two segments;
// the repository name has a trailing ".git" archive suffix stripped.
// Deeper paths (issues, blobs, wikis) still resolve to the repository.
func ParseRepoURL(raw string) (Ref, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Ref{}, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Ref{}, false
	}
	if !refHosts[strings.ToLower(u.Host)] {
		return Ref{}, false
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 || segments[0] == "" || segments[1] == "" {
		return Ref{}, false
	}

	name := strings.TrimSuffix(segments[1], ".git")
	if name == "" {
		return Ref{}, false
	}
	return Ref{Owner: segments[0], Name: name}, true
}
