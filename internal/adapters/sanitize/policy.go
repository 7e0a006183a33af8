// Package sanitize cleans rendered comment markup before it reaches the
// hosting page.
package sanitize

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

var (
	classNames = regexp.MustCompile(`^[a-zA-Z0-9_\- ]+$`)
	loading    = regexp.MustCompile(`^(lazy|eager)$`)
	preload    = regexp.MustCompile(`^(none|metadata|auto)$`)
	mediaType  = regexp.MustCompile(`^[a-zA-Z0-9.+\-]+/[a-zA-Z0-9.+\-]+$`)
)

// Policy is a user-generated-content policy extended with the elements a
// comment article is built from: media players, timestamps and the widget's
// class names.
type Policy struct {
	p *bluemonday.Policy
}

// New builds the comment policy.
func New() *Policy {
	p := bluemonday.UGCPolicy()

	p.AllowElements("article", "header", "div", "span", "i", "br", "time")
	p.AllowAttrs("class").Matching(classNames).Globally()
	p.AllowAttrs("datetime").Matching(bluemonday.ISO8601).OnElements("time")

	p.AllowAttrs("loading").Matching(loading).OnElements("img")
	// alt carries attachment file names, which may hold any character;
	// attribute values are escaped on output
	p.AllowAttrs("alt").OnElements("img")

	p.AllowElements("video", "audio", "source")
	p.AllowAttrs("controls").OnElements("video", "audio")
	p.AllowAttrs("preload").Matching(preload).OnElements("video", "audio")
	p.AllowAttrs("src").OnElements("source")
	p.AllowAttrs("type").Matching(mediaType).OnElements("source")

	p.AddTargetBlankToFullyQualifiedLinks(true)

	return &Policy{p: p}
}

// Sanitize returns html with everything outside the policy removed.
func (s *Policy) Sanitize(html string) string {
	return s.p.Sanitize(html)
}
