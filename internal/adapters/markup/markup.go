// Package markup turns the text of a note into HTML for the comment body.
package markup

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/a-h/templ"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"misskey-comments/pkg/log"
)

// Renderer renders the text of a note. The result must be safe to embed:
// every character of the input is either escaped or produced by markup the
// renderer controls.
type Renderer interface {
	Render(text string) string
}

// New returns the renderer for a content format, plain or markdown.
func New(format string) (Renderer, error) {
	switch format {
	case "", "plain":
		return Plain{}, nil
	case "markdown":
		return NewMarkdown(), nil
	default:
		return nil, fmt.Errorf("unknown content format %q", format)
	}
}

// Plain escapes the text and keeps its line breaks.
type Plain struct{}

func (Plain) Render(text string) string {
	escaped := templ.EscapeString(text)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	return strings.ReplaceAll(escaped, "\n", "<br>")
}

var linkifyURLRegexp = regexp.MustCompile(`^(?:http|https)://(?:[-a-zA-Z0-9@:%._+~#=]{1,256}\.[a-z]+|(?:\d{1,3}\.){3}\d{1,3})(?::\d+)?(?:[/#?][-a-zA-Z0-9@:%_+.~#$!?&/=\(\);,'\^{}\[\]]*)?`)

// Markdown renders CommonMark with autolinked URLs. Raw HTML in the text is
// omitted, not passed through.
type Markdown struct {
	md goldmark.Markdown
}

// NewMarkdown creates the markdown renderer.
func NewMarkdown() *Markdown {
	return &Markdown{md: goldmark.New(
		goldmark.WithExtensions(
			extension.NewLinkify(extension.WithLinkifyURLRegexp(linkifyURLRegexp)),
			extension.Strikethrough,
			&externalLinks{},
		),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)}
}

func (m *Markdown) Render(text string) string {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(text), &buf); err != nil {
		// goldmark only fails on writer errors; fall back to escaped text
		log.GlobalWarn("markdown render failed", "error", err)
		return Plain{}.Render(text)
	}
	return strings.TrimSpace(buf.String())
}

// externalLinks opens every link of a comment outside the hosting page.
type externalLinks struct{}

func (e *externalLinks) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithASTTransformers(
		util.Prioritized(&externalLinksTransformer{}, 100),
	))
}

type externalLinksTransformer struct{}

func (t *externalLinksTransformer) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.(type) {
		case *ast.Link, *ast.AutoLink:
			n.SetAttributeString("target", []byte("_blank"))
			n.SetAttributeString("rel", []byte("noopener noreferrer"))
		}
		return ast.WalkContinue, nil
	})
}
