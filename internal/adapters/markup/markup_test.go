package markup_test

import (
	"strings"
	"testing"

	"misskey-comments/internal/adapters/markup"
)

func TestPlain_Render_EscapesAndKeepsLineBreaks(t *testing.T) {
	// Arrange
	input := "Great post!\n<b>bold</b> & \"quoted\""

	// Act
	got := markup.Plain{}.Render(input)

	// Assert
	want := "Great post!<br>&lt;b&gt;bold&lt;/b&gt; &amp; &#34;quoted&#34;"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPlain_Render_CRLF(t *testing.T) {
	got := markup.Plain{}.Render("a\r\nb")

	if got != "a<br>b" {
		t.Errorf("got %q", got)
	}
}

func TestMarkdown_Render_Emphasis(t *testing.T) {
	got := markup.NewMarkdown().Render("hello **world**")

	if got != "<p>hello <strong>world</strong></p>" {
		t.Errorf("got %q", got)
	}
}

func TestMarkdown_Render_OmitsRawHTML(t *testing.T) {
	got := markup.NewMarkdown().Render("hi <script>alert(1)</script>")

	if strings.Contains(got, "<script>") {
		t.Errorf("raw HTML passed through: %s", got)
	}
}

func TestMarkdown_Render_AutolinksOpenOutside(t *testing.T) {
	got := markup.NewMarkdown().Render("see https://misskey.io/notes/9abc")

	for _, want := range []string{`href="https://misskey.io/notes/9abc"`, `target="_blank"`, `rel="noopener noreferrer"`} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in %s", want, got)
		}
	}
}

func TestMarkdown_Render_HardWraps(t *testing.T) {
	got := markup.NewMarkdown().Render("line one\nline two")

	if !strings.Contains(got, "<br>") {
		t.Errorf("expected hard wrap in %s", got)
	}
}

func TestNew_Formats(t *testing.T) {
	testCases := []struct {
		format  string
		wantErr bool
	}{
		{format: "", wantErr: false},
		{format: "plain", wantErr: false},
		{format: "markdown", wantErr: false},
		{format: "mfm", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.format, func(t *testing.T) {
			_, err := markup.New(tc.format)

			if (err != nil) != tc.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
