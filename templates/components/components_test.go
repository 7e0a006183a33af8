package components_test

import (
	"bytes"
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/google/go-cmp/cmp"

	"misskey-comments/internal/domain"
	"misskey-comments/internal/thread"
	"misskey-comments/templates/components"
	"misskey-comments/test/fixtures"
)

const host = "misskey.example"

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func fixtureTree(t *testing.T) *thread.Tree {
	t.Helper()
	var notes []domain.Note
	if err := json.Unmarshal([]byte(fixtures.Thread()), &notes); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return thread.Build(notes, fixtures.RootNoteID)
}

// countingSanitizer replaces every fragment with a marker.
type countingSanitizer struct {
	calls int
}

func (s *countingSanitizer) Sanitize(html string) string {
	s.calls++
	return "[article]"
}

// single renders note as the only item of a thread.
func single(r *components.Renderer, note domain.Note) templ.Component {
	return r.Thread(host, thread.Build([]domain.Note{note}, "root"))
}

var liIDRegex = regexp.MustCompile(`<li id="([^"]+)">`)

func TestFormatDate(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("no tzdata: %v", err)
	}
	testCases := []struct {
		name string
		raw  string
		loc  *time.Location
		want string
	}{
		{name: "utc", raw: "2024-03-05T08:15:00Z", loc: time.UTC, want: "2024-03-05 08:15"},
		{name: "millis", raw: "2024-03-05T08:15:59.999Z", loc: nil, want: "2024-03-05 08:15"},
		{name: "zone", raw: "2024-03-05T08:15:00Z", loc: berlin, want: "2024-03-05 09:15"},
		{name: "midnight padding", raw: "2024-01-02T00:05:00Z", loc: time.UTC, want: "2024-01-02 00:05"},
		{name: "unparseable", raw: "yesterday", loc: time.UTC, want: "yesterday"},
		{name: "empty", raw: "", loc: time.UTC, want: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := components.FormatDate(tc.raw, tc.loc); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestThread_ItemsInTreeOrder(t *testing.T) {
	// Arrange
	r := components.NewRenderer(components.Options{})

	// Act
	out := render(t, r.Thread(host, fixtureTree(t)))

	// Assert
	var ids []string
	for _, m := range liIDRegex.FindAllStringSubmatch(out, -1) {
		ids = append(ids, m[1])
	}
	if diff := cmp.Diff(fixtures.ThreadIDs(), ids); diff != "" {
		t.Errorf("li order mismatch (-want +got):\n%s", diff)
	}
}

func TestThread_SanitizesEachArticleInsideItsItem(t *testing.T) {
	// Arrange
	sanitizer := &countingSanitizer{}
	r := components.NewRenderer(components.Options{Sanitizer: sanitizer})

	// Act
	out := render(t, r.Thread(host, fixtureTree(t)))

	// Assert
	want := `<li id="9reply0001">[article]<ul><li id="9reply0002">[article]</li></ul></li>` +
		`<li id="9reply0003">[article]</li>` +
		`<li id="9reply0004">[article]</li>`
	if out != want {
		t.Errorf("got %s\nwant %s", out, want)
	}
	if sanitizer.calls != 4 {
		t.Errorf("sanitizer calls: got %d, want 4", sanitizer.calls)
	}
}

func TestThread_EmptyTree_RendersNoComments(t *testing.T) {
	r := components.NewRenderer(components.Options{})

	out := render(t, r.Thread(host, thread.Build(nil, "root")))

	if out != "<p>No comments found</p>" {
		t.Errorf("got %q", out)
	}
}

func TestThread_EscapesContentAndAttachments(t *testing.T) {
	// Arrange
	r := components.NewRenderer(components.Options{})
	note := domain.Note{
		ID:        "n1",
		CreatedAt: "2024-03-05T08:15:00Z",
		Text:      "<script>alert(1)</script>\nbye",
		User:      domain.User{Name: `<img onerror=x>`, Username: "eve", AvatarURL: "javascript:alert(1)"},
		Files: []domain.Attachment{
			{URL: "https://misskey.example/f/cat.png", Type: "image/png", Name: `cat "pic".png`},
			{URL: "https://misskey.example/f/doc", Type: "application/pdf", Name: "<b>doc</b>"},
		},
	}

	// Act
	out := render(t, single(r, note))

	// Assert
	for _, unwanted := range []string{"<script>", "<img onerror", "javascript:", "<b>doc"} {
		if strings.Contains(out, unwanted) {
			t.Errorf("unescaped %q in %s", unwanted, out)
		}
	}
	for _, want := range []string{
		"&lt;script&gt;alert(1)&lt;/script&gt;<br>bye",
		`alt="cat &#34;pic&#34;.png"`,
		"&lt;b&gt;doc&lt;/b&gt;",
		`<time datetime="2024-03-05T08:15:00Z">2024-03-05 08:15</time>`,
		`href="https://misskey.example/notes/n1"`,
		`href="https://misskey.example/@eve"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
}

func TestThread_AttachmentKinds(t *testing.T) {
	r := components.NewRenderer(components.Options{})
	testCases := []struct {
		name string
		file domain.Attachment
		want string
	}{
		{
			name: "image",
			file: domain.Attachment{URL: "https://a.example/i.png", Type: "image/png", Name: "i"},
			want: `<a href="https://a.example/i.png" rel="ugc nofollow"><img src="https://a.example/i.png" alt="i" loading="lazy"></a>`,
		},
		{
			name: "video",
			file: domain.Attachment{URL: "https://a.example/v.mp4", Type: "video/mp4"},
			want: `<video controls preload="none"><source src="https://a.example/v.mp4" type="video/mp4"></video>`,
		},
		{
			name: "audio",
			file: domain.Attachment{URL: "https://a.example/a.ogg", Type: "audio/ogg"},
			want: `<audio controls><source src="https://a.example/a.ogg" type="audio/ogg"></audio>`,
		},
		{
			name: "generic without name",
			file: domain.Attachment{URL: "https://a.example/f.zip", Type: "application/zip"},
			want: `<a href="https://a.example/f.zip" rel="ugc nofollow">https://a.example/f.zip</a>`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := render(t, single(r, domain.Note{ID: "n", Files: []domain.Attachment{tc.file}}))

			if !strings.Contains(out, `<div class="attachments">`+tc.want+`</div>`) {
				t.Errorf("got %s\nwant attachment %s", out, tc.want)
			}
		})
	}
}

func TestStats_CountersAndLabels(t *testing.T) {
	// Arrange
	note := domain.Note{ID: "root", RepliesCount: 0, RenoteCount: 2, Reactions: map[string]int{"👍": 3, "❤": 2}}

	// Act
	out := render(t, components.Stats(host, note.Stats()))

	// Assert
	want := `<div class="replies"><a href="https://misskey.example/notes/root" rel="ugc nofollow"><i class="fa fa-reply fa-fw"></i></a></div>` +
		`<div class="reblogs active"><a href="https://misskey.example/notes/root" rel="nofollow"><i class="fa fa-retweet fa-fw"></i>2</a></div>` +
		`<div class="favourites active"><a href="https://misskey.example/notes/root" rel="nofollow"><i class="fa fa-star fa-fw"></i>5</a></div>`
	if out != want {
		t.Errorf("got %s\nwant %s", out, want)
	}
}

func TestWidget_LazyRegions(t *testing.T) {
	// Arrange
	view := components.WidgetView{
		NoteURL:     "https://misskey.example/notes/root",
		Style:       "max-width: 40em",
		StatsSource: "/embed/misskey.example/root/stats",
		ListSource:  "/embed/misskey.example/root/comments",
		StaticURL:   "/embed/misskey.example/root/static",
	}

	// Act
	out := render(t, components.Widget(view))

	// Assert
	for _, want := range []string{
		`<div id="misskey-stats" hx-get="/embed/misskey.example/root/stats" hx-trigger="htmx:beforeRequest from:#misskey-comments-list" hx-swap="innerHTML"></div>`,
		`<div id="misskey-title">Comments</div>`,
		`<noscript><div id="error">Please enable JavaScript to view the comments powered by the Fediverse.`,
		`href="/embed/misskey.example/root/static"`,
		`<a class="link" href="https://misskey.example/notes/root" rel="ugc">post</a>`,
		`<ul id="misskey-comments-list" style="max-width: 40em" hx-get="/embed/misskey.example/root/comments" hx-trigger="intersect"`,
		`Loading comments from the Fediverse (Misskey)...</ul>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
}

func TestWidget_StaticRegions_HaveNoTriggers(t *testing.T) {
	view := components.WidgetView{
		Title:   "Discussion",
		NoteURL: "https://misskey.example/notes/root",
		Stats:   components.Stats(host, domain.Stats{NoteID: "root"}),
		List:    components.LoadError(),
	}

	out := render(t, components.Widget(view))

	if strings.Contains(out, "hx-") {
		t.Errorf("static widget must not carry triggers: %s", out)
	}
	if !strings.Contains(out, `<ul id="misskey-comments-list"><p>Error loading comments from Misskey.</p></ul>`) {
		t.Errorf("error notice missing: %s", out)
	}
	if !strings.Contains(out, `<div id="misskey-title">Discussion</div>`) {
		t.Errorf("title missing: %s", out)
	}
}

func TestCommentsList_EscapesStyle(t *testing.T) {
	out := render(t, components.CommentsList(`color:red" onclick="x`, "", nil))

	if strings.Contains(out, `onclick="x"`) {
		t.Errorf("style broke out of attribute: %s", out)
	}
}
