package sanitize_test

import (
	"strings"
	"testing"

	"misskey-comments/internal/adapters/sanitize"
)

func TestPolicy_Sanitize_StripsScripts(t *testing.T) {
	// Arrange
	policy := sanitize.New()
	input := `<div class="content">hi<script>alert(1)</script></div>`

	// Act
	got := policy.Sanitize(input)

	// Assert
	if strings.Contains(got, "script") || strings.Contains(got, "alert") {
		t.Errorf("script survived: %s", got)
	}
	if !strings.Contains(got, `class="content"`) {
		t.Errorf("class dropped: %s", got)
	}
}

func TestPolicy_Sanitize_StripsEventHandlersAndJavascriptURLs(t *testing.T) {
	policy := sanitize.New()
	input := `<img src="https://a.example/x.png" onerror="alert(1)"><a href="javascript:alert(1)">x</a>`

	got := policy.Sanitize(input)

	if strings.Contains(got, "onerror") || strings.Contains(got, "javascript:") {
		t.Errorf("unsafe attribute survived: %s", got)
	}
}

func TestPolicy_Sanitize_KeepsCommentMarkup(t *testing.T) {
	policy := sanitize.New()
	testCases := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "video",
			input: `<video controls preload="none"><source src="https://a.example/v.mp4" type="video/mp4"></video>`,
			want:  []string{"<video", `preload="none"`, `src="https://a.example/v.mp4"`, `type="video/mp4"`},
		},
		{
			name:  "audio",
			input: `<audio controls><source src="https://a.example/a.ogg" type="audio/ogg"></audio>`,
			want:  []string{"<audio", "<source", `type="audio/ogg"`},
		},
		{
			name:  "time",
			input: `<time datetime="2024-03-05T08:15:00.000Z">2024-03-05 08:15</time>`,
			want:  []string{`datetime="2024-03-05T08:15:00.000Z"`, "2024-03-05 08:15"},
		},
		{
			name:  "lazy image",
			input: `<img src="https://a.example/x.png" alt="cat" loading="lazy">`,
			want:  []string{`loading="lazy"`, `alt="cat"`},
		},
		{
			name:  "icon",
			input: `<i class="fa fa-reply fa-fw"></i>`,
			want:  []string{`<i class="fa fa-reply fa-fw">`},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := policy.Sanitize(tc.input)

			for _, w := range tc.want {
				if !strings.Contains(got, w) {
					t.Errorf("missing %q in %s", w, got)
				}
			}
		})
	}
}

func TestPolicy_Sanitize_RejectsBadAttributeValues(t *testing.T) {
	policy := sanitize.New()

	got := policy.Sanitize(`<img src="https://a.example/x.png" loading="javascript"><source type="text/html; charset=x">`)

	if strings.Contains(got, `loading=`) {
		t.Errorf("loading value not validated: %s", got)
	}
	if strings.Contains(got, "charset") {
		t.Errorf("type value not validated: %s", got)
	}
}
