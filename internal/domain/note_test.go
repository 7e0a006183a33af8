package domain_test

import (
	"testing"

	"misskey-comments/internal/domain"
)

func TestNote_ParentRef_EmptyReplyID_ResolvesToRoot(t *testing.T) {
	// Arrange
	note := domain.Note{ID: "a"}

	// Act
	parent := note.ParentRef("root")

	// Assert
	if parent != "root" {
		t.Errorf("got %v, want root", parent)
	}
}

func TestNote_ParentRef_ReplyID_IsKept(t *testing.T) {
	note := domain.Note{ID: "b", ReplyID: "a"}

	if parent := note.ParentRef("root"); parent != "a" {
		t.Errorf("got %v, want a", parent)
	}
}

func TestUser_DisplayName_FallsBackToUsername(t *testing.T) {
	testCases := []struct {
		name string
		user domain.User
		want string
	}{
		{name: "with name", user: domain.User{Name: "Alice", Username: "alice"}, want: "Alice"},
		{name: "empty name", user: domain.User{Username: "alice"}, want: "alice"},
		{name: "blank name", user: domain.User{Name: "  ", Username: "alice"}, want: "alice"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.user.DisplayName(); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestUser_Account_IncludesRemoteHost(t *testing.T) {
	local := domain.User{Username: "alice"}
	remote := domain.User{Username: "bob", Host: "mastodon.social"}

	if got := local.Account(); got != "@alice" {
		t.Errorf("local: got %v, want @alice", got)
	}
	if got := remote.Account(); got != "@bob@mastodon.social" {
		t.Errorf("remote: got %v, want @bob@mastodon.social", got)
	}
}

func TestUser_ProfileURL(t *testing.T) {
	local := domain.User{Username: "alice"}
	remote := domain.User{Username: "bob", Host: "mastodon.social", URL: "https://mastodon.social/@bob"}

	if got := local.ProfileURL("misskey.io"); got != "https://misskey.io/@alice" {
		t.Errorf("local: got %v", got)
	}
	if got := remote.ProfileURL("misskey.io"); got != "https://mastodon.social/@bob" {
		t.Errorf("remote: got %v", got)
	}
}

func TestAttachment_Kind_ByMediaTypePrefix(t *testing.T) {
	testCases := []struct {
		mediaType string
		want      domain.AttachmentKind
	}{
		{"image/png", domain.AttachmentImage},
		{"IMAGE/webp", domain.AttachmentImage},
		{"video/mp4", domain.AttachmentVideo},
		{"audio/ogg", domain.AttachmentAudio},
		{"application/pdf", domain.AttachmentGeneric},
		{"", domain.AttachmentGeneric},
		{"imagefoo", domain.AttachmentGeneric},
	}

	for _, tc := range testCases {
		t.Run(tc.mediaType, func(t *testing.T) {
			got := domain.Attachment{Type: tc.mediaType}.Kind()
			if got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAttachment_Label_FallsBackToURL(t *testing.T) {
	named := domain.Attachment{URL: "https://x/f.pdf", Name: "report.pdf"}
	unnamed := domain.Attachment{URL: "https://x/f.pdf"}

	if named.Label() != "report.pdf" {
		t.Errorf("named: got %v", named.Label())
	}
	if unnamed.Label() != "https://x/f.pdf" {
		t.Errorf("unnamed: got %v", unnamed.Label())
	}
}
