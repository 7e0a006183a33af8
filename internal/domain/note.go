// Package domain contains the core entities of a comment thread.
package domain

import "strings"

// Note is a single post or comment fetched from a Misskey instance.
type Note struct {
	ID           string         `json:"id"`
	CreatedAt    string         `json:"createdAt"` // ISO-8601, compared lexicographically
	ReplyID      string         `json:"replyId"`   // empty means a reply to the root post
	Text         string         `json:"text"`
	User         User           `json:"user"`
	Files        []Attachment   `json:"files"`
	RepliesCount int            `json:"repliesCount"`
	RenoteCount  int            `json:"renoteCount"`
	Reactions    map[string]int `json:"reactions"`
}

// ParentRef returns the id this note replies to, resolving an empty
// reply reference to rootID.
func (n Note) ParentRef(rootID string) string {
	if n.ReplyID == "" {
		return rootID
	}
	return n.ReplyID
}

// User is the author of a note.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	Host      string `json:"host"` // empty for users local to the instance
	URL       string `json:"url"`
	AvatarURL string `json:"avatarUrl"`
}

// DisplayName returns the user's name, falling back to the username.
func (u User) DisplayName() string {
	if strings.TrimSpace(u.Name) != "" {
		return u.Name
	}
	return u.Username
}

// Account returns the fediverse handle: @username or @username@host.
func (u User) Account() string {
	if u.Host == "" {
		return "@" + u.Username
	}
	return "@" + u.Username + "@" + u.Host
}

// ProfileURL returns the user's profile link. Remote users carry their own
// URL; local users get one built from the instance host.
func (u User) ProfileURL(instanceHost string) string {
	if u.URL != "" {
		return u.URL
	}
	return "https://" + instanceHost + "/" + u.Account()
}

// Attachment is a file attached to a note.
type Attachment struct {
	URL  string `json:"url"`
	Type string `json:"type"` // declared media type, e.g. image/png
	Name string `json:"name"`
}

// AttachmentKind is the rendering variant of an attachment.
type AttachmentKind int

const (
	AttachmentGeneric AttachmentKind = iota
	AttachmentImage
	AttachmentVideo
	AttachmentAudio
)

func (k AttachmentKind) String() string {
	switch k {
	case AttachmentImage:
		return "image"
	case AttachmentVideo:
		return "video"
	case AttachmentAudio:
		return "audio"
	default:
		return "generic"
	}
}

// Kind classifies the attachment by the prefix of its declared media type.
func (a Attachment) Kind() AttachmentKind {
	mediaType := strings.ToLower(strings.TrimSpace(a.Type))
	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return AttachmentImage
	case strings.HasPrefix(mediaType, "video/"):
		return AttachmentVideo
	case strings.HasPrefix(mediaType, "audio/"):
		return AttachmentAudio
	default:
		return AttachmentGeneric
	}
}

// Label is the human readable description of the attachment.
func (a Attachment) Label() string {
	if a.Name != "" {
		return a.Name
	}
	return a.URL
}
