package domain

import (
	"regexp"
	"strings"
)

var (
	// hostname with optional port; no scheme, path or credentials
	hostRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?(\.[a-z0-9]([a-z0-9-]*[a-z0-9])?)*(:\d{1,5})?$`)
	// Misskey ids are short alphanumeric strings (aid, aidx, meid, ulid)
	noteIDRegex = regexp.MustCompile(`^[A-Za-z0-9]{1,32}$`)
)

// Target identifies the post whose comments are shown.
type Target struct {
	Host   string
	NoteID string
}

// NewTarget validates and normalizes a host and note id.
func NewTarget(host, noteID string) (Target, error) {
	host = strings.ToLower(strings.TrimSpace(host))
	noteID = strings.TrimSpace(noteID)
	if !hostRegex.MatchString(host) {
		return Target{}, ErrInvalidHost
	}
	if !noteIDRegex.MatchString(noteID) {
		return Target{}, ErrInvalidNoteID
	}
	return Target{Host: host, NoteID: noteID}, nil
}

// NoteURL is the public page of the post on its instance.
func (t Target) NoteURL() string {
	return NoteURL(t.Host, t.NoteID)
}

// NoteURL builds the public page URL of a note.
func NoteURL(host, noteID string) string {
	return "https://" + host + "/notes/" + noteID
}
