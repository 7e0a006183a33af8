package web

import (
	"regexp"
	"strings"

	"misskey-comments/internal/domain"
)

// noteURLRegex matches a Misskey note URL and extracts host and note ID.
// Query parameters and fragments are ignored.
var noteURLRegex = regexp.MustCompile(
	`^https?://([^/?#\s]+)/notes/([A-Za-z0-9]+)(?:[/?#].*)?$`,
)

// ParseNoteURL extracts the instance host and note ID from a note URL.
// Returns domain.ErrInvalidURL if the URL format is invalid.
func ParseNoteURL(url string) (domain.Target, error) {
	matches := noteURLRegex.FindStringSubmatch(strings.TrimSpace(url))
	if matches == nil {
		return domain.Target{}, domain.ErrInvalidURL
	}
	target, err := domain.NewTarget(matches[1], matches[2])
	if err != nil {
		return domain.Target{}, domain.ErrInvalidURL
	}
	return target, nil
}
