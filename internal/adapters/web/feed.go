package web

import (
	"slices"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"misskey-comments/internal/domain"
	"misskey-comments/internal/thread"
)

// BuildFeed lists the comments of a post as a feed, newest first. Item
// descriptions are the escaped note text as rendered in the widget.
func BuildFeed(target domain.Target, title string, tree *thread.Tree, render func(string) string) *feeds.Feed {
	feed := &feeds.Feed{
		Title:       title + " on " + target.NoteURL(),
		Link:        &feeds.Link{Href: target.NoteURL()},
		Description: "Replies to " + target.NoteURL(),
		Created:     time.Now(),
	}

	var notes []domain.Note
	tree.Walk(func(n *thread.Node, _ int) {
		notes = append(notes, n.Note)
	})
	slices.SortStableFunc(notes, func(a, b domain.Note) int {
		return strings.Compare(b.CreatedAt, a.CreatedAt)
	})

	for _, note := range notes {
		created, _ := time.Parse(time.RFC3339Nano, note.CreatedAt)
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          domain.NoteURL(target.Host, note.ID),
			Title:       note.User.DisplayName() + " (" + note.User.Account() + ")",
			Link:        &feeds.Link{Href: domain.NoteURL(target.Host, note.ID)},
			Author:      &feeds.Author{Name: note.User.DisplayName()},
			Description: render(note.Text),
			Created:     created,
		})
	}
	return feed
}
