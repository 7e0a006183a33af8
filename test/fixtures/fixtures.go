// Package fixtures provides Misskey API payloads and a fake instance for
// tests.
package fixtures

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
)

// RootNoteID is the id of the post the fixture thread hangs under.
const RootNoteID = "9rootnote0"

// RootNote is the /api/notes/show response for RootNoteID.
func RootNote() string {
	return `{
  "id": "9rootnote0",
  "createdAt": "2024-03-05T07:00:00.000Z",
  "replyId": null,
  "text": "New blog post is up!",
  "user": {
    "id": "u0",
    "name": "Blog Author",
    "username": "author",
    "host": null,
    "avatarUrl": "https://misskey.example/avatar/u0.webp"
  },
  "files": [],
  "repliesCount": 3,
  "renoteCount": 2,
  "reactions": {"👍": 3, "❤": 2}
}`
}

// Thread is a /api/notes/children style response: direct replies and
// deeper descendants, out of order, with one reply whose parent is missing.
func Thread() string {
	return `[
  {
    "id": "9reply0002",
    "createdAt": "2024-03-05T09:00:00.000Z",
    "replyId": "9reply0001",
    "text": "Agreed <b>completely</b>",
    "user": {"id": "u2", "name": "", "username": "bob", "host": "mastodon.example", "url": "https://mastodon.example/@bob", "avatarUrl": "https://mastodon.example/bob.png"},
    "files": [],
    "repliesCount": 0,
    "renoteCount": 0,
    "reactions": {}
  },
  {
    "id": "9reply0001",
    "createdAt": "2024-03-05T08:15:00.000Z",
    "replyId": "9rootnote0",
    "text": "Great post!\nThanks for writing it.",
    "user": {"id": "u1", "name": "Alice", "username": "alice", "host": null, "avatarUrl": "https://misskey.example/avatar/u1.webp"},
    "files": [
      {"url": "https://misskey.example/files/cat.png", "type": "image/png", "name": "cat \"pic\".png"},
      {"url": "https://misskey.example/files/clip.mp4", "type": "video/mp4", "name": "clip.mp4"},
      {"url": "https://misskey.example/files/talk.ogg", "type": "audio/ogg", "name": "talk.ogg"},
      {"url": "https://misskey.example/files/paper.pdf", "type": "application/pdf", "name": "paper.pdf"}
    ],
    "repliesCount": 1,
    "renoteCount": 0,
    "reactions": {"🎉": 1}
  },
  {
    "id": "9reply0003",
    "createdAt": "2024-03-05T10:30:00.000Z",
    "replyId": null,
    "text": "Second top-level comment",
    "user": {"id": "u3", "name": "Carol", "username": "carol", "host": null, "avatarUrl": ""},
    "files": [],
    "repliesCount": 0,
    "renoteCount": 1,
    "reactions": {}
  },
  {
    "id": "9reply0004",
    "createdAt": "2024-03-05T11:00:00.000Z",
    "replyId": "9outofwin0",
    "text": "Reply to something we did not fetch",
    "user": {"id": "u4", "name": "Dave", "username": "dave", "host": null, "avatarUrl": ""},
    "files": [],
    "repliesCount": 0,
    "renoteCount": 0,
    "reactions": {}
  }
]`
}

// ThreadIDs lists the ids of Thread in expected render order.
func ThreadIDs() []string {
	return []string{"9reply0001", "9reply0002", "9reply0003", "9reply0004"}
}

// Instance is a fake Misskey instance serving the fixture payloads.
type Instance struct {
	*httptest.Server

	ShowCalls    atomic.Int32
	RepliesCalls atomic.Int32

	// Override per-endpoint behavior; nil serves the fixtures.
	ShowHandler    http.HandlerFunc
	RepliesHandler http.HandlerFunc

	// LastBody is the last request body received, any endpoint.
	LastBody atomic.Value
}

// NewInstance starts a fake instance. Close it when done.
func NewInstance() *Instance {
	inst := &Instance{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/notes/show", func(w http.ResponseWriter, r *http.Request) {
		inst.ShowCalls.Add(1)
		inst.record(r)
		if inst.ShowHandler != nil {
			inst.ShowHandler(w, r)
			return
		}
		writeJSON(w, http.StatusOK, RootNote())
	})
	replies := func(w http.ResponseWriter, r *http.Request) {
		inst.RepliesCalls.Add(1)
		inst.record(r)
		if inst.RepliesHandler != nil {
			inst.RepliesHandler(w, r)
			return
		}
		writeJSON(w, http.StatusOK, Thread())
	}
	mux.HandleFunc("/api/notes/replies", replies)
	mux.HandleFunc("/api/notes/children", replies)
	inst.Server = httptest.NewServer(mux)
	return inst
}

// Host returns host:port of the fake instance, as used in widget config.
func (i *Instance) Host() string {
	return strings.TrimPrefix(i.URL, "http://")
}

// Body returns the last request body decoded as a JSON object.
func (i *Instance) Body() map[string]any {
	raw, _ := i.LastBody.Load().([]byte)
	var m map[string]any
	_ = json.Unmarshal(raw, &m)
	return m
}

func (i *Instance) record(r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	i.LastBody.Store(body)
}

// Respond returns a handler that writes a fixed status and body.
func Respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, status, body)
	}
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
