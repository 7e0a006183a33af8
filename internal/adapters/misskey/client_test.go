package misskey_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"misskey-comments/internal/adapters/misskey"
	"misskey-comments/internal/domain"
	"misskey-comments/test/fixtures"
)

func newClient(descendants bool) *misskey.Client {
	return misskey.NewClient(misskey.Options{
		Scheme:      "http",
		Timeout:     2 * time.Second,
		UserAgent:   "misskey-comments-test",
		Descendants: descendants,
	})
}

func TestShowNote_DecodesCounters(t *testing.T) {
	// Arrange
	inst := fixtures.NewInstance()
	defer inst.Close()
	client := newClient(false)

	// Act
	note, err := client.ShowNote(context.Background(), inst.Host(), fixtures.RootNoteID)

	// Assert
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if note.ID != fixtures.RootNoteID {
		t.Errorf("ID: got %q", note.ID)
	}
	if note.RepliesCount != 3 || note.RenoteCount != 2 {
		t.Errorf("counters: got replies=%d renotes=%d", note.RepliesCount, note.RenoteCount)
	}
	if note.TotalReactions() != 5 {
		t.Errorf("reactions: got %d, want 5", note.TotalReactions())
	}
	if got := inst.Body()["noteId"]; got != fixtures.RootNoteID {
		t.Errorf("request noteId: got %v", got)
	}
}

func TestReplies_PostsLimitToRepliesEndpoint(t *testing.T) {
	inst := fixtures.NewInstance()
	defer inst.Close()
	var path string
	inst.RepliesHandler = func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		fixtures.Respond(http.StatusOK, fixtures.Thread())(w, r)
	}

	notes, err := newClient(false).Replies(context.Background(), inst.Host(), fixtures.RootNoteID, 100)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notes) != 4 {
		t.Fatalf("got %d notes, want 4", len(notes))
	}
	if path != "/api/notes/replies" {
		t.Errorf("path: got %q", path)
	}
	if got := inst.Body()["limit"]; got != float64(100) {
		t.Errorf("limit: got %v, want 100", got)
	}
	if notes[0].User.Host != "mastodon.example" {
		t.Errorf("user host: got %q", notes[0].User.Host)
	}
	if notes[1].Files[0].Kind() != domain.AttachmentImage {
		t.Errorf("first file kind: got %v", notes[1].Files[0].Kind())
	}
}

func TestReplies_Descendants_UsesChildrenEndpoint(t *testing.T) {
	inst := fixtures.NewInstance()
	defer inst.Close()
	var path string
	inst.RepliesHandler = func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		fixtures.Respond(http.StatusOK, "[]")(w, r)
	}

	notes, err := newClient(true).Replies(context.Background(), inst.Host(), fixtures.RootNoteID, 10)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notes) != 0 {
		t.Errorf("got %d notes, want 0", len(notes))
	}
	if path != "/api/notes/children" {
		t.Errorf("path: got %q", path)
	}
}

func TestShowNote_ErrorResponses(t *testing.T) {
	testCases := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "not found status", status: http.StatusNotFound, body: `{}`, wantErr: domain.ErrNoteNotFound},
		{
			name:    "no such note code",
			status:  http.StatusBadRequest,
			body:    `{"error":{"code":"NO_SUCH_NOTE","message":"No such note."}}`,
			wantErr: domain.ErrNoteNotFound,
		},
		{
			name:    "instance rate limit",
			status:  http.StatusTooManyRequests,
			body:    `{"error":{"code":"RATE_LIMIT_EXCEEDED"}}`,
			wantErr: domain.ErrFetchFailed,
		},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, wantErr: domain.ErrFetchFailed},
		{name: "invalid json", status: http.StatusOK, body: `{"id":`, wantErr: domain.ErrFetchFailed},
		{name: "empty object", status: http.StatusOK, body: `{}`, wantErr: domain.ErrNoteNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			inst := fixtures.NewInstance()
			defer inst.Close()
			inst.ShowHandler = fixtures.Respond(tc.status, tc.body)

			_, err := newClient(false).ShowNote(context.Background(), inst.Host(), "x")

			if !errors.Is(err, tc.wantErr) {
				t.Errorf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestReplies_UnreachableHost_ReturnsFetchFailed(t *testing.T) {
	inst := fixtures.NewInstance()
	host := inst.Host()
	inst.Close()

	_, err := newClient(false).Replies(context.Background(), host, "x", 10)

	if !errors.Is(err, domain.ErrFetchFailed) {
		t.Errorf("got %v, want ErrFetchFailed", err)
	}
}

func TestReplies_CancelledContext_DoesNotCallInstance(t *testing.T) {
	inst := fixtures.NewInstance()
	defer inst.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newClient(false).Replies(ctx, inst.Host(), "x", 10)

	if !errors.Is(err, domain.ErrFetchFailed) {
		t.Errorf("got %v, want ErrFetchFailed", err)
	}
	if inst.RepliesCalls.Load() != 0 {
		t.Errorf("instance called %d times", inst.RepliesCalls.Load())
	}
}

func TestShowNote_PublicOnly_RefusesInternalAddresses(t *testing.T) {
	inst := fixtures.NewInstance()
	defer inst.Close()
	client := misskey.NewClient(misskey.Options{Scheme: "http", Timeout: 2 * time.Second, PublicOnly: true})
	_, port, _ := net.SplitHostPort(inst.Host())

	// an IP literal and a name that resolves to loopback
	for _, host := range []string{inst.Host(), "localhost:" + port} {
		_, err := client.ShowNote(context.Background(), host, fixtures.RootNoteID)

		if !errors.Is(err, domain.ErrFetchFailed) {
			t.Errorf("%s: got %v, want ErrFetchFailed", host, err)
		}
	}
	if inst.ShowCalls.Load() != 0 {
		t.Errorf("instance called %d times", inst.ShowCalls.Load())
	}
}
