// Package misskey fetches notes from a Misskey instance's JSON API.
package misskey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"misskey-comments/internal/domain"
	"misskey-comments/pkg/log"
)

// Endpoint paths of the Misskey API.
const (
	showPath     = "/api/notes/show"
	repliesPath  = "/api/notes/replies"
	childrenPath = "/api/notes/children"
)

// Options configures the client.
type Options struct {
	Scheme    string        // https unless talking to a local test instance
	Timeout   time.Duration // per request
	UserAgent string
	// Descendants selects /api/notes/children, which returns the whole
	// subtree, instead of /api/notes/replies.
	Descendants bool
	// PublicOnly refuses connections to loopback, private and link-local
	// addresses, checked on the resolved IP.
	PublicOnly bool
}

// Client talks to any Misskey instance; the host is given per call.
type Client struct {
	opts Options
}

// NewClient creates a new Misskey API client.
func NewClient(opts Options) *Client {
	if opts.Scheme == "" {
		opts.Scheme = "https"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Client{opts: opts}
}

type showRequest struct {
	NoteID string `json:"noteId"`
}

type repliesRequest struct {
	NoteID string `json:"noteId"`
	Limit  int    `json:"limit"`
}

// apiError is the error body Misskey returns with non-2xx responses.
type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ShowNote fetches a single note with its counters.
func (c *Client) ShowNote(ctx context.Context, host, noteID string) (*domain.Note, error) {
	var note domain.Note
	if err := c.post(ctx, host, showPath, showRequest{NoteID: noteID}, &note); err != nil {
		return nil, err
	}
	if note.ID == "" {
		return nil, fmt.Errorf("%w: empty note in response", domain.ErrNoteNotFound)
	}
	return &note, nil
}

// Replies fetches up to limit replies of a note as a flat list.
func (c *Client) Replies(ctx context.Context, host, noteID string, limit int) ([]domain.Note, error) {
	path := repliesPath
	if c.opts.Descendants {
		path = childrenPath
	}
	var notes []domain.Note
	if err := c.post(ctx, host, path, repliesRequest{NoteID: noteID, Limit: limit}, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

func (c *Client) post(ctx context.Context, host, path string, body, out any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}

	url := c.opts.Scheme + "://" + host + path
	timeout := c.timeout(ctx)
	agent := fiber.Post(url).
		JSON(body).
		Timeout(timeout)
	if c.opts.UserAgent != "" {
		agent = agent.UserAgent(c.opts.UserAgent)
	}
	if c.opts.PublicOnly && agent.HostClient != nil {
		agent.HostClient.Dial = publicDial(timeout)
	}

	start := time.Now()
	status, data, errs := agent.Bytes()
	if len(errs) > 0 {
		err := errors.Join(errs...)
		log.GlobalWarnCtx(ctx, "misskey request failed", "url", url, "error", err)
		return fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	}
	log.GlobalDebugCtx(ctx, "misskey request", "url", url, "status", status, "latency_ms", time.Since(start).Milliseconds())

	if status < 200 || status >= 300 {
		return statusError(status, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", domain.ErrFetchFailed, path, err)
	}
	return nil
}

// publicDial resolves the host of addr and dials its first address. Any
// address outside the public internet fails the dial, so a public name
// pointing at an internal network is refused too.
func publicDial(timeout time.Duration) fasthttp.DialFunc {
	return func(addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
		if err != nil {
			return nil, err
		}
		if len(addrs) == 0 {
			return nil, fmt.Errorf("no address for %s", host)
		}
		for _, a := range addrs {
			if !domain.PublicIP(a.IP) {
				return nil, fmt.Errorf("%w: %s resolves to %s", domain.ErrPrivateHost, host, a.IP)
			}
		}
		return fasthttp.DialTimeout(net.JoinHostPort(addrs[0].IP.String(), port), timeout)
	}
}

// timeout bounds the request by the configured timeout and the context
// deadline, whichever is sooner.
func (c *Client) timeout(ctx context.Context) time.Duration {
	timeout := c.opts.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		timeout = time.Millisecond
	}
	return timeout
}

func statusError(status int, data []byte) error {
	var apiErr apiError
	_ = json.Unmarshal(data, &apiErr)
	code := apiErr.Error.Code

	switch {
	case status == http.StatusNotFound, code == "NO_SUCH_NOTE":
		return domain.ErrNoteNotFound
	case status == http.StatusTooManyRequests, code == "RATE_LIMIT_EXCEEDED":
		return fmt.Errorf("%w: instance rate limit", domain.ErrFetchFailed)
	default:
		if code != "" {
			return fmt.Errorf("%w: status %d: %s", domain.ErrFetchFailed, status, code)
		}
		return fmt.Errorf("%w: status %d", domain.ErrFetchFailed, status)
	}
}
