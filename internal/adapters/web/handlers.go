package web

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/a-h/templ"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"misskey-comments/internal/domain"
	"misskey-comments/internal/widget"
	"misskey-comments/pkg/log"
	"misskey-comments/templates/components"
	"misskey-comments/templates/pages"
)

// fetchTimeout bounds the instance requests made for one HTTP request.
const fetchTimeout = 30 * time.Second

// Options configures the handlers.
type Options struct {
	Title string
	// HostAllowed restricts the instances that may be fetched. Nil allows
	// any host.
	HostAllowed func(host string) bool
	// Content renders note text for feed items.
	Content components.ContentRenderer
}

// Handlers contains the HTTP handlers for the web application.
type Handlers struct {
	stats    widget.StatsLoader
	thread   widget.ThreadLoader
	renderer *components.Renderer
	opts     Options
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(stats widget.StatsLoader, thread widget.ThreadLoader, renderer *components.Renderer, opts Options) *Handlers {
	if opts.Title == "" {
		opts.Title = "Comments"
	}
	if opts.HostAllowed == nil {
		opts.HostAllowed = func(string) bool { return true }
	}
	return &Handlers{stats: stats, thread: thread, renderer: renderer, opts: opts}
}

// render is a helper to render templ components.
func render(c *fiber.Ctx, component templ.Component) error {
	c.Set("Content-Type", "text/html; charset=utf-8")
	return adaptor.HTTPHandler(templ.Handler(component))(c)
}

func isHTMX(c *fiber.Ctx) bool {
	return c.Get("HX-Request") == "true"
}

// Home renders the landing page with the note URL form.
func (h *Handlers) Home(c *fiber.Ctx) error {
	return render(c, pages.Home())
}

// Resolve parses a note URL from the form and redirects to its widget.
func (h *Handlers) Resolve(c *fiber.Ctx) error {
	raw := c.FormValue("url")

	target, err := ParseNoteURL(raw)
	if err == nil && !h.opts.HostAllowed(target.Host) {
		err = domain.ErrHostNotAllowed
	}
	if err != nil {
		log.GlobalWarnCtx(c.UserContext(), "invalid note URL", "url", raw, "error", err)
		if isHTMX(c) {
			// htmx only swaps 2xx responses
			return render(c, pages.ErrorMessage(friendlyError(err)))
		}
		return h.renderError(c, fiber.StatusBadRequest, err)
	}

	location := embedPath(target)
	if isHTMX(c) {
		c.Set("HX-Redirect", location)
		return c.SendStatus(fiber.StatusOK)
	}
	return c.Redirect(location, fiber.StatusSeeOther)
}

// Embed renders the widget shell. Stats and comments load once the
// regions scroll into view.
func (h *Handlers) Embed(c *fiber.Ctx) error {
	target, err := h.target(c)
	if err != nil {
		return h.renderError(c, statusFor(err), err)
	}

	style := c.Query("style")
	base := embedPath(target)
	listSource := base + "/comments"
	if style != "" {
		listSource += "?" + url.Values{"style": {style}}.Encode()
	}

	return render(c, pages.Embed(h.opts.Title, components.WidgetView{
		Title:       h.opts.Title,
		NoteURL:     target.NoteURL(),
		Style:       style,
		StatsSource: base + "/stats",
		ListSource:  listSource,
		StaticURL:   base + "/static",
	}))
}

// Stats renders the stats line fragment. On failure nothing is swapped, so
// the region keeps what it showed before, empty on the first attempt.
func (h *Handlers) Stats(c *fiber.Ctx) error {
	target, err := h.target(c)
	if err != nil {
		return c.SendStatus(statusFor(err))
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), fetchTimeout)
	defer cancel()

	stats, err := h.stats.Execute(ctx, target)
	if err != nil {
		log.GlobalWarnCtx(ctx, "loading stats failed", "error", err)
		c.Set("HX-Reswap", "none")
		return render(c, templ.NopComponent)
	}
	return render(c, components.Stats(target.Host, stats))
}

// Comments renders the comment list fragment. On success the whole list
// container is replaced by one without a trigger, which ends loading. On
// failure only the error notice is swapped in and the container stays armed
// for the next time it scrolls into view.
func (h *Handlers) Comments(c *fiber.Ctx) error {
	target, err := h.target(c)
	if err != nil {
		return c.SendStatus(statusFor(err))
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), fetchTimeout)
	defer cancel()

	tree, err := h.thread.Execute(ctx, target)
	if err != nil {
		log.GlobalErrorCtx(ctx, "loading comments failed", "error", err)
		return render(c, components.LoadError())
	}

	log.GlobalDebugCtx(ctx, "comments loaded", "count", tree.Len())
	c.Set("HX-Reswap", "outerHTML")
	return render(c, components.CommentsList(c.Query("style"), "", h.renderer.Thread(target.Host, tree)))
}

// Static renders the whole widget server side, for readers without
// JavaScript.
func (h *Handlers) Static(c *fiber.Ctx) error {
	target, err := h.target(c)
	if err != nil {
		return h.renderError(c, statusFor(err), err)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), fetchTimeout)
	defer cancel()

	w := widget.New(widget.Config{Target: target, Title: h.opts.Title, Style: c.Query("style")},
		h.stats, h.thread, h.renderer)
	w.OnVisible(ctx)
	return render(c, pages.Layout(h.opts.Title, false, w.Component()))
}

// Feed renders the comments of a post as an RSS feed.
func (h *Handlers) Feed(c *fiber.Ctx) error {
	target, err := h.target(c)
	if err != nil {
		return c.Status(statusFor(err)).SendString(friendlyError(err))
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), fetchTimeout)
	defer cancel()

	tree, err := h.thread.Execute(ctx, target)
	if err != nil {
		log.GlobalErrorCtx(ctx, "feed: loading comments failed", "error", err)
		return c.Status(statusFor(err)).SendString(friendlyError(err))
	}

	render := func(text string) string { return text }
	if h.opts.Content != nil {
		render = h.opts.Content.Render
	}
	rss, err := BuildFeed(target, h.opts.Title, tree, render).ToRss()
	if err != nil {
		return err
	}
	c.Set("Content-Type", "application/rss+xml; charset=utf-8")
	return c.SendString(rss)
}

// Health reports that the process is serving.
func (h *Handlers) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// target validates the host and note id route parameters.
func (h *Handlers) target(c *fiber.Ctx) (domain.Target, error) {
	target, err := domain.NewTarget(c.Params("host"), c.Params("noteId"))
	if err != nil {
		return domain.Target{}, err
	}
	// entries logged for the rest of the request carry the post
	c.SetUserContext(log.WithFields(c.UserContext(), "host", target.Host, "note_id", target.NoteID))
	if !h.opts.HostAllowed(target.Host) {
		log.GlobalWarnCtx(c.UserContext(), "instance not allowed")
		return domain.Target{}, domain.ErrHostNotAllowed
	}
	return target, nil
}

func embedPath(target domain.Target) string {
	return "/embed/" + target.Host + "/" + target.NoteID
}

// renderError renders a full-page error.
func (h *Handlers) renderError(c *fiber.Ctx, status int, err error) error {
	c.Status(status)
	return render(c, pages.Error(friendlyError(err)))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidHost), errors.Is(err, domain.ErrInvalidNoteID), errors.Is(err, domain.ErrInvalidURL):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrHostNotAllowed):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrNoteNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrRateLimited):
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusBadGateway
	}
}

// friendlyError returns a neutral, non-blaming error message.
func friendlyError(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoteNotFound):
		return "This post couldn't be found. It might have been deleted."
	case errors.Is(err, domain.ErrInvalidURL):
		return "That doesn't look like a note URL. Try a link like https://misskey.io/notes/9abcdefghi"
	case errors.Is(err, domain.ErrInvalidHost), errors.Is(err, domain.ErrInvalidNoteID):
		return "That doesn't look like a Misskey post."
	case errors.Is(err, domain.ErrHostNotAllowed):
		return "Comments from this instance can't be shown here."
	case errors.Is(err, domain.ErrRateLimited):
		return "Too many requests. Please wait a moment and try again."
	default:
		return "Unable to load comments right now. Please try again in a moment."
	}
}
