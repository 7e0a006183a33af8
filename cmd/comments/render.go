package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"misskey-comments/internal/adapters/web"
	"misskey-comments/internal/app"
	"misskey-comments/internal/config"
	"misskey-comments/internal/domain"
	"misskey-comments/templates/pages"
)

func renderCommand() *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "Fetch the comments of a post and print the widget HTML",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Instance host, used with --note instead of NOTE_URL",
			},
			&cli.StringFlag{
				Name:  "note",
				Usage: "Note id on --host",
			},
			&cli.StringFlag{
				Name:  "style",
				Usage: "Inline style of the comment list",
			},
			&cli.BoolFlag{
				Name:  "page",
				Usage: "Wrap the widget in a standalone HTML page",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Write to `FILE` instead of stdout",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Overall time allowed for the fetches",
				Value: 30 * time.Second,
			},
		},
		ArgsUsage: "[NOTE_URL]",
		Action:    runRender,
	}
}

func runRender(c *cli.Context) error {
	cfg, flush, err := setup(c)
	if err != nil {
		return err
	}
	defer flush()

	target, err := renderTarget(c, cfg)
	if err != nil {
		return err
	}

	application, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	w := application.Widget(target, c.String("style"))
	w.OnVisible(ctx)
	if !w.Loaded() {
		// the widget still renders, with the error notice in its list
		fmt.Fprintln(os.Stderr, "Warning: comments could not be loaded")
	}

	var buf bytes.Buffer
	component := w.Component()
	if c.Bool("page") {
		component = pages.Layout(cfg.Render.Title, false, component)
	}
	if err := component.Render(ctx, &buf); err != nil {
		return fmt.Errorf("render widget: %w", err)
	}

	out := io.Writer(os.Stdout)
	if path := c.String("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	_, err = buf.WriteTo(out)
	return err
}

// renderTarget resolves the post from NOTE_URL or from --host and --note.
func renderTarget(c *cli.Context, cfg *config.Config) (domain.Target, error) {
	var (
		target domain.Target
		err    error
	)
	switch {
	case c.NArg() > 0:
		target, err = web.ParseNoteURL(c.Args().First())
	case c.String("host") != "" && c.String("note") != "":
		target, err = domain.NewTarget(c.String("host"), c.String("note"))
	default:
		return domain.Target{}, fmt.Errorf("missing required argument: NOTE_URL or --host and --note")
	}
	if err != nil {
		return domain.Target{}, err
	}
	if !cfg.HostAllowed(target.Host) {
		return domain.Target{}, fmt.Errorf("%w: %s", domain.ErrHostNotAllowed, target.Host)
	}
	return target, nil
}
