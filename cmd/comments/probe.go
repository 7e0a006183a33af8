package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"misskey-comments/internal/adapters/browser"
)

func probeCommand() *cli.Command {
	return &cli.Command{
		Name:  "probe",
		Usage: "Open a page embedding the widget in headless Chrome and check that the comments load",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "chrome-path",
				Usage: "Chrome or Chromium binary, overrides browser.chrome_path",
			},
			&cli.StringFlag{
				Name:  "remote",
				Usage: "DevTools websocket `URL` of a running browser",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the list once it is in view",
				Value: 15 * time.Second,
			},
			&cli.IntFlag{
				Name:  "min-comments",
				Usage: "Fail unless at least this many comments are shown",
			},
		},
		ArgsUsage: "PAGE_URL...",
		Action:    runProbe,
	}
}

func runProbe(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("missing required argument: PAGE_URL")
	}

	cfg, flush, err := setup(c)
	if err != nil {
		return err
	}
	defer flush()

	chromePath := cfg.Browser.ChromePath
	if override := c.String("chrome-path"); override != "" {
		chromePath = override
	}
	pool, err := browser.NewPool(browser.Options{ChromePath: chromePath, RemoteURL: c.String("remote")})
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer pool.Close()

	prober := browser.NewProber(pool, c.Duration("timeout"))
	minComments := c.Int("min-comments")

	failed := 0
	for _, pageURL := range c.Args().Slice() {
		ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout")+30*time.Second)
		result, err := prober.Probe(ctx, pageURL)
		cancel()
		if err != nil {
			fmt.Printf("FAIL %s: %v\n", pageURL, err)
			failed++
			continue
		}

		status := "OK"
		if !result.Loaded() || result.Comments < minComments {
			status = "FAIL"
			failed++
		}
		fmt.Printf("%s %s outcome=%s comments=%d stats=%t elapsed=%s\n",
			status, pageURL, result.Outcome, result.Comments, result.Stats, result.Elapsed.Round(time.Millisecond))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d pages failed", failed, c.NArg())
	}
	return nil
}
