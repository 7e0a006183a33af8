package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"misskey-comments/internal/config"
	"misskey-comments/pkg/log"
)

const version = "0.1.0"

func main() {
	app := &cli.App{
		Name:    "comments",
		Usage:   "Render and check Misskey comment widgets",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				Value:   "config/comments.yaml",
				EnvVars: []string{"CONFIG_PATH"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override the configured log level",
			},
		},
		Commands: []*cli.Command{
			renderCommand(),
			probeCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// setup loads the configuration and installs a logger writing to stderr, so
// that stdout only carries command output. The returned func flushes it.
func setup(c *cli.Context) (*config.Config, func(), error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	raw := cfg.Log.Level
	if override := c.String("log-level"); override != "" {
		raw = override
	}
	level, err := log.ParseLevel(raw)
	if err != nil {
		return nil, nil, err
	}

	logger := log.New(level, os.Stderr)
	log.SetDefault(logger.With("command", c.Command.Name))
	return cfg, logger.Close, nil
}
