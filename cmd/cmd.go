// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// syncCommand handles tracked and untracked sync operations
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Trigger and inspect sync jobs",
		Commands: []*cli.Command{
			{
				Name:  "check",
				Usage: "Run the trigger policy and start a sync when it is due",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "trigger",
						Usage: "Why the check runs: page-visit, scheduled or manual",
						Value: "page-visit",
					},
					&cli.BoolFlag{
						Name:  "detach",
						Usage: "Return after the launch instead of polling until the job finishes",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SyncCheck,
			},
			{
				Name:  "trigger",
				Usage: "Start a sync now, regardless of policy",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "full",
						Usage: "Request a full background sync",
					},
					&cli.BoolFlag{
						Name:  "detach",
						Usage: "Return after the launch instead of polling until the job finishes",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SyncTrigger,
			},
			{
				Name:  "request",
				Usage: "Ask the executor for an untracked sync of a recent window",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "kind",
						Usage: "Window to sync: today, week or month",
						Value: "today",
					},
				},
				Action: r.SyncRequest,
			},
			{
				Name:  "latest",
				Usage: "Show the newest email the executor knows about",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SyncLatest,
			},
			{
				Name:  "history",
				Usage: "List recorded sync runs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show",
						Value: 20,
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, csv, markdown or json",
						Value:   "text",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write to a file instead of stdout",
					},
				},
				Action: r.SyncHistory,
			},
			{
				Name:  "pending",
				Usage: "Record items observed upstream since the last sync",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "add",
						Usage: "Number of new items to count",
					},
				},
				Action: r.SyncPending,
			},
		},
	}
}

// setupCommand handles setup operations for configuration and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write an example configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// serveCommand runs the orchestrator as a daemon with an HTTP status endpoint
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run scheduled sync checks and serve status over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (defaults to server.host:server.port)",
			},
		},
		Action: r.Serve,
	}
}

// statusCommand reads the tracked job from a running serve instance
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the tracked sync of a running serve instance",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Status,
	}
}

// cancelCommand stops tracking the job of a running serve instance
func cancelCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "cancel",
		Usage:  "Stop tracking the current sync on a running serve instance (the remote job keeps running)",
		Action: r.Cancel,
	}
}

// watchCommand returns the top-level TUI command.
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "watch",
		Aliases: []string{"tui", "ui"},
		Usage:   "Launch an interactive view of sync progress",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "check",
				Usage: "Run a page-visit check on startup",
				Value: true,
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the view is open",
				Value: "./tmp/inboxsync-tui.log",
			},
		},
		Action: r.Watch,
	}
}
