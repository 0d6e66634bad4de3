// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/lectern"
	"github.com/poiesic/lectern/config"
	"github.com/urfave/cli/v2"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	var logFile *lumberjack.Logger

	return &cli.App{
		Name:  "lectern",
		Usage: "Store parsed textbooks as chapters and content chunks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Also write logs to this file, rotated at 50MB",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Storage backend (badger, postgres)",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
			},
			&cli.IntFlag{
				Name:  "badger-memtable-mb",
				Usage: "BadgerDB memtable size in MB; one document must fit in 15% of it",
				Value: 128,
			},
			&cli.StringFlag{
				Name:  "dsn",
				Usage: "PostgreSQL connection URL (default: $DATABASE_URL)",
			},
		},
		Before: func(c *cli.Context) error {
			lf, err := setupLogger(c)
			logFile = lf
			return err
		},
		After: func(c *cli.Context) error {
			if logFile != nil {
				return logFile.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Create the database schema (postgres only)",
				Action: migrateCommand,
			},
			{
				Name:   "ingest",
				Usage:  "Ingest documents from manifest files",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:     "manifest",
						Aliases:  []string{"m"},
						Usage:    "Manifest file or directory (repeatable)",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Number of documents ingested in parallel",
						Value: 1,
					},
					&cli.StringFlag{
						Name:  "reload",
						Usage: "What to do with chapters of a re-ingested textbook (append, replace)",
						Value: "append",
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per document on transaction conflicts",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 50 * time.Millisecond,
					},
					&cli.StringFlag{
						Name:  "retry-run",
						Usage: "Only ingest documents that failed or were skipped in this run",
					},
					&cli.BoolFlag{
						Name:  "verify",
						Usage: "Reconcile stored counts with the run after ingesting",
					},
					&cli.StringFlag{
						Name:  "token-model",
						Usage: "Model whose tokenizer estimates missing token counts",
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N documents",
						Value: 10,
					},
				},
			},
			{
				Name:   "verify",
				Usage:  "Count textbooks, chapters and chunks stored in a time window",
				Action: verifyCommand,
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "since",
						Usage: "Count the last duration instead of the current day",
					},
				},
			},
			{
				Name:   "runs",
				Usage:  "Show an ingestion run report",
				Action: runsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "id",
						Usage: "Run ID (default: latest run)",
					},
				},
			},
		},
	}
}

// openLibrary opens the store selected by the global flags, falling back to
// the environment.
func openLibrary(ctx context.Context, c *cli.Context, extra ...config.ConfigOption) (*lectern.Library, error) {
	var opts []config.ConfigOption
	if c.IsSet("db") {
		opts = append(opts, config.WithBadgerPath(c.String("db")))
	}
	if c.IsSet("badger-memtable-mb") {
		opts = append(opts, config.WithBadgerMemTableMB(c.Int("badger-memtable-mb")))
	}
	if c.IsSet("dsn") {
		opts = append(opts, config.WithDatabaseURL(c.String("dsn")))
	}
	if c.IsSet("backend") {
		opts = append(opts, config.WithBackend(config.Backend(c.String("backend"))))
	}
	opts = append(opts, extra...)

	cfg, err := config.FromEnv(opts...)
	if err != nil {
		return nil, err
	}
	lib, err := lectern.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return lib, nil
}

func setupLogger(c *cli.Context) (*lumberjack.Logger, error) {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	var out io.Writer = os.Stderr
	var logFile *lumberjack.Logger
	if path := c.String("log-file"); path != "" {
		logFile = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stderr, logFile)
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return logFile, nil
}
