// Command codebasemap is the CLI entrypoint: scan, filter, format, serve,
// and watch subcommands over the indexing pipeline. Grounded on the
// teacher's cmd/lci/main.go (urfave/cli/v2 App shape, global --root/
// --include/--exclude flags, config-then-indexer wiring, exit-on-error
// pattern), narrowed to this module's five-verb grammar and wired to
// lciserrors.ExitCode for exit-code mapping per spec.md §6.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"

	"github.com/codebasemap/codebasemap/internal/assembler"
	"github.com/codebasemap/codebasemap/internal/config"
	"github.com/codebasemap/codebasemap/internal/debug"
	"github.com/codebasemap/codebasemap/internal/discovery"
	lciserrors "github.com/codebasemap/codebasemap/internal/errors"
	"github.com/codebasemap/codebasemap/internal/filter"
	"github.com/codebasemap/codebasemap/internal/format"
	"github.com/codebasemap/codebasemap/internal/ignore"
	"github.com/codebasemap/codebasemap/internal/jsparser"
	"github.com/codebasemap/codebasemap/internal/mcpserver"
	"github.com/codebasemap/codebasemap/internal/patterncache"
	"github.com/codebasemap/codebasemap/internal/types"
	"github.com/codebasemap/codebasemap/internal/watch"
)

func main() {
	app := &cli.App{
		Name:                   "codebasemap",
		Usage:                  "compact, queryable project index for JS/TS/JSX/TSX source trees",
		UseShortOptionHandling: true,
		Commands: []*cli.Command{
			scanCommand(),
			filterCommand(),
			formatCommand(),
			serveCommand(),
			watchCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(lciserrors.ExitCode(err))
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "root", Aliases: []string{"r"}, Value: ".", Usage: "project root to index"},
		&cli.StringSliceFlag{Name: "include", Usage: "include files matching glob patterns"},
		&cli.StringSliceFlag{Name: "exclude", Usage: "exclude files matching glob patterns"},
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "emit per-file evaluation traces to stderr"},
		&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file (default stdout)"},
	}
}

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "index a project tree and emit its ProjectIndex as JSON",
		Flags: commonFlags(),
		Action: func(c *cli.Context) error {
			if c.Bool("verbose") {
				debug.UseStderr()
			}

			cfg, err := config.Load(c.String("root"), c.StringSlice("include"), c.StringSlice("exclude"))
			if err != nil {
				return err
			}

			parser := jsparser.New()
			idx, err := assembler.ProcessProject(cfg.Project.Root, assembler.Options{
				Filter: discovery.FilterOptions{
					Include:          cfg.Include,
					Exclude:          cfg.Exclude,
					DisableGitignore: !cfg.Index.RespectGitignore,
				},
			}, parser, progressReporter(c))
			if err != nil {
				return err
			}

			return writeJSON(c, idx)
		},
	}
}

func filterCommand() *cli.Command {
	return &cli.Command{
		Name:  "filter",
		Usage: "narrow an existing ProjectIndex by include/exclude glob patterns without rescanning",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "include", Usage: "include files matching glob patterns"},
			&cli.StringSliceFlag{Name: "exclude", Usage: "exclude files matching glob patterns"},
			&cli.StringFlag{Name: "in", Usage: "input index JSON file (default stdin)"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file (default stdout)"},
		},
		Action: func(c *cli.Context) error {
			idx, err := readIndex(c)
			if err != nil {
				return lciserrors.NewUnexpected("filter_read", err)
			}

			filtered, err := filter.Apply(idx, filter.Options{
				Include: c.StringSlice("include"),
				Exclude: c.StringSlice("exclude"),
			})
			if err != nil {
				return err
			}

			return writeJSON(c, filtered)
		},
	}
}

func formatCommand() *cli.Command {
	return &cli.Command{
		Name:  "format",
		Usage: "render a ProjectIndex as dsl, graph, markdown, or auto",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "in", Usage: "input index JSON file (default stdin)"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file (default stdout)"},
			&cli.StringFlag{Name: "style", Value: "auto", Usage: "one of dsl, graph, markdown, auto"},
		},
		Action: func(c *cli.Context) error {
			idx, err := readIndex(c)
			if err != nil {
				return lciserrors.NewUnexpected("format_read", err)
			}

			var text string
			switch c.String("style") {
			case "dsl":
				text = format.DSL(idx)
			case "graph":
				text = format.Graph(idx)
			case "markdown":
				text = format.Markdown(idx)
			case "auto":
				text = format.Auto(idx)
			default:
				return lciserrors.NewUnexpected("format", fmt.Errorf("unknown style %q: want dsl, graph, markdown, or auto", c.String("style")))
			}

			return writeOutput(c, []byte(text))
		},
	}
}

// watchCommand runs an initial scan, then keeps the in-memory index current
// by applying Component H per changed file as fsnotify events arrive,
// writing the refreshed index to --out after every processed event until
// interrupted. Grounded on the teacher's "daemon mode with file watching
// enabled" serve-command path, narrowed to a standalone subcommand since
// this module's serve command is MCP-only.
func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "scan once, then keep the index current as files change until interrupted",
		Flags: commonFlags(),
		Action: func(c *cli.Context) error {
			debug.UseStderr()

			cfg, err := config.Load(c.String("root"), c.StringSlice("include"), c.StringSlice("exclude"))
			if err != nil {
				return err
			}
			cfg.Index.WatchMode = true

			parser := jsparser.New()
			idx, err := assembler.ProcessProject(cfg.Project.Root, assembler.Options{
				Filter: discovery.FilterOptions{
					Include:          cfg.Include,
					Exclude:          cfg.Exclude,
					DisableGitignore: !cfg.Index.RespectGitignore,
				},
			}, parser, progressReporter(c))
			if err != nil {
				return err
			}

			var matcher *ignore.Matcher
			if cfg.Index.RespectGitignore {
				matcher, err = ignore.Load(cfg.Project.Root, patterncache.Singleton())
				if err != nil {
					return err
				}
			}

			w, err := watch.New(cfg, idx, parser, matcher)
			if err != nil {
				return lciserrors.NewUnexpected("watch_init", err)
			}
			w.SetCallbacks(func(ev watch.Event) {
				debug.Logf("watch: %s", ev.Path)
				if werr := writeJSON(c, idx); werr != nil {
					debug.Warn("watch_write", ev.Path, werr)
				}
			}, func(err error) {
				debug.Warn("watch_fsnotify", cfg.Project.Root, err)
			})

			if err := w.Start(cfg.Project.Root); err != nil {
				return lciserrors.NewUnexpected("watch_start", err)
			}
			defer w.Stop()

			debug.Logf("watch: watching %s (debounce=%dms)", cfg.Project.Root, cfg.Index.WatchDebounceMs)
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			<-ctx.Done()
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the MCP server over stdio, exposing scan_project/get_index/filter_index/format_index",
		Action: func(c *cli.Context) error {
			debug.UseStderr()
			server := mcpserver.New(jsparser.New())

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			return server.Run(ctx)
		},
	}
}

func progressReporter(c *cli.Context) assembler.ProgressFunc {
	if !c.Bool("verbose") {
		return nil
	}
	return func(stage assembler.ProgressStage) {
		debug.Logf("scan: %s (%d/%d)", stage.Label, stage.Step, stage.Total)
	}
}

func readIndex(c *cli.Context) (*types.ProjectIndex, error) {
	var r io.Reader = os.Stdin
	if path := c.String("in"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var idx types.ProjectIndex
	if err := json.NewDecoder(r).Decode(&idx); err != nil {
		return nil, err
	}
	return &idx, nil
}

func writeJSON(c *cli.Context, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return lciserrors.NewUnexpected("marshal_index", err)
	}
	return writeOutput(c, b)
}

func writeOutput(c *cli.Context, data []byte) error {
	var w io.Writer = os.Stdout
	if path := c.String("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return lciserrors.NewUnexpected("write_output", err)
		}
		defer f.Close()
		w = f
	}
	_, err := w.Write(append(data, '\n'))
	return err
}
