package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/autocitation/autocite/internal/project"
	"github.com/autocitation/autocite/internal/serve"
	"github.com/autocitation/autocite/pkg/core"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Addr  string
	Watch bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the read-only HTTP preview",
		Long: `Start a local HTTP server exposing the records of the input folder as JSON.

Endpoints:
  GET /api/records                      record summaries
  GET /api/records/{id}                 one record with its issues
  GET /api/issues?severity=             issues at or above a severity
  GET /api/references?style=&sort=      formatted reference list
  GET /api/styles                       available styles
  GET /api/events                       reload events (server-sent events)

With --watch the folder is reloaded when RIS files or autocite.yaml change.`,
		Example: `  # Serve ./refs on the default address
  autocite serve -i refs

  # Serve on another port and reload on changes
  autocite serve -i refs --addr 127.0.0.1:9000 --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "Listen address (default 127.0.0.1:8765)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Reload when files change")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cmdCtx := NewCommandContextWithoutPipeline(cmd)
	cfg := cmdCtx.Cfg

	addr := cfg.Serve.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}
	watch := cfg.Serve.Watch
	if cmd.Flags().Changed("watch") {
		watch = opts.Watch
	}

	srv, err := serve.NewServer(serve.Config{
		Folder:   cfg.Input,
		Settings: cfg.Settings,
		Rules:    cfg.Rules,
		LoadOptions: project.LoadOptions{
			Recursive:     cfg.Recursive,
			IncludeHidden: cfg.IncludeHidden,
		},
		Addr:        addr,
		Watch:       watch,
		ProjectRoot: cfg.ProjectRoot,
		StyleDirs:   styleDirs(),
		Overrides:   serveOverrides(cmd, cfg.Settings),
		Logger:      cmdCtx.Logger,
	})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := srv.Reload(ctx, "start"); err != nil {
		return err
	}

	r := cmdCtx.Renderer
	r.Println(fmt.Sprintf("Serving %s on http://%s", cfg.Input, addr))
	if watch {
		r.Println("Watching for changes")
	}
	r.Println("Press Ctrl+C to stop")

	return srv.Serve(ctx)
}

// serveOverrides keeps --style and --sort in force across config reloads.
func serveOverrides(cmd *cobra.Command, settings core.ProjectSettings) serve.Overrides {
	var o serve.Overrides
	if f := cmd.Flag("style"); f != nil && f.Changed {
		o.StyleID = settings.StyleID
	}
	if f := cmd.Flag("sort"); f != nil && f.Changed {
		o.SortMode = settings.SortMode
	}
	return o
}
