// Package serve provides a read-only HTTP preview of a RIS folder: records,
// issues and formatted references as JSON, with live reload when files
// change.
package serve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	intconfig "github.com/autocitation/autocite/internal/config"
	"github.com/autocitation/autocite/internal/project"
	"github.com/autocitation/autocite/internal/serve/notifier"
	"github.com/autocitation/autocite/internal/styles"
	"github.com/autocitation/autocite/pkg/core"
	"github.com/autocitation/autocite/pkg/validate"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 5 * time.Second

// Config holds configuration for the preview server.
type Config struct {
	// Folder is the RIS folder to serve.
	Folder      string
	Settings    core.ProjectSettings
	Rules       *intconfig.ValidateConfig
	LoadOptions project.LoadOptions
	Addr        string
	Watch       bool
	// ProjectRoot holds autocite.yaml; changes to it reload settings and rules.
	ProjectRoot string
	// StyleDirs are searched for CSL styles named by stem.
	StyleDirs []string
	// Overrides are reapplied after every config reload.
	Overrides Overrides
	Logger    *slog.Logger
}

// Overrides holds settings given on the command line. Empty fields leave
// the configured value alone.
type Overrides struct {
	StyleID  string
	SortMode string
}

func (o Overrides) apply(s core.ProjectSettings) core.ProjectSettings {
	if o.StyleID != "" {
		s.StyleID = o.StyleID
	}
	if o.SortMode != "" {
		s.SortMode = o.SortMode
	}
	return s
}

// Server serves the preview API.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	notifier *notifier.Notifier

	mu       sync.RWMutex
	pipeline *project.Pipeline
	settings core.ProjectSettings
	proj     *core.Project
	loaded   time.Time
}

// NewServer creates a server. Call Reload before serving requests.
func NewServer(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		notifier: notifier.New(),
		settings: cfg.Settings,
	}
	pipeline, err := s.newPipeline(cfg.Rules)
	if err != nil {
		return nil, err
	}
	s.pipeline = pipeline
	return s, nil
}

func (s *Server) newPipeline(rules *intconfig.ValidateConfig) (*project.Pipeline, error) {
	analyzerCfg, err := rules.AnalyzerConfig()
	if err != nil {
		return nil, err
	}
	return project.New(project.Config{
		Logger:   s.logger,
		Analyzer: validate.NewAnalyzer(analyzerCfg),
	}), nil
}

// Notifier returns the server's reload notifier.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// Project returns the currently loaded project.
func (s *Server) Project() *core.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.proj
}

// Reload loads the folder again and notifies event subscribers. The
// previous project stays in place when loading fails.
func (s *Server) Reload(ctx context.Context, reason string) error {
	s.mu.RLock()
	pipeline, settings := s.pipeline, s.settings
	s.mu.RUnlock()

	settings.StyleID = styles.Resolve(settings.StyleID, s.cfg.StyleDirs...)
	proj, stats, err := pipeline.Load(ctx, s.cfg.Folder, settings, s.cfg.LoadOptions)
	ev := notifier.Event{Reason: reason, At: time.Now()}
	if err != nil {
		ev.Error = err.Error()
		s.notifier.Broadcast(ev)
		return fmt.Errorf("failed to load %s: %w", s.cfg.Folder, err)
	}

	s.mu.Lock()
	s.proj = proj
	s.loaded = ev.At
	s.mu.Unlock()

	ev.Records = len(proj.Records)
	ev.Issues = proj.IssueCounts()
	s.logger.Info("project loaded",
		slog.String("reason", reason),
		slog.Int("files", stats.FilesLoaded),
		slog.Int("records", stats.RecordsLoaded))
	s.notifier.Broadcast(ev)
	return nil
}

// ReloadConfig re-reads autocite.yaml from the project root, swaps in the
// new settings and rules, and reloads the project.
func (s *Server) ReloadConfig(ctx context.Context) error {
	if s.cfg.ProjectRoot == "" {
		return nil
	}
	pc, err := intconfig.LoadFromDir(s.cfg.ProjectRoot)
	if err != nil {
		return err
	}
	settings, rules := s.cfg.Settings, s.cfg.Rules
	if pc != nil {
		settings, rules = s.cfg.Overrides.apply(pc.Settings), pc.Validate
	}
	pipeline, err := s.newPipeline(rules)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.pipeline = pipeline
	s.settings = settings
	s.mu.Unlock()

	return s.Reload(ctx, "config")
}

// Handler returns the HTTP handler with all routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Compress(5, "application/json"),
		s.requestLogger,
	)
	s.routes(r)
	return r
}

// requestLogger logs requests through the server's slog logger.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)))
	})
}

// Serve loads the project, starts the HTTP server and blocks until ctx is
// canceled or the server fails.
func (s *Server) Serve(ctx context.Context) error {
	if s.Project() == nil {
		if err := s.Reload(ctx, "start"); err != nil {
			return err
		}
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.serveListener(ctx, ln)
}

func (s *Server) serveListener(ctx context.Context, ln net.Listener) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("starting preview server", slog.String("addr", ln.Addr().String()))

	if s.cfg.Watch {
		eg.Go(func() error {
			return s.watchFiles(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(egctx), shutdownTimeout)
		defer cancel()

		s.logger.Debug("shutting down preview server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
