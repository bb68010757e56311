// Package project runs the folder pipeline: scan, parse, normalize and
// validate on load, then save back to the source files or export outputs.
package project

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/autocitation/autocite/internal/export"
	"github.com/autocitation/autocite/internal/scan"
	"github.com/autocitation/autocite/pkg/core"
	"github.com/autocitation/autocite/pkg/format"
	"github.com/autocitation/autocite/pkg/normalize"
	"github.com/autocitation/autocite/pkg/ris"
	"github.com/autocitation/autocite/pkg/validate"
	_ "github.com/autocitation/autocite/pkg/validate/rules" // register rules
)

// Pipeline loads, saves and exports projects.
type Pipeline struct {
	logger      *slog.Logger
	analyzer    *validate.Analyzer
	concurrency int
	format      format.Options

	parseFile func(path string) ([]*core.Record, string, error)
}

// Config holds pipeline configuration.
type Config struct {
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
	// Analyzer validates records (optional, all rules at default severity if nil)
	Analyzer *validate.Analyzer
	// Concurrency bounds the number of files parsed at once; 0 means GOMAXPROCS.
	Concurrency int
	// FormatOptions are used for references.txt (optional, format.DefaultOptions if nil)
	FormatOptions *format.Options
}

// New creates a pipeline.
func New(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	analyzer := cfg.Analyzer
	if analyzer == nil {
		analyzer = validate.NewAnalyzer(nil)
	}
	n := cfg.Concurrency
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	opts := format.DefaultOptions()
	if cfg.FormatOptions != nil {
		opts = *cfg.FormatOptions
	}
	return &Pipeline{
		logger:      logger,
		analyzer:    analyzer,
		concurrency: n,
		format:      opts,
		parseFile:   ris.ParseFile,
	}
}

// LoadOptions controls folder scanning.
type LoadOptions struct {
	Recursive     bool
	IncludeHidden bool
}

// LoadStats summarizes a load.
type LoadStats struct {
	FilesFound    int `json:"files_found"`
	FilesLoaded   int `json:"files_loaded"`
	RecordsLoaded int `json:"records_loaded"`
	ParseErrors   int `json:"parse_errors"`
}

type parsed struct {
	records  []*core.Record
	encoding string
	err      error
}

// Load scans folder for RIS files, parses them concurrently and normalizes
// and validates the records. Records keep scan order. A file that cannot be
// parsed becomes a project issue rather than an error.
func (p *Pipeline) Load(ctx context.Context, folder string, settings core.ProjectSettings, opts LoadOptions) (*core.Project, LoadStats, error) {
	root, err := filepath.Abs(folder)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("failed to resolve %s: %w", folder, err)
	}

	paths, err := scan.ScanFolder(root, scan.Options{Recursive: opts.Recursive, IncludeHidden: opts.IncludeHidden})
	if err != nil {
		return nil, LoadStats{}, err
	}
	p.logger.Debug("scanned folder", slog.String("folder", root), slog.Int("files", len(paths)))

	results := make([]parsed, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			recs, enc, err := p.parseFile(path)
			results[i] = parsed{records: recs, encoding: enc, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, LoadStats{}, fmt.Errorf("failed to load %s: %w", root, err)
	}

	proj := core.NewProject(root, settings)
	stats := LoadStats{FilesFound: len(paths)}
	for i, res := range results {
		if res.err != nil {
			stats.ParseErrors++
			proj.Issues = append(proj.Issues, core.Issue{
				Severity: core.SeverityError,
				Field:    "file",
				Message:  fmt.Sprintf("failed to parse %s: %v", filepath.Base(paths[i]), res.err),
				Code:     core.CodeFileParseError,
			})
			p.logger.Warn("failed to parse file", slog.String("path", paths[i]), slog.String("error", res.err.Error()))
			continue
		}
		proj.AddRecords(res.records...)
		stats.FilesLoaded++
		stats.RecordsLoaded += len(res.records)
		p.logger.Debug("parsed file",
			slog.String("path", paths[i]),
			slog.String("encoding", res.encoding),
			slog.Int("records", len(res.records)))
	}

	p.Refresh(proj)
	return proj, stats, nil
}

// Refresh re-normalizes and re-validates every record, e.g. after edits.
// Normalization here does not mark records dirty.
func (p *Pipeline) Refresh(proj *core.Project) {
	normalize.Records(proj.Records, false)
	p.analyzer.ValidateRecords(proj.Records)
}

// SaveOptions controls SaveBack.
type SaveOptions struct {
	// OnlyDirty skips files with no dirty record. A file with any dirty
	// record is still rewritten as a whole.
	OnlyDirty bool
	// Encoding of the written files; empty means UTF-8.
	Encoding string
}

// SaveStats summarizes a save.
type SaveStats struct {
	FilesTouched    int `json:"files_touched"`
	RecordsWritten  int `json:"records_written"`
	SkippedNoSource int `json:"skipped_no_source"`
}

// SaveBack rewrites the source RIS files from the project's records,
// grouped by source file in first-seen order. Written records are no
// longer dirty. The project's BackupOnSave setting is honored.
func (p *Pipeline) SaveBack(proj *core.Project, opts SaveOptions) (SaveStats, error) {
	var (
		stats  SaveStats
		order  []string
		groups = map[string][]*core.Record{}
	)
	for _, r := range proj.Records {
		if r.SourceFile == "" {
			stats.SkippedNoSource++
			continue
		}
		if _, ok := groups[r.SourceFile]; !ok {
			order = append(order, r.SourceFile)
		}
		groups[r.SourceFile] = append(groups[r.SourceFile], r)
	}

	for _, src := range order {
		recs := groups[src]
		if opts.OnlyDirty && !anyDirty(recs) {
			continue
		}

		err := ris.WriteFile(src, recs, ris.WriteOptions{
			Backup:   proj.Settings.BackupOnSave,
			Encoding: opts.Encoding,
		})
		if err != nil {
			return stats, err
		}
		stats.FilesTouched++
		stats.RecordsWritten += len(recs)
		for _, r := range recs {
			r.Dirty = false
		}
		p.logger.Info("saved file", slog.String("path", src), slog.Int("records", len(recs)))
	}
	return stats, nil
}

func anyDirty(recs []*core.Record) bool {
	for _, r := range recs {
		if r.Dirty {
			return true
		}
	}
	return false
}

// ExportOptions selects the files Export writes.
type ExportOptions struct {
	References bool
	Records    bool
	Issues     bool
	CSLJSON    bool
}

// DefaultExportOptions writes references.txt, records.xlsx and issues.xlsx.
func DefaultExportOptions() ExportOptions {
	return ExportOptions{References: true, Records: true, Issues: true}
}

// ExportStats holds the absolute paths of the written files; empty when
// the file was not requested.
type ExportStats struct {
	ReferencesTxt string `json:"references_txt,omitempty"`
	RecordsXLSX   string `json:"records_xlsx,omitempty"`
	IssuesXLSX    string `json:"issues_xlsx,omitempty"`
	RecordsJSON   string `json:"records_json,omitempty"`
}

// FormatReferences renders the project's reference list with its style,
// sort mode and locale settings.
func (p *Pipeline) FormatReferences(proj *core.Project) (string, error) {
	return format.FormatReferences(proj.Records, format.ReferenceOptions{
		Style:    proj.Settings.StyleID,
		SortMode: proj.Settings.SortMode,
		Options:  p.format,
		Locale:   proj.Settings.CSLLocale,
	})
}

// Export writes the selected outputs into outDir.
func (p *Pipeline) Export(proj *core.Project, outDir string, opts ExportOptions) (ExportStats, error) {
	out, err := filepath.Abs(outDir)
	if err != nil {
		return ExportStats{}, fmt.Errorf("failed to resolve %s: %w", outDir, err)
	}

	var stats ExportStats
	if opts.References {
		text, err := p.FormatReferences(proj)
		if err != nil {
			return stats, fmt.Errorf("failed to format references: %w", err)
		}
		path := filepath.Join(out, export.ReferencesFile)
		if err := export.WriteReferencesText(text, path); err != nil {
			return stats, err
		}
		stats.ReferencesTxt = path
	}
	if opts.Records {
		path := filepath.Join(out, export.RecordsFile)
		if err := export.WriteRecordsXLSX(proj.Records, path); err != nil {
			return stats, err
		}
		stats.RecordsXLSX = path
	}
	if opts.Issues {
		path := filepath.Join(out, export.IssuesFile)
		if err := export.WriteIssuesXLSX(proj.Records, proj.Issues, path); err != nil {
			return stats, err
		}
		stats.IssuesXLSX = path
	}
	if opts.CSLJSON {
		path := filepath.Join(out, export.CSLJSONFile)
		if err := export.WriteCSLJSON(proj.Records, path); err != nil {
			return stats, err
		}
		stats.RecordsJSON = path
	}

	p.logger.Info("exported outputs", slog.String("dir", out))
	return stats, nil
}
