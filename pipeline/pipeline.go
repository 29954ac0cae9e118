package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	sheetpipe "github.com/ideamans/go-sheetpipe"
	"github.com/ideamans/go-sheetpipe/adapters/excel"
	"github.com/ideamans/go-sheetpipe/analytics"
	"github.com/ideamans/go-sheetpipe/gologger"
	"github.com/ideamans/go-sheetpipe/store"
	"github.com/rs/zerolog"
)

var logger = gologger.NewLogger()

// Pipeline loads workbooks into the store, runs reports and exports them.
// It is single-threaded; each Run opens and closes its own store.
type Pipeline struct {
	config  Config
	catalog *sheetpipe.Catalog
	sinks   []sheetpipe.Sink
	logger  zerolog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSinks adds destinations the reports are exported to after the report workbook.
func WithSinks(sinks ...sheetpipe.Sink) Option {
	return func(p *Pipeline) {
		p.sinks = append(p.sinks, sinks...)
	}
}

// WithLogger replaces the default logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// Result summarizes a run.
type Result struct {
	RunID uuid.UUID
	// Loaded maps each store table to its row count
	Loaded     map[string]int
	Reports    []*sheetpipe.Table
	Analyses   []*sheetpipe.Table
	ReportPath string
	Duration   time.Duration
}

// New validates the config and creates a pipeline.
func New(config *Config, opts ...Option) (*Pipeline, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		config:  *config,
		catalog: sheetpipe.NewCatalog(),
		logger:  gologger.NewLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Catalog returns the tables loaded by the latest run.
func (p *Pipeline) Catalog() *sheetpipe.Catalog {
	return p.catalog
}

// Run loads every source, materializes it, runs the reports and analyses,
// and exports the reports. The store is closed on every path.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{
		RunID:      uuid.New(),
		Loaded:     make(map[string]int, len(p.config.Sources)),
		ReportPath: p.config.ReportPath,
	}
	log := p.logger.With().Str("runID", result.RunID.String()).Logger()
	log.Info().Int("sources", len(p.config.Sources)).Msg("pipeline started")

	for _, src := range p.config.Sources {
		table, err := p.load(ctx, src)
		if err != nil {
			log.Error().Err(err).Str("table", src.Table).Msg("failed to load source")
			return nil, err
		}
		p.catalog.Put(src.Table, table)
		result.Loaded[src.Table] = table.NumRows()
		log.Info().
			Str("table", src.Table).
			Str("path", src.Path).
			Int("rows", table.NumRows()).
			Msg("source loaded")
	}

	err := store.With(ctx, store.Config{Path: p.config.StorePath}, func(s *store.Store) error {
		for _, name := range p.catalog.Names() {
			table, _ := p.catalog.Get(name)
			if err := s.Materialize(ctx, name, table); err != nil {
				return err
			}
		}

		engine := analytics.New(s)
		reports, err := engine.Run(ctx, p.config.Reports)
		if err != nil {
			return err
		}
		result.Reports = reports

		analyses, err := engine.Run(ctx, p.config.Analyses)
		if err != nil {
			return err
		}
		result.Analyses = analyses
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to run reports")
		return nil, err
	}

	report, err := excel.New(&excel.Config{FilePath: p.config.ReportPath})
	if err != nil {
		return nil, err
	}
	for _, sink := range append([]sheetpipe.Sink{report}, p.sinks...) {
		if err := sink.Export(ctx, result.Reports, p.config.Mode); err != nil {
			log.Error().Err(err).Msg("failed to export reports")
			return nil, err
		}
	}

	result.Duration = time.Since(start)
	log.Info().
		Str("path", p.config.ReportPath).
		Int("reports", len(result.Reports)).
		Dur("duration", result.Duration).
		Msg("pipeline finished")
	return result, nil
}

// load reads every workbook matching the source path. Several matches are
// stacked into one table.
func (p *Pipeline) load(ctx context.Context, src SourceSpec) (*sheetpipe.Table, error) {
	paths, err := filepath.Glob(src.Path)
	if err != nil {
		return nil, sheetpipe.NewSheetError("load", src.Path, src.Sheet, fmt.Errorf("invalid path pattern: %w", err))
	}
	if len(paths) == 0 {
		// Let the adapter report the missing file
		paths = []string{src.Path}
	}
	sort.Strings(paths)

	tables := make([]*sheetpipe.Table, 0, len(paths))
	for _, path := range paths {
		table, err := loadWorkbook(ctx, path, sheetpipe.Selector{Sheet: src.Sheet, Columns: src.Columns})
		if err != nil {
			return nil, err
		}
		tables = append(tables, table.WithName(filepath.Base(path)))
	}

	if len(tables) == 1 && src.SourceColumn == "" {
		return tables[0].WithName(src.Table), nil
	}
	return sheetpipe.Concat(src.Table, src.SourceColumn, tables...)
}

// loadWorkbook reads the selected sheet of one workbook, defaulting to the first.
func loadWorkbook(ctx context.Context, path string, sel sheetpipe.Selector) (*sheetpipe.Table, error) {
	adapter, err := excel.New(&excel.Config{FilePath: path})
	if err != nil {
		return nil, sheetpipe.NewSheetError("load", path, sel.Sheet, err)
	}

	if sel.Sheet == "" {
		names, err := adapter.SheetNames(ctx)
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return nil, sheetpipe.NewSheetError("load", path, "", sheetpipe.ErrSheetNotFound)
		}
		sel.Sheet = names[0]
	}

	tables, err := adapter.Load(ctx, sel)
	if err != nil {
		return nil, err
	}
	table, ok := single(tables)
	if !ok {
		return nil, sheetpipe.NewSheetError("load", path, sel.Sheet, sheetpipe.ErrSheetNotFound)
	}
	return table, nil
}

func single(tables map[string]*sheetpipe.Table) (*sheetpipe.Table, bool) {
	if len(tables) != 1 {
		return nil, false
	}
	var table *sheetpipe.Table
	for _, t := range tables {
		table = t
	}
	return table, true
}

// Patch copies one sheet from src into dst, optionally keeping only the rows
// that match conds. Every other sheet of dst is left untouched.
func Patch(ctx context.Context, src sheetpipe.Source, sel sheetpipe.Selector, dst sheetpipe.Sink, sheet string, conds ...analytics.Condition) error {
	tables, err := src.Load(ctx, sel)
	if err != nil {
		return err
	}
	table, ok := single(tables)
	if !ok {
		return fmt.Errorf("patch needs exactly one source sheet, got %d", len(tables))
	}
	if len(conds) > 0 {
		if table, err = analytics.Filter(table, conds...); err != nil {
			return err
		}
	}

	if err := dst.UpdateSheet(ctx, sheet, table); err != nil {
		return err
	}

	logger.Info().
		Str("sheet", sheet).
		Int("rows", table.NumRows()).
		Msg("sheet patched")
	return nil
}
