// Package pipeline wires the ETL stages together and runs them in order.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"price-paid-etl/config"
	"price-paid-etl/fetcher"
	"price-paid-etl/models"
	"price-paid-etl/services"
	"price-paid-etl/storage"
	"price-paid-etl/utils"
)

// Store is the relational side of the pipeline: the loader target and the
// report query source.
type Store interface {
	storage.TransactionWriter
	storage.ReportSource
	Migrate(ctx context.Context) error
}

// StoreOpener connects to the store. Each database stage opens its own
// connection and closes it when done.
type StoreOpener func(ctx context.Context, cfg *config.Config, logger *utils.Logger) (Store, error)

func openPostgres(ctx context.Context, cfg *config.Config, logger *utils.Logger) (Store, error) {
	pw, err := storage.NewPostgresWriter(ctx, cfg.DSN(), logger)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

// Summary collects every stage result of one run. Stages that did not run are nil.
type Summary struct {
	RunID     string
	Fetch     *models.FetchResult
	Convert   *models.ConvertResult
	Transform *models.TransformResult
	Load      *models.LoadResult
	Report    *models.ReportResult
	Elapsed   time.Duration
}

// Runner executes the pipeline stages for one configuration.
type Runner struct {
	cfg    *config.Config
	logger *utils.Logger
	runID  string
	open   StoreOpener
}

// Option customises a Runner.
type Option func(*Runner)

// WithStoreOpener replaces the PostgreSQL connection used by the load, report
// and migrate stages.
func WithStoreOpener(open StoreOpener) Option {
	return func(r *Runner) { r.open = open }
}

// New creates a Runner with a fresh run id attached to every log line.
func New(cfg *config.Config, logger *utils.Logger, opts ...Option) *Runner {
	runID := uuid.NewString()
	r := &Runner{
		cfg:    cfg,
		logger: logger.With("run_id", runID),
		runID:  runID,
		open:   openPostgres,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) stageLogger(stage string) *utils.Logger {
	return r.logger.With("stage", stage)
}

// Run executes fetch, convert, transform, load and report in sequence. The
// first fatal error stops the run; the summary holds whatever completed.
// With DB insertion disabled the load stage is skipped and the report runs
// against whatever the store already holds.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	s := &Summary{RunID: r.runID}
	defer func() { s.Elapsed = time.Since(start) }()

	r.logger.Info("=== Price paid ETL run starting ===")

	var err error
	if s.Fetch, err = r.Fetch(ctx); err != nil {
		return s, err
	}
	if s.Convert, err = r.Convert(ctx); err != nil {
		return s, err
	}
	cleaned, err := r.Transform(ctx)
	if err != nil {
		return s, err
	}
	s.Transform = &cleaned.Stats

	if r.cfg.DBInsertion {
		if s.Load, err = r.Load(ctx, cleaned); err != nil {
			return s, err
		}
	} else {
		r.logger.Warn("[pipeline] DB insertion disabled, skipping load stage")
	}

	if r.cfg.GenerateReports {
		if s.Report, err = r.Report(ctx); err != nil {
			return s, err
		}
	} else {
		r.logger.Warn("[pipeline] Report generation disabled, skipping report stage")
	}

	r.logger.Info("=== Price paid ETL run finished in %s ===", time.Since(start).Round(time.Millisecond))
	return s, nil
}

// Fetch downloads the raw extract unless it is already on disk.
func (r *Runner) Fetch(ctx context.Context) (*models.FetchResult, error) {
	res, err := fetcher.New(r.cfg, r.stageLogger("fetch")).Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	return res, nil
}

// Convert splits the raw extract into the tabular file.
func (r *Runner) Convert(ctx context.Context) (*models.ConvertResult, error) {
	out, err := storage.NewTabularWriter(r.cfg.TabularPath, r.cfg.OverwriteOutput)
	if err != nil {
		return nil, fmt.Errorf("convert: %w", err)
	}
	conv, err := services.NewConverter(r.cfg.RawPath, r.cfg.RawEncoding, r.cfg.BatchSize, out, r.stageLogger("convert"))
	if err != nil {
		return nil, err
	}
	return conv.Convert(ctx)
}

// Transform cleans the tabular file, saving the result when configured to.
func (r *Runner) Transform(ctx context.Context) (*models.CleanedDataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cleanedTo := ""
	if r.cfg.SaveCleaned {
		cleanedTo = r.cfg.CleanedPath
	}
	return services.NewTransformer(r.stageLogger("transform"), cleanedTo).TransformFile(r.cfg.TabularPath)
}

// Load inserts the cleaned transactions into the store.
func (r *Runner) Load(ctx context.Context, data *models.CleanedDataset) (*models.LoadResult, error) {
	logger := r.stageLogger("load")
	var res *models.LoadResult
	err := r.withStore(ctx, logger, func(st Store) error {
		var err error
		res, err = st.Write(ctx, data.Transactions)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	return res, nil
}

// Report queries the store and writes the report files.
func (r *Runner) Report(ctx context.Context) (*models.ReportResult, error) {
	logger := r.stageLogger("report")
	var res *models.ReportResult
	err := r.withStore(ctx, logger, func(st Store) error {
		var err error
		res, err = services.NewReportService(st, r.cfg.ReportDir, logger).Generate(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Migrate creates and seeds the schema without loading anything.
func (r *Runner) Migrate(ctx context.Context) error {
	logger := r.stageLogger("migrate")
	return r.withStore(ctx, logger, func(st Store) error {
		if err := st.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("[pipeline] Schema is up to date")
		return nil
	})
}

func (r *Runner) withStore(ctx context.Context, logger *utils.Logger, fn func(Store) error) error {
	st, err := r.open(ctx, r.cfg, logger)
	if err != nil {
		logger.Error("[pipeline] Failed to connect to PostgreSQL: %v", err)
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("[pipeline] Closing store: %v", err)
		}
	}()
	return fn(st)
}
