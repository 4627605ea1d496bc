package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"content_import/internal/config"
	"content_import/internal/domain"
	"content_import/internal/driver"
)

// Runner executes due importers one after another on every tick.
type Runner struct {
	importers ImporterStore
	contents  ContentStore
	tags      TagStore
	files     FileStore
	drivers   Drivers
	txManager TransactionManager
	publisher Publisher
	logger    *slog.Logger
	config    config.ImportConfig
	now       func() time.Time

	running atomic.Bool
}

func NewRunner(
	importers ImporterStore,
	contents ContentStore,
	tags TagStore,
	files FileStore,
	drivers Drivers,
	txManager TransactionManager,
	publisher Publisher,
	logger *slog.Logger,
	cfg config.ImportConfig,
) *Runner {
	return &Runner{
		importers: importers,
		contents:  contents,
		tags:      tags,
		files:     files,
		drivers:   drivers,
		txManager: txManager,
		publisher: publisher,
		logger:    logger,
		config:    cfg,
		now:       time.Now,
	}
}

// Run performs one tick. A tick that starts while another is still active
// returns domain.ErrRunInProgress without touching any importer. Only
// cancellation of ctx stops the tick early; a slow importer is cut off by
// config.ImporterTimeout and recorded as failed.
func (r *Runner) Run(ctx context.Context) (*domain.RunStats, error) {
	if !r.running.CompareAndSwap(false, true) {
		r.logger.Warn("import run already in progress, skipping tick")
		return nil, domain.ErrRunInProgress
	}
	defer r.running.Store(false)

	startTime := time.Now()

	due, err := r.importers.FindDue(ctx, r.now())
	if err != nil {
		return nil, fmt.Errorf("find due importers: %w", err)
	}

	stats := &domain.RunStats{Importers: len(due)}
	r.logger.Debug("starting import run", "importers", len(due))

	for i := range due {
		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(startTime)
			return stats, err
		}

		imp := &due[i]
		logger := r.logger.With("importer_id", imp.ID, "driver", imp.Driver)

		res, err := r.runImporterWithTimeout(ctx, imp, logger)
		stats.Imported += res.imported
		stats.PersistFailures += res.persistFailures

		if err != nil && ctx.Err() != nil {
			// Interrupted by shutdown, not the importer's fault.
			stats.Duration = time.Since(startTime)
			return stats, ctx.Err()
		}

		if err != nil {
			imp.RecordFailure(err, r.now(), r.config.MaxErrors, r.config.ErrorDelay())
			stats.Failed++
			if imp.Enabled {
				logger.Error("importer failed",
					"error", err,
					"errors", imp.Errors,
					"paused_till", imp.PausedTill,
				)
			} else {
				stats.Disabled++
				logger.Error("importer disabled after too many errors",
					"error", err,
					"errors", imp.Errors,
				)
			}
		} else {
			imp.RecordSuccess()
			stats.Succeeded++
		}

		if err := r.importers.Save(context.WithoutCancel(ctx), imp); err != nil {
			logger.Error("failed to save importer state", "error", err)
		}
	}

	stats.Duration = time.Since(startTime)

	r.logger.Info("import run completed",
		"importers", stats.Importers,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"disabled", stats.Disabled,
		"imported", stats.Imported,
		"persist_failures", stats.PersistFailures,
		"duration", stats.Duration,
	)

	return stats, nil
}

// runImporterWithTimeout bounds one importer by config.ImporterTimeout. An
// expired deadline is that importer's failure.
func (r *Runner) runImporterWithTimeout(ctx context.Context, imp *domain.Importer, logger *slog.Logger) (importResult, error) {
	if r.config.ImporterTimeout <= 0 {
		return r.runImporter(ctx, imp, logger)
	}

	impCtx, cancel := context.WithTimeout(ctx, r.config.ImporterTimeout)
	defer cancel()

	res, err := r.runImporter(impCtx, imp, logger)
	if err == nil && ctx.Err() == nil && impCtx.Err() != nil {
		err = &domain.RunError{
			ImporterID: imp.ID,
			Driver:     imp.Driver,
			Err:        fmt.Errorf("timed out after %s: %w", r.config.ImporterTimeout, impCtx.Err()),
		}
	}
	return res, err
}

type importResult struct {
	imported        int
	persistFailures int
}

func (r *Runner) runImporter(ctx context.Context, imp *domain.Importer, logger *slog.Logger) (res importResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &domain.RunError{ImporterID: imp.ID, Driver: imp.Driver, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	d, err := r.drivers.Get(imp.Driver)
	if err != nil {
		return res, &domain.RunError{ImporterID: imp.ID, Driver: imp.Driver, Err: err}
	}

	candidates, err := d.Fetch(ctx, driver.OptionsFor(imp))
	if err != nil {
		return res, &domain.RunError{ImporterID: imp.ID, Driver: imp.Driver, Err: err}
	}

	for c, err := range candidates {
		if err != nil {
			return res, &domain.RunError{ImporterID: imp.ID, Driver: imp.Driver, Err: err}
		}

		if err := r.persist(ctx, imp, c); err != nil {
			res.persistFailures++
			logger.Error("failed to persist imported content",
				"title", c.Title,
				"error", err,
			)
			continue
		}

		res.imported++
		logger.Info("content imported",
			"content_id", c.ID,
			"title", c.Title,
			"source_link", c.Import.SourceLink,
		)

		r.publish(ctx, imp, c, logger)

		if r.config.MaxItems > 0 && res.imported >= r.config.MaxItems {
			break
		}
	}

	return res, nil
}

func (r *Runner) persist(ctx context.Context, imp *domain.Importer, c *domain.Content) error {
	err := r.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if c.HasField(domain.FieldTags) {
			for _, title := range imp.AddTags {
				tag, err := r.tags.Dispense(txCtx, title, c.Language)
				if err != nil {
					return fmt.Errorf("dispense tag %q: %w", title, err)
				}
				c.AddTag(*tag)
			}
		}
		return r.contents.Save(txCtx, c)
	})
	if err == nil {
		return nil
	}

	persistErr := &domain.PersistError{Title: c.Title, Err: err}
	if relErr := driver.ReleaseImages(ctx, r.files, c); relErr != nil {
		return errors.Join(persistErr, fmt.Errorf("release images: %w", relErr))
	}
	return persistErr
}

func (r *Runner) publish(ctx context.Context, imp *domain.Importer, c *domain.Content, logger *slog.Logger) {
	if r.publisher == nil {
		return
	}

	event := domain.ImportEvent{Driver: imp.Driver, Content: c}
	if err := r.publisher.Publish(ctx, event); err != nil {
		logger.Warn("failed to publish import event",
			"content_id", c.ID,
			"error", err,
		)
	}
}
