// Package app owns the process-wide resources: the model artifact, the
// feature schema and the choice catalog. They are loaded once and shared
// read-only by every request.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"houseprice/assets"
	"houseprice/config"
	"houseprice/metadata"
	"houseprice/ml"
	"houseprice/predictor"
)

type Resources struct {
	Schema    metadata.Schema
	Catalog   metadata.Catalog
	Model     ml.Estimator
	Predictor *predictor.Predictor
	Formatter *predictor.Formatter
}

type Runtime struct {
	config  *config.Config
	fetcher *assets.Fetcher
	logger  *zap.Logger

	once      sync.Once
	resources *Resources
	err       error
}

// New prepares a runtime; nothing is fetched or read until Resources is
// called. opts tune the asset fetcher.
func New(cfg *config.Config, logger *zap.Logger, opts ...assets.Option) *Runtime {
	if logger == nil {
		logger = zap.NewNop()
	}
	fetcherOpts := []assets.Option{
		assets.WithMinSize(cfg.Model.MinSizeBytes),
		assets.WithLogger(logger.Named("assets")),
	}
	fetcherOpts = append(fetcherOpts, opts...)
	source := assets.Source{URL: cfg.Model.URL, DriveFileID: cfg.Model.DriveFileID}

	return &Runtime{
		config:  cfg,
		fetcher: assets.NewFetcher(source, fetcherOpts...),
		logger:  logger,
	}
}

// Fetcher exposes the asset fetcher for callers that only need the artifact.
func (r *Runtime) Fetcher() *assets.Fetcher {
	return r.fetcher
}

// Resources loads everything on first use. Concurrent first callers share a
// single load, and a failed load stays failed for the life of the process.
func (r *Runtime) Resources(ctx context.Context) (*Resources, error) {
	r.once.Do(func() {
		start := time.Now()
		r.resources, r.err = r.load(ctx)
		if r.err != nil {
			r.logger.Error("Failed to load resources", zap.Error(r.err))
			return
		}
		r.logger.Info("Resources loaded",
			zap.Int("features", len(r.resources.Schema)),
			zap.Duration("duration", time.Since(start)))
	})
	return r.resources, r.err
}

func (r *Runtime) load(ctx context.Context) (*Resources, error) {
	cfg := r.config
	formatter, err := predictor.NewFormatter(cfg.Display.Locale, cfg.Display.Currency, cfg.Display.AreaUnit)
	if err != nil {
		return nil, err
	}

	fetchCtx := ctx
	if cfg.Model.DownloadTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, cfg.Model.DownloadTimeout)
		defer cancel()
	}
	_, statErr := os.Stat(cfg.Model.Path)
	downloaded := errors.Is(statErr, os.ErrNotExist)
	if err := r.fetcher.Ensure(fetchCtx, cfg.Model.Path); err != nil {
		return nil, err
	}

	res := &Resources{Formatter: formatter}
	var g errgroup.Group
	g.Go(func() error {
		schema, err := metadata.LoadSchema(cfg.Metadata.FeaturesPath)
		if err != nil {
			return err
		}
		res.Schema = schema
		return nil
	})
	g.Go(func() error {
		catalog, err := metadata.LoadCatalog(cfg.Metadata.ChoicesPath)
		if err != nil {
			r.logger.Info("Choice catalog unavailable, selection lists will be empty",
				zap.String("path", cfg.Metadata.ChoicesPath), zap.Error(err))
		}
		res.Catalog = catalog
		return nil
	})
	g.Go(func() error {
		model, err := ml.LoadModel(cfg.Model.Path, r.logger.Named("ml"))
		if err != nil {
			// A download that cannot be decoded is removed so the next start fetches again.
			if downloaded {
				if rmErr := os.Remove(cfg.Model.Path); rmErr != nil {
					r.logger.Warn("Failed to remove undecodable artifact", zap.Error(rmErr))
				}
			}
			return fmt.Errorf("load model %s: %w", cfg.Model.Path, err)
		}
		res.Model = model
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p, err := predictor.New(res.Schema, res.Model,
		predictor.WithCacheSize(cfg.Cache.Size),
		predictor.WithLogger(r.logger.Named("predictor")))
	if err != nil {
		return nil, err
	}
	res.Predictor = p
	return res, nil
}
