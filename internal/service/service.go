// Package service runs the dashboard pipeline behind an optional result cache.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"opsdash/internal/cache"
	"opsdash/internal/engine"
	"opsdash/internal/models"
	"opsdash/internal/observability"
)

// Service computes dashboards. A cached result is always identical to a full
// recompute because keys cover the dataset id and every enabled filter value.
type Service struct {
	pipeline *engine.Pipeline
	cache    cache.Cache
	group    singleflight.Group
	log      logrus.FieldLogger
}

// New creates a Service. c may be nil to always recompute.
func New(p *engine.Pipeline, c cache.Cache, log logrus.FieldLogger) *Service {
	return &Service{
		pipeline: p,
		cache:    c,
		log:      log.WithField("component", "dashboard"),
	}
}

func (s *Service) Pipeline() *engine.Pipeline { return s.pipeline }

// Compute returns the dashboard for sel. When nothing matches, the returned
// dashboard is marked Empty and the error is engine.ErrEmptyResult.
func (s *Service) Compute(ctx context.Context, sel engine.Selection) (*models.Dashboard, error) {
	key, err := cache.Key(s.pipeline.Dataset().ID, sel)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		d, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			observability.RecordError("cache", "get")
			s.log.WithError(err).Warn("Cache read failed, recomputing")
		case ok:
			observability.RecordCacheHit()
			return d, nil
		default:
			observability.RecordCacheMiss()
		}
	}

	v, err, shared := s.group.Do(key, func() (interface{}, error) {
		return s.compute(ctx, key, sel)
	})
	if shared {
		s.log.WithField("key", key).Debug("Shared an in-flight computation")
	}

	d, _ := v.(*models.Dashboard)
	return d, err
}

func (s *Service) compute(ctx context.Context, key string, sel engine.Selection) (*models.Dashboard, error) {
	start := time.Now()
	d, err := s.pipeline.Compute(sel)
	elapsed := time.Since(start).Seconds()

	switch {
	case errors.Is(err, engine.ErrEmptyResult):
		observability.RecordCompute("empty", 0, elapsed)
		return d, err
	case err != nil:
		observability.RecordCompute("error", 0, elapsed)
		return nil, err
	}

	observability.RecordCompute("ok", d.Rows, elapsed)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, d); err != nil {
			observability.RecordError("cache", "set")
			s.log.WithError(err).Warn("Cache write failed")
		}
	}

	return d, nil
}
