package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/cognicore/symsolve/pkg/symsolve"
	"github.com/cognicore/symsolve/pkg/symsolve/config"
	"github.com/cognicore/symsolve/pkg/symsolve/metrics"
	"github.com/cognicore/symsolve/pkg/symsolve/store"
	"github.com/cognicore/symsolve/pkg/symsolve/store/memstore"
	"github.com/cognicore/symsolve/pkg/symsolve/store/sqlite"
)

// buildEngine opens the store, registers metrics and wires the engine. The
// returned cleanup stops the metrics server and closes the store.
func buildEngine(ctx context.Context, cfg config.Config, logger *zap.Logger) (*symsolve.Engine, func(), error) {
	var (
		st  store.Store
		err error
	)
	if cfg.Store.Path != "" {
		st, err = sqlite.OpenSQLite(ctx, cfg.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open store %s: %w", cfg.Store.Path, err)
		}
	} else {
		st = memstore.New()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	engine, err := symsolve.New(symsolve.Options{
		Config:  cfg,
		Store:   st,
		Metrics: m,
		Logger:  logger,
	})
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	stopMetrics := func() {}
	if cfg.Metrics.Addr != "" {
		stopMetrics = serveMetrics(cfg.Metrics.Addr, metrics.Handler(reg))
	}
	cleanup := func() {
		stopMetrics()
		if err := engine.Close(); err != nil {
			logger.Warn("close store", zap.Error(err))
		}
	}
	return engine, cleanup, nil
}
