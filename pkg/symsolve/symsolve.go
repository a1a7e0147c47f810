// Package symsolve routes generated logic programs to their solvers and maps
// solver results back onto answer letters.
package symsolve

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/symsolve/internal/llm"
	"github.com/cognicore/symsolve/pkg/symsolve/backup"
	"github.com/cognicore/symsolve/pkg/symsolve/config"
	"github.com/cognicore/symsolve/pkg/symsolve/csp"
	"github.com/cognicore/symsolve/pkg/symsolve/fol"
	"github.com/cognicore/symsolve/pkg/symsolve/fol/prover9"
	"github.com/cognicore/symsolve/pkg/symsolve/fol/resolution"
	"github.com/cognicore/symsolve/pkg/symsolve/gateway"
	"github.com/cognicore/symsolve/pkg/symsolve/inference"
	"github.com/cognicore/symsolve/pkg/symsolve/inference/simple"
	"github.com/cognicore/symsolve/pkg/symsolve/internalerr"
	"github.com/cognicore/symsolve/pkg/symsolve/lp"
	"github.com/cognicore/symsolve/pkg/symsolve/metrics"
	"github.com/cognicore/symsolve/pkg/symsolve/sat"
	"github.com/cognicore/symsolve/pkg/symsolve/staging"
	"github.com/cognicore/symsolve/pkg/symsolve/store"
	"github.com/cognicore/symsolve/pkg/symsolve/store/memstore"
)

// Engine is the main orchestrator facade.
type Engine struct {
	cfg     config.Config
	store   store.Store
	metrics *metrics.Metrics
	backup  *backup.Generator
	gateway *gateway.Gateway
	prover  fol.Prover
	logger  *zap.Logger
}

// Options configures an Engine.
type Options struct {
	Config  config.Config
	Store   store.Store      // in-memory store when nil
	Metrics *metrics.Metrics // nothing recorded when nil
	// Backup replaces the strategy named in the configuration.
	Backup backup.Strategy
	// Prover replaces the configured FOL prover.
	Prover fol.Prover
	Logger *zap.Logger
}

// New validates the configuration and builds the engine's collaborators.
func New(opts Options) (*Engine, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Store == nil {
		opts.Store = memstore.New()
	}
	e := &Engine{
		cfg:     opts.Config,
		store:   opts.Store,
		metrics: opts.Metrics,
		gateway: gateway.New(opts.Logger.Named("gateway")),
		prover:  opts.Prover,
		logger:  opts.Logger,
	}

	primary := opts.Backup
	if primary == nil {
		var err error
		if primary, err = e.backupStrategy(); err != nil {
			return nil, err
		}
	}
	e.backup = backup.NewGenerator(primary, opts.Logger.Named("backup"))

	if e.prover == nil {
		e.prover = e.folProver()
	}
	return e, nil
}

// Close closes the underlying store.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the engine's result store.
func (e *Engine) Store() store.Store { return e.store }

func (e *Engine) backupStrategy() (backup.Strategy, error) {
	b := e.cfg.Backup
	switch b.Strategy {
	case backup.StrategyResults:
		return backup.LoadResults(b.ResultsPath)
	case backup.StrategyStore:
		return backup.NewStore(e.store, b.RunID), nil
	case backup.StrategyLLM:
		return backup.LLM{Client: &llm.Client{
			BaseURL: b.LLM.BaseURL,
			Model:   b.LLM.Model,
			APIKey:  b.LLM.APIKey(),
		}}, nil
	}
	return nil, nil
}

func (e *Engine) folProver() fol.Prover {
	if e.cfg.FOL.Prover == config.ProverExternal {
		return prover9.New(prover9.Options{
			Path:       e.cfg.FOL.Prover9Path,
			MaxSeconds: int(math.Ceil(e.cfg.Timeouts.Prover.Seconds())),
			Staging:    e.stagingOptions(),
		})
	}
	return resolution.New(resolution.Options{
		MaxGiven:  e.cfg.FOL.MaxGiven,
		MaxWeight: e.cfg.FOL.MaxWeight,
		MaxDepth:  e.cfg.FOL.MaxDepth,
	})
}

func (e *Engine) stagingOptions() staging.Options {
	return staging.Options{Dir: e.cfg.Staging.Dir, Keep: e.cfg.Staging.Keep}
}

// Program builds the front-end program for a logic type.
func (e *Engine) Program(logicType, text string) (gateway.Program, error) {
	logger := e.logger.Named(logicType)
	switch logicType {
	case config.LP:
		newEngine := lp.MangleEngine
		if e.cfg.LP.Engine == config.EngineSimple {
			newEngine = func() inference.Engine { return simple.New() }
		}
		return lp.New(text, lp.Options{
			Dataset:        e.cfg.Dataset(config.LP),
			NewEngine:      newEngine,
			RejectRepaired: !e.cfg.LP.TrustRepaired,
			Staging:        e.stagingOptions(),
			Logger:         logger,
		}), nil
	case config.FOL:
		timeout := e.cfg.Timeouts.Prover
		if e.cfg.FOL.Prover == config.ProverExternal {
			// Prover9 enforces the limit itself; leave room for process startup.
			timeout += 5 * time.Second
		}
		return fol.New(text, fol.Options{
			Dataset: e.cfg.Dataset(config.FOL),
			Prover:  e.prover,
			Timeout: timeout,
			Logger:  logger,
		}), nil
	case config.CSP:
		return csp.New(text, csp.Options{
			Timeout: e.cfg.Timeouts.CSP,
			Staging: e.stagingOptions(),
			Logger:  logger,
		}), nil
	case config.SAT:
		return sat.New(text, sat.Options{
			Interpreter: e.cfg.SAT.Interpreter,
			Timeout:     e.cfg.Timeouts.SAT,
			Staging:     e.stagingOptions(),
			Logger:      logger,
		}), nil
	}
	return nil, fmt.Errorf("%w: unknown logic type %q", internalerr.ErrInvalidInput, logicType)
}

// Solve executes a single program through the gateway. The backup answer is
// drawn for req whenever the program does not succeed.
func (e *Engine) Solve(ctx context.Context, logicType, text string, req backup.Request) (gateway.Outcome, error) {
	start := time.Now()
	p, err := e.Program(logicType, text)
	if err != nil {
		return gateway.Outcome{}, err
	}
	req.LogicType = logicType
	if req.Dataset == "" {
		req.Dataset = e.cfg.Dataset(logicType)
	}
	out := e.gateway.Execute(ctx, p, func(ctx context.Context) string {
		return e.backup.Answer(ctx, req)
	})
	e.metrics.Observe(logicType, string(out.Status), out.Backup, time.Since(start))
	return out, nil
}

// RunResult is the output of Run.
type RunResult struct {
	RunID   string
	Records []OutputRecord // in input order
}

// Run executes every program of every example on a bounded worker pool.
// One failing program never stops the batch; Run only fails when the store
// does or ctx is canceled.
func (e *Engine) Run(ctx context.Context, inputPath string, examples []Example) (RunResult, error) {
	snapshot, err := e.cfg.Dump()
	if err != nil {
		return RunResult{}, err
	}
	run := store.Run{
		ID:        staging.NewID(),
		InputPath: inputPath,
		StartedAt: time.Now().UTC(),
		Config:    snapshot,
	}
	if err := e.store.CreateRun(ctx, run); err != nil {
		return RunResult{}, err
	}
	logger := e.logger.With(zap.String("run", run.ID))
	logger.Info("run started", zap.Int("examples", len(examples)), zap.Int("workers", e.cfg.Workers))

	records := make([]OutputRecord, len(examples))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i := range examples {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			rec, err := e.runExample(gctx, run.ID, i, examples[i])
			if err != nil {
				return err
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return RunResult{RunID: run.ID, Records: records}, err
	}
	if err := ctx.Err(); err != nil {
		return RunResult{RunID: run.ID, Records: records}, err
	}

	if err := e.store.FinishRun(ctx, run.ID, time.Now().UTC()); err != nil {
		return RunResult{RunID: run.ID, Records: records}, err
	}
	logger.Info("run finished")
	return RunResult{RunID: run.ID, Records: records}, nil
}

func (e *Engine) runExample(ctx context.Context, runID string, pos int, ex Example) (OutputRecord, error) {
	rec := OutputRecord{
		ID:       ex.ID,
		Context:  ex.Context,
		Question: ex.Question,
		Options:  ex.Options,
		Answer:   ex.Answer,
		Results:  make(map[string]Result, len(config.LogicTypes)),
	}
	req := backup.Request{
		ExampleID: ex.ID,
		Context:   ex.Context,
		Question:  ex.Question,
		Options:   ex.Options,
	}
	for _, lt := range config.LogicTypes {
		out, err := e.Solve(ctx, lt, ex.Programs[lt], req)
		if err != nil {
			return OutputRecord{}, err
		}
		res := Result{
			Status:    string(out.Status),
			Predicted: out.Letter,
			Backup:    out.Backup,
			Detail:    out.Detail,
			Trace:     out.Trace,
		}
		rec.Results[lt] = res
		e.logger.Debug("program done",
			zap.String("example", ex.ID),
			zap.String("logic_type", lt),
			zap.String("status", res.Status),
			zap.String("answer", res.Predicted),
			zap.Bool("backup", res.Backup),
			zap.Duration("elapsed", out.Elapsed),
		)
		if err := e.store.PutRecord(ctx, store.Record{
			RunID:     runID,
			Position:  pos,
			ExampleID: ex.ID,
			LogicType: lt,
			Status:    res.Status,
			Predicted: res.Predicted,
			Answer:    ex.Answer,
			Detail:    res.Detail,
			Trace:     res.Trace,
			Backup:    res.Backup,
		}); err != nil {
			return OutputRecord{}, fmt.Errorf("example %s: %w", ex.ID, err)
		}
	}
	return rec, nil
}
