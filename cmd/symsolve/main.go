// Command symsolve executes generated logic programs and writes the
// predicted answer letters.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cognicore/symsolve/pkg/symsolve"
	"github.com/cognicore/symsolve/pkg/symsolve/answer"
	"github.com/cognicore/symsolve/pkg/symsolve/backup"
	"github.com/cognicore/symsolve/pkg/symsolve/config"
	"github.com/cognicore/symsolve/pkg/symsolve/report"
)

var (
	// Global flags
	verbose     bool
	configPath  string
	dbPath      string
	metricsAddr string

	// run
	inputPath     string
	outputPath    string
	workers       int
	backupFlag    string
	backupResults string

	// solve
	logicType   string
	programPath string
	datasetName string
	showTrace   bool

	// report
	reportRun string

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "symsolve",
	Short: "Execute generated logic programs with symbolic solvers",
	Long: `symsolve routes logic programs to a solver by declared type:

  LP   forward chaining over facts and rules
  FOL  resolution theorem proving (or an external Prover9)
  CSP  finite-domain constraint search
  SAT  a solver script run by an external interpreter

Each result is mapped onto a multiple-choice letter. Programs that fail to
parse or execute get a backup answer so a batch always completes.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configPath != "" {
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
		} else {
			cfg = config.Default()
		}
		if dbPath != "" {
			cfg.Store.Path = dbPath
		}
		if metricsAddr != "" {
			cfg.Metrics.Addr = metricsAddr
		}

		zc := zap.NewProductionConfig()
		level, err := zapcore.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("logging level: %w", err)
		}
		if verbose {
			level = zapcore.DebugLevel
		}
		zc.Level = zap.NewAtomicLevelAt(level)
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute every program of an input file",
	RunE:  runBatch,
}

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Execute a single program file",
	RunE:  solveOne,
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize the records of a stored run",
	RunE:  showReport,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite result store (default: in-memory)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	runCmd.Flags().StringVarP(&inputPath, "input", "i", "testdata/sample_input.json", "Input examples (JSON list)")
	runCmd.Flags().StringVarP(&outputPath, "output", "o", "output/sample_output.json", "Output file")
	runCmd.Flags().IntVar(&workers, "workers", 0, "Concurrent examples (default: from config)")
	runCmd.Flags().StringVar(&backupFlag, "backup", "", "Backup strategy: random, results, store or llm")
	runCmd.Flags().StringVar(&backupResults, "backup-results", "", "Prediction file for the results strategy")

	solveCmd.Flags().StringVarP(&logicType, "type", "t", "", "Logic type: LP, FOL, CSP or SAT (required)")
	solveCmd.Flags().StringVarP(&programPath, "file", "f", "", "Program file (required)")
	solveCmd.Flags().StringVar(&datasetName, "dataset", "", "Answer policy dataset (default: from config)")
	solveCmd.Flags().BoolVar(&showTrace, "trace", false, "Print the reasoning trace")
	_ = solveCmd.MarkFlagRequired("type")
	_ = solveCmd.MarkFlagRequired("file")

	reportCmd.Flags().StringVar(&reportRun, "run", "", "Run id (default: latest run)")

	rootCmd.AddCommand(runCmd, solveCmd, reportCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if workers > 0 {
		cfg.Workers = workers
	}
	if backupFlag != "" {
		cfg.Backup.Strategy = backupFlag
	}
	if backupResults != "" {
		cfg.Backup.ResultsPath = backupResults
	}

	examples, err := symsolve.LoadExamples(inputPath)
	if err != nil {
		return err
	}
	logger.Info("loaded examples", zap.Int("count", len(examples)), zap.String("input", inputPath))

	engine, cleanup, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := engine.Run(ctx, inputPath, examples)
	if err != nil {
		return err
	}
	if err := symsolve.WriteOutputs(outputPath, res.Records); err != nil {
		return err
	}

	recs, err := engine.Store().Records(ctx, res.RunID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records to %s\n", len(res.Records), outputPath)
	return report.Build(res.RunID, recs).Write(cmd.OutOrStdout())
}

func solveOne(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	lt := strings.ToUpper(logicType)
	if datasetName != "" {
		if !answer.Dataset(datasetName).Valid() {
			return fmt.Errorf("unknown dataset %q", datasetName)
		}
		cfg.Datasets[lt] = datasetName
	}
	text, err := os.ReadFile(programPath)
	if err != nil {
		return err
	}

	engine, cleanup, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := engine.Solve(ctx, lt, string(text), backup.Request{ExampleID: programPath})
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "status: %s\n", out.Status)
	if out.Detail != "" {
		fmt.Fprintf(w, "detail: %s\n", out.Detail)
	}
	if out.Verdict != "" {
		fmt.Fprintf(w, "verdict: %s\n", out.Verdict)
	}
	suffix := ""
	if out.Backup {
		suffix = " (backup)"
	}
	fmt.Fprintf(w, "answer: %s%s\n", out.Letter, suffix)
	if showTrace && out.Trace != "" {
		fmt.Fprintf(w, "\n%s\n", out.Trace)
	}
	return nil
}

func showReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if cfg.Store.Path == "" {
		return errors.New("report needs a persistent store: pass --db or set store.path")
	}
	engine, cleanup, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	st := engine.Store()
	runID := reportRun
	if runID == "" {
		run, err := st.LatestRun(ctx)
		if err != nil {
			return err
		}
		runID = run.ID
	}
	recs, err := st.Records(ctx, runID)
	if err != nil {
		return err
	}
	return report.Build(runID, recs).Write(cmd.OutOrStdout())
}

func serveMetrics(addr string, h http.Handler) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
