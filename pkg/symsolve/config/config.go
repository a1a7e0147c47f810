// Package config loads the yaml configuration of a symsolve run.
package config

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/symsolve/pkg/symsolve/answer"
	"github.com/cognicore/symsolve/pkg/symsolve/backup"
	"github.com/cognicore/symsolve/pkg/symsolve/internalerr"
)

// Logic types.
const (
	LP  = "LP"
	FOL = "FOL"
	CSP = "CSP"
	SAT = "SAT"
)

// LogicTypes lists the logic types in output order.
var LogicTypes = []string{LP, FOL, CSP, SAT}

// LP engines and FOL provers.
const (
	EngineMangle   = "mangle"
	EngineSimple   = "simple"
	ProverBuiltin  = "builtin"
	ProverExternal = "prover9"
)

// Config is the full run configuration.
type Config struct {
	Datasets map[string]string `yaml:"datasets"`
	Timeouts Timeouts          `yaml:"timeouts"`
	LP       LPConfig          `yaml:"lp"`
	FOL      FOLConfig         `yaml:"fol"`
	SAT      SATConfig         `yaml:"sat"`
	Backup   BackupConfig      `yaml:"backup"`
	Store    StoreConfig       `yaml:"store"`
	Staging  StagingConfig     `yaml:"staging"`
	Workers  int               `yaml:"workers"`
	Logging  LoggingConfig     `yaml:"logging"`
	Metrics  MetricsConfig     `yaml:"metrics"`
}

type Timeouts struct {
	CSP    time.Duration `yaml:"csp"`
	Prover time.Duration `yaml:"prover"`
	SAT    time.Duration `yaml:"sat"`
}

type LPConfig struct {
	Engine        string `yaml:"engine"`
	TrustRepaired bool   `yaml:"trust_repaired"`
}

type FOLConfig struct {
	Prover      string `yaml:"prover"`
	Prover9Path string `yaml:"prover9_path"`
	MaxGiven    int    `yaml:"max_given"`
	MaxWeight   int    `yaml:"max_weight"`
	MaxDepth    int    `yaml:"max_depth"`
}

type SATConfig struct {
	Interpreter string `yaml:"interpreter"`
}

type BackupConfig struct {
	Strategy    string    `yaml:"strategy"`
	ResultsPath string    `yaml:"results_path"`
	RunID       string    `yaml:"run_id"`
	LLM         LLMConfig `yaml:"llm"`
}

type LLMConfig struct {
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// APIKey reads the key from the configured environment variable.
func (c LLMConfig) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

type StoreConfig struct {
	Path string `yaml:"path"` // sqlite file; in-memory store when empty
}

type StagingConfig struct {
	Dir  string `yaml:"dir"`
	Keep bool   `yaml:"keep"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Datasets: map[string]string{
			LP:  string(answer.ProntoQA),
			FOL: string(answer.FOLIO),
			CSP: string(answer.LogicalDeduction),
			SAT: string(answer.ARLSAT),
		},
		Timeouts: Timeouts{CSP: 20 * time.Second, Prover: 10 * time.Second, SAT: 60 * time.Second},
		LP:       LPConfig{Engine: EngineMangle, TrustRepaired: true},
		FOL: FOLConfig{
			Prover:      ProverBuiltin,
			Prover9Path: "prover9",
			MaxGiven:    2000,
			MaxWeight:   40,
			MaxDepth:    4,
		},
		SAT:     SATConfig{Interpreter: "python3"},
		Backup:  BackupConfig{Strategy: backup.StrategyRandom, LLM: LLMConfig{APIKeyEnv: "OPENAI_API_KEY"}},
		Workers: 1,
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	// Partial dataset maps override single entries.
	for _, lt := range LogicTypes {
		if cfg.Datasets[lt] == "" {
			cfg.Datasets[lt] = Default().Datasets[lt]
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Dataset returns the dataset configured for a logic type.
func (c Config) Dataset(logicType string) answer.Dataset {
	if d, ok := c.Datasets[logicType]; ok && d != "" {
		return answer.Dataset(d)
	}
	return answer.Dataset(Default().Datasets[logicType])
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	for lt, d := range c.Datasets {
		if !isLogicType(lt) {
			return invalid("datasets: unknown logic type %q", lt)
		}
		if !answer.Dataset(d).Valid() {
			return invalid("datasets.%s: unknown dataset %q", lt, d)
		}
	}
	switch c.Dataset(LP) {
	case answer.ProntoQA, answer.ProofWriter:
	default:
		return invalid("datasets.LP: %q has no query policy", c.Dataset(LP))
	}
	switch c.Dataset(FOL) {
	case answer.ProntoQA, answer.ProofWriter, answer.FOLIO:
	default:
		return invalid("datasets.FOL: %q has no verdict policy", c.Dataset(FOL))
	}

	if c.Timeouts.CSP <= 0 || c.Timeouts.Prover <= 0 || c.Timeouts.SAT <= 0 {
		return invalid("timeouts must be positive")
	}

	switch c.LP.Engine {
	case EngineMangle, EngineSimple:
	default:
		return invalid("lp.engine: unknown engine %q", c.LP.Engine)
	}

	switch c.FOL.Prover {
	case ProverBuiltin:
		if c.FOL.MaxGiven <= 0 || c.FOL.MaxWeight <= 0 || c.FOL.MaxDepth <= 0 {
			return invalid("fol: search limits must be positive")
		}
	case ProverExternal:
		if c.FOL.Prover9Path == "" {
			return invalid("fol.prover9_path is required")
		}
	default:
		return invalid("fol.prover: unknown prover %q", c.FOL.Prover)
	}

	if c.SAT.Interpreter == "" {
		return invalid("sat.interpreter is required")
	}

	switch c.Backup.Strategy {
	case backup.StrategyRandom, backup.StrategyStore:
	case backup.StrategyResults:
		if c.Backup.ResultsPath == "" {
			return invalid("backup.results_path is required for the results strategy")
		}
	case backup.StrategyLLM:
		if c.Backup.LLM.BaseURL == "" || c.Backup.LLM.Model == "" {
			return invalid("backup.llm: base_url and model are required")
		}
	default:
		return invalid("backup.strategy: unknown strategy %q", c.Backup.Strategy)
	}

	if c.Workers < 1 {
		return invalid("workers must be at least 1")
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return invalid("logging.level: %v", err)
	}
	return nil
}

// Dump renders the configuration as yaml.
func (c Config) Dump() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func isLogicType(s string) bool {
	for _, lt := range LogicTypes {
		if lt == s {
			return true
		}
	}
	return false
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", internalerr.ErrInvalidConfig, fmt.Sprintf(format, args...))
}
