// Package backup supplies answer letters for programs that failed to parse or
// execute. Every strategy falls back to a deterministic pseudo-random letter,
// so a backup answer is always available.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/cognicore/symsolve/internal/llm"
	"github.com/cognicore/symsolve/pkg/symsolve/answer"
	"github.com/cognicore/symsolve/pkg/symsolve/internalerr"
	"github.com/cognicore/symsolve/pkg/symsolve/store"
)

// Strategy names accepted by configuration.
const (
	StrategyRandom  = "random"
	StrategyResults = "results"
	StrategyStore   = "store"
	StrategyLLM     = "llm"
)

// Request identifies the failed program.
type Request struct {
	ExampleID string
	LogicType string
	Dataset   answer.Dataset
	Context   string
	Question  string
	Options   []string
}

// Letters returns the admissible letters: those of the example's options,
// or the dataset defaults when the options carry none.
func (r Request) Letters() []string {
	if l := answer.OptionLetters(r.Options); len(l) > 0 {
		return l
	}
	return r.Dataset.Letters()
}

// Strategy produces a backup letter. A strategy that has no answer for the
// request returns an error wrapping internalerr.ErrNotFound.
type Strategy interface {
	Answer(ctx context.Context, r Request) (string, error)
}

// Random picks a letter from a hash of the example id, so reruns agree.
type Random struct{}

// Answer implements Strategy.
func (Random) Answer(ctx context.Context, r Request) (string, error) {
	letters := r.Letters()
	if len(letters) == 0 {
		return "", fmt.Errorf("random backup for %s: %w: no letters", r.ExampleID, internalerr.ErrNotFound)
	}
	h := fnv.New32a()
	h.Write([]byte(r.ExampleID))
	return letters[int(h.Sum32()%uint32(len(letters)))], nil
}

// Results answers from a pre-computed prediction file.
type Results struct {
	answers map[string]string
}

type resultEntry struct {
	ID              string `json:"id"`
	PredictedAnswer string `json:"predicted_answer"`
}

// LoadResults reads a JSON list of {"id", "predicted_answer"} objects.
func LoadResults(path string) (*Results, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load backup results: %w", err)
	}
	var entries []resultEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("load backup results: %w", err)
	}
	res := &Results{answers: make(map[string]string, len(entries))}
	for _, e := range entries {
		if l := normalizeLetter(e.PredictedAnswer); l != "" && e.ID != "" {
			res.answers[e.ID] = l
		}
	}
	return res, nil
}

// Answer implements Strategy.
func (s *Results) Answer(ctx context.Context, r Request) (string, error) {
	if l, ok := s.answers[r.ExampleID]; ok {
		return l, nil
	}
	return "", fmt.Errorf("backup results for %s: %w", r.ExampleID, internalerr.ErrNotFound)
}

// Store answers from the records of an earlier run. Records that were
// themselves backups are ignored.
type Store struct {
	st    store.Store
	runID string

	once    sync.Once
	loadErr error
	answers map[string]string
}

// NewStore uses the records of runID, or of the latest finished run when
// runID is empty. Records are loaded on first use, so the run in progress
// is never the source.
func NewStore(st store.Store, runID string) *Store {
	return &Store{st: st, runID: runID}
}

func (s *Store) load(ctx context.Context) error {
	s.once.Do(func() {
		runID := s.runID
		if runID == "" {
			run, err := s.st.LatestFinishedRun(ctx)
			if err != nil {
				s.loadErr = err
				return
			}
			runID = run.ID
		}
		recs, err := s.st.Records(ctx, runID)
		if err != nil {
			s.loadErr = err
			return
		}
		s.answers = make(map[string]string, len(recs))
		for _, rec := range recs {
			if rec.Backup || rec.Predicted == "" {
				continue
			}
			s.answers[storeKey(rec.ExampleID, rec.LogicType)] = rec.Predicted
		}
	})
	return s.loadErr
}

// Answer implements Strategy.
func (s *Store) Answer(ctx context.Context, r Request) (string, error) {
	if err := s.load(ctx); err != nil {
		return "", fmt.Errorf("backup store: %w", err)
	}
	if l, ok := s.answers[storeKey(r.ExampleID, r.LogicType)]; ok {
		return l, nil
	}
	return "", fmt.Errorf("backup store for %s/%s: %w", r.ExampleID, r.LogicType, internalerr.ErrNotFound)
}

func storeKey(id, logicType string) string { return id + "\x00" + logicType }

// Chooser is satisfied by *llm.Client.
type Chooser interface {
	ChooseOption(ctx context.Context, q llm.Question) (string, error)
}

// LLM asks a chat model for the letter.
type LLM struct {
	Client Chooser
}

// Answer implements Strategy.
func (s LLM) Answer(ctx context.Context, r Request) (string, error) {
	if s.Client == nil {
		return "", fmt.Errorf("llm backup: %w: no client", internalerr.ErrInvalidConfig)
	}
	return s.Client.ChooseOption(ctx, llm.Question{
		Context:  r.Context,
		Question: r.Question,
		Options:  r.Options,
		Letters:  r.Letters(),
	})
}

// Generator resolves backup answers with a primary strategy and the random
// fallback.
type Generator struct {
	primary Strategy
	logger  *zap.Logger
}

// NewGenerator wraps primary; a nil primary means random only.
func NewGenerator(primary Strategy, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{primary: primary, logger: logger}
}

// Answer never fails: it returns the primary strategy's letter when that is
// admissible, and the random letter otherwise.
func (g *Generator) Answer(ctx context.Context, r Request) string {
	if g.primary != nil {
		l, err := g.primary.Answer(ctx, r)
		switch {
		case err == nil && admissible(l, r.Letters()):
			return l
		case err == nil:
			g.logger.Debug("backup letter not admissible", zap.String("id", r.ExampleID), zap.String("letter", l))
		case errors.Is(err, internalerr.ErrNotFound):
			g.logger.Debug("no backup answer", zap.String("id", r.ExampleID), zap.String("logic_type", r.LogicType))
		default:
			g.logger.Warn("backup strategy failed", zap.String("id", r.ExampleID), zap.Error(err))
		}
	}
	l, _ := Random{}.Answer(ctx, r)
	return l
}

func admissible(l string, letters []string) bool {
	if len(letters) == 0 {
		return l != ""
	}
	for _, x := range letters {
		if x == l {
			return true
		}
	}
	return false
}

func normalizeLetter(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) == 1 && s[0] >= 'A' && s[0] <= 'Z' {
		return s
	}
	return ""
}
