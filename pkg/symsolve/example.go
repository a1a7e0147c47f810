package symsolve

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cognicore/symsolve/pkg/symsolve/config"
	"github.com/cognicore/symsolve/pkg/symsolve/internalerr"
)

// Example is one input item: a question with one generated program per
// logic type.
type Example struct {
	ID       string
	Context  string
	Question string
	Options  []string
	Answer   string
	Programs map[string]string // logic type -> program text
}

type exampleJSON struct {
	ID       string   `json:"id"`
	Context  string   `json:"context"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

// UnmarshalJSON reads the fixed fields and, for each logic type key, the
// first program of its list. A bare string is accepted as a one-element list.
func (e *Example) UnmarshalJSON(data []byte) error {
	var base exampleJSON
	if err := json.Unmarshal(data, &base); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Example{
		ID:       base.ID,
		Context:  base.Context,
		Question: base.Question,
		Options:  base.Options,
		Answer:   base.Answer,
		Programs: map[string]string{},
	}
	for _, lt := range config.LogicTypes {
		msg, ok := raw[lt]
		if !ok {
			continue
		}
		var list []string
		if err := json.Unmarshal(msg, &list); err != nil {
			var single string
			if err2 := json.Unmarshal(msg, &single); err2 != nil {
				return fmt.Errorf("example %s: %s: %w", base.ID, lt, err)
			}
			list = []string{single}
		}
		if len(list) > 0 {
			e.Programs[lt] = list[0]
		}
	}
	return nil
}

// Result is the outcome of one logic type for one example.
type Result struct {
	Status    string
	Predicted string
	Backup    bool
	Detail    string
	Trace     string
}

// OutputRecord is one output item.
type OutputRecord struct {
	ID       string
	Context  string
	Question string
	Options  []string
	Answer   string
	Results  map[string]Result
}

type jsonField struct {
	key   string
	value any
}

// MarshalJSON writes the example fields followed by a
// <TYPE>_status_code / <TYPE>_predicted_answer pair per logic type, in the
// fixed order LP, FOL, CSP, SAT.
func (o OutputRecord) MarshalJSON() ([]byte, error) {
	fields := []jsonField{
		{"id", o.ID},
		{"context", o.Context},
		{"question", o.Question},
		{"option", o.Options},
		{"answer", o.Answer},
	}
	for _, lt := range config.LogicTypes {
		if r, ok := o.Results[lt]; ok {
			fields = append(fields,
				jsonField{lt + "_status_code", r.Status},
				jsonField{lt + "_predicted_answer", r.Predicted},
			)
		}
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		val, err := marshalNoEscape(f.value)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(f.key)
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// LoadExamples reads a JSON list of examples.
func LoadExamples(path string) ([]Example, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load examples: %w", err)
	}
	var examples []Example
	if err := json.Unmarshal(data, &examples); err != nil {
		return nil, fmt.Errorf("load examples %s: %w: %v", path, internalerr.ErrInvalidInput, err)
	}
	return examples, nil
}

// WriteOutputs writes records as an indented JSON list, creating the parent
// directory when needed.
func WriteOutputs(path string, records []OutputRecord) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("write outputs: %w", err)
		}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if records == nil {
		records = []OutputRecord{}
	}
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("write outputs: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write outputs: %w", err)
	}
	return nil
}
