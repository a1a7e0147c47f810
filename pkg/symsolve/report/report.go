// Package report aggregates stored records into per-logic-type summaries.
package report

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/cognicore/symsolve/pkg/symsolve/gateway"
	"github.com/cognicore/symsolve/pkg/symsolve/store"
)

// Summary covers the records of one logic type.
type Summary struct {
	LogicType string
	Total     int
	Statuses  map[string]int
	Backups   int

	Labelled int // records with a gold answer
	Correct  int

	// Successful executions among labelled records.
	Executed        int
	ExecutedCorrect int
}

// Accuracy over labelled records, backups included.
func (s Summary) Accuracy() float64 { return ratio(s.Correct, s.Labelled) }

// ExecutedAccuracy over labelled records whose program ran successfully.
func (s Summary) ExecutedAccuracy() float64 { return ratio(s.ExecutedCorrect, s.Executed) }

// SuccessRate is the share of records with status success.
func (s Summary) SuccessRate() float64 {
	return ratio(s.Statuses[string(gateway.StatusSuccess)], s.Total)
}

// Report is the summary of one run.
type Report struct {
	RunID string
	Types []Summary // sorted by logic type
}

// Build aggregates records.
func Build(runID string, records []store.Record) Report {
	byType := map[string]*Summary{}
	for _, r := range records {
		s, ok := byType[r.LogicType]
		if !ok {
			s = &Summary{LogicType: r.LogicType, Statuses: map[string]int{}}
			byType[r.LogicType] = s
		}
		s.Total++
		s.Statuses[r.Status]++
		if r.Backup {
			s.Backups++
		}
		if r.Answer == "" {
			continue
		}
		s.Labelled++
		if r.Correct() {
			s.Correct++
		}
		if r.Status == string(gateway.StatusSuccess) {
			s.Executed++
			if r.Correct() {
				s.ExecutedCorrect++
			}
		}
	}

	rep := Report{RunID: runID}
	for _, s := range byType {
		rep.Types = append(rep.Types, *s)
	}
	sort.Slice(rep.Types, func(i, j int) bool { return rep.Types[i].LogicType < rep.Types[j].LogicType })
	return rep
}

// Write renders the report as an aligned table.
func (r Report) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "run %s\n", r.RunID)
	fmt.Fprintln(tw, "type\ttotal\tsuccess\tparsing error\texecution error\tbackup\taccuracy\texec accuracy")
	for _, s := range r.Types {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%s\t%s\n",
			s.LogicType, s.Total,
			s.Statuses[string(gateway.StatusSuccess)],
			s.Statuses[string(gateway.StatusParsingError)],
			s.Statuses[string(gateway.StatusExecutionError)],
			s.Backups,
			percent(s.Correct, s.Labelled),
			percent(s.ExecutedCorrect, s.Executed),
		)
	}
	return tw.Flush()
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

func percent(n, d int) string {
	if d == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", 100*ratio(n, d))
}
