package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cognicore/symsolve/pkg/symsolve/internalerr"
	"github.com/cognicore/symsolve/pkg/symsolve/store"
)

func openTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// TestSQLiteIntegrationBasic tests run and record round trips
func TestSQLiteIntegrationBasic(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	run := store.Run{ID: "01HX", InputPath: "dev.json", StartedAt: started, Config: "workers: 2\n"}
	if err := st.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := st.CreateRun(ctx, run); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Fatalf("duplicate CreateRun: got %v", err)
	}

	got, err := st.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.InputPath != "dev.json" || !got.StartedAt.Equal(started) || got.Finished() {
		t.Fatalf("unexpected run: %+v", got)
	}

	recs := []store.Record{
		{RunID: run.ID, Position: 1, ExampleID: "ex2", LogicType: "LP", Status: "success", Predicted: "A", Answer: "A", Trace: "Bob is big"},
		{RunID: run.ID, Position: 0, ExampleID: "ex1", LogicType: "FOL", Status: "parsing error", Predicted: "C", Answer: "B", Backup: true, Detail: "missing Premises"},
	}
	for _, r := range recs {
		if err := st.PutRecord(ctx, r); err != nil {
			t.Fatalf("PutRecord: %v", err)
		}
	}
	// Replace the LP record
	recs[0].Predicted = "B"
	if err := st.PutRecord(ctx, recs[0]); err != nil {
		t.Fatalf("PutRecord replace: %v", err)
	}

	out, err := st.Records(ctx, run.ID)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 records, got %d", len(out))
	}
	if out[0].ExampleID != "ex1" || !out[0].Backup || out[0].Detail != "missing Premises" {
		t.Errorf("unexpected first record: %+v", out[0])
	}
	if out[1].Predicted != "B" || out[1].Trace != "Bob is big" {
		t.Errorf("unexpected second record: %+v", out[1])
	}

	finished := started.Add(90 * time.Second)
	if err := st.FinishRun(ctx, run.ID, finished); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	got, err = st.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if !got.FinishedAt.Equal(finished) {
		t.Errorf("finished_at = %v, want %v", got.FinishedAt, finished)
	}
}

func TestSQLiteLatestRun(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	if _, err := st.LatestRun(ctx); !errors.Is(err, internalerr.ErrNotFound) {
		t.Fatalf("empty store: got %v", err)
	}

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, off := range []time.Duration{0, 500 * time.Millisecond, time.Second, 1500 * time.Millisecond} {
		r := store.Run{ID: fmt.Sprintf("run-%d", i), StartedAt: base.Add(off)}
		if err := st.CreateRun(ctx, r); err != nil {
			t.Fatalf("CreateRun: %v", err)
		}
	}
	latest, err := st.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if latest.ID != "run-3" {
		t.Errorf("latest = %s, want run-3", latest.ID)
	}

	if _, err := st.LatestFinishedRun(ctx); !errors.Is(err, internalerr.ErrNotFound) {
		t.Fatalf("no finished runs: got %v", err)
	}
	if err := st.FinishRun(ctx, "run-1", base.Add(time.Minute)); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	finished, err := st.LatestFinishedRun(ctx)
	if err != nil {
		t.Fatalf("LatestFinishedRun: %v", err)
	}
	if finished.ID != "run-1" {
		t.Errorf("latest finished = %s, want run-1", finished.ID)
	}
}

func TestSQLiteUnknownRun(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	if err := st.PutRecord(ctx, store.Record{RunID: "nope", ExampleID: "x", LogicType: "LP", Status: "success"}); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("PutRecord: got %v", err)
	}
	if err := st.FinishRun(ctx, "nope", time.Now()); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("FinishRun: got %v", err)
	}
	if _, err := st.Records(ctx, "nope"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("Records: got %v", err)
	}
}

func TestSQLiteConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	if err := st.CreateRun(ctx, store.Run{ID: "r", StartedAt: time.Now()}); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- st.PutRecord(ctx, store.Record{
				RunID: "r", Position: i, ExampleID: fmt.Sprintf("ex%02d", i), LogicType: "CSP", Status: "success", Predicted: "A",
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("PutRecord: %v", err)
		}
	}

	out, err := st.Records(ctx, "r")
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(out) != 20 {
		t.Fatalf("expected 20 records, got %d", len(out))
	}
	for i, r := range out {
		if r.Position != i {
			t.Fatalf("record %d has position %d", i, r.Position)
		}
	}
}
