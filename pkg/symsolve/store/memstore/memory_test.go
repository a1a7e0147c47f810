package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/symsolve/pkg/symsolve/internalerr"
	"github.com/cognicore/symsolve/pkg/symsolve/store"
)

func TestRunsAndRecords(t *testing.T) {
	ctx := context.Background()
	st := New()
	var _ store.Store = st

	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, st.CreateRun(ctx, store.Run{ID: "r1", InputPath: "in.json", StartedAt: t0}))
	require.NoError(t, st.CreateRun(ctx, store.Run{ID: "r2", StartedAt: t0.Add(time.Hour)}))
	assert.ErrorIs(t, st.CreateRun(ctx, store.Run{ID: "r1"}), internalerr.ErrInvalidInput)

	latest, err := st.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r2", latest.ID)
	_, err = st.LatestFinishedRun(ctx)
	assert.ErrorIs(t, err, internalerr.ErrNotFound)

	require.NoError(t, st.PutRecord(ctx, store.Record{RunID: "r1", Position: 1, ExampleID: "b", LogicType: "LP", Predicted: "A"}))
	require.NoError(t, st.PutRecord(ctx, store.Record{RunID: "r1", Position: 0, ExampleID: "a", LogicType: "FOL", Predicted: "C"}))
	require.NoError(t, st.PutRecord(ctx, store.Record{RunID: "r1", Position: 0, ExampleID: "a", LogicType: "CSP", Predicted: "B"}))
	// replaces the earlier LP record
	require.NoError(t, st.PutRecord(ctx, store.Record{RunID: "r1", Position: 1, ExampleID: "b", LogicType: "LP", Predicted: "B"}))

	recs, err := st.Records(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "CSP", recs[0].LogicType)
	assert.Equal(t, "FOL", recs[1].LogicType)
	assert.Equal(t, "B", recs[2].Predicted)

	require.NoError(t, st.FinishRun(ctx, "r1", t0.Add(time.Minute)))
	r1, err := st.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, r1.Finished())

	finished, err := st.LatestFinishedRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r1", finished.ID)
}

func TestNotFound(t *testing.T) {
	ctx := context.Background()
	st := New()

	_, err := st.LatestRun(ctx)
	assert.ErrorIs(t, err, internalerr.ErrNotFound)
	_, err = st.GetRun(ctx, "x")
	assert.ErrorIs(t, err, internalerr.ErrNotFound)
	assert.ErrorIs(t, st.FinishRun(ctx, "x", time.Now()), internalerr.ErrNotFound)
	assert.ErrorIs(t, st.PutRecord(ctx, store.Record{RunID: "x"}), internalerr.ErrNotFound)
	_, err = st.Records(ctx, "x")
	assert.ErrorIs(t, err, internalerr.ErrNotFound)
}
