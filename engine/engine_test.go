package engine

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixture(t *testing.T, clauses [][]int) (*Engine, *int, *int) {
	t.Helper()
	var buf bytes.Buffer
	vc, cc := 0, 0
	for _, cl := range clauses {
		for _, lit := range cl {
			if v := abs(lit); v > vc {
				vc = v
			}
		}
	}
	reg := prometheus.NewRegistry()
	e, err := Init(&buf, &vc, &cc, clauses, nil, LRAT, false, Config{}, WithMetricsRegisterer(reg))
	require.NoError(t, err)
	return e, &vc, &cc
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func TestInitBuildsWorkingEngine(t *testing.T) {
	e, _, cc := newFixture(t, [][]int{{1, -2}, {2}})
	// Two input clauses plus the proof writer's reserved true-variable unit.
	assert.Equal(t, 3, *cc)

	t1, err := e.FromClauseID(1)
	require.NoError(t, err)
	assert.NotEqual(t, e.Null().Root, t1.Root)
}

func TestAndDelegatesToApplier(t *testing.T) {
	e, _, _ := newFixture(t, nil)
	v1, err := e.Store().MakeNode(0, ID(0), ID(1))
	require.NoError(t, err)
	v2, err := e.Store().MakeNode(1, ID(0), ID(1))
	require.NoError(t, err)

	res, err := e.And(v1, v2)
	require.NoError(t, err)
	assert.NotEqual(t, ID(0), res.Root)
}

func TestFromXorProducesValidatedTBDD(t *testing.T) {
	e, _, _ := newFixture(t, nil)
	tr, err := e.FromXor([]int{1, 2, 3}, 1)
	require.NoError(t, err)
	assert.NotEqual(t, e.Null().Root, tr.Root)
}

func TestGCReportsFreedCount(t *testing.T) {
	e, _, _ := newFixture(t, nil)
	freed := e.GC()
	assert.GreaterOrEqual(t, freed, 0)
}

func TestFinishIsNoOpWithoutProofOutput(t *testing.T) {
	e, err := Init(nil, new(int), new(int), nil, nil, LRAT, false, Config{})
	require.NoError(t, err)
	assert.NoError(t, e.Finish())
}

func TestLoadConfigRejectsMissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/to/config.yaml")
	assert.Error(t, err)
}
