package versync

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	for _, c := range Metrics() {
		assert.Nil(t, reg.Register(c))
	}

	ctx := testContext()
	s := map[int]struct{}{}
	rep := ctx.Replicator(s)
	generated := testutil.ToFloat64(DiffsGenerated.WithLabelValues("set"))
	failed := testutil.ToFloat64(ApplyErrors.WithLabelValues("set"))

	s[1] = struct{}{}
	assert.NotNil(t, rep.GenDiff(0, 1))
	assert.Nil(t, rep.GenDiff(1, 2))
	assert.Equal(t, generated+1, testutil.ToFloat64(DiffsGenerated.WithLabelValues("set")))

	assert.NotNil(t, rep.ApplyDiff([]any{ActUpdate, 0}))
	assert.Equal(t, failed+1, testutil.ToFloat64(ApplyErrors.WithLabelValues("set")))

	n, err := testutil.GatherAndCount(reg, "versync_action_log_length")
	assert.Nil(t, err)
	assert.GreaterOrEqual(t, n, 1)
}
