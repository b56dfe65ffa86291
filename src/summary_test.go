package src

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	results := []Result{
		testResult("r", "chb01", 0.9),
		testResult("r", "chb02", 0.2),
		testResult("r", "chb03", 0.6),
		testResult("r", "chb04", 0.1),
		testResult("r", "chb05", 0.7),
	}
	sum := Summarize(results, 2)
	assert.Equal(t, 5, sum.N)
	assert.InDelta(t, 0.5, sum.F1.Mean, 1e-12)
	assert.InDelta(t, 0.6, sum.F1.Median, 1e-12)
	assert.InDelta(t, 0.1, sum.F1.Min, 1e-12)
	assert.InDelta(t, 0.9, sum.F1.Max, 1e-12)
	// sample standard deviation
	assert.InDelta(t, 0.3391164992, sum.F1.SD, 1e-9)
	assert.InDelta(t, 0.9, sum.Accuracy.Mean, 1e-12)
	assert.InDelta(t, 0.0, sum.Accuracy.SD, 1e-12)

	require.Len(t, sum.Worst, 2)
	assert.Equal(t, "chb04", sum.Worst[0].Patient)
	assert.Equal(t, "chb02", sum.Worst[1].Patient)
	assert.Equal(t, "chb01", results[0].Patient, "input order is kept")
}

func TestSummarizeSmall(t *testing.T) {
	sum := Summarize(nil, 3)
	assert.Equal(t, 0, sum.N)
	assert.Empty(t, sum.Worst)

	sum = Summarize([]Result{testResult("r", "chb01", 0.4)}, 3)
	assert.Equal(t, 0.4, sum.F1.Mean)
	assert.Equal(t, 0.0, sum.F1.SD)
	require.Len(t, sum.Worst, 1)
	assert.Equal(t, "chb01", sum.Worst[0].Patient)
}
