package src

import (
	"sort"

	"github.com/gonum/stat"
	"github.com/montanaflynn/stats"
	"github.com/wangjohn/quickselect"
)

type MetricSummary struct {
	Mean   float64
	SD     float64
	Median float64
	Min    float64
	Max    float64
}

// Summary aggregates the results of a run. Worst holds the lowest F1
// patients, lowest first.
type Summary struct {
	N         int
	Accuracy  MetricSummary
	Precision MetricSummary
	Recall    MetricSummary
	F1        MetricSummary
	Worst     []Result
}

func Summarize(results []Result, worst int) Summary {
	sum := Summary{N: len(results)}
	if len(results) == 0 {
		return sum
	}
	acc := make([]float64, len(results))
	pre := make([]float64, len(results))
	rec := make([]float64, len(results))
	f1 := make([]float64, len(results))
	for i, r := range results {
		acc[i] = r.Perf.Accuracy
		pre[i] = r.Perf.Precision
		rec[i] = r.Perf.Recall
		f1[i] = r.Perf.F1
	}
	sum.Accuracy = summarizeMetric(acc)
	sum.Precision = summarizeMetric(pre)
	sum.Recall = summarizeMetric(rec)
	sum.F1 = summarizeMetric(f1)

	if worst > len(results) {
		worst = len(results)
	}
	if worst > 0 {
		ranked := byF1(append([]Result{}, results...))
		if err := quickselect.QuickSelect(ranked, worst); err != nil {
			sort.Sort(ranked)
		}
		sort.Sort(ranked[:worst])
		sum.Worst = ranked[:worst]
	}
	return sum
}

func summarizeMetric(x []float64) (m MetricSummary) {
	if len(x) == 1 {
		m.Mean = x[0]
	} else {
		m.Mean, m.SD = stat.MeanStdDev(x, nil)
	}
	m.Median, _ = stats.Median(x)
	m.Min, _ = stats.Min(x)
	m.Max, _ = stats.Max(x)
	return m
}

type byF1 []Result

func (r byF1) Len() int           { return len(r) }
func (r byF1) Less(i, j int) bool { return r[i].Perf.F1 < r[j].Perf.F1 }
func (r byF1) Swap(i, j int)      { r[i], r[j] = r[j], r[i] }
